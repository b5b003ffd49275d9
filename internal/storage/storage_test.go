package storage

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"testing"
	"time"

	"github.com/rewired-gh/polymatch/internal/models"
)

var baseTime = time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

func newTestStorage(t *testing.T) *Storage {
	t.Helper()
	s, err := Open(":memory:")
	if err != nil {
		t.Fatalf("Open failed: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	s.now = func() time.Time { return baseTime }
	return s
}

func sourceMarket(id, question string, volume24h float64) models.SourceMarket {
	return models.SourceMarket{
		ID:          id,
		Question:    question,
		Probability: 0.5,
		Volume24h:   volume24h,
		Mechanism:   "cpmm-1",
		OutcomeType: "BINARY",
	}
}

func TestStorage_MatchRoundTrip(t *testing.T) {
	s := newTestStorage(t)
	ctx := context.Background()

	result := &models.MatchResult{
		SourceMarketID:  "mkt-1",
		SourceQuestion:  "Will Trump criticize the Fed in 2025?",
		TargetEventID:   "KXSHUT",
		TargetMarketID:  "KXSHUT-A",
		TargetTitle:     "Trump vs Fed during the government shutdown",
		Similarity:      0.9,
		Confidence:      90,
		MatchMethod:     models.MatchMethodAI,
		MatchedEntities: []string{"trump", "fed"},
		Reasoning:       "same dispute",
		MatchedAt:       baseTime.Add(-time.Second),
	}

	if err := s.StoreMatch(ctx, result, time.Hour); err != nil {
		t.Fatalf("StoreMatch failed: %v", err)
	}
	if result.ID == "" {
		t.Error("Expected StoreMatch to assign an ID")
	}
	if !result.ExpiresAt.Equal(baseTime.Add(time.Hour)) {
		t.Errorf("ExpiresAt = %v, expected %v", result.ExpiresAt, baseTime.Add(time.Hour))
	}

	got, err := s.LookupMatch(ctx, "mkt-1")
	if err != nil {
		t.Fatalf("LookupMatch failed: %v", err)
	}

	if got.ID != result.ID || got.SourceMarketID != result.SourceMarketID || got.SourceQuestion != result.SourceQuestion {
		t.Errorf("Identity mismatch: got %+v", got)
	}
	if got.TargetEventID != "KXSHUT" || got.TargetMarketID != "KXSHUT-A" || got.TargetTitle != result.TargetTitle {
		t.Errorf("Target mismatch: got %+v", got)
	}
	if got.Similarity != 0.9 || got.Confidence != 90 || got.MatchMethod != models.MatchMethodAI {
		t.Errorf("Score mismatch: got %+v", got)
	}
	if fmt.Sprint(got.MatchedEntities) != "[trump fed]" {
		t.Errorf("MatchedEntities = %v", got.MatchedEntities)
	}
	if got.Reasoning != "same dispute" {
		t.Errorf("Reasoning = %q", got.Reasoning)
	}
	if got.MatchedAt.UnixMilli() != result.MatchedAt.UnixMilli() || got.ExpiresAt.UnixMilli() != result.ExpiresAt.UnixMilli() {
		t.Errorf("Timestamps differ: got %v/%v, expected %v/%v", got.MatchedAt, got.ExpiresAt, result.MatchedAt, result.ExpiresAt)
	}
}

func TestStorage_NoneResultHasNoTarget(t *testing.T) {
	s := newTestStorage(t)
	ctx := context.Background()

	result := &models.MatchResult{
		SourceMarketID: "mkt-1",
		SourceQuestion: "Will it rain tomorrow?",
		MatchMethod:    models.MatchMethodNone,
		Reasoning:      "no entity overlap found",
	}
	if err := s.StoreMatch(ctx, result, time.Hour); err != nil {
		t.Fatalf("StoreMatch failed: %v", err)
	}

	got, err := s.LookupMatch(ctx, "mkt-1")
	if err != nil {
		t.Fatalf("LookupMatch failed: %v", err)
	}
	if got.TargetEventID != "" || got.TargetMarketID != "" || got.TargetTitle != "" {
		t.Errorf("Expected empty target, got %+v", got)
	}
	if got.MatchedEntities == nil || len(got.MatchedEntities) != 0 {
		t.Errorf("Expected empty non-nil entities, got %#v", got.MatchedEntities)
	}
	if got.Matched() {
		t.Error("Expected a none result not to count as matched")
	}
}

func TestStorage_StoreMatchReplaces(t *testing.T) {
	s := newTestStorage(t)
	ctx := context.Background()

	first := &models.MatchResult{SourceMarketID: "mkt-1", SourceQuestion: "Q?", MatchMethod: models.MatchMethodNone}
	if err := s.StoreMatch(ctx, first, time.Hour); err != nil {
		t.Fatalf("StoreMatch failed: %v", err)
	}

	second := &models.MatchResult{
		SourceMarketID: "mkt-1",
		SourceQuestion: "Q?",
		TargetEventID:  "E1",
		Similarity:     0.8,
		Confidence:     80,
		MatchMethod:    models.MatchMethodEntity,
	}
	if err := s.StoreMatch(ctx, second, 2*time.Hour); err != nil {
		t.Fatalf("StoreMatch failed: %v", err)
	}

	if first.ID == second.ID {
		t.Error("Expected a replacement to get a new ID")
	}

	got, err := s.LookupMatch(ctx, "mkt-1")
	if err != nil {
		t.Fatalf("LookupMatch failed: %v", err)
	}
	if got.ID != second.ID || got.MatchMethod != models.MatchMethodEntity {
		t.Errorf("Expected the second result, got %+v", got)
	}

	stats, err := s.CountMatches(ctx)
	if err != nil {
		t.Fatalf("CountMatches failed: %v", err)
	}
	if len(stats) != 1 || stats[models.MatchMethodEntity] != 1 {
		t.Errorf("Expected exactly one live entity result, got %v", stats)
	}
}

func TestStorage_LookupMissingAndExpired(t *testing.T) {
	s := newTestStorage(t)
	ctx := context.Background()

	if _, err := s.LookupMatch(ctx, "nope"); !errors.Is(err, ErrNotFound) {
		t.Errorf("Expected ErrNotFound, got %v", err)
	}

	result := &models.MatchResult{SourceMarketID: "mkt-1", SourceQuestion: "Q?", MatchMethod: models.MatchMethodNone}
	if err := s.StoreMatch(ctx, result, time.Hour); err != nil {
		t.Fatalf("StoreMatch failed: %v", err)
	}

	s.now = func() time.Time { return baseTime.Add(time.Hour) }
	if _, err := s.LookupMatch(ctx, "mkt-1"); !errors.Is(err, ErrNotFound) {
		t.Errorf("Expected expired result to be ErrNotFound, got %v", err)
	}
}

func TestStorage_StoreMatchRejectsInvalid(t *testing.T) {
	s := newTestStorage(t)
	ctx := context.Background()

	tests := []struct {
		name   string
		result models.MatchResult
		ttl    time.Duration
	}{
		{"missing source", models.MatchResult{MatchMethod: models.MatchMethodNone}, time.Hour},
		{"matched without target", models.MatchResult{SourceMarketID: "m", MatchMethod: models.MatchMethodAI}, time.Hour},
		{"zero ttl", models.MatchResult{SourceMarketID: "m", MatchMethod: models.MatchMethodNone}, 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if err := s.StoreMatch(ctx, &tt.result, tt.ttl); err == nil {
				t.Error("Expected error")
			}
		})
	}
}

func TestStorage_ListUnmatched(t *testing.T) {
	s := newTestStorage(t)
	ctx := context.Background()

	resolved := sourceMarket("resolved", "Already done?", 1000)
	resolved.IsResolved = true
	markets := []models.SourceMarket{
		sourceMarket("low", "Low volume?", 10),
		sourceMarket("high", "High volume?", 500),
		sourceMarket("mid", "Mid volume?", 100),
		sourceMarket("matched", "Matched already?", 900),
		resolved,
	}
	if err := s.UpsertSourceMarkets(ctx, markets); err != nil {
		t.Fatalf("UpsertSourceMarkets failed: %v", err)
	}

	live := &models.MatchResult{SourceMarketID: "matched", SourceQuestion: "Matched already?", MatchMethod: models.MatchMethodNone}
	if err := s.StoreMatch(ctx, live, time.Hour); err != nil {
		t.Fatalf("StoreMatch failed: %v", err)
	}

	refs, err := s.ListUnmatched(ctx, 10)
	if err != nil {
		t.Fatalf("ListUnmatched failed: %v", err)
	}
	got := make([]string, len(refs))
	for i, r := range refs {
		got[i] = r.ID
	}
	if fmt.Sprint(got) != "[high mid low]" {
		t.Errorf("ListUnmatched = %v, expected [high mid low]", got)
	}
	if refs[0].Question != "High volume?" {
		t.Errorf("Question = %q", refs[0].Question)
	}

	refs, err = s.ListUnmatched(ctx, 2)
	if err != nil {
		t.Fatalf("ListUnmatched failed: %v", err)
	}
	if len(refs) != 2 {
		t.Errorf("Expected limit to apply, got %d", len(refs))
	}

	// once the match expires the market is eligible again, ahead of the rest
	s.now = func() time.Time { return baseTime.Add(2 * time.Hour) }
	refs, err = s.ListUnmatched(ctx, 1)
	if err != nil {
		t.Fatalf("ListUnmatched failed: %v", err)
	}
	if len(refs) != 1 || refs[0].ID != "matched" {
		t.Errorf("Expected expired match to be listed first, got %v", refs)
	}
}

func TestStorage_ListUnmatchedAfterResolveOrClose(t *testing.T) {
	s := newTestStorage(t)
	ctx := context.Background()

	closing := sourceMarket("closing", "Closes soon?", 50)
	closing.CloseTime = baseTime.Add(time.Hour)
	markets := []models.SourceMarket{
		sourceMarket("open", "Still open?", 10),
		sourceMarket("resolving", "Resolves later?", 100),
		closing,
	}
	if err := s.UpsertSourceMarkets(ctx, markets); err != nil {
		t.Fatalf("UpsertSourceMarkets failed: %v", err)
	}

	refs, err := s.ListUnmatched(ctx, 10)
	if err != nil {
		t.Fatalf("ListUnmatched failed: %v", err)
	}
	if len(refs) != 3 {
		t.Fatalf("Expected 3 markets before resolution, got %v", refs)
	}

	// a later sync reports the market resolved
	markets[1].IsResolved = true
	if err := s.UpsertSourceMarkets(ctx, markets[1:2]); err != nil {
		t.Fatalf("UpsertSourceMarkets failed: %v", err)
	}
	s.now = func() time.Time { return baseTime.Add(2 * time.Hour) }

	tests := []struct {
		name string
		list func(context.Context, int) ([]models.MarketRef, error)
	}{
		{"unmatched", s.ListUnmatched},
		{"unsummarized", s.ListUnsummarized},
		{"untagged", s.ListUntagged},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			refs, err := tt.list(ctx, 10)
			if err != nil {
				t.Fatalf("list failed: %v", err)
			}
			if len(refs) != 1 || refs[0].ID != "open" {
				t.Errorf("Expected only the open market, got %v", refs)
			}
		})
	}
}

func TestStorage_UpsertSourceMarkets(t *testing.T) {
	s := newTestStorage(t)
	ctx := context.Background()

	m := sourceMarket("mkt-1", "Will X happen?", 5)
	m.CloseTime = baseTime.Add(48 * time.Hour)
	if err := s.UpsertSourceMarkets(ctx, []models.SourceMarket{m}); err != nil {
		t.Fatalf("UpsertSourceMarkets failed: %v", err)
	}

	m.Question = "Will X happen by June?"
	m.Probability = 0.7
	if err := s.UpsertSourceMarkets(ctx, []models.SourceMarket{m}); err != nil {
		t.Fatalf("UpsertSourceMarkets failed: %v", err)
	}

	got, err := s.GetSourceMarket(ctx, "mkt-1")
	if err != nil {
		t.Fatalf("GetSourceMarket failed: %v", err)
	}
	if got.Question != "Will X happen by June?" || got.Probability != 0.7 {
		t.Errorf("Expected updated market, got %+v", got)
	}
	if !got.CloseTime.Equal(m.CloseTime) {
		t.Errorf("CloseTime = %v, expected %v", got.CloseTime, m.CloseTime)
	}
	if !got.UpdatedAt.Equal(baseTime) {
		t.Errorf("UpdatedAt = %v, expected %v", got.UpdatedAt, baseTime)
	}

	if _, err := s.GetSourceMarket(ctx, "missing"); !errors.Is(err, ErrNotFound) {
		t.Errorf("Expected ErrNotFound, got %v", err)
	}

	bad := sourceMarket("", "No id?", 1)
	if err := s.UpsertSourceMarkets(ctx, []models.SourceMarket{bad}); err == nil {
		t.Error("Expected invalid market to be rejected")
	}
}

func TestStorage_UpsertSourceMarketsChunks(t *testing.T) {
	s := newTestStorage(t)
	ctx := context.Background()

	markets := make([]models.SourceMarket, insertChunk*2+7)
	for i := range markets {
		markets[i] = sourceMarket(fmt.Sprintf("m-%04d", i), fmt.Sprintf("Question %d?", i), float64(i))
	}
	if err := s.UpsertSourceMarkets(ctx, markets); err != nil {
		t.Fatalf("UpsertSourceMarkets failed: %v", err)
	}

	refs, err := s.ListUnmatched(ctx, 1000)
	if err != nil {
		t.Fatalf("ListUnmatched failed: %v", err)
	}
	if len(refs) != len(markets) {
		t.Errorf("Expected %d markets, got %d", len(markets), len(refs))
	}
}

func TestStorage_TargetEvents(t *testing.T) {
	s := newTestStorage(t)
	ctx := context.Background()

	events := []models.TargetEvent{
		{
			ID:       "KXPRES-28",
			SeriesID: "KXPRES",
			Title:    "Who will win the 2028 presidential election?",
			Subtitle: "Trump vs others",
			Category: "Politics",
			Markets: []models.TargetMarket{
				{ID: "KXPRES-28-Z", EventID: "KXPRES-28", Title: "Other", Status: "closed"},
				{ID: "KXPRES-28-A", EventID: "KXPRES-28", Title: "Trump", Status: "active", YesBid: 0.2, YesAsk: 0.22, Volume24h: 1500},
			},
		},
		{
			ID:       "KXBTC-26",
			Title:    "Bitcoin price at year end",
			Category: "Crypto",
			Markets:  []models.TargetMarket{{ID: "KXBTC-26-100K", EventID: "KXBTC-26", Status: "open"}},
		},
		{ID: "KXEMPTY", Title: "No markets yet", Category: "Politics"},
	}
	if err := s.UpsertTargetEvents(ctx, events); err != nil {
		t.Fatalf("UpsertTargetEvents failed: %v", err)
	}

	all, err := s.ListTargetEvents(ctx, 100, "")
	if err != nil {
		t.Fatalf("ListTargetEvents failed: %v", err)
	}
	if len(all) != 3 {
		t.Fatalf("Expected 3 events, got %d", len(all))
	}
	// synced together, so ordered by id
	if all[0].ID != "KXBTC-26" || all[1].ID != "KXEMPTY" || all[2].ID != "KXPRES-28" {
		t.Errorf("Unexpected order: %s %s %s", all[0].ID, all[1].ID, all[2].ID)
	}

	pres := all[2]
	if pres.Subtitle != "Trump vs others" || pres.SeriesID != "KXPRES" {
		t.Errorf("Event fields not preserved: %+v", pres)
	}
	if len(pres.Markets) != 2 || pres.Markets[0].ID != "KXPRES-28-Z" || pres.Markets[1].ID != "KXPRES-28-A" {
		t.Fatalf("Market order not preserved: %+v", pres.Markets)
	}
	if pres.Markets[1].YesAsk != 0.22 || pres.Markets[1].Volume24h != 1500 {
		t.Errorf("Market fields not preserved: %+v", pres.Markets[1])
	}
	if best := pres.BestMarket(); best == nil || best.ID != "KXPRES-28-A" {
		t.Errorf("BestMarket = %+v", best)
	}
	if len(all[1].Markets) != 0 {
		t.Errorf("Expected no markets for KXEMPTY, got %d", len(all[1].Markets))
	}

	politics, err := s.ListTargetEvents(ctx, 100, "Politics")
	if err != nil {
		t.Fatalf("ListTargetEvents failed: %v", err)
	}
	if len(politics) != 2 {
		t.Errorf("Expected 2 politics events, got %d", len(politics))
	}

	limited, err := s.ListTargetEvents(ctx, 1, "")
	if err != nil {
		t.Fatalf("ListTargetEvents failed: %v", err)
	}
	if len(limited) != 1 {
		t.Errorf("Expected limit 1, got %d", len(limited))
	}

	// re-upsert replaces nested markets
	events[0].Markets = []models.TargetMarket{{ID: "KXPRES-28-B", EventID: "KXPRES-28", Status: "open"}}
	if err := s.UpsertTargetEvents(ctx, events[:1]); err != nil {
		t.Fatalf("UpsertTargetEvents failed: %v", err)
	}
	politics, err = s.ListTargetEvents(ctx, 100, "Politics")
	if err != nil {
		t.Fatalf("ListTargetEvents failed: %v", err)
	}
	for _, e := range politics {
		if e.ID == "KXPRES-28" && (len(e.Markets) != 1 || e.Markets[0].ID != "KXPRES-28-B") {
			t.Errorf("Expected markets to be replaced, got %+v", e.Markets)
		}
	}
}

func TestStorage_PruneTargetEvents(t *testing.T) {
	s := newTestStorage(t)
	ctx := context.Background()

	old := models.TargetEvent{
		ID:       "AAA-OLD",
		Title:    "Closed upstream",
		Category: "Politics",
		Markets:  []models.TargetMarket{{ID: "AAA-OLD-1", EventID: "AAA-OLD", Status: "active"}},
	}
	if err := s.UpsertTargetEvents(ctx, []models.TargetEvent{old}); err != nil {
		t.Fatalf("UpsertTargetEvents failed: %v", err)
	}

	syncStart := baseTime.Add(time.Hour)
	s.now = func() time.Time { return syncStart }
	fresh := models.TargetEvent{
		ID:       "ZZZ-NEW",
		Title:    "Still open",
		Category: "Politics",
		Markets:  []models.TargetMarket{{ID: "ZZZ-NEW-1", EventID: "ZZZ-NEW", Status: "active"}},
	}
	if err := s.UpsertTargetEvents(ctx, []models.TargetEvent{fresh}); err != nil {
		t.Fatalf("UpsertTargetEvents failed: %v", err)
	}

	// before pruning, the most recently synced event wins the limit
	limited, err := s.ListTargetEvents(ctx, 1, "")
	if err != nil {
		t.Fatalf("ListTargetEvents failed: %v", err)
	}
	if len(limited) != 1 || limited[0].ID != "ZZZ-NEW" {
		t.Errorf("Expected ZZZ-NEW first, got %+v", limited)
	}

	n, err := s.PruneTargetEvents(ctx, syncStart)
	if err != nil {
		t.Fatalf("PruneTargetEvents failed: %v", err)
	}
	if n != 1 {
		t.Errorf("PruneTargetEvents() = %d, expected 1", n)
	}

	all, err := s.ListTargetEvents(ctx, 100, "")
	if err != nil {
		t.Fatalf("ListTargetEvents failed: %v", err)
	}
	if len(all) != 1 || all[0].ID != "ZZZ-NEW" || len(all[0].Markets) != 1 {
		t.Errorf("Expected only ZZZ-NEW with its market, got %+v", all)
	}

	var orphans int
	if err := s.db.GetContext(ctx, &orphans, "SELECT COUNT(*) FROM target_markets WHERE event_id = ?", "AAA-OLD"); err != nil {
		t.Fatalf("count failed: %v", err)
	}
	if orphans != 0 {
		t.Errorf("Expected pruned event's markets to be deleted, got %d", orphans)
	}

	// re-seeing an event refreshes its stamp
	s.now = func() time.Time { return syncStart.Add(time.Hour) }
	if err := s.UpsertTargetEvents(ctx, []models.TargetEvent{fresh}); err != nil {
		t.Fatalf("UpsertTargetEvents failed: %v", err)
	}
	n, err = s.PruneTargetEvents(ctx, syncStart.Add(time.Hour))
	if err != nil {
		t.Fatalf("PruneTargetEvents failed: %v", err)
	}
	if n != 0 {
		t.Errorf("PruneTargetEvents() = %d, expected 0", n)
	}
}

func TestStorage_ListTargetEventsEmpty(t *testing.T) {
	s := newTestStorage(t)

	events, err := s.ListTargetEvents(context.Background(), 100, "")
	if err != nil {
		t.Fatalf("ListTargetEvents failed: %v", err)
	}
	if len(events) != 0 {
		t.Errorf("Expected empty pool, got %d", len(events))
	}
}

func TestStorage_Summaries(t *testing.T) {
	s := newTestStorage(t)
	ctx := context.Background()

	if err := s.UpsertSourceMarkets(ctx, []models.SourceMarket{
		sourceMarket("a", "A?", 2),
		sourceMarket("b", "B?", 1),
	}); err != nil {
		t.Fatalf("UpsertSourceMarkets failed: %v", err)
	}

	if err := s.StoreSummary(ctx, &models.Summary{MarketID: "a", Summary: "Explains A."}, time.Hour); err != nil {
		t.Fatalf("StoreSummary failed: %v", err)
	}

	got, err := s.GetSummary(ctx, "a")
	if err != nil {
		t.Fatalf("GetSummary failed: %v", err)
	}
	if got.Summary != "Explains A." || !got.GeneratedAt.Equal(baseTime) || !got.ExpiresAt.Equal(baseTime.Add(time.Hour)) {
		t.Errorf("Unexpected summary: %+v", got)
	}

	refs, err := s.ListUnsummarized(ctx, 10)
	if err != nil {
		t.Fatalf("ListUnsummarized failed: %v", err)
	}
	if len(refs) != 1 || refs[0].ID != "b" {
		t.Errorf("Expected only b to need a summary, got %v", refs)
	}

	if err := s.StoreSummary(ctx, &models.Summary{MarketID: "a"}, time.Hour); err == nil {
		t.Error("Expected empty summary to be rejected")
	}

	s.now = func() time.Time { return baseTime.Add(2 * time.Hour) }
	if _, err := s.GetSummary(ctx, "a"); !errors.Is(err, ErrNotFound) {
		t.Errorf("Expected expired summary to be ErrNotFound, got %v", err)
	}
}

func TestStorage_GeoTags(t *testing.T) {
	s := newTestStorage(t)
	ctx := context.Background()

	if err := s.UpsertSourceMarkets(ctx, []models.SourceMarket{sourceMarket("a", "Will France ban TikTok?", 2)}); err != nil {
		t.Fatalf("UpsertSourceMarkets failed: %v", err)
	}

	tag := &models.GeoTag{MarketID: "a", Scope: models.GeoScopeCountry, Country: "France", Latitude: 46.2, Longitude: 2.2}
	if err := s.StoreGeoTag(ctx, tag, time.Hour); err != nil {
		t.Fatalf("StoreGeoTag failed: %v", err)
	}

	got, err := s.GetGeoTag(ctx, "a")
	if err != nil {
		t.Fatalf("GetGeoTag failed: %v", err)
	}
	if got.Scope != models.GeoScopeCountry || got.Country != "France" || got.Latitude != 46.2 || got.Longitude != 2.2 {
		t.Errorf("Unexpected geotag: %+v", got)
	}

	refs, err := s.ListUntagged(ctx, 10)
	if err != nil {
		t.Fatalf("ListUntagged failed: %v", err)
	}
	if len(refs) != 0 {
		t.Errorf("Expected no untagged markets, got %v", refs)
	}

	if _, err := s.GetGeoTag(ctx, "missing"); !errors.Is(err, ErrNotFound) {
		t.Errorf("Expected ErrNotFound, got %v", err)
	}
}

func TestStorage_PurgeExpired(t *testing.T) {
	s := newTestStorage(t)
	ctx := context.Background()

	short := &models.MatchResult{SourceMarketID: "short", SourceQuestion: "Q?", MatchMethod: models.MatchMethodNone}
	long := &models.MatchResult{SourceMarketID: "long", SourceQuestion: "Q?", MatchMethod: models.MatchMethodNone}
	if err := s.StoreMatch(ctx, short, time.Minute); err != nil {
		t.Fatalf("StoreMatch failed: %v", err)
	}
	if err := s.StoreMatch(ctx, long, 24*time.Hour); err != nil {
		t.Fatalf("StoreMatch failed: %v", err)
	}
	if err := s.StoreSummary(ctx, &models.Summary{MarketID: "short", Summary: "S"}, time.Minute); err != nil {
		t.Fatalf("StoreSummary failed: %v", err)
	}

	s.now = func() time.Time { return baseTime.Add(time.Hour) }
	n, err := s.PurgeExpired(ctx)
	if err != nil {
		t.Fatalf("PurgeExpired failed: %v", err)
	}
	if n != 2 {
		t.Errorf("Expected 2 rows purged, got %d", n)
	}
	if _, err := s.LookupMatch(ctx, "long"); err != nil {
		t.Errorf("Expected long-lived match to survive, got %v", err)
	}
}

func TestStorage_OpenFilePersists(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "polymatch.db")
	ctx := context.Background()

	s, err := Open(path)
	if err != nil {
		t.Fatalf("Open failed: %v", err)
	}
	if err := s.UpsertSourceMarkets(ctx, []models.SourceMarket{sourceMarket("a", "A?", 1)}); err != nil {
		t.Fatalf("UpsertSourceMarkets failed: %v", err)
	}
	if err := s.Close(); err != nil {
		t.Fatalf("Close failed: %v", err)
	}

	// reopening finds the schema already migrated
	s, err = Open(path)
	if err != nil {
		t.Fatalf("Reopen failed: %v", err)
	}
	defer s.Close()

	if err := s.Ping(ctx); err != nil {
		t.Fatalf("Ping failed: %v", err)
	}
	if _, err := s.GetSourceMarket(ctx, "a"); err != nil {
		t.Errorf("Expected market to persist, got %v", err)
	}
}
