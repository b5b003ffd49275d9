package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/huandu/go-sqlbuilder"

	"github.com/rewired-gh/polymatch/internal/models"
)

// Rows per multi-value INSERT; keeps statements well under SQLite's
// bound-variable limit.
const insertChunk = 200

var sourceMarketCols = []string{
	"id", "question", "slug", "url", "description", "probability", "volume",
	"volume_24h", "is_resolved", "close_time", "mechanism", "outcome_type", "updated_at",
}

type sourceMarketRow struct {
	ID          string  `db:"id"`
	Question    string  `db:"question"`
	Slug        string  `db:"slug"`
	URL         string  `db:"url"`
	Description string  `db:"description"`
	Probability float64 `db:"probability"`
	Volume      float64 `db:"volume"`
	Volume24h   float64 `db:"volume_24h"`
	IsResolved  bool    `db:"is_resolved"`
	CloseTime   int64   `db:"close_time"`
	Mechanism   string  `db:"mechanism"`
	OutcomeType string  `db:"outcome_type"`
	UpdatedAt   int64   `db:"updated_at"`
}

func (r sourceMarketRow) model() models.SourceMarket {
	return models.SourceMarket{
		ID:          r.ID,
		Question:    r.Question,
		Slug:        r.Slug,
		URL:         r.URL,
		Description: r.Description,
		Probability: r.Probability,
		Volume:      r.Volume,
		Volume24h:   r.Volume24h,
		IsResolved:  r.IsResolved,
		CloseTime:   fromMillis(r.CloseTime),
		Mechanism:   r.Mechanism,
		OutcomeType: r.OutcomeType,
		UpdatedAt:   fromMillis(r.UpdatedAt),
	}
}

// UpsertSourceMarkets inserts or updates markets by id. Invalid markets are
// rejected before anything is written.
func (s *Storage) UpsertSourceMarkets(ctx context.Context, markets []models.SourceMarket) error {
	for i := range markets {
		if err := markets[i].Validate(); err != nil {
			return fmt.Errorf("invalid market %q: %w", markets[i].ID, err)
		}
	}
	if len(markets) == 0 {
		return nil
	}

	now := s.now()
	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	for start := 0; start < len(markets); start += insertChunk {
		end := min(start+insertChunk, len(markets))

		ib := sqlbuilder.SQLite.NewInsertBuilder()
		ib.InsertInto("source_markets")
		ib.Cols(sourceMarketCols...)
		for _, m := range markets[start:end] {
			updated := m.UpdatedAt
			if updated.IsZero() {
				updated = now
			}
			ib.Values(m.ID, m.Question, m.Slug, m.URL, m.Description, m.Probability, m.Volume,
				m.Volume24h, boolToInt(m.IsResolved), toMillis(m.CloseTime), m.Mechanism, m.OutcomeType, toMillis(updated))
		}

		query, args := ib.Build()
		query += ` ON CONFLICT (id) DO UPDATE SET
			question = excluded.question, slug = excluded.slug, url = excluded.url,
			description = excluded.description, probability = excluded.probability,
			volume = excluded.volume, volume_24h = excluded.volume_24h,
			is_resolved = excluded.is_resolved, close_time = excluded.close_time,
			mechanism = excluded.mechanism, outcome_type = excluded.outcome_type,
			updated_at = excluded.updated_at`

		if _, err := tx.ExecContext(ctx, query, args...); err != nil {
			return fmt.Errorf("failed to upsert source markets: %w", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit source markets: %w", err)
	}
	return nil
}

// GetSourceMarket returns one market or ErrNotFound.
func (s *Storage) GetSourceMarket(ctx context.Context, id string) (*models.SourceMarket, error) {
	sb := sqlbuilder.SQLite.NewSelectBuilder()
	sb.Select(sourceMarketCols...)
	sb.From("source_markets")
	sb.Where(sb.Equal("id", id))

	query, args := sb.Build()
	var row sourceMarketRow
	if err := s.db.GetContext(ctx, &row, query, args...); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("source market %s: %w", id, ErrNotFound)
		}
		return nil, fmt.Errorf("failed to get source market: %w", err)
	}

	m := row.model()
	return &m, nil
}

// ListUnmatched returns open, unresolved markets with no live match result,
// busiest (by 24h volume) first.
func (s *Storage) ListUnmatched(ctx context.Context, limit int) ([]models.MarketRef, error) {
	return s.listWithout(ctx, "match_results", "source_market_id", limit)
}

// listWithout returns open, unresolved markets lacking a live row in table.
// A zero close_time means the venue gave no close time.
func (s *Storage) listWithout(ctx context.Context, table, keyCol string, limit int) ([]models.MarketRef, error) {
	if limit < 1 {
		return []models.MarketRef{}, nil
	}

	now := toMillis(s.now())
	sb := sqlbuilder.SQLite.NewSelectBuilder()
	sb.Select("m.id", "m.question")
	sb.From("source_markets AS m")
	sb.JoinWithOption(sqlbuilder.LeftJoin, table+" AS x",
		"x."+keyCol+" = m.id",
		"x.expires_at > "+sb.Var(now))
	sb.Where(
		"x."+keyCol+" IS NULL",
		sb.Equal("m.is_resolved", 0),
		sb.Or(sb.Equal("m.close_time", 0), sb.GreaterThan("m.close_time", now)),
	)
	sb.OrderBy("m.volume_24h DESC", "m.id")
	sb.Limit(limit)

	query, args := sb.Build()
	refs := []models.MarketRef{}
	if err := s.db.SelectContext(ctx, &refs, query, args...); err != nil {
		return nil, fmt.Errorf("failed to list markets without %s: %w", table, err)
	}
	return refs, nil
}

var targetEventCols = []string{"id", "series_id", "title", "subtitle", "category", "updated_at", "synced_at"}

var targetMarketCols = []string{
	"id", "event_id", "position", "title", "status", "yes_bid", "yes_ask",
	"last_price", "volume", "volume_24h", "close_time",
}

type targetEventRow struct {
	ID        string `db:"id"`
	SeriesID  string `db:"series_id"`
	Title     string `db:"title"`
	Subtitle  string `db:"subtitle"`
	Category  string `db:"category"`
	UpdatedAt int64  `db:"updated_at"`
	SyncedAt  int64  `db:"synced_at"`
}

type targetMarketRow struct {
	ID        string  `db:"id"`
	EventID   string  `db:"event_id"`
	Position  int     `db:"position"`
	Title     string  `db:"title"`
	Status    string  `db:"status"`
	YesBid    float64 `db:"yes_bid"`
	YesAsk    float64 `db:"yes_ask"`
	LastPrice float64 `db:"last_price"`
	Volume    float64 `db:"volume"`
	Volume24h float64 `db:"volume_24h"`
	CloseTime int64   `db:"close_time"`
}

func (r targetMarketRow) model() models.TargetMarket {
	return models.TargetMarket{
		ID:        r.ID,
		EventID:   r.EventID,
		Title:     r.Title,
		Status:    r.Status,
		YesBid:    r.YesBid,
		YesAsk:    r.YesAsk,
		LastPrice: r.LastPrice,
		Volume:    r.Volume,
		Volume24h: r.Volume24h,
		CloseTime: fromMillis(r.CloseTime),
	}
}

// UpsertTargetEvents inserts or updates events and replaces each event's
// nested markets with the ones given, preserving their order. Every event
// written is stamped as seen at the current time; see PruneTargetEvents.
func (s *Storage) UpsertTargetEvents(ctx context.Context, events []models.TargetEvent) error {
	for i := range events {
		if err := events[i].Validate(); err != nil {
			return fmt.Errorf("invalid event %q: %w", events[i].ID, err)
		}
	}
	if len(events) == 0 {
		return nil
	}

	now := s.now()
	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	for _, e := range events {
		updated := e.UpdatedAt
		if updated.IsZero() {
			updated = now
		}

		ib := sqlbuilder.SQLite.NewInsertBuilder()
		ib.InsertInto("target_events")
		ib.Cols(targetEventCols...)
		ib.Values(e.ID, e.SeriesID, e.Title, e.Subtitle, e.Category, toMillis(updated), toMillis(now))
		query, args := ib.Build()
		query += ` ON CONFLICT (id) DO UPDATE SET
			series_id = excluded.series_id, title = excluded.title, subtitle = excluded.subtitle,
			category = excluded.category, updated_at = excluded.updated_at,
			synced_at = excluded.synced_at`
		if _, err := tx.ExecContext(ctx, query, args...); err != nil {
			return fmt.Errorf("failed to upsert target event %s: %w", e.ID, err)
		}

		del := sqlbuilder.SQLite.NewDeleteBuilder()
		del.DeleteFrom("target_markets")
		del.Where(del.Equal("event_id", e.ID))
		query, args = del.Build()
		if _, err := tx.ExecContext(ctx, query, args...); err != nil {
			return fmt.Errorf("failed to clear markets of %s: %w", e.ID, err)
		}

		if len(e.Markets) == 0 {
			continue
		}
		rb := sqlbuilder.SQLite.NewInsertBuilder()
		rb.ReplaceInto("target_markets")
		rb.Cols(targetMarketCols...)
		for pos, m := range e.Markets {
			rb.Values(m.ID, e.ID, pos, m.Title, m.Status, m.YesBid, m.YesAsk,
				m.LastPrice, m.Volume, m.Volume24h, toMillis(m.CloseTime))
		}
		query, args = rb.Build()
		if _, err := tx.ExecContext(ctx, query, args...); err != nil {
			return fmt.Errorf("failed to insert markets of %s: %w", e.ID, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit target events: %w", err)
	}
	return nil
}

// PruneTargetEvents deletes events (and their markets) last seen by a sync
// before the given time, returning the number of events removed.
func (s *Storage) PruneTargetEvents(ctx context.Context, before time.Time) (int64, error) {
	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	cutoff := toMillis(before)

	stale := sqlbuilder.SQLite.NewSelectBuilder()
	stale.Select("id")
	stale.From("target_events")
	stale.Where(stale.LessThan("synced_at", cutoff))

	delMarkets := sqlbuilder.SQLite.NewDeleteBuilder()
	delMarkets.DeleteFrom("target_markets")
	delMarkets.Where(delMarkets.In("event_id", stale))
	query, args := delMarkets.Build()
	if _, err := tx.ExecContext(ctx, query, args...); err != nil {
		return 0, fmt.Errorf("failed to prune target markets: %w", err)
	}

	delEvents := sqlbuilder.SQLite.NewDeleteBuilder()
	delEvents.DeleteFrom("target_events")
	delEvents.Where(delEvents.LessThan("synced_at", cutoff))
	query, args = delEvents.Build()
	res, err := tx.ExecContext(ctx, query, args...)
	if err != nil {
		return 0, fmt.Errorf("failed to prune target events: %w", err)
	}
	n, _ := res.RowsAffected()

	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("failed to commit prune: %w", err)
	}
	return n, nil
}

// ListTargetEvents returns up to limit events, most recently synced first
// and then by id, each with its nested markets. An empty category means all
// categories.
func (s *Storage) ListTargetEvents(ctx context.Context, limit int, category string) ([]models.TargetEvent, error) {
	if limit < 1 {
		return []models.TargetEvent{}, nil
	}

	sb := sqlbuilder.SQLite.NewSelectBuilder()
	sb.Select(targetEventCols...)
	sb.From("target_events")
	if category != "" {
		sb.Where(sb.Equal("category", category))
	}
	sb.OrderBy("synced_at DESC", "id")
	sb.Limit(limit)

	query, args := sb.Build()
	var rows []targetEventRow
	if err := s.db.SelectContext(ctx, &rows, query, args...); err != nil {
		return nil, fmt.Errorf("failed to list target events: %w", err)
	}

	events := make([]models.TargetEvent, len(rows))
	index := make(map[string]int, len(rows))
	ids := make([]interface{}, len(rows))
	for i, r := range rows {
		events[i] = models.TargetEvent{
			ID:        r.ID,
			SeriesID:  r.SeriesID,
			Title:     r.Title,
			Subtitle:  r.Subtitle,
			Category:  r.Category,
			UpdatedAt: fromMillis(r.UpdatedAt),
		}
		index[r.ID] = i
		ids[i] = r.ID
	}

	for start := 0; start < len(ids); start += insertChunk {
		end := min(start+insertChunk, len(ids))

		mb := sqlbuilder.SQLite.NewSelectBuilder()
		mb.Select(targetMarketCols...)
		mb.From("target_markets")
		mb.Where(mb.In("event_id", ids[start:end]...))
		mb.OrderBy("event_id", "position")

		query, args := mb.Build()
		var markets []targetMarketRow
		if err := s.db.SelectContext(ctx, &markets, query, args...); err != nil {
			return nil, fmt.Errorf("failed to list target markets: %w", err)
		}
		for _, m := range markets {
			i := index[m.EventID]
			events[i].Markets = append(events[i].Markets, m.model())
		}
	}

	return events, nil
}
