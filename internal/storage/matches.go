package storage

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/huandu/go-sqlbuilder"

	"github.com/rewired-gh/polymatch/internal/models"
)

var matchResultCols = []string{
	"id", "source_market_id", "source_question", "target_event_id", "target_market_id",
	"target_title", "similarity", "confidence", "match_method", "matched_entities",
	"reasoning", "matched_at", "expires_at",
}

type matchResultRow struct {
	ID              string         `db:"id"`
	SourceMarketID  string         `db:"source_market_id"`
	SourceQuestion  string         `db:"source_question"`
	TargetEventID   sql.NullString `db:"target_event_id"`
	TargetMarketID  sql.NullString `db:"target_market_id"`
	TargetTitle     sql.NullString `db:"target_title"`
	Similarity      float64        `db:"similarity"`
	Confidence      int            `db:"confidence"`
	MatchMethod     string         `db:"match_method"`
	MatchedEntities string         `db:"matched_entities"`
	Reasoning       string         `db:"reasoning"`
	MatchedAt       int64          `db:"matched_at"`
	ExpiresAt       int64          `db:"expires_at"`
}

func (r matchResultRow) model() (*models.MatchResult, error) {
	entities := []string{}
	if r.MatchedEntities != "" {
		if err := json.Unmarshal([]byte(r.MatchedEntities), &entities); err != nil {
			return nil, fmt.Errorf("corrupt matched_entities for %s: %w", r.SourceMarketID, err)
		}
	}
	return &models.MatchResult{
		ID:              r.ID,
		SourceMarketID:  r.SourceMarketID,
		SourceQuestion:  r.SourceQuestion,
		TargetEventID:   r.TargetEventID.String,
		TargetMarketID:  r.TargetMarketID.String,
		TargetTitle:     r.TargetTitle.String,
		Similarity:      r.Similarity,
		Confidence:      r.Confidence,
		MatchMethod:     models.MatchMethod(r.MatchMethod),
		MatchedEntities: entities,
		Reasoning:       r.Reasoning,
		MatchedAt:       fromMillis(r.MatchedAt),
		ExpiresAt:       fromMillis(r.ExpiresAt),
	}, nil
}

func nullable(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}

// StoreMatch replaces any result for the same source market with result.
// It assigns a fresh ID, sets MatchedAt if unset, and sets ExpiresAt to now
// plus ttl; result is updated in place.
func (s *Storage) StoreMatch(ctx context.Context, result *models.MatchResult, ttl time.Duration) error {
	if err := result.Validate(); err != nil {
		return fmt.Errorf("invalid match result: %w", err)
	}
	if ttl <= 0 {
		return fmt.Errorf("ttl must be positive, got %s", ttl)
	}

	now := s.now()
	result.ID = uuid.New().String()
	if result.MatchedAt.IsZero() {
		result.MatchedAt = now
	}
	result.ExpiresAt = now.Add(ttl)
	if result.MatchedEntities == nil {
		result.MatchedEntities = []string{}
	}

	entities, err := json.Marshal(result.MatchedEntities)
	if err != nil {
		return fmt.Errorf("failed to encode matched entities: %w", err)
	}

	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	del := sqlbuilder.SQLite.NewDeleteBuilder()
	del.DeleteFrom("match_results")
	del.Where(del.Equal("source_market_id", result.SourceMarketID))
	query, args := del.Build()
	if _, err := tx.ExecContext(ctx, query, args...); err != nil {
		return fmt.Errorf("failed to delete previous match for %s: %w", result.SourceMarketID, err)
	}

	ib := sqlbuilder.SQLite.NewInsertBuilder()
	ib.InsertInto("match_results")
	ib.Cols(matchResultCols...)
	ib.Values(result.ID, result.SourceMarketID, result.SourceQuestion,
		nullable(result.TargetEventID), nullable(result.TargetMarketID), nullable(result.TargetTitle),
		result.Similarity, result.Confidence, string(result.MatchMethod), string(entities),
		result.Reasoning, toMillis(result.MatchedAt), toMillis(result.ExpiresAt))
	query, args = ib.Build()
	if _, err := tx.ExecContext(ctx, query, args...); err != nil {
		return fmt.Errorf("failed to insert match for %s: %w", result.SourceMarketID, err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit match for %s: %w", result.SourceMarketID, err)
	}
	return nil
}

// LookupMatch returns the live result for a source market, or ErrNotFound
// if there is none or it has expired.
func (s *Storage) LookupMatch(ctx context.Context, sourceMarketID string) (*models.MatchResult, error) {
	sb := sqlbuilder.SQLite.NewSelectBuilder()
	sb.Select(matchResultCols...)
	sb.From("match_results")
	sb.Where(
		sb.Equal("source_market_id", sourceMarketID),
		sb.GreaterThan("expires_at", toMillis(s.now())),
	)

	query, args := sb.Build()
	var row matchResultRow
	if err := s.db.GetContext(ctx, &row, query, args...); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("match for %s: %w", sourceMarketID, ErrNotFound)
		}
		return nil, fmt.Errorf("failed to look up match: %w", err)
	}
	return row.model()
}

// MatchStats counts live results per method.
type MatchStats map[models.MatchMethod]int

// CountMatches returns live result counts grouped by method.
func (s *Storage) CountMatches(ctx context.Context) (MatchStats, error) {
	sb := sqlbuilder.SQLite.NewSelectBuilder()
	sb.Select("match_method", "COUNT(*) AS n")
	sb.From("match_results")
	sb.Where(sb.GreaterThan("expires_at", toMillis(s.now())))
	sb.GroupBy("match_method")

	query, args := sb.Build()
	var rows []struct {
		Method string `db:"match_method"`
		N      int    `db:"n"`
	}
	if err := s.db.SelectContext(ctx, &rows, query, args...); err != nil {
		return nil, fmt.Errorf("failed to count matches: %w", err)
	}

	stats := MatchStats{}
	for _, r := range rows {
		stats[models.MatchMethod(r.Method)] = r.N
	}
	return stats, nil
}

// PurgeExpired deletes expired match results, summaries and geotags and
// returns how many rows were removed.
func (s *Storage) PurgeExpired(ctx context.Context) (int64, error) {
	now := toMillis(s.now())
	var total int64
	for _, table := range []string{"match_results", "summaries", "geotags"} {
		del := sqlbuilder.SQLite.NewDeleteBuilder()
		del.DeleteFrom(table)
		del.Where(del.LessEqualThan("expires_at", now))
		query, args := del.Build()

		res, err := s.db.ExecContext(ctx, query, args...)
		if err != nil {
			return total, fmt.Errorf("failed to purge %s: %w", table, err)
		}
		n, _ := res.RowsAffected()
		total += n
	}
	return total, nil
}
