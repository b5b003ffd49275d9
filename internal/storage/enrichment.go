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

// ListUnsummarized returns open, unresolved markets with no live summary, busiest first.
func (s *Storage) ListUnsummarized(ctx context.Context, limit int) ([]models.MarketRef, error) {
	return s.listWithout(ctx, "summaries", "market_id", limit)
}

// ListUntagged returns open, unresolved markets with no live geotag, busiest first.
func (s *Storage) ListUntagged(ctx context.Context, limit int) ([]models.MarketRef, error) {
	return s.listWithout(ctx, "geotags", "market_id", limit)
}

type summaryRow struct {
	MarketID    string `db:"market_id"`
	Summary     string `db:"summary"`
	GeneratedAt int64  `db:"generated_at"`
	ExpiresAt   int64  `db:"expires_at"`
}

// StoreSummary replaces the summary for a market. GeneratedAt defaults to
// now and ExpiresAt is set to now plus ttl.
func (s *Storage) StoreSummary(ctx context.Context, summary *models.Summary, ttl time.Duration) error {
	if err := summary.Validate(); err != nil {
		return fmt.Errorf("invalid summary: %w", err)
	}

	now := s.now()
	if summary.GeneratedAt.IsZero() {
		summary.GeneratedAt = now
	}
	summary.ExpiresAt = now.Add(ttl)

	ib := sqlbuilder.SQLite.NewInsertBuilder()
	ib.ReplaceInto("summaries")
	ib.Cols("market_id", "summary", "generated_at", "expires_at")
	ib.Values(summary.MarketID, summary.Summary, toMillis(summary.GeneratedAt), toMillis(summary.ExpiresAt))

	query, args := ib.Build()
	if _, err := s.db.ExecContext(ctx, query, args...); err != nil {
		return fmt.Errorf("failed to store summary for %s: %w", summary.MarketID, err)
	}
	return nil
}

// GetSummary returns the live summary for a market or ErrNotFound.
func (s *Storage) GetSummary(ctx context.Context, marketID string) (*models.Summary, error) {
	sb := sqlbuilder.SQLite.NewSelectBuilder()
	sb.Select("market_id", "summary", "generated_at", "expires_at")
	sb.From("summaries")
	sb.Where(
		sb.Equal("market_id", marketID),
		sb.GreaterThan("expires_at", toMillis(s.now())),
	)

	query, args := sb.Build()
	var row summaryRow
	if err := s.db.GetContext(ctx, &row, query, args...); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("summary for %s: %w", marketID, ErrNotFound)
		}
		return nil, fmt.Errorf("failed to get summary: %w", err)
	}

	return &models.Summary{
		MarketID:    row.MarketID,
		Summary:     row.Summary,
		GeneratedAt: fromMillis(row.GeneratedAt),
		ExpiresAt:   fromMillis(row.ExpiresAt),
	}, nil
}

var geoTagCols = []string{
	"market_id", "scope", "country", "region", "city", "latitude", "longitude", "generated_at", "expires_at",
}

type geoTagRow struct {
	MarketID    string  `db:"market_id"`
	Scope       string  `db:"scope"`
	Country     string  `db:"country"`
	Region      string  `db:"region"`
	City        string  `db:"city"`
	Latitude    float64 `db:"latitude"`
	Longitude   float64 `db:"longitude"`
	GeneratedAt int64   `db:"generated_at"`
	ExpiresAt   int64   `db:"expires_at"`
}

// StoreGeoTag replaces the geotag for a market, like StoreSummary.
func (s *Storage) StoreGeoTag(ctx context.Context, tag *models.GeoTag, ttl time.Duration) error {
	if err := tag.Validate(); err != nil {
		return fmt.Errorf("invalid geotag: %w", err)
	}

	now := s.now()
	if tag.GeneratedAt.IsZero() {
		tag.GeneratedAt = now
	}
	tag.ExpiresAt = now.Add(ttl)

	ib := sqlbuilder.SQLite.NewInsertBuilder()
	ib.ReplaceInto("geotags")
	ib.Cols(geoTagCols...)
	ib.Values(tag.MarketID, tag.Scope, tag.Country, tag.Region, tag.City, tag.Latitude, tag.Longitude,
		toMillis(tag.GeneratedAt), toMillis(tag.ExpiresAt))

	query, args := ib.Build()
	if _, err := s.db.ExecContext(ctx, query, args...); err != nil {
		return fmt.Errorf("failed to store geotag for %s: %w", tag.MarketID, err)
	}
	return nil
}

// GetGeoTag returns the live geotag for a market or ErrNotFound.
func (s *Storage) GetGeoTag(ctx context.Context, marketID string) (*models.GeoTag, error) {
	sb := sqlbuilder.SQLite.NewSelectBuilder()
	sb.Select(geoTagCols...)
	sb.From("geotags")
	sb.Where(
		sb.Equal("market_id", marketID),
		sb.GreaterThan("expires_at", toMillis(s.now())),
	)

	query, args := sb.Build()
	var row geoTagRow
	if err := s.db.GetContext(ctx, &row, query, args...); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("geotag for %s: %w", marketID, ErrNotFound)
		}
		return nil, fmt.Errorf("failed to get geotag: %w", err)
	}

	return &models.GeoTag{
		MarketID:    row.MarketID,
		Scope:       row.Scope,
		Country:     row.Country,
		Region:      row.Region,
		City:        row.City,
		Latitude:    row.Latitude,
		Longitude:   row.Longitude,
		GeneratedAt: fromMillis(row.GeneratedAt),
		ExpiresAt:   fromMillis(row.ExpiresAt),
	}, nil
}
