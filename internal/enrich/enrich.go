// Package enrich generates per-market summaries and geotags with the
// text-generation service and caches them with a TTL.
//
// Both jobs share one loop: list markets lacking a live artifact, ask the
// generator, parse, store. Markets are processed one at a time with a fixed
// delay between generator calls. A failure on one market is logged and
// counted; it never aborts the run.
package enrich

import (
	"context"
	"fmt"
	"time"

	"github.com/go-playground/validator/v10"

	"github.com/rewired-gh/polymatch/internal/config"
	"github.com/rewired-gh/polymatch/internal/logger"
	"github.com/rewired-gh/polymatch/internal/metrics"
	"github.com/rewired-gh/polymatch/internal/models"
)

// Generator produces text for a prompt.
type Generator interface {
	Generate(ctx context.Context, prompt string) (string, error)
}

// Store is the persistence the enrichment jobs need.
type Store interface {
	ListUnsummarized(ctx context.Context, limit int) ([]models.MarketRef, error)
	ListUntagged(ctx context.Context, limit int) ([]models.MarketRef, error)
	StoreSummary(ctx context.Context, summary *models.Summary, ttl time.Duration) error
	StoreGeoTag(ctx context.Context, tag *models.GeoTag, ttl time.Duration) error
}

// Report summarizes one enrichment run.
type Report struct {
	Generated int
	Failed    int
}

// Enricher runs the summary and geotag jobs.
type Enricher struct {
	store     Store
	generator Generator
	cfg       config.EnrichConfig
	validate  *validator.Validate
	wait      func(ctx context.Context, d time.Duration) error
}

// New creates an Enricher.
func New(store Store, generator Generator, cfg config.EnrichConfig) *Enricher {
	return &Enricher{
		store:     store,
		generator: generator,
		cfg:       cfg,
		validate:  validator.New(validator.WithRequiredStructEnabled()),
		wait:      sleepContext,
	}
}

// Summarize generates summaries for up to batchSize markets without one.
func (e *Enricher) Summarize(ctx context.Context, batchSize int) (Report, error) {
	refs, err := e.store.ListUnsummarized(ctx, batchSize)
	if err != nil {
		return Report{}, fmt.Errorf("failed to list unsummarized markets: %w", err)
	}
	return e.run(ctx, "summary", refs, e.summarizeOne)
}

// GeoTag generates geotags for up to batchSize markets without one.
func (e *Enricher) GeoTag(ctx context.Context, batchSize int) (Report, error) {
	refs, err := e.store.ListUntagged(ctx, batchSize)
	if err != nil {
		return Report{}, fmt.Errorf("failed to list untagged markets: %w", err)
	}
	return e.run(ctx, "geotag", refs, e.geoTagOne)
}

func (e *Enricher) run(ctx context.Context, kind string, refs []models.MarketRef, each func(context.Context, models.MarketRef) error) (Report, error) {
	var report Report
	logger.Info("Generating %s for %d markets", kind, len(refs))

	for i, ref := range refs {
		if err := ctx.Err(); err != nil {
			return report, err
		}

		if err := each(ctx, ref); err != nil {
			report.Failed++
			metrics.RecordEnrichment(kind, "error")
			logger.Warn("Failed to generate %s for %s: %v", kind, ref.ID, err)
		} else {
			report.Generated++
			metrics.RecordEnrichment(kind, "ok")
		}

		if i < len(refs)-1 && e.cfg.Delay > 0 {
			if err := e.wait(ctx, e.cfg.Delay); err != nil {
				return report, err
			}
		}
	}

	logger.Info("Generated %d %s records (%d failed)", report.Generated, kind, report.Failed)
	return report, nil
}

func sleepContext(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
