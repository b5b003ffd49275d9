// Package batch drives the matching pipeline over stored source markets.
//
// A Runner matches the busiest unmatched markets against the current target
// event pool one at a time and caches each result with a TTL. A Service
// answers single-market requests, matching on demand when no live result is
// cached.
//
// Results for the same market are not locked: a batch and an on-demand
// request racing on one id both store, and the later write wins.
package batch

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/rewired-gh/polymatch/internal/logger"
	"github.com/rewired-gh/polymatch/internal/matcher"
	"github.com/rewired-gh/polymatch/internal/metrics"
	"github.com/rewired-gh/polymatch/internal/models"
)

// Store is the persistence the batch jobs need.
type Store interface {
	ListUnmatched(ctx context.Context, limit int) ([]models.MarketRef, error)
	ListTargetEvents(ctx context.Context, limit int, category string) ([]models.TargetEvent, error)
	StoreMatch(ctx context.Context, result *models.MatchResult, ttl time.Duration) error
	LookupMatch(ctx context.Context, sourceMarketID string) (*models.MatchResult, error)
	GetSourceMarket(ctx context.Context, id string) (*models.SourceMarket, error)
}

// Decider produces a match outcome for one source market.
type Decider interface {
	Decide(ctx context.Context, source models.MarketRef, pool []models.TargetEvent) matcher.Outcome
}

// Options controls pool loading, caching and pacing.
type Options struct {
	MatchTTL         time.Duration
	ClassifierDelay  time.Duration
	TargetEventLimit int
	TargetCategory   string
}

// Report summarizes one batch run.
type Report struct {
	RunID    string
	Matched  int
	NoMatch  int
	Errors   int
	Skipped  bool
	Duration time.Duration
}

// Total is the number of markets attempted.
func (r Report) Total() int {
	return r.Matched + r.NoMatch + r.Errors
}

// Runner executes match batches.
type Runner struct {
	store   Store
	decider Decider
	opts    Options
	wait    func(ctx context.Context, d time.Duration) error
}

// NewRunner creates a Runner.
func NewRunner(store Store, decider Decider, opts Options) *Runner {
	return &Runner{
		store:   store,
		decider: decider,
		opts:    opts,
		wait:    sleepContext,
	}
}

// Run matches up to batchSize unmatched markets. An empty target pool skips
// the batch without error. Cancellation is checked between markets, never in
// the middle of one; a cancelled run returns the partial report and ctx.Err().
func (r *Runner) Run(ctx context.Context, batchSize int) (report Report, err error) {
	report.RunID = uuid.New().String()
	start := time.Now()
	defer func() {
		report.Duration = time.Since(start)
		metrics.RecordBatch(report.Duration)
	}()

	refs, err := r.store.ListUnmatched(ctx, batchSize)
	if err != nil {
		return report, fmt.Errorf("failed to list unmatched markets: %w", err)
	}
	if len(refs) == 0 {
		logger.Info("Batch %s: no unmatched markets", report.RunID)
		return report, nil
	}

	pool, err := r.store.ListTargetEvents(ctx, r.opts.TargetEventLimit, r.opts.TargetCategory)
	if err != nil {
		return report, fmt.Errorf("failed to load target events: %w", err)
	}
	if len(pool) == 0 {
		logger.Warn("Batch %s skipped: target event pool is empty (run sync first)", report.RunID)
		report.Skipped = true
		return report, nil
	}

	logger.Info("Batch %s: matching %d markets against %d target events", report.RunID, len(refs), len(pool))

	for i, ref := range refs {
		if err := ctx.Err(); err != nil {
			logger.Warn("Batch %s cancelled after %d of %d markets", report.RunID, i, len(refs))
			return report, err
		}

		outcome, err := r.matchOne(ctx, ref, pool)
		if err != nil {
			report.Errors++
			metrics.RecordMatchError()
			logger.Error("Batch %s: market %s: %v", report.RunID, ref.ID, err)
		} else if outcome.Result.Matched() {
			report.Matched++
		} else {
			report.NoMatch++
		}

		if outcome.ClassifierInvoked && i < len(refs)-1 && r.opts.ClassifierDelay > 0 {
			if err := r.wait(ctx, r.opts.ClassifierDelay); err != nil {
				logger.Warn("Batch %s cancelled after %d of %d markets", report.RunID, i+1, len(refs))
				return report, err
			}
		}
	}

	logger.Info("Batch %s done: %d matched, %d no match, %d errors", report.RunID, report.Matched, report.NoMatch, report.Errors)
	return report, nil
}

// matchOne decides and stores a single market.
func (r *Runner) matchOne(ctx context.Context, ref models.MarketRef, pool []models.TargetEvent) (matcher.Outcome, error) {
	outcome, err := decide(ctx, r.decider, ref, pool)
	if err != nil {
		return outcome, err
	}

	result := outcome.Result
	if err := r.store.StoreMatch(ctx, &result, r.opts.MatchTTL); err != nil {
		return outcome, fmt.Errorf("failed to store result: %w", err)
	}
	outcome.Result = result
	metrics.RecordDecision(string(result.MatchMethod))

	logger.Debug("Market %s -> %s (%s, confidence %d): %s",
		ref.ID, targetOrNone(result), result.MatchMethod, result.Confidence, result.Reasoning)
	return outcome, nil
}

// decide runs the decider and turns a panic into an error.
func decide(ctx context.Context, d Decider, ref models.MarketRef, pool []models.TargetEvent) (outcome matcher.Outcome, err error) {
	defer func() {
		if p := recover(); p != nil {
			err = fmt.Errorf("decision panicked: %v", p)
		}
	}()

	outcome = d.Decide(ctx, ref, pool)
	if outcome.ClassifierInvoked {
		metrics.RecordClassifierCall(outcome.ClassifierStatus.String())
	}
	return outcome, nil
}

func targetOrNone(r models.MatchResult) string {
	if r.TargetEventID == "" {
		return "none"
	}
	return r.TargetEventID
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
