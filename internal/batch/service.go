package batch

import (
	"context"
	"errors"
	"fmt"

	"github.com/rewired-gh/polymatch/internal/logger"
	"github.com/rewired-gh/polymatch/internal/metrics"
	"github.com/rewired-gh/polymatch/internal/models"
	"github.com/rewired-gh/polymatch/internal/storage"
)

// ErrEmptyPool is returned when an on-demand match has no target events to compare against.
var ErrEmptyPool = errors.New("target event pool is empty")

// Service answers single-market match requests.
type Service struct {
	store   Store
	decider Decider
	opts    Options
}

// NewService creates a Service.
func NewService(store Store, decider Decider, opts Options) *Service {
	return &Service{store: store, decider: decider, opts: opts}
}

// Lookup returns the live cached result for a source market, matching and
// caching one first if there is none.
func (s *Service) Lookup(ctx context.Context, sourceMarketID string) (*models.MatchResult, error) {
	cached, err := s.store.LookupMatch(ctx, sourceMarketID)
	if err == nil {
		return cached, nil
	}
	if !errors.Is(err, storage.ErrNotFound) {
		return nil, err
	}

	logger.Debug("No live match for %s, matching now", sourceMarketID)
	return s.Rematch(ctx, sourceMarketID)
}

// Rematch ignores any cached result, decides afresh and replaces the stored result.
func (s *Service) Rematch(ctx context.Context, sourceMarketID string) (*models.MatchResult, error) {
	market, err := s.store.GetSourceMarket(ctx, sourceMarketID)
	if err != nil {
		return nil, err
	}

	pool, err := s.store.ListTargetEvents(ctx, s.opts.TargetEventLimit, s.opts.TargetCategory)
	if err != nil {
		return nil, fmt.Errorf("failed to load target events: %w", err)
	}
	if len(pool) == 0 {
		return nil, ErrEmptyPool
	}

	ref := models.MarketRef{ID: market.ID, Question: market.Question}
	outcome, err := decide(ctx, s.decider, ref, pool)
	if err != nil {
		return nil, err
	}

	result := outcome.Result
	if err := s.store.StoreMatch(ctx, &result, s.opts.MatchTTL); err != nil {
		return nil, fmt.Errorf("failed to store result: %w", err)
	}
	metrics.RecordDecision(string(result.MatchMethod))
	logger.Info("Matched %s -> %s (%s, confidence %d)", ref.ID, targetOrNone(result), result.MatchMethod, result.Confidence)
	return &result, nil
}
