package main

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/rewired-gh/polymatch/internal/enrich"
	"github.com/rewired-gh/polymatch/internal/logger"
	"github.com/rewired-gh/polymatch/internal/metrics"
	"github.com/rewired-gh/polymatch/internal/storage"
	"github.com/rewired-gh/polymatch/internal/telegram"
	"github.com/rewired-gh/polymatch/internal/textgen"
)

var runInterval time.Duration

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Run sync, match, summarize and geotag on a fixed interval until interrupted",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		if runInterval < time.Minute {
			return fmt.Errorf("--interval must be at least 1m, got %s", runInterval)
		}
		if err := cfg.RequireTextGen(); err != nil {
			return err
		}

		store, err := openStore()
		if err != nil {
			return err
		}
		defer closeStore(store)

		notifier, err := newNotifier()
		if err != nil {
			return err
		}

		ctx := cmd.Context()
		if cfg.Metrics.Addr != "" {
			go func() {
				if err := metrics.Serve(ctx, cfg.Metrics.Addr); err != nil {
					logger.Error("Metrics server stopped: %v", err)
				}
			}()
		}

		return runLoop(ctx, store, notifier)
	},
}

func init() {
	runCmd.Flags().DurationVar(&runInterval, "interval", 15*time.Minute, "time between cycles")
	rootCmd.AddCommand(runCmd)
}

func runLoop(ctx context.Context, store *storage.Storage, notifier *telegram.Client) error {
	logger.Info("Starting polymatch (interval: %v, match batch: %d, enrich batch: %d)",
		runInterval, cfg.Matching.BatchSize, cfg.Enrich.BatchSize)

	enricher := enrich.New(store, textgen.NewClient(cfg.TextGen), cfg.Enrich)
	ticker := time.NewTicker(runInterval)
	defer ticker.Stop()

	var streak failureStreak
	handleCycleResult := func(err error) {
		if !streak.record(err) || notifier == nil {
			return
		}
		if sendErr := notifier.SendError("polymatch cycle", err); sendErr != nil {
			logger.Warn("Failed to send error notification to Telegram: %v", sendErr)
		}
	}

	handleCycleResult(runCycle(ctx, store, notifier, enricher))
	for {
		select {
		case <-ctx.Done():
			logger.Info("Service stopped")
			return nil
		case <-ticker.C:
			handleCycleResult(runCycle(ctx, store, notifier, enricher))
		}
	}
}

// failureStreak counts consecutive failed cycles.
type failureStreak struct {
	failures int
}

// record folds one cycle result into the streak and reports whether it opens
// a new streak and should be alerted. Cancellation is a shutdown, not a
// failure, and leaves the streak untouched.
func (s *failureStreak) record(err error) bool {
	switch {
	case err == nil:
		s.failures = 0
		return false
	case errors.Is(err, context.Canceled):
		logger.Info("Cycle interrupted: %v", err)
		return false
	}
	s.failures++
	logger.Error("Cycle failed (%d in a row): %v", s.failures, err)
	return s.failures == 1
}

// runCycle stops at the first failing stage; enrichment failures are per market
// and never fail the cycle.
func runCycle(ctx context.Context, store *storage.Storage, notifier *telegram.Client, enricher *enrich.Enricher) error {
	start := time.Now()

	if err := runSync(ctx, store); err != nil {
		return err
	}
	if _, err := runMatch(ctx, store, notifier, cfg.Matching.BatchSize); err != nil {
		return err
	}
	if _, err := enricher.Summarize(ctx, cfg.Enrich.BatchSize); err != nil {
		return fmt.Errorf("summarize failed: %w", err)
	}
	if _, err := enricher.GeoTag(ctx, cfg.Enrich.BatchSize); err != nil {
		return fmt.Errorf("geotag failed: %w", err)
	}

	logger.Info("Cycle completed in %v", time.Since(start))
	return nil
}
