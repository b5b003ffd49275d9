package main

import (
	"context"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/rewired-gh/polymatch/internal/kalshi"
	"github.com/rewired-gh/polymatch/internal/logger"
	"github.com/rewired-gh/polymatch/internal/manifold"
	"github.com/rewired-gh/polymatch/internal/metrics"
	"github.com/rewired-gh/polymatch/internal/storage"
)

var syncCmd = &cobra.Command{
	Use:   "sync",
	Short: "Fetch both venues into the local store and purge expired results",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		store, err := openStore()
		if err != nil {
			return err
		}
		defer closeStore(store)

		return runSync(cmd.Context(), store)
	},
}

func init() {
	rootCmd.AddCommand(syncCmd)
}

func runSync(ctx context.Context, store *storage.Storage) error {
	syncStart := time.Now()

	markets, err := manifold.NewClient(cfg.Manifold).FetchMarkets(ctx)
	if err != nil {
		return fmt.Errorf("failed to fetch source markets: %w", err)
	}
	metrics.RecordFetched("manifold", len(markets))
	if err := store.UpsertSourceMarkets(ctx, markets); err != nil {
		return err
	}

	events, err := kalshi.NewClient(cfg.Kalshi).FetchEvents(ctx)
	if err != nil {
		return fmt.Errorf("failed to fetch target events: %w", err)
	}
	metrics.RecordFetched("kalshi", len(events))
	if err := store.UpsertTargetEvents(ctx, events); err != nil {
		return err
	}

	// an empty listing never prunes the pool
	var pruned int64
	if len(events) > 0 {
		pruned, err = store.PruneTargetEvents(ctx, syncStart)
		if err != nil {
			logger.Warn("Failed to prune stale target events: %v", err)
		}
	}

	purged, err := store.PurgeExpired(ctx)
	if err != nil {
		logger.Warn("Failed to purge expired rows: %v", err)
	}

	logger.Info("Sync complete: %d source markets, %d target events (%d stale pruned), %d expired rows purged",
		len(markets), len(events), pruned, purged)
	return nil
}
