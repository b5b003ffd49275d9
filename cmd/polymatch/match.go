package main

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/rewired-gh/polymatch/internal/batch"
	"github.com/rewired-gh/polymatch/internal/logger"
	"github.com/rewired-gh/polymatch/internal/models"
	"github.com/rewired-gh/polymatch/internal/storage"
	"github.com/rewired-gh/polymatch/internal/telegram"
)

var matchBatchSize int

var matchCmd = &cobra.Command{
	Use:   "match",
	Short: "Match the busiest unmatched source markets against the target event pool",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		store, err := openStore()
		if err != nil {
			return err
		}
		defer closeStore(store)

		notifier, err := newNotifier()
		if err != nil {
			return err
		}

		_, err = runMatch(cmd.Context(), store, notifier, batchSize(cmd, matchBatchSize, cfg.Matching.BatchSize))
		return err
	},
}

var lookupCmd = &cobra.Command{
	Use:   "lookup MARKET_ID",
	Short: "Print the match for a source market, matching it now if nothing is cached",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return runSingle(cmd, args[0], false)
	},
}

var rematchCmd = &cobra.Command{
	Use:   "rematch MARKET_ID",
	Short: "Discard any cached match for a source market and match it again",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return runSingle(cmd, args[0], true)
	},
}

func init() {
	matchCmd.Flags().IntVar(&matchBatchSize, "batch-size", 0, "markets per batch (default: matching.batch_size)")
	rootCmd.AddCommand(matchCmd, lookupCmd, rematchCmd)
}

// batchSize prefers an explicitly set positive flag over the configured value.
func batchSize(cmd *cobra.Command, flagValue, configured int) int {
	if cmd.Flags().Changed("batch-size") && flagValue > 0 {
		return flagValue
	}
	return configured
}

// runMatch runs one batch and posts its report when notifier is non-nil.
func runMatch(ctx context.Context, store *storage.Storage, notifier *telegram.Client, size int) (batch.Report, error) {
	engine, err := newEngine()
	if err != nil {
		return batch.Report{}, err
	}

	report, err := batch.NewRunner(store, engine, batchOptions()).Run(ctx, size)
	if err != nil {
		return report, fmt.Errorf("match batch failed: %w", err)
	}

	if notifier != nil && (report.Total() > 0 || report.Skipped) {
		live, statsErr := store.CountMatches(ctx)
		if statsErr != nil {
			logger.Warn("Failed to count live matches: %v", statsErr)
		}
		if err := notifier.SendReport(report, live); err != nil {
			logger.Error("Failed to send Telegram notification: %v", err)
		}
	}
	return report, nil
}

func runSingle(cmd *cobra.Command, marketID string, force bool) error {
	store, err := openStore()
	if err != nil {
		return err
	}
	defer closeStore(store)

	engine, err := newEngine()
	if err != nil {
		return err
	}
	svc := batch.NewService(store, engine, batchOptions())

	var result *models.MatchResult
	if force {
		result, err = svc.Rematch(cmd.Context(), marketID)
	} else {
		result, err = svc.Lookup(cmd.Context(), marketID)
	}
	if err != nil {
		return err
	}

	enc := json.NewEncoder(cmd.OutOrStdout())
	enc.SetIndent("", "  ")
	return enc.Encode(result)
}
