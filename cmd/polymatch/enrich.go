package main

import (
	"github.com/spf13/cobra"

	"github.com/rewired-gh/polymatch/internal/enrich"
	"github.com/rewired-gh/polymatch/internal/textgen"
)

var enrichBatchSize int

var summarizeCmd = &cobra.Command{
	Use:   "summarize",
	Short: "Generate summaries for markets without a live one",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return withEnricher(func(e *enrich.Enricher) error {
			_, err := e.Summarize(cmd.Context(), batchSize(cmd, enrichBatchSize, cfg.Enrich.BatchSize))
			return err
		})
	},
}

var geotagCmd = &cobra.Command{
	Use:   "geotag",
	Short: "Generate geotags for markets without a live one",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return withEnricher(func(e *enrich.Enricher) error {
			_, err := e.GeoTag(cmd.Context(), batchSize(cmd, enrichBatchSize, cfg.Enrich.BatchSize))
			return err
		})
	},
}

func init() {
	for _, c := range []*cobra.Command{summarizeCmd, geotagCmd} {
		c.Flags().IntVar(&enrichBatchSize, "batch-size", 0, "markets per run (default: enrich.batch_size)")
		rootCmd.AddCommand(c)
	}
}

func withEnricher(fn func(*enrich.Enricher) error) error {
	if err := cfg.RequireTextGen(); err != nil {
		return err
	}
	store, err := openStore()
	if err != nil {
		return err
	}
	defer closeStore(store)

	return fn(enrich.New(store, textgen.NewClient(cfg.TextGen), cfg.Enrich))
}
