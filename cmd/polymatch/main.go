package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"github.com/rewired-gh/polymatch/internal/config"
	"github.com/rewired-gh/polymatch/internal/logger"
)

var (
	cfgFile string
	cfg     *config.Config
)

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:   "polymatch",
	Short: "Cross-venue prediction market matcher",
	Long: `polymatch mirrors markets from a source and a target prediction market venue,
matches each source market to the target event with the same resolution
criteria, and enriches markets with generated summaries and geotags.

Each subcommand runs one job and exits, so they can be scheduled independently.`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		// A missing .env is fine; the environment and config file still apply.
		_ = godotenv.Load()

		loaded, err := config.Load(cfgFile)
		if err != nil {
			return err
		}
		if err := loaded.Validate(); err != nil {
			return err
		}
		cfg = loaded

		logger.Init(cfg.Logging.Level, cfg.Logging.Format)
		if cfgFile != "" {
			logger.Debug("Configuration loaded from %s", cfgFile)
		}
		return nil
	},
}

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default: built-in defaults plus POLYMATCH_* environment)")
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	err := rootCmd.ExecuteContext(ctx)
	logger.Sync()
	if err != nil {
		os.Exit(1)
	}
}
