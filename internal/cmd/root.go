package cmd

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"nigrani/internal/config"
	"nigrani/internal/logging"
)

var (
	cfgFile string
	verbose bool
	cfg     *config.Config
	logger  *zap.Logger
)

var rootCmd = &cobra.Command{
	Use:   "nigrani",
	Short: "Application health sampling and history service",
	Long: `Nigrani samples request latency and process health, keeps a short-term
snapshot cache and a long-term SQLite history, and answers history queries
from one hour up to three years.`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		var err error
		cfg, err = config.Load(cfgFile)
		if err != nil {
			switch {
			case errors.Is(err, config.ErrFileNotFound):
				return fmt.Errorf("specified config file not found: %w", err)
			case errors.Is(err, config.ErrParseFailed):
				return fmt.Errorf("config file has syntax errors: %w", err)
			case errors.Is(err, config.ErrInvalidConfig):
				return fmt.Errorf("config validation failed: %w", err)
			default:
				return fmt.Errorf("failed to load config: %w", err)
			}
		}

		level := cfg.Log.Level
		if verbose {
			level = "debug"
		}
		logger, err = logging.New(level, cfg.Log.JSON)
		if err != nil {
			return fmt.Errorf("failed to build logger: %w", err)
		}
		return nil
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		if logger != nil {
			_ = logger.Sync()
		}
	},
}

// Execute runs the root command.
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&cfgFile, "config", "c", "", "config file (default searches /etc/nigrani, $HOME/.nigrani and . for nigrani.yaml)")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "debug logging")

	rootCmd.AddCommand(newServeCmd())
	rootCmd.AddCommand(newSweepCmd())
	rootCmd.AddCommand(newHistoryCmd())
	rootCmd.AddCommand(newTokenCmd())
	rootCmd.AddCommand(newConfigCmd())
	rootCmd.AddCommand(newVersionCmd())
}
