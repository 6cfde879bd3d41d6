package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"nigrani/internal/services"
)

func newSweepCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "sweep",
		Short: "Delete snapshots older than the retention horizon once",
		RunE: func(cmd *cobra.Command, args []string) error {
			store, err := openStore(cfg, logger)
			if err != nil {
				return fmt.Errorf("failed to open store: %w", err)
			}
			defer store.Close()

			sweeper := services.NewRetentionSweeper(store, services.RetentionConfig{
				HorizonYears: cfg.Retention.HorizonYears,
				Interval:     cfg.Retention.Interval,
				Timeout:      cfg.Retention.Timeout,
			}, nil, logger.Named("retention"))

			deleted, err := sweeper.Sweep(cmd.Context())
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Deleted %d snapshot(s) older than %s\n",
				deleted, sweeper.Cutoff().Format("2006-01-02 15:04:05 MST"))
			return nil
		},
	}
}
