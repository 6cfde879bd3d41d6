package cmd

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"

	"nigrani/internal/services"
)

func newHistoryCmd() *cobra.Command {
	var (
		rangeToken  string
		granularity string
	)

	cmd := &cobra.Command{
		Use:   "history",
		Short: "Print normalized history from the long-term store as JSON",
		Example: `  nigrani history --range 7d
  nigrani history --range 1y --granularity monthly`,
		RunE: func(cmd *cobra.Command, args []string) error {
			g, err := services.ParseGranularity(granularity)
			if err != nil {
				return err
			}

			loc, err := cfg.TimeLocation()
			if err != nil {
				return err
			}

			store, err := openStore(cfg, logger)
			if err != nil {
				return fmt.Errorf("failed to open store: %w", err)
			}
			defer store.Close()

			// No collector runs here, so every query goes to the store.
			router := services.NewQueryRouter(services.NewSnapshotCache(1), store, loc, cfg.Query.Timeout, nil, logger.Named("router"))
			window := router.ResolveWindow(rangeToken)
			if g != "" {
				window.Granularity = g
			}
			points := router.History(cmd.Context(), rangeToken, g)

			enc := json.NewEncoder(cmd.OutOrStdout())
			enc.SetIndent("", "  ")
			return enc.Encode(map[string]any{
				"range":       window.Range,
				"granularity": window.Granularity,
				"start":       window.Start,
				"end":         window.End,
				"count":       len(points),
				"data":        points,
			})
		},
	}

	cmd.Flags().StringVarP(&rangeToken, "range", "r", services.DefaultRange, "range token: 1h, 6h, 24h, 7d, 30d, 6m, 1y, 3y")
	cmd.Flags().StringVarP(&granularity, "granularity", "g", "", "raw, hourly, daily, monthly or yearly (default depends on range)")
	return cmd
}
