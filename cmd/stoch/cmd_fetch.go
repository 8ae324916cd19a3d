package main

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/quantforge/stoch/internal/marketdata"
	"github.com/quantforge/stoch/internal/models"
)

func newFetchCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "fetch <symbol>",
		Short: "Fetch a price series from the configured data source",
		Long: `Fetch a symbol's price series from the configured CSV data directory.
When a cache database is configured, covered ranges are served from the
cache without touching the source.

Examples:
  stoch fetch ACME --from 2024-01-01 --to 2024-06-30
  stoch fetch ACME --from 2024-01-01 --to 2024-06-30 --json`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			fromStr, _ := cmd.Flags().GetString("from")
			toStr, _ := cmd.Flags().GetString("to")
			jsonOut, _ := cmd.Flags().GetBool("json")
			symbol := args[0]

			cfg, err := loadConfig(cmd)
			if err != nil {
				return err
			}

			from, err := time.Parse("2006-01-02", fromStr)
			if err != nil {
				return fmt.Errorf("%w: --from %q: %v", models.ErrInvalidParameters, fromStr, err)
			}
			to, err := time.Parse("2006-01-02", toStr)
			if err != nil {
				return fmt.Errorf("%w: --to %q: %v", models.ErrInvalidParameters, toStr, err)
			}
			if to.Before(from) {
				return fmt.Errorf("%w: --to is before --from", models.ErrInvalidParameters)
			}

			var src marketdata.Source = marketdata.NewCSVSource(cfg.Data.Dir)
			if cfg.Data.CacheDB != "" {
				cache, err := marketdata.NewCache(cfg.Data.CacheDB, src)
				if err != nil {
					return err
				}
				defer cache.Close()
				src = cache
			}

			series, err := src.Fetch(cmd.Context(), symbol, from, to)
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			if jsonOut {
				points := make([]map[string]interface{}, 0, len(series.Points))
				for _, p := range series.Points {
					points = append(points, map[string]interface{}{
						"time":  p.Time.Format(time.RFC3339),
						"price": p.Price,
					})
				}
				return json.NewEncoder(out).Encode(map[string]interface{}{
					"symbol": series.Symbol,
					"count":  len(series.Points),
					"points": points,
				})
			}

			fmt.Fprintln(out, "time,price")
			for _, p := range series.Points {
				fmt.Fprintf(out, "%s,%g\n", p.Time.Format("2006-01-02"), p.Price)
			}
			return nil
		},
	}

	cmd.Flags().String("from", "", "Range start (YYYY-MM-DD)")
	cmd.Flags().String("to", "", "Range end (YYYY-MM-DD)")
	cmd.MarkFlagRequired("from")
	cmd.MarkFlagRequired("to")

	return cmd
}
