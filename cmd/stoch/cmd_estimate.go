package main

import (
	"encoding/json"
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/quantforge/stoch/internal/estimate"
	"github.com/quantforge/stoch/internal/marketdata"
	"github.com/quantforge/stoch/internal/models"
)

// loadSeriesPath reads a CSV series file (timestamp, price per row) and
// converts it to a path on a year-fraction grid.
func loadSeriesPath(cmd *cobra.Command, file string) (models.Path, error) {
	dir := filepath.Dir(file)
	symbol := strings.TrimSuffix(filepath.Base(file), ".csv")
	src := marketdata.NewCSVSource(dir)

	// Wide-open range: the file is the range.
	from := time.Date(1900, 1, 1, 0, 0, 0, 0, time.UTC)
	to := time.Date(2200, 1, 1, 0, 0, 0, 0, time.UTC)
	series, err := src.Fetch(cmd.Context(), symbol, from, to)
	if err != nil {
		return models.Path{}, err
	}
	return series.ToPath()
}

func newEstimateCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "estimate <series.csv>",
		Short: "Estimate Hurst exponent, moments, and realized volatility",
		Long: `Analyze an observed series: Hurst exponent of the increments
(rescaled-range and aggregated-variance estimators), empirical moments,
and annualized realized volatility for positive price series.

The CSV file holds a timestamp column and a price column.

Example:
  stoch estimate data/ACME.csv --json`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			jsonOut, _ := cmd.Flags().GetBool("json")

			path, err := loadSeriesPath(cmd, args[0])
			if err != nil {
				return err
			}

			inc := path.Increments()
			m := estimate.Describe(inc)

			rs, rsErr := estimate.HurstRS(inc)
			av, avErr := estimate.HurstAggVar(inc)
			vol, volErr := estimate.RealizedVolatility(path)

			out := cmd.OutOrStdout()
			if jsonOut {
				result := map[string]interface{}{
					"observations":       path.Grid.Len(),
					"increment_mean":     m.Mean(),
					"increment_std":      m.StdDev(),
					"increment_skewness": m.Skewness(),
					"increment_kurtosis": m.Kurtosis(),
				}
				if rsErr == nil {
					result["hurst_rs"] = rs.H
					result["hurst_rs_r2"] = rs.R2
				}
				if avErr == nil {
					result["hurst_aggvar"] = av.H
					result["hurst_aggvar_r2"] = av.R2
				}
				if volErr == nil {
					result["realized_vol"] = vol
				}
				return json.NewEncoder(out).Encode(result)
			}

			fmt.Fprintf(out, "Series: %s (%d observations)\n\n", args[0], path.Grid.Len())
			fmt.Fprintf(out, "Increments:\n")
			fmt.Fprintf(out, "  Mean:     %g\n", m.Mean())
			fmt.Fprintf(out, "  Std dev:  %g\n", m.StdDev())
			fmt.Fprintf(out, "  Skewness: %g\n", m.Skewness())
			fmt.Fprintf(out, "  Kurtosis: %g (excess)\n\n", m.Kurtosis())
			if rsErr == nil {
				fmt.Fprintf(out, "Hurst (R/S):        %.4f (R2 %.3f, %d windows)\n", rs.H, rs.R2, rs.Windows)
			} else {
				fmt.Fprintf(out, "Hurst (R/S):        unavailable (%v)\n", rsErr)
			}
			if avErr == nil {
				fmt.Fprintf(out, "Hurst (agg var):    %.4f (R2 %.3f, %d windows)\n", av.H, av.R2, av.Windows)
			} else {
				fmt.Fprintf(out, "Hurst (agg var):    unavailable (%v)\n", avErr)
			}
			if volErr == nil {
				fmt.Fprintf(out, "Realized vol:       %.4f (annualized)\n", vol)
			}
			return nil
		},
	}

	return cmd
}
