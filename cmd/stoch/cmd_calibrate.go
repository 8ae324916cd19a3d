package main

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/quantforge/stoch/internal/calibrate"
	"github.com/quantforge/stoch/internal/logging"
	"github.com/quantforge/stoch/internal/models"
)

func newCalibrateCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "calibrate <series.csv>",
		Short: "Fit model parameters to an observed series",
		Long: `Fit GBM (parameters mu, sigma) or OU (parameters theta, mu, sigma)
to an observed series by damped nonlinear least squares.

Reaching the iteration cap is reported as a status, not a failure.

Examples:
  stoch calibrate data/ACME.csv --model gbm
  stoch calibrate data/RATES.csv --model ou --initial 1,0,1 --json`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			model, _ := cmd.Flags().GetString("model")
			initial, _ := cmd.Flags().GetFloat64Slice("initial")
			maxIter, _ := cmd.Flags().GetInt("max-iterations")
			jsonOut, _ := cmd.Flags().GetBool("json")

			cfg, err := loadConfig(cmd)
			if err != nil {
				return err
			}

			path, err := loadSeriesPath(cmd, args[0])
			if err != nil {
				return err
			}

			var obj calibrate.Objective
			var names []string
			opts := calibrate.Options{
				MaxIterations: maxIter,
				Logger:        logging.NewLogger(cfg.Logging.Level, cmd.ErrOrStderr()),
			}
			switch model {
			case "gbm":
				obj, err = calibrate.GBMObjective(path)
				names = []string{"mu", "sigma"}
				if initial == nil {
					initial = []float64{0, 0.2}
				}
				opts.Lower = []float64{-10, 1e-6}
				opts.Upper = []float64{10, 10}
			case "ou":
				obj, err = calibrate.OUObjective(path)
				names = []string{"theta", "mu", "sigma"}
				if initial == nil {
					initial = []float64{1, 0, 1}
				}
				opts.Lower = []float64{1e-6, -1e6, 1e-6}
				opts.Upper = []float64{1e3, 1e6, 1e3}
			default:
				return fmt.Errorf("%w: unknown model %q (valid: gbm, ou)", models.ErrInvalidParameters, model)
			}
			if err != nil {
				return err
			}

			res, err := calibrate.Calibrate(obj, initial, opts)
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			if jsonOut {
				fitted := make(map[string]float64, len(names))
				for i, name := range names {
					fitted[name] = res.Params[i]
				}
				return json.NewEncoder(out).Encode(map[string]interface{}{
					"model":      model,
					"params":     fitted,
					"rss":        res.RSS,
					"status":     res.Status.String(),
					"iterations": res.Iterations,
				})
			}

			fmt.Fprintf(out, "Calibrated %s to %s:\n\n", model, args[0])
			for i, name := range names {
				fmt.Fprintf(out, "  %-6s %g\n", name, res.Params[i])
			}
			fmt.Fprintf(out, "\nStatus: %s after %d iterations (RSS %g)\n", res.Status, res.Iterations, res.RSS)
			return nil
		},
	}

	cmd.Flags().String("model", "gbm", "Model to fit: gbm or ou")
	cmd.Flags().Float64Slice("initial", nil, "Initial parameter guess (comma-separated)")
	cmd.Flags().Int("max-iterations", 0, "Iteration cap (default 200)")

	return cmd
}
