package main

import (
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"github.com/quantforge/stoch/internal/config"
	"github.com/quantforge/stoch/internal/models"
)

var (
	version = "0.1.0-dev"
	commit  = "none"
	date    = "unknown"
)

func main() {
	rootCmd := &cobra.Command{
		Use:   "stoch",
		Short: "Stochastic process simulation and calibration toolkit",
		Long: `stoch simulates stochastic processes (Brownian, mean-reverting,
jump-diffusion, fractional), runs reproducible Monte Carlo ensembles,
estimates Hurst exponents and realized volatility from observed series,
and calibrates model parameters by damped nonlinear least squares.`,
	}

	// Global flags
	rootCmd.PersistentFlags().Bool("json", false, "Output as JSON (for machine consumption)")
	rootCmd.PersistentFlags().String("config", "", "Config file path (default ~/.stoch/config.yaml)")
	rootCmd.PersistentFlags().String("log-level", "", "Log verbosity: info, debug, or trace")

	rootCmd.AddCommand(
		newVersionCmd(),
		newSimulateCmd(),
		newEnsembleCmd(),
		newRunCmd(),
		newEstimateCmd(),
		newCalibrateCmd(),
		newFetchCmd(),
		newServeCmd(),
	)

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

// loadConfig resolves configuration for a command: file (explicit or
// default location), then env, then the --log-level flag.
func loadConfig(cmd *cobra.Command) (*config.Config, error) {
	var cfg *config.Config
	var err error

	if path, _ := cmd.Flags().GetString("config"); path != "" {
		cfg, err = config.LoadFromFile(path)
	} else {
		cfg, err = config.Load()
	}
	if err != nil {
		return nil, err
	}

	if level, _ := cmd.Flags().GetString("log-level"); level != "" {
		cfg.Logging.Level = level
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// parseParams converts repeated name=value flags into a parameter map.
func parseParams(pairs []string) (map[string]float64, error) {
	params := make(map[string]float64, len(pairs))
	for _, pair := range pairs {
		name, value, ok := strings.Cut(pair, "=")
		if !ok {
			return nil, fmt.Errorf("%w: parameter %q is not name=value", models.ErrInvalidParameters, pair)
		}
		f, err := strconv.ParseFloat(value, 64)
		if err != nil {
			return nil, fmt.Errorf("%w: parameter %q: %v", models.ErrInvalidParameters, pair, err)
		}
		params[strings.TrimSpace(name)] = f
	}
	return params, nil
}
