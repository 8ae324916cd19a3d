package main

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/quantforge/stoch/internal/ensemble"
	"github.com/quantforge/stoch/internal/frame"
	"github.com/quantforge/stoch/internal/logging"
	"github.com/quantforge/stoch/internal/scenario"
)

func newRunCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "run <scenarios.yaml>",
		Short: "Run scenario definitions from a YAML file",
		Long: `Execute every scenario in a YAML file: each scenario names a process,
parameters, a grid, an ensemble size, and a seed, and is fully
reproducible from that seed.

With --out-dir, each scenario's ensemble is written as <name>.arrow.

Example:
  stoch run scenarios.yaml --out-dir results/`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			outDir, _ := cmd.Flags().GetString("out-dir")
			workers, _ := cmd.Flags().GetInt("workers")
			jsonOut, _ := cmd.Flags().GetBool("json")

			cfg, err := loadConfig(cmd)
			if err != nil {
				return err
			}
			if workers == 0 {
				workers = cfg.Simulation.Workers
			}

			defs, err := scenario.Load(args[0])
			if err != nil {
				return err
			}

			logger := logging.NewLogger(cfg.Logging.Level, cmd.ErrOrStderr())
			trace := logging.NewTraceLogger(cfg.Logging.TraceDir, cfg.Logging.Level)
			defer trace.Close()

			runner := scenario.NewRunner(ensemble.New(workers), logger, trace)
			results, err := runner.RunAll(cmd.Context(), defs)
			if err != nil {
				return err
			}

			if outDir != "" {
				if err := os.MkdirAll(outDir, 0755); err != nil {
					return fmt.Errorf("creating output directory: %w", err)
				}
				for _, res := range results {
					path := filepath.Join(outDir, res.Name+".arrow")
					f, err := os.Create(path)
					if err != nil {
						return fmt.Errorf("creating %s: %w", path, err)
					}
					if err := frame.WriteEnsemble(f, res.Ensemble); err != nil {
						f.Close()
						return err
					}
					if err := f.Close(); err != nil {
						return err
					}
				}
			}

			out := cmd.OutOrStdout()
			if jsonOut {
				summaries := make([]map[string]interface{}, 0, len(results))
				for _, res := range results {
					summaries = append(summaries, map[string]interface{}{
						"name":          res.Name,
						"paths":         res.Ensemble.NumPaths(),
						"terminal_mean": res.Terminal.Mean(),
						"terminal_std":  res.Terminal.StdDev(),
						"elapsed_ms":    res.Elapsed.Milliseconds(),
					})
				}
				return json.NewEncoder(out).Encode(map[string]interface{}{
					"scenarios": summaries,
					"count":     len(summaries),
				})
			}

			fmt.Fprintf(out, "Ran %d scenarios:\n\n", len(results))
			for _, res := range results {
				fmt.Fprintf(out, "%s: %d paths, terminal mean %g (std %g), %s\n",
					res.Name, res.Ensemble.NumPaths(), res.Terminal.Mean(), res.Terminal.StdDev(), res.Elapsed)
			}
			return nil
		},
	}

	cmd.Flags().String("out-dir", "", "Write each ensemble to <out-dir>/<name>.arrow")
	cmd.Flags().Int("workers", 0, "Parallel workers (0 = one per CPU)")

	return cmd
}
