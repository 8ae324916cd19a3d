package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/quantforge/stoch/internal/mcp"
)

func newServeCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the MCP server over stdio",
		Long: `Start an MCP (Model Context Protocol) server exposing the stoch
tools (stoch_simulate, stoch_ensemble_stats, stoch_estimate,
stoch_calibrate) over stdio. Blocks until the client disconnects.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			workers, _ := cmd.Flags().GetInt("workers")

			cfg, err := loadConfig(cmd)
			if err != nil {
				return err
			}
			if workers == 0 {
				workers = cfg.Simulation.Workers
			}

			server, err := mcp.NewServer(&mcp.Config{
				Name:    "stoch",
				Version: version,
				Workers: workers,
			})
			if err != nil {
				return fmt.Errorf("failed to create MCP server: %w", err)
			}
			return server.Run(cmd.Context())
		},
	}

	cmd.Flags().Int("workers", 0, "Ensemble parallelism (0 = one per CPU)")

	return cmd
}
