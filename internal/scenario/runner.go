package scenario

import (
	"context"
	"log/slog"
	"time"

	"github.com/quantforge/stoch/internal/ensemble"
	"github.com/quantforge/stoch/internal/estimate"
	"github.com/quantforge/stoch/internal/logging"
	"github.com/quantforge/stoch/internal/models"
)

// Result captures one scenario run.
type Result struct {
	Name     string
	Ensemble models.PathEnsemble

	// Terminal summarizes the terminal values across paths.
	Terminal estimate.Moments

	Elapsed time.Duration
}

// Runner executes scenario definitions against an ensemble engine.
type Runner struct {
	engine *ensemble.Engine
	logger *slog.Logger
	trace  *logging.TraceLogger
}

// NewRunner creates a runner. logger and trace may be nil.
func NewRunner(engine *ensemble.Engine, logger *slog.Logger, trace *logging.TraceLogger) *Runner {
	if logger == nil {
		logger = slog.Default()
	}
	return &Runner{engine: engine, logger: logger, trace: trace}
}

// Run executes one definition.
func (r *Runner) Run(ctx context.Context, def Definition) (Result, error) {
	grid, sim, err := def.Build()
	if err != nil {
		return Result{}, err
	}

	start := time.Now()
	r.logger.Debug("running scenario",
		"name", def.Name, "process", def.Process, "paths", def.Paths, "seed", def.Seed)

	ens, err := r.engine.Simulate(ctx, sim, grid, def.Paths, def.Seed)
	if err != nil {
		return Result{}, err
	}

	res := Result{
		Name:     def.Name,
		Ensemble: ens,
		Terminal: estimate.Describe(ens.Terminal()),
		Elapsed:  time.Since(start),
	}
	r.trace.Log(map[string]any{
		"event":         "scenario_complete",
		"name":          def.Name,
		"process":       def.Process,
		"paths":         def.Paths,
		"seed":          def.Seed,
		"terminal_mean": res.Terminal.Mean(),
		"terminal_std":  res.Terminal.StdDev(),
		"elapsed_ms":    res.Elapsed.Milliseconds(),
	})
	return res, nil
}

// RunAll executes definitions in order, stopping at the first failure.
func (r *Runner) RunAll(ctx context.Context, defs []Definition) ([]Result, error) {
	results := make([]Result, 0, len(defs))
	for _, def := range defs {
		res, err := r.Run(ctx, def)
		if err != nil {
			return results, err
		}
		results = append(results, res)
	}
	return results, nil
}
