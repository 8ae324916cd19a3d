// Package ensemble drives a process simulator across N independent paths
// in parallel and aggregates them into a path matrix.
//
// Reproducibility contract: path i always runs on the stream seeded with
// randsrc.DeriveSeed(baseSeed, i), and results are written into the matrix
// by path index, never by completion order. The same (simulator, grid,
// nPaths, baseSeed) therefore produces a bit-identical ensemble for any
// worker count.
package ensemble

import (
	"context"
	"fmt"
	"runtime"

	"golang.org/x/sync/errgroup"

	"github.com/quantforge/stoch/internal/models"
	"github.com/quantforge/stoch/internal/process"
	"github.com/quantforge/stoch/internal/randsrc"
)

// Engine is a reusable parallel ensemble runner.
type Engine struct {
	workers int
}

// New creates an engine with the given parallelism. workers <= 0 means
// one worker per CPU.
func New(workers int) *Engine {
	if workers <= 0 {
		workers = runtime.NumCPU()
	}
	return &Engine{workers: workers}
}

// Workers returns the configured parallelism.
func (e *Engine) Workers() int { return e.workers }

// Simulate runs nPaths independent simulations and collects them into a
// PathEnsemble. Validation happens before any work is dispatched, so a
// bad input never yields a partial ensemble.
func (e *Engine) Simulate(ctx context.Context, sim process.Simulator, grid models.TimeGrid, nPaths int, baseSeed uint64) (models.PathEnsemble, error) {
	if nPaths < 1 {
		return models.PathEnsemble{}, fmt.Errorf("%w: n_paths=%d", models.ErrInvalidEnsembleSize, nPaths)
	}
	if grid.Len() < 2 {
		return models.PathEnsemble{}, fmt.Errorf("%w: empty grid", models.ErrInvalidGrid)
	}
	// Simulators with per-grid state (fGn covariance factors) build it
	// here, once for the whole batch, so a covariance failure surfaces
	// before any worker starts and no path repeats the factorization.
	if p, ok := sim.(process.BatchPreparer); ok {
		if err := p.PrepareBatch(grid); err != nil {
			return models.PathEnsemble{}, err
		}
	}

	values := make([][]float64, nPaths)
	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(e.workers)
	for i := 0; i < nPaths; i++ {
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}
			stream := randsrc.NewStream(randsrc.DeriveSeed(baseSeed, i))
			p, err := sim.Simulate(grid, stream)
			if err != nil {
				return fmt.Errorf("path %d: %w", i, err)
			}
			values[i] = p.Values
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return models.PathEnsemble{}, err
	}
	return models.PathEnsemble{Grid: grid, Values: values}, nil
}
