// Package noise generates the increment sequences that drive the process
// simulators: independent Gaussian increments, correlated multi-dimensional
// Brownian increments, and fractional Gaussian noise with long-range
// dependence.
//
// Generators are bound to one randsrc.Stream per simulation run and are
// restartable only via a fresh stream.
package noise

import (
	"math"

	"github.com/quantforge/stoch/internal/models"
	"github.com/quantforge/stoch/internal/randsrc"
)

// Increments draws one N(0, dt_i) Brownian increment per grid interval.
// The returned slice has length grid.Steps().
func Increments(stream *randsrc.Stream, grid models.TimeGrid) []float64 {
	inc := make([]float64, grid.Steps())
	for i := range inc {
		inc[i] = stream.Normal() * math.Sqrt(grid.Dt(i))
	}
	return inc
}
