// Package models defines the shared data model of the simulation core:
// time grids, sample paths, path ensembles, calibration results, and the
// sentinel error taxonomy. Types here are plain values; once constructed
// they are treated as immutable by every consumer.
package models

import "fmt"

// TimeGrid is an ordered sequence of strictly increasing time points
// t0 < t1 < ... < tn. A grid always has at least one step (two points).
type TimeGrid struct {
	points []float64
}

// NewUniformGrid builds a grid of steps equal intervals over [t0, t1].
func NewUniformGrid(t0, t1 float64, steps int) (TimeGrid, error) {
	if steps < 1 {
		return TimeGrid{}, fmt.Errorf("%w: steps=%d", ErrInvalidGrid, steps)
	}
	if t1 <= t0 {
		return TimeGrid{}, fmt.Errorf("%w: t1=%v <= t0=%v", ErrInvalidGrid, t1, t0)
	}
	pts := make([]float64, steps+1)
	dt := (t1 - t0) / float64(steps)
	for i := range pts {
		pts[i] = t0 + float64(i)*dt
	}
	// Pin the endpoint so Horizon() is exact regardless of rounding.
	pts[steps] = t1
	return TimeGrid{points: pts}, nil
}

// NewGrid builds a grid from explicit points, which must be strictly
// increasing and contain at least two entries.
func NewGrid(points []float64) (TimeGrid, error) {
	if len(points) < 2 {
		return TimeGrid{}, fmt.Errorf("%w: need at least 2 points, got %d", ErrInvalidGrid, len(points))
	}
	for i := 1; i < len(points); i++ {
		if points[i] <= points[i-1] {
			return TimeGrid{}, fmt.Errorf("%w: points not strictly increasing at index %d", ErrInvalidGrid, i)
		}
	}
	pts := make([]float64, len(points))
	copy(pts, points)
	return TimeGrid{points: pts}, nil
}

// Len returns the number of grid points (steps + 1).
func (g TimeGrid) Len() int { return len(g.points) }

// Steps returns the number of intervals.
func (g TimeGrid) Steps() int { return len(g.points) - 1 }

// At returns the i-th time point.
func (g TimeGrid) At(i int) float64 { return g.points[i] }

// Dt returns the width of the i-th interval, i in [0, Steps).
func (g TimeGrid) Dt(i int) float64 { return g.points[i+1] - g.points[i] }

// Start returns t0.
func (g TimeGrid) Start() float64 { return g.points[0] }

// End returns tn.
func (g TimeGrid) End() float64 { return g.points[len(g.points)-1] }

// Horizon returns tn - t0.
func (g TimeGrid) Horizon() float64 { return g.End() - g.Start() }

// Points returns a copy of the underlying time points.
func (g TimeGrid) Points() []float64 {
	pts := make([]float64, len(g.points))
	copy(pts, g.points)
	return pts
}

// Path is a sample path aligned 1:1 with a TimeGrid.
type Path struct {
	Grid   TimeGrid
	Values []float64
}

// NewPath pairs a grid with values of matching length.
func NewPath(grid TimeGrid, values []float64) (Path, error) {
	if len(values) != grid.Len() {
		return Path{}, fmt.Errorf("%w: %d values for %d grid points", ErrInvalidGrid, len(values), grid.Len())
	}
	return Path{Grid: grid, Values: values}, nil
}

// Increments returns the successive differences of the path values,
// length Grid.Steps().
func (p Path) Increments() []float64 {
	inc := make([]float64, len(p.Values)-1)
	for i := range inc {
		inc[i] = p.Values[i+1] - p.Values[i]
	}
	return inc
}

// PathEnsemble is N independent paths sharing one grid and one parameter
// set. Rows are ordered by path index, never by completion order.
type PathEnsemble struct {
	Grid   TimeGrid
	Values [][]float64 // shape N x (steps+1)
}

// NumPaths returns N.
func (e PathEnsemble) NumPaths() int { return len(e.Values) }

// Row returns the i-th path as a Path sharing the ensemble grid.
func (e PathEnsemble) Row(i int) Path {
	return Path{Grid: e.Grid, Values: e.Values[i]}
}

// Terminal returns the final value of every path.
func (e PathEnsemble) Terminal() []float64 {
	out := make([]float64, len(e.Values))
	for i, row := range e.Values {
		out[i] = row[len(row)-1]
	}
	return out
}

// CalibrationStatus reports how a calibration run terminated.
type CalibrationStatus int

const (
	// StatusConverged means residual or step tolerance was met.
	StatusConverged CalibrationStatus = iota
	// StatusMaxIterations means the iteration cap was reached. This is a
	// terminal status, not an error; the caller decides how to treat it.
	StatusMaxIterations
	// StatusDiverged means the residual norm became non-finite.
	StatusDiverged
)

func (s CalibrationStatus) String() string {
	switch s {
	case StatusConverged:
		return "converged"
	case StatusMaxIterations:
		return "max-iterations-reached"
	case StatusDiverged:
		return "diverged"
	default:
		return fmt.Sprintf("unknown(%d)", int(s))
	}
}

// CalibrationResult is the immutable outcome of one calibration call.
type CalibrationResult struct {
	// Params holds the fitted parameter vector, in the caller's order.
	Params []float64
	// RSS is the residual sum of squares at Params.
	RSS float64
	// Status reports the termination condition.
	Status CalibrationStatus
	// Iterations is the number of accepted or rejected LM steps taken.
	Iterations int
}
