package noise

import (
	"fmt"
	"math"

	"gonum.org/v1/gonum/mat"

	"github.com/quantforge/stoch/internal/models"
	"github.com/quantforge/stoch/internal/randsrc"
)

// Correlated produces d-dimensional Brownian increments with a prescribed
// correlation matrix. The Cholesky factor is computed once at construction
// and is read-only afterwards, so one Correlated value may be shared
// immutably across parallel path workers (each with its own stream).
type Correlated struct {
	dim   int
	lower *mat.TriDense
}

// NewCorrelated factorizes the correlation matrix rho. It fails with
// ErrInvalidCorrelationMatrix if rho is not positive definite.
func NewCorrelated(rho *mat.SymDense) (*Correlated, error) {
	d := rho.SymmetricDim()
	if d < 1 {
		return nil, fmt.Errorf("%w: empty matrix", models.ErrInvalidCorrelationMatrix)
	}
	var chol mat.Cholesky
	if ok := chol.Factorize(rho); !ok {
		return nil, fmt.Errorf("%w: cholesky factorization failed (dim=%d)", models.ErrInvalidCorrelationMatrix, d)
	}
	lower := mat.NewTriDense(d, mat.Lower, nil)
	chol.LTo(lower)
	return &Correlated{dim: d, lower: lower}, nil
}

// Dim returns the number of correlated dimensions.
func (c *Correlated) Dim() int { return c.dim }

// Step draws one correlated increment vector L·Z·sqrt(dt).
func (c *Correlated) Step(stream *randsrc.Stream, dt float64) []float64 {
	z := mat.NewVecDense(c.dim, nil)
	for i := 0; i < c.dim; i++ {
		z.SetVec(i, stream.Normal())
	}
	var out mat.VecDense
	out.MulVec(c.lower, z)
	sqrtDt := math.Sqrt(dt)
	res := make([]float64, c.dim)
	for i := range res {
		res[i] = out.AtVec(i) * sqrtDt
	}
	return res
}

// Increments draws one correlated increment vector per grid interval.
// The result has shape Steps x dim.
func (c *Correlated) Increments(stream *randsrc.Stream, grid models.TimeGrid) [][]float64 {
	out := make([][]float64, grid.Steps())
	for i := range out {
		out[i] = c.Step(stream, grid.Dt(i))
	}
	return out
}
