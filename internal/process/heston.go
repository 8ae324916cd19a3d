package process

import (
	"fmt"
	"math"

	"gonum.org/v1/gonum/mat"

	"github.com/quantforge/stoch/internal/models"
	"github.com/quantforge/stoch/internal/noise"
	"github.com/quantforge/stoch/internal/randsrc"
)

// HestonParams parameterizes the Heston stochastic-volatility model:
//
//	dS = mu S dt + sqrt(v) S dW1
//	dv = kappa (theta - v) dt + xi sqrt(v) dW2,  corr(dW1, dW2) = rho
type HestonParams struct {
	Mu    float64
	S0    float64
	V0    float64
	Kappa float64
	Theta float64
	Xi    float64
	Rho   float64
}

// Heston simulates the price process with the variance driven by a
// full-truncation Euler CIR recursion: the positive part of the variance
// enters both the drift and the diffusion term, and the variance itself is
// floored at zero.
type Heston struct {
	p    HestonParams
	corr *noise.Correlated
}

// NewHeston validates the parameter domain and factorizes the 2x2 shock
// correlation once, so the factor is shared read-only across every path
// simulated from this instance.
func NewHeston(p HestonParams) (*Heston, error) {
	if p.S0 <= 0 {
		return nil, fmt.Errorf("%w: s0=%v must be positive", models.ErrInvalidParameters, p.S0)
	}
	if p.V0 < 0 || p.Kappa < 0 || p.Theta < 0 || p.Xi < 0 {
		return nil, fmt.Errorf("%w: heston requires v0, kappa, theta, xi >= 0", models.ErrInvalidParameters)
	}
	if p.Rho < -1 || p.Rho > 1 {
		return nil, fmt.Errorf("%w: rho=%v not in [-1,1]", models.ErrInvalidParameters, p.Rho)
	}
	corr, err := noise.NewCorrelated(mat.NewSymDense(2, []float64{1, p.Rho, p.Rho, 1}))
	if err != nil {
		return nil, fmt.Errorf("rho=%v: %w", p.Rho, err)
	}
	return &Heston{p: p, corr: corr}, nil
}

// Params returns the model parameters.
func (h *Heston) Params() HestonParams { return h.p }

func (h *Heston) Simulate(grid models.TimeGrid, stream *randsrc.Stream) (models.Path, error) {
	price, _, err := h.SimulatePair(grid, stream)
	return price, err
}

// SimulatePair simulates the joint (price, variance) paths.
func (h *Heston) SimulatePair(grid models.TimeGrid, stream *randsrc.Stream) (models.Path, models.Path, error) {
	if err := validateGrid(grid); err != nil {
		return models.Path{}, models.Path{}, err
	}
	p := h.p
	s := make([]float64, grid.Len())
	v := make([]float64, grid.Len())
	s[0] = p.S0
	v[0] = p.V0
	inc := h.corr.Increments(stream, grid)
	for i, w := range inc {
		dt := grid.Dt(i)
		vPos := math.Max(v[i], 0)
		s[i+1] = s[i] * math.Exp((p.Mu-0.5*vPos)*dt+math.Sqrt(vPos)*w[0])
		v[i+1] = math.Max(0, v[i]+p.Kappa*(p.Theta-vPos)*dt+p.Xi*math.Sqrt(vPos)*w[1])
	}
	price, err := models.NewPath(grid, s)
	if err != nil {
		return models.Path{}, models.Path{}, err
	}
	variance, err := models.NewPath(grid, v)
	if err != nil {
		return models.Path{}, models.Path{}, err
	}
	return price, variance, nil
}
