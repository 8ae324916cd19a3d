package process

import (
	"fmt"
	"math"
	"sync"

	"github.com/quantforge/stoch/internal/models"
	"github.com/quantforge/stoch/internal/noise"
	"github.com/quantforge/stoch/internal/randsrc"
)

// fgnCache holds the fGn generator for one grid shape. The factorization
// (Cholesky or circulant eigendecomposition) is built once and reused for
// every path on the same grid; the generator itself is read-only after
// construction, so all parallel path workers share the cached instance.
type fgnCache struct {
	mu      sync.Mutex
	fgn     *noise.FGN
	steps   int
	horizon float64
}

func (c *fgnCache) forGrid(hurst float64, grid models.TimeGrid, method noise.Method) (*noise.FGN, error) {
	if err := validateGrid(grid); err != nil {
		return nil, err
	}
	if _, err := uniformDt(grid); err != nil {
		return nil, err
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.fgn != nil && c.steps == grid.Steps() && c.horizon == grid.Horizon() {
		return c.fgn, nil
	}
	f, err := noise.NewFGN(hurst, grid.Steps(), grid.Horizon(), method)
	if err != nil {
		return nil, err
	}
	c.fgn, c.steps, c.horizon = f, grid.Steps(), grid.Horizon()
	return f, nil
}

// FBM is fractional Brownian motion with Hurst exponent H: the cumulative
// sum of fractional Gaussian noise, scaled by sigma. Requires a uniform
// grid. The noise generation method follows noise.MethodAuto unless set
// before the first simulation.
type FBM struct {
	Hurst  float64
	Sigma  float64
	X0     float64
	Method noise.Method

	cache fgnCache
}

// NewFBM validates hurst in (0,1) and sigma >= 0.
func NewFBM(hurst, sigma, x0 float64) (*FBM, error) {
	if hurst <= 0 || hurst >= 1 {
		return nil, fmt.Errorf("%w: hurst=%v not in (0,1)", models.ErrInvalidParameters, hurst)
	}
	if sigma < 0 {
		return nil, fmt.Errorf("%w: sigma=%v < 0", models.ErrInvalidParameters, sigma)
	}
	return &FBM{Hurst: hurst, Sigma: sigma, X0: x0, Method: noise.MethodAuto}, nil
}

// PrepareBatch builds the fGn generator for grid ahead of a simulation
// batch, surfacing grid and covariance errors before any path runs.
func (f *FBM) PrepareBatch(grid models.TimeGrid) error {
	_, err := f.cache.forGrid(f.Hurst, grid, f.Method)
	return err
}

func (f *FBM) Simulate(grid models.TimeGrid, stream *randsrc.Stream) (models.Path, error) {
	fgn, err := f.cache.forGrid(f.Hurst, grid, f.Method)
	if err != nil {
		return models.Path{}, err
	}
	inc := fgn.Sample(stream)
	x := make([]float64, grid.Len())
	x[0] = f.X0
	for i := range inc {
		x[i+1] = x[i] + f.Sigma*inc[i]
	}
	return models.NewPath(grid, x)
}

// FOU is the fractional Ornstein-Uhlenbeck process: the OU recursion
// driven by fractional Gaussian noise increments instead of independent
// normals. Requires a uniform grid.
type FOU struct {
	Hurst  float64
	Theta  float64
	Mu     float64
	Sigma  float64
	X0     float64
	Method noise.Method

	cache fgnCache
}

// NewFOU validates hurst in (0,1), theta >= 0 and sigma >= 0.
func NewFOU(hurst, theta, mu, sigma, x0 float64) (*FOU, error) {
	if hurst <= 0 || hurst >= 1 {
		return nil, fmt.Errorf("%w: hurst=%v not in (0,1)", models.ErrInvalidParameters, hurst)
	}
	if theta < 0 {
		return nil, fmt.Errorf("%w: theta=%v < 0", models.ErrInvalidParameters, theta)
	}
	if sigma < 0 {
		return nil, fmt.Errorf("%w: sigma=%v < 0", models.ErrInvalidParameters, sigma)
	}
	return &FOU{Hurst: hurst, Theta: theta, Mu: mu, Sigma: sigma, X0: x0, Method: noise.MethodAuto}, nil
}

// PrepareBatch builds the fGn generator for grid ahead of a simulation
// batch.
func (f *FOU) PrepareBatch(grid models.TimeGrid) error {
	_, err := f.cache.forGrid(f.Hurst, grid, f.Method)
	return err
}

func (f *FOU) Simulate(grid models.TimeGrid, stream *randsrc.Stream) (models.Path, error) {
	fgn, err := f.cache.forGrid(f.Hurst, grid, f.Method)
	if err != nil {
		return models.Path{}, err
	}
	dt := grid.Dt(0)
	inc := fgn.Sample(stream)
	x := make([]float64, grid.Len())
	x[0] = f.X0
	for i := range inc {
		x[i+1] = x[i] + f.Theta*(f.Mu-x[i])*dt + f.Sigma*inc[i]
	}
	return models.NewPath(grid, x)
}

// FJacobi is the fractional Jacobi diffusion, a [0,1]-valued process
// dX = (alpha - beta X) dt + sigma sqrt(X (1-X)) dB_H. Values are clamped
// at the boundaries when a step overshoots. Requires a uniform grid.
type FJacobi struct {
	Hurst  float64
	Alpha  float64
	Beta   float64
	Sigma  float64
	X0     float64
	Method noise.Method

	cache fgnCache
}

// NewFJacobi validates hurst in (0,1), 0 < alpha < beta, sigma > 0 and
// x0 in [0,1].
func NewFJacobi(hurst, alpha, beta, sigma, x0 float64) (*FJacobi, error) {
	if hurst <= 0 || hurst >= 1 {
		return nil, fmt.Errorf("%w: hurst=%v not in (0,1)", models.ErrInvalidParameters, hurst)
	}
	if alpha <= 0 || beta <= 0 || sigma <= 0 {
		return nil, fmt.Errorf("%w: fjacobi requires alpha, beta, sigma > 0", models.ErrInvalidParameters)
	}
	if alpha >= beta {
		return nil, fmt.Errorf("%w: alpha=%v must be less than beta=%v", models.ErrInvalidParameters, alpha, beta)
	}
	if x0 < 0 || x0 > 1 {
		return nil, fmt.Errorf("%w: x0=%v not in [0,1]", models.ErrInvalidParameters, x0)
	}
	return &FJacobi{Hurst: hurst, Alpha: alpha, Beta: beta, Sigma: sigma, X0: x0, Method: noise.MethodAuto}, nil
}

// PrepareBatch builds the fGn generator for grid ahead of a simulation
// batch.
func (f *FJacobi) PrepareBatch(grid models.TimeGrid) error {
	_, err := f.cache.forGrid(f.Hurst, grid, f.Method)
	return err
}

func (f *FJacobi) Simulate(grid models.TimeGrid, stream *randsrc.Stream) (models.Path, error) {
	fgn, err := f.cache.forGrid(f.Hurst, grid, f.Method)
	if err != nil {
		return models.Path{}, err
	}
	dt := grid.Dt(0)
	inc := fgn.Sample(stream)
	x := make([]float64, grid.Len())
	x[0] = f.X0
	for i := range inc {
		prev := x[i]
		switch {
		case prev <= 0:
			x[i+1] = 0
		case prev >= 1:
			x[i+1] = 1
		default:
			x[i+1] = prev + (f.Alpha-f.Beta*prev)*dt + f.Sigma*math.Sqrt(prev*(1-prev))*inc[i]
		}
	}
	return models.NewPath(grid, x)
}
