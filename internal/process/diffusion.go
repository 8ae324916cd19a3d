package process

import (
	"fmt"
	"math"

	"github.com/quantforge/stoch/internal/models"
	"github.com/quantforge/stoch/internal/noise"
	"github.com/quantforge/stoch/internal/randsrc"
)

// BM is arithmetic Brownian motion with drift: dX = mu dt + sigma dW.
type BM struct {
	Mu    float64
	Sigma float64
	X0    float64
}

// NewBM validates sigma >= 0.
func NewBM(mu, sigma, x0 float64) (*BM, error) {
	if sigma < 0 {
		return nil, fmt.Errorf("%w: sigma=%v < 0", models.ErrInvalidParameters, sigma)
	}
	return &BM{Mu: mu, Sigma: sigma, X0: x0}, nil
}

func (b *BM) Simulate(grid models.TimeGrid, stream *randsrc.Stream) (models.Path, error) {
	if err := validateGrid(grid); err != nil {
		return models.Path{}, err
	}
	inc := noise.Increments(stream, grid)
	x := make([]float64, grid.Len())
	x[0] = b.X0
	for i := range inc {
		x[i+1] = x[i] + b.Mu*grid.Dt(i) + b.Sigma*inc[i]
	}
	return models.NewPath(grid, x)
}

// GBM is geometric Brownian motion: dX = mu X dt + sigma X dW.
// The default scheme is the exact lognormal step; SchemeEuler selects the
// Euler-Maruyama recursion.
type GBM struct {
	Mu     float64
	Sigma  float64
	X0     float64
	Scheme Scheme
}

// NewGBM validates sigma >= 0 and x0 > 0.
func NewGBM(mu, sigma, x0 float64, scheme Scheme) (*GBM, error) {
	if sigma < 0 {
		return nil, fmt.Errorf("%w: sigma=%v < 0", models.ErrInvalidParameters, sigma)
	}
	if x0 <= 0 {
		return nil, fmt.Errorf("%w: x0=%v must be positive", models.ErrInvalidParameters, x0)
	}
	switch scheme {
	case SchemeDefault, SchemeExact, SchemeEuler:
	default:
		return nil, fmt.Errorf("%w: gbm does not support scheme %v", models.ErrInvalidParameters, scheme)
	}
	return &GBM{Mu: mu, Sigma: sigma, X0: x0, Scheme: scheme}, nil
}

func (g *GBM) Simulate(grid models.TimeGrid, stream *randsrc.Stream) (models.Path, error) {
	if err := validateGrid(grid); err != nil {
		return models.Path{}, err
	}
	inc := noise.Increments(stream, grid)
	x := make([]float64, grid.Len())
	x[0] = g.X0
	euler := g.Scheme == SchemeEuler
	for i := range inc {
		dt := grid.Dt(i)
		if euler {
			x[i+1] = x[i] + g.Mu*x[i]*dt + g.Sigma*x[i]*inc[i]
		} else {
			x[i+1] = x[i] * math.Exp((g.Mu-0.5*g.Sigma*g.Sigma)*dt+g.Sigma*inc[i])
		}
	}
	return models.NewPath(grid, x)
}

// OU is the Ornstein-Uhlenbeck process dX = theta (mu - X) dt + sigma dW.
// The default scheme is the exact one-step transition, which is stable at
// any step size; SchemeEuler selects Euler-Maruyama. The exact step
// degrades continuously to the Euler step as theta -> 0.
type OU struct {
	Theta  float64
	Mu     float64
	Sigma  float64
	X0     float64
	Scheme Scheme
}

// NewOU validates theta >= 0 and sigma >= 0.
func NewOU(theta, mu, sigma, x0 float64, scheme Scheme) (*OU, error) {
	if theta < 0 {
		return nil, fmt.Errorf("%w: theta=%v < 0", models.ErrInvalidParameters, theta)
	}
	if sigma < 0 {
		return nil, fmt.Errorf("%w: sigma=%v < 0", models.ErrInvalidParameters, sigma)
	}
	switch scheme {
	case SchemeDefault, SchemeExact, SchemeEuler:
	default:
		return nil, fmt.Errorf("%w: ou does not support scheme %v", models.ErrInvalidParameters, scheme)
	}
	return &OU{Theta: theta, Mu: mu, Sigma: sigma, X0: x0, Scheme: scheme}, nil
}

func (o *OU) Simulate(grid models.TimeGrid, stream *randsrc.Stream) (models.Path, error) {
	if err := validateGrid(grid); err != nil {
		return models.Path{}, err
	}
	x := make([]float64, grid.Len())
	x[0] = o.X0
	if o.Scheme == SchemeEuler {
		inc := noise.Increments(stream, grid)
		for i := range inc {
			x[i+1] = x[i] + o.Theta*(o.Mu-x[i])*grid.Dt(i) + o.Sigma*inc[i]
		}
	} else {
		// The exact transition scales the draw by the conditional standard
		// deviation, not sqrt(dt), so it consumes unit normals directly.
		for i := 0; i < grid.Steps(); i++ {
			x[i+1] = ouExactStep(x[i], o.Theta, o.Mu, o.Sigma, grid.Dt(i), stream.Normal())
		}
	}
	return models.NewPath(grid, x)
}

// ouExactStep samples the exact OU transition over dt. The conditional
// variance uses expm1 so the theta -> 0 limit recovers sigma^2 dt without
// cancellation.
func ouExactStep(x, theta, mu, sigma, dt, z float64) float64 {
	if theta == 0 {
		return x + sigma*math.Sqrt(dt)*z
	}
	decay := math.Exp(-theta * dt)
	variance := sigma * sigma * -math.Expm1(-2*theta*dt) / (2 * theta)
	return x*decay + mu*(1-decay) + math.Sqrt(variance)*z
}

// CIR is the Cox-Ingersoll-Ross process dX = kappa (theta - X) dt +
// sigma sqrt(X) dW. The default scheme is exact noncentral chi-squared
// sampling when the Feller condition 2 kappa theta >= sigma^2 holds and
// Milstein with truncation at zero otherwise.
type CIR struct {
	Kappa  float64
	Theta  float64
	Sigma  float64
	X0     float64
	Scheme Scheme
}

// CIRDiagnostics reports per-path numerical events of a CIR simulation.
type CIRDiagnostics struct {
	// FellerSatisfied records whether 2 kappa theta >= sigma^2.
	FellerSatisfied bool
	// TruncatedSteps counts steps where a negative value was clamped to
	// zero under the Milstein scheme. Always zero for the exact scheme.
	TruncatedSteps int
}

// NewCIR validates kappa >= 0, theta >= 0, sigma >= 0, x0 >= 0.
func NewCIR(kappa, theta, sigma, x0 float64, scheme Scheme) (*CIR, error) {
	if kappa < 0 || theta < 0 || sigma < 0 || x0 < 0 {
		return nil, fmt.Errorf("%w: cir requires kappa, theta, sigma, x0 >= 0 (got %v, %v, %v, %v)",
			models.ErrInvalidParameters, kappa, theta, sigma, x0)
	}
	switch scheme {
	case SchemeDefault, SchemeExact, SchemeMilstein:
	default:
		return nil, fmt.Errorf("%w: cir does not support scheme %v", models.ErrInvalidParameters, scheme)
	}
	return &CIR{Kappa: kappa, Theta: theta, Sigma: sigma, X0: x0, Scheme: scheme}, nil
}

// FellerSatisfied reports whether 2 kappa theta >= sigma^2, the condition
// under which the process stays strictly positive.
func (c *CIR) FellerSatisfied() bool {
	return 2*c.Kappa*c.Theta >= c.Sigma*c.Sigma
}

func (c *CIR) resolveScheme() Scheme {
	if c.Scheme != SchemeDefault {
		return c.Scheme
	}
	if c.FellerSatisfied() {
		return SchemeExact
	}
	return SchemeMilstein
}

func (c *CIR) Simulate(grid models.TimeGrid, stream *randsrc.Stream) (models.Path, error) {
	p, _, err := c.SimulateWithDiagnostics(grid, stream)
	return p, err
}

// SimulateWithDiagnostics simulates one path and reports truncation and
// Feller diagnostics alongside it.
func (c *CIR) SimulateWithDiagnostics(grid models.TimeGrid, stream *randsrc.Stream) (models.Path, CIRDiagnostics, error) {
	diag := CIRDiagnostics{FellerSatisfied: c.FellerSatisfied()}
	if err := validateGrid(grid); err != nil {
		return models.Path{}, diag, err
	}
	x := make([]float64, grid.Len())
	x[0] = c.X0
	scheme := c.resolveScheme()
	for i := 0; i < grid.Steps(); i++ {
		dt := grid.Dt(i)
		switch {
		case c.Sigma == 0:
			// Deterministic mean reversion.
			if c.Kappa == 0 {
				x[i+1] = x[i]
			} else {
				x[i+1] = c.Theta + (x[i]-c.Theta)*math.Exp(-c.Kappa*dt)
			}
		case scheme == SchemeExact:
			x[i+1] = c.exactStep(x[i], dt, stream)
		default:
			next := c.milsteinStep(x[i], dt, stream.Normal())
			if next < 0 {
				next = 0
				diag.TruncatedSteps++
			}
			x[i+1] = next
		}
	}
	p, err := models.NewPath(grid, x)
	return p, diag, err
}

// exactStep samples the exact CIR transition: a scaled noncentral
// chi-squared draw with d = 4 kappa theta / sigma^2 degrees of freedom.
func (c *CIR) exactStep(x, dt float64, stream *randsrc.Stream) float64 {
	var scale, decay float64
	if c.Kappa == 0 {
		scale = c.Sigma * c.Sigma * dt / 4
		decay = 1
	} else {
		scale = c.Sigma * c.Sigma * -math.Expm1(-c.Kappa*dt) / (4 * c.Kappa)
		decay = math.Exp(-c.Kappa * dt)
	}
	d := 4 * c.Kappa * c.Theta / (c.Sigma * c.Sigma)
	lambda := x * decay / scale

	// Noncentral chi-squared: for d > 1 decompose into a shifted normal
	// plus a central chi-squared; otherwise use the Poisson mixture.
	var draw float64
	if d > 1 {
		z := stream.Normal() + math.Sqrt(lambda)
		draw = z*z + stream.ChiSquared(d-1)
	} else {
		k := d + 2*float64(stream.Poisson(lambda/2))
		if k > 0 {
			draw = stream.ChiSquared(k)
		}
	}
	return scale * draw
}

// milsteinStep applies the Milstein recursion with sqrt(max(x,0)) in the
// diffusion term. Negative results are truncated by the caller.
func (c *CIR) milsteinStep(x, dt, z float64) float64 {
	pos := math.Max(x, 0)
	return x + c.Kappa*(c.Theta-x)*dt +
		c.Sigma*math.Sqrt(pos*dt)*z +
		0.25*c.Sigma*c.Sigma*dt*(z*z-1)
}
