package calibrate

import (
	"fmt"
	"math"

	"gonum.org/v1/gonum/stat"

	"github.com/quantforge/stoch/internal/estimate"
	"github.com/quantforge/stoch/internal/models"
)

// minObservations is the smallest path either moment objective accepts.
const minObservations = 10

// GBMObjective builds a residual function fitting GBM parameters
// [mu, sigma] to an observed price path by matching the mean log-return
// rate and the realized volatility.
func GBMObjective(observed models.Path) (Objective, error) {
	if observed.Grid.Len() < minObservations {
		return nil, fmt.Errorf("%w: gbm objective needs at least %d points", models.ErrInsufficientData, minObservations)
	}
	first, last := observed.Values[0], observed.Values[len(observed.Values)-1]
	if first <= 0 || last <= 0 {
		return nil, fmt.Errorf("%w: gbm objective requires positive prices", models.ErrInvalidParameters)
	}
	driftHat := math.Log(last/first) / observed.Grid.Horizon()
	volHat, err := estimate.RealizedVolatility(observed)
	if err != nil {
		return nil, err
	}

	return func(params []float64) ([]float64, error) {
		if len(params) != 2 {
			return nil, fmt.Errorf("%w: gbm objective expects [mu, sigma], got %d parameters",
				models.ErrInvalidParameters, len(params))
		}
		mu, sigma := params[0], params[1]
		return []float64{
			(mu - 0.5*sigma*sigma) - driftHat,
			sigma - volHat,
		}, nil
	}, nil
}

// OUObjective builds a residual function fitting OU parameters
// [theta, mu, sigma] to an observed path by matching the stationary mean,
// the stationary variance sigma^2/(2 theta), and the lag-1 autocorrelation
// e^{-theta dt}. The path must be long enough to be near stationarity for
// the fit to be meaningful.
func OUObjective(observed models.Path) (Objective, error) {
	n := len(observed.Values)
	if n < minObservations {
		return nil, fmt.Errorf("%w: ou objective needs at least %d points", models.ErrInsufficientData, minObservations)
	}
	dt := observed.Grid.Dt(0)

	meanHat := stat.Mean(observed.Values, nil)
	varHat := stat.Variance(observed.Values, nil)
	if varHat <= 0 {
		return nil, fmt.Errorf("%w: ou objective requires a non-degenerate path", models.ErrInsufficientData)
	}
	var acc float64
	for i := 0; i+1 < n; i++ {
		acc += (observed.Values[i] - meanHat) * (observed.Values[i+1] - meanHat)
	}
	rho1 := acc / (float64(n-1) * varHat)

	return func(params []float64) ([]float64, error) {
		if len(params) != 3 {
			return nil, fmt.Errorf("%w: ou objective expects [theta, mu, sigma], got %d parameters",
				models.ErrInvalidParameters, len(params))
		}
		theta, mu, sigma := params[0], params[1], params[2]
		return []float64{
			mu - meanHat,
			sigma*sigma/(2*theta) - varHat,
			math.Exp(-theta*dt) - rho1,
		}, nil
	}, nil
}

// TargetObjective adapts a model function producing model-implied values
// into a residual function against fixed observed targets. Used by the
// CLI and MCP calibration surfaces.
func TargetObjective(model func(params []float64) ([]float64, error), targets []float64) Objective {
	return func(params []float64) ([]float64, error) {
		implied, err := model(params)
		if err != nil {
			return nil, err
		}
		if len(implied) != len(targets) {
			return nil, fmt.Errorf("%w: model produced %d values for %d targets",
				models.ErrInvalidParameters, len(implied), len(targets))
		}
		res := make([]float64, len(targets))
		for i := range res {
			res[i] = implied[i] - targets[i]
		}
		return res, nil
	}
}
