package estimate

import (
	"fmt"
	"math"

	"github.com/quantforge/stoch/internal/models"
)

// Moments accumulates sample moments with Welford's online algorithm,
// which stays accurate for long paths where the naive sum-of-squares
// approach loses precision to cancellation.
type Moments struct {
	n              int
	mean, m2, m3, m4 float64
}

// Add folds one observation into the accumulator.
func (m *Moments) Add(x float64) {
	n1 := float64(m.n)
	m.n++
	n := float64(m.n)
	delta := x - m.mean
	deltaN := delta / n
	deltaN2 := deltaN * deltaN
	term1 := delta * deltaN * n1

	m.mean += deltaN
	m.m4 += term1*deltaN2*(n*n-3*n+3) + 6*deltaN2*m.m2 - 4*deltaN*m.m3
	m.m3 += term1*deltaN*(n-2) - 3*deltaN*m.m2
	m.m2 += term1
}

// AddAll folds a slice of observations.
func (m *Moments) AddAll(xs []float64) {
	for _, x := range xs {
		m.Add(x)
	}
}

// Count returns the number of observations.
func (m *Moments) Count() int { return m.n }

// Mean returns the sample mean.
func (m *Moments) Mean() float64 { return m.mean }

// Variance returns the unbiased sample variance.
func (m *Moments) Variance() float64 {
	if m.n < 2 {
		return 0
	}
	return m.m2 / float64(m.n-1)
}

// StdDev returns the sample standard deviation.
func (m *Moments) StdDev() float64 { return math.Sqrt(m.Variance()) }

// Skewness returns the sample skewness.
func (m *Moments) Skewness() float64 {
	if m.n < 2 || m.m2 == 0 {
		return 0
	}
	n := float64(m.n)
	return math.Sqrt(n) * m.m3 / math.Pow(m.m2, 1.5)
}

// Kurtosis returns the excess kurtosis.
func (m *Moments) Kurtosis() float64 {
	if m.n < 2 || m.m2 == 0 {
		return 0
	}
	n := float64(m.n)
	return n*m.m4/(m.m2*m.m2) - 3
}

// Describe accumulates all values and returns the filled accumulator.
func Describe(values []float64) Moments {
	var m Moments
	m.AddAll(values)
	return m
}

// RealizedVolatility estimates the diffusion volatility of a strictly
// positive price path from its squared log-returns, normalized by the
// grid horizon: sigma_hat = sqrt(sum r_i^2 / T).
func RealizedVolatility(p models.Path) (float64, error) {
	if p.Grid.Len() < 2 || len(p.Values) < 2 {
		return 0, fmt.Errorf("%w: realized volatility needs at least 2 points", models.ErrInsufficientData)
	}
	var sumSq float64
	for i := 1; i < len(p.Values); i++ {
		if p.Values[i-1] <= 0 || p.Values[i] <= 0 {
			return 0, fmt.Errorf("%w: realized volatility requires positive prices (index %d)",
				models.ErrInvalidParameters, i)
		}
		r := math.Log(p.Values[i] / p.Values[i-1])
		sumSq += r * r
	}
	return math.Sqrt(sumSq / p.Grid.Horizon()), nil
}
