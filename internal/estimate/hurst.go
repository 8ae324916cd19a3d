// Package estimate computes statistics from realized or simulated paths:
// Hurst exponent estimators, realized volatility, and numerically stable
// empirical moments.
package estimate

import (
	"fmt"
	"math"

	"gonum.org/v1/gonum/stat"

	"github.com/quantforge/stoch/internal/models"
)

// MinHurstSamples is the minimum number of increments either Hurst
// estimator accepts.
const MinHurstSamples = 64

// HurstEstimate is the result of a Hurst exponent regression.
type HurstEstimate struct {
	// H is the estimated Hurst exponent (regression slope).
	H float64
	// R2 is the coefficient of determination of the log-log regression.
	R2 float64
	// Windows is the number of window sizes used in the regression.
	Windows int
}

// HurstRS estimates the Hurst exponent of a series of increments using
// the rescaled-range (R/S) method: the average R/S statistic over blocks
// of size w grows like w^H.
func HurstRS(increments []float64) (HurstEstimate, error) {
	n := len(increments)
	if n < MinHurstSamples {
		return HurstEstimate{}, fmt.Errorf("%w: hurst R/S needs %d increments, got %d",
			models.ErrInsufficientData, MinHurstSamples, n)
	}

	var logW, logRS []float64
	for w := 8; w <= n/2; w *= 2 {
		var sum float64
		var blocks int
		for start := 0; start+w <= n; start += w {
			rs, ok := rescaledRange(increments[start : start+w])
			if !ok {
				continue
			}
			sum += rs
			blocks++
		}
		if blocks == 0 {
			continue
		}
		logW = append(logW, math.Log(float64(w)))
		logRS = append(logRS, math.Log(sum/float64(blocks)))
	}
	if len(logW) < 2 {
		return HurstEstimate{}, fmt.Errorf("%w: hurst R/S found %d usable window sizes",
			models.ErrInsufficientData, len(logW))
	}

	alpha, beta := stat.LinearRegression(logW, logRS, nil, false)
	r2 := stat.RSquaredFrom(fitted(logW, alpha, beta), logRS, nil)
	return HurstEstimate{H: beta, R2: r2, Windows: len(logW)}, nil
}

// rescaledRange computes the R/S statistic of one block. Returns ok=false
// for degenerate blocks with zero dispersion.
func rescaledRange(block []float64) (float64, bool) {
	mean := stat.Mean(block, nil)
	sd := stat.StdDev(block, nil)
	if sd == 0 {
		return 0, false
	}
	var cum, minCum, maxCum float64
	for _, v := range block {
		cum += v - mean
		if cum < minCum {
			minCum = cum
		}
		if cum > maxCum {
			maxCum = cum
		}
	}
	r := maxCum - minCum
	if r == 0 {
		return 0, false
	}
	return r / sd, true
}

// HurstAggVar estimates the Hurst exponent by the aggregated-variance
// method: the variance of block means of size m scales like m^(2H-2).
func HurstAggVar(increments []float64) (HurstEstimate, error) {
	n := len(increments)
	if n < MinHurstSamples {
		return HurstEstimate{}, fmt.Errorf("%w: aggregated variance needs %d increments, got %d",
			models.ErrInsufficientData, MinHurstSamples, n)
	}

	var logM, logVar []float64
	for m := 1; m <= n/8; m *= 2 {
		blocks := n / m
		agg := make([]float64, blocks)
		for b := 0; b < blocks; b++ {
			agg[b] = stat.Mean(increments[b*m:(b+1)*m], nil)
		}
		v := stat.Variance(agg, nil)
		if v <= 0 {
			continue
		}
		logM = append(logM, math.Log(float64(m)))
		logVar = append(logVar, math.Log(v))
	}
	if len(logM) < 2 {
		return HurstEstimate{}, fmt.Errorf("%w: aggregated variance found %d usable block sizes",
			models.ErrInsufficientData, len(logM))
	}

	alpha, beta := stat.LinearRegression(logM, logVar, nil, false)
	r2 := stat.RSquaredFrom(fitted(logM, alpha, beta), logVar, nil)
	return HurstEstimate{H: 1 + beta/2, R2: r2, Windows: len(logM)}, nil
}

func fitted(xs []float64, alpha, beta float64) []float64 {
	out := make([]float64, len(xs))
	for i, x := range xs {
		out[i] = alpha + beta*x
	}
	return out
}
