package noise

import (
	"fmt"
	"math"

	"gonum.org/v1/gonum/dsp/fourier"
	"gonum.org/v1/gonum/mat"

	"github.com/quantforge/stoch/internal/models"
	"github.com/quantforge/stoch/internal/randsrc"
)

// Method selects how fractional Gaussian noise is realized.
type Method int

const (
	// MethodAuto uses Cholesky below CholeskyMaxSteps and FFT above it.
	MethodAuto Method = iota
	// MethodFFT uses circulant embedding, O(n log n).
	MethodFFT
	// MethodCholesky factorizes the full covariance matrix, O(n^3), exact.
	MethodCholesky
)

// NegEigenvalueTolerance is the magnitude below which a negative circulant
// eigenvalue is treated as a floating-point artifact and clamped to zero.
// Tiny negative eigenvalues are expected for Hurst values near 1; anything
// below -NegEigenvalueTolerance fails the construction instead.
const NegEigenvalueTolerance = 1e-8

// CholeskyMaxSteps is the largest step count for which MethodAuto stays on
// the exact Cholesky path.
const CholeskyMaxSteps = 256

// Autocovariance returns the autocovariance gamma(k) of unit-spaced
// fractional Gaussian noise with Hurst exponent h.
func Autocovariance(h float64, k int) float64 {
	if k == 0 {
		return 1
	}
	x := math.Abs(float64(k))
	return 0.5 * (math.Pow(x+1, 2*h) - 2*math.Pow(x, 2*h) + math.Pow(x-1, 2*h))
}

// FGN generates fractional Gaussian noise increments over n steps of a
// horizon T, scaled so that their cumulative sum is a fractional Brownian
// motion on [0, T]. The spectral (or Cholesky) state is computed once at
// construction and shared read-only across samples.
type FGN struct {
	hurst   float64
	n       int
	horizon float64
	method  Method

	// FFT state: circulant embedding of size 2*npad.
	npad    int
	sqrtEig []float64
	fft     *fourier.CmplxFFT
	clamped int

	// Cholesky state.
	lower *mat.TriDense
}

// NewFGN validates the Hurst exponent and precomputes the generator state.
// It fails with ErrInvalidParameters for hurst outside (0,1) and with
// ErrNonPositiveDefiniteCovariance if the circulant eigenvalues go negative
// beyond NegEigenvalueTolerance.
func NewFGN(hurst float64, n int, horizon float64, method Method) (*FGN, error) {
	if hurst <= 0 || hurst >= 1 {
		return nil, fmt.Errorf("%w: hurst=%v not in (0,1)", models.ErrInvalidParameters, hurst)
	}
	if n < 1 {
		return nil, fmt.Errorf("%w: n=%d", models.ErrInvalidParameters, n)
	}
	if horizon <= 0 {
		return nil, fmt.Errorf("%w: horizon=%v", models.ErrInvalidParameters, horizon)
	}

	f := &FGN{hurst: hurst, n: n, horizon: horizon, method: method}
	if method == MethodAuto {
		if n <= CholeskyMaxSteps {
			f.method = MethodCholesky
		} else {
			f.method = MethodFFT
		}
	}

	var err error
	switch f.method {
	case MethodFFT:
		err = f.initFFT()
	case MethodCholesky:
		err = f.initCholesky()
	default:
		err = fmt.Errorf("%w: unknown fgn method %d", models.ErrInvalidParameters, method)
	}
	if err != nil {
		return nil, err
	}
	return f, nil
}

// Hurst returns the configured Hurst exponent.
func (f *FGN) Hurst() float64 { return f.hurst }

// Len returns the number of increments per sample.
func (f *FGN) Len() int { return f.n }

// Method returns the resolved generation method.
func (f *FGN) Method() Method { return f.method }

// ClampedEigenvalues reports how many tiny negative circulant eigenvalues
// were clamped to zero during construction. Zero for MethodCholesky.
func (f *FGN) ClampedEigenvalues() int { return f.clamped }

// initFFT builds the circulant embedding of the fGn covariance: the first
// row [gamma(0)..gamma(npad), gamma(npad-1)..gamma(1)] of a 2*npad circulant
// matrix whose eigenvalues come out of a single FFT.
func (f *FGN) initFFT() error {
	npad := nextPowerOfTwo(f.n)
	size := 2 * npad

	c := make([]complex128, size)
	for k := 0; k <= npad; k++ {
		c[k] = complex(Autocovariance(f.hurst, k), 0)
	}
	for k := 1; k < npad; k++ {
		c[size-k] = c[k]
	}

	fft := fourier.NewCmplxFFT(size)
	eig := fft.Coefficients(nil, c)

	sqrtEig := make([]float64, size)
	clamped := 0
	for k, ev := range eig {
		re := real(ev)
		if re < 0 {
			if re < -NegEigenvalueTolerance {
				return fmt.Errorf("%w: eigenvalue %d = %v (hurst=%v)",
					models.ErrNonPositiveDefiniteCovariance, k, re, f.hurst)
			}
			re = 0
			clamped++
		}
		sqrtEig[k] = math.Sqrt(re / float64(size))
	}

	f.npad = npad
	f.sqrtEig = sqrtEig
	f.fft = fft
	f.clamped = clamped
	return nil
}

// initCholesky factorizes the n x n fGn covariance matrix directly.
func (f *FGN) initCholesky() error {
	cov := mat.NewSymDense(f.n, nil)
	for i := 0; i < f.n; i++ {
		for j := i; j < f.n; j++ {
			cov.SetSym(i, j, Autocovariance(f.hurst, j-i))
		}
	}
	var chol mat.Cholesky
	if ok := chol.Factorize(cov); !ok {
		return fmt.Errorf("%w: fgn covariance cholesky failed (n=%d, hurst=%v)",
			models.ErrNonPositiveDefiniteCovariance, f.n, f.hurst)
	}
	f.lower = mat.NewTriDense(f.n, mat.Lower, nil)
	chol.LTo(f.lower)
	return nil
}

// Sample draws one fGn increment sequence of length Len() from the stream.
func (f *FGN) Sample(stream *randsrc.Stream) []float64 {
	// Increments over dt scale as dt^H by self-similarity.
	scale := math.Pow(f.horizon/float64(f.n), f.hurst)

	if f.method == MethodCholesky {
		z := mat.NewVecDense(f.n, nil)
		for i := 0; i < f.n; i++ {
			z.SetVec(i, stream.Normal())
		}
		var y mat.VecDense
		y.MulVec(f.lower, z)
		out := make([]float64, f.n)
		for i := range out {
			out[i] = y.AtVec(i) * scale
		}
		return out
	}

	size := 2 * f.npad
	w := make([]complex128, size)
	for k := 0; k < size; k++ {
		w[k] = complex(f.sqrtEig[k]*stream.Normal(), f.sqrtEig[k]*stream.Normal())
	}
	y := f.fft.Coefficients(nil, w)

	out := make([]float64, f.n)
	for i := range out {
		out[i] = real(y[i+1]) * scale
	}
	return out
}

func nextPowerOfTwo(n int) int {
	p := 1
	for p < n {
		p <<= 1
	}
	return p
}
