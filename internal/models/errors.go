package models

import "errors"

// Sentinel errors for the simulation and calibration core.
// All validation happens eagerly at constructor/entry boundaries so that a
// bad input fails before any parallel work is dispatched.
var (
	// ErrInvalidParameters indicates a process parameter outside its domain
	// (negative volatility, Hurst outside (0,1), and so on).
	ErrInvalidParameters = errors.New("stoch: invalid process parameters")

	// ErrInvalidGrid indicates an empty or non-increasing time grid.
	ErrInvalidGrid = errors.New("stoch: invalid time grid")

	// ErrInvalidCorrelationMatrix indicates a correlation matrix whose
	// Cholesky factorization failed (not positive semi-definite).
	ErrInvalidCorrelationMatrix = errors.New("stoch: correlation matrix is not positive semi-definite")

	// ErrNonPositiveDefiniteCovariance indicates circulant eigenvalues of a
	// fractional Gaussian noise covariance went negative beyond tolerance.
	ErrNonPositiveDefiniteCovariance = errors.New("stoch: covariance embedding is not positive semi-definite")

	// ErrInsufficientData indicates an estimator received fewer samples than
	// its configured minimum.
	ErrInsufficientData = errors.New("stoch: insufficient data for estimator")

	// ErrInvalidEnsembleSize indicates a requested ensemble with fewer than
	// one path.
	ErrInvalidEnsembleSize = errors.New("stoch: ensemble size must be at least 1")

	// ErrSingularJacobian indicates the normal equations could not be solved
	// even at maximum damping.
	ErrSingularJacobian = errors.New("stoch: singular jacobian in least-squares solve")
)
