package mcp

// SimulateInput defines the input for the stoch_simulate tool.
type SimulateInput struct {
	Process string             `json:"process" jsonschema:"Process kind (bm gbm ou cir heston merton kou fbm fou fjacobi jumpfou)"`
	Params  map[string]float64 `json:"params,omitempty" jsonschema:"Named process parameters; omitted parameters use documented defaults"`
	T0      float64            `json:"t0,omitempty" jsonschema:"Grid start time (default 0)"`
	T1      float64            `json:"t1" jsonschema:"Grid end time"`
	Steps   int                `json:"steps" jsonschema:"Number of grid steps"`
	Seed    uint64             `json:"seed,omitempty" jsonschema:"Stream seed; the same seed reproduces the same path"`
}

// SimulateOutput defines the output for the stoch_simulate tool.
type SimulateOutput struct {
	Times  []float64 `json:"times" jsonschema:"Grid times"`
	Values []float64 `json:"values" jsonschema:"Simulated path values"`
}

// EnsembleStatsInput defines the input for the stoch_ensemble_stats tool.
type EnsembleStatsInput struct {
	Process string             `json:"process" jsonschema:"Process kind"`
	Params  map[string]float64 `json:"params,omitempty" jsonschema:"Named process parameters"`
	T0      float64            `json:"t0,omitempty" jsonschema:"Grid start time (default 0)"`
	T1      float64            `json:"t1" jsonschema:"Grid end time"`
	Steps   int                `json:"steps" jsonschema:"Number of grid steps"`
	Paths   int                `json:"paths" jsonschema:"Ensemble size"`
	Seed    uint64             `json:"seed,omitempty" jsonschema:"Base seed; per-path seeds are derived deterministically"`
}

// EnsembleStatsOutput summarizes the terminal distribution of an ensemble.
type EnsembleStatsOutput struct {
	Paths            int     `json:"paths"`
	TerminalMean     float64 `json:"terminal_mean"`
	TerminalStd      float64 `json:"terminal_std"`
	TerminalSkewness float64 `json:"terminal_skewness"`
	TerminalKurtosis float64 `json:"terminal_kurtosis" jsonschema:"Excess kurtosis of the terminal values"`
}

// EstimateInput defines the input for the stoch_estimate tool.
type EstimateInput struct {
	Increments []float64 `json:"increments" jsonschema:"Increment series to analyze"`
	Method     string    `json:"method,omitempty" jsonschema:"Hurst estimator: 'rs' (rescaled range, default) or 'aggvar' (aggregated variance)"`
}

// EstimateOutput defines the output for the stoch_estimate tool.
type EstimateOutput struct {
	Hurst    float64 `json:"hurst"`
	R2       float64 `json:"r2" jsonschema:"Coefficient of determination of the log-log regression"`
	Windows  int     `json:"windows"`
	Mean     float64 `json:"mean"`
	StdDev   float64 `json:"std_dev"`
	Skewness float64 `json:"skewness"`
	Kurtosis float64 `json:"kurtosis" jsonschema:"Excess kurtosis"`
}

// CalibrateInput defines the input for the stoch_calibrate tool.
type CalibrateInput struct {
	Model   string    `json:"model" jsonschema:"Model to fit: 'gbm' (params mu sigma) or 'ou' (params theta mu sigma)"`
	Times   []float64 `json:"times" jsonschema:"Observation times (strictly increasing)"`
	Values  []float64 `json:"values" jsonschema:"Observed values, one per time"`
	Initial []float64 `json:"initial,omitempty" jsonschema:"Initial parameter guess; model defaults used when omitted"`
}

// CalibrateOutput defines the output for the stoch_calibrate tool.
type CalibrateOutput struct {
	Params     []float64 `json:"params"`
	RSS        float64   `json:"rss" jsonschema:"Residual sum of squares at the fitted parameters"`
	Status     string    `json:"status" jsonschema:"converged, max-iterations-reached, or diverged"`
	Iterations int       `json:"iterations"`
}
