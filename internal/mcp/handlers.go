package mcp

import (
	"context"
	"fmt"

	sdk "github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/quantforge/stoch/internal/calibrate"
	"github.com/quantforge/stoch/internal/estimate"
	"github.com/quantforge/stoch/internal/models"
	"github.com/quantforge/stoch/internal/process"
	"github.com/quantforge/stoch/internal/randsrc"
	"github.com/quantforge/stoch/internal/ratelimit"
)

// registerTools registers all stoch MCP tools with the server.
func (s *Server) registerTools() error {
	sdk.AddTool(s.server, &sdk.Tool{
		Name:        "stoch_simulate",
		Description: "Simulate a single sample path of a stochastic process on a uniform grid",
	}, s.handleSimulate)

	sdk.AddTool(s.server, &sdk.Tool{
		Name:        "stoch_ensemble_stats",
		Description: "Run a Monte Carlo ensemble and summarize the terminal value distribution",
	}, s.handleEnsembleStats)

	sdk.AddTool(s.server, &sdk.Tool{
		Name:        "stoch_estimate",
		Description: "Estimate the Hurst exponent and empirical moments of an increment series",
	}, s.handleEstimate)

	sdk.AddTool(s.server, &sdk.Tool{
		Name:        "stoch_calibrate",
		Description: "Fit GBM or OU parameters to an observed series by damped nonlinear least squares",
	}, s.handleCalibrate)

	return nil
}

func (s *Server) handleSimulate(ctx context.Context, req *sdk.CallToolRequest, args SimulateInput) (*sdk.CallToolResult, SimulateOutput, error) {
	if err := ratelimit.CheckLimit(s.limiters, "stoch_simulate"); err != nil {
		return nil, SimulateOutput{}, err
	}

	grid, err := models.NewUniformGrid(args.T0, args.T1, args.Steps)
	if err != nil {
		return nil, SimulateOutput{}, err
	}
	sim, err := process.FromSpec(args.Process, args.Params)
	if err != nil {
		return nil, SimulateOutput{}, err
	}

	path, err := sim.Simulate(grid, randsrc.NewStream(args.Seed))
	if err != nil {
		return nil, SimulateOutput{}, err
	}
	return nil, SimulateOutput{Times: grid.Points(), Values: path.Values}, nil
}

func (s *Server) handleEnsembleStats(ctx context.Context, req *sdk.CallToolRequest, args EnsembleStatsInput) (*sdk.CallToolResult, EnsembleStatsOutput, error) {
	if err := ratelimit.CheckLimit(s.limiters, "stoch_ensemble_stats"); err != nil {
		return nil, EnsembleStatsOutput{}, err
	}

	grid, err := models.NewUniformGrid(args.T0, args.T1, args.Steps)
	if err != nil {
		return nil, EnsembleStatsOutput{}, err
	}
	sim, err := process.FromSpec(args.Process, args.Params)
	if err != nil {
		return nil, EnsembleStatsOutput{}, err
	}

	ens, err := s.engine.Simulate(ctx, sim, grid, args.Paths, args.Seed)
	if err != nil {
		return nil, EnsembleStatsOutput{}, err
	}

	m := estimate.Describe(ens.Terminal())
	return nil, EnsembleStatsOutput{
		Paths:            ens.NumPaths(),
		TerminalMean:     m.Mean(),
		TerminalStd:      m.StdDev(),
		TerminalSkewness: m.Skewness(),
		TerminalKurtosis: m.Kurtosis(),
	}, nil
}

func (s *Server) handleEstimate(ctx context.Context, req *sdk.CallToolRequest, args EstimateInput) (*sdk.CallToolResult, EstimateOutput, error) {
	if err := ratelimit.CheckLimit(s.limiters, "stoch_estimate"); err != nil {
		return nil, EstimateOutput{}, err
	}

	var est estimate.HurstEstimate
	var err error
	switch args.Method {
	case "", "rs":
		est, err = estimate.HurstRS(args.Increments)
	case "aggvar":
		est, err = estimate.HurstAggVar(args.Increments)
	default:
		return nil, EstimateOutput{}, fmt.Errorf("%w: unknown estimator %q (valid: rs, aggvar)",
			models.ErrInvalidParameters, args.Method)
	}
	if err != nil {
		return nil, EstimateOutput{}, err
	}

	m := estimate.Describe(args.Increments)
	return nil, EstimateOutput{
		Hurst:    est.H,
		R2:       est.R2,
		Windows:  est.Windows,
		Mean:     m.Mean(),
		StdDev:   m.StdDev(),
		Skewness: m.Skewness(),
		Kurtosis: m.Kurtosis(),
	}, nil
}

func (s *Server) handleCalibrate(ctx context.Context, req *sdk.CallToolRequest, args CalibrateInput) (*sdk.CallToolResult, CalibrateOutput, error) {
	if err := ratelimit.CheckLimit(s.limiters, "stoch_calibrate"); err != nil {
		return nil, CalibrateOutput{}, err
	}

	if len(args.Times) != len(args.Values) {
		return nil, CalibrateOutput{}, fmt.Errorf("%w: %d times for %d values",
			models.ErrInvalidParameters, len(args.Times), len(args.Values))
	}
	grid, err := models.NewGrid(args.Times)
	if err != nil {
		return nil, CalibrateOutput{}, err
	}
	path, err := models.NewPath(grid, args.Values)
	if err != nil {
		return nil, CalibrateOutput{}, err
	}

	var obj calibrate.Objective
	initial := args.Initial
	var opts calibrate.Options
	switch args.Model {
	case "gbm":
		obj, err = calibrate.GBMObjective(path)
		if initial == nil {
			initial = []float64{0, 0.2}
		}
		opts.Lower = []float64{-10, 1e-6}
		opts.Upper = []float64{10, 10}
	case "ou":
		obj, err = calibrate.OUObjective(path)
		if initial == nil {
			initial = []float64{1, 0, 1}
		}
		opts.Lower = []float64{1e-6, -1e6, 1e-6}
		opts.Upper = []float64{1e3, 1e6, 1e3}
	default:
		return nil, CalibrateOutput{}, fmt.Errorf("%w: unknown model %q (valid: gbm, ou)",
			models.ErrInvalidParameters, args.Model)
	}
	if err != nil {
		return nil, CalibrateOutput{}, err
	}

	res, err := calibrate.Calibrate(obj, initial, opts)
	if err != nil {
		return nil, CalibrateOutput{}, err
	}
	return nil, CalibrateOutput{
		Params:     res.Params,
		RSS:        res.RSS,
		Status:     res.Status.String(),
		Iterations: res.Iterations,
	}, nil
}
