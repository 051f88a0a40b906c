package problem

import (
	"fmt"

	"github.com/cwbudde/bobyqa"
	"github.com/cwbudde/bobyqa/internal/opt"
	"github.com/cwbudde/bobyqa/internal/store"
)

// Template builds the BOBYQA configuration described by config. Bounds are
// left to the optimizer adapter.
func Template(config store.RunConfig) *bobyqa.Bobyqa {
	npt := config.NPT
	if npt == 0 {
		npt = opt.DefaultInterpolationConditions(config.Dim)
	}
	b := bobyqa.New().
		VariablesCount(config.Dim).
		NumberOfInterpolationConditions(npt).
		MaxFunctionCallsCount(config.MaxCalls)

	// Each radius setter checks against the other, so order matters.
	if _, final := b.Radii(); config.InitialRadius > final {
		b.FinalTrustRegionRadius(config.FinalRadius).InitialTrustRegionRadius(config.InitialRadius)
	} else {
		b.InitialTrustRegionRadius(config.InitialRadius).FinalTrustRegionRadius(config.FinalRadius)
	}
	return b
}

// Factory returns a builder of the optimizer named in config for a given
// starting point.
func Factory(config store.RunConfig) (opt.StartFunc, error) {
	template := Template(config)
	local := func(start []float64) opt.Optimizer {
		return opt.NewBobyqa(template, start)
	}

	switch config.Optimizer {
	case store.OptimizerBobyqa:
		return local, nil
	case store.OptimizerMayfly:
		return func([]float64) opt.Optimizer {
			return opt.NewMayfly(config.Iters, config.PopSize, config.Seed)
		}, nil
	case store.OptimizerNelderMead:
		return func(start []float64) opt.Optimizer {
			return opt.NewNelderMead(config.MaxCalls, start)
		}, nil
	case store.OptimizerMultiStart:
		return func([]float64) opt.Optimizer {
			return opt.NewMultiStart(local, config.Starts, config.Seed, 0)
		}, nil
	case store.OptimizerHybrid:
		return func([]float64) opt.Optimizer {
			return opt.NewChain(opt.NewMayfly(config.Iters, config.PopSize, config.Seed), local)
		}, nil
	default:
		return nil, fmt.Errorf("unknown optimizer: %s", config.Optimizer)
	}
}

// Run validates config, looks up its problem and solves it. Restarts in
// config add further rounds that stop once the cost stops improving.
func Run(config store.RunConfig, observe func(Evaluation)) (*Problem, *Result, error) {
	if err := config.Validate(); err != nil {
		return nil, nil, err
	}
	p, err := Lookup(config.Problem, config.Dim)
	if err != nil {
		return nil, nil, err
	}
	factory, err := Factory(config)
	if err != nil {
		return nil, nil, err
	}

	var result *Result
	if config.Restarts > 0 {
		result, err = SolveRestarts(p, factory, DefaultConvergenceConfig(), config.Restarts+1, observe)
	} else {
		result, err = Solve(p, factory(p.Start), observe)
	}
	if err != nil {
		return nil, nil, err
	}
	return p, result, nil
}
