package problem

import (
	"fmt"
	"log/slog"
	"slices"

	"github.com/cwbudde/bobyqa/internal/opt"
)

// Result holds the output of an optimization run
type Result struct {
	BestParams  []float64
	BestCost    float64
	InitialCost float64
	Evaluations int
	Rounds      int
}

// Gap returns how far the best cost is above the known minimum.
func (r *Result) Gap(p *Problem) float64 {
	return r.BestCost - p.Minimum
}

// settle moves a reported point that left the box back onto it and returns
// the cost there. Points inside the box keep their reported cost.
func (p *Problem) settle(params []float64, cost float64) float64 {
	if p.Contains(params) {
		return cost
	}
	slog.Warn("Optimizer returned a point outside the box, clamping", "problem", p.Name, "params", params)
	p.Clamp(params)
	return p.Func(params)
}

// Solve runs optimizer once over the problem box. observe, when not nil,
// sees every evaluation.
func Solve(p *Problem, optimizer opt.Optimizer, observe func(Evaluation)) (*Result, error) {
	slog.Info("Starting optimization", "problem", p.Name, "dim", p.Dim)

	initialCost := p.Func(p.Start)
	counter := NewCounter(p.Func, observe)

	bestParams, bestCost, err := optimizer.Run(counter.Evaluate, p.Lower, p.Upper, p.Dim)
	if err != nil {
		return nil, fmt.Errorf("failed to optimize %s: %w", p.Name, err)
	}
	bestCost = p.settle(bestParams, bestCost)

	slog.Info("Optimization complete",
		"problem", p.Name,
		"initial_cost", initialCost,
		"best_cost", bestCost,
		"evaluations", counter.Count(),
	)

	return &Result{
		BestParams:  bestParams,
		BestCost:    bestCost,
		InitialCost: initialCost,
		Evaluations: counter.Count(),
		Rounds:      1,
	}, nil
}

// SolveRestarts runs up to maxRounds optimizations, each starting from the
// best point of the previous one, until the convergence tracker reports no
// further progress. The first round starts from the problem's start point.
func SolveRestarts(p *Problem, factory opt.StartFunc, conv ConvergenceConfig, maxRounds int, observe func(Evaluation)) (*Result, error) {
	slog.Info("Starting restarted optimization", "problem", p.Name, "dim", p.Dim, "max_rounds", maxRounds)

	initialCost := p.Func(p.Start)
	counter := NewCounter(p.Func, observe)
	tracker := NewConvergenceTracker(conv)

	start := slices.Clone(p.Start)
	var bestParams []float64
	bestCost := initialCost
	rounds := 0

	for rounds < max(maxRounds, 1) {
		rounds++
		params, cost, err := factory(start).Run(counter.Evaluate, p.Lower, p.Upper, p.Dim)
		if err != nil {
			return nil, fmt.Errorf("failed to optimize %s in round %d: %w", p.Name, rounds, err)
		}
		cost = p.settle(params, cost)

		if bestParams == nil || cost < bestCost {
			bestParams, bestCost = params, cost
		}
		slog.Info("Round complete", "problem", p.Name, "round", rounds, "cost", cost, "best_cost", bestCost)

		if tracker.Update(cost) {
			break
		}
		start = slices.Clone(bestParams)
	}

	return &Result{
		BestParams:  bestParams,
		BestCost:    bestCost,
		InitialCost: initialCost,
		Evaluations: counter.Count(),
		Rounds:      rounds,
	}, nil
}
