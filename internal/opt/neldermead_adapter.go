package opt

import (
	"fmt"
	"log/slog"

	"gonum.org/v1/gonum/optimize"
)

// NelderMeadAdapter runs gonum's Nelder-Mead simplex method. Bounds are
// enforced by projecting every trial point onto the box.
type NelderMeadAdapter struct {
	maxEvals int
	start    []float64
}

// NewNelderMead creates a Nelder-Mead optimizer limited to maxEvals
// evaluations. A nil start begins at the box center.
func NewNelderMead(maxEvals int, start []float64) Optimizer {
	return &NelderMeadAdapter{
		maxEvals: maxEvals,
		start:    start,
	}
}

// Run executes the simplex search
func (n *NelderMeadAdapter) Run(eval func([]float64) float64, lower, upper []float64, dim int) ([]float64, float64, error) {
	if len(lower) < dim || len(upper) < dim {
		return nil, 0, fmt.Errorf("bounds need %d values, got %d and %d", dim, len(lower), len(upper))
	}

	projected := make([]float64, dim)
	problem := optimize.Problem{
		Func: func(x []float64) float64 {
			return eval(clampInto(projected, x, lower, upper))
		},
	}
	settings := &optimize.Settings{
		FuncEvaluations: n.maxEvals,
		Converger: &optimize.FunctionConverge{
			Absolute:   1e-12,
			Iterations: 200,
		},
	}

	result, err := optimize.Minimize(problem, startPoint(n.start, lower, upper, dim), settings, &optimize.NelderMead{})
	if result == nil {
		return nil, 0, fmt.Errorf("nelder-mead: %w", err)
	}
	if err != nil {
		slog.Debug("Nelder-Mead stopped early", "status", result.Status, "error", err)
	}

	best := clampInto(make([]float64, dim), result.X, lower, upper)
	return best, result.F, nil
}
