package opt

import (
	"fmt"
	"log/slog"

	"github.com/cwbudde/bobyqa"
)

// BobyqaAdapter runs a bounded BOBYQA minimization from a single start.
type BobyqaAdapter struct {
	template *bobyqa.Bobyqa
	start    []float64
}

// NewBobyqa creates a BOBYQA optimizer. The template supplies the number of
// interpolation conditions, the trust region radii and the call budget; the
// dimension and bounds come from Run. A nil start begins at the box center.
func NewBobyqa(template *bobyqa.Bobyqa, start []float64) Optimizer {
	return &BobyqaAdapter{
		template: template,
		start:    start,
	}
}

// DefaultInterpolationConditions returns 2n+1, the usual choice of npt.
func DefaultInterpolationConditions(dim int) int {
	return 2*dim + 1
}

// Run executes a single BOBYQA minimization
func (b *BobyqaAdapter) Run(eval func([]float64) float64, lower, upper []float64, dim int) ([]float64, float64, error) {
	if len(lower) < dim || len(upper) < dim {
		return nil, 0, fmt.Errorf("bounds need %d values, got %d and %d", dim, len(lower), len(upper))
	}

	config := b.template.Clone()
	if config.Variables() != dim {
		config.VariablesCount(dim)
	}
	if npt := config.InterpolationConditions(); npt < dim+2 || npt > (dim+1)*(dim+2)/2 {
		config.NumberOfInterpolationConditions(DefaultInterpolationConditions(dim))
	}
	config.LowerBound(lower[:dim]).UpperBound(upper[:dim])

	x := startPoint(b.start, lower, upper, dim)
	cost, err := config.Perform(x, eval)
	if err != nil {
		return nil, 0, fmt.Errorf("bobyqa: %w", err)
	}

	slog.Debug("BOBYQA run complete", "dim", dim, "npt", config.InterpolationConditions(), "cost", cost)
	return x, cost, nil
}
