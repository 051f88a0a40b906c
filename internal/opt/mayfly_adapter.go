package opt

import (
	"fmt"
	"math/rand"

	"github.com/cwbudde/mayfly"
)

// MayflyAdapter wraps the external Mayfly library to conform to our Optimizer interface
type MayflyAdapter struct {
	maxIters int
	popSize  int
	seed     int64
}

// NewMayfly creates a new Mayfly optimizer adapter. Mayfly v0.1.0 needs a
// population of at least 20.
func NewMayfly(maxIters, popSize int, seed int64) Optimizer {
	return &MayflyAdapter{
		maxIters: maxIters,
		popSize:  popSize,
		seed:     seed,
	}
}

// Run executes the Mayfly optimization using the external library.
// Mayfly only supports one scalar range for all dimensions, so the search
// runs in the unit cube and positions are mapped onto [lower, upper].
func (m *MayflyAdapter) Run(eval func([]float64) float64, lower, upper []float64, dim int) ([]float64, float64, error) {
	if len(lower) < dim || len(upper) < dim {
		return nil, 0, fmt.Errorf("bounds need %d values, got %d and %d", dim, len(lower), len(upper))
	}

	config := mayfly.NewDefaultConfig()
	config.ObjectiveFunc = func(u []float64) float64 {
		return eval(fromUnit(make([]float64, dim), u, lower, upper))
	}
	config.ProblemSize = dim
	config.MaxIterations = m.maxIters
	config.NPop = m.popSize
	config.LowerBound = 0
	config.UpperBound = 1
	config.Rand = rand.New(rand.NewSource(m.seed))

	result, err := mayfly.Optimize(config)
	if err != nil {
		return nil, 0, fmt.Errorf("mayfly: %w", err)
	}

	best := fromUnit(make([]float64, dim), result.GlobalBest.Position, lower, upper)
	return best, result.GlobalBest.Cost, nil
}

// fromUnit maps u from the unit cube onto the box, clamping stray
// coordinates.
func fromUnit(dst, u, lower, upper []float64) []float64 {
	for i := range dst {
		dst[i] = lower[i] + clamp(u[i], 0, 1)*(upper[i]-lower[i])
	}
	return dst
}
