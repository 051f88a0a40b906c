package opt

import (
	"errors"
	"fmt"
	"log/slog"
	"math/rand"
	"runtime"

	"github.com/sourcegraph/conc/pool"
)

// StartFunc builds the optimizer used for one starting point.
type StartFunc func(start []float64) Optimizer

// MultiStart runs an optimizer from several starting points concurrently
// and keeps the best result. The objective must be safe for concurrent use.
type MultiStart struct {
	factory StartFunc
	starts  int
	seed    int64
	workers int
}

// NewMultiStart creates a multi-start optimizer. The first start is the box
// center, the others are drawn uniformly from the box using seed. workers
// limits concurrency; zero or less uses GOMAXPROCS.
func NewMultiStart(factory StartFunc, starts int, seed int64, workers int) Optimizer {
	if workers <= 0 {
		workers = runtime.GOMAXPROCS(0)
	}
	return &MultiStart{
		factory: factory,
		starts:  max(starts, 1),
		seed:    seed,
		workers: workers,
	}
}

// StartPoints returns the starting points Run uses for the given box.
func (m *MultiStart) StartPoints(lower, upper []float64, dim int) [][]float64 {
	rng := rand.New(rand.NewSource(m.seed))
	points := make([][]float64, m.starts)
	points[0] = startPoint(nil, lower, upper, dim)
	for s := 1; s < m.starts; s++ {
		p := make([]float64, dim)
		for i := range p {
			p[i] = lower[i] + rng.Float64()*(upper[i]-lower[i])
		}
		points[s] = p
	}
	return points
}

type startOutcome struct {
	params []float64
	cost   float64
	err    error
}

// Run optimizes from every start and returns the lowest cost found. Ties go
// to the earlier start.
func (m *MultiStart) Run(eval func([]float64) float64, lower, upper []float64, dim int) ([]float64, float64, error) {
	if len(lower) < dim || len(upper) < dim {
		return nil, 0, fmt.Errorf("bounds need %d values, got %d and %d", dim, len(lower), len(upper))
	}

	points := m.StartPoints(lower, upper, dim)
	outcomes := make([]startOutcome, len(points))

	p := pool.New().WithMaxGoroutines(m.workers)
	for i, start := range points {
		p.Go(func() {
			params, cost, err := m.factory(start).Run(eval, lower, upper, dim)
			outcomes[i] = startOutcome{params: params, cost: cost, err: err}
		})
	}
	p.Wait()

	best := -1
	var errs []error
	for i, o := range outcomes {
		if o.err != nil {
			errs = append(errs, fmt.Errorf("start %d: %w", i, o.err))
			continue
		}
		if best < 0 || o.cost < outcomes[best].cost {
			best = i
		}
	}
	if best < 0 {
		return nil, 0, errors.Join(errs...)
	}

	slog.Debug("Multi-start complete", "starts", len(points), "failed", len(errs), "best_start", best, "best_cost", outcomes[best].cost)
	return outcomes[best].params, outcomes[best].cost, nil
}
