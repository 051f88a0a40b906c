package problem

import (
	"math"
	"slices"
	"sync"
)

// Evaluation describes one call of a counted objective.
type Evaluation struct {
	Index  int // 1-based
	Params []float64
	Cost   float64
	Best   float64
}

// Counter wraps an objective, counting calls and tracking the best point.
// It is safe for concurrent use and satisfies bobyqa.Objective.
type Counter struct {
	fn      func([]float64) float64
	observe func(Evaluation)

	mu         sync.Mutex
	count      int
	bestCost   float64
	bestParams []float64
}

// NewCounter wraps fn. observe, when not nil, is called after every
// evaluation in call order with a copy of the evaluated point.
func NewCounter(fn func([]float64) float64, observe func(Evaluation)) *Counter {
	return &Counter{
		fn:       fn,
		observe:  observe,
		bestCost: math.Inf(1),
	}
}

// Evaluate calls the wrapped objective.
func (c *Counter) Evaluate(x []float64) float64 {
	cost := c.fn(x)

	c.mu.Lock()
	defer c.mu.Unlock()

	c.count++
	params := slices.Clone(x)
	if cost < c.bestCost {
		c.bestCost = cost
		c.bestParams = params
	}
	if c.observe != nil {
		c.observe(Evaluation{Index: c.count, Params: params, Cost: cost, Best: c.bestCost})
	}
	return cost
}

// Count returns the number of evaluations so far.
func (c *Counter) Count() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.count
}

// Best returns a copy of the best point seen and its cost. The cost is +Inf
// before the first evaluation.
func (c *Counter) Best() ([]float64, float64) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return slices.Clone(c.bestParams), c.bestCost
}
