package opt

import (
	"fmt"
	"log/slog"
)

// Chain runs a global optimizer and then polishes its best point with a
// local one, keeping whichever result is lower.
type Chain struct {
	global Optimizer
	local  StartFunc
}

// NewChain creates a global-then-local optimizer.
func NewChain(global Optimizer, local StartFunc) Optimizer {
	return &Chain{
		global: global,
		local:  local,
	}
}

// Run executes both stages
func (c *Chain) Run(eval func([]float64) float64, lower, upper []float64, dim int) ([]float64, float64, error) {
	seed, seedCost, err := c.global.Run(eval, lower, upper, dim)
	if err != nil {
		return nil, 0, fmt.Errorf("global stage: %w", err)
	}

	polished, cost, err := c.local(seed).Run(eval, lower, upper, dim)
	if err != nil {
		slog.Warn("Local stage failed, keeping global result", "error", err, "cost", seedCost)
		return seed, seedCost, nil
	}

	slog.Debug("Chain complete", "global_cost", seedCost, "local_cost", cost)
	if cost <= seedCost {
		return polished, cost, nil
	}
	return seed, seedCost, nil
}
