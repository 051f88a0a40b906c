package opt

import "math"

// Optimizer defines an optimization algorithm interface
type Optimizer interface {
	// Run minimizes eval over the box [lower, upper] in dim dimensions and
	// returns the best parameters and their cost. Bounds must hold at least
	// dim values.
	Run(eval func([]float64) float64, lower, upper []float64, dim int) ([]float64, float64, error)
}

// startPoint returns a copy of start clamped into the box, or the box center
// when start is nil.
func startPoint(start, lower, upper []float64, dim int) []float64 {
	x := make([]float64, dim)
	for i := range x {
		if start != nil && i < len(start) {
			x[i] = clamp(start[i], lower[i], upper[i])
		} else {
			x[i] = lower[i] + 0.5*(upper[i]-lower[i])
		}
	}
	return x
}

// clampInto writes x clamped into the box to dst.
func clampInto(dst, x, lower, upper []float64) []float64 {
	for i := range dst {
		dst[i] = clamp(x[i], lower[i], upper[i])
	}
	return dst
}

func clamp(val, lo, hi float64) float64 {
	return math.Max(lo, math.Min(hi, val))
}
