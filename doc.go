// Package bobyqa minimizes a function of several bounded real variables
// without derivatives, using Powell's BOBYQA method.
//
// A Bobyqa value holds the run configuration. It is built with New and
// adjusted with chained setters:
//
//	b := bobyqa.New().
//		VariablesCount(3).
//		NumberOfInterpolationConditions(10).
//		LowerBound([]float64{-3, -2, -1}).
//		UpperBound([]float64{1, 2, 3}).
//		MaxFunctionCallsCount(25)
//	f, err := b.Perform(x, func(x []float64) float64 { return x[0] + x[1] + x[2] })
//
// A setter that receives an invalid value leaves the configuration unchanged
// and records a *ValidationError. The first recorded error is reported by
// Err and returned by every later Perform or PerformMut call, before the
// objective is evaluated.
//
// The objective receives a view of exactly VariablesCount values. The view
// belongs to the optimizer and must not be retained after the call returns.
package bobyqa
