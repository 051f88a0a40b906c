package bobyqa

// Func is an objective without state of its own.
type Func func(x []float64) float64

// Objective is an objective that may update its own state on every
// evaluation, such as a call counter or a trace.
type Objective interface {
	Evaluate(x []float64) float64
}

// ObjectiveFunc adapts a closure to Objective. The closure may capture and
// modify variables of the caller.
type ObjectiveFunc func(x []float64) float64

// Evaluate calls f(x).
func (f ObjectiveFunc) Evaluate(x []float64) float64 {
	return f(x)
}
