package bobyqa

import (
	"fmt"
	"log/slog"
	"runtime"
	"slices"

	"github.com/cwbudde/bobyqa/internal/bridge"
	"github.com/cwbudde/bobyqa/internal/engine"
)

const (
	defaultVariablesCount                  = 2
	defaultNumberOfInterpolationConditions = defaultVariablesCount + 2
	defaultInitialTrustRegionRadius        = 1e-6
	defaultFinalTrustRegionRadius          = 1e6
	defaultMaxFunctionCallsCount           = 1000
)

// Default bounds of the two default variables. Every configuration gets its
// own copy.
var (
	defaultLowerBound = [defaultVariablesCount]float64{0, 0}
	defaultUpperBound = [defaultVariablesCount]float64{1, 1}
)

// Bobyqa is the configuration of a bounded minimization. The zero value is
// not usable; create configurations with New.
type Bobyqa struct {
	variablesCount                  int
	numberOfInterpolationConditions int
	initialTrustRegionRadius        float64
	finalTrustRegionRadius          float64
	lowerBound                      []float64
	upperBound                      []float64
	maxFunctionCallsCount           int

	err error
}

// New returns a configuration for two variables in the unit box with four
// interpolation conditions, trust region radii 1e-6 and 1e6 and a budget of
// 1000 function calls.
func New() *Bobyqa {
	return &Bobyqa{
		variablesCount:                  defaultVariablesCount,
		numberOfInterpolationConditions: defaultNumberOfInterpolationConditions,
		initialTrustRegionRadius:        defaultInitialTrustRegionRadius,
		finalTrustRegionRadius:          defaultFinalTrustRegionRadius,
		lowerBound:                      slices.Clone(defaultLowerBound[:]),
		upperBound:                      slices.Clone(defaultUpperBound[:]),
		maxFunctionCallsCount:           defaultMaxFunctionCallsCount,
	}
}

// reject records the first invalid setter call.
func (b *Bobyqa) reject(field, reason string) *Bobyqa {
	if b.err == nil {
		b.err = &ValidationError{Field: field, Reason: reason}
	}
	return b
}

// VariablesCount sets the number of variables, which must be at least 2.
// Bounds shorter than the new count are cleared and must be set again.
func (b *Bobyqa) VariablesCount(value int) *Bobyqa {
	if value < 2 {
		return b.reject("VariablesCount", fmt.Sprintf("must be at least 2, got %d", value))
	}
	b.variablesCount = value
	if b.lowerBound != nil && len(b.lowerBound) < value {
		b.lowerBound = nil
	}
	if b.upperBound != nil && len(b.upperBound) < value {
		b.upperBound = nil
	}
	return b
}

// NumberOfInterpolationConditions sets npt, which must be at least 4. The
// range n+2 <= npt <= (n+1)(n+2)/2 is checked when a run starts.
func (b *Bobyqa) NumberOfInterpolationConditions(value int) *Bobyqa {
	if value < 4 {
		return b.reject("NumberOfInterpolationConditions", fmt.Sprintf("must be at least 4, got %d", value))
	}
	b.numberOfInterpolationConditions = value
	return b
}

// LowerBound sets the lower bounds. The slice is copied and must hold at
// least VariablesCount values.
func (b *Bobyqa) LowerBound(value []float64) *Bobyqa {
	if len(value) < b.variablesCount {
		return b.reject("LowerBound", fmt.Sprintf("needs %d values, got %d", b.variablesCount, len(value)))
	}
	b.lowerBound = slices.Clone(value)
	return b
}

// UpperBound sets the upper bounds. The slice is copied and must hold at
// least VariablesCount values.
func (b *Bobyqa) UpperBound(value []float64) *Bobyqa {
	if len(value) < b.variablesCount {
		return b.reject("UpperBound", fmt.Sprintf("needs %d values, got %d", b.variablesCount, len(value)))
	}
	b.upperBound = slices.Clone(value)
	return b
}

// InitialTrustRegionRadius sets rhobeg. It may not exceed the final radius.
func (b *Bobyqa) InitialTrustRegionRadius(value float64) *Bobyqa {
	if !(value <= b.finalTrustRegionRadius) {
		return b.reject("InitialTrustRegionRadius",
			fmt.Sprintf("must not exceed the final radius %g, got %g", b.finalTrustRegionRadius, value))
	}
	b.initialTrustRegionRadius = value
	return b
}

// FinalTrustRegionRadius sets rhoend. It may not be below the initial
// radius.
func (b *Bobyqa) FinalTrustRegionRadius(value float64) *Bobyqa {
	if !(value >= b.initialTrustRegionRadius) {
		return b.reject("FinalTrustRegionRadius",
			fmt.Sprintf("must not be below the initial radius %g, got %g", b.initialTrustRegionRadius, value))
	}
	b.finalTrustRegionRadius = value
	return b
}

// MaxFunctionCallsCount sets the evaluation budget of a run. A run never
// calls the objective more often; a budget of zero is refused by Check.
func (b *Bobyqa) MaxFunctionCallsCount(value int) *Bobyqa {
	if value < 0 {
		return b.reject("MaxFunctionCallsCount", fmt.Sprintf("cannot be negative, got %d", value))
	}
	b.maxFunctionCallsCount = value
	return b
}

// Err returns the first error recorded by a setter, or nil.
func (b *Bobyqa) Err() error {
	return b.err
}

// Check reports whether a run starting from values may proceed.
func (b *Bobyqa) Check(values []float64) error {
	n := b.variablesCount
	npt := b.numberOfInterpolationConditions
	switch {
	case len(values) < n:
		return &ValidationError{Field: "values", Reason: fmt.Sprintf("needs %d values, got %d", n, len(values))}
	case npt < n+2:
		return &ValidationError{Field: "NumberOfInterpolationConditions",
			Reason: fmt.Sprintf("must be at least %d for %d variables, got %d", n+2, n, npt)}
	case npt > (n+1)*(n+2)/2:
		return &ValidationError{Field: "NumberOfInterpolationConditions",
			Reason: fmt.Sprintf("must be at most %d for %d variables, got %d", (n+1)*(n+2)/2, n, npt)}
	case b.lowerBound == nil:
		return &ValidationError{Field: "LowerBound", Reason: "is not set"}
	case b.upperBound == nil:
		return &ValidationError{Field: "UpperBound", Reason: "is not set"}
	case len(b.lowerBound) < n:
		return &ValidationError{Field: "LowerBound", Reason: fmt.Sprintf("needs %d values, got %d", n, len(b.lowerBound))}
	case len(b.upperBound) < n:
		return &ValidationError{Field: "UpperBound", Reason: fmt.Sprintf("needs %d values, got %d", n, len(b.upperBound))}
	case b.maxFunctionCallsCount < 1:
		return &ValidationError{Field: "MaxFunctionCallsCount",
			Reason: "must be at least 1 to evaluate the starting point"}
	}
	// Every variable needs room for the initial interpolation points.
	gap := 2 * b.initialTrustRegionRadius
	for i := 0; i < n; i++ {
		if !(b.upperBound[i]-b.lowerBound[i] >= gap) {
			return &ValidationError{Field: "UpperBound",
				Reason: fmt.Sprintf("component %d is %g above the lower bound, need at least twice the initial radius %g",
					i, b.upperBound[i]-b.lowerBound[i], gap)}
		}
	}
	return nil
}

func (b *Bobyqa) validate(values []float64) error {
	if b.err != nil {
		return b.err
	}
	return b.Check(values)
}

// Perform minimizes fn starting from values. The first VariablesCount
// entries of values are replaced by the best point found and the value of
// fn there is returned. An invalid configuration is reported before fn is
// called.
func (b *Bobyqa) Perform(values []float64, fn Func) (float64, error) {
	if err := b.validate(values); err != nil {
		return 0, err
	}
	closure := bridge.New(&fn)
	res := engine.MinimizeClosureConst(&closure,
		int64(b.variablesCount),
		int64(b.numberOfInterpolationConditions),
		values,
		b.lowerBound,
		b.upperBound,
		b.initialTrustRegionRadius,
		b.finalTrustRegionRadius,
		int64(b.maxFunctionCallsCount),
		b.workingSpace(),
	)
	runtime.KeepAlive(&fn)
	return b.finish("perform", res)
}

// PerformMut is Perform for an objective that changes its own state while
// it is evaluated.
func (b *Bobyqa) PerformMut(values []float64, obj Objective) (float64, error) {
	if err := b.validate(values); err != nil {
		return 0, err
	}
	closure := bridge.NewMut(&obj)
	res := engine.MinimizeClosure(&closure,
		int64(b.variablesCount),
		int64(b.numberOfInterpolationConditions),
		values,
		b.lowerBound,
		b.upperBound,
		b.initialTrustRegionRadius,
		b.finalTrustRegionRadius,
		int64(b.maxFunctionCallsCount),
		b.workingSpace(),
	)
	runtime.KeepAlive(&obj)
	return b.finish("perform_mut", res)
}

func (b *Bobyqa) finish(mode string, res engine.Result) (float64, error) {
	slog.Debug("bobyqa run finished",
		"mode", mode,
		"variables", b.variablesCount,
		"interpolation_conditions", b.numberOfInterpolationConditions,
		"max_calls", b.maxFunctionCallsCount,
		"evaluations", res.Evaluations,
		"status", res.Status.String(),
		"result", res.F)
	if res.Status.Failed() {
		return 0, fmt.Errorf("%w: routine rejected the arguments: %s", ErrInvalidConfig, res.Status)
	}
	return res.F, nil
}

// Clone returns an independent copy of the configuration, including a
// recorded error.
func (b *Bobyqa) Clone() *Bobyqa {
	c := *b
	c.lowerBound = slices.Clone(b.lowerBound)
	c.upperBound = slices.Clone(b.upperBound)
	return &c
}

// Variables returns the number of variables.
func (b *Bobyqa) Variables() int { return b.variablesCount }

// InterpolationConditions returns npt.
func (b *Bobyqa) InterpolationConditions() int { return b.numberOfInterpolationConditions }

// Radii returns the initial and final trust region radii.
func (b *Bobyqa) Radii() (initial, final float64) {
	return b.initialTrustRegionRadius, b.finalTrustRegionRadius
}

// Bounds returns copies of the lower and upper bounds. A cleared bound is
// nil.
func (b *Bobyqa) Bounds() (lower, upper []float64) {
	return slices.Clone(b.lowerBound), slices.Clone(b.upperBound)
}

// MaxFunctionCalls returns the evaluation budget.
func (b *Bobyqa) MaxFunctionCalls() int { return b.maxFunctionCallsCount }
