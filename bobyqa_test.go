package bobyqa

import (
	"errors"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cwbudde/bobyqa/internal/engine"
)

func sum(x []float64) float64 {
	total := 0.0
	for _, v := range x {
		total += v
	}
	return total
}

func TestWorkingSpaceSize(t *testing.T) {
	assert.Equal(t, 117, WorkingSpaceSize(4, 2))
	assert.Equal(t, 171, WorkingSpaceSize(5, 3))

	for n := 2; n <= 8; n++ {
		for npt := n + 2; npt <= (n+1)*(n+2)/2; npt++ {
			assert.GreaterOrEqual(t, WorkingSpaceSize(npt, n), engine.RequiredWorkspace(npt, n),
				"npt=%d n=%d", npt, n)
		}
	}
}

func TestDefaults(t *testing.T) {
	b := New()

	assert.Equal(t, 2, b.Variables())
	assert.Equal(t, 4, b.InterpolationConditions())
	initial, final := b.Radii()
	assert.Equal(t, 1e-6, initial)
	assert.Equal(t, 1e6, final)
	lower, upper := b.Bounds()
	assert.Equal(t, []float64{0, 0}, lower)
	assert.Equal(t, []float64{1, 1}, upper)
	assert.Equal(t, 1000, b.MaxFunctionCalls())
	assert.NoError(t, b.Err())
}

func TestPerformLinearDefaults(t *testing.T) {
	values := []float64{0.5, 0.5}

	result, err := New().Perform(values, func(x []float64) float64 { return x[0] + x[1] })

	require.NoError(t, err)
	assert.Equal(t, []float64{0, 0}, values)
	assert.Equal(t, 0.0, result)
}

func TestPerformMutAllSettings(t *testing.T) {
	calls := 0
	values := []float64{1, -1, 0}
	lower := []float64{-3, -2, -1}
	upper := []float64{1, 2, 3}
	obj := ObjectiveFunc(func(x []float64) float64 {
		require.Len(t, x, 3)
		calls++
		return x[0] + x[1] + x[2]
	})

	result, err := New().
		VariablesCount(len(values)).
		NumberOfInterpolationConditions((len(values) + 1) * (len(values) + 2) / 2).
		InitialTrustRegionRadius(1e-3).
		FinalTrustRegionRadius(1e3).
		LowerBound(lower).
		UpperBound(upper).
		MaxFunctionCallsCount(25).
		PerformMut(values, obj)

	require.NoError(t, err)
	assert.Equal(t, lower, values)
	assert.Equal(t, -6.0, result)
	assert.Equal(t, 25, calls)
}

type tally struct {
	calls int
	best  float64
}

func (c *tally) Evaluate(x []float64) float64 {
	c.calls++
	f := (x[0]-0.3)*(x[0]-0.3) + (x[1]-0.6)*(x[1]-0.6)
	if c.calls == 1 || f < c.best {
		c.best = f
	}
	return f
}

func TestPerformMutObjectiveState(t *testing.T) {
	obj := &tally{}
	values := []float64{0.9, 0.1}

	result, err := New().
		NumberOfInterpolationConditions(5).
		InitialTrustRegionRadius(0.05).
		MaxFunctionCallsCount(300).
		PerformMut(values, obj)

	require.NoError(t, err)
	assert.Positive(t, obj.calls)
	assert.LessOrEqual(t, obj.calls, 300)
	assert.Equal(t, obj.best, result)
	assert.Less(t, result, 0.61)
	for _, v := range values {
		assert.GreaterOrEqual(t, v, 0.0)
		assert.LessOrEqual(t, v, 1.0)
	}
}

func TestPerformRespectsBudget(t *testing.T) {
	for _, budget := range []int{1, 4, 10, 40} {
		calls := 0
		values := []float64{0.2, 0.9, 0.4}
		b := New().
			VariablesCount(3).
			NumberOfInterpolationConditions(7).
			LowerBound([]float64{-1, -1, -1}).
			UpperBound([]float64{1, 1, 1}).
			InitialTrustRegionRadius(0.1).
			MaxFunctionCallsCount(budget)

		result, err := b.PerformMut(values, ObjectiveFunc(func(x []float64) float64 {
			calls++
			return math.Cos(3*x[0]) + x[1]*x[1] - x[2]
		}))

		require.NoError(t, err)
		assert.False(t, math.IsNaN(result), "budget %d", budget)
		assert.LessOrEqual(t, calls, budget, "budget %d", budget)
		for i, v := range values {
			assert.GreaterOrEqual(t, v, -1.0, "budget %d coordinate %d", budget, i)
			assert.LessOrEqual(t, v, 1.0, "budget %d coordinate %d", budget, i)
		}
	}
}

func TestPerformZeroBudget(t *testing.T) {
	calls := 0
	values := []float64{0.2, 0.9}
	b := New().MaxFunctionCallsCount(0)
	require.NoError(t, b.Err())

	_, err := b.PerformMut(values, ObjectiveFunc(func(x []float64) float64 {
		calls++
		return sum(x)
	}))

	var verr *ValidationError
	require.ErrorAs(t, err, &verr)
	assert.Equal(t, "MaxFunctionCallsCount", verr.Field)
	assert.Zero(t, calls)
	assert.Equal(t, []float64{0.2, 0.9}, values)
}

func TestPerformNarrowBox(t *testing.T) {
	b := New().InitialTrustRegionRadius(0.1).UpperBound([]float64{1, 0.1})
	require.NoError(t, b.Err())

	calls := 0
	values := []float64{0.05, 0.05}
	_, err := b.Perform(values, func(x []float64) float64 {
		calls++
		return sum(x)
	})
	assert.ErrorIs(t, err, ErrInvalidConfig)
	assert.Zero(t, calls)
	assert.Equal(t, []float64{0.05, 0.05}, values, "rejected run leaves the point untouched")

	_, err = b.PerformMut(values, ObjectiveFunc(sum))
	assert.ErrorIs(t, err, ErrInvalidConfig)
	assert.Equal(t, []float64{0.05, 0.05}, values)
}

func TestPerformDeterministic(t *testing.T) {
	run := func() ([]float64, float64) {
		values := []float64{-1.2, 1}
		b := New().
			NumberOfInterpolationConditions(6).
			LowerBound([]float64{-2, -2}).
			UpperBound([]float64{2, 2}).
			InitialTrustRegionRadius(0.1).
			MaxFunctionCallsCount(150)
		f, err := b.Perform(values, func(x []float64) float64 {
			a, c := 1-x[0], x[1]-x[0]*x[0]
			return a*a + 100*c*c
		})
		require.NoError(t, err)
		return values, f
	}
	v1, f1 := run()
	v2, f2 := run()
	assert.Equal(t, v1, v2)
	assert.Equal(t, f1, f2)
}

func TestPerformLeavesExtraValues(t *testing.T) {
	values := []float64{0.5, 0.5, 42}

	_, err := New().Perform(values, sum)

	require.NoError(t, err)
	assert.Equal(t, 42.0, values[2])
}

func TestSetterRejections(t *testing.T) {
	tests := []struct {
		name  string
		apply func(*Bobyqa) *Bobyqa
		field string
	}{
		{"one variable", func(b *Bobyqa) *Bobyqa { return b.VariablesCount(1) }, "VariablesCount"},
		{"three interpolation conditions", func(b *Bobyqa) *Bobyqa { return b.NumberOfInterpolationConditions(3) }, "NumberOfInterpolationConditions"},
		{"short lower bound", func(b *Bobyqa) *Bobyqa { return b.LowerBound([]float64{0}) }, "LowerBound"},
		{"short upper bound", func(b *Bobyqa) *Bobyqa { return b.UpperBound([]float64{1}) }, "UpperBound"},
		{"initial above final", func(b *Bobyqa) *Bobyqa { return b.InitialTrustRegionRadius(2e6) }, "InitialTrustRegionRadius"},
		{"final below initial", func(b *Bobyqa) *Bobyqa { return b.FinalTrustRegionRadius(1e-7) }, "FinalTrustRegionRadius"},
		{"NaN radius", func(b *Bobyqa) *Bobyqa { return b.InitialTrustRegionRadius(math.NaN()) }, "InitialTrustRegionRadius"},
		{"negative budget", func(b *Bobyqa) *Bobyqa { return b.MaxFunctionCallsCount(-5) }, "MaxFunctionCallsCount"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			b := New()
			before := b.Clone()

			got := tt.apply(b)

			assert.Same(t, b, got, "setters chain on the receiver")
			var verr *ValidationError
			require.ErrorAs(t, b.Err(), &verr)
			assert.Equal(t, tt.field, verr.Field)
			assert.ErrorIs(t, b.Err(), ErrInvalidConfig)

			before.err = b.err
			assert.Equal(t, before, b, "rejected setter leaves the configuration unchanged")

			calls := 0
			values := []float64{0.5, 0.5}
			_, err := b.Perform(values, func(x []float64) float64 {
				calls++
				return 0
			})
			assert.ErrorIs(t, err, ErrInvalidConfig)
			assert.Zero(t, calls)
			assert.Equal(t, []float64{0.5, 0.5}, values)
		})
	}
}

func TestFirstErrorWins(t *testing.T) {
	b := New().VariablesCount(0).NumberOfInterpolationConditions(1).VariablesCount(3)

	var verr *ValidationError
	require.ErrorAs(t, b.Err(), &verr)
	assert.Equal(t, "VariablesCount", verr.Field)
	assert.Equal(t, 3, b.Variables(), "valid setters still apply")
}

func TestCheck(t *testing.T) {
	tests := []struct {
		name   string
		config func() *Bobyqa
		values []float64
		field  string
	}{
		{"defaults", New, []float64{0.5, 0.5}, ""},
		{"too few values", New, []float64{0.5}, "values"},
		{"npt below n+2", func() *Bobyqa {
			return New().VariablesCount(3).LowerBound([]float64{0, 0, 0}).UpperBound([]float64{1, 1, 1})
		}, []float64{0, 0, 0}, "NumberOfInterpolationConditions"},
		{"npt above (n+1)(n+2)/2", func() *Bobyqa {
			return New().NumberOfInterpolationConditions(7)
		}, []float64{0.5, 0.5}, "NumberOfInterpolationConditions"},
		{"bounds cleared by wider problem", func() *Bobyqa {
			return New().VariablesCount(3).NumberOfInterpolationConditions(5)
		}, []float64{0, 0, 0}, "LowerBound"},
		{"upper bound cleared", func() *Bobyqa {
			return New().VariablesCount(3).NumberOfInterpolationConditions(5).LowerBound([]float64{0, 0, 0})
		}, []float64{0, 0, 0}, "UpperBound"},
		{"zero budget", func() *Bobyqa {
			return New().MaxFunctionCallsCount(0)
		}, []float64{0.5, 0.5}, "MaxFunctionCallsCount"},
		{"box narrower than twice the initial radius", func() *Bobyqa {
			return New().InitialTrustRegionRadius(0.1).UpperBound([]float64{1, 0.1})
		}, []float64{0.05, 0.05}, "UpperBound"},
		{"reversed bounds", func() *Bobyqa {
			return New().LowerBound([]float64{1, 0}).UpperBound([]float64{0, 1})
		}, []float64{0.5, 0.5}, "UpperBound"},
		{"box exactly twice the initial radius", func() *Bobyqa {
			return New().InitialTrustRegionRadius(0.5)
		}, []float64{0.5, 0.5}, ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			b := tt.config()
			require.NoError(t, b.Err())

			err := b.Check(tt.values)

			if tt.field == "" {
				assert.NoError(t, err)
				return
			}
			var verr *ValidationError
			require.ErrorAs(t, err, &verr)
			assert.Equal(t, tt.field, verr.Field)
		})
	}
}

func TestWidenKeepsLongBounds(t *testing.T) {
	b := New().
		LowerBound([]float64{0, 0, 0}).
		UpperBound([]float64{1, 1, 1}).
		VariablesCount(3)

	lower, upper := b.Bounds()
	assert.Equal(t, []float64{0, 0, 0}, lower)
	assert.Equal(t, []float64{1, 1, 1}, upper)
}

func TestBoundsAreCopied(t *testing.T) {
	lower := []float64{-1, -1}
	b := New().LowerBound(lower)
	lower[0] = 5

	got, _ := b.Bounds()
	assert.Equal(t, []float64{-1, -1}, got)

	got[1] = 7
	again, _ := b.Bounds()
	assert.Equal(t, []float64{-1, -1}, again)
}

func TestDefaultsAreIndependent(t *testing.T) {
	a := New()
	a.lowerBound[0] = -10

	lower, _ := New().Bounds()
	assert.Equal(t, []float64{0, 0}, lower)
}

func TestClone(t *testing.T) {
	a := New().VariablesCount(3).NumberOfInterpolationConditions(6).
		LowerBound([]float64{0, 0, 0}).UpperBound([]float64{1, 1, 1})
	c := a.Clone()
	c.MaxFunctionCallsCount(5).LowerBound([]float64{-1, -1, -1})

	assert.Equal(t, 1000, a.MaxFunctionCalls())
	lower, _ := a.Bounds()
	assert.Equal(t, []float64{0, 0, 0}, lower)
	assert.Equal(t, 5, c.MaxFunctionCalls())
}

func TestValidationErrorMatching(t *testing.T) {
	err := New().VariablesCount(1).Err()

	assert.True(t, errors.Is(err, ErrInvalidConfig))
	assert.True(t, errors.Is(err, &ValidationError{}))
	assert.Contains(t, err.Error(), "VariablesCount")
}

func TestObjectiveFunc(t *testing.T) {
	n := 0
	var obj Objective = ObjectiveFunc(func(x []float64) float64 {
		n++
		return x[0] * 2
	})

	assert.Equal(t, 8.0, obj.Evaluate([]float64{4}))
	assert.Equal(t, 1, n)
}
