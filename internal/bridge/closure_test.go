package bridge

import (
	"testing"
	"unsafe"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type objective func([]float64) float64

type counter struct {
	calls int
	seen  [][]float64
}

func (c *counter) Evaluate(x []float64) float64 {
	c.calls++
	c.seen = append(c.seen, append([]float64(nil), x...))
	return x[0] - x[1]
}

func TestNewRoundTrip(t *testing.T) {
	var captured int
	fn := func(x []float64) float64 {
		captured = len(x)
		return x[0]*10 + x[1]
	}
	rec := New(&fn)

	point := []float64{3, 4, 99}
	got := rec.Function(rec.Data, 2, &point[0])

	assert.Equal(t, 34.0, got)
	assert.Equal(t, 2, captured, "callable sees exactly n values")
	assert.Equal(t, unsafe.Pointer(&fn), rec.Data)
}

func TestNewNamedFuncType(t *testing.T) {
	sum := objective(func(x []float64) float64 {
		total := 0.0
		for _, v := range x {
			total += v
		}
		return total
	})
	rec := New(&sum)

	point := []float64{1, 2, 3}
	assert.Equal(t, 6.0, rec.Function(rec.Data, 3, &point[0]))
}

func TestNewMutKeepsState(t *testing.T) {
	c := &counter{}
	var e Evaluator = c
	rec := NewMut(&e)

	a := []float64{5, 2}
	b := []float64{1, 1}
	assert.Equal(t, 3.0, rec.Function(rec.Data, 2, &a[0]))
	assert.Equal(t, 0.0, rec.Function(rec.Data, 2, &b[0]))

	require.Equal(t, 2, c.calls)
	assert.Equal(t, [][]float64{{5, 2}, {1, 1}}, c.seen)
}

func TestNewMutConcreteType(t *testing.T) {
	c := &counter{}
	rec := NewMut(&c)

	p := []float64{2, 7}
	got := rec.Function(rec.Data, 2, &p[0])

	assert.Equal(t, -5.0, got)
	assert.Equal(t, 1, c.calls, "evaluations update the caller's value")
}

func TestViewAliasesCallerBuffer(t *testing.T) {
	var view []float64
	fn := func(x []float64) float64 {
		view = x
		return 0
	}
	rec := New(&fn)

	buf := []float64{1, 2}
	rec.Function(rec.Data, 2, &buf[0])
	buf[0] = 42

	assert.Equal(t, 42.0, view[0])
}
