package problem

import (
	"fmt"
	"math"
	"slices"

	"gonum.org/v1/gonum/floats"
)

// Problem is a bounded benchmark objective.
type Problem struct {
	Name  string
	Dim   int
	Lower []float64
	Upper []float64
	Start []float64
	Func  func([]float64) float64

	// Minimum is the lowest value of Func inside the box.
	Minimum float64
}

type definition struct {
	fixedDim int // 0 = any dimension of at least 2
	build    func(dim int) *Problem
}

var catalogue = map[string]definition{
	"linear":     {build: linear},
	"sphere":     {build: sphere},
	"rosenbrock": {build: rosenbrock},
	"demo":       {fixedDim: 2, build: demo},
}

// Names returns the catalogue entries in sorted order.
func Names() []string {
	names := make([]string, 0, len(catalogue))
	for name := range catalogue {
		names = append(names, name)
	}
	slices.Sort(names)
	return names
}

// Lookup builds the named problem in dim dimensions. A dim of zero selects
// the problem's default dimension.
func Lookup(name string, dim int) (*Problem, error) {
	def, ok := catalogue[name]
	if !ok {
		return nil, fmt.Errorf("unknown problem %q (available: %v)", name, Names())
	}
	if dim == 0 {
		dim = max(def.fixedDim, 2)
	}
	if def.fixedDim != 0 && dim != def.fixedDim {
		return nil, fmt.Errorf("problem %s has exactly %d variables, got %d", name, def.fixedDim, dim)
	}
	if dim < 2 {
		return nil, fmt.Errorf("problem %s needs at least 2 variables, got %d", name, dim)
	}
	return def.build(dim), nil
}

// Contains reports whether x lies inside the box.
func (p *Problem) Contains(x []float64) bool {
	for i := 0; i < p.Dim; i++ {
		if x[i] < p.Lower[i] || x[i] > p.Upper[i] {
			return false
		}
	}
	return true
}

// Clamp clamps x into the box in place.
func (p *Problem) Clamp(x []float64) {
	for i := 0; i < p.Dim; i++ {
		x[i] = math.Max(p.Lower[i], math.Min(p.Upper[i], x[i]))
	}
}

func filled(n int, v float64) []float64 {
	out := make([]float64, n)
	for i := range out {
		out[i] = v
	}
	return out
}

// linear is the sum of the variables over [0,1]^n, minimized at the origin.
func linear(dim int) *Problem {
	return &Problem{
		Name:    "linear",
		Dim:     dim,
		Lower:   filled(dim, 0),
		Upper:   filled(dim, 1),
		Start:   filled(dim, 0.5),
		Func:    floats.Sum,
		Minimum: 0,
	}
}

// sphere is the squared distance to an interior point with alternating
// coordinates 1 and -1.
func sphere(dim int) *Problem {
	center := make([]float64, dim)
	for i := range center {
		center[i] = 1 - 2*float64(i%2)
	}
	return &Problem{
		Name:  "sphere",
		Dim:   dim,
		Lower: filled(dim, -5),
		Upper: filled(dim, 5),
		Start: filled(dim, 3),
		Func: func(x []float64) float64 {
			d := floats.Distance(x, center, 2)
			return d * d
		},
		Minimum: 0,
	}
}

// rosenbrock is the extended Rosenbrock valley, minimized at all ones.
func rosenbrock(dim int) *Problem {
	start := make([]float64, dim)
	for i := range start {
		start[i] = -1.2
		if i%2 == 1 {
			start[i] = 1
		}
	}
	return &Problem{
		Name:  "rosenbrock",
		Dim:   dim,
		Lower: filled(dim, -2),
		Upper: filled(dim, 2),
		Start: start,
		Func: func(x []float64) float64 {
			var sum float64
			for i := 0; i+1 < len(x); i++ {
				a := 1 - x[i]
				b := x[i+1] - x[i]*x[i]
				sum += a*a + 100*b*b
			}
			return sum
		},
		Minimum: 0,
	}
}

// demo is the quadratic -4xy + 5x² + 8y² + 16√5x + 8√5y - 44 on
// [-4,5]x[-3,5]. Its unconstrained minimum lies outside the box, so the
// solution sits on the x = -4 face at y = -1 - √5/2.
func demo(int) *Problem {
	sqrt5 := math.Sqrt(5)
	return &Problem{
		Name:  "demo",
		Dim:   2,
		Lower: []float64{-4, -3},
		Upper: []float64{5, 5},
		Start: []float64{0, -sqrt5},
		Func: func(x []float64) float64 {
			return -4*x[0]*x[1] + 5*x[0]*x[0] + 8*x[1]*x[1] + 16*sqrt5*x[0] + 8*sqrt5*x[1] - 44
		},
		Minimum: 18 - 72*sqrt5,
	}
}
