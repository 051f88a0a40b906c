// Package engine implements Powell's BOBYQA algorithm for bound constrained
// minimization without derivatives.
//
// Callers reach the algorithm through a fixed calling contract: a callback
// record holding an opaque data pointer and an entry point, the problem
// sizes as int64, the point, bound and scratch buffers, and the trust region
// radii. The contract has two variants that differ only in whether the
// callback record is treated as mutable.
package engine

import (
	"fmt"
	"math"
	"unsafe"
)

// Function is the entry point of an immutable callback record. It receives
// the record's data pointer, the number of variables and a pointer to the
// first of n contiguous values.
type Function func(data unsafe.Pointer, n int64, x *float64) float64

// FunctionMut is the entry point of a mutable callback record.
type FunctionMut func(data unsafe.Pointer, n int64, x *float64) float64

// Closure is a callback record whose captured state is read only.
type Closure struct {
	Data     unsafe.Pointer
	Function Function
}

// ClosureMut is a callback record whose captured state may change on every
// call.
type ClosureMut struct {
	Data     unsafe.Pointer
	Function FunctionMut
}

// Result describes the outcome of one call of Minimize.
type Result struct {
	F           float64 // Objective value at the returned point
	Status      Status  // Reason the iteration stopped
	Evaluations int     // Number of objective calls
}

// BobyqaClosure minimizes the function behind a mutable callback record.
// The final point is written into x and the corresponding value returned.
func BobyqaClosure(function *ClosureMut, n, npt int64, x, xl, xu []float64,
	rhobeg, rhoend float64, maxfun int64, w []float64) float64 {
	return MinimizeClosure(function, n, npt, x, xl, xu, rhobeg, rhoend, maxfun, w).F
}

// BobyqaClosureConst minimizes the function behind an immutable callback
// record. The record itself is never written.
func BobyqaClosureConst(function *Closure, n, npt int64, x, xl, xu []float64,
	rhobeg, rhoend float64, maxfun int64, w []float64) float64 {
	return MinimizeClosureConst(function, n, npt, x, xl, xu, rhobeg, rhoend, maxfun, w).F
}

// MinimizeClosure is BobyqaClosure reporting the full Result.
func MinimizeClosure(function *ClosureMut, n, npt int64, x, xl, xu []float64,
	rhobeg, rhoend float64, maxfun int64, w []float64) Result {
	calfun := func(v []float64) float64 {
		return function.Function(function.Data, n, &v[0])
	}
	return Minimize(calfun, int(n), int(npt), x, xl, xu, rhobeg, rhoend, int(maxfun), w)
}

// MinimizeClosureConst is BobyqaClosureConst reporting the full Result.
func MinimizeClosureConst(function *Closure, n, npt int64, x, xl, xu []float64,
	rhobeg, rhoend float64, maxfun int64, w []float64) Result {
	calfun := func(v []float64) float64 {
		return function.Function(function.Data, n, &v[0])
	}
	return Minimize(calfun, int(n), int(npt), x, xl, xu, rhobeg, rhoend, int(maxfun), w)
}

// RequiredWorkspace returns the number of scratch values the algorithm
// partitions for n variables and npt interpolation conditions.
func RequiredWorkspace(npt, n int) int {
	return (npt+5)*(npt+n) + 3*n*(n+5)/2
}

// Minimize runs BOBYQA on calfun. The variables are constrained to
// xl[i] <= x[i] <= xu[i]; npt must lie in [n+2, (n+1)(n+2)/2]. On return
// x holds the best point found. The scratch buffer w must hold at least
// RequiredWorkspace(npt, n) values; a shorter buffer is a programming error
// and panics.
func Minimize(calfun func([]float64) float64, n, npt int, x, xl, xu []float64,
	rhobeg, rhoend float64, maxfun int, w []float64) Result {
	if n < 1 || len(x) < n || len(xl) < n || len(xu) < n {
		panic(fmt.Sprintf("engine: buffers shorter than %d variables", n))
	}
	np := n + 1
	if npt < n+2 || npt > ((n+2)*np)/2 {
		return Result{F: math.NaN(), Status: InvalidInterpolationConditions}
	}
	if need := RequiredWorkspace(npt, n); len(w) < need {
		panic(fmt.Sprintf("engine: workspace holds %d values, need %d", len(w), need))
	}
	// x is left untouched when the arguments are rejected.
	for j := 0; j < n; j++ {
		if !(xu[j]-xl[j] >= rhobeg+rhobeg) {
			return Result{F: math.NaN(), Status: BoundsTooClose}
		}
	}
	if maxfun < 1 {
		return Result{F: math.NaN(), Status: NoBudget}
	}

	s := newState(calfun, n, npt, x[:n], xl, xu, w)

	// Move x0 inside the feasible region so that every initial
	// interpolation point is feasible, and record the bound distances.
	for j := 0; j < n; j++ {
		temp := xu[j] - xl[j]
		s.sl[j] = xl[j] - x[j]
		s.su[j] = xu[j] - x[j]
		if s.sl[j] >= -rhobeg {
			if s.sl[j] >= 0 {
				x[j] = xl[j]
				s.sl[j] = 0
				s.su[j] = temp
			} else {
				x[j] = xl[j] + rhobeg
				s.sl[j] = -rhobeg
				s.su[j] = math.Max(xu[j]-x[j], rhobeg)
			}
		} else if s.su[j] <= rhobeg {
			if s.su[j] <= 0 {
				x[j] = xu[j]
				s.sl[j] = -temp
				s.su[j] = 0
			} else {
				x[j] = xu[j] - rhobeg
				s.sl[j] = math.Min(xl[j]-x[j], -rhobeg)
				s.su[j] = rhobeg
			}
		}
	}

	f, status := s.bobyqb(rhobeg, rhoend, maxfun)
	return Result{F: f, Status: status, Evaluations: s.nf}
}

// state holds the partitioned workspace of one run. Matrices are row views
// into the scratch buffer: xpt[k][j] is coordinate j of interpolation point
// k, bmat[i][j] and zmat[k][j] follow the same convention.
type state struct {
	n, npt, ndim int
	calfun       func([]float64) float64
	nf           int

	x, xl, xu []float64

	xbase, fval, xopt, gopt, hq, pq []float64
	sl, su, xnew, xalt, d, vlag     []float64
	w                               []float64
	xpt, bmat, zmat                 [][]float64
}

func newState(calfun func([]float64) float64, n, npt int, x, xl, xu, w []float64) *state {
	ndim := npt + n
	nptm := npt - n - 1
	s := &state{n: n, npt: npt, ndim: ndim, calfun: calfun, x: x, xl: xl, xu: xu}

	next := 0
	take := func(size int) []float64 {
		v := w[next : next+size : next+size]
		next += size
		return v
	}
	rows := func(count, width int) [][]float64 {
		m := make([][]float64, count)
		for i := range m {
			m[i] = take(width)
		}
		return m
	}

	s.xbase = take(n)
	s.xpt = rows(npt, n)
	s.fval = take(npt)
	s.xopt = take(n)
	s.gopt = take(n)
	s.hq = take(n * (n + 1) / 2)
	s.pq = take(npt)
	s.bmat = rows(ndim, n)
	s.zmat = rows(npt, nptm)
	s.sl = take(n)
	s.su = take(n)
	s.xnew = take(n)
	s.xalt = take(n)
	s.d = take(n)
	s.vlag = take(ndim)
	s.w = w[next:RequiredWorkspace(npt, n)]
	return s
}

// evaluate calls the objective at v and counts the call.
func (s *state) evaluate(v []float64) float64 {
	s.nf++
	return s.calfun(v)
}

// hqIndex maps the pair i <= j to its position in the packed upper
// triangle hq.
func hqIndex(i, j int) int {
	return i + j*(j+1)/2
}
