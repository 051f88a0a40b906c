// Package bridge turns Go callables into the callback records expected by
// the optimization routine.
//
// A record pairs an opaque data pointer with an entry point. The entry point
// is a generic trampoline instantiated for the concrete callable type, so the
// type is erased at the boundary and recovered inside the trampoline. Records
// hold a raw pointer to the callable and must not outlive it: build them
// right before the routine is called and keep the callable alive until it
// returns.
package bridge

import (
	"unsafe"

	"github.com/cwbudde/bobyqa/internal/engine"
)

// Evaluator is an objective that may change its own state on every call.
type Evaluator interface {
	Evaluate(x []float64) float64
}

// New builds an immutable callback record for fn.
func New[F ~func([]float64) float64](fn *F) engine.Closure {
	return engine.Closure{
		Data:     unsafe.Pointer(fn),
		Function: call[F],
	}
}

// NewMut builds a mutable callback record for e. Evaluate is called through
// the pointer, so state changes made by e are visible to the caller.
func NewMut[E Evaluator](e *E) engine.ClosureMut {
	return engine.ClosureMut{
		Data:     unsafe.Pointer(e),
		Function: callMut[E],
	}
}

// call is the entry point of records built by New. The point is a view of
// n values owned by the routine and valid only for this call.
func call[F ~func([]float64) float64](data unsafe.Pointer, n int64, x *float64) float64 {
	fn := *(*F)(data)
	return fn(unsafe.Slice(x, n))
}

func callMut[E Evaluator](data unsafe.Pointer, n int64, x *float64) float64 {
	return (*(*E)(data)).Evaluate(unsafe.Slice(x, n))
}
