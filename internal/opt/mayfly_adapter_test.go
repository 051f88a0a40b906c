package opt

import (
	"math"
	"testing"
)

// Sphere function: f(x) = sum(x_i^2), minimum at origin
func sphere(x []float64) float64 {
	var sum float64
	for _, v := range x {
		sum += v * v
	}
	return sum
}

func TestMayflyAdapterOnSphere(t *testing.T) {
	optimizer := NewMayfly(100, 20, 42) // maxIters, popSize, seed

	dim := 3
	lower := make([]float64, dim)
	upper := make([]float64, dim)
	for i := 0; i < dim; i++ {
		lower[i] = -10
		upper[i] = 10
	}

	best, cost, err := optimizer.Run(sphere, lower, upper, dim)
	if err != nil {
		t.Fatalf("Run failed: %v", err)
	}

	if len(best) != dim {
		t.Fatalf("Expected %d parameters, got %d", dim, len(best))
	}

	// Should converge close to zero
	if cost > 0.1 {
		t.Errorf("Expected cost near 0, got %f", cost)
	}

	// Check that best params are near origin
	for i, v := range best {
		if math.Abs(v) > 1.0 {
			t.Errorf("Parameter %d = %f, expected near 0", i, v)
		}
	}
}

func TestMayflyAdapterDeterministic(t *testing.T) {
	dim := 2
	lower := []float64{-5, -5}
	upper := []float64{5, 5}

	// Run twice with same seed (popSize must be >=20 for mayfly v0.1.0)
	optimizer1 := NewMayfly(50, 20, 123)
	_, cost1, err := optimizer1.Run(sphere, lower, upper, dim)
	if err != nil {
		t.Fatalf("Run failed: %v", err)
	}

	optimizer2 := NewMayfly(50, 20, 123)
	_, cost2, err := optimizer2.Run(sphere, lower, upper, dim)
	if err != nil {
		t.Fatalf("Run failed: %v", err)
	}

	if cost1 != cost2 {
		t.Errorf("Non-deterministic: cost1=%f, cost2=%f", cost1, cost2)
	}
}

func TestMayflyAdapterPerCoordinateBounds(t *testing.T) {
	lower := []float64{0, 10}
	upper := []float64{1, 20}
	seen := 0
	eval := func(x []float64) float64 {
		seen++
		if x[0] < lower[0] || x[0] > upper[0] || x[1] < lower[1] || x[1] > upper[1] {
			t.Errorf("Evaluated outside the box: %v", x)
		}
		return sphere(x)
	}

	best, cost, err := NewMayfly(30, 20, 7).Run(eval, lower, upper, 2)
	if err != nil {
		t.Fatalf("Run failed: %v", err)
	}

	if seen == 0 {
		t.Fatal("Objective was never evaluated")
	}
	if best[0] < 0 || best[0] > 1 || best[1] < 10 || best[1] > 20 {
		t.Errorf("Best point outside the box: %v", best)
	}
	if cost < 100 {
		t.Errorf("Cost %f is below the minimum possible in the box", cost)
	}
}

func TestMayflyAdapterShortBounds(t *testing.T) {
	_, _, err := NewMayfly(10, 20, 1).Run(sphere, []float64{0}, []float64{1}, 2)
	if err == nil {
		t.Fatal("Expected error for short bounds")
	}
}

func TestFromUnit(t *testing.T) {
	lower := []float64{-2, 10}
	upper := []float64{2, 20}

	got := fromUnit(make([]float64, 2), []float64{0.25, 1.5}, lower, upper)

	if got[0] != -1 || got[1] != 20 {
		t.Errorf("Expected [-1 20], got %v", got)
	}
}
