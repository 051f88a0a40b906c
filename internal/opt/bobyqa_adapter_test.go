package opt

import (
	"errors"
	"math"
	"testing"

	"github.com/cwbudde/bobyqa"
)

func shiftedSphere(center []float64) func([]float64) float64 {
	return func(x []float64) float64 {
		var sum float64
		for i, v := range x {
			d := v - center[i]
			sum += d * d
		}
		return sum
	}
}

func TestBobyqaAdapterOnSphere(t *testing.T) {
	center := []float64{1, -2, 0.5}
	template := bobyqa.New().InitialTrustRegionRadius(0.5).MaxFunctionCallsCount(500)
	optimizer := NewBobyqa(template, nil)

	lower := []float64{-5, -5, -5}
	upper := []float64{5, 5, 5}
	best, cost, err := optimizer.Run(shiftedSphere(center), lower, upper, 3)
	if err != nil {
		t.Fatalf("Run failed: %v", err)
	}

	if len(best) != 3 {
		t.Fatalf("Expected 3 parameters, got %d", len(best))
	}
	for i := range center {
		if math.Abs(best[i]-center[i]) > 1e-3 {
			t.Errorf("Parameter %d = %f, expected %f", i, best[i], center[i])
		}
	}
	if cost > 1e-6 {
		t.Errorf("Expected cost near 0, got %g", cost)
	}
}

func TestBobyqaAdapterActiveBounds(t *testing.T) {
	optimizer := NewBobyqa(bobyqa.New().NumberOfInterpolationConditions(5).InitialTrustRegionRadius(0.2), []float64{0, 0})

	best, cost, err := optimizer.Run(shiftedSphere([]float64{3, 3}), []float64{-1, -1}, []float64{1, 1}, 2)
	if err != nil {
		t.Fatalf("Run failed: %v", err)
	}

	if math.Abs(best[0]-1) > 1e-9 || math.Abs(best[1]-1) > 1e-9 {
		t.Errorf("Expected [1 1], got %v", best)
	}
	if math.Abs(cost-8) > 1e-8 {
		t.Errorf("Expected cost 8, got %f", cost)
	}
}

func TestBobyqaAdapterKeepsTemplate(t *testing.T) {
	template := bobyqa.New()
	optimizer := NewBobyqa(template, nil)

	_, _, err := optimizer.Run(sphere, []float64{-1, -1, -1, -1}, []float64{1, 1, 1, 1}, 4)
	if err != nil {
		t.Fatalf("Run failed: %v", err)
	}

	if template.Variables() != 2 || template.InterpolationConditions() != 4 {
		t.Errorf("Template was modified: n=%d npt=%d", template.Variables(), template.InterpolationConditions())
	}
}

func TestBobyqaAdapterInvalidTemplate(t *testing.T) {
	calls := 0
	optimizer := NewBobyqa(bobyqa.New().VariablesCount(1), nil)

	_, _, err := optimizer.Run(func(x []float64) float64 {
		calls++
		return sphere(x)
	}, []float64{0, 0}, []float64{1, 1}, 2)

	if !errors.Is(err, bobyqa.ErrInvalidConfig) {
		t.Fatalf("Expected ErrInvalidConfig, got %v", err)
	}
	if calls != 0 {
		t.Errorf("Objective called %d times for an invalid configuration", calls)
	}
}

func TestBobyqaAdapterShortBounds(t *testing.T) {
	_, _, err := NewBobyqa(bobyqa.New(), nil).Run(sphere, []float64{0}, []float64{1, 1}, 2)
	if err == nil {
		t.Fatal("Expected error for short bounds")
	}
}

func TestStartPoint(t *testing.T) {
	lower := []float64{-1, 0}
	upper := []float64{1, 4}

	if got := startPoint(nil, lower, upper, 2); got[0] != 0 || got[1] != 2 {
		t.Errorf("Expected box center [0 2], got %v", got)
	}
	if got := startPoint([]float64{5, 1}, lower, upper, 2); got[0] != 1 || got[1] != 1 {
		t.Errorf("Expected clamped start [1 1], got %v", got)
	}
}

func TestDefaultInterpolationConditions(t *testing.T) {
	if got := DefaultInterpolationConditions(3); got != 7 {
		t.Errorf("Expected 7, got %d", got)
	}
}

func TestBobyqaAdapterNarrowBox(t *testing.T) {
	optimizer := NewBobyqa(bobyqa.New().InitialTrustRegionRadius(0.1), nil)

	_, _, err := optimizer.Run(sphere, []float64{0, 0}, []float64{0.1, 1}, 2)
	if !errors.Is(err, bobyqa.ErrInvalidConfig) {
		t.Errorf("Expected ErrInvalidConfig for a box narrower than twice the initial radius, got %v", err)
	}
}
