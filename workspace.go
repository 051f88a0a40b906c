package bobyqa

// WorkingSpaceSize returns the number of scratch values allocated for a run
// with npt interpolation conditions and n variables.
func WorkingSpaceSize(npt, n int) int {
	return 3*n*(n+3)/2 + (npt+13)*(npt+n)
}

func (b *Bobyqa) workingSpace() []float64 {
	return make([]float64, WorkingSpaceSize(b.numberOfInterpolationConditions, b.variablesCount))
}
