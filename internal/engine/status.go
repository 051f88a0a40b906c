package engine

// Status reports why a run of Minimize stopped. Positive values are normal
// terminations, negative values mean the arguments were rejected before any
// evaluation.
type Status int

const (
	// RhoEndReached means the trust region radius reached its final value.
	RhoEndReached Status = iota + 1
	// MaxFunReached means the evaluation budget was used up.
	MaxFunReached
	// DenominatorCancellation means rounding errors damaged an updating
	// denominator and a rescue was not possible.
	DenominatorCancellation
	// TrustRegionStepFailed means a trust region step failed to reduce the
	// quadratic model.
	TrustRegionStepFailed
)

const (
	// InvalidInterpolationConditions means npt was outside [n+2, (n+1)(n+2)/2].
	InvalidInterpolationConditions Status = -(iota + 1)
	// BoundsTooClose means xu[i]-xl[i] < 2*rhobeg for some i.
	BoundsTooClose
	// NoBudget means maxfun was below 1, so not even the starting point
	// could be evaluated.
	NoBudget
)

var statusStrings = map[Status]string{
	RhoEndReached:                  "RhoEndReached",
	MaxFunReached:                  "MaxFunReached",
	DenominatorCancellation:        "DenominatorCancellation",
	TrustRegionStepFailed:          "TrustRegionStepFailed",
	InvalidInterpolationConditions: "InvalidInterpolationConditions",
	BoundsTooClose:                 "BoundsTooClose",
	NoBudget:                       "NoBudget",
}

func (s Status) String() string {
	str, ok := statusStrings[s]
	if !ok {
		return "UnknownStatus"
	}
	return str
}

// Failed reports whether the run was rejected before evaluating anything.
func (s Status) Failed() bool {
	return s < 0
}
