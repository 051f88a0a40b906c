package store

import (
	"fmt"
	"slices"
	"time"
)

// Optimizer names accepted in RunConfig.Optimizer.
const (
	OptimizerBobyqa     = "bobyqa"
	OptimizerMayfly     = "mayfly"
	OptimizerNelderMead = "neldermead"
	OptimizerMultiStart = "multistart"
	OptimizerHybrid     = "hybrid"
)

// Optimizers lists the accepted optimizer names.
var Optimizers = []string{OptimizerBobyqa, OptimizerMayfly, OptimizerNelderMead, OptimizerMultiStart, OptimizerHybrid}

// RunConfig describes one optimization run. It is shared by the CLI, the
// job server and the persisted run records.
type RunConfig struct {
	Problem       string  `json:"problem"`
	Dim           int     `json:"dim"`
	Optimizer     string  `json:"optimizer"`
	NPT           int     `json:"npt,omitempty"` // 0 = 2*dim+1
	InitialRadius float64 `json:"initialRadius"`
	FinalRadius   float64 `json:"finalRadius"`
	MaxCalls      int     `json:"maxCalls"`
	Starts        int     `json:"starts,omitempty"`   // multistart only
	Restarts      int     `json:"restarts,omitempty"` // 0 = single round
	Iters         int     `json:"iters,omitempty"`    // mayfly and hybrid
	PopSize       int     `json:"popSize,omitempty"`  // mayfly and hybrid
	Seed          int64   `json:"seed"`
}

// ApplyDefaults fills unset fields.
func (c *RunConfig) ApplyDefaults() {
	if c.Problem == "" {
		c.Problem = "demo"
	}
	if c.Dim <= 0 {
		c.Dim = 2
	}
	if c.Optimizer == "" {
		c.Optimizer = OptimizerBobyqa
	}
	if c.InitialRadius <= 0 {
		c.InitialRadius = 1e-3
	}
	if c.FinalRadius <= 0 {
		c.FinalRadius = 1e3
	}
	if c.MaxCalls <= 0 {
		c.MaxCalls = 1000
	}
	if c.Starts <= 0 {
		c.Starts = 4
	}
	if c.Iters <= 0 {
		c.Iters = 100
	}
	if c.PopSize <= 0 {
		c.PopSize = 20
	}
}

// Validate checks the settings that do not depend on the problem catalogue.
func (c RunConfig) Validate() error {
	if c.Problem == "" {
		return &ValidationError{Field: "Problem", Reason: "cannot be empty"}
	}
	if c.Dim < 2 {
		return &ValidationError{Field: "Dim", Reason: "must be at least 2"}
	}
	if !slices.Contains(Optimizers, c.Optimizer) {
		return &ValidationError{Field: "Optimizer", Reason: fmt.Sprintf("must be one of %v", Optimizers)}
	}
	if c.NPT != 0 && (c.NPT < c.Dim+2 || c.NPT > (c.Dim+1)*(c.Dim+2)/2) {
		return &ValidationError{
			Field:  "NPT",
			Reason: fmt.Sprintf("must be between %d and %d for %d variables", c.Dim+2, (c.Dim+1)*(c.Dim+2)/2, c.Dim),
		}
	}
	if c.InitialRadius <= 0 {
		return &ValidationError{Field: "InitialRadius", Reason: "must be positive"}
	}
	if c.InitialRadius > c.FinalRadius {
		return &ValidationError{Field: "InitialRadius", Reason: "cannot exceed FinalRadius"}
	}
	if c.MaxCalls <= 0 {
		return &ValidationError{Field: "MaxCalls", Reason: "must be positive"}
	}
	if c.Restarts < 0 {
		return &ValidationError{Field: "Restarts", Reason: "cannot be negative"}
	}
	return nil
}

// Run states recorded in RunRecord.Status.
const (
	StatusCompleted = "completed"
	StatusFailed    = "failed"
)

// RunRecord is the persisted outcome of a run.
type RunRecord struct {
	RunID       string    `json:"runId"`
	Status      string    `json:"status"`
	Config      RunConfig `json:"config"`
	BestParams  []float64 `json:"bestParams,omitempty"`
	BestCost    float64   `json:"bestCost"`
	InitialCost float64   `json:"initialCost"`
	Evaluations int       `json:"evaluations"`
	Rounds      int       `json:"rounds"`
	Error       string    `json:"error,omitempty"`
	StartTime   time.Time `json:"startTime"`
	EndTime     time.Time `json:"endTime"`
}

// RunInfo contains metadata about a run without the parameter data.
type RunInfo struct {
	RunID       string    `json:"runId"`
	Status      string    `json:"status"`
	Problem     string    `json:"problem"`
	Optimizer   string    `json:"optimizer"`
	Dim         int       `json:"dim"`
	BestCost    float64   `json:"bestCost"`
	Evaluations int       `json:"evaluations"`
	Timestamp   time.Time `json:"timestamp"`
}

// ToInfo converts a full RunRecord to RunInfo.
func (r *RunRecord) ToInfo() RunInfo {
	return RunInfo{
		RunID:       r.RunID,
		Status:      r.Status,
		Problem:     r.Config.Problem,
		Optimizer:   r.Config.Optimizer,
		Dim:         r.Config.Dim,
		BestCost:    r.BestCost,
		Evaluations: r.Evaluations,
		Timestamp:   r.EndTime,
	}
}

// Validate checks if the record has valid data.
func (r *RunRecord) Validate() error {
	if r.RunID == "" {
		return &ValidationError{Field: "RunID", Reason: "cannot be empty"}
	}
	if r.Status != StatusCompleted && r.Status != StatusFailed {
		return &ValidationError{Field: "Status", Reason: "must be completed or failed"}
	}
	if r.Status == StatusCompleted && len(r.BestParams) != r.Config.Dim {
		return &ValidationError{
			Field:  "BestParams",
			Reason: fmt.Sprintf("length mismatch: expected %d params, got %d", r.Config.Dim, len(r.BestParams)),
		}
	}
	if r.Evaluations < 0 {
		return &ValidationError{Field: "Evaluations", Reason: "cannot be negative"}
	}
	if r.EndTime.IsZero() {
		return &ValidationError{Field: "EndTime", Reason: "cannot be zero"}
	}
	if r.EndTime.Before(r.StartTime) {
		return &ValidationError{Field: "EndTime", Reason: "cannot be before StartTime"}
	}
	return r.Config.Validate()
}

// ValidationError represents an invalid run configuration or record.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	return "validation error: " + e.Field + " " + e.Reason
}
