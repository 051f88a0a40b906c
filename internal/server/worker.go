package server

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/cwbudde/bobyqa/internal/problem"
	"github.com/cwbudde/bobyqa/internal/store"
)

// progressInterval throttles progress events to two per second.
const progressInterval = 500 * time.Millisecond

// runJob executes an optimization job in the background.
// If runStore is not nil, the outcome is saved as a run record under the job ID.
func runJob(ctx context.Context, jm *JobManager, runStore store.Store, jobID string) error {
	defer jm.finish(jobID)

	job, exists := jm.GetJob(jobID)
	if !exists {
		return fmt.Errorf("job not found: %s", jobID)
	}

	// Check for cancellation before starting
	select {
	case <-ctx.Done():
		markJobCancelled(jm, jobID)
		return ctx.Err()
	default:
	}

	err := jm.UpdateJob(jobID, func(j *Job) {
		j.State = StateRunning
	})
	if err != nil {
		return err
	}

	slog.Info("Starting job",
		"job_id", jobID,
		"problem", job.Config.Problem,
		"optimizer", job.Config.Optimizer,
		"dim", job.Config.Dim,
	)

	var trace *store.Trace
	if tracer, ok := runStore.(store.Tracer); ok {
		trace, err = tracer.CreateTrace(jobID)
		if err != nil {
			slog.Warn("Trace disabled", "job_id", jobID, "error", err)
		} else {
			defer trace.Close()
		}
	}

	observe := func(e problem.Evaluation) {
		jm.UpdateJob(jobID, func(j *Job) {
			j.Evaluations = e.Index
			if e.Cost <= e.Best {
				j.BestCost = e.Best
				j.BestParams = e.Params
			}
		})
		if trace != nil {
			entry := store.TraceEntry{
				Evaluation: e.Index,
				Cost:       e.Cost,
				Best:       e.Best,
				Timestamp:  time.Now(),
				Params:     e.Params,
			}
			if err := trace.Record(entry); err != nil {
				slog.Warn("Failed to write trace entry", "job_id", jobID, "error", err)
			}
		}
	}

	start := time.Now()
	progressDone := make(chan struct{})
	go monitorProgress(ctx, jm, jobID, progressDone)

	_, result, runErr := problem.Run(job.Config, observe)

	close(progressDone)
	elapsed := time.Since(start)

	if runErr != nil {
		markJobFailed(jm, jobID, runErr)
		saveRecord(jm, runStore, jobID)
		return runErr
	}

	// The optimizer cannot be interrupted, so a cancelled job still
	// finishes its run before being marked.
	select {
	case <-ctx.Done():
		markJobCancelled(jm, jobID)
		return ctx.Err()
	default:
	}

	endTime := time.Now()
	err = jm.UpdateJob(jobID, func(j *Job) {
		j.State = StateCompleted
		j.BestParams = result.BestParams
		j.BestCost = result.BestCost
		j.InitialCost = result.InitialCost
		j.Evaluations = result.Evaluations
		j.Rounds = result.Rounds
		j.EndTime = &endTime
	})
	if err != nil {
		return err
	}

	slog.Info("Job completed",
		"job_id", jobID,
		"elapsed", elapsed,
		"initial_cost", result.InitialCost,
		"best_cost", result.BestCost,
		"evaluations", result.Evaluations,
		"evaluations_per_second", float64(result.Evaluations)/elapsed.Seconds(),
	)

	saveRecord(jm, runStore, jobID)

	// Broadcast final completion event
	jm.broadcaster.Broadcast(ProgressEvent{
		JobID:       jobID,
		State:       StateCompleted,
		Evaluations: result.Evaluations,
		BestCost:    result.BestCost,
		Timestamp:   time.Now(),
	})

	return nil
}

// monitorProgress periodically broadcasts progress events during optimization
func monitorProgress(ctx context.Context, jm *JobManager, jobID string, done chan struct{}) {
	ticker := time.NewTicker(progressInterval)
	defer ticker.Stop()

	for {
		select {
		case <-done:
			return
		case <-ctx.Done():
			return
		case <-ticker.C:
			// Late subscribers get the current state on connect.
			if jm.broadcaster.Subscribers(jobID) == 0 {
				continue
			}
			job, exists := jm.GetJob(jobID)
			if !exists {
				return
			}
			jm.broadcaster.Broadcast(progressOf(job))
		}
	}
}

func progressOf(job *Job) ProgressEvent {
	return ProgressEvent{
		JobID:       job.ID,
		State:       job.State,
		Evaluations: job.Evaluations,
		BestCost:    job.BestCost,
		Timestamp:   time.Now(),
	}
}

// saveRecord persists the current state of a finished job.
func saveRecord(jm *JobManager, runStore store.Store, jobID string) {
	if runStore == nil {
		return
	}
	job, exists := jm.GetJob(jobID)
	if !exists {
		return
	}

	record := &store.RunRecord{
		RunID:       job.ID,
		Status:      store.StatusCompleted,
		Config:      job.Config,
		BestParams:  job.BestParams,
		BestCost:    job.BestCost,
		InitialCost: job.InitialCost,
		Evaluations: job.Evaluations,
		Rounds:      job.Rounds,
		Error:       job.Error,
		StartTime:   job.StartTime,
		EndTime:     time.Now(),
	}
	if job.EndTime != nil {
		record.EndTime = *job.EndTime
	}
	if job.State == StateFailed {
		record.Status = store.StatusFailed
	}

	if err := record.Validate(); err != nil {
		slog.Warn("Run record not saved", "job_id", jobID, "error", err)
		return
	}
	if err := runStore.SaveRun(jobID, record); err != nil {
		slog.Error("Failed to save run record", "job_id", jobID, "error", err)
		return
	}
	slog.Info("Run record saved", "job_id", jobID, "status", record.Status)
}

// markJobFailed marks a job as failed with an error message
func markJobFailed(jm *JobManager, jobID string, err error) {
	endTime := time.Now()
	jm.UpdateJob(jobID, func(j *Job) {
		j.State = StateFailed
		j.Error = err.Error()
		j.EndTime = &endTime
	})
	slog.Error("Job failed", "job_id", jobID, "error", err)

	if job, ok := jm.GetJob(jobID); ok {
		jm.broadcaster.Broadcast(progressOf(job))
	}
}

// markJobCancelled marks a job as cancelled
func markJobCancelled(jm *JobManager, jobID string) {
	endTime := time.Now()
	jm.UpdateJob(jobID, func(j *Job) {
		j.State = StateCancelled
		j.EndTime = &endTime
	})
	slog.Info("Job cancelled", "job_id", jobID)

	if job, ok := jm.GetJob(jobID); ok {
		jm.broadcaster.Broadcast(progressOf(job))
	}
}
