package server

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/LeparaLaMapara/mlopt/internal/experiment"
	"github.com/LeparaLaMapara/mlopt/internal/store"
)

// traceStore is the optional store capability for per-solve traces.
type traceStore interface {
	TraceWriter(runID string, resume bool) (*store.TraceWriter, error)
}

// runJob executes an experiment job in the background. If st is not
// nil the finished run and its artifacts are persisted under the job
// ID.
func runJob(ctx context.Context, jm *JobManager, st store.Store, jobID string) error {
	defer jm.releaseCancel(jobID)

	// Get the job
	job, exists := jm.Get(jobID)
	if !exists {
		return fmt.Errorf("%w: %s", ErrJobNotFound, jobID)
	}

	// Update state to running
	err := jm.Update(jobID, func(j *Job) {
		j.State = StateRunning
	})
	if err != nil {
		return err
	}

	slog.Info("Starting job", "job_id", jobID,
		"family", job.Config.Problem.Family,
		"solver", job.Config.Solver,
		"learner", job.Config.Learner.Name,
	)

	runner, err := experiment.NewRunner(job.Config)
	if err != nil {
		markJobFailed(jm, st, jobID, fmt.Errorf("failed to set up run: %w", err))
		return err
	}

	trace := openTrace(st, jobID)
	if trace != nil {
		defer func() {
			if cerr := trace.Close(); cerr != nil {
				slog.Warn("Failed to close trace", "job_id", jobID, "error", cerr)
			}
		}()
	}

	// Push runner progress into the job record and out to SSE clients
	runner.OnProgress = func(p experiment.Progress) {
		jm.Update(jobID, func(j *Job) {
			j.Progress = p
		})
		jm.broadcaster.Broadcast(JobEvent{
			JobID:     jobID,
			State:     StateRunning,
			Progress:  p,
			Timestamp: time.Now().UTC(),
		})
	}
	runner.OnSolve = func(ev experiment.SolveEvent) {
		if trace == nil {
			return
		}
		werr := trace.Write(store.TraceEntry{
			Index:    ev.Index,
			Status:   ev.Status,
			Seconds:  ev.Seconds,
			Strategy: ev.Key,
			Dropped:  ev.Dropped,
			Reason:   ev.Reason,
		})
		if werr != nil {
			slog.Warn("Failed to write trace entry", "job_id", jobID, "error", werr)
		}
	}

	start := time.Now()
	result, err := runner.Run(ctx)
	elapsed := time.Since(start)

	if err != nil {
		if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
			markJobCancelled(jm, jobID)
			return err
		}
		markJobFailed(jm, st, jobID, err)
		return err
	}

	// Update job with results
	endTime := time.Now().UTC()
	err = jm.Update(jobID, func(j *Job) {
		j.State = StateCompleted
		j.Report = result.Report
		j.EndTime = &endTime
	})
	if err != nil {
		return err
	}

	persistRun(st, jm, jobID, result)

	slog.Info("Job completed",
		"job_id", jobID,
		"elapsed", elapsed,
		"samples", result.Report.Samples,
		"strategies", result.Report.Strategies,
		"accuracy", result.Report.Accuracy(),
	)

	// Broadcast final completion event, then release the subscribers
	broadcastTerminal(jm, jobID, StateCompleted, "")

	return nil
}

// openTrace opens a trace writer when the store supports traces.
func openTrace(st store.Store, jobID string) *store.TraceWriter {
	ts, ok := st.(traceStore)
	if !ok {
		return nil
	}
	trace, err := ts.TraceWriter(jobID, false)
	if err != nil {
		slog.Warn("Failed to open trace", "job_id", jobID, "error", err)
		return nil
	}
	return trace
}

// persistRun saves the finished run and its artifacts. Persistence
// failures are logged but do not fail the completed job.
func persistRun(st store.Store, jm *JobManager, jobID string, result *experiment.Result) {
	if st == nil {
		return
	}
	job, exists := jm.Get(jobID)
	if !exists {
		return
	}

	rec := &store.RunRecord{
		ID:        jobID,
		CreatedAt: job.CreatedAt,
		Config:    job.Config,
	}
	rec.Finish(result.Report)

	if err := st.SaveRun(rec); err != nil {
		slog.Error("Failed to persist run record", "job_id", jobID, "error", err)
		return
	}
	if err := st.SaveDataset(jobID, result.Dataset); err != nil {
		slog.Error("Failed to persist dataset", "job_id", jobID, "error", err)
	}
	if err := st.SaveReport(jobID, result.Report); err != nil {
		slog.Error("Failed to persist report", "job_id", jobID, "error", err)
	}
}

// markJobFailed marks a job as failed and records the failure.
func markJobFailed(jm *JobManager, st store.Store, jobID string, err error) {
	endTime := time.Now().UTC()
	jm.Update(jobID, func(j *Job) {
		j.State = StateFailed
		j.Error = err.Error()
		j.EndTime = &endTime
	})
	slog.Error("Job failed", "job_id", jobID, "error", err)

	if st != nil {
		if job, exists := jm.Get(jobID); exists {
			rec := &store.RunRecord{
				ID:        jobID,
				CreatedAt: job.CreatedAt,
				Config:    job.Config,
			}
			rec.Fail(err)
			if serr := st.SaveRun(rec); serr != nil {
				slog.Error("Failed to persist run record", "job_id", jobID, "error", serr)
			}
		}
	}

	broadcastTerminal(jm, jobID, StateFailed, err.Error())
}

// markJobCancelled marks a job as cancelled
func markJobCancelled(jm *JobManager, jobID string) {
	endTime := time.Now().UTC()
	jm.Update(jobID, func(j *Job) {
		j.State = StateCancelled
		j.EndTime = &endTime
	})
	slog.Info("Job cancelled", "job_id", jobID)

	broadcastTerminal(jm, jobID, StateCancelled, "")
}

// broadcastTerminal pushes the final state to subscribers and cleans
// up the job's SSE resources.
func broadcastTerminal(jm *JobManager, jobID string, state JobState, errMsg string) {
	job, exists := jm.Get(jobID)
	if !exists {
		return
	}
	jm.broadcaster.Broadcast(JobEvent{
		JobID:     jobID,
		State:     state,
		Progress:  job.Progress,
		Error:     errMsg,
		Timestamp: time.Now().UTC(),
	})
	jm.broadcaster.CleanupJob(jobID)
}
