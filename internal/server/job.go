package server

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/LeparaLaMapara/mlopt/internal/experiment"
)

// JobState represents the current state of a job.
type JobState string

const (
	StatePending   JobState = "pending"
	StateRunning   JobState = "running"
	StateCompleted JobState = "completed"
	StateFailed    JobState = "failed"
	StateCancelled JobState = "cancelled"
)

// Terminal reports whether the state is final.
func (s JobState) Terminal() bool {
	return s == StateCompleted || s == StateFailed || s == StateCancelled
}

var (
	ErrJobNotFound = errors.New("job not found")
	ErrJobFinished = errors.New("job already finished")
)

// Job is one experiment run managed by the server. The job ID doubles
// as the run ID under which artifacts are persisted.
type Job struct {
	ID     string            `json:"id"`
	State  JobState          `json:"state"`
	Config experiment.Config `json:"config"`

	// Progress is the latest runner progress snapshot.
	Progress experiment.Progress `json:"progress"`

	// Report is set once the run completes.
	Report *experiment.Report `json:"report,omitempty"`

	CreatedAt time.Time  `json:"created_at"`
	EndTime   *time.Time `json:"end_time,omitempty"`
	Error     string     `json:"error,omitempty"`
}

// JobManager owns the lifecycle of jobs. Accessors return snapshots so
// callers can marshal them without racing the worker's updates.
type JobManager struct {
	mu          sync.RWMutex
	jobs        map[string]*Job
	cancels     map[string]context.CancelFunc
	broadcaster *EventBroadcaster
}

// NewJobManager creates an empty manager.
func NewJobManager() *JobManager {
	return &JobManager{
		jobs:        make(map[string]*Job),
		cancels:     make(map[string]context.CancelFunc),
		broadcaster: NewEventBroadcaster(),
	}
}

// Create registers a pending job for the given configuration.
func (jm *JobManager) Create(cfg experiment.Config) Job {
	jm.mu.Lock()
	defer jm.mu.Unlock()

	job := &Job{
		ID:        uuid.NewString(),
		State:     StatePending,
		Config:    cfg,
		CreatedAt: time.Now().UTC(),
	}
	jm.jobs[job.ID] = job
	return *job
}

// Get returns a snapshot of the job.
func (jm *JobManager) Get(id string) (Job, bool) {
	jm.mu.RLock()
	defer jm.mu.RUnlock()

	job, ok := jm.jobs[id]
	if !ok {
		return Job{}, false
	}
	return *job, true
}

// List returns snapshots of all jobs, oldest first.
func (jm *JobManager) List() []Job {
	jm.mu.RLock()
	defer jm.mu.RUnlock()

	jobs := make([]Job, 0, len(jm.jobs))
	for _, job := range jm.jobs {
		jobs = append(jobs, *job)
	}
	sort.Slice(jobs, func(i, j int) bool {
		if jobs[i].CreatedAt.Equal(jobs[j].CreatedAt) {
			return jobs[i].ID < jobs[j].ID
		}
		return jobs[i].CreatedAt.Before(jobs[j].CreatedAt)
	})
	return jobs
}

// Update atomically mutates a job through fn.
func (jm *JobManager) Update(id string, fn func(*Job)) error {
	jm.mu.Lock()
	defer jm.mu.Unlock()

	job, ok := jm.jobs[id]
	if !ok {
		return fmt.Errorf("%w: %s", ErrJobNotFound, id)
	}
	fn(job)
	return nil
}

// Cancel requests cancellation of a running or pending job. The worker
// observes the cancelled context and moves the job to its final state.
func (jm *JobManager) Cancel(id string) error {
	jm.mu.Lock()
	job, ok := jm.jobs[id]
	if !ok {
		jm.mu.Unlock()
		return fmt.Errorf("%w: %s", ErrJobNotFound, id)
	}
	if job.State.Terminal() {
		state := job.State
		jm.mu.Unlock()
		return fmt.Errorf("%w: %s is %s", ErrJobFinished, id, state)
	}
	cancel := jm.cancels[id]
	jm.mu.Unlock()

	if cancel != nil {
		cancel()
	}
	return nil
}

// registerCancel stores the cancel function driving a job's context.
func (jm *JobManager) registerCancel(id string, cancel context.CancelFunc) {
	jm.mu.Lock()
	defer jm.mu.Unlock()
	jm.cancels[id] = cancel
}

// releaseCancel drops and invokes the cancel function once the worker
// is done with the job, releasing the context's resources.
func (jm *JobManager) releaseCancel(id string) {
	jm.mu.Lock()
	cancel := jm.cancels[id]
	delete(jm.cancels, id)
	jm.mu.Unlock()

	if cancel != nil {
		cancel()
	}
}
