package store

import (
	"time"

	"github.com/google/uuid"

	"github.com/LeparaLaMapara/mlopt/internal/experiment"
)

// Run states as persisted in run.json. Records are only written once a
// run has reached a terminal state; in-flight runs live in memory.
const (
	StateCompleted = "completed"
	StateFailed    = "failed"
)

// RunRecord is the persisted metadata of one experiment run. The heavy
// artifacts live next to it: dataset.csv, report.json and trace.jsonl
// in the same run directory.
type RunRecord struct {
	// ID is the unique identifier of the run, a UUID string.
	ID string `json:"id"`

	CreatedAt  time.Time `json:"created_at"`
	FinishedAt time.Time `json:"finished_at"`

	// State is the terminal state the run reached.
	State string `json:"state"`

	// Config is the full experiment configuration, kept so a run can be
	// retrained or reproduced later.
	Config experiment.Config `json:"config"`

	// Summary carries the headline numbers; the full evaluation is in
	// report.json.
	Summary RunSummary `json:"summary"`

	// Error holds the failure message for failed runs.
	Error string `json:"error,omitempty"`
}

// RunSummary condenses a report for listings.
type RunSummary struct {
	Samples      int     `json:"samples"`
	Dropped      int     `json:"dropped"`
	Strategies   int     `json:"strategies"`
	TestSamples  int     `json:"test_samples,omitempty"`
	Accuracy     float64 `json:"accuracy,omitempty"`
	TotalSeconds float64 `json:"total_seconds"`
}

// RunInfo is the listing view of a run, small enough to build for every
// stored run without touching its artifacts.
type RunInfo struct {
	ID        string    `json:"id"`
	CreatedAt time.Time `json:"created_at"`
	State     string    `json:"state"`

	Instance string `json:"instance"`
	Solver   string `json:"solver"`
	Learner  string `json:"learner"`

	Samples    int     `json:"samples"`
	Strategies int     `json:"strategies"`
	Accuracy   float64 `json:"accuracy,omitempty"`
}

// NewRunRecord starts a record for the given configuration with a fresh
// ID. Call Finish before saving it.
func NewRunRecord(cfg experiment.Config) *RunRecord {
	return &RunRecord{
		ID:        uuid.NewString(),
		CreatedAt: time.Now().UTC(),
		Config:    cfg,
	}
}

// Finish marks the run completed and fills the summary from the report.
func (r *RunRecord) Finish(rep *experiment.Report) {
	r.FinishedAt = time.Now().UTC()
	r.State = StateCompleted
	r.Summary = RunSummary{
		Samples:      rep.Samples,
		Dropped:      rep.Dropped,
		Strategies:   rep.Strategies,
		TotalSeconds: rep.TotalSeconds,
	}
	if rep.Evaluation != nil {
		r.Summary.TestSamples = rep.Evaluation.TestSamples
		r.Summary.Accuracy = rep.Evaluation.Accuracy
	}
}

// Fail marks the run failed with the given cause.
func (r *RunRecord) Fail(cause error) {
	r.FinishedAt = time.Now().UTC()
	r.State = StateFailed
	if cause != nil {
		r.Error = cause.Error()
	}
}

// ToInfo converts a record to its listing view.
func (r *RunRecord) ToInfo() RunInfo {
	return RunInfo{
		ID:         r.ID,
		CreatedAt:  r.CreatedAt,
		State:      r.State,
		Instance:   r.Config.Problem.Family,
		Solver:     r.Config.Solver,
		Learner:    r.Config.Learner.Name,
		Samples:    r.Summary.Samples,
		Strategies: r.Summary.Strategies,
		Accuracy:   r.Summary.Accuracy,
	}
}

// Validate checks that the record is complete enough to persist and to
// load back. It runs on both save and load so a hand-edited run.json
// fails early instead of surfacing as a nil-field panic later.
func (r *RunRecord) Validate() error {
	if r.ID == "" {
		return &ValidationError{Field: "ID", Reason: "cannot be empty"}
	}
	if err := uuid.Validate(r.ID); err != nil {
		return &ValidationError{Field: "ID", Reason: "not a valid UUID"}
	}
	if r.CreatedAt.IsZero() {
		return &ValidationError{Field: "CreatedAt", Reason: "cannot be zero"}
	}
	if r.State != StateCompleted && r.State != StateFailed {
		return &ValidationError{Field: "State", Reason: "must be a terminal state"}
	}
	if r.State == StateFailed && r.Error == "" {
		return &ValidationError{Field: "Error", Reason: "failed runs must carry a cause"}
	}
	if r.Config.Problem.Family == "" {
		return &ValidationError{Field: "Config.Problem.Family", Reason: "cannot be empty"}
	}
	if r.Config.Solver == "" {
		return &ValidationError{Field: "Config.Solver", Reason: "cannot be empty"}
	}
	if r.Config.Learner.Name == "" {
		return &ValidationError{Field: "Config.Learner.Name", Reason: "cannot be empty"}
	}
	return nil
}

// ValidationError reports an invalid run record field.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	return "validation error: " + e.Field + " " + e.Reason
}
