// Package store persists finished experiment runs on the filesystem:
// a JSON record and report, the training dataset as CSV, and a JSONL
// per-solve trace, all under one directory per run.
package store

import "github.com/LeparaLaMapara/mlopt/internal/experiment"

// Store is the persistence interface for run artifacts. Implementations
// must be safe for concurrent use.
//
// Error conventions: ErrNotFound (via errors.Is) when the run or
// artifact does not exist, wrapped I/O or decoding errors otherwise.
type Store interface {
	// SaveRun writes the run record, overwriting any previous record
	// for the same ID. The record must validate.
	SaveRun(rec *RunRecord) error

	// GetRun loads and validates the record for the given run.
	GetRun(runID string) (*RunRecord, error)

	// ListRuns returns the listing view of every stored run, oldest
	// first. Unreadable runs are skipped, not fatal.
	ListRuns() ([]RunInfo, error)

	// DeleteRun removes the run directory with all its artifacts.
	DeleteRun(runID string) error

	// SaveDataset writes the training set of a run as CSV.
	SaveDataset(runID string, ds *experiment.Dataset) error

	// LoadDataset reads a stored training set back, including its
	// strategy table, so a model can be retrained from it.
	LoadDataset(runID string) (*experiment.Dataset, error)

	// SaveReport writes the evaluation report of a run as JSON.
	SaveReport(runID string, rep *experiment.Report) error

	// LoadReport reads a stored report back.
	LoadReport(runID string) (*experiment.Report, error)
}

// ErrNotFound is returned when a requested run or artifact does not
// exist. Use errors.Is(err, ErrNotFound) to check for it.
var ErrNotFound = &NotFoundError{}

// NotFoundError reports a missing run or artifact.
type NotFoundError struct {
	RunID string
}

func (e *NotFoundError) Error() string {
	if e.RunID != "" {
		return "run not found: " + e.RunID
	}
	return "run not found"
}

func (e *NotFoundError) Is(target error) bool {
	_, ok := target.(*NotFoundError)
	return ok
}
