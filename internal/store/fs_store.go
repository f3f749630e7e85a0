package store

import (
	"bytes"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sort"

	"github.com/LeparaLaMapara/mlopt/internal/experiment"
)

// FSStore implements Store on the local filesystem. Every run owns one
// directory, <baseDir>/runs/<runID>/, holding run.json, dataset.csv,
// report.json and trace.jsonl.
//
// Writes go through a temp file and an atomic rename, so no locking is
// needed; readers either see the old artifact or the new one.
type FSStore struct {
	baseDir string
}

// NewFSStore creates a store rooted at baseDir, creating the directory
// if needed.
func NewFSStore(baseDir string) (*FSStore, error) {
	if err := os.MkdirAll(baseDir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create base directory: %w", err)
	}
	return &FSStore{baseDir: baseDir}, nil
}

// RunDir returns the directory holding all artifacts of a run.
func (fs *FSStore) RunDir(runID string) string {
	return filepath.Join(fs.baseDir, "runs", runID)
}

func (fs *FSStore) runPath(runID string) string {
	return filepath.Join(fs.RunDir(runID), "run.json")
}

func (fs *FSStore) datasetPath(runID string) string {
	return filepath.Join(fs.RunDir(runID), "dataset.csv")
}

func (fs *FSStore) reportPath(runID string) string {
	return filepath.Join(fs.RunDir(runID), "report.json")
}

// writeAtomic writes data to path via a temp file in the same directory
// and a rename.
func writeAtomic(path string, data []byte) error {
	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return fmt.Errorf("failed to write temp file: %w", err)
	}
	if err := os.Rename(tmp, path); err != nil {
		os.Remove(tmp)
		return fmt.Errorf("failed to rename into place: %w", err)
	}
	return nil
}

// SaveRun writes the validated run record.
func (fs *FSStore) SaveRun(rec *RunRecord) error {
	if rec == nil {
		return fmt.Errorf("run record cannot be nil")
	}
	if err := rec.Validate(); err != nil {
		return err
	}
	if err := os.MkdirAll(fs.RunDir(rec.ID), 0o755); err != nil {
		return fmt.Errorf("failed to create run directory: %w", err)
	}
	data, err := json.MarshalIndent(rec, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to serialize run record: %w", err)
	}
	if err := writeAtomic(fs.runPath(rec.ID), data); err != nil {
		return err
	}
	slog.Debug("run record saved", "run_id", rec.ID, "state", rec.State)
	return nil
}

// GetRun loads and validates a run record.
func (fs *FSStore) GetRun(runID string) (*RunRecord, error) {
	if runID == "" {
		return nil, fmt.Errorf("run ID cannot be empty")
	}
	data, err := os.ReadFile(fs.runPath(runID))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, &NotFoundError{RunID: runID}
		}
		return nil, fmt.Errorf("failed to read run record: %w", err)
	}
	var rec RunRecord
	if err := json.Unmarshal(data, &rec); err != nil {
		return nil, fmt.Errorf("failed to deserialize run record: %w", err)
	}
	if err := rec.Validate(); err != nil {
		return nil, fmt.Errorf("stored run record is invalid: %w", err)
	}
	return &rec, nil
}

// ListRuns scans the runs directory, skipping entries whose record is
// missing or unreadable.
func (fs *FSStore) ListRuns() ([]RunInfo, error) {
	runsDir := filepath.Join(fs.baseDir, "runs")
	entries, err := os.ReadDir(runsDir)
	if err != nil {
		if os.IsNotExist(err) {
			return []RunInfo{}, nil
		}
		return nil, fmt.Errorf("failed to read runs directory: %w", err)
	}

	infos := make([]RunInfo, 0, len(entries))
	for _, entry := range entries {
		if !entry.IsDir() {
			continue
		}
		rec, err := fs.GetRun(entry.Name())
		if err != nil {
			slog.Warn("skipping unreadable run", "run_id", entry.Name(), "error", err)
			continue
		}
		infos = append(infos, rec.ToInfo())
	}
	sort.Slice(infos, func(i, j int) bool {
		return infos[i].CreatedAt.Before(infos[j].CreatedAt)
	})
	return infos, nil
}

// DeleteRun removes the run directory and everything in it.
func (fs *FSStore) DeleteRun(runID string) error {
	if runID == "" {
		return fmt.Errorf("run ID cannot be empty")
	}
	dir := fs.RunDir(runID)
	if _, err := os.Stat(dir); os.IsNotExist(err) {
		return &NotFoundError{RunID: runID}
	} else if err != nil {
		return fmt.Errorf("failed to stat run directory: %w", err)
	}
	if err := os.RemoveAll(dir); err != nil {
		return fmt.Errorf("failed to remove run directory: %w", err)
	}
	slog.Debug("run deleted", "run_id", runID)
	return nil
}

// SaveDataset writes the training set of a run.
func (fs *FSStore) SaveDataset(runID string, ds *experiment.Dataset) error {
	if runID == "" {
		return fmt.Errorf("run ID cannot be empty")
	}
	if ds == nil {
		return fmt.Errorf("dataset cannot be nil")
	}
	if err := os.MkdirAll(fs.RunDir(runID), 0o755); err != nil {
		return fmt.Errorf("failed to create run directory: %w", err)
	}
	var buf bytes.Buffer
	if err := ds.WriteCSV(&buf); err != nil {
		return fmt.Errorf("failed to encode dataset: %w", err)
	}
	if err := writeAtomic(fs.datasetPath(runID), buf.Bytes()); err != nil {
		return err
	}
	slog.Debug("dataset saved", "run_id", runID, "samples", ds.Len())
	return nil
}

// LoadDataset reads a stored training set back.
func (fs *FSStore) LoadDataset(runID string) (*experiment.Dataset, error) {
	if runID == "" {
		return nil, fmt.Errorf("run ID cannot be empty")
	}
	f, err := os.Open(fs.datasetPath(runID))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, &NotFoundError{RunID: runID}
		}
		return nil, fmt.Errorf("failed to open dataset: %w", err)
	}
	defer f.Close()
	ds, err := experiment.ReadDatasetCSV(f)
	if err != nil {
		return nil, fmt.Errorf("failed to decode dataset: %w", err)
	}
	return ds, nil
}

// SaveReport writes the evaluation report of a run.
func (fs *FSStore) SaveReport(runID string, rep *experiment.Report) error {
	if runID == "" {
		return fmt.Errorf("run ID cannot be empty")
	}
	if rep == nil {
		return fmt.Errorf("report cannot be nil")
	}
	if err := os.MkdirAll(fs.RunDir(runID), 0o755); err != nil {
		return fmt.Errorf("failed to create run directory: %w", err)
	}
	data, err := json.MarshalIndent(rep, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to serialize report: %w", err)
	}
	if err := writeAtomic(fs.reportPath(runID), data); err != nil {
		return err
	}
	slog.Debug("report saved", "run_id", runID)
	return nil
}

// LoadReport reads a stored report back.
func (fs *FSStore) LoadReport(runID string) (*experiment.Report, error) {
	if runID == "" {
		return nil, fmt.Errorf("run ID cannot be empty")
	}
	data, err := os.ReadFile(fs.reportPath(runID))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, &NotFoundError{RunID: runID}
		}
		return nil, fmt.Errorf("failed to read report: %w", err)
	}
	var rep experiment.Report
	if err := json.Unmarshal(data, &rep); err != nil {
		return nil, fmt.Errorf("failed to deserialize report: %w", err)
	}
	return &rep, nil
}

// TraceWriter opens the per-solve trace of a run for writing.
func (fs *FSStore) TraceWriter(runID string, resume bool) (*TraceWriter, error) {
	return NewTraceWriter(fs.baseDir, runID, resume)
}

// TraceReader opens the per-solve trace of a run for reading.
func (fs *FSStore) TraceReader(runID string) (*TraceReader, error) {
	return NewTraceReader(fs.baseDir, runID)
}
