package store

import (
	"errors"
	"testing"
	"time"

	"github.com/LeparaLaMapara/mlopt/internal/experiment"
	"github.com/LeparaLaMapara/mlopt/internal/learner"
	"github.com/LeparaLaMapara/mlopt/internal/problem"
)

func TestNewRunRecord(t *testing.T) {
	cfg := experiment.Config{Problem: problem.Config{Family: "assignment", Agents: 2}}
	rec := NewRunRecord(cfg)

	if rec.ID == "" {
		t.Error("record has no ID")
	}
	other := NewRunRecord(cfg)
	if rec.ID == other.ID {
		t.Error("two records share an ID")
	}
	if rec.CreatedAt.IsZero() {
		t.Error("CreatedAt not set")
	}
	if rec.State != "" {
		t.Errorf("fresh record has state %q", rec.State)
	}
}

func TestRunRecordFinish(t *testing.T) {
	rec := NewRunRecord(experiment.Config{})
	rep := &experiment.Report{
		Samples:      40,
		Dropped:      2,
		Strategies:   5,
		TotalSeconds: 3.5,
		Evaluation:   &experiment.Evaluation{TestSamples: 10, Accuracy: 0.9},
	}
	rec.Finish(rep)

	if rec.State != StateCompleted {
		t.Errorf("State = %q, want %q", rec.State, StateCompleted)
	}
	if rec.FinishedAt.IsZero() {
		t.Error("FinishedAt not set")
	}
	want := RunSummary{Samples: 40, Dropped: 2, Strategies: 5, TestSamples: 10, Accuracy: 0.9, TotalSeconds: 3.5}
	if rec.Summary != want {
		t.Errorf("Summary = %+v, want %+v", rec.Summary, want)
	}
}

func TestRunRecordFinishWithoutEvaluation(t *testing.T) {
	rec := NewRunRecord(experiment.Config{})
	rec.Finish(&experiment.Report{Samples: 7})
	if rec.Summary.TestSamples != 0 || rec.Summary.Accuracy != 0 {
		t.Errorf("Summary = %+v, want no evaluation fields", rec.Summary)
	}
}

func TestRunRecordFail(t *testing.T) {
	rec := NewRunRecord(experiment.Config{})
	rec.Fail(errors.New("solver exploded"))

	if rec.State != StateFailed {
		t.Errorf("State = %q, want %q", rec.State, StateFailed)
	}
	if rec.Error != "solver exploded" {
		t.Errorf("Error = %q, want the cause", rec.Error)
	}
	if rec.FinishedAt.IsZero() {
		t.Error("FinishedAt not set")
	}
}

func TestRunRecordToInfo(t *testing.T) {
	rec := finishedRecord()
	info := rec.ToInfo()

	if info.ID != rec.ID || info.State != StateCompleted {
		t.Errorf("info = %+v, want ID and state from the record", info)
	}
	if info.Instance != "assignment" || info.Solver != "simplex" || info.Learner != "knn" {
		t.Errorf("info backends = %q, %q, %q", info.Instance, info.Solver, info.Learner)
	}
	if info.Samples != 30 || info.Strategies != 3 || info.Accuracy != 0.8 {
		t.Errorf("info counters = %+v", info)
	}
}

func TestRunRecordValidate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*RunRecord)
		field  string
	}{
		{"empty ID", func(r *RunRecord) { r.ID = "" }, "ID"},
		{"malformed ID", func(r *RunRecord) { r.ID = "not-a-uuid" }, "ID"},
		{"zero created", func(r *RunRecord) { r.CreatedAt = time.Time{} }, "CreatedAt"},
		{"non-terminal state", func(r *RunRecord) { r.State = "running" }, "State"},
		{"failed without cause", func(r *RunRecord) { r.State = StateFailed; r.Error = "" }, "Error"},
		{"no family", func(r *RunRecord) { r.Config.Problem.Family = "" }, "Config.Problem.Family"},
		{"no solver", func(r *RunRecord) { r.Config.Solver = "" }, "Config.Solver"},
		{"no learner", func(r *RunRecord) { r.Config.Learner = learner.Config{} }, "Config.Learner.Name"},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			rec := finishedRecord()
			tc.mutate(rec)
			err := rec.Validate()
			if err == nil {
				t.Fatal("Validate accepted a bad record")
			}
			var verr *ValidationError
			if !errors.As(err, &verr) {
				t.Fatalf("error = %v, want ValidationError", err)
			}
			if verr.Field != tc.field {
				t.Errorf("Field = %q, want %q", verr.Field, tc.field)
			}
		})
	}

	if err := finishedRecord().Validate(); err != nil {
		t.Errorf("valid record rejected: %v", err)
	}
}
