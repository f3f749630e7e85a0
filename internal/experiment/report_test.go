package experiment

import (
	"bytes"
	"encoding/csv"
	"encoding/json"
	"math"
	"reflect"
	"strings"
	"testing"
)

func gapOf(v float64) *Gap {
	g := Gap(v)
	return &g
}

func TestGapString(t *testing.T) {
	if got := Gap(0.25).String(); got != "0.25" {
		t.Errorf("String() = %q, want %q", got, "0.25")
	}
	if got := Gap(math.Inf(1)).String(); got != "UNBOUNDED" {
		t.Errorf("String() = %q, want %q", got, "UNBOUNDED")
	}
}

func TestGapJSON(t *testing.T) {
	b, err := json.Marshal(Gap(1.5))
	if err != nil {
		t.Fatalf("Marshal failed: %v", err)
	}
	if string(b) != "1.5" {
		t.Errorf("Marshal = %s, want 1.5", b)
	}
	b, err = json.Marshal(Gap(math.Inf(1)))
	if err != nil {
		t.Fatalf("Marshal failed: %v", err)
	}
	if string(b) != `"UNBOUNDED"` {
		t.Errorf("Marshal = %s, want %q", b, "UNBOUNDED")
	}

	var g Gap
	if err := json.Unmarshal([]byte("0.125"), &g); err != nil || g != 0.125 {
		t.Errorf("Unmarshal(0.125) = %v, %v; want 0.125, nil", g, err)
	}
	if err := json.Unmarshal([]byte(`"UNBOUNDED"`), &g); err != nil || !math.IsInf(float64(g), 1) {
		t.Errorf("Unmarshal(UNBOUNDED) = %v, %v; want +Inf, nil", g, err)
	}
	for _, bad := range []string{`"big"`, `true`, `[]`} {
		if err := json.Unmarshal([]byte(bad), &g); err == nil {
			t.Errorf("Unmarshal(%s) succeeded, want error", bad)
		}
	}
}

func TestSummarize(t *testing.T) {
	rows := []EvalRow{
		{Index: 0, Correct: true, Gap: gapOf(0.5), FullSeconds: 1, WarmSeconds: 0.25},
		{Index: 1, Correct: false, Gap: gapOf(math.Inf(1)), FullSeconds: 3},
		{Index: 2, Correct: true, FullSeconds: 2},
	}
	ev := summarize(rows)

	if ev.TestSamples != 3 || ev.Correct != 2 {
		t.Errorf("TestSamples, Correct = %d, %d; want 3, 2", ev.TestSamples, ev.Correct)
	}
	if want := 2.0 / 3.0; ev.Accuracy != want {
		t.Errorf("Accuracy = %g, want %g", ev.Accuracy, want)
	}
	if ev.GapSamples != 2 || ev.Infeasible != 1 {
		t.Errorf("GapSamples, Infeasible = %d, %d; want 2, 1", ev.GapSamples, ev.Infeasible)
	}
	// The infeasible row is excluded from the gap statistics.
	if ev.MeanGap != 0.5 || ev.MaxGap != 0.5 {
		t.Errorf("MeanGap, MaxGap = %v, %v; want 0.5, 0.5", ev.MeanGap, ev.MaxGap)
	}
	if ev.MeanFullSeconds != 2 {
		t.Errorf("MeanFullSeconds = %g, want 2", ev.MeanFullSeconds)
	}
	// Only the row that actually warm-started contributes.
	if ev.MeanWarmSeconds != 0.25 {
		t.Errorf("MeanWarmSeconds = %g, want 0.25", ev.MeanWarmSeconds)
	}
	if !reflect.DeepEqual(ev.Rows, rows) {
		t.Error("summarize did not retain the rows")
	}
}

func TestSummarizeEmpty(t *testing.T) {
	ev := summarize(nil)
	if ev.TestSamples != 0 || ev.Accuracy != 0 || ev.GapSamples != 0 {
		t.Errorf("empty summary = %+v, want zeros", ev)
	}
	if ev.MeanGap != 0 || ev.MaxGap != 0 {
		t.Errorf("MeanGap, MaxGap = %v, %v; want 0, 0", ev.MeanGap, ev.MaxGap)
	}
}

func TestWriteRowsCSV(t *testing.T) {
	rep := &Report{
		Evaluation: &Evaluation{
			Rows: []EvalRow{
				{Index: 0, TrueKey: "r:+|c:0|i:", PredKey: "r:+|c:0|i:", Correct: true,
					Gap: gapOf(0.5), FullSeconds: 1.5, WarmSeconds: 0.125},
				{Index: 1, TrueKey: "r:+|c:0|i:", PredKey: "r:-|c:0|i:",
					Gap: gapOf(math.Inf(1)), FullSeconds: 2},
				{Index: 2, TrueKey: "r:+|c:0|i:", PredKey: "r:+|c:0|i:", Correct: true,
					FullSeconds: 0.25},
			},
		},
	}

	var buf bytes.Buffer
	if err := rep.WriteRowsCSV(&buf); err != nil {
		t.Fatalf("WriteRowsCSV failed: %v", err)
	}
	recs, err := csv.NewReader(&buf).ReadAll()
	if err != nil {
		t.Fatalf("reading back failed: %v", err)
	}
	want := [][]string{
		{"index", "true_strategy", "predicted_strategy", "correct", "gap", "full_seconds", "warm_seconds"},
		{"0", "r:+|c:0|i:", "r:+|c:0|i:", "true", "0.5", "1.5", "0.125"},
		{"1", "r:+|c:0|i:", "r:-|c:0|i:", "false", "UNBOUNDED", "2", "0"},
		{"2", "r:+|c:0|i:", "r:+|c:0|i:", "true", "", "0.25", "0"},
	}
	if !reflect.DeepEqual(recs, want) {
		t.Errorf("rows CSV = %v, want %v", recs, want)
	}
}

func TestWriteRowsCSVWithoutEvaluation(t *testing.T) {
	var buf bytes.Buffer
	rep := &Report{}
	if err := rep.WriteRowsCSV(&buf); err != nil {
		t.Fatalf("WriteRowsCSV failed: %v", err)
	}
	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	if len(lines) != 1 {
		t.Errorf("got %d lines, want header only", len(lines))
	}
}

func TestReportJSON(t *testing.T) {
	rep := &Report{Instance: "assignment", Solver: "simplex", Learner: "knn", Samples: 10}
	b, err := json.Marshal(rep)
	if err != nil {
		t.Fatalf("Marshal failed: %v", err)
	}
	if strings.Contains(string(b), "evaluation") {
		t.Errorf("report without evaluation serialized one: %s", b)
	}
	if !math.IsNaN(rep.Accuracy()) {
		t.Errorf("Accuracy() = %g, want NaN", rep.Accuracy())
	}

	rep.Evaluation = &Evaluation{TestSamples: 4, Correct: 3, Accuracy: 0.75}
	b, err = json.Marshal(rep)
	if err != nil {
		t.Fatalf("Marshal failed: %v", err)
	}
	var back Report
	if err := json.Unmarshal(b, &back); err != nil {
		t.Fatalf("Unmarshal failed: %v", err)
	}
	if back.Evaluation == nil || back.Evaluation.Correct != 3 {
		t.Errorf("round trip lost the evaluation: %+v", back.Evaluation)
	}
	if rep.Accuracy() != 0.75 {
		t.Errorf("Accuracy() = %g, want 0.75", rep.Accuracy())
	}
}

func TestEvalRowGapJSON(t *testing.T) {
	b, err := json.Marshal(EvalRow{Index: 1, FullSeconds: 1})
	if err != nil {
		t.Fatalf("Marshal failed: %v", err)
	}
	if strings.Contains(string(b), "gap") {
		t.Errorf("nil gap serialized: %s", b)
	}

	b, err = json.Marshal(EvalRow{Index: 2, Gap: gapOf(math.Inf(1))})
	if err != nil {
		t.Fatalf("Marshal failed: %v", err)
	}
	if !strings.Contains(string(b), `"gap":"UNBOUNDED"`) {
		t.Errorf("infinite gap = %s, want UNBOUNDED", b)
	}
	var back EvalRow
	if err := json.Unmarshal(b, &back); err != nil {
		t.Fatalf("Unmarshal failed: %v", err)
	}
	if back.Gap == nil || !math.IsInf(float64(*back.Gap), 1) {
		t.Errorf("round trip gap = %v, want +Inf", back.Gap)
	}
}
