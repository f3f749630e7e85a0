package experiment

import (
	"encoding/csv"
	"encoding/json"
	"fmt"
	"io"
	"math"
	"strconv"
)

// Gap is a relative optimality gap. Positive infinity marks an
// infeasible prediction and serializes as the string "UNBOUNDED".
type Gap float64

func (g Gap) String() string {
	if math.IsInf(float64(g), 1) {
		return "UNBOUNDED"
	}
	return strconv.FormatFloat(float64(g), 'g', 6, 64)
}

func (g Gap) MarshalJSON() ([]byte, error) {
	if math.IsInf(float64(g), 1) {
		return json.Marshal("UNBOUNDED")
	}
	return json.Marshal(float64(g))
}

func (g *Gap) UnmarshalJSON(b []byte) error {
	var s string
	if err := json.Unmarshal(b, &s); err == nil {
		if s != "UNBOUNDED" {
			return fmt.Errorf("invalid gap %q", s)
		}
		*g = Gap(math.Inf(1))
		return nil
	}
	var v float64
	if err := json.Unmarshal(b, &v); err != nil {
		return fmt.Errorf("invalid gap %s", b)
	}
	*g = Gap(v)
	return nil
}

// EvalRow is the outcome of one test sample.
type EvalRow struct {
	Index   int    `json:"index"`
	TrueKey string `json:"true_strategy"`
	PredKey string `json:"predicted_strategy"`
	Correct bool   `json:"correct"`

	// Gap is nil when no warm-started solve ran for this row.
	Gap *Gap `json:"gap,omitempty"`

	// FullSeconds is the original solve time, WarmSeconds the
	// warm-started one. Their ratio is the point of the exercise.
	FullSeconds float64 `json:"full_seconds"`
	WarmSeconds float64 `json:"warm_seconds,omitempty"`
}

// Evaluation aggregates the test rows.
type Evaluation struct {
	TestSamples int     `json:"test_samples"`
	Correct     int     `json:"correct"`
	Accuracy    float64 `json:"accuracy"`

	// GapSamples counts rows with a warm-started solve; Infeasible the
	// subset whose prediction yielded nothing feasible. Mean and max
	// cover the finite gaps only.
	GapSamples int `json:"gap_samples"`
	Infeasible int `json:"infeasible"`
	MeanGap    Gap `json:"mean_gap"`
	MaxGap     Gap `json:"max_gap"`

	MeanFullSeconds float64 `json:"mean_full_seconds"`
	MeanWarmSeconds float64 `json:"mean_warm_seconds"`

	Rows []EvalRow `json:"rows,omitempty"`
}

// summarize folds rows into an Evaluation.
func summarize(rows []EvalRow) *Evaluation {
	ev := &Evaluation{TestSamples: len(rows), Rows: rows}

	var gapSum, fullSum, warmSum float64
	var finite, warmed int
	maxGap := math.Inf(-1)

	for _, r := range rows {
		if r.Correct {
			ev.Correct++
		}
		fullSum += r.FullSeconds
		if r.Gap == nil {
			continue
		}
		ev.GapSamples++
		g := float64(*r.Gap)
		if math.IsInf(g, 1) {
			ev.Infeasible++
			continue
		}
		finite++
		gapSum += g
		if g > maxGap {
			maxGap = g
		}
		warmSum += r.WarmSeconds
		warmed++
	}

	if len(rows) > 0 {
		ev.Accuracy = float64(ev.Correct) / float64(len(rows))
		ev.MeanFullSeconds = fullSum / float64(len(rows))
	}
	if finite > 0 {
		ev.MeanGap = Gap(gapSum / float64(finite))
		ev.MaxGap = Gap(maxGap)
	}
	if warmed > 0 {
		ev.MeanWarmSeconds = warmSum / float64(warmed)
	}
	return ev
}

// Report is the artifact of a finished experiment.
type Report struct {
	Instance string `json:"instance"`
	Solver   string `json:"solver"`
	Learner  string `json:"learner"`

	Samples    int     `json:"samples"`
	Dropped    int     `json:"dropped"`
	Strategies int     `json:"strategies"`
	Singletons int     `json:"singletons"`
	UnseenMass float64 `json:"unseen_mass"`

	TrainSeconds float64 `json:"train_seconds"`
	TotalSeconds float64 `json:"total_seconds"`

	Evaluation *Evaluation `json:"evaluation,omitempty"`
}

// Accuracy returns the test accuracy, or NaN when the run had no
// evaluation phase.
func (r *Report) Accuracy() float64 {
	if r.Evaluation == nil {
		return math.NaN()
	}
	return r.Evaluation.Accuracy
}

// WriteRowsCSV exports the per-sample evaluation rows.
func (r *Report) WriteRowsCSV(w io.Writer) error {
	cw := csv.NewWriter(w)
	header := []string{"index", "true_strategy", "predicted_strategy", "correct", "gap", "full_seconds", "warm_seconds"}
	if err := cw.Write(header); err != nil {
		return err
	}
	if r.Evaluation != nil {
		for _, row := range r.Evaluation.Rows {
			gap := ""
			if row.Gap != nil {
				gap = row.Gap.String()
			}
			rec := []string{
				strconv.Itoa(row.Index),
				row.TrueKey,
				row.PredKey,
				strconv.FormatBool(row.Correct),
				gap,
				strconv.FormatFloat(row.FullSeconds, 'g', -1, 64),
				strconv.FormatFloat(row.WarmSeconds, 'g', -1, 64),
			}
			if err := cw.Write(rec); err != nil {
				return err
			}
		}
	}
	cw.Flush()
	return cw.Error()
}
