package experiment

import (
	"context"
	"math"
	"testing"

	"github.com/LeparaLaMapara/mlopt/internal/problem"
	"github.com/LeparaLaMapara/mlopt/internal/solver"
	"github.com/LeparaLaMapara/mlopt/internal/strategy"
)

// modelFunc adapts a plain function to the learner.Model interface.
type modelFunc func(theta []float64) (string, error)

func (f modelFunc) Predict(theta []float64) (string, error) { return f(theta) }

// assignmentFixture solves the given thetas on a 2-agent assignment
// instance and returns the evaluator pieces plus the populated dataset.
func assignmentFixture(t *testing.T, thetas [][]float64) (*Evaluator, *Dataset) {
	t.Helper()
	inst, err := problem.NewAssignment(2)
	if err != nil {
		t.Fatalf("NewAssignment failed: %v", err)
	}
	solv := solver.NewSimplex(solver.Config{})
	ds := NewDataset()
	for _, theta := range thetas {
		data, err := inst.Populate(theta)
		if err != nil {
			t.Fatalf("Populate(%v) failed: %v", theta, err)
		}
		sol, err := solv.Solve(context.Background(), data)
		if err != nil {
			t.Fatalf("Solve failed: %v", err)
		}
		st, err := strategy.NewExtractor(1e-6).Extract(data, sol)
		if err != nil {
			t.Fatalf("Extract failed: %v", err)
		}
		ds.Add(theta, st, sol.Objective, sol.SolveTime)
	}
	ev := &Evaluator{
		Instance:    inst,
		Solver:      solv,
		Table:       ds.Table(),
		Tol:         1e-6,
		GapFraction: 1,
	}
	return ev, ds
}

// The identity assignment is optimal for small theta; swapping both
// agents instead is feasible but strictly worse.
var (
	identityKey = strategy.Strategy{
		Rows: []int8{1, 1},
		Cols: []int8{0, -1, -1, 0},
	}.Key()
	swappedKey = strategy.Strategy{
		Rows: []int8{1, 1},
		Cols: []int8{-1, 0, 0, -1},
	}.Key()
	pinnedAllKey = strategy.Strategy{
		Rows: []int8{1, 1},
		Cols: []int8{-1, -1, -1, -1},
	}.Key()
)

func TestEvaluateAccuracyAndGaps(t *testing.T) {
	ev, ds := assignmentFixture(t, [][]float64{{0.3, 0.2}, {0.1, -0.1}})

	// Predict the first sample right and the second one wrong but
	// feasible: the swap forfeits the whole diagonal payoff.
	model := modelFunc(func(theta []float64) (string, error) {
		if theta[0] == 0.3 {
			return identityKey, nil
		}
		return swappedKey, nil
	})

	res, err := ev.Evaluate(context.Background(), model, ds)
	if err != nil {
		t.Fatalf("Evaluate failed: %v", err)
	}
	if res.TestSamples != 2 || res.Correct != 1 {
		t.Errorf("TestSamples, Correct = %d, %d; want 2, 1", res.TestSamples, res.Correct)
	}
	if res.Accuracy != 0.5 {
		t.Errorf("Accuracy = %g, want 0.5", res.Accuracy)
	}
	if res.GapSamples != 2 || res.Infeasible != 0 {
		t.Errorf("GapSamples, Infeasible = %d, %d; want 2, 0", res.GapSamples, res.Infeasible)
	}

	// Correct prediction recovers the optimum; the swap loses the full
	// objective of 2 + 0.1 - 0.1 = 2, for a relative gap of 1.
	rows := res.Rows
	if g := float64(*rows[0].Gap); math.Abs(g) > 1e-9 {
		t.Errorf("gap of the correct prediction = %g, want 0", g)
	}
	if g := float64(*rows[1].Gap); math.Abs(g-1) > 1e-9 {
		t.Errorf("gap of the swapped prediction = %g, want 1", g)
	}
	if g := float64(res.MaxGap); math.Abs(g-1) > 1e-9 {
		t.Errorf("MaxGap = %g, want 1", g)
	}
	if g := float64(res.MeanGap); math.Abs(g-0.5) > 1e-9 {
		t.Errorf("MeanGap = %g, want 0.5", g)
	}
}

func TestEvaluateInfeasiblePredictionIsUnbounded(t *testing.T) {
	ev, ds := assignmentFixture(t, [][]float64{{0.2, 0.2}})

	// Pinning every variable at zero contradicts the assignment rows.
	model := modelFunc(func([]float64) (string, error) { return pinnedAllKey, nil })

	res, err := ev.Evaluate(context.Background(), model, ds)
	if err != nil {
		t.Fatalf("Evaluate failed: %v", err)
	}
	if res.Infeasible != 1 {
		t.Errorf("Infeasible = %d, want 1", res.Infeasible)
	}
	row := res.Rows[0]
	if row.Gap == nil || !math.IsInf(float64(*row.Gap), 1) {
		t.Errorf("Gap = %v, want +Inf", row.Gap)
	}
	if row.Correct {
		t.Error("an infeasible prediction cannot be correct")
	}
}

func TestEvaluateGapFraction(t *testing.T) {
	ev, ds := assignmentFixture(t, [][]float64{{0.1, 0.1}, {0.2, 0.1}, {0.1, 0.3}, {0.3, 0.2}})
	ev.GapFraction = 0.5

	model := modelFunc(func([]float64) (string, error) { return identityKey, nil })
	res, err := ev.Evaluate(context.Background(), model, ds)
	if err != nil {
		t.Fatalf("Evaluate failed: %v", err)
	}
	if res.GapSamples != 2 {
		t.Errorf("GapSamples = %d, want 2", res.GapSamples)
	}
	for i, row := range res.Rows {
		if i < 2 && row.Gap == nil {
			t.Errorf("row %d has no gap", i)
		}
		if i >= 2 && row.Gap != nil {
			t.Errorf("row %d has a gap beyond the fraction", i)
		}
	}
	if res.Accuracy != 1 {
		t.Errorf("Accuracy = %g, want 1", res.Accuracy)
	}
}

func TestEvaluateDecodesUnknownKeys(t *testing.T) {
	ev, ds := assignmentFixture(t, [][]float64{{0.1, 0.2}})
	// An empty table forces the evaluator to decode the key itself.
	ev.Table = strategy.NewTable()

	model := modelFunc(func([]float64) (string, error) { return identityKey, nil })
	res, err := ev.Evaluate(context.Background(), model, ds)
	if err != nil {
		t.Fatalf("Evaluate failed: %v", err)
	}
	if g := float64(*res.Rows[0].Gap); math.Abs(g) > 1e-9 {
		t.Errorf("gap = %g, want 0", g)
	}

	// A key that does not decode counts as infeasible, not fatal.
	model = modelFunc(func([]float64) (string, error) { return "garbage", nil })
	res, err = ev.Evaluate(context.Background(), model, ds)
	if err != nil {
		t.Fatalf("Evaluate failed: %v", err)
	}
	if res.Infeasible != 1 {
		t.Errorf("Infeasible = %d, want 1", res.Infeasible)
	}
}

func TestRelativeGap(t *testing.T) {
	tests := []struct {
		name     string
		trueObj  float64
		predObj  float64
		maximize bool
		want     float64
	}{
		{"exact minimize", 10, 10, false, 0},
		{"worse minimize", 10, 12, false, 0.2},
		{"worse maximize", 10, 8, true, 0.2},
		{"small optimum uses floor", 0.5, 0.75, false, 0.25},
		{"negative optimum", -4, -2, false, 0.5},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			got := relativeGap(tc.trueObj, tc.predObj, tc.maximize)
			if math.Abs(got-tc.want) > 1e-12 {
				t.Errorf("relativeGap = %g, want %g", got, tc.want)
			}
		})
	}
}
