package strategy_test

import (
	"context"
	"math"
	"testing"

	"github.com/LeparaLaMapara/mlopt/internal/problem"
	"github.com/LeparaLaMapara/mlopt/internal/solver"
	"github.com/LeparaLaMapara/mlopt/internal/strategy"
)

func TestBuildRestrictionPinsAndDrops(t *testing.T) {
	d := problem.NewData(3)
	d.Cost = []float64{1, 2, 3}
	d.Offset = 1.5
	d.ColLower = []float64{0, 0, 0}
	d.ColUpper = []float64{math.Inf(1), 4, 5}
	d.IntCols = []int{2}
	d.AddDenseRow(math.Inf(-1), []float64{1, 1, 0}, 6) // active at upper
	d.AddDenseRow(0, []float64{0, 1, 1}, 9)            // inactive, dropped
	d.AddDenseRow(2, []float64{1, 0, 1}, 8)            // active at lower

	s := strategy.Strategy{
		Rows:    []int8{strategy.AtUpper, strategy.Inactive, strategy.AtLower},
		Cols:    []int8{strategy.AtLower, strategy.Inactive, strategy.Inactive},
		IntVals: []int64{3},
	}
	r, err := strategy.BuildRestriction(d, s)
	if err != nil {
		t.Fatalf("BuildRestriction failed: %v", err)
	}

	if r.NumRows != 2 {
		t.Fatalf("NumRows = %d, want 2", r.NumRows)
	}
	// Row 0 pinned at its upper bound, row 2 remapped to index 1 and
	// pinned at its lower bound.
	if r.RowLower[0] != 6 || r.RowUpper[0] != 6 {
		t.Errorf("pinned row 0 bounds = [%g, %g], want [6, 6]", r.RowLower[0], r.RowUpper[0])
	}
	if r.RowLower[1] != 2 || r.RowUpper[1] != 2 {
		t.Errorf("pinned row 1 bounds = [%g, %g], want [2, 2]", r.RowLower[1], r.RowUpper[1])
	}
	for _, e := range r.Elems {
		if e.Row < 0 || e.Row >= 2 {
			t.Errorf("entry %+v references a dropped row", e)
		}
	}

	// Column 0 fixed at its lower bound, integer column fixed at 3, and
	// no integrality left in the reduced problem.
	if r.ColUpper[0] != 0 {
		t.Errorf("ColUpper[0] = %g, want 0", r.ColUpper[0])
	}
	if r.ColLower[2] != 3 || r.ColUpper[2] != 3 {
		t.Errorf("integer column bounds = [%g, %g], want [3, 3]", r.ColLower[2], r.ColUpper[2])
	}
	if r.IsMIP() {
		t.Error("reduced problem still carries integrality constraints")
	}
	if r.Offset != 1.5 {
		t.Errorf("Offset = %g, want 1.5", r.Offset)
	}
	if err := r.Validate(); err != nil {
		t.Errorf("reduced problem invalid: %v", err)
	}
}

func TestBuildRestrictionRejectsImpossiblePins(t *testing.T) {
	d := problem.NewData(1)
	d.ColLower = []float64{0}
	d.AddDenseRow(math.Inf(-1), []float64{1}, 4)

	// Pinning the row at its infinite lower bound cannot describe any
	// solution.
	s := strategy.Strategy{Rows: []int8{strategy.AtLower}, Cols: []int8{strategy.Inactive}}
	if _, err := strategy.BuildRestriction(d, s); err == nil {
		t.Error("BuildRestriction accepted a pin at an infinite bound")
	}

	// Same for a column without a finite upper bound.
	s = strategy.Strategy{Rows: []int8{strategy.Inactive}, Cols: []int8{strategy.AtUpper}}
	if _, err := strategy.BuildRestriction(d, s); err == nil {
		t.Error("BuildRestriction accepted a column pin at an infinite bound")
	}
}

func TestBuildRestrictionRejectsShapeMismatch(t *testing.T) {
	d := problem.NewData(2)
	d.AddDenseRow(0, []float64{1, 1}, 1)

	s := strategy.Strategy{Rows: nil, Cols: []int8{0, 0}}
	if _, err := strategy.BuildRestriction(d, s); err == nil {
		t.Error("BuildRestriction accepted a short row pattern")
	}

	d.IntCols = []int{0}
	s = strategy.Strategy{Rows: []int8{0}, Cols: []int8{0, 0}}
	if _, err := strategy.BuildRestriction(d, s); err == nil {
		t.Error("BuildRestriction accepted missing integer values")
	}
}

func TestRestrictionReproducesOptimum(t *testing.T) {
	a, _ := problem.NewAssignment(2)
	d, err := a.Populate([]float64{0.25, -0.125})
	if err != nil {
		t.Fatalf("Populate failed: %v", err)
	}

	s := solver.NewSimplex(solver.Config{})
	sol, err := s.Solve(context.Background(), d)
	if err != nil {
		t.Fatalf("full solve failed: %v", err)
	}
	st, err := strategy.NewExtractor(1e-6).Extract(d, sol)
	if err != nil {
		t.Fatalf("Extract failed: %v", err)
	}

	r, err := strategy.BuildRestriction(d, st)
	if err != nil {
		t.Fatalf("BuildRestriction failed: %v", err)
	}
	rsol, err := s.Solve(context.Background(), r)
	if err != nil {
		t.Fatalf("restricted solve failed: %v", err)
	}

	if math.Abs(rsol.Objective-sol.Objective) > 1e-9 {
		t.Errorf("restricted objective %g differs from true optimum %g",
			rsol.Objective, sol.Objective)
	}
	if err := strategy.CheckFeasible(d, rsol.Primal, 1e-6); err != nil {
		t.Errorf("restricted solution infeasible for the full problem: %v", err)
	}
}

func TestCheckFeasible(t *testing.T) {
	d := problem.NewData(2)
	d.ColLower = []float64{0, 0}
	d.ColUpper = []float64{5, 5}
	d.IntCols = []int{1}
	d.AddDenseRow(1, []float64{1, 1}, 4)

	if err := strategy.CheckFeasible(d, []float64{1, 2}, 1e-6); err != nil {
		t.Errorf("feasible point rejected: %v", err)
	}
	if err := strategy.CheckFeasible(d, []float64{-1, 2}, 1e-6); err == nil {
		t.Error("bound violation accepted")
	}
	if err := strategy.CheckFeasible(d, []float64{5, 5}, 1e-6); err == nil {
		t.Error("row violation accepted")
	}
	if err := strategy.CheckFeasible(d, []float64{1, 1.5}, 1e-6); err == nil {
		t.Error("fractional integer accepted")
	}
	if err := strategy.CheckFeasible(d, []float64{1}, 1e-6); err == nil {
		t.Error("short point accepted")
	}
}
