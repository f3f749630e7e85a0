package solver

import (
	"math"
	"testing"

	"github.com/lanl/highs"

	"github.com/LeparaLaMapara/mlopt/internal/problem"
)

func TestBuildModelMapsCanonicalForm(t *testing.T) {
	d := problem.NewData(3)
	d.Cost = []float64{1, -2, 0.5}
	d.Offset = 7
	d.Maximize = true
	d.ColLower = []float64{0, math.Inf(-1), 0}
	d.ColUpper = []float64{math.Inf(1), 5, 1}
	d.IntCols = []int{2}
	d.AddDenseRow(1, []float64{1, 1, 0}, 1)
	d.AddDenseRow(math.Inf(-1), []float64{0, 2, -1}, 4)

	h := NewHiGHS(Config{Infinity: 1e10})
	model := h.buildModel(d)

	if !model.Maximize {
		t.Error("Maximize flag not carried over")
	}
	if model.Offset != 7 {
		t.Errorf("Offset = %g, want 7", model.Offset)
	}
	if model.ColLower[1] != -1e10 {
		t.Errorf("ColLower[1] = %g, want -1e10", model.ColLower[1])
	}
	if model.ColUpper[0] != 1e10 {
		t.Errorf("ColUpper[0] = %g, want 1e10", model.ColUpper[0])
	}
	if model.RowLower[1] != -1e10 {
		t.Errorf("RowLower[1] = %g, want -1e10", model.RowLower[1])
	}
	if len(model.ConstMatrix) != 4 {
		t.Fatalf("got %d matrix entries, want 4", len(model.ConstMatrix))
	}
	if e := model.ConstMatrix[3]; e.Row != 1 || e.Col != 2 || e.Val != -1 {
		t.Errorf("ConstMatrix[3] = %+v, want {1 2 -1}", e)
	}
	if len(model.VarTypes) != 3 {
		t.Fatalf("got %d variable types, want 3", len(model.VarTypes))
	}
	if model.VarTypes[2] != highs.IntegerType {
		t.Error("integer column not marked integer")
	}
	if model.VarTypes[0] == highs.IntegerType {
		t.Error("continuous column marked integer")
	}
}

func TestMapStatus(t *testing.T) {
	tests := []struct {
		in   highs.ModelStatus
		want Status
	}{
		{highs.Optimal, StatusOptimal},
		{highs.Infeasible, StatusInfeasible},
		{highs.Unbounded, StatusUnbounded},
		{highs.UnboundedOrInfeasible, StatusUnbounded},
		{highs.TimeLimit, StatusTimeLimit},
	}
	for _, tt := range tests {
		if got := mapStatus(tt.in); got != tt.want {
			t.Errorf("mapStatus(%v) = %v, want %v", tt.in, got, tt.want)
		}
	}
}

func TestClampBoundsKeepsFiniteValues(t *testing.T) {
	in := []float64{-3, 0, 2.5, math.Inf(1), math.Inf(-1), 1e20}
	out := clampBounds(in, 1e15)
	want := []float64{-3, 0, 2.5, 1e15, -1e15, 1e15}
	for i, w := range want {
		if out[i] != w {
			t.Errorf("clampBounds[%d] = %g, want %g", i, out[i], w)
		}
	}
}
