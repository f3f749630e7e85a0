package solver

import (
	"context"
	"fmt"
	"math"
	"time"

	"github.com/lanl/highs"

	"github.com/LeparaLaMapara/mlopt/internal/problem"
)

// HiGHS adapts the HiGHS solver. It handles the full problem surface:
// LPs, QPs and mixed-integer programs.
type HiGHS struct {
	cfg Config
}

// NewHiGHS creates a HiGHS-backed solver.
func NewHiGHS(cfg Config) *HiGHS {
	return &HiGHS{cfg: cfg}
}

func (h *HiGHS) Name() string { return string(BackendHiGHS) }

// Solve builds a HiGHS model from d and runs it. Infinite bounds are
// clamped to the configured finite sentinel before the handoff.
func (h *HiGHS) Solve(ctx context.Context, d *problem.Data) (*Solution, error) {
	if err := d.Validate(); err != nil {
		return nil, &SolveFailure{Status: StatusError, Cause: err}
	}
	if err := ctx.Err(); err != nil {
		return nil, &SolveFailure{Status: StatusError, Cause: err}
	}

	model := h.buildModel(d)
	start := time.Now()
	sol, err := model.Solve()
	elapsed := time.Since(start)
	if err != nil {
		return nil, &SolveFailure{Status: StatusError, Cause: fmt.Errorf("highs solve: %w", err)}
	}

	out := &Solution{
		Status:      mapStatus(sol.Status),
		Primal:      sol.ColumnPrimal,
		Dual:        sol.RowDual,
		RowActivity: sol.RowPrimal,
		Objective:   sol.Objective,
		SolveTime:   elapsed,
	}
	if len(out.RowActivity) != d.NumRows && len(out.Primal) == d.NumCols {
		out.RowActivity = d.RowActivity(out.Primal)
	}
	if out.Status != StatusOptimal {
		return out, &SolveFailure{Status: out.Status}
	}
	return out, nil
}

// buildModel maps the canonical form onto the HiGHS model struct.
func (h *HiGHS) buildModel(d *problem.Data) *highs.Model {
	inf := h.cfg.infinity()
	model := &highs.Model{
		Maximize: d.Maximize,
		ColCosts: append([]float64(nil), d.Cost...),
		Offset:   d.Offset,
		ColLower: clampBounds(d.ColLower, inf),
		ColUpper: clampBounds(d.ColUpper, inf),
		RowLower: clampBounds(d.RowLower, inf),
		RowUpper: clampBounds(d.RowUpper, inf),
	}
	model.ConstMatrix = make([]highs.Nonzero, len(d.Elems))
	for i, e := range d.Elems {
		model.ConstMatrix[i] = highs.Nonzero{Row: e.Row, Col: e.Col, Val: e.Val}
	}
	if len(d.IntCols) > 0 {
		model.VarTypes = make([]highs.VariableType, d.NumCols)
		for _, j := range d.IntCols {
			model.VarTypes[j] = highs.IntegerType
		}
	}
	if len(d.Quad) > 0 {
		model.HessianMatrix = make([]highs.Nonzero, len(d.Quad))
		for i, e := range d.Quad {
			model.HessianMatrix[i] = highs.Nonzero{Row: e.Row, Col: e.Col, Val: e.Val}
		}
	}
	return model
}

func clampBounds(bounds []float64, inf float64) []float64 {
	out := make([]float64, len(bounds))
	for i, v := range bounds {
		switch {
		case math.IsInf(v, -1) || v < -inf:
			out[i] = -inf
		case math.IsInf(v, 1) || v > inf:
			out[i] = inf
		default:
			out[i] = v
		}
	}
	return out
}

func mapStatus(s highs.ModelStatus) Status {
	switch s {
	case highs.Optimal:
		return StatusOptimal
	case highs.Infeasible:
		return StatusInfeasible
	case highs.Unbounded, highs.UnboundedOrInfeasible:
		return StatusUnbounded
	case highs.TimeLimit:
		return StatusTimeLimit
	default:
		return StatusError
	}
}
