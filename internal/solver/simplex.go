package solver

import (
	"context"
	"errors"
	"math"
	"time"

	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/optimize/convex/lp"

	"github.com/LeparaLaMapara/mlopt/internal/problem"
)

// Simplex is a pure-Go LP backend on gonum's dense simplex method. It
// exists so the harness runs without the HiGHS shared library; it rejects
// integer and quadratic problems.
type Simplex struct {
	cfg Config
}

// NewSimplex creates a gonum-backed LP solver.
func NewSimplex(cfg Config) *Simplex {
	return &Simplex{cfg: cfg}
}

func (s *Simplex) Name() string { return string(BackendSimplex) }

var errNotLinear = errors.New("simplex backend solves pure LPs only")

// eqTol detects structurally equal row bounds during conversion.
const eqTol = 1e-9

// Solve converts d to standard form, min c̃ᵀx̃ with Ã·x̃ = b̃ and x̃ ≥ 0,
// and runs the simplex method. Every original variable is split into a
// positive and a negative part so free variables survive the conversion;
// inequality sides get one slack column each.
func (s *Simplex) Solve(ctx context.Context, d *problem.Data) (*Solution, error) {
	if err := d.Validate(); err != nil {
		return nil, &SolveFailure{Status: StatusError, Cause: err}
	}
	if d.IsMIP() || d.IsQP() {
		return nil, &SolveFailure{Status: StatusError, Cause: errNotLinear}
	}
	if err := ctx.Err(); err != nil {
		return nil, &SolveFailure{Status: StatusError, Cause: err}
	}

	n := d.NumCols
	var a *mat.Dense
	if d.NumRows > 0 {
		a = d.Dense()
	}

	// Collect equality rows and one-sided inequality rows (≤ form).
	type ineq struct {
		coeffs []float64
		rhs    float64
	}
	var eqs, ineqs []ineq

	negated := func(row []float64) []float64 {
		out := make([]float64, len(row))
		for i, v := range row {
			out[i] = -v
		}
		return out
	}
	for i := 0; i < d.NumRows; i++ {
		row := append([]float64(nil), a.RawRowView(i)...)
		lo, up := d.RowLower[i], d.RowUpper[i]
		if !math.IsInf(lo, -1) && !math.IsInf(up, 1) && up-lo <= eqTol {
			eqs = append(eqs, ineq{coeffs: row, rhs: lo})
			continue
		}
		if !math.IsInf(up, 1) {
			ineqs = append(ineqs, ineq{coeffs: row, rhs: up})
		}
		if !math.IsInf(lo, -1) {
			ineqs = append(ineqs, ineq{coeffs: negated(row), rhs: -lo})
		}
	}
	for j := 0; j < n; j++ {
		lo, up := d.ColLower[j], d.ColUpper[j]
		unit := make([]float64, n)
		unit[j] = 1
		if !math.IsInf(lo, -1) && !math.IsInf(up, 1) && up-lo <= eqTol {
			eqs = append(eqs, ineq{coeffs: unit, rhs: lo})
			continue
		}
		if !math.IsInf(up, 1) {
			ineqs = append(ineqs, ineq{coeffs: unit, rhs: up})
		}
		if !math.IsInf(lo, -1) {
			ineqs = append(ineqs, ineq{coeffs: negated(unit), rhs: -lo})
		}
	}

	// Standard-form layout: [x⁺ (n), x⁻ (n), slacks (one per inequality)].
	mE, mI := len(eqs), len(ineqs)
	if mE+mI == 0 {
		return nil, &SolveFailure{Status: StatusError, Cause: errors.New("problem has no constraints")}
	}
	cols := 2*n + mI
	cost := make([]float64, cols)
	sign := 1.0
	if d.Maximize {
		sign = -1
	}
	for j := 0; j < n; j++ {
		cost[j] = sign * d.Cost[j]
		cost[n+j] = -sign * d.Cost[j]
	}

	std := mat.NewDense(mE+mI, cols, nil)
	rhs := make([]float64, mE+mI)
	for i, e := range eqs {
		for j, v := range e.coeffs {
			std.Set(i, j, v)
			std.Set(i, n+j, -v)
		}
		rhs[i] = e.rhs
	}
	for k, q := range ineqs {
		i := mE + k
		for j, v := range q.coeffs {
			std.Set(i, j, v)
			std.Set(i, n+j, -v)
		}
		std.Set(i, 2*n+k, 1)
		rhs[i] = q.rhs
	}

	start := time.Now()
	z, xStd, err := lp.Simplex(cost, std, rhs, 0, nil)
	elapsed := time.Since(start)
	if err != nil {
		st := StatusError
		switch {
		case errors.Is(err, lp.ErrInfeasible):
			st = StatusInfeasible
		case errors.Is(err, lp.ErrUnbounded):
			st = StatusUnbounded
		}
		return &Solution{Status: st, SolveTime: elapsed}, &SolveFailure{Status: st, Cause: err}
	}

	x := make([]float64, n)
	for j := 0; j < n; j++ {
		x[j] = xStd[j] - xStd[n+j]
	}
	obj := sign*z + d.Offset

	return &Solution{
		Status:      StatusOptimal,
		Primal:      x,
		RowActivity: d.RowActivity(x),
		Objective:   obj,
		SolveTime:   elapsed,
	}, nil
}
