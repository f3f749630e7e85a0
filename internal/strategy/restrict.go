package strategy

import (
	"fmt"
	"math"

	"github.com/LeparaLaMapara/mlopt/internal/problem"
)

// BuildRestriction turns a problem and a (predicted) strategy into the
// reduced problem used for warm-started solving: active rows become
// equalities at their binding bound, inactive inequality rows are
// dropped, columns active at a bound are fixed there and integer columns
// are fixed to their strategy values, leaving no integrality constraints.
//
// An error means the strategy cannot describe any solution of d, for
// example because it pins a row at an infinite bound; callers treat that
// as an infeasible prediction.
func BuildRestriction(d *problem.Data, s Strategy) (*problem.Data, error) {
	if len(s.Rows) != d.NumRows || len(s.Cols) != d.NumCols {
		return nil, fmt.Errorf("strategy shape %dx%d does not match problem %dx%d",
			len(s.Rows), len(s.Cols), d.NumRows, d.NumCols)
	}
	if len(s.IntVals) != len(d.IntCols) {
		return nil, fmt.Errorf("strategy has %d integer values, problem has %d integer columns",
			len(s.IntVals), len(d.IntCols))
	}

	r := problem.NewData(d.NumCols)
	r.Cost = append([]float64(nil), d.Cost...)
	r.Offset = d.Offset
	r.Maximize = d.Maximize
	r.Quad = append([]problem.Nonzero(nil), d.Quad...)
	copy(r.ColLower, d.ColLower)
	copy(r.ColUpper, d.ColUpper)

	for j := 0; j < d.NumCols; j++ {
		switch s.Cols[j] {
		case AtLower:
			if math.IsInf(d.ColLower[j], -1) {
				return nil, fmt.Errorf("strategy pins column %d at an infinite lower bound", j)
			}
			r.ColUpper[j] = d.ColLower[j]
		case AtUpper:
			if math.IsInf(d.ColUpper[j], 1) {
				return nil, fmt.Errorf("strategy pins column %d at an infinite upper bound", j)
			}
			r.ColLower[j] = d.ColUpper[j]
		}
	}
	// Integer columns are fixed outright, which also removes the
	// integrality constraint from the reduced problem.
	for i, j := range d.IntCols {
		v := float64(s.IntVals[i])
		if v < d.ColLower[j]-1e-9 || v > d.ColUpper[j]+1e-9 {
			return nil, fmt.Errorf("strategy fixes integer column %d at %g outside [%g, %g]",
				j, v, d.ColLower[j], d.ColUpper[j])
		}
		r.ColLower[j] = v
		r.ColUpper[j] = v
	}

	keep := make([]int, d.NumRows)
	for i := range keep {
		keep[i] = -1
	}
	for i := 0; i < d.NumRows; i++ {
		var bound float64
		switch s.Rows[i] {
		case AtLower:
			bound = d.RowLower[i]
		case AtUpper:
			bound = d.RowUpper[i]
		default:
			continue
		}
		if math.IsInf(bound, 0) {
			return nil, fmt.Errorf("strategy pins row %d at an infinite bound", i)
		}
		keep[i] = r.NumRows
		r.RowLower = append(r.RowLower, bound)
		r.RowUpper = append(r.RowUpper, bound)
		r.NumRows++
	}
	for _, e := range d.Elems {
		if to := keep[e.Row]; to >= 0 {
			r.Elems = append(r.Elems, problem.Nonzero{Row: to, Col: e.Col, Val: e.Val})
		}
	}
	return r, nil
}

// CheckFeasible verifies a candidate point against the full problem
// within tol: variable bounds, row ranges and integrality. A nil error
// means the point is feasible.
func CheckFeasible(d *problem.Data, x []float64, tol float64) error {
	if len(x) != d.NumCols {
		return fmt.Errorf("point has %d entries, want %d", len(x), d.NumCols)
	}
	for j, v := range x {
		if v < d.ColLower[j]-tol || v > d.ColUpper[j]+tol {
			return fmt.Errorf("column %d value %g violates bounds [%g, %g]",
				j, v, d.ColLower[j], d.ColUpper[j])
		}
	}
	act := d.RowActivity(x)
	for i, a := range act {
		if a < d.RowLower[i]-tol || a > d.RowUpper[i]+tol {
			return fmt.Errorf("row %d activity %g violates bounds [%g, %g]",
				i, a, d.RowLower[i], d.RowUpper[i])
		}
	}
	for _, j := range d.IntCols {
		if math.Abs(x[j]-math.Round(x[j])) > tol {
			return fmt.Errorf("column %d value %g is not integral", j, x[j])
		}
	}
	return nil
}
