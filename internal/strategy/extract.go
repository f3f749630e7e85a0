package strategy

import (
	"fmt"
	"math"

	"github.com/LeparaLaMapara/mlopt/internal/problem"
	"github.com/LeparaLaMapara/mlopt/internal/solver"
)

// DefaultTol is the slack tolerance below which a constraint counts as
// binding.
const DefaultTol = 1e-6

// Extractor derives strategies from solved instances. A row or bound is
// active when its slack is within Tol of zero, the boundary inclusive, so
// extraction is deterministic for any fixed solution. Degenerate problems
// can still map numerically different optima to different strategies;
// that is a property of the problem, not of the extraction.
type Extractor struct {
	Tol float64
}

// NewExtractor returns an extractor with the given tolerance, or
// DefaultTol when tol is not positive.
func NewExtractor(tol float64) Extractor {
	if tol <= 0 {
		tol = DefaultTol
	}
	return Extractor{Tol: tol}
}

// Extract maps the solution of d onto its activity pattern. Equality rows
// and fixed columns are structurally active and always encode AtUpper.
// When both bounds of a range sit within tolerance the nearer one wins,
// lower on an exact tie.
func (e Extractor) Extract(d *problem.Data, sol *solver.Solution) (Strategy, error) {
	if sol == nil || len(sol.Primal) != d.NumCols {
		return Strategy{}, fmt.Errorf("solution has %d primal values, want %d", len(sol.Primal), d.NumCols)
	}
	act := sol.RowActivity
	if len(act) != d.NumRows {
		act = d.RowActivity(sol.Primal)
	}

	s := Strategy{
		Rows: make([]int8, d.NumRows),
		Cols: make([]int8, d.NumCols),
	}
	for i := 0; i < d.NumRows; i++ {
		if d.Sense(i, e.Tol) == problem.SenseEQ {
			s.Rows[i] = AtUpper
			continue
		}
		s.Rows[i] = e.classify(act[i], d.RowLower[i], d.RowUpper[i])
	}
	for j := 0; j < d.NumCols; j++ {
		lo, up := d.ColLower[j], d.ColUpper[j]
		if !math.IsInf(lo, -1) && !math.IsInf(up, 1) && up-lo <= e.Tol {
			s.Cols[j] = AtUpper
			continue
		}
		s.Cols[j] = e.classify(sol.Primal[j], lo, up)
	}
	for _, j := range d.IntCols {
		s.IntVals = append(s.IntVals, int64(math.Round(sol.Primal[j])))
	}
	return s, nil
}

// classify places a value against a two-sided bound pair.
func (e Extractor) classify(v, lo, up float64) int8 {
	dLo, dUp := math.Inf(1), math.Inf(1)
	if !math.IsInf(lo, -1) {
		dLo = math.Abs(v - lo)
	}
	if !math.IsInf(up, 1) {
		dUp = math.Abs(up - v)
	}
	loActive := dLo <= e.Tol
	upActive := dUp <= e.Tol
	switch {
	case loActive && upActive:
		if dUp < dLo {
			return AtUpper
		}
		return AtLower
	case loActive:
		return AtLower
	case upActive:
		return AtUpper
	default:
		return Inactive
	}
}
