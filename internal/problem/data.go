package problem

import (
	"fmt"
	"math"
	"sort"

	"gonum.org/v1/gonum/mat"
)

// Sense classifies a constraint row by the shape of its bounds.
type Sense int

const (
	SenseRange Sense = iota // rl < A·x < ru, both finite
	SenseLE                 // A·x ≤ ru
	SenseGE                 // rl ≤ A·x
	SenseEQ                 // A·x = rl = ru
	SenseFree               // row without finite bounds
)

// Nonzero is a single entry of a sparse matrix in coordinate form.
type Nonzero struct {
	Row int     `json:"row"`
	Col int     `json:"col"`
	Val float64 `json:"val"`
}

// Data is the canonical matrix form of a linear or quadratic program:
//
//	optimize  cᵀx + offset (+ ½ xᵀQx)
//	subject to  rl ≤ A·x ≤ ru,  cl ≤ x ≤ cu
//
// One-sided rows and bounds use ±Inf; equality rows set rl == ru. Columns
// listed in IntCols are integer-valued. A Data is built once by a problem
// instance for a given parameter vector and is not mutated afterwards.
type Data struct {
	NumCols int `json:"num_cols"`
	NumRows int `json:"num_rows"`

	Cost     []float64 `json:"cost"`
	Offset   float64   `json:"offset,omitempty"`
	Maximize bool      `json:"maximize,omitempty"`

	Elems    []Nonzero `json:"elems"`
	RowLower []float64 `json:"row_lower"`
	RowUpper []float64 `json:"row_upper"`

	ColLower []float64 `json:"col_lower"`
	ColUpper []float64 `json:"col_upper"`

	// IntCols lists integrality-constrained columns, sorted ascending.
	IntCols []int `json:"int_cols,omitempty"`

	// Quad holds the lower triangle of Q for quadratic objectives.
	Quad []Nonzero `json:"quad,omitempty"`
}

// NewData allocates a problem with n columns and no rows. Column bounds
// default to free and the objective to zero.
func NewData(n int) *Data {
	d := &Data{
		NumCols:  n,
		Cost:     make([]float64, n),
		ColLower: make([]float64, n),
		ColUpper: make([]float64, n),
	}
	for j := 0; j < n; j++ {
		d.ColLower[j] = math.Inf(-1)
		d.ColUpper[j] = math.Inf(1)
	}
	return d
}

// AddDenseRow appends the constraint lower ≤ coeffs·x ≤ upper, storing only
// the nonzero coefficients.
func (d *Data) AddDenseRow(lower float64, coeffs []float64, upper float64) {
	row := d.NumRows
	for j, v := range coeffs {
		if v != 0 {
			d.Elems = append(d.Elems, Nonzero{Row: row, Col: j, Val: v})
		}
	}
	d.RowLower = append(d.RowLower, lower)
	d.RowUpper = append(d.RowUpper, upper)
	d.NumRows++
}

// AddRow appends a constraint given as sparse column/value pairs.
func (d *Data) AddRow(lower float64, cols []int, vals []float64, upper float64) {
	row := d.NumRows
	for i, j := range cols {
		if vals[i] != 0 {
			d.Elems = append(d.Elems, Nonzero{Row: row, Col: j, Val: vals[i]})
		}
	}
	d.RowLower = append(d.RowLower, lower)
	d.RowUpper = append(d.RowUpper, upper)
	d.NumRows++
}

// Sense classifies row i using tol to detect equality rows.
func (d *Data) Sense(i int, tol float64) Sense {
	lo, up := d.RowLower[i], d.RowUpper[i]
	loFin, upFin := !math.IsInf(lo, -1), !math.IsInf(up, 1)
	switch {
	case loFin && upFin && up-lo <= tol:
		return SenseEQ
	case loFin && upFin:
		return SenseRange
	case upFin:
		return SenseLE
	case loFin:
		return SenseGE
	default:
		return SenseFree
	}
}

// Validate checks the structural invariants: vector lengths match the
// declared dimensions, bounds are ordered, sparse indices are in range and
// IntCols is sorted without duplicates.
func (d *Data) Validate() error {
	if d.NumCols <= 0 {
		return fmt.Errorf("problem has %d columns", d.NumCols)
	}
	if len(d.Cost) != d.NumCols {
		return fmt.Errorf("cost vector has length %d, want %d", len(d.Cost), d.NumCols)
	}
	if len(d.ColLower) != d.NumCols || len(d.ColUpper) != d.NumCols {
		return fmt.Errorf("column bounds have lengths %d/%d, want %d",
			len(d.ColLower), len(d.ColUpper), d.NumCols)
	}
	if len(d.RowLower) != d.NumRows || len(d.RowUpper) != d.NumRows {
		return fmt.Errorf("row bounds have lengths %d/%d, want %d",
			len(d.RowLower), len(d.RowUpper), d.NumRows)
	}
	for j := 0; j < d.NumCols; j++ {
		if d.ColLower[j] > d.ColUpper[j] {
			return fmt.Errorf("column %d has lower bound %g above upper bound %g",
				j, d.ColLower[j], d.ColUpper[j])
		}
	}
	for i := 0; i < d.NumRows; i++ {
		if d.RowLower[i] > d.RowUpper[i] {
			return fmt.Errorf("row %d has lower bound %g above upper bound %g",
				i, d.RowLower[i], d.RowUpper[i])
		}
	}
	for _, e := range d.Elems {
		if e.Row < 0 || e.Row >= d.NumRows || e.Col < 0 || e.Col >= d.NumCols {
			return fmt.Errorf("matrix entry (%d,%d) out of range %dx%d",
				e.Row, e.Col, d.NumRows, d.NumCols)
		}
	}
	for _, e := range d.Quad {
		if e.Row < 0 || e.Row >= d.NumCols || e.Col < 0 || e.Col > e.Row {
			return fmt.Errorf("hessian entry (%d,%d) outside lower triangle of %dx%d",
				e.Row, e.Col, d.NumCols, d.NumCols)
		}
	}
	if !sort.IntsAreSorted(d.IntCols) {
		return fmt.Errorf("integer column list is not sorted")
	}
	for i, j := range d.IntCols {
		if j < 0 || j >= d.NumCols {
			return fmt.Errorf("integer column %d out of range", j)
		}
		if i > 0 && d.IntCols[i-1] == j {
			return fmt.Errorf("integer column %d listed twice", j)
		}
	}
	return nil
}

// Dense materializes the constraint matrix for backends that want dense
// storage.
func (d *Data) Dense() *mat.Dense {
	a := mat.NewDense(d.NumRows, d.NumCols, nil)
	for _, e := range d.Elems {
		a.Set(e.Row, e.Col, a.At(e.Row, e.Col)+e.Val)
	}
	return a
}

// RowActivity computes A·x over the sparse entries.
func (d *Data) RowActivity(x []float64) []float64 {
	act := make([]float64, d.NumRows)
	for _, e := range d.Elems {
		act[e.Row] += e.Val * x[e.Col]
	}
	return act
}

// IsMIP reports whether the problem carries integrality constraints.
func (d *Data) IsMIP() bool { return len(d.IntCols) > 0 }

// IsQP reports whether the problem carries a quadratic objective.
func (d *Data) IsQP() bool { return len(d.Quad) > 0 }

// Clone returns a deep copy.
func (d *Data) Clone() *Data {
	c := &Data{
		NumCols:  d.NumCols,
		NumRows:  d.NumRows,
		Offset:   d.Offset,
		Maximize: d.Maximize,
		Cost:     append([]float64(nil), d.Cost...),
		Elems:    append([]Nonzero(nil), d.Elems...),
		RowLower: append([]float64(nil), d.RowLower...),
		RowUpper: append([]float64(nil), d.RowUpper...),
		ColLower: append([]float64(nil), d.ColLower...),
		ColUpper: append([]float64(nil), d.ColUpper...),
	}
	if d.IntCols != nil {
		c.IntCols = append([]int(nil), d.IntCols...)
	}
	if d.Quad != nil {
		c.Quad = append([]Nonzero(nil), d.Quad...)
	}
	return c
}
