package problem

import (
	"encoding/json"
	"fmt"
	"math"
	"os"
)

// NetlibLP wraps a fixed LP read from a problem file. Each parameter
// perturbs the right-hand side of one row: finite row bounds are shifted
// by scale·theta_i·max(1, |bound|), the same shift on both sides so
// equality rows stay equalities.
type NetlibLP struct {
	base  *Data
	scale float64
}

// NewNetlibLP loads the base problem from a JSON problem file.
func NewNetlibLP(path string, scale float64) (*NetlibLP, error) {
	if path == "" {
		return nil, &ConstructionError{Param: "file", Reason: "no problem file given"}
	}
	if scale == 0 {
		scale = 0.1
	}
	if scale < 0 {
		return nil, &ConstructionError{Param: "scale", Reason: "must be positive"}
	}
	base, err := ReadFile(path)
	if err != nil {
		return nil, err
	}
	if base.NumRows == 0 {
		return nil, &ConstructionError{Param: "file", Reason: "problem has no rows to perturb"}
	}
	return &NetlibLP{base: base, scale: scale}, nil
}

func (n *NetlibLP) Name() string { return string(FamilyNetlib) }

func (n *NetlibLP) NumParams() int { return n.base.NumRows }

func (n *NetlibLP) Populate(theta []float64) (*Data, error) {
	if len(theta) != n.base.NumRows {
		return nil, &DimensionError{Expected: n.base.NumRows, Got: len(theta)}
	}
	d := n.base.Clone()
	for i, t := range theta {
		if math.IsNaN(t) || math.IsInf(t, 0) {
			return nil, &ConstructionError{Param: "theta", Reason: "non-finite entry"}
		}
		ref := 1.0
		if !math.IsInf(d.RowLower[i], -1) {
			ref = math.Max(ref, math.Abs(d.RowLower[i]))
		}
		if !math.IsInf(d.RowUpper[i], 1) {
			ref = math.Max(ref, math.Abs(d.RowUpper[i]))
		}
		shift := n.scale * t * ref
		if !math.IsInf(d.RowLower[i], -1) {
			d.RowLower[i] += shift
		}
		if !math.IsInf(d.RowUpper[i], 1) {
			d.RowUpper[i] += shift
		}
	}
	return d, nil
}

// fileInf is the on-disk stand-in for infinite bounds: JSON cannot encode
// ±Inf, so magnitudes at or beyond this value mean unbounded, the same
// convention LP file formats use.
const fileInf = 1e30

// ReadFile loads and validates a Data from a JSON problem file. Omitted
// column bounds default to [0, ∞).
func ReadFile(path string) (*Data, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read problem file: %w", err)
	}
	var d Data
	if err := json.Unmarshal(raw, &d); err != nil {
		return nil, fmt.Errorf("failed to parse problem file %s: %w", path, err)
	}
	if d.ColLower == nil && d.NumCols > 0 {
		d.ColLower = make([]float64, d.NumCols)
		d.ColUpper = make([]float64, d.NumCols)
		for j := range d.ColUpper {
			d.ColUpper[j] = math.Inf(1)
		}
	}
	for _, bounds := range [][]float64{d.RowLower, d.RowUpper, d.ColLower, d.ColUpper} {
		for i, v := range bounds {
			if v <= -fileInf {
				bounds[i] = math.Inf(-1)
			} else if v >= fileInf {
				bounds[i] = math.Inf(1)
			}
		}
	}
	if err := d.Validate(); err != nil {
		return nil, fmt.Errorf("invalid problem file %s: %w", path, err)
	}
	return &d, nil
}

// WriteFile serializes a Data to a JSON problem file, replacing infinite
// bounds with the file sentinel.
func WriteFile(path string, d *Data) error {
	if err := d.Validate(); err != nil {
		return fmt.Errorf("refusing to write invalid problem: %w", err)
	}
	c := d.Clone()
	for _, bounds := range [][]float64{c.RowLower, c.RowUpper, c.ColLower, c.ColUpper} {
		for i, v := range bounds {
			if math.IsInf(v, -1) {
				bounds[i] = -fileInf
			} else if math.IsInf(v, 1) {
				bounds[i] = fileInf
			}
		}
	}
	raw, err := json.MarshalIndent(c, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal problem: %w", err)
	}
	if err := os.WriteFile(path, raw, 0644); err != nil {
		return fmt.Errorf("failed to write problem file: %w", err)
	}
	return nil
}
