package problem

import "fmt"

// DimensionError indicates a parameter vector whose length does not match
// the instance's parameter dimension.
type DimensionError struct {
	Expected int
	Got      int
}

func (e *DimensionError) Error() string {
	return fmt.Sprintf("parameter vector has length %d, want %d", e.Got, e.Expected)
}

// ConstructionError indicates a parameter vector that produces a structurally
// invalid problem (negative capacity, inverted bounds, and so on).
type ConstructionError struct {
	Param  string
	Reason string
}

func (e *ConstructionError) Error() string {
	return fmt.Sprintf("invalid problem construction: %s: %s", e.Param, e.Reason)
}
