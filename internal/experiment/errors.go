package experiment

import (
	"errors"
	"fmt"
)

// DataGenerationError is fatal: too many samples were dropped during
// generation for the resulting dataset to be trusted.
type DataGenerationError struct {
	Dropped   int
	Total     int
	Threshold float64
}

func (e *DataGenerationError) Error() string {
	return fmt.Sprintf("dropped %d of %d samples, more than the %.0f%% threshold",
		e.Dropped, e.Total, e.Threshold*100)
}

// ErrPredictionInfeasible marks a predicted strategy whose restricted
// problem has no solution feasible for the full problem. Evaluation
// records it as an unbounded optimality gap rather than failing.
var ErrPredictionInfeasible = errors.New("predicted strategy is infeasible")
