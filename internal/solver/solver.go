// Package solver wraps external optimization backends behind a small
// interface. The harness never looks inside a solve; it only consumes the
// returned primal point, activity and status.
package solver

import (
	"context"
	"fmt"
	"time"

	"github.com/LeparaLaMapara/mlopt/internal/problem"
)

// Status is the coarse outcome of a solve.
type Status int

const (
	StatusUnknown Status = iota
	StatusOptimal
	StatusInfeasible
	StatusUnbounded
	StatusTimeLimit
	StatusError
)

func (s Status) String() string {
	switch s {
	case StatusOptimal:
		return "optimal"
	case StatusInfeasible:
		return "infeasible"
	case StatusUnbounded:
		return "unbounded"
	case StatusTimeLimit:
		return "time_limit"
	case StatusError:
		return "error"
	default:
		return "unknown"
	}
}

// Solution is the backend-independent result of a successful solve.
type Solution struct {
	Status Status

	// Primal holds one value per column.
	Primal []float64

	// Dual holds one multiplier per row; nil when the backend does not
	// report duals (mixed-integer solves, the pure-Go simplex).
	Dual []float64

	// RowActivity is A·x at the optimum; computed from Primal when the
	// backend does not report it.
	RowActivity []float64

	Objective float64
	SolveTime time.Duration
}

// Solver solves one problem per call. Implementations must be safe for
// concurrent use by multiple goroutines.
type Solver interface {
	Name() string
	Solve(ctx context.Context, d *problem.Data) (*Solution, error)
}

// SolveFailure reports a solve that ended without an optimal solution:
// infeasible, unbounded, hit a limit or failed inside the backend. It is
// recoverable; data generation drops the sample and continues.
type SolveFailure struct {
	Status Status
	Cause  error
}

func (e *SolveFailure) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("solve failed with status %s: %v", e.Status, e.Cause)
	}
	return fmt.Sprintf("solve failed with status %s", e.Status)
}

func (e *SolveFailure) Unwrap() error { return e.Cause }

// DefaultInfinity replaces infinite bounds when a backend wants finite
// box constraints.
const DefaultInfinity = 1e15

// Config carries backend-independent solver settings.
type Config struct {
	// Infinity is the finite stand-in for unbounded box constraints.
	Infinity float64 `json:"infinity,omitempty" yaml:"infinity,omitempty"`
}

func (c Config) infinity() float64 {
	if c.Infinity > 0 {
		return c.Infinity
	}
	return DefaultInfinity
}
