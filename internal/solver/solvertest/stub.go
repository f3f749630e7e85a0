// Package solvertest provides a scriptable solver for tests.
package solvertest

import (
	"context"
	"sync"

	"github.com/LeparaLaMapara/mlopt/internal/problem"
	"github.com/LeparaLaMapara/mlopt/internal/solver"
)

// Stub runs a caller-supplied function in place of a real backend and
// counts invocations. Safe for concurrent use.
type Stub struct {
	SolveFn func(ctx context.Context, d *problem.Data) (*solver.Solution, error)

	mu    sync.Mutex
	calls int
}

func (s *Stub) Name() string { return "stub" }

func (s *Stub) Solve(ctx context.Context, d *problem.Data) (*solver.Solution, error) {
	s.mu.Lock()
	s.calls++
	s.mu.Unlock()
	return s.SolveFn(ctx, d)
}

// Calls returns how many times Solve ran.
func (s *Stub) Calls() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.calls
}

// Optimal builds a minimal optimal solution around a primal point.
func Optimal(d *problem.Data, x []float64, objective float64) *solver.Solution {
	return &solver.Solution{
		Status:      solver.StatusOptimal,
		Primal:      x,
		RowActivity: d.RowActivity(x),
		Objective:   objective,
	}
}

// Fail builds the error return for a failed solve.
func Fail(status solver.Status) (*solver.Solution, error) {
	return nil, &solver.SolveFailure{Status: status}
}
