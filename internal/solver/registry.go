package solver

import (
	"errors"
	"fmt"
	"strings"
)

// Backend identifies a solver implementation.
type Backend string

const (
	BackendHiGHS   Backend = "highs"
	BackendSimplex Backend = "simplex"
)

// ErrUnknownBackend is returned when the name does not match a known
// solver backend.
var ErrUnknownBackend = errors.New("unknown solver backend")

// Normalize maps arbitrary user input to a canonical backend identifier.
func Normalize(name string) Backend {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "", "highs":
		return BackendHiGHS
	case "simplex", "lp", "gonum":
		return BackendSimplex
	default:
		return Backend(name)
	}
}

// Supported returns the backends understood by the factory.
func Supported() []Backend {
	return []Backend{BackendHiGHS, BackendSimplex}
}

// New constructs the requested solver backend.
func New(name string, cfg Config) (Solver, error) {
	switch Normalize(name) {
	case BackendHiGHS:
		return NewHiGHS(cfg), nil
	case BackendSimplex:
		return NewSimplex(cfg), nil
	default:
		return nil, fmt.Errorf("%w: %s", ErrUnknownBackend, name)
	}
}
