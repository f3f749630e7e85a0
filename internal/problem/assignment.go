package problem

import (
	"math"
	"strconv"
)

// Assignment is a task-assignment family with one agent per parameter.
// Agent i distributes one unit of effort over the tasks; the reward for
// pairing agent i with task j is 1 on the diagonal plus theta[i], so theta
// shifts how attractive each agent's own task is:
//
//	maximize  Σ_ij c_ij x_ij,  c = I + diag(theta)
//	subject to  Σ_j x_ij = 1 for each agent,  x ≥ 0
type Assignment struct {
	agents int
}

// NewAssignment creates an assignment family over the given number of
// agents and as many tasks.
func NewAssignment(agents int) (*Assignment, error) {
	if agents < 1 {
		return nil, &ConstructionError{Param: "agents", Reason: "must be at least 1"}
	}
	return &Assignment{agents: agents}, nil
}

func (a *Assignment) Name() string { return string(FamilyAssignment) }

func (a *Assignment) NumParams() int { return a.agents }

// Populate builds the LP for theta. Variable x_ij lives at column i*A+j.
func (a *Assignment) Populate(theta []float64) (*Data, error) {
	if len(theta) != a.agents {
		return nil, &DimensionError{Expected: a.agents, Got: len(theta)}
	}
	for i, v := range theta {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return nil, &ConstructionError{Param: "theta", Reason: "non-finite entry at index " + strconv.Itoa(i)}
		}
	}

	n := a.agents * a.agents
	d := NewData(n)
	d.Maximize = true

	for i := 0; i < a.agents; i++ {
		d.Cost[i*a.agents+i] = 1 + theta[i]
	}
	for j := 0; j < n; j++ {
		d.ColLower[j] = 0
	}

	// One effort-balance equality per agent.
	for i := 0; i < a.agents; i++ {
		cols := make([]int, a.agents)
		vals := make([]float64, a.agents)
		for j := 0; j < a.agents; j++ {
			cols[j] = i*a.agents + j
			vals[j] = 1
		}
		d.AddRow(1, cols, vals, 1)
	}
	return d, nil
}
