package problem

import (
	"math"
	"strconv"
)

// Inventory is a multi-period inventory control family. The parameter
// vector is [h, p, c, x0, d_1..d_T]: holding cost, backlog penalty, unit
// order cost, initial stock and per-period demands. Stock may go negative
// (backlog); the per-period cost max(h·x_t, −p·x_t) enters the objective
// through an epigraph variable:
//
//	minimize  Σ_t y_t + c Σ_t u_t + K Σ_t v_t
//	subject to  y_t ≥ h·x_t,  y_t ≥ −p·x_t
//	            x_t = x_{t−1} + u_t − d_t   (x_0 given)
//	            0 ≤ u_t ≤ M,  u_t ≤ M·v_t,  v_t ∈ {0,1}
//
// The v variables and their linking rows only exist with binary orders
// enabled; K is the fixed cost charged whenever an order is placed.
type Inventory struct {
	horizon   int
	capacity  float64
	orderCost float64
	binary    bool
}

// NewInventory creates an inventory family over T periods with order
// capacity M and fixed order cost K. With binary enabled the family is a
// mixed-integer program.
func NewInventory(horizon int, capacity, orderCost float64, binary bool) (*Inventory, error) {
	if horizon < 1 {
		return nil, &ConstructionError{Param: "horizon", Reason: "must be at least 1"}
	}
	if capacity <= 0 {
		return nil, &ConstructionError{Param: "capacity", Reason: "must be positive"}
	}
	if orderCost < 0 {
		return nil, &ConstructionError{Param: "order_cost", Reason: "must not be negative"}
	}
	return &Inventory{
		horizon:   horizon,
		capacity:  capacity,
		orderCost: orderCost,
		binary:    binary,
	}, nil
}

func (v *Inventory) Name() string { return string(FamilyInventory) }

func (v *Inventory) NumParams() int { return 4 + v.horizon }

// Column layout: y_t at t, x_t at T+t, u_t at 2T+t, v_t at 3T+t.
func (v *Inventory) cols() (y, x, u, b func(t int) int, n int) {
	t0 := v.horizon
	n = 3 * v.horizon
	if v.binary {
		n = 4 * v.horizon
	}
	y = func(t int) int { return t }
	x = func(t int) int { return t0 + t }
	u = func(t int) int { return 2*t0 + t }
	b = func(t int) int { return 3*t0 + t }
	return
}

func (v *Inventory) Populate(theta []float64) (*Data, error) {
	want := v.NumParams()
	if len(theta) != want {
		return nil, &DimensionError{Expected: want, Got: len(theta)}
	}
	h, p, c, x0 := theta[0], theta[1], theta[2], theta[3]
	demand := theta[4:]

	switch {
	case h < 0:
		return nil, &ConstructionError{Param: "theta[0]", Reason: "holding cost is negative"}
	case p < 0:
		return nil, &ConstructionError{Param: "theta[1]", Reason: "backlog penalty is negative"}
	case c < 0:
		return nil, &ConstructionError{Param: "theta[2]", Reason: "order cost is negative"}
	}
	for i, dm := range demand {
		if math.IsNaN(dm) || math.IsInf(dm, 0) {
			return nil, &ConstructionError{Param: "demand", Reason: "non-finite demand in period " + strconv.Itoa(i+1)}
		}
	}

	yc, xc, uc, bc, n := v.cols()
	d := NewData(n)

	for t := 0; t < v.horizon; t++ {
		d.Cost[yc(t)] = 1
		d.Cost[uc(t)] = c
		d.ColLower[uc(t)] = 0
		d.ColUpper[uc(t)] = v.capacity
		if v.binary {
			d.Cost[bc(t)] = v.orderCost
			d.ColLower[bc(t)] = 0
			d.ColUpper[bc(t)] = 1
			d.IntCols = append(d.IntCols, bc(t))
		}
	}

	negInf := math.Inf(-1)
	for t := 0; t < v.horizon; t++ {
		// Epigraph: h·x_t − y_t ≤ 0 and −p·x_t − y_t ≤ 0.
		d.AddRow(negInf, []int{xc(t), yc(t)}, []float64{h, -1}, 0)
		d.AddRow(negInf, []int{xc(t), yc(t)}, []float64{-p, -1}, 0)

		// Stock balance: x_t − x_{t−1} − u_t = −d_t.
		if t == 0 {
			d.AddRow(x0-demand[0], []int{xc(0), uc(0)}, []float64{1, -1}, x0-demand[0])
		} else {
			d.AddRow(-demand[t], []int{xc(t), xc(t - 1), uc(t)}, []float64{1, -1, -1}, -demand[t])
		}

		if v.binary {
			// Ordering requires the period's order flag.
			d.AddRow(negInf, []int{uc(t), bc(t)}, []float64{1, -v.capacity}, 0)
		}
	}
	return d, nil
}
