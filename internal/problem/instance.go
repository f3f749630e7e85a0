package problem

import (
	"errors"
	"fmt"
	"strings"
)

// Instance is one member family of parametric problems. Populate maps a
// parameter vector theta onto a fresh Data and is pure: the same theta
// always yields an identical problem.
type Instance interface {
	// Name identifies the problem family.
	Name() string

	// NumParams returns the expected length of theta.
	NumParams() int

	// Populate builds the problem for theta. It returns a DimensionError
	// when theta has the wrong length and a ConstructionError when theta
	// describes a structurally invalid problem.
	Populate(theta []float64) (*Data, error)
}

// Family identifies a problem family in configuration.
type Family string

const (
	FamilyAssignment Family = "assignment"
	FamilyInventory  Family = "inventory"
	FamilyNetlib     Family = "netlib"
)

// ErrUnknownFamily is returned when a family name does not match a known
// problem family.
var ErrUnknownFamily = errors.New("unknown problem family")

// Config selects and sizes a problem family. Only the fields relevant to
// the chosen family are read.
type Config struct {
	Family string `json:"family" yaml:"family"`

	// Assignment.
	Agents int `json:"agents,omitempty" yaml:"agents,omitempty"`

	// Inventory.
	Horizon      int     `json:"horizon,omitempty" yaml:"horizon,omitempty"`
	Capacity     float64 `json:"capacity,omitempty" yaml:"capacity,omitempty"`
	OrderCost    float64 `json:"order_cost,omitempty" yaml:"order_cost,omitempty"`
	BinaryOrders bool    `json:"binary_orders,omitempty" yaml:"binary_orders,omitempty"`

	// Netlib.
	File  string  `json:"file,omitempty" yaml:"file,omitempty"`
	Scale float64 `json:"scale,omitempty" yaml:"scale,omitempty"`
}

// NormalizeFamily maps user input to a canonical family identifier.
func NormalizeFamily(name string) Family {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "", "assignment", "assign":
		return FamilyAssignment
	case "inventory", "inv":
		return FamilyInventory
	case "netlib", "lpfile", "lp-file":
		return FamilyNetlib
	default:
		return Family(name)
	}
}

// SupportedFamilies returns the families understood by the factory.
func SupportedFamilies() []Family {
	return []Family{FamilyAssignment, FamilyInventory, FamilyNetlib}
}

// New constructs the problem instance described by cfg.
func New(cfg Config) (Instance, error) {
	switch NormalizeFamily(cfg.Family) {
	case FamilyAssignment:
		return NewAssignment(cfg.Agents)
	case FamilyInventory:
		return NewInventory(cfg.Horizon, cfg.Capacity, cfg.OrderCost, cfg.BinaryOrders)
	case FamilyNetlib:
		return NewNetlibLP(cfg.File, cfg.Scale)
	default:
		return nil, fmt.Errorf("%w: %s", ErrUnknownFamily, cfg.Family)
	}
}
