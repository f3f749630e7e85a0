// Package strategy defines the canonical encoding of an optimal active set:
// which constraint rows and variable bounds are binding at an optimum, and
// at which side. Strategies are the class labels of the prediction task.
package strategy

import (
	"fmt"
	"strconv"
	"strings"
)

// Activity states for a single row or column.
const (
	AtLower  int8 = -1
	Inactive int8 = 0
	AtUpper  int8 = 1
)

// Strategy is the tri-state activity pattern of one solved instance plus
// the values of its integer variables. It is derived from slacks, never
// from solver basis indices, so equal active sets compare equal no matter
// which solver produced them.
type Strategy struct {
	Rows    []int8
	Cols    []int8
	IntVals []int64
}

// Key returns the canonical string form, usable as a map key and as a
// classifier label. ParseKey inverts it exactly.
func (s Strategy) Key() string {
	var b strings.Builder
	b.Grow(len(s.Rows) + len(s.Cols) + 8*len(s.IntVals) + 6)
	b.WriteString("r:")
	writeStates(&b, s.Rows)
	b.WriteString("|c:")
	writeStates(&b, s.Cols)
	b.WriteString("|i:")
	for i, v := range s.IntVals {
		if i > 0 {
			b.WriteByte(',')
		}
		b.WriteString(strconv.FormatInt(v, 10))
	}
	return b.String()
}

func writeStates(b *strings.Builder, states []int8) {
	for _, st := range states {
		switch st {
		case AtLower:
			b.WriteByte('-')
		case AtUpper:
			b.WriteByte('+')
		default:
			b.WriteByte('0')
		}
	}
}

// ParseKey decodes a canonical key back into a Strategy.
func ParseKey(key string) (Strategy, error) {
	parts := strings.Split(key, "|")
	if len(parts) != 3 ||
		!strings.HasPrefix(parts[0], "r:") ||
		!strings.HasPrefix(parts[1], "c:") ||
		!strings.HasPrefix(parts[2], "i:") {
		return Strategy{}, fmt.Errorf("malformed strategy key %q", key)
	}
	rows, err := parseStates(strings.TrimPrefix(parts[0], "r:"))
	if err != nil {
		return Strategy{}, fmt.Errorf("malformed strategy key %q: %w", key, err)
	}
	cols, err := parseStates(strings.TrimPrefix(parts[1], "c:"))
	if err != nil {
		return Strategy{}, fmt.Errorf("malformed strategy key %q: %w", key, err)
	}
	s := Strategy{Rows: rows, Cols: cols}
	if raw := strings.TrimPrefix(parts[2], "i:"); raw != "" {
		for _, f := range strings.Split(raw, ",") {
			v, err := strconv.ParseInt(f, 10, 64)
			if err != nil {
				return Strategy{}, fmt.Errorf("malformed strategy key %q: %w", key, err)
			}
			s.IntVals = append(s.IntVals, v)
		}
	}
	return s, nil
}

func parseStates(raw string) ([]int8, error) {
	if raw == "" {
		return nil, nil
	}
	states := make([]int8, len(raw))
	for i := 0; i < len(raw); i++ {
		switch raw[i] {
		case '-':
			states[i] = AtLower
		case '+':
			states[i] = AtUpper
		case '0':
			states[i] = Inactive
		default:
			return nil, fmt.Errorf("unexpected state character %q", raw[i])
		}
	}
	return states, nil
}

// Equal reports whether two strategies encode the same pattern.
func (s Strategy) Equal(o Strategy) bool {
	if len(s.Rows) != len(o.Rows) || len(s.Cols) != len(o.Cols) || len(s.IntVals) != len(o.IntVals) {
		return false
	}
	for i := range s.Rows {
		if s.Rows[i] != o.Rows[i] {
			return false
		}
	}
	for i := range s.Cols {
		if s.Cols[i] != o.Cols[i] {
			return false
		}
	}
	for i := range s.IntVals {
		if s.IntVals[i] != o.IntVals[i] {
			return false
		}
	}
	return true
}

// Clone returns a deep copy.
func (s Strategy) Clone() Strategy {
	return Strategy{
		Rows:    append([]int8(nil), s.Rows...),
		Cols:    append([]int8(nil), s.Cols...),
		IntVals: append([]int64(nil), s.IntVals...),
	}
}

// NumActive counts binding rows and bounds.
func (s Strategy) NumActive() int {
	n := 0
	for _, st := range s.Rows {
		if st != Inactive {
			n++
		}
	}
	for _, st := range s.Cols {
		if st != Inactive {
			n++
		}
	}
	return n
}

// Table assigns stable keys to distinct strategies in first-seen order.
// It is the label dictionary shared between training and evaluation.
type Table struct {
	keys  []string
	index map[string]Strategy
}

// NewTable creates an empty strategy table.
func NewTable() *Table {
	return &Table{index: make(map[string]Strategy)}
}

// Add registers a strategy and returns its key. Re-adding an equal
// strategy returns the existing key.
func (t *Table) Add(s Strategy) string {
	key := s.Key()
	if _, ok := t.index[key]; !ok {
		t.index[key] = s.Clone()
		t.keys = append(t.keys, key)
	}
	return key
}

// Get looks a strategy up by key.
func (t *Table) Get(key string) (Strategy, bool) {
	s, ok := t.index[key]
	return s, ok
}

// Keys returns all keys in first-seen order.
func (t *Table) Keys() []string {
	return append([]string(nil), t.keys...)
}

// Len returns the number of distinct strategies.
func (t *Table) Len() int { return len(t.keys) }
