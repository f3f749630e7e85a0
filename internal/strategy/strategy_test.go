package strategy

import "testing"

func TestKeyRoundTrip(t *testing.T) {
	tests := []struct {
		name string
		s    Strategy
	}{
		{"lp", Strategy{Rows: []int8{1, 0, -1}, Cols: []int8{-1, 0, 0, 1}}},
		{"mip", Strategy{Rows: []int8{1}, Cols: []int8{0, 0}, IntVals: []int64{3, 0, -2}}},
		{"empty rows", Strategy{Cols: []int8{0}}},
		{"empty", Strategy{}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			key := tt.s.Key()
			got, err := ParseKey(key)
			if err != nil {
				t.Fatalf("ParseKey(%q) failed: %v", key, err)
			}
			if !got.Equal(tt.s) {
				t.Errorf("round trip of %q lost the pattern: got %+v, want %+v", key, got, tt.s)
			}
			if got.Key() != key {
				t.Errorf("re-encoded key %q differs from %q", got.Key(), key)
			}
		})
	}
}

func TestKeyIsCanonical(t *testing.T) {
	a := Strategy{Rows: []int8{1, -1}, Cols: []int8{0, 1}}
	b := Strategy{Rows: []int8{1, -1}, Cols: []int8{0, 1}}
	if a.Key() != b.Key() {
		t.Error("equal strategies produced different keys")
	}

	c := Strategy{Rows: []int8{-1, 1}, Cols: []int8{0, 1}}
	if a.Key() == c.Key() {
		t.Error("different strategies produced the same key")
	}
}

func TestParseKeyRejectsMalformedInput(t *testing.T) {
	bad := []string{
		"",
		"r:+0",
		"r:+|c:0",
		"r:x|c:0|i:",
		"r:+|c:0|i:abc",
		"c:0|r:+|i:",
	}
	for _, key := range bad {
		if _, err := ParseKey(key); err == nil {
			t.Errorf("ParseKey(%q) succeeded", key)
		}
	}
}

func TestEqual(t *testing.T) {
	base := Strategy{Rows: []int8{1, 0}, Cols: []int8{-1}, IntVals: []int64{2}}
	if !base.Equal(base.Clone()) {
		t.Error("clone is not equal to the original")
	}

	diffs := []Strategy{
		{Rows: []int8{1}, Cols: []int8{-1}, IntVals: []int64{2}},
		{Rows: []int8{1, 1}, Cols: []int8{-1}, IntVals: []int64{2}},
		{Rows: []int8{1, 0}, Cols: []int8{1}, IntVals: []int64{2}},
		{Rows: []int8{1, 0}, Cols: []int8{-1}, IntVals: []int64{3}},
		{Rows: []int8{1, 0}, Cols: []int8{-1}},
	}
	for i, d := range diffs {
		if base.Equal(d) {
			t.Errorf("case %d: distinct strategies compare equal", i)
		}
	}
}

func TestNumActive(t *testing.T) {
	s := Strategy{Rows: []int8{1, 0, -1}, Cols: []int8{0, 1, 0, -1}}
	if got := s.NumActive(); got != 4 {
		t.Errorf("NumActive = %d, want 4", got)
	}
}

func TestTableAssignsStableKeys(t *testing.T) {
	tab := NewTable()
	s1 := Strategy{Rows: []int8{1}, Cols: []int8{0}}
	s2 := Strategy{Rows: []int8{-1}, Cols: []int8{0}}

	k1 := tab.Add(s1)
	k2 := tab.Add(s2)
	if again := tab.Add(s1.Clone()); again != k1 {
		t.Errorf("re-adding an equal strategy returned %q, want %q", again, k1)
	}
	if tab.Len() != 2 {
		t.Errorf("Len = %d, want 2", tab.Len())
	}

	keys := tab.Keys()
	if len(keys) != 2 || keys[0] != k1 || keys[1] != k2 {
		t.Errorf("Keys() = %v, want insertion order [%q %q]", keys, k1, k2)
	}

	got, ok := tab.Get(k2)
	if !ok || !got.Equal(s2) {
		t.Errorf("Get(%q) = %+v/%v, want original strategy", k2, got, ok)
	}
	if _, ok := tab.Get("r:|c:|i:"); ok {
		t.Error("Get returned a strategy for an unregistered key")
	}
}
