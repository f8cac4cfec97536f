package state

import (
	"errors"
	"testing"
)

func TestNewHasEmptyNamespaces(t *testing.T) {
	s := New([]float64{0.1, 0.2})
	if s.Metadata == nil || s.Extensions == nil {
		t.Fatal("expected non-nil metadata and extensions")
	}
	if s.Dimension() != 2 {
		t.Fatalf("expected dimension 2, got %d", s.Dimension())
	}
	if s.Timestamp.IsZero() {
		t.Fatal("expected timestamp to be set")
	}
}

func TestExtensionDefault(t *testing.T) {
	s := New([]float64{1})
	if got := s.Extension("missing", "fallback"); got != "fallback" {
		t.Fatalf("expected fallback, got %v", got)
	}
	s.SetExtension("unit", 42)
	if got := s.Extension("unit", nil); got != 42 {
		t.Fatalf("expected 42, got %v", got)
	}
}

func TestSetExtensionReplaces(t *testing.T) {
	s := New([]float64{1})
	s.SetExtension("unit", map[string]any{"a": 1, "b": 2})
	s.SetExtension("unit", map[string]any{"c": 3})

	m, ok := s.ExtensionMap("unit")
	if !ok {
		t.Fatal("expected map payload")
	}
	if _, ok := m["a"]; ok {
		t.Fatal("full replace should drop old fields")
	}
	if m["c"] != 3 {
		t.Fatalf("expected c=3, got %v", m["c"])
	}
}

func TestUpdateExtensionMergesAndCreates(t *testing.T) {
	s := New([]float64{1})
	s.UpdateExtension("unit", map[string]any{"a": 1})
	s.UpdateExtension("unit", map[string]any{"b": 2})

	m, _ := s.ExtensionMap("unit")
	if m["a"] != 1 || m["b"] != 2 {
		t.Fatalf("expected merged payload, got %v", m)
	}

	s.SetExtension("scalar", 7)
	s.UpdateExtension("scalar", map[string]any{"x": 1})
	m, ok := s.ExtensionMap("scalar")
	if !ok || len(m) != 1 || m["x"] != 1 {
		t.Fatalf("expected non-map payload to be replaced, got %v", s.Extensions["scalar"])
	}
}

func TestShallowCopySharesVector(t *testing.T) {
	s := New([]float64{0.5, 0.3})
	s.SetExtension("unit", map[string]any{"v": 1})

	c := s.Copy(false)
	c.Vector[0] = 9
	if s.Vector[0] != 9 {
		t.Fatal("shallow copy should share the vector")
	}

	// Nested payload is shared.
	c.Extensions["unit"].(map[string]any)["v"] = 2
	if s.Extensions["unit"].(map[string]any)["v"] != 2 {
		t.Fatal("shallow copy should share nested payloads")
	}

	// Top-level maps are not.
	c.SetExtension("other", true)
	if _, ok := s.Extensions["other"]; ok {
		t.Fatal("shallow copy should duplicate the extension map")
	}
	c.Metadata["k"] = "v"
	if _, ok := s.Metadata["k"]; ok {
		t.Fatal("shallow copy should duplicate the metadata map")
	}
}

func TestDeepCopyIsIndependent(t *testing.T) {
	s := New([]float64{0.5, 0.3})
	s.SetExtension("unit", map[string]any{
		"v":       1,
		"weights": [][]float64{{1, 2}, {3, 4}},
		"bias":    []float64{0.1, 0.2},
	})
	s.Metadata["nested"] = map[string]any{"x": 1}

	c := s.Copy(true)
	c.Vector[0] = 9
	if s.Vector[0] != 0.5 {
		t.Fatal("deep copy should not share the vector")
	}

	cu := c.Extensions["unit"].(map[string]any)
	cu["v"] = 2
	cu["weights"].([][]float64)[0][0] = 100
	cu["bias"].([]float64)[1] = 100
	c.Metadata["nested"].(map[string]any)["x"] = 2

	su := s.Extensions["unit"].(map[string]any)
	if su["v"] != 1 {
		t.Fatal("deep copy should not share nested maps")
	}
	if su["weights"].([][]float64)[0][0] != 1 {
		t.Fatal("deep copy should not share matrices")
	}
	if su["bias"].([]float64)[1] != 0.2 {
		t.Fatal("deep copy should not share slices")
	}
	if s.Metadata["nested"].(map[string]any)["x"] != 1 {
		t.Fatal("deep copy should not share metadata payloads")
	}
}

type countingPayload struct{ clones *int }

func (p countingPayload) Clone() any {
	*p.clones++
	return countingPayload{clones: p.clones}
}

func TestDeepCopyUsesCloner(t *testing.T) {
	n := 0
	s := New([]float64{1})
	s.SetExtension("custom", countingPayload{clones: &n})
	s.Copy(true)
	if n != 1 {
		t.Fatalf("expected Clone to be called once, got %d", n)
	}
	s.Copy(false)
	if n != 1 {
		t.Fatal("shallow copy should not clone payloads")
	}
}

func TestValidate(t *testing.T) {
	s := New([]float64{1})
	if err := s.Validate(); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	empty := New(nil)
	if !errors.Is(empty.Validate(), ErrEmptyVector) {
		t.Fatal("expected ErrEmptyVector")
	}

	s.Risk = 1.5
	if !errors.Is(s.Validate(), ErrRiskRange) {
		t.Fatal("expected ErrRiskRange")
	}
	if s.IsValid() {
		t.Fatal("expected invalid state")
	}

	// Extension payloads are not checked.
	s.Risk = 0.5
	s.SetExtension("bad", map[string]any{"value": -10.0})
	if !s.IsValid() {
		t.Fatal("extension contents must not affect validity")
	}
}

func TestAdvanceStep(t *testing.T) {
	s := New([]float64{1})
	before := s.Timestamp
	s.AdvanceStep(3)
	if s.Step != 3 {
		t.Fatalf("expected step 3, got %d", s.Step)
	}
	if s.Timestamp.Before(before) {
		t.Fatal("timestamp should not move backwards")
	}
}

func TestConventionalAccessors(t *testing.T) {
	s := New([]float64{1})
	if s.L0Weights() != nil || s.L0Bias() != nil || s.L0Converged() {
		t.Fatal("expected zero values when L0 is absent")
	}

	s.SetExtension(KeyWeights, map[string]any{
		"weights":   [][]float64{{0, 1}, {1, 0}},
		"bias":      []float64{0.1, 0.1},
		"converged": true,
	})
	s.SetExtension(KeyRiskMap, map[string]any{
		"risk_map":   map[string]float64{"a": 0.3},
		"dimensions": map[string]any{"a": 1},
	})
	s.SetExtension(KeyHistory, map[string]any{
		"causal_links": []any{"f1"},
		"storyline":    []any{"s1", "s2"},
	})

	if len(s.L0Weights()) != 2 || len(s.L0Bias()) != 2 || !s.L0Converged() {
		t.Fatal("expected L0 accessors to read the payload")
	}
	if s.RiskMap()["a"] != 0.3 || s.ManifoldDimensions()["a"] != 1 {
		t.Fatal("expected L1 accessors to read the payload")
	}
	if len(s.CausalLinks()) != 1 || len(s.Storyline()) != 2 {
		t.Fatal("expected L2 accessors to read the payload")
	}

	s.SetExtension(KeyWeights, "not a map")
	if s.L0Weights() != nil {
		t.Fatal("expected nil for mis-shaped payload")
	}
}
