package unit

import (
	"errors"
	"strings"
	"testing"

	"github.com/danielpatrickdp/statecore/internal/state"
)

// #region helpers
func noop() Unit {
	return Func(func(s *state.State) (*state.State, error) { return s, nil })
}

type fullUnit struct {
	resets int
}

func (u *fullUnit) Transform(s *state.State) (*state.State, error) { return s, nil }
func (u *fullUnit) Energy(s *state.State) float64                  { return s.Energy }
func (u *fullUnit) Snapshot() map[string]any                       { return map[string]any{"resets": u.resets} }
func (u *fullUnit) Reset()                                         { u.resets++ }

func orderedNames(r *Registry) []string {
	var names []string
	for _, e := range r.Ordered() {
		names = append(names, e.Name)
	}
	return names
}

// #endregion helpers

// #region register-tests
func TestRegisterCollision(t *testing.T) {
	r := NewRegistry()
	if err := r.Register("a", noop(), 1); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	err := r.Register("a", noop(), 2)
	if !errors.Is(err, ErrNameCollision) {
		t.Fatalf("expected ErrNameCollision, got %v", err)
	}
	if err := r.Register("b", noop(), 2); err != nil {
		t.Fatalf("registering a new name after a collision should succeed: %v", err)
	}
	if r.Len() != 2 {
		t.Fatalf("expected 2 units, got %d", r.Len())
	}
}

func TestRegisterRejectsNilAndEmpty(t *testing.T) {
	r := NewRegistry()
	if !errors.Is(r.Register("x", nil, 0), ErrNilUnit) {
		t.Fatal("expected ErrNilUnit")
	}
	if !errors.Is(r.Register("", noop(), 0), ErrEmptyName) {
		t.Fatal("expected ErrEmptyName")
	}
}

func TestUnregister(t *testing.T) {
	r := NewRegistry()
	r.Register("dynamics", noop(), 1)

	if err := r.Unregister("dynamics"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if r.Has("dynamics") {
		t.Fatal("expected unit to be removed")
	}
	if !errors.Is(r.Unregister("dynamics"), ErrNotRegistered) {
		t.Fatal("expected ErrNotRegistered for absent name")
	}
}

func TestNotRegisteredSuggestsClosestName(t *testing.T) {
	r := NewRegistry()
	r.Register("dynamics", noop(), 1)
	r.Register("history", noop(), 2)

	_, err := r.Get("dynamcs")
	if !errors.Is(err, ErrNotRegistered) {
		t.Fatalf("expected ErrNotRegistered, got %v", err)
	}
	if !strings.Contains(err.Error(), `did you mean "dynamics"`) {
		t.Fatalf("expected suggestion in error, got %q", err.Error())
	}

	_, err = r.Get("zzzzzzzz")
	if strings.Contains(err.Error(), "did you mean") {
		t.Fatalf("expected no suggestion for distant name, got %q", err.Error())
	}
}

// #endregion register-tests

// #region ordering-tests
func TestOrderedByPriority(t *testing.T) {
	r := NewRegistry()
	r.Register("monitor", noop(), 100)
	r.Register("third", noop(), 3)
	r.Register("first", noop(), 1)
	r.Register("second", noop(), 2)

	got := orderedNames(r)
	want := []string{"first", "second", "third", "monitor"}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("expected %v, got %v", want, got)
		}
	}
}

func TestOrderedTiesKeepRegistrationOrder(t *testing.T) {
	r := NewRegistry()
	for _, n := range []string{"c", "a", "b", "d"} {
		r.Register(n, noop(), 5)
	}
	r.Register("early", noop(), 0)

	got := orderedNames(r)
	want := []string{"early", "c", "a", "b", "d"}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("expected %v, got %v", want, got)
		}
	}

	// Stable across repeated calls.
	for i := 0; i < 10; i++ {
		again := orderedNames(r)
		for j := range want {
			if again[j] != want[j] {
				t.Fatalf("order changed on call %d: %v", i, again)
			}
		}
	}
}

func TestNamesRegistrationOrder(t *testing.T) {
	r := NewRegistry()
	r.Register("z", noop(), 1)
	r.Register("y", noop(), 0)
	names := r.Names()
	if len(names) != 2 || names[0] != "z" || names[1] != "y" {
		t.Fatalf("expected [z y], got %v", names)
	}
}

// #endregion ordering-tests

// #region capability-tests
func TestCapabilitiesDescribedAtRegistration(t *testing.T) {
	r := NewRegistry()
	full := &fullUnit{}
	r.Register("full", full, 1)
	r.Register("plain", noop(), 2)

	entries := r.Ordered()
	if c := entries[0].Capabilities; !c.Energy || !c.Snapshot || !c.Reset {
		t.Fatalf("expected all capabilities, got %+v", c)
	}
	if c := entries[1].Capabilities; c.Energy || c.Snapshot || c.Reset {
		t.Fatalf("expected no capabilities, got %+v", c)
	}
}

func TestResetAllAndSnapshots(t *testing.T) {
	r := NewRegistry()
	full := &fullUnit{}
	r.Register("full", full, 1)
	r.Register("plain", noop(), 2)

	r.ResetAll()
	if full.resets != 1 {
		t.Fatalf("expected 1 reset, got %d", full.resets)
	}

	snaps := r.Snapshots()
	if len(snaps) != 1 {
		t.Fatalf("expected 1 snapshot, got %d", len(snaps))
	}
	if snaps["full"]["resets"] != 1 {
		t.Fatalf("unexpected snapshot: %v", snaps["full"])
	}
}

// #endregion capability-tests
