package unit

import (
	"errors"

	"github.com/danielpatrickdp/statecore/internal/state"
)

// #region errors
var (
	ErrNameCollision = errors.New("unit name already registered")
	ErrNotRegistered = errors.New("unit not registered")
	ErrNilUnit       = errors.New("unit is nil")
	ErrEmptyName     = errors.New("unit name is empty")
)

// #endregion errors

// #region contract
// Unit perturbs the shared state. Transform may mutate s and return it, or
// return a different instance; the caller treats the returned value as the
// new ground truth.
type Unit interface {
	Transform(s *state.State) (*state.State, error)
}

// EnergyReporter is implemented by units that can report an energy value
// for diagnostics.
type EnergyReporter interface {
	Energy(s *state.State) float64
}

// Snapshotter is implemented by units that expose their internal state.
type Snapshotter interface {
	Snapshot() map[string]any
}

// Resetter is implemented by units with resettable internal state.
type Resetter interface {
	Reset()
}

// #endregion contract

// #region func-unit
// Func adapts a plain function to the Unit interface.
type Func func(s *state.State) (*state.State, error)

// Transform calls f.
func (f Func) Transform(s *state.State) (*state.State, error) {
	return f(s)
}

// #endregion func-unit

// #region capabilities
// Capabilities records which optional methods a unit exposes. It is
// computed once at registration time.
type Capabilities struct {
	Energy   bool
	Snapshot bool
	Reset    bool
}

// Describe inspects u for the optional capability interfaces.
func Describe(u Unit) Capabilities {
	_, e := u.(EnergyReporter)
	_, s := u.(Snapshotter)
	_, r := u.(Resetter)
	return Capabilities{Energy: e, Snapshot: s, Reset: r}
}

// #endregion capabilities

// #region entry
// Entry is a registered unit with its scheduling metadata.
type Entry struct {
	Name         string
	Unit         Unit
	Priority     int
	Capabilities Capabilities

	seq int
}

// #endregion entry
