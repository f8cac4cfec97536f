package scenario

import (
	"bytes"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/danielpatrickdp/statecore/internal/core"
	"github.com/danielpatrickdp/statecore/internal/monitor"
	"github.com/danielpatrickdp/statecore/internal/state"
)

// #region fixture-types

// Fixture is the top-level YAML structure of a scenario file.
type Fixture struct {
	Description string          `yaml:"description"`
	Initial     InitialState    `yaml:"initial"`
	Loop        LoopOverride    `yaml:"loop"`
	Monitor     MonitorOverride `yaml:"monitor"`
	Units       []UnitSpec      `yaml:"units"`
	Expect      Expectations    `yaml:"expect"`
}

// InitialState is the serializable starting state.
type InitialState struct {
	Vector     []float64      `yaml:"vector"`
	Energy     float64        `yaml:"energy"`
	Risk       float64        `yaml:"risk"`
	Extensions map[string]any `yaml:"extensions"`
}

// LoopOverride replaces loop settings that are set.
type LoopOverride struct {
	MaxSteps             *int     `yaml:"max_steps"`
	ConvergenceThreshold *float64 `yaml:"convergence_threshold"`
	CaptureTrajectory    *bool    `yaml:"capture_trajectory"`
}

// MonitorOverride replaces monitor settings that are set.
type MonitorOverride struct {
	Enabled                  *bool    `yaml:"enabled"`
	Mode                     string   `yaml:"mode"`
	ConflictThreshold        *float64 `yaml:"conflict_threshold"`
	ScaleFloor               *float64 `yaml:"scale_floor"`
	WatchKeys                []string `yaml:"watch_keys"`
	SelectionKey             *string  `yaml:"selection_key"`
	CollectAllFieldConflicts *bool    `yaml:"collect_all_field_conflicts"`
}

// UnitSpec declares one unit to register. Name and priority fall back to
// the kind's defaults.
type UnitSpec struct {
	Kind     string         `yaml:"kind"`
	Name     string         `yaml:"name"`
	Priority *int           `yaml:"priority"`
	Params   map[string]any `yaml:"params"`
}

// Expectations are checked against the run result. Unset fields are not
// checked.
type Expectations struct {
	Outcome            string `yaml:"outcome"`
	MaxSteps           *int   `yaml:"max_steps"`
	NeedsStabilization *bool  `yaml:"needs_stabilization"`
	FailedUnit         string `yaml:"failed_unit"`
}

// #endregion fixture-types

// #region fixture-loader

// Load reads and parses a YAML scenario file. Unknown fields are rejected.
func Load(path string) (*Fixture, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read scenario %s: %w", path, err)
	}
	f, err := Parse(data)
	if err != nil {
		return nil, fmt.Errorf("parse scenario %s: %w", path, err)
	}
	return f, nil
}

// Parse decodes and validates a scenario document.
func Parse(data []byte) (*Fixture, error) {
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	var f Fixture
	if err := dec.Decode(&f); err != nil {
		return nil, err
	}
	if err := f.validate(); err != nil {
		return nil, err
	}
	return &f, nil
}

func (f *Fixture) validate() error {
	if len(f.Initial.Vector) == 0 {
		return fmt.Errorf("initial.vector is required")
	}
	for i, u := range f.Units {
		if _, ok := builders[u.Kind]; !ok {
			return fmt.Errorf("units[%d]: unknown kind %q", i, u.Kind)
		}
	}
	if f.Monitor.Mode != "" {
		m := monitor.Mode(f.Monitor.Mode)
		if m != monitor.ModeProduction && m != monitor.ModeResearch {
			return fmt.Errorf("monitor.mode %q: want production or research", f.Monitor.Mode)
		}
	}
	return nil
}

// State converts the initial section into a fresh state. Extension payloads
// are deep-copied so repeated runs start identically.
func (s *InitialState) State() *state.State {
	vec := make([]float64, len(s.Vector))
	copy(vec, s.Vector)
	st := state.New(vec)
	st.Energy = s.Energy
	st.Risk = s.Risk
	for k, v := range s.Extensions {
		st.SetExtension(k, state.DeepCopyValue(v))
	}
	return st
}

// Apply overlays the fixture's loop and monitor overrides on base.
func (f *Fixture) Apply(base core.Config) core.Config {
	cfg := base
	if f.Loop.MaxSteps != nil {
		cfg.Loop.MaxSteps = *f.Loop.MaxSteps
	}
	if f.Loop.ConvergenceThreshold != nil {
		cfg.Loop.ConvergenceThreshold = *f.Loop.ConvergenceThreshold
	}
	if f.Loop.CaptureTrajectory != nil {
		cfg.Loop.CaptureTrajectory = *f.Loop.CaptureTrajectory
	}

	m := f.Monitor
	if m.Enabled != nil {
		cfg.AutoMonitor = *m.Enabled
	}
	if m.Mode != "" {
		cfg.Monitor.Mode = monitor.Mode(m.Mode)
	}
	if m.ConflictThreshold != nil {
		cfg.Monitor.ConflictThreshold = *m.ConflictThreshold
	}
	if m.ScaleFloor != nil {
		cfg.Monitor.ScaleFloor = *m.ScaleFloor
	}
	if m.WatchKeys != nil {
		cfg.Monitor.WatchKeys = m.WatchKeys
	}
	if m.SelectionKey != nil {
		cfg.Monitor.SelectionKey = *m.SelectionKey
	}
	if m.CollectAllFieldConflicts != nil {
		cfg.Monitor.CollectAllFieldConflicts = *m.CollectAllFieldConflicts
	}
	return cfg
}

// #endregion fixture-loader
