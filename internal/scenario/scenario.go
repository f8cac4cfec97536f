package scenario

import (
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"github.com/danielpatrickdp/statecore/internal/core"
	"github.com/danielpatrickdp/statecore/internal/engines"
	"github.com/danielpatrickdp/statecore/internal/guard"
	"github.com/danielpatrickdp/statecore/internal/loop"
	"github.com/danielpatrickdp/statecore/internal/monitor"
	"github.com/danielpatrickdp/statecore/internal/remote"
	"github.com/danielpatrickdp/statecore/internal/state"
	"github.com/danielpatrickdp/statecore/internal/unit"
)

// ErrNoResolution is returned when an engine-backed unit is declared but no
// engine resolution was supplied.
var ErrNoResolution = errors.New("scenario needs resolved engines")

// #region options

// Options carries the base configuration a fixture is overlaid on.
type Options struct {
	Core       core.Config
	Guard      guard.Config
	RemoteAddr string // default address for remote units
	Dial       func(addr string) (*remote.Client, error)
	Logger     zerolog.Logger
}

// DefaultOptions returns core and guard defaults and a lazy remote dialer
// with a 5s call timeout.
func DefaultOptions() Options {
	return Options{
		Core:  core.DefaultConfig(),
		Guard: guard.DefaultConfig(),
		Dial: func(addr string) (*remote.Client, error) {
			return remote.NewClient(addr, 5*time.Second)
		},
		Logger: zerolog.Nop(),
	}
}

// #endregion options

// #region scenario

// Scenario is a fixture bound to a core with its units registered.
type Scenario struct {
	fixture    *Fixture
	resolution *engines.Resolution
	opts       Options
	core       *core.Core
	closers    []func() error
}

// Build creates a core from opts overlaid with the fixture's settings and
// registers the fixture's units. res may be nil when no engine-backed unit
// is declared.
func Build(f *Fixture, res *engines.Resolution, opts Options) (*Scenario, error) {
	if opts.Dial == nil {
		opts.Dial = DefaultOptions().Dial
	}
	c, err := core.New(f.Apply(opts.Core))
	if err != nil {
		return nil, fmt.Errorf("build core: %w", err)
	}
	s := &Scenario{fixture: f, resolution: res, opts: opts, core: c}
	for i, spec := range f.Units {
		build, ok := builders[spec.Kind]
		if !ok {
			s.Close()
			return nil, fmt.Errorf("units[%d]: unknown kind %q", i, spec.Kind)
		}
		if err := build(s, spec); err != nil {
			s.Close()
			return nil, fmt.Errorf("units[%d] (%s): %w", i, spec.Kind, err)
		}
	}
	return s, nil
}

// Core returns the assembled core.
func (s *Scenario) Core() *core.Core {
	return s.core
}

// Run executes one cycle from the fixture's initial state.
func (s *Scenario) Run() (loop.Result, error) {
	return s.core.RunCycle(s.fixture.Initial.State())
}

// Close releases remote clients opened for the scenario.
func (s *Scenario) Close() error {
	var errs []error
	for _, c := range s.closers {
		if err := c(); err != nil {
			errs = append(errs, err)
		}
	}
	s.closers = nil
	return errors.Join(errs...)
}

func (s *Scenario) register(spec UnitSpec, name string, priority int, u unit.Unit) error {
	if spec.Name != "" {
		name = spec.Name
	}
	if spec.Priority != nil {
		priority = *spec.Priority
	}
	return s.core.Register(name, u, priority)
}

func (s *Scenario) needResolution(kind string) error {
	if s.resolution == nil {
		return fmt.Errorf("%w: kind %s", ErrNoResolution, kind)
	}
	return nil
}

// #endregion scenario

// #region expectations

// Mismatches lists every expectation res does not meet. An empty list means
// the run matched.
func (f *Fixture) Mismatches(res loop.Result) []string {
	var out []string
	e := f.Expect
	if e.Outcome != "" && string(res.Outcome) != e.Outcome {
		out = append(out, fmt.Sprintf("outcome: expected %s, got %s", e.Outcome, res.Outcome))
	}
	if e.MaxSteps != nil && res.StepCount() > *e.MaxSteps {
		out = append(out, fmt.Sprintf("steps: expected at most %d, got %d", *e.MaxSteps, res.StepCount()))
	}
	if e.FailedUnit != "" && res.FailedUnit != e.FailedUnit {
		out = append(out, fmt.Sprintf("failed_unit: expected %s, got %q", e.FailedUnit, res.FailedUnit))
	}
	if e.NeedsStabilization != nil {
		got, ok := needsStabilization(res.Final)
		switch {
		case !ok:
			out = append(out, "needs_stabilization: no monitoring report on final state")
		case got != *e.NeedsStabilization:
			out = append(out, fmt.Sprintf("needs_stabilization: expected %t, got %t", *e.NeedsStabilization, got))
		}
	}
	return out
}

func needsStabilization(s *state.State) (bool, bool) {
	if s == nil {
		return false, false
	}
	r, ok := s.Metadata[state.KeyMonitoring].(monitor.Report)
	if !ok {
		return false, false
	}
	return r.NeedsStabilization, true
}

// #endregion expectations
