package scenario

import (
	"errors"
	"fmt"

	"github.com/danielpatrickdp/statecore/internal/adapters"
	"github.com/danielpatrickdp/statecore/internal/core"
	"github.com/danielpatrickdp/statecore/internal/guard"
	"github.com/danielpatrickdp/statecore/internal/remote"
	"github.com/danielpatrickdp/statecore/internal/state"
	"github.com/danielpatrickdp/statecore/internal/unit"
)

// ErrInjectedFault is returned by fault units.
var ErrInjectedFault = errors.New("injected fault")

// Unit kinds accepted in a scenario's unit list.
const (
	KindEngines  = "engines"
	KindWeights  = "weights"
	KindManifold = "manifold"
	KindDynamics = "dynamics"
	KindHistory  = "history"
	KindGuard    = "guard"
	KindRemote   = "remote"
	KindScale    = "scale"
	KindInject   = "inject"
	KindFault    = "fault"
)

type buildFunc func(s *Scenario, spec UnitSpec) error

var builders map[string]buildFunc

func init() {
	builders = map[string]buildFunc{
		KindEngines:  buildEngines,
		KindWeights:  buildWeights,
		KindManifold: buildManifold,
		KindDynamics: buildDynamics,
		KindHistory:  buildHistory,
		KindGuard:    buildGuard,
		KindRemote:   buildRemote,
		KindScale:    buildScale,
		KindInject:   buildInject,
		KindFault:    buildFault,
	}
}

// #region engine-kinds
func buildEngines(s *Scenario, _ UnitSpec) error {
	if err := s.needResolution(KindEngines); err != nil {
		return err
	}
	return s.core.RegisterEngines(s.resolution)
}

func buildWeights(s *Scenario, spec UnitSpec) error {
	if err := s.needResolution(spec.Kind); err != nil {
		return err
	}
	u := adapters.NewWeightAdapter(s.resolution.Weights, s.opts.Logger)
	return s.register(spec, core.NameWeights, core.PriorityWeights, u)
}

func buildManifold(s *Scenario, spec UnitSpec) error {
	if err := s.needResolution(spec.Kind); err != nil {
		return err
	}
	u := adapters.NewManifoldAdapter(s.resolution.Manifold, s.opts.Logger)
	return s.register(spec, core.NameManifold, core.PriorityManifold, u)
}

func buildDynamics(s *Scenario, spec UnitSpec) error {
	if err := s.needResolution(spec.Kind); err != nil {
		return err
	}
	u := adapters.NewDynamicsAdapter(s.resolution.Dynamics, s.opts.Logger)
	return s.register(spec, core.NameDynamics, core.PriorityDynamics, u)
}

func buildHistory(s *Scenario, spec UnitSpec) error {
	if err := s.needResolution(spec.Kind); err != nil {
		return err
	}
	source, err := paramString(spec.Params, "source", "statecore")
	if err != nil {
		return err
	}
	u := adapters.NewHistoryAdapter(s.resolution.History, source, s.opts.Logger)
	return s.register(spec, core.NameHistory, core.PriorityHistory, u)
}

// #endregion engine-kinds

// #region guard-remote-kinds
func buildGuard(s *Scenario, spec UnitSpec) error {
	gc := s.opts.Guard
	var err error
	if gc.MaxStateNorm, err = paramFloat(spec.Params, "max_state_norm", gc.MaxStateNorm); err != nil {
		return err
	}
	if gc.MaxSegmentNorm, err = paramFloat(spec.Params, "max_segment_norm", gc.MaxSegmentNorm); err != nil {
		return err
	}
	if gc.MaxDeltaNorm, err = paramFloat(spec.Params, "max_delta_norm", gc.MaxDeltaNorm); err != nil {
		return err
	}
	if gc.MaxEnergy, err = paramFloat(spec.Params, "max_energy", gc.MaxEnergy); err != nil {
		return err
	}
	if gc.Segments, err = paramInt(spec.Params, "segments", gc.Segments); err != nil {
		return err
	}
	if gc.Enforce, err = paramBool(spec.Params, "enforce", gc.Enforce); err != nil {
		return err
	}
	gc.Logger = s.opts.Logger
	return s.register(spec, core.NameGuard, core.PriorityGuard, guard.NewGuard(gc))
}

func buildRemote(s *Scenario, spec UnitSpec) error {
	addr, err := paramString(spec.Params, "addr", s.opts.RemoteAddr)
	if err != nil {
		return err
	}
	if addr == "" {
		return fmt.Errorf("remote unit: no address")
	}
	in, err := paramString(spec.Params, "input_key", "")
	if err != nil {
		return err
	}
	out, err := paramString(spec.Params, "output_key", "remote")
	if err != nil {
		return err
	}
	client, err := s.opts.Dial(addr)
	if err != nil {
		return fmt.Errorf("remote unit %s: %w", addr, err)
	}
	s.closers = append(s.closers, client.Close)
	u := remote.NewUnit(client, remote.UnitConfig{InputKey: in, OutputKey: out}, s.opts.Logger)
	return s.register(spec, "remote", 50, u)
}

// #endregion guard-remote-kinds

// #region synthetic-kinds

// buildScale registers a contraction: vector and energy are multiplied by
// their factors every pass.
func buildScale(s *Scenario, spec UnitSpec) error {
	factor, err := paramFloat(spec.Params, "factor", 0.5)
	if err != nil {
		return err
	}
	energyFactor, err := paramFloat(spec.Params, "energy_factor", factor)
	if err != nil {
		return err
	}
	u := unit.Func(func(st *state.State) (*state.State, error) {
		for i := range st.Vector {
			st.Vector[i] *= factor
		}
		st.Energy *= energyFactor
		return st, nil
	})
	return s.register(spec, "scale", 50, u)
}

// buildInject registers a unit that writes a fixed payload under key every
// pass, standing in for a contributor the monitor watches.
func buildInject(s *Scenario, spec UnitSpec) error {
	key, err := paramString(spec.Params, "key", "")
	if err != nil {
		return err
	}
	if key == "" {
		return fmt.Errorf("inject unit: key is required")
	}
	payload := spec.Params["payload"]
	u := unit.Func(func(st *state.State) (*state.State, error) {
		st.SetExtension(key, state.DeepCopyValue(payload))
		return st, nil
	})
	return s.register(spec, "inject_"+key, 60, u)
}

// buildFault registers a unit that fails once the state reaches at_step.
// Steps count completed passes, so at_step 0 fails on the first pass.
func buildFault(s *Scenario, spec UnitSpec) error {
	at, err := paramInt(spec.Params, "at_step", 0)
	if err != nil {
		return err
	}
	msg, err := paramString(spec.Params, "message", "fault")
	if err != nil {
		return err
	}
	u := unit.Func(func(st *state.State) (*state.State, error) {
		if st.Step >= at {
			return nil, fmt.Errorf("%w: %s", ErrInjectedFault, msg)
		}
		return st, nil
	})
	return s.register(spec, "fault", 70, u)
}

// #endregion synthetic-kinds

// #region params
func paramFloat(p map[string]any, key string, def float64) (float64, error) {
	v, ok := p[key]
	if !ok {
		return def, nil
	}
	f, ok := state.Float(v)
	if !ok {
		return 0, fmt.Errorf("param %s: want number, got %T", key, v)
	}
	return f, nil
}

func paramInt(p map[string]any, key string, def int) (int, error) {
	v, ok := p[key]
	if !ok {
		return def, nil
	}
	n, ok := v.(int)
	if !ok {
		return 0, fmt.Errorf("param %s: want integer, got %T", key, v)
	}
	return n, nil
}

func paramBool(p map[string]any, key string, def bool) (bool, error) {
	v, ok := p[key]
	if !ok {
		return def, nil
	}
	b, ok := v.(bool)
	if !ok {
		return false, fmt.Errorf("param %s: want bool, got %T", key, v)
	}
	return b, nil
}

func paramString(p map[string]any, key, def string) (string, error) {
	v, ok := p[key]
	if !ok {
		return def, nil
	}
	str, ok := v.(string)
	if !ok {
		return "", fmt.Errorf("param %s: want string, got %T", key, v)
	}
	return str, nil
}

// #endregion params
