package remote

import (
	"fmt"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/danielpatrickdp/statecore/internal/state"
)

// #region unit-config
// UnitConfig names the extension entries a remote unit reads and writes.
type UnitConfig struct {
	InputKey  string // sent with the request when present
	OutputKey string // receives the response's "output" payload
}

// #endregion unit-config

// #region unit
// Unit perturbs the state through the engine service's Perturb RPC. Any
// failure is returned to the loop.
type Unit struct {
	client *Client
	config UnitConfig
	log    zerolog.Logger
	calls  int
}

// NewUnit wraps client as a perturbation unit.
func NewUnit(client *Client, config UnitConfig, logger zerolog.Logger) *Unit {
	return &Unit{
		client: client,
		config: config,
		log:    logger.With().Str("component", "remote").Str("addr", client.Addr()).Logger(),
	}
}

// Transform sends the core fields and the input entry, then merges the
// returned vector, energy, risk and output entry.
func (u *Unit) Transform(s *state.State) (*state.State, error) {
	reqID := uuid.NewString()
	in := map[string]any{
		"request_id": reqID,
		"vector":     s.Vector,
		"energy":     s.Energy,
		"risk":       s.Risk,
		"step":       s.Step,
	}
	if u.config.InputKey != "" {
		if v, ok := s.Extensions[u.config.InputKey]; ok {
			in["input"] = v
		}
	}

	u.calls++
	out, err := u.client.call("Perturb", in)
	if err != nil {
		return nil, err
	}

	if raw, ok := out["vector"]; ok {
		vec, ok := state.Floats(raw)
		if !ok {
			return nil, fmt.Errorf("Perturb: %w: vector", errMalformed)
		}
		s.Vector = vec
	}
	if e, ok := state.Float(out["energy"]); ok {
		s.Energy = e
	}
	if r, ok := state.Float(out["risk"]); ok {
		s.Risk = r
	}
	if payload, ok := out["output"]; ok && u.config.OutputKey != "" {
		s.SetExtension(u.config.OutputKey, payload)
	}
	u.log.Debug().Str("request_id", reqID).Int("step", s.Step).Msg("perturbed")
	return s, nil
}

// Energy reports the state's energy.
func (u *Unit) Energy(s *state.State) float64 { return s.Energy }

// Snapshot reports the service address and call count.
func (u *Unit) Snapshot() map[string]any {
	return map[string]any{"addr": u.client.Addr(), "calls": u.calls}
}

// Reset clears the call counter.
func (u *Unit) Reset() { u.calls = 0 }

// #endregion unit
