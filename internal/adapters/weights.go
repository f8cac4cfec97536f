package adapters

import (
	"fmt"

	"github.com/rs/zerolog"

	"github.com/danielpatrickdp/statecore/internal/engines"
	"github.com/danielpatrickdp/statecore/internal/state"
)

// #region weight-adapter
// WeightAdapter seeds L0 with weights and bias generated from the episodes
// under well_formation. It does nothing once L0 carries weights.
type WeightAdapter struct {
	gen   engines.WeightGenerator
	log   zerolog.Logger
	calls int
}

// NewWeightAdapter wraps a weight generator as a unit.
func NewWeightAdapter(gen engines.WeightGenerator, logger zerolog.Logger) *WeightAdapter {
	return &WeightAdapter{gen: gen, log: logger.With().Str("component", "weights").Logger()}
}

// Transform generates L0 when it is missing and episodes are available.
func (a *WeightAdapter) Transform(s *state.State) (*state.State, error) {
	if s.L0Weights() != nil {
		return s, nil
	}
	src, _ := s.ExtensionMap(state.KeyWellFormation)
	episodes, _ := state.Matrix(src["episodes"])
	if len(episodes) == 0 {
		return s, nil
	}

	res, err := a.gen.GenerateWeights(episodes)
	a.calls++
	if err != nil {
		return nil, fmt.Errorf("generate weights: %w", err)
	}
	s.SetExtension(state.KeyWeights, map[string]any{
		"weights":   res.Weights,
		"bias":      res.Bias,
		"converged": false,
		"analysis":  res.Analysis,
	})
	a.log.Debug().Int("episodes", len(episodes)).Int("dim", len(res.Bias)).Msg("L0 formed")
	return s, nil
}

// Energy reports the state's energy.
func (a *WeightAdapter) Energy(s *state.State) float64 { return s.Energy }

// Snapshot reports call counts and the backing engine.
func (a *WeightAdapter) Snapshot() map[string]any {
	return map[string]any{"name": state.KeyWellFormation, "engine": fmt.Sprintf("%T", a.gen), "calls": a.calls}
}

// Reset clears the call counter.
func (a *WeightAdapter) Reset() { a.calls = 0 }

// #endregion weight-adapter
