package adapters

import (
	"fmt"

	"github.com/rs/zerolog"

	"github.com/danielpatrickdp/statecore/internal/engines"
	"github.com/danielpatrickdp/statecore/internal/state"
)

// #region manifold-adapter
// ManifoldAdapter builds L1 from the search biases under state_manifold.
// It does nothing once L1 carries a risk map.
type ManifoldAdapter struct {
	builder engines.ManifoldBuilder
	log     zerolog.Logger
	calls   int
}

// NewManifoldAdapter wraps a manifold builder as a unit.
func NewManifoldAdapter(builder engines.ManifoldBuilder, logger zerolog.Logger) *ManifoldAdapter {
	return &ManifoldAdapter{builder: builder, log: logger.With().Str("component", "manifold").Logger()}
}

// Transform builds L1 when it is missing and biases are available.
func (a *ManifoldAdapter) Transform(s *state.State) (*state.State, error) {
	if s.RiskMap() != nil {
		return s, nil
	}
	src, _ := s.ExtensionMap(state.KeyManifold)
	biases := searchBiases(src["search_biases"])
	if len(biases) == 0 {
		return s, nil
	}

	res, err := a.builder.BuildStateSpace(biases)
	a.calls++
	if err != nil {
		return nil, fmt.Errorf("build state space: %w", err)
	}
	s.SetExtension(state.KeyRiskMap, map[string]any{
		"risk_map":            res.RiskMap,
		"dimensions":          res.Dimensions,
		"organic_connections": res.OrganicConnections,
		"collapse_zones":      res.CollapseZones,
	})
	a.log.Debug().Int("conditions", len(res.RiskMap)).Int("collapse_zones", len(res.CollapseZones)).Msg("L1 formed")
	return s, nil
}

// searchBiases accepts dimension → condition → risk in typed or generic form.
// Dimensions that are not numeric maps are skipped.
func searchBiases(v any) map[string]map[string]float64 {
	switch t := v.(type) {
	case map[string]map[string]float64:
		return t
	case map[string]any:
		out := make(map[string]map[string]float64, len(t))
		for dim, raw := range t {
			if m, ok := state.FloatMap(raw); ok {
				out[dim] = m
			}
		}
		return out
	}
	return nil
}

// Energy reports the state's energy.
func (a *ManifoldAdapter) Energy(s *state.State) float64 { return s.Energy }

// Snapshot reports call counts and the backing engine.
func (a *ManifoldAdapter) Snapshot() map[string]any {
	return map[string]any{"name": state.KeyManifold, "engine": fmt.Sprintf("%T", a.builder), "calls": a.calls}
}

// Reset clears the call counter.
func (a *ManifoldAdapter) Reset() { a.calls = 0 }

// #endregion manifold-adapter
