package adapters

import (
	"fmt"

	"github.com/rs/zerolog"

	"github.com/danielpatrickdp/statecore/internal/engines"
	"github.com/danielpatrickdp/statecore/internal/state"
)

// #region dynamics-adapter
// DynamicsAdapter runs the vector under the L0 weights and bias, taking the
// last trajectory point as the new vector. Integration failures leave the
// state as it was.
type DynamicsAdapter struct {
	integrator engines.DynamicsIntegrator
	log        zerolog.Logger
	runs       int
	failures   int
}

// NewDynamicsAdapter wraps a dynamics integrator as a unit.
func NewDynamicsAdapter(integrator engines.DynamicsIntegrator, logger zerolog.Logger) *DynamicsAdapter {
	return &DynamicsAdapter{integrator: integrator, log: logger.With().Str("component", "dynamics").Logger()}
}

// Transform integrates one run when L0 is populated.
func (a *DynamicsAdapter) Transform(s *state.State) (*state.State, error) {
	w, b := s.L0Weights(), s.L0Bias()
	if w == nil || b == nil {
		return s, nil
	}

	a.runs++
	res, err := a.integrator.Integrate(s.Vector, w, b)
	if err != nil {
		a.failures++
		a.log.Warn().Err(err).Int("step", s.Step).Msg("integration failed, state kept")
		return s, nil
	}

	if n := len(res.Trajectory); n > 0 {
		last := res.Trajectory[n-1]
		s.Vector = append([]float64(nil), last...)
	}
	s.Energy = res.Energy
	s.UpdateExtension(state.KeyWeights, map[string]any{"converged": res.Converged})
	a.log.Debug().Int("points", len(res.Trajectory)).Float64("energy", res.Energy).Bool("converged", res.Converged).Msg("integrated")
	return s, nil
}

// Energy evaluates the Hopfield energy of the current vector under L0,
// falling back to the recorded energy when L0 does not fit the vector.
func (a *DynamicsAdapter) Energy(s *state.State) float64 {
	w, b := s.L0Weights(), s.L0Bias()
	n := len(s.Vector)
	if len(w) != n || len(b) != n {
		return s.Energy
	}
	for _, row := range w {
		if len(row) != n {
			return s.Energy
		}
	}
	return engines.HopfieldEnergy(s.Vector, w, b)
}

// Snapshot reports run and failure counts and the backing engine.
func (a *DynamicsAdapter) Snapshot() map[string]any {
	return map[string]any{
		"name":     "neural_dynamics",
		"engine":   fmt.Sprintf("%T", a.integrator),
		"runs":     a.runs,
		"failures": a.failures,
	}
}

// Reset clears the counters.
func (a *DynamicsAdapter) Reset() {
	a.runs = 0
	a.failures = 0
}

// #endregion dynamics-adapter
