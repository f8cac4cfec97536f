package state

// Typed views over the conventional extension keys. Each returns the zero
// value when the entry is absent or not shaped as expected. Numeric payloads
// may be typed or generic lists and maps.

// #region l0
// L0Weights returns the weight matrix written by the weight generator.
func (s *State) L0Weights() [][]float64 {
	m, ok := s.ExtensionMap(KeyWeights)
	if !ok {
		return nil
	}
	w, _ := Matrix(m["weights"])
	return w
}

// L0Bias returns the bias vector written by the weight generator.
func (s *State) L0Bias() []float64 {
	m, ok := s.ExtensionMap(KeyWeights)
	if !ok {
		return nil
	}
	b, _ := Floats(m["bias"])
	return b
}

// L0Converged reports the dynamics integrator's convergence flag.
func (s *State) L0Converged() bool {
	m, ok := s.ExtensionMap(KeyWeights)
	if !ok {
		return false
	}
	c, _ := m["converged"].(bool)
	return c
}

// #endregion l0

// #region l1
// RiskMap returns the condition → risk map built by the manifold engine.
func (s *State) RiskMap() map[string]float64 {
	m, ok := s.ExtensionMap(KeyRiskMap)
	if !ok {
		return nil
	}
	r, _ := FloatMap(m["risk_map"])
	return r
}

// ManifoldDimensions returns the manifold's per-dimension descriptors.
func (s *State) ManifoldDimensions() map[string]any {
	m, ok := s.ExtensionMap(KeyRiskMap)
	if !ok {
		return nil
	}
	d, _ := m["dimensions"].(map[string]any)
	return d
}

// #endregion l1

// #region l2
// CausalLinks returns the fragments recorded by the history reconstructor.
func (s *State) CausalLinks() []any {
	m, ok := s.ExtensionMap(KeyHistory)
	if !ok {
		return nil
	}
	l, _ := m["causal_links"].([]any)
	return l
}

// Storyline returns the reconstructed storyline, if any.
func (s *State) Storyline() []any {
	m, ok := s.ExtensionMap(KeyHistory)
	if !ok {
		return nil
	}
	l, _ := m["storyline"].([]any)
	return l
}

// #endregion l2
