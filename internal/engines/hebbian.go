package engines

import (
	"fmt"
	"math"
)

// #region hebbian-config
// HebbianConfig holds learning parameters for the stand-in weight generator.
type HebbianConfig struct {
	Eta         float64 // learning rate
	WeightDecay float64 // λ in Δw = η·xᵢxⱼ − λ·w
	Epochs      int
	MaxWeight   float64 // |w| clamp keeping the energy landscape bounded
}

// DefaultHebbianConfig returns the stand-in defaults.
func DefaultHebbianConfig() HebbianConfig {
	return HebbianConfig{
		Eta:         0.1,
		WeightDecay: 0.01,
		Epochs:      10,
		MaxWeight:   1.0,
	}
}

// #endregion hebbian-config

// #region hebbian
// Hebbian forms symmetric weights with a zero diagonal from co-active
// episode components. The bias is the mean episode.
type Hebbian struct {
	config HebbianConfig
}

// NewHebbian creates a stand-in weight generator.
func NewHebbian(config HebbianConfig) *Hebbian {
	if config.Epochs < 1 {
		config.Epochs = 1
	}
	return &Hebbian{config: config}
}

// GenerateWeights runs the Hebbian rule over every episode for each epoch.
func (h *Hebbian) GenerateWeights(episodes [][]float64) (WeightResult, error) {
	if len(episodes) == 0 {
		return WeightResult{}, ErrNoEpisodes
	}
	n := len(episodes[0])
	if n == 0 {
		return WeightResult{}, fmt.Errorf("%w: empty episode", ErrDimension)
	}
	for i, ep := range episodes {
		if len(ep) != n {
			return WeightResult{}, fmt.Errorf("%w: episode %d has %d components, want %d", ErrRaggedEpisodes, i, len(ep), n)
		}
	}

	w := make([][]float64, n)
	for i := range w {
		w[i] = make([]float64, n)
	}

	for epoch := 0; epoch < h.config.Epochs; epoch++ {
		for _, x := range episodes {
			for i := 0; i < n; i++ {
				for j := i + 1; j < n; j++ {
					v := w[i][j] + h.config.Eta*x[i]*x[j] - h.config.WeightDecay*w[i][j]
					if h.config.MaxWeight > 0 {
						v = math.Max(-h.config.MaxWeight, math.Min(h.config.MaxWeight, v))
					}
					w[i][j] = v
					w[j][i] = v
				}
			}
		}
	}

	bias := make([]float64, n)
	for _, x := range episodes {
		for i, v := range x {
			bias[i] += v
		}
	}
	for i := range bias {
		bias[i] /= float64(len(episodes))
	}

	var sumAbs, maxAbs float64
	for i := range w {
		for j := range w[i] {
			a := math.Abs(w[i][j])
			sumAbs += a
			maxAbs = math.Max(maxAbs, a)
		}
	}

	return WeightResult{
		Weights: w,
		Bias:    bias,
		Analysis: map[string]any{
			"episodes":        len(episodes),
			"epochs":          h.config.Epochs,
			"mean_abs_weight": sumAbs / float64(n*n),
			"max_abs_weight":  maxAbs,
		},
	}, nil
}

// #endregion hebbian
