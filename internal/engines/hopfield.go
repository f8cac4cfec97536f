package engines

import (
	"fmt"
	"math"
)

// #region hopfield-config
// HopfieldConfig holds integration parameters for the stand-in dynamics.
type HopfieldConfig struct {
	Tau          float64 // time constant
	Dt           float64 // Euler step
	MaxSteps     int
	Tolerance    float64 // step delta norm below which the run has converged
	MaxDeltaNorm float64 // L2 clamp on a single step's delta (0 = disabled)
	DecayRate    float64 // per-element multiplicative decay after each step
}

// DefaultHopfieldConfig returns the stand-in defaults.
func DefaultHopfieldConfig() HopfieldConfig {
	return HopfieldConfig{
		Tau:          1.0,
		Dt:           0.1,
		MaxSteps:     100,
		Tolerance:    1e-5,
		MaxDeltaNorm: 1.0,
		DecayRate:    0,
	}
}

// #endregion hopfield-config

// #region hopfield
// Hopfield integrates τ·dx/dt = −x + tanh(Wx + b) with explicit Euler steps.
type Hopfield struct {
	config HopfieldConfig
}

// NewHopfield creates a stand-in dynamics integrator.
func NewHopfield(config HopfieldConfig) *Hopfield {
	if config.Tau <= 0 {
		config.Tau = 1
	}
	if config.MaxSteps < 1 {
		config.MaxSteps = 1
	}
	return &Hopfield{config: config}
}

// Integrate runs from x0 until the step delta falls below Tolerance or
// MaxSteps is reached. The trajectory starts with x0.
func (h *Hopfield) Integrate(x0 []float64, w [][]float64, b []float64) (DynamicsResult, error) {
	n := len(x0)
	if n == 0 {
		return DynamicsResult{}, fmt.Errorf("%w: empty start vector", ErrDimension)
	}
	if len(w) != n || len(b) != n {
		return DynamicsResult{}, fmt.Errorf("%w: vector %d, weights %d, bias %d", ErrDimension, n, len(w), len(b))
	}
	for i, row := range w {
		if len(row) != n {
			return DynamicsResult{}, fmt.Errorf("%w: weight row %d has %d columns, want %d", ErrDimension, i, len(row), n)
		}
	}

	x := make([]float64, n)
	copy(x, x0)
	traj := [][]float64{append([]float64(nil), x...)}
	delta := make([]float64, n)
	converged := false

	for step := 0; step < h.config.MaxSteps; step++ {
		for i := 0; i < n; i++ {
			field := b[i]
			for j := 0; j < n; j++ {
				field += w[i][j] * x[j]
			}
			delta[i] = h.config.Dt / h.config.Tau * (-x[i] + math.Tanh(field))
		}

		norm := l2(delta)
		if h.config.MaxDeltaNorm > 0 && norm > h.config.MaxDeltaNorm {
			scale := h.config.MaxDeltaNorm / norm
			for i := range delta {
				delta[i] *= scale
			}
			norm = h.config.MaxDeltaNorm
		}

		for i := range x {
			x[i] += delta[i]
			if h.config.DecayRate > 0 {
				x[i] -= x[i] * h.config.DecayRate
			}
		}
		traj = append(traj, append([]float64(nil), x...))

		if norm < h.config.Tolerance {
			converged = true
			break
		}
	}

	return DynamicsResult{
		Trajectory: traj,
		Energy:     HopfieldEnergy(x, w, b),
		Converged:  converged,
	}, nil
}

// #endregion hopfield

// #region energy
// HopfieldEnergy returns −½·xᵀWx − bᵀx. Dimensions are assumed consistent.
func HopfieldEnergy(x []float64, w [][]float64, b []float64) float64 {
	var quad, lin float64
	for i := range x {
		for j := range x {
			quad += x[i] * w[i][j] * x[j]
		}
		lin += b[i] * x[i]
	}
	return -0.5*quad - lin
}

func l2(v []float64) float64 {
	var sum float64
	for _, x := range v {
		sum += x * x
	}
	return math.Sqrt(sum)
}

// #endregion energy
