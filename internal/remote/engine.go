package remote

import (
	"errors"
	"fmt"

	"github.com/danielpatrickdp/statecore/internal/engines"
	"github.com/danielpatrickdp/statecore/internal/state"
)

var errMalformed = errors.New("malformed response")

var _ engines.Remote = (*Client)(nil)

// convergedBelow is the trajectory length under which a response without an
// explicit converged flag counts as converged.
const convergedBelow = 100

// #region weights
// GenerateWeights asks the remote engine for weights and bias.
func (c *Client) GenerateWeights(episodes [][]float64) (engines.WeightResult, error) {
	out, err := c.call("GenerateWeights", map[string]any{"episodes": episodes})
	if err != nil {
		return engines.WeightResult{}, err
	}
	w, ok := state.Matrix(out["weights"])
	if !ok {
		return engines.WeightResult{}, fmt.Errorf("GenerateWeights: %w: weights", errMalformed)
	}
	b, ok := state.Floats(out["bias"])
	if !ok {
		return engines.WeightResult{}, fmt.Errorf("GenerateWeights: %w: bias", errMalformed)
	}
	analysis, _ := out["analysis"].(map[string]any)
	return engines.WeightResult{Weights: w, Bias: b, Analysis: analysis}, nil
}

// #endregion weights

// #region manifold
// BuildStateSpace asks the remote engine to merge search biases.
func (c *Client) BuildStateSpace(biases map[string]map[string]float64) (engines.ManifoldResult, error) {
	out, err := c.call("BuildStateSpace", map[string]any{"search_biases": biases})
	if err != nil {
		return engines.ManifoldResult{}, err
	}
	risk, ok := state.FloatMap(out["risk_map"])
	if !ok {
		return engines.ManifoldResult{}, fmt.Errorf("BuildStateSpace: %w: risk_map", errMalformed)
	}
	dims, _ := out["dimensions"].(map[string]any)
	organic, _ := out["organic_connections"].([]any)
	collapse, _ := out["collapse_zones"].([]any)
	return engines.ManifoldResult{
		RiskMap:            risk,
		Dimensions:         dims,
		OrganicConnections: organic,
		CollapseZones:      collapse,
	}, nil
}

// #endregion manifold

// #region dynamics
// Integrate asks the remote engine to run the dynamics.
func (c *Client) Integrate(x0 []float64, w [][]float64, b []float64) (engines.DynamicsResult, error) {
	out, err := c.call("Integrate", map[string]any{"x0": x0, "weights": w, "bias": b})
	if err != nil {
		return engines.DynamicsResult{}, err
	}
	traj, ok := state.Matrix(out["trajectory"])
	if !ok {
		return engines.DynamicsResult{}, fmt.Errorf("Integrate: %w: trajectory", errMalformed)
	}
	energy, _ := state.Float(out["energy"])
	converged, has := out["converged"].(bool)
	if !has {
		converged = len(traj) < convergedBelow
	}
	return engines.DynamicsResult{Trajectory: traj, Energy: energy, Converged: converged}, nil
}

// #endregion dynamics

// #region history
// Record sends a fragment to the remote reconstructor.
func (c *Client) Record(f engines.Fragment) (map[string]any, error) {
	out, err := c.call("Record", map[string]any{
		"step":      f.Step,
		"energy":    f.Energy,
		"risk":      f.Risk,
		"timestamp": f.Timestamp,
		"source":    f.Source,
		"content":   f.Content,
	})
	if err != nil {
		return nil, err
	}
	link, ok := out["link"].(map[string]any)
	if !ok {
		return nil, fmt.Errorf("Record: %w: link", errMalformed)
	}
	return link, nil
}

// #endregion history
