package engines

import (
	"math"
	"sort"
)

// #region manifold-config
// ManifoldConfig holds thresholds for the stand-in risk merge.
type ManifoldConfig struct {
	HighRisk      float64 // a dimension above this counts toward amplification
	Amplification float64 // per extra high-risk dimension
	CollapseRisk  float64 // merged risk at or above this marks a collapse zone
}

// DefaultManifoldConfig returns the stand-in defaults.
func DefaultManifoldConfig() ManifoldConfig {
	return ManifoldConfig{
		HighRisk:      0.7,
		Amplification: 0.2,
		CollapseRisk:  0.9,
	}
}

// #endregion manifold-config

// #region manifold
// Manifold merges per-dimension risk maps. A condition's merged risk is the
// mean over the dimensions that rate it, amplified by
// (1 + (n−1)·Amplification) when n > 1 dimensions rate it above HighRisk.
type Manifold struct {
	config ManifoldConfig
}

// NewManifold creates a stand-in manifold builder.
func NewManifold(config ManifoldConfig) *Manifold {
	return &Manifold{config: config}
}

// BuildStateSpace merges biases into one risk landscape.
func (m *Manifold) BuildStateSpace(biases map[string]map[string]float64) (ManifoldResult, error) {
	if len(biases) == 0 {
		return ManifoldResult{}, ErrNoBiases
	}

	dims := make([]string, 0, len(biases))
	for d := range biases {
		dims = append(dims, d)
	}
	sort.Strings(dims)

	type rating struct {
		sum  float64
		n    int
		high []any
	}
	ratings := map[string]*rating{}
	dimensions := make(map[string]any, len(dims))

	for _, d := range dims {
		var dimSum float64
		for cond, risk := range biases[d] {
			r, ok := ratings[cond]
			if !ok {
				r = &rating{}
				ratings[cond] = r
			}
			r.sum += risk
			r.n++
			if risk > m.config.HighRisk {
				r.high = append(r.high, d)
			}
			dimSum += risk
		}
		mean := 0.0
		if len(biases[d]) > 0 {
			mean = dimSum / float64(len(biases[d]))
		}
		dimensions[d] = map[string]any{
			"conditions": len(biases[d]),
			"mean_risk":  mean,
		}
	}

	conds := make([]string, 0, len(ratings))
	for c := range ratings {
		conds = append(conds, c)
	}
	sort.Strings(conds)

	riskMap := make(map[string]float64, len(conds))
	organic := []any{}
	collapse := []any{}
	for _, c := range conds {
		r := ratings[c]
		risk := r.sum / float64(r.n)
		if len(r.high) > 1 {
			factor := 1 + float64(len(r.high)-1)*m.config.Amplification
			risk *= factor
			organic = append(organic, map[string]any{
				"condition":     c,
				"dimensions":    r.high,
				"amplification": factor,
			})
		}
		risk = math.Max(0, math.Min(1, risk))
		riskMap[c] = risk
		if risk >= m.config.CollapseRisk {
			collapse = append(collapse, c)
		}
	}

	return ManifoldResult{
		RiskMap:            riskMap,
		Dimensions:         dimensions,
		OrganicConnections: organic,
		CollapseZones:      collapse,
	}, nil
}

// #endregion manifold
