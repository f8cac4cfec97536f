package guard

import (
	"fmt"
	"math"

	"github.com/rs/zerolog"

	"github.com/danielpatrickdp/statecore/internal/state"
)

// ExtensionKey is where the guard writes its findings.
const ExtensionKey = "guard"

// #region guard
// Guard checks the vector and energy against caps after the units that move
// them. Findings go into the guard extension, where the monitor sees vetoes
// as errors and near-cap ratios as warnings.
type Guard struct {
	config Config
	log    zerolog.Logger

	prev   []float64
	passes int
	vetoes int
}

// NewGuard creates a guard with the given configuration.
func NewGuard(config Config) *Guard {
	if config.Segments < 1 {
		config.Segments = 1
	}
	return &Guard{config: config, log: config.Logger.With().Str("component", "guard").Logger()}
}

// Evaluate checks vec against the caps. prev is the vector from the previous
// pass; the delta check is skipped when it is nil or differs in length.
func (g *Guard) Evaluate(prev, vec []float64, energy float64) Decision {
	var vetoes []VetoSignal
	var metrics []Metric

	check := func(name string, vt VetoType, value, limit float64) {
		m := Metric{Name: name, Value: value, Cap: limit, Pass: limit <= 0 || value <= limit}
		metrics = append(metrics, m)
		if !m.Pass {
			vetoes = append(vetoes, VetoSignal{
				Type:   vt,
				Reason: fmt.Sprintf("%s %.4f exceeds cap %.4f", name, value, limit),
			})
		}
	}

	// 1. Whole-vector norm
	check("state_norm", VetoStateNorm, l2(vec), g.config.MaxStateNorm)

	// 2. Largest segment norm
	var maxSeg float64
	for _, seg := range segments(len(vec), g.config.Segments) {
		maxSeg = math.Max(maxSeg, l2(vec[seg[0]:seg[1]]))
	}
	check("segment_norm", VetoSegmentNorm, maxSeg, g.config.MaxSegmentNorm)

	// 3. Change since the previous pass
	if prev != nil && len(prev) == len(vec) {
		var sum float64
		for i := range vec {
			d := vec[i] - prev[i]
			sum += d * d
		}
		check("delta_norm", VetoDeltaNorm, math.Sqrt(sum), g.config.MaxDeltaNorm)
	}

	// 4. Energy magnitude
	check("energy", VetoEnergy, math.Abs(energy), g.config.MaxEnergy)

	if len(vetoes) > 0 {
		return Decision{
			Action:      "veto",
			Reason:      fmt.Sprintf("hard veto: %s", vetoes[0].Reason),
			Vetoed:      true,
			VetoSignals: vetoes,
			Metrics:     metrics,
		}
	}

	for _, m := range metrics {
		if g.config.WarnFraction > 0 && m.Ratio() > g.config.WarnFraction {
			return Decision{
				Action:  "warn",
				Reason:  fmt.Sprintf("%s at %.0f%% of cap", m.Name, m.Ratio()*100),
				Metrics: metrics,
			}
		}
	}
	return Decision{Action: "pass", Reason: "all checks passed", Metrics: metrics}
}

// Transform evaluates the state and writes the guard extension. Ratios are
// value/cap, so a ratio above 1 is a breach.
func (g *Guard) Transform(s *state.State) (*state.State, error) {
	d := g.Evaluate(g.prev, s.Vector, s.Energy)
	g.prev = append(g.prev[:0], s.Vector...)
	g.passes++

	payload := map[string]any{"action": d.Action}
	for _, m := range d.Metrics {
		if m.Cap > 0 {
			payload[m.Name+"_ratio"] = m.Ratio()
		}
	}
	if d.Vetoed {
		g.vetoes++
		kinds := make([]any, len(d.VetoSignals))
		for i, v := range d.VetoSignals {
			kinds[i] = string(v.Type)
		}
		payload["vetoes"] = kinds
		payload["error"] = true
		payload["error_type"] = "guard_veto"
		payload["error_message"] = d.Reason
		g.log.Warn().Int("step", s.Step).Str("reason", d.Reason).Msg("veto")
	} else if d.Action == "warn" {
		payload["warning"] = d.Reason
	}
	s.SetExtension(ExtensionKey, payload)

	if d.Vetoed && g.config.Enforce {
		return nil, fmt.Errorf("%w: %s", ErrVetoed, d.Reason)
	}
	return s, nil
}

// Snapshot reports pass and veto counts.
func (g *Guard) Snapshot() map[string]any {
	return map[string]any{"passes": g.passes, "vetoes": g.vetoes, "enforce": g.config.Enforce}
}

// Reset forgets the previous vector and clears the counters.
func (g *Guard) Reset() {
	g.prev = nil
	g.passes = 0
	g.vetoes = 0
}

// #endregion guard

// #region helpers
// segments splits n indices into k contiguous ranges [lo, hi). The first
// n%k ranges are one longer.
func segments(n, k int) [][2]int {
	if n == 0 {
		return nil
	}
	if k > n {
		k = n
	}
	out := make([][2]int, 0, k)
	size, extra := n/k, n%k
	lo := 0
	for i := 0; i < k; i++ {
		hi := lo + size
		if i < extra {
			hi++
		}
		out = append(out, [2]int{lo, hi})
		lo = hi
	}
	return out
}

func l2(v []float64) float64 {
	var sum float64
	for _, x := range v {
		sum += x * x
	}
	return math.Sqrt(sum)
}

// #endregion helpers
