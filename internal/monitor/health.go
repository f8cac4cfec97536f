package monitor

import (
	"fmt"
)

// #region health
// checkHealth scores every map-shaped entry and averages the scores.
func (m *Monitor) checkHealth(names []string, view map[string]any) SystemHealth {
	perUnit := make(map[string]float64)
	var total float64
	for _, name := range names {
		p, ok := view[name].(map[string]any)
		if !ok {
			continue
		}
		m.safely("health "+name, func() {
			score := m.entryScore(p)
			perUnit[name] = score
			total += score
		})
	}

	overall := 0.0
	if len(perUnit) > 0 {
		overall = total / float64(len(perUnit))
	}

	h := SystemHealth{
		Overall:       overall,
		PerUnit:       perUnit,
		ConflictCount: m.stats.TotalConflicts,
		ErrorCount:    m.seriousErrors,
		WarningCount:  m.stats.TotalWarnings,
		Timestamp:     m.now(),
	}
	m.health.push(h)
	return h
}

func (m *Monitor) entryScore(p map[string]any) float64 {
	score := 1.0
	if _, has := p[m.config.ErrorMarker]; has {
		score -= 0.5
	}
	if _, has := p[m.config.WarningMarker]; has {
		score -= 0.2
	}
	for _, v := range p {
		if x, ok := numeric(v); ok && outOfUnitRange(x) {
			score -= 0.1
		}
	}
	return clamp01(score)
}

func clamp01(x float64) float64 {
	if x < 0 {
		return 0
	}
	if x > 1 {
		return 1
	}
	return x
}

// #endregion health

// #region recommendations
// recommendations derives an ordered list of advice from one monitoring call.
func recommendations(conflicts []Conflict, errs []ErrorRecord, h SystemHealth) []string {
	var recs []string

	if h.Overall < lowHealth {
		recs = append(recs, fmt.Sprintf("system health score is low (%.2f); stabilization required", h.Overall))
	}

	if len(conflicts) > 0 {
		recs = append(recs, fmt.Sprintf("%d conflicts detected; check data consistency between units", len(conflicts)))
	}

	if len(errs) > 0 {
		serious := 0
		for _, e := range errs {
			if e.Severity.Serious() {
				serious++
			}
		}
		if serious > 0 {
			recs = append(recs, fmt.Sprintf("%d high-severity errors; immediate action required", serious))
		} else {
			recs = append(recs, fmt.Sprintf("%d errors; inspection required", len(errs)))
		}
	}

	for _, name := range sortedKeys(h.PerUnit) {
		if score := h.PerUnit[name]; score < lowHealth {
			recs = append(recs, fmt.Sprintf("unit %q health score is low (%.2f); inspection required", name, score))
		}
	}

	return recs
}

// #endregion recommendations
