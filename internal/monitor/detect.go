package monitor

import (
	"fmt"
	"math"
	"reflect"
)

// #region conflicts
// detectConflicts checks every unordered pair of present entries.
func (m *Monitor) detectConflicts(names []string, view map[string]any) []Conflict {
	var conflicts []Conflict
	for i, a := range names {
		for _, b := range names[i+1:] {
			pa, pb := view[a], view[b]
			m.safely("conflict "+a+"/"+b, func() {
				conflicts = append(conflicts, m.pairConflicts(a, pa, b, pb)...)
			})
		}
	}

	m.stats.TotalConflicts += len(conflicts)
	for _, c := range conflicts {
		m.stats.ConflictKinds[c.Kind]++
	}
	m.conflicts.push(conflicts...)
	return conflicts
}

func (m *Monitor) pairConflicts(a string, pa any, b string, pb any) []Conflict {
	var out []Conflict

	ma, okA := pa.(map[string]any)
	mb, okB := pb.(map[string]any)
	if okA && okB {
		out = append(out, m.fieldConflicts(a, ma, b, mb)...)
	}

	if reflect.TypeOf(pa) != reflect.TypeOf(pb) {
		out = append(out, Conflict{
			Kind:        ConflictTypeMismatch,
			UnitA:       a,
			UnitB:       b,
			Description: fmt.Sprintf("type mismatch: %s vs %s", typeName(pa), typeName(pb)),
			Severity:    SeverityMedium,
			Timestamp:   m.now(),
		})
	}
	return out
}

// fieldConflicts compares the numeric fields two payloads share, in sorted
// field order. Unless CollectAllFieldConflicts is set only the first
// violation is returned.
func (m *Monitor) fieldConflicts(a string, ma map[string]any, b string, mb map[string]any) []Conflict {
	var out []Conflict
	for _, key := range sharedKeys(ma, mb) {
		va, aNum := numeric(ma[key])
		vb, bNum := numeric(mb[key])

		if aNum && bNum {
			if rel := m.relativeDiff(va, vb); rel > m.config.ConflictThreshold {
				sev := SeverityMedium
				if rel > highSeverityDiff {
					sev = SeverityHigh
				}
				out = append(out, Conflict{
					Kind:        ConflictValueMismatch,
					UnitA:       a,
					UnitB:       b,
					Description: fmt.Sprintf("field %q disagrees: %g vs %g (relative diff %.2f%%)", key, va, vb, rel*100),
					Severity:    sev,
					Timestamp:   m.now(),
				})
				if !m.config.CollectAllFieldConflicts {
					return out
				}
			}
		}

		if c, ok := m.rangeConflict(key, a, va, aNum, b, vb, bNum); ok {
			out = append(out, c)
			if !m.config.CollectAllFieldConflicts {
				return out
			}
		}
	}
	return out
}

func (m *Monitor) rangeConflict(key, a string, va float64, aNum bool, b string, vb float64, bNum bool) (Conflict, bool) {
	var v float64
	var owner string
	switch {
	case aNum && outOfUnitRange(va):
		v, owner = va, a
	case bNum && outOfUnitRange(vb):
		v, owner = vb, b
	default:
		return Conflict{}, false
	}
	return Conflict{
		Kind:        ConflictRangeViolation,
		UnitA:       a,
		UnitB:       b,
		Description: fmt.Sprintf("field %q of %s out of range: %g", key, owner, v),
		Severity:    SeverityMedium,
		Timestamp:   m.now(),
	}, true
}

// relativeDiff returns |a-b| / max(|a|, |b|, ScaleFloor). Two zeros are equal.
func (m *Monitor) relativeDiff(a, b float64) float64 {
	scale := math.Max(math.Max(math.Abs(a), math.Abs(b)), m.config.ScaleFloor)
	if scale == 0 {
		return 0
	}
	return math.Abs(a-b) / scale
}

// #endregion conflicts

// #region errors
// detectErrors turns explicit error and warning markers into records and
// checks the selection entry.
func (m *Monitor) detectErrors(names []string, view map[string]any) (errs, warns []ErrorRecord) {
	for _, name := range names {
		payload := view[name]
		m.safely("errors "+name, func() {
			if m.config.SelectionKey != "" && name == m.config.SelectionKey {
				if isEmpty(payload) {
					errs = append(errs, m.noSelection())
				}
				return
			}
			p, ok := payload.(map[string]any)
			if !ok {
				return
			}
			if marker, has := p[m.config.ErrorMarker]; has {
				errs = append(errs, ErrorRecord{
					Unit:      name,
					Kind:      stringField(p, "error_type", "unknown"),
					Message:   stringField(p, "error_message", markerText(marker, "unknown error")),
					Severity:  SeverityHigh,
					Timestamp: m.now(),
					Context:   copyContext(p),
				})
			}
			if marker, has := p[m.config.WarningMarker]; has {
				warns = append(warns, ErrorRecord{
					Unit:      name,
					Kind:      "warning",
					Message:   stringField(p, "warning_message", markerText(marker, "warning reported")),
					Severity:  SeverityLow,
					Timestamp: m.now(),
					Context:   copyContext(p),
				})
			}
		})
	}

	if m.config.SelectionKey != "" {
		if _, present := view[m.config.SelectionKey]; !present {
			errs = append(errs, m.noSelection())
		}
	}

	m.stats.TotalErrors += len(errs)
	m.stats.TotalWarnings += len(warns)
	for _, e := range errs {
		m.stats.ErrorKinds[e.Kind]++
		if e.Severity.Serious() {
			m.seriousErrors++
		}
	}
	m.errors.push(errs...)
	m.warnings.push(warns...)
	return errs, warns
}

func (m *Monitor) noSelection() ErrorRecord {
	return ErrorRecord{
		Unit:      m.config.SelectionKey,
		Kind:      "no_action_selected",
		Message:   "no decision selected",
		Severity:  SeverityHigh,
		Timestamp: m.now(),
	}
}

func stringField(p map[string]any, key, def string) string {
	if s, ok := p[key].(string); ok && s != "" {
		return s
	}
	return def
}

func markerText(marker any, def string) string {
	if s, ok := marker.(string); ok && s != "" {
		return s
	}
	return def
}

func copyContext(p map[string]any) map[string]any {
	out := make(map[string]any, len(p))
	for k, v := range p {
		out[k] = v
	}
	return out
}

// #endregion errors
