package monitor

import (
	"fmt"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/danielpatrickdp/statecore/internal/state"
)

// #region monitor
// Monitor is a perturbation unit that inspects a caller-defined subset of
// the state's extensions after the other units have run. It detects
// conflicts between contributors, collects explicit error markers, scores
// health, and writes risk = 1 - health back into the state.
//
// Internal failures never escape: the monitor degrades to leaving the
// affected aspect of the state unchanged.
type Monitor struct {
	config Config
	log    zerolog.Logger
	now    func() time.Time

	mu            sync.Mutex
	conflicts     *history[Conflict]
	errors        *history[ErrorRecord]
	warnings      *history[ErrorRecord]
	health        *history[SystemHealth]
	stats         Stats
	seriousErrors int
}

// New creates a monitor with the given configuration.
func New(config Config) *Monitor {
	if config.ErrorMarker == "" {
		config.ErrorMarker = "error"
	}
	if config.WarningMarker == "" {
		config.WarningMarker = "warning"
	}
	m := &Monitor{
		config: config,
		log:    config.Logger.With().Str("component", "monitor").Logger(),
		now:    func() time.Time { return time.Now().UTC() },
	}
	m.initHistory()
	return m
}

func (m *Monitor) initHistory() {
	m.conflicts = newHistory[Conflict](m.config.HistoryLimit)
	m.errors = newHistory[ErrorRecord](m.config.HistoryLimit)
	m.warnings = newHistory[ErrorRecord](m.config.HistoryLimit)
	m.health = newHistory[SystemHealth](m.config.HistoryLimit)
	m.stats = newStats()
	m.seriousErrors = 0
}

// Priority returns the configured registration priority.
func (m *Monitor) Priority() int {
	return m.config.Priority
}

// #endregion monitor

// #region transform
// Transform inspects the watched extensions, writes the report into
// Metadata["monitoring"] and sets Risk from the health score.
func (m *Monitor) Transform(s *state.State) (out *state.State, err error) {
	defer func() {
		if r := recover(); r != nil {
			m.log.Warn().Interface("panic", r).Msg("monitoring failed, state left unchanged")
			out, err = s, nil
		}
	}()

	names, view := m.view(s)
	report := m.inspect(names, view)

	m.safely("risk", func() {
		s.Risk = clamp01(1 - report.HealthScore)
	})
	m.safely("metadata", func() {
		if s.Metadata == nil {
			s.Metadata = map[string]any{}
		}
		s.Metadata[state.KeyMonitoring] = report
	})
	m.safely("extension warnings", func() {
		if warns := nilValueWarnings(s); len(warns) > 0 {
			s.Metadata[state.KeyExtWarnings] = warns
		} else {
			delete(s.Metadata, state.KeyExtWarnings)
		}
	})
	return s, nil
}

// view reads the watched entries (plus the selection entry) out of the
// state's extensions. Absent entries are left out.
func (m *Monitor) view(s *state.State) ([]string, map[string]any) {
	keys := m.config.WatchKeys
	if m.config.SelectionKey != "" {
		keys = append(append([]string(nil), keys...), m.config.SelectionKey)
	}
	seen := make(map[string]bool, len(keys))
	names := make([]string, 0, len(keys))
	view := make(map[string]any, len(keys))
	for _, k := range keys {
		if seen[k] {
			continue
		}
		seen[k] = true
		if v, ok := s.Extensions[k]; ok {
			names = append(names, k)
			view[k] = v
		}
	}
	return names, view
}

// nilValueWarnings flags extension map payloads holding nil values.
func nilValueWarnings(s *state.State) []string {
	var warns []string
	for _, name := range sortedKeys(s.Extensions) {
		p, ok := s.Extensions[name].(map[string]any)
		if !ok {
			continue
		}
		for _, v := range p {
			if v == nil {
				warns = append(warns, fmt.Sprintf("%s: nil value", name))
				break
			}
		}
	}
	return warns
}

// #endregion transform

// #region monitor-call
// Monitor inspects an explicit set of named entries, pairing them in sorted
// name order.
func (m *Monitor) Monitor(view map[string]any) Report {
	return m.inspect(sortedKeys(view), view)
}

func (m *Monitor) inspect(names []string, view map[string]any) Report {
	m.mu.Lock()
	defer m.mu.Unlock()

	conflicts := m.detectConflicts(names, view)
	errs, warns := m.detectErrors(names, view)
	health := m.checkHealth(names, view)

	var recs []string
	m.safely("recommendations", func() {
		recs = recommendations(conflicts, errs, health)
	})

	serious := false
	for _, e := range errs {
		if e.Severity.Serious() {
			serious = true
			break
		}
	}
	needs := len(conflicts) > 0 || serious || health.Overall < lowHealth

	report := Report{
		HasError:           len(errs) > 0,
		HasConflict:        len(conflicts) > 0,
		Conflicts:          conflicts,
		Errors:             errs,
		Warnings:           warns,
		HealthScore:        health.Overall,
		Health:             health,
		Recommendations:    recs,
		NeedsStabilization: needs,
	}

	if m.config.Mode == ModeResearch {
		stats := m.stats.clone()
		report.Stats = &stats
		report.HealthHistory = m.health.last(researchHistoryLen)
	}

	if needs {
		m.log.Warn().
			Float64("health", health.Overall).
			Int("conflicts", len(conflicts)).
			Int("errors", len(errs)).
			Msg("stabilization needed")
	} else if m.config.Mode == ModeResearch {
		m.log.Debug().Float64("health", health.Overall).Msg("system health")
	}

	return report
}

// #endregion monitor-call

// #region capabilities
// Energy reports the state's energy unchanged.
func (m *Monitor) Energy(s *state.State) float64 {
	return s.Energy
}

// Snapshot returns counters, cumulative stats and the latest health.
func (m *Monitor) Snapshot() map[string]any {
	m.mu.Lock()
	defer m.mu.Unlock()

	snap := map[string]any{
		"mode":            string(m.config.Mode),
		"conflicts_count": m.conflicts.len(),
		"errors_count":    m.errors.len(),
		"warnings_count":  m.warnings.len(),
		"stats":           m.stats.clone(),
		"latest_health":   nil,
	}
	if latest := m.health.last(1); len(latest) == 1 {
		snap["latest_health"] = latest[0]
	}
	return snap
}

// Reset clears all counters and history.
func (m *Monitor) Reset() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.initHistory()
	m.log.Info().Msg("monitor reset")
}

// Conflicts returns the retained conflict history, oldest first.
func (m *Monitor) Conflicts() []Conflict {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.conflicts.last(0)
}

// Errors returns the retained error history, oldest first.
func (m *Monitor) Errors() []ErrorRecord {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.errors.last(0)
}

// HealthHistory returns the retained health snapshots, oldest first.
func (m *Monitor) HealthHistory() []SystemHealth {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.health.last(0)
}

// Stats returns a copy of the cumulative counters.
func (m *Monitor) Stats() Stats {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.stats.clone()
}

// #endregion capabilities

// #region helpers
// safely runs fn and swallows any panic.
func (m *Monitor) safely(what string, fn func()) {
	defer func() {
		if r := recover(); r != nil {
			m.log.Debug().Str("aspect", what).Interface("panic", r).Msg("monitoring step skipped")
		}
	}()
	fn()
}

// #endregion helpers
