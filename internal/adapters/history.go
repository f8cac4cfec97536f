package adapters

import (
	"fmt"

	"github.com/rs/zerolog"

	"github.com/danielpatrickdp/statecore/internal/engines"
	"github.com/danielpatrickdp/statecore/internal/state"
)

// #region history-adapter
// HistoryAdapter appends a causal link for the current step to L2 and keeps
// the existing storyline. Recorder failures leave the state as it was.
type HistoryAdapter struct {
	recorder engines.HistoryRecorder
	source   string
	log      zerolog.Logger
	recorded int
}

// NewHistoryAdapter wraps a history recorder as a unit. source names the
// producer written into every fragment.
func NewHistoryAdapter(recorder engines.HistoryRecorder, source string, logger zerolog.Logger) *HistoryAdapter {
	if source == "" {
		source = "statecore"
	}
	return &HistoryAdapter{
		recorder: recorder,
		source:   source,
		log:      logger.With().Str("component", "history").Logger(),
	}
}

// Transform records the current state as a fragment.
func (a *HistoryAdapter) Transform(s *state.State) (*state.State, error) {
	link, err := a.recorder.Record(engines.Fragment{
		Step:      s.Step,
		Energy:    s.Energy,
		Risk:      s.Risk,
		Timestamp: s.Timestamp,
		Source:    a.source,
	})
	if err != nil {
		a.log.Warn().Err(err).Int("step", s.Step).Msg("record failed, state kept")
		return s, nil
	}

	links := append([]any(nil), s.CausalLinks()...)
	if link != nil {
		links = append(links, link)
	}
	storyline := s.Storyline()
	if storyline == nil {
		storyline = []any{}
	}
	s.SetExtension(state.KeyHistory, map[string]any{
		"causal_links": links,
		"storyline":    storyline,
	})
	a.recorded++
	return s, nil
}

// Energy reports the state's energy.
func (a *HistoryAdapter) Energy(s *state.State) float64 { return s.Energy }

// Snapshot reports how many fragments were recorded.
func (a *HistoryAdapter) Snapshot() map[string]any {
	return map[string]any{"name": "historical", "engine": fmt.Sprintf("%T", a.recorder), "recorded": a.recorded}
}

// Reset clears the counter and the recorder's memory when it has one.
func (a *HistoryAdapter) Reset() {
	a.recorded = 0
	if r, ok := a.recorder.(interface{ Reset() }); ok {
		r.Reset()
	}
}

// #endregion history-adapter
