package engines

import (
	"fmt"
	"math"
	"time"
)

// #region recorder
// Recorder is the stand-in history reconstructor. Each fragment is linked to
// the previous one with a strength that falls as the energy jump grows.
type Recorder struct {
	prev *Fragment
}

// NewRecorder creates a stand-in history recorder.
func NewRecorder() *Recorder {
	return &Recorder{}
}

// Record converts f into a causal link entry.
func (r *Recorder) Record(f Fragment) (map[string]any, error) {
	if f.Content == "" {
		f.Content = fmt.Sprintf("state at step %d", f.Step)
	}
	link := map[string]any{
		"step":      f.Step,
		"source":    f.Source,
		"content":   f.Content,
		"energy":    f.Energy,
		"risk":      f.Risk,
		"timestamp": f.Timestamp.UTC().Format(time.RFC3339Nano),
	}
	if r.prev != nil {
		link["cause_step"] = r.prev.Step
		link["strength"] = 1 / (1 + math.Abs(f.Energy-r.prev.Energy))
	}
	prev := f
	r.prev = &prev
	return link, nil
}

// Reset forgets the previous fragment.
func (r *Recorder) Reset() {
	r.prev = nil
}

// #endregion recorder
