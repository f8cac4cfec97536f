package state

import (
	"fmt"
	"time"
)

// #region constructor
// New creates a state around vec with empty metadata and extensions.
// The vector is used as given, not copied.
func New(vec []float64) *State {
	return &State{
		Vector:     vec,
		Timestamp:  time.Now().UTC(),
		Metadata:   map[string]any{},
		Extensions: map[string]any{},
	}
}

// #endregion constructor

// #region extensions
// Extension returns the payload stored under name, or def when absent.
func (s *State) Extension(name string, def any) any {
	if v, ok := s.Extensions[name]; ok {
		return v
	}
	return def
}

// ExtensionMap returns the payload under name when it is map-shaped.
func (s *State) ExtensionMap(name string) (map[string]any, bool) {
	m, ok := s.Extensions[name].(map[string]any)
	return m, ok
}

// SetExtension replaces the payload stored under name.
func (s *State) SetExtension(name string, payload any) {
	if s.Extensions == nil {
		s.Extensions = map[string]any{}
	}
	s.Extensions[name] = payload
}

// UpdateExtension merges partial into the map payload stored under name,
// creating it when absent. A non-map payload is replaced by a fresh map.
func (s *State) UpdateExtension(name string, partial map[string]any) {
	if s.Extensions == nil {
		s.Extensions = map[string]any{}
	}
	cur, ok := s.Extensions[name].(map[string]any)
	if !ok {
		cur = make(map[string]any, len(partial))
		s.Extensions[name] = cur
	}
	for k, v := range partial {
		cur[k] = v
	}
}

// #endregion extensions

// #region copy
// Copy duplicates the state. A shallow copy gets new top-level Metadata and
// Extensions maps but shares the vector and every nested payload with s.
// A deep copy duplicates everything reachable through maps and slices.
func (s *State) Copy(deep bool) *State {
	if !deep {
		return &State{
			Vector:     s.Vector,
			Energy:     s.Energy,
			Risk:       s.Risk,
			Step:       s.Step,
			Timestamp:  s.Timestamp,
			Metadata:   copyMap(s.Metadata),
			Extensions: copyMap(s.Extensions),
		}
	}

	var vec []float64
	if s.Vector != nil {
		vec = make([]float64, len(s.Vector))
		copy(vec, s.Vector)
	}
	return &State{
		Vector:     vec,
		Energy:     s.Energy,
		Risk:       s.Risk,
		Step:       s.Step,
		Timestamp:  s.Timestamp,
		Metadata:   deepCopyMap(s.Metadata),
		Extensions: deepCopyMap(s.Extensions),
	}
}

func copyMap(m map[string]any) map[string]any {
	out := make(map[string]any, len(m))
	for k, v := range m {
		out[k] = v
	}
	return out
}

func deepCopyMap(m map[string]any) map[string]any {
	out := make(map[string]any, len(m))
	for k, v := range m {
		out[k] = DeepCopyValue(v)
	}
	return out
}

// DeepCopyValue recursively copies maps and slices of the shapes payloads
// usually take. Other values are returned as-is unless they implement Cloner.
func DeepCopyValue(v any) any {
	switch t := v.(type) {
	case Cloner:
		return t.Clone()
	case map[string]any:
		return deepCopyMap(t)
	case map[string]float64:
		out := make(map[string]float64, len(t))
		for k, x := range t {
			out[k] = x
		}
		return out
	case []any:
		out := make([]any, len(t))
		for i, x := range t {
			out[i] = DeepCopyValue(x)
		}
		return out
	case []float64:
		out := make([]float64, len(t))
		copy(out, t)
		return out
	case [][]float64:
		out := make([][]float64, len(t))
		for i, row := range t {
			out[i] = make([]float64, len(row))
			copy(out[i], row)
		}
		return out
	case []string:
		out := make([]string, len(t))
		copy(out, t)
		return out
	case []map[string]any:
		out := make([]map[string]any, len(t))
		for i, x := range t {
			out[i] = deepCopyMap(x)
		}
		return out
	default:
		return v
	}
}

// #endregion copy

// #region step
// AdvanceStep sets the step counter and refreshes the timestamp.
func (s *State) AdvanceStep(step int) {
	s.Step = step
	s.Timestamp = time.Now().UTC()
}

// Dimension returns the length of the state vector.
func (s *State) Dimension() int {
	return len(s.Vector)
}

// #endregion step

// #region validation
// Validate checks the core fields only. Extension payloads are the
// monitor's concern.
func (s *State) Validate() error {
	if len(s.Vector) == 0 {
		return ErrEmptyVector
	}
	if s.Risk < 0 || s.Risk > 1 {
		return fmt.Errorf("%w: %.4f", ErrRiskRange, s.Risk)
	}
	return nil
}

// IsValid reports whether Validate passes.
func (s *State) IsValid() bool {
	return s.Validate() == nil
}

// #endregion validation
