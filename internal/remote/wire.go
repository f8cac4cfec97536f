package remote

import (
	"time"
)

// toWire converts payload shapes structpb cannot encode directly.
func toWire(v any) any {
	switch t := v.(type) {
	case []float64:
		out := make([]any, len(t))
		for i, x := range t {
			out[i] = x
		}
		return out
	case [][]float64:
		out := make([]any, len(t))
		for i, row := range t {
			out[i] = toWire(row)
		}
		return out
	case map[string]float64:
		out := make(map[string]any, len(t))
		for k, x := range t {
			out[k] = x
		}
		return out
	case map[string]map[string]float64:
		out := make(map[string]any, len(t))
		for k, m := range t {
			out[k] = toWire(m)
		}
		return out
	case []string:
		out := make([]any, len(t))
		for i, x := range t {
			out[i] = x
		}
		return out
	case []map[string]any:
		out := make([]any, len(t))
		for i, m := range t {
			out[i] = toWireMap(m)
		}
		return out
	case map[string]any:
		return toWireMap(t)
	case []any:
		out := make([]any, len(t))
		for i, x := range t {
			out[i] = toWire(x)
		}
		return out
	case time.Time:
		return t.UTC().Format(time.RFC3339Nano)
	default:
		return v
	}
}

func toWireMap(m map[string]any) map[string]any {
	out := make(map[string]any, len(m))
	for k, v := range m {
		out[k] = toWire(v)
	}
	return out
}
