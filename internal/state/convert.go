package state

// Payloads decoded from YAML fixtures or remote responses arrive as []any
// and map[string]any. These helpers accept both those and the typed forms.

// #region numbers
// Float converts any integer or float kind to float64.
func Float(v any) (float64, bool) {
	switch x := v.(type) {
	case float64:
		return x, true
	case float32:
		return float64(x), true
	case int:
		return float64(x), true
	case int8:
		return float64(x), true
	case int16:
		return float64(x), true
	case int32:
		return float64(x), true
	case int64:
		return float64(x), true
	case uint:
		return float64(x), true
	case uint8:
		return float64(x), true
	case uint16:
		return float64(x), true
	case uint32:
		return float64(x), true
	case uint64:
		return float64(x), true
	}
	return 0, false
}

// Floats converts a numeric list.
func Floats(v any) ([]float64, bool) {
	switch x := v.(type) {
	case []float64:
		return x, true
	case []any:
		out := make([]float64, len(x))
		for i, e := range x {
			f, ok := Float(e)
			if !ok {
				return nil, false
			}
			out[i] = f
		}
		return out, true
	}
	return nil, false
}

// Matrix converts a list of numeric lists.
func Matrix(v any) ([][]float64, bool) {
	switch x := v.(type) {
	case [][]float64:
		return x, true
	case []any:
		out := make([][]float64, len(x))
		for i, row := range x {
			r, ok := Floats(row)
			if !ok {
				return nil, false
			}
			out[i] = r
		}
		return out, true
	}
	return nil, false
}

// FloatMap converts a map of numeric values.
func FloatMap(v any) (map[string]float64, bool) {
	switch x := v.(type) {
	case map[string]float64:
		return x, true
	case map[string]any:
		out := make(map[string]float64, len(x))
		for k, e := range x {
			f, ok := Float(e)
			if !ok {
				return nil, false
			}
			out[k] = f
		}
		return out, true
	}
	return nil, false
}

// #endregion numbers
