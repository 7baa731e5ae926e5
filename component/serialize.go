package component

import "encoding/json"

// maxTracedStringLen mirrors the original trace serializer's
// shorten_string=True behavior: long string leaves in a traced value are
// truncated so spans stay small.
const maxTracedStringLen = 512

// serializeTraced renders v as a JSON string for a span attribute, with any
// string value (top-level or nested) longer than maxTracedStringLen cut to
// that length and marked with an ellipsis.
func serializeTraced(v any) string {
	b, err := json.Marshal(shorten(v))
	if err != nil {
		return ""
	}
	return string(b)
}

func shorten(v any) any {
	switch val := v.(type) {
	case string:
		if len(val) > maxTracedStringLen {
			return val[:maxTracedStringLen] + "...(truncated)"
		}
		return val
	case map[string]any:
		out := make(map[string]any, len(val))
		for k, vv := range val {
			out[k] = shorten(vv)
		}
		return out
	case []any:
		out := make([]any, len(val))
		for i, vv := range val {
			out[i] = shorten(vv)
		}
		return out
	default:
		return v
	}
}
