package transcription

import (
	"encoding/json"
	"strings"
)

func decodeObject(body []byte) (map[string]any, bool) {
	var doc map[string]any
	if err := json.Unmarshal(body, &doc); err != nil {
		return nil, false
	}
	return doc, true
}

// lookupString walks keys through nested objects. Arrays resolve to their
// first element so "errors.message" matches [{"message": ...}].
func lookupString(v any, keys []string) string {
	for _, key := range keys {
		if arr, ok := v.([]any); ok {
			if len(arr) == 0 {
				return ""
			}
			v = arr[0]
		}
		obj, ok := v.(map[string]any)
		if !ok {
			return ""
		}
		v = obj[key]
	}
	if arr, ok := v.([]any); ok && len(arr) > 0 {
		v = arr[0]
	}
	switch val := v.(type) {
	case string:
		return strings.TrimSpace(val)
	case map[string]any:
		if msg, ok := val["message"].(string); ok {
			return strings.TrimSpace(msg)
		}
	}
	return ""
}
