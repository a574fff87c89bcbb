// Package errmap tracks human-readable validation messages per field path.
// Maps are treated as immutable values: every operation returns a new map and
// a path key, when present, always holds a non-empty message list.
package errmap

// Map associates field paths with ordered validation messages.
type Map map[string][]string

// Set replaces the messages for a path. Setting an empty message list removes
// the path entirely, preserving the non-empty-list invariant.
func Set(m Map, path string, messages []string) Map {
	if len(messages) == 0 {
		return Clear(m, path)
	}
	out := cloneExcept(m, path)
	out[path] = append([]string(nil), messages...)
	return out
}

// Clear removes a path from the map. The key is deleted, not emptied.
func Clear(m Map, path string) Map {
	if _, ok := m[path]; !ok {
		return m
	}
	return cloneExcept(m, path)
}

// MergeServer folds a server-side field-validation payload into the map.
// Server values arrive as a single string, a string list, or a loosely typed
// list from JSON decoding; each is normalized to a message list.
func MergeServer(m Map, server map[string]any) Map {
	if len(server) == 0 {
		return m
	}
	out := make(Map, len(m)+len(server))
	for k, v := range m {
		out[k] = v
	}
	for path, raw := range server {
		messages := normalizeMessages(raw)
		if len(messages) == 0 {
			continue
		}
		out[path] = messages
	}
	return out
}

// HasErrors reports whether any path carries messages.
func HasErrors(m Map) bool {
	return len(m) > 0
}

// First returns the first message for a path, for single-line display.
func First(m Map, path string) (string, bool) {
	messages, ok := m[path]
	if !ok || len(messages) == 0 {
		return "", false
	}
	return messages[0], true
}

// Messages returns the full ordered message list for a path.
func Messages(m Map, path string) []string {
	messages, ok := m[path]
	if !ok {
		return nil
	}
	return append([]string(nil), messages...)
}

func normalizeMessages(raw any) []string {
	switch v := raw.(type) {
	case string:
		if v == "" {
			return nil
		}
		return []string{v}
	case []string:
		return nonEmpty(v)
	case []any:
		out := make([]string, 0, len(v))
		for _, item := range v {
			if s, ok := item.(string); ok && s != "" {
				out = append(out, s)
			}
		}
		return out
	default:
		return nil
	}
}

func nonEmpty(in []string) []string {
	out := make([]string, 0, len(in))
	for _, s := range in {
		if s != "" {
			out = append(out, s)
		}
	}
	return out
}

func cloneExcept(m Map, path string) Map {
	out := make(Map, len(m)+1)
	for k, v := range m {
		if k == path {
			continue
		}
		out[k] = v
	}
	return out
}
