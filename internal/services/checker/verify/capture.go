package verify

import "strings"

// extract returns the first substring between start and end, trimmed
func extract(text, start, end string) (string, bool) {
	if text == "" || start == "" || end == "" {
		return "", false
	}
	i := strings.Index(text, start)
	if i < 0 {
		return "", false
	}
	rest := text[i+len(start):]
	j := strings.Index(rest, end)
	if j < 0 {
		return "", false
	}
	return strings.TrimSpace(rest[:j]), true
}

// substitute replaces credential and captured-value placeholders
// captured values answer to {NAME}, {name} and the verbatim spelling
func substitute(s, username, password string, captured map[string]string) string {
	out := strings.ReplaceAll(s, "{USERNAME}", username)
	out = strings.ReplaceAll(out, "{PASSWORD}", password)
	for name, value := range captured {
		out = strings.ReplaceAll(out, "{"+strings.ToUpper(name)+"}", value)
		out = strings.ReplaceAll(out, "{"+strings.ToLower(name)+"}", value)
		out = strings.ReplaceAll(out, "{"+name+"}", value)
	}
	return out
}

// substituteMap applies substitute to every key and value
func substituteMap(m map[string]string, username, password string, captured map[string]string) map[string]string {
	if len(m) == 0 {
		return nil
	}
	out := make(map[string]string, len(m))
	for k, v := range m {
		out[substitute(k, username, password, captured)] = substitute(v, username, password, captured)
	}
	return out
}

// substituteAny walks nested JSON values replacing placeholders in strings
func substituteAny(v any, username, password string, captured map[string]string) any {
	switch t := v.(type) {
	case string:
		return substitute(t, username, password, captured)
	case map[string]any:
		out := make(map[string]any, len(t))
		for k, val := range t {
			out[substitute(k, username, password, captured)] = substituteAny(val, username, password, captured)
		}
		return out
	case []any:
		out := make([]any, len(t))
		for i, item := range t {
			out[i] = substituteAny(item, username, password, captured)
		}
		return out
	default:
		return v
	}
}
