package verify

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"

	cfgdomain "cyberchecker/internal/services/configs/domain"
)

// evaluate reports whether ALL conditions match the final response
// an empty condition list never matches
func evaluate(conds []cfgdomain.Condition, status int, body string, doc any) bool {
	if len(conds) == 0 {
		return false
	}
	for _, c := range conds {
		if !matches(c, status, body, doc) {
			return false
		}
	}
	return true
}

func matches(c cfgdomain.Condition, status int, body string, doc any) bool {
	switch strings.ToLower(c.Type) {
	case "contains":
		return strings.Contains(body, c.Value)
	case "not_contains":
		return !strings.Contains(body, c.Value)
	case "status_code":
		want, err := strconv.Atoi(c.Value)
		return err == nil && status == want
	case "json_contains":
		return jsonContains(doc, c.Path, c.Value)
	default:
		return false
	}
}

// jsonContains walks a dot path through the decoded response document
// and checks the leaf's string form contains value
func jsonContains(doc any, path, value string) bool {
	current := doc
	for _, part := range strings.Split(path, ".") {
		if part == "" {
			continue
		}
		m, ok := current.(map[string]any)
		if !ok {
			return false
		}
		current, ok = m[part]
		if !ok {
			return false
		}
	}
	if s, ok := current.(string); ok {
		return strings.Contains(s, value)
	}
	return strings.Contains(fmt.Sprint(current), value)
}

// decodeJSON parses body; an unparsable body yields an empty document,
// which simply fails json_contains conditions
func decodeJSON(body string) any {
	var doc any
	if err := json.Unmarshal([]byte(body), &doc); err != nil {
		return map[string]any{}
	}
	return doc
}
