package state

import (
	"strconv"
	"strings"
)

// asString reads a URL-decoded scalar as text. Numbers are accepted because
// a hand-edited URL may carry an unescaped numeric title or ID.
func asString(value any) (string, bool) {
	switch v := value.(type) {
	case string:
		return v, true
	case float64:
		return strconv.FormatFloat(v, 'f', -1, 64), true
	default:
		return "", false
	}
}

func cloneString(value *string) *string {
	if value == nil {
		return nil
	}
	copied := *value
	return &copied
}

func cutRepo(repo string) (string, string, bool) {
	org, name, ok := strings.Cut(repo, "/")
	if !ok || strings.Contains(name, "/") {
		return "", "", false
	}
	return org, name, true
}

func stringsToValues(values []string) []any {
	out := make([]any, len(values))
	for i, value := range values {
		out[i] = value
	}
	return out
}
