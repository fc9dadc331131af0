// Package urlquery maps an allow-list of nested values to and from a URL
// query string.
//
// Nested values use bracket paths (issueDetails[featureId]=x,
// completedTasks[0]=a). Scalars that would otherwise be lost as text use
// literal tokens: true, false, null, [] for an empty list and {} for an empty
// object. Numbers are written as JSON numbers and decode to float64. A string
// that collides with a token, looks like a number or starts with "~" is
// written with a leading "~". Objects whose keys are all list indices decode
// as lists.
package urlquery

import (
	"math"
	"net/url"
	"regexp"
	"slices"
	"sort"
	"strconv"
	"strings"
)

const escapePrefix = "~"

const (
	tokenTrue      = "true"
	tokenFalse     = "false"
	tokenNull      = "null"
	tokenUndefined = "undefined"
	tokenEmptyList = "[]"
	tokenEmptyMap  = "{}"
)

var numberPattern = regexp.MustCompile(`^-?(0|[1-9][0-9]*)(\.[0-9]+)?([eE][+-]?[0-9]+)?$`)

// Codec encodes and decodes the allow-listed top-level keys. It does not
// interpret the values it carries.
type Codec struct {
	keys []string
}

func New(keys ...string) *Codec {
	sorted := slices.Clone(keys)
	sort.Strings(sorted)
	return &Codec{keys: slices.Compact(sorted)}
}

// Keys returns the allow-list in encoding order.
func (c *Codec) Keys() []string {
	return slices.Clone(c.keys)
}

func (c *Codec) tracks(key string) bool {
	_, found := slices.BinarySearch(c.keys, key)
	return found
}

// Encode serializes the allow-listed entries of values. Output is
// deterministic: keys are sorted and list items keep their order.
//
// Decode(Encode(v)) == v holds when v is built from strings, float64, bool,
// nil, []any and map[string]any whose keys are non-empty, contain no "[" or
// "]" and are not all list indices. Outside that domain:
//   - functions, NaN and infinities are skipped;
//   - object keys that are empty or contain brackets are dropped, and an
//     object left with no keys is omitted entirely;
//   - an object whose keys are all list indices ("0", "7", no leading zeros)
//     decodes as a list ordered by index;
//   - int and int64 decode as float64, []string as []any.
func (c *Codec) Encode(values map[string]any) string {
	var pairs []string
	for _, key := range c.keys {
		value, ok := values[key]
		if !ok {
			continue
		}
		pairs = appendPairs(pairs, key, value)
	}
	return strings.Join(pairs, "&")
}

func appendPairs(pairs []string, path string, value any) []string {
	switch v := value.(type) {
	case map[string]any:
		if len(v) == 0 {
			return append(pairs, pair(path, tokenEmptyMap))
		}
		keys := make([]string, 0, len(v))
		for key := range v {
			if key != "" && !strings.ContainsAny(key, "[]") {
				keys = append(keys, key)
			}
		}
		sort.Strings(keys)
		for _, key := range keys {
			pairs = appendPairs(pairs, path+"["+key+"]", v[key])
		}
		return pairs
	case []any:
		if len(v) == 0 {
			return append(pairs, pair(path, tokenEmptyList))
		}
		for i, item := range v {
			pairs = appendPairs(pairs, path+"["+strconv.Itoa(i)+"]", item)
		}
		return pairs
	case []string:
		items := make([]any, len(v))
		for i, item := range v {
			items[i] = item
		}
		return appendPairs(pairs, path, items)
	case nil:
		return append(pairs, pair(path, tokenNull))
	case bool:
		if v {
			return append(pairs, pair(path, tokenTrue))
		}
		return append(pairs, pair(path, tokenFalse))
	case string:
		return append(pairs, pair(path, escapeString(v)))
	case float64:
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return pairs
		}
		return append(pairs, pair(path, strconv.FormatFloat(v, 'g', -1, 64)))
	case int:
		return append(pairs, pair(path, strconv.Itoa(v)))
	case int64:
		return append(pairs, pair(path, strconv.FormatInt(v, 10)))
	default:
		return pairs
	}
}

func pair(path, token string) string {
	return url.QueryEscape(path) + "=" + url.QueryEscape(token)
}

func escapeString(s string) string {
	switch s {
	case tokenTrue, tokenFalse, tokenNull, tokenUndefined, tokenEmptyList, tokenEmptyMap:
		return escapePrefix + s
	}
	if strings.HasPrefix(s, escapePrefix) || numberPattern.MatchString(s) {
		return escapePrefix + s
	}
	return s
}

// decodeToken returns the value of a single query token. present is false for
// "undefined", which removes the entry.
func decodeToken(token string) (value any, present bool) {
	if strings.HasPrefix(token, escapePrefix) {
		return strings.TrimPrefix(token, escapePrefix), true
	}
	switch token {
	case tokenTrue:
		return true, true
	case tokenFalse:
		return false, true
	case tokenNull:
		return nil, true
	case tokenUndefined:
		return nil, false
	case tokenEmptyList:
		return []any{}, true
	case tokenEmptyMap:
		return map[string]any{}, true
	}
	if numberPattern.MatchString(token) {
		if f, err := strconv.ParseFloat(token, 64); err == nil && !math.IsInf(f, 0) {
			return f, true
		}
	}
	return token, true
}
