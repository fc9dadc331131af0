package urlquery

import (
	"net/url"
	"sort"
	"strconv"
	"strings"
)

// Decode parses the allow-listed keys of a query string into nested values.
// It is purely syntactic: unknown keys, undecodable pairs and malformed
// bracket paths are skipped, never reported.
func (c *Codec) Decode(query string) map[string]any {
	query = strings.TrimPrefix(query, "?")
	root := &node{}
	for _, part := range strings.Split(query, "&") {
		if part == "" {
			continue
		}
		rawKey, rawValue, _ := strings.Cut(part, "=")
		key, err := url.QueryUnescape(rawKey)
		if err != nil {
			continue
		}
		token, err := url.QueryUnescape(rawValue)
		if err != nil {
			continue
		}
		segments, ok := splitPath(key)
		if !ok || !c.tracks(segments[0]) {
			continue
		}
		value, present := decodeToken(token)
		root.set(segments, value, present)
	}

	out := map[string]any{}
	for _, key := range root.order {
		if value, ok := root.children[key].materialize(); ok {
			out[key] = value
		}
	}
	return out
}

// splitPath splits "a[b][0]" into ["a", "b", "0"]. An empty bracket pair
// ("a[]") yields an empty segment, meaning "next index".
func splitPath(key string) ([]string, bool) {
	head, rest, hasBrackets := strings.Cut(key, "[")
	if head == "" || strings.Contains(head, "]") {
		return nil, false
	}
	segments := []string{head}
	if !hasBrackets {
		return segments, true
	}
	rest = "[" + rest
	for rest != "" {
		if rest[0] != '[' {
			return nil, false
		}
		end := strings.IndexByte(rest, ']')
		if end < 0 {
			return nil, false
		}
		segment := rest[1:end]
		if strings.Contains(segment, "[") {
			return nil, false
		}
		segments = append(segments, segment)
		rest = rest[end+1:]
	}
	return segments, true
}

// node is a partially decoded value: either a leaf or a branch of children.
type node struct {
	leaf     bool
	value    any
	present  bool
	children map[string]*node
	order    []string
}

func (n *node) set(segments []string, value any, present bool) {
	if len(segments) == 0 {
		*n = node{leaf: true, value: value, present: present}
		return
	}
	if n.leaf || n.children == nil {
		*n = node{children: map[string]*node{}}
	}
	segment := segments[0]
	if segment == "" {
		segment = strconv.Itoa(n.nextIndex())
	}
	child, ok := n.children[segment]
	if !ok {
		child = &node{}
		n.children[segment] = child
		n.order = append(n.order, segment)
	}
	child.set(segments[1:], value, present)
}

func (n *node) nextIndex() int {
	next := 0
	for _, key := range n.order {
		if index, ok := parseIndex(key); ok && index >= next {
			next = index + 1
		}
	}
	return next
}

// materialize converts the node into a value. Branches whose children are
// all indices become lists, compacted in index order; other branches become
// objects.
func (n *node) materialize() (any, bool) {
	if n.leaf {
		return n.value, n.present
	}
	if n.children == nil {
		return nil, false
	}

	type indexed struct {
		index int
		key   string
	}
	indices := make([]indexed, 0, len(n.order))
	isList := true
	for _, key := range n.order {
		index, ok := parseIndex(key)
		if !ok {
			isList = false
			break
		}
		indices = append(indices, indexed{index: index, key: key})
	}

	if isList {
		sort.Slice(indices, func(i, j int) bool { return indices[i].index < indices[j].index })
		items := make([]any, 0, len(indices))
		for _, entry := range indices {
			if value, ok := n.children[entry.key].materialize(); ok {
				items = append(items, value)
			}
		}
		return items, true
	}

	object := make(map[string]any, len(n.order))
	for _, key := range n.order {
		if value, ok := n.children[key].materialize(); ok {
			object[key] = value
		}
	}
	return object, true
}

func parseIndex(key string) (int, bool) {
	if key == "" || (len(key) > 1 && key[0] == '0') {
		return 0, false
	}
	for _, r := range key {
		if r < '0' || r > '9' {
			return 0, false
		}
	}
	index, err := strconv.Atoi(key)
	if err != nil {
		return 0, false
	}
	return index, true
}
