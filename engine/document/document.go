// Package document models the runtime's working universe: arbitrary nested
// structures of primitives, ordered sequences, and string-keyed mappings,
// plus the path resolver that traverses them.
//
// A Document is deliberately just `any`: the natural shape produced by
// encoding/json (map[string]any, []any, string, float64, bool, nil). Absence
// of a key or out-of-range index is modeled as a second, explicit bool return
// rather than folded into the value space, so nil (JSON null) and "no such
// path" remain distinguishable everywhere in the runtime.
package document

import (
	"regexp"
	"strconv"
	"strings"
)

// Document is any value in the runtime's working universe: nil, bool,
// int/float, string, []any, or map[string]any.
type Document = any

var integerSegment = regexp.MustCompile(`^-?\d+$`)

// Get resolves path against doc and reports whether it resolved. A path is a
// dot-separated sequence of segments; bracket notation such as "items[0].id"
// is equivalent to "items.0.id" and is normalized before traversal.
func Get(doc Document, path string) (Document, bool) {
	segments := splitPath(path)
	if len(segments) == 0 {
		return nil, false
	}
	current := doc
	for _, segment := range segments {
		next, ok := step(current, segment)
		if !ok {
			return nil, false
		}
		current = next
	}
	return current, true
}

// splitPath rewrites bracket notation to dotted form and splits on ".".
// Empty segments (from a leading/trailing/doubled separator) are dropped.
func splitPath(path string) []string {
	rewritten := rewriteBrackets(path)
	raw := strings.Split(rewritten, ".")
	segments := make([]string, 0, len(raw))
	for _, s := range raw {
		if s != "" {
			segments = append(segments, s)
		}
	}
	return segments
}

func rewriteBrackets(path string) string {
	var b strings.Builder
	b.Grow(len(path))
	for i := 0; i < len(path); i++ {
		c := path[i]
		switch c {
		case '[':
			b.WriteByte('.')
		case ']':
			// drop
		default:
			b.WriteByte(c)
		}
	}
	return b.String()
}

func isIntegerSegment(s string) bool {
	return integerSegment.MatchString(s)
}

// step resolves a single path segment against the current node.
func step(current Document, segment string) (Document, bool) {
	if current == nil {
		return nil, false
	}

	if isIntegerSegment(segment) {
		idx, err := strconv.Atoi(segment)
		if err != nil {
			return nil, false
		}
		switch c := current.(type) {
		case []any:
			return indexSequence(c, idx)
		case map[string]any:
			// Array-like mapping with a stringified integer key, e.g. {"0": ...}.
			if v, ok := c[segment]; ok {
				return v, true
			}
			// Per-item fallback: a path authored for a sequence still resolves
			// against a lone object when the index segment is 0, at any depth.
			if idx == 0 {
				return current, true
			}
			return nil, false
		default:
			return nil, false
		}
	}

	if c, ok := current.(map[string]any); ok {
		v, ok := c[segment]
		return v, ok
	}
	return nil, false
}

func indexSequence(seq []any, idx int) (Document, bool) {
	n := len(seq)
	if idx < 0 {
		idx += n
	}
	if idx < 0 || idx >= n {
		return nil, false
	}
	return seq[idx], true
}
