// Package jsonextract recovers embedded JSON from free-form text returned
// by non-structured tools (e.g. an LLM-backed tool that replies in prose
// with a JSON payload somewhere inside it).
package jsonextract

import (
	"encoding/json"
	"regexp"

	lru "github.com/hashicorp/golang-lru/v2"
)

var fencedBlockPattern = regexp.MustCompile("(?s)```(?:json)?\\s*\\n?(.*?)```")

// resultCache memoizes Extract by input string. Polling automations can
// invoke the same tool repeatedly with near-identical free-form output
// (e.g. an LLM tool re-summarizing the same source item); this avoids
// re-running the fenced-block and brace/bracket scans on payloads already
// seen recently. Bounded size keeps memory flat regardless of run count.
var resultCache, _ = lru.New[string, any](256)

// Extract attempts to recover a JSON value from input. Non-strings are
// returned unchanged. The algorithm, in order:
//  1. parse the whole string as JSON;
//  2. try each fenced code block;
//  3. try the first balanced-looking {...} substring, then [...];
//  4. give up and return the original string unchanged.
func Extract(input any) any {
	s, ok := input.(string)
	if !ok {
		return input
	}
	if cached, ok := resultCache.Get(s); ok {
		return cached
	}
	result := extractUncached(s)
	resultCache.Add(s, result)
	return result
}

func extractUncached(s string) any {
	if v, ok := tryParse(s); ok {
		return v
	}
	for _, block := range fencedBlockPattern.FindAllStringSubmatch(s, -1) {
		if v, ok := tryParse(block[1]); ok {
			return v
		}
	}
	if span, ok := firstBalancedSpan(s, '{', '}'); ok {
		if v, ok := tryParse(span); ok {
			return v
		}
	}
	if span, ok := firstBalancedSpan(s, '[', ']'); ok {
		if v, ok := tryParse(span); ok {
			return v
		}
	}
	return s
}

// firstBalancedSpan scans s for the first syntactically balanced run from
// open to its matching close, tracking nesting depth and skipping over
// characters inside JSON string literals (so a brace quoted inside a string
// value never throws off the depth count). Unlike a greedy regex, this
// stops at the first close that actually balances the first open it finds,
// so prose containing two separate JSON objects recovers the first one
// instead of spanning into the second.
func firstBalancedSpan(s string, open, close byte) (string, bool) {
	for start := 0; start < len(s); start++ {
		if s[start] != open {
			continue
		}
		if end, ok := matchBalanced(s, start, open, close); ok {
			return s[start : end+1], true
		}
	}
	return "", false
}

func matchBalanced(s string, start int, open, close byte) (int, bool) {
	depth := 0
	inString := false
	escaped := false
	for i := start; i < len(s); i++ {
		c := s[i]
		if inString {
			switch {
			case escaped:
				escaped = false
			case c == '\\':
				escaped = true
			case c == '"':
				inString = false
			}
			continue
		}
		switch c {
		case '"':
			inString = true
		case open:
			depth++
		case close:
			depth--
			if depth == 0 {
				return i, true
			}
		}
	}
	return 0, false
}

func tryParse(s string) (any, bool) {
	var v any
	if err := json.Unmarshal([]byte(s), &v); err != nil {
		return nil, false
	}
	return v, true
}
