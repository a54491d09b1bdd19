// Package tplengine substitutes `{{...}}` placeholders in strings and
// recurses through structured parameters doing the same. The grammar is
// deliberately narrow: a placeholder body is either one of a fixed set of
// built-in date/time names or a path resolved against the execution
// context. Block-style constructs ({{#...}}, {{/...}}) are not part of this
// grammar at all; engine/validator is what rejects specs that try to use
// them, so this package never needs to recognize or reject them itself.
package tplengine

import (
	"encoding/json"
	"fmt"
	"regexp"
	"strings"
	"time"

	"github.com/fluxline-dev/fluxline/engine/document"
	"github.com/fluxline-dev/fluxline/pkg/logger"
)

// MissingValueSentinel is substituted for any placeholder that cannot be
// resolved against the context, built-ins included.
const MissingValueSentinel = "[No available data]"

var placeholderPattern = regexp.MustCompile(`\{\{([^{}]*)\}\}`)

// Engine resolves placeholders against an execution context. The zero
// value is usable; NewEngine exists for parity with constructors elsewhere
// in the runtime and to allow a custom clock in tests.
type Engine struct {
	now func() time.Time
	log logger.Logger
}

// NewEngine returns an Engine using the real wall clock and a default
// logger. Use WithClock/WithLogger to override either.
func NewEngine() *Engine {
	return &Engine{now: time.Now, log: logger.NewLogger(nil)}
}

// WithClock overrides the clock used for all built-in date/time names.
// Intended for tests that need a deterministic "now".
func (e *Engine) WithClock(now func() time.Time) *Engine {
	e.now = now
	return e
}

// WithLogger overrides the logger used for missing-value and
// timezone-fallback warnings.
func (e *Engine) WithLogger(log logger.Logger) *Engine {
	e.log = log
	return e
}

func (e *Engine) clock() time.Time {
	if e.now != nil {
		return e.now()
	}
	return time.Now()
}

func (e *Engine) logger() logger.Logger {
	if e.log != nil {
		return e.log
	}
	return logger.NewLogger(nil)
}

// Resolve substitutes every `{{...}}` placeholder in template against ctx.
// Non-placeholder strings pass through unchanged (resolve(s, ctx) == s).
func (e *Engine) Resolve(template string, ctx map[string]any) string {
	if !strings.Contains(template, "{{") {
		return template
	}
	return placeholderPattern.ReplaceAllStringFunc(template, func(match string) string {
		body := strings.TrimSpace(placeholderPattern.FindStringSubmatch(match)[1])
		return e.resolveBody(body, ctx)
	})
}

func (e *Engine) resolveBody(body string, ctx map[string]any) string {
	if value, ok := e.builtin(body, ctx); ok {
		return value
	}
	value, ok := document.Get(ctx, body)
	if !ok {
		e.logger().Warn("template placeholder did not resolve", "path", body)
		return MissingValueSentinel
	}
	return stringify(value)
}

// stringify serializes a resolved value for inclusion in a template
// string: mappings and sequences are JSON-encoded, everything else is
// stringified verbatim (per spec.md §4.2's value serialization rule).
func stringify(value any) string {
	switch v := value.(type) {
	case nil:
		return ""
	case string:
		return v
	case map[string]any, []any:
		encoded, err := json.Marshal(v)
		if err != nil {
			return ""
		}
		return string(encoded)
	case fmt.Stringer:
		return v.String()
	default:
		return fmt.Sprintf("%v", v)
	}
}

// ResolveParameters recurses through maps and slices, resolving every
// string leaf via Resolve. Other leaves pass through unchanged.
func (e *Engine) ResolveParameters(params any, ctx map[string]any) any {
	switch v := params.(type) {
	case string:
		return e.Resolve(v, ctx)
	case map[string]any:
		result := make(map[string]any, len(v))
		for k, val := range v {
			result[k] = e.ResolveParameters(val, ctx)
		}
		return result
	case []any:
		result := make([]any, len(v))
		for i, val := range v {
			result[i] = e.ResolveParameters(val, ctx)
		}
		return result
	default:
		return v
	}
}
