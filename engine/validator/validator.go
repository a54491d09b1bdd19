// Package validator implements the declarative-spec validator from
// spec.md §4.7: static checks run on an automation spec before it is
// accepted for deployment. Validate never panics; every problem is
// returned as a human-readable message in the errors slice.
package validator

import (
	"context"
	"fmt"
	"regexp"
	"strings"

	"github.com/bmatcuk/doublestar/v4"
	"github.com/fluxline-dev/fluxline/engine/automation"
	"github.com/fluxline-dev/fluxline/engine/condition"
	"github.com/fluxline-dev/fluxline/engine/registry"
)

var (
	blockSyntaxPattern  = regexp.MustCompile(`\{\{\s*[#/]`)
	eventDataPattern    = regexp.MustCompile(`\{\{\s*event_data\.([^}]*)\}\}`)
	webhookIndexPattern = regexp.MustCompile(`\{\{\s*(?:trigger_data\.)?(-?\d+)(?:\.|\s*\}\})`)
)

// ToolSchema is a single tool's declared parameter set, as "fetched during
// authoring" per spec.md §4.7 check 7. Parameters maps a parameter name to
// its JSON-schema-like document (used for the supplemental value-validation
// check below).
type ToolSchema struct {
	ToolName   string
	Parameters map[string]any
}

// Options configures an optional, stricter pass of Validate.
type Options struct {
	// Registry, if non-nil, is used for check 5 (tool existence).
	Registry registry.Registry
	// FetchedSchemas, if non-nil, enables check 7: every tool used must
	// appear here, and every action parameter name must be declared.
	FetchedSchemas map[string]ToolSchema
	// AllowedToolPatterns, if non-empty, restricts every action's tool name
	// to match at least one doublestar glob pattern (e.g. "mcp:*"),
	// supplemental to check 5's plain existence check.
	AllowedToolPatterns []string
}

// Result is Validate's return value: ok reports whether the spec is free of
// blocking errors (warnings never flip ok to false).
type Result struct {
	OK       bool
	Errors   []string
	Warnings []string
}

// Validate runs every check in spec.md §4.7 against spec, plus the
// supplemental schema/glob checks enabled by opts.
func Validate(spec automation.Spec, opts Options) Result {
	var errs, warnings []string

	// Check 1: actions is a non-empty sequence.
	if len(spec.Actions) == 0 {
		errs = append(errs, "automation must have at least one action")
	}

	for i, action := range spec.Actions {
		id := action.ResolvedID(i)
		errs = append(errs, checkBlockSyntax(id, action)...)
		errs = append(errs, checkEventDataPrefix(id, action)...)
		errs = append(errs, checkTool(id, action, opts.Registry)...)
		errs = append(errs, checkCondition(id, action.Condition)...)
		errs = append(errs, checkToolPattern(id, action, opts.AllowedToolPatterns)...)
		if opts.FetchedSchemas != nil {
			e, w := checkFetchedSchema(id, action, opts.FetchedSchemas)
			errs = append(errs, e...)
			warnings = append(warnings, w...)
		}
	}

	if spec.TriggerType == automation.TriggerWebhook {
		errs = append(errs, checkWebhookArrayIndexing(spec)...)
	}

	if opts.FetchedSchemas != nil {
		warnings = append(warnings, ValidateParameterValues(spec, opts.FetchedSchemas)...)
	}

	return Result{OK: len(errs) == 0, Errors: errs, Warnings: warnings}
}

// checkBlockSyntax implements check 2: no string leaf anywhere in the
// action matches the block-syntax pattern {{#...}} / {{/...}}.
func checkBlockSyntax(id string, action automation.Action) []string {
	var errs []string
	walkActionStrings(action, func(s string) {
		if blockSyntaxPattern.MatchString(s) {
			errs = append(errs, fmt.Sprintf(
				"action %q: block-style template syntax ({{#...}} / {{/...}}) is not supported", id))
		}
	})
	return errs
}

// checkEventDataPrefix implements check 3: {{event_data....}} is rejected
// with a message suggesting the {{trigger_data....}} replacement.
func checkEventDataPrefix(id string, action automation.Action) []string {
	var errs []string
	walkActionStrings(action, func(s string) {
		for _, m := range eventDataPattern.FindAllStringSubmatch(s, -1) {
			errs = append(errs, fmt.Sprintf(
				"action %q: {{event_data.%s}} is not a valid placeholder; use {{trigger_data.%s}} instead",
				id, m[1], m[1]))
		}
	})
	return errs
}

// checkTool implements check 5: every action has a tool field, and (when a
// registry is supplied) the named tool exists.
func checkTool(id string, action automation.Action, reg registry.Registry) []string {
	var errs []string
	if strings.TrimSpace(action.Tool) == "" {
		errs = append(errs, fmt.Sprintf("action %q: missing required \"tool\" field", id))
		return errs
	}
	if reg == nil {
		return errs
	}
	if _, ok := reg.GetToolByName(context.Background(), action.Tool); !ok {
		errs = append(errs, fmt.Sprintf("action %q: tool %q not found in registry", id, action.Tool))
	}
	return errs
}

// checkToolPattern is the supplemental glob-based allowlist check: when
// patterns are configured, every action's tool name must match at least
// one (e.g. restricting specs to "mcp:*"-namespaced tools).
func checkToolPattern(id string, action automation.Action, patterns []string) []string {
	if len(patterns) == 0 || action.Tool == "" {
		return nil
	}
	for _, p := range patterns {
		if ok, _ := doublestar.Match(p, action.Tool); ok {
			return nil
		}
	}
	return []string{fmt.Sprintf("action %q: tool %q does not match any allowed pattern %v", id, action.Tool, patterns)}
}

// checkCondition implements check 6: a condition, if present, has valid
// structure — value is required unless the op is exists/not_exists.
func checkCondition(id string, cond condition.Condition) []string {
	var errs []string
	if cond.IsEmpty() {
		return errs
	}
	if cond.Path != "" {
		errs = append(errs, checkClauseValue(id, condition.Clause{Path: cond.Path, Op: cond.Op, Value: cond.Value})...)
		return errs
	}
	if cond.Operator != condition.OpAnd && cond.Operator != condition.OpOr {
		errs = append(errs, fmt.Sprintf("action %q: condition has unknown logical operator %q", id, cond.Operator))
	}
	for _, clause := range cond.Clauses {
		errs = append(errs, checkClauseValue(id, clause)...)
	}
	return errs
}

func checkClauseValue(id string, clause condition.Clause) []string {
	if clause.Op != condition.OpExists && clause.Op != condition.OpNotExists && clause.Value == nil {
		return []string{fmt.Sprintf("action %q: condition op %q requires a \"value\"", id, clause.Op)}
	}
	return nil
}

// checkFetchedSchema implements check 7: every tool used must appear in
// the fetched-schema record, and every action parameter name must be in
// that tool's declared parameter set.
func checkFetchedSchema(
	id string, action automation.Action, schemas map[string]ToolSchema,
) (errs, warnings []string) {
	schema, ok := schemas[action.Tool]
	if !ok {
		errs = append(errs, fmt.Sprintf(
			"action %q: tool %q was not fetched during authoring; re-discover it before use", id, action.Tool))
		return errs, warnings
	}
	for paramName := range action.Parameters {
		if _, declared := schema.Parameters[paramName]; !declared {
			errs = append(errs, fmt.Sprintf(
				"action %q: parameter %q is not declared for tool %q", id, paramName, action.Tool))
		}
	}
	return errs, warnings
}

// checkWebhookArrayIndexing implements check 4: for webhook automations, no
// string leaf in actions or trigger_config.filters may use array-indexed
// access against trigger data, since webhook payloads are always scalar
// mappings.
func checkWebhookArrayIndexing(spec automation.Spec) []string {
	var errs []string
	for i, action := range spec.Actions {
		id := action.ResolvedID(i)
		walkActionStrings(action, func(s string) {
			if webhookIndexPattern.MatchString(s) {
				errs = append(errs, fmt.Sprintf(
					"action %q: webhook trigger_data is always a scalar mapping; array-indexed paths "+
						"like {{trigger_data.0...}} or {{0...}} are not allowed", id))
			}
		})
	}
	if filters, ok := spec.TriggerConfig["filters"]; ok {
		walkStrings(filters, func(s string) {
			if webhookIndexPattern.MatchString(s) {
				errs = append(errs, "trigger_config.filters: array-indexed access against webhook trigger_data is not allowed")
			}
		})
	}
	return errs
}

// walkStrings recurses through a document (maps/slices/strings) invoking f
// on every string leaf.
func walkStrings(v any, f func(string)) {
	switch val := v.(type) {
	case string:
		f(val)
	case map[string]any:
		for _, child := range val {
			walkStrings(child, f)
		}
	case []any:
		for _, child := range val {
			walkStrings(child, f)
		}
	}
}

// walkActionStrings recurses through every string leaf an action carries:
// its parameters, its condition's clause value(s), and output_as. Checks
// that must catch a stray {{#each}} or {{event_data.x}} anywhere in the
// action (not just in parameters) use this instead of walkStrings directly.
func walkActionStrings(action automation.Action, f func(string)) {
	walkStrings(action.Parameters, f)
	walkConditionStrings(action.Condition, f)
	if action.OutputAs != "" {
		f(action.OutputAs)
	}
}

func walkConditionStrings(cond condition.Condition, f func(string)) {
	if cond.IsEmpty() {
		return
	}
	if cond.Path != "" {
		walkStrings(cond.Value, f)
		return
	}
	for _, clause := range cond.Clauses {
		walkStrings(clause.Value, f)
	}
}
