// Package preflight implements the polling preflight from spec.md §4.8: a
// one-shot live dry-run, performed at deploy time for trigger_type ==
// "polling" automations, that invokes the real source_tool once and checks
// every templated trigger_data.* path against the returned sample. Unlike
// engine/validator's purely static checks, Run is a side-effecting probe —
// it may count against a user's per-tool quota, exactly as a real poll
// would (spec.md §9's preflight-isolation note).
package preflight

import (
	"context"
	"encoding/json"
	"fmt"
	"regexp"
	"sort"
	"strings"
	"time"

	"github.com/fluxline-dev/fluxline/engine/automation"
	"github.com/fluxline-dev/fluxline/engine/condition"
	"github.com/fluxline-dev/fluxline/engine/document"
	"github.com/fluxline-dev/fluxline/engine/registry"
	"github.com/fluxline-dev/fluxline/engine/tplengine"
)

// Timeout is the hard bound on the single source_tool invocation Run
// performs, reusing spec.md §5's 30s per-action timeout for the preflight
// path.
const Timeout = 30 * time.Second

var triggerDataPattern = regexp.MustCompile(`\{\{\s*trigger_data\.([^{}\s]*)\s*\}\}`)

// Result is Run's return value. A non-empty Errors slice means the
// automation must not be deployed; Warning is set instead when the
// source_tool itself could not be exercised (spec.md §4.8 step 5) — that
// case is soft and never blocks deployment.
type Result struct {
	OK      bool
	Errors  []string
	Warning string
}

// Run performs the preflight procedure from spec.md §4.8 against a
// trigger_type == "polling" automation's trigger_config and actions.
func Run(
	ctx context.Context, reg registry.Registry, userID string,
	triggerConfig automation.PollingTriggerConfig, actions []automation.Action,
) Result {
	if triggerConfig.SourceTool == "" {
		return Result{Errors: []string{"polling trigger_config.source_tool is required"}}
	}
	if reg == nil {
		return Result{Errors: []string{fmt.Sprintf("no registry configured, cannot verify source_tool %q", triggerConfig.SourceTool)}}
	}
	if _, ok := reg.GetToolByName(ctx, triggerConfig.SourceTool); !ok {
		return Result{Errors: []string{fmt.Sprintf("source_tool %q not found in registry", triggerConfig.SourceTool)}}
	}

	paths := CollectTriggerDataPaths(actions, triggerConfig.Filter)
	if len(paths) == 0 {
		return Result{OK: true}
	}

	params := resolveToolParamsDates(triggerConfig.ToolParams)
	probeCtx, cancel := context.WithTimeout(ctx, Timeout)
	defer cancel()
	sample, err := reg.ExecuteTool(probeCtx, triggerConfig.SourceTool, params, userID)
	if err != nil {
		return Result{OK: true, Warning: fmt.Sprintf(
			"source_tool %q could not be exercised (%s); could not verify paths: %v",
			triggerConfig.SourceTool, err.Error(), paths)}
	}
	sample, softFailed := asJSONSample(sample)
	if softFailed {
		return Result{OK: true, Warning: fmt.Sprintf(
			"source_tool %q returned non-JSON text; could not verify paths: %v",
			triggerConfig.SourceTool, paths)}
	}

	unresolved := unresolvedPaths(sample, paths)
	if len(unresolved) == 0 {
		return Result{OK: true}
	}

	hint := sampleHint(sample)
	errs := make([]string, 0, len(unresolved))
	for _, p := range unresolved {
		errs = append(errs, fmt.Sprintf(
			"trigger_data.%s does not resolve against a live sample from %q; %s", p, triggerConfig.SourceTool, hint))
	}
	return Result{Errors: errs}
}

// CollectTriggerDataPaths extracts every trigger_data.<path> reference from
// action conditions, action parameters, and the trigger's filter/filters
// condition, per spec.md §4.8 step 2. Paths are returned with the
// "trigger_data." prefix stripped.
func CollectTriggerDataPaths(actions []automation.Action, filter condition.Condition) []string {
	seen := make(map[string]struct{})
	for _, action := range actions {
		collectConditionPaths(action.Condition, seen)
		walkStrings(action.Parameters, func(s string) {
			for _, m := range triggerDataPattern.FindAllStringSubmatch(s, -1) {
				seen[m[1]] = struct{}{}
			}
		})
	}
	collectConditionPaths(filter, seen)

	paths := make([]string, 0, len(seen))
	for p := range seen {
		paths = append(paths, p)
	}
	sort.Strings(paths)
	return paths
}

// collectConditionPaths adds every clause path in cond to seen, stripping a
// leading "trigger_data." prefix when present: filter/filters conditions
// are themselves evaluated against trigger_data (spec.md §6), so a clause
// path may be authored either bare ("status") or explicitly prefixed
// ("trigger_data.status").
func collectConditionPaths(cond condition.Condition, seen map[string]struct{}) {
	if cond.IsEmpty() {
		return
	}
	clauses := cond.Clauses
	if cond.Path != "" {
		clauses = []condition.Clause{{Path: cond.Path, Op: cond.Op, Value: cond.Value}}
	}
	for _, clause := range clauses {
		if clause.Path == "" {
			continue
		}
		seen[strings.TrimPrefix(clause.Path, "trigger_data.")] = struct{}{}
	}
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

// resolveToolParamsDates resolves the date/time built-ins ({{today}},
// {{yesterday}}, ...) inside tool_params using UTC, per spec.md §4.8 step 4.
// A fresh UTC-only engine is used rather than the executor's shared one: the
// preflight has no user context yet (it runs at deploy time, before any
// trigger_data exists), so every user-local built-in degrades to its UTC
// fallback by construction.
func resolveToolParamsDates(params map[string]any) map[string]any {
	if params == nil {
		return nil
	}
	engine := tplengine.NewEngine()
	resolved := engine.ResolveParameters(params, map[string]any{})
	m, _ := resolved.(map[string]any)
	return m
}

// asJSONSample normalizes a source_tool's raw result into a sample document,
// reporting true in its second return when the result was a string that
// could not be parsed as JSON (spec.md §4.8 step 5's soft-warning case).
func asJSONSample(raw any) (any, bool) {
	s, ok := raw.(string)
	if !ok {
		return raw, false
	}
	var parsed any
	if err := json.Unmarshal([]byte(s), &parsed); err != nil {
		return nil, true
	}
	return parsed, false
}

func unresolvedPaths(sample any, paths []string) []string {
	var unresolved []string
	for _, p := range paths {
		if _, ok := document.Get(sample, p); !ok {
			unresolved = append(unresolved, p)
		}
	}
	return unresolved
}

// sampleHint describes the sample's shape for an unresolved-path error
// message, per spec.md §4.8 step 7: the first five top-level keys of a
// mapping, or the first five keys of element 0 of a sequence.
func sampleHint(sample any) string {
	switch v := sample.(type) {
	case map[string]any:
		return "sample top-level keys: " + topKeys(v, 5)
	case []any:
		if len(v) == 0 {
			return "sample is an empty list"
		}
		if m, ok := v[0].(map[string]any); ok {
			return "sample[0] keys: " + topKeys(m, 5)
		}
		return "sample is a list of non-object values"
	default:
		return "sample is not an object or list"
	}
}

func topKeys(m map[string]any, limit int) string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	if len(keys) > limit {
		keys = keys[:limit]
	}
	return fmt.Sprintf("%v", keys)
}
