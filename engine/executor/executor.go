// Package executor drives one automation's action list: gating each action
// on its condition, resolving templated parameters, invoking the tool
// through the registry under a per-action timeout, classifying the
// outcome (success, soft failure, or usage-limit halt), normalizing and
// binding successful output, and finalizing a status. Per spec.md §7, it
// never raises out of Execute: every outcome is encoded in the returned
// Result.
package executor

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/fluxline-dev/fluxline/engine/automation"
	"github.com/fluxline-dev/fluxline/engine/condition"
	"github.com/fluxline-dev/fluxline/engine/jsonextract"
	"github.com/fluxline-dev/fluxline/engine/normalizer"
	"github.com/fluxline-dev/fluxline/engine/registry"
	"github.com/fluxline-dev/fluxline/engine/tplengine"
	"github.com/fluxline-dev/fluxline/pkg/logger"
	"github.com/fluxline-dev/fluxline/pkg/telemetry"
)

// DefaultTimeoutPerAction is the per-action invocation timeout spec.md §4.6
// defaults to when a Request leaves TimeoutPerAction unset.
const DefaultTimeoutPerAction = 30 * time.Second

// usageLimitErrorCode is the structured error code the executor looks for
// in a parsed tool result to detect the quota path (spec.md §4.6 step 6).
const usageLimitErrorCode = "USAGE_LIMIT_EXCEEDED"

// errorStringPrefix marks a string tool result as a failure carrying the
// rest of the string as the error message (spec.md §4.6 step 6).
const errorStringPrefix = "Error:"

// Dependencies are the adapters and evaluators Execute needs; none of them
// are owned by the executor (spec.md §1 treats the registry and notifier as
// external collaborators).
type Dependencies struct {
	Registry  registry.Registry
	Notifier  registry.Notifier
	Templates *tplengine.Engine
	Condition *condition.Evaluator
	Log       logger.Logger
	Metrics   *telemetry.Metrics
}

// Request bundles one execution's inputs, mirroring spec.md §4.6's entry
// contract.
type Request struct {
	Actions          []automation.Action
	Variables        map[string]any
	TriggerData      map[string]any
	User             automation.UserInfo
	AutomationID     string
	AutomationName   string
	RequestID        string
	TimeoutPerAction time.Duration
}

func (r Request) timeout() time.Duration {
	if r.TimeoutPerAction > 0 {
		return r.TimeoutPerAction
	}
	return DefaultTimeoutPerAction
}

// Execute drives req.Actions to completion (or an early usage-limit halt)
// and returns a fully formed Result. It never panics or returns an error;
// every failure mode is encoded in the Result per spec.md §7.
func Execute(ctx context.Context, deps Dependencies, req Request) automation.Result {
	log := deps.Log
	if log == nil {
		log = logger.NewLogger(nil)
	}
	start := time.Now()

	ctxMap := automation.NewContext(req.TriggerData, req.User, req.Variables)
	results := make([]automation.ActionResult, 0, len(req.Actions))

	for i, action := range req.Actions {
		actionID := action.ResolvedID(i)

		if !evaluateCondition(deps, action, ctxMap) {
			results = append(results, automation.ActionResult{
				ActionID:        actionID,
				Tool:            action.Tool,
				Success:         true,
				Skipped:         true,
				ConditionResult: boolPtr(false),
			})
			continue
		}

		actionStart := time.Now()
		result, quotaHalt := runAction(ctx, deps, req, action, actionID, ctxMap)
		result.DurationMS = time.Since(actionStart).Milliseconds()
		result.ConditionResult = conditionResultPtr(action.Condition)
		results = append(results, result)

		recordMetrics(deps.Metrics, result)

		if quotaHalt {
			notifyUsageLimitExceeded(ctx, deps, req, actionID)
			return finalizeQuotaHalt(results, start, result)
		}
	}

	return finalize(results, start)
}

func evaluateCondition(deps Dependencies, action automation.Action, ctxMap map[string]any) bool {
	if deps.Condition == nil {
		return true
	}
	return deps.Condition.Evaluate(action.Condition, ctxMap)
}

func conditionResultPtr(cond condition.Condition) *bool {
	if cond.IsEmpty() {
		return nil
	}
	return boolPtr(true)
}

func boolPtr(b bool) *bool { return &b }

// runAction executes one gated-through action and reports whether it hit
// the usage-limit quota path, which the caller loop uses to halt early.
func runAction(
	ctx context.Context, deps Dependencies, req Request, action automation.Action, actionID string, ctxMap map[string]any,
) (automation.ActionResult, bool) {
	resolved := resolveParameters(deps, action, ctxMap)
	injected := injectReservedFields(resolved, req)

	raw, invokeErr := invokeTool(ctx, deps, action, req, injected)
	if invokeErr != nil {
		return automation.ActionResult{ActionID: actionID, Tool: action.Tool, Success: false, Error: invokeErr.Error()}, false
	}

	result := classifyOutcome(raw)
	if result.isError {
		return automation.ActionResult{ActionID: actionID, Tool: action.Tool, Success: false, Error: result.errorMessage}, false
	}
	if result.isQuotaExceeded {
		return automation.ActionResult{
			ActionID: actionID,
			Tool:     action.Tool,
			Success:  false,
			Error:    "Usage limit exceeded: " + result.errorMessage,
		}, true
	}

	out := automation.ActionResult{ActionID: actionID, Tool: action.Tool, Success: true}
	if action.OutputAs != "" {
		output := normalizeOutput(deps, result.value)
		automation.Bind(ctxMap, action.OutputAs, output)
		out.Output = output
	}
	return out, false
}

func resolveParameters(deps Dependencies, action automation.Action, ctxMap map[string]any) map[string]any {
	if deps.Templates == nil {
		return action.Parameters
	}
	resolved := deps.Templates.ResolveParameters(action.Parameters, ctxMap)
	m, _ := resolved.(map[string]any)
	return m
}

// injectReservedFields adds user_id, request_id (if set), and
// is_automation=true to every tool call, per spec.md §4.6 step 4.
func injectReservedFields(params map[string]any, req Request) map[string]any {
	out := make(map[string]any, len(params)+3)
	for k, v := range params {
		out[k] = v
	}
	out["user_id"] = req.User.ID
	if req.RequestID != "" {
		out["request_id"] = req.RequestID
	}
	out["is_automation"] = true
	return out
}

func invokeTool(
	ctx context.Context, deps Dependencies, action automation.Action, req Request, params map[string]any,
) (any, error) {
	actionCtx, cancel := context.WithTimeout(ctx, req.timeout())
	defer cancel()

	if deps.Registry == nil {
		return nil, fmt.Errorf("no registry configured, cannot invoke tool %q", action.Tool)
	}
	tool, ok := deps.Registry.GetToolByName(actionCtx, action.Tool)
	if !ok {
		return nil, registry.ErrToolNotFound(action.Tool)
	}
	encoded, err := json.Marshal(params)
	if err != nil {
		return nil, fmt.Errorf("encoding parameters for tool %q: %w", action.Tool, err)
	}
	return tool.Handler(actionCtx, string(encoded))
}

type outcome struct {
	value           any
	isError         bool
	isQuotaExceeded bool
	errorMessage    string
}

// classifyOutcome implements spec.md §4.6 step 6: string "Error:" prefix is
// a failure; a string result is parsed as JSON when possible; a parsed
// mapping with error == USAGE_LIMIT_EXCEEDED is the quota path; anything
// else is success.
func classifyOutcome(raw any) outcome {
	if s, ok := raw.(string); ok {
		if strings.HasPrefix(s, errorStringPrefix) {
			return outcome{isError: true, errorMessage: s}
		}
		var parsed any
		if err := json.Unmarshal([]byte(s), &parsed); err == nil {
			raw = parsed
		} else {
			return outcome{value: s}
		}
	}
	if m, ok := raw.(map[string]any); ok {
		if errCode, _ := m["error"].(string); errCode == usageLimitErrorCode {
			msg, _ := m["message"].(string)
			if msg == "" {
				msg = usageLimitErrorCode
			}
			return outcome{isQuotaExceeded: true, errorMessage: msg}
		}
	}
	return outcome{value: raw}
}

// normalizeOutput applies the JSON extractor (for string outputs) and then
// the output normalizer (for mapping outputs), per spec.md §4.6 step 7.
func normalizeOutput(deps Dependencies, value any) any {
	extracted := value
	if s, ok := value.(string); ok {
		extracted = jsonextract.Extract(s)
		if extracted != value && deps.Log != nil {
			deps.Log.Info("json extracted from tool output")
		}
	}
	if m, ok := extracted.(map[string]any); ok {
		return normalizer.Normalize(m)
	}
	return extracted
}

func notifyUsageLimitExceeded(ctx context.Context, deps Dependencies, req Request, actionID string) {
	if deps.Notifier == nil || req.AutomationID == "" {
		return
	}
	if err := deps.Notifier.NotifyUsageLimitExceeded(ctx, req.User.ID, req.AutomationID, req.AutomationName); err != nil {
		if deps.Log != nil {
			deps.Log.Warn("usage-limit notification failed", "error", err.Error(), "action_id", actionID)
		}
	}
}

func recordMetrics(metrics *telemetry.Metrics, result automation.ActionResult) {
	if metrics == nil {
		return
	}
	status := "success"
	switch {
	case result.Skipped:
		status = "skipped"
	case !result.Success:
		status = "failure"
	}
	metrics.RecordAction(result.Tool, status, float64(result.DurationMS)/1000)
}

func finalize(results []automation.ActionResult, start time.Time) automation.Result {
	failed, executed := countFailed(results), countExecuted(results)
	status, success := classifyStatus(failed, executed)
	res := automation.Result{
		Success:         success,
		Status:          status,
		ActionsExecuted: executed,
		ActionsFailed:   failed,
		ActionResults:   results,
		DurationMS:      time.Since(start).Milliseconds(),
	}
	if failed > 0 {
		res.ErrorSummary = summarizeFailures(results)
	}
	return res
}

func finalizeQuotaHalt(results []automation.ActionResult, start time.Time, last automation.ActionResult) automation.Result {
	return automation.Result{
		Success:         false,
		Status:          automation.StatusUsageLimitExceeded,
		ActionsExecuted: countExecuted(results),
		ActionsFailed:   countFailed(results),
		ActionResults:   results,
		DurationMS:      time.Since(start).Milliseconds(),
		ErrorSummary:    "Usage limit exceeded for " + last.Tool,
	}
}

func countExecuted(results []automation.ActionResult) int {
	n := 0
	for _, r := range results {
		if !r.Skipped {
			n++
		}
	}
	return n
}

func countFailed(results []automation.ActionResult) int {
	n := 0
	for _, r := range results {
		if !r.Skipped && !r.Success {
			n++
		}
	}
	return n
}

// classifyStatus implements spec.md §4.6's final classification table.
func classifyStatus(failed, executed int) (automation.Status, bool) {
	switch {
	case executed == 0:
		return automation.StatusCompleted, true
	case failed == 0:
		return automation.StatusCompleted, true
	case failed == executed:
		return automation.StatusFailed, false
	default:
		return automation.StatusPartialFailure, true
	}
}

func summarizeFailures(results []automation.ActionResult) string {
	var failing []string
	for _, r := range results {
		if !r.Skipped && !r.Success {
			failing = append(failing, r.ActionID)
		}
	}
	return "action(s) failed: " + strings.Join(failing, ", ")
}
