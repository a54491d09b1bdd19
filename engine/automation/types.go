// Package automation holds the declarative spec types from spec.md §3: the
// Spec, its Actions, UserInfo, the five typed trigger configs, and
// the execution-result records the executor produces. No behavior lives
// here beyond small constructors and the context-composition helper;
// engine/executor, engine/validator, and engine/preflight operate on these
// types.
package automation

import (
	"strconv"
	"time"

	"github.com/fluxline-dev/fluxline/engine/condition"
)

// TriggerType names the five trigger kinds a spec can bind to.
type TriggerType string

const (
	TriggerManual            TriggerType = "manual"
	TriggerWebhook            TriggerType = "webhook"
	TriggerPolling            TriggerType = "polling"
	TriggerScheduleOnce       TriggerType = "schedule_once"
	TriggerScheduleRecurring  TriggerType = "schedule_recurring"
)

// Action is a single tool invocation step: a tool name, template-bearing
// parameters, an optional gating condition, and an optional output binding.
type Action struct {
	ID        string             `json:"id,omitempty" mapstructure:"id"`
	Tool      string             `json:"tool" mapstructure:"tool" validate:"required"`
	Parameters map[string]any    `json:"parameters,omitempty" mapstructure:"parameters"`
	Condition condition.Condition `json:"condition,omitempty" mapstructure:"condition"`
	OutputAs  string             `json:"output_as,omitempty" mapstructure:"output_as"`
}

// ResolvedID returns a.ID, synthesizing "action_<index>" when a.ID is empty,
// per spec.md §3's Action.id rule.
func (a Action) ResolvedID(index int) string {
	if a.ID != "" {
		return a.ID
	}
	return "action_" + strconv.Itoa(index)
}

// UserInfo is the subset of a user's profile the runtime needs: identity,
// contact info, and the IANA timezone used by the template engine's
// day-granular built-ins.
type UserInfo struct {
	ID       string `json:"id" mapstructure:"id"`
	Email    string `json:"email,omitempty" mapstructure:"email"`
	Timezone string `json:"timezone,omitempty" mapstructure:"timezone"`
	Phone    string `json:"phone,omitempty" mapstructure:"phone"`
	Name     string `json:"name,omitempty" mapstructure:"name"`
}

// ResolvedTimezone returns u.Timezone, defaulting to "UTC" per spec.md §3.
func (u UserInfo) ResolvedTimezone() string {
	if u.Timezone == "" {
		return "UTC"
	}
	return u.Timezone
}

// Spec is the deployed automation definition from spec.md §3.
type Spec struct {
	Name        string         `json:"name"                     mapstructure:"name"          validate:"required"`
	Description string         `json:"description,omitempty"    mapstructure:"description"`
	TriggerType TriggerType    `json:"trigger_type"              mapstructure:"trigger_type" validate:"required,oneof=manual webhook polling schedule_once schedule_recurring"`
	TriggerConfig map[string]any `json:"trigger_config,omitempty" mapstructure:"trigger_config"`
	Variables   map[string]any `json:"variables,omitempty"      mapstructure:"variables"`
	Actions     []Action       `json:"actions"                  mapstructure:"actions"       validate:"required,min=1,dive"`
}

// ActionResult records the outcome of a single action within one execution.
type ActionResult struct {
	ActionID        string `json:"action_id"`
	Tool            string `json:"tool"`
	Success         bool   `json:"success"`
	DurationMS      int64  `json:"duration_ms"`
	Output          any    `json:"output,omitempty"`
	Error           string `json:"error,omitempty"`
	Skipped         bool   `json:"skipped"`
	ConditionResult *bool  `json:"condition_result,omitempty"`
}

// Status is the final classification of one execution, per spec.md §4.6.
type Status string

const (
	StatusCompleted         Status = "completed"
	StatusPartialFailure    Status = "partial_failure"
	StatusFailed            Status = "failed"
	StatusUsageLimitExceeded Status = "usage_limit_exceeded"
)

// Result is the fully formed outcome of one execution; the executor never
// returns anything else, even on internal errors (spec.md §7's propagation
// guarantee: execute never raises out of the public entry point).
type Result struct {
	Success        bool           `json:"success"`
	Status         Status         `json:"status"`
	ActionsExecuted int           `json:"actions_executed"`
	ActionsFailed  int            `json:"actions_failed"`
	ActionResults  []ActionResult `json:"action_results"`
	DurationMS     int64          `json:"duration_ms"`
	ErrorSummary   string         `json:"error_summary,omitempty"`
}

// DeploymentStatus is the lifecycle state of a persisted automation.
type DeploymentStatus string

const (
	DeploymentActive        DeploymentStatus = "active"
	DeploymentPendingReview DeploymentStatus = "pending_review"
)

// Deployment carries the persisted fields spec.md §6 adds on top of Spec:
// polling bookkeeping and the activation lifecycle.
type Deployment struct {
	ID                     string           `json:"id"                       mapstructure:"id"`
	UserID                 string           `json:"user_id"                  mapstructure:"user_id"`
	Spec                   Spec             `json:"spec"                     mapstructure:"spec"`
	Status                 DeploymentStatus `json:"status"                   mapstructure:"status"`
	ConfirmedAt            *time.Time       `json:"confirmed_at,omitempty"   mapstructure:"confirmed_at"`
	NextPollAt             *time.Time       `json:"next_poll_at,omitempty"   mapstructure:"next_poll_at"`
	PollingIntervalMinutes int              `json:"polling_interval_minutes,omitempty" mapstructure:"polling_interval_minutes"`
	LastPollCursor         string           `json:"last_poll_cursor,omitempty" mapstructure:"last_poll_cursor"`
}
