// Package registry defines the adapter interfaces spec.md §6 treats as
// external collaborators — tool registry, user provider, and notification
// delivery — plus minimal in-process reference implementations sufficient
// for tests and local runs. Real deployments are expected to supply their
// own registry/user-provider/notifier; only the reference Store adapter
// (engine/storage) is meant to be production-grade, per §1's scope note.
package registry

import (
	"context"
	"fmt"

	"github.com/fluxline-dev/fluxline/engine/core"
)

// ErrCodeToolNotFound is the core.Error Code every adapter uses when a tool
// name can't be resolved, so callers (the executor, the preflight, the
// validator) can match on Code instead of parsing an error string.
const ErrCodeToolNotFound = "TOOL_NOT_FOUND"

// ErrToolNotFound builds the structured error a Registry returns when name
// isn't known to it.
func ErrToolNotFound(name string) *core.Error {
	return core.NewError(fmt.Errorf("tool %q not found", name), ErrCodeToolNotFound, map[string]any{"tool": name})
}

// Handler is a tool's invocation target. It accepts a single JSON-encoded
// parameter string (per spec.md §9's polymorphic handler note: "a callable
// accepting a single JSON string") and returns either a string or a
// document, synchronously. Handlers that need to be async internally are
// free to block inside Handler; the executor already runs each invocation
// under its own timeout context.
type Handler func(ctx context.Context, paramsJSON string) (any, error)

// Tool is a named, registry-resolvable function exposing a JSON-schema-like
// parameter document and a handler.
type Tool struct {
	Name        string
	Description string
	Parameters  map[string]any
	Returns     string
	Handler     Handler
	Service     string
	Metadata    map[string]any
}

// Registry resolves tool names to Tools and can enumerate them, optionally
// scoped to a service.
type Registry interface {
	GetToolByName(ctx context.Context, name string) (*Tool, bool)
	ListTools(ctx context.Context, service string) ([]*Tool, error)
	// ExecuteTool is the convenience path §6 mentions, used by the preflight
	// to invoke a polling source_tool without the caller needing to go
	// through GetToolByName + Handler itself.
	ExecuteTool(ctx context.Context, name string, params map[string]any, userID string) (any, error)
}

// UserInfo mirrors automation.UserInfo to avoid an import cycle between
// engine/registry and engine/automation (automation depends on condition,
// not registry; registry is a pure adapter boundary consumers adapt into
// automation.UserInfo at the call site).
type UserInfo struct {
	ID       string
	Email    string
	Timezone string
	Phone    string
	Name     string
}

// UserProvider resolves a user_id to profile info.
type UserProvider interface {
	GetUserInfo(ctx context.Context, userID string) (*UserInfo, bool)
}

// Notifier delivers out-of-band notifications. Failures here never escalate
// into execution failures (spec.md §7's fail-open rule for adapter
// telemetry/notification failures); callers are expected to log and
// swallow notifier errors rather than propagate them.
type Notifier interface {
	NotifyUsageLimitExceeded(ctx context.Context, userID, automationID, automationName string) error
	NotifyAutomationFailed(ctx context.Context, userID, automationID, automationName, errorSummary string) error
	NotifyCustom(ctx context.Context, userID, title, body string) error
}
