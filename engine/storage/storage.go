// Package storage implements the Store adapter from spec.md §6:
// persistence of automations and their execution logs. This is explicitly
// an external collaborator per §1, not core runtime logic — the runtime
// never imports this package; internal/app, internal/server and
// internal/trigger do.
package storage

import (
	"context"

	"github.com/fluxline-dev/fluxline/engine/automation"
)

// LogEntry is one execution's persisted record, written by log_execution.
type LogEntry struct {
	AutomationID string
	UserID       string
	Result       automation.Result
}

// ServiceCapabilities describes what a named service supports, used by
// assisted authoring to decide which trigger types are offered.
type ServiceCapabilities struct {
	SupportsWebhooks      bool
	SupportsPolling       bool
	Notes                 string
	WebhookEvents         []string
	WebhookPayloadSchemas map[string]any
}

// Store is the persistence adapter interface from spec.md §6.
type Store interface {
	GetAutomation(ctx context.Context, id, userID string) (*automation.Deployment, bool, error)
	CreateAutomation(ctx context.Context, userID string, spec automation.Spec) (string, error)
	UpdateAutomation(ctx context.Context, id, userID string, updates map[string]any) (bool, error)
	DeleteAutomation(ctx context.Context, id, userID string) (bool, error)
	ListAutomations(ctx context.Context, userID string, status automation.DeploymentStatus) ([]*automation.Deployment, error)
	LogExecution(ctx context.Context, automationID, userID string, entry LogEntry) (string, error)
	GetServiceCapabilities(ctx context.Context, serviceName string) (*ServiceCapabilities, bool, error)
}
