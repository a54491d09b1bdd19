// Package app wires the adapters (engine/registry, engine/storage) and
// ambient stack (pkg/logger, pkg/config, pkg/telemetry) into a single
// dependency bundle that internal/server, internal/cli and internal/trigger
// hand to engine/executor, engine/validator and engine/preflight.
package app

import (
	"context"

	"github.com/fluxline-dev/fluxline/engine/automation"
	"github.com/fluxline-dev/fluxline/engine/condition"
	"github.com/fluxline-dev/fluxline/engine/registry"
	"github.com/fluxline-dev/fluxline/engine/storage"
	"github.com/fluxline-dev/fluxline/engine/tplengine"
	"github.com/fluxline-dev/fluxline/pkg/config"
	"github.com/fluxline-dev/fluxline/pkg/logger"
	"github.com/fluxline-dev/fluxline/pkg/telemetry"
	"github.com/prometheus/client_golang/prometheus"
)

// App bundles every collaborator the HTTP server and CLI need to validate,
// preflight, and execute automations. It owns no process-level state beyond
// the in-memory reference adapters used when no production adapter is
// configured.
type App struct {
	Config    *config.Config
	Log       logger.Logger
	Metrics   *telemetry.Metrics
	Registry  registry.Registry
	Store     storage.Store
	Users     registry.UserProvider
	Notifier  registry.Notifier
	Templates *tplengine.Engine
	Condition *condition.Evaluator
}

// New builds an App from cfg. Registry and Store default to the in-process
// reference adapters (engine/registry.MemoryRegistry, engine/storage.MemoryStore)
// suitable for local runs and the CLI's one-shot commands; swap them for
// engine/registry.HTTPRegistry / engine/storage.PostgresStore in a real
// deployment by constructing an App literal directly instead of calling New.
func New(cfg *config.Config) *App {
	if cfg == nil {
		cfg = config.Default()
	}
	log := logger.NewLogger(&logger.Config{Level: logger.LogLevel(cfg.Logger.Level)})
	templates := tplengine.NewEngine().WithLogger(log)
	return &App{
		Config:    cfg,
		Log:       log,
		Metrics:   telemetry.NewMetrics(prometheus.NewRegistry()),
		Registry:  registry.NewMemoryRegistry(),
		Store:     storage.NewMemoryStore(),
		Users:     registry.NewStaticUserProvider(),
		Notifier:  registry.NewLogNotifier(log),
		Templates: templates,
		Condition: condition.NewEvaluator(templates, log),
	}
}

// ResolveUser looks up userID through a.Users and returns the
// automation.UserInfo the executor needs, falling back to an identity-only
// record (timezone defaults to UTC via UserInfo.ResolvedTimezone) when the
// user provider has nothing on file.
func (a *App) ResolveUser(ctx context.Context, userID string) automation.UserInfo {
	u, ok := a.Users.GetUserInfo(ctx, userID)
	if !ok || u == nil {
		return automation.UserInfo{ID: userID}
	}
	return automation.UserInfo{ID: u.ID, Email: u.Email, Timezone: u.Timezone, Phone: u.Phone, Name: u.Name}
}
