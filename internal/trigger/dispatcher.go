// Package trigger is the recurring trigger dispatcher: a thin wrapper
// around robfig/cron/v3 that turns schedule_recurring deployments into calls
// to engine/executor.Execute; schedule_once deployments are not scheduled. The runtime core
// itself does not schedule wall-clock triggers — this package is external
// trigger infrastructure, included so the repo is runnable end to end.
package trigger

import (
	"context"

	"github.com/fluxline-dev/fluxline/engine/automation"
	"github.com/fluxline-dev/fluxline/engine/executor"
	"github.com/fluxline-dev/fluxline/engine/storage"
	"github.com/fluxline-dev/fluxline/internal/app"
	"github.com/robfig/cron/v3"
)

// cronExpr maps spec.md §6's fixed recurring-interval vocabulary onto a
// standard 5-field cron expression. time_of_day (default 00:00) applies to
// "daily" and "weekly", day_of_week to "weekly"; the other cadences ignore
// them.
func cronExpr(cfg automation.ScheduleRecurringTriggerConfig) string {
	hour, minute := "0", "0"
	if cfg.TimeOfDay != "" {
		hour, minute = splitTimeOfDay(cfg.TimeOfDay)
	}
	switch cfg.Interval {
	case automation.Interval5Min:
		return "*/5 * * * *"
	case automation.Interval15Min:
		return "*/15 * * * *"
	case automation.Interval30Min:
		return "*/30 * * * *"
	case automation.Interval1Hr:
		return "0 * * * *"
	case automation.Interval6Hr:
		return "0 */6 * * *"
	case automation.IntervalDaily:
		return minute + " " + hour + " * * *"
	case automation.IntervalWeekly:
		return minute + " " + hour + " * * " + dayOfWeekNumber(cfg.DayOfWeek)
	default:
		return "0 * * * *"
	}
}

func splitTimeOfDay(hhmm string) (hour, minute string) {
	if len(hhmm) != 5 || hhmm[2] != ':' {
		return "0", "0"
	}
	return hhmm[:2], hhmm[3:]
}

func dayOfWeekNumber(day string) string {
	days := map[string]string{
		"sunday": "0", "monday": "1", "tuesday": "2", "wednesday": "3",
		"thursday": "4", "friday": "5", "saturday": "6",
	}
	if n, ok := days[day]; ok {
		return n
	}
	return "1"
}

// Dispatcher runs one cron.Cron instance per process, firing
// executor.Execute for every active schedule_recurring deployment it is
// told about. Multiple deployments' entries run concurrently with no
// shared lock across them, matching spec.md §5's "no ordering guarantees
// across executions" clause; engine/executor itself still enforces strict
// sequential execution within a single firing.
type Dispatcher struct {
	app  *app.App
	cron *cron.Cron
}

// NewDispatcher builds a Dispatcher bound to a.
func NewDispatcher(a *app.App) *Dispatcher {
	return &Dispatcher{app: a, cron: cron.New()}
}

// Schedule registers deployment for recurring firing according to its
// schedule_recurring trigger_config. It returns the cron.EntryID so the
// caller can later Remove it (e.g. on deactivation/deletion).
func (d *Dispatcher) Schedule(deployment *automation.Deployment) (cron.EntryID, error) {
	cfg, err := automation.DecodeScheduleRecurring(deployment.Spec.TriggerConfig)
	if err != nil {
		return 0, err
	}
	return d.cron.AddFunc(cronExpr(cfg), func() {
		d.fire(deployment)
	})
}

// Remove unregisters a previously Scheduled entry.
func (d *Dispatcher) Remove(id cron.EntryID) {
	d.cron.Remove(id)
}

// Start begins firing scheduled entries. Stop, called by the caller's
// shutdown path, halts the underlying cron scheduler.
func (d *Dispatcher) Start() { d.cron.Start() }
func (d *Dispatcher) Stop()  { d.cron.Stop() }

func (d *Dispatcher) fire(deployment *automation.Deployment) {
	ctx := context.Background()
	user := d.app.ResolveUser(ctx, deployment.UserID)

	result := executor.Execute(ctx, executor.Dependencies{
		Registry:  d.app.Registry,
		Notifier:  d.app.Notifier,
		Templates: d.app.Templates,
		Condition: d.app.Condition,
		Log:       d.app.Log,
		Metrics:   d.app.Metrics,
	}, executor.Request{
		Actions:        deployment.Spec.Actions,
		Variables:      deployment.Spec.Variables,
		TriggerData:    map[string]any{},
		User:           user,
		AutomationID:   deployment.ID,
		AutomationName: deployment.Spec.Name,
	})

	logEntry := storage.LogEntry{AutomationID: deployment.ID, UserID: deployment.UserID, Result: result}
	if _, err := d.app.Store.LogExecution(ctx, deployment.ID, deployment.UserID, logEntry); err != nil {
		d.app.Log.Warn("failed to persist scheduled execution log", "error", err.Error(), "automation_id", deployment.ID)
	}
}
