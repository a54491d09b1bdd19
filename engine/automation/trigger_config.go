package automation

import (
	"fmt"

	"github.com/fluxline-dev/fluxline/engine/condition"
	"github.com/go-viper/mapstructure/v2"
)

// RecurringInterval enumerates the fixed set of schedule_recurring cadences
// from spec.md §6.
type RecurringInterval string

const (
	Interval5Min   RecurringInterval = "5min"
	Interval15Min  RecurringInterval = "15min"
	Interval30Min  RecurringInterval = "30min"
	Interval1Hr    RecurringInterval = "1hr"
	Interval6Hr    RecurringInterval = "6hr"
	IntervalDaily  RecurringInterval = "daily"
	IntervalWeekly RecurringInterval = "weekly"
)

// ManualTriggerConfig is the (empty) config for trigger_type == "manual".
type ManualTriggerConfig struct{}

// ScheduleOnceTriggerConfig is trigger_config for trigger_type ==
// "schedule_once": a single future run, expressed in user-local time.
type ScheduleOnceTriggerConfig struct {
	Interval string `mapstructure:"interval"`
	RunAt    string `mapstructure:"run_at"`
}

// ScheduleRecurringTriggerConfig is trigger_config for trigger_type ==
// "schedule_recurring".
type ScheduleRecurringTriggerConfig struct {
	Interval  RecurringInterval `mapstructure:"interval"`
	TimeOfDay string            `mapstructure:"time_of_day"`
	DayOfWeek string            `mapstructure:"day_of_week"`
}

// WebhookTriggerConfig is trigger_config for trigger_type == "webhook".
type WebhookTriggerConfig struct {
	Service   string              `mapstructure:"service"`
	EventType string              `mapstructure:"event_type"`
	Filters   condition.Condition `mapstructure:"filters"`
}

// PollingTriggerConfig is trigger_config for trigger_type == "polling".
type PollingTriggerConfig struct {
	Service                string              `json:"service,omitempty"                    mapstructure:"service"`
	SourceTool             string              `json:"source_tool"                          mapstructure:"source_tool"`
	EventType              string              `json:"event_type,omitempty"                 mapstructure:"event_type"`
	ToolParams             map[string]any      `json:"tool_params,omitempty"                 mapstructure:"tool_params"`
	PollingIntervalMinutes int                 `json:"polling_interval_minutes,omitempty"    mapstructure:"polling_interval_minutes"`
	Filter                 condition.Condition `json:"filter,omitempty"                      mapstructure:"filter"`
}

// decode is the shared mapstructure decode path every Decode* helper below
// uses, configured to accept the condition.Clause/Condition struct tags
// (which use "mapstructure" tags already). ErrorUnused is off: trigger_config
// keys that the target struct does not declare are ignored, not reported.
func decode(input map[string]any, out any) error {
	decoder, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		Result:     out,
		ErrorUnused: false,
		TagName:    "mapstructure",
	})
	if err != nil {
		return fmt.Errorf("building trigger_config decoder: %w", err)
	}
	if err := decoder.Decode(input); err != nil {
		return fmt.Errorf("decoding trigger_config: %w", err)
	}
	return nil
}

// DecodeScheduleOnce decodes spec.TriggerConfig into a typed
// ScheduleOnceTriggerConfig.
func DecodeScheduleOnce(cfg map[string]any) (ScheduleOnceTriggerConfig, error) {
	var out ScheduleOnceTriggerConfig
	err := decode(cfg, &out)
	return out, err
}

// DecodeScheduleRecurring decodes spec.TriggerConfig into a typed
// ScheduleRecurringTriggerConfig.
func DecodeScheduleRecurring(cfg map[string]any) (ScheduleRecurringTriggerConfig, error) {
	var out ScheduleRecurringTriggerConfig
	err := decode(cfg, &out)
	return out, err
}

// DecodeWebhook decodes spec.TriggerConfig into a typed WebhookTriggerConfig.
func DecodeWebhook(cfg map[string]any) (WebhookTriggerConfig, error) {
	var out WebhookTriggerConfig
	err := decode(cfg, &out)
	return out, err
}

// DecodePolling decodes spec.TriggerConfig into a typed PollingTriggerConfig.
func DecodePolling(cfg map[string]any) (PollingTriggerConfig, error) {
	var out PollingTriggerConfig
	err := decode(cfg, &out)
	return out, err
}
