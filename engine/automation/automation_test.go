package automation_test

import (
	"testing"

	"github.com/fluxline-dev/fluxline/engine/automation"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewContext_TriggerDataSpreadsButReservedKeysWin(t *testing.T) {
	triggerData := map[string]any{
		"subject": "new lead",
		"user":    "should be ignored",
	}
	user := automation.UserInfo{ID: "u1", Email: "a@b.com"}

	ctx := automation.NewContext(triggerData, user, nil)

	assert.Equal(t, "new lead", ctx["subject"])
	assert.Equal(t, triggerData, ctx["trigger_data"])
	userMap, ok := ctx["user"].(map[string]any)
	require.True(t, ok)
	assert.Equal(t, "u1", userMap["id"])
	assert.Equal(t, "UTC", userMap["timezone"], "timezone defaults to UTC when unset")
}

func TestNewContext_VariablesOverrideReservedKeys(t *testing.T) {
	triggerData := map[string]any{"subject": "new lead"}
	user := automation.UserInfo{ID: "u1"}
	variables := map[string]any{"subject": "overridden", "user": "flat override"}

	ctx := automation.NewContext(triggerData, user, variables)

	assert.Equal(t, "overridden", ctx["subject"])
	assert.Equal(t, "flat override", ctx["user"])
}

func TestBind_PublishesOutputAsAndLaterBindingsWin(t *testing.T) {
	ctx := map[string]any{}
	automation.Bind(ctx, "result_a", map[string]any{"ok": true})
	automation.Bind(ctx, "result_a", map[string]any{"ok": false})
	automation.Bind(ctx, "", "ignored")

	assert.Equal(t, map[string]any{"ok": false}, ctx["result_a"])
	assert.NotContains(t, ctx, "")
}

func TestAction_ResolvedID(t *testing.T) {
	named := automation.Action{ID: "step_one"}
	unnamed := automation.Action{}

	assert.Equal(t, "step_one", named.ResolvedID(2))
	assert.Equal(t, "action_2", unnamed.ResolvedID(2))
}

func TestUserInfo_ResolvedTimezone(t *testing.T) {
	assert.Equal(t, "UTC", automation.UserInfo{}.ResolvedTimezone())
	assert.Equal(t, "America/New_York", automation.UserInfo{Timezone: "America/New_York"}.ResolvedTimezone())
}

func TestDecodeScheduleRecurring(t *testing.T) {
	cfg, err := automation.DecodeScheduleRecurring(map[string]any{
		"interval":    "daily",
		"time_of_day": "09:00",
	})
	require.NoError(t, err)
	assert.Equal(t, automation.IntervalDaily, cfg.Interval)
	assert.Equal(t, "09:00", cfg.TimeOfDay)
}

func TestDecodePolling(t *testing.T) {
	cfg, err := automation.DecodePolling(map[string]any{
		"source_tool":              "list_issues",
		"polling_interval_minutes": 15,
		"tool_params":              map[string]any{"status": "open"},
	})
	require.NoError(t, err)
	assert.Equal(t, "list_issues", cfg.SourceTool)
	assert.Equal(t, 15, cfg.PollingIntervalMinutes)
	assert.Equal(t, "open", cfg.ToolParams["status"])
}

func TestDecodeWebhook(t *testing.T) {
	cfg, err := automation.DecodeWebhook(map[string]any{
		"service":    "github",
		"event_type": "issue.opened",
	})
	require.NoError(t, err)
	assert.Equal(t, "github", cfg.Service)
	assert.Equal(t, "issue.opened", cfg.EventType)
}
