package preflight_test

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/fluxline-dev/fluxline/engine/automation"
	"github.com/fluxline-dev/fluxline/engine/preflight"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestRedis(t *testing.T) *redis.Client {
	t.Helper()
	mr, err := miniredis.Run()
	require.NoError(t, err)
	t.Cleanup(mr.Close)
	return redis.NewClient(&redis.Options{Addr: mr.Addr()})
}

func TestCachedRunner_SecondCallWithinTTLSkipsInvocation(t *testing.T) {
	client := newTestRedis(t)
	runner := preflight.NewCachedRunner(client, time.Minute)

	calls := 0
	reg := newFakeRegistry("list_issues")
	reg.execute = func(string, map[string]any) (any, error) {
		calls++
		return map[string]any{"subject": "hello"}, nil
	}
	cfg := automation.PollingTriggerConfig{SourceTool: "list_issues"}
	actions := []automation.Action{
		{Tool: "send", Parameters: map[string]any{"text": "{{trigger_data.subject}}"}},
	}

	first := runner.Run(context.Background(), reg, "user-1", "automation-1", cfg, actions)
	second := runner.Run(context.Background(), reg, "user-1", "automation-1", cfg, actions)

	assert.Equal(t, 1, calls, "second call within TTL must be served from cache")
	assert.Equal(t, first, second)
}

func TestCachedRunner_DifferentAutomationsDoNotShareCache(t *testing.T) {
	client := newTestRedis(t)
	runner := preflight.NewCachedRunner(client, time.Minute)

	calls := 0
	reg := newFakeRegistry("list_issues")
	reg.execute = func(string, map[string]any) (any, error) {
		calls++
		return map[string]any{"subject": "hello"}, nil
	}
	cfg := automation.PollingTriggerConfig{SourceTool: "list_issues"}
	actions := []automation.Action{
		{Tool: "send", Parameters: map[string]any{"text": "{{trigger_data.subject}}"}},
	}

	runner.Run(context.Background(), reg, "user-1", "automation-1", cfg, actions)
	runner.Run(context.Background(), reg, "user-1", "automation-2", cfg, actions)

	assert.Equal(t, 2, calls)
}
