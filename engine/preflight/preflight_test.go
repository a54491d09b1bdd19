package preflight_test

import (
	"context"
	"testing"

	"github.com/fluxline-dev/fluxline/engine/automation"
	"github.com/fluxline-dev/fluxline/engine/condition"
	"github.com/fluxline-dev/fluxline/engine/preflight"
	"github.com/fluxline-dev/fluxline/engine/registry"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeRegistry struct {
	tools   map[string]*registry.Tool
	execute func(name string, params map[string]any) (any, error)
}

func (f *fakeRegistry) GetToolByName(_ context.Context, name string) (*registry.Tool, bool) {
	t, ok := f.tools[name]
	return t, ok
}

func (f *fakeRegistry) ListTools(context.Context, string) ([]*registry.Tool, error) { return nil, nil }

func (f *fakeRegistry) ExecuteTool(_ context.Context, name string, params map[string]any, _ string) (any, error) {
	return f.execute(name, params)
}

func newFakeRegistry(toolNames ...string) *fakeRegistry {
	tools := make(map[string]*registry.Tool, len(toolNames))
	for _, n := range toolNames {
		tools[n] = &registry.Tool{Name: n}
	}
	return &fakeRegistry{tools: tools}
}

func TestRun_MissingSourceTool(t *testing.T) {
	reg := newFakeRegistry()
	cfg := automation.PollingTriggerConfig{SourceTool: "list_issues"}
	result := preflight.Run(context.Background(), reg, "user-1", cfg, nil)
	require.False(t, result.OK)
	assert.Contains(t, result.Errors[0], `"list_issues" not found`)
}

func TestRun_NoTriggerDataPathsSkipsInvocation(t *testing.T) {
	called := false
	reg := newFakeRegistry("list_issues")
	reg.execute = func(string, map[string]any) (any, error) { called = true; return nil, nil }
	cfg := automation.PollingTriggerConfig{SourceTool: "list_issues"}
	actions := []automation.Action{{Tool: "send", Parameters: map[string]any{"text": "static"}}}

	result := preflight.Run(context.Background(), reg, "user-1", cfg, actions)

	assert.True(t, result.OK)
	assert.False(t, called, "source_tool must not be invoked when no trigger_data paths are referenced")
}

func TestRun_PathResolvesAgainstSample(t *testing.T) {
	reg := newFakeRegistry("list_issues")
	reg.execute = func(string, map[string]any) (any, error) {
		return map[string]any{"subject": "hello", "status": "open"}, nil
	}
	cfg := automation.PollingTriggerConfig{SourceTool: "list_issues"}
	actions := []automation.Action{
		{Tool: "send", Parameters: map[string]any{"text": "{{trigger_data.subject}}"}},
	}

	result := preflight.Run(context.Background(), reg, "user-1", cfg, actions)

	assert.True(t, result.OK)
	assert.Empty(t, result.Errors)
}

func TestRun_UnresolvedPathBlocksWithHint(t *testing.T) {
	reg := newFakeRegistry("list_issues")
	reg.execute = func(string, map[string]any) (any, error) {
		return map[string]any{"subject": "hello"}, nil
	}
	cfg := automation.PollingTriggerConfig{SourceTool: "list_issues"}
	actions := []automation.Action{
		{Tool: "send", Parameters: map[string]any{"text": "{{trigger_data.assignee.email}}"}},
	}

	result := preflight.Run(context.Background(), reg, "user-1", cfg, actions)

	require.False(t, result.OK)
	require.Len(t, result.Errors, 1)
	assert.Contains(t, result.Errors[0], "assignee.email")
	assert.Contains(t, result.Errors[0], "sample top-level keys")
}

func TestRun_NonJSONStringSampleIsSoftWarning(t *testing.T) {
	reg := newFakeRegistry("list_issues")
	reg.execute = func(string, map[string]any) (any, error) {
		return "not json at all", nil
	}
	cfg := automation.PollingTriggerConfig{SourceTool: "list_issues"}
	actions := []automation.Action{
		{Tool: "send", Parameters: map[string]any{"text": "{{trigger_data.subject}}"}},
	}

	result := preflight.Run(context.Background(), reg, "user-1", cfg, actions)

	assert.True(t, result.OK, "a soft warning never blocks deployment")
	assert.NotEmpty(t, result.Warning)
}

func TestRun_ConditionPathIsCollected(t *testing.T) {
	reg := newFakeRegistry("list_issues")
	reg.execute = func(string, map[string]any) (any, error) {
		return map[string]any{"priority": "high"}, nil
	}
	cfg := automation.PollingTriggerConfig{SourceTool: "list_issues"}
	actions := []automation.Action{
		{
			Tool:      "escalate",
			Condition: condition.Condition{Path: "priority", Op: condition.OpEQ, Value: "high"},
		},
	}

	result := preflight.Run(context.Background(), reg, "user-1", cfg, actions)

	assert.True(t, result.OK)
}

func TestCollectTriggerDataPaths_DeduplicatesAndSorts(t *testing.T) {
	actions := []automation.Action{
		{Parameters: map[string]any{"a": "{{trigger_data.status}}"}},
		{Parameters: map[string]any{"b": "{{trigger_data.status}}", "c": "{{trigger_data.author.name}}"}},
	}
	filter := condition.Condition{Path: "trigger_data.priority", Op: condition.OpEQ, Value: "high"}

	paths := preflight.CollectTriggerDataPaths(actions, filter)

	assert.Equal(t, []string{"author.name", "priority", "status"}, paths)
}
