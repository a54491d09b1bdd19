package validator_test

import (
	"testing"

	"github.com/fluxline-dev/fluxline/engine/automation"
	"github.com/fluxline-dev/fluxline/engine/condition"
	"github.com/fluxline-dev/fluxline/engine/validator"
	"github.com/stretchr/testify/assert"
)

func TestValidate_EmptyActions(t *testing.T) {
	t.Run("Should reject a spec with no actions", func(t *testing.T) {
		result := validator.Validate(automation.Spec{}, validator.Options{})
		assert.False(t, result.OK)
		assert.Contains(t, result.Errors, "automation must have at least one action")
	})
}

func TestValidate_BlockSyntaxInParameters(t *testing.T) {
	t.Run("Should reject {{#each}} inside an action parameter", func(t *testing.T) {
		spec := automation.Spec{Actions: []automation.Action{
			{Tool: "send_email", Parameters: map[string]any{"body": "{{#each items}}{{this}}{{/each}}"}},
		}}
		result := validator.Validate(spec, validator.Options{})
		assert.False(t, result.OK)
		assert.Len(t, result.Errors, 1)
	})
}

func TestValidate_BlockSyntaxInCondition(t *testing.T) {
	t.Run("Should reject {{#each}} hidden inside a condition clause value, not just parameters", func(t *testing.T) {
		spec := automation.Spec{Actions: []automation.Action{
			{
				Tool:       "send_email",
				Parameters: map[string]any{"body": "plain text"},
				Condition: condition.Condition{
					Path: "status", Op: condition.OpEQ, Value: "{{#if x}}yes{{/if}}",
				},
			},
		}}
		result := validator.Validate(spec, validator.Options{})
		assert.False(t, result.OK)
		assert.Contains(t, result.Errors[0], "block-style template syntax")
	})
}

func TestValidate_EventDataPrefixInOutputAs(t *testing.T) {
	t.Run("Should reject {{event_data.x}} hidden in output_as, not just parameters", func(t *testing.T) {
		spec := automation.Spec{Actions: []automation.Action{
			{
				Tool:       "fetch_ticket",
				Parameters: map[string]any{"id": "1"},
				OutputAs:   "{{event_data.ticket_id}}",
			},
		}}
		result := validator.Validate(spec, validator.Options{})
		assert.False(t, result.OK)
		assert.Contains(t, result.Errors[0], "trigger_data.ticket_id")
	})
}

func TestValidate_EventDataPrefixInConditionValue(t *testing.T) {
	t.Run("Should reject {{event_data.x}} hidden in a composed condition's clause value", func(t *testing.T) {
		spec := automation.Spec{Actions: []automation.Action{
			{
				Tool:       "send_email",
				Parameters: map[string]any{"body": "plain"},
				Condition: condition.Condition{
					Operator: condition.OpAnd,
					Clauses: []condition.Clause{
						{Path: "status", Op: condition.OpEQ, Value: "{{event_data.status}}"},
					},
				},
			},
		}}
		result := validator.Validate(spec, validator.Options{})
		assert.False(t, result.OK)
		assert.Contains(t, result.Errors[0], "trigger_data.status")
	})
}

func TestValidate_MissingToolField(t *testing.T) {
	t.Run("Should reject an action with no tool name", func(t *testing.T) {
		spec := automation.Spec{Actions: []automation.Action{{Parameters: map[string]any{"a": "b"}}}}
		result := validator.Validate(spec, validator.Options{})
		assert.False(t, result.OK)
		assert.Contains(t, result.Errors[0], `missing required "tool" field`)
	})
}

func TestValidate_ConditionRequiresValueExceptForExistence(t *testing.T) {
	t.Run("Should reject a comparison clause with no value", func(t *testing.T) {
		spec := automation.Spec{Actions: []automation.Action{
			{Tool: "x", Condition: condition.Condition{Path: "a", Op: condition.OpGT}},
		}}
		result := validator.Validate(spec, validator.Options{})
		assert.False(t, result.OK)
	})

	t.Run("Should accept an exists clause with no value", func(t *testing.T) {
		spec := automation.Spec{Actions: []automation.Action{
			{Tool: "x", Condition: condition.Condition{Path: "a", Op: condition.OpExists}},
		}}
		result := validator.Validate(spec, validator.Options{})
		assert.True(t, result.OK)
	})
}

func TestValidate_WebhookArrayIndexingRejected(t *testing.T) {
	t.Run("Should reject array-indexed trigger_data access on a webhook automation", func(t *testing.T) {
		spec := automation.Spec{
			TriggerType: automation.TriggerWebhook,
			Actions: []automation.Action{
				{Tool: "x", Parameters: map[string]any{"a": "{{trigger_data.0.name}}"}},
			},
		}
		result := validator.Validate(spec, validator.Options{})
		assert.False(t, result.OK)
	})
}

func TestValidate_ValidSpecPasses(t *testing.T) {
	t.Run("Should accept a well-formed spec with no validator-side errors", func(t *testing.T) {
		spec := automation.Spec{
			TriggerType: automation.TriggerManual,
			Actions: []automation.Action{
				{Tool: "send_email", Parameters: map[string]any{"body": "hello {{user.name}}"}},
			},
		}
		result := validator.Validate(spec, validator.Options{})
		assert.True(t, result.OK)
		assert.Empty(t, result.Errors)
	})
}
