package core_test

import (
	"errors"
	"testing"

	"github.com/fluxline-dev/fluxline/engine/core"
	"github.com/fluxline-dev/fluxline/engine/registry"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestError_ToolNotFound(t *testing.T) {
	t.Run("Should carry the registry's not-found code and the tool name in Details", func(t *testing.T) {
		err := registry.ErrToolNotFound("send_slack_message")

		assert.Equal(t, registry.ErrCodeToolNotFound, err.Code)
		assert.Equal(t, "send_slack_message", err.Details["tool"])
		assert.Contains(t, err.Error(), "send_slack_message")
	})

	t.Run("Should unwrap to the underlying fmt.Errorf so errors.Is/As still work", func(t *testing.T) {
		err := registry.ErrToolNotFound("unknown_tool")

		require.Error(t, errors.Unwrap(err))
		assert.Contains(t, errors.Unwrap(err).Error(), "unknown_tool")
	})

	t.Run("Should satisfy the error interface for direct use in an error chain", func(t *testing.T) {
		var err error = registry.ErrToolNotFound("x")
		assert.EqualError(t, err, `tool "x" not found`)
	})
}

func TestError_AsMap(t *testing.T) {
	t.Run("Should expose message, code, and details as a plain map for JSON responses", func(t *testing.T) {
		e := core.NewError(errors.New("rate limited"), "RATE_LIMITED", map[string]any{"retry_after_s": 30})

		m := e.AsMap()

		assert.Equal(t, "rate limited", m["message"])
		assert.Equal(t, "RATE_LIMITED", m["code"])
		assert.Equal(t, map[string]any{"retry_after_s": 30}, m["details"])
	})

	t.Run("Should tolerate a nil receiver everywhere, since adapters may return a nil *Error on success", func(t *testing.T) {
		var e *core.Error
		assert.Equal(t, "", e.Error())
		assert.Nil(t, e.Unwrap())
		assert.Nil(t, e.AsMap())
	})

	t.Run("Should fall back to a generic message when constructed from a nil error", func(t *testing.T) {
		e := core.NewError(nil, "", nil)
		assert.Equal(t, "unknown error", e.Error())
	})
}
