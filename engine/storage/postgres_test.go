package storage_test

import (
	"context"
	"testing"

	"github.com/fluxline-dev/fluxline/engine/automation"
	"github.com/fluxline-dev/fluxline/engine/storage"
	"github.com/pashagolub/pgxmock/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPostgresStore_CreateAutomation(t *testing.T) {
	mockPool, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mockPool.Close()

	store := storage.NewPostgresStore(mockPool)
	spec := automation.Spec{
		Name:        "new lead notifier",
		TriggerType: automation.TriggerManual,
		Actions:     []automation.Action{{Tool: "notify"}},
	}

	mockPool.ExpectExec("INSERT INTO automations").
		WithArgs(pgxmock.AnyArg(), "user-1", pgxmock.AnyArg(), string(automation.DeploymentPendingReview)).
		WillReturnResult(pgxmock.NewResult("INSERT", 1))

	id, err := store.CreateAutomation(context.Background(), "user-1", spec)
	require.NoError(t, err)
	assert.NotEmpty(t, id)
	assert.NoError(t, mockPool.ExpectationsWereMet())
}

func TestPostgresStore_DeleteAutomation_NotFound(t *testing.T) {
	mockPool, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mockPool.Close()

	store := storage.NewPostgresStore(mockPool)

	mockPool.ExpectExec("DELETE FROM automations").
		WithArgs("missing-id", "user-1").
		WillReturnResult(pgxmock.NewResult("DELETE", 0))

	deleted, err := store.DeleteAutomation(context.Background(), "missing-id", "user-1")
	require.NoError(t, err)
	assert.False(t, deleted)
	assert.NoError(t, mockPool.ExpectationsWereMet())
}

func TestPostgresStore_LogExecution(t *testing.T) {
	mockPool, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mockPool.Close()

	store := storage.NewPostgresStore(mockPool)
	result := automation.Result{Success: true, Status: automation.StatusCompleted, ActionsExecuted: 1}

	mockPool.ExpectExec("INSERT INTO execution_logs").
		WithArgs(pgxmock.AnyArg(), "automation-1", "user-1", pgxmock.AnyArg()).
		WillReturnResult(pgxmock.NewResult("INSERT", 1))

	id, err := store.LogExecution(context.Background(), "automation-1", "user-1",
		storage.LogEntry{AutomationID: "automation-1", UserID: "user-1", Result: result})
	require.NoError(t, err)
	assert.NotEmpty(t, id)
	assert.NoError(t, mockPool.ExpectationsWereMet())
}
