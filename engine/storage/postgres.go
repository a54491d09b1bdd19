package storage

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/Masterminds/squirrel"
	"github.com/fluxline-dev/fluxline/engine/automation"
	"github.com/fluxline-dev/fluxline/engine/core"
	"github.com/georgysavva/scany/v2/pgxscan"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

// DBInterface is the minimal pgx surface PostgresStore needs, small enough
// that a real pool, a transaction, or a pgxmock pool can all satisfy it.
type DBInterface interface {
	Exec(ctx context.Context, sql string, arguments ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// PostgresStore implements Store on top of Postgres, with the automation
// spec kept in a JSONB column (a document-shaped spec doesn't benefit from
// being normalized into relational columns), deployment bookkeeping in plain
// columns, and squirrel building every query.
type PostgresStore struct {
	db DBInterface
}

// NewPostgresStore wraps db as a Store. Run migrations (see migrations.go)
// before first use.
func NewPostgresStore(db DBInterface) *PostgresStore {
	return &PostgresStore{db: db}
}

type deploymentRow struct {
	ID                     string  `db:"id"`
	UserID                 string  `db:"user_id"`
	Spec                   []byte  `db:"spec"`
	Status                 string  `db:"status"`
	ConfirmedAt            *string `db:"confirmed_at"`
	NextPollAt             *string `db:"next_poll_at"`
	PollingIntervalMinutes int     `db:"polling_interval_minutes"`
	LastPollCursor         string  `db:"last_poll_cursor"`
}

func (r deploymentRow) toDeployment() (*automation.Deployment, error) {
	var spec automation.Spec
	if err := json.Unmarshal(r.Spec, &spec); err != nil {
		return nil, fmt.Errorf("decoding stored spec: %w", err)
	}
	return &automation.Deployment{
		ID:                     r.ID,
		UserID:                 r.UserID,
		Spec:                   spec,
		Status:                 automation.DeploymentStatus(r.Status),
		PollingIntervalMinutes: r.PollingIntervalMinutes,
		LastPollCursor:         r.LastPollCursor,
	}, nil
}

func (s *PostgresStore) GetAutomation(ctx context.Context, id, userID string) (*automation.Deployment, bool, error) {
	query, args, err := squirrel.Select(
		"id", "user_id", "spec", "status", "confirmed_at",
		"next_poll_at", "polling_interval_minutes", "last_poll_cursor",
	).
		From("automations").
		Where(squirrel.Eq{"id": id, "user_id": userID}).
		PlaceholderFormat(squirrel.Dollar).
		ToSql()
	if err != nil {
		return nil, false, fmt.Errorf("building select query: %w", err)
	}
	var row deploymentRow
	if err := pgxscan.Get(ctx, s.db, &row, query, args...); err != nil {
		if pgxscan.NotFound(err) {
			return nil, false, nil
		}
		return nil, false, fmt.Errorf("scanning automation: %w", err)
	}
	d, err := row.toDeployment()
	if err != nil {
		return nil, false, err
	}
	return d, true, nil
}

func (s *PostgresStore) CreateAutomation(ctx context.Context, userID string, spec automation.Spec) (string, error) {
	id, err := core.NewID()
	if err != nil {
		return "", fmt.Errorf("generating automation id: %w", err)
	}
	encoded, err := json.Marshal(spec)
	if err != nil {
		return "", fmt.Errorf("encoding spec: %w", err)
	}
	query, args, err := squirrel.Insert("automations").
		Columns("id", "user_id", "spec", "status").
		Values(id.String(), userID, encoded, string(automation.DeploymentPendingReview)).
		PlaceholderFormat(squirrel.Dollar).
		ToSql()
	if err != nil {
		return "", fmt.Errorf("building insert query: %w", err)
	}
	if _, err := s.db.Exec(ctx, query, args...); err != nil {
		return "", fmt.Errorf("inserting automation: %w", err)
	}
	return id.String(), nil
}

func (s *PostgresStore) UpdateAutomation(ctx context.Context, id, userID string, updates map[string]any) (bool, error) {
	if len(updates) == 0 {
		return true, nil
	}
	builder := squirrel.Update("automations").Where(squirrel.Eq{"id": id, "user_id": userID})
	for col, val := range updates {
		builder = builder.Set(col, val)
	}
	query, args, err := builder.PlaceholderFormat(squirrel.Dollar).ToSql()
	if err != nil {
		return false, fmt.Errorf("building update query: %w", err)
	}
	tag, err := s.db.Exec(ctx, query, args...)
	if err != nil {
		return false, fmt.Errorf("updating automation: %w", err)
	}
	return tag.RowsAffected() > 0, nil
}

func (s *PostgresStore) DeleteAutomation(ctx context.Context, id, userID string) (bool, error) {
	query, args, err := squirrel.Delete("automations").
		Where(squirrel.Eq{"id": id, "user_id": userID}).
		PlaceholderFormat(squirrel.Dollar).
		ToSql()
	if err != nil {
		return false, fmt.Errorf("building delete query: %w", err)
	}
	tag, err := s.db.Exec(ctx, query, args...)
	if err != nil {
		return false, fmt.Errorf("deleting automation: %w", err)
	}
	return tag.RowsAffected() > 0, nil
}

func (s *PostgresStore) ListAutomations(
	ctx context.Context, userID string, status automation.DeploymentStatus,
) ([]*automation.Deployment, error) {
	qb := squirrel.Select(
		"id", "user_id", "spec", "status", "confirmed_at",
		"next_poll_at", "polling_interval_minutes", "last_poll_cursor",
	).
		From("automations").
		Where(squirrel.Eq{"user_id": userID})
	if status != "" {
		qb = qb.Where(squirrel.Eq{"status": string(status)})
	}
	query, args, err := qb.PlaceholderFormat(squirrel.Dollar).ToSql()
	if err != nil {
		return nil, fmt.Errorf("building list query: %w", err)
	}
	var rows []deploymentRow
	if err := pgxscan.Select(ctx, s.db, &rows, query, args...); err != nil {
		return nil, fmt.Errorf("scanning automations: %w", err)
	}
	out := make([]*automation.Deployment, 0, len(rows))
	for _, row := range rows {
		d, err := row.toDeployment()
		if err != nil {
			return nil, err
		}
		out = append(out, d)
	}
	return out, nil
}

func (s *PostgresStore) LogExecution(ctx context.Context, automationID, userID string, entry LogEntry) (string, error) {
	id, err := core.NewID()
	if err != nil {
		return "", fmt.Errorf("generating log id: %w", err)
	}
	encoded, err := json.Marshal(entry.Result)
	if err != nil {
		return "", fmt.Errorf("encoding execution result: %w", err)
	}
	query, args, err := squirrel.Insert("execution_logs").
		Columns("id", "automation_id", "user_id", "result").
		Values(id.String(), automationID, userID, encoded).
		PlaceholderFormat(squirrel.Dollar).
		ToSql()
	if err != nil {
		return "", fmt.Errorf("building insert query: %w", err)
	}
	if _, err := s.db.Exec(ctx, query, args...); err != nil {
		return "", fmt.Errorf("inserting execution log: %w", err)
	}
	return id.String(), nil
}

func (s *PostgresStore) GetServiceCapabilities(
	ctx context.Context, serviceName string,
) (*ServiceCapabilities, bool, error) {
	query, args, err := squirrel.Select("supports_webhooks", "supports_polling", "notes", "webhook_events", "webhook_payload_schemas").
		From("service_capabilities").
		Where(squirrel.Eq{"service_name": serviceName}).
		PlaceholderFormat(squirrel.Dollar).
		ToSql()
	if err != nil {
		return nil, false, fmt.Errorf("building capabilities query: %w", err)
	}
	var row struct {
		SupportsWebhooks      bool   `db:"supports_webhooks"`
		SupportsPolling       bool   `db:"supports_polling"`
		Notes                 string `db:"notes"`
		WebhookEvents         []byte `db:"webhook_events"`
		WebhookPayloadSchemas []byte `db:"webhook_payload_schemas"`
	}
	if err := pgxscan.Get(ctx, s.db, &row, query, args...); err != nil {
		if pgxscan.NotFound(err) {
			return nil, false, nil
		}
		return nil, false, fmt.Errorf("scanning service capabilities: %w", err)
	}
	caps := &ServiceCapabilities{
		SupportsWebhooks: row.SupportsWebhooks,
		SupportsPolling:  row.SupportsPolling,
		Notes:            row.Notes,
	}
	if len(row.WebhookEvents) > 0 {
		if err := json.Unmarshal(row.WebhookEvents, &caps.WebhookEvents); err != nil {
			return nil, false, fmt.Errorf("decoding webhook events: %w", err)
		}
	}
	if len(row.WebhookPayloadSchemas) > 0 {
		if err := json.Unmarshal(row.WebhookPayloadSchemas, &caps.WebhookPayloadSchemas); err != nil {
			return nil, false, fmt.Errorf("decoding webhook payload schemas: %w", err)
		}
	}
	return caps, true, nil
}
