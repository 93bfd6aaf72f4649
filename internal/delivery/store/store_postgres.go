package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/lib/pq"

	"dlvery/internal/delivery/models"
	id "dlvery/pkg/domain"
	"dlvery/pkg/platform/sentinel"
)

// Schema creates the deliveries table.
const Schema = `
CREATE TABLE IF NOT EXISTS deliveries (
	id               UUID PRIMARY KEY,
	delivery_number  TEXT NOT NULL UNIQUE,
	agent            TEXT NOT NULL DEFAULT '',
	status           TEXT NOT NULL,
	priority         TEXT NOT NULL,
	customer_name    TEXT NOT NULL,
	customer_address TEXT NOT NULL,
	customer_phone   TEXT NOT NULL DEFAULT '',
	notes            TEXT NOT NULL DEFAULT '',
	status_reason    TEXT NOT NULL DEFAULT '',
	signature_ref    TEXT NOT NULL DEFAULT '',
	received_by      TEXT NOT NULL DEFAULT '',
	scheduled_at     TIMESTAMPTZ,
	created_at       TIMESTAMPTZ NOT NULL,
	updated_at       TIMESTAMPTZ NOT NULL,
	assigned_at      TIMESTAMPTZ,
	delivered_at     TIMESTAMPTZ
);
CREATE INDEX IF NOT EXISTS deliveries_agent_scheduled_idx ON deliveries (agent, scheduled_at);
`

const uniqueViolation = "23505"

const selectColumns = `
	id, delivery_number, agent, status, priority, customer_name, customer_address,
	customer_phone, notes, status_reason, signature_ref, received_by, scheduled_at,
	created_at, updated_at, assigned_at, delivered_at`

// PostgresStore persists deliveries in PostgreSQL.
type PostgresStore struct {
	db *sql.DB
}

func NewPostgres(db *sql.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

func (s *PostgresStore) Create(ctx context.Context, d *models.Delivery) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO deliveries (
			id, delivery_number, agent, status, priority, customer_name, customer_address,
			customer_phone, notes, status_reason, signature_ref, received_by, scheduled_at,
			created_at, updated_at, assigned_at, delivered_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17)
	`,
		d.ID.String(), d.Number, d.Agent, string(d.Status), string(d.Priority),
		d.CustomerName, d.CustomerAddress, d.CustomerPhone, d.Notes, d.StatusReason,
		d.SignatureRef, d.ReceivedBy, nullTime(d.ScheduledAt), d.CreatedAt, d.UpdatedAt,
		d.AssignedAt, d.DeliveredAt,
	)
	if err != nil {
		var pqErr *pq.Error
		if errors.As(err, &pqErr) && pqErr.Code == uniqueViolation {
			return sentinel.ErrConflict
		}
		return fmt.Errorf("insert delivery: %w", err)
	}
	return nil
}

func (s *PostgresStore) FindByID(ctx context.Context, deliveryID id.DeliveryID) (*models.Delivery, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+selectColumns+` FROM deliveries WHERE id = $1`, deliveryID.String())
	d, err := scanDelivery(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, sentinel.ErrNotFound
		}
		return nil, fmt.Errorf("find delivery: %w", err)
	}
	return d, nil
}

// List returns matches ordered by scheduled time, then delivery number.
func (s *PostgresStore) List(ctx context.Context, q Query) ([]models.Delivery, error) {
	var (
		where []string
		args  []any
	)
	arg := func(v any) string {
		args = append(args, v)
		return fmt.Sprintf("$%d", len(args))
	}

	if q.Agent != "" {
		where = append(where, "agent = "+arg(q.Agent))
	}
	if len(q.Statuses) > 0 {
		statuses := make([]string, len(q.Statuses))
		for i, st := range q.Statuses {
			statuses[i] = string(st)
		}
		where = append(where, "status = ANY("+arg(pq.Array(statuses))+")")
	}
	if !q.ScheduledFrom.IsZero() {
		where = append(where, "scheduled_at >= "+arg(q.ScheduledFrom))
	}
	if !q.ScheduledTo.IsZero() {
		where = append(where, "scheduled_at < "+arg(q.ScheduledTo))
	}

	query := `SELECT ` + selectColumns + ` FROM deliveries`
	if len(where) > 0 {
		query += " WHERE " + strings.Join(where, " AND ")
	}
	query += " ORDER BY scheduled_at NULLS FIRST, delivery_number"
	if q.Limit > 0 {
		query += " LIMIT " + arg(q.Limit)
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list deliveries: %w", err)
	}
	defer rows.Close()

	out := make([]models.Delivery, 0)
	for rows.Next() {
		d, err := scanDelivery(rows)
		if err != nil {
			return nil, fmt.Errorf("scan delivery: %w", err)
		}
		out = append(out, *d)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate deliveries: %w", err)
	}
	return out, nil
}

// UpdateStatus writes the mutable lifecycle fields only if the row still has
// the expected status.
func (s *PostgresStore) UpdateStatus(ctx context.Context, d *models.Delivery, expected models.Status) error {
	res, err := s.db.ExecContext(ctx, `
		UPDATE deliveries SET
			status = $3,
			status_reason = $4,
			notes = $5,
			signature_ref = $6,
			received_by = $7,
			updated_at = $8,
			delivered_at = $9
		WHERE id = $1 AND status = $2
	`,
		d.ID.String(), string(expected), string(d.Status), d.StatusReason, d.Notes,
		d.SignatureRef, d.ReceivedBy, d.UpdatedAt, d.DeliveredAt,
	)
	if err != nil {
		return fmt.Errorf("update delivery status: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("update delivery status: %w", err)
	}
	if n == 1 {
		return nil
	}

	var exists bool
	if err := s.db.QueryRowContext(ctx, `SELECT EXISTS(SELECT 1 FROM deliveries WHERE id = $1)`, d.ID.String()).Scan(&exists); err != nil {
		return fmt.Errorf("check delivery: %w", err)
	}
	if !exists {
		return sentinel.ErrNotFound
	}
	return sentinel.ErrInvalidState
}

type scanner interface {
	Scan(dest ...any) error
}

func scanDelivery(row scanner) (*models.Delivery, error) {
	var (
		d                   models.Delivery
		rawID, status, prio string
		scheduled           sql.NullTime
		assigned, delivered sql.NullTime
	)
	if err := row.Scan(
		&rawID, &d.Number, &d.Agent, &status, &prio, &d.CustomerName, &d.CustomerAddress,
		&d.CustomerPhone, &d.Notes, &d.StatusReason, &d.SignatureRef, &d.ReceivedBy, &scheduled,
		&d.CreatedAt, &d.UpdatedAt, &assigned, &delivered,
	); err != nil {
		return nil, err
	}

	deliveryID, err := id.ParseDeliveryID(rawID)
	if err != nil {
		return nil, fmt.Errorf("corrupt delivery id %q: %w", rawID, err)
	}
	st, err := models.ParseStatus(status)
	if err != nil {
		return nil, fmt.Errorf("corrupt delivery status: %w", err)
	}

	d.ID = deliveryID
	d.Status = st
	d.Priority = models.Priority(prio)
	if scheduled.Valid {
		d.ScheduledAt = scheduled.Time
	}
	if assigned.Valid {
		t := assigned.Time
		d.AssignedAt = &t
	}
	if delivered.Valid {
		t := delivered.Time
		d.DeliveredAt = &t
	}
	return &d, nil
}

func nullTime(t time.Time) sql.NullTime {
	return sql.NullTime{Time: t, Valid: !t.IsZero()}
}
