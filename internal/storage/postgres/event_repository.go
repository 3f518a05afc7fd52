package postgres

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/cimillas/event-lifecycle/internal/app"
	"github.com/cimillas/event-lifecycle/internal/domain"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

type EventRepository struct {
	querier
}

func NewEventRepository(pool *pgxpool.Pool) *EventRepository {
	return &EventRepository{querier{pool: pool}}
}

func (r *EventRepository) WithTx(ctx context.Context, fn func(ctx context.Context) error) error {
	return withTx(ctx, r.pool, fn)
}

const eventColumns = `id, title, owner_id, capacity, starts_at, ends_at, status, created_at, updated_at,
	approved_by, approved_at, rejected_by, rejected_at, reject_reason,
	unpublished_by, unpublished_at, cancelled_by, cancelled_at, cancel_reason, completed_at,
	is_deleted, deleted_by, deleted_at, status_before_delete`

func (r *EventRepository) CreateEvent(ctx context.Context, event domain.Event) error {
	const stmt = `
INSERT INTO events (id, title, owner_id, capacity, starts_at, ends_at, status, created_at, updated_at)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`
	_, err := r.exec(ctx, stmt,
		event.ID,
		event.Title,
		event.OwnerID,
		event.Capacity,
		event.StartsAt,
		event.EndsAt,
		string(event.Status),
		event.CreatedAt,
		event.UpdatedAt,
	)
	if err != nil {
		if isInvalidUUID(err) {
			return domain.ErrInvalidID
		}
		if isCheckViolation(err) {
			return domain.ErrInvalidSchedule
		}
		return fmt.Errorf("create event: %w", err)
	}
	return nil
}

func (r *EventRepository) GetEvent(ctx context.Context, id string) (domain.Event, error) {
	return r.getEvent(ctx, "get event", `SELECT `+eventColumns+` FROM events WHERE id = $1`, id)
}

// LockEvent reads the event with FOR UPDATE. Outside a transaction the lock
// is released as soon as the statement finishes.
func (r *EventRepository) LockEvent(ctx context.Context, id string) (domain.Event, error) {
	return r.getEvent(ctx, "lock event", `SELECT `+eventColumns+` FROM events WHERE id = $1 FOR UPDATE`, id)
}

func (r *EventRepository) getEvent(ctx context.Context, op, query, id string) (domain.Event, error) {
	event, err := scanEvent(r.queryRow(ctx, query, id))
	if err != nil {
		if isInvalidUUID(err) {
			return domain.Event{}, domain.ErrInvalidID
		}
		if errors.Is(err, pgx.ErrNoRows) {
			return domain.Event{}, domain.ErrEventNotFound
		}
		return domain.Event{}, fmt.Errorf("%s: %w", op, err)
	}
	return event, nil
}

func (r *EventRepository) ListEvents(ctx context.Context, filter app.EventFilter) ([]domain.Event, error) {
	var (
		where []string
		args  []any
	)
	if filter.OwnerID != "" {
		args = append(args, filter.OwnerID)
		where = append(where, fmt.Sprintf("owner_id = $%d", len(args)))
	}
	if filter.Status != "" {
		args = append(args, string(filter.Status))
		where = append(where, fmt.Sprintf("status = $%d", len(args)))
	}
	if !filter.IncludeDeleted && filter.Status != domain.EventStatusDeleted {
		where = append(where, "NOT is_deleted")
	}

	query := `SELECT ` + eventColumns + ` FROM events`
	if len(where) > 0 {
		query += ` WHERE ` + strings.Join(where, " AND ")
	}
	query += ` ORDER BY created_at ASC, id ASC`

	rows, err := r.query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list events: %w", err)
	}
	defer rows.Close()

	var events []domain.Event
	for rows.Next() {
		event, err := scanEvent(rows)
		if err != nil {
			return nil, fmt.Errorf("scan event: %w", err)
		}
		events = append(events, event)
	}
	if rows.Err() != nil {
		return nil, fmt.Errorf("iterate events: %w", rows.Err())
	}
	return events, nil
}

// UpdateEvent writes the lifecycle columns of event, but only while the stored
// status is still from.
func (r *EventRepository) UpdateEvent(ctx context.Context, event domain.Event, from domain.EventStatus) error {
	const stmt = `
UPDATE events SET
	status = $3,
	updated_at = $4,
	approved_by = $5,
	approved_at = $6,
	rejected_by = $7,
	rejected_at = $8,
	reject_reason = $9,
	unpublished_by = $10,
	unpublished_at = $11,
	cancelled_by = $12,
	cancelled_at = $13,
	cancel_reason = $14,
	completed_at = $15,
	is_deleted = $16,
	deleted_by = $17,
	deleted_at = $18,
	status_before_delete = $19
WHERE id = $1 AND status = $2`

	tag, err := r.exec(ctx, stmt,
		event.ID,
		string(from),
		string(event.Status),
		event.UpdatedAt,
		event.ApprovedBy,
		event.ApprovedAt,
		event.RejectedBy,
		event.RejectedAt,
		event.RejectReason,
		event.UnpublishedBy,
		event.UnpublishedAt,
		event.CancelledBy,
		event.CancelledAt,
		event.CancelReason,
		event.CompletedAt,
		event.IsDeleted,
		event.DeletedBy,
		event.DeletedAt,
		string(event.StatusBeforeDelete),
	)
	if err != nil {
		if isInvalidUUID(err) {
			return domain.ErrInvalidID
		}
		return fmt.Errorf("update event: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return r.missOrStale(ctx, event.ID)
	}
	return nil
}

func (r *EventRepository) missOrStale(ctx context.Context, id string) error {
	var exists bool
	if err := r.queryRow(ctx, `SELECT EXISTS (SELECT 1 FROM events WHERE id = $1)`, id).Scan(&exists); err != nil {
		return fmt.Errorf("check event: %w", err)
	}
	if !exists {
		return domain.ErrEventNotFound
	}
	return domain.ErrStaleState
}

func scanEvent(row pgx.Row) (domain.Event, error) {
	var (
		e                  domain.Event
		status             string
		statusBeforeDelete string
	)
	err := row.Scan(
		&e.ID, &e.Title, &e.OwnerID, &e.Capacity, &e.StartsAt, &e.EndsAt, &status, &e.CreatedAt, &e.UpdatedAt,
		&e.ApprovedBy, &e.ApprovedAt, &e.RejectedBy, &e.RejectedAt, &e.RejectReason,
		&e.UnpublishedBy, &e.UnpublishedAt, &e.CancelledBy, &e.CancelledAt, &e.CancelReason, &e.CompletedAt,
		&e.IsDeleted, &e.DeletedBy, &e.DeletedAt, &statusBeforeDelete,
	)
	if err != nil {
		return domain.Event{}, err
	}
	e.Status = domain.EventStatus(status)
	e.StatusBeforeDelete = domain.EventStatus(statusBeforeDelete)
	e.StartsAt = e.StartsAt.UTC()
	e.EndsAt = e.EndsAt.UTC()
	e.CreatedAt = e.CreatedAt.UTC()
	e.UpdatedAt = e.UpdatedAt.UTC()
	return e, nil
}
