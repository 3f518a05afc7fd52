package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/cimillas/event-lifecycle/internal/domain"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

type HoldRepository struct {
	querier
}

func NewHoldRepository(pool *pgxpool.Pool) *HoldRepository {
	return &HoldRepository{querier{pool: pool}}
}

func (r *HoldRepository) WithTx(ctx context.Context, fn func(ctx context.Context) error) error {
	return withTx(ctx, r.pool, fn)
}

const holdColumns = `id, event_id, organizer_id, notes, priority, status, created_at, expires_at, updated_at,
	confirmed_at, resolved_at, resolved_by, cancel_reason`

func (r *HoldRepository) CreateHold(ctx context.Context, hold domain.PencilHold) error {
	const stmt = `
INSERT INTO pencil_holds (id, event_id, organizer_id, notes, priority, status, created_at, expires_at, updated_at)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`

	_, err := r.exec(ctx, stmt,
		hold.ID,
		hold.EventID,
		hold.OrganizerID,
		hold.Notes,
		hold.Priority,
		string(hold.Status),
		hold.CreatedAt,
		hold.ExpiresAt,
		hold.UpdatedAt,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return domain.ErrActiveHoldExists
		}
		if isForeignKeyViolation(err) {
			return domain.ErrEventNotFound
		}
		if isInvalidUUID(err) {
			return domain.ErrInvalidID
		}
		if isCheckViolation(err) {
			return domain.ErrInvalidPriority
		}
		return fmt.Errorf("create hold: %w", err)
	}
	return nil
}

func (r *HoldRepository) GetHold(ctx context.Context, id string) (domain.PencilHold, error) {
	query := `SELECT ` + holdColumns + ` FROM pencil_holds WHERE id = $1`
	hold, err := scanHold(r.queryRow(ctx, query, id))
	if err != nil {
		if isInvalidUUID(err) {
			return domain.PencilHold{}, domain.ErrInvalidID
		}
		if errors.Is(err, pgx.ErrNoRows) {
			return domain.PencilHold{}, domain.ErrHoldNotFound
		}
		return domain.PencilHold{}, fmt.Errorf("get hold: %w", err)
	}
	return hold, nil
}

func (r *HoldRepository) FindActiveHold(ctx context.Context, eventID string) (*domain.PencilHold, error) {
	query := `SELECT ` + holdColumns + `
FROM pencil_holds
WHERE event_id = $1 AND status IN ('pending', 'confirmed')`

	hold, err := scanHold(r.queryRow(ctx, query, eventID))
	if err != nil {
		if isInvalidUUID(err) {
			return nil, domain.ErrInvalidID
		}
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("find active hold: %w", err)
	}
	return &hold, nil
}

func (r *HoldRepository) ListHoldsByEvent(ctx context.Context, eventID string) ([]domain.PencilHold, error) {
	query := `SELECT ` + holdColumns + `
FROM pencil_holds
WHERE event_id = $1
ORDER BY created_at ASC, id ASC`

	return r.list(ctx, "list holds", query, eventID)
}

// ListStaleHolds returns pending holds whose deadline is at or before now,
// earliest deadline first.
func (r *HoldRepository) ListStaleHolds(ctx context.Context, now time.Time, limit int) ([]domain.PencilHold, error) {
	query := `SELECT ` + holdColumns + `
FROM pencil_holds
WHERE status = 'pending' AND expires_at <= $1
ORDER BY expires_at ASC, id ASC
LIMIT $2`

	return r.list(ctx, "list stale holds", query, now, limit)
}

// UpdateHold writes the mutable columns of hold, but only while the stored
// status is still from. expires_at is never written.
func (r *HoldRepository) UpdateHold(ctx context.Context, hold domain.PencilHold, from domain.HoldStatus) error {
	const stmt = `
UPDATE pencil_holds SET
	status = $3,
	updated_at = $4,
	confirmed_at = $5,
	resolved_at = $6,
	resolved_by = $7,
	cancel_reason = $8
WHERE id = $1 AND status = $2`

	tag, err := r.exec(ctx, stmt,
		hold.ID,
		string(from),
		string(hold.Status),
		hold.UpdatedAt,
		hold.ConfirmedAt,
		hold.ResolvedAt,
		hold.ResolvedBy,
		hold.CancelReason,
	)
	if err != nil {
		if isInvalidUUID(err) {
			return domain.ErrInvalidID
		}
		if isCheckViolation(err) {
			return domain.ErrTerminalHold
		}
		return fmt.Errorf("update hold: %w", err)
	}
	if tag.RowsAffected() == 0 {
		var exists bool
		if err := r.queryRow(ctx, `SELECT EXISTS (SELECT 1 FROM pencil_holds WHERE id = $1)`, hold.ID).Scan(&exists); err != nil {
			return fmt.Errorf("check hold: %w", err)
		}
		if !exists {
			return domain.ErrHoldNotFound
		}
		return domain.ErrStaleState
	}
	return nil
}

func (r *HoldRepository) list(ctx context.Context, op, query string, args ...any) ([]domain.PencilHold, error) {
	rows, err := r.query(ctx, query, args...)
	if err != nil {
		if isInvalidUUID(err) {
			return nil, domain.ErrInvalidID
		}
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	defer rows.Close()

	var holds []domain.PencilHold
	for rows.Next() {
		hold, err := scanHold(rows)
		if err != nil {
			return nil, fmt.Errorf("scan hold: %w", err)
		}
		holds = append(holds, hold)
	}
	if err := rows.Err(); err != nil {
		if isInvalidUUID(err) {
			return nil, domain.ErrInvalidID
		}
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return holds, nil
}

func scanHold(row pgx.Row) (domain.PencilHold, error) {
	var (
		h      domain.PencilHold
		status string
	)
	err := row.Scan(
		&h.ID, &h.EventID, &h.OrganizerID, &h.Notes, &h.Priority, &status, &h.CreatedAt, &h.ExpiresAt, &h.UpdatedAt,
		&h.ConfirmedAt, &h.ResolvedAt, &h.ResolvedBy, &h.CancelReason,
	)
	if err != nil {
		return domain.PencilHold{}, err
	}
	h.Status = domain.HoldStatus(status)
	h.CreatedAt = h.CreatedAt.UTC()
	h.ExpiresAt = h.ExpiresAt.UTC()
	h.UpdatedAt = h.UpdatedAt.UTC()
	return h, nil
}
