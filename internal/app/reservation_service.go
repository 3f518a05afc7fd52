package app

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"strings"
	"time"

	"github.com/cimillas/event-lifecycle/internal/clock"
	"github.com/cimillas/event-lifecycle/internal/domain"
	"github.com/cimillas/event-lifecycle/internal/lifecycle"
)

// ReservationService is the only writer of hold status. Every operation runs
// in one transaction and every write is conditional on the status it moves
// from, so a racing writer makes the loser fail with domain.ErrStaleState
// instead of overwriting.
type ReservationService struct {
	events     EventRepository
	holds      HoldRepository
	clock      clock.Clock
	sweepBatch int
	logger     *slog.Logger
}

const defaultSweepBatch = 100

func NewReservationService(events EventRepository, holds HoldRepository, clk clock.Clock, opts ...ReservationOption) *ReservationService {
	svc := &ReservationService{
		events:     events,
		holds:      holds,
		clock:      clk,
		sweepBatch: defaultSweepBatch,
		logger:     slog.New(slog.NewTextHandler(io.Discard, nil)),
	}
	for _, opt := range opts {
		opt(svc)
	}
	return svc
}

type ReservationOption func(*ReservationService)

// WithSweepBatch caps how many stale holds one store query returns.
func WithSweepBatch(n int) ReservationOption {
	return func(s *ReservationService) {
		if n > 0 {
			s.sweepBatch = n
		}
	}
}

func WithLogger(logger *slog.Logger) ReservationOption {
	return func(s *ReservationService) {
		if logger != nil {
			s.logger = logger
		}
	}
}

type CreateHoldInput struct {
	EventID  string
	Actor    domain.Actor
	Notes    string
	Priority int
}

func (s *ReservationService) CreateHold(ctx context.Context, in CreateHoldInput) (domain.PencilHold, error) {
	if in.Actor.ID == "" {
		return domain.PencilHold{}, domain.ErrActorRequired
	}
	if in.EventID == "" {
		return domain.PencilHold{}, domain.ErrInvalidID
	}
	priority := in.Priority
	if priority == 0 {
		priority = domain.DefaultHoldPriority
	}
	if priority < domain.MinHoldPriority || priority > domain.MaxHoldPriority {
		return domain.PencilHold{}, domain.ErrInvalidPriority
	}

	now := s.clock.Now()
	var result domain.PencilHold

	err := s.events.WithTx(ctx, func(txCtx context.Context) error {
		event, err := s.events.LockEvent(txCtx, in.EventID)
		if err != nil {
			return err
		}
		if event.OwnerID != in.Actor.ID {
			return domain.ErrNotEventOwner
		}

		active, err := s.holds.FindActiveHold(txCtx, event.ID)
		if err != nil {
			return err
		}
		if active != nil {
			if !active.Stale(now) {
				return domain.ErrActiveHoldExists
			}
			// The sweep has not reached this hold yet; settle it here so the
			// new hold does not collide with it.
			if _, event, err = s.expireHold(txCtx, *active, event, now); err != nil {
				return err
			}
		}

		if _, err := s.moveEvent(txCtx, event, domain.EventStatusPencilHold, now, nil); err != nil {
			return err
		}

		hold := domain.PencilHold{
			ID:          newUUID(),
			EventID:     event.ID,
			OrganizerID: in.Actor.ID,
			Notes:       strings.TrimSpace(in.Notes),
			Priority:    priority,
			Status:      domain.HoldStatusPending,
			CreatedAt:   now,
			ExpiresAt:   now.Add(domain.PencilHoldTTL),
			UpdatedAt:   now,
		}
		if err := s.holds.CreateHold(txCtx, hold); err != nil {
			return err
		}

		result = hold
		return nil
	})
	if err != nil {
		return domain.PencilHold{}, err
	}
	return result, nil
}

func (s *ReservationService) ConfirmHold(ctx context.Context, holdID string, actor domain.Actor) (domain.PencilHold, error) {
	now := s.clock.Now()
	var result domain.PencilHold

	err := s.events.WithTx(ctx, func(txCtx context.Context) error {
		hold, err := s.holds.GetHold(txCtx, holdID)
		if err != nil {
			return err
		}
		if hold.OrganizerID != actor.ID {
			return domain.ErrNotHoldOwner
		}
		if err := holdStateError(hold); err != nil {
			return err
		}
		event, err := s.events.LockEvent(txCtx, hold.EventID)
		if err != nil {
			return err
		}

		confirmed, err := s.moveHold(txCtx, hold, domain.HoldStatusConfirmed, now, func(h *domain.PencilHold) {
			h.ConfirmedAt = &now
		})
		if err != nil {
			return err
		}
		if _, err := s.moveEvent(txCtx, event, domain.EventStatusPencilHoldConfirmed, now, nil); err != nil {
			return err
		}

		result = confirmed
		return nil
	})
	if err != nil {
		return domain.PencilHold{}, s.explainHoldConflict(ctx, holdID, err, true)
	}
	return result, nil
}

type CancelHoldInput struct {
	HoldID string
	Actor  domain.Actor
	Reason string
}

func (s *ReservationService) CancelHold(ctx context.Context, in CancelHoldInput) (domain.PencilHold, error) {
	now := s.clock.Now()
	reason := strings.TrimSpace(in.Reason)
	if reason == "" {
		reason = "cancelled by " + string(roleOf(in.Actor))
	}
	var result domain.PencilHold

	err := s.events.WithTx(ctx, func(txCtx context.Context) error {
		hold, err := s.holds.GetHold(txCtx, in.HoldID)
		if err != nil {
			return err
		}
		if hold.OrganizerID != in.Actor.ID && !in.Actor.IsAdmin() {
			return domain.ErrNotHoldOwner
		}
		if hold.Stale(now) {
			return domain.ErrHoldExpired
		}
		event, err := s.events.LockEvent(txCtx, hold.EventID)
		if err != nil {
			return err
		}

		cancelled, err := s.moveHold(txCtx, hold, domain.HoldStatusCancelled, now, func(h *domain.PencilHold) {
			h.ResolvedBy = in.Actor.ID
			h.CancelReason = reason
		})
		if err != nil {
			return err
		}
		if _, err := s.releaseEvent(txCtx, event, now); err != nil {
			return err
		}

		result = cancelled
		return nil
	})
	if err != nil {
		return domain.PencilHold{}, s.explainHoldConflict(ctx, in.HoldID, err, false)
	}
	return result, nil
}

func (s *ReservationService) ApproveHold(ctx context.Context, holdID string, admin domain.Actor) (domain.Event, error) {
	if !admin.IsAdmin() {
		return domain.Event{}, domain.ErrAdminRequired
	}
	now := s.clock.Now()
	var result domain.Event

	err := s.events.WithTx(ctx, func(txCtx context.Context) error {
		hold, err := s.holds.GetHold(txCtx, holdID)
		if err != nil {
			return err
		}
		if hold.Stale(now) {
			return domain.ErrHoldExpired
		}
		event, err := s.events.LockEvent(txCtx, hold.EventID)
		if err != nil {
			return err
		}

		if _, err := s.moveHold(txCtx, hold, domain.HoldStatusConverted, now, func(h *domain.PencilHold) {
			h.ResolvedBy = admin.ID
		}); err != nil {
			return err
		}
		published, err := s.moveEvent(txCtx, event, domain.EventStatusPublished, now, func(e *domain.Event) {
			e.ApprovedBy = admin.ID
			e.ApprovedAt = &now
		})
		if err != nil {
			return err
		}

		result = published
		return nil
	})
	if err != nil {
		return domain.Event{}, s.explainHoldConflict(ctx, holdID, err, true)
	}
	return result, nil
}

// RejectEvent rejects an event waiting on approval, with or without a
// confirmed hold, and cancels whatever hold is still active on it.
func (s *ReservationService) RejectEvent(ctx context.Context, eventID string, admin domain.Actor, reason string) (domain.Event, error) {
	return s.reject(ctx, eventID, admin, reason,
		domain.EventStatusPendingApproval,
		domain.EventStatusPencilHoldConfirmed,
	)
}

// ExpireStaleHolds expires every pending hold whose deadline is at or before
// now. Each hold is settled in its own transaction; a hold that a concurrent
// confirm or cancel got to first is skipped, not treated as a failure. On
// context cancellation the holds already committed are returned with the
// context error.
func (s *ReservationService) ExpireStaleHolds(ctx context.Context, now time.Time) ([]domain.PencilHold, error) {
	var (
		expired []domain.PencilHold
		errs    []error
	)

	for {
		stale, err := s.holds.ListStaleHolds(ctx, now, s.sweepBatch)
		if err != nil {
			return expired, err
		}
		if len(stale) == 0 {
			break
		}

		progress := 0
		for _, candidate := range stale {
			if err := ctx.Err(); err != nil {
				return expired, err
			}
			hold, err := s.expireOne(ctx, candidate.ID, now)
			switch {
			case err == nil:
				expired = append(expired, hold)
				progress++
			case errors.Is(err, domain.ErrStaleState):
				s.logger.Debug("sweep skipped hold settled concurrently", "hold_id", candidate.ID)
			default:
				s.logger.Warn("sweep failed to expire hold", "hold_id", candidate.ID, "error", err)
				errs = append(errs, err)
			}
		}

		if len(stale) < s.sweepBatch || progress == 0 {
			break
		}
	}

	return expired, errors.Join(errs...)
}

func (s *ReservationService) expireOne(ctx context.Context, holdID string, now time.Time) (domain.PencilHold, error) {
	var result domain.PencilHold
	err := s.events.WithTx(ctx, func(txCtx context.Context) error {
		hold, err := s.holds.GetHold(txCtx, holdID)
		if err != nil {
			return err
		}
		if !hold.Stale(now) {
			return domain.ErrStaleState
		}
		event, err := s.events.LockEvent(txCtx, hold.EventID)
		if err != nil {
			return err
		}
		expired, _, err := s.expireHold(txCtx, hold, event, now)
		if err != nil {
			return err
		}
		result = expired
		return nil
	})
	return result, err
}

// GetHold reads a hold as of now; a pending hold past its deadline is
// reported expired even if the sweep has not stored that yet.
func (s *ReservationService) GetHold(ctx context.Context, holdID string) (domain.PencilHold, error) {
	if holdID == "" {
		return domain.PencilHold{}, domain.ErrInvalidID
	}
	hold, err := s.holds.GetHold(ctx, holdID)
	if err != nil {
		return domain.PencilHold{}, err
	}
	return hold.ViewAt(s.clock.Now()), nil
}

// ListEventHolds returns the full hold history of an event, oldest first.
func (s *ReservationService) ListEventHolds(ctx context.Context, eventID string) ([]domain.PencilHold, error) {
	if _, err := s.events.GetEvent(ctx, eventID); err != nil {
		return nil, err
	}
	holds, err := s.holds.ListHoldsByEvent(ctx, eventID)
	if err != nil {
		return nil, err
	}
	now := s.clock.Now()
	for i := range holds {
		holds[i] = holds[i].ViewAt(now)
	}
	return holds, nil
}

// expireHold moves a stale hold to expired and releases its event.
func (s *ReservationService) expireHold(ctx context.Context, hold domain.PencilHold, event domain.Event, now time.Time) (domain.PencilHold, domain.Event, error) {
	expired, err := s.moveHold(ctx, hold, domain.HoldStatusExpired, now, nil)
	if err != nil {
		return hold, event, err
	}
	released, err := s.releaseEvent(ctx, event, now)
	if err != nil {
		return hold, event, err
	}
	return expired, released, nil
}

// releaseEvent returns a held event to draft. Events in any other status are
// no longer held by the hold being released and are left alone.
func (s *ReservationService) releaseEvent(ctx context.Context, event domain.Event, now time.Time) (domain.Event, error) {
	switch event.Status {
	case domain.EventStatusPencilHold, domain.EventStatusPencilHoldConfirmed:
		return s.moveEvent(ctx, event, domain.EventStatusDraft, now, nil)
	default:
		return event, nil
	}
}

func (s *ReservationService) moveEvent(ctx context.Context, event domain.Event, to domain.EventStatus, now time.Time, stamp func(*domain.Event)) (domain.Event, error) {
	next, err := lifecycle.Event(event.Status, to)
	if err != nil {
		return event, err
	}
	updated := event
	updated.Status = next
	updated.UpdatedAt = now
	if stamp != nil {
		stamp(&updated)
	}
	if err := s.events.UpdateEvent(ctx, updated, event.Status); err != nil {
		return event, err
	}
	return updated, nil
}

func (s *ReservationService) moveHold(ctx context.Context, hold domain.PencilHold, to domain.HoldStatus, now time.Time, stamp func(*domain.PencilHold)) (domain.PencilHold, error) {
	next, err := lifecycle.Hold(hold.Status, to, lifecycle.Context{Now: now, ExpiresAt: hold.ExpiresAt})
	if err != nil {
		return hold, err
	}
	updated := hold
	updated.Status = next
	updated.UpdatedAt = now
	if lifecycle.IsTerminalHold(next) {
		updated.ResolvedAt = &now
	}
	if stamp != nil {
		stamp(&updated)
	}
	if err := s.holds.UpdateHold(ctx, updated, hold.Status); err != nil {
		return hold, err
	}
	return updated, nil
}

// explainHoldConflict turns a lost conditional write into the reason the
// caller lost: the hold expired, or (when confirming) someone else already
// confirmed it.
func (s *ReservationService) explainHoldConflict(ctx context.Context, holdID string, err error, confirming bool) error {
	if !errors.Is(err, domain.ErrStaleState) {
		return err
	}
	hold, readErr := s.holds.GetHold(ctx, holdID)
	if readErr != nil {
		return err
	}
	stateErr := holdStateError(hold.ViewAt(s.clock.Now()))
	if errors.Is(stateErr, domain.ErrHoldExpired) || (confirming && stateErr != nil) {
		return stateErr
	}
	return err
}

// holdStateError reports the error for acting on a hold that is already
// confirmed or expired, or nil.
func holdStateError(hold domain.PencilHold) error {
	switch hold.Status {
	case domain.HoldStatusConfirmed, domain.HoldStatusConverted:
		return domain.ErrHoldAlreadyConfirmed
	case domain.HoldStatusExpired:
		return domain.ErrHoldExpired
	}
	return nil
}

func roleOf(actor domain.Actor) domain.Role {
	if actor.Role == "" {
		return domain.RoleOrganizer
	}
	return actor.Role
}
