package app

import (
	"context"
	"strings"
	"time"

	"github.com/cimillas/event-lifecycle/internal/domain"
	"github.com/cimillas/event-lifecycle/internal/lifecycle"
)

// ApproveEventDirect publishes an event that reached pending_approval without
// going through ApproveHold. A confirmed hold left behind by DeferToApproval
// is converted alongside.
func (s *ReservationService) ApproveEventDirect(ctx context.Context, eventID string, admin domain.Actor) (domain.Event, error) {
	if !admin.IsAdmin() {
		return domain.Event{}, domain.ErrAdminRequired
	}
	return s.updateEvent(ctx, eventID, func(txCtx context.Context, event domain.Event, now time.Time) (domain.Event, error) {
		if err := requireStatus(event, domain.EventStatusPublished, domain.EventStatusPendingApproval); err != nil {
			return event, err
		}
		published, err := s.moveEvent(txCtx, event, domain.EventStatusPublished, now, func(e *domain.Event) {
			e.ApprovedBy = admin.ID
			e.ApprovedAt = &now
		})
		if err != nil {
			return event, err
		}

		active, err := s.holds.FindActiveHold(txCtx, event.ID)
		if err != nil {
			return event, err
		}
		if active != nil && active.Status == domain.HoldStatusConfirmed {
			if _, err := s.moveHold(txCtx, *active, domain.HoldStatusConverted, now, func(h *domain.PencilHold) {
				h.ResolvedBy = admin.ID
			}); err != nil {
				return event, err
			}
		}
		return published, nil
	})
}

// RejectEventDirect rejects an event submitted for approval without a hold.
func (s *ReservationService) RejectEventDirect(ctx context.Context, eventID string, admin domain.Actor, reason string) (domain.Event, error) {
	return s.reject(ctx, eventID, admin, reason, domain.EventStatusPendingApproval)
}

func (s *ReservationService) reject(ctx context.Context, eventID string, admin domain.Actor, reason string, allowed ...domain.EventStatus) (domain.Event, error) {
	reason = strings.TrimSpace(reason)
	if reason == "" {
		return domain.Event{}, domain.ErrReasonRequired
	}
	if !admin.IsAdmin() {
		return domain.Event{}, domain.ErrAdminRequired
	}
	return s.updateEvent(ctx, eventID, func(txCtx context.Context, event domain.Event, now time.Time) (domain.Event, error) {
		if err := requireStatus(event, domain.EventStatusRejected, allowed...); err != nil {
			return event, err
		}
		rejected, err := s.moveEvent(txCtx, event, domain.EventStatusRejected, now, func(e *domain.Event) {
			e.RejectedBy = admin.ID
			e.RejectedAt = &now
			e.RejectReason = reason
		})
		if err != nil {
			return event, err
		}
		if err := s.cancelActiveHold(txCtx, event.ID, admin, reason, now); err != nil {
			return event, err
		}
		return rejected, nil
	})
}

// SubmitForApproval sends a draft event straight to the approval queue.
func (s *ReservationService) SubmitForApproval(ctx context.Context, eventID string, actor domain.Actor) (domain.Event, error) {
	return s.updateEvent(ctx, eventID, func(txCtx context.Context, event domain.Event, now time.Time) (domain.Event, error) {
		if event.OwnerID != actor.ID {
			return event, domain.ErrNotEventOwner
		}
		return s.moveEvent(txCtx, event, domain.EventStatusPendingApproval, now, nil)
	})
}

// DeferToApproval moves an event with a confirmed hold into the approval
// queue. The hold stays confirmed until the event is approved or rejected.
func (s *ReservationService) DeferToApproval(ctx context.Context, eventID string, admin domain.Actor) (domain.Event, error) {
	if !admin.IsAdmin() {
		return domain.Event{}, domain.ErrAdminRequired
	}
	return s.updateEvent(ctx, eventID, func(txCtx context.Context, event domain.Event, now time.Time) (domain.Event, error) {
		if err := requireStatus(event, domain.EventStatusPendingApproval, domain.EventStatusPencilHoldConfirmed); err != nil {
			return event, err
		}
		return s.moveEvent(txCtx, event, domain.EventStatusPendingApproval, now, nil)
	})
}

func (s *ReservationService) UnpublishEvent(ctx context.Context, eventID string, admin domain.Actor) (domain.Event, error) {
	if !admin.IsAdmin() {
		return domain.Event{}, domain.ErrAdminRequired
	}
	return s.updateEvent(ctx, eventID, func(txCtx context.Context, event domain.Event, now time.Time) (domain.Event, error) {
		return s.moveEvent(txCtx, event, domain.EventStatusUnpublished, now, func(e *domain.Event) {
			e.UnpublishedBy = admin.ID
			e.UnpublishedAt = &now
		})
	})
}

// CancelEvent calls off a published event. The owner or an admin may do it
// and must say why.
func (s *ReservationService) CancelEvent(ctx context.Context, eventID string, actor domain.Actor, reason string) (domain.Event, error) {
	reason = strings.TrimSpace(reason)
	if reason == "" {
		return domain.Event{}, domain.ErrReasonRequired
	}
	return s.updateEvent(ctx, eventID, func(txCtx context.Context, event domain.Event, now time.Time) (domain.Event, error) {
		if event.OwnerID != actor.ID && !actor.IsAdmin() {
			return event, domain.ErrNotEventOwner
		}
		return s.moveEvent(txCtx, event, domain.EventStatusCancelled, now, func(e *domain.Event) {
			e.CancelledBy = actor.ID
			e.CancelledAt = &now
			e.CancelReason = reason
		})
	})
}

// CompleteEvent marks a published event completed once its schedule has ended.
func (s *ReservationService) CompleteEvent(ctx context.Context, eventID string, admin domain.Actor) (domain.Event, error) {
	if !admin.IsAdmin() {
		return domain.Event{}, domain.ErrAdminRequired
	}
	return s.updateEvent(ctx, eventID, func(txCtx context.Context, event domain.Event, now time.Time) (domain.Event, error) {
		if now.Before(event.EndsAt) {
			return event, &domain.TransitionError{
				Entity: lifecycle.EntityEvent,
				From:   string(event.Status),
				To:     string(domain.EventStatusCompleted),
				Err:    domain.ErrEventNotEnded,
			}
		}
		return s.moveEvent(txCtx, event, domain.EventStatusCompleted, now, func(e *domain.Event) {
			e.CompletedAt = &now
		})
	})
}

// SoftDeleteEvent flags an event deleted. A held event first has its hold
// cancelled and returns to draft, so a later restore never revives a hold
// state without a hold behind it.
func (s *ReservationService) SoftDeleteEvent(ctx context.Context, eventID string, actor domain.Actor) (domain.Event, error) {
	return s.updateEvent(ctx, eventID, func(txCtx context.Context, event domain.Event, now time.Time) (domain.Event, error) {
		if event.OwnerID != actor.ID && !actor.IsAdmin() {
			return event, domain.ErrNotEventOwner
		}
		if _, err := lifecycle.Event(event.Status, domain.EventStatusDeleted); err != nil {
			return event, err
		}

		current := event
		if current.Status == domain.EventStatusPencilHold {
			if err := s.cancelActiveHold(txCtx, current.ID, actor, "event deleted", now); err != nil {
				return event, err
			}
			released, err := s.releaseEvent(txCtx, current, now)
			if err != nil {
				return event, err
			}
			current = released
		}

		prior := current.Status
		return s.moveEvent(txCtx, current, domain.EventStatusDeleted, now, func(e *domain.Event) {
			e.IsDeleted = true
			e.DeletedBy = actor.ID
			e.DeletedAt = &now
			e.StatusBeforeDelete = prior
		})
	})
}

// RestoreEvent returns a soft-deleted event to the status it had before.
func (s *ReservationService) RestoreEvent(ctx context.Context, eventID string, admin domain.Actor) (domain.Event, error) {
	if !admin.IsAdmin() {
		return domain.Event{}, domain.ErrAdminRequired
	}
	return s.updateEvent(ctx, eventID, func(txCtx context.Context, event domain.Event, now time.Time) (domain.Event, error) {
		next, err := lifecycle.Restore(event.Status, event.StatusBeforeDelete)
		if err != nil {
			return event, err
		}
		restored := event
		restored.Status = next
		restored.UpdatedAt = now
		restored.IsDeleted = false
		restored.DeletedBy = ""
		restored.DeletedAt = nil
		restored.StatusBeforeDelete = ""
		if err := s.events.UpdateEvent(txCtx, restored, event.Status); err != nil {
			return event, err
		}
		return restored, nil
	})
}

func (s *ReservationService) updateEvent(ctx context.Context, eventID string, fn func(ctx context.Context, event domain.Event, now time.Time) (domain.Event, error)) (domain.Event, error) {
	if eventID == "" {
		return domain.Event{}, domain.ErrInvalidID
	}
	now := s.clock.Now()
	var result domain.Event

	err := s.events.WithTx(ctx, func(txCtx context.Context) error {
		event, err := s.events.LockEvent(txCtx, eventID)
		if err != nil {
			return err
		}
		updated, err := fn(txCtx, event, now)
		if err != nil {
			return err
		}
		result = updated
		return nil
	})
	if err != nil {
		return domain.Event{}, err
	}
	return result, nil
}

// cancelActiveHold cancels the event's active hold, if any. A pending hold
// already past its deadline is expired instead, with no actor or reason.
func (s *ReservationService) cancelActiveHold(ctx context.Context, eventID string, actor domain.Actor, reason string, now time.Time) error {
	active, err := s.holds.FindActiveHold(ctx, eventID)
	if err != nil || active == nil {
		return err
	}
	if active.Stale(now) {
		_, err = s.moveHold(ctx, *active, domain.HoldStatusExpired, now, nil)
		return err
	}
	_, err = s.moveHold(ctx, *active, domain.HoldStatusCancelled, now, func(h *domain.PencilHold) {
		h.ResolvedBy = actor.ID
		h.CancelReason = reason
	})
	return err
}

// requireStatus narrows an operation to the given source statuses even when
// the table allows more, reporting the attempted edge otherwise.
func requireStatus(event domain.Event, to domain.EventStatus, allowed ...domain.EventStatus) error {
	for _, status := range allowed {
		if event.Status == status {
			return nil
		}
	}
	return &domain.TransitionError{
		Entity: lifecycle.EntityEvent,
		From:   string(event.Status),
		To:     string(to),
		Err:    domain.ErrInvalidTransition,
	}
}
