// Package lifecycle holds the transition tables for events and pencil holds.
// It performs no I/O; every function is a pure check of a requested edge.
package lifecycle

import (
	"time"

	"github.com/cimillas/event-lifecycle/internal/domain"
)

const (
	EntityEvent = "event"
	EntityHold  = "hold"
)

// Trigger names what drives an edge.
type Trigger string

const (
	TriggerHoldCreated   Trigger = "hold_created"
	TriggerHoldConfirmed Trigger = "hold_confirmed"
	TriggerHoldReleased  Trigger = "hold_released"
	TriggerSubmitted     Trigger = "submitted"
	TriggerApproved      Trigger = "approved"
	TriggerRejected      Trigger = "rejected"
	TriggerDeferred      Trigger = "deferred"
	TriggerUnpublished   Trigger = "unpublished"
	TriggerCancelled     Trigger = "cancelled"
	TriggerCompleted     Trigger = "completed"
	TriggerSoftDeleted   Trigger = "soft_deleted"
	TriggerExpired       Trigger = "expired"
	TriggerConverted     Trigger = "converted"
)

type eventEdge struct {
	from, to domain.EventStatus
}

type holdEdge struct {
	from, to domain.HoldStatus
}

var eventTable = map[eventEdge]Trigger{
	{domain.EventStatusDraft, domain.EventStatusPencilHold}:      TriggerHoldCreated,
	{domain.EventStatusDraft, domain.EventStatusPendingApproval}: TriggerSubmitted,
	{domain.EventStatusDraft, domain.EventStatusDeleted}:         TriggerSoftDeleted,

	{domain.EventStatusPencilHold, domain.EventStatusPencilHoldConfirmed}: TriggerHoldConfirmed,
	{domain.EventStatusPencilHold, domain.EventStatusDraft}:               TriggerHoldReleased,
	{domain.EventStatusPencilHold, domain.EventStatusDeleted}:             TriggerSoftDeleted,

	{domain.EventStatusPencilHoldConfirmed, domain.EventStatusPublished}:       TriggerApproved,
	{domain.EventStatusPencilHoldConfirmed, domain.EventStatusRejected}:        TriggerRejected,
	{domain.EventStatusPencilHoldConfirmed, domain.EventStatusPendingApproval}: TriggerDeferred,
	{domain.EventStatusPencilHoldConfirmed, domain.EventStatusDraft}:           TriggerHoldReleased,

	{domain.EventStatusPendingApproval, domain.EventStatusPublished}: TriggerApproved,
	{domain.EventStatusPendingApproval, domain.EventStatusRejected}:  TriggerRejected,

	{domain.EventStatusPublished, domain.EventStatusUnpublished}: TriggerUnpublished,
	{domain.EventStatusPublished, domain.EventStatusCancelled}:   TriggerCancelled,
	{domain.EventStatusPublished, domain.EventStatusCompleted}:   TriggerCompleted,
	{domain.EventStatusPublished, domain.EventStatusDeleted}:     TriggerSoftDeleted,
}

var holdTable = map[holdEdge]Trigger{
	{domain.HoldStatusPending, domain.HoldStatusConfirmed}: TriggerHoldConfirmed,
	{domain.HoldStatusPending, domain.HoldStatusCancelled}: TriggerCancelled,
	{domain.HoldStatusPending, domain.HoldStatusExpired}:   TriggerExpired,

	{domain.HoldStatusConfirmed, domain.HoldStatusConverted}: TriggerConverted,
	{domain.HoldStatusConfirmed, domain.HoldStatusCancelled}: TriggerCancelled,
}

// Context carries the timestamps a hold transition is judged against.
// Now and ExpiresAt are stored instants, never local wall-clock readings.
type Context struct {
	Now       time.Time
	ExpiresAt time.Time
}

// Event validates an event status change and returns the new status.
func Event(from, to domain.EventStatus) (domain.EventStatus, error) {
	if _, ok := eventTable[eventEdge{from, to}]; !ok {
		return from, &domain.TransitionError{
			Entity: EntityEvent,
			From:   string(from),
			To:     string(to),
			Err:    domain.ErrInvalidTransition,
		}
	}
	return to, nil
}

// Hold validates a hold status change. Confirming a pending hold at or after
// its deadline fails with ErrHoldExpired; expiring one before it fails with
// ErrHoldNotYetExpired. When both are requested for the same instant the
// stored deadline decides, so exactly one can succeed.
func Hold(from, to domain.HoldStatus, c Context) (domain.HoldStatus, error) {
	if IsTerminalHold(from) {
		return from, &domain.TransitionError{
			Entity: EntityHold,
			From:   string(from),
			To:     string(to),
			Err:    domain.ErrTerminalHold,
		}
	}
	if _, ok := holdTable[holdEdge{from, to}]; !ok {
		return from, &domain.TransitionError{
			Entity: EntityHold,
			From:   string(from),
			To:     string(to),
			Err:    domain.ErrInvalidTransition,
		}
	}

	if from == domain.HoldStatusPending {
		expired := !c.Now.Before(c.ExpiresAt)
		switch to {
		case domain.HoldStatusConfirmed:
			if expired {
				return from, domain.ErrHoldExpired
			}
		case domain.HoldStatusExpired:
			if !expired {
				return from, &domain.TransitionError{
					Entity: EntityHold,
					From:   string(from),
					To:     string(to),
					Err:    domain.ErrHoldNotYetExpired,
				}
			}
		}
	}
	return to, nil
}

// Transition is the entity-agnostic form of Event and Hold.
func Transition(entity, current, requested string, c Context) (string, error) {
	switch entity {
	case EntityEvent:
		next, err := Event(domain.EventStatus(current), domain.EventStatus(requested))
		return string(next), err
	case EntityHold:
		next, err := Hold(domain.HoldStatus(current), domain.HoldStatus(requested), c)
		return string(next), err
	default:
		return current, &domain.TransitionError{
			Entity: entity,
			From:   current,
			To:     requested,
			Err:    domain.ErrInvalidTransition,
		}
	}
}

// Restore returns a deleted event to the status it had before deletion.
func Restore(current, prior domain.EventStatus) (domain.EventStatus, error) {
	if current != domain.EventStatusDeleted || prior == domain.EventStatusDeleted || !prior.Valid() {
		return current, &domain.TransitionError{
			Entity: EntityEvent,
			From:   string(current),
			To:     string(prior),
			Err:    domain.ErrInvalidTransition,
		}
	}
	return prior, nil
}

// EventTrigger reports what drives an event edge, if it exists.
func EventTrigger(from, to domain.EventStatus) (Trigger, bool) {
	t, ok := eventTable[eventEdge{from, to}]
	return t, ok
}

// HoldTrigger reports what drives a hold edge, if it exists.
func HoldTrigger(from, to domain.HoldStatus) (Trigger, bool) {
	t, ok := holdTable[holdEdge{from, to}]
	return t, ok
}

// EventTargets lists the statuses reachable from an event status.
func EventTargets(from domain.EventStatus) []domain.EventStatus {
	var out []domain.EventStatus
	for _, to := range domain.EventStatuses {
		if _, ok := eventTable[eventEdge{from, to}]; ok {
			out = append(out, to)
		}
	}
	return out
}

// HoldTargets lists the statuses reachable from a hold status.
func HoldTargets(from domain.HoldStatus) []domain.HoldStatus {
	var out []domain.HoldStatus
	for _, to := range domain.HoldStatuses {
		if _, ok := holdTable[holdEdge{from, to}]; ok {
			out = append(out, to)
		}
	}
	return out
}

func IsTerminalEvent(s domain.EventStatus) bool {
	return len(EventTargets(s)) == 0
}

func IsTerminalHold(s domain.HoldStatus) bool {
	return len(HoldTargets(s)) == 0
}
