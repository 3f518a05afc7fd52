package domain

import (
	"errors"
	"fmt"
)

// Kind classifies an error so callers can map it to a transport status
// without matching individual sentinels.
type Kind string

const (
	KindNotFound          Kind = "not_found"
	KindForbidden         Kind = "forbidden"
	KindConflict          Kind = "conflict"
	KindInvalidTransition Kind = "invalid_transition"
	KindStateExpired      Kind = "state_expired"
	KindValidation        Kind = "validation"
	KindInternal          Kind = "internal"
)

// Error is a domain failure with a stable kind and code.
type Error struct {
	Kind Kind
	Code string
	Msg  string
}

func (e *Error) Error() string {
	return e.Msg
}

func newError(kind Kind, code, msg string) *Error {
	return &Error{Kind: kind, Code: code, Msg: msg}
}

var (
	ErrEventNotFound = newError(KindNotFound, "event_not_found", "event not found")
	ErrHoldNotFound  = newError(KindNotFound, "hold_not_found", "hold not found")

	ErrNotEventOwner = newError(KindForbidden, "not_event_owner", "actor does not own the event")
	ErrNotHoldOwner  = newError(KindForbidden, "not_hold_owner", "actor does not own the hold")
	ErrAdminRequired = newError(KindForbidden, "admin_required", "admin role required")

	ErrActiveHoldExists     = newError(KindConflict, "active_hold_exists", "event already has an active hold")
	ErrHoldAlreadyConfirmed = newError(KindConflict, "hold_already_confirmed", "hold already confirmed")
	ErrStaleState           = newError(KindConflict, "stale_state", "record changed concurrently")

	ErrInvalidTransition = newError(KindInvalidTransition, "invalid_transition", "invalid status transition")
	ErrTerminalHold      = newError(KindInvalidTransition, "hold_terminal", "hold is in a terminal status")
	ErrHoldNotYetExpired = newError(KindInvalidTransition, "hold_not_expired", "hold has not reached its deadline")
	ErrEventNotEnded     = newError(KindInvalidTransition, "event_not_ended", "event schedule has not ended")

	ErrHoldExpired = newError(KindStateExpired, "hold_expired", "hold expired")

	ErrReasonRequired     = newError(KindValidation, "reason_required", "reason is required")
	ErrInvalidPriority    = newError(KindValidation, "invalid_priority", "priority must be between 1 and 10")
	ErrInvalidID          = newError(KindValidation, "invalid_id", "invalid id")
	ErrActorRequired      = newError(KindValidation, "actor_required", "actor id is required")
	ErrEventTitleRequired = newError(KindValidation, "event_title_required", "event title is required")
	ErrInvalidCapacity    = newError(KindValidation, "invalid_capacity", "capacity must be positive")
	ErrInvalidSchedule    = newError(KindValidation, "invalid_schedule", "event must end after it starts")
)

// KindOf reports the kind of err, or KindInternal when err carries none.
func KindOf(err error) Kind {
	var de *Error
	if errors.As(err, &de) {
		return de.Kind
	}
	return KindInternal
}

// CodeOf reports the stable code of err, or "internal_error".
func CodeOf(err error) string {
	var de *Error
	if errors.As(err, &de) {
		return de.Code
	}
	return "internal_error"
}

// TransitionError describes a requested edge that is not in a transition table.
type TransitionError struct {
	Entity string
	From   string
	To     string
	Err    error
}

func (e *TransitionError) Error() string {
	return fmt.Sprintf("%s: %s -> %s: %v", e.Entity, e.From, e.To, e.Err)
}

func (e *TransitionError) Unwrap() error {
	return e.Err
}
