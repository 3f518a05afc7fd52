package app

import (
	"context"
	"time"

	"github.com/cimillas/event-lifecycle/internal/domain"
)

// EventRepository persists events. UpdateEvent is a conditional write: it
// succeeds only while the stored status still equals from, and returns
// domain.ErrStaleState otherwise.
//
// LockEvent reads an event and holds its row until the surrounding
// transaction ends. Every mutating operation locks the event before it
// writes the event or any of its holds, so writers always queue on the event
// row first.
type EventRepository interface {
	WithTx(ctx context.Context, fn func(ctx context.Context) error) error
	CreateEvent(ctx context.Context, event domain.Event) error
	GetEvent(ctx context.Context, id string) (domain.Event, error)
	LockEvent(ctx context.Context, id string) (domain.Event, error)
	ListEvents(ctx context.Context, filter EventFilter) ([]domain.Event, error)
	UpdateEvent(ctx context.Context, event domain.Event, from domain.EventStatus) error
}

// HoldRepository persists pencil holds. CreateHold returns
// domain.ErrActiveHoldExists when the event already has an active hold, and
// UpdateHold is conditional on the stored status equal to from.
type HoldRepository interface {
	CreateHold(ctx context.Context, hold domain.PencilHold) error
	GetHold(ctx context.Context, id string) (domain.PencilHold, error)
	FindActiveHold(ctx context.Context, eventID string) (*domain.PencilHold, error)
	ListHoldsByEvent(ctx context.Context, eventID string) ([]domain.PencilHold, error)
	ListStaleHolds(ctx context.Context, now time.Time, limit int) ([]domain.PencilHold, error)
	UpdateHold(ctx context.Context, hold domain.PencilHold, from domain.HoldStatus) error
}

// EventFilter narrows ListEvents. Zero values match everything except
// deleted events, which are only listed when IncludeDeleted is set.
type EventFilter struct {
	OwnerID        string
	Status         domain.EventStatus
	IncludeDeleted bool
}

// Matches reports whether event passes the filter.
func (f EventFilter) Matches(event domain.Event) bool {
	if f.OwnerID != "" && event.OwnerID != f.OwnerID {
		return false
	}
	if f.Status != "" && event.Status != f.Status {
		return false
	}
	if event.IsDeleted && !f.IncludeDeleted && f.Status != domain.EventStatusDeleted {
		return false
	}
	return true
}
