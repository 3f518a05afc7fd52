package app

import (
	"context"
	"strings"
	"time"

	"github.com/cimillas/event-lifecycle/internal/clock"
	"github.com/cimillas/event-lifecycle/internal/domain"
)

// EventService covers event creation and reads. Status changes go through
// ReservationService.
type EventService struct {
	repo  EventRepository
	clock clock.Clock
}

func NewEventService(repo EventRepository, clk clock.Clock) *EventService {
	return &EventService{
		repo:  repo,
		clock: clk,
	}
}

type CreateEventInput struct {
	Actor    domain.Actor
	Title    string
	Capacity int
	StartsAt time.Time
	EndsAt   time.Time
}

func (s *EventService) CreateEvent(ctx context.Context, in CreateEventInput) (domain.Event, error) {
	if in.Actor.ID == "" {
		return domain.Event{}, domain.ErrActorRequired
	}
	title := strings.TrimSpace(in.Title)
	if title == "" {
		return domain.Event{}, domain.ErrEventTitleRequired
	}
	if in.Capacity <= 0 {
		return domain.Event{}, domain.ErrInvalidCapacity
	}
	if in.StartsAt.IsZero() || !in.EndsAt.After(in.StartsAt) {
		return domain.Event{}, domain.ErrInvalidSchedule
	}

	now := s.clock.Now()
	event := domain.Event{
		ID:        newUUID(),
		Title:     title,
		OwnerID:   in.Actor.ID,
		Capacity:  in.Capacity,
		StartsAt:  in.StartsAt.UTC(),
		EndsAt:    in.EndsAt.UTC(),
		Status:    domain.EventStatusDraft,
		CreatedAt: now,
		UpdatedAt: now,
	}

	if err := s.repo.CreateEvent(ctx, event); err != nil {
		return domain.Event{}, err
	}
	return event, nil
}

func (s *EventService) GetEvent(ctx context.Context, id string) (domain.Event, error) {
	if id == "" {
		return domain.Event{}, domain.ErrInvalidID
	}
	return s.repo.GetEvent(ctx, id)
}

func (s *EventService) ListEvents(ctx context.Context, filter EventFilter) ([]domain.Event, error) {
	return s.repo.ListEvents(ctx, filter)
}
