// Package memory is an in-process store for local runs and service tests.
// It gives the same guarantees the Postgres repositories do: conditional
// status updates, one active hold per event, and transactions that either
// commit whole or leave nothing behind.
package memory

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/cimillas/event-lifecycle/internal/app"
	"github.com/cimillas/event-lifecycle/internal/domain"
)

type txKey struct{}

// Store holds events and holds behind a single mutex. A transaction keeps the
// mutex for its whole duration; operations outside one take it per call.
type Store struct {
	mu     sync.Mutex
	events map[string]domain.Event
	holds  map[string]domain.PencilHold
}

func NewStore() *Store {
	return &Store{
		events: make(map[string]domain.Event),
		holds:  make(map[string]domain.PencilHold),
	}
}

// WithTx runs fn with exclusive access to the store. If fn fails, every write
// it made is discarded.
func (s *Store) WithTx(ctx context.Context, fn func(ctx context.Context) error) error {
	if s.inTx(ctx) {
		return fn(ctx)
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	events := make(map[string]domain.Event, len(s.events))
	for id, e := range s.events {
		events[id] = e
	}
	holds := make(map[string]domain.PencilHold, len(s.holds))
	for id, h := range s.holds {
		holds[id] = h
	}

	if err := fn(context.WithValue(ctx, txKey{}, s)); err != nil {
		s.events = events
		s.holds = holds
		return err
	}
	return nil
}

func (s *Store) inTx(ctx context.Context) bool {
	owner, _ := ctx.Value(txKey{}).(*Store)
	return owner == s
}

// lock takes the mutex unless ctx already runs inside this store's
// transaction, and returns the matching unlock.
func (s *Store) lock(ctx context.Context) func() {
	if s.inTx(ctx) {
		return func() {}
	}
	s.mu.Lock()
	return s.mu.Unlock
}

func (s *Store) CreateEvent(ctx context.Context, event domain.Event) error {
	defer s.lock(ctx)()
	if event.ID == "" {
		return domain.ErrInvalidID
	}
	s.events[event.ID] = event
	return nil
}

func (s *Store) GetEvent(ctx context.Context, id string) (domain.Event, error) {
	defer s.lock(ctx)()
	event, ok := s.events[id]
	if !ok {
		return domain.Event{}, domain.ErrEventNotFound
	}
	return event, nil
}

// LockEvent is GetEvent; transactions on the store already run one at a time.
func (s *Store) LockEvent(ctx context.Context, id string) (domain.Event, error) {
	return s.GetEvent(ctx, id)
}

func (s *Store) ListEvents(ctx context.Context, filter app.EventFilter) ([]domain.Event, error) {
	defer s.lock(ctx)()
	out := make([]domain.Event, 0, len(s.events))
	for _, e := range s.events {
		if filter.Matches(e) {
			out = append(out, e)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].ID < out[j].ID
		}
		return out[i].CreatedAt.Before(out[j].CreatedAt)
	})
	return out, nil
}

func (s *Store) UpdateEvent(ctx context.Context, event domain.Event, from domain.EventStatus) error {
	defer s.lock(ctx)()
	current, ok := s.events[event.ID]
	if !ok {
		return domain.ErrEventNotFound
	}
	if current.Status != from {
		return domain.ErrStaleState
	}
	// Identity and creation fields are not writable through an update.
	event.OwnerID = current.OwnerID
	event.CreatedAt = current.CreatedAt
	s.events[event.ID] = event
	return nil
}

func (s *Store) CreateHold(ctx context.Context, hold domain.PencilHold) error {
	defer s.lock(ctx)()
	if hold.ID == "" {
		return domain.ErrInvalidID
	}
	if _, ok := s.events[hold.EventID]; !ok {
		return domain.ErrEventNotFound
	}
	if hold.Status.Active() {
		for _, h := range s.holds {
			if h.EventID == hold.EventID && h.Status.Active() {
				return domain.ErrActiveHoldExists
			}
		}
	}
	s.holds[hold.ID] = hold
	return nil
}

func (s *Store) GetHold(ctx context.Context, id string) (domain.PencilHold, error) {
	defer s.lock(ctx)()
	hold, ok := s.holds[id]
	if !ok {
		return domain.PencilHold{}, domain.ErrHoldNotFound
	}
	return hold, nil
}

func (s *Store) FindActiveHold(ctx context.Context, eventID string) (*domain.PencilHold, error) {
	defer s.lock(ctx)()
	for _, h := range s.holds {
		if h.EventID == eventID && h.Status.Active() {
			found := h
			return &found, nil
		}
	}
	return nil, nil
}

func (s *Store) ListHoldsByEvent(ctx context.Context, eventID string) ([]domain.PencilHold, error) {
	defer s.lock(ctx)()
	var out []domain.PencilHold
	for _, h := range s.holds {
		if h.EventID == eventID {
			out = append(out, h)
		}
	}
	sortHolds(out)
	return out, nil
}

func (s *Store) ListStaleHolds(ctx context.Context, now time.Time, limit int) ([]domain.PencilHold, error) {
	defer s.lock(ctx)()
	var out []domain.PencilHold
	for _, h := range s.holds {
		if h.Stale(now) {
			out = append(out, h)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].ExpiresAt.Equal(out[j].ExpiresAt) {
			return out[i].ID < out[j].ID
		}
		return out[i].ExpiresAt.Before(out[j].ExpiresAt)
	})
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (s *Store) UpdateHold(ctx context.Context, hold domain.PencilHold, from domain.HoldStatus) error {
	defer s.lock(ctx)()
	current, ok := s.holds[hold.ID]
	if !ok {
		return domain.ErrHoldNotFound
	}
	if current.Status != from {
		return domain.ErrStaleState
	}
	// Everything fixed at creation stays as stored.
	hold.EventID = current.EventID
	hold.OrganizerID = current.OrganizerID
	hold.CreatedAt = current.CreatedAt
	hold.ExpiresAt = current.ExpiresAt
	s.holds[hold.ID] = hold
	return nil
}

func sortHolds(holds []domain.PencilHold) {
	sort.Slice(holds, func(i, j int) bool {
		if holds[i].CreatedAt.Equal(holds[j].CreatedAt) {
			return holds[i].ID < holds[j].ID
		}
		return holds[i].CreatedAt.Before(holds[j].CreatedAt)
	})
}
