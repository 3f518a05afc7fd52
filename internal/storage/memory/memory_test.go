package memory

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/cimillas/event-lifecycle/internal/app"
	"github.com/cimillas/event-lifecycle/internal/domain"
)

var base = time.Date(2025, 1, 1, 12, 0, 0, 0, time.UTC)

func seed(t *testing.T, s *Store) (domain.Event, domain.PencilHold) {
	t.Helper()
	ctx := context.Background()
	event := domain.Event{ID: "event-1", Title: "Gala", OwnerID: "org-1", Status: domain.EventStatusPencilHold, CreatedAt: base}
	if err := s.CreateEvent(ctx, event); err != nil {
		t.Fatalf("create event: %v", err)
	}
	hold := domain.PencilHold{
		ID:          "hold-1",
		EventID:     event.ID,
		OrganizerID: "org-1",
		Priority:    5,
		Status:      domain.HoldStatusPending,
		CreatedAt:   base,
		ExpiresAt:   base.Add(domain.PencilHoldTTL),
	}
	if err := s.CreateHold(ctx, hold); err != nil {
		t.Fatalf("create hold: %v", err)
	}
	return event, hold
}

func TestStore_OneActiveHoldPerEvent(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	s := NewStore()
	_, hold := seed(t, s)

	second := hold
	second.ID = "hold-2"
	if err := s.CreateHold(ctx, second); !errors.Is(err, domain.ErrActiveHoldExists) {
		t.Fatalf("expected ErrActiveHoldExists, got %v", err)
	}

	cancelled := hold
	cancelled.Status = domain.HoldStatusCancelled
	if err := s.UpdateHold(ctx, cancelled, domain.HoldStatusPending); err != nil {
		t.Fatalf("cancel: %v", err)
	}
	if err := s.CreateHold(ctx, second); err != nil {
		t.Fatalf("expected new hold after cancel, got %v", err)
	}
}

func TestStore_CreateHoldUnknownEvent(t *testing.T) {
	t.Parallel()
	s := NewStore()
	err := s.CreateHold(context.Background(), domain.PencilHold{ID: "h", EventID: "missing", Status: domain.HoldStatusPending})
	if !errors.Is(err, domain.ErrEventNotFound) {
		t.Fatalf("expected ErrEventNotFound, got %v", err)
	}
}

func TestStore_ConditionalUpdates(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	s := NewStore()
	event, hold := seed(t, s)

	confirmed := hold
	confirmed.Status = domain.HoldStatusConfirmed
	if err := s.UpdateHold(ctx, confirmed, domain.HoldStatusPending); err != nil {
		t.Fatalf("confirm: %v", err)
	}
	expired := hold
	expired.Status = domain.HoldStatusExpired
	if err := s.UpdateHold(ctx, expired, domain.HoldStatusPending); !errors.Is(err, domain.ErrStaleState) {
		t.Fatalf("expected ErrStaleState, got %v", err)
	}
	if err := s.UpdateHold(ctx, domain.PencilHold{ID: "nope"}, domain.HoldStatusPending); !errors.Is(err, domain.ErrHoldNotFound) {
		t.Fatalf("expected ErrHoldNotFound, got %v", err)
	}

	moved := event
	moved.Status = domain.EventStatusDraft
	if err := s.UpdateEvent(ctx, moved, domain.EventStatusPublished); !errors.Is(err, domain.ErrStaleState) {
		t.Fatalf("expected ErrStaleState, got %v", err)
	}
	if err := s.UpdateEvent(ctx, domain.Event{ID: "nope"}, domain.EventStatusDraft); !errors.Is(err, domain.ErrEventNotFound) {
		t.Fatalf("expected ErrEventNotFound, got %v", err)
	}
}

func TestStore_UpdateHoldKeepsCreationFields(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	s := NewStore()
	_, hold := seed(t, s)

	tampered := hold
	tampered.Status = domain.HoldStatusConfirmed
	tampered.ExpiresAt = base.Add(240 * time.Hour)
	tampered.OrganizerID = "someone-else"
	if err := s.UpdateHold(ctx, tampered, domain.HoldStatusPending); err != nil {
		t.Fatalf("update: %v", err)
	}

	got, err := s.GetHold(ctx, hold.ID)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if !got.ExpiresAt.Equal(hold.ExpiresAt) || got.OrganizerID != hold.OrganizerID {
		t.Fatalf("creation fields changed: %+v", got)
	}
	if got.Status != domain.HoldStatusConfirmed {
		t.Fatalf("expected confirmed, got %s", got.Status)
	}
}

func TestStore_WithTxRollsBack(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	s := NewStore()
	event, hold := seed(t, s)

	boom := errors.New("boom")
	err := s.WithTx(ctx, func(txCtx context.Context) error {
		cancelled := hold
		cancelled.Status = domain.HoldStatusCancelled
		if err := s.UpdateHold(txCtx, cancelled, domain.HoldStatusPending); err != nil {
			return err
		}
		released := event
		released.Status = domain.EventStatusDraft
		if err := s.UpdateEvent(txCtx, released, domain.EventStatusPencilHold); err != nil {
			return err
		}
		return boom
	})
	if !errors.Is(err, boom) {
		t.Fatalf("expected boom, got %v", err)
	}

	gotHold, _ := s.GetHold(ctx, hold.ID)
	gotEvent, _ := s.GetEvent(ctx, event.ID)
	if gotHold.Status != domain.HoldStatusPending || gotEvent.Status != domain.EventStatusPencilHold {
		t.Fatalf("expected rollback, got hold=%s event=%s", gotHold.Status, gotEvent.Status)
	}
}

func TestStore_WithTxNests(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	s := NewStore()
	seed(t, s)

	err := s.WithTx(ctx, func(outer context.Context) error {
		return s.WithTx(outer, func(inner context.Context) error {
			_, err := s.GetEvent(inner, "event-1")
			return err
		})
	})
	if err != nil {
		t.Fatalf("nested tx: %v", err)
	}
}

func TestStore_ListStaleHolds(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	s := NewStore()
	seed(t, s)

	for i, offset := range []time.Duration{time.Hour, 2 * time.Hour} {
		id := string(rune('a' + i))
		if err := s.CreateEvent(ctx, domain.Event{ID: "event-" + id, Status: domain.EventStatusPencilHold}); err != nil {
			t.Fatalf("create event: %v", err)
		}
		err := s.CreateHold(ctx, domain.PencilHold{
			ID:        "hold-" + id,
			EventID:   "event-" + id,
			Status:    domain.HoldStatusPending,
			ExpiresAt: base.Add(offset),
		})
		if err != nil {
			t.Fatalf("create hold: %v", err)
		}
	}

	stale, err := s.ListStaleHolds(ctx, base.Add(3*time.Hour), 10)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(stale) != 2 || stale[0].ID != "hold-a" || stale[1].ID != "hold-b" {
		t.Fatalf("expected earliest deadline first, got %+v", stale)
	}

	limited, _ := s.ListStaleHolds(ctx, base.Add(3*time.Hour), 1)
	if len(limited) != 1 {
		t.Fatalf("expected limit to apply, got %d", len(limited))
	}

	all, _ := s.ListStaleHolds(ctx, base.Add(domain.PencilHoldTTL), 10)
	if len(all) != 3 {
		t.Fatalf("expected deadline to be inclusive, got %d", len(all))
	}
}

func TestStore_ListEventsFilter(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	s := NewStore()
	seed(t, s)
	gone := domain.Event{ID: "event-2", OwnerID: "org-1", Status: domain.EventStatusDeleted, IsDeleted: true, CreatedAt: base.Add(time.Minute)}
	if err := s.CreateEvent(ctx, gone); err != nil {
		t.Fatalf("create: %v", err)
	}

	live, _ := s.ListEvents(ctx, app.EventFilter{OwnerID: "org-1"})
	if len(live) != 1 {
		t.Fatalf("expected deleted event hidden, got %d", len(live))
	}
	every, _ := s.ListEvents(ctx, app.EventFilter{IncludeDeleted: true})
	if len(every) != 2 || every[0].ID != "event-1" {
		t.Fatalf("expected both events oldest first, got %+v", every)
	}
}
