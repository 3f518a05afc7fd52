package postgres

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/cimillas/event-lifecycle/internal/app"
	"github.com/cimillas/event-lifecycle/internal/clock"
	"github.com/cimillas/event-lifecycle/internal/domain"
	"github.com/cimillas/event-lifecycle/internal/testutil"
)

var (
	organizer = domain.Actor{ID: "org-1", Role: domain.RoleOrganizer}
	admin     = domain.Actor{ID: "admin-1", Role: domain.RoleAdmin}
)

func newServices(t *testing.T) (*app.EventService, *app.ReservationService, *clock.Manual) {
	t.Helper()
	pool := testutil.NewMigratedPool(t)
	events := NewEventRepository(pool)
	holds := NewHoldRepository(pool)
	clk := clock.NewManual(base)
	return app.NewEventService(events, clk), app.NewReservationService(events, holds, clk), clk
}

func createEvent(t *testing.T, svc *app.EventService) domain.Event {
	t.Helper()
	event, err := svc.CreateEvent(context.Background(), app.CreateEventInput{
		Actor:    organizer,
		Title:    "Gala",
		Capacity: 100,
		StartsAt: base.Add(30 * 24 * time.Hour),
		EndsAt:   base.Add(30*24*time.Hour + 3*time.Hour),
	})
	if err != nil {
		t.Fatalf("create event: %v", err)
	}
	return event
}

func TestReservationService_ConcurrentHoldsOnPostgres(t *testing.T) {
	eventSvc, svc, _ := newServices(t)
	ctx := context.Background()

	for i := 0; i < 10; i++ {
		event := createEvent(t, eventSvc)

		const workers = 4
		var (
			wg   sync.WaitGroup
			errs = make([]error, workers)
		)
		for w := 0; w < workers; w++ {
			wg.Add(1)
			go func(w int) {
				defer wg.Done()
				_, errs[w] = svc.CreateHold(ctx, app.CreateHoldInput{EventID: event.ID, Actor: organizer})
			}(w)
		}
		wg.Wait()

		won := 0
		for _, err := range errs {
			switch {
			case err == nil:
				won++
			case domain.KindOf(err) != domain.KindConflict:
				t.Fatalf("unexpected error: %v", err)
			}
		}
		if won != 1 {
			t.Fatalf("expected exactly one hold, got %d", won)
		}

		holds, err := svc.ListEventHolds(ctx, event.ID)
		if err != nil || len(holds) != 1 {
			t.Fatalf("expected one stored hold, got %d, %v", len(holds), err)
		}
	}
}

func TestReservationService_ConfirmRacesCancelOnPostgres(t *testing.T) {
	eventSvc, svc, _ := newServices(t)
	ctx := context.Background()

	for i := 0; i < 10; i++ {
		event := createEvent(t, eventSvc)
		hold, err := svc.CreateHold(ctx, app.CreateHoldInput{EventID: event.ID, Actor: organizer})
		if err != nil {
			t.Fatalf("create hold: %v", err)
		}

		var (
			wg                    sync.WaitGroup
			confirmErr, cancelErr error
		)
		wg.Add(2)
		go func() {
			defer wg.Done()
			_, confirmErr = svc.ConfirmHold(ctx, hold.ID, organizer)
		}()
		go func() {
			defer wg.Done()
			_, cancelErr = svc.CancelHold(ctx, app.CancelHoldInput{HoldID: hold.ID, Actor: organizer})
		}()
		wg.Wait()

		// A cancel that starts after the confirm commits is legal, so both may
		// succeed; they never both fail and the stored pair always agrees.
		if confirmErr != nil && cancelErr != nil {
			t.Fatalf("expected a winner: confirm=%v cancel=%v", confirmErr, cancelErr)
		}

		stored, err := svc.GetHold(ctx, hold.ID)
		if err != nil {
			t.Fatalf("get hold: %v", err)
		}
		got, err := eventSvc.GetEvent(ctx, event.ID)
		if err != nil {
			t.Fatalf("get event: %v", err)
		}
		if cancelErr == nil {
			if stored.Status != domain.HoldStatusCancelled || got.Status != domain.EventStatusDraft {
				t.Fatalf("cancel won but hold=%s event=%s", stored.Status, got.Status)
			}
			continue
		}
		if stored.Status != domain.HoldStatusConfirmed || got.Status != domain.EventStatusPencilHoldConfirmed {
			t.Fatalf("confirm won but hold=%s event=%s", stored.Status, got.Status)
		}
	}
}

func TestReservationService_RejectRacesApproveOnPostgres(t *testing.T) {
	eventSvc, svc, _ := newServices(t)
	ctx := context.Background()

	for i := 0; i < 10; i++ {
		event := createEvent(t, eventSvc)
		hold, err := svc.CreateHold(ctx, app.CreateHoldInput{EventID: event.ID, Actor: organizer})
		if err != nil {
			t.Fatalf("create hold: %v", err)
		}
		if _, err := svc.ConfirmHold(ctx, hold.ID, organizer); err != nil {
			t.Fatalf("confirm hold: %v", err)
		}

		var (
			wg                    sync.WaitGroup
			approveErr, rejectErr error
		)
		wg.Add(2)
		go func() {
			defer wg.Done()
			_, approveErr = svc.ApproveHold(ctx, hold.ID, admin)
		}()
		go func() {
			defer wg.Done()
			_, rejectErr = svc.RejectEvent(ctx, event.ID, admin, "venue unavailable")
		}()
		wg.Wait()

		if (approveErr == nil) == (rejectErr == nil) {
			t.Fatalf("expected exactly one winner: approve=%v reject=%v", approveErr, rejectErr)
		}
		for _, err := range []error{approveErr, rejectErr} {
			if err != nil && domain.KindOf(err) == domain.KindInternal {
				t.Fatalf("loser surfaced an internal error: %v", err)
			}
		}

		stored, err := svc.GetHold(ctx, hold.ID)
		if err != nil {
			t.Fatalf("get hold: %v", err)
		}
		got, err := eventSvc.GetEvent(ctx, event.ID)
		if err != nil {
			t.Fatalf("get event: %v", err)
		}
		if approveErr == nil {
			if stored.Status != domain.HoldStatusConverted || got.Status != domain.EventStatusPublished {
				t.Fatalf("approve won but hold=%s event=%s", stored.Status, got.Status)
			}
			continue
		}
		if stored.Status != domain.HoldStatusCancelled || got.Status != domain.EventStatusRejected {
			t.Fatalf("reject won but hold=%s event=%s", stored.Status, got.Status)
		}
	}
}

func TestReservationService_SweepOnPostgres(t *testing.T) {
	eventSvc, svc, clk := newServices(t)
	ctx := context.Background()

	event := createEvent(t, eventSvc)
	hold, err := svc.CreateHold(ctx, app.CreateHoldInput{EventID: event.ID, Actor: organizer})
	if err != nil {
		t.Fatalf("create hold: %v", err)
	}

	clk.Set(hold.ExpiresAt)
	expired, err := svc.ExpireStaleHolds(ctx, clk.Now())
	if err != nil {
		t.Fatalf("sweep: %v", err)
	}
	if len(expired) != 1 || expired[0].ID != hold.ID {
		t.Fatalf("expected the hold to expire at its deadline, got %+v", expired)
	}

	again, err := svc.ExpireStaleHolds(ctx, clk.Now())
	if err != nil || len(again) != 0 {
		t.Fatalf("expected idempotent sweep, got %d, %v", len(again), err)
	}

	got, err := eventSvc.GetEvent(ctx, event.ID)
	if err != nil || got.Status != domain.EventStatusDraft {
		t.Fatalf("expected event released to draft, got %s, %v", got.Status, err)
	}
	if _, err := svc.ConfirmHold(ctx, hold.ID, organizer); domain.KindOf(err) != domain.KindStateExpired {
		t.Fatalf("expected expired confirm, got %v", err)
	}
}
