package calendar

import (
	"bytes"
	"strings"
	"testing"
	"time"

	"github.com/cimillas/event-lifecycle/internal/domain"
	"github.com/emersion/go-ical"
)

var stamp = time.Date(2025, 3, 1, 9, 0, 0, 0, time.UTC)

func sampleEvent(status domain.EventStatus) domain.Event {
	return domain.Event{
		ID:        "event-1",
		Title:     "Spring Gala",
		Status:    status,
		StartsAt:  time.Date(2025, 4, 1, 18, 0, 0, 0, time.UTC),
		EndsAt:    time.Date(2025, 4, 1, 22, 0, 0, 0, time.UTC),
		UpdatedAt: stamp,
	}
}

func decode(t *testing.T, raw []byte) *ical.Calendar {
	t.Helper()
	cal, err := ical.NewDecoder(bytes.NewReader(raw)).Decode()
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	return cal
}

func TestWrite_EventOnly(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer
	if err := Write(&buf, sampleEvent(domain.EventStatusPublished), nil, stamp); err != nil {
		t.Fatalf("write: %v", err)
	}

	cal := decode(t, buf.Bytes())
	events := cal.Events()
	if len(events) != 1 {
		t.Fatalf("expected 1 VEVENT, got %d", len(events))
	}
	summary, err := events[0].Props.Text(ical.PropSummary)
	if err != nil || summary != "Spring Gala" {
		t.Fatalf("expected summary, got %q, %v", summary, err)
	}
	start, err := events[0].DateTimeStart(time.UTC)
	if err != nil || !start.Equal(time.Date(2025, 4, 1, 18, 0, 0, 0, time.UTC)) {
		t.Fatalf("unexpected start %v, %v", start, err)
	}
	status, _ := events[0].Props.Text(ical.PropStatus)
	if status != "CONFIRMED" {
		t.Fatalf("expected CONFIRMED, got %q", status)
	}
}

func TestWrite_PendingHoldAddsDeadlineAlarm(t *testing.T) {
	t.Parallel()

	hold := &domain.PencilHold{
		ID:        "hold-1",
		EventID:   "event-1",
		Status:    domain.HoldStatusPending,
		ExpiresAt: stamp.Add(domain.PencilHoldTTL),
	}
	var buf bytes.Buffer
	if err := Write(&buf, sampleEvent(domain.EventStatusPencilHold), hold, stamp); err != nil {
		t.Fatalf("write: %v", err)
	}

	if !strings.Contains(buf.String(), "BEGIN:VALARM") {
		t.Fatalf("expected an alarm, got:\n%s", buf.String())
	}
	cal := decode(t, buf.Bytes())
	events := cal.Events()
	if len(events) != 2 {
		t.Fatalf("expected 2 VEVENTs, got %d", len(events))
	}
	deadline, err := events[1].DateTimeStart(time.UTC)
	if err != nil || !deadline.Equal(hold.ExpiresAt) {
		t.Fatalf("expected deadline %v, got %v, %v", hold.ExpiresAt, deadline, err)
	}
	if len(events[1].Children) != 1 || events[1].Children[0].Name != ical.CompAlarm {
		t.Fatalf("expected VALARM child, got %+v", events[1].Children)
	}
}

func TestBuild_SkipsSettledHold(t *testing.T) {
	t.Parallel()

	hold := &domain.PencilHold{ID: "hold-1", Status: domain.HoldStatusConfirmed, ExpiresAt: stamp}
	cal := Build(sampleEvent(domain.EventStatusPencilHoldConfirmed), hold, stamp)
	if len(cal.Children) != 1 {
		t.Fatalf("expected only the event component, got %d", len(cal.Children))
	}
}

func TestEventStatus(t *testing.T) {
	t.Parallel()

	tests := []struct {
		status domain.EventStatus
		want   string
	}{
		{domain.EventStatusDraft, "TENTATIVE"},
		{domain.EventStatusPencilHold, "TENTATIVE"},
		{domain.EventStatusPendingApproval, "TENTATIVE"},
		{domain.EventStatusPublished, "CONFIRMED"},
		{domain.EventStatusCompleted, "CONFIRMED"},
		{domain.EventStatusCancelled, "CANCELLED"},
		{domain.EventStatusRejected, "CANCELLED"},
	}
	for _, tt := range tests {
		if got := eventStatus(tt.status); got != tt.want {
			t.Errorf("%s: expected %s, got %s", tt.status, tt.want, got)
		}
	}
}
