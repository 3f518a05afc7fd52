// Package calendar exports events as iCalendar documents so organizers can
// subscribe to an event's schedule and its pencil-hold deadline.
package calendar

import (
	"fmt"
	"io"
	"time"

	"github.com/cimillas/event-lifecycle/internal/domain"
	"github.com/emersion/go-ical"
)

const (
	ProductID   = "-//cimillas//event-lifecycle//EN"
	ContentType = "text/calendar; charset=utf-8"
	uidDomain   = "event-lifecycle"

	// DeadlineWarning is how long before a pending hold's deadline the
	// exported alarm fires.
	DeadlineWarning = 2 * time.Hour
)

// Build returns a calendar with one VEVENT for the event window. When hold is
// a pending hold, a second VEVENT marks its deadline and carries a display
// alarm. stamp is written as DTSTAMP.
func Build(event domain.Event, hold *domain.PencilHold, stamp time.Time) *ical.Calendar {
	cal := ical.NewCalendar()
	cal.Props.SetText(ical.PropVersion, "2.0")
	cal.Props.SetText(ical.PropProductID, ProductID)

	cal.Children = append(cal.Children, eventComponent(event, stamp))
	if hold != nil && hold.Status == domain.HoldStatusPending {
		cal.Children = append(cal.Children, deadlineComponent(event, *hold, stamp))
	}
	return cal
}

// Write encodes Build's calendar to w.
func Write(w io.Writer, event domain.Event, hold *domain.PencilHold, stamp time.Time) error {
	if err := ical.NewEncoder(w).Encode(Build(event, hold, stamp)); err != nil {
		return fmt.Errorf("encode calendar: %w", err)
	}
	return nil
}

func eventComponent(event domain.Event, stamp time.Time) *ical.Component {
	vevent := ical.NewEvent()
	vevent.Props.SetText(ical.PropUID, fmt.Sprintf("%s@%s", event.ID, uidDomain))
	vevent.Props.SetDateTime(ical.PropDateTimeStamp, stamp.UTC())
	vevent.Props.SetText(ical.PropSummary, event.Title)
	vevent.Props.SetDateTime(ical.PropDateTimeStart, event.StartsAt.UTC())
	vevent.Props.SetDateTime(ical.PropDateTimeEnd, event.EndsAt.UTC())
	vevent.Props.SetDateTime(ical.PropLastModified, event.UpdatedAt.UTC())
	vevent.Props.SetText(ical.PropStatus, eventStatus(event.Status))
	vevent.Props.SetText(ical.PropDescription, fmt.Sprintf("Status: %s", event.Status))
	return vevent.Component
}

func deadlineComponent(event domain.Event, hold domain.PencilHold, stamp time.Time) *ical.Component {
	vevent := ical.NewEvent()
	vevent.Props.SetText(ical.PropUID, fmt.Sprintf("%s@%s", hold.ID, uidDomain))
	vevent.Props.SetDateTime(ical.PropDateTimeStamp, stamp.UTC())
	vevent.Props.SetText(ical.PropSummary, "Pencil hold deadline: "+event.Title)
	vevent.Props.SetDateTime(ical.PropDateTimeStart, hold.ExpiresAt.UTC())
	vevent.Props.SetDateTime(ical.PropDateTimeEnd, hold.ExpiresAt.UTC())
	vevent.Props.SetText(ical.PropStatus, "TENTATIVE")
	vevent.Props.SetText(ical.PropDescription, "Confirm the pencil hold before this time or it expires.")

	alarm := ical.NewComponent(ical.CompAlarm)
	alarm.Props.SetText(ical.PropAction, "DISPLAY")
	alarm.Props.SetText(ical.PropDescription, "Pencil hold expires soon: "+event.Title)
	trigger := ical.NewProp(ical.PropTrigger)
	trigger.SetDateTime(hold.ExpiresAt.Add(-DeadlineWarning).UTC())
	trigger.SetValueType(ical.ValueDateTime)
	alarm.Props.Set(trigger)

	vevent.Children = append(vevent.Children, alarm)
	return vevent.Component
}

func eventStatus(status domain.EventStatus) string {
	switch status {
	case domain.EventStatusPublished, domain.EventStatusCompleted:
		return "CONFIRMED"
	case domain.EventStatusCancelled, domain.EventStatusRejected, domain.EventStatusUnpublished, domain.EventStatusDeleted:
		return "CANCELLED"
	default:
		return "TENTATIVE"
	}
}
