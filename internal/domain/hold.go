package domain

import "time"

type HoldStatus string

const (
	HoldStatusPending   HoldStatus = "pending"
	HoldStatusConfirmed HoldStatus = "confirmed"
	HoldStatusConverted HoldStatus = "converted"
	HoldStatusCancelled HoldStatus = "cancelled"
	HoldStatusExpired   HoldStatus = "expired"
)

// HoldStatuses lists every hold status.
var HoldStatuses = []HoldStatus{
	HoldStatusPending,
	HoldStatusConfirmed,
	HoldStatusConverted,
	HoldStatusCancelled,
	HoldStatusExpired,
}

func (s HoldStatus) Valid() bool {
	for _, known := range HoldStatuses {
		if s == known {
			return true
		}
	}
	return false
}

// Active reports whether a hold in this status still reserves its event.
func (s HoldStatus) Active() bool {
	return s == HoldStatusPending || s == HoldStatusConfirmed
}

const (
	// PencilHoldTTL is fixed at creation and never extended.
	PencilHoldTTL = 48 * time.Hour

	MinHoldPriority     = 1
	MaxHoldPriority     = 10
	DefaultHoldPriority = 5
)

// PencilHold provisionally reserves an event slot until ExpiresAt.
type PencilHold struct {
	ID          string
	EventID     string
	OrganizerID string
	Notes       string
	Priority    int
	Status      HoldStatus
	CreatedAt   time.Time
	ExpiresAt   time.Time
	UpdatedAt   time.Time

	ConfirmedAt *time.Time
	// ResolvedAt and ResolvedBy are set when the hold reaches a terminal
	// status. ResolvedBy is empty for sweep expiry.
	ResolvedAt   *time.Time
	ResolvedBy   string
	CancelReason string
}

// Stale reports whether a pending hold has passed its deadline at now.
func (h PencilHold) Stale(now time.Time) bool {
	return h.Status == HoldStatusPending && !now.Before(h.ExpiresAt)
}

// ViewAt returns the hold as callers should see it at now: a stale pending
// hold reads as expired even before the sweep has stored that.
func (h PencilHold) ViewAt(now time.Time) PencilHold {
	if h.Stale(now) {
		h.Status = HoldStatusExpired
	}
	return h
}
