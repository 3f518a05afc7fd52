package domain

import "time"

type EventStatus string

const (
	EventStatusDraft               EventStatus = "draft"
	EventStatusPencilHold          EventStatus = "pencil_hold"
	EventStatusPencilHoldConfirmed EventStatus = "pencil_hold_confirmed"
	EventStatusPendingApproval     EventStatus = "pending_approval"
	EventStatusPublished           EventStatus = "published"
	EventStatusRejected            EventStatus = "rejected"
	EventStatusUnpublished         EventStatus = "unpublished"
	EventStatusCancelled           EventStatus = "cancelled"
	EventStatusCompleted           EventStatus = "completed"
	EventStatusDeleted             EventStatus = "deleted"
)

// EventStatuses lists every event status in lifecycle order.
var EventStatuses = []EventStatus{
	EventStatusDraft,
	EventStatusPencilHold,
	EventStatusPencilHoldConfirmed,
	EventStatusPendingApproval,
	EventStatusPublished,
	EventStatusRejected,
	EventStatusUnpublished,
	EventStatusCancelled,
	EventStatusCompleted,
	EventStatusDeleted,
}

func (s EventStatus) Valid() bool {
	for _, known := range EventStatuses {
		if s == known {
			return true
		}
	}
	return false
}

// Event is the long-lived entity a pencil hold reserves. It is never removed;
// deletion only flips IsDeleted and moves the status to deleted.
type Event struct {
	ID        string
	Title     string
	OwnerID   string
	Capacity  int
	StartsAt  time.Time
	EndsAt    time.Time
	Status    EventStatus
	CreatedAt time.Time
	UpdatedAt time.Time

	ApprovedBy    string
	ApprovedAt    *time.Time
	RejectedBy    string
	RejectedAt    *time.Time
	RejectReason  string
	UnpublishedBy string
	UnpublishedAt *time.Time
	CancelledBy   string
	CancelledAt   *time.Time
	CancelReason  string
	CompletedAt   *time.Time

	IsDeleted bool
	DeletedBy string
	DeletedAt *time.Time
	// StatusBeforeDelete is the status a restore returns to.
	StatusBeforeDelete EventStatus
}
