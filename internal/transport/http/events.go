package http

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/cimillas/event-lifecycle/internal/app"
	"github.com/cimillas/event-lifecycle/internal/domain"
	"github.com/go-chi/chi/v5"
)

const maxBodyBytes = 1 << 20

// EventService is the minimal interface needed for event CRUD endpoints.
type EventService interface {
	CreateEvent(ctx context.Context, in app.CreateEventInput) (domain.Event, error)
	GetEvent(ctx context.Context, id string) (domain.Event, error)
	ListEvents(ctx context.Context, filter app.EventFilter) ([]domain.Event, error)
}

// EventWorkflow is the minimal interface needed for organizer-driven event
// transitions.
type EventWorkflow interface {
	SubmitForApproval(ctx context.Context, eventID string, actor domain.Actor) (domain.Event, error)
	SoftDeleteEvent(ctx context.Context, eventID string, actor domain.Actor) (domain.Event, error)
}

// HandleCreateEvent creates a draft event owned by the caller.
func HandleCreateEvent(svc EventService, logger *slog.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req createEventRequest
		if !decodeBody(w, r, &req) {
			return
		}
		startsAt, err := parseTime(req.StartsAt)
		if err != nil {
			writeError(w, http.StatusBadRequest, domain.KindValidation, codeInvalidTime, "invalid starts_at format")
			return
		}
		endsAt, err := parseTime(req.EndsAt)
		if err != nil {
			writeError(w, http.StatusBadRequest, domain.KindValidation, codeInvalidTime, "invalid ends_at format")
			return
		}

		event, err := svc.CreateEvent(r.Context(), app.CreateEventInput{
			Actor:    actorFrom(r.Context()),
			Title:    req.Title,
			Capacity: req.Capacity,
			StartsAt: startsAt,
			EndsAt:   endsAt,
		})
		if err != nil {
			writeServiceError(w, r, logger, err)
			return
		}
		writeData(w, http.StatusCreated, toEventResponse(event))
	}
}

// HandleListEvents lists events, filtered by the owner, status and
// include_deleted query parameters.
func HandleListEvents(svc EventService, logger *slog.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		q := r.URL.Query()
		filter := app.EventFilter{
			OwnerID: q.Get("owner"),
			Status:  domain.EventStatus(q.Get("status")),
		}
		if filter.Status != "" && !filter.Status.Valid() {
			writeError(w, http.StatusBadRequest, domain.KindValidation, codeInvalidFilter, "unknown event status")
			return
		}
		if raw := q.Get("include_deleted"); raw != "" {
			include, err := strconv.ParseBool(raw)
			if err != nil {
				writeError(w, http.StatusBadRequest, domain.KindValidation, codeInvalidFilter, "include_deleted must be a boolean")
				return
			}
			filter.IncludeDeleted = include
		}

		events, err := svc.ListEvents(r.Context(), filter)
		if err != nil {
			writeServiceError(w, r, logger, err)
			return
		}
		resp := make([]eventResponse, 0, len(events))
		for _, event := range events {
			resp = append(resp, toEventResponse(event))
		}
		writeData(w, http.StatusOK, resp)
	}
}

func HandleGetEvent(svc EventService, logger *slog.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		event, err := svc.GetEvent(r.Context(), chi.URLParam(r, "id"))
		if err != nil {
			writeServiceError(w, r, logger, err)
			return
		}
		writeData(w, http.StatusOK, toEventResponse(event))
	}
}

// HandleSubmitEvent sends a draft event to the approval queue.
func HandleSubmitEvent(svc EventWorkflow, logger *slog.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		event, err := svc.SubmitForApproval(r.Context(), chi.URLParam(r, "id"), actorFrom(r.Context()))
		if err != nil {
			writeServiceError(w, r, logger, err)
			return
		}
		writeData(w, http.StatusOK, toEventResponse(event))
	}
}

// HandleDeleteEvent soft-deletes an event.
func HandleDeleteEvent(svc EventWorkflow, logger *slog.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		event, err := svc.SoftDeleteEvent(r.Context(), chi.URLParam(r, "id"), actorFrom(r.Context()))
		if err != nil {
			writeServiceError(w, r, logger, err)
			return
		}
		writeData(w, http.StatusOK, toEventResponse(event))
	}
}

type createEventRequest struct {
	Title    string `json:"title"`
	Capacity int    `json:"capacity"`
	StartsAt string `json:"starts_at"`
	EndsAt   string `json:"ends_at"`
}

type eventResponse struct {
	ID                 string     `json:"id"`
	Title              string     `json:"title"`
	OwnerID            string     `json:"owner_id"`
	Capacity           int        `json:"capacity"`
	StartsAt           time.Time  `json:"starts_at"`
	EndsAt             time.Time  `json:"ends_at"`
	Status             string     `json:"status"`
	CreatedAt          time.Time  `json:"created_at"`
	UpdatedAt          time.Time  `json:"updated_at"`
	ApprovedBy         string     `json:"approved_by,omitempty"`
	ApprovedAt         *time.Time `json:"approved_at,omitempty"`
	RejectedBy         string     `json:"rejected_by,omitempty"`
	RejectedAt         *time.Time `json:"rejected_at,omitempty"`
	RejectReason       string     `json:"reject_reason,omitempty"`
	UnpublishedBy      string     `json:"unpublished_by,omitempty"`
	UnpublishedAt      *time.Time `json:"unpublished_at,omitempty"`
	CancelledBy        string     `json:"cancelled_by,omitempty"`
	CancelledAt        *time.Time `json:"cancelled_at,omitempty"`
	CancelReason       string     `json:"cancel_reason,omitempty"`
	CompletedAt        *time.Time `json:"completed_at,omitempty"`
	IsDeleted          bool       `json:"is_deleted"`
	DeletedBy          string     `json:"deleted_by,omitempty"`
	DeletedAt          *time.Time `json:"deleted_at,omitempty"`
	StatusBeforeDelete string     `json:"status_before_delete,omitempty"`
}

func toEventResponse(e domain.Event) eventResponse {
	return eventResponse{
		ID:                 e.ID,
		Title:              e.Title,
		OwnerID:            e.OwnerID,
		Capacity:           e.Capacity,
		StartsAt:           e.StartsAt,
		EndsAt:             e.EndsAt,
		Status:             string(e.Status),
		CreatedAt:          e.CreatedAt,
		UpdatedAt:          e.UpdatedAt,
		ApprovedBy:         e.ApprovedBy,
		ApprovedAt:         e.ApprovedAt,
		RejectedBy:         e.RejectedBy,
		RejectedAt:         e.RejectedAt,
		RejectReason:       e.RejectReason,
		UnpublishedBy:      e.UnpublishedBy,
		UnpublishedAt:      e.UnpublishedAt,
		CancelledBy:        e.CancelledBy,
		CancelledAt:        e.CancelledAt,
		CancelReason:       e.CancelReason,
		CompletedAt:        e.CompletedAt,
		IsDeleted:          e.IsDeleted,
		DeletedBy:          e.DeletedBy,
		DeletedAt:          e.DeletedAt,
		StatusBeforeDelete: string(e.StatusBeforeDelete),
	}
}

// decodeBody decodes a JSON request body into dst, writing the error response
// itself when it fails. An empty body leaves dst untouched.
func decodeBody(w http.ResponseWriter, r *http.Request, dst any) bool {
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	dec.DisallowUnknownFields()
	if err := dec.Decode(dst); err != nil && !errors.Is(err, io.EOF) {
		writeError(w, http.StatusBadRequest, domain.KindValidation, codeInvalidRequestBody, "invalid request body")
		return false
	}
	return true
}

// parseTime accepts RFC 3339; an empty string is the zero time.
func parseTime(raw string) (time.Time, error) {
	if raw == "" {
		return time.Time{}, nil
	}
	return time.Parse(time.RFC3339, raw)
}
