package http

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/cimillas/event-lifecycle/internal/app"
	"github.com/cimillas/event-lifecycle/internal/domain"
	"github.com/go-chi/chi/v5"
)

// HoldService is the minimal interface needed for pencil-hold endpoints.
type HoldService interface {
	CreateHold(ctx context.Context, in app.CreateHoldInput) (domain.PencilHold, error)
	GetHold(ctx context.Context, holdID string) (domain.PencilHold, error)
	ListEventHolds(ctx context.Context, eventID string) ([]domain.PencilHold, error)
	ConfirmHold(ctx context.Context, holdID string, actor domain.Actor) (domain.PencilHold, error)
	CancelHold(ctx context.Context, in app.CancelHoldInput) (domain.PencilHold, error)
}

// HandleCreateHold places a 48-hour pencil hold on the event in the path.
func HandleCreateHold(svc HoldService, logger *slog.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req createHoldRequest
		if !decodeBody(w, r, &req) {
			return
		}

		hold, err := svc.CreateHold(r.Context(), app.CreateHoldInput{
			EventID:  chi.URLParam(r, "id"),
			Actor:    actorFrom(r.Context()),
			Notes:    req.Notes,
			Priority: req.Priority,
		})
		if err != nil {
			writeServiceError(w, r, logger, err)
			return
		}
		writeData(w, http.StatusCreated, toHoldResponse(hold))
	}
}

// HandleListEventHolds returns every hold ever placed on the event.
func HandleListEventHolds(svc HoldService, logger *slog.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		holds, err := svc.ListEventHolds(r.Context(), chi.URLParam(r, "id"))
		if err != nil {
			writeServiceError(w, r, logger, err)
			return
		}
		resp := make([]holdResponse, 0, len(holds))
		for _, hold := range holds {
			resp = append(resp, toHoldResponse(hold))
		}
		writeData(w, http.StatusOK, resp)
	}
}

func HandleGetHold(svc HoldService, logger *slog.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		hold, err := svc.GetHold(r.Context(), chi.URLParam(r, "id"))
		if err != nil {
			writeServiceError(w, r, logger, err)
			return
		}
		writeData(w, http.StatusOK, toHoldResponse(hold))
	}
}

// HandleConfirmHold confirms a pending hold before its deadline.
func HandleConfirmHold(svc HoldService, logger *slog.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		hold, err := svc.ConfirmHold(r.Context(), chi.URLParam(r, "id"), actorFrom(r.Context()))
		if err != nil {
			writeServiceError(w, r, logger, err)
			return
		}
		writeData(w, http.StatusOK, toHoldResponse(hold))
	}
}

// HandleCancelHold cancels an active hold. The body and its reason are
// optional.
func HandleCancelHold(svc HoldService, logger *slog.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req reasonRequest
		if !decodeBody(w, r, &req) {
			return
		}

		hold, err := svc.CancelHold(r.Context(), app.CancelHoldInput{
			HoldID: chi.URLParam(r, "id"),
			Actor:  actorFrom(r.Context()),
			Reason: req.Reason,
		})
		if err != nil {
			writeServiceError(w, r, logger, err)
			return
		}
		writeData(w, http.StatusOK, toHoldResponse(hold))
	}
}

type createHoldRequest struct {
	Notes    string `json:"notes"`
	Priority int    `json:"priority"`
}

type reasonRequest struct {
	Reason string `json:"reason"`
}

type holdResponse struct {
	ID           string     `json:"id"`
	EventID      string     `json:"event_id"`
	OrganizerID  string     `json:"organizer_id"`
	Notes        string     `json:"notes,omitempty"`
	Priority     int        `json:"priority"`
	Status       string     `json:"status"`
	CreatedAt    time.Time  `json:"created_at"`
	ExpiresAt    time.Time  `json:"expires_at"`
	UpdatedAt    time.Time  `json:"updated_at"`
	ConfirmedAt  *time.Time `json:"confirmed_at,omitempty"`
	ResolvedAt   *time.Time `json:"resolved_at,omitempty"`
	ResolvedBy   string     `json:"resolved_by,omitempty"`
	CancelReason string     `json:"cancel_reason,omitempty"`
}

func toHoldResponse(h domain.PencilHold) holdResponse {
	return holdResponse{
		ID:           h.ID,
		EventID:      h.EventID,
		OrganizerID:  h.OrganizerID,
		Notes:        h.Notes,
		Priority:     h.Priority,
		Status:       string(h.Status),
		CreatedAt:    h.CreatedAt,
		ExpiresAt:    h.ExpiresAt,
		UpdatedAt:    h.UpdatedAt,
		ConfirmedAt:  h.ConfirmedAt,
		ResolvedAt:   h.ResolvedAt,
		ResolvedBy:   h.ResolvedBy,
		CancelReason: h.CancelReason,
	}
}
