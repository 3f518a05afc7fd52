package http

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/cimillas/event-lifecycle/internal/domain"
	"github.com/go-chi/chi/v5"
)

// AdminWorkflow is the minimal interface needed for admin decision endpoints.
type AdminWorkflow interface {
	ApproveHold(ctx context.Context, holdID string, admin domain.Actor) (domain.Event, error)
	ApproveEventDirect(ctx context.Context, eventID string, admin domain.Actor) (domain.Event, error)
	RejectEvent(ctx context.Context, eventID string, admin domain.Actor, reason string) (domain.Event, error)
	DeferToApproval(ctx context.Context, eventID string, admin domain.Actor) (domain.Event, error)
	UnpublishEvent(ctx context.Context, eventID string, admin domain.Actor) (domain.Event, error)
	CancelEvent(ctx context.Context, eventID string, actor domain.Actor, reason string) (domain.Event, error)
	CompleteEvent(ctx context.Context, eventID string, admin domain.Actor) (domain.Event, error)
	RestoreEvent(ctx context.Context, eventID string, admin domain.Actor) (domain.Event, error)
}

// Sweeper runs one expiry pass on demand.
type Sweeper interface {
	Sweep(ctx context.Context) ([]domain.PencilHold, error)
}

type eventAction func(ctx context.Context, id string, actor domain.Actor) (domain.Event, error)

type eventReasonAction func(ctx context.Context, id string, actor domain.Actor, reason string) (domain.Event, error)

// HandleEventAction runs a transition that needs only the path id and the
// caller, and returns the resulting event.
func HandleEventAction(action eventAction, logger *slog.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		event, err := action(r.Context(), chi.URLParam(r, "id"), actorFrom(r.Context()))
		if err != nil {
			writeServiceError(w, r, logger, err)
			return
		}
		writeData(w, http.StatusOK, toEventResponse(event))
	}
}

// HandleEventReasonAction is HandleEventAction for transitions that take a
// reason in the body.
func HandleEventReasonAction(action eventReasonAction, logger *slog.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req reasonRequest
		if !decodeBody(w, r, &req) {
			return
		}
		event, err := action(r.Context(), chi.URLParam(r, "id"), actorFrom(r.Context()), req.Reason)
		if err != nil {
			writeServiceError(w, r, logger, err)
			return
		}
		writeData(w, http.StatusOK, toEventResponse(event))
	}
}

// HandleSweep expires every stale pending hold now instead of waiting for
// the next tick.
func HandleSweep(sweeper Sweeper, logger *slog.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		expired, err := sweeper.Sweep(r.Context())
		if err != nil {
			writeServiceError(w, r, logger, err)
			return
		}
		resp := sweepResponse{Count: len(expired), Expired: make([]holdResponse, 0, len(expired))}
		for _, hold := range expired {
			resp.Expired = append(resp.Expired, toHoldResponse(hold))
		}
		writeData(w, http.StatusOK, resp)
	}
}

type sweepResponse struct {
	Count   int            `json:"count"`
	Expired []holdResponse `json:"expired"`
}
