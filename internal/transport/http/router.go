package http

import (
	"log/slog"
	"net/http"

	"github.com/cimillas/event-lifecycle/internal/clock"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
)

// Reservations is everything the router needs from the reservation service.
type Reservations interface {
	HoldService
	EventWorkflow
	AdminWorkflow
}

type RouterConfig struct {
	Events       EventService
	Reservations Reservations
	Sweeper      Sweeper
	Health       Pinger
	Clock        clock.Clock
	Logger       *slog.Logger
	CORSOrigins  []string
}

// NewRouter mounts every route behind the shared middleware stack.
func NewRouter(cfg RouterConfig) http.Handler {
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	clk := cfg.Clock
	if clk == nil {
		clk = clock.NewSystem()
	}
	res := cfg.Reservations

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(RequestLogger(logger))
	r.Use(middleware.Recoverer)
	r.Use(CORS(cfg.CORSOrigins))
	r.NotFound(NotFoundHandler())
	r.MethodNotAllowed(MethodNotAllowedHandler())

	r.Get("/health", HandleHealth(cfg.Health))

	r.Group(func(r chi.Router) {
		r.Use(RequireActor)

		r.Route("/events", func(r chi.Router) {
			r.Post("/", HandleCreateEvent(cfg.Events, logger))
			r.Get("/", HandleListEvents(cfg.Events, logger))
			r.Get("/{id}", HandleGetEvent(cfg.Events, logger))
			r.Delete("/{id}", HandleDeleteEvent(res, logger))
			r.Get("/{id}/holds", HandleListEventHolds(res, logger))
			r.Post("/{id}/holds", HandleCreateHold(res, logger))
			r.Post("/{id}/submit", HandleSubmitEvent(res, logger))
			r.Get("/{id}/calendar.ics", HandleEventCalendar(cfg.Events, res, clk, logger))
		})

		r.Route("/holds/{id}", func(r chi.Router) {
			r.Get("/", HandleGetHold(res, logger))
			r.Post("/confirm", HandleConfirmHold(res, logger))
			r.Post("/cancel", HandleCancelHold(res, logger))
		})

		r.Route("/admin", func(r chi.Router) {
			r.Use(RequireAdmin)

			r.Post("/holds/{id}/approve", HandleEventAction(res.ApproveHold, logger))
			r.Route("/events/{id}", func(r chi.Router) {
				r.Post("/approve", HandleEventAction(res.ApproveEventDirect, logger))
				r.Post("/reject", HandleEventReasonAction(res.RejectEvent, logger))
				r.Post("/defer", HandleEventAction(res.DeferToApproval, logger))
				r.Post("/unpublish", HandleEventAction(res.UnpublishEvent, logger))
				r.Post("/cancel", HandleEventReasonAction(res.CancelEvent, logger))
				r.Post("/complete", HandleEventAction(res.CompleteEvent, logger))
				r.Post("/restore", HandleEventAction(res.RestoreEvent, logger))
			})
			if cfg.Sweeper != nil {
				r.Post("/sweep", HandleSweep(cfg.Sweeper, logger))
			}
		})
	})

	return r
}
