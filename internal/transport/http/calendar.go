package http

import (
	"bytes"
	"log/slog"
	"net/http"

	"github.com/cimillas/event-lifecycle/internal/calendar"
	"github.com/cimillas/event-lifecycle/internal/clock"
	"github.com/cimillas/event-lifecycle/internal/domain"
	"github.com/go-chi/chi/v5"
)

// HandleEventCalendar serves the event as an iCalendar file, including the
// deadline of its pending hold if it has one.
func HandleEventCalendar(events EventService, holds HoldService, clk clock.Clock, logger *slog.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id := chi.URLParam(r, "id")
		event, err := events.GetEvent(r.Context(), id)
		if err != nil {
			writeServiceError(w, r, logger, err)
			return
		}
		history, err := holds.ListEventHolds(r.Context(), id)
		if err != nil {
			writeServiceError(w, r, logger, err)
			return
		}

		var active *domain.PencilHold
		for i := range history {
			if history[i].Status.Active() {
				active = &history[i]
			}
		}

		var buf bytes.Buffer
		if err := calendar.Write(&buf, event, active, clk.Now()); err != nil {
			writeServiceError(w, r, logger, err)
			return
		}
		w.Header().Set("Content-Type", calendar.ContentType)
		w.Header().Set("Content-Disposition", `attachment; filename="`+event.ID+`.ics"`)
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write(buf.Bytes())
	}
}
