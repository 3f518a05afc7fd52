package http

import (
	"context"
	"net/http"
	"time"

	"github.com/cimillas/event-lifecycle/internal/domain"
)

// Pinger reports whether a backing store is reachable.
type Pinger interface {
	Ping(ctx context.Context) error
}

const healthTimeout = 2 * time.Second

// HandleHealth reports liveness, and storage reachability when db is set.
func HandleHealth(db Pinger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if db != nil {
			ctx, cancel := context.WithTimeout(r.Context(), healthTimeout)
			defer cancel()
			if err := db.Ping(ctx); err != nil {
				writeError(w, http.StatusServiceUnavailable, domain.KindInternal, codeUnavailable, "storage unreachable")
				return
			}
		}
		writeData(w, http.StatusOK, map[string]string{"health": "ok"})
	}
}
