package http

import (
	"context"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/cimillas/event-lifecycle/internal/domain"
	"github.com/go-chi/chi/v5/middleware"
)

const (
	actorIDHeader   = "X-Actor-ID"
	actorRoleHeader = "X-Actor-Role"
)

// RequestLogger logs method, path, status and latency for every request,
// tagged with chi's request id when one is set.
func RequestLogger(logger *slog.Logger) func(http.Handler) http.Handler {
	if logger == nil {
		logger = slog.Default()
	}
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
			next.ServeHTTP(ww, r)

			status := ww.Status()
			if status == 0 {
				status = http.StatusOK
			}
			level := slog.LevelInfo
			if status >= http.StatusInternalServerError {
				level = slog.LevelError
			}
			logger.LogAttrs(r.Context(), level, "request",
				slog.String("request_id", middleware.GetReqID(r.Context())),
				slog.String("method", r.Method),
				slog.String("path", r.URL.Path),
				slog.Int("status", status),
				slog.Int("bytes", ww.BytesWritten()),
				slog.Duration("duration", time.Since(start)),
			)
		})
	}
}

type actorKey struct{}

// RequireActor reads the caller from the actor headers set by the upstream
// auth layer. Requests without an actor id, or with an unknown role, are
// rejected before reaching a handler.
func RequireActor(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id := strings.TrimSpace(r.Header.Get(actorIDHeader))
		if id == "" {
			writeError(w, http.StatusBadRequest, domain.KindValidation, domain.ErrActorRequired.Code, domain.ErrActorRequired.Msg)
			return
		}

		role := domain.Role(strings.ToLower(strings.TrimSpace(r.Header.Get(actorRoleHeader))))
		switch role {
		case "":
			role = domain.RoleOrganizer
		case domain.RoleOrganizer, domain.RoleAdmin:
		default:
			writeError(w, http.StatusBadRequest, domain.KindValidation, codeInvalidRole, "unknown actor role")
			return
		}

		ctx := context.WithValue(r.Context(), actorKey{}, domain.Actor{ID: id, Role: role})
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// RequireAdmin rejects callers without the admin role. It must run after
// RequireActor.
func RequireAdmin(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !actorFrom(r.Context()).IsAdmin() {
			writeError(w, http.StatusForbidden, domain.KindForbidden, domain.ErrAdminRequired.Code, domain.ErrAdminRequired.Msg)
			return
		}
		next.ServeHTTP(w, r)
	})
}

func actorFrom(ctx context.Context) domain.Actor {
	actor, _ := ctx.Value(actorKey{}).(domain.Actor)
	return actor
}
