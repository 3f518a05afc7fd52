package http

import (
	"bytes"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/cimillas/event-lifecycle/internal/domain"
	"github.com/go-chi/chi/v5/middleware"
)

func TestRequestLogger_LogsStatusAndPath(t *testing.T) {
	t.Parallel()

	buf := &bytes.Buffer{}
	logger := slog.New(slog.NewTextHandler(buf, nil))

	handler := http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusCreated)
	})

	req := httptest.NewRequest(http.MethodGet, "/holds", nil)
	rec := httptest.NewRecorder()

	middleware.RequestID(RequestLogger(logger)(handler)).ServeHTTP(rec, req)

	out := buf.String()
	for _, want := range []string{"method=GET", "path=/holds", "status=201", "request_id="} {
		if !strings.Contains(out, want) {
			t.Fatalf("expected %q in log, got %q", want, out)
		}
	}
}

func TestRequestLogger_DefaultsTo200(t *testing.T) {
	t.Parallel()

	buf := &bytes.Buffer{}
	logger := slog.New(slog.NewTextHandler(buf, nil))

	handler := http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte("ok"))
	})

	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	rec := httptest.NewRecorder()

	RequestLogger(logger)(handler).ServeHTTP(rec, req)

	if out := buf.String(); !strings.Contains(out, "status=200") {
		t.Fatalf("expected default status 200 in log, got %q", out)
	}
}

func TestRequireActor(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name           string
		id             string
		role           string
		expectedStatus int
		expectedActor  domain.Actor
	}{
		{name: "organizer", id: "org-1", role: "organizer", expectedStatus: http.StatusOK, expectedActor: domain.Actor{ID: "org-1", Role: domain.RoleOrganizer}},
		{name: "admin any case", id: "adm", role: "Admin", expectedStatus: http.StatusOK, expectedActor: domain.Actor{ID: "adm", Role: domain.RoleAdmin}},
		{name: "role defaults to organizer", id: "org-2", expectedStatus: http.StatusOK, expectedActor: domain.Actor{ID: "org-2", Role: domain.RoleOrganizer}},
		{name: "missing id", role: "admin", expectedStatus: http.StatusBadRequest},
		{name: "unknown role", id: "x", role: "root", expectedStatus: http.StatusBadRequest},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var got domain.Actor
			handler := RequireActor(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				got = actorFrom(r.Context())
			}))

			req := httptest.NewRequest(http.MethodGet, "/events", nil)
			if tt.id != "" {
				req.Header.Set(actorIDHeader, tt.id)
			}
			if tt.role != "" {
				req.Header.Set(actorRoleHeader, tt.role)
			}
			rec := httptest.NewRecorder()
			handler.ServeHTTP(rec, req)

			if rec.Code != tt.expectedStatus {
				t.Fatalf("expected status %d, got %d", tt.expectedStatus, rec.Code)
			}
			if tt.expectedStatus == http.StatusOK && got != tt.expectedActor {
				t.Fatalf("expected actor %+v, got %+v", tt.expectedActor, got)
			}
		})
	}
}

func TestRequireAdmin(t *testing.T) {
	t.Parallel()

	handler := RequireActor(RequireAdmin(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusTeapot)
	})))

	req := httptest.NewRequest(http.MethodPost, "/admin/sweep", nil)
	req.Header.Set(actorIDHeader, "org-1")
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	if rec.Code != http.StatusForbidden {
		t.Fatalf("expected 403 for organizer, got %d", rec.Code)
	}

	req.Header.Set(actorRoleHeader, "admin")
	rec = httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	if rec.Code != http.StatusTeapot {
		t.Fatalf("expected admin to pass, got %d", rec.Code)
	}
}
