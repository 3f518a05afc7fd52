package http

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi/v5"
)

func TestNotFoundHandler(t *testing.T) {
	r := chi.NewRouter()
	r.Get("/health", HandleHealth(nil))
	r.NotFound(NotFoundHandler())
	r.MethodNotAllowed(MethodNotAllowedHandler())

	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/missing", nil))

	if rec.Code != http.StatusNotFound {
		t.Fatalf("expected status 404, got %d", rec.Code)
	}
	env := decodeEnvelope(t, rec, nil)
	if env.Error == nil || env.Error.Code != codeNotFound {
		t.Fatalf("expected code %s, got %+v", codeNotFound, env.Error)
	}

	rec = httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/health", nil))
	if rec.Code != http.StatusMethodNotAllowed {
		t.Fatalf("expected status 405, got %d", rec.Code)
	}
	env = decodeEnvelope(t, rec, nil)
	if env.Error == nil || env.Error.Code != codeMethodNotAllowed {
		t.Fatalf("expected code %s, got %+v", codeMethodNotAllowed, env.Error)
	}
}
