package http

import (
	"net/http"

	"github.com/cimillas/event-lifecycle/internal/domain"
)

// NotFoundHandler returns the JSON envelope for unknown routes.
func NotFoundHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		writeError(w, http.StatusNotFound, domain.KindNotFound, codeNotFound, "not found")
	}
}

// MethodNotAllowedHandler returns the JSON envelope for a known route hit
// with the wrong method.
func MethodNotAllowedHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		writeError(w, http.StatusMethodNotAllowed, domain.KindValidation, codeMethodNotAllowed, "method not allowed")
	}
}
