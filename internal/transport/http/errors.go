package http

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/cimillas/event-lifecycle/internal/domain"
)

const (
	codeMethodNotAllowed   = "method_not_allowed"
	codeNotFound           = "not_found"
	codeInvalidRequestBody = "invalid_request_body"
	codeInvalidTime        = "invalid_time"
	codeInvalidRole        = "invalid_role"
	codeInvalidFilter      = "invalid_filter"
	codeForbidden          = "forbidden"
	codeInternalError      = "internal_error"
	codeUnavailable        = "unavailable"
)

const (
	statusOK    = "ok"
	statusError = "error"
)

type envelope struct {
	Status string     `json:"status"`
	Data   any        `json:"data,omitempty"`
	Error  *errorBody `json:"error,omitempty"`
}

type errorBody struct {
	Kind    string `json:"kind"`
	Code    string `json:"code"`
	Message string `json:"message"`
}

var kindStatus = map[domain.Kind]int{
	domain.KindNotFound:          http.StatusNotFound,
	domain.KindForbidden:         http.StatusForbidden,
	domain.KindConflict:          http.StatusConflict,
	domain.KindInvalidTransition: http.StatusConflict,
	domain.KindStateExpired:      http.StatusGone,
	domain.KindValidation:        http.StatusBadRequest,
}

func writeJSON(w http.ResponseWriter, status int, payload envelope) {
	body, err := json.Marshal(payload)
	w.Header().Set("Content-Type", "application/json")
	if err != nil {
		w.WriteHeader(http.StatusInternalServerError)
		_, _ = w.Write([]byte(`{"status":"error","error":{"kind":"internal","code":"internal_error","message":"internal error"}}`))
		return
	}
	w.WriteHeader(status)
	_, _ = w.Write(body)
}

func writeData(w http.ResponseWriter, status int, data any) {
	writeJSON(w, status, envelope{Status: statusOK, Data: data})
}

func writeError(w http.ResponseWriter, status int, kind domain.Kind, code, msg string) {
	writeJSON(w, status, envelope{
		Status: statusError,
		Error:  &errorBody{Kind: string(kind), Code: code, Message: msg},
	})
}

// writeServiceError maps a service error onto the envelope by its kind.
// Errors outside the domain taxonomy are logged and reported as 500 without
// their text.
func writeServiceError(w http.ResponseWriter, r *http.Request, logger *slog.Logger, err error) {
	kind := domain.KindOf(err)
	status, ok := kindStatus[kind]
	if !ok {
		if logger != nil {
			logger.ErrorContext(r.Context(), "request failed", "method", r.Method, "path", r.URL.Path, "error", err)
		}
		writeError(w, http.StatusInternalServerError, domain.KindInternal, codeInternalError, "internal error")
		return
	}

	msg := err.Error()
	var te *domain.TransitionError
	if !errors.As(err, &te) {
		var de *domain.Error
		if errors.As(err, &de) {
			msg = de.Msg
		}
	}
	writeError(w, status, kind, domain.CodeOf(err), msg)
}
