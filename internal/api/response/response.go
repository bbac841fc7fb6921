// Package response writes the JSON bodies shared by handlers and middleware.
package response

import (
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/dom/doctree/internal/domain"
)

type ErrorBody struct {
	Code  domain.Kind `json:"code"`
	Error string      `json:"error"`
}

func JSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if v == nil {
		return
	}
	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.Error("failed to encode response", "component", "api", "error", err)
	}
}

// Error maps err to its HTTP status. Internal errors are logged and their
// message is not echoed to the client.
func Error(w http.ResponseWriter, r *http.Request, err error) {
	kind := domain.KindOf(err)
	status := StatusFor(kind)
	msg := err.Error()
	if kind == domain.KindInternal || kind == domain.KindIOFailure {
		slog.Error("request failed", "component", "api", "method", r.Method, "path", r.URL.Path, "error", err)
		msg = http.StatusText(status)
	}
	JSON(w, status, ErrorBody{Code: kind, Error: msg})
}

// Message writes an error body without a wrapped error value.
func Message(w http.ResponseWriter, status int, kind domain.Kind, msg string) {
	JSON(w, status, ErrorBody{Code: kind, Error: msg})
}

func StatusFor(kind domain.Kind) int {
	switch kind {
	case domain.KindNotFound:
		return http.StatusNotFound
	case domain.KindForbidden:
		return http.StatusForbidden
	case domain.KindUnauthorized:
		return http.StatusUnauthorized
	case domain.KindConflict:
		return http.StatusConflict
	case domain.KindInvalidInput:
		return http.StatusBadRequest
	default:
		return http.StatusInternalServerError
	}
}
