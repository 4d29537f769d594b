package server

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/KaramelBytes/classreport-cli/internal/grades"
	"github.com/KaramelBytes/classreport-cli/internal/session"
)

type errorBody struct {
	Error    string            `json:"error"`
	Hint     string            `json:"hint,omitempty"`
	Warnings []session.Warning `json:"warnings,omitempty"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.Error("write json response", "err", err)
	}
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, errorBody{Error: msg})
}

// statusOf maps domain errors to HTTP status codes.
func statusOf(err error) int {
	var be *session.BatchError
	switch {
	case errors.As(err, &be):
		return http.StatusUnprocessableEntity
	case errors.Is(err, session.ErrNoSnapshot):
		return http.StatusNotFound
	case errors.Is(err, session.ErrNothingToUndo):
		return http.StatusConflict
	case errors.Is(err, grades.ErrEmptyBatch), errors.Is(err, grades.ErrInvalidPolicy):
		return http.StatusBadRequest
	default:
		return http.StatusInternalServerError
	}
}

func (s *Server) fail(w http.ResponseWriter, r *http.Request, err error) {
	code := statusOf(err)
	body := errorBody{Error: err.Error()}
	var be *session.BatchError
	if errors.As(err, &be) {
		body.Hint = be.Hint()
		body.Warnings = be.Warnings
	}
	if code >= 500 {
		s.log.Error("request failed", "method", r.Method, "path", r.URL.Path, "err", err)
	}
	writeJSON(w, code, body)
}
