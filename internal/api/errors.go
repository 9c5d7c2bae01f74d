package api

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/abhisek/viva/internal/engine"
	"github.com/abhisek/viva/internal/session"
	"github.com/abhisek/viva/internal/taxonomy"
)

type errorBody struct {
	Error string `json:"error"`
}

// statusFor maps engine errors to HTTP status codes.
func statusFor(err error) int {
	switch {
	case errors.Is(err, session.ErrNotFound), errors.Is(err, taxonomy.ErrUnknownModule):
		return http.StatusNotFound
	case errors.Is(err, engine.ErrInvalidInput):
		return http.StatusBadRequest
	case errors.Is(err, session.ErrAlreadyCompleted), errors.Is(err, engine.ErrStaleTurn):
		return http.StatusConflict
	case errors.Is(err, engine.ErrSpeechUnavailable):
		return http.StatusNotImplemented
	default:
		return http.StatusInternalServerError
	}
}

func (s *Server) writeError(w http.ResponseWriter, r *http.Request, err error) {
	status := statusFor(err)
	msg := err.Error()
	if status == http.StatusInternalServerError {
		s.log.Error("request failed", "path", r.URL.Path, "error", err)
		msg = "internal error"
	}
	writeJSON(w, status, errorBody{Error: msg})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}
