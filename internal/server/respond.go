package server

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"

	"github.com/verte-zerg/typerush/internal/model"
)

func (s *Server) jsonResponse(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		s.logger.Warnw("failed to encode response", "error", err)
	}
}

func (s *Server) errorResponse(w http.ResponseWriter, status int, message string) {
	s.jsonResponse(w, status, map[string]string{"error": message})
}

// writeError maps domain errors onto HTTP statuses. Anything unrecognised is
// logged and reported as a 500 without leaking details.
func (s *Server) writeError(w http.ResponseWriter, r *http.Request, err error) {
	switch {
	case errors.Is(err, model.ErrValidation):
		s.errorResponse(w, http.StatusBadRequest, err.Error())
	case errors.Is(err, model.ErrInvalidCredentials):
		authFailures.WithLabelValues("credentials").Inc()
		s.errorResponse(w, http.StatusUnauthorized, "Invalid credentials")
	case errors.Is(err, model.ErrUnauthorized):
		authFailures.WithLabelValues("token").Inc()
		s.errorResponse(w, http.StatusUnauthorized, "Unauthorized")
	case errors.Is(err, model.ErrDuplicateAccount):
		s.errorResponse(w, http.StatusConflict, "Email already registered")
	case errors.Is(err, model.ErrNotFound):
		s.errorResponse(w, http.StatusNotFound, "Not found")
	default:
		s.logger.Errorw("request failed",
			"method", r.Method,
			"path", r.URL.Path,
			"error", err,
		)
		s.errorResponse(w, http.StatusInternalServerError, "Internal server error")
	}
}

func decodeJSON(w http.ResponseWriter, r *http.Request, limit int64, dst any) error {
	r.Body = http.MaxBytesReader(w, r.Body, limit)
	dec := json.NewDecoder(r.Body)
	if err := dec.Decode(dst); err != nil {
		return fmt.Errorf("%w: invalid request body", model.ErrValidation)
	}
	return nil
}

// queryInt reads a non-negative integer query parameter. Missing values
// yield def.
func queryInt(r *http.Request, name string, def int) (int, error) {
	raw := r.URL.Query().Get(name)
	if raw == "" {
		return def, nil
	}
	n, err := strconv.Atoi(raw)
	if err != nil || n < 0 {
		return 0, fmt.Errorf("%w: %s must be a non-negative integer", model.ErrValidation, name)
	}
	return n, nil
}

// queryOptionalInt reads an optional integer query parameter.
func queryOptionalInt(r *http.Request, name string) (*int, error) {
	raw := r.URL.Query().Get(name)
	if raw == "" {
		return nil, nil
	}
	n, err := strconv.Atoi(raw)
	if err != nil {
		return nil, fmt.Errorf("%w: %s must be an integer", model.ErrValidation, name)
	}
	return &n, nil
}
