package http

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net"
	"net/http"

	"github.com/vncsmyrnk/univote/internal/core/domain"
)

type errorResponse struct {
	Error   string `json:"error"`
	Message string `json:"message"`
}

func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		slog.Error("failed to encode JSON response", "error", err)
	}
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, errorResponse{
		Error:   http.StatusText(status),
		Message: message,
	})
}

// writeServiceError maps core errors to HTTP status codes. Anything unknown is
// logged and reported as a bare 500.
func writeServiceError(w http.ResponseWriter, r *http.Request, err error) {
	status := http.StatusInternalServerError
	switch {
	case errors.Is(err, domain.ErrElectionNotFound), errors.Is(err, domain.ErrVoterNotFound):
		status = http.StatusNotFound
	case errors.Is(err, domain.ErrVotingClosed), errors.Is(err, domain.ErrResultsNotReady):
		status = http.StatusForbidden
	case errors.Is(err, domain.ErrAlreadyVoted), errors.Is(err, domain.ErrConflictingState), errors.Is(err, domain.ErrVoterExists):
		status = http.StatusConflict
	case errors.Is(err, domain.ErrInvalidSelection), errors.Is(err, domain.ErrInvalidElection), errors.Is(err, domain.ErrInvalidVoter):
		status = http.StatusBadRequest
	}

	if status == http.StatusInternalServerError {
		slog.Error("request failed",
			"method", r.Method,
			"path", r.URL.Path,
			"error", err,
		)
		writeError(w, status, "internal server error")
		return
	}
	writeError(w, status, err.Error())
}

func decodeJSON(r *http.Request, v any) error {
	defer r.Body.Close()
	return json.NewDecoder(r.Body).Decode(v)
}

// clientIP relies on middleware.RealIP having rewritten RemoteAddr.
func clientIP(r *http.Request) string {
	ip, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return ip
}
