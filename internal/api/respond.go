package api

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/vmunix/bellhop/internal/matrix"
	"github.com/vmunix/bellhop/internal/media"
	"github.com/vmunix/bellhop/internal/session"
)

type errorResponse struct {
	Error string `json:"error"`
}

func writeError(w http.ResponseWriter, code int, message string) {
	writeJSON(w, code, errorResponse{Error: message})
}

func writeJSON(w http.ResponseWriter, code int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(data)
}

// writeFailure translates a domain error into a status and a caller-facing
// message. Unrecognized errors are logged and reported as 500 without detail.
func (s *Server) writeFailure(w http.ResponseWriter, r *http.Request, err error) {
	var (
		kindErr  *media.UnknownKindError
		mediaErr *media.Error
		loginErr *matrix.LoginError
	)

	switch {
	case errors.As(err, &kindErr):
		writeError(w, http.StatusBadRequest, kindErr.Message())
	case errors.Is(err, media.ErrEmptyTerm):
		writeError(w, http.StatusBadRequest, "Search term is required")
	case errors.Is(err, media.ErrInvalidBody):
		writeError(w, http.StatusBadRequest, "Request body must be a JSON object")
	case errors.Is(err, session.ErrMissingCredentials):
		writeError(w, http.StatusBadRequest, "Username and password are required")
	case errors.As(err, &loginErr):
		msg := loginErr.Message
		if msg == "" {
			msg = "Authentication failed"
		}
		writeError(w, http.StatusUnauthorized, msg)
	case errors.Is(err, matrix.ErrUnreachable):
		writeError(w, http.StatusBadGateway, "Could not reach Matrix homeserver")
	case errors.As(err, &mediaErr):
		writeError(w, mediaStatus(mediaErr), mediaErr.Message())
	default:
		s.log.Error("request failed",
			"method", r.Method,
			"path", r.URL.Path,
			"request_id", requestID(r),
			"error", err,
		)
		writeError(w, http.StatusInternalServerError, "Internal error")
	}
}

func mediaStatus(e *media.Error) int {
	switch {
	case errors.Is(e, media.ErrBackendNotConfigured):
		return http.StatusServiceUnavailable
	case errors.Is(e, media.ErrUpstreamUnreachable):
		return http.StatusBadGateway
	case e.Status >= 400 && e.Status <= 599:
		return e.Status
	default:
		return http.StatusBadGateway
	}
}
