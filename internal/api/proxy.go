package api

import (
	"errors"
	"io"
	"net/http"

	"github.com/vmunix/bellhop/internal/media"
)

func (s *Server) search(w http.ResponseWriter, r *http.Request) {
	kind, err := media.ParseKind(r.PathValue("media_type"))
	if err != nil {
		s.writeFailure(w, r, err)
		return
	}

	results, err := s.media.Search(r.Context(), kind, r.URL.Query().Get("term"))
	if err != nil {
		s.writeFailure(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, results)
}

func (s *Server) request(w http.ResponseWriter, r *http.Request) {
	kind, err := media.ParseKind(r.PathValue("media_type"))
	if err != nil {
		s.writeFailure(w, r, err)
		return
	}

	body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			writeError(w, http.StatusRequestEntityTooLarge, "Request body too large")
			return
		}
		writeError(w, http.StatusBadRequest, "Could not read request body")
		return
	}

	sess := sessionFrom(r.Context())
	result, err := s.media.Add(r.Context(), kind, sess.UserID, body)
	if err != nil {
		s.writeFailure(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, result)
}
