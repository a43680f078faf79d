package api

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/vmunix/bellhop/internal/session"
)

type loginRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

type userResponse struct {
	UserID string `json:"user_id"`
}

type okResponse struct {
	OK bool `json:"ok"`
}

func (s *Server) login(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes)).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Username and password are required")
		return
	}

	sess, err := s.sessions.Login(r.Context(), req.Username, req.Password)
	if err != nil {
		s.log.Info("login rejected", "request_id", requestID(r), "error", err)
		s.writeFailure(w, r, err)
		return
	}

	s.setSessionCookie(w, sess.ID)
	writeJSON(w, http.StatusOK, userResponse{UserID: sess.UserID})
}

func (s *Server) logout(w http.ResponseWriter, r *http.Request) {
	if id := sessionCookie(r); id != "" {
		if err := s.sessions.Logout(r.Context(), id); err != nil {
			s.log.Error("logout failed", "request_id", requestID(r), "error", err)
		}
	}
	s.clearSessionCookie(w)
	writeJSON(w, http.StatusOK, okResponse{OK: true})
}

func (s *Server) me(w http.ResponseWriter, r *http.Request) {
	sess, err := s.sessions.Resolve(r.Context(), sessionCookie(r))
	switch {
	case errors.Is(err, session.ErrSessionExpired):
		s.clearSessionCookie(w)
		writeError(w, http.StatusUnauthorized, "Session expired")
		return
	case err != nil:
		s.writeFailure(w, r, err)
		return
	case sess == nil:
		writeError(w, http.StatusUnauthorized, "Not authenticated")
		return
	}
	writeJSON(w, http.StatusOK, userResponse{UserID: sess.UserID})
}

func sessionCookie(r *http.Request) string {
	c, err := r.Cookie(session.CookieName)
	if err != nil {
		return ""
	}
	return c.Value
}

func (s *Server) setSessionCookie(w http.ResponseWriter, id string) {
	http.SetCookie(w, &http.Cookie{
		Name:     session.CookieName,
		Value:    id,
		Path:     "/",
		MaxAge:   int(session.MaxAge.Seconds()),
		HttpOnly: true,
		Secure:   s.cfg.SecureCookies,
		SameSite: http.SameSiteStrictMode,
	})
}

func (s *Server) clearSessionCookie(w http.ResponseWriter) {
	http.SetCookie(w, &http.Cookie{
		Name:     session.CookieName,
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		HttpOnly: true,
		Secure:   s.cfg.SecureCookies,
		SameSite: http.SameSiteStrictMode,
	})
}
