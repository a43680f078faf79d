// Package api serves Bellhop's HTTP API: Matrix login, session checks and the
// authenticated search/request proxy.
package api

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/httprate"

	"github.com/vmunix/bellhop/internal/media"
	"github.com/vmunix/bellhop/internal/session"
)

// maxBodyBytes bounds request bodies for login and add requests.
const maxBodyBytes = 1 << 20

// Sessions is the session manager as seen by the handlers.
type Sessions interface {
	Login(ctx context.Context, username, password string) (*session.Session, error)
	Logout(ctx context.Context, id string) error
	Resolve(ctx context.Context, id string) (*session.Session, error)
}

// Media is the proxy dispatcher as seen by the handlers.
type Media interface {
	Search(ctx context.Context, k media.Kind, term string) ([]any, error)
	Add(ctx context.Context, k media.Kind, actor string, body []byte) (*media.AddResult, error)
}

// Config holds HTTP-layer settings.
type Config struct {
	SecureCookies     bool
	TrustProxyHeaders bool
	LoginRequests     int
	LoginWindow       time.Duration
}

// Server is the Bellhop HTTP API.
type Server struct {
	sessions Sessions
	media    Media
	cfg      Config
	log      *slog.Logger
}

// New creates a server. Zero rate-limit settings fall back to 5 per minute.
func New(sessions Sessions, m Media, cfg Config, log *slog.Logger) *Server {
	if log == nil {
		log = slog.Default()
	}
	if cfg.LoginRequests <= 0 {
		cfg.LoginRequests = 5
	}
	if cfg.LoginWindow <= 0 {
		cfg.LoginWindow = time.Minute
	}
	return &Server{
		sessions: sessions,
		media:    m,
		cfg:      cfg,
		log:      log.With("component", "api"),
	}
}

// RegisterRoutes registers API routes on the given mux.
func (s *Server) RegisterRoutes(mux *http.ServeMux) {
	loginLimit := httprate.Limit(
		s.cfg.LoginRequests,
		s.cfg.LoginWindow,
		httprate.WithKeyFuncs(httprate.KeyByIP),
		httprate.WithLimitHandler(func(w http.ResponseWriter, r *http.Request) {
			writeError(w, http.StatusTooManyRequests, "Too many login attempts. Try again later.")
		}),
	)

	// Auth
	mux.Handle("POST /auth/login", loginLimit(http.HandlerFunc(s.login)))
	mux.HandleFunc("POST /auth/logout", s.logout)
	mux.HandleFunc("GET /auth/me", s.me)

	// Proxy
	mux.HandleFunc("GET /search/{media_type}", s.requireSession(s.search))
	mux.HandleFunc("POST /request/{media_type}", s.requireSession(s.request))

	// System
	mux.HandleFunc("GET /healthz", s.healthz)
}

// Handler returns the complete handler chain: request ids, panic recovery,
// optional proxy-header trust and access logging around the routes.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	s.RegisterRoutes(mux)

	var h http.Handler = mux
	h = recoverPanics(h, s.log)
	h = logRequests(h, s.log)
	if s.cfg.TrustProxyHeaders {
		h = middleware.RealIP(h)
	}
	h = middleware.RequestID(h)
	return h
}

func (s *Server) healthz(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}
