package api

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"runtime/debug"
	"time"

	"github.com/go-chi/chi/v5/middleware"

	"github.com/vmunix/bellhop/internal/session"
)

type ctxKey struct{}

func withSession(ctx context.Context, sess *session.Session) context.Context {
	return context.WithValue(ctx, ctxKey{}, sess)
}

// sessionFrom returns the session stored by requireSession.
func sessionFrom(ctx context.Context) *session.Session {
	sess, _ := ctx.Value(ctxKey{}).(*session.Session)
	return sess
}

// requireSession resolves the session cookie and rejects the request with
// 401 when there is no live session. A revoked session also clears the cookie.
func (s *Server) requireSession(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		sess, err := s.sessions.Resolve(r.Context(), sessionCookie(r))
		if err != nil && !isExpired(err) {
			s.writeFailure(w, r, err)
			return
		}
		if sess == nil {
			if isExpired(err) {
				s.clearSessionCookie(w)
			}
			writeError(w, http.StatusUnauthorized, "Not authenticated")
			return
		}
		next(w, r.WithContext(withSession(r.Context(), sess)))
	}
}

func isExpired(err error) bool {
	return errors.Is(err, session.ErrSessionExpired)
}

func requestID(r *http.Request) string {
	return middleware.GetReqID(r.Context())
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(code int) {
	if r.status == 200 { // Only capture first WriteHeader call
		r.status = code
	}
	r.ResponseWriter.WriteHeader(code)
}

func (r *statusRecorder) Unwrap() http.ResponseWriter {
	return r.ResponseWriter
}

// logRequests writes one access log line per request. Query strings are left
// out because search terms are user input.
func logRequests(next http.Handler, log *slog.Logger) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		wrapped := &statusRecorder{ResponseWriter: w, status: 200}
		next.ServeHTTP(wrapped, r)
		log.Info("http request",
			"method", r.Method,
			"path", r.URL.Path,
			"status", wrapped.status,
			"duration_ms", time.Since(start).Milliseconds(),
			"remote", r.RemoteAddr,
			"request_id", requestID(r),
		)
	})
}

// recoverPanics turns a handler panic into a logged 500 with the usual
// {error} body. http.ErrAbortHandler is re-raised for net/http to handle.
func recoverPanics(next http.Handler, log *slog.Logger) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		defer func() {
			rec := recover()
			if rec == nil {
				return
			}
			if rec == http.ErrAbortHandler {
				panic(rec)
			}
			log.Error("handler panic",
				"method", r.Method,
				"path", r.URL.Path,
				"panic", rec,
				"request_id", requestID(r),
				"stack", string(debug.Stack()),
			)
			writeError(w, http.StatusInternalServerError, "Internal error")
		}()
		next.ServeHTTP(w, r)
	})
}
