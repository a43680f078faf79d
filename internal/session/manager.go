package session

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"golang.org/x/text/unicode/norm"

	"github.com/vmunix/bellhop/internal/matrix"
)

//go:generate mockgen -destination=mocks/mock_homeserver.go -package=mocks . Homeserver

// Homeserver is the part of the Matrix client the manager depends on.
type Homeserver interface {
	Login(ctx context.Context, username, password string) (*matrix.LoginResponse, error)
	WhoAmI(ctx context.Context, accessToken string) (string, error)
}

// Manager handles login, logout and session resolution.
type Manager struct {
	store *Store
	hs    Homeserver
	log   *slog.Logger
}

// NewManager creates a session manager.
func NewManager(store *Store, hs Homeserver, log *slog.Logger) *Manager {
	if log == nil {
		log = slog.Default()
	}
	return &Manager{
		store: store,
		hs:    hs,
		log:   log.With("component", "session"),
	}
}

// Login authenticates against the homeserver and creates a session.
// Errors from the homeserver are returned wrapped: matrix.ErrUnreachable for
// transport failures, *matrix.LoginError for rejected credentials.
func (m *Manager) Login(ctx context.Context, username, password string) (*Session, error) {
	username = norm.NFC.String(strings.TrimSpace(username))
	if username == "" || password == "" {
		return nil, ErrMissingCredentials
	}

	resp, err := m.hs.Login(ctx, username, password)
	if err != nil {
		return nil, fmt.Errorf("login %s: %w", username, err)
	}

	sess, err := m.store.Create(ctx, resp.UserID, resp.AccessToken)
	if err != nil {
		return nil, err
	}
	m.log.Info("session created", "user_id", sess.UserID)
	return sess, nil
}

// Logout deletes the session. A missing session is not an error.
func (m *Manager) Logout(ctx context.Context, id string) error {
	if id == "" {
		return nil
	}
	return m.store.Delete(ctx, id)
}

// Resolve returns the session for id after checking its access token with
// the homeserver. It returns (nil, nil) when no such session exists.
//
// If the homeserver cannot be reached the stored session is trusted as-is.
// If it rejects the token the session is deleted and ErrSessionExpired is
// returned.
func (m *Manager) Resolve(ctx context.Context, id string) (*Session, error) {
	if id == "" {
		return nil, nil
	}

	sess, err := m.store.Get(ctx, id)
	if errors.Is(err, ErrNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}

	_, err = m.hs.WhoAmI(ctx, sess.AccessToken)
	switch {
	case err == nil:
		return sess, nil
	case errors.Is(err, matrix.ErrTokenRejected):
		if delErr := m.store.Delete(ctx, id); delErr != nil {
			return nil, delErr
		}
		m.log.Info("session revoked by homeserver", "user_id", sess.UserID)
		return nil, ErrSessionExpired
	default:
		m.log.Warn("homeserver unavailable, trusting stored session", "user_id", sess.UserID, "error", err)
		return sess, nil
	}
}

// Require is Resolve for protected endpoints: a missing session yields
// ErrNotAuthenticated. A revoked session yields ErrSessionExpired.
func (m *Manager) Require(ctx context.Context, id string) (*Session, error) {
	sess, err := m.Resolve(ctx, id)
	if err != nil {
		return nil, err
	}
	if sess == nil {
		return nil, ErrNotAuthenticated
	}
	return sess, nil
}
