// Package session maps browser session tokens to verified Matrix identities.
package session

import (
	"crypto/rand"
	"encoding/base64"
	"errors"
	"fmt"
	"time"
)

var (
	// ErrNotFound indicates the session does not exist.
	ErrNotFound = errors.New("session not found")

	// ErrNotAuthenticated is returned by Require when no valid session exists.
	ErrNotAuthenticated = errors.New("not authenticated")

	// ErrSessionExpired indicates the homeserver rejected the stored access token
	// and the session was deleted.
	ErrSessionExpired = errors.New("session expired")

	// ErrMissingCredentials indicates an empty username or password.
	ErrMissingCredentials = errors.New("username and password are required")
)

// CookieName is the name of the cookie carrying the session token.
const CookieName = "bellhop_session"

// MaxAge is the lifetime of the session cookie.
const MaxAge = 7 * 24 * time.Hour

// tokenBytes gives 256 bits of entropy per session token.
const tokenBytes = 32

// Session is a logged-in browser session.
type Session struct {
	ID          string
	UserID      string // Matrix user id, e.g. @alice:example.org
	AccessToken string // Matrix access token; never leaves the server
	CreatedAt   time.Time
	LastSeen    time.Time
}

func newToken() (string, error) {
	b := make([]byte, tokenBytes)
	if _, err := rand.Read(b); err != nil {
		return "", fmt.Errorf("generate session token: %w", err)
	}
	return base64.RawURLEncoding.EncodeToString(b), nil
}
