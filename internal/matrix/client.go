// Package matrix is a minimal client for the Matrix client-server API:
// password login, whoami and sending text messages to a room.
package matrix

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/google/uuid"
)

const (
	loginTimeout   = 15 * time.Second
	requestTimeout = 10 * time.Second

	// maxErrorBody bounds how much of an error response is read.
	maxErrorBody = 64 << 10
)

var (
	// ErrUnreachable indicates a transport-level failure talking to the homeserver.
	ErrUnreachable = errors.New("homeserver unreachable")

	// ErrTokenRejected indicates the homeserver answered whoami with a non-success status.
	ErrTokenRejected = errors.New("access token rejected")
)

// LoginError is returned when the homeserver refuses a password login.
type LoginError struct {
	StatusCode int
	Message    string // the homeserver's "error" field, if any
}

func (e *LoginError) Error() string {
	return fmt.Sprintf("matrix login failed (%d): %s", e.StatusCode, e.Message)
}

// LoginResponse is the subset of the login response Bellhop needs.
type LoginResponse struct {
	UserID      string `json:"user_id"`
	AccessToken string `json:"access_token"`
}

// Client talks to a single homeserver.
type Client struct {
	baseURL    string
	httpClient *http.Client
	log        *slog.Logger
}

// Option configures a Client.
type Option func(*Client)

// WithHTTPClient sets a custom HTTP client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) {
		c.httpClient = hc
	}
}

// NewClient creates a client for the homeserver at baseURL.
func NewClient(baseURL string, log *slog.Logger, opts ...Option) *Client {
	if log == nil {
		log = slog.Default()
	}
	c := &Client{
		baseURL:    strings.TrimSuffix(baseURL, "/"),
		httpClient: &http.Client{},
		log:        log.With("component", "matrix"),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Login exchanges a username and password for an access token.
// The username may be a full Matrix id or a localpart; the homeserver resolves it.
func (c *Client) Login(ctx context.Context, username, password string) (*LoginResponse, error) {
	ctx, cancel := context.WithTimeout(ctx, loginTimeout)
	defer cancel()

	payload := map[string]any{
		"type": "m.login.password",
		"identifier": map[string]string{
			"type": "m.id.user",
			"user": username,
		},
		"password": password,
	}
	body, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("encode login: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/_matrix/client/v3/login", bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrUnreachable, err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		return nil, &LoginError{StatusCode: resp.StatusCode, Message: errorField(resp.Body)}
	}

	var lr LoginResponse
	if err := json.NewDecoder(resp.Body).Decode(&lr); err != nil {
		return nil, fmt.Errorf("decode login response: %w", err)
	}
	if lr.UserID == "" || lr.AccessToken == "" {
		return nil, fmt.Errorf("login response missing user_id or access_token")
	}

	c.log.Debug("login succeeded", "user_id", lr.UserID)
	return &lr, nil
}

// WhoAmI returns the user id that owns accessToken.
// Transport failures wrap ErrUnreachable; any non-200 answer wraps ErrTokenRejected.
func (c *Client) WhoAmI(ctx context.Context, accessToken string) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, requestTimeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/_matrix/client/v3/account/whoami", nil)
	if err != nil {
		return "", fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+accessToken)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrUnreachable, err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, maxErrorBody))
		return "", fmt.Errorf("%w: %s", ErrTokenRejected, resp.Status)
	}

	var body struct {
		UserID string `json:"user_id"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return "", fmt.Errorf("decode whoami response: %w", err)
	}
	return body.UserID, nil
}

// SendText posts an m.text message to roomID as the owner of accessToken.
func (c *Client) SendText(ctx context.Context, roomID, accessToken, text string) error {
	ctx, cancel := context.WithTimeout(ctx, requestTimeout)
	defer cancel()

	body, err := json.Marshal(map[string]string{
		"msgtype": "m.text",
		"body":    text,
	})
	if err != nil {
		return fmt.Errorf("encode message: %w", err)
	}

	endpoint := fmt.Sprintf("%s/_matrix/client/v3/rooms/%s/send/m.room.message/%s",
		c.baseURL, url.PathEscape(roomID), uuid.NewString())
	req, err := http.NewRequestWithContext(ctx, http.MethodPut, endpoint, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+accessToken)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrUnreachable, err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		msg := errorField(resp.Body)
		return fmt.Errorf("send message: %s: %s", resp.Status, msg)
	}
	return nil
}

// errorField extracts the "error" field from a Matrix error body.
// It never fails; unparseable bodies yield an empty string.
func errorField(r io.Reader) string {
	var body struct {
		Error string `json:"error"`
	}
	if err := json.NewDecoder(io.LimitReader(r, maxErrorBody)).Decode(&body); err != nil {
		return ""
	}
	return body.Error
}
