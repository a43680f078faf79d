package api

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	_ "modernc.org/sqlite"

	"github.com/vmunix/bellhop/internal/database"
	"github.com/vmunix/bellhop/internal/matrix"
	"github.com/vmunix/bellhop/internal/media"
	"github.com/vmunix/bellhop/internal/session"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// fakeHomeserver implements password login and whoami.
type fakeHomeserver struct {
	mu        sync.Mutex
	passwords map[string]string // localpart -> password
	tokens    map[string]string // access token -> user id
	issued    int
}

func newFakeHomeserver() *fakeHomeserver {
	return &fakeHomeserver{
		passwords: map[string]string{"alice": "hunter2", "bob": "swordfish"},
		tokens:    map[string]string{},
	}
}

func (h *fakeHomeserver) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	h.mu.Lock()
	defer h.mu.Unlock()

	switch r.URL.Path {
	case "/_matrix/client/v3/login":
		var req struct {
			Identifier struct {
				User string `json:"user"`
			} `json:"identifier"`
			Password string `json:"password"`
		}
		_ = json.NewDecoder(r.Body).Decode(&req)
		if pw, ok := h.passwords[req.Identifier.User]; !ok || pw != req.Password {
			w.WriteHeader(http.StatusForbidden)
			_, _ = w.Write([]byte(`{"errcode":"M_FORBIDDEN","error":"Invalid username or password"}`))
			return
		}
		h.issued++
		token := "syt_" + req.Identifier.User + "_" + strings.Repeat("x", h.issued)
		userID := "@" + req.Identifier.User + ":example.org"
		h.tokens[token] = userID
		_ = json.NewEncoder(w).Encode(map[string]string{"user_id": userID, "access_token": token})
	case "/_matrix/client/v3/account/whoami":
		token := strings.TrimPrefix(r.Header.Get("Authorization"), "Bearer ")
		userID, ok := h.tokens[token]
		if !ok {
			w.WriteHeader(http.StatusUnauthorized)
			_, _ = w.Write([]byte(`{"errcode":"M_UNKNOWN_TOKEN","error":"Invalid access token"}`))
			return
		}
		_ = json.NewEncoder(w).Encode(map[string]string{"user_id": userID})
	default:
		http.NotFound(w, r)
	}
}

func (h *fakeHomeserver) revokeAll() {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.tokens = map[string]string{}
}

// switchTransport fails every request while down is set.
type switchTransport struct {
	down atomic.Bool
}

func (t *switchTransport) RoundTrip(r *http.Request) (*http.Response, error) {
	if t.down.Load() {
		return nil, errors.New("dial tcp: connection refused")
	}
	return http.DefaultTransport.RoundTrip(r)
}

// fakeArr records what the proxy sends and answers with respond.
type fakeArr struct {
	mu      sync.Mutex
	calls   int
	paths   []string
	payload map[string]any
	respond func(w http.ResponseWriter, r *http.Request)
}

func (a *fakeArr) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	a.mu.Lock()
	a.calls++
	a.paths = append(a.paths, r.URL.Path)
	if r.Method == http.MethodPost {
		a.payload = nil
		_ = json.NewDecoder(r.Body).Decode(&a.payload)
	}
	respond := a.respond
	a.mu.Unlock()
	respond(w, r)
}

func (a *fakeArr) setRespond(f func(w http.ResponseWriter, r *http.Request)) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.respond = f
}

func (a *fakeArr) callCount() int {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.calls
}

type recordingNotifier struct {
	mu       sync.Mutex
	messages []string
}

func (n *recordingNotifier) Notify(message string) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.messages = append(n.messages, message)
}

func (n *recordingNotifier) all() []string {
	n.mu.Lock()
	defer n.mu.Unlock()
	return append([]string(nil), n.messages...)
}

type testEnv struct {
	handler   http.Handler
	hs        *fakeHomeserver
	transport *switchTransport
	arr       *fakeArr
	audit     *recordingNotifier
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()

	db, err := sql.Open("sqlite", ":memory:")
	require.NoError(t, err)
	db.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = db.Close() })
	require.NoError(t, database.Migrate(db))

	hs := newFakeHomeserver()
	hsSrv := httptest.NewServer(hs)
	t.Cleanup(hsSrv.Close)

	transport := &switchTransport{}
	mx := matrix.NewClient(hsSrv.URL, testLogger(), matrix.WithHTTPClient(&http.Client{Transport: transport}))
	sessions := session.NewManager(session.NewStore(db), mx, testLogger())

	arr := &fakeArr{respond: func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusCreated)
	}}
	arrSrv := httptest.NewServer(arr)
	t.Cleanup(arrSrv.Close)

	reg := media.NewRegistry(map[media.Kind]media.Settings{
		media.Movie: {URL: arrSrv.URL, APIKey: "radarr-key", QualityProfileID: 7, RootFolder: "/srv/movies"},
		media.TV:    {URL: arrSrv.URL, APIKey: "sonarr-key"},
	})
	audit := &recordingNotifier{}
	dispatcher := media.NewDispatcher(reg, testLogger(), media.WithNotifier(audit))

	srv := New(sessions, dispatcher, Config{SecureCookies: true}, testLogger())
	return &testEnv{
		handler:   srv.Handler(),
		hs:        hs,
		transport: transport,
		arr:       arr,
		audit:     audit,
	}
}

func (e *testEnv) do(t *testing.T, method, target, body string, cookies ...*http.Cookie) *httptest.ResponseRecorder {
	t.Helper()
	var r io.Reader
	if body != "" {
		r = strings.NewReader(body)
	}
	req := httptest.NewRequest(method, target, r)
	for _, c := range cookies {
		req.AddCookie(c)
	}
	rec := httptest.NewRecorder()
	e.handler.ServeHTTP(rec, req)
	return rec
}

func (e *testEnv) login(t *testing.T, user, password string) *http.Cookie {
	t.Helper()
	rec := e.do(t, http.MethodPost, "/auth/login", `{"username":"`+user+`","password":"`+password+`"}`)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	c := findCookie(rec)
	require.NotNil(t, c, "login must set the session cookie")
	return c
}

func findCookie(rec *httptest.ResponseRecorder) *http.Cookie {
	for _, c := range rec.Result().Cookies() {
		if c.Name == session.CookieName {
			return c
		}
	}
	return nil
}

func errorBody(t *testing.T, rec *httptest.ResponseRecorder) string {
	t.Helper()
	assert.Equal(t, "application/json", rec.Header().Get("Content-Type"))
	var body map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body), rec.Body.String())
	assert.Len(t, body, 1, "error bodies carry only the error field")
	msg, _ := body["error"].(string)
	return msg
}

func TestAuthFlow(t *testing.T) {
	env := newTestEnv(t)

	rec := env.do(t, http.MethodPost, "/auth/login", `{"username":"  alice ","password":"hunter2"}`)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"user_id":"@alice:example.org"}`, rec.Body.String())
	assert.NotContains(t, rec.Body.String(), "syt_", "access token must not leak")

	cookie := findCookie(rec)
	require.NotNil(t, cookie)
	assert.True(t, cookie.HttpOnly)
	assert.True(t, cookie.Secure)
	assert.Equal(t, http.SameSiteStrictMode, cookie.SameSite)
	assert.Equal(t, 7*24*60*60, cookie.MaxAge)
	assert.Equal(t, "/", cookie.Path)
	assert.NotContains(t, cookie.Value, "syt_")
	assert.NotContains(t, rec.Body.String(), cookie.Value, "session token must not appear in the body")

	rec = env.do(t, http.MethodGet, "/auth/me", "", cookie)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"user_id":"@alice:example.org"}`, rec.Body.String())

	rec = env.do(t, http.MethodPost, "/auth/logout", "", cookie)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"ok":true}`, rec.Body.String())
	cleared := findCookie(rec)
	require.NotNil(t, cleared)
	assert.Negative(t, cleared.MaxAge)
	assert.Empty(t, cleared.Value)

	rec = env.do(t, http.MethodGet, "/auth/me", "", cookie)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Equal(t, "Not authenticated", errorBody(t, rec))

	// Logging out again is harmless.
	rec = env.do(t, http.MethodPost, "/auth/logout", "", cookie)
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestLogin_Errors(t *testing.T) {
	tests := []struct {
		name   string
		body   string
		down   bool
		status int
		msg    string
	}{
		{"missing password", `{"username":"alice"}`, false, http.StatusBadRequest, "Username and password are required"},
		{"blank username", `{"username":"   ","password":"x"}`, false, http.StatusBadRequest, "Username and password are required"},
		{"not json", `username=alice`, false, http.StatusBadRequest, "Username and password are required"},
		{"wrong password", `{"username":"alice","password":"nope"}`, false, http.StatusUnauthorized, "Invalid username or password"},
		{"homeserver down", `{"username":"alice","password":"hunter2"}`, true, http.StatusBadGateway, "Could not reach Matrix homeserver"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			env := newTestEnv(t)
			env.transport.down.Store(tt.down)

			rec := env.do(t, http.MethodPost, "/auth/login", tt.body)
			assert.Equal(t, tt.status, rec.Code)
			assert.Equal(t, tt.msg, errorBody(t, rec))
			assert.Nil(t, findCookie(rec))
		})
	}
}

func TestLogin_RateLimited(t *testing.T) {
	env := newTestEnv(t)

	for i := range 5 {
		rec := env.do(t, http.MethodPost, "/auth/login", `{"username":"alice","password":"wrong"}`)
		require.Equal(t, http.StatusUnauthorized, rec.Code, "attempt %d", i+1)
	}

	rec := env.do(t, http.MethodPost, "/auth/login", `{"username":"alice","password":"hunter2"}`)
	assert.Equal(t, http.StatusTooManyRequests, rec.Code)
	assert.NotEmpty(t, errorBody(t, rec))
	assert.Nil(t, findCookie(rec))

	// Another client is unaffected.
	req := httptest.NewRequest(http.MethodPost, "/auth/login", strings.NewReader(`{"username":"alice","password":"hunter2"}`))
	req.RemoteAddr = "198.51.100.7:4242"
	rec = httptest.NewRecorder()
	env.handler.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusOK, rec.Code)

	// Only login is limited.
	rec = env.do(t, http.MethodGet, "/auth/me", "")
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestMe_NoSession(t *testing.T) {
	env := newTestEnv(t)

	rec := env.do(t, http.MethodGet, "/auth/me", "")
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Equal(t, "Not authenticated", errorBody(t, rec))

	rec = env.do(t, http.MethodGet, "/auth/me", "", &http.Cookie{Name: session.CookieName, Value: "forged"})
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Equal(t, "Not authenticated", errorBody(t, rec))
}

func TestMe_TokenRevoked(t *testing.T) {
	env := newTestEnv(t)
	cookie := env.login(t, "alice", "hunter2")

	env.hs.revokeAll()

	rec := env.do(t, http.MethodGet, "/auth/me", "", cookie)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Equal(t, "Session expired", errorBody(t, rec))
	cleared := findCookie(rec)
	require.NotNil(t, cleared, "revoked session must clear the cookie")
	assert.Negative(t, cleared.MaxAge)

	// The session row is gone, so the next check does not reach the homeserver.
	rec = env.do(t, http.MethodGet, "/auth/me", "", cookie)
	assert.Equal(t, "Not authenticated", errorBody(t, rec))
}

func TestMe_HomeserverDownTrustsSession(t *testing.T) {
	env := newTestEnv(t)
	cookie := env.login(t, "alice", "hunter2")

	env.transport.down.Store(true)

	for range 2 {
		rec := env.do(t, http.MethodGet, "/auth/me", "", cookie)
		require.Equal(t, http.StatusOK, rec.Code)
		assert.JSONEq(t, `{"user_id":"@alice:example.org"}`, rec.Body.String())
	}
}

func TestProxy_RequiresSession(t *testing.T) {
	env := newTestEnv(t)

	rec := env.do(t, http.MethodGet, "/search/movie?term=dune", "")
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Equal(t, "Not authenticated", errorBody(t, rec))

	rec = env.do(t, http.MethodPost, "/request/movie", `{"title":"Dune"}`)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	// Authentication is checked before the media type.
	rec = env.do(t, http.MethodGet, "/search/books?term=x", "")
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	cookie := env.login(t, "bob", "swordfish")
	env.hs.revokeAll()
	rec = env.do(t, http.MethodGet, "/search/movie?term=dune", "", cookie)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Equal(t, "Not authenticated", errorBody(t, rec))
	assert.NotNil(t, findCookie(rec), "revoked session clears the cookie")

	assert.Zero(t, env.arr.callCount())
	assert.Empty(t, env.audit.all())
}

func TestSearch(t *testing.T) {
	env := newTestEnv(t)
	cookie := env.login(t, "alice", "hunter2")

	env.arr.setRespond(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "radarr-key", r.Header.Get("X-Api-Key"))
		assert.Equal(t, "dune part two", r.URL.Query().Get("term"))
		_, _ = w.Write([]byte(`[{"title":"Dune: Part Two","year":2024,"tmdbId":693134,"path":"/secret","qualityProfileId":3}]`))
	})

	rec := env.do(t, http.MethodGet, "/search/movie?term=dune+part+two", "", cookie)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.JSONEq(t, `[{"title":"Dune: Part Two","year":2024,"tmdbId":693134,"overview":"","remotePoster":"","hasFile":false}]`, rec.Body.String())
}

func TestSearch_Errors(t *testing.T) {
	env := newTestEnv(t)
	cookie := env.login(t, "alice", "hunter2")

	env.arr.setRespond(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	})

	tests := []struct {
		name   string
		target string
		status int
		msg    string
	}{
		{"unknown type", "/search/books?term=x", http.StatusBadRequest, "Invalid type. Must be one of: movie, tv, music"},
		{"near miss", "/search/movei?term=x", http.StatusBadRequest, `Invalid type. Must be one of: movie, tv, music. Did you mean "movie"?`},
		{"empty term", "/search/movie?term=%20%20", http.StatusBadRequest, "Search term is required"},
		{"no term", "/search/tv", http.StatusBadRequest, "Search term is required"},
		{"not configured", "/search/music?term=daft+punk", http.StatusServiceUnavailable, "Artist service is not configured"},
		{"downstream status", "/search/tv?term=severance", http.StatusInternalServerError, "Show lookup failed"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := env.do(t, http.MethodGet, tt.target, "", cookie)
			assert.Equal(t, tt.status, rec.Code)
			assert.Equal(t, tt.msg, errorBody(t, rec))
		})
	}
	assert.Equal(t, 1, env.arr.callCount(), "only the downstream-status case reaches the backend")
}

func TestRequest_AddMovie(t *testing.T) {
	env := newTestEnv(t)
	cookie := env.login(t, "alice", "hunter2")

	rec := env.do(t, http.MethodPost, "/request/movie",
		`{"title":"Dune","year":2021,"tmdbId":438631,"qualityProfileId":99,"rootFolderPath":"/etc"}`, cookie)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.JSONEq(t, `{"ok":true,"message":"Movie added successfully"}`, rec.Body.String())

	env.arr.mu.Lock()
	payload := env.arr.payload
	env.arr.mu.Unlock()
	assert.Equal(t, float64(7), payload["qualityProfileId"])
	assert.Equal(t, "/srv/movies", payload["rootFolderPath"])
	assert.Equal(t, true, payload["monitored"])

	assert.Equal(t, []string{`[REQUEST] @alice:example.org → [Movie] "Dune" (2021)`}, env.audit.all())
}

func TestRequest_Errors(t *testing.T) {
	env := newTestEnv(t)
	cookie := env.login(t, "alice", "hunter2")

	env.arr.setRespond(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
		_, _ = w.Write([]byte(`[{"errorMessage":"This series has already been added"}]`))
	})

	tests := []struct {
		name   string
		target string
		body   string
		status int
		msg    string
	}{
		{"not an object", "/request/tv", `[]`, http.StatusBadRequest, "Request body must be a JSON object"},
		{"unknown type", "/request/film", `{}`, http.StatusBadRequest, `Invalid type. Must be one of: movie, tv, music. Did you mean "movie"?`},
		{"not configured", "/request/music", `{"artistName":"Daft Punk"}`, http.StatusServiceUnavailable, "Artist service is not configured"},
		{"rejected", "/request/tv", `{"title":"Severance","tvdbId":371980}`, http.StatusBadRequest, "Failed to add to Show: This series has already been added"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := env.do(t, http.MethodPost, tt.target, tt.body, cookie)
			assert.Equal(t, tt.status, rec.Code)
			assert.Equal(t, tt.msg, errorBody(t, rec))
		})
	}
	assert.Empty(t, env.audit.all(), "failed requests are not audited")
}

func TestRequest_BodyTooLarge(t *testing.T) {
	env := newTestEnv(t)
	cookie := env.login(t, "alice", "hunter2")

	body := `{"title":"` + strings.Repeat("a", maxBodyBytes) + `"}`
	rec := env.do(t, http.MethodPost, "/request/movie", body, cookie)
	assert.Equal(t, http.StatusRequestEntityTooLarge, rec.Code)
	assert.Zero(t, env.arr.callCount())
}

func TestHealthz(t *testing.T) {
	env := newTestEnv(t)
	rec := env.do(t, http.MethodGet, "/healthz", "")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"status":"ok"}`, rec.Body.String())
}

// brokenSessions fails in a way the API does not recognize.
type brokenSessions struct{}

func (brokenSessions) Login(context.Context, string, string) (*session.Session, error) {
	return nil, errors.New("database is locked: /var/lib/bellhop/bellhop.db")
}
func (brokenSessions) Logout(context.Context, string) error { return nil }
func (brokenSessions) Resolve(context.Context, string) (*session.Session, error) {
	return nil, errors.New("database is locked: /var/lib/bellhop/bellhop.db")
}

func TestUnexpectedErrorsAreHidden(t *testing.T) {
	srv := New(brokenSessions{}, nil, Config{}, testLogger())
	h := srv.Handler()

	for _, target := range []string{"/auth/me", "/search/movie?term=x"} {
		req := httptest.NewRequest(http.MethodGet, target, nil)
		req.AddCookie(&http.Cookie{Name: session.CookieName, Value: "x"})
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, req)

		assert.Equal(t, http.StatusInternalServerError, rec.Code, target)
		assert.JSONEq(t, `{"error":"Internal error"}`, rec.Body.String(), target)
	}

	req := httptest.NewRequest(http.MethodPost, "/auth/login", strings.NewReader(`{"username":"a","password":"b"}`))
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.NotContains(t, rec.Body.String(), "database")
}
