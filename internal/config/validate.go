package config

import (
	"fmt"
	"net/url"
	"sort"

	"github.com/vmunix/bellhop/internal/media"
)

var validLogLevels = map[string]bool{
	"debug": true, "info": true, "warn": true, "error": true, "": true,
}

// Validate checks the configuration for errors.
// Returns a slice of error messages (empty if valid).
func (c *Config) Validate() []string {
	var errs []string

	// Server
	if c.Server.Port < 1 || c.Server.Port > 65535 {
		errs = append(errs, fmt.Sprintf("server.port: must be between 1 and 65535, got %d", c.Server.Port))
	}
	if !validLogLevels[c.Server.LogLevel] {
		errs = append(errs, fmt.Sprintf("server.log_level: must be one of debug, info, warn, error; got %q", c.Server.LogLevel))
	}

	// Matrix
	if c.Matrix.HomeserverURL == "" {
		errs = append(errs, "matrix.homeserver_url: required")
	} else if !isHTTPURL(c.Matrix.HomeserverURL) {
		errs = append(errs, fmt.Sprintf("matrix.homeserver_url: must be an http(s) URL, got %q", c.Matrix.HomeserverURL))
	}
	if (c.Matrix.AuditRoomID == "") != (c.Matrix.BotAccessToken == "") {
		errs = append(errs, "matrix: audit_room_id and bot_access_token must be set together")
	}
	if c.Matrix.AuditQueueSize < 0 {
		errs = append(errs, fmt.Sprintf("matrix.audit_queue_size: must be positive, got %d", c.Matrix.AuditQueueSize))
	}

	// Backends, in key order so messages are stable
	keys := make([]string, 0, len(c.Backends))
	for key := range c.Backends {
		keys = append(keys, key)
	}
	sort.Strings(keys)
	for _, key := range keys {
		b := c.Backends[key]
		if _, err := media.ParseKind(key); err != nil {
			errs = append(errs, fmt.Sprintf("backends.%s: unknown backend, must be one of movie, tv, music", key))
			continue
		}
		if b.URL != "" && !isHTTPURL(b.URL) {
			errs = append(errs, fmt.Sprintf("backends.%s.url: must be an http(s) URL, got %q", key, b.URL))
		}
		if b.URL != "" && b.APIKey == "" {
			errs = append(errs, fmt.Sprintf("backends.%s.api_key: required when url is set", key))
		}
		if b.QualityProfileID < 0 {
			errs = append(errs, fmt.Sprintf("backends.%s.quality_profile_id: must be positive, got %d", key, b.QualityProfileID))
		}
	}

	// Rate limit and sessions
	if c.RateLimit.LoginRequests < 1 {
		errs = append(errs, fmt.Sprintf("ratelimit.login_requests: must be at least 1, got %d", c.RateLimit.LoginRequests))
	}
	if c.RateLimit.LoginWindow <= 0 {
		errs = append(errs, "ratelimit.login_window: must be positive")
	}
	if c.Sessions.MaxIdle <= 0 {
		errs = append(errs, "sessions.max_idle: must be positive")
	}
	if c.Sessions.PruneInterval <= 0 {
		errs = append(errs, "sessions.prune_interval: must be positive")
	}

	return errs
}

func isHTTPURL(s string) bool {
	u, err := url.Parse(s)
	return err == nil && (u.Scheme == "http" || u.Scheme == "https") && u.Host != ""
}
