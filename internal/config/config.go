// Package config handles TOML configuration loading with environment variable substitution.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
	"github.com/joho/godotenv"

	"github.com/vmunix/bellhop/internal/media"
)

// Config is the root configuration structure.
type Config struct {
	Server    ServerConfig             `toml:"server"`
	Database  DatabaseConfig           `toml:"database"`
	Matrix    MatrixConfig             `toml:"matrix"`
	Backends  map[string]BackendConfig `toml:"backends"`
	RateLimit RateLimitConfig          `toml:"ratelimit"`
	Sessions  SessionsConfig           `toml:"sessions"`
}

type ServerConfig struct {
	Host              string `toml:"host"`
	Port              int    `toml:"port"`
	LogLevel          string `toml:"log_level"`
	CookieSecure      *bool  `toml:"cookie_secure"`
	TrustProxyHeaders bool   `toml:"trust_proxy_headers"`
}

// SecureCookies reports whether the session cookie carries the Secure flag.
// Unset means true.
func (s ServerConfig) SecureCookies() bool {
	return s.CookieSecure == nil || *s.CookieSecure
}

// Addr is the listen address.
func (s ServerConfig) Addr() string {
	return fmt.Sprintf("%s:%d", s.Host, s.Port)
}

type DatabaseConfig struct {
	Path string `toml:"path"`
}

type MatrixConfig struct {
	HomeserverURL  string `toml:"homeserver_url"`
	AuditRoomID    string `toml:"audit_room_id"`
	BotAccessToken string `toml:"bot_access_token"`
	AuditQueueSize int    `toml:"audit_queue_size"`
}

// AuditEnabled reports whether both the room and the bot token are set.
func (m MatrixConfig) AuditEnabled() bool {
	return m.AuditRoomID != "" && m.BotAccessToken != ""
}

// BackendConfig configures one of Radarr, Sonarr or Lidarr.
type BackendConfig struct {
	URL              string `toml:"url"`
	APIKey           string `toml:"api_key"`
	QualityProfileID int    `toml:"quality_profile_id"`
	RootFolder       string `toml:"root_folder"`
}

type RateLimitConfig struct {
	LoginRequests int           `toml:"login_requests"`
	LoginWindow   time.Duration `toml:"login_window"`
}

type SessionsConfig struct {
	MaxIdle       time.Duration `toml:"max_idle"`
	PruneInterval time.Duration `toml:"prune_interval"`
}

// MediaSettings returns the backend settings keyed by media kind. Unknown
// backend keys are skipped; Validate reports them.
func (c *Config) MediaSettings() map[media.Kind]media.Settings {
	out := make(map[media.Kind]media.Settings, len(c.Backends))
	for key, b := range c.Backends {
		k, err := media.ParseKind(key)
		if err != nil {
			continue
		}
		out[k] = media.Settings{
			URL:              b.URL,
			APIKey:           b.APIKey,
			QualityProfileID: b.QualityProfileID,
			RootFolder:       b.RootFolder,
		}
	}
	return out
}

// Load reads, parses and validates the configuration file.
// Unresolved variables and validation failures are returned together as *Error.
func Load(path string) (*Config, error) {
	cfg, missing, err := load(path)
	if err != nil {
		return nil, err
	}

	cerr := &Error{Path: path, Missing: missing, Errors: cfg.Validate()}
	if cerr.HasErrors() {
		return nil, cerr
	}
	return cfg, nil
}

// LoadWithoutValidation reads and parses the config, applying defaults but
// skipping validation and ignoring unresolved variables.
func LoadWithoutValidation(path string) (*Config, error) {
	cfg, _, err := load(path)
	return cfg, err
}

func load(path string) (*Config, []string, error) {
	if err := loadDotEnv(path); err != nil {
		return nil, nil, err
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, nil, fmt.Errorf("reading config: %w", err)
	}

	content, missing := substituteEnvVars(string(data))

	var cfg Config
	if _, err := toml.Decode(content, &cfg); err != nil {
		if len(missing) > 0 {
			return nil, nil, &Error{Path: path, Missing: missing}
		}
		return nil, nil, fmt.Errorf("parsing config: %w", err)
	}

	cfg.applyDefaults()
	return &cfg, missing, nil
}

func (c *Config) applyDefaults() {
	if c.Server.Host == "" {
		c.Server.Host = "0.0.0.0"
	}
	if c.Server.Port == 0 {
		c.Server.Port = 8000
	}
	if c.Server.LogLevel == "" {
		c.Server.LogLevel = "info"
	}
	if c.Database.Path == "" {
		c.Database.Path = "./data/bellhop.db"
	}
	if c.Matrix.AuditQueueSize == 0 {
		c.Matrix.AuditQueueSize = 64
	}
	if c.RateLimit.LoginRequests == 0 {
		c.RateLimit.LoginRequests = 5
	}
	if c.RateLimit.LoginWindow == 0 {
		c.RateLimit.LoginWindow = time.Minute
	}
	if c.Sessions.MaxIdle == 0 {
		c.Sessions.MaxIdle = 7 * 24 * time.Hour
	}
	if c.Sessions.PruneInterval == 0 {
		c.Sessions.PruneInterval = time.Hour
	}
}

// loadDotEnv loads BELLHOP_ENV_FILE, or a .env next to the config file when
// present. Variables already in the environment win.
func loadDotEnv(configPath string) error {
	if envFile := os.Getenv("BELLHOP_ENV_FILE"); envFile != "" {
		if err := godotenv.Load(envFile); err != nil {
			return fmt.Errorf("BELLHOP_ENV_FILE=%s: %w", envFile, err)
		}
		return nil
	}

	envFile := filepath.Join(filepath.Dir(configPath), ".env")
	if _, err := os.Stat(envFile); errors.Is(err, fs.ErrNotExist) {
		return nil
	}
	if err := godotenv.Load(envFile); err != nil {
		return fmt.Errorf("loading %s: %w", envFile, err)
	}
	return nil
}

// envVarPattern matches ${NAME}, ${NAME:-default} and ${NAME:?message}.
var envVarPattern = regexp.MustCompile(`\$\{([A-Za-z_][A-Za-z0-9_]*)(?:(:-|:\?)([^}]*))?\}`)

// substituteEnvVars replaces variable references with their values.
// Unresolvable references are left in place and reported in missing.
// References inside TOML comments are left alone.
func substituteEnvVars(content string) (string, []string) {
	var missing []string
	seen := make(map[string]bool)
	report := func(s string) {
		if !seen[s] {
			seen[s] = true
			missing = append(missing, s)
		}
	}

	replace := func(match string) string {
		m := envVarPattern.FindStringSubmatch(match)
		name, op, arg := m[1], m[2], m[3]
		value, ok := os.LookupEnv(name)

		switch op {
		case ":-":
			if value == "" {
				return arg
			}
			return value
		case ":?":
			if value == "" {
				report(name + ": " + strings.TrimSpace(arg))
				return match
			}
			return value
		default:
			if !ok {
				report(name)
				return match
			}
			return value
		}
	}

	lines := strings.Split(content, "\n")
	for i, line := range lines {
		cut := commentStart(line)
		lines[i] = envVarPattern.ReplaceAllStringFunc(line[:cut], replace) + line[cut:]
	}
	return strings.Join(lines, "\n"), missing
}

// commentStart returns the index of the # that opens a comment on line, or
// len(line). A # inside a quoted string or a ${...} reference does not count.
func commentStart(line string) int {
	var quote byte
	for i := 0; i < len(line); i++ {
		c := line[i]
		switch {
		case quote == '"' && c == '\\':
			i++
		case quote != 0:
			if c == quote {
				quote = 0
			}
		case c == '"' || c == '\'':
			quote = c
		case c == '$' && i+1 < len(line) && line[i+1] == '{':
			if end := strings.IndexByte(line[i:], '}'); end > 0 {
				i += end
			}
		case c == '#':
			return i
		}
	}
	return len(line)
}
