// Package config resolves the process settings: environment variables
// decoded with envdecode, optionally overridden by a JSON object passed as
// the first command-line argument (the way MCP clients hand configuration
// to a server they launch).
package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/ggoodman/odoo-mcp-go/internal/logctx"
	"github.com/joeshaw/envdecode"
)

// Settings are immutable once loaded.
type Settings struct {
	// URL of the Odoo server, e.g. "http://localhost:8069". ENV: ODOO_URL
	URL      string `env:"ODOO_URL"`
	Database string `env:"ODOO_DATABASE"`
	Username string `env:"ODOO_USERNAME"`
	// Password or API key. ENV: ODOO_PASSWORD
	Password string `env:"ODOO_PASSWORD"`
	// DefaultLanguage forces the locale of every call. ENV: ODOO_DEFAULT_LANGUAGE
	DefaultLanguage string `env:"ODOO_DEFAULT_LANGUAGE"`

	CacheTTLSeconds  int `env:"ODOO_CACHE_TTL,default=300"`
	CacheMaxEntries  int `env:"ODOO_CACHE_MAX_ENTRIES,default=10000"`
	TimeoutSeconds   int `env:"ODOO_TIMEOUT,default=30"`
	MaxRetries       int `env:"ODOO_MAX_RETRIES,default=3"`
	RetryBaseDelayMS int `env:"ODOO_RETRY_BASE_DELAY_MS,default=1000"`

	// Protocol is "xmlrpc" or "jsonrpc". ENV: ODOO_PROTOCOL
	Protocol string `env:"ODOO_PROTOCOL,default=xmlrpc"`
	// FieldReprobeSeconds > 0 lets failed field probes be retried after that
	// many seconds. ENV: ODOO_FIELD_REPROBE_SECONDS
	FieldReprobeSeconds int `env:"ODOO_FIELD_REPROBE_SECONDS,default=0"`

	// MetricsAddr enables the Prometheus listener, e.g. ":9464". ENV: ODOO_METRICS_ADDR
	MetricsAddr string `env:"ODOO_METRICS_ADDR"`
	LogLevel    string `env:"ODOO_LOG_LEVEL,default=info"`
	LogFormat   string `env:"ODOO_LOG_FORMAT,default=text"`
}

// FromEnv decodes Settings from the environment without validating them.
func FromEnv() (Settings, error) {
	var s Settings
	if err := envdecode.Decode(&s); err != nil && !errors.Is(err, envdecode.ErrNoTargetFieldsAreSet) {
		return Settings{}, fmt.Errorf("config: decode environment: %w", err)
	}
	return s, nil
}

// Load reads the environment, applies the JSON object in args[0] when there
// is one, and validates the result.
func Load(args []string) (Settings, error) {
	s, err := FromEnv()
	if err != nil {
		return Settings{}, err
	}
	if len(args) > 0 && strings.HasPrefix(strings.TrimSpace(args[0]), "{") {
		if err := s.ApplyJSON([]byte(args[0])); err != nil {
			return Settings{}, err
		}
	}
	if err := s.Validate(); err != nil {
		return Settings{}, err
	}
	return s, nil
}

// ApplyJSON overrides settings with the keys present in a JSON object:
// odoo_url, odoo_database, odoo_username, odoo_password, cache_ttl,
// timeout, max_retries and default_language. Numeric keys accept numbers or
// numeric strings.
func (s *Settings) ApplyJSON(data []byte) error {
	var raw map[string]json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		return fmt.Errorf("config: parse JSON arguments: %w", err)
	}

	strs := map[string]*string{
		"odoo_url":         &s.URL,
		"odoo_database":    &s.Database,
		"odoo_username":    &s.Username,
		"odoo_password":    &s.Password,
		"default_language": &s.DefaultLanguage,
	}
	for key, dst := range strs {
		v, ok := raw[key]
		if !ok {
			continue
		}
		if err := json.Unmarshal(v, dst); err != nil {
			return fmt.Errorf("config: %s must be a string: %w", key, err)
		}
	}

	ints := map[string]*int{
		"cache_ttl":   &s.CacheTTLSeconds,
		"timeout":     &s.TimeoutSeconds,
		"max_retries": &s.MaxRetries,
	}
	for key, dst := range ints {
		v, ok := raw[key]
		if !ok {
			continue
		}
		n, err := parseInt(v)
		if err != nil {
			return fmt.Errorf("config: %s: %w", key, err)
		}
		*dst = n
	}
	return nil
}

func parseInt(v json.RawMessage) (int, error) {
	var n int
	if err := json.Unmarshal(v, &n); err == nil {
		return n, nil
	}
	var str string
	if err := json.Unmarshal(v, &str); err != nil {
		return 0, fmt.Errorf("want an integer, got %s", v)
	}
	n, err := strconv.Atoi(strings.TrimSpace(str))
	if err != nil {
		return 0, fmt.Errorf("want an integer, got %q", str)
	}
	return n, nil
}

// Validate checks required fields and ranges, and trims a trailing slash
// from URL.
func (s *Settings) Validate() error {
	var missing []string
	for _, f := range []struct{ name, val string }{
		{"ODOO_URL", s.URL},
		{"ODOO_DATABASE", s.Database},
		{"ODOO_USERNAME", s.Username},
		{"ODOO_PASSWORD", s.Password},
	} {
		if strings.TrimSpace(f.val) == "" {
			missing = append(missing, f.name)
		}
	}
	if len(missing) > 0 {
		return fmt.Errorf("config: missing required settings: %s", strings.Join(missing, ", "))
	}

	s.URL = strings.TrimRight(strings.TrimSpace(s.URL), "/")
	u, err := url.Parse(s.URL)
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return fmt.Errorf("config: ODOO_URL %q is not an http(s) URL", s.URL)
	}

	switch {
	case s.CacheTTLSeconds <= 0:
		return fmt.Errorf("config: cache TTL must be positive, got %d", s.CacheTTLSeconds)
	case s.CacheMaxEntries <= 0:
		return fmt.Errorf("config: cache max entries must be positive, got %d", s.CacheMaxEntries)
	case s.TimeoutSeconds <= 0:
		return fmt.Errorf("config: timeout must be positive, got %d", s.TimeoutSeconds)
	case s.MaxRetries < 1:
		return fmt.Errorf("config: max retries must be at least 1, got %d", s.MaxRetries)
	case s.RetryBaseDelayMS < 0:
		return fmt.Errorf("config: retry base delay must not be negative, got %d", s.RetryBaseDelayMS)
	case s.FieldReprobeSeconds < 0:
		return fmt.Errorf("config: field reprobe interval must not be negative, got %d", s.FieldReprobeSeconds)
	}

	switch s.Protocol {
	case "xmlrpc", "jsonrpc":
	case "":
		s.Protocol = "xmlrpc"
	default:
		return fmt.Errorf("config: unsupported protocol %q", s.Protocol)
	}

	if _, err := s.SlogLevel(); err != nil {
		return err
	}
	switch s.LogFormat {
	case "", "text", "json":
	default:
		return fmt.Errorf("config: unsupported log format %q", s.LogFormat)
	}
	return nil
}

func (s Settings) CacheTTL() time.Duration { return time.Duration(s.CacheTTLSeconds) * time.Second }

func (s Settings) Timeout() time.Duration { return time.Duration(s.TimeoutSeconds) * time.Second }

func (s Settings) RetryBaseDelay() time.Duration {
	return time.Duration(s.RetryBaseDelayMS) * time.Millisecond
}

func (s Settings) FieldReprobe() time.Duration {
	return time.Duration(s.FieldReprobeSeconds) * time.Second
}

// SlogLevel parses LogLevel. Empty means info.
func (s Settings) SlogLevel() (slog.Level, error) {
	var lvl slog.Level
	if s.LogLevel == "" {
		return slog.LevelInfo, nil
	}
	if err := lvl.UnmarshalText([]byte(s.LogLevel)); err != nil {
		return 0, fmt.Errorf("config: invalid log level %q", s.LogLevel)
	}
	return lvl, nil
}

// Logger builds the process logger writing to w. Records are decorated with
// the logctx request groups.
func (s Settings) Logger(w io.Writer) (*slog.Logger, error) {
	lvl, err := s.SlogLevel()
	if err != nil {
		return nil, err
	}
	opts := &slog.HandlerOptions{Level: lvl}

	var h slog.Handler
	if s.LogFormat == "json" {
		h = slog.NewJSONHandler(w, opts)
	} else {
		h = slog.NewTextHandler(w, opts)
	}
	return slog.New(logctx.Handler{Handler: h}), nil
}

// Redacted returns the settings safe to report to a client.
func (s Settings) Redacted() map[string]any {
	return map[string]any{
		"url":              s.URL,
		"database":         s.Database,
		"username":         s.Username,
		"default_language": s.DefaultLanguage,
		"protocol":         s.Protocol,
		"cache_ttl":        s.CacheTTLSeconds,
		"cache_max":        s.CacheMaxEntries,
		"timeout":          s.TimeoutSeconds,
		"max_retries":      s.MaxRetries,
	}
}
