package odoo

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"strings"
	"sync"
	"time"
)

const (
	// FallbackMajorVersion is assumed when the server version cannot be
	// detected.
	FallbackMajorVersion = 13
	// FallbackLanguage is used when neither configuration nor the user's
	// preference yields a locale.
	FallbackLanguage = "en_US"

	DefaultTimeout = 30 * time.Second
)

// Language sources reported by LanguageSource.
const (
	LanguageFromConfig   = "configured_default"
	LanguageFromUser     = "user_preference"
	LanguageFromFallback = "fallback"
)

// Config holds the connection settings of a Session. They are immutable for
// the lifetime of the Session.
type Config struct {
	URL      string
	Database string
	Username string
	Password string
	// Language forces the locale injected into every call. Empty means the
	// authenticated user's preference.
	Language string
	// Timeout bounds each HTTP round trip. Zero means DefaultTimeout.
	Timeout time.Duration
	// Protocol is ProtocolXMLRPC (default) or ProtocolJSONRPC.
	Protocol string
}

// VersionInfo is the outcome of DetectVersion.
type VersionInfo struct {
	ServerVersion     string `json:"server_version"`
	ServerSerie       string `json:"server_serie,omitempty"`
	ServerVersionInfo []any  `json:"server_version_info,omitempty"`
	ProtocolVersion   int    `json:"protocol_version,omitempty"`
	Major             int    `json:"major_version"`
	DetectionError    string `json:"detection_error,omitempty"`
}

// Session is the process-wide authenticated handle to one Odoo database.
// It is safe for concurrent use.
type Session struct {
	cfg       Config
	transport Transport
	log       *slog.Logger

	mu        sync.Mutex
	uid       int64
	connected bool
	version   VersionInfo

	langMu     sync.Mutex
	lang       string
	langSource string
}

type Option func(*Session)

// WithTransport replaces the transport derived from Config.Protocol.
func WithTransport(t Transport) Option {
	return func(s *Session) {
		s.transport = t
	}
}

func WithLogger(log *slog.Logger) Option {
	return func(s *Session) {
		s.log = log
	}
}

// New validates cfg and builds an unconnected Session. Call Start (or
// Connect) before use; Invoke also connects lazily.
func New(cfg Config, opts ...Option) (*Session, error) {
	if cfg.URL == "" || cfg.Database == "" || cfg.Username == "" || cfg.Password == "" {
		return nil, errors.New("odoo: url, database, username and password are required")
	}
	cfg.URL = strings.TrimRight(cfg.URL, "/")
	if cfg.Timeout <= 0 {
		cfg.Timeout = DefaultTimeout
	}

	s := &Session{cfg: cfg}
	for _, opt := range opts {
		opt(s)
	}
	if s.log == nil {
		s.log = slog.Default()
	}
	if s.transport == nil {
		t, err := NewTransport(cfg.Protocol, cfg.URL, cfg.Timeout)
		if err != nil {
			return nil, err
		}
		s.transport = t
	}
	return s, nil
}

// Start runs the startup sequence: Connect, DetectVersion, ResolveLanguage.
// Only an authentication failure aborts it.
func (s *Session) Start(ctx context.Context) error {
	if err := s.Connect(ctx); err != nil {
		return err
	}
	s.DetectVersion(ctx)
	s.ResolveLanguage(ctx)
	return nil
}

// Connect authenticates and stores the uid. A rejected login, a false uid or
// an unreachable server yield an *AuthenticationError.
func (s *Session) Connect(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, err := s.connectLocked(ctx)
	return err
}

func (s *Session) connectLocked(ctx context.Context) (int64, error) {
	uid, err := s.transport.Authenticate(ctx, s.cfg.Database, s.cfg.Username, s.cfg.Password)
	if err != nil || uid == 0 {
		s.connected = false
		s.uid = 0
		authErr := &AuthenticationError{
			URL:      s.cfg.URL,
			Database: s.cfg.Database,
			Username: s.cfg.Username,
			Cause:    err,
		}
		s.log.ErrorContext(ctx, "odoo.connect.failed", slog.String("err", authErr.Error()))
		return 0, authErr
	}

	s.uid = uid
	s.connected = true
	s.log.InfoContext(ctx, "odoo.connect.ok", slog.Int64("uid", uid), slog.String("db", s.cfg.Database))
	return uid, nil
}

// ensureConnected returns the current uid, authenticating first when the
// session is not connected. Concurrent callers wait for a single reconnect.
func (s *Session) ensureConnected(ctx context.Context) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.connected {
		return s.uid, nil
	}
	return s.connectLocked(ctx)
}

func (s *Session) markDisconnected(uid int64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	// A concurrent reconnect may already have replaced the uid.
	if s.uid == uid {
		s.connected = false
	}
}

// DetectVersion queries common.version and derives the major version. It
// never fails: on any error the major version is FallbackMajorVersion and
// the error is recorded in DetectionError.
func (s *Session) DetectVersion(ctx context.Context) VersionInfo {
	info := VersionInfo{ServerVersion: "Unknown", Major: FallbackMajorVersion}

	raw, err := s.transport.Version(ctx)
	if err != nil {
		info.DetectionError = err.Error()
		s.log.WarnContext(ctx, "odoo.version.failed", slog.String("err", err.Error()), slog.Int("fallback_major", FallbackMajorVersion))
	} else {
		if v, ok := raw["server_version"].(string); ok && v != "" {
			info.ServerVersion = v
		}
		if v, ok := raw["server_serie"].(string); ok {
			info.ServerSerie = v
		}
		if v, ok := raw["server_version_info"].([]any); ok {
			info.ServerVersionInfo = v
		}
		if n, ok := asInt(raw["protocol_version"]); ok {
			info.ProtocolVersion = n
		}

		major, ok := 0, false
		if len(info.ServerVersionInfo) > 0 {
			major, ok = majorFrom(info.ServerVersionInfo[0])
		}
		if !ok {
			major, ok = majorFrom(info.ServerVersion)
		}
		if ok {
			info.Major = major
		} else {
			info.DetectionError = fmt.Sprintf("unparsable server version %q", info.ServerVersion)
		}
		s.log.InfoContext(ctx, "odoo.version.detected", slog.String("server_version", info.ServerVersion), slog.Int("major", info.Major))
	}

	s.mu.Lock()
	s.version = info
	s.mu.Unlock()
	return info
}

// majorFrom extracts a major version from a version_info element or a
// version string such as "16.0", "17.0+e" or "saas~17.2".
func majorFrom(v any) (int, bool) {
	if n, ok := asInt(v); ok {
		return n, n > 0
	}
	s, ok := v.(string)
	if !ok {
		return 0, false
	}
	s = strings.TrimPrefix(strings.TrimSpace(s), "saas~")
	end := 0
	for end < len(s) && s[end] >= '0' && s[end] <= '9' {
		end++
	}
	if end == 0 {
		return 0, false
	}
	n, err := strconv.Atoi(s[:end])
	if err != nil || n <= 0 {
		return 0, false
	}
	return n, true
}

func asInt(v any) (int, bool) {
	switch n := v.(type) {
	case int:
		return n, true
	case int64:
		return int(n), true
	case float64:
		return int(n), n == float64(int(n))
	default:
		return 0, false
	}
}

// Invoke performs one execute_kw round trip. It connects first when the
// session is not connected. A failure that is not a server Fault marks the
// session disconnected so the next call re-authenticates. Every failure is
// returned as *RemoteCallError; Invoke never retries.
func (s *Session) Invoke(ctx context.Context, model, method string, args []any, kwargs map[string]any) (any, error) {
	uid, err := s.ensureConnected(ctx)
	if err != nil {
		return nil, &RemoteCallError{Model: model, Method: method, Cause: err}
	}

	res, err := s.transport.ExecuteKW(ctx, Call{
		Database: s.cfg.Database,
		UID:      uid,
		Password: s.cfg.Password,
		Model:    model,
		Method:   method,
		Args:     args,
		Kwargs:   kwargs,
	})
	if err != nil {
		if !IsFault(err) {
			s.markDisconnected(uid)
		}
		s.log.ErrorContext(ctx, "odoo.call.failed", slog.String("model", model), slog.String("method", method), slog.String("err", err.Error()))
		return nil, &RemoteCallError{Model: model, Method: method, Cause: err}
	}
	return res, nil
}

// ResolveLanguage determines the session locale once: the configured
// language, else the authenticated user's lang, else FallbackLanguage.
// Failure to read the user's preference is logged and ignored.
func (s *Session) ResolveLanguage(ctx context.Context) string {
	s.langMu.Lock()
	defer s.langMu.Unlock()
	if s.lang != "" {
		return s.lang
	}

	if s.cfg.Language != "" {
		s.lang, s.langSource = s.cfg.Language, LanguageFromConfig
		s.log.InfoContext(ctx, "odoo.lang.configured", slog.String("lang", s.lang))
		return s.lang
	}

	s.lang, s.langSource = FallbackLanguage, LanguageFromFallback
	user, err := s.ReadUser(ctx, "lang", "name")
	if err != nil {
		s.log.WarnContext(ctx, "odoo.lang.lookup_failed", slog.String("err", err.Error()), slog.String("lang", s.lang))
		return s.lang
	}
	if lang, ok := user["lang"].(string); ok && lang != "" {
		s.lang, s.langSource = lang, LanguageFromUser
	}
	name, _ := user["name"].(string)
	s.log.InfoContext(ctx, "odoo.lang.resolved", slog.String("lang", s.lang), slog.String("user", name), slog.String("source", s.langSource))
	return s.lang
}

// ReadUser reads fields of the authenticated res.users record, bypassing any
// cache.
func (s *Session) ReadUser(ctx context.Context, fields ...string) (map[string]any, error) {
	uid, err := s.ensureConnected(ctx)
	if err != nil {
		return nil, err
	}
	names := make([]any, len(fields))
	for i, f := range fields {
		names[i] = f
	}
	res, err := s.Invoke(ctx, "res.users", "read", []any{[]any{uid}}, map[string]any{"fields": names})
	if err != nil {
		return nil, err
	}
	rows, ok := res.([]any)
	if !ok || len(rows) == 0 {
		return nil, fmt.Errorf("odoo: res.users read returned no record for uid %d", uid)
	}
	user, ok := rows[0].(map[string]any)
	if !ok {
		return nil, fmt.Errorf("odoo: res.users read returned %T", rows[0])
	}
	return user, nil
}

// Language returns the resolved locale, or "" before ResolveLanguage ran.
func (s *Session) Language() string {
	s.langMu.Lock()
	defer s.langMu.Unlock()
	return s.lang
}

// LanguageSource reports where the resolved locale came from.
func (s *Session) LanguageSource() string {
	s.langMu.Lock()
	defer s.langMu.Unlock()
	return s.langSource
}

func (s *Session) UID() int64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.uid
}

func (s *Session) Connected() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.connected
}

// Version returns the last DetectVersion result.
func (s *Session) Version() VersionInfo {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.version
}

// Config returns the session settings with the password removed.
func (s *Session) Config() Config {
	cfg := s.cfg
	cfg.Password = ""
	return cfg
}
