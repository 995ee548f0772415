// Package config loads runtime configuration from .env files, the process environment
// and explicit overrides, resolving secret references on the way.
package config

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"
)

const (
	envPrefix = "STATUSBOARD_"

	defaultEnvFile         = ".env"
	defaultPort            = "8080"
	defaultReadTimeout     = 15 * time.Second
	defaultWriteTimeout    = 30 * time.Second
	defaultIdleTimeout     = 120 * time.Second
	defaultStatusSheet     = "Sheet1"
	defaultHistorySheet    = "History"
	defaultTimezone        = "America/Chicago"
	defaultAutoRefresh     = 2 * time.Minute
	defaultEnvironment     = "local"
	defaultCSRFCookie      = "statusboard_csrf"
	defaultSecretsFallback = ".secrets.local"
)

// Store backends.
const (
	BackendSheets = "sheets"
	BackendMemory = "memory"
)

// Config captures runtime configuration grouped by concern.
type Config struct {
	Server   ServerConfig
	Store    StoreConfig
	Display  DisplayConfig
	Events   EventsConfig
	Secrets  SecretsConfig
	Security SecurityConfig
}

// ServerConfig configures the HTTP server.
type ServerConfig struct {
	Port         string
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
	IdleTimeout  time.Duration
}

// StoreConfig locates the backing spreadsheet.
type StoreConfig struct {
	Backend         string
	SpreadsheetID   string
	StatusSheet     string
	HistorySheet    string
	Credentials     string
	CredentialsFile string
}

// DisplayConfig controls how the dashboard renders.
type DisplayConfig struct {
	Timezone    string
	Location    *time.Location
	AutoRefresh time.Duration
}

// EventsConfig optionally names a Pub/Sub topic for save notifications.
type EventsConfig struct {
	ProjectID string
	TopicID   string
}

// Enabled reports whether save events should be published.
func (c EventsConfig) Enabled() bool {
	return c.ProjectID != "" && c.TopicID != ""
}

// SecretsConfig locates Secret Manager and the local fallback file.
type SecretsConfig struct {
	ProjectID    string
	Environment  string
	FallbackFile string
}

// SecurityConfig configures the CSRF cookie.
type SecurityConfig struct {
	CSRFCookie string
	CSRFSecure bool
}

// SecretResolver resolves secret references such as "secret://status/credentials".
type SecretResolver interface {
	ResolveSecret(ctx context.Context, ref string) (string, error)
}

// SecretResolverFunc adapts a function to SecretResolver.
type SecretResolverFunc func(context.Context, string) (string, error)

// ResolveSecret calls f.
func (f SecretResolverFunc) ResolveSecret(ctx context.Context, ref string) (string, error) {
	return f(ctx, ref)
}

// ValidationError lists missing or invalid configuration fields.
type ValidationError struct {
	fields []string
}

// Error implements the error interface.
func (e *ValidationError) Error() string {
	return fmt.Sprintf("config validation failed: missing or invalid fields [%s]", strings.Join(e.fields, ", "))
}

// Fields returns a copy of the offending field names.
func (e *ValidationError) Fields() []string {
	out := make([]string, len(e.fields))
	copy(out, e.fields)
	return out
}

// SecretError describes a failed secret reference resolution.
type SecretError struct {
	Ref string
	Err error
}

// Error implements the error interface.
func (e *SecretError) Error() string {
	return fmt.Sprintf("secret resolution failed for ref %q: %v", e.Ref, e.Err)
}

// Unwrap exposes the underlying error.
func (e *SecretError) Unwrap() error { return e.Err }

var errSecretResolverNotConfigured = errors.New("secret resolver not configured")

// Option customises Load.
type Option func(*loaderOptions)

type loaderOptions struct {
	envFile      string
	envMap       map[string]string
	useSystemEnv bool
	secret       SecretResolver
}

// WithEnvFile overrides the .env path. An empty path disables the file.
func WithEnvFile(path string) Option {
	return func(o *loaderOptions) { o.envFile = path }
}

// WithEnvMap supplies explicit values that take precedence over the environment.
func WithEnvMap(values map[string]string) Option {
	return func(o *loaderOptions) { o.envMap = values }
}

// WithoutSystemEnv stops Load from reading the process environment.
func WithoutSystemEnv() Option {
	return func(o *loaderOptions) { o.useSystemEnv = false }
}

// WithSecretResolver sets the resolver used for secret:// and sm:// references.
func WithSecretResolver(resolver SecretResolver) Option {
	return func(o *loaderOptions) { o.secret = resolver }
}

// Lookup is the merged key lookup used by Load.
type Lookup func(key string) (string, bool)

// NewLookup merges the .env file, the process environment and the explicit map with the
// same precedence Load applies. Callers use it to bootstrap dependencies such as the
// secret fetcher before calling Load.
func NewLookup(opts ...Option) (Lookup, error) {
	options := defaultOptions()
	for _, opt := range opts {
		opt(&options)
	}
	return options.lookup()
}

func defaultOptions() loaderOptions {
	return loaderOptions{
		envFile:      defaultEnvFile,
		useSystemEnv: true,
		secret: SecretResolverFunc(func(_ context.Context, ref string) (string, error) {
			return "", errSecretResolverNotConfigured
		}),
	}
}

func (o loaderOptions) lookup() (Lookup, error) {
	dotEnv, err := loadDotEnv(o.envFile)
	if err != nil {
		return nil, err
	}
	return func(key string) (string, bool) {
		if value, ok := o.envMap[key]; ok {
			return value, true
		}
		if o.useSystemEnv {
			if value, ok := os.LookupEnv(key); ok {
				return value, true
			}
		}
		value, ok := dotEnv[key]
		return value, ok
	}, nil
}

// Load assembles the configuration from defaults, .env overrides, the environment and
// secret references, then validates it.
func Load(ctx context.Context, opts ...Option) (Config, error) {
	options := defaultOptions()
	for _, opt := range opts {
		opt(&options)
	}
	lookup, err := options.lookup()
	if err != nil {
		return Config{}, err
	}

	cfg := Config{
		Server: ServerConfig{
			Port:         stringWithDefault(lookup, "SERVER_PORT", defaultPort),
			ReadTimeout:  durationWithDefault(lookup, "SERVER_READ_TIMEOUT", defaultReadTimeout),
			WriteTimeout: durationWithDefault(lookup, "SERVER_WRITE_TIMEOUT", defaultWriteTimeout),
			IdleTimeout:  durationWithDefault(lookup, "SERVER_IDLE_TIMEOUT", defaultIdleTimeout),
		},
		Store: StoreConfig{
			Backend:         strings.ToLower(stringWithDefault(lookup, "STORE_BACKEND", BackendSheets)),
			SpreadsheetID:   stringWithDefault(lookup, "SPREADSHEET_ID", ""),
			StatusSheet:     stringWithDefault(lookup, "STATUS_SHEET", defaultStatusSheet),
			HistorySheet:    stringWithDefault(lookup, "HISTORY_SHEET", defaultHistorySheet),
			Credentials:     stringWithDefault(lookup, "CREDENTIALS", ""),
			CredentialsFile: stringWithDefault(lookup, "CREDENTIALS_FILE", ""),
		},
		Display: DisplayConfig{
			Timezone:    stringWithDefault(lookup, "TIMEZONE", defaultTimezone),
			AutoRefresh: durationWithDefault(lookup, "AUTOREFRESH", defaultAutoRefresh),
		},
		Events: EventsConfig{
			ProjectID: stringWithDefault(lookup, "PUBSUB_PROJECT", ""),
			TopicID:   stringWithDefault(lookup, "PUBSUB_TOPIC", ""),
		},
		Secrets: SecretsConfig{
			ProjectID:    stringWithDefault(lookup, "SECRETS_PROJECT", ""),
			Environment:  strings.ToLower(stringWithDefault(lookup, "ENVIRONMENT", defaultEnvironment)),
			FallbackFile: stringWithDefault(lookup, "SECRETS_FALLBACK_FILE", defaultSecretsFallback),
		},
		Security: SecurityConfig{
			CSRFCookie: stringWithDefault(lookup, "CSRF_COOKIE", defaultCSRFCookie),
			CSRFSecure: boolWithDefault(lookup, "CSRF_SECURE", false),
		},
	}

	resolved, err := resolveSecret(ctx, cfg.Store.Credentials, options.secret)
	if err != nil {
		return Config{}, err
	}
	cfg.Store.Credentials = resolved

	var invalid []string
	if loc, err := time.LoadLocation(cfg.Display.Timezone); err == nil {
		cfg.Display.Location = loc
	} else {
		invalid = append(invalid, "Display.Timezone")
	}

	if err := validateConfig(cfg, invalid); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func validateConfig(cfg Config, invalid []string) error {
	fields := append([]string(nil), invalid...)
	if _, err := cfg.Server.PortNumber(); err != nil {
		fields = append(fields, "Server.Port")
	}
	switch cfg.Store.Backend {
	case BackendSheets:
		if cfg.Store.SpreadsheetID == "" {
			fields = append(fields, "Store.SpreadsheetID")
		}
	case BackendMemory:
	default:
		fields = append(fields, "Store.Backend")
	}
	if strings.TrimSpace(cfg.Store.StatusSheet) == "" {
		fields = append(fields, "Store.StatusSheet")
	}
	if strings.TrimSpace(cfg.Store.HistorySheet) == "" {
		fields = append(fields, "Store.HistorySheet")
	}
	if cfg.Display.AutoRefresh < 0 {
		fields = append(fields, "Display.AutoRefresh")
	}
	if (cfg.Events.ProjectID == "") != (cfg.Events.TopicID == "") {
		fields = append(fields, "Events.TopicID")
	}
	if strings.TrimSpace(cfg.Security.CSRFCookie) == "" {
		fields = append(fields, "Security.CSRFCookie")
	}
	if len(fields) > 0 {
		return &ValidationError{fields: fields}
	}
	return nil
}

func resolveSecret(ctx context.Context, value string, resolver SecretResolver) (string, error) {
	if value == "" || !IsSecretReference(value) {
		return value, nil
	}
	ref := NormalizeSecretReference(value)
	if resolver == nil {
		return "", &SecretError{Ref: ref, Err: errSecretResolverNotConfigured}
	}
	secret, err := resolver.ResolveSecret(ctx, ref)
	if err != nil {
		return "", &SecretError{Ref: ref, Err: err}
	}
	return secret, nil
}

// IsSecretReference reports whether value uses the secret:// or sm:// scheme.
func IsSecretReference(value string) bool {
	trimmed := strings.TrimSpace(value)
	return strings.HasPrefix(trimmed, "secret://") || strings.HasPrefix(trimmed, "sm://")
}

// NormalizeSecretReference rewrites sm:// references to secret://.
func NormalizeSecretReference(value string) string {
	trimmed := strings.TrimSpace(value)
	if rest, ok := strings.CutPrefix(trimmed, "sm://"); ok {
		return "secret://" + rest
	}
	return trimmed
}

func loadDotEnv(path string) (map[string]string, error) {
	if path == "" {
		return nil, nil
	}
	absPath, err := filepath.Abs(path)
	if err != nil {
		absPath = path
	}
	file, err := os.Open(absPath)
	if errors.Is(err, os.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("config: unable to read %s: %w", absPath, err)
	}
	defer file.Close()

	values := make(map[string]string)
	scanner := bufio.NewScanner(file)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		line = strings.TrimSpace(strings.TrimPrefix(line, "export "))
		key, value, ok := strings.Cut(line, "=")
		key = strings.TrimSpace(key)
		if !ok || key == "" {
			continue
		}
		values[key] = strings.Trim(strings.TrimSpace(value), "\"'")
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("config: failed parsing %s: %w", absPath, err)
	}
	return values, nil
}

func stringWithDefault(lookup Lookup, key, fallback string) string {
	if value, ok := lookup(envPrefix + key); ok && strings.TrimSpace(value) != "" {
		return strings.TrimSpace(value)
	}
	return fallback
}

func durationWithDefault(lookup Lookup, key string, fallback time.Duration) time.Duration {
	value, ok := lookup(envPrefix + key)
	if !ok || strings.TrimSpace(value) == "" {
		return fallback
	}
	value = strings.TrimSpace(value)
	if value == "0" {
		return 0
	}
	if d, err := time.ParseDuration(value); err == nil {
		return d
	}
	return fallback
}

func boolWithDefault(lookup Lookup, key string, fallback bool) bool {
	value, ok := lookup(envPrefix + key)
	if !ok {
		return fallback
	}
	switch strings.ToLower(strings.TrimSpace(value)) {
	case "true", "1", "yes", "on":
		return true
	case "false", "0", "no", "off":
		return false
	}
	return fallback
}

// Value reads a prefixed key through lookup, e.g. Value(l, "SECRETS_PROJECT").
func Value(lookup Lookup, key string) string {
	return stringWithDefault(lookup, key, "")
}

// PortNumber returns the numeric server port or an error when it is not a valid port.
func (c ServerConfig) PortNumber() (int, error) {
	n, err := strconv.Atoi(c.Port)
	if err != nil || n <= 0 || n > 65535 {
		return 0, fmt.Errorf("config: invalid port %q", c.Port)
	}
	return n, nil
}
