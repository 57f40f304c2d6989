package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

const (
	defaultEnvFile        = ".env"
	defaultAddress        = ":8080"
	defaultReadTimeout    = 15 * time.Second
	defaultWriteTimeout   = 30 * time.Second
	defaultIdleTimeout    = 60 * time.Second
	defaultRequestTimeout = 30 * time.Second
	defaultAPITimeout     = 8 * time.Second
	defaultEnvironment    = "local"
	defaultFallbackLocale = "en"
	defaultAnalyticsQueue = 256
	defaultJoinPerMinute  = 30
	defaultClickPerMinute = 240
)

// Config captures all runtime configuration organised by concern.
type Config struct {
	Environment string
	LogLevel    string
	Server      ServerConfig
	Session     SessionConfig
	APIs        APIConfig
	Firebase    FirebaseConfig
	Analytics   AnalyticsConfig
	Locales     LocaleConfig
	RateLimits  RateLimitConfig
}

// ServerConfig configures HTTP server parameters.
type ServerConfig struct {
	Address        string
	ReadTimeout    time.Duration
	WriteTimeout   time.Duration
	IdleTimeout    time.Duration
	RequestTimeout time.Duration
}

// SessionConfig controls the signed session cookie.
type SessionConfig struct {
	SigningKey string
	Secure     bool
}

// APIConfig lists the backend services the frontend talks to. Empty base URLs
// switch the corresponding client to its static implementation.
type APIConfig struct {
	ContentBaseURL string
	AuthBaseURL    string
	Timeout        time.Duration
}

// FirebaseConfig stores Firebase project settings used for ID token verification.
type FirebaseConfig struct {
	ProjectID string
}

// AnalyticsConfig configures the button click collector.
type AnalyticsConfig struct {
	CollectorURL string
	WriteKey     string
	QueueSize    int
	Debug        bool
}

// LocaleConfig lists the languages served by the bundle.
type LocaleConfig struct {
	Fallback  string
	Supported []string
}

// RateLimitConfig throttles the mutating endpoints per client IP.
type RateLimitConfig struct {
	JoinPerMinute  int
	ClickPerMinute int
}

// IsProduction reports whether the deployment runs with production hardening.
func (c Config) IsProduction() bool {
	return strings.EqualFold(c.Environment, "prod")
}

// ValidationError is returned when required configuration fields are missing or invalid.
type ValidationError struct {
	fields []string
}

// Error implements the error interface.
func (e *ValidationError) Error() string {
	return fmt.Sprintf("config validation failed: missing or invalid fields [%s]", strings.Join(e.fields, ", "))
}

// Fields returns a copy of the missing/invalid field list.
func (e *ValidationError) Fields() []string {
	out := make([]string, len(e.fields))
	copy(out, e.fields)
	return out
}

// Option customises Load behaviour.
type Option func(*loaderOptions)

type loaderOptions struct {
	envFile      string
	envMap       map[string]string
	useSystemEnv bool
}

// WithEnvFile overrides the .env file path used for local overrides.
func WithEnvFile(path string) Option {
	return func(o *loaderOptions) {
		o.envFile = path
	}
}

// WithEnvMap injects an explicit key/value map for environment lookups. Values in the map
// take precedence over system environment variables.
func WithEnvMap(values map[string]string) Option {
	return func(o *loaderOptions) {
		o.envMap = values
	}
}

// WithoutSystemEnv disables reading from os.Getenv, relying only on provided maps and .env files.
func WithoutSystemEnv() Option {
	return func(o *loaderOptions) {
		o.useSystemEnv = false
	}
}

// Load assembles the configuration from defaults, .env overrides and environment variables.
func Load(opts ...Option) (Config, error) {
	options := loaderOptions{
		envFile:      defaultEnvFile,
		useSystemEnv: true,
	}
	for _, opt := range opts {
		opt(&options)
	}

	dotEnvValues, err := loadDotEnv(options.envFile)
	if err != nil {
		return Config{}, err
	}

	lookup := func(key string) (string, bool) {
		if options.envMap != nil {
			if value, ok := options.envMap[key]; ok {
				return value, true
			}
		}
		if options.useSystemEnv {
			if value, ok := os.LookupEnv(key); ok {
				return value, true
			}
		}
		if value, ok := dotEnvValues[key]; ok {
			return value, true
		}
		return "", false
	}

	environment := strings.ToLower(stringWithDefault(lookup, "QURAN_WEB_ENV", defaultEnvironment))

	cfg := Config{
		Environment: environment,
		LogLevel:    stringWithDefault(lookup, "LOG_LEVEL", "info"),
		Server: ServerConfig{
			Address:        resolveAddress(lookup),
			ReadTimeout:    durationWithDefault(lookup, "QURAN_WEB_READ_TIMEOUT", defaultReadTimeout),
			WriteTimeout:   durationWithDefault(lookup, "QURAN_WEB_WRITE_TIMEOUT", defaultWriteTimeout),
			IdleTimeout:    durationWithDefault(lookup, "QURAN_WEB_IDLE_TIMEOUT", defaultIdleTimeout),
			RequestTimeout: durationWithDefault(lookup, "QURAN_WEB_REQUEST_TIMEOUT", defaultRequestTimeout),
		},
		Session: SessionConfig{
			SigningKey: stringWithDefault(lookup, "QURAN_WEB_SESSION_SIGNING_KEY", ""),
			Secure:     boolWithDefault(lookup, "QURAN_WEB_SESSION_SECURE", environment == "prod"),
		},
		APIs: APIConfig{
			ContentBaseURL: strings.TrimRight(stringWithDefault(lookup, "QURAN_WEB_CONTENT_API_URL", ""), "/"),
			AuthBaseURL:    strings.TrimRight(stringWithDefault(lookup, "QURAN_WEB_AUTH_API_URL", ""), "/"),
			Timeout:        durationWithDefault(lookup, "QURAN_WEB_API_TIMEOUT", defaultAPITimeout),
		},
		Firebase: FirebaseConfig{
			ProjectID: stringWithDefault(lookup, "FIREBASE_PROJECT_ID", ""),
		},
		Analytics: AnalyticsConfig{
			CollectorURL: stringWithDefault(lookup, "QURAN_WEB_ANALYTICS_URL", ""),
			WriteKey:     stringWithDefault(lookup, "QURAN_WEB_ANALYTICS_WRITE_KEY", ""),
			QueueSize:    intWithDefault(lookup, "QURAN_WEB_ANALYTICS_QUEUE", defaultAnalyticsQueue),
			Debug:        boolWithDefault(lookup, "QURAN_WEB_ANALYTICS_DEBUG", false),
		},
		Locales: LocaleConfig{
			Fallback:  strings.ToLower(stringWithDefault(lookup, "QURAN_WEB_FALLBACK_LOCALE", defaultFallbackLocale)),
			Supported: csvWithDefault(lookup, "QURAN_WEB_LOCALES", []string{"en", "ar", "ur", "id"}),
		},
		RateLimits: RateLimitConfig{
			JoinPerMinute:  intWithDefault(lookup, "QURAN_WEB_RATE_JOIN", defaultJoinPerMinute),
			ClickPerMinute: intWithDefault(lookup, "QURAN_WEB_RATE_CLICK", defaultClickPerMinute),
		},
	}

	if err := validateConfig(cfg); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func resolveAddress(lookup func(string) (string, bool)) string {
	if addr := stringWithDefault(lookup, "QURAN_WEB_ADDR", ""); addr != "" {
		return addr
	}
	// Cloud Run injects PORT.
	if port := stringWithDefault(lookup, "PORT", ""); port != "" {
		return ":" + port
	}
	return defaultAddress
}

func validateConfig(cfg Config) error {
	var fields []string
	if cfg.IsProduction() && cfg.Session.SigningKey == "" {
		fields = append(fields, "Session.SigningKey")
	}
	if cfg.IsProduction() && cfg.Firebase.ProjectID == "" {
		fields = append(fields, "Firebase.ProjectID")
	}
	if cfg.Server.Address == "" {
		fields = append(fields, "Server.Address")
	}
	if cfg.APIs.Timeout <= 0 {
		fields = append(fields, "APIs.Timeout")
	}
	if cfg.Analytics.QueueSize <= 0 {
		fields = append(fields, "Analytics.QueueSize")
	}
	if cfg.Locales.Fallback == "" || !contains(cfg.Locales.Supported, cfg.Locales.Fallback) {
		fields = append(fields, "Locales.Fallback")
	}
	if len(fields) > 0 {
		return &ValidationError{fields: fields}
	}
	return nil
}

func loadDotEnv(path string) (map[string]string, error) {
	if path == "" {
		return nil, nil
	}
	values, err := godotenv.Read(path)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("config: unable to read %s: %w", path, err)
	}
	return values, nil
}

func stringWithDefault(lookup func(string) (string, bool), key, fallback string) string {
	if value, ok := lookup(key); ok && strings.TrimSpace(value) != "" {
		return strings.TrimSpace(value)
	}
	return fallback
}

func durationWithDefault(lookup func(string) (string, bool), key string, fallback time.Duration) time.Duration {
	if value, ok := lookup(key); ok && value != "" {
		d, err := time.ParseDuration(value)
		if err == nil {
			return d
		}
	}
	return fallback
}

func intWithDefault(lookup func(string) (string, bool), key string, fallback int) int {
	if value, ok := lookup(key); ok && value != "" {
		if n, err := strconv.Atoi(strings.TrimSpace(value)); err == nil {
			return n
		}
	}
	return fallback
}

func boolWithDefault(lookup func(string) (string, bool), key string, fallback bool) bool {
	if value, ok := lookup(key); ok && value != "" {
		switch strings.ToLower(value) {
		case "true", "1", "yes", "on":
			return true
		case "false", "0", "no", "off":
			return false
		}
	}
	return fallback
}

func csvWithDefault(lookup func(string) (string, bool), key string, fallback []string) []string {
	value, ok := lookup(key)
	if !ok || strings.TrimSpace(value) == "" {
		return append([]string(nil), fallback...)
	}
	var out []string
	for _, part := range strings.Split(value, ",") {
		part = strings.ToLower(strings.TrimSpace(part))
		if part != "" && !contains(out, part) {
			out = append(out, part)
		}
	}
	return out
}

func contains(values []string, target string) bool {
	for _, v := range values {
		if v == target {
			return true
		}
	}
	return false
}
