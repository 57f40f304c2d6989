package config

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestLoadWithDefaults(t *testing.T) {
	cfg, err := Load(WithEnvMap(map[string]string{}), WithoutSystemEnv(), WithEnvFile(""))
	require.NoError(t, err)

	require.Equal(t, ":8080", cfg.Server.Address)
	require.Equal(t, 15*time.Second, cfg.Server.ReadTimeout)
	require.Equal(t, 8*time.Second, cfg.APIs.Timeout)
	require.Equal(t, "local", cfg.Environment)
	require.Equal(t, "info", cfg.LogLevel)
	require.False(t, cfg.IsProduction())
	require.Equal(t, "en", cfg.Locales.Fallback)
	require.Equal(t, []string{"en", "ar", "ur", "id"}, cfg.Locales.Supported)
	require.Empty(t, cfg.APIs.ContentBaseURL, "static content service is used by default")
	require.Equal(t, defaultAnalyticsQueue, cfg.Analytics.QueueSize)
}

func TestLoadWithOverrides(t *testing.T) {
	env := map[string]string{
		"PORT":                          "9090",
		"QURAN_WEB_READ_TIMEOUT":        "20s",
		"QURAN_WEB_CONTENT_API_URL":     "https://content.example.com/api/",
		"QURAN_WEB_AUTH_API_URL":        "https://auth.example.com",
		"QURAN_WEB_LOCALES":             "EN, ar, en",
		"QURAN_WEB_ANALYTICS_DEBUG":     "yes",
		"QURAN_WEB_RATE_JOIN":           "5",
		"QURAN_WEB_SESSION_SIGNING_KEY": "k",
	}

	cfg, err := Load(WithEnvMap(env), WithoutSystemEnv(), WithEnvFile(""))
	require.NoError(t, err)

	require.Equal(t, ":9090", cfg.Server.Address)
	require.Equal(t, 20*time.Second, cfg.Server.ReadTimeout)
	require.Equal(t, "https://content.example.com/api", cfg.APIs.ContentBaseURL)
	require.Equal(t, []string{"en", "ar"}, cfg.Locales.Supported)
	require.True(t, cfg.Analytics.Debug)
	require.Equal(t, 5, cfg.RateLimits.JoinPerMinute)
}

func TestLoadReadsDotEnv(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, ".env")
	require.NoError(t, os.WriteFile(path, []byte("QURAN_WEB_ADDR=:7000\nQURAN_WEB_ENV=staging\n"), 0o600))

	cfg, err := Load(WithEnvFile(path), WithoutSystemEnv())
	require.NoError(t, err)
	require.Equal(t, ":7000", cfg.Server.Address)
	require.Equal(t, "staging", cfg.Environment)
}

func TestLoadMissingDotEnvIsIgnored(t *testing.T) {
	_, err := Load(WithEnvFile(filepath.Join(t.TempDir(), "absent.env")), WithoutSystemEnv())
	require.NoError(t, err)
}

func TestLoadProductionRequiresSecrets(t *testing.T) {
	env := map[string]string{
		"QURAN_WEB_ENV":             "prod",
		"QURAN_WEB_FALLBACK_LOCALE": "fr",
	}

	_, err := Load(WithEnvMap(env), WithoutSystemEnv(), WithEnvFile(""))
	require.Error(t, err)

	var verr *ValidationError
	require.True(t, errors.As(err, &verr))
	require.ElementsMatch(t, []string{"Session.SigningKey", "Firebase.ProjectID", "Locales.Fallback"}, verr.Fields())
}
