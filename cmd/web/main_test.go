package main

import (
	"bytes"
	"context"
	"testing"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"finitefield.org/quran-web/internal/analytics"
	"finitefield.org/quran-web/internal/auth"
	"finitefield.org/quran-web/internal/config"
	"finitefield.org/quran-web/internal/courses"
	"finitefield.org/quran-web/internal/quran"
	"finitefield.org/quran-web/internal/social"
)

func loadTestConfig(t *testing.T, env map[string]string) config.Config {
	t.Helper()
	cfg, err := config.Load(config.WithEnvMap(env), config.WithoutSystemEnv(), config.WithEnvFile(""))
	require.NoError(t, err)
	return cfg
}

func TestCheckData(t *testing.T) {
	report, err := checkData("en", []string{"en", "ar", "ur", "id"})
	require.NoError(t, err)
	require.Equal(t, 114, report.chapters)
	require.Equal(t, quran.JuzCount, report.juz)
	require.Equal(t, 4, report.locales)
}

func TestCheckDataCommand(t *testing.T) {
	root := newRootCommand()
	var out bytes.Buffer
	root.SetOut(&out)
	root.SetArgs([]string{"check-data", "--env-file", ""})

	require.NoError(t, root.Execute())
	require.Contains(t, out.String(), "ok: 114 chapters, 30 juz")
}

func TestBuildDependenciesStatic(t *testing.T) {
	cfg := loadTestConfig(t, map[string]string{})

	deps, closeFn, err := buildDependencies(context.Background(), cfg, zaptest.NewLogger(t))
	require.NoError(t, err)
	require.NoError(t, closeFn(context.Background()))

	require.IsType(t, &quran.StaticJuzSource{}, deps.Juz)
	require.IsType(t, &courses.StaticService{}, deps.Courses)
	require.IsType(t, &social.StaticService{}, deps.Follows)
	require.IsType(t, auth.DebugVerifier{}, deps.Verifier)
	require.Equal(t, analytics.Multi{analytics.ZapLogger{}}, deps.Analytics)
}

func TestBuildDependenciesHTTP(t *testing.T) {
	cfg := loadTestConfig(t, map[string]string{
		"QURAN_WEB_CONTENT_API_URL": "https://content.example.com/api",
		"QURAN_WEB_AUTH_API_URL":    "https://auth.example.com",
		"QURAN_WEB_ANALYTICS_URL":   "https://collector.example.com",
	})

	deps, closeFn, err := buildDependencies(context.Background(), cfg, zaptest.NewLogger(t))
	require.NoError(t, err)
	t.Cleanup(func() { _ = closeFn(context.Background()) })

	require.IsType(t, &quran.HTTPJuzSource{}, deps.Juz)
	require.IsType(t, &courses.HTTPService{}, deps.Courses)
	require.IsType(t, &social.HTTPService{}, deps.Follows)

	multi, ok := deps.Analytics.(analytics.Multi)
	require.True(t, ok)
	require.Len(t, multi, 1)
	require.IsType(t, &analytics.Collector{}, multi[0])
}
