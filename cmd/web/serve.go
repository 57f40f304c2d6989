package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"finitefield.org/quran-web/internal/analytics"
	"finitefield.org/quran-web/internal/auth"
	"finitefield.org/quran-web/internal/backend"
	"finitefield.org/quran-web/internal/config"
	"finitefield.org/quran-web/internal/courses"
	"finitefield.org/quran-web/internal/httpserver"
	custommw "finitefield.org/quran-web/internal/httpserver/middleware"
	"finitefield.org/quran-web/internal/i18n"
	"finitefield.org/quran-web/internal/observability"
	"finitefield.org/quran-web/internal/quran"
	"finitefield.org/quran-web/internal/social"
)

const shutdownTimeout = 10 * time.Second

func newServeCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP server",
		RunE:  runServe,
	}
	cmd.Flags().String("addr", "", "listen address, overrides QURAN_WEB_ADDR")
	cmd.Flags().String("log-level", "", "log level, overrides LOG_LEVEL")
	return cmd
}

func runServe(cmd *cobra.Command, _ []string) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	if addr, _ := cmd.Flags().GetString("addr"); addr != "" {
		cfg.Server.Address = addr
	}
	if level, _ := cmd.Flags().GetString("log-level"); level != "" {
		cfg.LogLevel = level
	}

	baseLogger, err := observability.NewLogger(cfg.LogLevel)
	if err != nil {
		return fmt.Errorf("initialise logger: %w", err)
	}
	defer func() {
		_ = baseLogger.Sync()
	}()
	logger := baseLogger.Named("web")

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	ctx = observability.WithLogger(ctx, logger)

	deps, closeDeps, err := buildDependencies(ctx, cfg, logger)
	if err != nil {
		return err
	}

	srv, err := httpserver.New(httpserver.Config{
		Address:        cfg.Server.Address,
		ReadTimeout:    cfg.Server.ReadTimeout,
		WriteTimeout:   cfg.Server.WriteTimeout,
		IdleTimeout:    cfg.Server.IdleTimeout,
		RequestTimeout: cfg.Server.RequestTimeout,
		Logger:         logger,
		Session: custommw.SessionConfig{
			SigningKey: []byte(cfg.Session.SigningKey),
			Secure:     cfg.Session.Secure,
		},
		CSRF:           custommw.CSRFConfig{Secure: cfg.Session.Secure},
		JoinPerMinute:  cfg.RateLimits.JoinPerMinute,
		ClickPerMinute: cfg.RateLimits.ClickPerMinute,
		UI:             deps,
	})
	if err != nil {
		return err
	}

	serveErr := make(chan error, 1)
	go func() {
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serveErr <- err
		}
		close(serveErr)
	}()
	logger.Info("server listening", zap.String("addr", cfg.Server.Address), zap.String("env", cfg.Environment))

	select {
	case err := <-serveErr:
		if err != nil {
			return fmt.Errorf("http server failed: %w", err)
		}
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("graceful shutdown failed", zap.Error(err))
	}
	if err := closeDeps(shutdownCtx); err != nil {
		logger.Warn("dependency close error", zap.Error(err))
	}
	logger.Info("server stopped")
	return nil
}

func loadConfig(cmd *cobra.Command) (config.Config, error) {
	envFile, _ := cmd.Flags().GetString("env-file")
	cfg, err := config.Load(config.WithEnvFile(envFile))
	if err != nil {
		return config.Config{}, fmt.Errorf("load configuration: %w", err)
	}
	return cfg, nil
}

// buildDependencies picks HTTP backed services for every configured base URL
// and the static ones otherwise. The returned func flushes pending analytics.
func buildDependencies(ctx context.Context, cfg config.Config, logger *zap.Logger) (httpserver.UIDependencies, func(context.Context) error, error) {
	noop := func(context.Context) error { return nil }

	bundle, err := i18n.Embedded(cfg.Locales.Fallback, cfg.Locales.Supported)
	if err != nil {
		return httpserver.UIDependencies{}, noop, fmt.Errorf("load translations: %w", err)
	}
	chapters, err := quran.EmbeddedChapters()
	if err != nil {
		return httpserver.UIDependencies{}, noop, fmt.Errorf("load chapters: %w", err)
	}

	deps := httpserver.UIDependencies{
		Bundle:   bundle,
		Chapters: chapters,
	}

	if cfg.APIs.ContentBaseURL != "" {
		client, err := backend.NewTimeoutClient("content", cfg.APIs.ContentBaseURL, cfg.APIs.Timeout)
		if err != nil {
			return httpserver.UIDependencies{}, noop, err
		}
		deps.Juz = quran.NewHTTPJuzSource(client)
		deps.Courses = courses.NewHTTPService(client)
	} else {
		logger.Info("content api not configured; serving static juz mapping and catalog")
		src, err := quran.NewStaticJuzSource(chapters)
		if err != nil {
			return httpserver.UIDependencies{}, noop, err
		}
		deps.Juz = src
		deps.Courses = courses.NewStaticService(courses.DefaultCatalog())
	}

	if cfg.APIs.AuthBaseURL != "" {
		client, err := backend.NewTimeoutClient("auth", cfg.APIs.AuthBaseURL, cfg.APIs.Timeout)
		if err != nil {
			return httpserver.UIDependencies{}, noop, err
		}
		deps.Follows = social.NewHTTPService(client)
	} else {
		logger.Info("auth api not configured; follows are kept in memory")
		deps.Follows = social.NewStaticService()
	}

	switch {
	case cfg.Firebase.ProjectID != "":
		verifier, err := auth.NewFirebaseVerifier(ctx, cfg.Firebase.ProjectID)
		if err != nil {
			return httpserver.UIDependencies{}, noop, err
		}
		logger.Info("firebase verifier enabled", zap.String("project", cfg.Firebase.ProjectID))
		deps.Verifier = verifier
	case !cfg.IsProduction():
		logger.Warn("FIREBASE_PROJECT_ID not set; accepting debug tokens")
		deps.Verifier = auth.DebugVerifier{}
	}

	loggers := analytics.Multi{}
	if cfg.Analytics.Debug || cfg.Analytics.CollectorURL == "" {
		loggers = append(loggers, analytics.ZapLogger{})
	}
	closeFn := noop
	if cfg.Analytics.CollectorURL != "" {
		collector, err := analytics.NewHTTPCollector(cfg.Analytics.CollectorURL, cfg.Analytics.WriteKey, cfg.Analytics.QueueSize, cfg.APIs.Timeout, logger.Named("analytics"))
		if err != nil {
			return httpserver.UIDependencies{}, noop, err
		}
		loggers = append(loggers, collector)
		closeFn = collector.Close
	}
	deps.Analytics = loggers

	return deps, closeFn, nil
}
