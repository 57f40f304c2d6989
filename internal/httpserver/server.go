// Package httpserver assembles the router, middleware stack and handlers.
package httpserver

import (
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/andybalholm/brotli"
	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/httprate"
	"go.uber.org/zap"

	custommw "finitefield.org/quran-web/internal/httpserver/middleware"
	"finitefield.org/quran-web/internal/httpserver/ui"
	"finitefield.org/quran-web/internal/observability"
	"finitefield.org/quran-web/public"
)

const (
	defaultRequestTimeout = 30 * time.Second
	defaultRateLimit      = 60
	compressionLevel      = 5
)

// UIDependencies are the services behind the pages.
type UIDependencies = ui.Dependencies

// Config holds runtime options for the HTTP server.
type Config struct {
	Address        string
	ReadTimeout    time.Duration
	WriteTimeout   time.Duration
	IdleTimeout    time.Duration
	RequestTimeout time.Duration

	Logger  *zap.Logger
	Session custommw.SessionConfig
	CSRF    custommw.CSRFConfig

	JoinPerMinute  int
	ClickPerMinute int

	UI UIDependencies
}

// New constructs the HTTP server with the middleware stack and embedded assets.
func New(cfg Config) (*http.Server, error) {
	handler, err := NewHandler(cfg)
	if err != nil {
		return nil, err
	}
	return &http.Server{
		Addr:              cfg.Address,
		Handler:           handler,
		ReadTimeout:       orDefault(cfg.ReadTimeout, 15*time.Second),
		ReadHeaderTimeout: 10 * time.Second,
		WriteTimeout:      orDefault(cfg.WriteTimeout, 30*time.Second),
		IdleTimeout:       orDefault(cfg.IdleTimeout, 60*time.Second),
	}, nil
}

// NewHandler builds the router without binding a listener.
func NewHandler(cfg Config) (http.Handler, error) {
	if cfg.UI.Bundle == nil {
		return nil, errors.New("httpserver: translation bundle is required")
	}
	logger := cfg.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	if len(cfg.Session.SigningKey) == 0 {
		logger.Warn("session signing key not set; sessions will not survive a restart")
	}

	handlers, err := ui.NewHandlers(cfg.UI)
	if err != nil {
		return nil, err
	}

	staticContent, err := public.StaticFS()
	if err != nil {
		return nil, fmt.Errorf("httpserver: embed static: %w", err)
	}

	compressor := chimw.NewCompressor(compressionLevel, "text/html", "text/css", "application/javascript", "application/json", "image/svg+xml")
	compressor.SetEncoder("br", func(w io.Writer, level int) io.Writer {
		return brotli.NewWriterLevel(w, level)
	})

	router := chi.NewRouter()
	router.Use(chimw.RequestID)
	router.Use(chimw.RealIP)
	router.Use(observability.InjectLogger(logger))
	router.Use(observability.Recoverer)
	router.Use(compressor.Handler)
	router.Use(custommw.HTMX())
	router.Use(custommw.Session(cfg.Session))
	router.Use(observability.RequestLogger(requestFields))

	router.Get("/healthz", handlers.Healthz)
	router.Handle("/public/static/*", http.StripPrefix("/public/static/", cacheStatic(http.FileServer(http.FS(staticContent)))))

	router.Group(func(r chi.Router) {
		r.Use(chimw.Timeout(orDefault(cfg.RequestTimeout, defaultRequestTimeout)))
		r.Use(custommw.Locale(cfg.UI.Bundle))
		r.Use(custommw.NoStore())
		r.Use(custommw.CSRF(cfg.CSRF))

		r.Get("/", handlers.Home)
		r.With(custommw.RequireHTMX()).Get("/juz-grid", handlers.JuzGrid)

		r.Get("/learning-plans", handlers.Courses)
		r.Get("/my-learning-plans", handlers.MyCourses)

		r.Get("/calendar", handlers.Calendar)
		r.With(httprate.LimitByIP(positive(cfg.JoinPerMinute, defaultRateLimit), time.Minute)).
			Post("/calendar/join", handlers.CalendarJoin)

		r.With(httprate.LimitByIP(positive(cfg.ClickPerMinute, defaultRateLimit), time.Minute)).
			Get("/events/click", handlers.Click)

		r.Get("/login", handlers.LoginForm)
		r.Post("/login", handlers.Login)
		r.Post("/logout", handlers.Logout)
	})
	router.NotFound(chi.Chain(custommw.Locale(cfg.UI.Bundle), custommw.CSRF(cfg.CSRF)).HandlerFunc(handlers.NotFound).ServeHTTP)

	return router, nil
}

func requestFields(r *http.Request) []zap.Field {
	fields := []zap.Field{zap.Bool("htmx", custommw.IsHTMXRequest(r.Context()))}
	if user, ok := custommw.UserFromContext(r.Context()); ok {
		fields = append(fields, zap.String("user_id", user.UID))
	}
	return fields
}

func cacheStatic(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Cache-Control", "public, max-age=604800, stale-while-revalidate=86400")
		next.ServeHTTP(w, r)
	})
}

func orDefault(d, fallback time.Duration) time.Duration {
	if d <= 0 {
		return fallback
	}
	return d
}

func positive(n, fallback int) int {
	if n <= 0 {
		return fallback
	}
	return n
}
