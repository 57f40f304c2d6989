package testutil

import (
	"net/http"
	"net/http/cookiejar"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"
	"time"

	"go.uber.org/zap/zaptest"

	"finitefield.org/quran-web/internal/analytics"
	"finitefield.org/quran-web/internal/auth"
	"finitefield.org/quran-web/internal/courses"
	"finitefield.org/quran-web/internal/httpserver"
	custommw "finitefield.org/quran-web/internal/httpserver/middleware"
	"finitefield.org/quran-web/internal/i18n"
	"finitefield.org/quran-web/internal/quran"
	"finitefield.org/quran-web/internal/social"
)

const csrfCookie = "quran_csrf"

// ServerOption customises the server configuration for tests.
type ServerOption func(*httpserver.Config)

// WithCoursesService wires a custom course service.
func WithCoursesService(svc courses.Service) ServerOption {
	return func(cfg *httpserver.Config) { cfg.UI.Courses = svc }
}

// WithFollowService wires a custom follow service.
func WithFollowService(svc social.Service) ServerOption {
	return func(cfg *httpserver.Config) { cfg.UI.Follows = svc }
}

// WithJuzSource wires a custom Juz mapping source.
func WithJuzSource(src quran.JuzSource) ServerOption {
	return func(cfg *httpserver.Config) { cfg.UI.Juz = src }
}

// WithChapters replaces the chapter table.
func WithChapters(chapters *quran.Chapters) ServerOption {
	return func(cfg *httpserver.Config) { cfg.UI.Chapters = chapters }
}

// WithAnalytics wires a click logger.
func WithAnalytics(logger analytics.Logger) ServerOption {
	return func(cfg *httpserver.Config) { cfg.UI.Analytics = logger }
}

// WithVerifier overrides the login token verifier.
func WithVerifier(v auth.Verifier) ServerOption {
	return func(cfg *httpserver.Config) { cfg.UI.Verifier = v }
}

// WithClock drives session expiry from now.
func WithClock(now func() time.Time) ServerOption {
	return func(cfg *httpserver.Config) { cfg.Session.Now = now }
}

// NewServer runs the full HTTP stack on an httptest server with static services.
func NewServer(t testing.TB, opts ...ServerOption) *httptest.Server {
	t.Helper()

	bundle, err := i18n.Embedded("en", []string{"en", "ar", "ur", "id"})
	if err != nil {
		t.Fatalf("load bundle: %v", err)
	}
	chapters, err := quran.EmbeddedChapters()
	if err != nil {
		t.Fatalf("load chapters: %v", err)
	}

	cfg := httpserver.Config{
		Address: ":0",
		Logger:  zaptest.NewLogger(t),
		Session: custommw.SessionConfig{SigningKey: []byte("test-signing-key")},
		CSRF:    custommw.CSRFConfig{CookieName: csrfCookie},
		UI: httpserver.UIDependencies{
			Bundle:    bundle,
			Chapters:  chapters,
			Courses:   courses.NewStaticService(courses.DefaultCatalog()),
			Follows:   social.NewStaticService(),
			Analytics: &analytics.Recorder{},
			Verifier:  auth.DebugVerifier{},
		},
	}
	for _, opt := range opts {
		opt(&cfg)
	}

	handler, err := httpserver.NewHandler(cfg)
	if err != nil {
		t.Fatalf("build handler: %v", err)
	}
	ts := httptest.NewServer(handler)
	t.Cleanup(ts.Close)
	return ts
}

// Client is a cookie-aware client that does not follow redirects.
type Client struct {
	*http.Client
	t    testing.TB
	base string
}

// NewClient returns a client bound to ts.
func NewClient(t testing.TB, ts *httptest.Server) *Client {
	t.Helper()
	jar, err := cookiejar.New(nil)
	if err != nil {
		t.Fatalf("cookie jar: %v", err)
	}
	return &Client{
		Client: &http.Client{
			Jar: jar,
			CheckRedirect: func(*http.Request, []*http.Request) error {
				return http.ErrUseLastResponse
			},
		},
		t:    t,
		base: ts.URL,
	}
}

// Get issues a GET, optionally as an htmx request.
func (c *Client) Get(path string, htmx bool) *http.Response {
	c.t.Helper()
	req, err := http.NewRequest(http.MethodGet, c.base+path, nil)
	if err != nil {
		c.t.Fatalf("build request: %v", err)
	}
	if htmx {
		req.Header.Set("HX-Request", "true")
	}
	return c.do(req)
}

// PostForm posts form values with the CSRF token taken from the cookie jar.
func (c *Client) PostForm(path string, form url.Values, htmx bool) *http.Response {
	c.t.Helper()
	if form == nil {
		form = url.Values{}
	}
	req, err := http.NewRequest(http.MethodPost, c.base+path, strings.NewReader(form.Encode()))
	if err != nil {
		c.t.Fatalf("build request: %v", err)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	req.Header.Set("X-CSRF-Token", c.CSRFToken())
	if htmx {
		req.Header.Set("HX-Request", "true")
	}
	return c.do(req)
}

// CSRFToken returns the token issued to this client, priming it when needed.
func (c *Client) CSRFToken() string {
	c.t.Helper()
	if token := c.cookie(csrfCookie); token != "" {
		return token
	}
	resp := c.Get("/login", false)
	resp.Body.Close()
	return c.cookie(csrfCookie)
}

// Login signs in as uid through the debug verifier.
func (c *Client) Login(uid string) {
	c.t.Helper()
	resp := c.PostForm("/login", url.Values{"id_token": {"debug:" + uid}, "r": {"/"}}, false)
	resp.Body.Close()
	if resp.StatusCode != http.StatusSeeOther {
		c.t.Fatalf("login: unexpected status %d", resp.StatusCode)
	}
}

func (c *Client) cookie(name string) string {
	u, err := url.Parse(c.base)
	if err != nil {
		return ""
	}
	for _, ck := range c.Jar.Cookies(u) {
		if ck.Name == name {
			return ck.Value
		}
	}
	return ""
}

func (c *Client) do(req *http.Request) *http.Response {
	c.t.Helper()
	resp, err := c.Client.Do(req)
	if err != nil {
		c.t.Fatalf("%s %s: %v", req.Method, req.URL.Path, err)
	}
	return resp
}
