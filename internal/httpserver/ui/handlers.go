package ui

import (
	"errors"
	"net/http"

	chimw "github.com/go-chi/chi/v5/middleware"
	"go.uber.org/zap"

	"finitefield.org/quran-web/internal/analytics"
	"finitefield.org/quran-web/internal/auth"
	"finitefield.org/quran-web/internal/courses"
	custommw "finitefield.org/quran-web/internal/httpserver/middleware"
	"finitefield.org/quran-web/internal/i18n"
	"finitefield.org/quran-web/internal/nav"
	"finitefield.org/quran-web/internal/observability"
	"finitefield.org/quran-web/internal/quran"
	"finitefield.org/quran-web/internal/social"
)

// Dependencies collects the services used by the UI handlers.
type Dependencies struct {
	Bundle    *i18n.Bundle
	Chapters  *quran.Chapters
	Juz       quran.JuzSource
	Courses   courses.Service
	Follows   social.Service
	Analytics analytics.Logger
	Verifier  auth.Verifier
}

// Handlers exposes the HTTP handlers for pages and fragments.
type Handlers struct {
	bundle    *i18n.Bundle
	chapters  *quran.Chapters
	juz       quran.JuzSource
	courses   courses.Service
	follows   social.Service
	analytics analytics.Logger
	verifier  auth.Verifier
	renderer  *Renderer
}

// NewHandlers wires the handler set. Missing services fall back to their
// static implementations.
func NewHandlers(deps Dependencies) (*Handlers, error) {
	if deps.Bundle == nil {
		return nil, errors.New("ui: translation bundle is required")
	}
	if deps.Chapters == nil {
		return nil, errors.New("ui: chapter table is required")
	}
	renderer, err := NewRenderer(deps.Bundle)
	if err != nil {
		return nil, err
	}

	h := &Handlers{
		bundle:    deps.Bundle,
		chapters:  deps.Chapters,
		juz:       deps.Juz,
		courses:   deps.Courses,
		follows:   deps.Follows,
		analytics: deps.Analytics,
		verifier:  deps.Verifier,
		renderer:  renderer,
	}
	if h.juz == nil {
		src, err := quran.NewStaticJuzSource(deps.Chapters)
		if err != nil {
			return nil, err
		}
		h.juz = src
	}
	if h.courses == nil {
		h.courses = courses.NewStaticService(courses.DefaultCatalog())
	}
	if h.follows == nil {
		h.follows = social.NewStaticService()
	}
	if h.analytics == nil {
		h.analytics = analytics.ZapLogger{}
	}
	if h.verifier == nil {
		h.verifier = auth.DebugVerifier{}
	}
	return h, nil
}

// PageData is the model shared by every full page.
type PageData struct {
	Lang      string
	Dir       string
	Title     string
	SiteName  string
	Nav       []NavLink
	User      *custommw.SessionUser
	CSRFToken string
	LoginURL  string
	Flash     *custommw.Flash
	Body      any
}

// NavLink is a rendered top navigation entry.
type NavLink struct {
	Href   string
	Label  string
	Active bool
}

type errorBody struct {
	Message   string
	RequestID string
}

func (h *Handlers) lang(r *http.Request) string {
	return custommw.Lang(r.Context(), h.bundle.Fallback())
}

func (h *Handlers) page(r *http.Request, title string, body any) PageData {
	lang := h.lang(r)
	items := nav.Build(r.URL.Path)
	links := make([]NavLink, 0, len(items))
	for _, it := range items {
		links = append(links, NavLink{Href: it.Href, Label: h.bundle.T(lang, it.LabelKey), Active: it.Active})
	}
	data := PageData{
		Lang:      lang,
		Dir:       i18n.Dir(lang),
		Title:     title,
		SiteName:  h.bundle.T(lang, "common:site-name"),
		Nav:       links,
		CSRFToken: custommw.CSRFTokenFromContext(r.Context()),
		LoginURL:  nav.LoginURL(r.URL.RequestURI()),
		Body:      body,
	}
	if user, ok := custommw.UserFromContext(r.Context()); ok {
		data.User = user
	}
	if flash, ok := custommw.GetSession(r).TakeFlash(); ok {
		data.Flash = &flash
	}
	return data
}

func (h *Handlers) renderPage(w http.ResponseWriter, r *http.Request, status int, name, title string, body any) {
	component, err := h.renderer.Page(name, h.page(r, title, body))
	if err != nil {
		h.fail(w, r, http.StatusInternalServerError, err)
		return
	}
	serve(w, r, component, status)
}

func (h *Handlers) renderFragment(w http.ResponseWriter, r *http.Request, status int, name string, data any) {
	component, err := h.renderer.Fragment(name, data)
	if err != nil {
		h.fail(w, r, http.StatusInternalServerError, err)
		return
	}
	serve(w, r, component, status)
}

// fail logs err and answers with an error page, or a JSON envelope for htmx.
func (h *Handlers) fail(w http.ResponseWriter, r *http.Request, status int, err error) {
	logger := observability.FromContext(r.Context())
	if status >= http.StatusInternalServerError {
		logger.Error("request failed", zap.Int("status", status), zap.Error(err))
	} else {
		logger.Warn("request failed", zap.Int("status", status), zap.Error(err))
	}

	lang := h.lang(r)
	msg := h.bundle.T(lang, "common:error.general")
	switch status {
	case http.StatusNotFound:
		msg = h.bundle.T(lang, "common:error.not-found")
	case http.StatusBadGateway:
		msg = h.bundle.T(lang, "common:error.load")
	}

	if custommw.IsHTMXRequest(r.Context()) {
		custommw.WriteError(w, r, status, msg)
		return
	}
	component, rerr := h.renderer.Page("error", h.page(r, http.StatusText(status), errorBody{
		Message:   msg,
		RequestID: chimw.GetReqID(r.Context()),
	}))
	if rerr != nil {
		http.Error(w, msg, status)
		return
	}
	serve(w, r, component, status)
}

// NotFound renders the 404 page.
func (h *Handlers) NotFound(w http.ResponseWriter, r *http.Request) {
	h.fail(w, r, http.StatusNotFound, errors.New("no route for "+r.URL.Path))
}

// Healthz reports liveness.
func (h *Handlers) Healthz(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	_, _ = w.Write([]byte("ok"))
}
