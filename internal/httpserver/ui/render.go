package ui

import (
	"embed"
	"fmt"
	"html/template"
	"net/http"

	"github.com/a-h/templ"
	"go.uber.org/zap"

	"finitefield.org/quran-web/internal/i18n"
	"finitefield.org/quran-web/internal/observability"
)

//go:embed templates/*.html
var templateFS embed.FS

var pageNames = []string{"home", "courses", "calendar", "login", "error"}

// Renderer turns embedded html/template sources into templ components.
type Renderer struct {
	base  *template.Template
	pages map[string]*template.Template
}

// NewRenderer parses the layout, the shared partials and every page.
func NewRenderer(bundle *i18n.Bundle) (*Renderer, error) {
	funcs := template.FuncMap{
		"t":   bundle.T,
		"num": i18n.LocalizeNumber,
	}
	base, err := template.New("base").Funcs(funcs).ParseFS(templateFS, "templates/layout.html", "templates/partials.html")
	if err != nil {
		return nil, fmt.Errorf("ui: parse layout: %w", err)
	}
	pages := make(map[string]*template.Template, len(pageNames))
	for _, name := range pageNames {
		clone, err := base.Clone()
		if err != nil {
			return nil, fmt.Errorf("ui: clone layout for %s: %w", name, err)
		}
		if _, err := clone.ParseFS(templateFS, "templates/"+name+".html"); err != nil {
			return nil, fmt.Errorf("ui: parse page %s: %w", name, err)
		}
		pages[name] = clone
	}
	return &Renderer{base: base, pages: pages}, nil
}

// Page returns the full document for page name.
func (r *Renderer) Page(name string, data PageData) (templ.Component, error) {
	tpl, ok := r.pages[name]
	if !ok {
		return nil, fmt.Errorf("ui: unknown page %q", name)
	}
	return templ.FromGoHTML(tpl.Lookup("layout"), data), nil
}

// Fragment returns a shared partial rendered on its own.
func (r *Renderer) Fragment(name string, data any) (templ.Component, error) {
	tpl := r.base.Lookup(name)
	if tpl == nil {
		return nil, fmt.Errorf("ui: unknown fragment %q", name)
	}
	return templ.FromGoHTML(tpl, data), nil
}

func serve(w http.ResponseWriter, r *http.Request, component templ.Component, status int) {
	templ.Handler(component,
		templ.WithStatus(status),
		templ.WithErrorHandler(func(r *http.Request, err error) http.Handler {
			observability.FromContext(r.Context()).Error("ui: render failed", zap.Error(err))
			return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
			})
		}),
	).ServeHTTP(w, r)
}
