package middleware

import (
	"context"
	"net/http"
	"strings"
)

type localeContextKey struct{}

// LocaleResolver is the subset of the translation bundle used to pick a language.
type LocaleResolver interface {
	Resolve(acceptLang string) string
	IsSupported(lang string) bool
	Fallback() string
}

// Locale picks the language of the request: the hl query parameter, then the
// session, then Accept-Language. The choice is remembered in the session.
func Locale(bundle LocaleResolver) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			s := GetSession(r)
			lang := ""
			if q := strings.ToLower(strings.TrimSpace(r.URL.Query().Get("hl"))); q != "" && bundle.IsSupported(q) {
				lang = q
			} else if s.Locale != "" && bundle.IsSupported(s.Locale) {
				lang = s.Locale
			} else {
				lang = bundle.Resolve(r.Header.Get("Accept-Language"))
			}
			if s.Locale != lang {
				s.Locale = lang
				s.MarkDirty()
			}
			w.Header().Set("Content-Language", lang)
			w.Header().Add("Vary", "Accept-Language")
			ctx := context.WithValue(r.Context(), localeContextKey{}, lang)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// Lang returns the language chosen by Locale, or fallback when unset.
func Lang(ctx context.Context, fallback string) string {
	if lang, ok := ctx.Value(localeContextKey{}).(string); ok && lang != "" {
		return lang
	}
	return fallback
}
