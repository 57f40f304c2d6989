package middleware

import (
	"encoding/json"
	"net/http"

	chimw "github.com/go-chi/chi/v5/middleware"
)

type errorResponse struct {
	Error     string `json:"error"`
	RequestID string `json:"requestId,omitempty"`
}

// WriteError answers htmx requests with a JSON envelope and everything else
// with plain text.
func WriteError(w http.ResponseWriter, r *http.Request, status int, msg string) {
	if IsHTMXRequest(r.Context()) {
		w.Header().Set("Content-Type", "application/json; charset=utf-8")
		w.WriteHeader(status)
		_ = json.NewEncoder(w).Encode(errorResponse{Error: msg, RequestID: chimw.GetReqID(r.Context())})
		return
	}
	http.Error(w, msg, status)
}

// NoStore disables caching of dynamic pages.
func NoStore() func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.Header().Set("Cache-Control", "no-store")
			next.ServeHTTP(w, r)
		})
	}
}
