package ui

import (
	"net/http"
	"regexp"

	"finitefield.org/quran-web/internal/nav"
)

var eventName = regexp.MustCompile(`^[a-z0-9_]{1,64}$`)

// Click logs the named click and continues to the local target.
func (h *Handlers) Click(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	if name := q.Get("name"); eventName.MatchString(name) {
		h.analytics.LogButtonClick(r.Context(), name)
	}
	http.Redirect(w, r, nav.SafeRedirect(q.Get("to"), "/"), http.StatusSeeOther)
}
