package ui

import (
	"net/http"

	"finitefield.org/quran-web/internal/courses"
	custommw "finitefield.org/quran-web/internal/httpserver/middleware"
	"finitefield.org/quran-web/internal/nav"
)

// Courses renders the learning plan catalog.
func (h *Handlers) Courses(w http.ResponseWriter, r *http.Request) {
	h.renderCourses(w, r, false)
}

// MyCourses renders the plans of the signed-in viewer. Anonymous viewers are
// sent to the login page and brought back afterwards.
func (h *Handlers) MyCourses(w http.ResponseWriter, r *http.Request) {
	if !custommw.IsLoggedIn(r) {
		custommw.Redirect(w, r, nav.LoginURL(nav.MyCoursesURL()))
		return
	}
	h.renderCourses(w, r, true)
}

func (h *Handlers) renderCourses(w http.ResponseWriter, r *http.Request, personal bool) {
	list, err := courses.Load(r.Context(), h.courses, custommw.UserToken(r), personal)
	if err != nil {
		h.fail(w, r, http.StatusBadGateway, err)
		return
	}
	lang := h.lang(r)
	title := h.bundle.T(lang, "learn:title")
	if personal {
		title = h.bundle.T(lang, "learn:my-title")
	}
	h.renderPage(w, r, http.StatusOK, "courses", title, courses.BuildList(list, personal, h.bundle, lang))
}
