package ui

import (
	"net/http"

	"go.uber.org/zap"

	"finitefield.org/quran-web/internal/calendar"
	custommw "finitefield.org/quran-web/internal/httpserver/middleware"
	"finitefield.org/quran-web/internal/nav"
	"finitefield.org/quran-web/internal/observability"
)

const toastEvent = "showToast"

type calendarBody struct {
	View      calendar.View
	CSRFToken string
}

func (h *Handlers) calendarControl(r *http.Request) *calendar.Control {
	return calendar.New(calendar.Deps{
		Follows:   h.follows,
		Analytics: h.analytics,
		Bundle:    h.bundle,
		Lang:      h.lang(r),
		Token:     custommw.UserToken(r),
	})
}

// Calendar renders the Quranic Calendar page with the follow status resolved.
func (h *Handlers) Calendar(w http.ResponseWriter, r *http.Request) {
	control := h.calendarControl(r)
	control.Mount(r.Context())
	body := calendarBody{View: control.View(), CSRFToken: custommw.CSRFTokenFromContext(r.Context())}
	h.renderPage(w, r, http.StatusOK, "calendar", h.bundle.T(h.lang(r), "quranic-calendar:title"), body)
}

// CalendarJoin subscribes the viewer and answers with the updated control.
// The toast travels in the HX-Trigger header so it is shown exactly once;
// plain form posts carry it to the next page as a session flash.
func (h *Handlers) CalendarJoin(w http.ResponseWriter, r *http.Request) {
	control := h.calendarControl(r)
	res := control.Join(r.Context())
	if res.RedirectURL != "" {
		custommw.Redirect(w, r, res.RedirectURL)
		return
	}
	if !custommw.IsHTMXRequest(r.Context()) {
		if res.Toast != nil {
			custommw.GetSession(r).SetFlash(custommw.Flash{Message: res.Toast.Message, Status: string(res.Toast.Status)})
		}
		http.Redirect(w, r, nav.QuranicCalendarURL(), http.StatusSeeOther)
		return
	}
	if res.Toast != nil {
		if err := custommw.TriggerEvent(w, toastEvent, res.Toast); err != nil {
			observability.FromContext(r.Context()).Warn("calendar: encode toast", zap.Error(err))
		}
	}
	body := calendarBody{View: control.View(), CSRFToken: custommw.CSRFTokenFromContext(r.Context())}
	h.renderFragment(w, r, http.StatusOK, "calendar_control", body)
}
