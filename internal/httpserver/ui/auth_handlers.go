package ui

import (
	"errors"
	"net/http"

	"go.uber.org/zap"

	"finitefield.org/quran-web/internal/auth"
	custommw "finitefield.org/quran-web/internal/httpserver/middleware"
	"finitefield.org/quran-web/internal/nav"
	"finitefield.org/quran-web/internal/observability"
)

type loginBody struct {
	Redirect string
	Invalid  bool
}

// LoginForm renders the sign-in page. Signed-in viewers go straight to r.
func (h *Handlers) LoginForm(w http.ResponseWriter, r *http.Request) {
	redirect := nav.SafeRedirect(r.URL.Query().Get("r"), "/")
	if custommw.IsLoggedIn(r) {
		http.Redirect(w, r, redirect, http.StatusSeeOther)
		return
	}
	h.renderLogin(w, r, http.StatusOK, loginBody{Redirect: redirect})
}

// Login exchanges an ID token for a session and returns to the requested page.
func (h *Handlers) Login(w http.ResponseWriter, r *http.Request) {
	redirect := nav.SafeRedirect(r.PostFormValue("r"), "/")
	user, err := h.verifier.Verify(r.Context(), r.PostFormValue("id_token"))
	if err != nil {
		fields := []zap.Field{zap.Error(err)}
		var authErr *auth.AuthError
		if errors.As(err, &authErr) {
			fields = append(fields, zap.String("reason", authErr.Reason))
		}
		observability.FromContext(r.Context()).Warn("login rejected", fields...)
		h.renderLogin(w, r, http.StatusUnauthorized, loginBody{Redirect: redirect, Invalid: true})
		return
	}

	custommw.GetSession(r).Login(custommw.SessionUser{
		UID:     user.UID,
		Email:   user.Email,
		Name:    user.Name,
		Token:   user.Token,
		Expires: user.Expires,
	})
	observability.FromContext(r.Context()).Info("login", zap.String("user_id", user.UID))
	custommw.Redirect(w, r, redirect)
}

// Logout clears the session.
func (h *Handlers) Logout(w http.ResponseWriter, r *http.Request) {
	custommw.GetSession(r).Logout()
	custommw.Redirect(w, r, "/")
}

func (h *Handlers) renderLogin(w http.ResponseWriter, r *http.Request, status int, body loginBody) {
	h.renderPage(w, r, status, "login", h.bundle.T(h.lang(r), "login:title"), body)
}
