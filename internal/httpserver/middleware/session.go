package middleware

import (
	"context"
	"crypto/hmac"
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"encoding/json"
	"net/http"
	"strings"
	"time"

	"go.uber.org/zap"

	"finitefield.org/quran-web/internal/observability"
)

const (
	defaultSessionCookie = "QURAN_WEB_SESSION"
	defaultSessionMaxAge = 30 * 24 * time.Hour
)

type sessionContextKey struct{}

// SessionUser is the signed-in identity kept in the session. Token is the
// bearer token forwarded to the backend APIs.
type SessionUser struct {
	UID     string    `json:"uid"`
	Email   string    `json:"email,omitempty"`
	Name    string    `json:"name,omitempty"`
	Token   string    `json:"token"`
	Expires time.Time `json:"expires,omitempty"`
}

// Expired reports whether the bearer token can no longer be used at now.
// A zero Expires never expires.
func (u SessionUser) Expired(now time.Time) bool {
	return !u.Expires.IsZero() && !now.Before(u.Expires)
}

// SessionData is the payload of the signed session cookie.
type SessionData struct {
	ID        string       `json:"id"`
	User      *SessionUser `json:"user,omitempty"`
	Locale    string       `json:"locale,omitempty"`
	Flash     *Flash       `json:"flash,omitempty"`
	CreatedAt time.Time    `json:"createdAt"`
	UpdatedAt time.Time    `json:"updatedAt"`

	dirty bool
}

// Flash is a notification carried across a redirect and shown once.
type Flash struct {
	Message string `json:"message"`
	Status  string `json:"status"`
}

// SetFlash stores f for the next rendered page.
func (s *SessionData) SetFlash(f Flash) {
	s.Flash = &f
	s.MarkDirty()
}

// TakeFlash returns the pending flash and clears it.
func (s *SessionData) TakeFlash() (Flash, bool) {
	if s.Flash == nil {
		return Flash{}, false
	}
	f := *s.Flash
	s.Flash = nil
	s.MarkDirty()
	return f, true
}

// MarkDirty flags the session to be written with the response.
func (s *SessionData) MarkDirty() {
	s.dirty = true
	s.UpdatedAt = time.Now().UTC()
}

// Login stores user and rotates the session id.
func (s *SessionData) Login(user SessionUser) {
	s.User = &user
	s.ID = randID()
	s.MarkDirty()
}

// Logout drops the user and rotates the session id.
func (s *SessionData) Logout() {
	s.User = nil
	s.ID = randID()
	s.MarkDirty()
}

// SessionConfig configures the session cookie. An empty SigningKey gets a
// random per-process key, which invalidates sessions on restart.
type SessionConfig struct {
	SigningKey []byte
	CookieName string
	Secure     bool
	MaxAge     time.Duration
	// Now defaults to time.Now.
	Now func() time.Time
}

type sessionCodec struct {
	key    []byte
	name   string
	secure bool
	maxAge time.Duration
}

// Session loads or initialises the session and writes it back before the
// first byte of the response when it changed.
func Session(cfg SessionConfig) func(http.Handler) http.Handler {
	codec := sessionCodec{
		key:    cfg.SigningKey,
		name:   cfg.CookieName,
		secure: cfg.Secure,
		maxAge: cfg.MaxAge,
	}
	if len(codec.key) == 0 {
		codec.key = make([]byte, 32)
		_, _ = rand.Read(codec.key)
	}
	if codec.name == "" {
		codec.name = defaultSessionCookie
	}
	if codec.maxAge <= 0 {
		codec.maxAge = defaultSessionMaxAge
	}
	clock := cfg.Now
	if clock == nil {
		clock = time.Now
	}

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			now := clock().UTC()
			sd, ok := codec.read(r)
			if !ok {
				sd = &SessionData{ID: randID(), CreatedAt: now, UpdatedAt: now, dirty: true}
			}
			if sd.User != nil && sd.User.Expired(now) {
				observability.FromContext(r.Context()).Info("session token expired", zap.String("user_id", sd.User.UID))
				sd.Logout()
			}

			sw := &sessionWriter{ResponseWriter: w}
			sw.before = func() {
				if sd.dirty {
					codec.write(w, sd)
				}
			}
			ctx := context.WithValue(r.Context(), sessionContextKey{}, sd)
			next.ServeHTTP(sw, r.WithContext(ctx))
			sw.commit()
		})
	}
}

// GetSession returns the session of the request. Requests that did not pass
// through Session get an empty, unsaved session.
func GetSession(r *http.Request) *SessionData {
	if sd, ok := r.Context().Value(sessionContextKey{}).(*SessionData); ok && sd != nil {
		return sd
	}
	return &SessionData{}
}

// UserFromContext returns the signed-in user, if any.
func UserFromContext(ctx context.Context) (*SessionUser, bool) {
	sd, ok := ctx.Value(sessionContextKey{}).(*SessionData)
	if !ok || sd == nil || sd.User == nil || sd.User.UID == "" {
		return nil, false
	}
	return sd.User, true
}

// IsLoggedIn reports whether the request carries a signed-in session.
func IsLoggedIn(r *http.Request) bool {
	_, ok := UserFromContext(r.Context())
	return ok
}

// UserToken returns the backend token of the signed-in user or "".
func UserToken(r *http.Request) string {
	if u, ok := UserFromContext(r.Context()); ok {
		return u.Token
	}
	return ""
}

func (c sessionCodec) read(r *http.Request) (*SessionData, bool) {
	cookie, err := r.Cookie(c.name)
	if err != nil || cookie.Value == "" {
		return nil, false
	}
	payloadPart, sigPart, found := strings.Cut(cookie.Value, ".")
	if !found {
		return nil, false
	}
	payload, err := base64.RawURLEncoding.DecodeString(payloadPart)
	if err != nil {
		return nil, false
	}
	sig, err := base64.RawURLEncoding.DecodeString(sigPart)
	if err != nil || !hmac.Equal(sig, c.sign(payload)) {
		return nil, false
	}
	var sd SessionData
	if err := json.Unmarshal(payload, &sd); err != nil || sd.ID == "" {
		return nil, false
	}
	return &sd, true
}

func (c sessionCodec) write(w http.ResponseWriter, sd *SessionData) {
	payload, err := json.Marshal(sd)
	if err != nil {
		return
	}
	value := base64.RawURLEncoding.EncodeToString(payload) + "." + base64.RawURLEncoding.EncodeToString(c.sign(payload))
	http.SetCookie(w, &http.Cookie{
		Name:     c.name,
		Value:    value,
		Path:     "/",
		HttpOnly: true,
		Secure:   c.secure,
		SameSite: http.SameSiteLaxMode,
		MaxAge:   int(c.maxAge.Seconds()),
	})
	sd.dirty = false
}

func (c sessionCodec) sign(payload []byte) []byte {
	mac := hmac.New(sha256.New, c.key)
	mac.Write(payload)
	return mac.Sum(nil)
}

// sessionWriter runs before once, ahead of the first header or body write.
type sessionWriter struct {
	http.ResponseWriter
	before    func()
	committed bool
}

func (w *sessionWriter) commit() {
	if w.committed {
		return
	}
	w.committed = true
	if w.before != nil {
		w.before()
	}
}

func (w *sessionWriter) WriteHeader(status int) {
	w.commit()
	w.ResponseWriter.WriteHeader(status)
}

func (w *sessionWriter) Write(b []byte) (int, error) {
	w.commit()
	return w.ResponseWriter.Write(b)
}

func (w *sessionWriter) Flush() {
	w.commit()
	if f, ok := w.ResponseWriter.(http.Flusher); ok {
		f.Flush()
	}
}

func (w *sessionWriter) Unwrap() http.ResponseWriter { return w.ResponseWriter }

func randID() string {
	b := make([]byte, 16)
	if _, err := rand.Read(b); err != nil {
		return ""
	}
	return base64.RawURLEncoding.EncodeToString(b)
}
