// Package calendar drives the Quranic Calendar subscribe button.
package calendar

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"finitefield.org/quran-web/internal/analytics"
	"finitefield.org/quran-web/internal/nav"
	"finitefield.org/quran-web/internal/observability"
	"finitefield.org/quran-web/internal/social"
)

// Account is the account followed to receive calendar reminders.
const Account = "calendar"

// State is the lifecycle of the button.
type State int

const (
	StateIdle State = iota
	StateChecking
	StateJoined
	StateUnjoined
	StateErrored
	StateSubmitting
)

var stateNames = [...]string{"idle", "checking", "joined", "unjoined", "errored", "submitting"}

func (s State) String() string {
	if int(s) < len(stateNames) {
		return stateNames[s]
	}
	return fmt.Sprintf("state(%d)", int(s))
}

// ToastStatus selects the toast style.
type ToastStatus string

const (
	ToastSuccess ToastStatus = "success"
	ToastError   ToastStatus = "error"
)

// Toast is a transient notification shown once.
type Toast struct {
	Message string      `json:"message"`
	Status  ToastStatus `json:"status"`
}

// Translator resolves localized strings.
type Translator interface {
	T(lang, key string) string
}

// Deps wires a Control. An empty Token means the viewer is anonymous.
type Deps struct {
	Follows   social.Service
	Analytics analytics.Logger
	Bundle    Translator
	Lang      string
	Token     string
}

// Result is the outcome of Join. RedirectURL is set when the viewer must log
// in first; Toast is set when a notification should be shown.
type Result struct {
	RedirectURL string
	Toast       *Toast
}

// View is the render model of the button.
type View struct {
	State    State
	CTA      string
	Label    string
	Joined   bool
	Disabled bool
	Loading  bool
}

// Control holds the state of one button for the duration of a request. It is
// not safe for concurrent use.
type Control struct {
	deps    Deps
	state   State
	loading bool
}

// New returns a control in StateIdle.
func New(deps Deps) *Control {
	if deps.Analytics == nil {
		deps.Analytics = analytics.ZapLogger{}
	}
	return &Control{deps: deps, state: StateIdle}
}

// State returns the current state.
func (c *Control) State() State { return c.state }

// Loading reports whether a call is in flight.
func (c *Control) Loading() bool { return c.loading }

func (c *Control) authenticated() bool { return c.deps.Token != "" }

// Mount checks the follow status of an authenticated viewer. A failed check
// leaves the button disabled and is not reported to the viewer.
func (c *Control) Mount(ctx context.Context) {
	if !c.authenticated() || c.state != StateIdle {
		return
	}
	c.transition(StateChecking, func() State {
		status, err := c.deps.Follows.IsUserFollowed(ctx, c.deps.Token, Account)
		if err != nil {
			observability.FromContext(ctx).Warn("calendar: follow status check failed", zap.Error(err))
			return StateErrored
		}
		if status.Followed {
			return StateJoined
		}
		return StateUnjoined
	})
}

// Join subscribes the viewer. Anonymous viewers are sent to the login page
// and come back to the calendar.
func (c *Control) Join(ctx context.Context) Result {
	c.deps.Analytics.LogButtonClick(ctx, analytics.EventJoinQuranicCalendar)

	if !c.authenticated() {
		return Result{RedirectURL: nav.LoginURL(nav.QuranicCalendarURL())}
	}
	if c.state != StateIdle && c.state != StateUnjoined {
		return Result{}
	}

	var res Result
	previous := c.state
	c.transition(StateSubmitting, func() State {
		if err := c.deps.Follows.FollowUser(ctx, c.deps.Token, Account); err != nil {
			observability.FromContext(ctx).Warn("calendar: follow failed", zap.Error(err))
			res.Toast = &Toast{Message: c.t("common:error.general"), Status: ToastError}
			return previous
		}
		res.Toast = &Toast{Message: c.t("quranic-calendar:join-quranic-calendar-success"), Status: ToastSuccess}
		return StateJoined
	})
	return res
}

// View renders the current state.
func (c *Control) View() View {
	joined := c.state == StateJoined
	label := c.t("common:subscribe")
	if joined {
		label = c.t("common:subscribed")
	}
	return View{
		State:    c.state,
		CTA:      c.t("quranic-calendar:join-quranic-calendar"),
		Label:    label,
		Joined:   joined,
		Disabled: joined || c.state == StateErrored,
		Loading:  c.loading,
	}
}

// transition enters busy, runs call and moves to the state it returns. The
// loading flag is released on every exit path, including panics.
func (c *Control) transition(busy State, call func() State) {
	c.state = busy
	c.loading = true
	defer func() { c.loading = false }()
	c.state = call()
}

func (c *Control) t(key string) string {
	if c.deps.Bundle == nil {
		return key
	}
	return c.deps.Bundle.T(c.deps.Lang, key)
}
