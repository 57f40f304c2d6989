// Package analytics records button click events.
package analytics

import (
	"context"
	"strings"
	"sync"

	"go.uber.org/zap"

	"finitefield.org/quran-web/internal/observability"
)

// Event names emitted by the views.
const (
	EventUserNoCoursesLink   = "user_no_courses_link"
	EventAllCoursesLink      = "all_courses_link"
	EventCourseCardLink      = "course_card_link"
	EventJoinQuranicCalendar = "join_quranic_calendar"
)

// Logger records a named click. Implementations must not block the caller and
// never report failures.
type Logger interface {
	LogButtonClick(ctx context.Context, name string)
}

// ZapLogger writes clicks to the request logger.
type ZapLogger struct{}

// LogButtonClick implements Logger.
func (ZapLogger) LogButtonClick(ctx context.Context, name string) {
	observability.FromContext(ctx).Info("button click", zap.String("event", strings.TrimSpace(name)))
}

// Multi fans a click out to every logger.
type Multi []Logger

// LogButtonClick implements Logger.
func (m Multi) LogButtonClick(ctx context.Context, name string) {
	for _, l := range m {
		if l != nil {
			l.LogButtonClick(ctx, name)
		}
	}
}

// Recorder keeps clicks in memory.
type Recorder struct {
	mu     sync.Mutex
	events []string
}

// LogButtonClick implements Logger.
func (r *Recorder) LogButtonClick(_ context.Context, name string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, name)
}

// Events returns the recorded names in call order.
func (r *Recorder) Events() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]string(nil), r.events...)
}

// Reset clears recorded events.
func (r *Recorder) Reset() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = nil
}
