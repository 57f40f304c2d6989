package courses

import (
	"context"
	"html/template"
	"strings"

	"finitefield.org/quran-web/internal/analytics"
	"finitefield.org/quran-web/internal/i18n"
	"finitefield.org/quran-web/internal/nav"
)

// MinCoursesCount is the number of cards the catalog always shows, padding
// with "coming soon" placeholders.
const MinCoursesCount = 6

// Translator resolves localized strings.
type Translator interface {
	T(lang, key string) string
	Markdown(lang, key string, vars map[string]string) template.HTML
}

// Card is a course card or a placeholder.
type Card struct {
	ID             string
	Title          string
	Href           string
	ImageURL       string
	ImageAlt       string
	Summary        template.HTML
	Completed      bool
	CompletedLabel string
	Placeholder    bool
}

// Link is a tracked navigation link.
type Link struct {
	Href  string
	Label string
}

// ListData is the render model of a course list.
type ListData struct {
	Personal     bool
	Empty        bool
	EmptyMessage template.HTML
	Cards        []Card
	AllCourses   *Link
}

// BuildList turns courses into cards. Personal lists show an empty state
// message when there is nothing to show and a link to the full catalog
// otherwise; the catalog is padded to MinCoursesCount cards.
func BuildList(list []Course, isMyCourses bool, bundle Translator, lang string) ListData {
	data := ListData{Personal: isMyCourses}
	if isMyCourses && len(list) == 0 {
		data.Empty = true
		data.EmptyMessage = bundle.Markdown(lang, "learn:empty-knowledge-boosters", map[string]string{
			"link": nav.TrackedURL(analytics.EventUserNoCoursesLink, nav.CoursesURL()),
		})
		return data
	}

	completed := bundle.T(lang, "learn:completed")
	data.Cards = make([]Card, 0, max(len(list), MinCoursesCount))
	for _, c := range list {
		card := Card{
			ID:        c.ID,
			Title:     c.Title,
			Href:      nav.TrackedURL(analytics.EventCourseCardLink, courseTarget(c)),
			ImageURL:  c.Thumbnail,
			ImageAlt:  c.Title,
			Completed: c.IsCompleted,
		}
		if c.IsCompleted {
			card.CompletedLabel = completed
		}
		if s := strings.TrimSpace(c.Summary); s != "" {
			card.Summary = i18n.RenderMarkdown(s)
		}
		data.Cards = append(data.Cards, card)
	}

	if n := PlaceholderCount(len(list), isMyCourses); n > 0 {
		comingSoon := bundle.T(lang, "learn:coming-soon")
		for i := 0; i < n; i++ {
			data.Cards = append(data.Cards, Card{Title: comingSoon, Placeholder: true})
		}
	}

	if isMyCourses {
		data.AllCourses = &Link{
			Href:  nav.TrackedURL(analytics.EventAllCoursesLink, nav.CoursesURL()),
			Label: bundle.T(lang, "learn:all-knowledge-boosters"),
		}
	}
	return data
}

// PlaceholderCount is the number of "coming soon" cards BuildList appends.
func PlaceholderCount(n int, isMyCourses bool) int {
	if isMyCourses {
		return 0
	}
	return max(0, MinCoursesCount-n)
}

func courseTarget(c Course) string {
	if c.ContinueFromLesson != "" {
		return nav.LessonURL(c.Slug, c.ContinueFromLesson)
	}
	return nav.CourseURL(c.Slug)
}

// Load fetches the catalog or, when personal, the viewer's plans.
func Load(ctx context.Context, svc Service, token string, isMyCourses bool) ([]Course, error) {
	if isMyCourses {
		return svc.ListMyCourses(ctx, token)
	}
	return svc.ListCourses(ctx, token)
}
