package nav

import (
	"net/url"
	"strconv"
	"strings"
)

// Item represents a top-level navigation item.
type Item struct {
	Path     string // e.g. "/learning-plans"
	LabelKey string // i18n key, e.g. "common:nav.learning-plans"
}

// RenderedItem is a view model for templates.
type RenderedItem struct {
	Href     string
	LabelKey string
	Active   bool
}

// Main is the primary navigation definition.
var Main = []Item{
	{Path: "/", LabelKey: "common:nav.read"},
	{Path: CoursesURL(), LabelKey: "common:nav.learning-plans"},
	{Path: QuranicCalendarURL(), LabelKey: "common:nav.calendar"},
}

// Build renders navigation items with active state given the current path.
func Build(currentPath string) []RenderedItem {
	if currentPath == "" {
		currentPath = "/"
	}
	items := make([]RenderedItem, 0, len(Main))
	for _, it := range Main {
		items = append(items, RenderedItem{
			Href:     it.Path,
			LabelKey: it.LabelKey,
			Active:   isActive(it.Path, currentPath),
		})
	}
	return items
}

func isActive(itemPath, currentPath string) bool {
	if itemPath == "/" {
		return currentPath == "/"
	}
	// exact or prefix boundary: "/calendar" or "/calendar/..."
	return currentPath == itemPath || strings.HasPrefix(currentPath, itemPath+"/")
}

// CoursesURL is the learning plan catalog.
func CoursesURL() string { return "/learning-plans" }

// MyCoursesURL lists the learning plans the viewer has started.
func MyCoursesURL() string { return "/my-learning-plans" }

// CourseURL is the landing page of a single learning plan.
func CourseURL(slug string) string {
	return CoursesURL() + "/" + url.PathEscape(slug)
}

// LessonURL points at a lesson inside a learning plan.
func LessonURL(courseSlug, lessonSlug string) string {
	return CourseURL(courseSlug) + "/lessons/" + url.PathEscape(lessonSlug)
}

// QuranicCalendarURL is the calendar landing page.
func QuranicCalendarURL() string { return "/calendar" }

// LoginURL sends the viewer to the login flow and back to redirectTo afterwards.
func LoginURL(redirectTo string) string {
	if redirectTo == "" {
		return "/login"
	}
	return "/login?" + url.Values{"r": {redirectTo}}.Encode()
}

// JuzURL is the reading page of a Juz.
func JuzURL(juzID string) string { return "/juz/" + juzID }

// ChapterVerseURL opens chapterID at verseKey.
func ChapterVerseURL(chapterID int, verseKey string) string {
	return "/" + strconv.Itoa(chapterID) + "/" + verseKey
}

// TrackedURL routes a navigation through the click logger before reaching target.
func TrackedURL(event, target string) string {
	return "/events/click?" + url.Values{"name": {event}, "to": {target}}.Encode()
}

// SafeRedirect returns target when it is a local absolute path, otherwise fallback.
// It guards redirect parameters against open redirects.
func SafeRedirect(target, fallback string) string {
	target = strings.TrimSpace(target)
	if target == "" || !strings.HasPrefix(target, "/") || strings.HasPrefix(target, "//") || strings.HasPrefix(target, "/\\") {
		return fallback
	}
	u, err := url.Parse(target)
	if err != nil || u.IsAbs() || u.Host != "" {
		return fallback
	}
	return target
}
