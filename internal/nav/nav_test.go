package nav

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestBuildMarksActiveSection(t *testing.T) {
	items := Build("/learning-plans/tafsir-101")
	require.Len(t, items, len(Main))
	active := map[string]bool{}
	for _, it := range items {
		active[it.Href] = it.Active
	}
	require.True(t, active["/learning-plans"])
	require.False(t, active["/"], "home only matches the root path")
	require.False(t, active["/calendar"])

	require.True(t, Build("")[0].Active)
}

func TestURLBuilders(t *testing.T) {
	require.Equal(t, "/learning-plans", CoursesURL())
	require.Equal(t, "/learning-plans/tafsir-101", CourseURL("tafsir-101"))
	require.Equal(t, "/learning-plans/tafsir-101/lessons/day-2", LessonURL("tafsir-101", "day-2"))
	require.Equal(t, "/login?r=%2Fcalendar", LoginURL(QuranicCalendarURL()))
	require.Equal(t, "/login", LoginURL(""))
	require.Equal(t, "/juz/30", JuzURL("30"))
	require.Equal(t, "/2/2:142", ChapterVerseURL(2, "2:142"))
	require.Equal(t, "/events/click?name=all_courses_link&to=%2Flearning-plans", TrackedURL("all_courses_link", "/learning-plans"))
}

func TestSafeRedirect(t *testing.T) {
	cases := map[string]string{
		"/calendar":            "/calendar",
		"/learning-plans?x=1":  "/learning-plans?x=1",
		"https://evil.example": "/",
		"//evil.example/path":  "/",
		"/\\evil.example":      "/",
		"relative/path":        "/",
		"":                     "/",
	}
	for in, want := range cases {
		require.Equal(t, want, SafeRedirect(in, "/"), in)
	}
}
