package httpserver_test

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/PuerkitoBio/goquery"
	"github.com/stretchr/testify/require"

	"finitefield.org/quran-web/internal/analytics"
	"finitefield.org/quran-web/internal/auth"
	"finitefield.org/quran-web/internal/courses"
	"finitefield.org/quran-web/internal/quran"
	"finitefield.org/quran-web/internal/social"
	"finitefield.org/quran-web/internal/testutil"
)

func readDoc(t *testing.T, resp *http.Response) *goquery.Document {
	t.Helper()
	defer resp.Body.Close()
	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	return testutil.ParseHTML(t, body)
}

func TestHealthzAndStatic(t *testing.T) {
	t.Parallel()
	c := testutil.NewClient(t, testutil.NewServer(t))

	resp := c.Get("/healthz", false)
	body, err := io.ReadAll(resp.Body)
	resp.Body.Close()
	require.NoError(t, err)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	require.Equal(t, "ok", string(body))

	resp = c.Get("/public/static/css/app.css", false)
	resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)
	require.Contains(t, resp.Header.Get("Cache-Control"), "max-age")
}

func TestNotFoundPage(t *testing.T) {
	t.Parallel()
	c := testutil.NewClient(t, testutil.NewServer(t))

	resp := c.Get("/no/such/page", false)
	require.Equal(t, http.StatusNotFound, resp.StatusCode)
	doc := readDoc(t, resp)
	require.Equal(t, "The page you are looking for does not exist.", strings.TrimSpace(doc.Find(".error-page p").First().Text()))
}

func TestHomeRendersPlaceholderOnly(t *testing.T) {
	t.Parallel()
	c := testutil.NewClient(t, testutil.NewServer(t))

	resp := c.Get("/", false)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	doc := readDoc(t, resp)

	placeholder := doc.Find("#juz-grid")
	require.Equal(t, 1, placeholder.Length())
	require.Equal(t, "/juz-grid", placeholder.AttrOr("hx-get", ""))
	require.Equal(t, "load", placeholder.AttrOr("hx-trigger", ""))
	require.Equal(t, "#juz-index:replace", placeholder.AttrOr("hx-sync", ""))
	require.Zero(t, doc.Find(".juz-card").Length(), "no rows before the mapping is loaded")
	require.Equal(t, "Browse by Juz | Quran Web", doc.Find("title").Text())
	require.Equal(t, "/", doc.Find(".topbar__nav a.is-active").AttrOr("href", ""))

	resp = c.Get("/?sort=desc", false)
	doc = readDoc(t, resp)
	require.Equal(t, "/juz-grid?desc=1", doc.Find("#juz-grid").AttrOr("hx-get", ""))
	require.Equal(t, "/?sort=desc", doc.Find(".sort-toggle a.is-active").AttrOr("href", ""))
}

func TestJuzGridRequiresHTMX(t *testing.T) {
	t.Parallel()
	c := testutil.NewClient(t, testutil.NewServer(t))

	resp := c.Get("/juz-grid", false)
	resp.Body.Close()
	require.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestJuzGridAscending(t *testing.T) {
	t.Parallel()
	c := testutil.NewClient(t, testutil.NewServer(t))

	resp := c.Get("/juz-grid?cols=3", true)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	doc := readDoc(t, resp)

	cards := doc.Find(".juz-card")
	require.Equal(t, 12, cards.Length())
	require.Equal(t, "1", cards.First().AttrOr("data-juz", ""))

	margins := []string{}
	cards.Slice(0, 3).Each(func(_ int, s *goquery.Selection) {
		margins = append(margins, s.AttrOr("style", ""))
	})
	require.Equal(t, []string{"margin-right: 16px", "margin-right: 16px", "margin-right: 0px"}, margins)

	first := cards.First()
	require.Equal(t, "/juz/1", first.Find(".juz-card__title").AttrOr("href", ""))
	require.Contains(t, first.Find(".juz-card__title").Text(), "Juz 1")
	require.Contains(t, first.Find(".juz-card__title").Text(), "Read Juz")

	chapters := first.Find(".chapter")
	require.Equal(t, 2, chapters.Length())
	require.Equal(t, "/1/1:1", chapters.Eq(0).AttrOr("href", ""))
	require.Equal(t, "/2/2:1", chapters.Eq(1).AttrOr("href", ""))
	require.Equal(t, "Al-Baqarah", strings.TrimSpace(chapters.Eq(1).Find(".chapter__name").Text()))
	require.Equal(t, "286 Ayahs", strings.TrimSpace(chapters.Eq(1).Find(".chapter__verses").Text()))
	require.Equal(t, 1, chapters.Eq(1).Find(".chapter__translated").Length())

	more := doc.Find(".juz-grid__more")
	require.Equal(t, "/juz-grid?cols=3&offset=12", more.AttrOr("hx-get", ""))
	require.Equal(t, "revealed", more.AttrOr("hx-trigger", ""))
}

func TestJuzGridDescendingLastWindow(t *testing.T) {
	t.Parallel()
	c := testutil.NewClient(t, testutil.NewServer(t))

	doc := readDoc(t, c.Get("/juz-grid?desc=1&cols=2", true))
	require.Equal(t, "30", doc.Find(".juz-card").First().AttrOr("data-juz", ""))

	doc = readDoc(t, c.Get("/juz-grid?desc=1&cols=2&offset=24", true))
	cards := doc.Find(".juz-card")
	require.Equal(t, 6, cards.Length())
	require.Equal(t, "1", cards.Last().AttrOr("data-juz", ""))
	require.Zero(t, doc.Find("#juz-grid").Length(), "later windows are appended without the container")
	require.Zero(t, doc.Find(".juz-grid__more").Length())
}

func TestJuzGridSingleColumnHasNoMargin(t *testing.T) {
	t.Parallel()
	c := testutil.NewClient(t, testutil.NewServer(t))

	doc := readDoc(t, c.Get("/juz-grid?cols=1", true))
	doc.Find(".juz-card").Each(func(_ int, s *goquery.Selection) {
		require.Equal(t, "margin-right: 0px", s.AttrOr("style", ""))
	})
}

func TestJuzGridMinimalLayoutForArabic(t *testing.T) {
	t.Parallel()
	c := testutil.NewClient(t, testutil.NewServer(t))

	doc := readDoc(t, c.Get("/?hl=ar", false))
	require.Equal(t, "rtl", doc.Find("html").AttrOr("dir", ""))

	doc = readDoc(t, c.Get("/juz-grid?cols=1", true))
	require.Greater(t, doc.Find(".chapter--minimal").Length(), 0)
	require.Zero(t, doc.Find(".chapter__translated").Length())
}

type staticSource struct {
	mapping quran.JuzMapping
	err     error
}

func (s staticSource) AllJuzMappings(context.Context) (quran.JuzMapping, error) {
	return s.mapping, s.err
}

func TestJuzGridUpstreamFailure(t *testing.T) {
	t.Parallel()
	ts := testutil.NewServer(t, testutil.WithJuzSource(staticSource{err: errors.New("content api down")}))
	c := testutil.NewClient(t, ts)

	resp := c.Get("/juz-grid", true)
	defer resp.Body.Close()
	require.Equal(t, http.StatusBadGateway, resp.StatusCode)

	var payload struct {
		Error     string `json:"error"`
		RequestID string `json:"requestId"`
	}
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&payload))
	require.Equal(t, "We could not load this content. Please refresh the page.", payload.Error)
	require.NotEmpty(t, payload.RequestID)
}

func TestJuzGridUnknownChapterIsServerError(t *testing.T) {
	t.Parallel()
	mapping := quran.JuzMapping{{ID: "1", Number: 1, Chapters: []quran.ChapterStart{{ChapterID: 999, VerseKey: "999:1"}}}}
	c := testutil.NewClient(t, testutil.NewServer(t, testutil.WithJuzSource(staticSource{mapping: mapping})))

	resp := c.Get("/juz-grid", true)
	resp.Body.Close()
	require.Equal(t, http.StatusInternalServerError, resp.StatusCode)
}

func TestJuzGridEmptyMapping(t *testing.T) {
	t.Parallel()
	c := testutil.NewClient(t, testutil.NewServer(t, testutil.WithJuzSource(staticSource{})))

	resp := c.Get("/juz-grid", true)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	doc := readDoc(t, resp)
	require.Equal(t, 1, doc.Find("#juz-grid.juz-grid--empty").Length())
	require.Zero(t, doc.Find(".juz-card").Length())
	require.Empty(t, doc.Find("#juz-grid").AttrOr("hx-get", ""))
}

func TestCatalogPadsWithPlaceholders(t *testing.T) {
	t.Parallel()
	c := testutil.NewClient(t, testutil.NewServer(t))

	resp := c.Get("/learning-plans", false)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	doc := readDoc(t, resp)

	require.Equal(t, 3, doc.Find("article.card").Length())
	placeholders := doc.Find(".card--placeholder")
	require.Equal(t, 3, placeholders.Length())
	require.Equal(t, "Coming soon", strings.TrimSpace(placeholders.First().Text()))
	require.Zero(t, placeholders.Find("a").Length())
	require.Zero(t, doc.Find(".courses__all").Length())

	href := doc.Find("article.card .card__link").First().AttrOr("href", "")
	require.True(t, strings.HasPrefix(href, "/events/click?name=course_card_link&to=%2Flearning-plans%2F"), href)
	require.Equal(t, "Learning Plans", strings.TrimSpace(doc.Find("h1").Text()))
}

func TestMyCoursesRequiresLogin(t *testing.T) {
	t.Parallel()
	c := testutil.NewClient(t, testutil.NewServer(t))

	resp := c.Get("/my-learning-plans", false)
	resp.Body.Close()
	require.Equal(t, http.StatusSeeOther, resp.StatusCode)
	require.Equal(t, "/login?r=%2Fmy-learning-plans", resp.Header.Get("Location"))
}

func TestMyCoursesEmptyState(t *testing.T) {
	t.Parallel()
	c := testutil.NewClient(t, testutil.NewServer(t))
	c.Login("reader")

	doc := readDoc(t, c.Get("/my-learning-plans", false))
	empty := doc.Find(".courses__empty")
	require.Equal(t, 1, empty.Length())
	require.Equal(t, "/events/click?name=user_no_courses_link&to=%2Flearning-plans", empty.Find("a").AttrOr("href", ""))
	require.Zero(t, doc.Find(".card").Length())
	require.Zero(t, doc.Find(".courses__all").Length())
}

func TestMyCoursesListsEnrolledPlans(t *testing.T) {
	t.Parallel()
	svc := courses.NewStaticService([]courses.Course{
		{ID: "1", Slug: "al-mulk", Title: "Al-Mulk", IsCompleted: true},
		{ID: "2", Slug: "al-kahf", Title: "Al-Kahf", ContinueFromLesson: "day-2"},
	})
	svc.Enroll("debug:reader", "al-mulk")
	svc.Enroll("debug:reader", "al-kahf")
	c := testutil.NewClient(t, testutil.NewServer(t, testutil.WithCoursesService(svc)))
	c.Login("reader")

	doc := readDoc(t, c.Get("/my-learning-plans", false))
	cards := doc.Find("article.card")
	require.Equal(t, 2, cards.Length())
	require.Zero(t, doc.Find(".card--placeholder").Length())
	require.Equal(t, "Completed", strings.TrimSpace(cards.Eq(0).Find(".pill").Text()))
	require.Zero(t, cards.Eq(1).Find(".pill").Length())
	require.Equal(t, "/events/click?name=course_card_link&to=%2Flearning-plans%2Fal-kahf%2Flessons%2Fday-2", cards.Eq(1).Find("a").AttrOr("href", ""))
	require.Equal(t, "/events/click?name=all_courses_link&to=%2Flearning-plans", doc.Find(".courses__all a").AttrOr("href", ""))
}

type failingCourses struct{}

func (failingCourses) ListCourses(context.Context, string) ([]courses.Course, error) {
	return nil, errors.New("content api down")
}

func (failingCourses) ListMyCourses(context.Context, string) ([]courses.Course, error) {
	return nil, errors.New("content api down")
}

func TestCatalogUpstreamFailure(t *testing.T) {
	t.Parallel()
	c := testutil.NewClient(t, testutil.NewServer(t, testutil.WithCoursesService(failingCourses{})))

	resp := c.Get("/learning-plans", false)
	require.Equal(t, http.StatusBadGateway, resp.StatusCode)
	doc := readDoc(t, resp)
	require.Equal(t, 1, doc.Find(".error-page").Length())
	require.NotEmpty(t, doc.Find(".error-page__ref code").Text())
}

func TestClickLogsAndRedirects(t *testing.T) {
	t.Parallel()
	rec := &analytics.Recorder{}
	c := testutil.NewClient(t, testutil.NewServer(t, testutil.WithAnalytics(rec)))

	resp := c.Get("/events/click?name=all_courses_link&to=%2Flearning-plans", false)
	resp.Body.Close()
	require.Equal(t, http.StatusSeeOther, resp.StatusCode)
	require.Equal(t, "/learning-plans", resp.Header.Get("Location"))
	require.Equal(t, []string{"all_courses_link"}, rec.Events())

	resp = c.Get("/events/click?name=Bad%20Name&to=https%3A%2F%2Fevil.example", false)
	resp.Body.Close()
	require.Equal(t, "/", resp.Header.Get("Location"))
	require.Len(t, rec.Events(), 1)
}

func TestCalendarAnonymous(t *testing.T) {
	t.Parallel()
	rec := &analytics.Recorder{}
	c := testutil.NewClient(t, testutil.NewServer(t, testutil.WithAnalytics(rec)))

	doc := readDoc(t, c.Get("/calendar", false))
	button := doc.Find("#calendar-join button")
	require.Equal(t, "Subscribe", strings.TrimSpace(button.Find(".button__label").Text()))
	_, disabled := button.Attr("disabled")
	require.False(t, disabled)
	require.Equal(t, "idle", doc.Find("#calendar-join").AttrOr("data-state", ""))

	resp := c.PostForm("/calendar/join", nil, true)
	resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)
	require.Equal(t, "/login?r=%2Fcalendar", resp.Header.Get("HX-Redirect"))
	require.Empty(t, resp.Header.Get("HX-Trigger"))

	resp = c.PostForm("/calendar/join", nil, false)
	resp.Body.Close()
	require.Equal(t, http.StatusSeeOther, resp.StatusCode)
	require.Equal(t, "/login?r=%2Fcalendar", resp.Header.Get("Location"))

	require.Equal(t, []string{"join_quranic_calendar", "join_quranic_calendar"}, rec.Events())
}

func TestCalendarJoinFlow(t *testing.T) {
	t.Parallel()
	rec := &analytics.Recorder{}
	c := testutil.NewClient(t, testutil.NewServer(t, testutil.WithAnalytics(rec)))
	c.Login("reader")

	doc := readDoc(t, c.Get("/calendar", false))
	require.Equal(t, "unjoined", doc.Find("#calendar-join").AttrOr("data-state", ""))

	resp := c.PostForm("/calendar/join", nil, true)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	require.JSONEq(t, `{"showToast":{"message":"You have joined the Quranic Calendar.","status":"success"}}`, resp.Header.Get("HX-Trigger"))
	doc = readDoc(t, resp)
	button := doc.Find("#calendar-join button")
	require.Equal(t, "Subscribed", strings.TrimSpace(button.Find(".button__label").Text()))
	_, disabled := button.Attr("disabled")
	require.True(t, disabled)

	doc = readDoc(t, c.Get("/calendar", false))
	require.Equal(t, "joined", doc.Find("#calendar-join").AttrOr("data-state", ""))
	_, disabled = doc.Find("#calendar-join button").Attr("disabled")
	require.True(t, disabled)
	require.Equal(t, []string{"join_quranic_calendar"}, rec.Events())
}

type flakyFollows struct {
	statusErr error
	followErr error
}

func (f flakyFollows) IsUserFollowed(context.Context, string, string) (social.FollowStatus, error) {
	return social.FollowStatus{}, f.statusErr
}

func (f flakyFollows) FollowUser(context.Context, string, string) error {
	return f.followErr
}

func TestCalendarJoinFailureShowsErrorToast(t *testing.T) {
	t.Parallel()
	c := testutil.NewClient(t, testutil.NewServer(t, testutil.WithFollowService(flakyFollows{followErr: errors.New("boom")})))
	c.Login("reader")

	resp := c.PostForm("/calendar/join", nil, true)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	require.JSONEq(t, `{"showToast":{"message":"Something went wrong. Please try again.","status":"error"}}`, resp.Header.Get("HX-Trigger"))
	doc := readDoc(t, resp)
	button := doc.Find("#calendar-join button")
	_, disabled := button.Attr("disabled")
	require.False(t, disabled)
	require.Equal(t, "Subscribe", strings.TrimSpace(button.Find(".button__label").Text()))
}

func TestCalendarFormPostCarriesToastAcrossRedirect(t *testing.T) {
	t.Parallel()
	c := testutil.NewClient(t, testutil.NewServer(t))
	c.Login("reader")

	resp := c.PostForm("/calendar/join", nil, false)
	resp.Body.Close()
	require.Equal(t, http.StatusSeeOther, resp.StatusCode)
	require.Equal(t, "/calendar", resp.Header.Get("Location"))

	doc := readDoc(t, c.Get("/calendar", false))
	toast := doc.Find("#toasts .toast")
	require.Equal(t, 1, toast.Length())
	require.True(t, toast.HasClass("toast--success"))
	require.Equal(t, "You have joined the Quranic Calendar.", strings.TrimSpace(toast.Text()))
	require.Equal(t, "joined", doc.Find("#calendar-join").AttrOr("data-state", ""))

	doc = readDoc(t, c.Get("/calendar", false))
	require.Zero(t, doc.Find("#toasts .toast").Length(), "flash is shown once")
}

func TestCalendarFormPostFailureShowsErrorOnce(t *testing.T) {
	t.Parallel()
	c := testutil.NewClient(t, testutil.NewServer(t, testutil.WithFollowService(flakyFollows{followErr: errors.New("boom")})))
	c.Login("reader")

	resp := c.PostForm("/calendar/join", nil, false)
	resp.Body.Close()
	require.Equal(t, http.StatusSeeOther, resp.StatusCode)
	require.Empty(t, resp.Header.Get("HX-Trigger"))

	doc := readDoc(t, c.Get("/calendar", false))
	toast := doc.Find("#toasts .toast")
	require.Equal(t, 1, toast.Length())
	require.True(t, toast.HasClass("toast--error"))
	require.Equal(t, "Something went wrong. Please try again.", strings.TrimSpace(toast.Text()))
	_, disabled := doc.Find("#calendar-join button").Attr("disabled")
	require.False(t, disabled)

	doc = readDoc(t, c.Get("/calendar", false))
	require.Zero(t, doc.Find("#toasts .toast").Length())
}

func TestExpiredTokenEndsSession(t *testing.T) {
	t.Parallel()
	var mu sync.Mutex
	now := time.Now()
	clock := func() time.Time {
		mu.Lock()
		defer mu.Unlock()
		return now
	}
	c := testutil.NewClient(t, testutil.NewServer(t, testutil.WithClock(clock)))
	c.Login("reader")

	doc := readDoc(t, c.Get("/calendar", false))
	require.Equal(t, "unjoined", doc.Find("#calendar-join").AttrOr("data-state", ""))

	mu.Lock()
	now = now.Add(auth.DebugTokenTTL + time.Minute)
	mu.Unlock()

	doc = readDoc(t, c.Get("/calendar", false))
	require.Equal(t, "idle", doc.Find("#calendar-join").AttrOr("data-state", ""))
	_, disabled := doc.Find("#calendar-join button").Attr("disabled")
	require.False(t, disabled)

	resp := c.PostForm("/calendar/join", nil, true)
	resp.Body.Close()
	require.Equal(t, "/login?r=%2Fcalendar", resp.Header.Get("HX-Redirect"))

	resp = c.Get("/my-learning-plans", false)
	resp.Body.Close()
	require.Equal(t, http.StatusSeeOther, resp.StatusCode)
}

func TestCalendarStatusFailureDisablesButton(t *testing.T) {
	t.Parallel()
	c := testutil.NewClient(t, testutil.NewServer(t, testutil.WithFollowService(flakyFollows{statusErr: errors.New("boom")})))
	c.Login("reader")

	resp := c.Get("/calendar", false)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	doc := readDoc(t, resp)
	require.Equal(t, "errored", doc.Find("#calendar-join").AttrOr("data-state", ""))
	_, disabled := doc.Find("#calendar-join button").Attr("disabled")
	require.True(t, disabled)
	require.Empty(t, resp.Header.Get("HX-Trigger"))
}

func TestLoginRejectsInvalidToken(t *testing.T) {
	t.Parallel()
	c := testutil.NewClient(t, testutil.NewServer(t))

	resp := c.PostForm("/login", url.Values{"id_token": {"forged"}, "r": {"/calendar"}}, false)
	require.Equal(t, http.StatusUnauthorized, resp.StatusCode)
	doc := readDoc(t, resp)
	require.Equal(t, 1, doc.Find(".login__error").Length())
	require.Equal(t, "/calendar", doc.Find(`input[name="r"]`).AttrOr("value", ""))
}

func TestLoginRedirectsToLocalPathsOnly(t *testing.T) {
	t.Parallel()
	c := testutil.NewClient(t, testutil.NewServer(t))

	resp := c.PostForm("/login", url.Values{"id_token": {"debug:reader"}, "r": {"//evil.example/steal"}}, false)
	resp.Body.Close()
	require.Equal(t, http.StatusSeeOther, resp.StatusCode)
	require.Equal(t, "/", resp.Header.Get("Location"))

	resp = c.Get("/login?r=%2Fcalendar", false)
	resp.Body.Close()
	require.Equal(t, http.StatusSeeOther, resp.StatusCode)
	require.Equal(t, "/calendar", resp.Header.Get("Location"))

	resp = c.PostForm("/logout", nil, false)
	resp.Body.Close()
	require.Equal(t, http.StatusSeeOther, resp.StatusCode)

	resp = c.Get("/my-learning-plans", false)
	resp.Body.Close()
	require.Equal(t, http.StatusSeeOther, resp.StatusCode)
}

func TestMutationsRequireCSRFToken(t *testing.T) {
	t.Parallel()
	ts := testutil.NewServer(t)

	req, err := http.NewRequest(http.MethodPost, ts.URL+"/calendar/join", nil)
	require.NoError(t, err)
	req.Header.Set("HX-Request", "true")
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	resp.Body.Close()
	require.Equal(t, http.StatusForbidden, resp.StatusCode)
}
