// Package courses lists learning plans and builds the course card grid.
package courses

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"

	"finitefield.org/quran-web/internal/backend"
)

// Course is a learning plan as returned by the content API.
type Course struct {
	ID                 string `json:"id"`
	Slug               string `json:"slug"`
	Title              string `json:"title"`
	Summary            string `json:"description,omitempty"`
	IsCompleted        bool   `json:"isCompleted,omitempty"`
	ContinueFromLesson string `json:"continueFromLesson,omitempty"`
	Thumbnail          string `json:"thumbnail,omitempty"`
}

// Service fetches learning plans. ListMyCourses returns the plans the user
// identified by token has enrolled in.
type Service interface {
	ListCourses(ctx context.Context, token string) ([]Course, error)
	ListMyCourses(ctx context.Context, token string) ([]Course, error)
}

// HTTPService implements Service against the content API.
type HTTPService struct {
	client *backend.Client
}

// NewHTTPService wraps client.
func NewHTTPService(client *backend.Client) *HTTPService {
	return &HTTPService{client: client}
}

// ListCourses implements Service.
func (s *HTTPService) ListCourses(ctx context.Context, token string) ([]Course, error) {
	return s.list(ctx, "courses", token)
}

// ListMyCourses implements Service.
func (s *HTTPService) ListMyCourses(ctx context.Context, token string) ([]Course, error) {
	return s.list(ctx, "courses?myCourses=true", token)
}

func (s *HTTPService) list(ctx context.Context, endpoint, token string) ([]Course, error) {
	var raw json.RawMessage
	if err := s.client.GetJSON(ctx, endpoint, token, &raw); err != nil {
		return nil, fmt.Errorf("courses: list: %w", err)
	}
	var list []Course
	if err := json.Unmarshal(raw, &list); err == nil {
		return list, nil
	}
	var envelope struct {
		Data []Course `json:"data"`
	}
	if err := json.Unmarshal(raw, &envelope); err != nil {
		return nil, fmt.Errorf("courses: decode list: %w", err)
	}
	return envelope.Data, nil
}

// StaticService serves a fixed catalog. Enrolments are kept in memory per token.
type StaticService struct {
	catalog []Course

	mu       sync.Mutex
	enrolled map[string][]string
}

// NewStaticService returns a service serving catalog.
func NewStaticService(catalog []Course) *StaticService {
	return &StaticService{catalog: append([]Course(nil), catalog...), enrolled: map[string][]string{}}
}

// DefaultCatalog is the catalog served when no content API is configured.
func DefaultCatalog() []Course {
	return []Course{
		{ID: "1", Slug: "the-rescuer-powerful-lessons-in-surah-al-mulk", Title: "The Rescuer: Powerful Lessons in Surah Al-Mulk", Summary: "Seven days with **Surah Al-Mulk**, the surah that intercedes for its companion."},
		{ID: "2", Slug: "lessons-from-surah-al-kahf", Title: "Lessons from Surah Al-Kahf", Summary: "Four stories and the trials they guard against."},
		{ID: "3", Slug: "understanding-ayat-al-kursi", Title: "Understanding Ayat al-Kursi", Summary: "A verse by verse reflection on the greatest verse of the Quran."},
	}
}

// Enroll records that token started slug.
func (s *StaticService) Enroll(token, slug string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, existing := range s.enrolled[token] {
		if existing == slug {
			return
		}
	}
	s.enrolled[token] = append(s.enrolled[token], slug)
}

// ListCourses implements Service.
func (s *StaticService) ListCourses(ctx context.Context, _ string) ([]Course, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return append([]Course(nil), s.catalog...), nil
}

// ListMyCourses implements Service.
func (s *StaticService) ListMyCourses(ctx context.Context, token string) ([]Course, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.Lock()
	slugs := append([]string(nil), s.enrolled[token]...)
	s.mu.Unlock()

	out := make([]Course, 0, len(slugs))
	for _, slug := range slugs {
		for _, c := range s.catalog {
			if c.Slug == slug {
				out = append(out, c)
			}
		}
	}
	return out, nil
}
