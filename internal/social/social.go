// Package social talks to the follow API of the auth service.
package social

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"strings"
	"sync"

	"finitefield.org/quran-web/internal/backend"
)

var (
	// ErrNotAuthenticated is returned when a call is made without a user token.
	ErrNotAuthenticated = errors.New("social: not authenticated")
	// ErrInvalidAccount is returned for an empty account name.
	ErrInvalidAccount = errors.New("social: invalid account")
)

// FollowStatus reports whether the viewer follows an account.
type FollowStatus struct {
	Followed bool `json:"isFollowed"`
}

// Service checks and creates follow relations for the authenticated user
// identified by token.
type Service interface {
	IsUserFollowed(ctx context.Context, token, account string) (FollowStatus, error)
	FollowUser(ctx context.Context, token, account string) error
}

// HTTPService implements Service against the auth API.
type HTTPService struct {
	client *backend.Client
}

// NewHTTPService wraps client.
func NewHTTPService(client *backend.Client) *HTTPService {
	return &HTTPService{client: client}
}

// IsUserFollowed implements Service.
func (s *HTTPService) IsUserFollowed(ctx context.Context, token, account string) (FollowStatus, error) {
	if err := validate(token, account); err != nil {
		return FollowStatus{}, err
	}
	var status FollowStatus
	if err := s.client.GetJSON(ctx, accountPath(account)+"/is-followed", token, &status); err != nil {
		return FollowStatus{}, fmt.Errorf("social: is followed %q: %w", account, err)
	}
	return status, nil
}

// FollowUser implements Service.
func (s *HTTPService) FollowUser(ctx context.Context, token, account string) error {
	if err := validate(token, account); err != nil {
		return err
	}
	var resp struct {
		Success *bool `json:"success"`
	}
	if err := s.client.PostJSON(ctx, accountPath(account)+"/follow", token, struct{}{}, &resp); err != nil {
		return fmt.Errorf("social: follow %q: %w", account, err)
	}
	if resp.Success != nil && !*resp.Success {
		return fmt.Errorf("social: follow %q: rejected", account)
	}
	return nil
}

func accountPath(account string) string {
	return "users/" + url.PathEscape(strings.TrimSpace(account))
}

func validate(token, account string) error {
	if strings.TrimSpace(token) == "" {
		return ErrNotAuthenticated
	}
	if strings.TrimSpace(account) == "" {
		return ErrInvalidAccount
	}
	return nil
}

// StaticService keeps follow relations in memory, keyed by token.
type StaticService struct {
	mu      sync.Mutex
	follows map[string]map[string]bool
}

// NewStaticService returns an empty in-memory service.
func NewStaticService() *StaticService {
	return &StaticService{follows: map[string]map[string]bool{}}
}

// IsUserFollowed implements Service.
func (s *StaticService) IsUserFollowed(ctx context.Context, token, account string) (FollowStatus, error) {
	if err := ctx.Err(); err != nil {
		return FollowStatus{}, err
	}
	if err := validate(token, account); err != nil {
		return FollowStatus{}, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	return FollowStatus{Followed: s.follows[token][account]}, nil
}

// FollowUser implements Service.
func (s *StaticService) FollowUser(ctx context.Context, token, account string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if err := validate(token, account); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.follows[token] == nil {
		s.follows[token] = map[string]bool{}
	}
	s.follows[token][account] = true
	return nil
}
