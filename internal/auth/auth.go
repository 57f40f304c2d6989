// Package auth verifies sign-in tokens exchanged for a session.
package auth

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	firebase "firebase.google.com/go/v4"
	firebaseauth "firebase.google.com/go/v4/auth"
)

const defaultVerifyTimeout = 5 * time.Second

// ErrUnauthorized is the root cause of every verification failure.
var ErrUnauthorized = errors.New("auth: unauthorized")

// Reason codes carried by AuthError.
const (
	ReasonMissingToken = "missing_token"
	ReasonTokenInvalid = "token_invalid"
	ReasonTokenExpired = "token_expired"
)

// AuthError contains the reason a token was rejected.
type AuthError struct {
	Reason string
	Err    error
}

func (e *AuthError) Error() string {
	if e.Err == nil {
		return e.Reason
	}
	return e.Reason + ": " + e.Err.Error()
}

func (e *AuthError) Unwrap() error { return e.Err }

// User is the identity stored in the session. Token is forwarded to the
// backend APIs as a bearer token and is only usable until Expires.
type User struct {
	UID     string
	Email   string
	Name    string
	Token   string
	Expires time.Time
}

// Verifier turns a sign-in token into a User.
type Verifier interface {
	Verify(ctx context.Context, token string) (User, error)
}

// TokenVerifier is the subset of the Firebase Admin SDK auth client used here.
type TokenVerifier interface {
	VerifyIDToken(ctx context.Context, idToken string) (*firebaseauth.Token, error)
}

// FirebaseVerifier validates Firebase ID tokens.
type FirebaseVerifier struct {
	tokens  TokenVerifier
	timeout time.Duration
}

// NewFirebaseVerifier initialises the Admin SDK for projectID.
func NewFirebaseVerifier(ctx context.Context, projectID string) (*FirebaseVerifier, error) {
	if strings.TrimSpace(projectID) == "" {
		return nil, errors.New("auth: firebase project id is required")
	}
	app, err := firebase.NewApp(ctx, &firebase.Config{ProjectID: projectID})
	if err != nil {
		return nil, fmt.Errorf("auth: initialise firebase app: %w", err)
	}
	client, err := app.Auth(ctx)
	if err != nil {
		return nil, fmt.Errorf("auth: initialise firebase auth client: %w", err)
	}
	return NewFirebaseVerifierWithClient(client), nil
}

// NewFirebaseVerifierWithClient wraps an existing token verifier.
func NewFirebaseVerifierWithClient(tokens TokenVerifier) *FirebaseVerifier {
	if tokens == nil {
		panic("auth: firebase token verifier is required")
	}
	return &FirebaseVerifier{tokens: tokens, timeout: defaultVerifyTimeout}
}

// Verify implements Verifier.
func (v *FirebaseVerifier) Verify(ctx context.Context, token string) (User, error) {
	token = strings.TrimSpace(token)
	if token == "" {
		return User{}, &AuthError{Reason: ReasonMissingToken, Err: ErrUnauthorized}
	}

	ctx, cancel := context.WithTimeout(ctx, v.timeout)
	defer cancel()

	verified, err := v.tokens.VerifyIDToken(ctx, token)
	if err != nil {
		if firebaseauth.IsIDTokenExpired(err) {
			return User{}, &AuthError{Reason: ReasonTokenExpired, Err: err}
		}
		return User{}, &AuthError{Reason: ReasonTokenInvalid, Err: err}
	}
	return User{
		UID:     verified.UID,
		Email:   claimString(verified.Claims["email"]),
		Name:    claimString(verified.Claims["name"]),
		Token:   token,
		Expires: time.Unix(verified.Expires, 0).UTC(),
	}, nil
}

// DebugVerifier accepts tokens of the form "debug:<uid>". It is only wired
// outside production.
type DebugVerifier struct{}

const (
	debugPrefix = "debug:"
	// DebugTokenTTL matches the lifetime of a Firebase ID token.
	DebugTokenTTL = time.Hour
)

// Verify implements Verifier.
func (DebugVerifier) Verify(_ context.Context, token string) (User, error) {
	token = strings.TrimSpace(token)
	if token == "" {
		return User{}, &AuthError{Reason: ReasonMissingToken, Err: ErrUnauthorized}
	}
	uid := strings.TrimSpace(strings.TrimPrefix(token, debugPrefix))
	if !strings.HasPrefix(token, debugPrefix) || uid == "" {
		return User{}, &AuthError{Reason: ReasonTokenInvalid, Err: ErrUnauthorized}
	}
	return User{UID: uid, Name: uid, Token: token, Expires: time.Now().Add(DebugTokenTTL).UTC()}, nil
}

func claimString(value any) string {
	if s, ok := value.(string); ok {
		return strings.TrimSpace(s)
	}
	return ""
}
