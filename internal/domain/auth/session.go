package auth

import (
	"context"
	"errors"
	"strings"
	"time"

	"equiprent/internal/domain/user"
)

var (
	ErrTokenRequired   = errors.New("auth: token is required")
	ErrUserRequired    = errors.New("auth: user is required")
	ErrTTLInvalid      = errors.New("auth: ttl must be positive")
	ErrSessionNotFound = errors.New("auth: session not found")
)

// Token is the opaque bearer value handed to clients.
type Token string

// Session binds a bearer token to a user until ExpiresAt. Roles are copied at
// login, so role changes take effect on the next session.
type Session struct {
	Token     Token       `json:"token"`
	UserID    user.ID     `json:"user_id"`
	Roles     []user.Role `json:"roles"`
	CreatedAt time.Time   `json:"created_at"`
	ExpiresAt time.Time   `json:"expires_at"`
}

type CreateSessionParams struct {
	Token  Token
	UserID user.ID
	Roles  []user.Role
	TTL    time.Duration
	Now    time.Time
}

func (p CreateSessionParams) validate() error {
	switch {
	case strings.TrimSpace(string(p.Token)) == "":
		return ErrTokenRequired
	case strings.TrimSpace(string(p.UserID)) == "":
		return ErrUserRequired
	case p.TTL <= 0:
		return ErrTTLInvalid
	}
	return nil
}

func NewSession(params CreateSessionParams) (*Session, error) {
	if err := params.validate(); err != nil {
		return nil, err
	}
	issued := utcOrNow(params.Now)
	return &Session{
		Token:     Token(strings.TrimSpace(string(params.Token))),
		UserID:    params.UserID,
		Roles:     append([]user.Role(nil), params.Roles...),
		CreatedAt: issued,
		ExpiresAt: issued.Add(params.TTL),
	}, nil
}

// Expired reports whether the session is no longer usable at the given instant.
// A zero instant means now.
func (s *Session) Expired(at time.Time) bool {
	return !s.ExpiresAt.After(utcOrNow(at))
}

func (s *Session) TTL(at time.Time) time.Duration {
	return max(s.ExpiresAt.Sub(utcOrNow(at)), 0)
}

// SessionStore returns ErrSessionNotFound for unknown or expired tokens.
type SessionStore interface {
	Save(ctx context.Context, session *Session) error
	Get(ctx context.Context, token Token) (*Session, error)
	Delete(ctx context.Context, token Token) error
	DeleteByUser(ctx context.Context, userID user.ID) error
}

func utcOrNow(t time.Time) time.Time {
	if t.IsZero() {
		t = time.Now()
	}
	return t.UTC()
}
