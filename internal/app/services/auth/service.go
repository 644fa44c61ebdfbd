package auth

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/google/uuid"

	"equiprent/internal/app/actor"
	domainauth "equiprent/internal/domain/auth"
	domainuser "equiprent/internal/domain/user"
)

var (
	ErrInvalidCredentials = errors.New("auth: invalid credentials")
	ErrPasswordTooShort   = errors.New("auth: password must be at least 8 characters")
	ErrMisconfigured      = errors.New("auth: service misconfigured")
)

type PasswordHasher interface {
	Hash(password string) (string, error)
	Compare(hash, password string) error
}

type TokenGenerator interface {
	NewToken() (string, error)
}

type Service struct {
	Users      domainuser.Repository
	Sessions   domainauth.SessionStore
	Passwords  PasswordHasher
	Tokens     TokenGenerator
	SessionTTL time.Duration
	Logger     *slog.Logger
}

type RegisterParams struct {
	Email    string
	Name     string
	Password string
	// AsVendor adds the vendor role next to customer.
	AsVendor bool
}

type LoginParams struct {
	Email    string
	Password string
}

type Result struct {
	User  *domainuser.User
	Token string
}

func (s *Service) Register(ctx context.Context, params RegisterParams) (*Result, error) {
	if err := s.check(); err != nil {
		return nil, err
	}
	if utf8.RuneCountInString(params.Password) < 8 {
		return nil, ErrPasswordTooShort
	}
	email := domainuser.NormalizeEmail(params.Email)
	if email == "" {
		return nil, domainuser.ErrEmailRequired
	}
	if _, err := s.Users.ByEmail(ctx, email); err == nil {
		return nil, domainuser.ErrEmailAlreadyUsed
	} else if !errors.Is(err, domainuser.ErrNotFound) {
		return nil, err
	}
	hash, err := s.Passwords.Hash(params.Password)
	if err != nil {
		return nil, err
	}
	roles := []domainuser.Role{domainuser.RoleCustomer}
	if params.AsVendor {
		roles = append(roles, domainuser.RoleVendor)
	}
	u, err := domainuser.NewUser(domainuser.CreateParams{
		ID:           domainuser.ID(uuid.NewString()),
		Email:        email,
		Name:         params.Name,
		PasswordHash: hash,
		Roles:        roles,
		CreatedAt:    time.Now(),
	})
	if err != nil {
		return nil, err
	}
	if err := s.Users.Save(ctx, u); err != nil {
		return nil, err
	}
	token, err := s.issue(ctx, u)
	if err != nil {
		return nil, err
	}
	if s.Logger != nil {
		s.Logger.Info("user registered", "user_id", u.ID, "roles", u.Roles)
	}
	return &Result{User: u, Token: token}, nil
}

func (s *Service) Login(ctx context.Context, params LoginParams) (*Result, error) {
	if err := s.check(); err != nil {
		return nil, err
	}
	u, err := s.Users.ByEmail(ctx, domainuser.NormalizeEmail(params.Email))
	if err != nil {
		if errors.Is(err, domainuser.ErrNotFound) {
			return nil, ErrInvalidCredentials
		}
		return nil, err
	}
	if err := s.Passwords.Compare(u.PasswordHash, params.Password); err != nil {
		return nil, ErrInvalidCredentials
	}
	token, err := s.issue(ctx, u)
	if err != nil {
		return nil, err
	}
	if s.Logger != nil {
		s.Logger.Info("user authenticated", "user_id", u.ID)
	}
	return &Result{User: u, Token: token}, nil
}

func (s *Service) Logout(ctx context.Context, token string) error {
	if err := s.check(); err != nil {
		return err
	}
	token = strings.TrimSpace(token)
	if token == "" {
		return nil
	}
	return s.Sessions.Delete(ctx, domainauth.Token(token))
}

// Resolve maps a bearer token to the actor it authenticates.
func (s *Service) Resolve(ctx context.Context, token string) (actor.Actor, *domainuser.User, error) {
	if err := s.check(); err != nil {
		return actor.Actor{}, nil, err
	}
	token = strings.TrimSpace(token)
	if token == "" {
		return actor.Actor{}, nil, domainauth.ErrTokenRequired
	}
	session, err := s.Sessions.Get(ctx, domainauth.Token(token))
	if err != nil {
		return actor.Actor{}, nil, err
	}
	u, err := s.Users.ByID(ctx, session.UserID)
	if err != nil {
		_ = s.Sessions.Delete(ctx, session.Token)
		if errors.Is(err, domainuser.ErrNotFound) {
			return actor.Actor{}, nil, domainauth.ErrSessionNotFound
		}
		return actor.Actor{}, nil, err
	}
	return actor.Actor{UserID: string(u.ID), Roles: append([]domainuser.Role(nil), u.Roles...)}, u, nil
}

// EnsureAdmin creates or promotes the bootstrap administrator.
func (s *Service) EnsureAdmin(ctx context.Context, email, password string) error {
	if err := s.check(); err != nil {
		return err
	}
	email = domainuser.NormalizeEmail(email)
	if email == "" {
		return nil
	}
	existing, err := s.Users.ByEmail(ctx, email)
	switch {
	case err == nil:
		if err := existing.EnsureRole(domainuser.RoleAdmin, time.Now()); err != nil {
			return err
		}
		return s.Users.Save(ctx, existing)
	case !errors.Is(err, domainuser.ErrNotFound):
		return err
	}
	if utf8.RuneCountInString(password) < 8 {
		return ErrPasswordTooShort
	}
	hash, err := s.Passwords.Hash(password)
	if err != nil {
		return err
	}
	admin, err := domainuser.NewUser(domainuser.CreateParams{
		ID:           domainuser.ID(uuid.NewString()),
		Email:        email,
		Name:         "Administrator",
		PasswordHash: hash,
		Roles:        []domainuser.Role{domainuser.RoleAdmin},
	})
	if err != nil {
		return err
	}
	if s.Logger != nil {
		s.Logger.Info("bootstrap admin created", "user_id", admin.ID)
	}
	return s.Users.Save(ctx, admin)
}

func (s *Service) issue(ctx context.Context, u *domainuser.User) (string, error) {
	token, err := s.Tokens.NewToken()
	if err != nil {
		return "", err
	}
	ttl := s.SessionTTL
	if ttl <= 0 {
		ttl = 24 * time.Hour
	}
	session, err := domainauth.NewSession(domainauth.CreateSessionParams{
		Token:  domainauth.Token(token),
		UserID: u.ID,
		Roles:  u.Roles,
		TTL:    ttl,
		Now:    time.Now(),
	})
	if err != nil {
		return "", err
	}
	if err := s.Sessions.Save(ctx, session); err != nil {
		return "", err
	}
	return token, nil
}

func (s *Service) check() error {
	if s.Users == nil || s.Sessions == nil || s.Passwords == nil || s.Tokens == nil {
		return ErrMisconfigured
	}
	return nil
}
