package memory

import (
	"context"
	"sync"
	"time"

	domainauth "equiprent/internal/domain/auth"
	domainuser "equiprent/internal/domain/user"
)

type UserRepository struct {
	mu      sync.RWMutex
	byID    map[domainuser.ID]domainuser.User
	byEmail map[string]domainuser.ID
}

func NewUserRepository() *UserRepository {
	return &UserRepository{
		byID:    make(map[domainuser.ID]domainuser.User),
		byEmail: make(map[string]domainuser.ID),
	}
}

func (r *UserRepository) ByID(ctx context.Context, id domainuser.ID) (*domainuser.User, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	u, ok := r.byID[id]
	if !ok {
		return nil, domainuser.ErrNotFound
	}
	return copyUser(u), nil
}

func (r *UserRepository) ByEmail(ctx context.Context, email string) (*domainuser.User, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	id, ok := r.byEmail[domainuser.NormalizeEmail(email)]
	if !ok {
		return nil, domainuser.ErrNotFound
	}
	return copyUser(r.byID[id]), nil
}

// Save enforces one account per email.
func (r *UserRepository) Save(ctx context.Context, u *domainuser.User) error {
	if u == nil || u.ID == "" {
		return domainuser.ErrIDRequired
	}
	email := domainuser.NormalizeEmail(u.Email)
	if email == "" {
		return domainuser.ErrEmailRequired
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if owner, ok := r.byEmail[email]; ok && owner != u.ID {
		return domainuser.ErrEmailAlreadyUsed
	}
	if prev, ok := r.byID[u.ID]; ok && prev.Email != email {
		delete(r.byEmail, prev.Email)
	}
	stored := *copyUser(*u)
	stored.Email = email
	r.byID[u.ID] = stored
	r.byEmail[email] = u.ID
	return nil
}

func copyUser(u domainuser.User) *domainuser.User {
	u.Roles = append([]domainuser.Role(nil), u.Roles...)
	return &u
}

// SessionStore keeps bearer sessions until they expire or are deleted.
type SessionStore struct {
	mu       sync.Mutex
	sessions map[domainauth.Token]domainauth.Session
	now      func() time.Time
}

func NewSessionStore() *SessionStore {
	return &SessionStore{sessions: make(map[domainauth.Token]domainauth.Session), now: time.Now}
}

func (s *SessionStore) Save(ctx context.Context, session *domainauth.Session) error {
	if session == nil || session.Token == "" {
		return domainauth.ErrTokenRequired
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	cp := *session
	cp.Roles = append([]domainuser.Role(nil), session.Roles...)
	s.sessions[session.Token] = cp
	return nil
}

func (s *SessionStore) Get(ctx context.Context, token domainauth.Token) (*domainauth.Session, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	session, ok := s.sessions[token]
	if !ok {
		return nil, domainauth.ErrSessionNotFound
	}
	if session.Expired(s.now()) {
		delete(s.sessions, token)
		return nil, domainauth.ErrSessionNotFound
	}
	session.Roles = append([]domainuser.Role(nil), session.Roles...)
	return &session, nil
}

func (s *SessionStore) Delete(ctx context.Context, token domainauth.Token) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.sessions, token)
	return nil
}

func (s *SessionStore) DeleteByUser(ctx context.Context, userID domainuser.ID) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for token, session := range s.sessions {
		if session.UserID == userID {
			delete(s.sessions, token)
		}
	}
	return nil
}

var (
	_ domainuser.Repository   = (*UserRepository)(nil)
	_ domainauth.SessionStore = (*SessionStore)(nil)
)
