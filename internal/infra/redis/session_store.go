package redis

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	goredis "github.com/redis/go-redis/v9"

	domainauth "equiprent/internal/domain/auth"
	domainuser "equiprent/internal/domain/user"
)

// SessionStore keeps each session under its own key with a matching TTL and indexes
// tokens per user for DeleteByUser.
type SessionStore struct {
	client *goredis.Client
	now    func() time.Time
}

func NewSessionStore(client *goredis.Client) *SessionStore {
	return &SessionStore{client: client, now: time.Now}
}

func sessionKey(token domainauth.Token) string {
	return "equiprent:session:" + string(token)
}

func userSessionsKey(id domainuser.ID) string {
	return "equiprent:user_sessions:" + string(id)
}

func (s *SessionStore) Save(ctx context.Context, session *domainauth.Session) error {
	if session == nil {
		return domainauth.ErrTokenRequired
	}
	ttl := session.TTL(s.now())
	if ttl <= 0 {
		return domainauth.ErrTTLInvalid
	}
	data, err := json.Marshal(session)
	if err != nil {
		return err
	}
	idx := userSessionsKey(session.UserID)
	_, err = s.client.TxPipelined(ctx, func(pipe goredis.Pipeliner) error {
		pipe.Set(ctx, sessionKey(session.Token), data, ttl)
		pipe.SAdd(ctx, idx, string(session.Token))
		// Sessions share one TTL, so the newest one outlives the rest.
		pipe.Expire(ctx, idx, ttl)
		return nil
	})
	return err
}

func (s *SessionStore) Get(ctx context.Context, token domainauth.Token) (*domainauth.Session, error) {
	raw, err := s.client.Get(ctx, sessionKey(token)).Bytes()
	if err != nil {
		if errors.Is(err, goredis.Nil) {
			return nil, domainauth.ErrSessionNotFound
		}
		return nil, err
	}
	var session domainauth.Session
	if err := json.Unmarshal(raw, &session); err != nil {
		return nil, err
	}
	if session.Expired(s.now()) {
		return nil, domainauth.ErrSessionNotFound
	}
	return &session, nil
}

func (s *SessionStore) Delete(ctx context.Context, token domainauth.Token) error {
	session, err := s.Get(ctx, token)
	if err != nil {
		if errors.Is(err, domainauth.ErrSessionNotFound) {
			return nil
		}
		return err
	}
	_, err = s.client.TxPipelined(ctx, func(pipe goredis.Pipeliner) error {
		pipe.Del(ctx, sessionKey(token))
		pipe.SRem(ctx, userSessionsKey(session.UserID), string(token))
		return nil
	})
	return err
}

func (s *SessionStore) DeleteByUser(ctx context.Context, userID domainuser.ID) error {
	idx := userSessionsKey(userID)
	tokens, err := s.client.SMembers(ctx, idx).Result()
	if err != nil {
		return err
	}
	keys := make([]string, 0, len(tokens)+1)
	for _, t := range tokens {
		keys = append(keys, sessionKey(domainauth.Token(t)))
	}
	keys = append(keys, idx)
	return s.client.Del(ctx, keys...).Err()
}

var _ domainauth.SessionStore = (*SessionStore)(nil)
