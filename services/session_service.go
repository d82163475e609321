package services

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/mailio/go-vault-server/repository"
	"github.com/mailio/go-vault-server/types"
	"github.com/mailio/go-vault-server/util"
)

const (
	DefaultUserSessionTTL = 24 * time.Hour

	userSessionKeyPrefix = "user_session:"
)

// SessionService keeps the cookie token -> username mapping of signed in users
type SessionService struct {
	store repository.KeyValueStore
	ttl   time.Duration
}

func NewSessionService(store repository.KeyValueStore, ttl time.Duration) *SessionService {
	if store == nil {
		panic("session store cannot be nil")
	}
	if ttl <= 0 {
		ttl = DefaultUserSessionTTL
	}
	return &SessionService{store: store, ttl: ttl}
}

func (s *SessionService) TTL() time.Duration {
	return s.ttl
}

// Create starts a new session for username and returns its token
func (s *SessionService) Create(ctx context.Context, username string) (string, error) {
	token, err := util.GenerateToken(util.SessionIDSize)
	if err != nil {
		return "", err
	}
	b, err := json.Marshal(&types.UserSession{Username: username, Created: time.Now().UTC().UnixMilli()})
	if err != nil {
		return "", err
	}
	if err := s.store.Put(ctx, userSessionKeyPrefix+token, b, s.ttl); err != nil {
		return "", err
	}
	return token, nil
}

// Username resolves a token; unknown or expired tokens give types.ErrNotAuthorized
func (s *SessionService) Username(ctx context.Context, token string) (string, error) {
	if token == "" {
		return "", types.ErrNotAuthorized
	}
	raw, err := s.store.Get(ctx, userSessionKeyPrefix+token)
	if err != nil {
		if errors.Is(err, types.ErrNotFound) {
			return "", types.ErrNotAuthorized
		}
		return "", err
	}
	var session types.UserSession
	if err := json.Unmarshal(raw, &session); err != nil || session.Username == "" {
		return "", types.ErrNotAuthorized
	}
	return session.Username, nil
}

func (s *SessionService) Delete(ctx context.Context, token string) error {
	_, err := s.store.DeleteIfPresent(ctx, userSessionKeyPrefix+token)
	return err
}
