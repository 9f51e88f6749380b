package shared

import (
	"context"
	"crypto/rand"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// SessionStore keeps bearer-token sessions in Redis. Tokens are opaque and
// carry the authenticated user, tenant and role.
type SessionStore struct {
	client *redis.Client
	ttl    time.Duration
}

// NewSessionStore constructs a SessionStore.
func NewSessionStore(client *redis.Client, ttl time.Duration) *SessionStore {
	return &SessionStore{client: client, ttl: ttl}
}

type sessionPayload struct {
	UserID   int64  `json:"user_id"`
	TenantID int64  `json:"tenant_id"`
	Role     string `json:"role"`
}

// ErrSessionNotFound indicates an unknown or expired token.
var ErrSessionNotFound = errors.New("session not found")

// Issue creates a new session token for the actor.
func (s *SessionStore) Issue(ctx context.Context, actor Actor) (string, error) {
	token, err := generateToken()
	if err != nil {
		return "", err
	}
	data, err := json.Marshal(sessionPayload{UserID: actor.UserID, TenantID: actor.TenantID, Role: actor.Role})
	if err != nil {
		return "", err
	}
	if err := s.client.Set(ctx, s.key(token), data, s.ttl).Err(); err != nil {
		return "", fmt.Errorf("shared/session: store: %w", err)
	}
	return token, nil
}

// Resolve returns the actor associated with the token and refreshes its TTL.
func (s *SessionStore) Resolve(ctx context.Context, token string) (*Actor, error) {
	if token == "" {
		return nil, ErrSessionNotFound
	}
	data, err := s.client.Get(ctx, s.key(token)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, ErrSessionNotFound
		}
		return nil, fmt.Errorf("shared/session: load: %w", err)
	}
	var payload sessionPayload
	if err := json.Unmarshal(data, &payload); err != nil {
		return nil, err
	}
	_ = s.client.Expire(ctx, s.key(token), s.ttl).Err()
	return &Actor{UserID: payload.UserID, TenantID: payload.TenantID, Role: payload.Role}, nil
}

// Revoke removes the session token.
func (s *SessionStore) Revoke(ctx context.Context, token string) error {
	if token == "" {
		return nil
	}
	if err := s.client.Del(ctx, s.key(token)).Err(); err != nil && !errors.Is(err, redis.Nil) {
		return err
	}
	return nil
}

// TTL exposes the configured session lifetime.
func (s *SessionStore) TTL() time.Duration {
	return s.ttl
}

func (s *SessionStore) key(token string) string {
	return "meridian:session:" + token
}

func generateToken() (string, error) {
	buf := make([]byte, 32)
	if _, err := rand.Read(buf); err != nil {
		return "", err
	}
	return base64.RawURLEncoding.EncodeToString(buf), nil
}
