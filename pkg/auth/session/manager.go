// Package session keeps the server-side half of an access token: one redis
// record per jti that names the owning account and expires with the token.
// Deleting the record revokes the token before its exp.
package session

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	goredis "github.com/redis/go-redis/v9"

	"github.com/angelmondragon/pharmacy-backend/pkg/config"
	"github.com/angelmondragon/pharmacy-backend/pkg/redis"
)

var ErrSessionNotFound = errors.New("session not found")

type store interface {
	Set(ctx context.Context, key string, value any, ttl time.Duration) error
	Get(ctx context.Context, key string) (string, error)
	Del(ctx context.Context, keys ...string) error
	AccessSessionKey(accessID string) string
}

type record struct {
	AccountID uuid.UUID `json:"account_id"`
	OpenedAt  time.Time `json:"opened_at"`
}

type Manager struct {
	store store
	ttl   time.Duration
	now   func() time.Time
}

// NewManager ties session lifetime to the access token TTL.
func NewManager(client *redis.Client, cfg config.JWTConfig) (*Manager, error) {
	if client == nil {
		return nil, errors.New("redis client is required")
	}
	ttl := cfg.AccessTTL()
	if ttl <= 0 {
		return nil, errors.New("session ttl must be positive")
	}
	return &Manager{store: client, ttl: ttl, now: time.Now}, nil
}

// Open stores a new session for accountID and returns its id, which login
// uses as the token's jti.
func (m *Manager) Open(ctx context.Context, accountID uuid.UUID) (string, error) {
	if accountID == uuid.Nil {
		return "", errors.New("account id is required")
	}
	payload, err := json.Marshal(record{AccountID: accountID, OpenedAt: m.now().UTC()})
	if err != nil {
		return "", err
	}
	accessID := uuid.NewString()
	if err := m.store.Set(ctx, m.store.AccessSessionKey(accessID), payload, m.ttl); err != nil {
		return "", fmt.Errorf("storing session: %w", err)
	}
	return accessID, nil
}

// Lookup returns the account that owns accessID, or ErrSessionNotFound once
// the session expired or was revoked.
func (m *Manager) Lookup(ctx context.Context, accessID string) (uuid.UUID, error) {
	if strings.TrimSpace(accessID) == "" {
		return uuid.Nil, ErrSessionNotFound
	}
	raw, err := m.store.Get(ctx, m.store.AccessSessionKey(accessID))
	switch {
	case errors.Is(err, goredis.Nil):
		return uuid.Nil, ErrSessionNotFound
	case err != nil:
		return uuid.Nil, err
	}
	var rec record
	if err := json.Unmarshal([]byte(raw), &rec); err != nil || rec.AccountID == uuid.Nil {
		return uuid.Nil, fmt.Errorf("corrupt session record %s", accessID)
	}
	return rec.AccountID, nil
}

// Revoke is idempotent; revoking an unknown session is not an error.
func (m *Manager) Revoke(ctx context.Context, accessID string) error {
	if strings.TrimSpace(accessID) == "" {
		return errors.New("access id is required")
	}
	return m.store.Del(ctx, m.store.AccessSessionKey(accessID))
}
