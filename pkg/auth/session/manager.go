package session

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	redisclient "github.com/angelmondragon/storefront-backend/pkg/redis"
	redislib "github.com/redis/go-redis/v9"
)

const revokedMarker = "1"

type sessionStore interface {
	Set(ctx context.Context, key string, value any, ttl time.Duration) error
	Get(ctx context.Context, key string) (string, error)
}

type sessionKeyer interface {
	RevokedSessionKey(accessID string) string
}

// Manager records signed-out access tokens until they would have expired anyway.
type Manager struct {
	store sessionStore
	keyer sessionKeyer
	now   func() time.Time
}

// RevocationChecker exposes the read-only surface needed by middleware.
type RevocationChecker interface {
	IsRevoked(ctx context.Context, accessID string) (bool, error)
}

// NewManager constructs a session manager backed by Redis.
func NewManager(client *redisclient.Client) (*Manager, error) {
	if client == nil {
		return nil, fmt.Errorf("redis client is required")
	}
	return &Manager{store: client, keyer: client, now: time.Now}, nil
}

// Revoke marks the access id as signed out until expiresAt.
func (m *Manager) Revoke(ctx context.Context, accessID string, expiresAt time.Time) error {
	if strings.TrimSpace(accessID) == "" {
		return fmt.Errorf("access id is required")
	}
	ttl := expiresAt.Sub(m.now())
	if ttl <= 0 {
		return nil
	}
	return m.store.Set(ctx, m.keyer.RevokedSessionKey(accessID), revokedMarker, ttl)
}

// IsRevoked reports whether the access id was signed out.
func (m *Manager) IsRevoked(ctx context.Context, accessID string) (bool, error) {
	if strings.TrimSpace(accessID) == "" {
		return false, fmt.Errorf("access id is required")
	}
	if _, err := m.store.Get(ctx, m.keyer.RevokedSessionKey(accessID)); err != nil {
		if errors.Is(err, redislib.Nil) {
			return false, nil
		}
		return false, err
	}
	return true, nil
}
