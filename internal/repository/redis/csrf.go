package redis

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	red "github.com/redis/go-redis/v9"

	"github.com/avereux/salon-auth/internal/core/port"
	"github.com/avereux/salon-auth/internal/repository"
)

const defaultCSRFPrefix = "csrf"

// CSRFRepository stores the per-session CSRF token used by the double-submit check.
// Tokens expire with the configured TTL, independent of session lifetime.
type CSRFRepository struct {
	client *red.Client
	prefix string
}

// NewCSRFRepository constructs a CSRF token store with the provided Redis client and key prefix.
func NewCSRFRepository(client *red.Client, keyPrefix string) *CSRFRepository {
	prefix := strings.TrimSpace(keyPrefix)
	if prefix == "" {
		prefix = defaultCSRFPrefix
	}

	return &CSRFRepository{client: client, prefix: prefix}
}

// Store persists the session's CSRF token with the supplied TTL.
func (r *CSRFRepository) Store(ctx context.Context, sessionID, token string, ttl time.Duration) error {
	sessionID = strings.TrimSpace(sessionID)
	token = strings.TrimSpace(token)

	switch {
	case sessionID == "":
		return errors.New("session id is required")
	case token == "":
		return errors.New("token is required")
	case ttl <= 0:
		return errors.New("ttl must be positive")
	}

	if err := r.client.Set(ctx, r.key(sessionID), token, ttl).Err(); err != nil {
		return fmt.Errorf("redis set csrf token: %w", err)
	}

	return nil
}

// Fetch returns the stored CSRF token for the session.
func (r *CSRFRepository) Fetch(ctx context.Context, sessionID string) (string, error) {
	sessionID = strings.TrimSpace(sessionID)
	if sessionID == "" {
		return "", errors.New("session id is required")
	}

	value, err := r.client.Get(ctx, r.key(sessionID)).Result()
	if err != nil {
		if errors.Is(err, red.Nil) {
			return "", repository.ErrNotFound
		}
		return "", fmt.Errorf("redis get csrf token: %w", err)
	}

	return value, nil
}

// Delete removes the session's CSRF token, typically on logout.
func (r *CSRFRepository) Delete(ctx context.Context, sessionID string) error {
	sessionID = strings.TrimSpace(sessionID)
	if sessionID == "" {
		return errors.New("session id is required")
	}

	if err := r.client.Del(ctx, r.key(sessionID)).Err(); err != nil {
		return fmt.Errorf("redis delete csrf token: %w", err)
	}

	return nil
}

func (r *CSRFRepository) key(sessionID string) string {
	return fmt.Sprintf("%s:%s", r.prefix, sessionID)
}

var _ port.CSRFStore = (*CSRFRepository)(nil)
