package port

import (
	"context"
	"time"
)

// CSRFStore keeps the per-session CSRF token used by the double-submit check.
// Fetch returns repository.ErrNotFound when no token exists for the session.
type CSRFStore interface {
	Store(ctx context.Context, sessionID, token string, ttl time.Duration) error
	Fetch(ctx context.Context, sessionID string) (string, error)
	Delete(ctx context.Context, sessionID string) error
}
