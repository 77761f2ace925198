package port

import (
	"context"
	"time"

	"github.com/avereux/salon-auth/internal/core/domain"
)

// SessionRepository deals with session storage. Sessions are deleted rather
// than soft-revoked: an absent row is an invalid session.
type SessionRepository interface {
	Create(ctx context.Context, session domain.Session) error
	GetByID(ctx context.Context, sessionID string) (*domain.Session, error)
	GetByRefreshTokenHash(ctx context.Context, hash string) (*domain.Session, error)
	ListByUser(ctx context.Context, userID string) ([]domain.Session, error)
	UpdateRefreshToken(ctx context.Context, sessionID string, hash string, lastActivity time.Time) error
	Delete(ctx context.Context, sessionID string) error
	DeleteByUser(ctx context.Context, userID string) (int, error)
	DeleteExpired(ctx context.Context, before time.Time) (int, error)
}
