package port

import (
	"context"

	"github.com/avereux/salon-auth/internal/core/domain"
)

// UserRepository exposes persistence behavior for users.
//
// Update performs a full-object replace of every mutable column. Concurrent
// read-modify-write cycles are last-write-wins; the failed-attempt counter is
// a known casualty under contention (see DESIGN.md).
type UserRepository interface {
	Create(ctx context.Context, user domain.User) error
	GetByID(ctx context.Context, id string) (*domain.User, error)
	GetByEmail(ctx context.Context, email string) (*domain.User, error)
	Update(ctx context.Context, user domain.User) error
	ListPasswordHistory(ctx context.Context, userID string, limit int) ([]domain.PasswordHistoryEntry, error)
	AddPasswordHistory(ctx context.Context, entry domain.PasswordHistoryEntry, keep int) error
}
