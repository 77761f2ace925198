package port

import (
	"context"

	"github.com/avereux/salon-auth/internal/core/domain"
)

// TokenRepository manages verification and password reset token records.
// Creating a new token for a user supersedes prior live tokens; callers
// revoke outstanding tokens before issuing a replacement.
type TokenRepository interface {
	CreateVerification(ctx context.Context, token domain.VerificationToken) error
	GetVerificationByHash(ctx context.Context, hash string) (*domain.VerificationToken, error)
	LatestVerificationForUser(ctx context.Context, userID string) (*domain.VerificationToken, error)
	ConsumeVerification(ctx context.Context, id string) error
	RevokeVerificationsForUser(ctx context.Context, userID string) error

	CreatePasswordReset(ctx context.Context, token domain.PasswordResetToken) error
	GetPasswordResetByHash(ctx context.Context, hash string) (*domain.PasswordResetToken, error)
	LatestPasswordResetForUser(ctx context.Context, userID string) (*domain.PasswordResetToken, error)
	ConsumePasswordReset(ctx context.Context, id string) error
	RevokePasswordResetsForUser(ctx context.Context, userID string) error
}
