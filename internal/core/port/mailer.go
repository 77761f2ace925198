package port

import (
	"context"
	"time"
)

// Mailer delivers transactional auth emails. Implementations must not log
// raw tokens.
type Mailer interface {
	SendEmailVerification(ctx context.Context, email, name, token string, expiresAt time.Time) error
	SendPasswordReset(ctx context.Context, email, name, token string, expiresAt time.Time) error
	SendPasswordChanged(ctx context.Context, email, name string, changedAt time.Time) error
}
