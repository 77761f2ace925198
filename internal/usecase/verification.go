package usecase

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	uuid "github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/avereux/salon-auth/internal/core/domain"
	"github.com/avereux/salon-auth/internal/core/port"
	"github.com/avereux/salon-auth/internal/infra/config"
	"github.com/avereux/salon-auth/internal/infra/logger"
	"github.com/avereux/salon-auth/internal/infra/security"
	"github.com/avereux/salon-auth/internal/repository"
)

var (
	// ErrEmailAlreadyVerified indicates the account has already confirmed its email.
	ErrEmailAlreadyVerified = errors.New("email already verified")
	// ErrVerificationThrottled indicates a verification token was issued too recently.
	ErrVerificationThrottled = errors.New("verification requested too recently")
	// ErrVerificationTokenInvalid indicates the supplied token is unknown, used, or revoked.
	ErrVerificationTokenInvalid = errors.New("verification token invalid")
	// ErrVerificationTokenExpired indicates the supplied token has expired.
	ErrVerificationTokenExpired = errors.New("verification token expired")
)

// VerificationService owns the email confirmation flow.
type VerificationService struct {
	cfg    *config.AppConfig
	users  port.UserRepository
	tokens port.TokenRepository
	mailer port.Mailer
	logger *zap.Logger
	now    func() time.Time
}

// NewVerificationService constructs a VerificationService.
func NewVerificationService(
	cfg *config.AppConfig,
	users port.UserRepository,
	tokens port.TokenRepository,
	mailer port.Mailer,
	log *zap.Logger,
) *VerificationService {
	if log == nil {
		log = zap.NewNop()
	}
	return &VerificationService{
		cfg:    cfg,
		users:  users,
		tokens: tokens,
		mailer: mailer,
		logger: log,
		now:    time.Now,
	}
}

// WithClock overrides the clock used by the service, used in tests.
func (s *VerificationService) WithClock(clock func() time.Time) {
	if clock != nil {
		s.now = clock
	}
}

// Request issues a fresh verification token. Unknown emails succeed silently.
func (s *VerificationService) Request(ctx context.Context, email string, ip, userAgent *string) error {
	email = strings.ToLower(strings.TrimSpace(email))
	if email == "" {
		return fmt.Errorf("email is required")
	}

	user, err := s.users.GetByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			s.logger.Info("verification requested for unknown email",
				zap.String("email", logger.MaskEmail(email)))
			return nil
		}
		return fmt.Errorf("lookup user: %w", err)
	}

	if user.EmailVerified {
		return ErrEmailAlreadyVerified
	}

	now := s.now().UTC()
	throttle := s.cfg.Verification.Throttle
	if throttle > 0 {
		latest, err := s.tokens.LatestVerificationForUser(ctx, user.ID)
		if err != nil && !errors.Is(err, repository.ErrNotFound) {
			return fmt.Errorf("lookup latest verification token: %w", err)
		}
		if latest != nil && latest.IsLive(now) && now.Sub(latest.CreatedAt) < throttle {
			return ErrVerificationThrottled
		}
	}

	secret, err := security.GenerateSecureToken(verificationTokenBytes)
	if err != nil {
		return fmt.Errorf("generate verification token: %w", err)
	}

	if err := s.tokens.RevokeVerificationsForUser(ctx, user.ID); err != nil {
		return fmt.Errorf("revoke prior verification tokens: %w", err)
	}

	ttl := s.cfg.Verification.TokenTTL
	if ttl <= 0 {
		ttl = 24 * time.Hour
	}

	token := domain.VerificationToken{
		ID:        uuid.NewString(),
		UserID:    user.ID,
		TokenHash: security.HashToken(secret),
		IP:        ip,
		UserAgent: userAgent,
		CreatedAt: now,
		ExpiresAt: now.Add(ttl),
	}
	if err := s.tokens.CreateVerification(ctx, token); err != nil {
		return fmt.Errorf("store verification token: %w", err)
	}

	if err := s.mailer.SendEmailVerification(ctx, user.Email, user.Name, secret, token.ExpiresAt); err != nil {
		return fmt.Errorf("send verification email: %w", err)
	}

	return nil
}

// Confirm redeems a verification token and activates the account.
func (s *VerificationService) Confirm(ctx context.Context, raw string) error {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return ErrVerificationTokenInvalid
	}

	token, err := s.tokens.GetVerificationByHash(ctx, security.HashToken(raw))
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return ErrVerificationTokenInvalid
		}
		return fmt.Errorf("lookup verification token: %w", err)
	}

	now := s.now().UTC()
	if token.UsedAt != nil || token.RevokedAt != nil {
		return ErrVerificationTokenInvalid
	}
	if token.IsExpired(now) {
		return ErrVerificationTokenExpired
	}

	user, err := s.users.GetByID(ctx, token.UserID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return ErrVerificationTokenInvalid
		}
		return fmt.Errorf("lookup user: %w", err)
	}

	if user.EmailVerified {
		return ErrEmailAlreadyVerified
	}

	user.EmailVerified = true
	if user.Status == domain.UserStatusPending {
		user.Status = domain.UserStatusActive
	}
	if err := s.users.Update(ctx, *user); err != nil {
		return fmt.Errorf("update user: %w", err)
	}

	if err := s.tokens.ConsumeVerification(ctx, token.ID); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return ErrVerificationTokenInvalid
		}
		return fmt.Errorf("consume verification token: %w", err)
	}

	s.logger.Info("email verified", zap.String("user_id", user.ID))

	return nil
}
