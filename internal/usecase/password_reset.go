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

const (
	resetTokenBytes = 32

	// passwordHistoryCap bounds stored history entries per user.
	passwordHistoryCap = 5
	// passwordReuseDepth is how many recent hashes are checked on reset.
	passwordReuseDepth = 3

	passwordChangedViaReset = "password_reset"
)

var (
	// ErrResetThrottled indicates a reset token was issued too recently.
	ErrResetThrottled = errors.New("password reset requested too recently")
	// ErrResetTokenInvalid indicates the supplied reset token is unknown, used, or revoked.
	ErrResetTokenInvalid = errors.New("password reset token invalid")
	// ErrResetTokenExpired indicates the supplied reset token has expired.
	ErrResetTokenExpired = errors.New("password reset token expired")
	// ErrPasswordReused indicates the new password matches a recent historical one.
	ErrPasswordReused = errors.New("password was used recently")
)

// PasswordResetService coordinates reset initiation and completion.
type PasswordResetService struct {
	cfg      *config.AppConfig
	users    port.UserRepository
	tokens   port.TokenRepository
	sessions *SessionService
	hasher   *security.PasswordHasher
	mailer   port.Mailer
	events   port.EventPublisher
	logger   *zap.Logger
	now      func() time.Time
}

// NewPasswordResetService constructs a PasswordResetService.
func NewPasswordResetService(
	cfg *config.AppConfig,
	users port.UserRepository,
	tokens port.TokenRepository,
	sessions *SessionService,
	hasher *security.PasswordHasher,
	mailer port.Mailer,
	events port.EventPublisher,
	log *zap.Logger,
) *PasswordResetService {
	if log == nil {
		log = zap.NewNop()
	}
	return &PasswordResetService{
		cfg:      cfg,
		users:    users,
		tokens:   tokens,
		sessions: sessions,
		hasher:   hasher,
		mailer:   mailer,
		events:   events,
		logger:   log,
		now:      time.Now,
	}
}

// WithClock overrides the clock used by the service, used in tests.
func (s *PasswordResetService) WithClock(clock func() time.Time) {
	if clock != nil {
		s.now = clock
	}
}

// Request issues a reset token for the account, if one exists. Unknown
// emails succeed silently so the endpoint cannot be used for enumeration.
func (s *PasswordResetService) Request(ctx context.Context, email string, ip, userAgent *string) error {
	email = strings.ToLower(strings.TrimSpace(email))
	if email == "" {
		return fmt.Errorf("email is required")
	}

	user, err := s.users.GetByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			s.logger.Info("reset requested for unknown email",
				zap.String("email", logger.MaskEmail(email)))
			return nil
		}
		return fmt.Errorf("lookup user: %w", err)
	}

	now := s.now().UTC()
	throttle := s.cfg.PasswordReset.Throttle
	if throttle > 0 {
		latest, err := s.tokens.LatestPasswordResetForUser(ctx, user.ID)
		if err != nil && !errors.Is(err, repository.ErrNotFound) {
			return fmt.Errorf("lookup latest reset token: %w", err)
		}
		if latest != nil && latest.IsLive(now) && now.Sub(latest.CreatedAt) < throttle {
			return ErrResetThrottled
		}
	}

	secret, err := security.GenerateSecureToken(resetTokenBytes)
	if err != nil {
		return fmt.Errorf("generate reset token: %w", err)
	}

	if err := s.tokens.RevokePasswordResetsForUser(ctx, user.ID); err != nil {
		return fmt.Errorf("revoke prior reset tokens: %w", err)
	}

	ttl := s.cfg.PasswordReset.TokenTTL
	if ttl <= 0 {
		ttl = time.Hour
	}

	token := domain.PasswordResetToken{
		ID:        uuid.NewString(),
		UserID:    user.ID,
		TokenHash: security.HashToken(secret),
		IP:        ip,
		UserAgent: userAgent,
		CreatedAt: now,
		ExpiresAt: now.Add(ttl),
	}
	if err := s.tokens.CreatePasswordReset(ctx, token); err != nil {
		return fmt.Errorf("store reset token: %w", err)
	}

	if err := s.mailer.SendPasswordReset(ctx, user.Email, user.Name, secret, token.ExpiresAt); err != nil {
		return fmt.Errorf("send reset email: %w", err)
	}

	if s.events != nil {
		event := domain.PasswordResetRequestedEvent{
			EventID:     uuid.NewString(),
			UserID:      user.ID,
			RequestID:   token.ID,
			RequestedAt: now,
			MaskedEmail: logger.MaskEmail(email),
			IPAddress:   ip,
			ExpiresAt:   token.ExpiresAt,
		}
		if err := s.events.PublishPasswordResetRequested(ctx, event); err != nil {
			s.logger.Warn("publish reset requested event", zap.Error(err))
		}
	}

	return nil
}

// ValidateToken checks a raw reset token without consuming it.
func (s *PasswordResetService) ValidateToken(ctx context.Context, raw string) error {
	_, err := s.liveToken(ctx, raw)
	return err
}

// Reset completes a password reset. This is the only flow that can unlock a
// locked account without administrative intervention.
func (s *PasswordResetService) Reset(ctx context.Context, raw, newPassword string, ip *string) error {
	token, err := s.liveToken(ctx, raw)
	if err != nil {
		return err
	}

	user, err := s.users.GetByID(ctx, token.UserID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return ErrResetTokenInvalid
		}
		return fmt.Errorf("lookup user: %w", err)
	}

	validator := security.PasswordValidatorWithContext(user.Email, user.Name)
	if err := validator.Validate(newPassword); err != nil {
		return fmt.Errorf("%w: %v", ErrWeakPassword, err)
	}

	history, err := s.users.ListPasswordHistory(ctx, user.ID, passwordReuseDepth)
	if err != nil {
		return fmt.Errorf("list password history: %w", err)
	}
	for _, entry := range history {
		match, err := s.hasher.Verify(newPassword, entry.PasswordHash)
		if err != nil {
			return fmt.Errorf("compare password history: %w", err)
		}
		if match {
			return ErrPasswordReused
		}
	}

	hash, err := s.hasher.Hash(newPassword)
	if err != nil {
		return fmt.Errorf("hash password: %w", err)
	}

	now := s.now().UTC()
	user.PasswordHash = hash
	user.LastPasswordChange = now
	user.Unlock()
	user.ResetFailedLogins()

	if err := s.users.Update(ctx, *user); err != nil {
		return fmt.Errorf("update user: %w", err)
	}

	entry := domain.PasswordHistoryEntry{
		ID:           uuid.NewString(),
		UserID:       user.ID,
		PasswordHash: hash,
		SetAt:        now,
	}
	if err := s.users.AddPasswordHistory(ctx, entry, passwordHistoryCap); err != nil {
		return fmt.Errorf("append password history: %w", err)
	}

	if err := s.tokens.ConsumePasswordReset(ctx, token.ID); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return ErrResetTokenInvalid
		}
		return fmt.Errorf("consume reset token: %w", err)
	}
	if err := s.tokens.RevokePasswordResetsForUser(ctx, user.ID); err != nil {
		return fmt.Errorf("revoke reset tokens: %w", err)
	}

	sessionsRevoked := 0
	if s.sessions != nil {
		if count, err := s.sessions.LogoutAll(ctx, user.ID); err != nil {
			s.logger.Warn("revoke sessions after reset",
				zap.String("user_id", user.ID), zap.Error(err))
		} else {
			sessionsRevoked = count
		}
	}

	notified := true
	if err := s.mailer.SendPasswordChanged(ctx, user.Email, user.Name, now); err != nil {
		notified = false
		s.logger.Warn("send password changed email",
			zap.String("email", logger.MaskEmail(user.Email)), zap.Error(err))
	}

	if s.events != nil {
		event := domain.PasswordChangedEvent{
			EventID:          uuid.NewString(),
			UserID:           user.ID,
			ChangedAt:        now,
			ChangedVia:       passwordChangedViaReset,
			SessionsRevoked:  sessionsRevoked,
			NotificationSent: notified,
		}
		if err := s.events.PublishPasswordChanged(ctx, event); err != nil {
			s.logger.Warn("publish password changed event", zap.Error(err))
		}
	}

	s.logger.Info("password reset completed", zap.String("user_id", user.ID))

	return nil
}

func (s *PasswordResetService) liveToken(ctx context.Context, raw string) (*domain.PasswordResetToken, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return nil, ErrResetTokenInvalid
	}

	token, err := s.tokens.GetPasswordResetByHash(ctx, security.HashToken(raw))
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrResetTokenInvalid
		}
		return nil, fmt.Errorf("lookup reset token: %w", err)
	}

	now := s.now().UTC()
	if token.UsedAt != nil || token.RevokedAt != nil {
		return nil, ErrResetTokenInvalid
	}
	if token.IsExpired(now) {
		return nil, ErrResetTokenExpired
	}

	return token, nil
}
