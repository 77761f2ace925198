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
	// ErrInvalidCredentials indicates the provided email or password are incorrect.
	ErrInvalidCredentials = errors.New("invalid credentials")
	// ErrEmailNotVerified indicates the account has not confirmed its email yet.
	ErrEmailNotVerified = errors.New("email not verified")
	// ErrIPNotTrusted indicates the request IP is outside the account's trusted list.
	ErrIPNotTrusted = errors.New("ip address not trusted")
)

// AccountLockedError reports a login rejected because the account is locked.
type AccountLockedError struct {
	RetryAfter time.Duration
}

func (e *AccountLockedError) Error() string {
	return fmt.Sprintf("account locked, retry in %s", e.RetryAfter.Round(time.Second))
}

// FailedLoginError reports an invalid credential with the attempts left before lockout.
type FailedLoginError struct {
	RemainingAttempts int
}

func (e *FailedLoginError) Error() string {
	return fmt.Sprintf("invalid credentials, %d attempts remaining", e.RemainingAttempts)
}

func (e *FailedLoginError) Unwrap() error {
	return ErrInvalidCredentials
}

// LoginInput carries the payload for credential authentication.
type LoginInput struct {
	Email     string
	Password  string
	IP        *string
	UserAgent *string
}

// LoginResult is the outcome of a successful credential check. When the
// account has 2FA enabled no session is issued; the caller must complete the
// second factor first.
type LoginResult struct {
	User              domain.User
	Tokens            *AuthTokens
	TwoFactorRequired bool
}

// AuthService coordinates the login state machine.
type AuthService struct {
	cfg       *config.AppConfig
	users     port.UserRepository
	sessions  *SessionService
	twoFactor *TwoFactorService
	hasher    *security.PasswordHasher
	events    port.EventPublisher
	logger    *zap.Logger
	now       func() time.Time
}

// NewAuthService constructs an AuthService.
func NewAuthService(
	cfg *config.AppConfig,
	users port.UserRepository,
	sessions *SessionService,
	twoFactor *TwoFactorService,
	hasher *security.PasswordHasher,
	events port.EventPublisher,
	log *zap.Logger,
) *AuthService {
	if log == nil {
		log = zap.NewNop()
	}
	return &AuthService{
		cfg:       cfg,
		users:     users,
		sessions:  sessions,
		twoFactor: twoFactor,
		hasher:    hasher,
		events:    events,
		logger:    log,
		now:       time.Now,
	}
}

// WithClock overrides the clock used by the service, used in tests.
func (s *AuthService) WithClock(clock func() time.Time) {
	if clock != nil {
		s.now = clock
	}
}

// Login validates credentials and either issues a session or returns a
// two-factor challenge. Account existence is never revealed beyond the
// generic invalid-credentials error.
func (s *AuthService) Login(ctx context.Context, input LoginInput) (*LoginResult, error) {
	email := strings.ToLower(strings.TrimSpace(input.Email))
	if email == "" || input.Password == "" {
		return nil, ErrInvalidCredentials
	}

	user, err := s.users.GetByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrInvalidCredentials
		}
		return nil, fmt.Errorf("lookup user: %w", err)
	}

	now := s.now().UTC()

	switch user.Status {
	case domain.UserStatusSuspended, domain.UserStatusDeleted:
		return nil, ErrInactiveAccount
	case domain.UserStatusLocked:
		if !user.LockExpired(now, s.cfg.Lockout.LockDuration) {
			retry := s.cfg.Lockout.LockDuration
			if user.LockedAt != nil {
				retry = user.LockedAt.Add(s.cfg.Lockout.LockDuration).Sub(now)
			}
			return nil, &AccountLockedError{RetryAfter: retry}
		}
		// The lock window elapsed; the account re-enters active before
		// this attempt is evaluated.
		user.Unlock()
		user.ResetFailedLogins()
	}

	if err := admitIP(s.cfg, *user, input.IP); err != nil {
		return nil, err
	}

	ok, err := s.hasher.Verify(input.Password, user.PasswordHash)
	if err != nil {
		return nil, fmt.Errorf("verify password: %w", err)
	}
	if !ok {
		return nil, s.registerFailure(ctx, user, input.IP, now)
	}

	if user.Status == domain.UserStatusPending || !user.EmailVerified {
		return nil, ErrEmailNotVerified
	}
	if user.Status != domain.UserStatusActive {
		return nil, ErrInactiveAccount
	}

	user.ResetFailedLogins()
	lastLogin := now
	user.LastLogin = &lastLogin
	if err := s.users.Update(ctx, *user); err != nil {
		return nil, fmt.Errorf("update user: %w", err)
	}

	if user.TwoFactorStatus == domain.TwoFactorEnabled {
		return &LoginResult{User: user.Sanitized(), TwoFactorRequired: true}, nil
	}

	tokens, err := s.sessions.Issue(ctx, *user, input.IP, input.UserAgent)
	if err != nil {
		return nil, err
	}

	s.logger.Info("login succeeded",
		zap.String("user_id", user.ID),
		zap.String("email", logger.MaskEmail(email)))

	return &LoginResult{User: user.Sanitized(), Tokens: tokens}, nil
}

// CompleteTwoFactorLogin validates the second factor and issues the session.
// Completion is keyed by user ID and code alone, not bound to the preceding
// password step; the endpoint shares the login rate-limit bucket.
// TODO: bind completion to the password step with a short-lived challenge token.
func (s *AuthService) CompleteTwoFactorLogin(ctx context.Context, userID, code string, ip, userAgent *string) (*LoginResult, *TwoFactorLoginResult, error) {
	user, err := s.users.GetByID(ctx, userID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, nil, ErrInvalidCredentials
		}
		return nil, nil, fmt.Errorf("lookup user: %w", err)
	}

	if user.Status != domain.UserStatusActive {
		return nil, nil, ErrInactiveAccount
	}

	verification, err := s.twoFactor.VerifyLogin(ctx, userID, code)
	if err != nil {
		return nil, nil, err
	}

	tokens, err := s.sessions.Issue(ctx, *user, ip, userAgent)
	if err != nil {
		return nil, nil, err
	}

	s.logger.Info("two-factor login succeeded",
		zap.String("user_id", user.ID),
		zap.String("method", verification.Method))

	return &LoginResult{User: user.Sanitized(), Tokens: tokens}, verification, nil
}

// HandleFailedLogin applies one failed attempt against the account identified
// by email. Unknown accounts report a nil outcome without error.
func (s *AuthService) HandleFailedLogin(ctx context.Context, email string) (*domain.FailedLoginOutcome, error) {
	email = strings.ToLower(strings.TrimSpace(email))
	if email == "" {
		return nil, fmt.Errorf("email is required")
	}

	user, err := s.users.GetByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, nil
		}
		return nil, fmt.Errorf("lookup user: %w", err)
	}

	now := s.now().UTC()
	outcome := user.RegisterFailedLogin(now, s.cfg.Lockout.MaxFailedAttempts, s.cfg.Lockout.LockDuration)
	if err := s.users.Update(ctx, *user); err != nil {
		return nil, fmt.Errorf("update user: %w", err)
	}

	return &outcome, nil
}

func (s *AuthService) registerFailure(ctx context.Context, user *domain.User, ip *string, now time.Time) error {
	wasLocked := user.Status == domain.UserStatusLocked
	outcome := user.RegisterFailedLogin(now, s.cfg.Lockout.MaxFailedAttempts, s.cfg.Lockout.LockDuration)

	if err := s.users.Update(ctx, *user); err != nil {
		return fmt.Errorf("update user: %w", err)
	}

	if outcome.Locked && !wasLocked {
		s.logger.Warn("account locked",
			zap.String("user_id", user.ID),
			zap.Int("failed_attempts", user.FailedAttempts))

		if s.events != nil {
			reason := ""
			if user.LockReason != nil {
				reason = *user.LockReason
			}
			event := domain.AccountLockedEvent{
				EventID:        uuid.NewString(),
				UserID:         user.ID,
				LockedAt:       now,
				Reason:         reason,
				FailedAttempts: user.FailedAttempts,
				IPAddress:      ip,
			}
			if err := s.events.PublishAccountLocked(ctx, event); err != nil {
				s.logger.Warn("publish account locked event", zap.Error(err))
			}
		}
	}

	if outcome.Locked {
		return &AccountLockedError{RetryAfter: outcome.RetryAfter}
	}

	return &FailedLoginError{RemainingAttempts: outcome.RemainingAttempts}
}
