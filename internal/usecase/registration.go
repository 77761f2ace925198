package usecase

import (
	"context"
	"errors"
	"fmt"
	"net/mail"
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

const verificationTokenBytes = 32

var (
	// ErrEmailTaken indicates the email is already registered.
	ErrEmailTaken = errors.New("email already registered")
	// ErrInvalidEmail indicates the supplied email address is not parseable.
	ErrInvalidEmail = errors.New("invalid email address")
	// ErrWeakPassword wraps password policy violations.
	ErrWeakPassword = errors.New("password does not meet policy")
)

// RegisterInput carries the payload for account creation.
type RegisterInput struct {
	Email     string
	Name      string
	Password  string
	Role      domain.UserRole
	SalonID   *string
	IP        *string
	UserAgent *string
}

// RegistrationService creates accounts and seeds the verification flow.
type RegistrationService struct {
	cfg    *config.AppConfig
	users  port.UserRepository
	tokens port.TokenRepository
	hasher *security.PasswordHasher
	mailer port.Mailer
	events port.EventPublisher
	logger *zap.Logger
	now    func() time.Time
}

// NewRegistrationService constructs a RegistrationService.
func NewRegistrationService(
	cfg *config.AppConfig,
	users port.UserRepository,
	tokens port.TokenRepository,
	hasher *security.PasswordHasher,
	mailer port.Mailer,
	events port.EventPublisher,
	log *zap.Logger,
) *RegistrationService {
	if log == nil {
		log = zap.NewNop()
	}
	return &RegistrationService{
		cfg:    cfg,
		users:  users,
		tokens: tokens,
		hasher: hasher,
		mailer: mailer,
		events: events,
		logger: log,
		now:    time.Now,
	}
}

// WithClock overrides the clock used by the service, used in tests.
func (s *RegistrationService) WithClock(clock func() time.Time) {
	if clock != nil {
		s.now = clock
	}
}

// Register creates a pending account and issues its verification token.
func (s *RegistrationService) Register(ctx context.Context, input RegisterInput) (*domain.User, error) {
	email := strings.ToLower(strings.TrimSpace(input.Email))
	if email == "" {
		return nil, ErrInvalidEmail
	}
	if _, err := mail.ParseAddress(email); err != nil {
		return nil, ErrInvalidEmail
	}

	name := strings.TrimSpace(input.Name)
	if name == "" {
		return nil, fmt.Errorf("name is required")
	}

	role := input.Role
	if role == "" {
		role = domain.RoleCustomer
	}

	validator := security.PasswordValidatorWithContext(email, name)
	if err := validator.Validate(input.Password); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrWeakPassword, err)
	}

	if _, err := s.users.GetByEmail(ctx, email); err == nil {
		return nil, ErrEmailTaken
	} else if !errors.Is(err, repository.ErrNotFound) {
		return nil, fmt.Errorf("lookup user: %w", err)
	}

	hash, err := s.hasher.Hash(input.Password)
	if err != nil {
		return nil, fmt.Errorf("hash password: %w", err)
	}

	now := s.now().UTC()
	user := domain.User{
		ID:                 uuid.NewString(),
		SalonID:            input.SalonID,
		Email:              email,
		Name:               name,
		Role:               role,
		PasswordHash:       hash,
		Status:             domain.UserStatusPending,
		EmailVerified:      false,
		TwoFactorStatus:    domain.TwoFactorDisabled,
		RegisteredAt:       now,
		LastPasswordChange: now,
	}

	if err := s.users.Create(ctx, user); err != nil {
		if errors.Is(err, repository.ErrDuplicate) {
			return nil, ErrEmailTaken
		}
		return nil, fmt.Errorf("create user: %w", err)
	}

	entry := domain.PasswordHistoryEntry{
		ID:           uuid.NewString(),
		UserID:       user.ID,
		PasswordHash: hash,
		SetAt:        now,
	}
	if err := s.users.AddPasswordHistory(ctx, entry, passwordHistoryCap); err != nil {
		return nil, fmt.Errorf("seed password history: %w", err)
	}

	if err := s.issueVerification(ctx, user, input.IP, input.UserAgent); err != nil {
		s.logger.Warn("issue verification token",
			zap.String("email", logger.MaskEmail(email)),
			zap.Error(err))
	}

	if s.events != nil {
		event := domain.UserRegisteredEvent{
			EventID:      uuid.NewString(),
			UserID:       user.ID,
			Email:        logger.MaskEmail(email),
			Name:         name,
			Role:         string(role),
			SalonID:      input.SalonID,
			RegisteredAt: now,
		}
		if err := s.events.PublishUserRegistered(ctx, event); err != nil {
			s.logger.Warn("publish user registered event", zap.Error(err))
		}
	}

	s.logger.Info("user registered",
		zap.String("user_id", user.ID),
		zap.String("email", logger.MaskEmail(email)))

	sanitized := user.Sanitized()
	return &sanitized, nil
}

func (s *RegistrationService) issueVerification(ctx context.Context, user domain.User, ip, userAgent *string) error {
	secret, err := security.GenerateSecureToken(verificationTokenBytes)
	if err != nil {
		return fmt.Errorf("generate verification token: %w", err)
	}

	now := s.now().UTC()
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
