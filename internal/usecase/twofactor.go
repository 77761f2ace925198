package usecase

import (
	"context"
	"errors"
	"fmt"
	"time"

	uuid "github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/avereux/salon-auth/internal/core/domain"
	"github.com/avereux/salon-auth/internal/core/port"
	"github.com/avereux/salon-auth/internal/infra/config"
	"github.com/avereux/salon-auth/internal/infra/security"
	"github.com/avereux/salon-auth/internal/repository"
)

const (
	twoFactorMethodTOTP       = "totp"
	twoFactorMethodBackupCode = "backup_code"
)

var (
	// ErrUserNotFound indicates the referenced user does not exist.
	ErrUserNotFound = errors.New("user not found")
	// ErrTwoFactorAlreadyEnabled indicates 2FA setup was attempted on an enabled account.
	ErrTwoFactorAlreadyEnabled = errors.New("two-factor already enabled")
	// ErrTwoFactorNotEnabled indicates a 2FA operation requires the enabled state.
	ErrTwoFactorNotEnabled = errors.New("two-factor not enabled")
	// ErrTwoFactorNotPending indicates confirmation was attempted without a pending setup.
	ErrTwoFactorNotPending = errors.New("two-factor setup not pending")
	// ErrInvalidTwoFactorCode indicates neither TOTP nor a backup code matched.
	ErrInvalidTwoFactorCode = errors.New("invalid two-factor code")
)

// TwoFactorSetup carries the provisioning artifacts returned during setup.
type TwoFactorSetup struct {
	Secret     string
	OTPAuthURL string
}

// TwoFactorLoginResult reports how the second factor was satisfied. A
// backup-code match is a successful authentication that also warns about the
// shrinking recovery set.
type TwoFactorLoginResult struct {
	Method               string
	RemainingBackupCodes int
}

// TwoFactorService owns the TOTP and backup-code lifecycle.
type TwoFactorService struct {
	cfg    *config.AppConfig
	users  port.UserRepository
	totp   *security.TOTPVerifier
	hasher *security.PasswordHasher
	events port.EventPublisher
	logger *zap.Logger
	now    func() time.Time
}

// NewTwoFactorService constructs a TwoFactorService.
func NewTwoFactorService(
	cfg *config.AppConfig,
	users port.UserRepository,
	totp *security.TOTPVerifier,
	hasher *security.PasswordHasher,
	events port.EventPublisher,
	log *zap.Logger,
) *TwoFactorService {
	if log == nil {
		log = zap.NewNop()
	}
	return &TwoFactorService{
		cfg:    cfg,
		users:  users,
		totp:   totp,
		hasher: hasher,
		events: events,
		logger: log,
		now:    time.Now,
	}
}

// WithClock overrides the clock used by the service, used in tests.
func (s *TwoFactorService) WithClock(clock func() time.Time) {
	if clock != nil {
		s.now = clock
		s.totp.WithClock(clock)
	}
}

// Setup provisions a pending TOTP secret after re-verifying the password.
func (s *TwoFactorService) Setup(ctx context.Context, userID, password string) (*TwoFactorSetup, error) {
	user, err := s.getUser(ctx, userID)
	if err != nil {
		return nil, err
	}

	if user.Status != domain.UserStatusActive {
		return nil, ErrInactiveAccount
	}
	if !user.EmailVerified {
		return nil, ErrEmailNotVerified
	}
	if user.TwoFactorStatus == domain.TwoFactorEnabled {
		return nil, ErrTwoFactorAlreadyEnabled
	}

	ok, err := s.hasher.Verify(password, user.PasswordHash)
	if err != nil {
		return nil, fmt.Errorf("verify password: %w", err)
	}
	if !ok {
		return nil, ErrInvalidCredentials
	}

	provisioning, err := s.totp.GenerateSecret(user.Email)
	if err != nil {
		return nil, err
	}

	user.TwoFactorStatus = domain.TwoFactorPending
	user.TwoFactorSecret = &provisioning.Secret
	if err := s.users.Update(ctx, *user); err != nil {
		return nil, fmt.Errorf("update user: %w", err)
	}

	return &TwoFactorSetup{
		Secret:     provisioning.Secret,
		OTPAuthURL: provisioning.URL,
	}, nil
}

// Confirm promotes a pending setup to enabled and mints the backup codes.
func (s *TwoFactorService) Confirm(ctx context.Context, userID, code string) ([]string, error) {
	user, err := s.getUser(ctx, userID)
	if err != nil {
		return nil, err
	}

	if user.TwoFactorStatus != domain.TwoFactorPending || user.TwoFactorSecret == nil {
		return nil, ErrTwoFactorNotPending
	}

	if !s.totp.Verify(code, *user.TwoFactorSecret) {
		return nil, ErrInvalidTwoFactorCode
	}

	codes, err := security.GenerateBackupCodes(s.backupCodeCount())
	if err != nil {
		return nil, err
	}

	user.TwoFactorStatus = domain.TwoFactorEnabled
	user.BackupCodeHashes = security.HashBackupCodes(codes)
	if err := s.users.Update(ctx, *user); err != nil {
		return nil, fmt.Errorf("update user: %w", err)
	}

	if s.events != nil {
		event := domain.TwoFactorEnabledEvent{
			EventID:     uuid.NewString(),
			UserID:      user.ID,
			EnabledAt:   s.now().UTC(),
			BackupCodes: len(codes),
		}
		if err := s.events.PublishTwoFactorEnabled(ctx, event); err != nil {
			s.logger.Warn("publish two-factor enabled event", zap.Error(err))
		}
	}

	s.logger.Info("two-factor enabled", zap.String("user_id", user.ID))

	return codes, nil
}

// VerifyLogin validates the second factor during login. TOTP is tried first;
// a hashed backup-code match consumes the code permanently.
func (s *TwoFactorService) VerifyLogin(ctx context.Context, userID, code string) (*TwoFactorLoginResult, error) {
	user, err := s.getUser(ctx, userID)
	if err != nil {
		return nil, err
	}

	if user.TwoFactorStatus != domain.TwoFactorEnabled || user.TwoFactorSecret == nil {
		return nil, ErrTwoFactorNotEnabled
	}

	if s.totp.Verify(code, *user.TwoFactorSecret) {
		return &TwoFactorLoginResult{
			Method:               twoFactorMethodTOTP,
			RemainingBackupCodes: len(user.BackupCodeHashes),
		}, nil
	}

	hash := security.HashToken(security.NormalizeBackupCode(code))
	remaining, consumed := user.ConsumeBackupCode(hash)
	if !consumed {
		return nil, ErrInvalidTwoFactorCode
	}

	if err := s.users.Update(ctx, *user); err != nil {
		return nil, fmt.Errorf("update user: %w", err)
	}

	s.logger.Info("backup code consumed",
		zap.String("user_id", user.ID),
		zap.Int("remaining", remaining))

	return &TwoFactorLoginResult{
		Method:               twoFactorMethodBackupCode,
		RemainingBackupCodes: remaining,
	}, nil
}

// Disable reverts 2FA after verifying both the password and a TOTP code.
// Backup codes are not accepted here.
func (s *TwoFactorService) Disable(ctx context.Context, userID, password, code string) error {
	user, err := s.getUser(ctx, userID)
	if err != nil {
		return err
	}

	if user.TwoFactorStatus != domain.TwoFactorEnabled || user.TwoFactorSecret == nil {
		return ErrTwoFactorNotEnabled
	}

	ok, err := s.hasher.Verify(password, user.PasswordHash)
	if err != nil {
		return fmt.Errorf("verify password: %w", err)
	}
	if !ok {
		return ErrInvalidCredentials
	}

	if !s.totp.Verify(code, *user.TwoFactorSecret) {
		return ErrInvalidTwoFactorCode
	}

	user.TwoFactorStatus = domain.TwoFactorDisabled
	user.TwoFactorSecret = nil
	user.BackupCodeHashes = nil
	if err := s.users.Update(ctx, *user); err != nil {
		return fmt.Errorf("update user: %w", err)
	}

	if s.events != nil {
		event := domain.TwoFactorDisabledEvent{
			EventID:    uuid.NewString(),
			UserID:     user.ID,
			DisabledAt: s.now().UTC(),
		}
		if err := s.events.PublishTwoFactorDisabled(ctx, event); err != nil {
			s.logger.Warn("publish two-factor disabled event", zap.Error(err))
		}
	}

	s.logger.Info("two-factor disabled", zap.String("user_id", user.ID))

	return nil
}

// RegenerateBackupCodes replaces the full backup-code set after a TOTP check.
func (s *TwoFactorService) RegenerateBackupCodes(ctx context.Context, userID, code string) ([]string, error) {
	user, err := s.getUser(ctx, userID)
	if err != nil {
		return nil, err
	}

	if user.TwoFactorStatus != domain.TwoFactorEnabled || user.TwoFactorSecret == nil {
		return nil, ErrTwoFactorNotEnabled
	}

	if !s.totp.Verify(code, *user.TwoFactorSecret) {
		return nil, ErrInvalidTwoFactorCode
	}

	codes, err := security.GenerateBackupCodes(s.backupCodeCount())
	if err != nil {
		return nil, err
	}

	user.BackupCodeHashes = security.HashBackupCodes(codes)
	if err := s.users.Update(ctx, *user); err != nil {
		return nil, fmt.Errorf("update user: %w", err)
	}

	return codes, nil
}

func (s *TwoFactorService) getUser(ctx context.Context, userID string) (*domain.User, error) {
	if userID == "" {
		return nil, fmt.Errorf("user id is required")
	}

	user, err := s.users.GetByID(ctx, userID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrUserNotFound
		}
		return nil, fmt.Errorf("lookup user: %w", err)
	}

	return user, nil
}

func (s *TwoFactorService) backupCodeCount() int {
	if s.cfg.TwoFactor.BackupCodeCount > 0 {
		return s.cfg.TwoFactor.BackupCodeCount
	}
	return 10
}
