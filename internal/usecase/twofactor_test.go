package usecase

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/pquerna/otp"
	"github.com/pquerna/otp/totp"

	"github.com/avereux/salon-auth/internal/core/domain"
	"github.com/avereux/salon-auth/internal/infra/security"
)

func totpCode(t *testing.T, secret string, at time.Time) string {
	t.Helper()
	code, err := totp.GenerateCodeCustom(secret, at, totp.ValidateOpts{
		Period:    30,
		Skew:      2,
		Digits:    otp.DigitsSix,
		Algorithm: otp.AlgorithmSHA1,
	})
	if err != nil {
		t.Fatalf("generate totp code: %v", err)
	}
	return code
}

type twoFactorFixture struct {
	service *TwoFactorService
	users   *fakeUserRepo
	events  *fakeEventPublisher
	now     time.Time
}

func newTwoFactorFixture(t *testing.T, users ...domain.User) *twoFactorFixture {
	t.Helper()

	now := time.Date(2026, 3, 10, 12, 0, 0, 0, time.UTC)
	cfg := testConfig()
	userRepo := newFakeUserRepo(users...)
	events := &fakeEventPublisher{}
	hasher := security.NewPasswordHasher(4)
	verifier := security.NewTOTPVerifier(cfg.TwoFactor.Issuer, cfg.TwoFactor.Skew)
	service := NewTwoFactorService(cfg, userRepo, verifier, hasher, events, nil)
	service.WithClock(fixedClock(now))

	return &twoFactorFixture{service: service, users: userRepo, events: events, now: now}
}

func TestTwoFactorSetupStoresPendingSecret(t *testing.T) {
	user := activeUser(t, "user-1")
	fix := newTwoFactorFixture(t, user)

	setup, err := fix.service.Setup(context.Background(), user.ID, testPassword)
	if err != nil {
		t.Fatalf("Setup returned error: %v", err)
	}
	if setup.Secret == "" || setup.OTPAuthURL == "" {
		t.Fatalf("expected provisioning artifacts, got %+v", setup)
	}

	stored, _ := fix.users.GetByID(context.Background(), user.ID)
	if stored.TwoFactorStatus != domain.TwoFactorPending {
		t.Fatalf("expected pending status, got %s", stored.TwoFactorStatus)
	}
	if stored.TwoFactorSecret == nil || *stored.TwoFactorSecret != setup.Secret {
		t.Fatalf("expected secret persisted")
	}
}

func TestTwoFactorSetupGuards(t *testing.T) {
	secret := "JBSWY3DPEHPK3PXP"

	enabled := activeUser(t, "enabled")
	enabled.TwoFactorStatus = domain.TwoFactorEnabled
	enabled.TwoFactorSecret = &secret

	unverified := activeUser(t, "unverified")
	unverified.EmailVerified = false

	pendingStatus := activeUser(t, "pending")
	pendingStatus.Status = domain.UserStatusPending

	fix := newTwoFactorFixture(t, enabled, unverified, pendingStatus)

	if _, err := fix.service.Setup(context.Background(), "enabled", testPassword); !errors.Is(err, ErrTwoFactorAlreadyEnabled) {
		t.Fatalf("expected ErrTwoFactorAlreadyEnabled, got %v", err)
	}
	if _, err := fix.service.Setup(context.Background(), "unverified", testPassword); !errors.Is(err, ErrEmailNotVerified) {
		t.Fatalf("expected ErrEmailNotVerified, got %v", err)
	}
	if _, err := fix.service.Setup(context.Background(), "pending", testPassword); !errors.Is(err, ErrInactiveAccount) {
		t.Fatalf("expected ErrInactiveAccount, got %v", err)
	}
	if _, err := fix.service.Setup(context.Background(), "enabled", "wrong"); !errors.Is(err, ErrTwoFactorAlreadyEnabled) {
		t.Fatalf("status check precedes password check, got %v", err)
	}
	if _, err := fix.service.Setup(context.Background(), "ghost", testPassword); !errors.Is(err, ErrUserNotFound) {
		t.Fatalf("expected ErrUserNotFound, got %v", err)
	}
}

func TestTwoFactorConfirmPromotesToEnabled(t *testing.T) {
	user := activeUser(t, "user-1")
	fix := newTwoFactorFixture(t, user)

	setup, err := fix.service.Setup(context.Background(), user.ID, testPassword)
	if err != nil {
		t.Fatalf("Setup: %v", err)
	}

	codes, err := fix.service.Confirm(context.Background(), user.ID, totpCode(t, setup.Secret, fix.now))
	if err != nil {
		t.Fatalf("Confirm returned error: %v", err)
	}
	if len(codes) != 10 {
		t.Fatalf("expected 10 backup codes, got %d", len(codes))
	}

	stored, _ := fix.users.GetByID(context.Background(), user.ID)
	if stored.TwoFactorStatus != domain.TwoFactorEnabled {
		t.Fatalf("expected enabled status, got %s", stored.TwoFactorStatus)
	}
	if len(stored.BackupCodeHashes) != 10 {
		t.Fatalf("expected 10 stored hashes, got %d", len(stored.BackupCodeHashes))
	}
	if fix.events.twoFAEnabled != 1 {
		t.Fatalf("expected enabled event, got %d", fix.events.twoFAEnabled)
	}
}

func TestTwoFactorConfirmRejectsBadCode(t *testing.T) {
	user := activeUser(t, "user-1")
	fix := newTwoFactorFixture(t, user)

	if _, err := fix.service.Setup(context.Background(), user.ID, testPassword); err != nil {
		t.Fatalf("Setup: %v", err)
	}

	if _, err := fix.service.Confirm(context.Background(), user.ID, "000000"); !errors.Is(err, ErrInvalidTwoFactorCode) {
		t.Fatalf("expected ErrInvalidTwoFactorCode, got %v", err)
	}

	stored, _ := fix.users.GetByID(context.Background(), user.ID)
	if stored.TwoFactorStatus != domain.TwoFactorPending {
		t.Fatalf("expected setup to stay pending, got %s", stored.TwoFactorStatus)
	}
}

func TestTwoFactorVerifyLoginTOTP(t *testing.T) {
	secret := "JBSWY3DPEHPK3PXP"
	user := activeUser(t, "user-1")
	user.TwoFactorStatus = domain.TwoFactorEnabled
	user.TwoFactorSecret = &secret

	fix := newTwoFactorFixture(t, user)

	result, err := fix.service.VerifyLogin(context.Background(), user.ID, totpCode(t, secret, fix.now))
	if err != nil {
		t.Fatalf("VerifyLogin returned error: %v", err)
	}
	if result.Method != "totp" {
		t.Fatalf("expected totp method, got %s", result.Method)
	}
}

func TestTwoFactorBackupCodeSingleUse(t *testing.T) {
	secret := "JBSWY3DPEHPK3PXP"
	codes, err := security.GenerateBackupCodes(10)
	if err != nil {
		t.Fatalf("generate backup codes: %v", err)
	}

	user := activeUser(t, "user-1")
	user.TwoFactorStatus = domain.TwoFactorEnabled
	user.TwoFactorSecret = &secret
	user.BackupCodeHashes = security.HashBackupCodes(codes)

	fix := newTwoFactorFixture(t, user)

	result, err := fix.service.VerifyLogin(context.Background(), user.ID, codes[0])
	if err != nil {
		t.Fatalf("VerifyLogin with backup code: %v", err)
	}
	if result.Method != "backup_code" {
		t.Fatalf("expected backup_code method, got %s", result.Method)
	}
	if result.RemainingBackupCodes != 9 {
		t.Fatalf("expected 9 remaining codes, got %d", result.RemainingBackupCodes)
	}

	if _, err := fix.service.VerifyLogin(context.Background(), user.ID, codes[0]); !errors.Is(err, ErrInvalidTwoFactorCode) {
		t.Fatalf("expected consumed code to be rejected, got %v", err)
	}

	stored, _ := fix.users.GetByID(context.Background(), user.ID)
	if len(stored.BackupCodeHashes) != 9 {
		t.Fatalf("expected 9 stored hashes, got %d", len(stored.BackupCodeHashes))
	}
}

func TestTwoFactorDisableRequiresTOTP(t *testing.T) {
	secret := "JBSWY3DPEHPK3PXP"
	codes, err := security.GenerateBackupCodes(10)
	if err != nil {
		t.Fatalf("generate backup codes: %v", err)
	}

	user := activeUser(t, "user-1")
	user.TwoFactorStatus = domain.TwoFactorEnabled
	user.TwoFactorSecret = &secret
	user.BackupCodeHashes = security.HashBackupCodes(codes)

	fix := newTwoFactorFixture(t, user)

	// Backup codes are not an acceptable factor for disabling.
	if err := fix.service.Disable(context.Background(), user.ID, testPassword, codes[0]); !errors.Is(err, ErrInvalidTwoFactorCode) {
		t.Fatalf("expected backup code rejection, got %v", err)
	}

	if err := fix.service.Disable(context.Background(), user.ID, "wrong", totpCode(t, secret, fix.now)); !errors.Is(err, ErrInvalidCredentials) {
		t.Fatalf("expected ErrInvalidCredentials, got %v", err)
	}

	if err := fix.service.Disable(context.Background(), user.ID, testPassword, totpCode(t, secret, fix.now)); err != nil {
		t.Fatalf("Disable returned error: %v", err)
	}

	stored, _ := fix.users.GetByID(context.Background(), user.ID)
	if stored.TwoFactorStatus != domain.TwoFactorDisabled {
		t.Fatalf("expected disabled status, got %s", stored.TwoFactorStatus)
	}
	if stored.TwoFactorSecret != nil || len(stored.BackupCodeHashes) != 0 {
		t.Fatalf("expected secret and backup codes cleared")
	}
	if fix.events.twoFADisabled != 1 {
		t.Fatalf("expected disabled event, got %d", fix.events.twoFADisabled)
	}
}

func TestTwoFactorRegenerateBackupCodes(t *testing.T) {
	secret := "JBSWY3DPEHPK3PXP"
	oldCodes, err := security.GenerateBackupCodes(10)
	if err != nil {
		t.Fatalf("generate backup codes: %v", err)
	}

	user := activeUser(t, "user-1")
	user.TwoFactorStatus = domain.TwoFactorEnabled
	user.TwoFactorSecret = &secret
	user.BackupCodeHashes = security.HashBackupCodes(oldCodes)

	fix := newTwoFactorFixture(t, user)

	if _, err := fix.service.RegenerateBackupCodes(context.Background(), user.ID, oldCodes[0]); !errors.Is(err, ErrInvalidTwoFactorCode) {
		t.Fatalf("expected backup code rejection for regenerate, got %v", err)
	}

	newCodes, err := fix.service.RegenerateBackupCodes(context.Background(), user.ID, totpCode(t, secret, fix.now))
	if err != nil {
		t.Fatalf("RegenerateBackupCodes returned error: %v", err)
	}
	if len(newCodes) != 10 {
		t.Fatalf("expected 10 codes, got %d", len(newCodes))
	}

	if _, err := fix.service.VerifyLogin(context.Background(), user.ID, oldCodes[1]); !errors.Is(err, ErrInvalidTwoFactorCode) {
		t.Fatalf("expected old backup code to be invalid after regeneration, got %v", err)
	}

	result, err := fix.service.VerifyLogin(context.Background(), user.ID, newCodes[0])
	if err != nil {
		t.Fatalf("expected new backup code to verify, got %v", err)
	}
	if result.RemainingBackupCodes != 9 {
		t.Fatalf("expected 9 remaining, got %d", result.RemainingBackupCodes)
	}
}
