package usecase

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/avereux/salon-auth/internal/core/domain"
	"github.com/avereux/salon-auth/internal/infra/security"
)

type resetFixture struct {
	service  *PasswordResetService
	sessions *SessionService
	users    *fakeUserRepo
	sessRepo *fakeSessionRepo
	tokens   *fakeTokenRepo
	mailer   *fakeMailer
	events   *fakeEventPublisher
	clock    *time.Time
}

func newResetFixture(t *testing.T, users ...domain.User) *resetFixture {
	t.Helper()

	start := time.Date(2026, 3, 10, 12, 0, 0, 0, time.UTC)
	current := start
	clockFn := func() time.Time { return current }

	cfg := testConfig()
	userRepo := newFakeUserRepo(users...)
	sessRepo := newFakeSessionRepo()
	tokenRepo := newFakeTokenRepo(clockFn)
	mailer := &fakeMailer{}
	events := &fakeEventPublisher{}
	hasher := security.NewPasswordHasher(4)
	sessions := NewSessionService(cfg, userRepo, sessRepo, NewTokenService(cfg), events, nil)
	sessions.WithClock(clockFn)

	service := NewPasswordResetService(cfg, userRepo, tokenRepo, sessions, hasher, mailer, events, nil)
	service.WithClock(clockFn)

	return &resetFixture{
		service:  service,
		sessions: sessions,
		users:    userRepo,
		sessRepo: sessRepo,
		tokens:   tokenRepo,
		mailer:   mailer,
		events:   events,
		clock:    &current,
	}
}

func TestResetRequestUnknownEmailSucceedsSilently(t *testing.T) {
	fix := newResetFixture(t)

	if err := fix.service.Request(context.Background(), "ghost@example.com", nil, nil); err != nil {
		t.Fatalf("expected silent success, got %v", err)
	}
	if _, ok := fix.mailer.lastByKind("password_reset"); ok {
		t.Fatalf("expected no email for unknown account")
	}
}

func TestResetRequestIssuesToken(t *testing.T) {
	user := activeUser(t, "user-1")
	fix := newResetFixture(t, user)

	if err := fix.service.Request(context.Background(), user.Email, nil, nil); err != nil {
		t.Fatalf("Request returned error: %v", err)
	}

	email, ok := fix.mailer.lastByKind("password_reset")
	if !ok {
		t.Fatalf("expected reset email")
	}
	if email.to != user.Email || email.token == "" {
		t.Fatalf("expected raw token delivered to %s", user.Email)
	}

	if err := fix.service.ValidateToken(context.Background(), email.token); err != nil {
		t.Fatalf("expected issued token to validate, got %v", err)
	}
	if fix.events.resetRequested != 1 {
		t.Fatalf("expected reset requested event, got %d", fix.events.resetRequested)
	}
}

func TestResetRequestThrottled(t *testing.T) {
	user := activeUser(t, "user-1")
	fix := newResetFixture(t, user)

	if err := fix.service.Request(context.Background(), user.Email, nil, nil); err != nil {
		t.Fatalf("first Request: %v", err)
	}

	*fix.clock = fix.clock.Add(2 * time.Minute)
	if err := fix.service.Request(context.Background(), user.Email, nil, nil); !errors.Is(err, ErrResetThrottled) {
		t.Fatalf("expected ErrResetThrottled, got %v", err)
	}

	*fix.clock = fix.clock.Add(4 * time.Minute)
	if err := fix.service.Request(context.Background(), user.Email, nil, nil); err != nil {
		t.Fatalf("expected request after throttle window, got %v", err)
	}
}

func TestResetRequestSupersedesPriorToken(t *testing.T) {
	user := activeUser(t, "user-1")
	fix := newResetFixture(t, user)

	if err := fix.service.Request(context.Background(), user.Email, nil, nil); err != nil {
		t.Fatalf("first Request: %v", err)
	}
	first, _ := fix.mailer.lastByKind("password_reset")

	*fix.clock = fix.clock.Add(6 * time.Minute)
	if err := fix.service.Request(context.Background(), user.Email, nil, nil); err != nil {
		t.Fatalf("second Request: %v", err)
	}

	if err := fix.service.ValidateToken(context.Background(), first.token); !errors.Is(err, ErrResetTokenInvalid) {
		t.Fatalf("expected superseded token invalid, got %v", err)
	}
}

func TestResetValidateTokenExpiry(t *testing.T) {
	user := activeUser(t, "user-1")
	fix := newResetFixture(t, user)

	if err := fix.service.Request(context.Background(), user.Email, nil, nil); err != nil {
		t.Fatalf("Request: %v", err)
	}
	email, _ := fix.mailer.lastByKind("password_reset")

	*fix.clock = fix.clock.Add(61 * time.Minute)
	if err := fix.service.ValidateToken(context.Background(), email.token); !errors.Is(err, ErrResetTokenExpired) {
		t.Fatalf("expected ErrResetTokenExpired, got %v", err)
	}

	if err := fix.service.ValidateToken(context.Background(), "never-issued"); !errors.Is(err, ErrResetTokenInvalid) {
		t.Fatalf("expected ErrResetTokenInvalid, got %v", err)
	}
}

func TestResetPasswordCompletes(t *testing.T) {
	user := activeUser(t, "user-1")
	fix := newResetFixture(t, user)

	session := domain.Session{
		ID:               "session-1",
		UserID:           user.ID,
		RefreshTokenHash: "old-hash",
		CreatedAt:        *fix.clock,
		LastActivity:     *fix.clock,
		ExpiresAt:        fix.clock.Add(24 * time.Hour),
	}
	if err := fix.sessRepo.Create(context.Background(), session); err != nil {
		t.Fatalf("seed session: %v", err)
	}

	if err := fix.service.Request(context.Background(), user.Email, nil, nil); err != nil {
		t.Fatalf("Request: %v", err)
	}
	email, _ := fix.mailer.lastByKind("password_reset")

	newPassword := "Fresh-Passw0rd-77!"
	if err := fix.service.Reset(context.Background(), email.token, newPassword, nil); err != nil {
		t.Fatalf("Reset returned error: %v", err)
	}

	stored, _ := fix.users.GetByID(context.Background(), user.ID)
	match, err := security.NewPasswordHasher(4).Verify(newPassword, stored.PasswordHash)
	if err != nil || !match {
		t.Fatalf("expected new password installed (match=%v err=%v)", match, err)
	}
	if !stored.LastPasswordChange.Equal(*fix.clock) {
		t.Fatalf("expected lastPasswordChange bumped")
	}

	// Token is single use.
	if err := fix.service.Reset(context.Background(), email.token, "Another-Passw0rd-88!", nil); !errors.Is(err, ErrResetTokenInvalid) {
		t.Fatalf("expected consumed token rejection, got %v", err)
	}

	sessions, _ := fix.sessRepo.ListByUser(context.Background(), user.ID)
	if len(sessions) != 0 {
		t.Fatalf("expected all sessions revoked, got %d", len(sessions))
	}

	if _, ok := fix.mailer.lastByKind("password_changed"); !ok {
		t.Fatalf("expected password changed notification")
	}
	if fix.events.passwordChanged != 1 {
		t.Fatalf("expected password changed event, got %d", fix.events.passwordChanged)
	}
}

func TestResetPasswordRejectsRecentReuse(t *testing.T) {
	hasher := security.NewPasswordHasher(4)
	user := activeUser(t, "user-1")
	fix := newResetFixture(t, user)

	recent := []string{"Violet-gradient-kayak-11", "Copper-lantern-meadow-22", "Quiet-harbor-sparrow-33"}
	base := fix.clock.Add(-time.Hour)
	for i, password := range recent {
		hash, err := hasher.Hash(password)
		if err != nil {
			t.Fatalf("hash history password: %v", err)
		}
		entry := domain.PasswordHistoryEntry{
			ID:           password,
			UserID:       user.ID,
			PasswordHash: hash,
			SetAt:        base.Add(time.Duration(i) * time.Minute),
		}
		if err := fix.users.AddPasswordHistory(context.Background(), entry, passwordHistoryCap); err != nil {
			t.Fatalf("seed history: %v", err)
		}
	}

	if err := fix.service.Request(context.Background(), user.Email, nil, nil); err != nil {
		t.Fatalf("Request: %v", err)
	}
	email, _ := fix.mailer.lastByKind("password_reset")

	if err := fix.service.Reset(context.Background(), email.token, recent[1], nil); !errors.Is(err, ErrPasswordReused) {
		t.Fatalf("expected ErrPasswordReused, got %v", err)
	}

	if err := fix.service.Reset(context.Background(), email.token, "Maple-orchid-tundra-99", nil); err != nil {
		t.Fatalf("expected non-reused password accepted, got %v", err)
	}

	history, _ := fix.users.ListPasswordHistory(context.Background(), user.ID, 0)
	if len(history) > passwordHistoryCap {
		t.Fatalf("expected history capped at %d, got %d", passwordHistoryCap, len(history))
	}
}

func TestResetPasswordUnlocksAccount(t *testing.T) {
	lockedAt := time.Date(2026, 3, 10, 11, 0, 0, 0, time.UTC)
	user := activeUser(t, "user-1")
	user.Status = domain.UserStatusLocked
	user.LockedAt = &lockedAt
	user.FailedAttempts = 5

	fix := newResetFixture(t, user)

	if err := fix.service.Request(context.Background(), user.Email, nil, nil); err != nil {
		t.Fatalf("Request: %v", err)
	}
	email, _ := fix.mailer.lastByKind("password_reset")

	if err := fix.service.Reset(context.Background(), email.token, "Saffron-glacier-otter-55", nil); err != nil {
		t.Fatalf("Reset returned error: %v", err)
	}

	stored, _ := fix.users.GetByID(context.Background(), user.ID)
	if stored.Status != domain.UserStatusActive {
		t.Fatalf("expected unlocked account, got %s", stored.Status)
	}
	if stored.FailedAttempts != 0 {
		t.Fatalf("expected attempt counter reset, got %d", stored.FailedAttempts)
	}
	if stored.LockedAt != nil {
		t.Fatalf("expected lock metadata cleared")
	}
}
