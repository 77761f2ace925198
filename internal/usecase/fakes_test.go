package usecase

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/avereux/salon-auth/internal/core/domain"
	"github.com/avereux/salon-auth/internal/infra/config"
	"github.com/avereux/salon-auth/internal/repository"
)

func testConfig() *config.AppConfig {
	return &config.AppConfig{
		App: config.AppSettings{Name: "salon-auth-test", Env: "test"},
		JWT: config.JWTSettings{
			Secret:         "test-secret-0123456789abcdef",
			AccessTokenTTL: 15 * time.Minute,
			SessionTTL:     30 * 24 * time.Hour,
		},
		Bcrypt:  config.BcryptSettings{Cost: 4},
		Lockout: config.LockoutSettings{MaxFailedAttempts: 5, LockDuration: 30 * time.Minute},
		TwoFactor: config.TwoFactorSettings{
			Issuer:          "Salon Test",
			Skew:            2,
			BackupCodeCount: 10,
		},
		PasswordReset: config.PasswordResetSettings{TokenTTL: time.Hour, Throttle: 5 * time.Minute},
		Verification:  config.VerificationSettings{TokenTTL: 24 * time.Hour, Throttle: 5 * time.Minute},
		TrustedIP:     config.TrustedIPSettings{Enabled: true, MaxEntries: 3},
	}
}

func fixedClock(at time.Time) func() time.Time {
	return func() time.Time { return at }
}

type fakeUserRepo struct {
	mu      sync.Mutex
	users   map[string]domain.User
	history map[string][]domain.PasswordHistoryEntry
}

func newFakeUserRepo(users ...domain.User) *fakeUserRepo {
	repo := &fakeUserRepo{
		users:   make(map[string]domain.User),
		history: make(map[string][]domain.PasswordHistoryEntry),
	}
	for _, user := range users {
		repo.users[user.ID] = user
	}
	return repo
}

func (r *fakeUserRepo) Create(_ context.Context, user domain.User) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, existing := range r.users {
		if existing.Email == user.Email {
			return repository.ErrDuplicate
		}
	}
	r.users[user.ID] = user
	return nil
}

func (r *fakeUserRepo) GetByID(_ context.Context, id string) (*domain.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if user, ok := r.users[id]; ok {
		copy := user
		return &copy, nil
	}
	return nil, repository.ErrNotFound
}

func (r *fakeUserRepo) GetByEmail(_ context.Context, email string) (*domain.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, user := range r.users {
		if user.Email == email {
			copy := user
			return &copy, nil
		}
	}
	return nil, repository.ErrNotFound
}

func (r *fakeUserRepo) Update(_ context.Context, user domain.User) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.users[user.ID]; !ok {
		return repository.ErrNotFound
	}
	r.users[user.ID] = user
	return nil
}

func (r *fakeUserRepo) ListPasswordHistory(_ context.Context, userID string, limit int) ([]domain.PasswordHistoryEntry, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	entries := r.history[userID]
	sorted := make([]domain.PasswordHistoryEntry, len(entries))
	copy(sorted, entries)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i].SetAt.After(sorted[j].SetAt) })
	if limit > 0 && len(sorted) > limit {
		sorted = sorted[:limit]
	}
	return sorted, nil
}

func (r *fakeUserRepo) AddPasswordHistory(_ context.Context, entry domain.PasswordHistoryEntry, keep int) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	entries := append(r.history[entry.UserID], entry)
	sort.Slice(entries, func(i, j int) bool { return entries[i].SetAt.After(entries[j].SetAt) })
	if keep > 0 && len(entries) > keep {
		entries = entries[:keep]
	}
	r.history[entry.UserID] = entries
	return nil
}

type fakeSessionRepo struct {
	mu       sync.Mutex
	sessions map[string]domain.Session
}

func newFakeSessionRepo() *fakeSessionRepo {
	return &fakeSessionRepo{sessions: make(map[string]domain.Session)}
}

func (r *fakeSessionRepo) Create(_ context.Context, session domain.Session) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.sessions[session.ID] = session
	return nil
}

func (r *fakeSessionRepo) GetByID(_ context.Context, sessionID string) (*domain.Session, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if session, ok := r.sessions[sessionID]; ok {
		copy := session
		return &copy, nil
	}
	return nil, repository.ErrNotFound
}

func (r *fakeSessionRepo) GetByRefreshTokenHash(_ context.Context, hash string) (*domain.Session, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, session := range r.sessions {
		if session.RefreshTokenHash == hash {
			copy := session
			return &copy, nil
		}
	}
	return nil, repository.ErrNotFound
}

func (r *fakeSessionRepo) ListByUser(_ context.Context, userID string) ([]domain.Session, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var sessions []domain.Session
	for _, session := range r.sessions {
		if session.UserID == userID {
			sessions = append(sessions, session)
		}
	}
	return sessions, nil
}

func (r *fakeSessionRepo) UpdateRefreshToken(_ context.Context, sessionID string, hash string, lastActivity time.Time) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	session, ok := r.sessions[sessionID]
	if !ok {
		return repository.ErrNotFound
	}
	session.RefreshTokenHash = hash
	session.LastActivity = lastActivity
	r.sessions[sessionID] = session
	return nil
}

func (r *fakeSessionRepo) Delete(_ context.Context, sessionID string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.sessions[sessionID]; !ok {
		return repository.ErrNotFound
	}
	delete(r.sessions, sessionID)
	return nil
}

func (r *fakeSessionRepo) DeleteByUser(_ context.Context, userID string) (int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	count := 0
	for id, session := range r.sessions {
		if session.UserID == userID {
			delete(r.sessions, id)
			count++
		}
	}
	return count, nil
}

func (r *fakeSessionRepo) DeleteExpired(_ context.Context, before time.Time) (int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	count := 0
	for id, session := range r.sessions {
		if session.ExpiresAt.Before(before) {
			delete(r.sessions, id)
			count++
		}
	}
	return count, nil
}

type fakeTokenRepo struct {
	mu            sync.Mutex
	verifications map[string]domain.VerificationToken
	resets        map[string]domain.PasswordResetToken
	now           func() time.Time
}

func newFakeTokenRepo(now func() time.Time) *fakeTokenRepo {
	if now == nil {
		now = time.Now
	}
	return &fakeTokenRepo{
		verifications: make(map[string]domain.VerificationToken),
		resets:        make(map[string]domain.PasswordResetToken),
		now:           now,
	}
}

func (r *fakeTokenRepo) CreateVerification(_ context.Context, token domain.VerificationToken) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.verifications[token.ID] = token
	return nil
}

func (r *fakeTokenRepo) GetVerificationByHash(_ context.Context, hash string) (*domain.VerificationToken, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, token := range r.verifications {
		if token.TokenHash == hash {
			copy := token
			return &copy, nil
		}
	}
	return nil, repository.ErrNotFound
}

func (r *fakeTokenRepo) LatestVerificationForUser(_ context.Context, userID string) (*domain.VerificationToken, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var latest *domain.VerificationToken
	for _, token := range r.verifications {
		if token.UserID != userID {
			continue
		}
		if latest == nil || token.CreatedAt.After(latest.CreatedAt) {
			copy := token
			latest = &copy
		}
	}
	if latest == nil {
		return nil, repository.ErrNotFound
	}
	return latest, nil
}

func (r *fakeTokenRepo) ConsumeVerification(_ context.Context, id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	token, ok := r.verifications[id]
	if !ok || token.UsedAt != nil {
		return repository.ErrNotFound
	}
	usedAt := r.now().UTC()
	token.UsedAt = &usedAt
	r.verifications[id] = token
	return nil
}

func (r *fakeTokenRepo) RevokeVerificationsForUser(_ context.Context, userID string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	revokedAt := r.now().UTC()
	for id, token := range r.verifications {
		if token.UserID == userID && token.UsedAt == nil && token.RevokedAt == nil {
			token.RevokedAt = &revokedAt
			r.verifications[id] = token
		}
	}
	return nil
}

func (r *fakeTokenRepo) CreatePasswordReset(_ context.Context, token domain.PasswordResetToken) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.resets[token.ID] = token
	return nil
}

func (r *fakeTokenRepo) GetPasswordResetByHash(_ context.Context, hash string) (*domain.PasswordResetToken, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, token := range r.resets {
		if token.TokenHash == hash {
			copy := token
			return &copy, nil
		}
	}
	return nil, repository.ErrNotFound
}

func (r *fakeTokenRepo) LatestPasswordResetForUser(_ context.Context, userID string) (*domain.PasswordResetToken, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var latest *domain.PasswordResetToken
	for _, token := range r.resets {
		if token.UserID != userID {
			continue
		}
		if latest == nil || token.CreatedAt.After(latest.CreatedAt) {
			copy := token
			latest = &copy
		}
	}
	if latest == nil {
		return nil, repository.ErrNotFound
	}
	return latest, nil
}

func (r *fakeTokenRepo) ConsumePasswordReset(_ context.Context, id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	token, ok := r.resets[id]
	if !ok || token.UsedAt != nil {
		return repository.ErrNotFound
	}
	usedAt := r.now().UTC()
	token.UsedAt = &usedAt
	r.resets[id] = token
	return nil
}

func (r *fakeTokenRepo) RevokePasswordResetsForUser(_ context.Context, userID string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	revokedAt := r.now().UTC()
	for id, token := range r.resets {
		if token.UserID == userID && token.UsedAt == nil && token.RevokedAt == nil {
			token.RevokedAt = &revokedAt
			r.resets[id] = token
		}
	}
	return nil
}

type fakeEventPublisher struct {
	mu              sync.Mutex
	registered      int
	locked          int
	passwordChanged int
	resetRequested  int
	twoFAEnabled    int
	twoFADisabled   int
	sessionRevoked  int
}

func (p *fakeEventPublisher) PublishUserRegistered(context.Context, domain.UserRegisteredEvent) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.registered++
	return nil
}

func (p *fakeEventPublisher) PublishAccountLocked(context.Context, domain.AccountLockedEvent) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.locked++
	return nil
}

func (p *fakeEventPublisher) PublishPasswordChanged(context.Context, domain.PasswordChangedEvent) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.passwordChanged++
	return nil
}

func (p *fakeEventPublisher) PublishPasswordResetRequested(context.Context, domain.PasswordResetRequestedEvent) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.resetRequested++
	return nil
}

func (p *fakeEventPublisher) PublishTwoFactorEnabled(context.Context, domain.TwoFactorEnabledEvent) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.twoFAEnabled++
	return nil
}

func (p *fakeEventPublisher) PublishTwoFactorDisabled(context.Context, domain.TwoFactorDisabledEvent) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.twoFADisabled++
	return nil
}

func (p *fakeEventPublisher) PublishSessionRevoked(context.Context, domain.SessionRevokedEvent) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.sessionRevoked++
	return nil
}

type sentEmail struct {
	kind  string
	to    string
	token string
}

type fakeMailer struct {
	mu   sync.Mutex
	sent []sentEmail
}

func (m *fakeMailer) SendEmailVerification(_ context.Context, email, _ string, token string, _ time.Time) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.sent = append(m.sent, sentEmail{kind: "verification", to: email, token: token})
	return nil
}

func (m *fakeMailer) SendPasswordReset(_ context.Context, email, _ string, token string, _ time.Time) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.sent = append(m.sent, sentEmail{kind: "password_reset", to: email, token: token})
	return nil
}

func (m *fakeMailer) SendPasswordChanged(_ context.Context, email, _ string, _ time.Time) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.sent = append(m.sent, sentEmail{kind: "password_changed", to: email})
	return nil
}

func (m *fakeMailer) lastByKind(kind string) (sentEmail, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for i := len(m.sent) - 1; i >= 0; i-- {
		if m.sent[i].kind == kind {
			return m.sent[i], true
		}
	}
	return sentEmail{}, false
}
