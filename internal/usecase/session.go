package usecase

import (
	"context"
	"errors"
	"fmt"
	"sort"
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

const refreshTokenBytes = 32

var (
	// ErrInvalidRefreshToken indicates the provided refresh token does not resolve to a session.
	ErrInvalidRefreshToken = errors.New("invalid refresh token")
	// ErrSessionExpired indicates the session elapsed its validity window.
	ErrSessionExpired = errors.New("session expired")
	// ErrSessionNotFound indicates the referenced session does not exist.
	ErrSessionNotFound = errors.New("session not found")
	// ErrNotSessionOwner indicates the caller does not own the session being revoked.
	ErrNotSessionOwner = errors.New("not session owner")
	// ErrInactiveAccount indicates the account is not in the active state.
	ErrInactiveAccount = errors.New("account is not active")
)

// AuthTokens bundles the credentials returned by login and refresh.
type AuthTokens struct {
	AccessToken  string
	RefreshToken string
	SessionID    string
	ExpiresAt    time.Time
}

// SessionInfo is the transport-safe view of one session.
type SessionInfo struct {
	ID           string
	IPAddress    *string
	UserAgent    *string
	CreatedAt    time.Time
	LastActivity time.Time
	ExpiresAt    time.Time
	IsCurrent    bool
}

// SessionService owns session issuance, refresh rotation, and revocation.
type SessionService struct {
	cfg      *config.AppConfig
	users    port.UserRepository
	sessions port.SessionRepository
	tokens   *TokenService
	events   port.EventPublisher
	logger   *zap.Logger
	now      func() time.Time
}

// NewSessionService constructs a SessionService.
func NewSessionService(
	cfg *config.AppConfig,
	users port.UserRepository,
	sessions port.SessionRepository,
	tokens *TokenService,
	events port.EventPublisher,
	log *zap.Logger,
) *SessionService {
	if log == nil {
		log = zap.NewNop()
	}
	return &SessionService{
		cfg:      cfg,
		users:    users,
		sessions: sessions,
		tokens:   tokens,
		events:   events,
		logger:   log,
		now:      time.Now,
	}
}

// WithClock overrides the clock used by the service, used in tests.
func (s *SessionService) WithClock(clock func() time.Time) {
	if clock != nil {
		s.now = clock
		if s.tokens != nil {
			s.tokens.WithClock(clock)
		}
	}
}

// Issue creates a session for an authenticated user and mints the token pair.
func (s *SessionService) Issue(ctx context.Context, user domain.User, ip, userAgent *string) (*AuthTokens, error) {
	secret, err := security.GenerateSecureToken(refreshTokenBytes)
	if err != nil {
		return nil, fmt.Errorf("generate refresh token: %w", err)
	}

	now := s.now().UTC()
	ttl := s.cfg.JWT.SessionTTL
	if ttl <= 0 {
		ttl = 30 * 24 * time.Hour
	}

	session := domain.Session{
		ID:               uuid.NewString(),
		UserID:           user.ID,
		RefreshTokenHash: security.HashToken(secret),
		IPAddress:        ip,
		UserAgent:        userAgent,
		CreatedAt:        now,
		LastActivity:     now,
		ExpiresAt:        now.Add(ttl),
	}

	if err := s.sessions.Create(ctx, session); err != nil {
		return nil, fmt.Errorf("create session: %w", err)
	}

	access, err := s.tokens.Issue(user, session.ID)
	if err != nil {
		return nil, err
	}

	s.logger.Info("session issued",
		zap.String("user_id", user.ID),
		zap.String("session_id", session.ID))

	return &AuthTokens{
		AccessToken:  access,
		RefreshToken: secret,
		SessionID:    session.ID,
		ExpiresAt:    session.ExpiresAt,
	}, nil
}

// Refresh rotates the refresh token and mints a new access token. The prior
// refresh token stops resolving the session after one successful use.
func (s *SessionService) Refresh(ctx context.Context, refreshToken string, ip, userAgent *string) (*AuthTokens, error) {
	if refreshToken == "" {
		return nil, ErrInvalidRefreshToken
	}

	session, err := s.sessions.GetByRefreshTokenHash(ctx, security.HashToken(refreshToken))
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrInvalidRefreshToken
		}
		return nil, fmt.Errorf("lookup session: %w", err)
	}

	now := s.now().UTC()
	if session.IsExpired(now) {
		if err := s.sessions.Delete(ctx, session.ID); err != nil && !errors.Is(err, repository.ErrNotFound) {
			s.logger.Warn("delete expired session", zap.String("session_id", session.ID), zap.Error(err))
		}
		return nil, ErrSessionExpired
	}

	user, err := s.users.GetByID(ctx, session.UserID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrInvalidRefreshToken
		}
		return nil, fmt.Errorf("lookup session owner: %w", err)
	}

	if user.Status != domain.UserStatusActive {
		return nil, ErrInactiveAccount
	}

	secret, err := security.GenerateSecureToken(refreshTokenBytes)
	if err != nil {
		return nil, fmt.Errorf("generate refresh token: %w", err)
	}

	if err := s.sessions.UpdateRefreshToken(ctx, session.ID, security.HashToken(secret), now); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrInvalidRefreshToken
		}
		return nil, fmt.Errorf("rotate refresh token: %w", err)
	}

	access, err := s.tokens.Issue(*user, session.ID)
	if err != nil {
		return nil, err
	}

	return &AuthTokens{
		AccessToken:  access,
		RefreshToken: secret,
		SessionID:    session.ID,
		ExpiresAt:    session.ExpiresAt,
	}, nil
}

// Logout deletes the caller's session.
func (s *SessionService) Logout(ctx context.Context, sessionID string) error {
	if sessionID == "" {
		return ErrSessionNotFound
	}

	if err := s.sessions.Delete(ctx, sessionID); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return ErrSessionNotFound
		}
		return fmt.Errorf("delete session: %w", err)
	}

	return nil
}

// LogoutAll deletes every session for the user and returns the count.
func (s *SessionService) LogoutAll(ctx context.Context, userID string) (int, error) {
	if userID == "" {
		return 0, fmt.Errorf("user id is required")
	}

	count, err := s.sessions.DeleteByUser(ctx, userID)
	if err != nil {
		return 0, fmt.Errorf("delete sessions: %w", err)
	}

	s.logger.Info("all sessions revoked",
		zap.String("user_id", userID),
		zap.Int("count", count))

	return count, nil
}

// RevokeSession deletes one session after verifying the caller owns it.
func (s *SessionService) RevokeSession(ctx context.Context, userID, sessionID string) error {
	session, err := s.sessions.GetByID(ctx, sessionID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return ErrSessionNotFound
		}
		return fmt.Errorf("lookup session: %w", err)
	}

	if session.UserID != userID {
		return ErrNotSessionOwner
	}

	if err := s.sessions.Delete(ctx, sessionID); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return ErrSessionNotFound
		}
		return fmt.Errorf("delete session: %w", err)
	}

	if s.events != nil {
		event := domain.SessionRevokedEvent{
			EventID:   uuid.NewString(),
			SessionID: sessionID,
			UserID:    userID,
			RevokedAt: s.now().UTC(),
			RevokedBy: userID,
			Reason:    "user_revoked",
			IPAddress: session.IPAddress,
		}
		if err := s.events.PublishSessionRevoked(ctx, event); err != nil {
			s.logger.Warn("publish session revoked event",
				zap.String("session_id", logger.MaskString(sessionID)),
				zap.Error(err))
		}
	}

	return nil
}

// ListSessions returns the user's non-expired sessions, most recently active
// first, flagging the caller's current session.
func (s *SessionService) ListSessions(ctx context.Context, userID, currentSessionID string) ([]SessionInfo, error) {
	sessions, err := s.sessions.ListByUser(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("list sessions: %w", err)
	}

	now := s.now().UTC()
	infos := make([]SessionInfo, 0, len(sessions))
	for _, session := range sessions {
		if session.IsExpired(now) {
			continue
		}
		infos = append(infos, SessionInfo{
			ID:           session.ID,
			IPAddress:    session.IPAddress,
			UserAgent:    session.UserAgent,
			CreatedAt:    session.CreatedAt,
			LastActivity: session.LastActivity,
			ExpiresAt:    session.ExpiresAt,
			IsCurrent:    session.ID == currentSessionID,
		})
	}

	sort.Slice(infos, func(i, j int) bool {
		return infos[i].LastActivity.After(infos[j].LastActivity)
	})

	return infos, nil
}

// PurgeExpired removes sessions past their expiry, returning the count.
func (s *SessionService) PurgeExpired(ctx context.Context) (int, error) {
	count, err := s.sessions.DeleteExpired(ctx, s.now().UTC())
	if err != nil {
		return 0, fmt.Errorf("purge expired sessions: %w", err)
	}
	return count, nil
}
