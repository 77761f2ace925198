package kafka

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/avereux/salon-auth/internal/core/domain"
	"github.com/avereux/salon-auth/internal/core/port"
)

// StubPublisher logs events instead of sending them to Kafka. Useful for
// development environments without a broker.
type StubPublisher struct {
	logger *zap.Logger
}

// NewStubPublisher constructs a development-friendly event publisher.
func NewStubPublisher(logger *zap.Logger) *StubPublisher {
	return &StubPublisher{logger: logger}
}

func (p *StubPublisher) logEvent(eventType, userID string, at time.Time, payload any) {
	if at.IsZero() {
		at = time.Now().UTC()
	}

	p.logger.Info("stub event published",
		zap.String("event_type", eventType),
		zap.String("user_id", userID),
		zap.Time("timestamp", at.UTC()),
		zap.Any("payload", payload),
	)
}

// PublishUserRegistered logs auth.user.registered events.
func (p *StubPublisher) PublishUserRegistered(_ context.Context, event domain.UserRegisteredEvent) error {
	payload := map[string]any{
		"email":         event.Email,
		"name":          event.Name,
		"role":          event.Role,
		"salon_id":      event.SalonID,
		"registered_at": event.RegisteredAt,
	}
	p.logEvent("auth.user.registered", event.UserID, event.RegisteredAt, payload)
	return nil
}

// PublishAccountLocked logs auth.user.locked events.
func (p *StubPublisher) PublishAccountLocked(_ context.Context, event domain.AccountLockedEvent) error {
	payload := map[string]any{
		"locked_at":       event.LockedAt,
		"reason":          event.Reason,
		"failed_attempts": event.FailedAttempts,
		"ip_address":      event.IPAddress,
	}
	p.logEvent("auth.user.locked", event.UserID, event.LockedAt, payload)
	return nil
}

// PublishPasswordChanged logs auth.user.password.changed events.
func (p *StubPublisher) PublishPasswordChanged(_ context.Context, event domain.PasswordChangedEvent) error {
	payload := map[string]any{
		"changed_at":        event.ChangedAt,
		"changed_via":       event.ChangedVia,
		"sessions_revoked":  event.SessionsRevoked,
		"notification_sent": event.NotificationSent,
	}
	p.logEvent("auth.user.password.changed", event.UserID, event.ChangedAt, payload)
	return nil
}

// PublishPasswordResetRequested logs auth.user.password.reset_requested events.
func (p *StubPublisher) PublishPasswordResetRequested(_ context.Context, event domain.PasswordResetRequestedEvent) error {
	payload := map[string]any{
		"request_id":   event.RequestID,
		"requested_at": event.RequestedAt,
		"masked_email": event.MaskedEmail,
		"ip_address":   event.IPAddress,
		"expires_at":   event.ExpiresAt,
	}
	p.logEvent("auth.user.password.reset_requested", event.UserID, event.RequestedAt, payload)
	return nil
}

// PublishTwoFactorEnabled logs auth.user.twofactor.enabled events.
func (p *StubPublisher) PublishTwoFactorEnabled(_ context.Context, event domain.TwoFactorEnabledEvent) error {
	payload := map[string]any{
		"enabled_at":   event.EnabledAt,
		"backup_codes": event.BackupCodes,
	}
	p.logEvent("auth.user.twofactor.enabled", event.UserID, event.EnabledAt, payload)
	return nil
}

// PublishTwoFactorDisabled logs auth.user.twofactor.disabled events.
func (p *StubPublisher) PublishTwoFactorDisabled(_ context.Context, event domain.TwoFactorDisabledEvent) error {
	payload := map[string]any{
		"disabled_at": event.DisabledAt,
	}
	p.logEvent("auth.user.twofactor.disabled", event.UserID, event.DisabledAt, payload)
	return nil
}

// PublishSessionRevoked logs auth.session.revoked events.
func (p *StubPublisher) PublishSessionRevoked(_ context.Context, event domain.SessionRevokedEvent) error {
	payload := map[string]any{
		"session_id": event.SessionID,
		"revoked_at": event.RevokedAt,
		"revoked_by": event.RevokedBy,
		"reason":     event.Reason,
		"ip_address": event.IPAddress,
	}
	p.logEvent("auth.session.revoked", event.UserID, event.RevokedAt, payload)
	return nil
}

var _ port.EventPublisher = (*StubPublisher)(nil)
