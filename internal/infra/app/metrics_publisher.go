package app

import (
	"context"

	"github.com/avereux/salon-auth/internal/core/domain"
	"github.com/avereux/salon-auth/internal/core/port"
	"github.com/avereux/salon-auth/internal/infra/telemetry"
)

// metricsPublisher wraps an event publisher and increments the lockout
// counter whenever an account lock event goes out.
type metricsPublisher struct {
	inner   port.EventPublisher
	metrics *telemetry.Provider
}

func newMetricsPublisher(inner port.EventPublisher, metrics *telemetry.Provider) port.EventPublisher {
	if metrics == nil {
		return inner
	}
	return &metricsPublisher{inner: inner, metrics: metrics}
}

func (p *metricsPublisher) PublishUserRegistered(ctx context.Context, event domain.UserRegisteredEvent) error {
	return p.inner.PublishUserRegistered(ctx, event)
}

func (p *metricsPublisher) PublishAccountLocked(ctx context.Context, event domain.AccountLockedEvent) error {
	p.metrics.RecordLockout()
	return p.inner.PublishAccountLocked(ctx, event)
}

func (p *metricsPublisher) PublishPasswordChanged(ctx context.Context, event domain.PasswordChangedEvent) error {
	return p.inner.PublishPasswordChanged(ctx, event)
}

func (p *metricsPublisher) PublishPasswordResetRequested(ctx context.Context, event domain.PasswordResetRequestedEvent) error {
	return p.inner.PublishPasswordResetRequested(ctx, event)
}

func (p *metricsPublisher) PublishTwoFactorEnabled(ctx context.Context, event domain.TwoFactorEnabledEvent) error {
	return p.inner.PublishTwoFactorEnabled(ctx, event)
}

func (p *metricsPublisher) PublishTwoFactorDisabled(ctx context.Context, event domain.TwoFactorDisabledEvent) error {
	return p.inner.PublishTwoFactorDisabled(ctx, event)
}

func (p *metricsPublisher) PublishSessionRevoked(ctx context.Context, event domain.SessionRevokedEvent) error {
	return p.inner.PublishSessionRevoked(ctx, event)
}
