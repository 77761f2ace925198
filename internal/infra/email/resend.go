package email

import (
	"context"
	"fmt"
	"time"

	"github.com/resend/resend-go/v2"
	"go.uber.org/zap"

	"github.com/avereux/salon-auth/internal/core/port"
	"github.com/avereux/salon-auth/internal/infra/config"
	"github.com/avereux/salon-auth/internal/infra/logger"
)

// ResendMailer delivers transactional auth emails through the Resend API.
type ResendMailer struct {
	client *resend.Client
	from   string
	origin string
	logger *zap.Logger
}

// NewResendMailer builds a mailer from email settings. The API key and the
// sender address are required.
func NewResendMailer(cfg config.EmailSettings, log *zap.Logger) (*ResendMailer, error) {
	if cfg.APIKey == "" {
		return nil, fmt.Errorf("resend api key is required")
	}
	if cfg.From == "" {
		return nil, fmt.Errorf("sender address is required")
	}

	return &ResendMailer{
		client: resend.NewClient(cfg.APIKey),
		from:   cfg.From,
		origin: cfg.FrontendOrigin,
		logger: log,
	}, nil
}

func (m *ResendMailer) SendEmailVerification(ctx context.Context, email, name, token string, expiresAt time.Time) error {
	link := fmt.Sprintf("%s/verify-email?token=%s", m.origin, token)
	params := &resend.SendEmailRequest{
		From:    m.from,
		To:      []string{email},
		Subject: "Confirm your email address",
		Html:    verificationTemplate(name, link, expiresAt),
	}

	sent, err := m.client.Emails.SendWithContext(ctx, params)
	if err != nil {
		return fmt.Errorf("send verification email: %w", err)
	}

	m.logger.Info("verification email sent",
		zap.String("email", logger.MaskEmail(email)),
		zap.String("message_id", sent.Id))
	return nil
}

func (m *ResendMailer) SendPasswordReset(ctx context.Context, email, name, token string, expiresAt time.Time) error {
	link := fmt.Sprintf("%s/reset-password?token=%s", m.origin, token)
	params := &resend.SendEmailRequest{
		From:    m.from,
		To:      []string{email},
		Subject: "Reset your password",
		Html:    passwordResetTemplate(name, link, expiresAt),
	}

	sent, err := m.client.Emails.SendWithContext(ctx, params)
	if err != nil {
		return fmt.Errorf("send password reset email: %w", err)
	}

	m.logger.Info("password reset email sent",
		zap.String("email", logger.MaskEmail(email)),
		zap.String("message_id", sent.Id))
	return nil
}

func (m *ResendMailer) SendPasswordChanged(ctx context.Context, email, name string, changedAt time.Time) error {
	params := &resend.SendEmailRequest{
		From:    m.from,
		To:      []string{email},
		Subject: "Your password was changed",
		Html:    passwordChangedTemplate(name, changedAt),
	}

	sent, err := m.client.Emails.SendWithContext(ctx, params)
	if err != nil {
		return fmt.Errorf("send password changed email: %w", err)
	}

	m.logger.Info("password changed email sent",
		zap.String("email", logger.MaskEmail(email)),
		zap.String("message_id", sent.Id))
	return nil
}

var _ port.Mailer = (*ResendMailer)(nil)

// NoopMailer logs instead of delivering. Used when no API key is configured,
// typically in local development.
type NoopMailer struct {
	logger *zap.Logger
}

func NewNoopMailer(log *zap.Logger) *NoopMailer {
	return &NoopMailer{logger: log}
}

func (m *NoopMailer) SendEmailVerification(_ context.Context, email, _ string, token string, _ time.Time) error {
	m.logger.Info("mailer disabled, skipping verification email",
		zap.String("email", logger.MaskEmail(email)),
		zap.String("token", logger.MaskString(token)))
	return nil
}

func (m *NoopMailer) SendPasswordReset(_ context.Context, email, _ string, token string, _ time.Time) error {
	m.logger.Info("mailer disabled, skipping password reset email",
		zap.String("email", logger.MaskEmail(email)),
		zap.String("token", logger.MaskString(token)))
	return nil
}

func (m *NoopMailer) SendPasswordChanged(_ context.Context, email, _ string, _ time.Time) error {
	m.logger.Info("mailer disabled, skipping password changed email",
		zap.String("email", logger.MaskEmail(email)))
	return nil
}

var _ port.Mailer = (*NoopMailer)(nil)
