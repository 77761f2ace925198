package email

import (
	"fmt"
	"time"
)

func verificationTemplate(name, link string, expiresAt time.Time) string {
	return fmt.Sprintf(`
<div style="font-family: Arial, sans-serif; max-width: 560px; margin: 0 auto; padding: 24px;">
  <h2 style="color: #1f2937;">Confirm your email address</h2>
  <p>Hi %s,</p>
  <p>Thanks for signing up. Please confirm your email address to activate your account:</p>
  <p style="margin: 28px 0;">
    <a href="%s" style="background: #4F46E5; color: #ffffff; padding: 12px 28px; border-radius: 6px; text-decoration: none;">Confirm email</a>
  </p>
  <p style="color: #6b7280; font-size: 13px;">This link expires on %s. If you did not create an account, you can ignore this email.</p>
</div>`, name, link, expiresAt.UTC().Format("Jan 2, 2006 15:04 MST"))
}

func passwordResetTemplate(name, link string, expiresAt time.Time) string {
	return fmt.Sprintf(`
<div style="font-family: Arial, sans-serif; max-width: 560px; margin: 0 auto; padding: 24px;">
  <h2 style="color: #1f2937;">Reset your password</h2>
  <p>Hi %s,</p>
  <p>We received a request to reset your password. Click the button below to choose a new one:</p>
  <p style="margin: 28px 0;">
    <a href="%s" style="background: #EF4444; color: #ffffff; padding: 12px 28px; border-radius: 6px; text-decoration: none;">Reset password</a>
  </p>
  <p style="color: #6b7280; font-size: 13px;">This link expires on %s. If you did not request a reset, you can ignore this email.</p>
</div>`, name, link, expiresAt.UTC().Format("Jan 2, 2006 15:04 MST"))
}

func passwordChangedTemplate(name string, changedAt time.Time) string {
	return fmt.Sprintf(`
<div style="font-family: Arial, sans-serif; max-width: 560px; margin: 0 auto; padding: 24px;">
  <h2 style="color: #1f2937;">Your password was changed</h2>
  <p>Hi %s,</p>
  <p>Your password was changed on %s.</p>
  <p style="color: #6b7280; font-size: 13px;">If this was not you, contact support immediately and reset your password.</p>
</div>`, name, changedAt.UTC().Format("Jan 2, 2006 15:04 MST"))
}
