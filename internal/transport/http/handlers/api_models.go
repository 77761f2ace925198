package handlers

import (
	"time"

	"github.com/gin-gonic/gin"

	"github.com/avereux/salon-auth/internal/core/domain"
	"github.com/avereux/salon-auth/internal/infra/logger"
)

// ErrorResponse represents a generic error payload with a request ID for debugging.
type ErrorResponse struct {
	Error     string `json:"error"`
	Code      string `json:"code,omitempty"`
	RequestID string `json:"request_id,omitempty"`
}

// NewErrorResponse creates an error response with the request ID from context.
func NewErrorResponse(c *gin.Context, errorMsg string) ErrorResponse {
	return ErrorResponse{
		Error:     errorMsg,
		RequestID: logger.RequestIDFrom(c.Request.Context()),
	}
}

// MessageResponse represents a simple message payload.
type MessageResponse struct {
	Message string `json:"message"`
}

// HealthResponse reports service liveness.
type HealthResponse struct {
	Status    string    `json:"status"`
	StartedAt time.Time `json:"started_at"`
}

// UserSummary describes a minimal view of a user returned by the API.
type UserSummary struct {
	ID            string                 `json:"id"`
	Email         string                 `json:"email"`
	Name          string                 `json:"name"`
	Role          domain.UserRole        `json:"role"`
	Status        domain.UserStatus      `json:"status"`
	EmailVerified bool                   `json:"email_verified"`
	TwoFactor     domain.TwoFactorStatus `json:"two_factor_status"`
	SalonID       *string                `json:"salon_id,omitempty"`
	LastLogin     *time.Time             `json:"last_login,omitempty"`
}

func newUserSummary(user domain.User) UserSummary {
	return UserSummary{
		ID:            user.ID,
		Email:         user.Email,
		Name:          user.Name,
		Role:          user.Role,
		Status:        user.Status,
		EmailVerified: user.EmailVerified,
		TwoFactor:     user.TwoFactorStatus,
		SalonID:       user.SalonID,
		LastLogin:     user.LastLogin,
	}
}

// RegisterRequest defines the payload for account creation.
type RegisterRequest struct {
	Email    string  `json:"email" binding:"required"`
	Name     string  `json:"name" binding:"required"`
	Password string  `json:"password" binding:"required"`
	Role     string  `json:"role"`
	SalonID  *string `json:"salon_id"`
}

// RegisterResponse describes the response for a successful registration.
type RegisterResponse struct {
	Message string      `json:"message"`
	User    UserSummary `json:"user"`
}

// LoginRequest defines the payload for the login endpoint.
type LoginRequest struct {
	Email    string `json:"email" binding:"required"`
	Password string `json:"password" binding:"required"`
}

// LoginResponse describes the response returned for a successful login.
type LoginResponse struct {
	AccessToken  string      `json:"access_token"`
	RefreshToken string      `json:"refresh_token"`
	TokenType    string      `json:"token_type"`
	SessionID    string      `json:"session_id"`
	ExpiresAt    time.Time   `json:"expires_at"`
	User         UserSummary `json:"user"`
}

// TwoFactorChallengeResponse is returned when a login requires a second factor.
type TwoFactorChallengeResponse struct {
	Message           string `json:"message"`
	TwoFactorRequired bool   `json:"two_factor_required"`
	UserID            string `json:"user_id"`
}

// TwoFactorLoginRequest completes a two-factor login challenge.
type TwoFactorLoginRequest struct {
	UserID string `json:"user_id" binding:"required"`
	Code   string `json:"code" binding:"required"`
}

// TwoFactorLoginResponse extends the login response with factor metadata.
type TwoFactorLoginResponse struct {
	LoginResponse
	Method               string `json:"method"`
	RemainingBackupCodes *int   `json:"remaining_backup_codes,omitempty"`
}

// RefreshRequest represents the payload to rotate a refresh token.
type RefreshRequest struct {
	RefreshToken string `json:"refresh_token" binding:"required"`
}

// RefreshResponse carries the rotated token pair.
type RefreshResponse struct {
	AccessToken  string    `json:"access_token"`
	RefreshToken string    `json:"refresh_token"`
	TokenType    string    `json:"token_type"`
	SessionID    string    `json:"session_id"`
	ExpiresAt    time.Time `json:"expires_at"`
}

// LogoutAllResponse reports the number of sessions revoked.
type LogoutAllResponse struct {
	Message         string `json:"message"`
	SessionsRevoked int    `json:"sessions_revoked"`
}

// ForgotPasswordRequest initiates a password reset.
type ForgotPasswordRequest struct {
	Email string `json:"email" binding:"required"`
}

// ResetPasswordRequest completes a password reset.
type ResetPasswordRequest struct {
	Token       string `json:"token" binding:"required"`
	NewPassword string `json:"new_password" binding:"required"`
}

// VerifyEmailRequest redeems an email verification token.
type VerifyEmailRequest struct {
	Token string `json:"token" binding:"required"`
}

// RequestVerificationRequest asks for a fresh verification email.
type RequestVerificationRequest struct {
	Email string `json:"email" binding:"required"`
}

// TwoFactorSetupRequest starts TOTP provisioning.
type TwoFactorSetupRequest struct {
	Password string `json:"password" binding:"required"`
}

// TwoFactorSetupResponse returns the provisioning secret.
type TwoFactorSetupResponse struct {
	Secret     string `json:"secret"`
	OTPAuthURL string `json:"otpauth_url"`
}

// TwoFactorConfirmRequest confirms TOTP provisioning with a first code.
type TwoFactorConfirmRequest struct {
	Code string `json:"code" binding:"required"`
}

// TwoFactorConfirmResponse returns the one-time backup code set.
type TwoFactorConfirmResponse struct {
	Message     string   `json:"message"`
	BackupCodes []string `json:"backup_codes"`
}

// TwoFactorDisableRequest disables the second factor.
type TwoFactorDisableRequest struct {
	Password string `json:"password" binding:"required"`
	Code     string `json:"code" binding:"required"`
}

// BackupCodesRequest regenerates the backup code set.
type BackupCodesRequest struct {
	Code string `json:"code" binding:"required"`
}

// BackupCodesResponse returns the regenerated backup code set.
type BackupCodesResponse struct {
	BackupCodes []string `json:"backup_codes"`
}

// SessionView is the transport representation of an active session.
type SessionView struct {
	ID           string    `json:"id"`
	IPAddress    *string   `json:"ip_address,omitempty"`
	UserAgent    *string   `json:"user_agent,omitempty"`
	CreatedAt    time.Time `json:"created_at"`
	LastActivity time.Time `json:"last_activity"`
	ExpiresAt    time.Time `json:"expires_at"`
	IsCurrent    bool      `json:"is_current"`
}

// SessionListResponse wraps the caller's active sessions.
type SessionListResponse struct {
	Sessions []SessionView `json:"sessions"`
	Total    int           `json:"total"`
}

// TrustedIPRequest adds or removes a trusted address.
type TrustedIPRequest struct {
	IP string `json:"ip" binding:"required"`
}

// TrustedIPListResponse lists a user's trusted addresses.
type TrustedIPListResponse struct {
	UserID     string   `json:"user_id"`
	TrustedIPs []string `json:"trusted_ips"`
}
