package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/avereux/salon-auth/internal/transport/http/middleware"
	"github.com/avereux/salon-auth/internal/usecase"
)

// TwoFactorHandler exposes TOTP lifecycle endpoints for authenticated users.
type TwoFactorHandler struct {
	twoFactor *usecase.TwoFactorService
}

// NewTwoFactorHandler constructs TwoFactorHandler.
func NewTwoFactorHandler(twoFactor *usecase.TwoFactorService) *TwoFactorHandler {
	return &TwoFactorHandler{twoFactor: twoFactor}
}

// Setup godoc
// @Summary Begin TOTP provisioning
// @Description Generates a secret and provisioning URL after re-verifying the password.
// @Tags TwoFactor
// @Accept json
// @Produce json
// @Param Authorization header string true "Bearer access token"
// @Param request body TwoFactorSetupRequest true "Setup payload"
// @Success 200 {object} TwoFactorSetupResponse
// @Failure 400 {object} ErrorResponse
// @Failure 401 {object} ErrorResponse
// @Failure 409 {object} ErrorResponse
// @Router /api/v1/auth/2fa/setup [post]
func (h *TwoFactorHandler) Setup(c *gin.Context) {
	userID, ok := middleware.GetAuthenticatedUserID(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, NewErrorResponse(c, "invalid authentication"))
		return
	}

	var req TwoFactorSetupRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, NewErrorResponse(c, "invalid setup payload"))
		return
	}

	setup, err := h.twoFactor.Setup(c.Request.Context(), userID, req.Password)
	if err != nil {
		RespondWithMappedError(c, err, h.commonCases(), http.StatusInternalServerError, "two-factor setup failed")
		return
	}

	c.JSON(http.StatusOK, TwoFactorSetupResponse{
		Secret:     setup.Secret,
		OTPAuthURL: setup.OTPAuthURL,
	})
}

// Confirm godoc
// @Summary Confirm TOTP provisioning
// @Description Verifies the first code and returns single-use backup codes.
// @Tags TwoFactor
// @Accept json
// @Produce json
// @Param Authorization header string true "Bearer access token"
// @Param request body TwoFactorConfirmRequest true "Confirm payload"
// @Success 200 {object} TwoFactorConfirmResponse
// @Failure 400 {object} ErrorResponse
// @Failure 401 {object} ErrorResponse
// @Failure 409 {object} ErrorResponse
// @Router /api/v1/auth/2fa/confirm [post]
func (h *TwoFactorHandler) Confirm(c *gin.Context) {
	userID, ok := middleware.GetAuthenticatedUserID(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, NewErrorResponse(c, "invalid authentication"))
		return
	}

	var req TwoFactorConfirmRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, NewErrorResponse(c, "invalid confirm payload"))
		return
	}

	codes, err := h.twoFactor.Confirm(c.Request.Context(), userID, req.Code)
	if err != nil {
		RespondWithMappedError(c, err, h.commonCases(), http.StatusInternalServerError, "two-factor confirmation failed")
		return
	}

	c.JSON(http.StatusOK, TwoFactorConfirmResponse{
		Message:     "Two-factor authentication enabled. Store these backup codes securely; they are shown only once.",
		BackupCodes: codes,
	})
}

// Disable godoc
// @Summary Disable two-factor authentication
// @Description Requires both the account password and a current TOTP code.
// @Tags TwoFactor
// @Accept json
// @Produce json
// @Param Authorization header string true "Bearer access token"
// @Param request body TwoFactorDisableRequest true "Disable payload"
// @Success 200 {object} MessageResponse
// @Failure 400 {object} ErrorResponse
// @Failure 401 {object} ErrorResponse
// @Router /api/v1/auth/2fa/disable [post]
func (h *TwoFactorHandler) Disable(c *gin.Context) {
	userID, ok := middleware.GetAuthenticatedUserID(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, NewErrorResponse(c, "invalid authentication"))
		return
	}

	var req TwoFactorDisableRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, NewErrorResponse(c, "invalid disable payload"))
		return
	}

	if err := h.twoFactor.Disable(c.Request.Context(), userID, req.Password, req.Code); err != nil {
		RespondWithMappedError(c, err, h.commonCases(), http.StatusInternalServerError, "two-factor disable failed")
		return
	}

	c.JSON(http.StatusOK, MessageResponse{Message: "Two-factor authentication disabled"})
}

// RegenerateBackupCodes godoc
// @Summary Regenerate backup codes
// @Description Replaces the backup code set after verifying a current TOTP code.
// @Tags TwoFactor
// @Accept json
// @Produce json
// @Param Authorization header string true "Bearer access token"
// @Param request body BackupCodesRequest true "Regenerate payload"
// @Success 200 {object} BackupCodesResponse
// @Failure 400 {object} ErrorResponse
// @Failure 401 {object} ErrorResponse
// @Router /api/v1/auth/2fa/backup-codes [post]
func (h *TwoFactorHandler) RegenerateBackupCodes(c *gin.Context) {
	userID, ok := middleware.GetAuthenticatedUserID(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, NewErrorResponse(c, "invalid authentication"))
		return
	}

	var req BackupCodesRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, NewErrorResponse(c, "invalid regenerate payload"))
		return
	}

	codes, err := h.twoFactor.RegenerateBackupCodes(c.Request.Context(), userID, req.Code)
	if err != nil {
		RespondWithMappedError(c, err, h.commonCases(), http.StatusInternalServerError, "backup code regeneration failed")
		return
	}

	c.JSON(http.StatusOK, BackupCodesResponse{BackupCodes: codes})
}

func (h *TwoFactorHandler) commonCases() []ErrorCase {
	return []ErrorCase{
		{Err: usecase.ErrUserNotFound, Status: http.StatusNotFound, Message: "user not found", Code: "USER_NOT_FOUND"},
		{Err: usecase.ErrInvalidCredentials, Status: http.StatusUnauthorized, Message: "invalid credentials", Code: "INVALID_CREDENTIALS"},
		{Err: usecase.ErrInvalidTwoFactorCode, Status: http.StatusUnauthorized, Message: "invalid two-factor code", Code: "INVALID_2FA_CODE"},
		{Err: usecase.ErrTwoFactorAlreadyEnabled, Status: http.StatusConflict, Message: "two-factor authentication is already enabled", Code: "2FA_ALREADY_ENABLED"},
		{Err: usecase.ErrTwoFactorNotPending, Status: http.StatusConflict, Message: "two-factor setup has not been started", Code: "2FA_NOT_PENDING"},
		{Err: usecase.ErrTwoFactorNotEnabled, Status: http.StatusBadRequest, Message: "two-factor authentication is not enabled", Code: "2FA_NOT_ENABLED"},
		{Err: usecase.ErrEmailNotVerified, Status: http.StatusForbidden, Message: "email address not verified", Code: "EMAIL_NOT_VERIFIED"},
		{Err: usecase.ErrInactiveAccount, Status: http.StatusForbidden, Message: "account is not active", Code: "ACCOUNT_INACTIVE"},
	}
}
