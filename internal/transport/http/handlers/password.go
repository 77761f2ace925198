package handlers

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/avereux/salon-auth/internal/transport/http/middleware"
	"github.com/avereux/salon-auth/internal/usecase"
)

// PasswordHandler exposes the password reset flow.
type PasswordHandler struct {
	reset *usecase.PasswordResetService
}

// NewPasswordHandler constructs PasswordHandler.
func NewPasswordHandler(reset *usecase.PasswordResetService) *PasswordHandler {
	return &PasswordHandler{reset: reset}
}

// Forgot godoc
// @Summary Request a password reset email
// @Description Always responds with success so account existence is not revealed.
// @Tags Password
// @Accept json
// @Produce json
// @Param request body ForgotPasswordRequest true "Forgot password payload"
// @Success 200 {object} MessageResponse
// @Failure 400 {object} ErrorResponse
// @Failure 429 {object} ErrorResponse
// @Failure 500 {object} ErrorResponse
// @Router /api/v1/auth/forgot-password [post]
func (h *PasswordHandler) Forgot(c *gin.Context) {
	var req ForgotPasswordRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, NewErrorResponse(c, "invalid forgot password payload"))
		return
	}

	err := h.reset.Request(c.Request.Context(), req.Email,
		middleware.ClientIPPtr(c), middleware.UserAgentPtr(c))
	if err != nil {
		RespondWithMappedError(c, err, []ErrorCase{
			{Err: usecase.ErrResetThrottled, Status: http.StatusTooManyRequests, Message: "a reset email was sent recently, try again later", Code: "RESET_THROTTLED"},
		}, http.StatusInternalServerError, "password reset request failed")
		return
	}

	c.JSON(http.StatusOK, MessageResponse{
		Message: "If an account exists for that address, a reset email has been sent.",
	})
}

// Validate godoc
// @Summary Check a password reset token
// @Description Reports whether the supplied token is still redeemable.
// @Tags Password
// @Produce json
// @Param token query string true "Reset token"
// @Success 200 {object} MessageResponse
// @Failure 400 {object} ErrorResponse
// @Failure 410 {object} ErrorResponse
// @Router /api/v1/auth/reset-password/validate [get]
func (h *PasswordHandler) Validate(c *gin.Context) {
	token := strings.TrimSpace(c.Query("token"))
	if token == "" {
		c.JSON(http.StatusBadRequest, NewErrorResponse(c, "token is required"))
		return
	}

	if err := h.reset.ValidateToken(c.Request.Context(), token); err != nil {
		RespondWithMappedError(c, err, []ErrorCase{
			{Err: usecase.ErrResetTokenInvalid, Status: http.StatusBadRequest, Message: "reset token is invalid", Code: "RESET_TOKEN_INVALID"},
			{Err: usecase.ErrResetTokenExpired, Status: http.StatusGone, Message: "reset token has expired", Code: "RESET_TOKEN_EXPIRED"},
		}, http.StatusInternalServerError, "reset token validation failed")
		return
	}

	c.JSON(http.StatusOK, MessageResponse{Message: "Token is valid"})
}

// Reset godoc
// @Summary Complete a password reset
// @Description Installs the new password, revokes sessions, and consumes the token.
// @Tags Password
// @Accept json
// @Produce json
// @Param request body ResetPasswordRequest true "Reset payload"
// @Success 200 {object} MessageResponse
// @Failure 400 {object} ErrorResponse
// @Failure 410 {object} ErrorResponse
// @Failure 500 {object} ErrorResponse
// @Router /api/v1/auth/reset-password [post]
func (h *PasswordHandler) Reset(c *gin.Context) {
	var req ResetPasswordRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, NewErrorResponse(c, "invalid reset payload"))
		return
	}

	err := h.reset.Reset(c.Request.Context(), req.Token, req.NewPassword, middleware.ClientIPPtr(c))
	if err != nil {
		RespondWithMappedError(c, err, []ErrorCase{
			{Err: usecase.ErrResetTokenInvalid, Status: http.StatusBadRequest, Message: "reset token is invalid", Code: "RESET_TOKEN_INVALID"},
			{Err: usecase.ErrResetTokenExpired, Status: http.StatusGone, Message: "reset token has expired", Code: "RESET_TOKEN_EXPIRED"},
			{Err: usecase.ErrWeakPassword, Status: http.StatusBadRequest, Message: "password does not meet requirements", Code: "WEAK_PASSWORD"},
			{Err: usecase.ErrPasswordReused, Status: http.StatusBadRequest, Message: "new password was used recently", Code: "PASSWORD_REUSED"},
		}, http.StatusInternalServerError, "password reset failed")
		return
	}

	c.JSON(http.StatusOK, MessageResponse{Message: "Password has been reset"})
}
