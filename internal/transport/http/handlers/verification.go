package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/avereux/salon-auth/internal/transport/http/middleware"
	"github.com/avereux/salon-auth/internal/usecase"
)

// VerificationHandler exposes the email verification flow.
type VerificationHandler struct {
	verification *usecase.VerificationService
}

// NewVerificationHandler constructs VerificationHandler.
func NewVerificationHandler(verification *usecase.VerificationService) *VerificationHandler {
	return &VerificationHandler{verification: verification}
}

// Request godoc
// @Summary Request a fresh verification email
// @Description Always responds with success so account existence is not revealed.
// @Tags Verification
// @Accept json
// @Produce json
// @Param request body RequestVerificationRequest true "Verification request payload"
// @Success 200 {object} MessageResponse
// @Failure 400 {object} ErrorResponse
// @Failure 409 {object} ErrorResponse
// @Failure 429 {object} ErrorResponse
// @Router /api/v1/auth/verify-email/request [post]
func (h *VerificationHandler) Request(c *gin.Context) {
	var req RequestVerificationRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, NewErrorResponse(c, "invalid verification request payload"))
		return
	}

	err := h.verification.Request(c.Request.Context(), req.Email,
		middleware.ClientIPPtr(c), middleware.UserAgentPtr(c))
	if err != nil {
		RespondWithMappedError(c, err, []ErrorCase{
			{Err: usecase.ErrEmailAlreadyVerified, Status: http.StatusConflict, Message: "email is already verified", Code: "ALREADY_VERIFIED"},
			{Err: usecase.ErrVerificationThrottled, Status: http.StatusTooManyRequests, Message: "a verification email was sent recently, try again later", Code: "VERIFICATION_THROTTLED"},
		}, http.StatusInternalServerError, "verification request failed")
		return
	}

	c.JSON(http.StatusOK, MessageResponse{
		Message: "If an account exists for that address, a verification email has been sent.",
	})
}

// Confirm godoc
// @Summary Redeem an email verification token
// @Description Marks the email verified and activates pending accounts.
// @Tags Verification
// @Accept json
// @Produce json
// @Param request body VerifyEmailRequest true "Verification payload"
// @Success 200 {object} MessageResponse
// @Failure 400 {object} ErrorResponse
// @Failure 409 {object} ErrorResponse
// @Failure 410 {object} ErrorResponse
// @Router /api/v1/auth/verify-email/confirm [post]
func (h *VerificationHandler) Confirm(c *gin.Context) {
	var req VerifyEmailRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, NewErrorResponse(c, "invalid verification payload"))
		return
	}

	if err := h.verification.Confirm(c.Request.Context(), req.Token); err != nil {
		RespondWithMappedError(c, err, []ErrorCase{
			{Err: usecase.ErrVerificationTokenInvalid, Status: http.StatusBadRequest, Message: "verification token is invalid", Code: "VERIFICATION_TOKEN_INVALID"},
			{Err: usecase.ErrVerificationTokenExpired, Status: http.StatusGone, Message: "verification token has expired", Code: "VERIFICATION_TOKEN_EXPIRED"},
			{Err: usecase.ErrEmailAlreadyVerified, Status: http.StatusConflict, Message: "email is already verified", Code: "ALREADY_VERIFIED"},
		}, http.StatusInternalServerError, "email verification failed")
		return
	}

	c.JSON(http.StatusOK, MessageResponse{Message: "Email verified"})
}
