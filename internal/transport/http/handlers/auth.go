package handlers

import (
	"errors"
	"math"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/avereux/salon-auth/internal/core/domain"
	"github.com/avereux/salon-auth/internal/infra/telemetry"
	"github.com/avereux/salon-auth/internal/transport/http/middleware"
	"github.com/avereux/salon-auth/internal/usecase"
)

// AuthHandler exposes authentication endpoints.
type AuthHandler struct {
	auth         *usecase.AuthService
	registration *usecase.RegistrationService
	sessions     *usecase.SessionService
	metrics      *telemetry.Provider
	logger       *zap.Logger
}

// NewAuthHandler constructs AuthHandler.
func NewAuthHandler(
	auth *usecase.AuthService,
	registration *usecase.RegistrationService,
	sessions *usecase.SessionService,
	metrics *telemetry.Provider,
	log *zap.Logger,
) *AuthHandler {
	if log == nil {
		log = zap.NewNop()
	}
	return &AuthHandler{
		auth:         auth,
		registration: registration,
		sessions:     sessions,
		metrics:      metrics,
		logger:       log,
	}
}

// Register godoc
// @Summary Register a new user account
// @Description Creates a pending account and sends an email verification link.
// @Tags Authentication
// @Accept json
// @Produce json
// @Param request body RegisterRequest true "Registration payload"
// @Success 201 {object} RegisterResponse
// @Failure 400 {object} ErrorResponse
// @Failure 409 {object} ErrorResponse
// @Failure 500 {object} ErrorResponse
// @Router /api/v1/auth/register [post]
func (h *AuthHandler) Register(c *gin.Context) {
	if h.registration == nil {
		c.JSON(http.StatusServiceUnavailable, NewErrorResponse(c, "registration service unavailable"))
		return
	}

	var req RegisterRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, NewErrorResponse(c, "invalid registration payload"))
		return
	}

	role := domain.UserRole(req.Role)
	switch role {
	case "":
		role = domain.RoleCustomer
	case domain.RoleCustomer, domain.RoleStaff:
	default:
		c.JSON(http.StatusBadRequest, NewErrorResponse(c, "unsupported role"))
		return
	}

	user, err := h.registration.Register(c.Request.Context(), usecase.RegisterInput{
		Email:     req.Email,
		Name:      req.Name,
		Password:  req.Password,
		Role:      role,
		SalonID:   req.SalonID,
		IP:        middleware.ClientIPPtr(c),
		UserAgent: middleware.UserAgentPtr(c),
	})
	if err != nil {
		RespondWithMappedError(c, err, []ErrorCase{
			{Err: usecase.ErrInvalidEmail, Status: http.StatusBadRequest, Message: "invalid email address", Code: "INVALID_EMAIL"},
			{Err: usecase.ErrWeakPassword, Status: http.StatusBadRequest, Message: "password does not meet requirements", Code: "WEAK_PASSWORD"},
			{Err: usecase.ErrEmailTaken, Status: http.StatusConflict, Message: "email already registered", Code: "EMAIL_TAKEN"},
		}, http.StatusInternalServerError, "registration failed")
		return
	}

	c.JSON(http.StatusCreated, RegisterResponse{
		Message: "Account created. Check your inbox to verify your email address.",
		User:    newUserSummary(*user),
	})
}

// Login godoc
// @Summary Authenticate with email and password
// @Description Issues a session or a two-factor challenge.
// @Tags Authentication
// @Accept json
// @Produce json
// @Param request body LoginRequest true "Login payload"
// @Success 200 {object} LoginResponse
// @Failure 400 {object} ErrorResponse
// @Failure 401 {object} ErrorResponse
// @Failure 403 {object} ErrorResponse
// @Failure 500 {object} ErrorResponse
// @Router /api/v1/auth/login [post]
func (h *AuthHandler) Login(c *gin.Context) {
	var req LoginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, NewErrorResponse(c, "invalid login payload"))
		return
	}

	result, err := h.auth.Login(c.Request.Context(), usecase.LoginInput{
		Email:     req.Email,
		Password:  req.Password,
		IP:        middleware.ClientIPPtr(c),
		UserAgent: middleware.UserAgentPtr(c),
	})
	if err != nil {
		h.respondLoginError(c, err)
		return
	}

	if result.TwoFactorRequired {
		h.metrics.RecordLogin("two_factor")
		c.JSON(http.StatusOK, TwoFactorChallengeResponse{
			Message:           "Two-factor authentication required",
			TwoFactorRequired: true,
			UserID:            result.User.ID,
		})
		return
	}

	h.metrics.RecordLogin("success")
	c.JSON(http.StatusOK, newLoginResponse(result))
}

// LoginTwoFactor godoc
// @Summary Complete a two-factor login challenge
// @Description Validates a TOTP or backup code and issues the session.
// @Tags Authentication
// @Accept json
// @Produce json
// @Param request body TwoFactorLoginRequest true "Second factor payload"
// @Success 200 {object} TwoFactorLoginResponse
// @Failure 400 {object} ErrorResponse
// @Failure 401 {object} ErrorResponse
// @Failure 403 {object} ErrorResponse
// @Failure 500 {object} ErrorResponse
// @Router /api/v1/auth/login/2fa [post]
func (h *AuthHandler) LoginTwoFactor(c *gin.Context) {
	var req TwoFactorLoginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, NewErrorResponse(c, "invalid two-factor payload"))
		return
	}

	result, verification, err := h.auth.CompleteTwoFactorLogin(
		c.Request.Context(), req.UserID, req.Code,
		middleware.ClientIPPtr(c), middleware.UserAgentPtr(c))
	if err != nil {
		h.metrics.RecordLogin("failed")
		RespondWithMappedError(c, err, []ErrorCase{
			{Err: usecase.ErrInvalidCredentials, Status: http.StatusUnauthorized, Message: "invalid credentials", Code: "INVALID_CREDENTIALS"},
			{Err: usecase.ErrInvalidTwoFactorCode, Status: http.StatusUnauthorized, Message: "invalid two-factor code", Code: "INVALID_2FA_CODE"},
			{Err: usecase.ErrTwoFactorNotEnabled, Status: http.StatusBadRequest, Message: "two-factor authentication is not enabled", Code: "2FA_NOT_ENABLED"},
			{Err: usecase.ErrUserNotFound, Status: http.StatusUnauthorized, Message: "invalid credentials", Code: "INVALID_CREDENTIALS"},
			{Err: usecase.ErrInactiveAccount, Status: http.StatusForbidden, Message: "account is not active", Code: "ACCOUNT_INACTIVE"},
		}, http.StatusInternalServerError, "two-factor login failed")
		return
	}

	h.metrics.RecordLogin("success")

	resp := TwoFactorLoginResponse{
		LoginResponse: newLoginResponse(result),
		Method:        verification.Method,
	}
	if verification.Method == "backup_code" {
		remaining := verification.RemainingBackupCodes
		resp.RemainingBackupCodes = &remaining
	}

	c.JSON(http.StatusOK, resp)
}

// Refresh godoc
// @Summary Rotate a refresh token
// @Description Exchanges a valid refresh token for a new token pair.
// @Tags Authentication
// @Accept json
// @Produce json
// @Param request body RefreshRequest true "Refresh payload"
// @Success 200 {object} RefreshResponse
// @Failure 400 {object} ErrorResponse
// @Failure 401 {object} ErrorResponse
// @Failure 500 {object} ErrorResponse
// @Router /api/v1/auth/refresh [post]
func (h *AuthHandler) Refresh(c *gin.Context) {
	var req RefreshRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, NewErrorResponse(c, "invalid refresh payload"))
		return
	}

	tokens, err := h.sessions.Refresh(c.Request.Context(), req.RefreshToken,
		middleware.ClientIPPtr(c), middleware.UserAgentPtr(c))
	if err != nil {
		RespondWithMappedError(c, err, []ErrorCase{
			{Err: usecase.ErrInvalidRefreshToken, Status: http.StatusUnauthorized, Message: "invalid refresh token", Code: "INVALID_REFRESH_TOKEN"},
			{Err: usecase.ErrSessionExpired, Status: http.StatusUnauthorized, Message: "session expired", Code: "SESSION_EXPIRED"},
			{Err: usecase.ErrInactiveAccount, Status: http.StatusForbidden, Message: "account is not active", Code: "ACCOUNT_INACTIVE"},
		}, http.StatusInternalServerError, "token refresh failed")
		return
	}

	c.JSON(http.StatusOK, RefreshResponse{
		AccessToken:  tokens.AccessToken,
		RefreshToken: tokens.RefreshToken,
		TokenType:    "Bearer",
		SessionID:    tokens.SessionID,
		ExpiresAt:    tokens.ExpiresAt,
	})
}

// Logout godoc
// @Summary Terminate the current session
// @Tags Authentication
// @Produce json
// @Param Authorization header string true "Bearer access token"
// @Success 200 {object} MessageResponse
// @Failure 401 {object} ErrorResponse
// @Failure 404 {object} ErrorResponse
// @Router /api/v1/auth/logout [post]
func (h *AuthHandler) Logout(c *gin.Context) {
	sessionID, ok := middleware.GetSessionID(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, NewErrorResponse(c, "invalid authentication"))
		return
	}

	if err := h.sessions.Logout(c.Request.Context(), sessionID); err != nil {
		RespondWithMappedError(c, err, []ErrorCase{
			{Err: usecase.ErrSessionNotFound, Status: http.StatusNotFound, Message: "session not found", Code: "SESSION_NOT_FOUND"},
		}, http.StatusInternalServerError, "logout failed")
		return
	}

	c.JSON(http.StatusOK, MessageResponse{Message: "Logged out"})
}

// LogoutAll godoc
// @Summary Terminate every session for the current user
// @Tags Authentication
// @Produce json
// @Param Authorization header string true "Bearer access token"
// @Success 200 {object} LogoutAllResponse
// @Failure 401 {object} ErrorResponse
// @Router /api/v1/auth/logout-all [post]
func (h *AuthHandler) LogoutAll(c *gin.Context) {
	userID, ok := middleware.GetAuthenticatedUserID(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, NewErrorResponse(c, "invalid authentication"))
		return
	}

	count, err := h.sessions.LogoutAll(c.Request.Context(), userID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, NewErrorResponse(c, "logout failed"))
		return
	}

	c.JSON(http.StatusOK, LogoutAllResponse{
		Message:         "All sessions revoked",
		SessionsRevoked: count,
	})
}

func (h *AuthHandler) respondLoginError(c *gin.Context, err error) {
	var locked *usecase.AccountLockedError
	if errors.As(err, &locked) {
		h.metrics.RecordLogin("locked")
		retrySeconds := int(math.Ceil(locked.RetryAfter.Seconds()))
		if retrySeconds < 0 {
			retrySeconds = 0
		}
		c.Header("Retry-After", strconv.Itoa(retrySeconds))
		resp := NewErrorResponse(c, "account temporarily locked")
		resp.Code = "ACCOUNT_LOCKED"
		c.JSON(http.StatusForbidden, resp)
		return
	}

	h.metrics.RecordLogin("failed")

	// FailedLoginError unwraps to ErrInvalidCredentials, keeping the response
	// indistinguishable from an unknown account.
	RespondWithMappedError(c, err, []ErrorCase{
		{Err: usecase.ErrInvalidCredentials, Status: http.StatusUnauthorized, Message: "invalid credentials", Code: "INVALID_CREDENTIALS"},
		{Err: usecase.ErrEmailNotVerified, Status: http.StatusForbidden, Message: "email address not verified", Code: "EMAIL_NOT_VERIFIED"},
		{Err: usecase.ErrIPNotTrusted, Status: http.StatusForbidden, Message: "login not permitted from this address", Code: "IP_NOT_TRUSTED"},
		{Err: usecase.ErrInactiveAccount, Status: http.StatusForbidden, Message: "account is not active", Code: "ACCOUNT_INACTIVE"},
	}, http.StatusInternalServerError, "login failed")
}

func newLoginResponse(result *usecase.LoginResult) LoginResponse {
	resp := LoginResponse{
		TokenType: "Bearer",
		User:      newUserSummary(result.User),
	}
	if result.Tokens != nil {
		resp.AccessToken = result.Tokens.AccessToken
		resp.RefreshToken = result.Tokens.RefreshToken
		resp.SessionID = result.Tokens.SessionID
		resp.ExpiresAt = result.Tokens.ExpiresAt
	}
	return resp
}
