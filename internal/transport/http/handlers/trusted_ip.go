package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/avereux/salon-auth/internal/transport/http/middleware"
	"github.com/avereux/salon-auth/internal/usecase"
)

// TrustedIPHandler manages per-user trusted IP lists. Every operation is
// restricted to administrators; the service enforces the role check so the
// rule holds even for callers that bypass the router.
type TrustedIPHandler struct {
	trustedIPs *usecase.TrustedIPService
}

// NewTrustedIPHandler constructs TrustedIPHandler.
func NewTrustedIPHandler(trustedIPs *usecase.TrustedIPService) *TrustedIPHandler {
	return &TrustedIPHandler{trustedIPs: trustedIPs}
}

// List godoc
// @Summary List trusted IPs
// @Description Returns the trusted IP list for the given user. Admin only.
// @Tags TrustedIP
// @Produce json
// @Param Authorization header string true "Bearer access token"
// @Param userId path string true "Target user ID"
// @Success 200 {object} TrustedIPListResponse
// @Failure 403 {object} ErrorResponse
// @Failure 404 {object} ErrorResponse
// @Router /api/v1/auth/trusted-ip/{userId} [get]
func (h *TrustedIPHandler) List(c *gin.Context) {
	actorID, ok := middleware.GetAuthenticatedUserID(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, NewErrorResponse(c, "invalid authentication"))
		return
	}
	targetID := c.Param("userId")

	ips, err := h.trustedIPs.List(c.Request.Context(), actorID, targetID)
	if err != nil {
		RespondWithMappedError(c, err, h.commonCases(), http.StatusInternalServerError, "failed to list trusted IPs")
		return
	}

	c.JSON(http.StatusOK, TrustedIPListResponse{UserID: targetID, TrustedIPs: ips})
}

// Add godoc
// @Summary Add a trusted IP
// @Description Adds an address to the user's trusted IP list. Admin only.
// @Tags TrustedIP
// @Accept json
// @Produce json
// @Param Authorization header string true "Bearer access token"
// @Param userId path string true "Target user ID"
// @Param request body TrustedIPRequest true "Address payload"
// @Success 200 {object} MessageResponse
// @Failure 400 {object} ErrorResponse
// @Failure 403 {object} ErrorResponse
// @Failure 409 {object} ErrorResponse
// @Router /api/v1/auth/trusted-ip/{userId} [post]
func (h *TrustedIPHandler) Add(c *gin.Context) {
	actorID, ok := middleware.GetAuthenticatedUserID(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, NewErrorResponse(c, "invalid authentication"))
		return
	}
	targetID := c.Param("userId")

	var req TrustedIPRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, NewErrorResponse(c, "invalid trusted IP payload"))
		return
	}

	if err := h.trustedIPs.Add(c.Request.Context(), actorID, targetID, req.IP); err != nil {
		RespondWithMappedError(c, err, h.commonCases(), http.StatusInternalServerError, "failed to add trusted IP")
		return
	}

	c.JSON(http.StatusOK, MessageResponse{Message: "Trusted IP added"})
}

// Remove godoc
// @Summary Remove a trusted IP
// @Description Removes an address from the user's trusted IP list. Admin only.
// @Tags TrustedIP
// @Accept json
// @Produce json
// @Param Authorization header string true "Bearer access token"
// @Param userId path string true "Target user ID"
// @Param request body TrustedIPRequest true "Address payload"
// @Success 200 {object} MessageResponse
// @Failure 400 {object} ErrorResponse
// @Failure 403 {object} ErrorResponse
// @Failure 404 {object} ErrorResponse
// @Router /api/v1/auth/trusted-ip/{userId} [delete]
func (h *TrustedIPHandler) Remove(c *gin.Context) {
	actorID, ok := middleware.GetAuthenticatedUserID(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, NewErrorResponse(c, "invalid authentication"))
		return
	}
	targetID := c.Param("userId")

	var req TrustedIPRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, NewErrorResponse(c, "invalid trusted IP payload"))
		return
	}

	if err := h.trustedIPs.Remove(c.Request.Context(), actorID, targetID, req.IP); err != nil {
		RespondWithMappedError(c, err, h.commonCases(), http.StatusInternalServerError, "failed to remove trusted IP")
		return
	}

	c.JSON(http.StatusOK, MessageResponse{Message: "Trusted IP removed"})
}

func (h *TrustedIPHandler) commonCases() []ErrorCase {
	return []ErrorCase{
		{Err: usecase.ErrNotAdmin, Status: http.StatusForbidden, Message: "administrator role required", Code: "NOT_ADMIN"},
		{Err: usecase.ErrUserNotFound, Status: http.StatusNotFound, Message: "user not found", Code: "USER_NOT_FOUND"},
		{Err: usecase.ErrInvalidIPAddress, Status: http.StatusBadRequest, Message: "invalid IP address", Code: "INVALID_IP_ADDRESS"},
		{Err: usecase.ErrIPAlreadyTrusted, Status: http.StatusConflict, Message: "IP address is already trusted", Code: "IP_ALREADY_TRUSTED"},
		{Err: usecase.ErrMaxTrustedIPs, Status: http.StatusConflict, Message: "trusted IP list is full", Code: "MAX_TRUSTED_IPS"},
		{Err: usecase.ErrIPNotOnList, Status: http.StatusNotFound, Message: "IP address is not on the trusted list", Code: "IP_NOT_ON_LIST"},
	}
}
