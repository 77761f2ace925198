package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/avereux/salon-auth/internal/transport/http/middleware"
	"github.com/avereux/salon-auth/internal/usecase"
)

// SessionHandler exposes session inspection and revocation for the
// authenticated user.
type SessionHandler struct {
	sessions *usecase.SessionService
}

// NewSessionHandler constructs SessionHandler.
func NewSessionHandler(sessions *usecase.SessionService) *SessionHandler {
	return &SessionHandler{sessions: sessions}
}

// List godoc
// @Summary List active sessions
// @Description Returns the caller's active sessions with the current one flagged and sorted first.
// @Tags Sessions
// @Produce json
// @Param Authorization header string true "Bearer access token"
// @Success 200 {object} SessionListResponse
// @Failure 401 {object} ErrorResponse
// @Router /api/v1/auth/sessions [get]
func (h *SessionHandler) List(c *gin.Context) {
	userID, ok := middleware.GetAuthenticatedUserID(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, NewErrorResponse(c, "invalid authentication"))
		return
	}
	currentSessionID, _ := middleware.GetSessionID(c)

	infos, err := h.sessions.ListSessions(c.Request.Context(), userID, currentSessionID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, NewErrorResponse(c, "failed to list sessions"))
		return
	}

	views := make([]SessionView, 0, len(infos))
	for _, info := range infos {
		views = append(views, SessionView{
			ID:           info.ID,
			IPAddress:    info.IPAddress,
			UserAgent:    info.UserAgent,
			CreatedAt:    info.CreatedAt,
			LastActivity: info.LastActivity,
			ExpiresAt:    info.ExpiresAt,
			IsCurrent:    info.IsCurrent,
		})
	}

	c.JSON(http.StatusOK, SessionListResponse{Sessions: views, Total: len(views)})
}

// Revoke godoc
// @Summary Revoke a session
// @Description Revokes one of the caller's sessions by its identifier.
// @Tags Sessions
// @Produce json
// @Param Authorization header string true "Bearer access token"
// @Param id path string true "Session ID"
// @Success 200 {object} MessageResponse
// @Failure 401 {object} ErrorResponse
// @Failure 403 {object} ErrorResponse
// @Failure 404 {object} ErrorResponse
// @Router /api/v1/auth/sessions/{id} [delete]
func (h *SessionHandler) Revoke(c *gin.Context) {
	userID, ok := middleware.GetAuthenticatedUserID(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, NewErrorResponse(c, "invalid authentication"))
		return
	}

	sessionID := c.Param("id")
	if sessionID == "" {
		c.JSON(http.StatusBadRequest, NewErrorResponse(c, "session id is required"))
		return
	}

	if err := h.sessions.RevokeSession(c.Request.Context(), userID, sessionID); err != nil {
		RespondWithMappedError(c, err, []ErrorCase{
			{Err: usecase.ErrSessionNotFound, Status: http.StatusNotFound, Message: "session not found", Code: "SESSION_NOT_FOUND"},
			{Err: usecase.ErrNotSessionOwner, Status: http.StatusForbidden, Message: "session belongs to another user", Code: "NOT_SESSION_OWNER"},
		}, http.StatusInternalServerError, "failed to revoke session")
		return
	}

	c.JSON(http.StatusOK, MessageResponse{Message: "Session revoked"})
}
