package middleware

import (
	"github.com/gin-gonic/gin"

	"github.com/avereux/salon-auth/internal/usecase"
)

const (
	// UserIDKey is the context key for the authenticated user ID.
	UserIDKey = "user_id"
	// SessionIDKey is the context key for the authenticated session ID.
	SessionIDKey = "session_id"
	// ClaimsKey is the context key for parsed access token claims.
	ClaimsKey = "claims"
)

// ErrorResponse matches the handlers.ErrorResponse structure.
type ErrorResponse struct {
	Error     string `json:"error"`
	Code      string `json:"code,omitempty"`
	RequestID string `json:"request_id,omitempty"`
}

// newErrorResponse creates an error response carrying the request correlation ID.
func newErrorResponse(c *gin.Context, errorMsg string) ErrorResponse {
	return ErrorResponse{
		Error:     errorMsg,
		RequestID: requestIDFromContext(c.Request.Context()),
	}
}

// GetAuthenticatedUserID retrieves the user ID from context (helper for handlers).
func GetAuthenticatedUserID(c *gin.Context) (string, bool) {
	userID, exists := c.Get(UserIDKey)
	if !exists {
		return "", false
	}

	if id, ok := userID.(string); ok && id != "" {
		return id, true
	}

	return "", false
}

// GetSessionID retrieves the session ID bound to the access token.
func GetSessionID(c *gin.Context) (string, bool) {
	sessionID, exists := c.Get(SessionIDKey)
	if !exists {
		return "", false
	}

	if id, ok := sessionID.(string); ok && id != "" {
		return id, true
	}

	return "", false
}

// GetClaims retrieves the parsed access token claims.
func GetClaims(c *gin.Context) (*usecase.AccessTokenClaims, bool) {
	val, exists := c.Get(ClaimsKey)
	if !exists {
		return nil, false
	}

	claims, ok := val.(*usecase.AccessTokenClaims)
	return claims, ok
}

// ClientIPPtr returns the client IP as an optional string for use case inputs.
func ClientIPPtr(c *gin.Context) *string {
	ip := c.ClientIP()
	if ip == "" {
		return nil
	}
	return &ip
}

// UserAgentPtr returns the User-Agent header as an optional string.
func UserAgentPtr(c *gin.Context) *string {
	ua := c.Request.UserAgent()
	if ua == "" {
		return nil
	}
	return &ua
}
