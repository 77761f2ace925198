package middleware

import (
	"crypto/subtle"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/avereux/salon-auth/internal/core/port"
	"github.com/avereux/salon-auth/internal/infra/config"
	"github.com/avereux/salon-auth/internal/infra/security"
	"github.com/avereux/salon-auth/internal/repository"
)

const (
	csrfTokenBytes = 32
	csrfFormField  = "csrf_token"
	csrfQueryParam = "csrf_token"

	defaultCSRFHeader = "X-CSRF-Token"
	defaultCSRFTTL    = 12 * time.Hour
)

// CSRF implements the session-bound double-submit pattern. Safe methods issue
// a token and echo it in the response header; unsafe methods must present the
// stored token via header, form field, or query parameter, header first.
type CSRF struct {
	store  port.CSRFStore
	cfg    config.CSRFSettings
	logger *zap.Logger
}

// NewCSRF constructs the CSRF middleware helper.
func NewCSRF(store port.CSRFStore, cfg config.CSRFSettings, log *zap.Logger) *CSRF {
	if log == nil {
		log = zap.NewNop()
	}
	if cfg.HeaderName == "" {
		cfg.HeaderName = defaultCSRFHeader
	}
	if cfg.TokenTTL <= 0 {
		cfg.TokenTTL = defaultCSRFTTL
	}
	return &CSRF{store: store, cfg: cfg, logger: log}
}

// Handler returns the Gin middleware enforcing CSRF protection.
func (m *CSRF) Handler() gin.HandlerFunc {
	if m == nil || m.store == nil {
		return func(c *gin.Context) {
			c.Next()
		}
	}

	return func(c *gin.Context) {
		if m.isExcluded(c.Request.URL.Path) {
			c.Next()
			return
		}

		sessionID, ok := GetSessionID(c)
		if !ok {
			if m.cfg.SessionRequired {
				c.AbortWithStatusJSON(http.StatusForbidden, ErrorResponse{
					Error:     "session required",
					Code:      "CSRF_SESSION_REQUIRED",
					RequestID: requestIDFromContext(c.Request.Context()),
				})
				return
			}
			c.Next()
			return
		}

		if isSafeMethod(c.Request.Method) {
			m.issueToken(c, sessionID)
			return
		}

		stored, err := m.store.Fetch(c.Request.Context(), sessionID)
		if err != nil && !errors.Is(err, repository.ErrNotFound) {
			m.logger.Warn("csrf token lookup failed", zap.Error(err))
			c.AbortWithStatusJSON(http.StatusInternalServerError,
				newErrorResponse(c, "csrf validation failed"))
			return
		}

		presented := m.presentedToken(c)
		if stored == "" || presented == "" ||
			subtle.ConstantTimeCompare([]byte(stored), []byte(presented)) != 1 {
			c.AbortWithStatusJSON(http.StatusForbidden, ErrorResponse{
				Error:     "invalid csrf token",
				Code:      "INVALID_CSRF_TOKEN",
				RequestID: requestIDFromContext(c.Request.Context()),
			})
			return
		}

		c.Next()
	}
}

func (m *CSRF) issueToken(c *gin.Context, sessionID string) {
	ctx := c.Request.Context()

	token, err := m.store.Fetch(ctx, sessionID)
	if err != nil {
		if !errors.Is(err, repository.ErrNotFound) {
			m.logger.Warn("csrf token lookup failed", zap.Error(err))
			c.Next()
			return
		}

		token, err = security.GenerateSecureToken(csrfTokenBytes)
		if err != nil {
			m.logger.Error("csrf token generation failed", zap.Error(err))
			c.Next()
			return
		}
		if err := m.store.Store(ctx, sessionID, token, m.cfg.TokenTTL); err != nil {
			m.logger.Warn("csrf token store failed", zap.Error(err))
			c.Next()
			return
		}
	}

	c.Header(m.cfg.HeaderName, token)
	c.Next()
}

func (m *CSRF) presentedToken(c *gin.Context) string {
	if token := c.GetHeader(m.cfg.HeaderName); token != "" {
		return token
	}
	if token := c.PostForm(csrfFormField); token != "" {
		return token
	}
	return c.Query(csrfQueryParam)
}

func (m *CSRF) isExcluded(path string) bool {
	for _, pattern := range m.cfg.ExcludePaths {
		if prefix, ok := strings.CutSuffix(pattern, "/*"); ok {
			if path == prefix || strings.HasPrefix(path, prefix+"/") {
				return true
			}
			continue
		}
		if path == pattern {
			return true
		}
	}
	return false
}

func isSafeMethod(method string) bool {
	switch method {
	case http.MethodGet, http.MethodHead, http.MethodOptions:
		return true
	}
	return false
}
