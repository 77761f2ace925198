package routes

import (
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/avereux/salon-auth/internal/infra/config"
	"github.com/avereux/salon-auth/internal/infra/telemetry"
	"github.com/avereux/salon-auth/internal/transport/http/handlers"
	"github.com/avereux/salon-auth/internal/transport/http/middleware"
	"github.com/avereux/salon-auth/internal/usecase"
)

// ServiceSet groups the services the HTTP layer depends on.
type ServiceSet struct {
	Auth          *usecase.AuthService
	Registration  *usecase.RegistrationService
	Tokens        *usecase.TokenService
	Sessions      *usecase.SessionService
	PasswordReset *usecase.PasswordResetService
	Verification  *usecase.VerificationService
	TwoFactor     *usecase.TwoFactorService
	TrustedIP     *usecase.TrustedIPService
}

// Dependencies encapsulates the objects required to register routes.
type Dependencies struct {
	Config      *config.AppConfig
	Logger      *zap.Logger
	RateLimiter *middleware.RateLimiter
	CSRF        *middleware.CSRF
	HTTPMetrics *middleware.HTTPMetrics
	Metrics     *telemetry.Provider
	Services    ServiceSet
}

// Register configures the Gin engine with routes and middleware.
func Register(deps Dependencies) *gin.Engine {
	if deps.Config.App.Env == "production" {
		gin.SetMode(gin.ReleaseMode)
	}

	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(middleware.RequestID())
	r.Use(middleware.Logger(deps.Logger))
	r.Use(middleware.CORS([]string{deps.Config.Email.FrontendOrigin}))

	if deps.HTTPMetrics != nil {
		r.Use(deps.HTTPMetrics.Handler())
	}

	// CSRF reads the session ID set by RequireAuth, so it must run after it.
	authChain := []gin.HandlerFunc{middleware.RequireAuth(deps.Services.Tokens)}
	if deps.CSRF != nil {
		authChain = append(authChain, deps.CSRF.Handler())
	}

	healthHandler := handlers.NewHealthHandler()
	r.GET("/healthz", healthHandler.Status)

	r.GET("/metrics", gin.WrapH(promhttp.Handler()))

	api := r.Group("/api/v1")
	{
		authGroup := api.Group("/auth")

		authHandler := handlers.NewAuthHandler(
			deps.Services.Auth,
			deps.Services.Registration,
			deps.Services.Sessions,
			deps.Metrics,
			deps.Logger,
		)

		authGroup.POST("/register", withLimit(deps, "auth_register_ip", deps.Config.RateLimit.RegisterMaxAttempts, authHandler.Register)...)
		authGroup.POST("/login", withLimit(deps, "auth_login_ip", deps.Config.RateLimit.LoginMaxAttempts, authHandler.Login)...)
		authGroup.POST("/login/2fa", withLimit(deps, "auth_login_ip", deps.Config.RateLimit.LoginMaxAttempts, authHandler.LoginTwoFactor)...)
		authGroup.POST("/refresh", withLimit(deps, "auth_refresh_ip", deps.Config.RateLimit.RefreshMaxAttempts, authHandler.Refresh)...)
		authGroup.POST("/logout", withAuth(authChain, authHandler.Logout)...)
		authGroup.POST("/logout-all", withAuth(authChain, authHandler.LogoutAll)...)

		sessionHandler := handlers.NewSessionHandler(deps.Services.Sessions)
		authGroup.GET("/sessions", withAuth(authChain, sessionHandler.List)...)
		authGroup.DELETE("/sessions/:id", withAuth(authChain, sessionHandler.Revoke)...)

		passwordHandler := handlers.NewPasswordHandler(deps.Services.PasswordReset)
		authGroup.POST("/forgot-password", withLimit(deps, "password_reset_ip", deps.Config.RateLimit.PasswordResetMaxAttempts, passwordHandler.Forgot)...)
		authGroup.GET("/reset-password/validate", passwordHandler.Validate)
		authGroup.POST("/reset-password", passwordHandler.Reset)

		verificationHandler := handlers.NewVerificationHandler(deps.Services.Verification)
		authGroup.POST("/verify-email/request", verificationHandler.Request)
		authGroup.POST("/verify-email/confirm", verificationHandler.Confirm)

		twoFactorHandler := handlers.NewTwoFactorHandler(deps.Services.TwoFactor)
		twoFactorGroup := authGroup.Group("/2fa")
		twoFactorGroup.Use(authChain...)
		twoFactorGroup.POST("/setup", twoFactorHandler.Setup)
		twoFactorGroup.POST("/confirm", twoFactorHandler.Confirm)
		twoFactorGroup.POST("/disable", twoFactorHandler.Disable)
		twoFactorGroup.POST("/backup-codes", twoFactorHandler.RegenerateBackupCodes)

		trustedIPHandler := handlers.NewTrustedIPHandler(deps.Services.TrustedIP)
		trustedIPGroup := authGroup.Group("/trusted-ip")
		trustedIPGroup.Use(authChain...)
		trustedIPGroup.GET("/:userId", trustedIPHandler.List)
		trustedIPGroup.POST("/:userId", trustedIPHandler.Add)
		trustedIPGroup.DELETE("/:userId", trustedIPHandler.Remove)
	}

	return r
}

// withLimit prepends a per-IP sliding window limiter to the handler when the
// limiter is configured and the limit is positive.
func withLimit(deps Dependencies, name string, limit int, handler gin.HandlerFunc) []gin.HandlerFunc {
	if deps.RateLimiter == nil || limit <= 0 {
		return []gin.HandlerFunc{handler}
	}

	window := deps.Config.RateLimit.WindowDuration
	if window <= 0 {
		window = time.Minute
	}

	rule := middleware.RateLimitRule{
		Name:       name,
		Limit:      limit,
		Window:     window,
		Identifier: middleware.ClientIPIdentifier(),
	}

	return []gin.HandlerFunc{deps.RateLimiter.Limit(rule), handler}
}

func withAuth(chain []gin.HandlerFunc, handler gin.HandlerFunc) []gin.HandlerFunc {
	out := make([]gin.HandlerFunc, 0, len(chain)+1)
	out = append(out, chain...)
	return append(out, handler)
}
