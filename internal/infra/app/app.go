package app

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/jackc/pgx/v5/pgxpool"
	"go.uber.org/zap"

	"github.com/avereux/salon-auth/internal/core/port"
	"github.com/avereux/salon-auth/internal/infra/config"
	"github.com/avereux/salon-auth/internal/infra/database"
	"github.com/avereux/salon-auth/internal/infra/email"
	kafkainfra "github.com/avereux/salon-auth/internal/infra/kafka"
	"github.com/avereux/salon-auth/internal/infra/logger"
	redisinfra "github.com/avereux/salon-auth/internal/infra/redis"
	"github.com/avereux/salon-auth/internal/infra/security"
	"github.com/avereux/salon-auth/internal/infra/telemetry"
	postgresrepo "github.com/avereux/salon-auth/internal/repository/postgres"
	redisrepo "github.com/avereux/salon-auth/internal/repository/redis"
	"github.com/avereux/salon-auth/internal/transport/http/middleware"
	"github.com/avereux/salon-auth/internal/transport/http/routes"
	"github.com/avereux/salon-auth/internal/usecase"
)

// Application wires configuration, infrastructure, services, and the HTTP
// engine together and owns their lifecycle.
type Application struct {
	cfg      *config.AppConfig
	engine   *gin.Engine
	logger   *zap.Logger
	pool     *pgxpool.Pool
	redis    *redisinfra.Client
	tracing  *telemetry.TracerProvider
	sessions *usecase.SessionService
}

func New(ctx context.Context, cfg *config.AppConfig) (*Application, error) {
	log, err := logger.New(cfg.App.Env)
	if err != nil {
		return nil, fmt.Errorf("init logger: %w", err)
	}

	metrics, err := telemetry.Attach(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("init telemetry: %w", err)
	}

	tracing, err := telemetry.NewTracerProvider(ctx, cfg.Telemetry, log)
	if err != nil {
		log.Warn("tracing disabled", zap.Error(err))
	}

	pool, err := database.NewPostgresPool(ctx, cfg.Postgres, log)
	if err != nil {
		return nil, fmt.Errorf("init postgres: %w", err)
	}

	redisClient, err := redisinfra.NewClient(cfg.Redis, log)
	if err != nil {
		pool.Close()
		return nil, fmt.Errorf("init redis: %w", err)
	}

	repos := postgresrepo.NewRepositories(pool)

	var eventPublisher port.EventPublisher
	if len(cfg.Kafka.Brokers) > 0 {
		producer, err := kafkainfra.NewProducer(cfg.Kafka, log)
		if err != nil {
			log.Warn("failed to init kafka producer, using stub publisher", zap.Error(err))
			eventPublisher = kafkainfra.NewStubPublisher(log)
		} else {
			eventPublisher = kafkainfra.NewEventPublisher(producer, cfg.App, log)
			log.Info("kafka event publisher initialized", zap.Strings("brokers", cfg.Kafka.Brokers))
		}
	} else {
		log.Info("kafka brokers not configured, using stub publisher")
		eventPublisher = kafkainfra.NewStubPublisher(log)
	}
	eventPublisher = newMetricsPublisher(eventPublisher, metrics)

	var mailer port.Mailer
	if cfg.Email.APIKey != "" {
		resendMailer, err := email.NewResendMailer(cfg.Email, log)
		if err != nil {
			_ = redisClient.Close()
			pool.Close()
			return nil, fmt.Errorf("init mailer: %w", err)
		}
		mailer = resendMailer
	} else {
		log.Info("email api key not configured, using noop mailer")
		mailer = email.NewNoopMailer(log)
	}

	hasher := security.NewPasswordHasher(cfg.Bcrypt.Cost)
	totpVerifier := security.NewTOTPVerifier(cfg.TwoFactor.Issuer, cfg.TwoFactor.Skew)

	tokenService := usecase.NewTokenService(cfg)
	sessionService := usecase.NewSessionService(cfg, repos.Users, repos.Sessions, tokenService, eventPublisher, log)
	twoFactorService := usecase.NewTwoFactorService(cfg, repos.Users, totpVerifier, hasher, eventPublisher, log)
	authService := usecase.NewAuthService(cfg, repos.Users, sessionService, twoFactorService, hasher, eventPublisher, log)
	registrationService := usecase.NewRegistrationService(cfg, repos.Users, repos.Tokens, hasher, mailer, eventPublisher, log)
	passwordResetService := usecase.NewPasswordResetService(cfg, repos.Users, repos.Tokens, sessionService, hasher, mailer, eventPublisher, log)
	verificationService := usecase.NewVerificationService(cfg, repos.Users, repos.Tokens, mailer, log)
	trustedIPService := usecase.NewTrustedIPService(cfg, repos.Users, log)

	rateLimitWindow := cfg.RateLimit.WindowDuration
	if rateLimitWindow <= 0 {
		rateLimitWindow = time.Minute
	}
	rateLimitStore := redisrepo.NewRateLimitRepository(redisClient.Client(), "salon:rate-limit", rateLimitWindow*2)
	rateLimiter := middleware.NewRateLimiter(rateLimitStore, log)

	csrfStore := redisrepo.NewCSRFRepository(redisClient.Client(), cfg.Redis.CSRFPrefix)
	csrf := middleware.NewCSRF(csrfStore, cfg.CSRF, log)

	httpMetrics, err := middleware.NewHTTPMetrics(middleware.HTTPMetricsOptions{})
	if err != nil {
		_ = redisClient.Close()
		pool.Close()
		return nil, fmt.Errorf("init http metrics: %w", err)
	}

	engine := routes.Register(routes.Dependencies{
		Config:      cfg,
		Logger:      log,
		RateLimiter: rateLimiter,
		CSRF:        csrf,
		HTTPMetrics: httpMetrics,
		Metrics:     metrics,
		Services: routes.ServiceSet{
			Auth:          authService,
			Registration:  registrationService,
			Tokens:        tokenService,
			Sessions:      sessionService,
			PasswordReset: passwordResetService,
			Verification:  verificationService,
			TwoFactor:     twoFactorService,
			TrustedIP:     trustedIPService,
		},
	})

	return &Application{
		cfg:      cfg,
		engine:   engine,
		logger:   log,
		pool:     pool,
		redis:    redisClient,
		tracing:  tracing,
		sessions: sessionService,
	}, nil
}

func (a *Application) Run(ctx context.Context) error {
	defer func() {
		_ = a.logger.Sync()
	}()
	defer func() {
		if a.pool != nil {
			a.pool.Close()
		}
	}()
	defer func() {
		if a.redis != nil {
			_ = a.redis.Close()
		}
	}()
	defer func() {
		if a.tracing != nil {
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			_ = a.tracing.Shutdown(shutdownCtx)
		}
	}()

	purgeCtx, stopPurge := context.WithCancel(ctx)
	defer stopPurge()
	go a.purgeExpiredSessions(purgeCtx)

	srv := &http.Server{
		Addr:              fmt.Sprintf("%s:%d", a.cfg.App.Host, a.cfg.App.Port),
		Handler:           a.engine,
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       30 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	a.logger.Info("starting auth API",
		zap.String("env", a.cfg.App.Env),
		zap.String("address", srv.Addr),
	)

	serverErrCh := make(chan error, 1)
	go func() {
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			serverErrCh <- fmt.Errorf("run server: %w", err)
		}
	}()

	select {
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("shutdown server: %w", err)
		}
		return nil
	case err := <-serverErrCh:
		return err
	}
}

// purgeExpiredSessions sweeps expired sessions hourly until ctx is cancelled.
func (a *Application) purgeExpiredSessions(ctx context.Context) {
	ticker := time.NewTicker(time.Hour)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			purged, err := a.sessions.PurgeExpired(ctx)
			if err != nil {
				a.logger.Warn("session purge failed", zap.Error(err))
				continue
			}
			if purged > 0 {
				a.logger.Info("purged expired sessions", zap.Int("count", purged))
			}
		}
	}
}
