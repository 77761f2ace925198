package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

type AppConfig struct {
	App           AppSettings           `mapstructure:"app"`
	Postgres      PostgresSettings      `mapstructure:"postgres"`
	Redis         RedisSettings         `mapstructure:"redis"`
	Kafka         KafkaSettings         `mapstructure:"kafka"`
	JWT           JWTSettings           `mapstructure:"jwt"`
	Bcrypt        BcryptSettings        `mapstructure:"bcrypt"`
	Lockout       LockoutSettings       `mapstructure:"lockout"`
	TwoFactor     TwoFactorSettings     `mapstructure:"two_factor"`
	PasswordReset PasswordResetSettings `mapstructure:"password_reset"`
	Verification  VerificationSettings  `mapstructure:"verification"`
	TrustedIP     TrustedIPSettings     `mapstructure:"trusted_ip"`
	CSRF          CSRFSettings          `mapstructure:"csrf"`
	RateLimit     RateLimitSettings     `mapstructure:"rate_limit"`
	Telemetry     TelemetrySettings     `mapstructure:"telemetry"`
	Email         EmailSettings         `mapstructure:"email"`
}

type AppSettings struct {
	Name string `mapstructure:"name"`
	Env  string `mapstructure:"env"`
	Host string `mapstructure:"host"`
	Port int    `mapstructure:"port"`
}

type PostgresSettings struct {
	Host              string        `mapstructure:"host"`
	Port              int           `mapstructure:"port"`
	User              string        `mapstructure:"user"`
	Password          string        `mapstructure:"password"`
	Database          string        `mapstructure:"database"`
	SSLMode           string        `mapstructure:"ssl_mode"`
	MaxConns          int32         `mapstructure:"max_conns"`
	MinConns          int32         `mapstructure:"min_conns"`
	MaxConnLifetime   time.Duration `mapstructure:"max_conn_lifetime"`
	MaxConnIdleTime   time.Duration `mapstructure:"max_conn_idle_time"`
	HealthCheckPeriod time.Duration `mapstructure:"health_check_period"`
}

// RedisSettings configures Redis connection and TLS
type RedisSettings struct {
	Host       string `mapstructure:"host"`
	Port       int    `mapstructure:"port"`
	DB         int    `mapstructure:"db"`
	Password   string `mapstructure:"password"`
	TLSEnabled bool   `mapstructure:"tls_enabled"`
	CSRFPrefix string `mapstructure:"csrf_prefix"`
}

// KafkaSettings configures the Kafka producer
type KafkaSettings struct {
	Brokers     []string `mapstructure:"brokers"`
	TopicPrefix string   `mapstructure:"topic_prefix"`
	Async       bool     `mapstructure:"async"`
}

type JWTSettings struct {
	Secret         string        `mapstructure:"secret"`
	AccessTokenTTL time.Duration `mapstructure:"access_token_ttl"`
	SessionTTL     time.Duration `mapstructure:"session_ttl"`
}

// BcryptSettings configures password hashing cost.
type BcryptSettings struct {
	Cost int `mapstructure:"cost"`
}

// LockoutSettings governs the failed-login state machine.
type LockoutSettings struct {
	MaxFailedAttempts int           `mapstructure:"max_failed_attempts"`
	LockDuration      time.Duration `mapstructure:"lock_duration"`
}

// TwoFactorSettings configures TOTP provisioning and backup codes.
type TwoFactorSettings struct {
	Issuer          string `mapstructure:"issuer"`
	Skew            uint   `mapstructure:"skew"`
	BackupCodeCount int    `mapstructure:"backup_code_count"`
}

// PasswordResetSettings configures reset token issuance.
type PasswordResetSettings struct {
	TokenTTL time.Duration `mapstructure:"token_ttl"`
	Throttle time.Duration `mapstructure:"throttle"`
}

// VerificationSettings configures email verification token issuance.
type VerificationSettings struct {
	TokenTTL time.Duration `mapstructure:"token_ttl"`
	Throttle time.Duration `mapstructure:"throttle"`
}

// TrustedIPSettings governs IP admission control.
type TrustedIPSettings struct {
	Enabled    bool `mapstructure:"enabled"`
	MaxEntries int  `mapstructure:"max_entries"`
}

// CSRFSettings configures the double-submit middleware.
type CSRFSettings struct {
	HeaderName      string        `mapstructure:"header_name"`
	TokenTTL        time.Duration `mapstructure:"token_ttl"`
	ExcludePaths    []string      `mapstructure:"exclude_paths"`
	SessionRequired bool          `mapstructure:"session_required"`
}

// RateLimitSettings configures rate limiting windows and max attempts per endpoint
type RateLimitSettings struct {
	WindowDuration           time.Duration `mapstructure:"window_duration"`
	LoginMaxAttempts         int           `mapstructure:"login_max_attempts"`
	RegisterMaxAttempts      int           `mapstructure:"register_max_attempts"`
	RefreshMaxAttempts       int           `mapstructure:"refresh_max_attempts"`
	PasswordResetMaxAttempts int           `mapstructure:"password_reset_max_attempts"`
}

type TelemetrySettings struct {
	OTLPEndpoint string  `mapstructure:"otlp_endpoint"`
	ServiceName  string  `mapstructure:"service_name"`
	SamplingRate float64 `mapstructure:"sampling_rate"`
}

// EmailSettings configures the transactional mailer.
type EmailSettings struct {
	APIKey         string `mapstructure:"api_key"`
	From           string `mapstructure:"from"`
	FrontendOrigin string `mapstructure:"frontend_origin"`
}

func Load() (*AppConfig, error) {
	v := viper.New()

	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.SetEnvPrefix("SALON")

	setDefaults(v)

	if err := bindEnvs(v, []string{
		"app.name",
		"app.env",
		"app.host",
		"app.port",
		"postgres.host",
		"postgres.port",
		"postgres.user",
		"postgres.password",
		"postgres.database",
		"postgres.ssl_mode",
		"postgres.max_conns",
		"postgres.min_conns",
		"postgres.max_conn_lifetime",
		"postgres.max_conn_idle_time",
		"postgres.health_check_period",
		"redis.host",
		"redis.port",
		"redis.db",
		"redis.password",
		"redis.tls_enabled",
		"redis.csrf_prefix",
		"kafka.brokers",
		"kafka.topic_prefix",
		"kafka.async",
		"jwt.secret",
		"jwt.access_token_ttl",
		"jwt.session_ttl",
		"bcrypt.cost",
		"lockout.max_failed_attempts",
		"lockout.lock_duration",
		"two_factor.issuer",
		"two_factor.skew",
		"two_factor.backup_code_count",
		"password_reset.token_ttl",
		"password_reset.throttle",
		"verification.token_ttl",
		"verification.throttle",
		"trusted_ip.enabled",
		"trusted_ip.max_entries",
		"csrf.header_name",
		"csrf.token_ttl",
		"csrf.exclude_paths",
		"csrf.session_required",
		"rate_limit.window_duration",
		"rate_limit.login_max_attempts",
		"rate_limit.register_max_attempts",
		"rate_limit.refresh_max_attempts",
		"rate_limit.password_reset_max_attempts",
		"telemetry.otlp_endpoint",
		"telemetry.service_name",
		"telemetry.sampling_rate",
		"email.api_key",
		"email.from",
		"email.frontend_origin",
	}); err != nil {
		return nil, err
	}

	v.AutomaticEnv()

	var cfg AppConfig
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}

	return &cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("app.name", "salon-auth")
	v.SetDefault("app.env", "development")
	v.SetDefault("app.host", "0.0.0.0")
	v.SetDefault("app.port", 8080)

	v.SetDefault("postgres.host", "localhost")
	v.SetDefault("postgres.port", 5432)
	v.SetDefault("postgres.user", "salon")
	v.SetDefault("postgres.password", "salon_password")
	v.SetDefault("postgres.database", "salon")
	v.SetDefault("postgres.ssl_mode", "disable")
	v.SetDefault("postgres.max_conns", 10)
	v.SetDefault("postgres.min_conns", 2)
	v.SetDefault("postgres.max_conn_lifetime", "60m")
	v.SetDefault("postgres.max_conn_idle_time", "15m")
	v.SetDefault("postgres.health_check_period", "30s")

	v.SetDefault("redis.host", "localhost")
	v.SetDefault("redis.port", 6379)
	v.SetDefault("redis.db", 0)
	v.SetDefault("redis.password", "")
	v.SetDefault("redis.tls_enabled", false)
	v.SetDefault("redis.csrf_prefix", "salon:csrf")

	v.SetDefault("kafka.brokers", []string{})
	v.SetDefault("kafka.topic_prefix", "salon")
	v.SetDefault("kafka.async", true)

	v.SetDefault("jwt.secret", "")
	v.SetDefault("jwt.access_token_ttl", "15m")
	v.SetDefault("jwt.session_ttl", "720h")

	v.SetDefault("bcrypt.cost", 12)

	v.SetDefault("lockout.max_failed_attempts", 5)
	v.SetDefault("lockout.lock_duration", "30m")

	v.SetDefault("two_factor.issuer", "Salon Platform")
	v.SetDefault("two_factor.skew", 2)
	v.SetDefault("two_factor.backup_code_count", 10)

	v.SetDefault("password_reset.token_ttl", "1h")
	v.SetDefault("password_reset.throttle", "5m")

	v.SetDefault("verification.token_ttl", "24h")
	v.SetDefault("verification.throttle", "5m")

	v.SetDefault("trusted_ip.enabled", false)
	v.SetDefault("trusted_ip.max_entries", 10)

	v.SetDefault("csrf.header_name", "X-CSRF-Token")
	v.SetDefault("csrf.token_ttl", "12h")
	v.SetDefault("csrf.exclude_paths", []string{"/healthz", "/metrics", "/api/v1/auth/refresh"})
	v.SetDefault("csrf.session_required", false)

	v.SetDefault("rate_limit.window_duration", "1m")
	v.SetDefault("rate_limit.login_max_attempts", 5)
	v.SetDefault("rate_limit.register_max_attempts", 3)
	v.SetDefault("rate_limit.refresh_max_attempts", 10)
	v.SetDefault("rate_limit.password_reset_max_attempts", 3)

	v.SetDefault("telemetry.otlp_endpoint", "http://localhost:4318")
	v.SetDefault("telemetry.service_name", "salon-auth")
	v.SetDefault("telemetry.sampling_rate", 1.0)

	v.SetDefault("email.api_key", "")
	v.SetDefault("email.from", "Salon Platform <no-reply@salon.example.com>")
	v.SetDefault("email.frontend_origin", "http://localhost:5173")
}

func bindEnvs(v *viper.Viper, keys []string) error {
	for _, key := range keys {
		envKey := strings.ToUpper(strings.ReplaceAll(key, ".", "_"))
		if err := v.BindEnv(key, "SALON_"+envKey, envKey); err != nil {
			return fmt.Errorf("bind env for %s: %w", key, err)
		}
	}
	return nil
}
