// Package config provides application configuration management.
// Configuration is loaded from environment variables following 12-factor principles.
package config

import (
	"errors"
	"fmt"
	"time"

	"github.com/caarlos0/env/v10"
)

// Storage backends.
const (
	BackendMongo    = "mongo"
	BackendPostgres = "postgres"
)

// Config holds all application configuration.
// All fields are populated from environment variables.
type Config struct {
	// Application settings
	AppEnv  string `env:"APP_ENV" envDefault:"development"`
	AppPort int    `env:"APP_PORT" envDefault:"8080"`

	// Storage
	StoreBackend  string `env:"STORE_BACKEND" envDefault:"mongo"`
	MongoURI      string `env:"MONGO_URI"`
	MongoDatabase string `env:"MONGO_DATABASE" envDefault:"mailauth"`
	DatabaseURL   string `env:"DATABASE_URL"`

	// Cache (Redis). Rate limiting is disabled when empty.
	RedisURL string `env:"REDIS_URL"`

	// Tokens
	JWTSecret       string        `env:"JWT_SECRET,required,notEmpty"`
	AccessTokenTTL  time.Duration `env:"ACCESS_TOKEN_TTL" envDefault:"1h"`
	RefreshTokenTTL time.Duration `env:"REFRESH_TOKEN_TTL" envDefault:"360h"`

	// Password and code hashing
	HashAlgorithm string `env:"HASH_ALGORITHM" envDefault:"bcrypt"`
	BcryptCost    int    `env:"BCRYPT_COST" envDefault:"10"`

	// Verification codes
	OTPTTL           time.Duration `env:"OTP_TTL" envDefault:"1h"`
	OTPSweepInterval time.Duration `env:"OTP_SWEEP_INTERVAL" envDefault:"15m"`

	// Mail delivery. Codes are logged instead of sent when the key is empty.
	SendGridAPIKey string `env:"SENDGRID_API_KEY"`
	SendGridHost   string `env:"SENDGRID_HOST" envDefault:"https://api.sendgrid.com"`
	MailFrom       string `env:"MAIL_FROM" envDefault:"no-reply@mailauth.local"`

	// Attempts per message for temporary provider failures
	EmailMaxAttempts int `env:"EMAIL_MAX_ATTEMPTS" envDefault:"3"`

	// Logging
	LogLevel  string `env:"LOG_LEVEL" envDefault:"info"`
	LogFormat string `env:"LOG_FORMAT" envDefault:"json"`

	// Server timeouts
	ReadTimeout     time.Duration `env:"READ_TIMEOUT" envDefault:"5s"`
	WriteTimeout    time.Duration `env:"WRITE_TIMEOUT" envDefault:"10s"`
	ShutdownTimeout time.Duration `env:"SHUTDOWN_TIMEOUT" envDefault:"30s"`

	// Rate limiting on send-otp
	RateLimitEnabled      bool `env:"RATE_LIMIT_ENABLED" envDefault:"true"`
	RateLimitIPPerMinute  int  `env:"RATE_LIMIT_IP_PER_MINUTE" envDefault:"10"`
	RateLimitIPBurst      int  `env:"RATE_LIMIT_IP_BURST" envDefault:"5"`
	RateLimitEmailPerHour int  `env:"RATE_LIMIT_EMAIL_PER_HOUR" envDefault:"5"`
	RateLimitEmailBurst   int  `env:"RATE_LIMIT_EMAIL_BURST" envDefault:"3"`

	// Request body size limit in bytes (default 1MB)
	MaxRequestBodySize int64 `env:"MAX_REQUEST_BODY_SIZE" envDefault:"1048576"`
}

// IsDevelopment returns true if running in development mode.
func (c *Config) IsDevelopment() bool {
	return c.AppEnv == "development"
}

// IsProduction returns true if running in production mode.
func (c *Config) IsProduction() bool {
	return c.AppEnv == "production"
}

// Validate checks settings that depend on each other.
func (c *Config) Validate() error {
	var errs []error

	switch c.StoreBackend {
	case BackendMongo:
		if c.MongoURI == "" {
			errs = append(errs, errors.New("MONGO_URI is required for the mongo backend"))
		}
		if c.MongoDatabase == "" {
			errs = append(errs, errors.New("MONGO_DATABASE must not be empty"))
		}
	case BackendPostgres:
		if c.DatabaseURL == "" {
			errs = append(errs, errors.New("DATABASE_URL is required for the postgres backend"))
		}
	default:
		errs = append(errs, fmt.Errorf("STORE_BACKEND must be %q or %q, got %q", BackendMongo, BackendPostgres, c.StoreBackend))
	}

	switch c.HashAlgorithm {
	case "bcrypt", "argon2id":
	default:
		errs = append(errs, fmt.Errorf("HASH_ALGORITHM must be bcrypt or argon2id, got %q", c.HashAlgorithm))
	}

	if c.AccessTokenTTL <= 0 || c.RefreshTokenTTL <= 0 {
		errs = append(errs, errors.New("token TTLs must be positive"))
	} else if c.AccessTokenTTL >= c.RefreshTokenTTL {
		errs = append(errs, errors.New("ACCESS_TOKEN_TTL must be shorter than REFRESH_TOKEN_TTL"))
	}
	if c.OTPTTL <= 0 {
		errs = append(errs, errors.New("OTP_TTL must be positive"))
	}
	if c.OTPSweepInterval < 0 {
		errs = append(errs, errors.New("OTP_SWEEP_INTERVAL must not be negative"))
	}
	if c.MaxRequestBodySize <= 0 {
		errs = append(errs, errors.New("MAX_REQUEST_BODY_SIZE must be positive"))
	}

	return errors.Join(errs...)
}

// Load parses environment variables and returns a validated Config.
// Returns an error if required variables are missing.
func Load() (*Config, error) {
	cfg := &Config{}
	if err := env.Parse(cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	return cfg, nil
}
