// Package main is the entrypoint for the mailauth API server.
package main

import (
	"context"
	"log/slog"
	"net/url"
	"os"
	"regexp"
	"strings"

	"github.com/mailauth/mailauth/internal/auth"
	"github.com/mailauth/mailauth/internal/cache"
	"github.com/mailauth/mailauth/internal/config"
	"github.com/mailauth/mailauth/internal/email"
	"github.com/mailauth/mailauth/internal/handler"
	"github.com/mailauth/mailauth/internal/metrics"
	"github.com/mailauth/mailauth/internal/middleware"
	"github.com/mailauth/mailauth/internal/repository"
	"github.com/mailauth/mailauth/internal/repository/mongostore"
	"github.com/mailauth/mailauth/internal/server"
	"github.com/mailauth/mailauth/internal/service"
)

func main() {
	ctx := context.Background()

	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load config", "error", err)
		os.Exit(1)
	}

	logger := initLogger(cfg)

	if err := run(ctx, cfg, logger); err != nil {
		logger.Error("server error", "error", err)
		os.Exit(1)
	}
}

func run(ctx context.Context, cfg *config.Config, logger *slog.Logger) error {
	store, err := openStore(ctx, cfg, logger)
	if err != nil {
		return err
	}

	// Rate limiting is optional. A nil interface disables it.
	var (
		cacheClient *cache.Cache
		limiter     middleware.Limiter
		cacheHC     handler.HealthChecker
	)
	if cfg.RedisURL != "" {
		cacheClient, err = cache.New(ctx, cfg.RedisURL, logger)
		if err != nil {
			logger.Error(
				"failed to connect to Redis",
				slog.String("error", sanitizeError(err, cfg.RedisURL)),
				slog.String("redis_url", redactURL(cfg.RedisURL)),
			)
			_ = store.Close(ctx)
			return err
		}
		logger.Info("connected to Redis")
		cacheHC = cacheClient
		if cfg.RateLimitEnabled {
			limiter = cacheClient
		}
	} else {
		logger.Warn("REDIS_URL not set, send-otp rate limiting disabled")
	}

	hasher, err := auth.NewHasher(cfg.HashAlgorithm, cfg.BcryptCost)
	if err != nil {
		return err
	}
	issuer, err := auth.NewTokenIssuer(cfg.JWTSecret, cfg.AccessTokenTTL, cfg.RefreshTokenTTL)
	if err != nil {
		return err
	}

	sender, err := newSender(cfg, logger)
	if err != nil {
		return err
	}

	recorder := metrics.NewPrometheus()

	authService := service.NewAuthService(store, hasher, issuer, recorder, logger)
	otpService := service.NewOTPService(store, store, hasher, sender,
		service.OTPConfig{From: cfg.MailFrom, TTL: cfg.OTPTTL}, recorder, logger)
	sweeper := service.NewOTPSweeper(store, cfg.OTPSweepInterval, recorder, logger)

	router := server.NewRouter(server.Routes{
		Logger:         logger,
		Metrics:        recorder,
		MetricsHandler: recorder.Handler(),
		Root:           handler.New(),
		Health:         handler.NewHealthHandler(cfg.StoreBackend, store, cacheHC),
		Auth:           handler.NewAuthHandler(authService, logger),
		OTP:            handler.NewOTPHandler(otpService, logger),
		Authenticator:  authService,
		RateLimit: middleware.RateLimitConfig{
			Logger:       logger,
			Limiter:      limiter,
			Metrics:      recorder,
			IPPerMinute:  cfg.RateLimitIPPerMinute,
			IPBurst:      cfg.RateLimitIPBurst,
			EmailPerHour: cfg.RateLimitEmailPerHour,
			EmailBurst:   cfg.RateLimitEmailBurst,
		},
		IsDevelopment: cfg.IsDevelopment(),
		MaxBodySize:   cfg.MaxRequestBodySize,
	})

	srv := server.New(router, server.Options{
		Port:            cfg.AppPort,
		ReadTimeout:     cfg.ReadTimeout,
		WriteTimeout:    cfg.WriteTimeout,
		ShutdownTimeout: cfg.ShutdownTimeout,
	}, logger)

	srv.OnShutdown(cfg.StoreBackend, store.Close)
	if cacheClient != nil {
		srv.OnShutdown("redis", func(context.Context) error { return cacheClient.Close() })
	}
	if sweeper.Enabled() {
		srv.Go("otp_sweeper", sweeper.Run)
	}

	logger.Info("starting server",
		"port", cfg.AppPort,
		"env", cfg.AppEnv,
		"store", cfg.StoreBackend,
		"hash_algorithm", hasher.Algorithm(),
	)

	return srv.Run(ctx)
}

// openStore connects the configured storage backend.
func openStore(ctx context.Context, cfg *config.Config, logger *slog.Logger) (service.Store, error) {
	switch cfg.StoreBackend {
	case config.BackendPostgres:
		repo, err := repository.New(ctx, cfg.DatabaseURL)
		if err != nil {
			logger.Error(
				"failed to connect to database",
				slog.String("error", sanitizeError(err, cfg.DatabaseURL)),
				slog.String("database_url", redactURL(cfg.DatabaseURL)),
			)
			return nil, err
		}
		if err := repo.Migrate(ctx); err != nil {
			_ = repo.Close(ctx)
			return nil, err
		}
		logger.Info("connected to PostgreSQL")
		return repo, nil
	default:
		store, err := mongostore.New(ctx, cfg.MongoURI, cfg.MongoDatabase)
		if err != nil {
			logger.Error(
				"failed to connect to MongoDB",
				slog.String("error", sanitizeError(err, cfg.MongoURI)),
				slog.String("mongo_uri", redactURL(cfg.MongoURI)),
			)
			return nil, err
		}
		logger.Info("connected to MongoDB", "database", cfg.MongoDatabase)
		return store, nil
	}
}

// newSender picks SendGrid with retries when an API key is configured and
// falls back to logging the message otherwise.
func newSender(cfg *config.Config, logger *slog.Logger) (email.Sender, error) {
	if cfg.SendGridAPIKey == "" {
		if cfg.IsProduction() {
			logger.Warn("SENDGRID_API_KEY not set in production, verification emails will only be logged")
		}
		return email.NewLogSender(logger), nil
	}
	sendGrid, err := email.NewSendGridSender(cfg.SendGridAPIKey, cfg.SendGridHost, logger)
	if err != nil {
		return nil, err
	}
	return email.NewRetryingSender(sendGrid, cfg.EmailMaxAttempts, logger), nil
}

// initLogger initializes the slog logger based on configuration.
func initLogger(cfg *config.Config) *slog.Logger {
	var h slog.Handler

	opts := &slog.HandlerOptions{
		Level: parseLogLevel(cfg.LogLevel),
	}

	if cfg.LogFormat == "json" {
		h = slog.NewJSONHandler(os.Stdout, opts)
	} else {
		h = slog.NewTextHandler(os.Stdout, opts)
	}

	logger := slog.New(h)
	slog.SetDefault(logger)

	return logger
}

// parseLogLevel converts string log level to slog.Level.
func parseLogLevel(level string) slog.Level {
	switch strings.ToLower(level) {
	case "debug":
		return slog.LevelDebug
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

var passwordPattern = regexp.MustCompile(`(?i)password=[^\s]+`)

// redactURL drops the password from a connection URL.
func redactURL(raw string) string {
	if raw == "" {
		return ""
	}

	parsed, err := url.Parse(raw)
	if err != nil {
		return "[redacted]"
	}

	if parsed.User != nil {
		username := parsed.User.Username()
		if username == "" {
			parsed.User = url.User("redacted")
		} else {
			parsed.User = url.User(username)
		}
	}

	return parsed.String()
}

// sanitizeError replaces connection strings in an error message with
// their redacted form.
func sanitizeError(err error, secrets ...string) string {
	if err == nil {
		return ""
	}

	msg := err.Error()
	for _, secret := range secrets {
		if secret == "" {
			continue
		}
		redacted := redactURL(secret)
		if redacted == "" {
			redacted = "[redacted]"
		}
		msg = strings.ReplaceAll(msg, secret, redacted)
	}

	return passwordPattern.ReplaceAllString(msg, "password=redacted")
}
