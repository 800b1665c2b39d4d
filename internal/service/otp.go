package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/mailauth/mailauth/internal/auth"
	"github.com/mailauth/mailauth/internal/email"
	"github.com/mailauth/mailauth/internal/metrics"
	"github.com/mailauth/mailauth/internal/model"
	"github.com/mailauth/mailauth/internal/repository"
)

// SuccessMessage is returned by the OTP workflows on success.
const SuccessMessage = "Success"

// DefaultOTPTTL is the lifetime of a freshly issued code.
const DefaultOTPTTL = time.Hour

// OTPConfig configures OTPService.
type OTPConfig struct {
	From string
	TTL  time.Duration
}

// OTPService issues and verifies email one-time passcodes.
type OTPService struct {
	users    UserStore
	otps     OTPStore
	hasher   auth.PasswordHasher
	sender   email.Sender
	from     string
	ttl      time.Duration
	now      func() time.Time
	generate func() (string, error)
	metrics  metrics.Recorder
	logger   *slog.Logger
}

// NewOTPService creates a new OTPService.
func NewOTPService(users UserStore, otps OTPStore, hasher auth.PasswordHasher, sender email.Sender, cfg OTPConfig, recorder metrics.Recorder, logger *slog.Logger) *OTPService {
	if recorder == nil {
		recorder = metrics.NewNoop()
	}
	if logger == nil {
		logger = slog.Default()
	}
	if cfg.TTL <= 0 {
		cfg.TTL = DefaultOTPTTL
	}
	return &OTPService{
		users:    users,
		otps:     otps,
		hasher:   hasher,
		sender:   sender,
		from:     cfg.From,
		ttl:      cfg.TTL,
		now:      time.Now,
		generate: auth.GenerateOTPCode,
		metrics:  recorder,
		logger:   logger.With("component", "otp_service"),
	}
}

// SendVerification issues a code for email and mails it. When userRequired
// is set the email must belong to a registered user. The record is stored
// before dispatch and is kept if dispatch fails.
func (s *OTPService) SendVerification(ctx context.Context, address string, userRequired bool) (string, error) {
	address = model.NormalizeEmail(address)
	if address == "" {
		return "", ErrMissingEmail
	}

	if userRequired {
		if _, err := s.users.GetUserByEmail(ctx, address); err != nil {
			if errors.Is(err, repository.ErrUserNotFound) {
				return "", ErrUserNotFound
			}
			return "", fmt.Errorf("failed to get user: %w", err)
		}
	}

	code, err := s.generate()
	if err != nil {
		return "", err
	}

	hash, err := s.hasher.Hash(code)
	if err != nil {
		return "", fmt.Errorf("failed to hash code: %w", err)
	}

	now := s.now()
	record := &model.OTPRecord{
		Email:     address,
		CodeHash:  hash,
		ExpiresAt: now.Add(s.ttl),
		CreatedAt: now,
	}
	if err := s.otps.CreateOTP(ctx, record); err != nil {
		return "", fmt.Errorf("failed to store otp: %w", err)
	}

	start := time.Now()
	err = s.sender.Send(ctx, email.VerificationMessage(s.from, address, code))
	s.metrics.ObserveEmailDispatchDuration(time.Since(start))
	if err != nil {
		s.metrics.IncOTPSent(metrics.StatusFailed)
		s.logger.ErrorContext(ctx, "verification email failed", "otp_id", record.ID, "error", err)
		return "", wrap(ErrEmailDispatch, err)
	}

	s.metrics.IncOTPSent(metrics.StatusSuccess)
	s.logger.InfoContext(ctx, "verification code sent", "otp_id", record.ID, "expires_at", record.ExpiresAt)
	return SuccessMessage, nil
}

// Verify checks code against the most recent record for email. Success and
// expiry both remove every record for the email; a wrong code leaves them.
func (s *OTPService) Verify(ctx context.Context, address, code string) (string, error) {
	if code == "" {
		return "", ErrMissingCode
	}
	address = model.NormalizeEmail(address)
	if address == "" {
		return "", ErrMissingEmail
	}

	records, err := s.otps.FindOTPsByEmail(ctx, address)
	if err != nil {
		return "", fmt.Errorf("failed to load otps: %w", err)
	}
	if len(records) == 0 {
		s.metrics.IncOTPVerified(metrics.StatusNotFound)
		return "", ErrNoOTPFound
	}

	latest := records[len(records)-1]
	if latest.IsExpired(s.now()) {
		if _, err := s.otps.DeleteOTPsByEmail(ctx, address); err != nil {
			return "", fmt.Errorf("failed to purge expired otps: %w", err)
		}
		s.metrics.IncOTPVerified(metrics.StatusExpired)
		return "", ErrExpiredCode
	}

	ok := auth.ValidOTPFormat(code)
	if ok {
		ok, err = s.hasher.Verify(code, latest.CodeHash)
		if err != nil {
			return "", fmt.Errorf("failed to verify code: %w", err)
		}
	}
	if !ok {
		s.metrics.IncOTPVerified(metrics.StatusIncorrect)
		return "", ErrIncorrectCode
	}

	if _, err := s.otps.DeleteOTPsByEmail(ctx, address); err != nil {
		return "", fmt.Errorf("failed to consume otps: %w", err)
	}

	s.metrics.IncOTPVerified(metrics.StatusSuccess)
	s.logger.InfoContext(ctx, "verification code accepted", "otp_id", latest.ID)
	return SuccessMessage, nil
}
