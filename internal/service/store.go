// Package service provides the credential and OTP workflows.
package service

import (
	"context"
	"time"

	"github.com/mailauth/mailauth/internal/model"
)

// UserStore persists user records.
type UserStore interface {
	CreateUser(ctx context.Context, user *model.User) error
	GetUserByEmail(ctx context.Context, email string) (*model.User, error)
	GetUserByID(ctx context.Context, id string) (*model.User, error)
}

// OTPStore persists OTP records. FindOTPsByEmail returns records in
// insertion order.
type OTPStore interface {
	CreateOTP(ctx context.Context, otp *model.OTPRecord) error
	FindOTPsByEmail(ctx context.Context, email string) ([]model.OTPRecord, error)
	DeleteOTPsByEmail(ctx context.Context, email string) (int64, error)
	DeleteExpiredOTPs(ctx context.Context, now time.Time) (int64, error)
}

// Store is a complete storage backend.
type Store interface {
	UserStore
	OTPStore
	Ping(ctx context.Context) error
	Close(ctx context.Context) error
}

// TokenIssuer signs and verifies token pairs.
type TokenIssuer interface {
	IssuePair(userID string) (model.TokenPair, error)
	Verify(token string) (string, error)
}
