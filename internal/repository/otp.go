package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/mailauth/mailauth/internal/model"
)

// CreateOTP inserts a new OTP record.
func (r *Repository) CreateOTP(ctx context.Context, otp *model.OTPRecord) error {
	if otp.ID == "" {
		otp.ID = newID()
	}
	if otp.CreatedAt.IsZero() {
		otp.CreatedAt = time.Now().UTC()
	}

	query := `
		INSERT INTO otps (id, email, code_hash, expires_at, created_at)
		VALUES ($1, $2, $3, $4, $5)
	`

	if _, err := r.pool.Exec(ctx, query, otp.ID, otp.Email, otp.CodeHash, otp.ExpiresAt, otp.CreatedAt); err != nil {
		return fmt.Errorf("failed to create otp: %w", err)
	}
	return nil
}

// FindOTPsByEmail returns all OTP records for email, oldest first.
func (r *Repository) FindOTPsByEmail(ctx context.Context, email string) ([]model.OTPRecord, error) {
	query := `
		SELECT id, email, code_hash, expires_at, created_at
		FROM otps
		WHERE email = $1
		ORDER BY created_at ASC, id ASC
	`

	rows, err := r.pool.Query(ctx, query, email)
	if err != nil {
		return nil, fmt.Errorf("failed to query otps: %w", err)
	}

	records, err := pgx.CollectRows(rows, func(row pgx.CollectableRow) (model.OTPRecord, error) {
		var o model.OTPRecord
		err := row.Scan(&o.ID, &o.Email, &o.CodeHash, &o.ExpiresAt, &o.CreatedAt)
		return o, err
	})
	if err != nil {
		return nil, fmt.Errorf("failed to scan otps: %w", err)
	}
	return records, nil
}

// DeleteOTPsByEmail removes every OTP record for email.
func (r *Repository) DeleteOTPsByEmail(ctx context.Context, email string) (int64, error) {
	tag, err := r.pool.Exec(ctx, `DELETE FROM otps WHERE email = $1`, email)
	if err != nil {
		return 0, fmt.Errorf("failed to delete otps: %w", err)
	}
	return tag.RowsAffected(), nil
}

// DeleteExpiredOTPs removes records whose expiry is before now.
func (r *Repository) DeleteExpiredOTPs(ctx context.Context, now time.Time) (int64, error) {
	tag, err := r.pool.Exec(ctx, `DELETE FROM otps WHERE expires_at < $1`, now)
	if err != nil {
		return 0, fmt.Errorf("failed to delete expired otps: %w", err)
	}
	return tag.RowsAffected(), nil
}
