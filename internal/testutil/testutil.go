// Package testutil holds helpers shared by package tests.
package testutil

import (
	"context"
	"fmt"
	"os"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"

	"github.com/mailauth/mailauth/internal/model"
)

// RequireEnv returns an environment variable or skips the test if missing.
func RequireEnv(t testing.TB, key string) string {
	t.Helper()
	value := os.Getenv(key)
	if value == "" {
		t.Skipf("%s not set", key)
	}
	return value
}

const advisoryLockID int64 = 420420

// AcquireDBLock grabs a global advisory lock to serialize DB tests.
func AcquireDBLock(ctx context.Context, pool *pgxpool.Pool) (func() error, error) {
	conn, err := pool.Acquire(ctx)
	if err != nil {
		return nil, fmt.Errorf("acquire connection: %w", err)
	}

	if _, err := conn.Exec(ctx, "SELECT pg_advisory_lock($1)", advisoryLockID); err != nil {
		conn.Release()
		return nil, fmt.Errorf("acquire advisory lock: %w", err)
	}

	unlock := func() error {
		defer conn.Release()
		if _, err := conn.Exec(ctx, "SELECT pg_advisory_unlock($1)", advisoryLockID); err != nil {
			return fmt.Errorf("release advisory lock: %w", err)
		}
		return nil
	}

	return unlock, nil
}

// TruncateTables empties the users and otps tables.
func TruncateTables(ctx context.Context, pool *pgxpool.Pool) error {
	if _, err := pool.Exec(ctx, "TRUNCATE users, otps"); err != nil {
		return fmt.Errorf("truncate tables: %w", err)
	}
	return nil
}

// NewMiniRedis starts an in-process Redis server and returns a client bound
// to it. Both are torn down with the test.
func NewMiniRedis(t testing.TB) (*miniredis.Miniredis, *redis.Client) {
	t.Helper()
	m := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: m.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	return m, client
}

// ============================================================================
// Test Data Factories
// ============================================================================

// UniqueEmail generates a unique email address for tests.
func UniqueEmail(prefix string) string {
	return fmt.Sprintf("%s-%d@example.com", prefix, time.Now().UnixNano())
}

// NewTestUser creates a test user with sensible defaults.
func NewTestUser(t testing.TB, email string) *model.User {
	t.Helper()
	return &model.User{
		Email:        email,
		PasswordHash: "$2a$04$placeholderplaceholderplaceholderplaceholderplacehold",
		FullName:     "Test User",
		Profile:      map[string]any{"city": "Hanoi"},
		CreatedAt:    time.Now().UTC().Truncate(time.Millisecond),
	}
}

// NewTestOTP creates an OTP record for email expiring after ttl.
func NewTestOTP(t testing.TB, email string, ttl time.Duration) *model.OTPRecord {
	t.Helper()
	now := time.Now().UTC().Truncate(time.Millisecond)
	return &model.OTPRecord{
		Email:     email,
		CodeHash:  "hash",
		ExpiresAt: now.Add(ttl),
		CreatedAt: now,
	}
}
