//go:build integration

package mongostore

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/mailauth/mailauth/internal/repository"
	"github.com/mailauth/mailauth/internal/testutil"
)

func newTestStore(t *testing.T) (context.Context, *Store) {
	t.Helper()
	uri := testutil.RequireEnv(t, "MONGO_URI")

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	t.Cleanup(cancel)

	database := fmt.Sprintf("mailauth_test_%d", time.Now().UnixNano())
	store, err := New(ctx, uri, database)
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}
	t.Cleanup(func() {
		_ = store.client.Database(database).Drop(context.Background())
		_ = store.Close(context.Background())
	})

	return ctx, store
}

func TestIntegrationStore_Users(t *testing.T) {
	ctx, store := newTestStore(t)

	user := testutil.NewTestUser(t, testutil.UniqueEmail("mongo"))
	if err := store.CreateUser(ctx, user); err != nil {
		t.Fatalf("CreateUser failed: %v", err)
	}

	got, err := store.GetUserByID(ctx, user.ID)
	if err != nil {
		t.Fatalf("GetUserByID failed: %v", err)
	}
	if got.Email != user.Email || got.PasswordHash != user.PasswordHash {
		t.Errorf("GetUserByID = %+v, want %+v", got, user)
	}

	if err := store.CreateUser(ctx, testutil.NewTestUser(t, user.Email)); !errors.Is(err, repository.ErrEmailExists) {
		t.Errorf("duplicate CreateUser error = %v, want ErrEmailExists", err)
	}

	if _, err := store.GetUserByEmail(ctx, "nobody@example.com"); !errors.Is(err, repository.ErrUserNotFound) {
		t.Errorf("GetUserByEmail error = %v, want ErrUserNotFound", err)
	}
	if _, err := store.GetUserByID(ctx, "not-hex"); !errors.Is(err, repository.ErrUserNotFound) {
		t.Errorf("GetUserByID(not-hex) error = %v, want ErrUserNotFound", err)
	}
}

func TestIntegrationStore_OTPs(t *testing.T) {
	ctx, store := newTestStore(t)

	email := testutil.UniqueEmail("otp")
	expired := testutil.NewTestOTP(t, email, -time.Minute)
	expired.CodeHash = "old"
	live := testutil.NewTestOTP(t, email, time.Hour)
	live.CodeHash = "new"
	live.CreatedAt = expired.CreatedAt.Add(time.Millisecond)

	if err := store.CreateOTP(ctx, expired); err != nil {
		t.Fatalf("CreateOTP failed: %v", err)
	}
	if err := store.CreateOTP(ctx, live); err != nil {
		t.Fatalf("CreateOTP failed: %v", err)
	}

	records, err := store.FindOTPsByEmail(ctx, email)
	if err != nil {
		t.Fatalf("FindOTPsByEmail failed: %v", err)
	}
	if len(records) != 2 || records[1].CodeHash != "new" {
		t.Fatalf("FindOTPsByEmail = %+v, want old then new", records)
	}

	deleted, err := store.DeleteExpiredOTPs(ctx, time.Now())
	if err != nil {
		t.Fatalf("DeleteExpiredOTPs failed: %v", err)
	}
	if deleted != 1 {
		t.Errorf("expired deleted = %d, want 1", deleted)
	}

	deleted, err = store.DeleteOTPsByEmail(ctx, email)
	if err != nil {
		t.Fatalf("DeleteOTPsByEmail failed: %v", err)
	}
	if deleted != 1 {
		t.Errorf("deleted = %d, want 1", deleted)
	}
}
