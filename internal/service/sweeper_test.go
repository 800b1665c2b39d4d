package service

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mailauth/mailauth/internal/metrics"
	"github.com/mailauth/mailauth/internal/model"
)

func TestOTPSweeper_Sweep(t *testing.T) {
	store := newMemStore()
	now := time.Date(2025, 6, 1, 9, 0, 0, 0, time.UTC)

	for _, r := range []model.OTPRecord{
		{Email: "a@x.com", ExpiresAt: now.Add(-time.Minute)},
		{Email: "b@x.com", ExpiresAt: now.Add(-time.Hour)},
		{Email: "a@x.com", ExpiresAt: now.Add(time.Minute)},
		{Email: "c@x.com", ExpiresAt: now},
	} {
		r := r
		require.NoError(t, store.CreateOTP(context.Background(), &r))
	}

	recorder := metrics.NewInMemory()
	sweeper := NewOTPSweeper(store, time.Minute, recorder, nil)
	sweeper.now = func() time.Time { return now }

	deleted, err := sweeper.Sweep(context.Background())
	require.NoError(t, err)
	assert.Equal(t, int64(2), deleted)
	assert.Equal(t, 1, store.otpCount("a@x.com"))
	assert.Zero(t, store.otpCount("b@x.com"))
	assert.Equal(t, 1, store.otpCount("c@x.com"), "expiry equal to now is not yet expired")
	assert.Equal(t, int64(2), recorder.Snapshot().OTPSwept)
}

func TestOTPSweeper_RunAndShutdown(t *testing.T) {
	store := newMemStore()
	require.NoError(t, store.CreateOTP(context.Background(), &model.OTPRecord{
		Email:     "a@x.com",
		ExpiresAt: time.Now().Add(-time.Minute),
	}))

	sweeper := NewOTPSweeper(store, 10*time.Millisecond, nil, nil)

	errCh := make(chan error, 1)
	go func() { errCh <- sweeper.Run(context.Background()) }()

	require.Eventually(t, func() bool {
		return store.otpCount("a@x.com") == 0
	}, 2*time.Second, 10*time.Millisecond)

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	require.NoError(t, sweeper.Shutdown(ctx))
	assert.NoError(t, <-errCh)
}

func TestOTPSweeper_Disabled(t *testing.T) {
	sweeper := NewOTPSweeper(newMemStore(), 0, nil, nil)
	assert.False(t, sweeper.Enabled())
	assert.NoError(t, sweeper.Run(context.Background()))
	assert.NoError(t, sweeper.Shutdown(context.Background()))
}
