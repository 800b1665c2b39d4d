package service

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mailauth/mailauth/internal/auth"
	"github.com/mailauth/mailauth/internal/metrics"
	"github.com/mailauth/mailauth/internal/model"
)

type otpEnv struct {
	svc     *OTPService
	store   *memStore
	sender  *recordingSender
	metrics *metrics.InMemoryRecorder
	now     time.Time
}

func newOTPEnv(t *testing.T) *otpEnv {
	t.Helper()
	env := &otpEnv{
		store:   newMemStore(),
		sender:  &recordingSender{},
		metrics: metrics.NewInMemory(),
		now:     time.Date(2025, 6, 1, 9, 0, 0, 0, time.UTC),
	}
	env.svc = NewOTPService(env.store, env.store, newTestHasher(t), env.sender,
		OTPConfig{From: "noreply@x.com", TTL: time.Hour}, env.metrics, nil)
	env.svc.now = func() time.Time { return env.now }
	return env
}

// sentCode extracts the code from the most recent message.
func (e *otpEnv) sentCode(t *testing.T) string {
	t.Helper()
	msg := e.sender.last(t)
	code := strings.TrimPrefix(msg.Text, "Verification code: ")
	require.True(t, auth.ValidOTPFormat(code), "unexpected message text %q", msg.Text)
	return code
}

func TestSendVerification_Success(t *testing.T) {
	env := newOTPEnv(t)

	msg, err := env.svc.SendVerification(context.Background(), "A@x.com", false)
	require.NoError(t, err)
	assert.Equal(t, "Success", msg)

	sent := env.sender.last(t)
	assert.Equal(t, "a@x.com", sent.To)
	assert.Equal(t, "noreply@x.com", sent.From)
	assert.Equal(t, "Verification email", sent.Subject)
	code := env.sentCode(t)
	assert.Equal(t, "<h1>Verification code: "+code+"</h1>", sent.HTML)

	records, err := env.store.FindOTPsByEmail(context.Background(), "a@x.com")
	require.NoError(t, err)
	require.Len(t, records, 1)
	assert.NotEqual(t, code, records[0].CodeHash, "code must be stored hashed")
	assert.Equal(t, env.now.Add(time.Hour), records[0].ExpiresAt)

	assert.Equal(t, uint64(1), env.metrics.Snapshot().OTPSent[metrics.StatusSuccess])
}

func TestSendVerification_Validation(t *testing.T) {
	env := newOTPEnv(t)

	_, err := env.svc.SendVerification(context.Background(), "", false)
	assert.ErrorIs(t, err, ErrMissingEmail)

	_, err = env.svc.SendVerification(context.Background(), "nobody@x.com", true)
	assert.ErrorIs(t, err, ErrUserNotFound)
	assert.Zero(t, env.store.otpCount("nobody@x.com"), "no record for rejected send")
	assert.Empty(t, env.sender.sent)
}

func TestSendVerification_RegisteredUser(t *testing.T) {
	env := newOTPEnv(t)
	require.NoError(t, env.store.CreateUser(context.Background(), &model.User{Email: "a@x.com"}))

	_, err := env.svc.SendVerification(context.Background(), "a@x.com", true)
	require.NoError(t, err)
	assert.Equal(t, 1, env.store.otpCount("a@x.com"))
}

func TestSendVerification_DispatchFailureKeepsRecord(t *testing.T) {
	env := newOTPEnv(t)
	env.sender.err = errSMTP

	_, err := env.svc.SendVerification(context.Background(), "a@x.com", false)
	assert.ErrorIs(t, err, ErrEmailDispatch)
	assert.ErrorIs(t, err, errSMTP)
	assert.Equal(t, 1, env.store.otpCount("a@x.com"))
	assert.Equal(t, uint64(1), env.metrics.Snapshot().OTPSent[metrics.StatusFailed])
}

func TestVerify_SuccessConsumesCode(t *testing.T) {
	env := newOTPEnv(t)

	_, err := env.svc.SendVerification(context.Background(), "a@x.com", false)
	require.NoError(t, err)
	code := env.sentCode(t)

	msg, err := env.svc.Verify(context.Background(), "a@x.com", code)
	require.NoError(t, err)
	assert.Equal(t, "Success", msg)
	assert.Zero(t, env.store.otpCount("a@x.com"))

	_, err = env.svc.Verify(context.Background(), "a@x.com", code)
	assert.ErrorIs(t, err, ErrNoOTPFound, "codes are single-use")
}

func TestVerify_Validation(t *testing.T) {
	env := newOTPEnv(t)

	_, err := env.svc.Verify(context.Background(), "a@x.com", "")
	assert.ErrorIs(t, err, ErrMissingCode)

	_, err = env.svc.Verify(context.Background(), "", "123456")
	assert.ErrorIs(t, err, ErrMissingEmail)

	_, err = env.svc.Verify(context.Background(), "a@x.com", "123456")
	assert.ErrorIs(t, err, ErrNoOTPFound)
}

func TestVerify_IncorrectCodeKeepsRecord(t *testing.T) {
	env := newOTPEnv(t)
	env.svc.generate = func() (string, error) { return "123456", nil }

	_, err := env.svc.SendVerification(context.Background(), "a@x.com", false)
	require.NoError(t, err)

	_, err = env.svc.Verify(context.Background(), "a@x.com", "654321")
	assert.ErrorIs(t, err, ErrIncorrectCode)
	assert.Equal(t, 1, env.store.otpCount("a@x.com"))

	_, err = env.svc.Verify(context.Background(), "a@x.com", "123456")
	require.NoError(t, err)
}

func TestVerify_ExpiredPurgesRecords(t *testing.T) {
	env := newOTPEnv(t)

	_, err := env.svc.SendVerification(context.Background(), "a@x.com", false)
	require.NoError(t, err)
	code := env.sentCode(t)

	env.now = env.now.Add(time.Hour + time.Second)

	_, err = env.svc.Verify(context.Background(), "a@x.com", code)
	assert.ErrorIs(t, err, ErrExpiredCode)
	assert.Zero(t, env.store.otpCount("a@x.com"))

	_, err = env.svc.Verify(context.Background(), "a@x.com", code)
	assert.ErrorIs(t, err, ErrNoOTPFound)
}

func TestVerify_UsesMostRecentRecord(t *testing.T) {
	env := newOTPEnv(t)
	codes := []string{"111111", "222222"}
	env.svc.generate = func() (string, error) {
		c := codes[0]
		codes = codes[1:]
		return c, nil
	}

	for i := 0; i < 2; i++ {
		_, err := env.svc.SendVerification(context.Background(), "a@x.com", false)
		require.NoError(t, err)
		env.now = env.now.Add(time.Minute)
	}
	require.Equal(t, 2, env.store.otpCount("a@x.com"))

	_, err := env.svc.Verify(context.Background(), "a@x.com", "111111")
	assert.ErrorIs(t, err, ErrIncorrectCode, "older code is superseded")

	_, err = env.svc.Verify(context.Background(), "a@x.com", "222222")
	require.NoError(t, err)
	assert.Zero(t, env.store.otpCount("a@x.com"), "success purges every record for the email")
}

func TestVerify_MetricsByOutcome(t *testing.T) {
	env := newOTPEnv(t)
	env.svc.generate = func() (string, error) { return "123456", nil }

	_, _ = env.svc.Verify(context.Background(), "a@x.com", "123456")
	_, _ = env.svc.SendVerification(context.Background(), "a@x.com", false)
	_, _ = env.svc.Verify(context.Background(), "a@x.com", "000000")
	_, _ = env.svc.Verify(context.Background(), "a@x.com", "123456")

	snap := env.metrics.Snapshot()
	assert.Equal(t, uint64(1), snap.OTPVerified[metrics.StatusNotFound])
	assert.Equal(t, uint64(1), snap.OTPVerified[metrics.StatusIncorrect])
	assert.Equal(t, uint64(1), snap.OTPVerified[metrics.StatusSuccess])
	assert.Equal(t, uint64(1), snap.EmailDispatchCount)
}

func TestVerify_MalformedCodeIsIncorrect(t *testing.T) {
	env := newOTPEnv(t)

	_, err := env.svc.SendVerification(context.Background(), "a@x.com", false)
	require.NoError(t, err)

	for _, code := range []string{"12345", "abcdef", "1234567"} {
		_, err := env.svc.Verify(context.Background(), "a@x.com", code)
		assert.ErrorIs(t, err, ErrIncorrectCode, "code %q", code)
	}
	assert.Equal(t, 1, env.store.otpCount("a@x.com"))
}
