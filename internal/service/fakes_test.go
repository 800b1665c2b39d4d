package service

import (
	"context"
	"errors"
	"strconv"
	"sync"
	"testing"
	"time"

	"golang.org/x/crypto/bcrypt"

	"github.com/mailauth/mailauth/internal/auth"
	"github.com/mailauth/mailauth/internal/email"
	"github.com/mailauth/mailauth/internal/model"
	"github.com/mailauth/mailauth/internal/repository"
)

// memStore is an in-memory Store.
type memStore struct {
	mu        sync.Mutex
	seq       int
	users     map[string]*model.User
	otps      []model.OTPRecord
	createErr error
}

func newMemStore() *memStore {
	return &memStore{users: make(map[string]*model.User)}
}

func (m *memStore) nextID(prefix string) string {
	m.seq++
	return prefix + strconv.Itoa(m.seq)
}

func (m *memStore) CreateUser(_ context.Context, user *model.User) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.createErr != nil {
		return m.createErr
	}
	for _, u := range m.users {
		if u.Email == user.Email {
			return repository.ErrEmailExists
		}
	}
	user.ID = m.nextID("u")
	cp := *user
	m.users[user.ID] = &cp
	return nil
}

func (m *memStore) GetUserByEmail(_ context.Context, address string) (*model.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, u := range m.users {
		if u.Email == address {
			cp := *u
			return &cp, nil
		}
	}
	return nil, repository.ErrUserNotFound
}

func (m *memStore) GetUserByID(_ context.Context, id string) (*model.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	u, ok := m.users[id]
	if !ok {
		return nil, repository.ErrUserNotFound
	}
	cp := *u
	return &cp, nil
}

func (m *memStore) deleteUser(id string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.users, id)
}

func (m *memStore) CreateOTP(_ context.Context, otp *model.OTPRecord) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	otp.ID = m.nextID("o")
	m.otps = append(m.otps, *otp)
	return nil
}

func (m *memStore) FindOTPsByEmail(_ context.Context, address string) ([]model.OTPRecord, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []model.OTPRecord
	for _, o := range m.otps {
		if o.Email == address {
			out = append(out, o)
		}
	}
	return out, nil
}

func (m *memStore) DeleteOTPsByEmail(_ context.Context, address string) (int64, error) {
	return m.deleteWhere(func(o model.OTPRecord) bool { return o.Email == address }), nil
}

func (m *memStore) DeleteExpiredOTPs(_ context.Context, now time.Time) (int64, error) {
	return m.deleteWhere(func(o model.OTPRecord) bool { return o.ExpiresAt.Before(now) }), nil
}

func (m *memStore) deleteWhere(match func(model.OTPRecord) bool) int64 {
	m.mu.Lock()
	defer m.mu.Unlock()
	kept := m.otps[:0]
	var deleted int64
	for _, o := range m.otps {
		if match(o) {
			deleted++
			continue
		}
		kept = append(kept, o)
	}
	m.otps = kept
	return deleted
}

func (m *memStore) otpCount(address string) int {
	records, _ := m.FindOTPsByEmail(context.Background(), address)
	return len(records)
}

// recordingSender captures outbound messages.
type recordingSender struct {
	mu   sync.Mutex
	sent []email.Message
	err  error
}

func (s *recordingSender) Send(_ context.Context, msg email.Message) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.err != nil {
		return s.err
	}
	s.sent = append(s.sent, msg)
	return nil
}

func (s *recordingSender) last(t *testing.T) email.Message {
	t.Helper()
	s.mu.Lock()
	defer s.mu.Unlock()
	if len(s.sent) == 0 {
		t.Fatal("no message sent")
	}
	return s.sent[len(s.sent)-1]
}

var errSMTP = errors.New("provider unavailable")

func newTestHasher(t *testing.T) *auth.Hasher {
	t.Helper()
	h, err := auth.NewHasher(auth.AlgorithmBcrypt, bcrypt.MinCost)
	if err != nil {
		t.Fatalf("NewHasher failed: %v", err)
	}
	return h
}

func newTestIssuer(t *testing.T, now func() time.Time) *auth.TokenIssuer {
	t.Helper()
	issuer, err := auth.NewTokenIssuer("test-secret", time.Hour, 15*24*time.Hour)
	if err != nil {
		t.Fatalf("NewTokenIssuer failed: %v", err)
	}
	return issuer.WithClock(now)
}
