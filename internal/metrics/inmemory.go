package metrics

import (
	"sync"
	"sync/atomic"
	"time"
)

// Snapshot captures current in-memory counters.
type Snapshot struct {
	Registrations        uint64
	Logins               map[string]uint64
	Refreshes            map[string]uint64
	OTPSent              map[string]uint64
	OTPVerified          map[string]uint64
	OTPSwept             int64
	EmailDispatchCount   uint64
	EmailDispatchTotalNs int64
	RateLimited          map[string]uint64
	HTTPRequests         uint64
}

// InMemoryRecorder stores metrics in memory for tests.
type InMemoryRecorder struct {
	registrations        uint64
	otpSwept             int64
	emailDispatchCount   uint64
	emailDispatchTotalNs int64
	httpRequests         uint64

	mu          sync.Mutex
	logins      map[string]uint64
	refreshes   map[string]uint64
	otpSent     map[string]uint64
	otpVerified map[string]uint64
	rateLimited map[string]uint64
}

// NewInMemory returns a Recorder that stores counters in memory.
func NewInMemory() *InMemoryRecorder {
	return &InMemoryRecorder{
		logins:      make(map[string]uint64),
		refreshes:   make(map[string]uint64),
		otpSent:     make(map[string]uint64),
		otpVerified: make(map[string]uint64),
		rateLimited: make(map[string]uint64),
	}
}

// Snapshot returns a copy of the counters.
func (m *InMemoryRecorder) Snapshot() Snapshot {
	m.mu.Lock()
	defer m.mu.Unlock()

	return Snapshot{
		Registrations:        atomic.LoadUint64(&m.registrations),
		Logins:               copyCounts(m.logins),
		Refreshes:            copyCounts(m.refreshes),
		OTPSent:              copyCounts(m.otpSent),
		OTPVerified:          copyCounts(m.otpVerified),
		OTPSwept:             atomic.LoadInt64(&m.otpSwept),
		EmailDispatchCount:   atomic.LoadUint64(&m.emailDispatchCount),
		EmailDispatchTotalNs: atomic.LoadInt64(&m.emailDispatchTotalNs),
		RateLimited:          copyCounts(m.rateLimited),
		HTTPRequests:         atomic.LoadUint64(&m.httpRequests),
	}
}

// IncRegistration increments the registration counter.
func (m *InMemoryRecorder) IncRegistration() {
	atomic.AddUint64(&m.registrations, 1)
}

// IncLogin counts a login attempt by outcome.
func (m *InMemoryRecorder) IncLogin(status string) {
	m.inc(m.logins, status)
}

// IncRefresh counts a refresh attempt by outcome.
func (m *InMemoryRecorder) IncRefresh(status string) {
	m.inc(m.refreshes, status)
}

// IncOTPSent counts an OTP send by outcome.
func (m *InMemoryRecorder) IncOTPSent(status string) {
	m.inc(m.otpSent, status)
}

// IncOTPVerified counts an OTP verification by outcome.
func (m *InMemoryRecorder) IncOTPVerified(status string) {
	m.inc(m.otpVerified, status)
}

// AddOTPSwept adds to the swept-record counter.
func (m *InMemoryRecorder) AddOTPSwept(count int64) {
	atomic.AddInt64(&m.otpSwept, count)
}

// ObserveEmailDispatchDuration records email dispatch duration.
func (m *InMemoryRecorder) ObserveEmailDispatchDuration(duration time.Duration) {
	atomic.AddUint64(&m.emailDispatchCount, 1)
	atomic.AddInt64(&m.emailDispatchTotalNs, duration.Nanoseconds())
}

// IncRateLimited counts a rate-limited request by scope.
func (m *InMemoryRecorder) IncRateLimited(scope string) {
	m.inc(m.rateLimited, scope)
}

// ObserveHTTPRequest counts a served request.
func (m *InMemoryRecorder) ObserveHTTPRequest(string, string, int, time.Duration) {
	atomic.AddUint64(&m.httpRequests, 1)
}

func (m *InMemoryRecorder) inc(counts map[string]uint64, key string) {
	m.mu.Lock()
	counts[key]++
	m.mu.Unlock()
}

func copyCounts(src map[string]uint64) map[string]uint64 {
	dst := make(map[string]uint64, len(src))
	for k, v := range src {
		dst[k] = v
	}
	return dst
}
