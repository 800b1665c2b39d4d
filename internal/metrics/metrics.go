// Package metrics provides lightweight hooks for instrumentation.
package metrics

import "time"

// Outcome labels shared by the counters.
const (
	StatusSuccess   = "success"
	StatusFailed    = "failed"
	StatusIncorrect = "incorrect"
	StatusExpired   = "expired"
	StatusNotFound  = "not_found"
)

// Recorder captures metric events for the application.
// Implementations can expose these to Prometheus or keep them in memory.
type Recorder interface {
	// Credential workflow metrics
	IncRegistration()
	IncLogin(status string)
	IncRefresh(status string)

	// OTP workflow metrics
	IncOTPSent(status string)
	IncOTPVerified(status string)
	AddOTPSwept(count int64)
	ObserveEmailDispatchDuration(duration time.Duration)

	// HTTP metrics
	IncRateLimited(scope string)
	ObserveHTTPRequest(method, route string, status int, duration time.Duration)
}

// Snapshotter exposes a snapshot of current metrics.
type Snapshotter interface {
	Snapshot() Snapshot
}
