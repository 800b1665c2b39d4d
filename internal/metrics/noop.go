package metrics

import "time"

// NoopRecorder implements Recorder with no-op methods.
type NoopRecorder struct{}

// NewNoop returns a Recorder that discards all metrics.
func NewNoop() Recorder {
	return &NoopRecorder{}
}

func (n *NoopRecorder) IncRegistration() {}
func (n *NoopRecorder) IncLogin(string) {}
func (n *NoopRecorder) IncRefresh(string) {}
func (n *NoopRecorder) IncOTPSent(string) {}
func (n *NoopRecorder) IncOTPVerified(string) {}
func (n *NoopRecorder) AddOTPSwept(int64) {}
func (n *NoopRecorder) ObserveEmailDispatchDuration(time.Duration) {}
func (n *NoopRecorder) IncRateLimited(string) {}
func (n *NoopRecorder) ObserveHTTPRequest(string, string, int, time.Duration) {}
