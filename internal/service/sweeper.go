package service

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"github.com/mailauth/mailauth/internal/metrics"
)

// DefaultSweepInterval is how often expired OTP records are purged.
const DefaultSweepInterval = 15 * time.Minute

// OTPSweeper periodically deletes expired OTP records.
type OTPSweeper struct {
	otps     OTPStore
	interval time.Duration
	now      func() time.Time
	metrics  metrics.Recorder
	logger   *slog.Logger

	started bool
	cancel  context.CancelFunc
	done    chan struct{}
	mu      sync.Mutex
}

// NewOTPSweeper creates a sweeper. A non-positive interval disables it.
func NewOTPSweeper(otps OTPStore, interval time.Duration, recorder metrics.Recorder, logger *slog.Logger) *OTPSweeper {
	if recorder == nil {
		recorder = metrics.NewNoop()
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &OTPSweeper{
		otps:     otps,
		interval: interval,
		now:      time.Now,
		metrics:  recorder,
		logger:   logger.With("component", "otp_sweeper"),
	}
}

// Enabled reports whether the sweeper has a positive interval.
func (s *OTPSweeper) Enabled() bool {
	return s.interval > 0
}

// Sweep deletes expired records once.
func (s *OTPSweeper) Sweep(ctx context.Context) (int64, error) {
	deleted, err := s.otps.DeleteExpiredOTPs(ctx, s.now())
	if err != nil {
		return 0, err
	}
	s.metrics.AddOTPSwept(deleted)
	if deleted > 0 {
		s.logger.InfoContext(ctx, "expired otps swept", "deleted", deleted)
	}
	return deleted, nil
}

// Run sweeps on every tick. Blocks until context is cancelled or Shutdown
// is called.
func (s *OTPSweeper) Run(ctx context.Context) error {
	if !s.Enabled() {
		return nil
	}

	s.mu.Lock()
	if s.started {
		s.mu.Unlock()
		return errors.New("sweeper already started")
	}
	s.started = true
	s.done = make(chan struct{})
	ctx, s.cancel = context.WithCancel(ctx)
	s.mu.Unlock()

	defer close(s.done)

	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	s.logger.Info("otp sweeper started", "interval", s.interval)

	for {
		select {
		case <-ctx.Done():
			s.logger.Info("otp sweeper stopping")
			return nil
		case <-ticker.C:
			if _, err := s.Sweep(ctx); err != nil && !errors.Is(err, context.Canceled) {
				s.logger.Error("otp sweep failed", "error", err)
			}
		}
	}
}

// Shutdown stops the loop and waits for it to exit.
func (s *OTPSweeper) Shutdown(ctx context.Context) error {
	s.mu.Lock()
	if !s.started {
		s.mu.Unlock()
		return nil
	}
	cancel := s.cancel
	done := s.done
	s.mu.Unlock()

	cancel()

	select {
	case <-done:
		return nil
	case <-ctx.Done():
		s.logger.Warn("otp sweeper shutdown timed out")
		return ctx.Err()
	}
}
