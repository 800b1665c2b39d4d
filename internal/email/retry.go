package email

import (
	"context"
	"errors"
	"log/slog"
	"math/rand"
	"time"
)

// Backoff delays between dispatch attempts. Attempts past the end of the
// table reuse the last delay.
var retryDelays = []time.Duration{
	250 * time.Millisecond,
	1 * time.Second,
	3 * time.Second,
}

const (
	// DefaultMaxAttempts is the default number of dispatch attempts.
	DefaultMaxAttempts = 3

	// JitterFactor is the ±fraction of jitter applied to delays.
	JitterFactor = 0.2
)

// NextRetryDelay returns the backoff before the next attempt with ±20%
// jitter. attempt is 0-indexed: after the first failure attempt is 0.
func NextRetryDelay(attempt int) time.Duration {
	if attempt < 0 {
		attempt = 0
	}
	if attempt >= len(retryDelays) {
		attempt = len(retryDelays) - 1
	}

	base := retryDelays[attempt]
	jitter := (rand.Float64()*2 - 1) * float64(base) * JitterFactor
	return time.Duration(float64(base) + jitter)
}

// RetryingSender retries temporary dispatch failures with backoff.
type RetryingSender struct {
	next        Sender
	maxAttempts int
	logger      *slog.Logger
	sleep       func(ctx context.Context, d time.Duration) error
}

// NewRetryingSender wraps next. maxAttempts below 1 means a single attempt.
func NewRetryingSender(next Sender, maxAttempts int, logger *slog.Logger) *RetryingSender {
	if maxAttempts < 1 {
		maxAttempts = 1
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &RetryingSender{
		next:        next,
		maxAttempts: maxAttempts,
		logger:      logger.With("component", "email_retry"),
		sleep:       sleepContext,
	}
}

// Send delivers msg, retrying while the error wraps ErrTemporary and
// attempts remain. The last error is returned.
func (s *RetryingSender) Send(ctx context.Context, msg Message) error {
	var err error
	for attempt := 0; attempt < s.maxAttempts; attempt++ {
		err = s.next.Send(ctx, msg)
		if err == nil || !errors.Is(err, ErrTemporary) {
			return err
		}
		if attempt == s.maxAttempts-1 {
			break
		}

		delay := NextRetryDelay(attempt)
		s.logger.WarnContext(ctx, "email dispatch failed, retrying",
			"attempt", attempt+1,
			"max_attempts", s.maxAttempts,
			"retry_in", delay,
			"error", err,
		)
		if sleepErr := s.sleep(ctx, delay); sleepErr != nil {
			return err
		}
	}
	return err
}

func sleepContext(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
