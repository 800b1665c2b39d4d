package email

import (
	"context"
	"log/slog"
)

// LogSender writes messages to the logger instead of delivering them.
// Intended for local development where no provider key is configured.
type LogSender struct {
	logger *slog.Logger
}

// NewLogSender creates a LogSender.
func NewLogSender(logger *slog.Logger) *LogSender {
	if logger == nil {
		logger = slog.Default()
	}
	return &LogSender{logger: logger.With("component", "email_log")}
}

// Send logs the envelope at info and the body at debug.
func (s *LogSender) Send(ctx context.Context, msg Message) error {
	s.logger.InfoContext(ctx, "email captured",
		"to", msg.To,
		"from", msg.From,
		"subject", msg.Subject,
	)
	s.logger.DebugContext(ctx, "email body", "to", msg.To, "text", msg.Text)
	return nil
}
