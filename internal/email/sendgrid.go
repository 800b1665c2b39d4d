package email

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/sendgrid/rest"
	"github.com/sendgrid/sendgrid-go"
	"github.com/sendgrid/sendgrid-go/helpers/mail"
)

const (
	sendGridEndpoint    = "/v3/mail/send"
	defaultSendGridHost = "https://api.sendgrid.com"
)

// SendGridSender delivers mail through the SendGrid v3 API.
type SendGridSender struct {
	apiKey string
	host   string
	logger *slog.Logger
}

// NewSendGridSender creates a SendGridSender. An empty host selects the
// public SendGrid API.
func NewSendGridSender(apiKey, host string, logger *slog.Logger) (*SendGridSender, error) {
	if apiKey == "" {
		return nil, errors.New("sendgrid api key is required")
	}
	if host == "" {
		host = defaultSendGridHost
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &SendGridSender{
		apiKey: apiKey,
		host:   host,
		logger: logger.With("component", "sendgrid"),
	}, nil
}

// Send posts msg to SendGrid. Any non-2xx response is an error wrapping
// ErrDispatch. Transport errors, 429 and 5xx also wrap ErrTemporary.
func (s *SendGridSender) Send(ctx context.Context, msg Message) error {
	m := mail.NewSingleEmail(
		mail.NewEmail("", msg.From),
		msg.Subject,
		mail.NewEmail("", msg.To),
		msg.Text,
		msg.HTML,
	)

	request := sendgrid.GetRequest(s.apiKey, sendGridEndpoint, s.host)
	request.Method = rest.Post
	request.Body = mail.GetRequestBody(m)

	resp, err := sendgrid.MakeRequestWithContext(ctx, request)
	if err != nil {
		if ctx.Err() != nil {
			return fmt.Errorf("%w: %w", ErrDispatch, err)
		}
		return fmt.Errorf("%w: %w: %w", ErrDispatch, ErrTemporary, err)
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		s.logger.WarnContext(ctx, "sendgrid rejected message",
			"status", resp.StatusCode,
			"body", resp.Body,
		)
		if resp.StatusCode == http.StatusTooManyRequests || resp.StatusCode >= 500 {
			return fmt.Errorf("%w: %w: sendgrid status %d", ErrDispatch, ErrTemporary, resp.StatusCode)
		}
		return fmt.Errorf("%w: sendgrid status %d", ErrDispatch, resp.StatusCode)
	}

	s.logger.DebugContext(ctx, "email sent", "status", resp.StatusCode)
	return nil
}
