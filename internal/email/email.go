// Package email dispatches transactional email.
package email

import (
	"context"
	"errors"
	"fmt"
	"html"
)

// VerificationSubject is the subject line of OTP emails.
const VerificationSubject = "Verification email"

var (
	// ErrDispatch indicates the provider rejected or failed to accept a message.
	ErrDispatch = errors.New("email dispatch failed")
	// ErrTemporary marks dispatch failures that may succeed on retry.
	ErrTemporary = errors.New("temporary failure")
)

// Message is a single outbound email.
type Message struct {
	From    string
	To      string
	Subject string
	HTML    string
	Text    string
}

// Sender delivers messages.
type Sender interface {
	Send(ctx context.Context, msg Message) error
}

// VerificationMessage builds the OTP email for code.
func VerificationMessage(from, to, code string) Message {
	return Message{
		From:    from,
		To:      to,
		Subject: VerificationSubject,
		HTML:    fmt.Sprintf("<h1>Verification code: %s</h1>", html.EscapeString(code)),
		Text:    fmt.Sprintf("Verification code: %s", code),
	}
}
