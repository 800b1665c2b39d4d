package middleware

import (
	"errors"
	"net/mail"
	"strings"
	"unicode/utf8"
)

// Validation limits.
const (
	// MaxEmailLength is the maximum length of an address (RFC 5321).
	MaxEmailLength = 254
	// MaxFullNameLength is the maximum length of a display name.
	MaxFullNameLength = 200
)

// Validation errors.
var (
	ErrEmailRequired   = errors.New("email is required")
	ErrEmailTooLong    = errors.New("email exceeds maximum length")
	ErrEmailInvalid    = errors.New("email is not a valid address")
	ErrFullNameTooLong = errors.New("full name exceeds maximum length")
)

// ValidateEmail checks that email is a bare, well-formed address.
func ValidateEmail(email string) error {
	email = strings.TrimSpace(email)
	if email == "" {
		return ErrEmailRequired
	}
	if len(email) > MaxEmailLength {
		return ErrEmailTooLong
	}
	addr, err := mail.ParseAddress(email)
	if err != nil || addr.Address != email {
		return ErrEmailInvalid
	}
	return nil
}

// ValidateFullName bounds the display name length.
func ValidateFullName(name string) error {
	if utf8.RuneCountInString(name) > MaxFullNameLength {
		return ErrFullNameTooLong
	}
	return nil
}
