package service

import "errors"

// Kind classifies workflow failures.
type Kind string

// Error kinds surfaced by the workflows.
const (
	KindDuplicateUser      Kind = "DUPLICATE_USER"
	KindUserNotFound       Kind = "USER_NOT_FOUND"
	KindInvalidCredentials Kind = "INVALID_CREDENTIALS"
	KindUnauthenticated    Kind = "UNAUTHENTICATED"
	KindMissingEmail       Kind = "MISSING_EMAIL"
	KindMissingCode        Kind = "MISSING_CODE"
	KindNoOTPFound         Kind = "NO_OTP_FOUND"
	KindExpiredCode        Kind = "EXPIRED_CODE"
	KindIncorrectCode      Kind = "INCORRECT_CODE"
	KindInvalidInput       Kind = "INVALID_INPUT"
	KindEmailDispatch      Kind = "EMAIL_DISPATCH"
)

// Error is a workflow failure tagged with its Kind. errors.Is matches any
// two Errors of the same Kind.
type Error struct {
	Kind    Kind
	Message string
	Err     error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return e.Message + ": " + e.Err.Error()
	}
	return e.Message
}

func (e *Error) Unwrap() error {
	return e.Err
}

// Is reports whether target is an *Error of the same Kind.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	return ok && t.Kind == e.Kind
}

// Service errors.
var (
	ErrDuplicateUser      = &Error{Kind: KindDuplicateUser, Message: "user already exists"}
	ErrUserNotFound       = &Error{Kind: KindUserNotFound, Message: "user not found"}
	ErrInvalidCredentials = &Error{Kind: KindInvalidCredentials, Message: "incorrect password"}
	ErrUnauthenticated    = &Error{Kind: KindUnauthenticated, Message: "invalid or expired token"}
	ErrMissingEmail       = &Error{Kind: KindMissingEmail, Message: "email is required"}
	ErrMissingCode        = &Error{Kind: KindMissingCode, Message: "code is required"}
	ErrNoOTPFound         = &Error{Kind: KindNoOTPFound, Message: "no otp found"}
	ErrExpiredCode        = &Error{Kind: KindExpiredCode, Message: "code has expired"}
	ErrIncorrectCode      = &Error{Kind: KindIncorrectCode, Message: "incorrect code"}
	ErrInvalidInput       = &Error{Kind: KindInvalidInput, Message: "invalid input"}
	ErrEmailDispatch      = &Error{Kind: KindEmailDispatch, Message: "failed to send email"}
)

// wrap returns a copy of base carrying cause.
func wrap(base *Error, cause error) *Error {
	return &Error{Kind: base.Kind, Message: base.Message, Err: cause}
}

// invalidInput returns an InvalidInput error with a specific message.
func invalidInput(message string) *Error {
	return &Error{Kind: KindInvalidInput, Message: message}
}

// KindOf returns the Kind of err, or "" when err is not a workflow error.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return ""
}
