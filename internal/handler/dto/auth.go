// Package dto provides Data Transfer Objects for API requests and responses.
package dto

import (
	"encoding/json"
	"fmt"
)

// RegisterRequest is the body of POST /api/v1/auth/register. Fields other
// than email, password and fullName are kept as profile data.
type RegisterRequest struct {
	Email    string
	Password string
	FullName string
	Profile  map[string]any
}

// UnmarshalJSON splits known fields from free-form profile fields.
func (r *RegisterRequest) UnmarshalJSON(data []byte) error {
	var raw map[string]json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}

	fields := map[string]*string{
		"email":    &r.Email,
		"password": &r.Password,
		"fullName": &r.FullName,
	}
	for name, dst := range fields {
		value, ok := raw[name]
		if !ok {
			continue
		}
		if err := json.Unmarshal(value, dst); err != nil {
			return fmt.Errorf("field %s must be a string", name)
		}
		delete(raw, name)
	}

	if len(raw) == 0 {
		return nil
	}
	r.Profile = make(map[string]any, len(raw))
	for name, value := range raw {
		var v any
		if err := json.Unmarshal(value, &v); err != nil {
			return err
		}
		r.Profile[name] = v
	}
	return nil
}

// LoginRequest is the body of POST /api/v1/auth/login.
type LoginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// RefreshRequest is the body of POST /api/v1/auth/login/access-token.
type RefreshRequest struct {
	RefreshToken string `json:"refreshToken"`
}

// SendOTPRequest is the body of POST /api/v1/mail/send-otp.
type SendOTPRequest struct {
	Email  string `json:"email"`
	IsUser bool   `json:"isUser"`
}

// VerifyOTPRequest is the body of POST /api/v1/mail/verify-otp.
type VerifyOTPRequest struct {
	Email string `json:"email"`
	OTP   string `json:"otp"`
}

// MessageResponse carries a plain status message.
type MessageResponse struct {
	Message string `json:"message"`
}

// ErrorResponse is the standard error envelope.
type ErrorResponse struct {
	Error ErrorDetail `json:"error"`
}

// ErrorDetail describes a failure.
type ErrorDetail struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}
