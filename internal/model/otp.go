package model

import "time"

// OTPRecord is a hashed one-time passcode issued to an email address.
type OTPRecord struct {
	ID        string    `json:"id"`
	Email     string    `json:"email"`
	CodeHash  string    `json:"-"`
	ExpiresAt time.Time `json:"expiresAt"`
	CreatedAt time.Time `json:"createdAt"`
}

// IsExpired reports whether the record expired before now.
func (o *OTPRecord) IsExpired(now time.Time) bool {
	return o.ExpiresAt.Before(now)
}
