// Package model defines domain entities for the application.
package model

import (
	"strings"
	"time"
)

// User is a registered account.
// PasswordHash is never serialized.
type User struct {
	ID           string         `json:"id"`
	Email        string         `json:"email"`
	PasswordHash string         `json:"-"`
	FullName     string         `json:"fullName"`
	Profile      map[string]any `json:"profile,omitempty"`
	CreatedAt    time.Time      `json:"createdAt"`
}

// UserView is the redacted projection returned to clients.
type UserView struct {
	ID       string `json:"id"`
	Email    string `json:"email"`
	FullName string `json:"fullName"`
}

// View returns the redacted view of the user.
func (u *User) View() UserView {
	return UserView{
		ID:       u.ID,
		Email:    u.Email,
		FullName: u.FullName,
	}
}

// NormalizeEmail lower-cases and trims an email address for storage and lookup.
func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}
