// Package domain contains the core entities of the Nook server.
package domain

import (
	"strings"
	"time"
)

// User represents an account in the identity subsystem.
// Profile data lives separately (see Profile) and only comes into
// existence after the email address has been verified.
type User struct {
	ID            string `json:"id"`
	Email         string `json:"email"`
	PasswordHash  string `json:"password_hash,omitempty"` // Stored hashed, filter from API responses
	DisplayName   string `json:"display_name"`
	EmailVerified bool   `json:"email_verified"`

	// VerificationTokenHash is the SHA-256 of the outstanding email
	// verification token, empty once verified.
	VerificationTokenHash string    `json:"verification_token_hash,omitempty"`
	VerificationSentAt    time.Time `json:"verification_sent_at,omitempty"`

	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
	LastLoginAt time.Time `json:"last_login_at,omitempty"`
}

// Identity is the narrow view of a user consumed by the session
// lifecycle machinery: who they are and whether they are verified.
type Identity struct {
	ID            string `json:"id"`
	Email         string `json:"email"`
	EmailVerified bool   `json:"email_verified"`
}

// Identity returns the session-facing view of the user.
func (u *User) Identity() *Identity {
	return &Identity{
		ID:            u.ID,
		Email:         u.Email,
		EmailVerified: u.EmailVerified,
	}
}

// InitTimestamps sets creation and update times for a new user.
func (u *User) InitTimestamps() {
	now := time.Now()
	u.CreatedAt = now
	u.UpdatedAt = now
}

// Touch updates the modification timestamp.
func (u *User) Touch() {
	u.UpdatedAt = time.Now()
}

// MarkVerified records a successful email verification and clears the
// outstanding token.
func (u *User) MarkVerified() {
	u.EmailVerified = true
	u.VerificationTokenHash = ""
	u.Touch()
}

// Name returns the best available name to display for the user.
// Prefers DisplayName, falls back to the email local part.
func (u *User) Name() string {
	if u.DisplayName != "" {
		return u.DisplayName
	}
	return EmailLocalPart(u.Email)
}

// EmailLocalPart returns the part of an email address before the @,
// or "Reader" when the address is unusable. Used as the default
// display name during profile provisioning.
func EmailLocalPart(email string) string {
	local, _, found := strings.Cut(email, "@")
	if !found || local == "" {
		return "Reader"
	}
	return local
}
