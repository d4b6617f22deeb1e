package domain

import (
	"strings"
	"time"
)

// User represents a member of the scam-reporting community
type User struct {
	ID              uint
	Email           string
	Phone           string
	PasswordHash    string `gorm:"column:password"`
	Role            string
	IsActive        bool
	ContactVerified bool
	CreatedAt       time.Time
	UpdatedAt       time.Time
}

// Credentials is the token pair issued by the gateway on full success.
// The access token authorizes requests; the refresh token renews the pair.
type Credentials struct {
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token"`
}

// AuthRequest represents authentication credentials as submitted.
// Password logins carry Email+Password; OTP-handoff logins carry only the
// contact the challenge should be sent to.
type AuthRequest struct {
	Email    string
	Phone    string
	Password string
}

// AuthResult represents authentication outcome
type AuthResult struct {
	User         *User
	AccessToken  string
	RefreshToken string
	SessionID    string
	ExpiresIn    int64
}

// Credentials returns the token pair carried by the result.
func (r *AuthResult) Credentials() Credentials {
	return Credentials{AccessToken: r.AccessToken, RefreshToken: r.RefreshToken}
}

// OTPGrant represents a one-time code issued against a contact
type OTPGrant struct {
	Target    string
	Code      string
	UserID    uint
	ExpiresAt time.Time
	Attempts  int
}

// Session represents a user session
type Session struct {
	ID        string
	UserID    uint
	ExpiresAt time.Time
	CreatedAt time.Time
}

// SnapshotVersion is the current persisted-session schema version.
// Loads of any other version are treated as absent.
const SnapshotVersion = 1

// SessionSnapshot is the versioned DTO written to the credential store.
// Every mutation of the persisted fields re-serializes the whole snapshot.
type SessionSnapshot struct {
	Version     int         `json:"version"`
	Credentials Credentials `json:"credentials"`
	User        *User       `json:"user,omitempty"`
	SavedAt     time.Time   `json:"saved_at"`
}

// IsEmailTarget reports whether an OTP target is an email address rather
// than a phone number.
func IsEmailTarget(target string) bool {
	return strings.Contains(target, "@")
}
