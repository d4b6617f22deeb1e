package services

import (
	"context"
	"testing"
	"time"

	"github.com/you/scamwatch/domain"
	"github.com/you/scamwatch/internal/mocks"
)

// authDeps carries optional collaborator overrides; nil fields fall back
// to plain mocks.
type authDeps struct {
	users     domain.UserRepository
	sessions  domain.SessionRepository
	passwords domain.PasswordService
	tokens    domain.TokenService
	otps      domain.OTPService
	policies  domain.PolicyService
}

// buildAuthService assembles an AuthService from the overrides.
func buildAuthService(t *testing.T, d authDeps) domain.AuthService {
	t.Helper()

	if d.users == nil {
		d.users = mocks.NewMockUserRepository()
	}
	if d.sessions == nil {
		d.sessions = mocks.NewMockSessionRepository()
	}
	if d.passwords == nil {
		d.passwords = mocks.NewMockPasswordService()
	}
	if d.tokens == nil {
		d.tokens = mocks.NewMockTokenService()
	}
	if d.otps == nil {
		d.otps = mocks.NewMockOTPService()
	}
	if d.policies == nil {
		d.policies = mocks.NewMockPolicyService()
	}
	return NewAuthService(d.users, d.sessions, d.passwords, d.tokens, d.otps, d.policies)
}

// verifiedReporter is an active community member whose contact challenge
// already succeeded.
func verifiedReporter() *domain.User {
	return &domain.User{
		ID:              42,
		Email:           "reporter@scamwatch.io",
		Phone:           "+15557340042",
		PasswordHash:    "bcrypt$reporter-secret",
		Role:            "user",
		IsActive:        true,
		ContactVerified: true,
		CreatedAt:       time.Now().Add(-72 * time.Hour),
		UpdatedAt:       time.Now().Add(-time.Hour),
	}
}

// unverifiedReporter registered but never completed the challenge.
func unverifiedReporter() *domain.User {
	u := verifiedReporter()
	u.ContactVerified = false
	return u
}

// emailOnlyReporter has no phone, so challenges go to the email address.
func emailOnlyReporter() *domain.User {
	u := verifiedReporter()
	u.Phone = ""
	return u
}

func liveSession(userID uint) *domain.Session {
	return &domain.Session{
		ID:        "sess_live",
		UserID:    userID,
		ExpiresAt: time.Now().Add(6 * 24 * time.Hour),
		CreatedAt: time.Now().Add(-24 * time.Hour),
	}
}

func lapsedSession(userID uint) *domain.Session {
	s := liveSession(userID)
	s.ID = "sess_lapsed"
	s.ExpiresAt = time.Now().Add(-time.Minute)
	return s
}

// createTestContext creates a context for testing with timeout
func createTestContext(t *testing.T) context.Context {
	t.Helper()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	t.Cleanup(cancel)
	return ctx
}
