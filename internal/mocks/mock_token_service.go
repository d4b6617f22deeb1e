package mocks

import (
	"fmt"
	"time"

	"github.com/you/scamwatch/domain"
)

// MockTokenService implements domain.TokenService interface for testing.
// Default tokens encode their inputs so assertions can read them back.
type MockTokenService struct {
	GenerateAccessTokenFunc  func(userID uint, role string, sessionID string) (string, error)
	GenerateRefreshTokenFunc func(userID uint, role string, sessionID string) (string, error)
	ValidateAccessTokenFunc  func(token string) (*domain.TokenClaims, error)
	ValidateRefreshTokenFunc func(token string) (*domain.TokenClaims, error)
}

// NewMockTokenService creates a new MockTokenService with default behaviors
func NewMockTokenService() *MockTokenService {
	return &MockTokenService{}
}

// GenerateAccessToken generates an access token for the user
func (m *MockTokenService) GenerateAccessToken(userID uint, role string, sessionID string) (string, error) {
	if m.GenerateAccessTokenFunc != nil {
		return m.GenerateAccessTokenFunc(userID, role, sessionID)
	}
	return fmt.Sprintf("access_token_user_%d_%s_%s", userID, role, sessionID), nil
}

// GenerateRefreshToken generates a refresh token for the user
func (m *MockTokenService) GenerateRefreshToken(userID uint, role string, sessionID string) (string, error) {
	if m.GenerateRefreshTokenFunc != nil {
		return m.GenerateRefreshTokenFunc(userID, role, sessionID)
	}
	return fmt.Sprintf("refresh_token_user_%d_%s_%s", userID, role, sessionID), nil
}

// ValidateAccessToken validates an access token and returns claims
func (m *MockTokenService) ValidateAccessToken(token string) (*domain.TokenClaims, error) {
	if m.ValidateAccessTokenFunc != nil {
		return m.ValidateAccessTokenFunc(token)
	}
	return defaultClaims(token, "", 15*time.Minute)
}

// ValidateRefreshToken validates a refresh token and returns claims
func (m *MockTokenService) ValidateRefreshToken(token string) (*domain.TokenClaims, error) {
	if m.ValidateRefreshTokenFunc != nil {
		return m.ValidateRefreshTokenFunc(token)
	}
	return defaultClaims(token, "mock_session_id", 7*24*time.Hour)
}

// defaultClaims accepts any non-empty token as user 1.
func defaultClaims(token, sessionID string, ttl time.Duration) (*domain.TokenClaims, error) {
	if token == "" {
		return nil, domain.ErrTokenInvalid
	}

	now := time.Now().Unix()
	return &domain.TokenClaims{
		UserID:    1,
		Role:      "user",
		SessionID: sessionID,
		IssuedAt:  now,
		ExpiresAt: now + int64(ttl.Seconds()),
	}, nil
}

// Compile-time interface compliance verification
var _ domain.TokenService = (*MockTokenService)(nil)
