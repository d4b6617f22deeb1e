package mocks

import (
	"context"

	"github.com/you/scamwatch/domain"
)

// MockAuthGateway implements domain.AuthGateway interface for testing
type MockAuthGateway struct {
	LoginFunc        func(ctx context.Context, req domain.AuthRequest) (*domain.AuthResult, error)
	RegisterFunc     func(ctx context.Context, req domain.AuthRequest) error
	VerifyOTPFunc    func(ctx context.Context, target, code string) (*domain.AuthResult, error)
	RefreshTokenFunc func(ctx context.Context, refreshToken string) (*domain.AuthResult, error)
	GetProfileFunc   func(ctx context.Context, accessToken string) (*domain.User, error)
	LogoutFunc       func(ctx context.Context, accessToken string) error
}

// NewMockAuthGateway creates a new MockAuthGateway with default behaviors
func NewMockAuthGateway() *MockAuthGateway {
	return &MockAuthGateway{}
}

// Login performs a login round-trip
func (m *MockAuthGateway) Login(ctx context.Context, req domain.AuthRequest) (*domain.AuthResult, error) {
	if m.LoginFunc != nil {
		return m.LoginFunc(ctx, req)
	}
	// Default behavior: invalid credentials
	return nil, domain.ErrInvalidCredentials
}

// Register performs a registration round-trip
func (m *MockAuthGateway) Register(ctx context.Context, req domain.AuthRequest) error {
	if m.RegisterFunc != nil {
		return m.RegisterFunc(ctx, req)
	}
	// Default behavior: success
	return nil
}

// VerifyOTP submits a challenge code
func (m *MockAuthGateway) VerifyOTP(ctx context.Context, target, code string) (*domain.AuthResult, error) {
	if m.VerifyOTPFunc != nil {
		return m.VerifyOTPFunc(ctx, target, code)
	}
	// Default behavior: invalid code
	return nil, domain.ErrOTPInvalid
}

// RefreshToken renews a token pair
func (m *MockAuthGateway) RefreshToken(ctx context.Context, refreshToken string) (*domain.AuthResult, error) {
	if m.RefreshTokenFunc != nil {
		return m.RefreshTokenFunc(ctx, refreshToken)
	}
	// Default behavior: invalid token
	return nil, domain.ErrTokenInvalid
}

// GetProfile fetches the user behind an access token
func (m *MockAuthGateway) GetProfile(ctx context.Context, accessToken string) (*domain.User, error) {
	if m.GetProfileFunc != nil {
		return m.GetProfileFunc(ctx, accessToken)
	}
	// Default behavior: not found
	return nil, domain.ErrUserNotFound
}

// Logout invalidates the session behind an access token
func (m *MockAuthGateway) Logout(ctx context.Context, accessToken string) error {
	if m.LogoutFunc != nil {
		return m.LogoutFunc(ctx, accessToken)
	}
	// Default behavior: success
	return nil
}

// Compile-time interface compliance verification
var _ domain.AuthGateway = (*MockAuthGateway)(nil)
