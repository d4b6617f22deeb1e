package services

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/you/scamwatch/domain"
)

const (
	sessionTTL      = 7 * 24 * time.Hour
	accessExpiresIn = 15 * 60 // seconds
)

// AuthServiceImpl implements domain.AuthService
type AuthServiceImpl struct {
	userRepo    domain.UserRepository
	sessionRepo domain.SessionRepository
	passwordSvc domain.PasswordService
	tokenSvc    domain.TokenService
	otpSvc      domain.OTPService
	policySvc   domain.PolicyService
}

// NewAuthService creates a new auth service
func NewAuthService(
	userRepo domain.UserRepository,
	sessionRepo domain.SessionRepository,
	passwordSvc domain.PasswordService,
	tokenSvc domain.TokenService,
	otpSvc domain.OTPService,
	policySvc domain.PolicyService,
) domain.AuthService {
	return &AuthServiceImpl{
		userRepo:    userRepo,
		sessionRepo: sessionRepo,
		passwordSvc: passwordSvc,
		tokenSvc:    tokenSvc,
		otpSvc:      otpSvc,
		policySvc:   policySvc,
	}
}

// Register creates an unverified account and challenges the submitted
// contact. No tokens are issued until the challenge succeeds.
func (s *AuthServiceImpl) Register(ctx context.Context, email, phone, password, role string) (*domain.User, error) {
	existingUser, err := s.userRepo.FindByEmail(ctx, email)
	if err == nil && existingUser != nil {
		return nil, domain.ErrUserAlreadyExists
	}

	hashedPassword, err := s.passwordSvc.Hash(password)
	if err != nil {
		return nil, fmt.Errorf("failed to hash password: %w", err)
	}

	user := &domain.User{
		Email:           email,
		Phone:           phone,
		PasswordHash:    hashedPassword,
		Role:            role,
		IsActive:        true,
		ContactVerified: false,
		CreatedAt:       time.Now(),
		UpdatedAt:       time.Now(),
	}

	if err := s.userRepo.Create(ctx, user); err != nil {
		return nil, fmt.Errorf("failed to create user: %w", err)
	}

	if _, err := s.otpSvc.Generate(ctx, preferredContact(user), user.ID); err != nil {
		return nil, fmt.Errorf("failed to send OTP: %w", err)
	}

	return user, nil
}

// Login authenticates with whichever credential fields are populated. A
// populated password takes the password path; a bare contact takes the
// OTP handoff. Either way an unverified contact is re-challenged and the
// caller is told to complete verification first.
func (s *AuthServiceImpl) Login(ctx context.Context, req domain.AuthRequest) (*domain.AuthResult, error) {
	user, err := s.findByContact(ctx, req.Email, req.Phone)
	if err != nil {
		return nil, domain.ErrInvalidCredentials
	}

	if !user.IsActive {
		return nil, domain.ErrUserInactive
	}

	if req.Password == "" {
		// OTP handoff: no password submitted, challenge the contact.
		if _, err := s.otpSvc.Generate(ctx, preferredContact(user), user.ID); err != nil {
			return nil, fmt.Errorf("failed to send OTP: %w", err)
		}
		return nil, domain.ErrVerificationRequired
	}

	if !s.passwordSvc.Verify(user.PasswordHash, req.Password) {
		return nil, domain.ErrInvalidCredentials
	}

	if !user.ContactVerified {
		if _, err := s.otpSvc.Generate(ctx, preferredContact(user), user.ID); err != nil {
			return nil, fmt.Errorf("failed to send OTP: %w", err)
		}
		return nil, domain.ErrVerificationRequired
	}

	return s.issueSession(ctx, user)
}

// VerifyOTP checks the code issued against a contact; success activates
// the contact and authenticates exactly like a full login.
func (s *AuthServiceImpl) VerifyOTP(ctx context.Context, target, code string) (*domain.AuthResult, error) {
	var user *domain.User
	var err error
	if domain.IsEmailTarget(target) {
		user, err = s.userRepo.FindByEmail(ctx, target)
	} else {
		user, err = s.userRepo.FindByPhone(ctx, target)
	}
	if err != nil {
		return nil, domain.ErrUserNotFound
	}

	valid, err := s.otpSvc.Verify(ctx, target, code, user.ID)
	if err != nil {
		return nil, err
	}
	if !valid {
		return nil, domain.ErrOTPInvalid
	}

	if err := s.userRepo.ActivateContact(ctx, user.ID); err != nil {
		return nil, fmt.Errorf("failed to activate contact: %w", err)
	}
	user.ContactVerified = true

	return s.issueSession(ctx, user)
}

// RefreshToken validates the refresh token, checks the backing session is
// still alive and rotates the access token.
func (s *AuthServiceImpl) RefreshToken(ctx context.Context, refreshToken string) (*domain.AuthResult, error) {
	claims, err := s.tokenSvc.ValidateRefreshToken(refreshToken)
	if err != nil {
		return nil, domain.ErrTokenInvalid
	}

	session, err := s.sessionRepo.FindByID(ctx, claims.SessionID)
	if err != nil {
		return nil, domain.ErrSessionNotFound
	}
	if session.ExpiresAt.Before(time.Now()) {
		return nil, domain.ErrSessionExpired
	}

	user, err := s.userRepo.FindByID(ctx, claims.UserID)
	if err != nil {
		return nil, domain.ErrUserNotFound
	}

	accessToken, err := s.tokenSvc.GenerateAccessToken(user.ID, user.Role, session.ID)
	if err != nil {
		return nil, fmt.Errorf("failed to generate access token: %w", err)
	}

	return &domain.AuthResult{
		User:         user,
		AccessToken:  accessToken,
		RefreshToken: refreshToken, // Keep same refresh token
		SessionID:    session.ID,
		ExpiresIn:    accessExpiresIn,
	}, nil
}

// Logout implements domain.AuthService
func (s *AuthServiceImpl) Logout(ctx context.Context, sessionID string) error {
	return s.sessionRepo.Delete(ctx, sessionID)
}

// GetUserProfile implements domain.AuthService
func (s *AuthServiceImpl) GetUserProfile(ctx context.Context, userID uint) (*domain.User, error) {
	return s.userRepo.FindByID(ctx, userID)
}

// issueSession creates a server-side session and the token pair backing it.
func (s *AuthServiceImpl) issueSession(ctx context.Context, user *domain.User) (*domain.AuthResult, error) {
	session := &domain.Session{
		ID:        "sess_" + uuid.NewString(),
		UserID:    user.ID,
		ExpiresAt: time.Now().Add(sessionTTL),
		CreatedAt: time.Now(),
	}

	if err := s.sessionRepo.Create(ctx, session); err != nil {
		return nil, fmt.Errorf("failed to create session: %w", err)
	}

	accessToken, err := s.tokenSvc.GenerateAccessToken(user.ID, user.Role, session.ID)
	if err != nil {
		return nil, fmt.Errorf("failed to generate access token: %w", err)
	}

	refreshToken, err := s.tokenSvc.GenerateRefreshToken(user.ID, user.Role, session.ID)
	if err != nil {
		return nil, fmt.Errorf("failed to generate refresh token: %w", err)
	}

	return &domain.AuthResult{
		User:         user,
		AccessToken:  accessToken,
		RefreshToken: refreshToken,
		SessionID:    session.ID,
		ExpiresIn:    accessExpiresIn,
	}, nil
}

// findByContact resolves a user from whichever contact field is set.
func (s *AuthServiceImpl) findByContact(ctx context.Context, email, phone string) (*domain.User, error) {
	if email != "" {
		return s.userRepo.FindByEmail(ctx, email)
	}
	if phone != "" {
		return s.userRepo.FindByPhone(ctx, phone)
	}
	return nil, domain.ErrInvalidCredentials
}

// preferredContact picks the OTP target: phone when present, email
// otherwise.
func preferredContact(user *domain.User) string {
	if user.Phone != "" {
		return user.Phone
	}
	return user.Email
}
