package session

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/you/scamwatch/domain"
	"github.com/you/scamwatch/internal/mocks"
)

func newTestUser() *domain.User {
	return &domain.User{
		ID:              1,
		Email:           "reporter@example.com",
		Phone:           "+9771234567890",
		Role:            "user",
		IsActive:        true,
		ContactVerified: true,
		CreatedAt:       time.Now(),
		UpdatedAt:       time.Now(),
	}
}

func newTestResult() *domain.AuthResult {
	return &domain.AuthResult{
		User:         newTestUser(),
		AccessToken:  "access_token_1",
		RefreshToken: "refresh_token_1",
		SessionID:    "sess_1",
		ExpiresIn:    900,
	}
}

func TestManager_Initialize_NoSnapshot(t *testing.T) {
	gateway := mocks.NewMockAuthGateway()
	store := mocks.NewMockCredentialStore()

	profileCalled := false
	gateway.GetProfileFunc = func(ctx context.Context, accessToken string) (*domain.User, error) {
		profileCalled = true
		return nil, domain.ErrTokenInvalid
	}

	m := NewManager(gateway, store, nil)
	m.Initialize(context.Background())

	state := m.State()
	if !state.IsInitialized {
		t.Error("expected initialized after rehydration attempt")
	}
	if state.IsAuthenticated {
		t.Error("expected anonymous session without a persisted snapshot")
	}
	if profileCalled {
		t.Error("expected no network call without a persisted snapshot")
	}
}

func TestManager_Initialize_ValidSnapshot(t *testing.T) {
	gateway := mocks.NewMockAuthGateway()
	store := mocks.NewMockCredentialStore()
	if err := store.Save(&domain.SessionSnapshot{
		Version:     domain.SnapshotVersion,
		Credentials: domain.Credentials{AccessToken: "stored_access", RefreshToken: "stored_refresh"},
		User:        newTestUser(),
		SavedAt:     time.Now(),
	}); err != nil {
		t.Fatalf("failed to seed store: %v", err)
	}

	gateway.GetProfileFunc = func(ctx context.Context, accessToken string) (*domain.User, error) {
		if accessToken != "stored_access" {
			t.Errorf("expected stored access token, got %s", accessToken)
		}
		return newTestUser(), nil
	}

	m := NewManager(gateway, store, nil)
	m.Initialize(context.Background())

	state := m.State()
	if !state.IsInitialized {
		t.Error("expected initialized")
	}
	if !state.IsAuthenticated {
		t.Error("expected authenticated session from valid snapshot")
	}
	if state.IsLoading {
		t.Error("expected loading cleared after settlement")
	}
	if state.User == nil || state.User.Email != "reporter@example.com" {
		t.Error("expected user from profile fetch")
	}
}

func TestManager_Initialize_RejectedToken(t *testing.T) {
	gateway := mocks.NewMockAuthGateway()
	store := mocks.NewMockCredentialStore()
	if err := store.Save(&domain.SessionSnapshot{
		Version:     domain.SnapshotVersion,
		Credentials: domain.Credentials{AccessToken: "stale_access", RefreshToken: "stale_refresh"},
		SavedAt:     time.Now(),
	}); err != nil {
		t.Fatalf("failed to seed store: %v", err)
	}

	gateway.GetProfileFunc = func(ctx context.Context, accessToken string) (*domain.User, error) {
		return nil, domain.ErrTokenExpired
	}

	m := NewManager(gateway, store, nil)
	m.Initialize(context.Background())

	state := m.State()
	if !state.IsInitialized {
		t.Error("initialize must end initialized regardless of gateway outcome")
	}
	if state.IsAuthenticated {
		t.Error("expected anonymous session after token rejection")
	}
	if state.Credentials != nil {
		t.Error("expected credentials cleared after token rejection")
	}
	if store.Stored() != nil {
		t.Error("expected stale snapshot discarded from the store")
	}
}

func TestManager_Login(t *testing.T) {
	tests := []struct {
		name            string
		setupGateway    func(*mocks.MockAuthGateway)
		expectedOutcome LoginOutcome
		expectedErr     string
		expectAuth      bool
	}{
		{
			name: "full success commits tokens and user",
			setupGateway: func(g *mocks.MockAuthGateway) {
				g.LoginFunc = func(ctx context.Context, req domain.AuthRequest) (*domain.AuthResult, error) {
					if req.Email != "reporter@example.com" || req.Password != "secret123" {
						t.Errorf("unexpected request: %+v", req)
					}
					return newTestResult(), nil
				}
			},
			expectedOutcome: LoginOK,
			expectAuth:      true,
		},
		{
			name: "gateway business failure surfaces its message",
			setupGateway: func(g *mocks.MockAuthGateway) {
				g.LoginFunc = func(ctx context.Context, req domain.AuthRequest) (*domain.AuthResult, error) {
					return nil, &domain.GatewayError{Message: "invalid credentials"}
				}
			},
			expectedOutcome: LoginFailed,
			expectedErr:     "invalid credentials",
		},
		{
			name: "transport failure falls back to generic message",
			setupGateway: func(g *mocks.MockAuthGateway) {
				g.LoginFunc = func(ctx context.Context, req domain.AuthRequest) (*domain.AuthResult, error) {
					return nil, errors.New("connection refused")
				}
			},
			expectedOutcome: LoginFailed,
			expectedErr:     genericLoginError,
		},
		{
			name: "otp step required signals non-success without error",
			setupGateway: func(g *mocks.MockAuthGateway) {
				g.LoginFunc = func(ctx context.Context, req domain.AuthRequest) (*domain.AuthResult, error) {
					return nil, domain.ErrVerificationRequired
				}
			},
			expectedOutcome: LoginOTPRequired,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			gateway := mocks.NewMockAuthGateway()
			store := mocks.NewMockCredentialStore()
			tt.setupGateway(gateway)

			m := NewManager(gateway, store, nil)
			outcome := m.Login(context.Background(), "reporter@example.com", "secret123", "")

			if outcome != tt.expectedOutcome {
				t.Errorf("expected outcome %d, got %d", tt.expectedOutcome, outcome)
			}

			state := m.State()
			if state.IsLoading {
				t.Error("expected loading cleared after settlement")
			}
			if state.Err != tt.expectedErr {
				t.Errorf("expected error %q, got %q", tt.expectedErr, state.Err)
			}
			if state.IsAuthenticated != tt.expectAuth {
				t.Errorf("expected authenticated=%t, got %t", tt.expectAuth, state.IsAuthenticated)
			}
			// Never both a fresh token and an error after settlement.
			if state.Err != "" && state.Credentials != nil {
				t.Error("error and fresh credentials must not coexist")
			}
			if tt.expectAuth {
				if state.Credentials == nil || state.Credentials.AccessToken != "access_token_1" {
					t.Error("expected committed credentials")
				}
				if store.Stored() == nil {
					t.Error("expected snapshot persisted on success")
				}
			}
		})
	}
}

func TestManager_Login_ErrorClearedOnRetry(t *testing.T) {
	gateway := mocks.NewMockAuthGateway()
	store := mocks.NewMockCredentialStore()
	gateway.LoginFunc = func(ctx context.Context, req domain.AuthRequest) (*domain.AuthResult, error) {
		return nil, &domain.GatewayError{Message: "invalid credentials"}
	}

	m := NewManager(gateway, store, nil)
	m.Login(context.Background(), "reporter@example.com", "wrong", "")
	if m.State().Err == "" {
		t.Fatal("expected error after failed login")
	}

	gateway.LoginFunc = func(ctx context.Context, req domain.AuthRequest) (*domain.AuthResult, error) {
		return newTestResult(), nil
	}
	if outcome := m.Login(context.Background(), "reporter@example.com", "secret123", ""); outcome != LoginOK {
		t.Fatalf("expected successful retry, got %d", outcome)
	}
	if m.State().Err != "" {
		t.Error("expected error cleared by the new attempt")
	}
}

func TestManager_RegisterThenVerifyFlow(t *testing.T) {
	gateway := mocks.NewMockAuthGateway()
	store := mocks.NewMockCredentialStore()

	gateway.RegisterFunc = func(ctx context.Context, req domain.AuthRequest) error {
		if req.Email != "a@b.com" {
			t.Errorf("expected registration email a@b.com, got %s", req.Email)
		}
		return nil
	}
	gateway.VerifyOTPFunc = func(ctx context.Context, target, code string) (*domain.AuthResult, error) {
		if target != "a@b.com" {
			t.Errorf("expected challenge target a@b.com, got %s", target)
		}
		if code != "482913" {
			t.Errorf("expected code 482913, got %s", code)
		}
		return newTestResult(), nil
	}

	m := NewManager(gateway, store, nil)

	if ok := m.Register(context.Background(), "a@b.com", "", "secret123"); !ok {
		t.Fatal("expected registration success")
	}
	state := m.State()
	if state.IsAuthenticated || state.Credentials != nil {
		t.Fatal("registration must not authenticate the session")
	}

	// The caller routes to the challenge with the submitted contact.
	if ok := m.VerifyOTP(context.Background(), "a@b.com", "", "482913"); !ok {
		t.Fatal("expected verification success")
	}
	state = m.State()
	if !state.IsAuthenticated {
		t.Error("expected authenticated session after verification")
	}
	if state.User == nil {
		t.Error("expected user committed after verification")
	}
	if store.Stored() == nil {
		t.Error("expected token persisted after verification")
	}
}

func TestManager_VerifyOTP_Failure(t *testing.T) {
	gateway := mocks.NewMockAuthGateway()
	store := mocks.NewMockCredentialStore()
	gateway.VerifyOTPFunc = func(ctx context.Context, target, code string) (*domain.AuthResult, error) {
		return nil, &domain.GatewayError{Message: "invalid otp code"}
	}

	m := NewManager(gateway, store, nil)
	if ok := m.VerifyOTP(context.Background(), "", "+9771234567890", "000000"); ok {
		t.Fatal("expected verification failure")
	}
	state := m.State()
	if state.Err != "invalid otp code" {
		t.Errorf("expected gateway message, got %q", state.Err)
	}
	if state.IsAuthenticated {
		t.Error("failed verification must not authenticate")
	}
}

func TestManager_Logout_SynchronousClear(t *testing.T) {
	gateway := mocks.NewMockAuthGateway()
	store := mocks.NewMockCredentialStore()
	gateway.LoginFunc = func(ctx context.Context, req domain.AuthRequest) (*domain.AuthResult, error) {
		return newTestResult(), nil
	}

	release := make(chan struct{})
	done := make(chan struct{})
	gateway.LogoutFunc = func(ctx context.Context, accessToken string) error {
		<-release
		close(done)
		return errors.New("gateway unavailable")
	}

	m := NewManager(gateway, store, nil)
	m.Login(context.Background(), "reporter@example.com", "secret123", "")

	m.Logout()

	// Local state is clear before the gateway call has even returned.
	state := m.State()
	if state.IsAuthenticated || state.User != nil || state.Credentials != nil {
		t.Error("expected local state cleared synchronously")
	}
	if store.Stored() != nil {
		t.Error("expected persisted snapshot discarded synchronously")
	}

	close(release)
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("detached gateway logout never ran")
	}

	// The late gateway failure changes nothing.
	state = m.State()
	if state.IsAuthenticated || state.Err != "" {
		t.Error("gateway logout failure must not surface in state")
	}
}

func TestManager_RefreshToken_NoCredentials(t *testing.T) {
	gateway := mocks.NewMockAuthGateway()
	store := mocks.NewMockCredentialStore()
	called := false
	gateway.RefreshTokenFunc = func(ctx context.Context, refreshToken string) (*domain.AuthResult, error) {
		called = true
		return nil, domain.ErrTokenInvalid
	}

	m := NewManager(gateway, store, nil)
	if ok := m.RefreshToken(context.Background()); ok {
		t.Error("expected failure without credentials")
	}
	if called {
		t.Error("expected no gateway call without credentials")
	}
}

func TestManager_RefreshToken_FailureMatchesLogout(t *testing.T) {
	gateway := mocks.NewMockAuthGateway()
	store := mocks.NewMockCredentialStore()
	gateway.LoginFunc = func(ctx context.Context, req domain.AuthRequest) (*domain.AuthResult, error) {
		return newTestResult(), nil
	}
	gateway.RefreshTokenFunc = func(ctx context.Context, refreshToken string) (*domain.AuthResult, error) {
		return nil, domain.ErrSessionExpired
	}
	loggedOut := make(chan struct{})
	gateway.LogoutFunc = func(ctx context.Context, accessToken string) error {
		close(loggedOut)
		return nil
	}

	m := NewManager(gateway, store, nil)
	m.Login(context.Background(), "reporter@example.com", "secret123", "")

	if ok := m.RefreshToken(context.Background()); ok {
		t.Fatal("expected refresh failure")
	}

	state := m.State()
	if state.IsAuthenticated || state.User != nil || state.Credentials != nil {
		t.Error("refresh failure must leave the same terminal state as logout")
	}
	if store.Stored() != nil {
		t.Error("expected persisted snapshot removed")
	}
	select {
	case <-loggedOut:
	case <-time.After(time.Second):
		t.Fatal("expected detached gateway invalidation")
	}
}

func TestManager_RefreshToken_Success(t *testing.T) {
	gateway := mocks.NewMockAuthGateway()
	store := mocks.NewMockCredentialStore()
	gateway.LoginFunc = func(ctx context.Context, req domain.AuthRequest) (*domain.AuthResult, error) {
		return newTestResult(), nil
	}
	gateway.RefreshTokenFunc = func(ctx context.Context, refreshToken string) (*domain.AuthResult, error) {
		if refreshToken != "refresh_token_1" {
			t.Errorf("expected current refresh token, got %s", refreshToken)
		}
		rotated := newTestResult()
		rotated.AccessToken = "access_token_2"
		rotated.RefreshToken = "refresh_token_2"
		return rotated, nil
	}

	m := NewManager(gateway, store, nil)
	m.Login(context.Background(), "reporter@example.com", "secret123", "")

	if ok := m.RefreshToken(context.Background()); !ok {
		t.Fatal("expected refresh success")
	}
	state := m.State()
	if state.Credentials == nil || state.Credentials.AccessToken != "access_token_2" {
		t.Error("expected rotated credentials committed")
	}
	if snap := store.Stored(); snap == nil || snap.Credentials.AccessToken != "access_token_2" {
		t.Error("expected rotated credentials persisted")
	}
}

func TestManager_GetProfile_FailureLeavesSessionIntact(t *testing.T) {
	gateway := mocks.NewMockAuthGateway()
	store := mocks.NewMockCredentialStore()
	gateway.LoginFunc = func(ctx context.Context, req domain.AuthRequest) (*domain.AuthResult, error) {
		return newTestResult(), nil
	}
	gateway.GetProfileFunc = func(ctx context.Context, accessToken string) (*domain.User, error) {
		return nil, errors.New("gateway timeout")
	}

	m := NewManager(gateway, store, nil)
	m.Login(context.Background(), "reporter@example.com", "secret123", "")

	m.GetProfile(context.Background())

	state := m.State()
	if !state.IsAuthenticated || state.User == nil || state.Credentials == nil {
		t.Error("profile failure must not disturb the session")
	}
	if state.IsLoading {
		t.Error("expected loading cleared after settlement")
	}
}

func TestManager_StaleLoginResponseDiscarded(t *testing.T) {
	gateway := mocks.NewMockAuthGateway()
	store := mocks.NewMockCredentialStore()

	enter := make(chan struct{})
	release := make(chan struct{})
	gateway.LoginFunc = func(ctx context.Context, req domain.AuthRequest) (*domain.AuthResult, error) {
		close(enter)
		<-release
		return newTestResult(), nil
	}

	m := NewManager(gateway, store, nil)

	outcomeCh := make(chan LoginOutcome, 1)
	go func() {
		outcomeCh <- m.Login(context.Background(), "reporter@example.com", "secret123", "")
	}()

	<-enter
	m.Logout()
	close(release)

	if outcome := <-outcomeCh; outcome != LoginFailed {
		t.Errorf("superseded login should settle as failed, got %d", outcome)
	}
	state := m.State()
	if state.IsAuthenticated || state.Credentials != nil {
		t.Error("stale login response must not overwrite logged-out state")
	}
	if store.Stored() != nil {
		t.Error("stale login response must not persist a snapshot")
	}
}
