// Package session owns the client-side authentication lifecycle: the
// current user, the issued token pair, and the transitions between
// anonymous and authenticated states. All network and persistence effects
// go through the injected AuthGateway and CredentialStore collaborators.
package session

import (
	"context"
	"errors"
	"log"
	"sync"
	"time"

	"github.com/you/scamwatch/domain"
)

// LoginOutcome is the settled result of a login attempt.
type LoginOutcome int

const (
	// LoginFailed means the attempt terminated with an error; the message
	// is available via State().Err.
	LoginFailed LoginOutcome = iota
	// LoginOK means tokens and user were committed.
	LoginOK
	// LoginOTPRequired means the gateway demands an OTP step; the caller
	// routes to a Challenge using the contact it submitted.
	LoginOTPRequired
)

const (
	genericLoginError    = "login failed"
	genericRegisterError = "registration failed"
	genericVerifyError   = "verification failed"

	logoutTimeout = 10 * time.Second
)

// State is a point-in-time copy of the manager's observable fields.
type State struct {
	User            *domain.User
	Credentials     *domain.Credentials
	IsAuthenticated bool
	IsLoading       bool
	Err             string
	IsInitialized   bool
}

// Manager is the session state machine. It serializes state writes behind
// a mutex and tags every gateway round-trip with an operation sequence
// number so a response that was superseded (by logout or a newer
// operation) never overwrites current state.
type Manager struct {
	gateway domain.AuthGateway
	store   domain.CredentialStore
	logger  *log.Logger

	mu            sync.Mutex
	user          *domain.User
	creds         *domain.Credentials
	authenticated bool
	loading       bool
	lastErr       string
	initialized   bool
	opSeq         uint64
}

// NewManager creates a session manager. A nil logger falls back to the
// standard logger.
func NewManager(gateway domain.AuthGateway, store domain.CredentialStore, logger *log.Logger) *Manager {
	if logger == nil {
		logger = log.Default()
	}
	return &Manager{
		gateway: gateway,
		store:   store,
		logger:  logger,
	}
}

// State returns a copy of the current session state.
func (m *Manager) State() State {
	m.mu.Lock()
	defer m.mu.Unlock()

	s := State{
		IsAuthenticated: m.authenticated,
		IsLoading:       m.loading,
		Err:             m.lastErr,
		IsInitialized:   m.initialized,
	}
	if m.user != nil {
		u := *m.user
		s.User = &u
	}
	if m.creds != nil {
		c := *m.creds
		s.Credentials = &c
	}
	return s
}

// Initialize rehydrates the session from the credential store, exactly
// once at startup. With no persisted snapshot it settles Anonymous without
// touching the network. With one, it optimistically marks the session
// authenticated and validates the stored token against the gateway's
// profile endpoint; a rejected token is discarded from the store. The
// initialized flag is set on every path. Callers are expected to check
// State().IsInitialized before re-invoking; the function does not
// re-guard.
func (m *Manager) Initialize(ctx context.Context) {
	snap, err := m.store.Load()
	if err != nil && !errors.Is(err, domain.ErrSnapshotNotFound) {
		m.logger.Printf("session: snapshot load failed: %v", err)
	}

	m.mu.Lock()
	if snap == nil || err != nil {
		m.initialized = true
		m.mu.Unlock()
		return
	}

	creds := snap.Credentials
	m.creds = &creds
	m.user = snap.User
	m.authenticated = true
	seq := m.beginOp()
	m.mu.Unlock()

	user, err := m.gateway.GetProfile(ctx, creds.AccessToken)

	m.mu.Lock()
	defer m.mu.Unlock()
	m.initialized = true
	if seq != m.opSeq {
		return
	}
	m.loading = false
	if err != nil {
		m.user = nil
		m.creds = nil
		m.authenticated = false
		if cerr := m.store.Clear(); cerr != nil {
			m.logger.Printf("session: stale snapshot discard failed: %v", cerr)
		}
		return
	}
	m.user = user
	m.persistLocked()
}

// Login authenticates with whichever credential fields are populated; the
// gateway decides between the password path and the OTP handoff. Failures
// never propagate as errors: they settle into State().Err.
func (m *Manager) Login(ctx context.Context, email, password, phone string) LoginOutcome {
	m.mu.Lock()
	seq := m.beginOp()
	m.mu.Unlock()

	result, err := m.gateway.Login(ctx, domain.AuthRequest{
		Email:    email,
		Password: password,
		Phone:    phone,
	})

	m.mu.Lock()
	defer m.mu.Unlock()
	if seq != m.opSeq {
		return LoginFailed
	}
	m.loading = false
	if errors.Is(err, domain.ErrVerificationRequired) {
		// The challenge target is the contact the caller submitted, not
		// anything echoed by the gateway.
		return LoginOTPRequired
	}
	if err != nil {
		m.lastErr = failureMessage(err, genericLoginError)
		return LoginFailed
	}
	m.commitLocked(result)
	return LoginOK
}

// Register creates an account but does not authenticate the session: no
// token is issued until the OTP challenge for the submitted contact
// succeeds.
func (m *Manager) Register(ctx context.Context, email, phone, password string) bool {
	m.mu.Lock()
	seq := m.beginOp()
	m.mu.Unlock()

	err := m.gateway.Register(ctx, domain.AuthRequest{
		Email:    email,
		Phone:    phone,
		Password: password,
	})

	m.mu.Lock()
	defer m.mu.Unlock()
	if seq != m.opSeq {
		return false
	}
	m.loading = false
	if err != nil {
		m.lastErr = failureMessage(err, genericRegisterError)
		return false
	}
	return true
}

// VerifyOTP submits a challenge code for the given target. Exactly one of
// email/phone is meaningful, inherited from the challenge contract. On
// success it behaves like a full login: tokens and user committed and
// persisted. Failure leaves any expiry timer alone; the countdown belongs
// to the Challenge, not the manager.
func (m *Manager) VerifyOTP(ctx context.Context, email, phone, code string) bool {
	target := email
	if target == "" {
		target = phone
	}

	m.mu.Lock()
	seq := m.beginOp()
	m.mu.Unlock()

	result, err := m.gateway.VerifyOTP(ctx, target, code)

	m.mu.Lock()
	defer m.mu.Unlock()
	if seq != m.opSeq {
		return false
	}
	m.loading = false
	if err != nil {
		m.lastErr = failureMessage(err, genericVerifyError)
		return false
	}
	m.commitLocked(result)
	return true
}

// Logout clears local state and the persisted snapshot immediately; the
// gateway invalidation runs as a detached task whose failure is only
// logged. A slow network must never block a local logout.
func (m *Manager) Logout() {
	m.mu.Lock()
	m.opSeq++ // settle any in-flight operation as stale
	var access string
	if m.creds != nil {
		access = m.creds.AccessToken
	}
	m.user = nil
	m.creds = nil
	m.authenticated = false
	m.loading = false
	m.lastErr = ""
	m.mu.Unlock()

	if err := m.store.Clear(); err != nil {
		m.logger.Printf("session: snapshot clear failed: %v", err)
	}
	if access == "" {
		return
	}
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), logoutTimeout)
		defer cancel()
		if err := m.gateway.Logout(ctx, access); err != nil {
			m.logger.Printf("session: gateway logout failed: %v", err)
		}
	}()
}

// RefreshToken renews the token pair. Without credentials it fails
// without touching the gateway. Any refresh failure is treated as session
// termination and escalates to the full logout side-effect sequence.
func (m *Manager) RefreshToken(ctx context.Context) bool {
	m.mu.Lock()
	if m.creds == nil {
		m.mu.Unlock()
		return false
	}
	refresh := m.creds.RefreshToken
	seq := m.beginOp()
	m.mu.Unlock()

	result, err := m.gateway.RefreshToken(ctx, refresh)

	m.mu.Lock()
	if seq != m.opSeq {
		m.mu.Unlock()
		return false
	}
	m.loading = false
	if err != nil {
		m.mu.Unlock()
		m.Logout()
		return false
	}
	m.commitLocked(result)
	m.mu.Unlock()
	return true
}

// GetProfile refreshes the user record, best effort. A failed fetch is
// swallowed and the existing session stays intact; a profile hiccup is
// never a reason to log the user out.
func (m *Manager) GetProfile(ctx context.Context) {
	m.mu.Lock()
	if m.creds == nil {
		m.mu.Unlock()
		return
	}
	access := m.creds.AccessToken
	seq := m.beginOp()
	m.mu.Unlock()

	user, err := m.gateway.GetProfile(ctx, access)

	m.mu.Lock()
	defer m.mu.Unlock()
	if seq != m.opSeq {
		return
	}
	m.loading = false
	if err != nil {
		m.logger.Printf("session: profile refresh failed: %v", err)
		return
	}
	m.user = user
	m.persistLocked()
}

// beginOp starts a mutating operation: clears the last error, raises the
// loading flag and claims a fresh sequence number. Callers must hold mu.
func (m *Manager) beginOp() uint64 {
	m.lastErr = ""
	m.loading = true
	m.opSeq++
	return m.opSeq
}

// commitLocked installs a gateway success result and persists the whole
// snapshot atomically. Callers must hold mu.
func (m *Manager) commitLocked(result *domain.AuthResult) {
	m.user = result.User
	creds := result.Credentials()
	m.creds = &creds
	m.authenticated = true
	m.persistLocked()
}

// persistLocked re-serializes the persisted fields as one snapshot; a
// partial write is never visible. Callers must hold mu.
func (m *Manager) persistLocked() {
	if m.creds == nil {
		return
	}
	snap := &domain.SessionSnapshot{
		Version:     domain.SnapshotVersion,
		Credentials: *m.creds,
		User:        m.user,
		SavedAt:     time.Now().UTC(),
	}
	if err := m.store.Save(snap); err != nil {
		m.logger.Printf("session: snapshot save failed: %v", err)
	}
}

// failureMessage prefers the gateway-reported business message and falls
// back to a generic one for transport and unexpected failures.
func failureMessage(err error, fallback string) string {
	var ge *domain.GatewayError
	if errors.As(err, &ge) && ge.Message != "" {
		return ge.Message
	}
	return fallback
}
