package e2e

import (
	"context"
	"errors"
	"log"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/you/scamwatch/domain"
	"github.com/you/scamwatch/internal/credstore"
	"github.com/you/scamwatch/internal/gateway"
	"github.com/you/scamwatch/internal/session"
)

// clientStack wires the session manager against the in-process service
// the way a real client application would.
func clientStack(t *testing.T, ts *TestServer) (*session.Manager, *credstore.FileStore) {
	t.Helper()

	store := credstore.NewFileStore(filepath.Join(t.TempDir(), "session.json"))
	client := gateway.NewClient(ts.BaseURL, ts.Client)
	logger := log.New(os.Stderr, "e2e-client: ", 0)
	return session.NewManager(client, store, logger), store
}

func TestSessionManagerFullLifecycle(t *testing.T) {
	ts := NewTestServer(t)
	mgr, store := clientStack(t, ts)
	ctx := context.Background()

	// Cold start with nothing persisted settles anonymous
	mgr.Initialize(ctx)
	state := mgr.State()
	if !state.IsInitialized || state.IsAuthenticated {
		t.Fatalf("expected initialized anonymous state, got %+v", state)
	}

	// Register; no tokens until the challenge succeeds
	if !mgr.Register(ctx, "erin@example.com", "+15550004444", "password123") {
		t.Fatalf("register failed: %s", mgr.State().Err)
	}
	if mgr.State().IsAuthenticated {
		t.Fatal("registration must not authenticate the session")
	}

	// Drive the challenge: sanitized entry auto-submits at full length
	clock := time.Now
	challenge := session.NewChallenge("+15550004444", clock)
	raw := ts.Notifications.LastCode(t)
	spaced := raw[:3] + " - " + raw[3:]
	code, submit := challenge.Input(spaced)
	if !submit {
		t.Fatalf("expected auto-submit at %d digits, got %q", session.CodeLength, code)
	}
	if challenge.Expired() {
		t.Fatal("challenge expired immediately")
	}
	if !mgr.VerifyOTP(ctx, "", challenge.Target(), code) {
		t.Fatalf("verification failed: %s", mgr.State().Err)
	}

	state = mgr.State()
	if !state.IsAuthenticated || state.Credentials == nil {
		t.Fatalf("expected authenticated state with credentials, got %+v", state)
	}
	if state.User == nil || !state.User.ContactVerified {
		t.Fatalf("expected verified user, got %+v", state.User)
	}

	// The committed session was persisted as one snapshot
	snap, err := store.Load()
	if err != nil {
		t.Fatalf("expected persisted snapshot: %v", err)
	}
	if snap.Credentials.AccessToken != state.Credentials.AccessToken {
		t.Error("snapshot credentials out of sync with state")
	}

	// A fresh manager over the same store rehydrates the session
	mgr2 := session.NewManager(gateway.NewClient(ts.BaseURL, ts.Client), store, nil)
	mgr2.Initialize(ctx)
	state2 := mgr2.State()
	if !state2.IsAuthenticated {
		t.Fatalf("expected rehydrated session, got %+v", state2)
	}
	if state2.User == nil || state2.User.Email != "erin@example.com" {
		t.Fatalf("unexpected rehydrated user %+v", state2.User)
	}

	// Refresh rotates the access token and keeps the session alive
	oldAccess := state.Credentials.AccessToken
	if !mgr.RefreshToken(ctx) {
		t.Fatal("refresh failed")
	}
	state = mgr.State()
	if state.Credentials.AccessToken == oldAccess {
		t.Error("expected a rotated access token")
	}

	// Logout clears state and the snapshot immediately
	mgr.Logout()
	state = mgr.State()
	if state.IsAuthenticated || state.Credentials != nil || state.User != nil {
		t.Fatalf("expected cleared state, got %+v", state)
	}
	if _, err := store.Load(); !errors.Is(err, domain.ErrSnapshotNotFound) {
		t.Errorf("expected cleared snapshot, got %v", err)
	}
}

func TestSessionManagerOTPHandoffLogin(t *testing.T) {
	ts := NewTestServer(t)
	mgr, _ := clientStack(t, ts)
	ctx := context.Background()
	mgr.Initialize(ctx)

	if !mgr.Register(ctx, "frank@example.com", "+15550005555", "password123") {
		t.Fatalf("register failed: %s", mgr.State().Err)
	}

	// A bare contact routes to the OTP challenge
	ts.ClearOTPThrottle()
	outcome := mgr.Login(ctx, "", "", "+15550005555")
	if outcome != session.LoginOTPRequired {
		t.Fatalf("expected LoginOTPRequired, got %v (%s)", outcome, mgr.State().Err)
	}

	if !mgr.VerifyOTP(ctx, "", "+15550005555", ts.Notifications.LastCode(t)) {
		t.Fatalf("verification failed: %s", mgr.State().Err)
	}
	if !mgr.State().IsAuthenticated {
		t.Fatal("expected authenticated session after verification")
	}
}

func TestSessionManagerLoginFailureSurfacesGatewayMessage(t *testing.T) {
	ts := NewTestServer(t)
	mgr, _ := clientStack(t, ts)
	ctx := context.Background()
	mgr.Initialize(ctx)

	outcome := mgr.Login(ctx, "nobody@example.com", "password123", "")
	if outcome != session.LoginFailed {
		t.Fatalf("expected LoginFailed, got %v", outcome)
	}
	state := mgr.State()
	if state.Err != "Invalid credentials" {
		t.Errorf("expected gateway message, got %q", state.Err)
	}
	if state.IsAuthenticated || state.IsLoading {
		t.Errorf("expected settled anonymous state, got %+v", state)
	}
}

func TestSessionManagerInitializeDiscardsStaleSnapshot(t *testing.T) {
	ts := NewTestServer(t)
	store := credstore.NewFileStore(filepath.Join(t.TempDir(), "session.json"))

	// A snapshot whose token the service no longer accepts
	if err := store.Save(&domain.SessionSnapshot{
		Version:     domain.SnapshotVersion,
		Credentials: domain.Credentials{AccessToken: "stale", RefreshToken: "stale"},
		User:        &domain.User{ID: 99, Email: "stale@example.com"},
		SavedAt:     time.Now().UTC(),
	}); err != nil {
		t.Fatalf("failed to seed snapshot: %v", err)
	}

	mgr := session.NewManager(gateway.NewClient(ts.BaseURL, ts.Client), store, nil)
	mgr.Initialize(context.Background())

	state := mgr.State()
	if !state.IsInitialized || state.IsAuthenticated {
		t.Fatalf("expected rejected rehydration, got %+v", state)
	}
	if _, err := store.Load(); !errors.Is(err, domain.ErrSnapshotNotFound) {
		t.Errorf("expected stale snapshot to be discarded, got %v", err)
	}
}
