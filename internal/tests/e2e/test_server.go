// Package e2e exercises the whole auth stack in one process: real
// services over in-memory SQLite and miniredis, exposed through the
// production router on an httptest server. No external infrastructure
// is required.
package e2e

import (
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"regexp"
	"sync"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	httpx "github.com/you/scamwatch/internal/http"

	"github.com/you/scamwatch/internal/http/handlers"
	"github.com/you/scamwatch/internal/http/middleware"
	"github.com/you/scamwatch/internal/infrastructure/auth"
	"github.com/you/scamwatch/internal/infrastructure/repositories"
	"github.com/you/scamwatch/internal/mocks"
	"github.com/you/scamwatch/internal/services"
	testconfig "github.com/you/scamwatch/internal/tests/config"
)

// Casbin model matching the policies the app seeds on first boot.
const casbinModel = `[request_definition]
r = sub, obj, act

[policy_definition]
p = sub, obj, act

[policy_effect]
e = some(where (p.eft == allow))

[matchers]
m = r.sub == p.sub && keyMatch(r.obj, p.obj) && regexMatch(r.act, p.act)
`

// TestServer is the in-process auth service under test.
type TestServer struct {
	Server        *httptest.Server
	BaseURL       string
	Client        *http.Client
	DB            *gorm.DB
	Redis         *miniredis.Miniredis
	Notifications *notificationRecorder
	Audit         *mocks.MockAuditLogger
	Settings      *testconfig.TestSettings
}

// notificationRecorder captures every OTP delivery so tests can read the
// code the service actually issued.
type notificationRecorder struct {
	mu       sync.Mutex
	messages []string
}

func (r *notificationRecorder) record(message string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.messages = append(r.messages, message)
}

var otpCodePattern = regexp.MustCompile(`\d{6}`)

// LastCode returns the OTP code from the most recent delivery.
func (r *notificationRecorder) LastCode(t *testing.T) string {
	t.Helper()

	r.mu.Lock()
	defer r.mu.Unlock()
	if len(r.messages) == 0 {
		t.Fatal("no OTP was delivered")
	}
	code := otpCodePattern.FindString(r.messages[len(r.messages)-1])
	if code == "" {
		t.Fatalf("no code found in message %q", r.messages[len(r.messages)-1])
	}
	return code
}

// Count returns the number of deliveries observed so far.
func (r *notificationRecorder) Count() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.messages)
}

// NewTestServer builds the full production stack against in-memory
// backends and serves it on an httptest server.
func NewTestServer(t *testing.T) *TestServer {
	t.Helper()

	gin.SetMode(gin.TestMode)
	settings := testconfig.LoadTestSettings(t)

	// In-memory SQLite in place of Postgres
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{})
	if err != nil {
		t.Fatalf("failed to open database: %v", err)
	}
	if err := db.AutoMigrate(&repositories.DBUser{}); err != nil {
		t.Fatalf("failed to migrate database: %v", err)
	}

	// Casbin enforcer with the policies the app seeds on first boot
	cas, err := auth.NewCasbinService(db, writeCasbinModel(t))
	if err != nil {
		t.Fatalf("failed to build casbin enforcer: %v", err)
	}
	cas.E.AddPolicy("role_admin", "/admin/*", "(GET|POST|PUT|DELETE)")
	cas.E.AddPolicy("role_user", "/auth/me", "GET")
	cas.E.AddPolicy("role_user", "/auth/logout", "POST")
	cas.E.AddPolicy("role_user", "/auth/otp/*", "POST")

	// miniredis in place of Redis
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { rdb.Close() })

	// Repositories
	userRepo := repositories.NewUserRepository(db)
	sessionRepo := repositories.NewSessionRepository(rdb, settings.RefreshTTL)

	// Services; OTP delivery is captured instead of hitting Twilio
	recorder := &notificationRecorder{}
	notificationSvc := &mocks.MockNotificationService{
		SendSMSFunc: func(to, message string) error {
			recorder.record(message)
			return nil
		},
		SendEmailFunc: func(to, subject, body string) error {
			recorder.record(body)
			return nil
		},
	}

	passwordSvc := auth.NewPasswordService()
	tokenSvc := auth.NewJWTService(settings.JWTSecret, settings.JWTIssuer, settings.AccessTTL, settings.RefreshTTL)
	otpSvc := services.NewOTPService(notificationSvc, userRepo, rdb, services.OTPConfig{
		Length:       settings.OTPLength,
		TTL:          settings.OTPTTL,
		MaxAttempts:  settings.OTPMaxAttempts,
		ResendWindow: settings.OTPResendWindow,
	})
	policySvc := services.NewPolicyService(cas.E)
	authSvc := services.NewAuthService(userRepo, sessionRepo, passwordSvc, tokenSvc, otpSvc, policySvc)

	// Handlers, middleware, router; the audit trail is recorded so
	// tests can assert on emitted events
	auditLog := mocks.NewMockAuditLogger()
	authH := handlers.NewAuthHandlers(authSvc, otpSvc, userRepo, auditLog)
	polH := &handlers.PolicyHandlers{E: cas.E}
	jwtMW := middleware.NewAuthMW(tokenSvc, sessionRepo)
	casbinMW := middleware.NewCasbinMW(cas.E, nil, auditLog)

	server := httptest.NewServer(httpx.BuildRouter(authH, polH, jwtMW, casbinMW))
	t.Cleanup(server.Close)

	return &TestServer{
		Server:        server,
		BaseURL:       server.URL,
		Client:        server.Client(),
		DB:            db,
		Redis:         mr,
		Notifications: recorder,
		Audit:         auditLog,
		Settings:      settings,
	}
}

// ClearOTPThrottle spends the resend window so the next challenge is not
// throttled.
func (ts *TestServer) ClearOTPThrottle() {
	ts.Redis.FastForward(ts.Settings.OTPResendWindow + time.Second)
}

func writeCasbinModel(t *testing.T) string {
	t.Helper()

	path := filepath.Join(t.TempDir(), "model.conf")
	if err := os.WriteFile(path, []byte(casbinModel), 0o600); err != nil {
		t.Fatalf("failed to write casbin model: %v", err)
	}
	return path
}
