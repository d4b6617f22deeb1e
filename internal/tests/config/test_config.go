package config

import (
	"os"
	"testing"
	"time"

	"github.com/joho/godotenv"
)

// TestSettings carries the tunables the in-process E2E stack is built
// from. Values come from .env.test / the environment, with defaults that
// work without any setup.
type TestSettings struct {
	JWTSecret       string
	JWTIssuer       string
	AccessTTL       time.Duration
	RefreshTTL      time.Duration
	OTPLength       int
	OTPTTL          time.Duration
	OTPMaxAttempts  int
	OTPResendWindow time.Duration
}

// LoadTestSettings loads E2E test settings
func LoadTestSettings(t *testing.T) *TestSettings {
	t.Helper()

	// Load test environment variables from .env.test when present
	if err := godotenv.Load(".env.test"); err != nil {
		t.Logf("no .env.test file, using defaults: %v", err)
	}

	return &TestSettings{
		JWTSecret:       env("TEST_JWT_SECRET", "e2e-test-secret-key"),
		JWTIssuer:       env("TEST_JWT_ISSUER", "scamwatch-e2e"),
		AccessTTL:       duration(t, "TEST_ACCESS_TTL", 15*time.Minute),
		RefreshTTL:      duration(t, "TEST_REFRESH_TTL", 7*24*time.Hour),
		OTPLength:       6,
		OTPTTL:          duration(t, "TEST_OTP_TTL", 5*time.Minute),
		OTPMaxAttempts:  3,
		OTPResendWindow: duration(t, "TEST_OTP_RESEND_WINDOW", 60*time.Second),
	}
}

func env(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func duration(t *testing.T, key string, def time.Duration) time.Duration {
	t.Helper()

	v := os.Getenv(key)
	if v == "" {
		return def
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		t.Fatalf("invalid duration in %s: %v", key, err)
	}
	return d
}
