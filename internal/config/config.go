// Package config loads the service configuration from config/config.yml
// with environment overrides for secrets.
package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

const (
	configPath         = "config/config.yml"
	ownershipRulesPath = "config/ownership_rules.yml"
)

// OwnershipRule lets a role access its own resource when the identifier
// in the request matches the authenticated user.
type OwnershipRule struct {
	Method    string `yaml:"method"`
	Path      string `yaml:"path"`
	Source    string `yaml:"source"`
	ParamName string `yaml:"paramName"`
}

// configFile mirrors the yaml layout. Durations are strings in the file
// ("15m", "168h") and parsed on load.
type configFile struct {
	App struct {
		Port    int    `yaml:"port"`
		GinMode string `yaml:"gin_mode"`
	} `yaml:"app"`
	Database struct {
		DSN string `yaml:"dsn"`
	} `yaml:"database"`
	Redis struct {
		Addr     string `yaml:"addr"`
		Password string `yaml:"password"`
		DB       int    `yaml:"db"`
	} `yaml:"redis"`
	JWT struct {
		Secret     string `yaml:"secret"`
		Issuer     string `yaml:"issuer"`
		AccessTTL  string `yaml:"access_ttl"`
		RefreshTTL string `yaml:"refresh_ttl"`
	} `yaml:"jwt"`
	OTP struct {
		TTL          string `yaml:"ttl"`
		Length       int    `yaml:"length"`
		MaxAttempts  int    `yaml:"max_attempts"`
		ResendWindow string `yaml:"resend_window"`
	} `yaml:"otp"`
	Twilio struct {
		AccountSID string `yaml:"account_sid"`
		AuthToken  string `yaml:"auth_token"`
		FromNumber string `yaml:"from_number"`
	} `yaml:"twilio"`
	Casbin struct {
		ModelPath string `yaml:"model_path"`
	} `yaml:"casbin"`
}

// Config is the resolved runtime configuration.
type Config struct {
	Port            string
	DSN             string
	RedisAddr       string
	RedisPassword   string
	RedisDB         int
	JWTSecret       string
	JWTIssuer       string
	AccessTTL       time.Duration
	RefreshTTL      time.Duration
	OTPTTL          time.Duration
	OTPLength       int
	OTPMaxAttempts  int
	OTPResendWindow time.Duration
	TwilioSID       string
	TwilioToken     string
	TwilioFrom      string
	CasbinModelPath string
	OwnershipRules  []OwnershipRule
}

func env(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

// ttl parses a duration field, keeping the field name in the error so a
// bad config points at the offending line.
func ttl(field, value string) (time.Duration, error) {
	d, err := time.ParseDuration(value)
	if err != nil {
		return 0, fmt.Errorf("invalid %s: %w", field, err)
	}
	return d, nil
}

// Load reads the yaml configuration and applies environment overrides.
func Load() (*Config, error) {
	// A local .env is optional; deployed environments set real variables
	_ = godotenv.Load()

	var file configFile
	if err := readYAML(configPath, &file); err != nil {
		return nil, err
	}

	accessTTL, err := ttl("jwt.access_ttl", file.JWT.AccessTTL)
	if err != nil {
		return nil, err
	}
	refreshTTL, err := ttl("jwt.refresh_ttl", file.JWT.RefreshTTL)
	if err != nil {
		return nil, err
	}
	otpTTL, err := ttl("otp.ttl", file.OTP.TTL)
	if err != nil {
		return nil, err
	}
	resendWindow, err := ttl("otp.resend_window", file.OTP.ResendWindow)
	if err != nil {
		return nil, err
	}

	var rules struct {
		Rules []OwnershipRule `yaml:"ownershipRules"`
	}
	if err := readYAML(ownershipRulesPath, &rules); err != nil {
		return nil, err
	}

	// Secrets can be overridden from the environment so the yaml file
	// never has to carry production credentials.
	return &Config{
		Port:            strconv.Itoa(file.App.Port),
		DSN:             env("DATABASE_DSN", file.Database.DSN),
		RedisAddr:       file.Redis.Addr,
		RedisPassword:   env("REDIS_PASSWORD", file.Redis.Password),
		RedisDB:         file.Redis.DB,
		JWTSecret:       env("JWT_SECRET", file.JWT.Secret),
		JWTIssuer:       file.JWT.Issuer,
		AccessTTL:       accessTTL,
		RefreshTTL:      refreshTTL,
		OTPTTL:          otpTTL,
		OTPLength:       file.OTP.Length,
		OTPMaxAttempts:  file.OTP.MaxAttempts,
		OTPResendWindow: resendWindow,
		TwilioSID:       env("TWILIO_ACCOUNT_SID", file.Twilio.AccountSID),
		TwilioToken:     env("TWILIO_AUTH_TOKEN", file.Twilio.AuthToken),
		TwilioFrom:      env("TWILIO_FROM_NUMBER", file.Twilio.FromNumber),
		CasbinModelPath: file.Casbin.ModelPath,
		OwnershipRules:  rules.Rules,
	}, nil
}

func readYAML(path string, out interface{}) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("could not read %s: %w", path, err)
	}
	if err := yaml.Unmarshal(data, out); err != nil {
		return fmt.Errorf("could not parse %s: %w", path, err)
	}
	return nil
}
