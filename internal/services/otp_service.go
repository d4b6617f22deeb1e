package services

import (
	"context"
	"crypto/rand"
	"fmt"
	"math/big"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/you/scamwatch/domain"
)

// OTPServiceImpl implements domain.OTPService using Redis persistence.
// A target is the contact the code is delivered to: a phone number over
// SMS or an email address over email.
type OTPServiceImpl struct {
	notificationSvc domain.NotificationService
	userRepo        domain.UserRepository
	redisClient     *redis.Client
	config          OTPConfig
}

type OTPConfig struct {
	Length       int
	TTL          time.Duration
	MaxAttempts  int
	ResendWindow time.Duration
}

// NewOTPService creates a new Redis-based OTP service
func NewOTPService(notificationSvc domain.NotificationService, userRepo domain.UserRepository, redisClient *redis.Client, config OTPConfig) domain.OTPService {
	return &OTPServiceImpl{
		notificationSvc: notificationSvc,
		userRepo:        userRepo,
		redisClient:     redisClient,
		config:          config,
	}
}

// Challenge state lives under three keys: the code itself, a guess
// counter with the same lifetime, and a per-target resend throttle.
func otpCodeKey(target string, userID uint) string {
	return fmt.Sprintf("otp:%s:%d", target, userID)
}

func otpAttemptsKey(target string, userID uint) string {
	return fmt.Sprintf("otp:att:%s:%d", target, userID)
}

func otpResendKey(target string) string {
	return fmt.Sprintf("otp:res:%s", target)
}

// Generate issues a fresh code for the target, stores it with a TTL and
// delivers it over the channel the target implies.
func (s *OTPServiceImpl) Generate(ctx context.Context, target string, userID uint) (*domain.OTPGrant, error) {
	if canResend, waitTime, _ := s.CanResend(ctx, target); !canResend {
		return nil, fmt.Errorf("please wait %d seconds before requesting new OTP", waitTime)
	}

	code, err := s.generateSecureCode()
	if err != nil {
		return nil, fmt.Errorf("failed to generate OTP code: %w", err)
	}

	codeKey := otpCodeKey(target, userID)
	attemptsKey := otpAttemptsKey(target, userID)
	resendKey := otpResendKey(target)

	if err := s.redisClient.Set(ctx, codeKey, code, s.config.TTL).Err(); err != nil {
		return nil, fmt.Errorf("failed to store OTP in Redis: %w", err)
	}
	if err := s.redisClient.Set(ctx, attemptsKey, 0, s.config.TTL).Err(); err != nil {
		return nil, fmt.Errorf("failed to initialize attempts counter: %w", err)
	}
	if err := s.redisClient.Set(ctx, resendKey, 1, s.config.ResendWindow).Err(); err != nil {
		return nil, fmt.Errorf("failed to set resend throttle: %w", err)
	}

	message := fmt.Sprintf("Your scamwatch verification code is: %s. Valid for %d minutes.", code, int(s.config.TTL.Minutes()))
	if err := s.deliver(target, message); err != nil {
		// Roll the challenge back so an undelivered code cannot be
		// guessed and the target is not locked out of retrying.
		s.redisClient.Del(ctx, codeKey, attemptsKey, resendKey)
		return nil, fmt.Errorf("failed to deliver OTP: %w", err)
	}

	return &domain.OTPGrant{
		Target:    target,
		Code:      code,
		UserID:    userID,
		ExpiresAt: time.Now().Add(s.config.TTL),
		Attempts:  0,
	}, nil
}

// Verify checks a submitted code, counting the attempt first so that a
// burst of wrong guesses exhausts the cap atomically.
func (s *OTPServiceImpl) Verify(ctx context.Context, target, code string, userID uint) (bool, error) {
	codeKey := otpCodeKey(target, userID)
	attemptsKey := otpAttemptsKey(target, userID)

	attempts, err := s.redisClient.Incr(ctx, attemptsKey).Result()
	if err != nil {
		return false, fmt.Errorf("failed to increment attempts: %w", err)
	}
	if attempts > int64(s.config.MaxAttempts) {
		s.redisClient.Del(ctx, codeKey, attemptsKey)
		return false, domain.ErrOTPMaxAttempts
	}

	stored, err := s.redisClient.Get(ctx, codeKey).Result()
	if err == redis.Nil {
		return false, domain.ErrOTPNotFound
	}
	if err != nil {
		return false, fmt.Errorf("failed to get OTP from Redis: %w", err)
	}
	if stored != code {
		return false, domain.ErrOTPInvalid
	}

	// Consumed: the code never verifies twice.
	s.redisClient.Del(ctx, codeKey, attemptsKey)
	return true, nil
}

// CanResend reports resend eligibility via the throttle key's TTL.
func (s *OTPServiceImpl) CanResend(ctx context.Context, target string) (bool, int64, error) {
	ttl, err := s.redisClient.TTL(ctx, otpResendKey(target)).Result()
	if err != nil {
		return false, 0, fmt.Errorf("failed to check resend TTL: %w", err)
	}
	if ttl <= 0 {
		// Key absent or expired, the window has passed.
		return true, 0, nil
	}
	return false, int64(ttl.Seconds()), nil
}

// deliver routes the message over SMS or email depending on the target.
func (s *OTPServiceImpl) deliver(target, message string) error {
	if domain.IsEmailTarget(target) {
		return s.notificationSvc.SendEmail(target, "Your scamwatch verification code", message)
	}
	return s.notificationSvc.SendSMS(target, message)
}

// generateSecureCode draws each digit from crypto/rand.
func (s *OTPServiceImpl) generateSecureCode() (string, error) {
	digits := make([]byte, s.config.Length)
	for i := range digits {
		n, err := rand.Int(rand.Reader, big.NewInt(10))
		if err != nil {
			return "", fmt.Errorf("failed to generate random digit: %w", err)
		}
		digits[i] = byte('0' + n.Int64())
	}
	return string(digits), nil
}
