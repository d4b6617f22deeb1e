package domain

import "errors"

// Authentication errors
var (
	ErrUserNotFound         = errors.New("user not found")
	ErrInvalidCredentials   = errors.New("invalid credentials")
	ErrUserAlreadyExists    = errors.New("user already exists")
	ErrUserInactive         = errors.New("user account is inactive")
	ErrVerificationRequired = errors.New("contact verification required")
)

// OTP errors
var (
	ErrOTPExpired     = errors.New("otp has expired")
	ErrOTPInvalid     = errors.New("invalid otp code")
	ErrOTPMaxAttempts = errors.New("maximum otp attempts exceeded")
	ErrOTPNotFound    = errors.New("otp not found")
	ErrOTPResendLimit = errors.New("otp resend limit exceeded")
)

// Token errors
var (
	ErrTokenInvalid   = errors.New("invalid token")
	ErrTokenExpired   = errors.New("token has expired")
	ErrTokenMalformed = errors.New("malformed token")
)

// Session errors
var (
	ErrSessionNotFound = errors.New("session not found")
	ErrSessionExpired  = errors.New("session has expired")
	ErrSessionRevoked  = errors.New("session has been revoked")
)

// Client-side session lifecycle errors
var (
	ErrNoCredentials    = errors.New("no credentials held")
	ErrSnapshotNotFound = errors.New("persisted session snapshot not found")
)

// Authorization errors
var (
	ErrUnauthorized     = errors.New("unauthorized access")
	ErrInsufficientRole = errors.New("insufficient role permissions")
	ErrResourceNotFound = errors.New("resource not found")
)

// GatewayError carries a business failure message reported by the auth
// gateway, as opposed to transport failures which surface as plain errors.
type GatewayError struct {
	Message string
}

func (e *GatewayError) Error() string { return e.Message }

