package handlers

import (
	"errors"
	"log"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/you/scamwatch/domain"
)

// AuthHandlers handles authentication HTTP requests using clean architecture
type AuthHandlers struct {
	authSvc  domain.AuthService
	otpSvc   domain.OTPService
	userRepo domain.UserRepository
	audit    domain.AuditLogger
}

// NewAuthHandlers creates new auth handlers
func NewAuthHandlers(authSvc domain.AuthService, otpSvc domain.OTPService, userRepo domain.UserRepository, audit domain.AuditLogger) *AuthHandlers {
	return &AuthHandlers{
		authSvc:  authSvc,
		otpSvc:   otpSvc,
		userRepo: userRepo,
		audit:    audit,
	}
}

// RegisterRequest represents registration request
type RegisterRequest struct {
	Email    string `json:"email" binding:"required,email"`
	Phone    string `json:"phone,omitempty"`
	Password string `json:"password" binding:"required,min=6"`
	Role     string `json:"role,omitempty"` // Optional role field, defaults to "user"
}

// LoginRequest represents login request. Password is optional: a bare
// contact requests an OTP challenge instead of a password check.
type LoginRequest struct {
	Email    string `json:"email,omitempty"`
	Phone    string `json:"phone,omitempty"`
	Password string `json:"password,omitempty"`
}

// OTPVerifyRequest represents OTP verification request. The target is
// whichever contact field is populated.
type OTPVerifyRequest struct {
	Email string `json:"email,omitempty"`
	Phone string `json:"phone,omitempty"`
	Code  string `json:"code" binding:"required"`
}

// RefreshRequest represents token refresh request
type RefreshRequest struct {
	RefreshToken string `json:"refresh_token" binding:"required"`
}

// Register handles user registration
func (h *AuthHandlers) Register(c *gin.Context) {
	var req RegisterRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	// Set default role if not provided
	role := req.Role
	if role == "" {
		role = "user"
	}

	user, err := h.authSvc.Register(c.Request.Context(), req.Email, req.Phone, req.Password, role)
	if err != nil {
		if errors.Is(err, domain.ErrUserAlreadyExists) {
			c.JSON(http.StatusConflict, gin.H{"error": "User already exists"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to register user"})
		return
	}

	h.emit(c, domain.NewAuditEvent(domain.UserRegistrationEvent, user.ID).
		WithEmail(user.Email).
		WithPhone(user.Phone).
		WithClientContext(clientContext(c, "")))

	c.JSON(http.StatusCreated, gin.H{
		"data": gin.H{
			"message": "User registered successfully. Please verify your contact.",
			"user_id": user.ID,
		},
	})
}

// Login handles user login
func (h *AuthHandlers) Login(c *gin.Context) {
	var req LoginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if req.Email == "" && req.Phone == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Email or phone is required"})
		return
	}
	target := req.Email
	if target == "" {
		target = req.Phone
	}

	result, err := h.authSvc.Login(c.Request.Context(), domain.AuthRequest{
		Email:    req.Email,
		Phone:    req.Phone,
		Password: req.Password,
	})
	if err != nil {
		switch {
		case errors.Is(err, domain.ErrVerificationRequired):
			// A fresh challenge was just issued for the contact
			h.emit(c, withTarget(domain.NewAuditEvent(domain.OTPRequestEvent, 0), target).
				WithClientContext(clientContext(c, "")))
			c.JSON(http.StatusForbidden, gin.H{
				"error":        "Contact verification required",
				"otp_required": true,
			})
		case errors.Is(err, domain.ErrInvalidCredentials):
			h.emit(c, withTarget(domain.NewAuditEvent(domain.UserLoginFailureEvent, 0), target).
				WithError(err).
				WithClientContext(clientContext(c, "")))
			c.JSON(http.StatusUnauthorized, gin.H{"error": "Invalid credentials"})
		case errors.Is(err, domain.ErrUserInactive):
			h.emit(c, withTarget(domain.NewAuditEvent(domain.UserLoginFailureEvent, 0), target).
				WithError(err).
				WithClientContext(clientContext(c, "")))
			c.JSON(http.StatusForbidden, gin.H{"error": "Account is inactive"})
		default:
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Login failed"})
		}
		return
	}

	h.emit(c, domain.NewAuditEvent(domain.UserLoginEvent, result.User.ID).
		WithEmail(result.User.Email).
		WithClientContext(clientContext(c, result.SessionID)))

	c.JSON(http.StatusOK, gin.H{"data": authResultPayload(result)})
}

// SendOTP handles OTP generation and sending
func (h *AuthHandlers) SendOTP(c *gin.Context) {
	var req struct {
		Email string `json:"email,omitempty"`
		Phone string `json:"phone,omitempty"`
	}

	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	target := req.Email
	if target == "" {
		target = req.Phone
	}
	if target == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Email or phone is required"})
		return
	}

	user, err := h.findByTarget(c, target)
	if err != nil {
		if errors.Is(err, domain.ErrUserNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "User not found"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to find user"})
		return
	}

	if _, err := h.otpSvc.Generate(c.Request.Context(), target, user.ID); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to send OTP"})
		return
	}

	h.emit(c, withTarget(domain.NewAuditEvent(domain.OTPRequestEvent, user.ID), target).
		WithClientContext(clientContext(c, "")))

	c.JSON(http.StatusOK, gin.H{
		"data": gin.H{
			"message": "OTP sent successfully",
		},
	})
}

// Refresh handles token refresh
func (h *AuthHandlers) Refresh(c *gin.Context) {
	var req RefreshRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	result, err := h.authSvc.RefreshToken(c.Request.Context(), req.RefreshToken)
	if err != nil {
		switch {
		case errors.Is(err, domain.ErrTokenInvalid), errors.Is(err, domain.ErrTokenExpired):
			c.JSON(http.StatusUnauthorized, gin.H{"error": "Invalid or expired refresh token"})
		case errors.Is(err, domain.ErrSessionNotFound), errors.Is(err, domain.ErrSessionExpired):
			c.JSON(http.StatusUnauthorized, gin.H{"error": "Session expired"})
		default:
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Token refresh failed"})
		}
		return
	}

	h.emit(c, domain.NewAuditEvent(domain.SessionRefreshEvent, result.User.ID).
		WithClientContext(clientContext(c, result.SessionID)))

	c.JSON(http.StatusOK, gin.H{"data": authResultPayload(result)})
}

// VerifyOTP handles OTP verification. A successful verification activates
// the contact and authenticates the user like a login.
func (h *AuthHandlers) VerifyOTP(c *gin.Context) {
	var req OTPVerifyRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	target := req.Email
	if target == "" {
		target = req.Phone
	}
	if target == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Email or phone is required"})
		return
	}

	result, err := h.authSvc.VerifyOTP(c.Request.Context(), target, req.Code)
	if err != nil {
		failure := withTarget(domain.NewAuditEvent(domain.OTPFailureEvent, 0), target).
			WithError(err).
			WithClientContext(clientContext(c, ""))
		switch {
		case errors.Is(err, domain.ErrUserNotFound):
			c.JSON(http.StatusNotFound, gin.H{"error": "User not found"})
		case errors.Is(err, domain.ErrOTPNotFound):
			h.emit(c, failure)
			c.JSON(http.StatusNotFound, gin.H{"error": "OTP not found"})
		case errors.Is(err, domain.ErrOTPExpired):
			h.emit(c, failure)
			c.JSON(http.StatusBadRequest, gin.H{"error": "OTP has expired"})
		case errors.Is(err, domain.ErrOTPMaxAttempts):
			h.emit(c, failure)
			c.JSON(http.StatusTooManyRequests, gin.H{"error": "Maximum attempts exceeded"})
		case errors.Is(err, domain.ErrOTPInvalid):
			h.emit(c, failure)
			c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid OTP code"})
		default:
			c.JSON(http.StatusInternalServerError, gin.H{"error": "OTP verification failed"})
		}
		return
	}

	// Audit trail for the contact activation
	h.emit(c, withTarget(domain.NewAuditEvent(domain.ContactActivationEvent, result.User.ID), target).
		WithClientContext(clientContext(c, result.SessionID)).
		WithMetadata("target", target))

	c.JSON(http.StatusOK, gin.H{"data": authResultPayload(result)})
}

// Me handles getting user profile (requires authentication)
func (h *AuthHandlers) Me(c *gin.Context) {
	// Get user ID from context (set by auth middleware)
	userIDStr, exists := c.Get("user_id")
	if !exists {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "User ID not found in context"})
		return
	}

	userID, err := strconv.ParseUint(userIDStr.(string), 10, 32)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid user ID"})
		return
	}

	user, err := h.authSvc.GetUserProfile(c.Request.Context(), uint(userID))
	if err != nil {
		if errors.Is(err, domain.ErrUserNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "User not found"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to get user profile"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": userPayload(user)})
}

// Logout handles user logout (requires authentication)
func (h *AuthHandlers) Logout(c *gin.Context) {
	// Get session ID from context (set by auth middleware)
	sessionID, exists := c.Get("session_id")
	if !exists {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Session ID not found"})
		return
	}

	err := h.authSvc.Logout(c.Request.Context(), sessionID.(string))
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Logout failed"})
		return
	}

	h.emit(c, domain.NewAuditEvent(domain.UserLogoutEvent, contextUserID(c)).
		WithClientContext(clientContext(c, sessionID.(string))))

	c.JSON(http.StatusOK, gin.H{
		"data": gin.H{
			"message": "Logged out successfully",
		},
	})
}

// emit writes an audit event; audit failures must never affect the
// response, so they are only logged.
func (h *AuthHandlers) emit(c *gin.Context, event *domain.AuditEvent) {
	if h.audit == nil {
		return
	}
	if err := h.audit.LogEvent(c.Request.Context(), event); err != nil {
		log.Printf("audit log failed: %v", err)
	}
}

// clientContext captures the request's client information for the audit
// trail.
func clientContext(c *gin.Context, sessionID string) *domain.ClientContext {
	return &domain.ClientContext{
		IPAddress: c.ClientIP(),
		UserAgent: c.Request.UserAgent(),
		SessionID: sessionID,
	}
}

// withTarget attaches an email-or-phone target to the matching event field.
func withTarget(event *domain.AuditEvent, target string) *domain.AuditEvent {
	if domain.IsEmailTarget(target) {
		return event.WithEmail(target)
	}
	return event.WithPhone(target)
}

// contextUserID reads the authenticated user ID the middleware stored,
// zero when absent.
func contextUserID(c *gin.Context) uint {
	raw, exists := c.Get("user_id")
	if !exists {
		return 0
	}
	id, err := strconv.ParseUint(raw.(string), 10, 32)
	if err != nil {
		return 0
	}
	return uint(id)
}

// findByTarget resolves a user from an email or phone target.
func (h *AuthHandlers) findByTarget(c *gin.Context, target string) (*domain.User, error) {
	if domain.IsEmailTarget(target) {
		return h.userRepo.FindByEmail(c.Request.Context(), target)
	}
	return h.userRepo.FindByPhone(c.Request.Context(), target)
}

// authResultPayload renders the token envelope shared by login, OTP
// verification and refresh responses.
func authResultPayload(result *domain.AuthResult) gin.H {
	return gin.H{
		"access_token":  result.AccessToken,
		"refresh_token": result.RefreshToken,
		"token_type":    "Bearer",
		"expires_in":    result.ExpiresIn,
		"user":          userPayload(result.User),
	}
}

// userPayload renders a user profile response body.
func userPayload(user *domain.User) gin.H {
	return gin.H{
		"id":               user.ID,
		"email":            user.Email,
		"phone":            user.Phone,
		"role":             user.Role,
		"is_active":        user.IsActive,
		"contact_verified": user.ContactVerified,
		"created_at":       user.CreatedAt,
		"updated_at":       user.UpdatedAt,
	}
}
