// Package gateway implements the HTTP client for the scamwatch auth
// service. It speaks the service's JSON envelope and translates wire
// failures into domain errors the session manager understands.
package gateway

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/you/scamwatch/domain"
)

const defaultTimeout = 15 * time.Second

// Client implements domain.AuthGateway over HTTP.
type Client struct {
	baseURL string
	httpc   *http.Client
}

// NewClient creates a gateway client for the given base URL. A nil
// httpc falls back to a client with a sane default timeout.
func NewClient(baseURL string, httpc *http.Client) *Client {
	if httpc == nil {
		httpc = &http.Client{Timeout: defaultTimeout}
	}
	return &Client{baseURL: baseURL, httpc: httpc}
}

// Wire DTOs mirror the service's response envelope.

type userDTO struct {
	ID              uint      `json:"id"`
	Email           string    `json:"email"`
	Phone           string    `json:"phone"`
	Role            string    `json:"role"`
	IsActive        bool      `json:"is_active"`
	ContactVerified bool      `json:"contact_verified"`
	CreatedAt       time.Time `json:"created_at"`
	UpdatedAt       time.Time `json:"updated_at"`
}

type authResultDTO struct {
	AccessToken  string  `json:"access_token"`
	RefreshToken string  `json:"refresh_token"`
	TokenType    string  `json:"token_type"`
	ExpiresIn    int64   `json:"expires_in"`
	User         userDTO `json:"user"`
}

type errorEnvelope struct {
	Error       string `json:"error"`
	OTPRequired bool   `json:"otp_required"`
}

func (u userDTO) toDomain() *domain.User {
	return &domain.User{
		ID:              u.ID,
		Email:           u.Email,
		Phone:           u.Phone,
		Role:            u.Role,
		IsActive:        u.IsActive,
		ContactVerified: u.ContactVerified,
		CreatedAt:       u.CreatedAt,
		UpdatedAt:       u.UpdatedAt,
	}
}

func (r authResultDTO) toDomain() *domain.AuthResult {
	return &domain.AuthResult{
		User:         r.User.toDomain(),
		AccessToken:  r.AccessToken,
		RefreshToken: r.RefreshToken,
		ExpiresIn:    r.ExpiresIn,
	}
}

// Login authenticates with the service. A bare contact (no password)
// requests an OTP challenge; the service answers with otp_required and
// the client surfaces that as ErrVerificationRequired.
func (c *Client) Login(ctx context.Context, req domain.AuthRequest) (*domain.AuthResult, error) {
	payload := map[string]string{}
	if req.Email != "" {
		payload["email"] = req.Email
	}
	if req.Phone != "" {
		payload["phone"] = req.Phone
	}
	if req.Password != "" {
		payload["password"] = req.Password
	}

	var result authResultDTO
	if err := c.post(ctx, "/auth/login", payload, "", &result); err != nil {
		return nil, err
	}
	return result.toDomain(), nil
}

// Register creates an account. The service challenges the contact
// afterwards, so registration alone never yields tokens.
func (c *Client) Register(ctx context.Context, req domain.AuthRequest) error {
	payload := map[string]string{
		"email":    req.Email,
		"password": req.Password,
	}
	if req.Phone != "" {
		payload["phone"] = req.Phone
	}
	return c.post(ctx, "/auth/register", payload, "", nil)
}

// VerifyOTP submits a challenge code. Success authenticates the user
// and returns tokens like a login.
func (c *Client) VerifyOTP(ctx context.Context, target, code string) (*domain.AuthResult, error) {
	payload := map[string]string{"code": code}
	if domain.IsEmailTarget(target) {
		payload["email"] = target
	} else {
		payload["phone"] = target
	}

	var result authResultDTO
	if err := c.post(ctx, "/auth/otp/verify", payload, "", &result); err != nil {
		return nil, err
	}
	return result.toDomain(), nil
}

// RefreshToken exchanges a refresh token for a fresh access token.
func (c *Client) RefreshToken(ctx context.Context, refreshToken string) (*domain.AuthResult, error) {
	payload := map[string]string{"refresh_token": refreshToken}

	var result authResultDTO
	if err := c.post(ctx, "/auth/refresh", payload, "", &result); err != nil {
		return nil, err
	}
	return result.toDomain(), nil
}

// GetProfile fetches the authenticated user's profile.
func (c *Client) GetProfile(ctx context.Context, accessToken string) (*domain.User, error) {
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/auth/me", nil)
	if err != nil {
		return nil, fmt.Errorf("build profile request: %w", err)
	}
	httpReq.Header.Set("Authorization", "Bearer "+accessToken)

	var user userDTO
	if err := c.do(httpReq, &user); err != nil {
		return nil, err
	}
	return user.toDomain(), nil
}

// Logout terminates the session behind the access token.
func (c *Client) Logout(ctx context.Context, accessToken string) error {
	return c.post(ctx, "/auth/logout", nil, accessToken, nil)
}

// post sends a JSON body to path and decodes the data envelope into
// out when out is non-nil.
func (c *Client) post(ctx context.Context, path string, payload interface{}, accessToken string, out interface{}) error {
	var body io.Reader
	if payload != nil {
		raw, err := json.Marshal(payload)
		if err != nil {
			return fmt.Errorf("encode request: %w", err)
		}
		body = bytes.NewReader(raw)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, body)
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	if payload != nil {
		httpReq.Header.Set("Content-Type", "application/json")
	}
	if accessToken != "" {
		httpReq.Header.Set("Authorization", "Bearer "+accessToken)
	}

	return c.do(httpReq, out)
}

// do executes the request and maps the response. Error payloads become
// *domain.GatewayError; an otp_required payload becomes
// ErrVerificationRequired.
func (c *Client) do(req *http.Request, out interface{}) error {
	resp, err := c.httpc.Do(req)
	if err != nil {
		return fmt.Errorf("gateway request failed: %w", err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("read gateway response: %w", err)
	}

	if resp.StatusCode >= 400 {
		var envelope errorEnvelope
		if jsonErr := json.Unmarshal(raw, &envelope); jsonErr == nil {
			if envelope.OTPRequired {
				return domain.ErrVerificationRequired
			}
			if envelope.Error != "" {
				return &domain.GatewayError{Message: envelope.Error}
			}
		}
		return &domain.GatewayError{Message: fmt.Sprintf("gateway returned status %d", resp.StatusCode)}
	}

	if out == nil {
		return nil
	}

	var envelope struct {
		Data json.RawMessage `json:"data"`
	}
	if err := json.Unmarshal(raw, &envelope); err != nil {
		return fmt.Errorf("decode gateway response: %w", err)
	}
	if err := json.Unmarshal(envelope.Data, out); err != nil {
		return fmt.Errorf("decode gateway payload: %w", err)
	}
	return nil
}

// Compile-time interface compliance verification
var _ domain.AuthGateway = (*Client)(nil)
