package gateway

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/you/scamwatch/domain"
)

func newTestClient(t *testing.T, handler http.HandlerFunc) *Client {
	t.Helper()

	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)

	return NewClient(server.URL, server.Client())
}

func TestClient_Login(t *testing.T) {
	t.Run("successful login returns tokens and user", func(t *testing.T) {
		client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
			if r.URL.Path != "/auth/login" {
				t.Errorf("unexpected path %s", r.URL.Path)
			}
			if r.Method != http.MethodPost {
				t.Errorf("unexpected method %s", r.Method)
			}

			var body map[string]string
			if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
				t.Fatalf("failed to decode request body: %v", err)
			}
			if body["email"] != "user@example.com" || body["password"] != "password123" {
				t.Errorf("unexpected request body: %v", body)
			}

			w.Header().Set("Content-Type", "application/json")
			json.NewEncoder(w).Encode(map[string]interface{}{
				"data": map[string]interface{}{
					"access_token":  "access_token_123",
					"refresh_token": "refresh_token_123",
					"token_type":    "Bearer",
					"expires_in":    900,
					"user": map[string]interface{}{
						"id":               1,
						"email":            "user@example.com",
						"role":             "user",
						"is_active":        true,
						"contact_verified": true,
					},
				},
			})
		})

		result, err := client.Login(context.Background(), domain.AuthRequest{
			Email:    "user@example.com",
			Password: "password123",
		})
		if err != nil {
			t.Fatalf("expected success, got error: %v", err)
		}
		if result.AccessToken != "access_token_123" {
			t.Errorf("expected access_token_123, got %s", result.AccessToken)
		}
		if result.RefreshToken != "refresh_token_123" {
			t.Errorf("expected refresh_token_123, got %s", result.RefreshToken)
		}
		if result.ExpiresIn != 900 {
			t.Errorf("expected expires_in 900, got %d", result.ExpiresIn)
		}
		if result.User == nil || result.User.ID != 1 {
			t.Errorf("expected user ID 1, got %+v", result.User)
		}
		if !result.User.ContactVerified {
			t.Error("expected contact_verified to be true")
		}
	})

	t.Run("otp_required maps to ErrVerificationRequired", func(t *testing.T) {
		client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
			var body map[string]string
			json.NewDecoder(r.Body).Decode(&body)
			if _, hasPassword := body["password"]; hasPassword {
				t.Error("expected passwordless login request")
			}

			w.Header().Set("Content-Type", "application/json")
			w.WriteHeader(http.StatusForbidden)
			json.NewEncoder(w).Encode(map[string]interface{}{
				"error":        "Contact verification required",
				"otp_required": true,
			})
		})

		_, err := client.Login(context.Background(), domain.AuthRequest{Phone: "+1234567890"})
		if !errors.Is(err, domain.ErrVerificationRequired) {
			t.Errorf("expected ErrVerificationRequired, got %v", err)
		}
	})

	t.Run("business failure maps to GatewayError", func(t *testing.T) {
		client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
			w.Header().Set("Content-Type", "application/json")
			w.WriteHeader(http.StatusUnauthorized)
			json.NewEncoder(w).Encode(map[string]string{"error": "Invalid credentials"})
		})

		_, err := client.Login(context.Background(), domain.AuthRequest{
			Email:    "user@example.com",
			Password: "wrong",
		})

		var gwErr *domain.GatewayError
		if !errors.As(err, &gwErr) {
			t.Fatalf("expected GatewayError, got %v", err)
		}
		if gwErr.Message != "Invalid credentials" {
			t.Errorf("expected message 'Invalid credentials', got %q", gwErr.Message)
		}
	})

	t.Run("non-JSON failure still yields GatewayError", func(t *testing.T) {
		client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusBadGateway)
			w.Write([]byte("upstream gone"))
		})

		_, err := client.Login(context.Background(), domain.AuthRequest{
			Email:    "user@example.com",
			Password: "password123",
		})

		var gwErr *domain.GatewayError
		if !errors.As(err, &gwErr) {
			t.Fatalf("expected GatewayError, got %v", err)
		}
	})

	t.Run("transport failure is wrapped", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
		client := NewClient(server.URL, nil)
		server.Close()

		_, err := client.Login(context.Background(), domain.AuthRequest{
			Email:    "user@example.com",
			Password: "password123",
		})
		if err == nil {
			t.Fatal("expected transport error")
		}
		var gwErr *domain.GatewayError
		if errors.As(err, &gwErr) {
			t.Error("transport failures should not be GatewayError")
		}
	})
}

func TestClient_Register(t *testing.T) {
	t.Run("successful registration", func(t *testing.T) {
		client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
			if r.URL.Path != "/auth/register" {
				t.Errorf("unexpected path %s", r.URL.Path)
			}

			var body map[string]string
			json.NewDecoder(r.Body).Decode(&body)
			if body["email"] != "new@example.com" {
				t.Errorf("unexpected email %s", body["email"])
			}

			w.Header().Set("Content-Type", "application/json")
			w.WriteHeader(http.StatusCreated)
			json.NewEncoder(w).Encode(map[string]interface{}{
				"data": map[string]interface{}{
					"message": "User registered successfully. Please verify your contact.",
					"user_id": 1,
				},
			})
		})

		err := client.Register(context.Background(), domain.AuthRequest{
			Email:    "new@example.com",
			Phone:    "+1234567890",
			Password: "password123",
		})
		if err != nil {
			t.Fatalf("expected success, got error: %v", err)
		}
	})

	t.Run("duplicate user maps to GatewayError", func(t *testing.T) {
		client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
			w.Header().Set("Content-Type", "application/json")
			w.WriteHeader(http.StatusConflict)
			json.NewEncoder(w).Encode(map[string]string{"error": "User already exists"})
		})

		err := client.Register(context.Background(), domain.AuthRequest{
			Email:    "existing@example.com",
			Password: "password123",
		})

		var gwErr *domain.GatewayError
		if !errors.As(err, &gwErr) {
			t.Fatalf("expected GatewayError, got %v", err)
		}
		if gwErr.Message != "User already exists" {
			t.Errorf("unexpected message %q", gwErr.Message)
		}
	})
}

func TestClient_VerifyOTP(t *testing.T) {
	t.Run("phone target goes out as phone field", func(t *testing.T) {
		client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
			if r.URL.Path != "/auth/otp/verify" {
				t.Errorf("unexpected path %s", r.URL.Path)
			}

			var body map[string]string
			json.NewDecoder(r.Body).Decode(&body)
			if body["phone"] != "+1234567890" {
				t.Errorf("expected phone field, got %v", body)
			}
			if body["code"] != "123456" {
				t.Errorf("expected code 123456, got %s", body["code"])
			}

			w.Header().Set("Content-Type", "application/json")
			json.NewEncoder(w).Encode(map[string]interface{}{
				"data": map[string]interface{}{
					"access_token":  "access_token_123",
					"refresh_token": "refresh_token_123",
					"token_type":    "Bearer",
					"expires_in":    900,
					"user": map[string]interface{}{
						"id":               1,
						"contact_verified": true,
					},
				},
			})
		})

		result, err := client.VerifyOTP(context.Background(), "+1234567890", "123456")
		if err != nil {
			t.Fatalf("expected success, got error: %v", err)
		}
		if result.AccessToken != "access_token_123" {
			t.Errorf("expected tokens after verification, got %+v", result)
		}
	})

	t.Run("email target goes out as email field", func(t *testing.T) {
		client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
			var body map[string]string
			json.NewDecoder(r.Body).Decode(&body)
			if body["email"] != "user@example.com" {
				t.Errorf("expected email field, got %v", body)
			}
			if _, hasPhone := body["phone"]; hasPhone {
				t.Error("phone field should be absent for email targets")
			}

			w.Header().Set("Content-Type", "application/json")
			json.NewEncoder(w).Encode(map[string]interface{}{
				"data": map[string]interface{}{
					"access_token":  "access_token_123",
					"refresh_token": "refresh_token_123",
					"expires_in":    900,
					"user":          map[string]interface{}{"id": 1},
				},
			})
		})

		if _, err := client.VerifyOTP(context.Background(), "user@example.com", "123456"); err != nil {
			t.Fatalf("expected success, got error: %v", err)
		}
	})

	t.Run("invalid code maps to GatewayError", func(t *testing.T) {
		client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
			w.Header().Set("Content-Type", "application/json")
			w.WriteHeader(http.StatusBadRequest)
			json.NewEncoder(w).Encode(map[string]string{"error": "Invalid OTP code"})
		})

		_, err := client.VerifyOTP(context.Background(), "+1234567890", "000000")

		var gwErr *domain.GatewayError
		if !errors.As(err, &gwErr) {
			t.Fatalf("expected GatewayError, got %v", err)
		}
		if gwErr.Message != "Invalid OTP code" {
			t.Errorf("unexpected message %q", gwErr.Message)
		}
	})
}

func TestClient_RefreshToken(t *testing.T) {
	t.Run("successful refresh", func(t *testing.T) {
		client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
			if r.URL.Path != "/auth/refresh" {
				t.Errorf("unexpected path %s", r.URL.Path)
			}

			var body map[string]string
			json.NewDecoder(r.Body).Decode(&body)
			if body["refresh_token"] != "refresh_token_123" {
				t.Errorf("unexpected refresh token %s", body["refresh_token"])
			}

			w.Header().Set("Content-Type", "application/json")
			json.NewEncoder(w).Encode(map[string]interface{}{
				"data": map[string]interface{}{
					"access_token":  "new_access_token",
					"refresh_token": "refresh_token_123",
					"expires_in":    900,
					"user":          map[string]interface{}{"id": 1},
				},
			})
		})

		result, err := client.RefreshToken(context.Background(), "refresh_token_123")
		if err != nil {
			t.Fatalf("expected success, got error: %v", err)
		}
		if result.AccessToken != "new_access_token" {
			t.Errorf("expected new_access_token, got %s", result.AccessToken)
		}
		if result.RefreshToken != "refresh_token_123" {
			t.Errorf("expected refresh token to be retained, got %s", result.RefreshToken)
		}
	})

	t.Run("expired session maps to GatewayError", func(t *testing.T) {
		client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
			w.Header().Set("Content-Type", "application/json")
			w.WriteHeader(http.StatusUnauthorized)
			json.NewEncoder(w).Encode(map[string]string{"error": "Session expired"})
		})

		_, err := client.RefreshToken(context.Background(), "stale_token")

		var gwErr *domain.GatewayError
		if !errors.As(err, &gwErr) {
			t.Fatalf("expected GatewayError, got %v", err)
		}
	})
}

func TestClient_GetProfile(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/auth/me" {
			t.Errorf("unexpected path %s", r.URL.Path)
		}
		if r.Method != http.MethodGet {
			t.Errorf("unexpected method %s", r.Method)
		}
		if got := r.Header.Get("Authorization"); got != "Bearer access_token_123" {
			t.Errorf("unexpected authorization header %q", got)
		}

		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(map[string]interface{}{
			"data": map[string]interface{}{
				"id":               1,
				"email":            "user@example.com",
				"phone":            "+1234567890",
				"role":             "user",
				"is_active":        true,
				"contact_verified": true,
			},
		})
	})

	user, err := client.GetProfile(context.Background(), "access_token_123")
	if err != nil {
		t.Fatalf("expected success, got error: %v", err)
	}
	if user.ID != 1 || user.Email != "user@example.com" {
		t.Errorf("unexpected user %+v", user)
	}
	if !user.ContactVerified {
		t.Error("expected contact_verified to be true")
	}
}

func TestClient_Logout(t *testing.T) {
	t.Run("successful logout", func(t *testing.T) {
		client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
			if r.URL.Path != "/auth/logout" {
				t.Errorf("unexpected path %s", r.URL.Path)
			}
			if got := r.Header.Get("Authorization"); got != "Bearer access_token_123" {
				t.Errorf("unexpected authorization header %q", got)
			}

			w.Header().Set("Content-Type", "application/json")
			json.NewEncoder(w).Encode(map[string]interface{}{
				"data": map[string]interface{}{"message": "Logged out successfully"},
			})
		})

		if err := client.Logout(context.Background(), "access_token_123"); err != nil {
			t.Fatalf("expected success, got error: %v", err)
		}
	})

	t.Run("server failure maps to GatewayError", func(t *testing.T) {
		client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
			w.Header().Set("Content-Type", "application/json")
			w.WriteHeader(http.StatusInternalServerError)
			json.NewEncoder(w).Encode(map[string]string{"error": "Logout failed"})
		})

		err := client.Logout(context.Background(), "access_token_123")

		var gwErr *domain.GatewayError
		if !errors.As(err, &gwErr) {
			t.Fatalf("expected GatewayError, got %v", err)
		}
	})
}
