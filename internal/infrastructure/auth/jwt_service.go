package auth

import (
	"errors"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	"github.com/you/scamwatch/domain"
)

// sessionClaims is the JWT payload for both token kinds. The session id
// ties a token back to the server-side session it was minted for.
type sessionClaims struct {
	UserID    uint   `json:"user_id"`
	Role      string `json:"role"`
	SessionID string `json:"session_id"`
	jwt.RegisteredClaims
}

// JWTServiceImpl implements domain.TokenService with HS256-signed
// tokens. Access and refresh tokens share a shape and differ only in
// lifetime.
type JWTServiceImpl struct {
	secret     []byte
	issuer     string
	accessTTL  time.Duration
	refreshTTL time.Duration
}

// NewJWTService creates a new JWT service
func NewJWTService(secret string, issuer string, accessTTL, refreshTTL time.Duration) domain.TokenService {
	return &JWTServiceImpl{
		secret:     []byte(secret),
		issuer:     issuer,
		accessTTL:  accessTTL,
		refreshTTL: refreshTTL,
	}
}

// GenerateAccessToken implements domain.TokenService
func (j *JWTServiceImpl) GenerateAccessToken(userID uint, role string, sessionID string) (string, error) {
	return j.sign(userID, role, sessionID, j.accessTTL)
}

// GenerateRefreshToken implements domain.TokenService
func (j *JWTServiceImpl) GenerateRefreshToken(userID uint, role string, sessionID string) (string, error) {
	return j.sign(userID, role, sessionID, j.refreshTTL)
}

func (j *JWTServiceImpl) sign(userID uint, role string, sessionID string, ttl time.Duration) (string, error) {
	now := time.Now()
	claims := sessionClaims{
		UserID:    userID,
		Role:      role,
		SessionID: sessionID,
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    j.issuer,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
			// A fresh jti keeps otherwise identical tokens distinct.
			ID: uuid.NewString(),
		},
	}

	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(j.secret)
}

// ValidateAccessToken implements domain.TokenService
func (j *JWTServiceImpl) ValidateAccessToken(tokenString string) (*domain.TokenClaims, error) {
	return j.parse(tokenString)
}

// ValidateRefreshToken implements domain.TokenService
func (j *JWTServiceImpl) ValidateRefreshToken(tokenString string) (*domain.TokenClaims, error) {
	return j.parse(tokenString)
}

func (j *JWTServiceImpl) parse(tokenString string) (*domain.TokenClaims, error) {
	var claims sessionClaims
	token, err := jwt.ParseWithClaims(tokenString, &claims, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, domain.ErrTokenMalformed
		}
		return j.secret, nil
	}, jwt.WithIssuer(j.issuer), jwt.WithExpirationRequired())
	if err != nil {
		switch {
		case errors.Is(err, jwt.ErrTokenExpired):
			return nil, domain.ErrTokenExpired
		case errors.Is(err, jwt.ErrTokenMalformed):
			return nil, domain.ErrTokenMalformed
		default:
			return nil, domain.ErrTokenInvalid
		}
	}
	if !token.Valid {
		return nil, domain.ErrTokenInvalid
	}

	return &domain.TokenClaims{
		UserID:    claims.UserID,
		Role:      claims.Role,
		SessionID: claims.SessionID,
		IssuedAt:  claims.IssuedAt.Unix(),
		ExpiresAt: claims.ExpiresAt.Unix(),
	}, nil
}
