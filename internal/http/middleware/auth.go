package middleware

import (
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/you/scamwatch/domain"
)

// AuthMW authenticates requests from a Bearer access token and checks
// the backing session is still alive.
type AuthMW struct {
	tokenSvc    domain.TokenService
	sessionRepo domain.SessionRepository
}

// NewAuthMW creates new auth middleware wrapper
func NewAuthMW(tokenSvc domain.TokenService, sessionRepo domain.SessionRepository) *AuthMW {
	return &AuthMW{
		tokenSvc:    tokenSvc,
		sessionRepo: sessionRepo,
	}
}

// WithJWT returns the JWT middleware function
func (mw *AuthMW) WithJWT() gin.HandlerFunc {
	return func(c *gin.Context) {
		token, ok := bearerToken(c)
		if !ok {
			c.Abort()
			return
		}

		claims, err := mw.tokenSvc.ValidateAccessToken(token)
		if err != nil {
			switch err {
			case domain.ErrTokenExpired:
				c.JSON(http.StatusUnauthorized, gin.H{"error": "Token expired"})
			case domain.ErrTokenInvalid, domain.ErrTokenMalformed:
				c.JSON(http.StatusUnauthorized, gin.H{"error": "Invalid token"})
			default:
				c.JSON(http.StatusUnauthorized, gin.H{"error": "Token validation failed"})
			}
			c.Abort()
			return
		}

		// A signed token is not enough on its own: logout and expiry
		// kill the server-side session, so look it up every time.
		if claims.SessionID != "" {
			session, err := mw.sessionRepo.FindByID(c.Request.Context(), claims.SessionID)
			if err != nil || session == nil {
				c.JSON(http.StatusUnauthorized, gin.H{"error": "Session invalid or expired"})
				c.Abort()
				return
			}
			if session.UserID != claims.UserID {
				c.JSON(http.StatusUnauthorized, gin.H{"error": "Session user mismatch"})
				c.Abort()
				return
			}
		}

		// The user id goes in as a string for Casbin compatibility.
		c.Set("user_id", strconv.FormatUint(uint64(claims.UserID), 10))
		c.Set("user_role", claims.Role)
		if claims.SessionID != "" {
			c.Set("session_id", claims.SessionID)
		}

		c.Next()
	}
}

// bearerToken pulls the token out of the Authorization header, writing
// the refusal itself when the header is absent or malformed.
func bearerToken(c *gin.Context) (string, bool) {
	header := c.GetHeader("Authorization")
	if header == "" {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Authorization header required"})
		return "", false
	}

	parts := strings.SplitN(header, " ", 2)
	if len(parts) != 2 || parts[0] != "Bearer" {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Invalid authorization header format"})
		return "", false
	}
	return parts[1], true
}
