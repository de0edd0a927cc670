package handlers

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/chalk-edu/chalk/internal/auth"
	"github.com/chalk-edu/chalk/internal/models"
	"github.com/chalk-edu/chalk/internal/services"
	"github.com/chalk-edu/chalk/internal/session"
	"github.com/chalk-edu/chalk/internal/utils"
)

const (
	sessionKey = "session"
	tokenKey   = "token"
)

// RevocationChecker reports whether a login session was closed before its
// token expired
type RevocationChecker interface {
	IsRevoked(ctx context.Context, sessionID string) (bool, error)
}

// AuthMiddleware verifies tokens issued by Chalk-Auth and builds the request
// session
type AuthMiddleware struct {
	tokens   *auth.TokenManager
	revoked  RevocationChecker
	sessions services.SessionService
	logger   utils.Logger
}

// NewAuthMiddleware wires the middleware. revoked may be nil.
func NewAuthMiddleware(tokens *auth.TokenManager, revoked RevocationChecker, sessions services.SessionService, logger utils.Logger) *AuthMiddleware {
	return &AuthMiddleware{tokens: tokens, revoked: revoked, sessions: sessions, logger: logger}
}

// RequireAuth rejects requests without a valid, open session
func (m *AuthMiddleware) RequireAuth() gin.HandlerFunc {
	return func(c *gin.Context) {
		token := auth.BearerToken(c.GetHeader("Authorization"))
		if token == "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, ErrorResponse{
				Message: "Authorization header missing",
			})
			return
		}

		sess, err := m.authenticate(c, token)
		if err != nil {
			c.AbortWithStatusJSON(http.StatusUnauthorized, ErrorResponse{
				Message: "Invalid or expired token",
			})
			return
		}

		c.Set(sessionKey, sess)
		c.Set(tokenKey, token)
		c.Next()
	}
}

// OptionalAuth builds the session when a valid token is present and lets the
// request through anonymously otherwise
func (m *AuthMiddleware) OptionalAuth() gin.HandlerFunc {
	return func(c *gin.Context) {
		token := auth.BearerToken(c.GetHeader("Authorization"))
		if token == "" {
			c.Next()
			return
		}

		sess, err := m.authenticate(c, token)
		if err != nil {
			utils.GetLogger(c, m.logger).Debug("Ignoring invalid token", "error", err)
			c.Next()
			return
		}

		c.Set(sessionKey, sess)
		c.Set(tokenKey, token)
		c.Next()
	}
}

// RequireRole only lets through sessions holding one of roles. Must run after
// RequireAuth.
func (m *AuthMiddleware) RequireRole(roles ...models.UserRole) gin.HandlerFunc {
	return func(c *gin.Context) {
		sess := sessionOf(c)
		for _, role := range roles {
			if sess.HasRole(role) {
				c.Next()
				return
			}
		}
		c.AbortWithStatusJSON(http.StatusForbidden, ErrorResponse{
			Message: "Insufficient permissions",
		})
	}
}

func (m *AuthMiddleware) authenticate(c *gin.Context, token string) (*session.Session, error) {
	claims, err := m.tokens.Parse(token)
	if err != nil {
		return nil, err
	}

	if m.revoked != nil {
		revoked, err := m.revoked.IsRevoked(c.Request.Context(), claims.SessionID)
		if err != nil {
			utils.GetLogger(c, m.logger).Warn("Failed to check revoked sessions", "session_id", claims.SessionID, "error", err)
		}
		if revoked {
			return nil, services.ErrUnauthorized
		}
	}

	return m.sessions.FromClaims(c.Request.Context(), claims.UserID, claims.Role, claims.SessionID)
}

func tokenOf(c *gin.Context) string {
	return c.GetString(tokenKey)
}
