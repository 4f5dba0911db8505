package api

import (
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
)

const (
	agentContextKey = "AgentID"
	roleContextKey  = "Role"

	// RoleOperator may start and stop the evaluation loop.
	RoleOperator = "operator"
)

// AgentClaims represents JWT claims for an authenticated agent. The subject
// is the agent id.
type AgentClaims struct {
	Role string `json:"role,omitempty"`
	jwt.RegisteredClaims
}

// GenerateToken signs an HS256 token for agentID.
func GenerateToken(agentID, role, secret string, expiresAt time.Time) (string, error) {
	if agentID == "" {
		return "", errors.New("agent id is required")
	}
	claims := AgentClaims{
		Role: role,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   agentID,
			ExpiresAt: jwt.NewNumericDate(expiresAt),
			IssuedAt:  jwt.NewNumericDate(time.Now()),
		},
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString([]byte(secret))
}

func parseToken(tokenStr, secret string) (*AgentClaims, error) {
	claims := &AgentClaims{}
	token, err := jwt.ParseWithClaims(tokenStr, claims, func(token *jwt.Token) (interface{}, error) {
		return []byte(secret), nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}))
	if err != nil {
		return nil, err
	}
	if !token.Valid || claims.Subject == "" {
		return nil, errors.New("invalid token claims")
	}
	return claims, nil
}

// AuthMiddleware enforces JWT auth for protected routes.
func AuthMiddleware(secret string) gin.HandlerFunc {
	return func(c *gin.Context) {
		authHeader := c.GetHeader("Authorization")
		if authHeader == "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{
				"code":  "MISSING_TOKEN",
				"error": "missing Authorization header",
			})
			return
		}
		parts := strings.SplitN(authHeader, " ", 2)
		if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{
				"code":  "INVALID_AUTH_HEADER",
				"error": "invalid Authorization header",
			})
			return
		}

		claims, err := parseToken(parts[1], secret)
		if err != nil {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{
				"code":  "INVALID_TOKEN",
				"error": "invalid or expired token",
			})
			return
		}

		c.Set(agentContextKey, claims.Subject)
		c.Set(roleContextKey, claims.Role)
		c.Next()
	}
}

// RequireRole rejects callers whose token lacks role.
func RequireRole(role string) gin.HandlerFunc {
	return func(c *gin.Context) {
		if c.GetString(roleContextKey) != role {
			c.AbortWithStatusJSON(http.StatusForbidden, gin.H{
				"code":  "FORBIDDEN",
				"error": "requires role " + role,
			})
			return
		}
		c.Next()
	}
}

// CurrentAgentID returns the authenticated agent ID from context.
func CurrentAgentID(c *gin.Context) string {
	return c.GetString(agentContextKey)
}
