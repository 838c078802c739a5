package middleware

import (
	"net/http"
	"slices"
	"strings"

	"wallet_tracker/internal/logger"
	"wallet_tracker/internal/model"
	"wallet_tracker/internal/utils"

	"github.com/gin-gonic/gin"
)

// Context keys set by JWTAuthMiddleware.
const (
	AuthUserKey = "authUser"
	AuthRoleKey = "authRole"
)

func unauthorized(c *gin.Context, msg string) {
	c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": msg})
}

// bearerToken extracts the token from an "Authorization: Bearer <token>" header.
func bearerToken(header string) (string, bool) {
	scheme, token, ok := strings.Cut(strings.TrimSpace(header), " ")
	if !ok || !strings.EqualFold(scheme, "bearer") {
		return "", false
	}
	token = strings.TrimSpace(token)
	return token, token != ""
}

// JWTAuthMiddleware rejects requests without a valid bearer token and stores
// the caller's id and role on the context.
func JWTAuthMiddleware(jwtUtil *utils.JWTUtil) gin.HandlerFunc {
	return func(c *gin.Context) {
		header := c.GetHeader("Authorization")
		if header == "" {
			unauthorized(c, "Authorization header required")
			return
		}
		token, ok := bearerToken(header)
		if !ok {
			unauthorized(c, "Invalid authorization header format")
			return
		}

		claims, err := jwtUtil.ValidateToken(token)
		if err != nil {
			logger.FromContext(c.Request.Context()).Debug().Err(err).Msg("rejected token")
			unauthorized(c, "Invalid or expired token")
			return
		}

		c.Set(AuthUserKey, claims.UserID)
		c.Set(AuthRoleKey, claims.Role)

		// Later log lines for this request carry the caller.
		log := logger.FromContext(c.Request.Context()).With().Int("user_id", claims.UserID).Logger()
		c.Request = c.Request.WithContext(logger.WithContext(c.Request.Context(), log))

		c.Next()
	}
}

// RoleMiddleware admits only the listed roles. It must run after JWTAuthMiddleware.
func RoleMiddleware(allowedRoles ...string) gin.HandlerFunc {
	return func(c *gin.Context) {
		role := c.GetString(AuthRoleKey)
		if role == "" {
			c.AbortWithStatusJSON(http.StatusForbidden, gin.H{"error": "Role not found in token"})
			return
		}
		if !slices.Contains(allowedRoles, role) {
			logger.FromContext(c.Request.Context()).Warn().Str("role", role).Str("path", c.FullPath()).Msg("role denied")
			c.AbortWithStatusJSON(http.StatusForbidden, gin.H{"error": "You do not have permission to access this resource"})
			return
		}
		c.Next()
	}
}

// AdminMiddleware admits admins only.
func AdminMiddleware() gin.HandlerFunc {
	return RoleMiddleware(model.RoleAdmin)
}

// UserMiddleware admits wallet owners; admins manage their own wallets too.
func UserMiddleware() gin.HandlerFunc {
	return RoleMiddleware(model.RoleUser, model.RoleAdmin)
}
