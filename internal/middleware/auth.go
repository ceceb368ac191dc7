package middleware

import (
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/taskhubhq/taskhub/backend/internal/utils"
	"github.com/taskhubhq/taskhub/backend/pkg/response"
)

const (
	ContextUserID      = "user_id"
	ContextOrgID       = "org_id"
	ContextRole        = "role"
	ContextProjectRole = "project_role"
)

// AuthRequired is a middleware that checks for a valid JWT token
func AuthRequired() gin.HandlerFunc {
	return func(c *gin.Context) {
		authHeader := c.GetHeader("Authorization")
		if authHeader == "" {
			response.Unauthorized(c, "authorization header required")
			c.Abort()
			return
		}

		// Extract token from "Bearer <token>"
		parts := strings.SplitN(authHeader, " ", 2)
		if len(parts) != 2 || parts[0] != "Bearer" {
			response.Unauthorized(c, "invalid authorization header format")
			c.Abort()
			return
		}

		claims, err := utils.ParseToken(parts[1])
		if err != nil {
			response.Unauthorized(c, "invalid or expired token")
			c.Abort()
			return
		}

		c.Set(ContextUserID, claims.UserID)
		c.Set(ContextOrgID, claims.OrgID)
		c.Set(ContextRole, claims.Role)

		c.Next()
	}
}

// GetUserID gets the current user ID from context
func GetUserID(c *gin.Context) uint {
	if id, exists := c.Get(ContextUserID); exists {
		return id.(uint)
	}
	return 0
}

// GetOrgID gets the current organization ID from context
func GetOrgID(c *gin.Context) uint {
	if id, exists := c.Get(ContextOrgID); exists {
		return id.(uint)
	}
	return 0
}

// GetRole gets the current user's org role from context
func GetRole(c *gin.Context) string {
	if role, exists := c.Get(ContextRole); exists {
		return role.(string)
	}
	return ""
}

// GetProjectRole gets the project role resolved by the project gates. Empty
// for org admins passing through AdminOrProjectRole without a membership.
func GetProjectRole(c *gin.Context) string {
	if role, exists := c.Get(ContextProjectRole); exists {
		return role.(string)
	}
	return ""
}
