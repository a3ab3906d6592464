package middleware

import (
	"errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
)

// Headers carrying the caller identity. Authentication happens upstream; the
// gateway forwards the authenticated tenant and user in these headers.
const (
	HeaderTenantID = "X-Tenant-ID"
	HeaderUserID   = "X-User-ID"
)

const (
	ContextKeyTenantID  = "tenant_id"
	ContextKeyUserID    = "user_id"
	ContextKeyRequestID = "request_id"
)

var errNoTenant = errors.New("tenant not in context")

// Identity copies the caller identity headers into the gin context and
// rejects requests without a tenant.
func Identity() gin.HandlerFunc {
	return func(c *gin.Context) {
		tenantID := strings.TrimSpace(c.GetHeader(HeaderTenantID))
		if tenantID == "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{
				"success": false,
				"error":   gin.H{"code": "UNAUTHORIZED", "message": "missing " + HeaderTenantID + " header"},
			})
			return
		}
		c.Set(ContextKeyTenantID, tenantID)
		if userID := strings.TrimSpace(c.GetHeader(HeaderUserID)); userID != "" {
			c.Set(ContextKeyUserID, userID)
		}
		c.Next()
	}
}

// GetTenantID returns the tenant set by Identity.
func GetTenantID(c *gin.Context) (string, error) {
	v, ok := c.Get(ContextKeyTenantID)
	if !ok {
		return "", errNoTenant
	}
	s, ok := v.(string)
	if !ok || s == "" {
		return "", errNoTenant
	}
	return s, nil
}

// GetUserID returns the acting user, or "" when the caller did not send one.
func GetUserID(c *gin.Context) string {
	return c.GetString(ContextKeyUserID)
}
