package middleware

import (
	"github.com/billpay/backend/internal/infrastructure/logger"
	"github.com/billpay/backend/internal/interfaces/http/dto"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

const (
	// TenantIDKey stores the resolved tenant uuid in the gin context
	TenantIDKey = "tenant_id"
	// TenantHeader names the tenant when JWT auth is disabled
	TenantHeader = "X-Tenant-ID"
)

// TenantMiddleware resolves the tenant of the request.
// A JWT tenant_id claim wins over the X-Tenant-ID header. A missing or
// malformed tenant aborts with 401.
func TenantMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		raw := c.GetHeader(TenantHeader)
		if claims := GetJWTClaims(c); claims != nil && claims.TenantID != "" {
			raw = claims.TenantID
		}
		if raw == "" {
			abortWithError(c, dto.ErrCodeUnauthorized, "Tenant identification required")
			return
		}
		tenantID, err := uuid.Parse(raw)
		if err != nil || tenantID == uuid.Nil {
			abortWithError(c, dto.ErrCodeUnauthorized, "Invalid tenant ID format")
			return
		}

		c.Set(TenantIDKey, tenantID)
		c.Request = c.Request.WithContext(logger.WithTenantID(c.Request.Context(), tenantID))
		c.Next()
	}
}

// GetTenantID returns the tenant resolved by TenantMiddleware
func GetTenantID(c *gin.Context) (uuid.UUID, bool) {
	if v, ok := c.Get(TenantIDKey); ok {
		if id, ok := v.(uuid.UUID); ok {
			return id, true
		}
	}
	return uuid.Nil, false
}
