package middleware

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/supplytrace/backend/internal/domain/identity"
	"github.com/supplytrace/backend/internal/interfaces/http/dto"
	"go.uber.org/zap"
)

// RoleConfig holds configuration for the role middleware
type RoleConfig struct {
	Gate   identity.AccessGate
	Logger *zap.Logger
}

// RequireRole aborts with 403 unless the authenticated account holds role.
// It must run after JWTAuthMiddleware.
func RequireRole(cfg RoleConfig, role identity.Role) gin.HandlerFunc {
	log := cfg.Logger
	if log == nil {
		log = zap.NewNop()
	}

	return func(c *gin.Context) {
		account := GetAccount(c)
		if account == uuid.Nil {
			c.AbortWithStatusJSON(http.StatusUnauthorized, dto.NewErrorResponseWithRequestID(
				dto.ErrCodeUnauthorized, "Authentication required", GetRequestID(c)))
			return
		}

		ok, err := cfg.Gate.HasRole(c.Request.Context(), role, account)
		if err != nil {
			log.Error("Role lookup failed", zap.Error(err), zap.String("role", role.String()))
			c.AbortWithStatusJSON(http.StatusInternalServerError, dto.NewErrorResponseWithRequestID(
				dto.ErrCodeInternal, "An unexpected error occurred", GetRequestID(c)))
			return
		}
		if !ok {
			log.Warn("Role denied",
				zap.String("account_id", account.String()),
				zap.String("required_role", role.String()),
				zap.String("path", c.Request.URL.Path),
				zap.String("method", c.Request.Method),
			)
			c.AbortWithStatusJSON(http.StatusForbidden, dto.NewErrorResponseWithRequestID(
				dto.ErrCodeForbidden, "Account lacks required role", GetRequestID(c)))
			return
		}

		c.Next()
	}
}
