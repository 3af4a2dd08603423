package middleware

import (
	"strings"

	"github.com/gin-gonic/gin"

	"stregsystem/internal/core/apperror"
	"stregsystem/internal/domain/auth"
)

// TokenValidator validates a bearer token into an operator.
type TokenValidator interface {
	ValidateToken(tokenString string) (*auth.Operator, error)
}

// Auth validates JWT bearer tokens and attaches the operator to the
// request context.
func Auth(validator TokenValidator) gin.HandlerFunc {
	return func(c *gin.Context) {
		authHeader := c.GetHeader("Authorization")
		if authHeader == "" {
			abortUnauthorized(c, "missing authorization header")
			return
		}
		parts := strings.SplitN(authHeader, " ", 2)
		if len(parts) != 2 || !strings.EqualFold(parts[0], "bearer") {
			abortUnauthorized(c, "invalid authorization header format")
			return
		}

		operator, err := validator.ValidateToken(parts[1])
		if err != nil {
			abortUnauthorized(c, "invalid token")
			return
		}

		ctx := auth.WithOperator(c.Request.Context(), operator)
		c.Request = c.Request.WithContext(ctx)
		c.Next()
	}
}

// RequireCapability rejects operators lacking the capability.
// Superusers carry every capability.
func RequireCapability(capability auth.Capability) gin.HandlerFunc {
	return func(c *gin.Context) {
		if _, err := auth.RequireCapability(c.Request.Context(), capability); err != nil {
			_ = c.Error(err)
			c.Abort()
			return
		}
		c.Next()
	}
}

func abortUnauthorized(c *gin.Context, message string) {
	_ = c.Error(apperror.NewUnauthorized(message))
	c.Abort()
}
