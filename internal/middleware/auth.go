package middleware

import (
	"context"
	"errors"

	"github.com/gin-gonic/gin"

	"taskflow-be/internal/apperrors"
	"taskflow-be/internal/auth"
	"taskflow-be/internal/entities"
	"taskflow-be/internal/logging"
)

const userContextKey = "user"

// Authenticator resolves the user behind an Authorization header value
type Authenticator interface {
	Authenticate(ctx context.Context, header string) (*entities.User, error)
}

// AuthMiddleware rejects requests without a valid bearer token and stores
// the authenticated user in the gin context.
func AuthMiddleware(gateway Authenticator, logger logging.Logger) gin.HandlerFunc {
	logger = logger.With("component", "auth_middleware")

	return func(c *gin.Context) {
		ctx := c.Request.Context()

		user, err := gateway.Authenticate(ctx, c.GetHeader("Authorization"))
		if err != nil {
			if apperrors.Is(err, apperrors.KindUnauthorized) {
				logger.Warn(ctx, "request not authenticated",
					"path", c.FullPath(), "client_ip", c.ClientIP(), "reason", authFailureReason(err))
			} else {
				logger.Error(ctx, "authentication failed", "path", c.FullPath(), "error", err)
			}
			c.AbortWithStatusJSON(apperrors.HTTPStatus(err), gin.H{
				"error": apperrors.PublicMessage(err),
			})
			return
		}

		c.Set(userContextKey, user)
		c.Next()
	}
}

// CurrentUser returns the user stored by AuthMiddleware
func CurrentUser(c *gin.Context) (*entities.User, bool) {
	value, exists := c.Get(userContextKey)
	if !exists {
		return nil, false
	}
	user, ok := value.(*entities.User)
	return user, ok && user != nil
}

func authFailureReason(err error) string {
	switch {
	case errors.Is(err, auth.ErrMissingToken):
		return "missing_token"
	case errors.Is(err, auth.ErrUnknownUser):
		return "unknown_user"
	case errors.Is(err, auth.ErrInvalidToken):
		return "invalid_token"
	default:
		return "unknown"
	}
}
