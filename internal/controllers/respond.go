package controllers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"taskflow-be/internal/apperrors"
	"taskflow-be/internal/entities"
	"taskflow-be/internal/logging"
	"taskflow-be/internal/middleware"
)

// respondError writes the error envelope for err. Only unexpected failures
// are logged here; services already log the expected ones.
func respondError(c *gin.Context, logger logging.Logger, err error) {
	status := apperrors.HTTPStatus(err)
	if status >= http.StatusInternalServerError {
		logger.Error(c.Request.Context(), "request failed", "path", c.FullPath(), "error", err)
	}
	c.JSON(status, gin.H{
		"error": apperrors.PublicMessage(err),
	})
}

func respondBindError(c *gin.Context, err error) {
	c.JSON(http.StatusBadRequest, gin.H{
		"error":   "Invalid request body",
		"details": err.Error(),
	})
}

// mustUser returns the authenticated user or aborts with 401. Routes using
// it are always mounted behind middleware.AuthMiddleware.
func mustUser(c *gin.Context) (*entities.User, bool) {
	user, ok := middleware.CurrentUser(c)
	if !ok {
		c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{
			"error": "Unauthorized",
		})
		return nil, false
	}
	return user, true
}
