// Package server wires controllers and middleware into the HTTP router and
// runs the HTTP server.
package server

import (
	"net/http"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"

	"taskflow-be/internal/controllers"
	"taskflow-be/internal/logging"
	"taskflow-be/internal/middleware"
)

type Dependencies struct {
	AuthController *controllers.AuthController
	TaskController *controllers.TaskController
	Gateway        middleware.Authenticator
	GeneralLimiter *middleware.RateLimiter
	AuthLimiter    *middleware.RateLimiter
	AllowedOrigins []string
	Logger         logging.Logger
}

func NewRouter(d Dependencies) *gin.Engine {
	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(middleware.RequestLogger(d.Logger))
	// cors.New panics on an empty origin list
	if len(d.AllowedOrigins) > 0 {
		router.Use(cors.New(cors.Config{
			AllowOrigins:     d.AllowedOrigins,
			AllowMethods:     []string{http.MethodGet, http.MethodPost, http.MethodPut, http.MethodDelete, http.MethodOptions},
			AllowHeaders:     []string{"Origin", "Content-Type", "Authorization"},
			AllowCredentials: true,
			MaxAge:           12 * time.Hour,
		}))
	}

	// Health check endpoint (no rate limiting)
	router.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"status": "ok",
		})
	})

	api := router.Group("/api")
	api.Use(d.GeneralLimiter.LimitMiddleware())
	{
		// Credential endpoints with stricter rate limiting
		credentials := api.Group("/auth")
		credentials.Use(d.AuthLimiter.LimitMiddleware())
		{
			credentials.POST("/register", d.AuthController.Register)
			credentials.POST("/login", d.AuthController.Login)
			credentials.POST("/reset-password", d.AuthController.RequestPasswordReset)
			credentials.POST("/reset-password/:token", d.AuthController.ResetPassword)
		}

		profile := api.Group("/auth/profile")
		profile.Use(middleware.AuthMiddleware(d.Gateway, d.Logger))
		{
			profile.GET("", d.AuthController.GetProfile)
			profile.PUT("", d.AuthController.UpdateProfile)
		}

		// Protected routes - require a bearer token
		tasks := api.Group("/tasks")
		tasks.Use(middleware.AuthMiddleware(d.Gateway, d.Logger))
		{
			tasks.GET("", d.TaskController.ListTasks)
			tasks.POST("", d.TaskController.CreateTask)
			tasks.GET("/stats", d.TaskController.GetStats)
			tasks.PUT("/:id", d.TaskController.UpdateTask)
			tasks.DELETE("/:id", d.TaskController.DeleteTask)
		}
	}

	return router
}
