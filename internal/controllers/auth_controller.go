package controllers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"taskflow-be/internal/logging"
	"taskflow-be/internal/models"
	"taskflow-be/internal/service"
)

type AuthController struct {
	authService service.AuthService
	logger      logging.Logger
}

func NewAuthController(authService service.AuthService, logger logging.Logger) *AuthController {
	return &AuthController{
		authService: authService,
		logger:      logger.With("component", "auth_controller"),
	}
}

// Register handles POST /api/auth/register
func (ac *AuthController) Register(c *gin.Context) {
	var req models.RegisterRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBindError(c, err)
		return
	}

	response, err := ac.authService.Register(c.Request.Context(), &req)
	if err != nil {
		respondError(c, ac.logger, err)
		return
	}

	c.JSON(http.StatusCreated, response)
}

// Login handles POST /api/auth/login
func (ac *AuthController) Login(c *gin.Context) {
	var req models.LoginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBindError(c, err)
		return
	}

	response, err := ac.authService.Login(c.Request.Context(), &req)
	if err != nil {
		respondError(c, ac.logger, err)
		return
	}

	c.JSON(http.StatusOK, response)
}

// RequestPasswordReset handles POST /api/auth/reset-password
func (ac *AuthController) RequestPasswordReset(c *gin.Context) {
	var req models.ResetPasswordRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBindError(c, err)
		return
	}

	if err := ac.authService.RequestPasswordReset(c.Request.Context(), req.Email); err != nil {
		respondError(c, ac.logger, err)
		return
	}

	c.JSON(http.StatusOK, models.MessageResponse{Message: "Password reset link sent to your email"})
}

// ResetPassword handles POST /api/auth/reset-password/:token
func (ac *AuthController) ResetPassword(c *gin.Context) {
	var req models.NewPasswordRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBindError(c, err)
		return
	}

	if err := ac.authService.ResetPassword(c.Request.Context(), c.Param("token"), req.Password); err != nil {
		respondError(c, ac.logger, err)
		return
	}

	c.JSON(http.StatusOK, models.MessageResponse{Message: "Password reset successful"})
}

// GetProfile handles GET /api/auth/profile
func (ac *AuthController) GetProfile(c *gin.Context) {
	user, ok := mustUser(c)
	if !ok {
		return
	}

	c.JSON(http.StatusOK, ac.authService.GetProfile(user))
}

// UpdateProfile handles PUT /api/auth/profile
func (ac *AuthController) UpdateProfile(c *gin.Context) {
	user, ok := mustUser(c)
	if !ok {
		return
	}

	var req models.UpdateProfileRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBindError(c, err)
		return
	}

	profile, err := ac.authService.UpdateProfile(c.Request.Context(), user, &req)
	if err != nil {
		respondError(c, ac.logger, err)
		return
	}

	c.JSON(http.StatusOK, profile)
}
