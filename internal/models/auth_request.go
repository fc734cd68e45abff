package models

// RegisterRequest represents the request body for user registration
type RegisterRequest struct {
	Name     string `json:"name" binding:"required"`
	Email    string `json:"email" binding:"required,email"`
	Password string `json:"password" binding:"required,min=6"`
}

// LoginRequest represents the request body for user login
type LoginRequest struct {
	Email    string `json:"email" binding:"required"`
	Password string `json:"password" binding:"required"`
}

// ResetPasswordRequest starts the password reset flow
type ResetPasswordRequest struct {
	Email string `json:"email" binding:"required"`
}

// NewPasswordRequest completes the password reset flow.
// Length is checked by the service so the error message is stable.
type NewPasswordRequest struct {
	Password string `json:"password"`
}

// UpdateProfileRequest represents the request body for PUT /api/auth/profile
type UpdateProfileRequest struct {
	Name *string `json:"name" binding:"omitempty,min=1"`
}
