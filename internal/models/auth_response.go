package models

import "time"

// UserSummary is the public view of a user embedded in auth responses
type UserSummary struct {
	Name  string `json:"name"`
	Email string `json:"email"`
}

// AuthResponse represents the response after successful login
type AuthResponse struct {
	Token string      `json:"token"` // JWT token
	User  UserSummary `json:"user"`
}

// ProfileResponse represents the authenticated user's profile
type ProfileResponse struct {
	Name      string    `json:"name"`
	Email     string    `json:"email"`
	CreatedAt time.Time `json:"created_at"`
}

// RegisterResponse represents the response after user registration
type RegisterResponse struct {
	Message string          `json:"message"`
	User    ProfileResponse `json:"user"`
}

// MessageResponse is a plain confirmation
type MessageResponse struct {
	Message string `json:"message"`
}
