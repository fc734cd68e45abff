package models

// CreateTaskRequest represents the request body for POST /api/tasks.
// There is deliberately no owner field: the owner is the authenticated user.
type CreateTaskRequest struct {
	Title       string `json:"title" binding:"required"`
	Description string `json:"description"`
	Priority    string `json:"priority" binding:"omitempty,oneof=low medium high"`
	Status      string `json:"status" binding:"omitempty,oneof=not-started in-progress completed"`
}

// UpdateTaskRequest represents a partial update; omitted fields are untouched
type UpdateTaskRequest struct {
	Title       *string `json:"title" binding:"omitempty,min=1"`
	Description *string `json:"description"`
	Priority    *string `json:"priority" binding:"omitempty,oneof=low medium high"`
	Status      *string `json:"status" binding:"omitempty,oneof=not-started in-progress completed"`
}
