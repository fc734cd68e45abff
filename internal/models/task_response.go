package models

// StatusCounts holds task counts per status
type StatusCounts struct {
	NotStarted int `json:"not-started"`
	InProgress int `json:"in-progress"`
	Completed  int `json:"completed"`
}

// PriorityCounts holds task counts per priority
type PriorityCounts struct {
	Low    int `json:"low"`
	Medium int `json:"medium"`
	High   int `json:"high"`
}

// TaskStatsResponse represents the response for GET /api/tasks/stats
type TaskStatsResponse struct {
	Total          int            `json:"total"`
	ByStatus       StatusCounts   `json:"by_status"`
	ByPriority     PriorityCounts `json:"by_priority"`
	CompletionRate float64        `json:"completion_rate"` // Percentage in [0, 100]
}
