package service

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"

	"taskflow-be/internal/apperrors"
	"taskflow-be/internal/entities"
	"taskflow-be/internal/logging"
	"taskflow-be/internal/models"
	"taskflow-be/internal/repository"
)

// TaskService defines the task operations. owner is always the email of the
// authenticated user, never a value taken from the request body.
type TaskService interface {
	List(ctx context.Context, owner string) ([]*entities.Task, error)
	Create(ctx context.Context, owner string, req *models.CreateTaskRequest) (*entities.Task, error)
	Update(ctx context.Context, owner, id string, req *models.UpdateTaskRequest) (*entities.Task, error)
	Delete(ctx context.Context, owner, id string) error
}

type taskService struct {
	repo   repository.TaskRepository
	stats  StatsService
	logger logging.Logger
	now    func() time.Time
}

// NewTaskService creates a new task service
func NewTaskService(repo repository.TaskRepository, stats StatsService, logger logging.Logger) TaskService {
	return &taskService{
		repo:   repo,
		stats:  stats,
		logger: logger.With("component", "task_service"),
		now:    time.Now,
	}
}

var errTaskNotFound = apperrors.NotFound("Task not found")

func (s *taskService) List(ctx context.Context, owner string) ([]*entities.Task, error) {
	tasks, err := s.repo.ListByOwner(ctx, owner)
	if err != nil {
		return nil, apperrors.Dependency("Failed to load tasks", err)
	}
	return tasks, nil
}

func (s *taskService) Create(ctx context.Context, owner string, req *models.CreateTaskRequest) (*entities.Task, error) {
	title := strings.TrimSpace(req.Title)
	if title == "" {
		return nil, apperrors.Validation("Title is required")
	}

	priority := entities.PriorityMedium
	if req.Priority != "" {
		priority = entities.Priority(req.Priority)
		if !priority.Valid() {
			return nil, apperrors.Validation("Priority must be one of low, medium, high")
		}
	}

	status := entities.StatusNotStarted
	if req.Status != "" {
		status = entities.Status(req.Status)
		if !status.Valid() {
			return nil, apperrors.Validation("Status must be one of not-started, in-progress, completed")
		}
	}

	now := s.now().UTC().Truncate(time.Microsecond)
	task, err := s.repo.Create(ctx, &entities.Task{
		ID:          uuid.NewString(),
		Title:       title,
		Description: req.Description,
		Priority:    priority,
		Status:      status,
		OwnerEmail:  owner,
		CreatedAt:   now,
		UpdatedAt:   now,
	})
	if err != nil {
		return nil, apperrors.Dependency("Failed to create task", err)
	}

	s.stats.Invalidate(ctx, owner)
	s.logger.Debug(ctx, "task created", "task_id", task.ID)

	return task, nil
}

func (s *taskService) Update(ctx context.Context, owner, id string, req *models.UpdateTaskRequest) (*entities.Task, error) {
	id, ok := canonicalID(id)
	if !ok {
		return nil, errTaskNotFound
	}

	update, err := taskUpdateFrom(req)
	if err != nil {
		return nil, err
	}

	task, err := s.repo.Update(ctx, owner, id, update)
	if errors.Is(err, repository.ErrNotFound) {
		return nil, errTaskNotFound
	}
	if err != nil {
		return nil, apperrors.Dependency("Failed to update task", err)
	}

	s.stats.Invalidate(ctx, owner)
	return task, nil
}

func (s *taskService) Delete(ctx context.Context, owner, id string) error {
	id, ok := canonicalID(id)
	if !ok {
		return errTaskNotFound
	}

	err := s.repo.Delete(ctx, owner, id)
	if errors.Is(err, repository.ErrNotFound) {
		return errTaskNotFound
	}
	if err != nil {
		return apperrors.Dependency("Failed to delete task", err)
	}

	s.stats.Invalidate(ctx, owner)
	s.logger.Debug(ctx, "task deleted", "task_id", id)
	return nil
}

// canonicalID normalizes a task id. A malformed id cannot name any task, so
// callers report it exactly like a missing one.
func canonicalID(id string) (string, bool) {
	parsed, err := uuid.Parse(id)
	if err != nil {
		return "", false
	}
	return parsed.String(), true
}

func taskUpdateFrom(req *models.UpdateTaskRequest) (entities.TaskUpdate, error) {
	var update entities.TaskUpdate

	if req.Title != nil {
		title := strings.TrimSpace(*req.Title)
		if title == "" {
			return update, apperrors.Validation("Title cannot be empty")
		}
		update.Title = &title
	}
	if req.Description != nil {
		description := *req.Description
		update.Description = &description
	}
	if req.Priority != nil {
		priority := entities.Priority(*req.Priority)
		if !priority.Valid() {
			return update, apperrors.Validation("Priority must be one of low, medium, high")
		}
		update.Priority = &priority
	}
	if req.Status != nil {
		status := entities.Status(*req.Status)
		if !status.Valid() {
			return update, apperrors.Validation("Status must be one of not-started, in-progress, completed")
		}
		update.Status = &status
	}

	return update, nil
}
