package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"taskflow-be/internal/entities"
)

// TaskRepository defines the owner-scoped task operations. Every method that
// reads or mutates existing rows filters by owner email.
type TaskRepository interface {
	Create(ctx context.Context, task *entities.Task) (*entities.Task, error)
	ListByOwner(ctx context.Context, owner string) ([]*entities.Task, error)
	Update(ctx context.Context, owner, id string, update entities.TaskUpdate) (*entities.Task, error)
	Delete(ctx context.Context, owner, id string) error
	CountByOwner(ctx context.Context, owner string) ([]entities.TaskCount, error)
}

type taskRepository struct {
	db *sql.DB
}

// NewTaskRepository creates a new task repository
func NewTaskRepository(db *sql.DB) TaskRepository {
	return &taskRepository{db: db}
}

const taskColumns = `id, title, description, priority, status, owner_email, created_at, updated_at`

// Create inserts a new task
func (r *taskRepository) Create(ctx context.Context, task *entities.Task) (*entities.Task, error) {
	query := `
		INSERT INTO tasks (id, title, description, priority, status, owner_email, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		RETURNING ` + taskColumns

	created, err := scanTask(r.db.QueryRowContext(ctx, query,
		task.ID,
		task.Title,
		task.Description,
		string(task.Priority),
		string(task.Status),
		task.OwnerEmail,
		task.CreatedAt,
		task.UpdatedAt,
	))
	if err != nil {
		return nil, fmt.Errorf("failed to create task: %w", err)
	}

	return created, nil
}

// ListByOwner returns the owner's tasks, most recent first
func (r *taskRepository) ListByOwner(ctx context.Context, owner string) ([]*entities.Task, error) {
	query := `
		SELECT ` + taskColumns + `
		FROM tasks
		WHERE owner_email = $1
		ORDER BY created_at DESC, id DESC
	`

	rows, err := r.db.QueryContext(ctx, query, owner)
	if err != nil {
		return nil, fmt.Errorf("failed to get tasks: %w", err)
	}
	defer rows.Close()

	tasks := make([]*entities.Task, 0)
	for rows.Next() {
		task, err := scanTask(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan task: %w", err)
		}
		tasks = append(tasks, task)
	}

	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating tasks: %w", err)
	}

	return tasks, nil
}

// Update applies the non-nil fields of update to a task owned by owner
func (r *taskRepository) Update(ctx context.Context, owner, id string, update entities.TaskUpdate) (*entities.Task, error) {
	query := `
		UPDATE tasks
		SET title = COALESCE($3, title),
			description = COALESCE($4, description),
			priority = COALESCE($5, priority),
			status = COALESCE($6, status),
			updated_at = NOW()
		WHERE id = $1 AND owner_email = $2
		RETURNING ` + taskColumns

	var priority, status *string
	if update.Priority != nil {
		p := string(*update.Priority)
		priority = &p
	}
	if update.Status != nil {
		s := string(*update.Status)
		status = &s
	}

	task, err := scanTask(r.db.QueryRowContext(ctx, query,
		id,
		owner,
		nullable(update.Title),
		nullable(update.Description),
		nullable(priority),
		nullable(status),
	))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to update task: %w", err)
	}

	return task, nil
}

// Delete removes a task owned by owner
func (r *taskRepository) Delete(ctx context.Context, owner, id string) error {
	result, err := r.db.ExecContext(ctx, `DELETE FROM tasks WHERE id = $1 AND owner_email = $2`, id, owner)
	if err != nil {
		return fmt.Errorf("failed to delete task: %w", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}

	if rowsAffected == 0 {
		return ErrNotFound
	}

	return nil
}

// CountByOwner groups the owner's tasks by status and priority
func (r *taskRepository) CountByOwner(ctx context.Context, owner string) ([]entities.TaskCount, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT status, priority, COUNT(*)
		FROM tasks
		WHERE owner_email = $1
		GROUP BY status, priority
	`, owner)
	if err != nil {
		return nil, fmt.Errorf("failed to count tasks: %w", err)
	}
	defer rows.Close()

	var counts []entities.TaskCount
	for rows.Next() {
		var c entities.TaskCount
		if err := rows.Scan(&c.Status, &c.Priority, &c.Count); err != nil {
			return nil, fmt.Errorf("failed to scan task count: %w", err)
		}
		counts = append(counts, c)
	}

	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating task counts: %w", err)
	}

	return counts, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanTask(row rowScanner) (*entities.Task, error) {
	var task entities.Task
	err := row.Scan(
		&task.ID,
		&task.Title,
		&task.Description,
		&task.Priority,
		&task.Status,
		&task.OwnerEmail,
		&task.CreatedAt,
		&task.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &task, nil
}

func nullable(s *string) any {
	if s == nil {
		return nil
	}
	return *s
}
