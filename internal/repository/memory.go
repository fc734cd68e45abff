package repository

import (
	"context"
	"sort"
	"sync"
	"time"

	"taskflow-be/internal/entities"
)

// MemoryUserRepository keeps users in process memory. Used when no database
// is configured and in tests.
type MemoryUserRepository struct {
	mu    sync.RWMutex
	users map[string]entities.User
}

func NewMemoryUserRepository() *MemoryUserRepository {
	return &MemoryUserRepository{users: make(map[string]entities.User)}
}

func (r *MemoryUserRepository) Create(_ context.Context, user *entities.User) (*entities.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.users[user.Email]; exists {
		return nil, ErrDuplicateEmail
	}
	r.users[user.Email] = *user

	created := *user
	return &created, nil
}

func (r *MemoryUserRepository) FindByEmail(_ context.Context, email string) (*entities.User, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	user, ok := r.users[email]
	if !ok {
		return nil, ErrNotFound
	}
	return &user, nil
}

func (r *MemoryUserRepository) UpdateName(_ context.Context, email, name string) (*entities.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	user, ok := r.users[email]
	if !ok {
		return nil, ErrNotFound
	}
	user.Name = name
	user.UpdatedAt = time.Now().UTC()
	r.users[email] = user

	return &user, nil
}

func (r *MemoryUserRepository) UpdatePasswordHash(_ context.Context, email, currentHash, newHash string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	user, ok := r.users[email]
	if !ok {
		return ErrNotFound
	}
	if user.PasswordHash != currentHash {
		return ErrStaleWrite
	}
	user.PasswordHash = newHash
	user.UpdatedAt = time.Now().UTC()
	r.users[email] = user

	return nil
}

type memoryTask struct {
	task entities.Task
	seq  uint64
}

// MemoryTaskRepository keeps tasks in process memory with the same owner
// scoping and ordering as the Postgres repository.
type MemoryTaskRepository struct {
	mu    sync.RWMutex
	seq   uint64
	tasks map[string]*memoryTask
}

func NewMemoryTaskRepository() *MemoryTaskRepository {
	return &MemoryTaskRepository{tasks: make(map[string]*memoryTask)}
}

func (r *MemoryTaskRepository) Create(_ context.Context, task *entities.Task) (*entities.Task, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.seq++
	r.tasks[task.ID] = &memoryTask{task: *task, seq: r.seq}

	created := *task
	return &created, nil
}

func (r *MemoryTaskRepository) ListByOwner(_ context.Context, owner string) ([]*entities.Task, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	owned := make([]*memoryTask, 0)
	for _, mt := range r.tasks {
		if mt.task.OwnerEmail == owner {
			owned = append(owned, mt)
		}
	}

	// Newest first; insertion order breaks ties.
	sort.Slice(owned, func(i, j int) bool {
		a, b := owned[i], owned[j]
		if !a.task.CreatedAt.Equal(b.task.CreatedAt) {
			return a.task.CreatedAt.After(b.task.CreatedAt)
		}
		return a.seq > b.seq
	})

	tasks := make([]*entities.Task, 0, len(owned))
	for _, mt := range owned {
		task := mt.task
		tasks = append(tasks, &task)
	}
	return tasks, nil
}

func (r *MemoryTaskRepository) Update(_ context.Context, owner, id string, update entities.TaskUpdate) (*entities.Task, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	mt, ok := r.tasks[id]
	if !ok || mt.task.OwnerEmail != owner {
		return nil, ErrNotFound
	}

	if update.Title != nil {
		mt.task.Title = *update.Title
	}
	if update.Description != nil {
		mt.task.Description = *update.Description
	}
	if update.Priority != nil {
		mt.task.Priority = *update.Priority
	}
	if update.Status != nil {
		mt.task.Status = *update.Status
	}
	mt.task.UpdatedAt = time.Now().UTC()

	updated := mt.task
	return &updated, nil
}

func (r *MemoryTaskRepository) Delete(_ context.Context, owner, id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	mt, ok := r.tasks[id]
	if !ok || mt.task.OwnerEmail != owner {
		return ErrNotFound
	}
	delete(r.tasks, id)
	return nil
}

func (r *MemoryTaskRepository) CountByOwner(_ context.Context, owner string) ([]entities.TaskCount, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	type key struct {
		status   entities.Status
		priority entities.Priority
	}
	grouped := make(map[key]int)
	for _, mt := range r.tasks {
		if mt.task.OwnerEmail == owner {
			grouped[key{mt.task.Status, mt.task.Priority}]++
		}
	}

	counts := make([]entities.TaskCount, 0, len(grouped))
	for k, n := range grouped {
		counts = append(counts, entities.TaskCount{Status: k.status, Priority: k.priority, Count: n})
	}
	return counts, nil
}
