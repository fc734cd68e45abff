package service

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"golang.org/x/crypto/bcrypt"

	"taskflow-be/internal/entities"
	"taskflow-be/internal/hasher"
	"taskflow-be/internal/jwt"
	"taskflow-be/internal/logging"
	"taskflow-be/internal/repository"
)

var errBoom = errors.New("boom")

type sentMessage struct {
	To, Subject, Body string
}

type fakeNotifier struct {
	mu   sync.Mutex
	sent []sentMessage
	err  error
}

func (f *fakeNotifier) Send(_ context.Context, to, subject, body string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return f.err
	}
	f.sent = append(f.sent, sentMessage{To: to, Subject: subject, Body: body})
	return nil
}

// failingTaskRepo fails every call with errBoom.
type failingTaskRepo struct{}

func (failingTaskRepo) Create(context.Context, *entities.Task) (*entities.Task, error) {
	return nil, errBoom
}
func (failingTaskRepo) ListByOwner(context.Context, string) ([]*entities.Task, error) {
	return nil, errBoom
}
func (failingTaskRepo) Update(context.Context, string, string, entities.TaskUpdate) (*entities.Task, error) {
	return nil, errBoom
}
func (failingTaskRepo) Delete(context.Context, string, string) error { return errBoom }
func (failingTaskRepo) CountByOwner(context.Context, string) ([]entities.TaskCount, error) {
	return nil, errBoom
}

type failingUserRepo struct{}

func (failingUserRepo) Create(context.Context, *entities.User) (*entities.User, error) {
	return nil, errBoom
}
func (failingUserRepo) FindByEmail(context.Context, string) (*entities.User, error) {
	return nil, errBoom
}
func (failingUserRepo) UpdateName(context.Context, string, string) (*entities.User, error) {
	return nil, errBoom
}
func (failingUserRepo) UpdatePasswordHash(context.Context, string, string, string) error {
	return errBoom
}

// barrierUserRepo releases FindByEmail callers only once all expected
// callers have read.
type barrierUserRepo struct {
	repository.UserRepository
	arrived sync.WaitGroup
}

func (r *barrierUserRepo) FindByEmail(ctx context.Context, email string) (*entities.User, error) {
	user, err := r.UserRepository.FindByEmail(ctx, email)
	r.arrived.Done()
	r.arrived.Wait()
	return user, err
}

type authFixture struct {
	svc      *authService
	users    repository.UserRepository
	tokens   *jwt.JWTService
	notifier *fakeNotifier
	clock    *time.Time
}

func newAuthFixture(t *testing.T) *authFixture {
	t.Helper()
	users := repository.NewMemoryUserRepository()
	tokens := jwt.NewJWTService("test-secret", 24*time.Hour, time.Hour)
	n := &fakeNotifier{}
	clock := time.Date(2026, 4, 1, 10, 0, 0, 0, time.UTC)

	svc := NewAuthService(users, tokens, hasher.NewBcryptHasher(bcrypt.MinCost), n, logging.Discard(), "http://localhost:5173/").(*authService)
	f := &authFixture{svc: svc, users: users, tokens: tokens, notifier: n, clock: &clock}
	svc.now = func() time.Time { return *f.clock }
	return f
}
