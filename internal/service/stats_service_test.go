package service

import (
	"context"
	"sync"
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"taskflow-be/internal/cache"
	"taskflow-be/internal/entities"
	"taskflow-be/internal/logging"
	"taskflow-be/internal/models"
	"taskflow-be/internal/repository"
)

func TestCompletionRate(t *testing.T) {
	assert.Equal(t, 0.0, CompletionRate(0, 0))
	assert.Equal(t, 25.0, CompletionRate(1, 4))
	assert.Equal(t, 100.0, CompletionRate(3, 3))
	assert.Equal(t, 0.0, CompletionRate(0, 7))

	for total := 0; total <= 20; total++ {
		for completed := 0; completed <= total; completed++ {
			rate := CompletionRate(completed, total)
			assert.GreaterOrEqual(t, rate, 0.0)
			assert.LessOrEqual(t, rate, 100.0)
		}
	}
}

func TestAggregateStats(t *testing.T) {
	stats := AggregateStats([]entities.TaskCount{
		{Status: entities.StatusCompleted, Priority: entities.PriorityLow, Count: 1},
		{Status: entities.StatusNotStarted, Priority: entities.PriorityHigh, Count: 2},
		{Status: entities.StatusInProgress, Priority: entities.PriorityMedium, Count: 1},
	})

	assert.Equal(t, models.TaskStatsResponse{
		Total:          4,
		ByStatus:       models.StatusCounts{NotStarted: 2, InProgress: 1, Completed: 1},
		ByPriority:     models.PriorityCounts{Low: 1, Medium: 1, High: 2},
		CompletionRate: 25,
	}, stats)
}

func TestAggregateStats_Empty(t *testing.T) {
	assert.Equal(t, models.TaskStatsResponse{}, AggregateStats(nil))
}

func TestStatsService_ComputeScopedByOwner(t *testing.T) {
	svc, stats := newTaskFixture(t)
	ctx := context.Background()

	_, err := svc.Create(ctx, "a@x.com", &models.CreateTaskRequest{Title: "buy milk", Priority: "low", Status: "not-started"})
	require.NoError(t, err)
	_, err = svc.Create(ctx, "b@x.com", &models.CreateTaskRequest{Title: "other", Status: "completed"})
	require.NoError(t, err)

	got, err := stats.Compute(ctx, "a@x.com")
	require.NoError(t, err)
	assert.Equal(t, 1, got.Total)
	assert.Equal(t, models.StatusCounts{NotStarted: 1}, got.ByStatus)
	assert.Equal(t, models.PriorityCounts{Low: 1}, got.ByPriority)
	assert.Equal(t, 0.0, got.CompletionRate)
}

func TestStatsService_CacheInvalidatedOnMutation(t *testing.T) {
	srv := miniredis.RunT(t)
	c, err := cache.NewRedisCache(context.Background(), srv.Addr())
	require.NoError(t, err)
	t.Cleanup(func() { c.Close() })

	repo := repository.NewMemoryTaskRepository()
	stats := NewStatsService(repo, c, logging.Discard())
	tasks := NewTaskService(repo, stats, logging.Discard())
	ctx := context.Background()

	first, err := stats.Compute(ctx, "a@x.com")
	require.NoError(t, err)
	assert.Equal(t, 0, first.Total)
	assert.True(t, srv.Exists("stats:a@x.com:0"))

	task, err := tasks.Create(ctx, "a@x.com", &models.CreateTaskRequest{Title: "x"})
	require.NoError(t, err)
	gen, err := srv.Get("stats:gen:a@x.com")
	require.NoError(t, err)
	assert.Equal(t, "1", gen)

	second, err := stats.Compute(ctx, "a@x.com")
	require.NoError(t, err)
	assert.Equal(t, 1, second.Total)

	_, err = tasks.Update(ctx, "a@x.com", task.ID, &models.UpdateTaskRequest{Status: strPtr("completed")})
	require.NoError(t, err)

	third, err := stats.Compute(ctx, "a@x.com")
	require.NoError(t, err)
	assert.Equal(t, 100.0, third.CompletionRate)

	require.NoError(t, tasks.Delete(ctx, "a@x.com", task.ID))
	fourth, err := stats.Compute(ctx, "a@x.com")
	require.NoError(t, err)
	assert.Equal(t, 0, fourth.Total)
}

func TestStatsService_ServesFromCache(t *testing.T) {
	srv := miniredis.RunT(t)
	c, err := cache.NewRedisCache(context.Background(), srv.Addr())
	require.NoError(t, err)
	t.Cleanup(func() { c.Close() })

	require.NoError(t, srv.Set("stats:a@x.com:0", `{"total":9,"by_status":{"not-started":9,"in-progress":0,"completed":0},"by_priority":{"low":9,"medium":0,"high":0},"completion_rate":0}`))

	stats := NewStatsService(failingTaskRepo{}, c, logging.Discard())
	got, err := stats.Compute(context.Background(), "a@x.com")
	require.NoError(t, err)
	assert.Equal(t, 9, got.Total)
}

func TestStatsService_CacheDownFallsBackToStore(t *testing.T) {
	srv := miniredis.RunT(t)
	c, err := cache.NewRedisCache(context.Background(), srv.Addr())
	require.NoError(t, err)
	t.Cleanup(func() { c.Close() })
	srv.Close()

	repo := repository.NewMemoryTaskRepository()
	_, err = repo.Create(context.Background(), &entities.Task{ID: "t", OwnerEmail: "a@x.com",
		Status: entities.StatusCompleted, Priority: entities.PriorityLow})
	require.NoError(t, err)

	stats := NewStatsService(repo, c, logging.Discard())
	got, err := stats.Compute(context.Background(), "a@x.com")
	require.NoError(t, err)
	assert.Equal(t, 1, got.Total)
	assert.Equal(t, 100.0, got.CompletionRate)

	stats.Invalidate(context.Background(), "a@x.com")
}

// gatedCountRepo pauses the first CountByOwner call after it has read the
// counts, until release is closed.
type gatedCountRepo struct {
	*repository.MemoryTaskRepository
	once    sync.Once
	counted chan struct{}
	release chan struct{}
}

func (r *gatedCountRepo) CountByOwner(ctx context.Context, owner string) ([]entities.TaskCount, error) {
	counts, err := r.MemoryTaskRepository.CountByOwner(ctx, owner)
	r.once.Do(func() {
		close(r.counted)
		<-r.release
	})
	return counts, err
}

func TestStatsService_MutationDuringComputeIsNotMasked(t *testing.T) {
	srv := miniredis.RunT(t)
	c, err := cache.NewRedisCache(context.Background(), srv.Addr())
	require.NoError(t, err)
	t.Cleanup(func() { c.Close() })

	repo := &gatedCountRepo{
		MemoryTaskRepository: repository.NewMemoryTaskRepository(),
		counted:              make(chan struct{}),
		release:              make(chan struct{}),
	}
	stats := NewStatsService(repo, c, logging.Discard())
	tasks := NewTaskService(repo, stats, logging.Discard())
	ctx := context.Background()

	done := make(chan *models.TaskStatsResponse)
	go func() {
		got, err := stats.Compute(ctx, "a@x.com")
		assert.NoError(t, err)
		done <- got
	}()

	// The task lands between the count and the cache write.
	<-repo.counted
	_, err = tasks.Create(ctx, "a@x.com", &models.CreateTaskRequest{Title: "x"})
	require.NoError(t, err)
	close(repo.release)

	stale := <-done
	require.NotNil(t, stale)
	assert.Equal(t, 0, stale.Total)

	fresh, err := stats.Compute(ctx, "a@x.com")
	require.NoError(t, err)
	assert.Equal(t, 1, fresh.Total)
}
