package service

import (
	"context"
	"errors"
	"time"

	"taskflow-be/internal/apperrors"
	"taskflow-be/internal/cache"
	"taskflow-be/internal/entities"
	"taskflow-be/internal/logging"
	"taskflow-be/internal/models"
	"taskflow-be/internal/repository"
)

const statsCacheTTL = 5 * time.Minute

// StatsService computes per-owner task statistics
type StatsService interface {
	Compute(ctx context.Context, owner string) (*models.TaskStatsResponse, error)
	// Invalidate drops any cached statistics for owner.
	Invalidate(ctx context.Context, owner string)
}

type statsService struct {
	repo   repository.TaskRepository
	cache  cache.Cache
	logger logging.Logger
}

// NewStatsService creates a stats service. cacheClient may be nil, in which
// case statistics are computed on every call.
func NewStatsService(repo repository.TaskRepository, cacheClient cache.Cache, logger logging.Logger) StatsService {
	return &statsService{
		repo:   repo,
		cache:  cacheClient,
		logger: logger.With("component", "stats_service"),
	}
}

// Cached stats are keyed by a per-owner generation. Invalidate bumps the
// generation, so a computation that raced with a mutation can only write
// under a generation nobody reads any more.
func statsGenerationKey(owner string) string {
	return "stats:gen:" + owner
}

func statsCacheKey(owner, generation string) string {
	return "stats:" + owner + ":" + generation
}

func (s *statsService) Compute(ctx context.Context, owner string) (*models.TaskStatsResponse, error) {
	key, cacheable := s.cacheKey(ctx, owner)
	if cacheable {
		var cached models.TaskStatsResponse
		err := s.cache.GetJSON(ctx, key, &cached)
		if err == nil {
			return &cached, nil
		}
		if !errors.Is(err, cache.ErrMiss) {
			s.logger.Warn(ctx, "stats cache read failed", "error", err)
		}
	}

	counts, err := s.repo.CountByOwner(ctx, owner)
	if err != nil {
		return nil, apperrors.Dependency("Failed to load task stats", err)
	}

	stats := AggregateStats(counts)

	if cacheable {
		if err := s.cache.SetJSON(ctx, key, stats, statsCacheTTL); err != nil {
			s.logger.Warn(ctx, "stats cache write failed", "error", err)
		}
	}

	return &stats, nil
}

// cacheKey reads the owner's current generation. It must run before the
// counts are loaded.
func (s *statsService) cacheKey(ctx context.Context, owner string) (string, bool) {
	if s.cache == nil {
		return "", false
	}

	generation, err := s.cache.Get(ctx, statsGenerationKey(owner))
	if errors.Is(err, cache.ErrMiss) {
		generation = "0"
	} else if err != nil {
		s.logger.Warn(ctx, "stats cache generation read failed", "error", err)
		return "", false
	}
	return statsCacheKey(owner, generation), true
}

func (s *statsService) Invalidate(ctx context.Context, owner string) {
	if s.cache == nil {
		return
	}
	if _, err := s.cache.Incr(ctx, statsGenerationKey(owner)); err != nil {
		s.logger.Warn(ctx, "stats cache invalidation failed", "error", err)
	}
}

// AggregateStats folds grouped task counts into the stats response.
// Counts with an unknown status or priority still add to the total.
func AggregateStats(counts []entities.TaskCount) models.TaskStatsResponse {
	var stats models.TaskStatsResponse

	for _, c := range counts {
		stats.Total += c.Count

		switch c.Status {
		case entities.StatusNotStarted:
			stats.ByStatus.NotStarted += c.Count
		case entities.StatusInProgress:
			stats.ByStatus.InProgress += c.Count
		case entities.StatusCompleted:
			stats.ByStatus.Completed += c.Count
		}

		switch c.Priority {
		case entities.PriorityLow:
			stats.ByPriority.Low += c.Count
		case entities.PriorityMedium:
			stats.ByPriority.Medium += c.Count
		case entities.PriorityHigh:
			stats.ByPriority.High += c.Count
		}
	}

	stats.CompletionRate = CompletionRate(stats.ByStatus.Completed, stats.Total)
	return stats
}

// CompletionRate returns 100*completed/total, or 0 when total is 0.
func CompletionRate(completed, total int) float64 {
	if total <= 0 || completed <= 0 {
		return 0
	}
	if completed >= total {
		return 100
	}
	return float64(completed) / float64(total) * 100
}
