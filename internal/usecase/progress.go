package usecase

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"

	"github.com/santhoshmp/learningplanner/internal/core/domain"
	"github.com/santhoshmp/learningplanner/internal/core/port"
	"github.com/santhoshmp/learningplanner/internal/infra/config"
	"github.com/santhoshmp/learningplanner/internal/repository"
)

const progressWeekWindow = 7 * 24 * time.Hour

// ProgressInvalidator drops cached projections for a child. Writers call it
// before their request completes so no reader observes pre-write data after a
// write acknowledges.
type ProgressInvalidator interface {
	Invalidate(ctx context.Context, childID string) error
}

// ProgressService serves progress summaries through a cache-aside projection.
// The cache only ever holds re-derivable data: losing it costs latency, never
// information.
type ProgressService struct {
	cfg        config.CacheSettings
	cache      port.Cache
	activities port.ActivityRepository
	requests   port.HelpRequestRepository
	streaks    port.StreakRepository
	group      singleflight.Group
	logger     *zap.Logger
	now        func() time.Time
}

// NewProgressService constructs a ProgressService.
func NewProgressService(
	cfg config.CacheSettings,
	cache port.Cache,
	activities port.ActivityRepository,
	requests port.HelpRequestRepository,
	streaks port.StreakRepository,
	logger *zap.Logger,
) *ProgressService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ProgressService{
		cfg:        cfg,
		cache:      cache,
		activities: activities,
		requests:   requests,
		streaks:    streaks,
		logger:     logger,
		now:        time.Now,
	}
}

// WithClock overrides the time source. Intended for tests.
func (s *ProgressService) WithClock(now func() time.Time) *ProgressService {
	if now != nil {
		s.now = now
	}
	return s
}

func progressKey(childID string) string {
	return fmt.Sprintf("progress:%s:summary", childID)
}

func progressPattern(childID string) string {
	return fmt.Sprintf("progress:%s:*", childID)
}

// Summary returns the child's progress summary, from cache when possible.
// Concurrent misses for the same child collapse into a single computation.
// A down cache degrades to direct computation instead of failing the read.
func (s *ProgressService) Summary(ctx context.Context, childID string) (*domain.ProgressSummary, error) {
	key := progressKey(childID)

	cached, err := s.cache.Get(ctx, key)
	switch {
	case err == nil:
		var summary domain.ProgressSummary
		if unmarshalErr := json.Unmarshal(cached, &summary); unmarshalErr == nil {
			return &summary, nil
		}
		// Corrupt entry: drop it and fall through to recompute.
		if delErr := s.cache.Delete(ctx, key); delErr != nil {
			s.logger.Warn("drop corrupt progress entry", zap.Error(delErr))
		}
	case errors.Is(err, repository.ErrNotFound):
	case errors.Is(err, repository.ErrCacheUnavailable):
		s.logger.Warn("progress cache unavailable, serving direct",
			zap.String("child_id", childID),
		)
		return s.computeCollapsed(ctx, childID, false)
	default:
		return nil, fmt.Errorf("read progress cache: %w", err)
	}

	return s.computeCollapsed(ctx, childID, true)
}

// computeCollapsed funnels concurrent computations for one child through a
// single flight; every waiter receives the same result.
func (s *ProgressService) computeCollapsed(ctx context.Context, childID string, store bool) (*domain.ProgressSummary, error) {
	value, err, _ := s.group.Do(progressKey(childID), func() (any, error) {
		summary, err := s.compute(ctx, childID)
		if err != nil {
			return nil, err
		}
		if store {
			s.store(ctx, childID, summary)
		}
		return summary, nil
	})
	if err != nil {
		return nil, err
	}

	return value.(*domain.ProgressSummary), nil
}

func (s *ProgressService) compute(ctx context.Context, childID string) (*domain.ProgressSummary, error) {
	at := s.now().UTC()
	weekStart := at.Add(-progressWeekWindow)

	total, err := s.activities.CountByChild(ctx, childID)
	if err != nil {
		return nil, fmt.Errorf("%w: count activities: %v", ErrAnalyticsUnavailable, err)
	}

	events, err := s.activities.ListByChildSince(ctx, childID, time.Time{})
	if err != nil {
		return nil, fmt.Errorf("%w: list activities: %v", ErrAnalyticsUnavailable, err)
	}

	summary := domain.ProgressSummary{
		ChildID:         childID,
		TotalActivities: total,
		ComputedAt:      at,
	}

	var scoreSum, scoreCount float64
	for _, event := range events {
		if !event.OccurredAt.UTC().Before(weekStart) {
			summary.ActivitiesThisWeek++
		}
		if event.Content.Kind != domain.ContentQuiz || event.Content.Quiz == nil {
			continue
		}
		quiz := event.Content.Quiz
		summary.QuizzesCompleted++
		if quiz.PerfectScore {
			summary.PerfectScores++
		}
		if quiz.MaxScore > 0 {
			scoreSum += float64(quiz.Score) / float64(quiz.MaxScore) * 100
			scoreCount++
		}
	}
	if scoreCount > 0 {
		summary.AvgQuizScorePercent = scoreSum / scoreCount
	}

	streaks, err := s.streaks.ListByChild(ctx, childID)
	if err != nil {
		return nil, fmt.Errorf("%w: list streaks: %v", ErrAnalyticsUnavailable, err)
	}
	for _, streak := range streaks {
		summary.Streaks = append(summary.Streaks, domain.StreakSnapshot{
			Kind:    streak.Kind,
			Current: streak.Current,
			Longest: streak.Longest,
			Active:  streak.Active,
		})
	}

	helpRequests, err := s.requests.ListByChildSince(ctx, childID, weekStart)
	if err != nil {
		return nil, fmt.Errorf("%w: list help requests: %v", ErrAnalyticsUnavailable, err)
	}
	summary.HelpRequestsThisWeek = len(helpRequests)

	return &summary, nil
}

// store writes the computed summary back. Write failures degrade silently; the
// next read simply recomputes.
func (s *ProgressService) store(ctx context.Context, childID string, summary *domain.ProgressSummary) {
	payload, err := json.Marshal(summary)
	if err != nil {
		s.logger.Error("marshal progress summary", zap.Error(err))
		return
	}
	if err := s.cache.Set(ctx, progressKey(childID), payload, s.ttl()); err != nil {
		s.logger.Warn("store progress summary",
			zap.String("child_id", childID),
			zap.Error(err),
		)
	}
}

// Invalidate drops every cached projection for the child. Callers run this
// before acknowledging the write that made the cache stale.
func (s *ProgressService) Invalidate(ctx context.Context, childID string) error {
	if err := s.cache.DeleteByPattern(ctx, progressPattern(childID)); err != nil {
		return fmt.Errorf("invalidate progress cache: %w", err)
	}
	return nil
}

// WarmUp precomputes and caches summaries for the given children in one batch
// write.
func (s *ProgressService) WarmUp(ctx context.Context, childIDs []string) error {
	if len(childIDs) == 0 {
		return nil
	}

	pairs := make(map[string][]byte, len(childIDs))
	for _, childID := range childIDs {
		summary, err := s.compute(ctx, childID)
		if err != nil {
			return err
		}
		payload, err := json.Marshal(summary)
		if err != nil {
			return fmt.Errorf("marshal progress summary: %w", err)
		}
		pairs[progressKey(childID)] = payload
	}

	if err := s.cache.MSet(ctx, pairs, s.ttl()); err != nil {
		return fmt.Errorf("warm progress cache: %w", err)
	}

	return nil
}

// CacheStats reports operational cache metrics.
func (s *ProgressService) CacheStats(ctx context.Context) (port.CacheStats, error) {
	return s.cache.Stats(ctx)
}

func (s *ProgressService) ttl() time.Duration {
	if s.cfg.ProgressTTL <= 0 {
		return 5 * time.Minute
	}
	return s.cfg.ProgressTTL
}

var _ ProgressInvalidator = (*ProgressService)(nil)
