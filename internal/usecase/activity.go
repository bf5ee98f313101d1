package usecase

import (
	"context"
	"fmt"
	"time"

	uuid "github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/santhoshmp/learningplanner/internal/core/domain"
	"github.com/santhoshmp/learningplanner/internal/core/port"
)

// ActivityService appends activity events and maintains the streak counters
// they feed.
type ActivityService struct {
	activities port.ActivityRepository
	streaks    port.StreakRepository
	progress   ProgressInvalidator
	logger     *zap.Logger
	now        func() time.Time
}

// NewActivityService constructs an ActivityService.
func NewActivityService(
	activities port.ActivityRepository,
	streaks port.StreakRepository,
	progress ProgressInvalidator,
	logger *zap.Logger,
) *ActivityService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ActivityService{
		activities: activities,
		streaks:    streaks,
		progress:   progress,
		logger:     logger,
		now:        time.Now,
	}
}

// WithClock overrides the time source. Intended for tests.
func (s *ActivityService) WithClock(now func() time.Time) *ActivityService {
	if now != nil {
		s.now = now
	}
	return s
}

// Record validates and appends one activity event, advances the streaks it
// qualifies for, and invalidates the child's cached progress before returning.
// The append is the source of truth; streak and cache failures degrade with a
// log line instead of losing the event.
func (s *ActivityService) Record(ctx context.Context, event domain.ActivityEvent) (*domain.ActivityEvent, error) {
	if event.ID == "" {
		event.ID = uuid.NewString()
	}
	if event.OccurredAt.IsZero() {
		event.OccurredAt = s.now().UTC()
	}

	if err := event.Validate(); err != nil {
		return nil, err
	}

	if err := s.activities.Append(ctx, event); err != nil {
		return nil, fmt.Errorf("append activity event: %w", err)
	}

	s.updateStreaks(ctx, event)

	if err := s.progress.Invalidate(ctx, event.PrincipalID); err != nil {
		s.logger.Warn("invalidate progress cache",
			zap.String("child_id", event.PrincipalID),
			zap.Error(err),
		)
	}

	return &event, nil
}

// updateStreaks advances every counter the event qualifies for. Each update
// runs in its own row-locked transaction.
func (s *ActivityService) updateStreaks(ctx context.Context, event domain.ActivityEvent) {
	at := event.OccurredAt

	s.advance(ctx, event.PrincipalID, domain.StreakDaily, at)
	s.advance(ctx, event.PrincipalID, domain.StreakWeekly, at)

	switch event.Content.Kind {
	case domain.ContentQuiz:
		if quiz := event.Content.Quiz; quiz != nil {
			s.advance(ctx, event.PrincipalID, domain.StreakActivityCompletion, at)
			if quiz.PerfectScore {
				s.advance(ctx, event.PrincipalID, domain.StreakPerfectScore, at)
			}
		}
	case domain.ContentInteractive:
		if interactive := event.Content.Interactive; interactive != nil && interactive.Completed {
			s.advance(ctx, event.PrincipalID, domain.StreakActivityCompletion, at)
		}
	}

	if event.Kind == domain.ActivityHelpRequest {
		s.lapse(ctx, event.PrincipalID, domain.StreakHelpFree, at)
	} else {
		s.advance(ctx, event.PrincipalID, domain.StreakHelpFree, at)
	}
}

func (s *ActivityService) advance(ctx context.Context, childID string, kind domain.StreakKind, at time.Time) {
	err := s.streaks.UpdateInTx(ctx, childID, kind, func(streak *domain.StreakCounter) bool {
		if streak.Missed(at) {
			streak.Lapse(at)
		}
		return streak.Advance(at)
	})
	if err != nil {
		s.logger.Error("advance streak",
			zap.String("child_id", childID),
			zap.String("kind", string(kind)),
			zap.Error(err),
		)
	}
}

func (s *ActivityService) lapse(ctx context.Context, childID string, kind domain.StreakKind, at time.Time) {
	err := s.streaks.UpdateInTx(ctx, childID, kind, func(streak *domain.StreakCounter) bool {
		return streak.Lapse(at)
	})
	if err != nil {
		s.logger.Error("lapse streak",
			zap.String("child_id", childID),
			zap.String("kind", string(kind)),
			zap.Error(err),
		)
	}
}
