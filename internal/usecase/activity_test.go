package usecase

import (
	"context"
	"errors"
	"testing"
	"time"

	"go.uber.org/zap"

	"github.com/santhoshmp/learningplanner/internal/core/domain"
)

type recordingInvalidator struct {
	calls []string
	err   error
}

func (r *recordingInvalidator) Invalidate(_ context.Context, childID string) error {
	r.calls = append(r.calls, childID)
	return r.err
}

func newActivityFixture(t *testing.T) (*ActivityService, *fakeActivityRepository, *fakeStreakRepository, *recordingInvalidator) {
	t.Helper()

	activities := &fakeActivityRepository{}
	streaks := newFakeStreakRepository()
	invalidator := &recordingInvalidator{}
	svc := NewActivityService(activities, streaks, invalidator, zap.NewNop())

	return svc, activities, streaks, invalidator
}

func TestActivityService_RecordAppendsAndInvalidates(t *testing.T) {
	svc, activities, _, invalidator := newActivityFixture(t)

	at := time.Date(2026, 3, 10, 15, 0, 0, 0, time.UTC)
	svc.WithClock(func() time.Time { return at })

	event := domain.ActivityEvent{
		PrincipalID: "child-1",
		SessionID:   "session-1",
		Kind:        domain.ActivityProgress,
		Subject:     "math",
		Content: domain.ActivityContent{
			Kind: domain.ContentQuiz,
			Quiz: &domain.QuizContent{QuizID: "quiz-1", Score: 10, MaxScore: 10, PerfectScore: true},
		},
	}

	recorded, err := svc.Record(context.Background(), event)
	if err != nil {
		t.Fatalf("Record returned error: %v", err)
	}
	if recorded.ID == "" {
		t.Fatal("expected generated event id")
	}
	if !recorded.OccurredAt.Equal(at) {
		t.Fatalf("expected clock-stamped event, got %v", recorded.OccurredAt)
	}
	if len(activities.events) != 1 {
		t.Fatalf("expected one appended event, got %d", len(activities.events))
	}
	if len(invalidator.calls) != 1 || invalidator.calls[0] != "child-1" {
		t.Fatalf("expected invalidation for child-1 before return, got %v", invalidator.calls)
	}
}

func TestActivityService_RejectsMalformedContent(t *testing.T) {
	svc, activities, _, invalidator := newActivityFixture(t)

	// Quiz tag with an interactive payload violates the closed-variant contract.
	event := domain.ActivityEvent{
		PrincipalID: "child-1",
		SessionID:   "session-1",
		Kind:        domain.ActivityProgress,
		Content: domain.ActivityContent{
			Kind:        domain.ContentQuiz,
			Interactive: &domain.InteractiveContent{ExerciseID: "ex-1"},
		},
	}

	_, err := svc.Record(context.Background(), event)
	if !errors.Is(err, domain.ErrInvalidActivityContent) {
		t.Fatalf("expected ErrInvalidActivityContent, got %v", err)
	}
	if len(activities.events) != 0 {
		t.Fatal("rejected events must not be appended")
	}
	if len(invalidator.calls) != 0 {
		t.Fatal("rejected events must not invalidate the cache")
	}
}

func TestActivityService_PerfectQuizAdvancesStreaks(t *testing.T) {
	svc, _, streaks, _ := newActivityFixture(t)

	at := time.Date(2026, 3, 10, 15, 0, 0, 0, time.UTC)
	svc.WithClock(func() time.Time { return at })

	event := domain.ActivityEvent{
		PrincipalID: "child-1",
		SessionID:   "session-1",
		Kind:        domain.ActivityProgress,
		Content: domain.ActivityContent{
			Kind: domain.ContentQuiz,
			Quiz: &domain.QuizContent{QuizID: "quiz-1", Score: 10, MaxScore: 10, PerfectScore: true},
		},
	}

	if _, err := svc.Record(context.Background(), event); err != nil {
		t.Fatalf("Record returned error: %v", err)
	}

	counters, err := streaks.ListByChild(context.Background(), "child-1")
	if err != nil {
		t.Fatalf("ListByChild returned error: %v", err)
	}

	byKind := map[domain.StreakKind]domain.StreakCounter{}
	for _, counter := range counters {
		byKind[counter.Kind] = counter
	}

	for _, kind := range []domain.StreakKind{
		domain.StreakDaily,
		domain.StreakActivityCompletion,
		domain.StreakPerfectScore,
	} {
		counter, ok := byKind[kind]
		if !ok || counter.Current != 1 {
			t.Fatalf("expected %s streak at 1, got %+v", kind, counter)
		}
	}
}

func TestActivityService_ConsecutiveDaysGrowStreak(t *testing.T) {
	svc, _, streaks, _ := newActivityFixture(t)

	base := time.Date(2026, 3, 10, 15, 0, 0, 0, time.UTC)
	current := base
	svc.WithClock(func() time.Time { return current })

	event := domain.ActivityEvent{
		PrincipalID: "child-1",
		SessionID:   "session-1",
		Kind:        domain.ActivityPageAccess,
		Content: domain.ActivityContent{
			Kind: domain.ContentText,
			Text: &domain.TextContent{ResourceID: "lesson-1", ReadSeconds: 120},
		},
	}

	for day := 0; day < 3; day++ {
		current = base.AddDate(0, 0, day)
		if _, err := svc.Record(context.Background(), event); err != nil {
			t.Fatalf("Record returned error: %v", err)
		}
	}

	counters, _ := streaks.ListByChild(context.Background(), "child-1")
	for _, counter := range counters {
		if counter.Kind == domain.StreakDaily && counter.Current != 3 {
			t.Fatalf("expected 3-day streak, got %d", counter.Current)
		}
	}
}

func TestActivityService_HelpRequestLapsesHelpFreeStreak(t *testing.T) {
	svc, _, streaks, _ := newActivityFixture(t)

	base := time.Date(2026, 3, 10, 15, 0, 0, 0, time.UTC)
	current := base
	svc.WithClock(func() time.Time { return current })

	study := domain.ActivityEvent{
		PrincipalID: "child-1",
		SessionID:   "session-1",
		Kind:        domain.ActivityPageAccess,
		Content: domain.ActivityContent{
			Kind: domain.ContentText,
			Text: &domain.TextContent{ResourceID: "lesson-1", ReadSeconds: 60},
		},
	}
	if _, err := svc.Record(context.Background(), study); err != nil {
		t.Fatalf("Record returned error: %v", err)
	}

	help := domain.ActivityEvent{
		PrincipalID: "child-1",
		SessionID:   "session-1",
		Kind:        domain.ActivityHelpRequest,
		Content: domain.ActivityContent{
			Kind: domain.ContentText,
			Text: &domain.TextContent{ResourceID: "help-1", ReadSeconds: 0},
		},
	}
	current = current.Add(time.Hour)
	if _, err := svc.Record(context.Background(), help); err != nil {
		t.Fatalf("Record returned error: %v", err)
	}

	counters, _ := streaks.ListByChild(context.Background(), "child-1")
	for _, counter := range counters {
		if counter.Kind == domain.StreakHelpFree {
			if counter.Current != 0 || counter.Active {
				t.Fatalf("expected help-free streak lapsed, got %+v", counter)
			}
		}
	}
}

func TestActivityService_InvalidationFailureDoesNotLoseEvent(t *testing.T) {
	svc, activities, _, invalidator := newActivityFixture(t)
	invalidator.err = errors.New("cache down")

	event := domain.ActivityEvent{
		PrincipalID: "child-1",
		SessionID:   "session-1",
		Kind:        domain.ActivityPageAccess,
		Content: domain.ActivityContent{
			Kind: domain.ContentText,
			Text: &domain.TextContent{ResourceID: "lesson-1", ReadSeconds: 60},
		},
	}

	if _, err := svc.Record(context.Background(), event); err != nil {
		t.Fatalf("expected degraded success, got %v", err)
	}
	if len(activities.events) != 1 {
		t.Fatal("event must persist even when invalidation fails")
	}
}
