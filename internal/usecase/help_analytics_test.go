package usecase

import (
	"context"
	"math"
	"strings"
	"testing"
	"time"

	"go.uber.org/zap"

	"github.com/santhoshmp/learningplanner/internal/core/domain"
	"github.com/santhoshmp/learningplanner/internal/infra/config"
)

func testAnalyticsSettings() config.AnalyticsSettings {
	return config.AnalyticsSettings{
		IndependentWeeklyLimit: 3,
		FrequentWeeklyLimit:    10,
		NotificationDailyLimit: 5,
	}
}

func newAnalyticsFixture(t *testing.T) (*HelpAnalyticsService, *fakeHelpRequestRepository, *fakePublisher) {
	t.Helper()

	guardian := "guardian-1"
	principals := newFakePrincipalRepository(domain.Principal{
		ID:         "child-1",
		Role:       domain.RoleChild,
		Username:   "tim",
		GuardianID: &guardian,
		IsActive:   true,
	})

	requests := newFakeHelpRequestRepository()
	publisher := &fakePublisher{}
	svc := NewHelpAnalyticsService(testAnalyticsSettings(), requests, principals, publisher, nil, zap.NewNop())

	return svc, requests, publisher
}

func TestHelpAnalytics_TwoRequestSummary(t *testing.T) {
	svc, _, _ := newAnalyticsFixture(t)

	at := time.Date(2026, 3, 10, 15, 0, 0, 0, time.UTC)
	svc.WithClock(func() time.Time { return at })

	if _, err := svc.CreateHelpRequest(context.Background(), HelpRequestInput{
		ChildID: "child-1", Question: "Why do fractions need a common denominator?", Subject: "math", Difficulty: "medium",
	}); err != nil {
		t.Fatalf("CreateHelpRequest returned error: %v", err)
	}
	if _, err := svc.CreateHelpRequest(context.Background(), HelpRequestInput{
		ChildID: "child-1", Question: "What is a noun?", Subject: "english", Difficulty: "easy",
	}); err != nil {
		t.Fatalf("CreateHelpRequest returned error: %v", err)
	}

	summary, err := svc.Summary(context.Background(), "child-1")
	if err != nil {
		t.Fatalf("Summary returned error: %v", err)
	}

	if summary.TotalHelpRequests != 2 {
		t.Fatalf("expected 2 total requests, got %d", summary.TotalHelpRequests)
	}
	if summary.HelpRequestsToday != 2 {
		t.Fatalf("expected 2 requests today, got %d", summary.HelpRequestsToday)
	}
	if summary.HelpRequestsThisWeek != 2 {
		t.Fatalf("expected 2 requests this week, got %d", summary.HelpRequestsThisWeek)
	}
	if len(summary.TopSubjects) != 2 {
		t.Fatalf("expected 2 ranked subjects, got %d", len(summary.TopSubjects))
	}
	// Equal counts break ties alphabetically, so english sorts first.
	if summary.TopSubjects[0].Subject != "english" || summary.TopSubjects[1].Subject != "math" {
		t.Fatalf("unexpected subject ranking: %v", summary.TopSubjects)
	}
	if summary.SeekingPattern != domain.SeekingIndependent {
		t.Fatalf("expected independent pattern for 2 weekly requests, got %s", summary.SeekingPattern)
	}
	if summary.NotificationThreshold {
		t.Fatal("two requests must not cross the daily notification threshold")
	}
	if summary.AvgResolutionHours != 0 {
		t.Fatalf("no resolved requests yet, expected 0 average, got %f", summary.AvgResolutionHours)
	}
}

func TestHelpAnalytics_AverageUsesOnlyGenuineResolutions(t *testing.T) {
	svc, requests, _ := newAnalyticsFixture(t)

	at := time.Date(2026, 3, 10, 9, 0, 0, 0, time.UTC)
	svc.WithClock(func() time.Time { return at })

	answered, err := svc.CreateHelpRequest(context.Background(), HelpRequestInput{
		ChildID: "child-1", Question: "How do I divide fractions?", Subject: "math",
	})
	if err != nil {
		t.Fatalf("CreateHelpRequest returned error: %v", err)
	}
	unanswered, err := svc.CreateHelpRequest(context.Background(), HelpRequestInput{
		ChildID: "child-1", Question: "What is photosynthesis?", Subject: "science",
	})
	if err != nil {
		t.Fatalf("CreateHelpRequest returned error: %v", err)
	}

	// The first request gets a real response three hours later, then resolves.
	at = at.Add(3 * time.Hour)
	if _, err := svc.Respond(context.Background(), answered.ID, "Flip the second fraction and multiply."); err != nil {
		t.Fatalf("Respond returned error: %v", err)
	}
	if _, err := svc.Resolve(context.Background(), answered.ID, true); err != nil {
		t.Fatalf("Resolve returned error: %v", err)
	}

	// The second is auto-resolved with no response; it must not drag the
	// average down.
	if _, err := svc.Resolve(context.Background(), unanswered.ID, false); err != nil {
		t.Fatalf("Resolve returned error: %v", err)
	}

	summary, err := svc.Summary(context.Background(), "child-1")
	if err != nil {
		t.Fatalf("Summary returned error: %v", err)
	}
	if math.Abs(summary.AvgResolutionHours-3) > 0.001 {
		t.Fatalf("expected 3h average from the one genuine resolution, got %f", summary.AvgResolutionHours)
	}

	stored, err := requests.GetByID(context.Background(), answered.ID)
	if err != nil {
		t.Fatalf("GetByID returned error: %v", err)
	}
	if stored.WasHelpful == nil || !*stored.WasHelpful {
		t.Fatal("expected helpfulness recorded")
	}
}

func TestHelpAnalytics_ResolveMergesContext(t *testing.T) {
	svc, requests, _ := newAnalyticsFixture(t)

	at := time.Date(2026, 3, 10, 9, 0, 0, 0, time.UTC)
	svc.WithClock(func() time.Time { return at })

	created, err := svc.CreateHelpRequest(context.Background(), HelpRequestInput{
		ChildID:  "child-1",
		Question: "How do I divide fractions?",
		Subject:  "math",
		Context:  map[string]any{"activity_id": "quiz-7"},
	})
	if err != nil {
		t.Fatalf("CreateHelpRequest returned error: %v", err)
	}

	if _, err := svc.Resolve(context.Background(), created.ID, true); err != nil {
		t.Fatalf("Resolve returned error: %v", err)
	}

	stored, err := requests.GetByID(context.Background(), created.ID)
	if err != nil {
		t.Fatalf("GetByID returned error: %v", err)
	}
	if stored.Context["activity_id"] != "quiz-7" {
		t.Fatal("resolution must preserve prior context entries")
	}
	if _, ok := stored.Context["resolved_at"]; !ok {
		t.Fatal("resolution metadata missing from context")
	}
	firstResolvedAt := stored.ResolvedAt

	// Re-resolving flips only the helpfulness flag.
	if _, err := svc.Resolve(context.Background(), created.ID, false); err != nil {
		t.Fatalf("second Resolve returned error: %v", err)
	}
	stored, _ = requests.GetByID(context.Background(), created.ID)
	if stored.WasHelpful == nil || *stored.WasHelpful {
		t.Fatal("expected helpfulness flag updated")
	}
	if !stored.ResolvedAt.Equal(*firstResolvedAt) {
		t.Fatal("re-resolve must not move the resolution timestamp")
	}
}

func TestHelpAnalytics_DailyLimitNotifiesGuardian(t *testing.T) {
	svc, _, publisher := newAnalyticsFixture(t)

	at := time.Date(2026, 3, 10, 9, 0, 0, 0, time.UTC)
	svc.WithClock(func() time.Time { return at })

	for i := 0; i < 5; i++ {
		if _, err := svc.CreateHelpRequest(context.Background(), HelpRequestInput{
			ChildID: "child-1", Question: "What is this?", Subject: "math",
		}); err != nil {
			t.Fatalf("CreateHelpRequest returned error: %v", err)
		}
		at = at.Add(time.Minute)
	}

	if len(publisher.notifications) != 1 {
		t.Fatalf("expected exactly one volume notification, got %d", len(publisher.notifications))
	}
	if publisher.notifications[0].Kind != "help_request_volume" {
		t.Fatalf("unexpected notification kind %s", publisher.notifications[0].Kind)
	}
}

func TestHelpAnalytics_PatternsProjection(t *testing.T) {
	svc, _, _ := newAnalyticsFixture(t)

	morning := time.Date(2026, 3, 10, 8, 0, 0, 0, time.UTC)
	svc.WithClock(func() time.Time { return morning })
	if _, err := svc.CreateHelpRequest(context.Background(), HelpRequestInput{
		ChildID: "child-1", Question: "Why is the sky blue?", Subject: "science", Difficulty: "easy",
	}); err != nil {
		t.Fatalf("CreateHelpRequest returned error: %v", err)
	}

	evening := time.Date(2026, 3, 10, 19, 0, 0, 0, time.UTC)
	svc.WithClock(func() time.Time { return evening })
	if _, err := svc.CreateHelpRequest(context.Background(), HelpRequestInput{
		ChildID: "child-1", Question: "How do I solve for x?", Subject: "math", Difficulty: "hard",
	}); err != nil {
		t.Fatalf("CreateHelpRequest returned error: %v", err)
	}

	records, err := svc.Patterns(context.Background(), "child-1", domain.PatternWindowWeek)
	if err != nil {
		t.Fatalf("Patterns returned error: %v", err)
	}
	if len(records) != 2 {
		t.Fatalf("expected one record per request, got %d", len(records))
	}

	byBucket := map[domain.TimeOfDayBucket]domain.PatternRecord{}
	for _, record := range records {
		byBucket[record.TimeOfDay] = record
	}
	if record, ok := byBucket[domain.BucketMorning]; !ok || record.QuestionType != domain.QuestionConceptual {
		t.Fatalf("expected conceptual morning record, got %+v", byBucket)
	}
	if record, ok := byBucket[domain.BucketEvening]; !ok || record.QuestionType != domain.QuestionProcedural {
		t.Fatalf("expected procedural evening record, got %+v", byBucket)
	}
}

func TestHelpAnalytics_SummaryCountsAcrossDayBoundary(t *testing.T) {
	svc, _, _ := newAnalyticsFixture(t)

	yesterday := time.Date(2026, 3, 9, 15, 0, 0, 0, time.UTC)
	svc.WithClock(func() time.Time { return yesterday })
	if _, err := svc.CreateHelpRequest(context.Background(), HelpRequestInput{
		ChildID: "child-1", Question: "What is a verb?", Subject: "english",
	}); err != nil {
		t.Fatalf("CreateHelpRequest returned error: %v", err)
	}

	today := yesterday.Add(24 * time.Hour)
	svc.WithClock(func() time.Time { return today })
	if _, err := svc.CreateHelpRequest(context.Background(), HelpRequestInput{
		ChildID: "child-1", Question: "What is a noun?", Subject: "english",
	}); err != nil {
		t.Fatalf("CreateHelpRequest returned error: %v", err)
	}

	summary, err := svc.Summary(context.Background(), "child-1")
	if err != nil {
		t.Fatalf("Summary returned error: %v", err)
	}
	if summary.HelpRequestsToday != 1 {
		t.Fatalf("yesterday's request must not count as today, got %d", summary.HelpRequestsToday)
	}
	if summary.HelpRequestsThisWeek != 2 {
		t.Fatalf("both requests fall inside the week, got %d", summary.HelpRequestsThisWeek)
	}
}

func TestHelpAnalytics_PatternsWindowBoundsHistory(t *testing.T) {
	svc, _, _ := newAnalyticsFixture(t)

	old := time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)
	svc.WithClock(func() time.Time { return old })
	if _, err := svc.CreateHelpRequest(context.Background(), HelpRequestInput{
		ChildID: "child-1", Question: "What is an atom?", Subject: "science",
	}); err != nil {
		t.Fatalf("CreateHelpRequest returned error: %v", err)
	}

	recent := old.AddDate(0, 0, 10)
	svc.WithClock(func() time.Time { return recent })
	if _, err := svc.CreateHelpRequest(context.Background(), HelpRequestInput{
		ChildID: "child-1", Question: "What is a molecule?", Subject: "science",
	}); err != nil {
		t.Fatalf("CreateHelpRequest returned error: %v", err)
	}

	weekly, err := svc.Patterns(context.Background(), "child-1", domain.PatternWindowWeek)
	if err != nil {
		t.Fatalf("Patterns returned error: %v", err)
	}
	if len(weekly) != 1 {
		t.Fatalf("week window must drop the ten day old request, got %d records", len(weekly))
	}

	monthly, err := svc.Patterns(context.Background(), "child-1", domain.PatternWindowMonth)
	if err != nil {
		t.Fatalf("Patterns returned error: %v", err)
	}
	if len(monthly) != 2 {
		t.Fatalf("month window must keep both requests, got %d records", len(monthly))
	}
}

func TestHelpAnalytics_SuggestionsDeterministic(t *testing.T) {
	svc, _, _ := newAnalyticsFixture(t)

	at := time.Date(2026, 3, 10, 9, 0, 0, 0, time.UTC)
	svc.WithClock(func() time.Time { return at })

	for i := 0; i < 12; i++ {
		if _, err := svc.CreateHelpRequest(context.Background(), HelpRequestInput{
			ChildID: "child-1", Question: "What is this?", Subject: "math",
		}); err != nil {
			t.Fatalf("CreateHelpRequest returned error: %v", err)
		}
	}

	first, err := svc.Suggestions(context.Background(), "child-1", "math")
	if err != nil {
		t.Fatalf("Suggestions returned error: %v", err)
	}
	second, err := svc.Suggestions(context.Background(), "child-1", "math")
	if err != nil {
		t.Fatalf("Suggestions returned error: %v", err)
	}

	if len(first) == 0 || len(first) > 3 {
		t.Fatalf("expected between 1 and 3 suggestions, got %d", len(first))
	}
	if len(first) != len(second) {
		t.Fatalf("suggestions must be stable, got %v then %v", first, second)
	}
	for i := range first {
		if first[i] != second[i] {
			t.Fatalf("suggestion order must be stable: %v vs %v", first, second)
		}
	}
}

func TestHelpAnalytics_SuggestionsFollowResolutionState(t *testing.T) {
	svc, _, _ := newAnalyticsFixture(t)

	at := time.Date(2026, 3, 10, 9, 0, 0, 0, time.UTC)
	svc.WithClock(func() time.Time { return at })

	var created []string
	for i := 0; i < 3; i++ {
		request, err := svc.CreateHelpRequest(context.Background(), HelpRequestInput{
			ChildID: "child-1", Question: "Why do fractions need a common denominator?", Subject: "math",
		})
		if err != nil {
			t.Fatalf("CreateHelpRequest returned error: %v", err)
		}
		created = append(created, request.ID)
	}

	open, err := svc.Suggestions(context.Background(), "child-1", "math")
	if err != nil {
		t.Fatalf("Suggestions returned error: %v", err)
	}
	if len(open) == 0 {
		t.Fatal("expected suggestions while questions are unresolved")
	}
	if !strings.Contains(open[0], "math") || !strings.Contains(open[0], "concept") {
		t.Fatalf("unresolved why-questions must surface a subject-specific concept hint, got %q", open[0])
	}

	for _, id := range created {
		if _, err := svc.Resolve(context.Background(), id, true); err != nil {
			t.Fatalf("Resolve returned error: %v", err)
		}
	}

	resolved, err := svc.Suggestions(context.Background(), "child-1", "math")
	if err != nil {
		t.Fatalf("Suggestions returned error: %v", err)
	}
	if len(resolved) == 0 {
		t.Fatal("expected suggestions after resolution")
	}
	if resolved[0] == open[0] {
		t.Fatalf("identical history with every question resolved must change the suggestions, still got %q", resolved[0])
	}
	if !strings.Contains(resolved[0], "resolved") {
		t.Fatalf("fully resolved history should be acknowledged, got %q", resolved[0])
	}
}

func TestHelpAnalytics_SuggestionsScopedToSubject(t *testing.T) {
	svc, _, _ := newAnalyticsFixture(t)

	at := time.Date(2026, 3, 10, 9, 0, 0, 0, time.UTC)
	svc.WithClock(func() time.Time { return at })

	mathRequest, err := svc.CreateHelpRequest(context.Background(), HelpRequestInput{
		ChildID: "child-1", Question: "What is a prime number?", Subject: "math",
	})
	if err != nil {
		t.Fatalf("CreateHelpRequest returned error: %v", err)
	}
	if _, err := svc.Resolve(context.Background(), mathRequest.ID, true); err != nil {
		t.Fatalf("Resolve returned error: %v", err)
	}

	if _, err := svc.CreateHelpRequest(context.Background(), HelpRequestInput{
		ChildID: "child-1", Question: "Why do magnets attract iron?", Subject: "science",
	}); err != nil {
		t.Fatalf("CreateHelpRequest returned error: %v", err)
	}

	science, err := svc.Suggestions(context.Background(), "child-1", "science")
	if err != nil {
		t.Fatalf("Suggestions returned error: %v", err)
	}
	if len(science) == 0 || !strings.Contains(science[0], "science") {
		t.Fatalf("expected a science hint from the unresolved science question, got %v", science)
	}

	mathScoped, err := svc.Suggestions(context.Background(), "child-1", "math")
	if err != nil {
		t.Fatalf("Suggestions returned error: %v", err)
	}
	if len(mathScoped) == 0 || !strings.Contains(mathScoped[0], "resolved") {
		t.Fatalf("the unresolved science question must not leak into the math scope, got %v", mathScoped)
	}

	none, err := svc.Suggestions(context.Background(), "child-1", "history")
	if err != nil {
		t.Fatalf("Suggestions returned error: %v", err)
	}
	if len(none) != 0 {
		t.Fatalf("a subject with no history yields no suggestions, got %v", none)
	}
}
