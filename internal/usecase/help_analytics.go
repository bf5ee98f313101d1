package usecase

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"

	uuid "github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/santhoshmp/learningplanner/internal/core/domain"
	"github.com/santhoshmp/learningplanner/internal/core/port"
	"github.com/santhoshmp/learningplanner/internal/infra/config"
	"github.com/santhoshmp/learningplanner/internal/repository"
)

var (
	// ErrHelpRequestNotFound indicates the help request does not exist.
	ErrHelpRequestNotFound = errors.New("help request not found")
	// ErrAnalyticsUnavailable indicates the analytics source data could not be read.
	ErrAnalyticsUnavailable = errors.New("analytics unavailable")
)

const (
	topSubjectsLimit    = 5
	mostHelpfulLimit    = 3
	suggestionsLimit    = 3
	analyticsWeekWindow = 7 * 24 * time.Hour
)

// HelpRequestInput carries a new question from the transport layer.
type HelpRequestInput struct {
	ChildID    string
	Question   string
	Subject    string
	Difficulty string
	Context    map[string]any
}

// HelpAnalyticsService derives help-seeking behavior metrics from the
// append-only help-request log and manages the request lifecycle.
type HelpAnalyticsService struct {
	cfg        config.AnalyticsSettings
	requests   port.HelpRequestRepository
	principals port.PrincipalRepository
	publisher  port.EventPublisher
	progress   ProgressInvalidator
	logger     *zap.Logger
	now        func() time.Time
}

// NewHelpAnalyticsService constructs a HelpAnalyticsService.
func NewHelpAnalyticsService(
	cfg config.AnalyticsSettings,
	requests port.HelpRequestRepository,
	principals port.PrincipalRepository,
	publisher port.EventPublisher,
	progress ProgressInvalidator,
	logger *zap.Logger,
) *HelpAnalyticsService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &HelpAnalyticsService{
		cfg:        cfg,
		requests:   requests,
		principals: principals,
		publisher:  publisher,
		progress:   progress,
		logger:     logger,
		now:        time.Now,
	}
}

// WithClock overrides the time source. Intended for tests.
func (s *HelpAnalyticsService) WithClock(now func() time.Time) *HelpAnalyticsService {
	if now != nil {
		s.now = now
	}
	return s
}

// CreateHelpRequest records a new question. Crossing the daily limit notifies
// the guardian but never blocks the child from asking.
func (s *HelpAnalyticsService) CreateHelpRequest(ctx context.Context, input HelpRequestInput) (*domain.HelpRequest, error) {
	if strings.TrimSpace(input.ChildID) == "" || strings.TrimSpace(input.Question) == "" {
		return nil, fmt.Errorf("child id and question are required")
	}

	at := s.now().UTC()
	request := domain.HelpRequest{
		ID:         uuid.NewString(),
		ChildID:    input.ChildID,
		Question:   strings.TrimSpace(input.Question),
		Subject:    strings.ToLower(strings.TrimSpace(input.Subject)),
		Difficulty: strings.ToLower(strings.TrimSpace(input.Difficulty)),
		Context:    input.Context,
		CreatedAt:  at,
	}

	if err := s.requests.Create(ctx, request); err != nil {
		return nil, fmt.Errorf("create help request: %w", err)
	}

	s.checkDailyLimit(ctx, input.ChildID, at)
	s.invalidateProgress(ctx, input.ChildID)

	return &request, nil
}

// Respond attaches the answer to a pending request.
func (s *HelpAnalyticsService) Respond(ctx context.Context, requestID, response string) (*domain.HelpRequest, error) {
	request, err := s.getRequest(ctx, requestID)
	if err != nil {
		return nil, err
	}

	at := s.now().UTC()
	request.Response = &response
	request.RespondedAt = &at

	if err := s.requests.Update(ctx, *request); err != nil {
		return nil, fmt.Errorf("update help request: %w", err)
	}

	return request, nil
}

// Resolve marks the request resolved and records whether the answer helped.
// Resolving twice only updates the helpfulness flag; resolution context merges
// into whatever context the request already carried.
func (s *HelpAnalyticsService) Resolve(ctx context.Context, requestID string, wasHelpful bool) (*domain.HelpRequest, error) {
	request, err := s.getRequest(ctx, requestID)
	if err != nil {
		return nil, err
	}

	request.MarkResolved(s.now().UTC(), wasHelpful)

	if err := s.requests.Update(ctx, *request); err != nil {
		return nil, fmt.Errorf("update help request: %w", err)
	}

	s.invalidateProgress(ctx, request.ChildID)

	return request, nil
}

// Summary aggregates the child's entire help-request history into behavioral
// metrics.
func (s *HelpAnalyticsService) Summary(ctx context.Context, childID string) (*domain.HelpAnalyticsSummary, error) {
	at := s.now().UTC()

	requests, err := s.requests.ListByChild(ctx, childID)
	if err != nil {
		return nil, fmt.Errorf("%w: list help requests: %v", ErrAnalyticsUnavailable, err)
	}

	summary := domain.HelpAnalyticsSummary{
		ChildID:           childID,
		TotalHelpRequests: len(requests),
		GeneratedAt:       at,
	}

	dayStart := at.Truncate(24 * time.Hour)
	weekStart := at.Add(-analyticsWeekWindow)

	subjectCounts := make(map[string]int)
	var (
		latencySum   time.Duration
		latencyCount int
		helpful      []domain.HelpRequest
	)

	for _, request := range requests {
		created := request.CreatedAt.UTC()
		if !created.Before(dayStart) {
			summary.HelpRequestsToday++
		}
		if !created.Before(weekStart) {
			summary.HelpRequestsThisWeek++
		}
		if request.Subject != "" {
			subjectCounts[request.Subject]++
		}
		// Only requests with a real recorded response contribute to the
		// average; auto-resolved entries would drag it toward zero.
		if latency, ok := request.ResolutionLatency(); ok {
			latencySum += latency
			latencyCount++
		}
		if request.WasHelpful != nil && *request.WasHelpful {
			helpful = append(helpful, request)
		}
	}

	summary.TopSubjects = rankSubjects(subjectCounts, topSubjectsLimit)
	if latencyCount > 0 {
		summary.AvgResolutionHours = latencySum.Hours() / float64(latencyCount)
	}

	sort.SliceStable(helpful, func(i, j int) bool {
		return helpful[i].CreatedAt.After(helpful[j].CreatedAt)
	})
	if len(helpful) > mostHelpfulLimit {
		helpful = helpful[:mostHelpfulLimit]
	}
	summary.MostHelpfulRequests = helpful

	summary.SeekingPattern = s.categorize(summary.HelpRequestsThisWeek)
	summary.NotificationThreshold = summary.HelpRequestsToday >= s.notificationDailyLimit()

	return &summary, nil
}

// Patterns projects each help request inside the trailing window into its
// analytical dimensions. The projection is finite and restartable: one record
// per qualifying request, derived purely from stored fields.
func (s *HelpAnalyticsService) Patterns(ctx context.Context, childID string, window domain.PatternWindow) ([]domain.PatternRecord, error) {
	since := s.now().UTC().Add(-window.Duration())

	requests, err := s.requests.ListByChildSince(ctx, childID, since)
	if err != nil {
		return nil, fmt.Errorf("%w: list help requests: %v", ErrAnalyticsUnavailable, err)
	}

	records := make([]domain.PatternRecord, 0, len(requests))
	for _, request := range requests {
		records = append(records, domain.PatternRecord{
			HelpRequestID: request.ID,
			TimeOfDay:     domain.BucketForHour(request.CreatedAt.UTC().Hour()),
			Subject:       request.Subject,
			Difficulty:    request.Difficulty,
			QuestionType:  classifyQuestion(request.Question),
			Resolved:      request.Resolved,
			CreatedAt:     request.CreatedAt,
		})
	}

	return records, nil
}

// Suggestions derives up to three study hints for the subject from the pattern
// projection. Records are filtered to the subject (empty subject keeps all),
// and question types with unresolved requests rank ahead of everything else.
// The output is deterministic: the same projection always produces the same
// suggestions in the same order.
func (s *HelpAnalyticsService) Suggestions(ctx context.Context, childID, subject string) ([]string, error) {
	subject = strings.ToLower(strings.TrimSpace(subject))

	records, err := s.Patterns(ctx, childID, domain.PatternWindowMonth)
	if err != nil {
		return nil, err
	}

	scoped := records[:0]
	for _, record := range records {
		if subject == "" || record.Subject == subject {
			scoped = append(scoped, record)
		}
	}
	if len(scoped) == 0 {
		return nil, nil
	}

	unresolved := make(map[domain.QuestionType]int)
	for _, record := range scoped {
		if !record.Resolved {
			unresolved[record.QuestionType]++
		}
	}

	topic := subject
	if topic == "" {
		topic = "your recent topics"
	}

	suggestions := make([]string, 0, suggestionsLimit)
	for _, questionType := range rankQuestionTypes(unresolved) {
		suggestions = append(suggestions, suggestionForType(questionType, topic))
	}

	frequent := s.cfg.FrequentWeeklyLimit
	if frequent <= 0 {
		frequent = 10
	}
	if len(suggestions) < suggestionsLimit && len(scoped) >= frequent {
		suggestions = append(suggestions, "Try re-reading the lesson material before asking for help.")
	}

	if len(suggestions) == 0 {
		suggestions = append(suggestions,
			fmt.Sprintf("All your questions in %s are resolved. Keep asking when you get stuck.", topic))
	}

	if len(suggestions) > suggestionsLimit {
		suggestions = suggestions[:suggestionsLimit]
	}

	return suggestions, nil
}

// rankQuestionTypes orders question types by unresolved count, highest first.
// Ties keep a fixed order so the output never depends on map iteration.
func rankQuestionTypes(unresolved map[domain.QuestionType]int) []domain.QuestionType {
	ordered := []domain.QuestionType{
		domain.QuestionConceptual,
		domain.QuestionProcedural,
		domain.QuestionFactual,
	}

	ranked := make([]domain.QuestionType, 0, len(ordered))
	for _, questionType := range ordered {
		if unresolved[questionType] > 0 {
			ranked = append(ranked, questionType)
		}
	}
	sort.SliceStable(ranked, func(i, j int) bool {
		return unresolved[ranked[i]] > unresolved[ranked[j]]
	})

	return ranked
}

func suggestionForType(questionType domain.QuestionType, topic string) string {
	switch questionType {
	case domain.QuestionConceptual:
		return fmt.Sprintf("Revisit the core ideas in %s; your open why-questions point at a concept gap.", topic)
	case domain.QuestionProcedural:
		return fmt.Sprintf("Walk through worked examples in %s step by step to close your open how-to questions.", topic)
	default:
		return fmt.Sprintf("A quick fact review in %s could clear up your open questions.", topic)
	}
}

func (s *HelpAnalyticsService) getRequest(ctx context.Context, requestID string) (*domain.HelpRequest, error) {
	request, err := s.requests.GetByID(ctx, requestID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrHelpRequestNotFound
		}
		return nil, fmt.Errorf("load help request: %w", err)
	}
	return request, nil
}

func (s *HelpAnalyticsService) categorize(weeklyCount int) domain.SeekingPattern {
	independent := s.cfg.IndependentWeeklyLimit
	if independent <= 0 {
		independent = 3
	}
	frequent := s.cfg.FrequentWeeklyLimit
	if frequent <= independent {
		frequent = independent + 7
	}

	switch {
	case weeklyCount < independent:
		return domain.SeekingIndependent
	case weeklyCount < frequent:
		return domain.SeekingFrequent
	default:
		return domain.SeekingIntensive
	}
}

func (s *HelpAnalyticsService) notificationDailyLimit() int {
	if s.cfg.NotificationDailyLimit <= 0 {
		return 5
	}
	return s.cfg.NotificationDailyLimit
}

// checkDailyLimit notifies the guardian when the child's daily request count
// reaches the limit. Failures are logged; asking for help keeps working.
func (s *HelpAnalyticsService) checkDailyLimit(ctx context.Context, childID string, at time.Time) {
	todays, err := s.requests.ListByChildSince(ctx, childID, at.Truncate(24*time.Hour))
	if err != nil {
		s.logger.Error("count todays help requests", zap.Error(err))
		return
	}
	if len(todays) != s.notificationDailyLimit() {
		return
	}

	principal, err := s.principals.GetByID(ctx, childID)
	if err != nil || principal.GuardianID == nil {
		return
	}

	event := domain.GuardianNotificationEvent{
		EventID:    uuid.NewString(),
		ChildID:    childID,
		GuardianID: *principal.GuardianID,
		Kind:       "help_request_volume",
		Reason:     fmt.Sprintf("%d help requests today", len(todays)),
		OccurredAt: at,
	}
	if err := s.publisher.PublishGuardianNotification(ctx, event); err != nil {
		s.logger.Error("publish help volume notification", zap.Error(err))
	}
}

func (s *HelpAnalyticsService) invalidateProgress(ctx context.Context, childID string) {
	if s.progress == nil {
		return
	}
	if err := s.progress.Invalidate(ctx, childID); err != nil {
		s.logger.Warn("invalidate progress cache",
			zap.String("child_id", childID),
			zap.Error(err),
		)
	}
}

func rankSubjects(counts map[string]int, limit int) []domain.SubjectFrequency {
	ranked := make([]domain.SubjectFrequency, 0, len(counts))
	for subject, count := range counts {
		ranked = append(ranked, domain.SubjectFrequency{Subject: subject, Count: count})
	}

	sort.Slice(ranked, func(i, j int) bool {
		if ranked[i].Count != ranked[j].Count {
			return ranked[i].Count > ranked[j].Count
		}
		return ranked[i].Subject < ranked[j].Subject
	})

	if len(ranked) > limit {
		ranked = ranked[:limit]
	}
	return ranked
}

// classifyQuestion is a coarse lexical split of question intent.
func classifyQuestion(question string) domain.QuestionType {
	q := strings.ToLower(question)
	switch {
	case strings.Contains(q, "why") || strings.Contains(q, "explain") || strings.Contains(q, "mean"):
		return domain.QuestionConceptual
	case strings.Contains(q, "how do") || strings.Contains(q, "how to") || strings.Contains(q, "steps"):
		return domain.QuestionProcedural
	default:
		return domain.QuestionFactual
	}
}
