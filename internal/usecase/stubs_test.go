package usecase

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/santhoshmp/learningplanner/internal/core/domain"
	"github.com/santhoshmp/learningplanner/internal/core/port"
	"github.com/santhoshmp/learningplanner/internal/repository"
)

type fakePrincipalRepository struct {
	principals map[string]*domain.Principal
}

func newFakePrincipalRepository(principals ...domain.Principal) *fakePrincipalRepository {
	repo := &fakePrincipalRepository{principals: make(map[string]*domain.Principal)}
	for i := range principals {
		p := principals[i]
		repo.principals[p.ID] = &p
	}
	return repo
}

func (f *fakePrincipalRepository) GetByID(_ context.Context, id string) (*domain.Principal, error) {
	p, ok := f.principals[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	c := *p
	return &c, nil
}

func (f *fakePrincipalRepository) GetByIdentifier(_ context.Context, identifier string) (*domain.Principal, error) {
	identifier = strings.ToLower(identifier)
	for _, p := range f.principals {
		if strings.ToLower(p.Username) == identifier {
			c := *p
			return &c, nil
		}
		if p.Email != nil && strings.ToLower(*p.Email) == identifier {
			c := *p
			return &c, nil
		}
	}
	return nil, repository.ErrNotFound
}

func (f *fakePrincipalRepository) ListByGuardian(_ context.Context, guardianID string) ([]domain.Principal, error) {
	var result []domain.Principal
	for _, p := range f.principals {
		if p.GuardianID != nil && *p.GuardianID == guardianID {
			result = append(result, *p)
		}
	}
	return result, nil
}

type fakeSessionRepository struct {
	mu       sync.Mutex
	sessions map[string]*domain.Session
	events   []domain.SessionEvent
}

func newFakeSessionRepository(sessions ...domain.Session) *fakeSessionRepository {
	repo := &fakeSessionRepository{sessions: make(map[string]*domain.Session)}
	for i := range sessions {
		s := sessions[i]
		repo.sessions[s.ID] = &s
	}
	return repo
}

func (f *fakeSessionRepository) Create(_ context.Context, session domain.Session) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.sessions[session.ID] = &session
	return nil
}

func (f *fakeSessionRepository) GetByID(_ context.Context, sessionID string) (*domain.Session, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	session, ok := f.sessions[sessionID]
	if !ok {
		return nil, repository.ErrNotFound
	}
	c := *session
	return &c, nil
}

func (f *fakeSessionRepository) Touch(_ context.Context, sessionID string, at time.Time, ip *string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	session, ok := f.sessions[sessionID]
	if !ok || session.RevokedAt != nil {
		return repository.ErrNotFound
	}
	session.Touch(at, ip)
	return nil
}

func (f *fakeSessionRepository) Revoke(_ context.Context, sessionID string, at time.Time, reason string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	session, ok := f.sessions[sessionID]
	if !ok {
		return repository.ErrNotFound
	}
	session.Revoke(at, reason)
	return nil
}

func (f *fakeSessionRepository) RevokeAllForPrincipal(_ context.Context, principalID string, at time.Time, reason string) (int, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	count := 0
	for _, session := range f.sessions {
		if session.PrincipalID == principalID && session.Revoke(at, reason) {
			count++
		}
	}
	return count, nil
}

func (f *fakeSessionRepository) ListActiveByPrincipal(_ context.Context, principalID string) ([]domain.Session, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var result []domain.Session
	for _, session := range f.sessions {
		if session.PrincipalID == principalID && session.RevokedAt == nil {
			result = append(result, *session)
		}
	}
	sort.Slice(result, func(i, j int) bool {
		return result[i].LastActivityAt.After(result[j].LastActivityAt)
	})
	return result, nil
}

func (f *fakeSessionRepository) ListByPrincipalSince(_ context.Context, principalID string, since time.Time) ([]domain.Session, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var result []domain.Session
	for _, session := range f.sessions {
		if session.PrincipalID == principalID && !session.CreatedAt.Before(since) {
			result = append(result, *session)
		}
	}
	sort.Slice(result, func(i, j int) bool {
		return result[i].CreatedAt.After(result[j].CreatedAt)
	})
	return result, nil
}

func (f *fakeSessionRepository) StoreEvent(_ context.Context, event domain.SessionEvent) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.events = append(f.events, event)
	return nil
}

func (f *fakeSessionRepository) LatestFingerprint(_ context.Context, principalID string) (*domain.Fingerprint, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var latest *domain.Session
	for _, session := range f.sessions {
		if session.PrincipalID != principalID {
			continue
		}
		if latest == nil || session.CreatedAt.After(latest.CreatedAt) {
			latest = session
		}
	}
	if latest == nil {
		return nil, repository.ErrNotFound
	}
	fp := latest.Fingerprint
	return &fp, nil
}

type fakeTokenRepository struct {
	mu     sync.Mutex
	tokens map[string]*domain.RefreshToken
}

func newFakeTokenRepository() *fakeTokenRepository {
	return &fakeTokenRepository{tokens: make(map[string]*domain.RefreshToken)}
}

func (f *fakeTokenRepository) Create(_ context.Context, token domain.RefreshToken) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.tokens[token.ID] = &token
	return nil
}

func (f *fakeTokenRepository) GetByHash(_ context.Context, tokenHash string) (*domain.RefreshToken, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, token := range f.tokens {
		if token.TokenHash == tokenHash {
			c := *token
			return &c, nil
		}
	}
	return nil, repository.ErrNotFound
}

func (f *fakeTokenRepository) Consume(_ context.Context, tokenID string, at time.Time) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	token, ok := f.tokens[tokenID]
	if !ok || token.UsedAt != nil || token.RevokedAt != nil {
		return repository.ErrNotFound
	}
	token.MarkUsed(at)
	return nil
}

func (f *fakeTokenRepository) RevokeBySession(_ context.Context, sessionID string, at time.Time) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, token := range f.tokens {
		if token.SessionID == sessionID {
			token.Revoke(at)
		}
	}
	return nil
}

func (f *fakeTokenRepository) RevokeAllForPrincipal(_ context.Context, principalID string, at time.Time) (int, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	count := 0
	for _, token := range f.tokens {
		if token.PrincipalID == principalID && token.Revoke(at) {
			count++
		}
	}
	return count, nil
}

type recordedSignal struct {
	kind domain.AnomalySignalKind
	at   time.Time
}

type fakeSignalStore struct {
	mu      sync.Mutex
	signals map[string][]recordedSignal
}

func newFakeSignalStore() *fakeSignalStore {
	return &fakeSignalStore{signals: make(map[string][]recordedSignal)}
}

func (f *fakeSignalStore) RecordSignal(_ context.Context, principalID string, kind domain.AnomalySignalKind, at time.Time) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.signals[principalID] = append(f.signals[principalID], recordedSignal{kind: kind, at: at})
	return nil
}

func (f *fakeSignalStore) CountSignals(_ context.Context, principalID string, window time.Duration, reference time.Time) (int, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	cutoff := reference.Add(-window)
	count := 0
	for _, signal := range f.signals[principalID] {
		if !signal.at.Before(cutoff) && !signal.at.After(reference) {
			count++
		}
	}
	return count, nil
}

func (f *fakeSignalStore) TrimWindow(_ context.Context, principalID string, window time.Duration, reference time.Time) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	cutoff := reference.Add(-window)
	kept := f.signals[principalID][:0]
	for _, signal := range f.signals[principalID] {
		if !signal.at.Before(cutoff) {
			kept = append(kept, signal)
		}
	}
	f.signals[principalID] = kept
	return nil
}

type fakePublisher struct {
	mu            sync.Mutex
	notifications []domain.GuardianNotificationEvent
	revocations   []domain.SessionRevokedEvent
}

func (f *fakePublisher) PublishGuardianNotification(_ context.Context, event domain.GuardianNotificationEvent) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.notifications = append(f.notifications, event)
	return nil
}

func (f *fakePublisher) PublishSessionRevoked(_ context.Context, event domain.SessionRevokedEvent) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.revocations = append(f.revocations, event)
	return nil
}

type fakeActivityRepository struct {
	mu        sync.Mutex
	events    []domain.ActivityEvent
	listCalls int
}

func (f *fakeActivityRepository) Append(_ context.Context, event domain.ActivityEvent) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.events = append(f.events, event)
	return nil
}

func (f *fakeActivityRepository) ListByChildSince(_ context.Context, childID string, since time.Time) ([]domain.ActivityEvent, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.listCalls++
	var result []domain.ActivityEvent
	for _, event := range f.events {
		if event.PrincipalID == childID && !event.OccurredAt.Before(since) {
			result = append(result, event)
		}
	}
	return result, nil
}

func (f *fakeActivityRepository) CountByChild(_ context.Context, childID string) (int, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	count := 0
	for _, event := range f.events {
		if event.PrincipalID == childID {
			count++
		}
	}
	return count, nil
}

type fakeHelpRequestRepository struct {
	mu       sync.Mutex
	requests map[string]*domain.HelpRequest
}

func newFakeHelpRequestRepository() *fakeHelpRequestRepository {
	return &fakeHelpRequestRepository{requests: make(map[string]*domain.HelpRequest)}
}

func (f *fakeHelpRequestRepository) Create(_ context.Context, request domain.HelpRequest) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.requests[request.ID] = &request
	return nil
}

func (f *fakeHelpRequestRepository) GetByID(_ context.Context, id string) (*domain.HelpRequest, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	request, ok := f.requests[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	c := *request
	return &c, nil
}

func (f *fakeHelpRequestRepository) ListByChild(_ context.Context, childID string) ([]domain.HelpRequest, error) {
	return f.listSince(childID, time.Time{})
}

func (f *fakeHelpRequestRepository) ListByChildSince(_ context.Context, childID string, since time.Time) ([]domain.HelpRequest, error) {
	return f.listSince(childID, since)
}

func (f *fakeHelpRequestRepository) listSince(childID string, since time.Time) ([]domain.HelpRequest, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var result []domain.HelpRequest
	for _, request := range f.requests {
		if request.ChildID == childID && !request.CreatedAt.Before(since) {
			result = append(result, *request)
		}
	}
	sort.Slice(result, func(i, j int) bool {
		return result[i].CreatedAt.After(result[j].CreatedAt)
	})
	return result, nil
}

func (f *fakeHelpRequestRepository) Update(_ context.Context, request domain.HelpRequest) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, ok := f.requests[request.ID]; !ok {
		return repository.ErrNotFound
	}
	f.requests[request.ID] = &request
	return nil
}

type streakKey struct {
	childID string
	kind    domain.StreakKind
}

type fakeStreakRepository struct {
	mu      sync.Mutex
	streaks map[streakKey]*domain.StreakCounter
}

func newFakeStreakRepository() *fakeStreakRepository {
	return &fakeStreakRepository{streaks: make(map[streakKey]*domain.StreakCounter)}
}

func (f *fakeStreakRepository) ListByChild(_ context.Context, childID string) ([]domain.StreakCounter, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var result []domain.StreakCounter
	for key, streak := range f.streaks {
		if key.childID == childID {
			result = append(result, *streak)
		}
	}
	sort.Slice(result, func(i, j int) bool { return result[i].Kind < result[j].Kind })
	return result, nil
}

func (f *fakeStreakRepository) UpdateInTx(_ context.Context, childID string, kind domain.StreakKind, mutate func(*domain.StreakCounter) bool) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	key := streakKey{childID: childID, kind: kind}
	streak, ok := f.streaks[key]
	if !ok {
		streak = &domain.StreakCounter{ChildID: childID, Kind: kind}
	}
	if mutate(streak) {
		f.streaks[key] = streak
	}
	return nil
}

type fakeCache struct {
	mu          sync.Mutex
	values      map[string][]byte
	unavailable bool
	setCalls    int
	deleteCalls int
}

func newFakeCache() *fakeCache {
	return &fakeCache{values: make(map[string][]byte)}
}

func (f *fakeCache) Get(_ context.Context, key string) ([]byte, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.unavailable {
		return nil, repository.ErrCacheUnavailable
	}
	value, ok := f.values[key]
	if !ok {
		return nil, repository.ErrNotFound
	}
	return value, nil
}

func (f *fakeCache) Set(_ context.Context, key string, value []byte, _ time.Duration) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.unavailable {
		return repository.ErrCacheUnavailable
	}
	f.setCalls++
	f.values[key] = value
	return nil
}

func (f *fakeCache) MSet(_ context.Context, pairs map[string][]byte, _ time.Duration) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.unavailable {
		return repository.ErrCacheUnavailable
	}
	for key, value := range pairs {
		f.values[key] = value
	}
	return nil
}

func (f *fakeCache) MGet(_ context.Context, keys ...string) (map[string][]byte, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.unavailable {
		return nil, repository.ErrCacheUnavailable
	}
	result := make(map[string][]byte)
	for _, key := range keys {
		if value, ok := f.values[key]; ok {
			result[key] = value
		}
	}
	return result, nil
}

func (f *fakeCache) Delete(_ context.Context, keys ...string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.unavailable {
		return repository.ErrCacheUnavailable
	}
	for _, key := range keys {
		delete(f.values, key)
	}
	return nil
}

func (f *fakeCache) DeleteByPattern(_ context.Context, pattern string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.unavailable {
		return repository.ErrCacheUnavailable
	}
	f.deleteCalls++
	prefix := strings.TrimSuffix(pattern, "*")
	for key := range f.values {
		if strings.HasPrefix(key, prefix) {
			delete(f.values, key)
		}
	}
	return nil
}

func (f *fakeCache) Stats(_ context.Context) (port.CacheStats, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.unavailable {
		return port.CacheStats{}, repository.ErrCacheUnavailable
	}
	return port.CacheStats{Keys: int64(len(f.values))}, nil
}
