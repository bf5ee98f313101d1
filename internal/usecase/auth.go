package usecase

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	uuid "github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/santhoshmp/learningplanner/internal/core/domain"
	"github.com/santhoshmp/learningplanner/internal/core/port"
	"github.com/santhoshmp/learningplanner/internal/infra/config"
	"github.com/santhoshmp/learningplanner/internal/infra/security"
	"github.com/santhoshmp/learningplanner/internal/repository"
)

var (
	// ErrInvalidCredentials indicates the identifier or secret is incorrect.
	ErrInvalidCredentials = errors.New("invalid credentials")
	// ErrInactiveAccount indicates the account is disabled.
	ErrInactiveAccount = errors.New("account is not active")
	// ErrInvalidRefreshToken indicates the refresh token is unknown, revoked,
	// or already spent.
	ErrInvalidRefreshToken = errors.New("invalid refresh token")
	// ErrExpiredRefreshToken indicates the refresh token elapsed its lifetime.
	ErrExpiredRefreshToken = errors.New("refresh token expired")
)

const refreshTokenBytes = 32

// rapidSessionGap is the spacing under which a fresh child login counts as a
// rapid-session anomaly signal.
const rapidSessionGap = time.Minute

// LoginInput carries everything the login flow needs from the transport layer.
type LoginInput struct {
	Identifier  string
	Secret      string
	Fingerprint domain.Fingerprint
	IP          *string
}

// AuthResult is a freshly issued credential pair bound to a session.
type AuthResult struct {
	AccessToken     string
	AccessExpiresAt time.Time
	RefreshToken    string
	Session         domain.Session
	Principal       domain.Principal
	Fingerprint     domain.FingerprintComparison
}

// AuthService coordinates login and refresh-token rotation.
type AuthService struct {
	cfg        *config.AppConfig
	principals port.PrincipalRepository
	sessions   port.SessionRepository
	tokens     port.TokenRepository
	signer     *security.TokenSigner
	anomalies  *AnomalyDetector
	logger     *zap.Logger
	now        func() time.Time
}

// NewAuthService constructs an AuthService.
func NewAuthService(
	cfg *config.AppConfig,
	principals port.PrincipalRepository,
	sessions port.SessionRepository,
	tokens port.TokenRepository,
	signer *security.TokenSigner,
	anomalies *AnomalyDetector,
	logger *zap.Logger,
) *AuthService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &AuthService{
		cfg:        cfg,
		principals: principals,
		sessions:   sessions,
		tokens:     tokens,
		signer:     signer,
		anomalies:  anomalies,
		logger:     logger,
		now:        time.Now,
	}
}

// WithClock overrides the time source. Intended for tests.
func (s *AuthService) WithClock(now func() time.Time) *AuthService {
	if now != nil {
		s.now = now
	}
	return s
}

// Login authenticates a principal and opens a session under the timeout policy
// of its role. Children authenticate with username and PIN, adults with
// username or email and password; both paths run the same argon2 verification.
func (s *AuthService) Login(ctx context.Context, input LoginInput) (*AuthResult, error) {
	identifier := strings.TrimSpace(input.Identifier)
	if identifier == "" || input.Secret == "" {
		return nil, ErrInvalidCredentials
	}

	at := s.now().UTC()

	principal, err := s.principals.GetByIdentifier(ctx, identifier)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrInvalidCredentials
		}
		return nil, fmt.Errorf("lookup principal: %w", err)
	}

	if !principal.IsActive {
		return nil, ErrInactiveAccount
	}

	ok, err := security.VerifySecret(input.Secret, principal.SecretHash)
	if err != nil {
		return nil, fmt.Errorf("verify secret: %w", err)
	}
	if !ok {
		s.recordSignal(ctx, principal, domain.SignalFailedValidation)
		return nil, ErrInvalidCredentials
	}

	comparison, err := s.compareFingerprint(ctx, principal, input.Fingerprint)
	if err != nil {
		return nil, err
	}

	if err := s.detectRapidSessions(ctx, principal, at); err != nil {
		return nil, err
	}
	s.detectOffHours(ctx, principal, at)

	policy := PolicyForRole(principal.Role, s.cfg.Session)
	session := domain.Session{
		ID:             uuid.NewString(),
		PrincipalID:    principal.ID,
		Role:           principal.Role,
		Fingerprint:    domain.NormalizeFingerprint(input.Fingerprint),
		IPFirst:        input.IP,
		IPLast:         input.IP,
		CreatedAt:      at,
		LastActivityAt: at,
		IdleTimeout:    policy.IdleTimeout,
		MaxDuration:    policy.MaxDuration,
	}

	if err := s.sessions.Create(ctx, session); err != nil {
		return nil, fmt.Errorf("create session: %w", err)
	}

	result, err := s.issueCredentials(ctx, principal, &session, at, nil)
	if err != nil {
		return nil, err
	}

	s.storeEvent(ctx, session.ID, "login", at, input.IP, map[string]any{
		"fingerprint_comparison": string(comparison),
	})

	s.logger.Info("login succeeded",
		zap.String("principal_id", principal.ID),
		zap.String("role", string(principal.Role)),
		zap.String("session_id", session.ID),
		zap.String("fingerprint", string(comparison)),
	)

	result.Session = session
	result.Principal = *principal
	result.Fingerprint = comparison

	return result, nil
}

// Renew exchanges a refresh token for a fresh pair. Consumption is a single
// conditional update, so two concurrent renewals with the same token produce
// exactly one winner; the loser observes an invalid token and the session is
// revoked as a reuse precaution.
func (s *AuthService) Renew(ctx context.Context, refreshToken string, ip *string) (*AuthResult, error) {
	refreshToken = strings.TrimSpace(refreshToken)
	if refreshToken == "" {
		return nil, ErrInvalidRefreshToken
	}

	at := s.now().UTC()

	token, err := s.tokens.GetByHash(ctx, security.HashToken(refreshToken))
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrInvalidRefreshToken
		}
		return nil, fmt.Errorf("lookup refresh token: %w", err)
	}

	if token.UsedAt != nil {
		return nil, s.handleReuse(ctx, token, at)
	}
	if token.RevokedAt != nil {
		return nil, ErrInvalidRefreshToken
	}
	if token.IsExpired(at) {
		return nil, ErrExpiredRefreshToken
	}

	session, err := s.sessions.GetByID(ctx, token.SessionID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrInvalidRefreshToken
		}
		return nil, fmt.Errorf("load session: %w", err)
	}
	if session.IsRevoked() {
		return nil, ErrSessionRevoked
	}
	if !session.IsActive(at) {
		return nil, ErrSessionExpired
	}

	if err := s.tokens.Consume(ctx, token.ID, at); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			// Lost the race: another request spent the token first.
			return nil, s.handleReuse(ctx, token, at)
		}
		return nil, fmt.Errorf("consume refresh token: %w", err)
	}

	principal, err := s.principals.GetByID(ctx, session.PrincipalID)
	if err != nil {
		return nil, fmt.Errorf("lookup principal: %w", err)
	}
	if !principal.IsActive {
		return nil, ErrInactiveAccount
	}

	result, err := s.issueCredentials(ctx, principal, session, at, &token.ID)
	if err != nil {
		return nil, err
	}

	if err := s.sessions.Touch(ctx, session.ID, at, ip); err != nil && !errors.Is(err, repository.ErrNotFound) {
		return nil, fmt.Errorf("touch session: %w", err)
	}
	session.Touch(at, ip)

	s.storeEvent(ctx, session.ID, "token_rotated", at, ip, map[string]any{
		"rotated_from": token.ID,
	})

	result.Session = *session
	result.Principal = *principal
	result.Fingerprint = domain.FingerprintMatch

	return result, nil
}

// issueCredentials signs an access token and persists a new refresh token for
// the session. The caller persists the session itself.
func (s *AuthService) issueCredentials(ctx context.Context, principal *domain.Principal, session *domain.Session, at time.Time, rotatedFrom *string) (*AuthResult, error) {
	accessTTL := s.cfg.JWT.AccessTokenTTL
	refreshTTL := s.cfg.JWT.RefreshTokenTTL
	if refreshTTL <= 0 {
		refreshTTL = 7 * 24 * time.Hour
	}

	accessToken, err := s.signer.Sign(principal.ID, session.ID, string(principal.Role), uuid.NewString(), at, accessTTL)
	if err != nil {
		return nil, fmt.Errorf("sign access token: %w", err)
	}

	plaintext, err := security.GenerateSecureToken(refreshTokenBytes)
	if err != nil {
		return nil, fmt.Errorf("generate refresh token: %w", err)
	}

	record := domain.RefreshToken{
		ID:          uuid.NewString(),
		PrincipalID: principal.ID,
		SessionID:   session.ID,
		TokenHash:   security.HashToken(plaintext),
		CreatedAt:   at,
		ExpiresAt:   at.Add(refreshTTL),
		RotatedFrom: rotatedFrom,
	}
	if err := s.tokens.Create(ctx, record); err != nil {
		return nil, fmt.Errorf("store refresh token: %w", err)
	}
	session.RefreshTokenID = &record.ID

	return &AuthResult{
		AccessToken:     accessToken,
		AccessExpiresAt: at.Add(accessTTL),
		RefreshToken:    plaintext,
	}, nil
}

// handleReuse reacts to a spent refresh token being presented again. The
// session behind it is terminated: a replayed token means either a client bug
// or a stolen credential, and neither deserves a live session.
func (s *AuthService) handleReuse(ctx context.Context, token *domain.RefreshToken, at time.Time) error {
	s.logger.Warn("refresh token reuse detected",
		zap.String("token_id", token.ID),
		zap.String("session_id", token.SessionID),
		zap.String("principal_id", token.PrincipalID),
	)

	if err := s.sessions.Revoke(ctx, token.SessionID, at, "refresh_reuse"); err != nil {
		s.logger.Error("revoke session after reuse", zap.Error(err))
	}
	if err := s.tokens.RevokeBySession(ctx, token.SessionID, at); err != nil {
		s.logger.Error("revoke tokens after reuse", zap.Error(err))
	}

	if principal, err := s.principals.GetByID(ctx, token.PrincipalID); err == nil {
		s.recordSignal(ctx, principal, domain.SignalFailedValidation)
	}

	return ErrInvalidRefreshToken
}

// compareFingerprint matches the incoming device against the most recent
// session. A mismatch never blocks login; for children it feeds the anomaly
// window as a new-device signal.
func (s *AuthService) compareFingerprint(ctx context.Context, principal *domain.Principal, incoming domain.Fingerprint) (domain.FingerprintComparison, error) {
	if incoming.IsZero() {
		return domain.FingerprintMatch, nil
	}

	stored, err := s.sessions.LatestFingerprint(ctx, principal.ID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			// First ever session: nothing to compare against.
			return domain.FingerprintMatch, nil
		}
		return "", fmt.Errorf("load latest fingerprint: %w", err)
	}

	comparison := stored.Compare(incoming)
	if comparison == domain.FingerprintMismatch {
		s.recordSignal(ctx, principal, domain.SignalNewDevice)
	}

	return comparison, nil
}

// detectRapidSessions flags a child opening sessions in quick succession.
func (s *AuthService) detectRapidSessions(ctx context.Context, principal *domain.Principal, at time.Time) error {
	if !principal.IsChild() {
		return nil
	}

	active, err := s.sessions.ListActiveByPrincipal(ctx, principal.ID)
	if err != nil {
		return fmt.Errorf("list active sessions: %w", err)
	}

	for _, session := range active {
		if at.Sub(session.CreatedAt) < rapidSessionGap {
			s.recordSignal(ctx, principal, domain.SignalRapidSessions)
			break
		}
	}

	return nil
}

// detectOffHours flags a child signing in inside the configured off-hours
// span. Hours are UTC and the span may wrap past midnight. Equal start and end
// disables the check.
func (s *AuthService) detectOffHours(ctx context.Context, principal *domain.Principal, at time.Time) {
	if !principal.IsChild() {
		return
	}

	start := s.cfg.Anomaly.OffHoursStart
	end := s.cfg.Anomaly.OffHoursEnd
	if start == end {
		return
	}

	hour := at.Hour()
	off := hour >= start && hour < end
	if start > end {
		off = hour >= start || hour < end
	}
	if off {
		s.recordSignal(ctx, principal, domain.SignalOffHoursAccess)
	}
}

// recordSignal feeds the anomaly window for child principals. Threshold trips
// and detector failures are logged; they never change the caller's outcome.
func (s *AuthService) recordSignal(ctx context.Context, principal *domain.Principal, kind domain.AnomalySignalKind) {
	if s.anomalies == nil || !principal.IsChild() {
		return
	}
	if err := s.anomalies.RecordSignal(ctx, principal.ID, kind); err != nil &&
		!errors.Is(err, ErrAnomalyThresholdExceeded) {
		s.logger.Error("record anomaly signal",
			zap.String("principal_id", principal.ID),
			zap.String("kind", string(kind)),
			zap.Error(err),
		)
	}
}

func (s *AuthService) storeEvent(ctx context.Context, sessionID, kind string, at time.Time, ip *string, details map[string]any) {
	event := domain.SessionEvent{
		ID:        uuid.NewString(),
		SessionID: sessionID,
		Kind:      kind,
		At:        at,
		IP:        ip,
		Details:   details,
	}
	if err := s.sessions.StoreEvent(ctx, event); err != nil {
		s.logger.Error("store session event", zap.String("kind", kind), zap.Error(err))
	}
}
