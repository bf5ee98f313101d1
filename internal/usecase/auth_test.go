package usecase

import (
	"context"
	"errors"
	"testing"
	"time"

	"go.uber.org/zap"

	"github.com/santhoshmp/learningplanner/internal/core/domain"
	"github.com/santhoshmp/learningplanner/internal/infra/config"
	"github.com/santhoshmp/learningplanner/internal/infra/security"
)

func testAppConfig() *config.AppConfig {
	return &config.AppConfig{
		JWT: config.JWTSettings{
			Secret:          "test-secret",
			AccessTokenTTL:  15 * time.Minute,
			RefreshTokenTTL: 7 * 24 * time.Hour,
		},
		Session: testSessionSettings(),
	}
}

func testSigner(t *testing.T) *security.TokenSigner {
	t.Helper()
	signer, err := security.NewTokenSigner("test-secret", "learningplanner")
	if err != nil {
		t.Fatalf("NewTokenSigner: %v", err)
	}
	return signer
}

func childPrincipal(t *testing.T, username, pin string) domain.Principal {
	t.Helper()
	hash, err := security.HashSecret(pin)
	if err != nil {
		t.Fatalf("HashSecret: %v", err)
	}
	guardian := "guardian-1"
	return domain.Principal{
		ID:          "child-" + username,
		Role:        domain.RoleChild,
		Username:    username,
		DisplayName: username,
		SecretHash:  hash,
		GuardianID:  &guardian,
		IsActive:    true,
		CreatedAt:   time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC),
	}
}

func newAuthFixture(t *testing.T, principals ...domain.Principal) (*AuthService, *fakeSessionRepository, *fakeTokenRepository) {
	t.Helper()
	sessions := newFakeSessionRepository()
	tokens := newFakeTokenRepository()
	svc := NewAuthService(
		testAppConfig(),
		newFakePrincipalRepository(principals...),
		sessions,
		tokens,
		testSigner(t),
		nil,
		zap.NewNop(),
	)
	return svc, sessions, tokens
}

func TestAuthService_ChildLoginGetsFixedPolicy(t *testing.T) {
	tim := childPrincipal(t, "tim", "1234")
	svc, sessions, _ := newAuthFixture(t, tim)

	at := time.Date(2026, 3, 10, 15, 0, 0, 0, time.UTC)
	svc.WithClock(func() time.Time { return at })

	result, err := svc.Login(context.Background(), LoginInput{Identifier: "tim", Secret: "1234"})
	if err != nil {
		t.Fatalf("Login returned error: %v", err)
	}

	if result.Session.IdleTimeout != 20*time.Minute {
		t.Fatalf("expected 20m idle timeout for child, got %s", result.Session.IdleTimeout)
	}
	if result.Session.MaxDuration != 2*time.Hour {
		t.Fatalf("expected 2h max duration for child, got %s", result.Session.MaxDuration)
	}
	if result.AccessToken == "" || result.RefreshToken == "" {
		t.Fatal("expected both tokens issued")
	}
	if len(sessions.sessions) != 1 {
		t.Fatalf("expected one stored session, got %d", len(sessions.sessions))
	}

	claims, err := testSigner(t).Parse(result.AccessToken)
	if err != nil {
		t.Fatalf("Parse access token: %v", err)
	}
	if claims.PrincipalID != tim.ID || claims.Role != "child" {
		t.Fatalf("unexpected claims: %+v", claims)
	}
}

func TestAuthService_WrongPinRejected(t *testing.T) {
	svc, _, _ := newAuthFixture(t, childPrincipal(t, "tim", "1234"))

	_, err := svc.Login(context.Background(), LoginInput{Identifier: "tim", Secret: "9999"})
	if !errors.Is(err, ErrInvalidCredentials) {
		t.Fatalf("expected ErrInvalidCredentials, got %v", err)
	}
}

func TestAuthService_UnknownIdentifierRejected(t *testing.T) {
	svc, _, _ := newAuthFixture(t, childPrincipal(t, "tim", "1234"))

	_, err := svc.Login(context.Background(), LoginInput{Identifier: "ghost", Secret: "1234"})
	if !errors.Is(err, ErrInvalidCredentials) {
		t.Fatalf("expected ErrInvalidCredentials, got %v", err)
	}
}

func TestAuthService_AdultPolicyFromConfig(t *testing.T) {
	hash, err := security.HashSecret("correct horse battery staple")
	if err != nil {
		t.Fatalf("HashSecret: %v", err)
	}
	email := "guardian@example.com"
	adult := domain.Principal{
		ID:         "adult-1",
		Role:       domain.RoleAdult,
		Username:   "guardian",
		Email:      &email,
		SecretHash: hash,
		IsActive:   true,
	}
	svc, _, _ := newAuthFixture(t, adult)

	result, err := svc.Login(context.Background(), LoginInput{Identifier: "guardian@example.com", Secret: "correct horse battery staple"})
	if err != nil {
		t.Fatalf("Login returned error: %v", err)
	}
	if result.Session.IdleTimeout != 12*time.Hour {
		t.Fatalf("expected configured adult idle timeout, got %s", result.Session.IdleTimeout)
	}
}

func TestAuthService_RenewRotatesToken(t *testing.T) {
	tim := childPrincipal(t, "tim", "1234")
	svc, _, tokens := newAuthFixture(t, tim)

	at := time.Date(2026, 3, 10, 15, 0, 0, 0, time.UTC)
	svc.WithClock(func() time.Time { return at })

	login, err := svc.Login(context.Background(), LoginInput{Identifier: "tim", Secret: "1234"})
	if err != nil {
		t.Fatalf("Login returned error: %v", err)
	}

	at = at.Add(10 * time.Minute)
	renewed, err := svc.Renew(context.Background(), login.RefreshToken, nil)
	if err != nil {
		t.Fatalf("Renew returned error: %v", err)
	}
	if renewed.RefreshToken == login.RefreshToken {
		t.Fatal("rotation must issue a different refresh token")
	}
	if renewed.Session.ID != login.Session.ID {
		t.Fatal("rotation must keep the same session")
	}

	old, err := tokens.GetByHash(context.Background(), security.HashToken(login.RefreshToken))
	if err != nil {
		t.Fatalf("GetByHash returned error: %v", err)
	}
	if old.UsedAt == nil {
		t.Fatal("expected original token marked used")
	}
}

func TestAuthService_RefreshTokenIsSingleUse(t *testing.T) {
	tim := childPrincipal(t, "tim", "1234")
	svc, sessions, _ := newAuthFixture(t, tim)

	at := time.Date(2026, 3, 10, 15, 0, 0, 0, time.UTC)
	svc.WithClock(func() time.Time { return at })

	login, err := svc.Login(context.Background(), LoginInput{Identifier: "tim", Secret: "1234"})
	if err != nil {
		t.Fatalf("Login returned error: %v", err)
	}

	at = at.Add(5 * time.Minute)
	if _, err := svc.Renew(context.Background(), login.RefreshToken, nil); err != nil {
		t.Fatalf("first renewal returned error: %v", err)
	}

	at = at.Add(time.Minute)
	_, err = svc.Renew(context.Background(), login.RefreshToken, nil)
	if !errors.Is(err, ErrInvalidRefreshToken) {
		t.Fatalf("expected ErrInvalidRefreshToken on replay, got %v", err)
	}

	// Replay terminates the session as a reuse precaution.
	stored := sessions.sessions[login.Session.ID]
	if stored.RevokedAt == nil {
		t.Fatal("expected session revoked after token reuse")
	}
	if stored.RevokeReason == nil || *stored.RevokeReason != "refresh_reuse" {
		t.Fatalf("expected refresh_reuse reason, got %v", stored.RevokeReason)
	}
}

func TestAuthService_RenewExpiredToken(t *testing.T) {
	tim := childPrincipal(t, "tim", "1234")
	svc, _, _ := newAuthFixture(t, tim)

	at := time.Date(2026, 3, 10, 15, 0, 0, 0, time.UTC)
	svc.WithClock(func() time.Time { return at })

	login, err := svc.Login(context.Background(), LoginInput{Identifier: "tim", Secret: "1234"})
	if err != nil {
		t.Fatalf("Login returned error: %v", err)
	}

	at = at.Add(8 * 24 * time.Hour)
	_, err = svc.Renew(context.Background(), login.RefreshToken, nil)
	if !errors.Is(err, ErrExpiredRefreshToken) {
		t.Fatalf("expected ErrExpiredRefreshToken, got %v", err)
	}
}

func TestAuthService_ChildOffHoursLoginRecordsSignal(t *testing.T) {
	tim := childPrincipal(t, "tim", "1234")
	principals := newFakePrincipalRepository(tim)
	sessions := newFakeSessionRepository()
	tokens := newFakeTokenRepository()
	signals := newFakeSignalStore()

	cfg := testAppConfig()
	cfg.Anomaly = config.AnomalySettings{
		WindowDuration: 15 * time.Minute,
		SignalTTL:      30 * time.Minute,
		OffHoursStart:  21,
		OffHoursEnd:    6,
	}

	detector := NewAnomalyDetector(cfg.Anomaly, signals, sessions, tokens, principals, &fakePublisher{}, zap.NewNop())
	svc := NewAuthService(cfg, principals, sessions, tokens, testSigner(t), detector, zap.NewNop())

	night := time.Date(2026, 3, 10, 23, 0, 0, 0, time.UTC)
	svc.WithClock(func() time.Time { return night })
	detector.WithClock(func() time.Time { return night })

	if _, err := svc.Login(context.Background(), LoginInput{Identifier: "tim", Secret: "1234"}); err != nil {
		t.Fatalf("Login returned error: %v", err)
	}

	recorded := signals.signals[tim.ID]
	if len(recorded) != 1 || recorded[0].kind != domain.SignalOffHoursAccess {
		t.Fatalf("expected one off-hours signal from the 23:00 login, got %v", recorded)
	}

	day := time.Date(2026, 3, 11, 10, 0, 0, 0, time.UTC)
	svc.WithClock(func() time.Time { return day })
	detector.WithClock(func() time.Time { return day })

	if _, err := svc.Login(context.Background(), LoginInput{Identifier: "tim", Secret: "1234"}); err != nil {
		t.Fatalf("Login returned error: %v", err)
	}
	if len(signals.signals[tim.ID]) != 1 {
		t.Fatalf("a daytime login must not add a signal, got %d", len(signals.signals[tim.ID]))
	}
}

func TestAuthService_InactiveAccountRejected(t *testing.T) {
	tim := childPrincipal(t, "tim", "1234")
	tim.IsActive = false
	svc, _, _ := newAuthFixture(t, tim)

	_, err := svc.Login(context.Background(), LoginInput{Identifier: "tim", Secret: "1234"})
	if !errors.Is(err, ErrInactiveAccount) {
		t.Fatalf("expected ErrInactiveAccount, got %v", err)
	}
}
