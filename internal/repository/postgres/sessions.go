package postgres

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	squirrel "github.com/Masterminds/squirrel"
	"github.com/jackc/pgx/v5"

	"github.com/santhoshmp/learningplanner/internal/core/domain"
	"github.com/santhoshmp/learningplanner/internal/core/port"
	"github.com/santhoshmp/learningplanner/internal/repository"
)

var sessionColumns = []string{
	"id",
	"principal_id",
	"role",
	"fingerprint",
	"ip_first",
	"ip_last",
	"created_at",
	"last_activity_at",
	"idle_timeout_seconds",
	"max_duration_seconds",
	"refresh_token_id",
	"revoked_at",
	"revoke_reason",
}

// SessionRepository implements port.SessionRepository backed by PostgreSQL.
type SessionRepository struct {
	exec    pgExecutor
	builder squirrel.StatementBuilderType
}

// NewSessionRepository constructs a SessionRepository.
func NewSessionRepository(exec pgExecutor) *SessionRepository {
	return &SessionRepository{
		exec:    exec,
		builder: squirrel.StatementBuilder.PlaceholderFormat(squirrel.Dollar),
	}
}

type fingerprintRecord struct {
	AgentClass  string `json:"agent_class"`
	Platform    string `json:"platform"`
	Mobile      bool   `json:"mobile"`
	ScreenClass string `json:"screen_class"`
	Locale      string `json:"locale"`
	Timezone    string `json:"timezone"`
}

func marshalFingerprint(fp domain.Fingerprint) ([]byte, error) {
	payload, err := json.Marshal(fingerprintRecord{
		AgentClass:  fp.AgentClass,
		Platform:    fp.Platform,
		Mobile:      fp.Mobile,
		ScreenClass: fp.ScreenClass,
		Locale:      fp.Locale,
		Timezone:    fp.Timezone,
	})
	if err != nil {
		return nil, fmt.Errorf("marshal fingerprint: %w", err)
	}
	return payload, nil
}

func unmarshalFingerprint(raw []byte) (domain.Fingerprint, error) {
	if len(raw) == 0 {
		return domain.Fingerprint{}, nil
	}
	var rec fingerprintRecord
	if err := json.Unmarshal(raw, &rec); err != nil {
		return domain.Fingerprint{}, fmt.Errorf("unmarshal fingerprint: %w", err)
	}
	return domain.Fingerprint{
		AgentClass:  rec.AgentClass,
		Platform:    rec.Platform,
		Mobile:      rec.Mobile,
		ScreenClass: rec.ScreenClass,
		Locale:      rec.Locale,
		Timezone:    rec.Timezone,
	}, nil
}

func scanSession(row pgx.Row) (*domain.Session, error) {
	var (
		session     domain.Session
		fingerprint []byte
		idleSeconds int64
		maxSeconds  int64
	)
	if err := row.Scan(
		&session.ID,
		&session.PrincipalID,
		&session.Role,
		&fingerprint,
		&session.IPFirst,
		&session.IPLast,
		&session.CreatedAt,
		&session.LastActivityAt,
		&idleSeconds,
		&maxSeconds,
		&session.RefreshTokenID,
		&session.RevokedAt,
		&session.RevokeReason,
	); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, repository.ErrNotFound
		}
		return nil, fmt.Errorf("scan session: %w", err)
	}

	fp, err := unmarshalFingerprint(fingerprint)
	if err != nil {
		return nil, err
	}
	session.Fingerprint = fp
	session.IdleTimeout = time.Duration(idleSeconds) * time.Second
	session.MaxDuration = time.Duration(maxSeconds) * time.Second

	return &session, nil
}

// Create persists a new session aggregate.
func (r *SessionRepository) Create(ctx context.Context, session domain.Session) error {
	fingerprint, err := marshalFingerprint(session.Fingerprint)
	if err != nil {
		return err
	}

	sql, args, err := r.builder.Insert("learning.sessions").
		Columns(sessionColumns...).
		Values(
			session.ID,
			session.PrincipalID,
			session.Role,
			fingerprint,
			session.IPFirst,
			session.IPLast,
			session.CreatedAt,
			session.LastActivityAt,
			int64(session.IdleTimeout/time.Second),
			int64(session.MaxDuration/time.Second),
			session.RefreshTokenID,
			session.RevokedAt,
			session.RevokeReason,
		).
		ToSql()
	if err != nil {
		return fmt.Errorf("build insert session sql: %w", err)
	}

	if _, err := r.exec.Exec(ctx, sql, args...); err != nil {
		return fmt.Errorf("insert session: %w", err)
	}

	return nil
}

// GetByID returns a session by identifier.
func (r *SessionRepository) GetByID(ctx context.Context, sessionID string) (*domain.Session, error) {
	sql, args, err := r.builder.
		Select(sessionColumns...).
		From("learning.sessions").
		Where(squirrel.Eq{"id": sessionID}).
		Limit(1).
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("build select session by id sql: %w", err)
	}

	return scanSession(r.exec.QueryRow(ctx, sql, args...))
}

// Touch updates the session's activity watermark and last seen IP.
func (r *SessionRepository) Touch(ctx context.Context, sessionID string, at time.Time, ip *string) error {
	update := r.builder.Update("learning.sessions").
		Set("last_activity_at", at).
		Where(squirrel.Eq{"id": sessionID}).
		Where("revoked_at IS NULL")
	if ip != nil {
		update = update.
			Set("ip_last", *ip).
			Set("ip_first", squirrel.Expr("COALESCE(ip_first, ?)", *ip))
	}

	sql, args, err := update.ToSql()
	if err != nil {
		return fmt.Errorf("build touch session sql: %w", err)
	}

	tag, err := r.exec.Exec(ctx, sql, args...)
	if err != nil {
		return fmt.Errorf("touch session: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return repository.ErrNotFound
	}

	return nil
}

// Revoke marks a session revoked. Revoking an already revoked session is a no-op.
func (r *SessionRepository) Revoke(ctx context.Context, sessionID string, at time.Time, reason string) error {
	sql, args, err := r.builder.Update("learning.sessions").
		Set("revoked_at", at).
		Set("revoke_reason", reason).
		Where(squirrel.Eq{"id": sessionID}).
		Where("revoked_at IS NULL").
		ToSql()
	if err != nil {
		return fmt.Errorf("build revoke session sql: %w", err)
	}

	if _, err := r.exec.Exec(ctx, sql, args...); err != nil {
		return fmt.Errorf("revoke session: %w", err)
	}

	return nil
}

// RevokeAllForPrincipal revokes every active session of the principal and
// returns the number of sessions affected.
func (r *SessionRepository) RevokeAllForPrincipal(ctx context.Context, principalID string, at time.Time, reason string) (int, error) {
	sql, args, err := r.builder.Update("learning.sessions").
		Set("revoked_at", at).
		Set("revoke_reason", reason).
		Where(squirrel.Eq{"principal_id": principalID}).
		Where("revoked_at IS NULL").
		ToSql()
	if err != nil {
		return 0, fmt.Errorf("build revoke sessions sql: %w", err)
	}

	tag, err := r.exec.Exec(ctx, sql, args...)
	if err != nil {
		return 0, fmt.Errorf("revoke sessions for principal: %w", err)
	}

	return int(tag.RowsAffected()), nil
}

// ListActiveByPrincipal returns non-revoked sessions ordered by recency.
// Idle and absolute expiry are evaluated by the caller against the clock;
// the store only filters explicit revocation.
func (r *SessionRepository) ListActiveByPrincipal(ctx context.Context, principalID string) ([]domain.Session, error) {
	sql, args, err := r.builder.
		Select(sessionColumns...).
		From("learning.sessions").
		Where(squirrel.Eq{"principal_id": principalID}).
		Where("revoked_at IS NULL").
		OrderBy("last_activity_at DESC").
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("build list active sessions sql: %w", err)
	}

	return r.querySessions(ctx, sql, args)
}

// ListByPrincipalSince returns all sessions created after the cutoff,
// revoked ones included, for guardian-facing history.
func (r *SessionRepository) ListByPrincipalSince(ctx context.Context, principalID string, since time.Time) ([]domain.Session, error) {
	sql, args, err := r.builder.
		Select(sessionColumns...).
		From("learning.sessions").
		Where(squirrel.Eq{"principal_id": principalID}).
		Where(squirrel.GtOrEq{"created_at": since}).
		OrderBy("created_at DESC").
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("build list sessions since sql: %w", err)
	}

	return r.querySessions(ctx, sql, args)
}

func (r *SessionRepository) querySessions(ctx context.Context, sql string, args []any) ([]domain.Session, error) {
	rows, err := r.exec.Query(ctx, sql, args...)
	if err != nil {
		return nil, fmt.Errorf("query sessions: %w", err)
	}
	defer rows.Close()

	var sessions []domain.Session
	for rows.Next() {
		session, err := scanSession(rows)
		if err != nil {
			return nil, err
		}
		sessions = append(sessions, *session)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate sessions: %w", err)
	}

	return sessions, nil
}

// StoreEvent persists a session lifecycle event.
func (r *SessionRepository) StoreEvent(ctx context.Context, event domain.SessionEvent) error {
	var details []byte
	if event.Details != nil {
		payload, err := json.Marshal(event.Details)
		if err != nil {
			return fmt.Errorf("marshal session event details: %w", err)
		}
		details = payload
	}

	sql, args, err := r.builder.Insert("learning.session_events").
		Columns("id", "session_id", "kind", "at", "ip", "details").
		Values(event.ID, event.SessionID, event.Kind, event.At, event.IP, details).
		ToSql()
	if err != nil {
		return fmt.Errorf("build insert session event sql: %w", err)
	}

	if _, err := r.exec.Exec(ctx, sql, args...); err != nil {
		return fmt.Errorf("insert session event: %w", err)
	}

	return nil
}

// LatestFingerprint returns the fingerprint of the principal's most recent session.
func (r *SessionRepository) LatestFingerprint(ctx context.Context, principalID string) (*domain.Fingerprint, error) {
	sql, args, err := r.builder.
		Select("fingerprint").
		From("learning.sessions").
		Where(squirrel.Eq{"principal_id": principalID}).
		OrderBy("created_at DESC").
		Limit(1).
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("build select latest fingerprint sql: %w", err)
	}

	var raw []byte
	if err := r.exec.QueryRow(ctx, sql, args...).Scan(&raw); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, repository.ErrNotFound
		}
		return nil, fmt.Errorf("scan latest fingerprint: %w", err)
	}

	fp, err := unmarshalFingerprint(raw)
	if err != nil {
		return nil, err
	}

	return &fp, nil
}

var _ port.SessionRepository = (*SessionRepository)(nil)
