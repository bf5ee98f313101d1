package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	squirrel "github.com/Masterminds/squirrel"
	"github.com/jackc/pgx/v5"

	"github.com/santhoshmp/learningplanner/internal/core/domain"
	"github.com/santhoshmp/learningplanner/internal/core/port"
	"github.com/santhoshmp/learningplanner/internal/repository"
)

var refreshTokenColumns = []string{
	"id",
	"principal_id",
	"session_id",
	"token_hash",
	"created_at",
	"expires_at",
	"used_at",
	"revoked_at",
	"rotated_from",
}

// TokenRepository implements port.TokenRepository backed by PostgreSQL.
type TokenRepository struct {
	exec    pgExecutor
	builder squirrel.StatementBuilderType
}

// NewTokenRepository constructs a TokenRepository.
func NewTokenRepository(exec pgExecutor) *TokenRepository {
	return &TokenRepository{
		exec:    exec,
		builder: squirrel.StatementBuilder.PlaceholderFormat(squirrel.Dollar),
	}
}

// Create inserts a refresh token record. Tokens arrive already hashed.
func (r *TokenRepository) Create(ctx context.Context, token domain.RefreshToken) error {
	sql, args, err := r.builder.Insert("learning.refresh_tokens").
		Columns(refreshTokenColumns...).
		Values(
			token.ID,
			token.PrincipalID,
			token.SessionID,
			token.TokenHash,
			token.CreatedAt,
			token.ExpiresAt,
			token.UsedAt,
			token.RevokedAt,
			token.RotatedFrom,
		).
		ToSql()
	if err != nil {
		return fmt.Errorf("build insert refresh token sql: %w", err)
	}

	if _, err := r.exec.Exec(ctx, sql, args...); err != nil {
		return fmt.Errorf("insert refresh token: %w", err)
	}

	return nil
}

// GetByHash retrieves a refresh token by its hashed value.
func (r *TokenRepository) GetByHash(ctx context.Context, tokenHash string) (*domain.RefreshToken, error) {
	sql, args, err := r.builder.
		Select(refreshTokenColumns...).
		From("learning.refresh_tokens").
		Where(squirrel.Eq{"token_hash": tokenHash}).
		Limit(1).
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("build select refresh token sql: %w", err)
	}

	var token domain.RefreshToken
	if err := r.exec.QueryRow(ctx, sql, args...).Scan(
		&token.ID,
		&token.PrincipalID,
		&token.SessionID,
		&token.TokenHash,
		&token.CreatedAt,
		&token.ExpiresAt,
		&token.UsedAt,
		&token.RevokedAt,
		&token.RotatedFrom,
	); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, repository.ErrNotFound
		}
		return nil, fmt.Errorf("scan refresh token: %w", err)
	}

	return &token, nil
}

// Consume marks the token used in a single conditional update. Only one caller
// can win the update; losers observe ErrNotFound and must treat the token as
// already spent.
func (r *TokenRepository) Consume(ctx context.Context, tokenID string, at time.Time) error {
	sql, args, err := r.builder.Update("learning.refresh_tokens").
		Set("used_at", at).
		Where(squirrel.Eq{"id": tokenID}).
		Where("used_at IS NULL").
		Where("revoked_at IS NULL").
		ToSql()
	if err != nil {
		return fmt.Errorf("build consume refresh token sql: %w", err)
	}

	tag, err := r.exec.Exec(ctx, sql, args...)
	if err != nil {
		return fmt.Errorf("consume refresh token: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return repository.ErrNotFound
	}

	return nil
}

// RevokeBySession revokes all outstanding tokens issued for a session.
func (r *TokenRepository) RevokeBySession(ctx context.Context, sessionID string, at time.Time) error {
	sql, args, err := r.builder.Update("learning.refresh_tokens").
		Set("revoked_at", at).
		Where(squirrel.Eq{"session_id": sessionID}).
		Where("revoked_at IS NULL").
		ToSql()
	if err != nil {
		return fmt.Errorf("build revoke session tokens sql: %w", err)
	}

	if _, err := r.exec.Exec(ctx, sql, args...); err != nil {
		return fmt.Errorf("revoke session tokens: %w", err)
	}

	return nil
}

// RevokeAllForPrincipal revokes every outstanding token of the principal and
// returns the number of tokens affected.
func (r *TokenRepository) RevokeAllForPrincipal(ctx context.Context, principalID string, at time.Time) (int, error) {
	sql, args, err := r.builder.Update("learning.refresh_tokens").
		Set("revoked_at", at).
		Where(squirrel.Eq{"principal_id": principalID}).
		Where("revoked_at IS NULL").
		ToSql()
	if err != nil {
		return 0, fmt.Errorf("build revoke principal tokens sql: %w", err)
	}

	tag, err := r.exec.Exec(ctx, sql, args...)
	if err != nil {
		return 0, fmt.Errorf("revoke principal tokens: %w", err)
	}

	return int(tag.RowsAffected()), nil
}

var _ port.TokenRepository = (*TokenRepository)(nil)
