package postgres

import (
	"context"
	"errors"
	"fmt"

	squirrel "github.com/Masterminds/squirrel"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/santhoshmp/learningplanner/internal/core/domain"
	"github.com/santhoshmp/learningplanner/internal/core/port"
)

var streakColumns = []string{
	"child_id",
	"kind",
	"current",
	"longest",
	"last_qualified",
	"active",
	"updated_at",
}

// StreakRepository implements port.StreakRepository backed by PostgreSQL.
// Mutations run inside a transaction holding a row lock so concurrent
// qualifying events cannot lose updates.
type StreakRepository struct {
	pool    *pgxpool.Pool
	builder squirrel.StatementBuilderType
}

// NewStreakRepository constructs a StreakRepository. Unlike the other
// repositories it requires a pool because UpdateInTx opens its own transaction.
func NewStreakRepository(pool *pgxpool.Pool) *StreakRepository {
	return &StreakRepository{
		pool:    pool,
		builder: squirrel.StatementBuilder.PlaceholderFormat(squirrel.Dollar),
	}
}

// ListByChild returns all streak counters tracked for the child.
func (r *StreakRepository) ListByChild(ctx context.Context, childID string) ([]domain.StreakCounter, error) {
	sql, args, err := r.builder.
		Select(streakColumns...).
		From("learning.streaks").
		Where(squirrel.Eq{"child_id": childID}).
		OrderBy("kind ASC").
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("build list streaks sql: %w", err)
	}

	rows, err := r.pool.Query(ctx, sql, args...)
	if err != nil {
		return nil, fmt.Errorf("query streaks: %w", err)
	}
	defer rows.Close()

	var streaks []domain.StreakCounter
	for rows.Next() {
		var streak domain.StreakCounter
		if err := rows.Scan(
			&streak.ChildID,
			&streak.Kind,
			&streak.Current,
			&streak.Longest,
			&streak.LastQualified,
			&streak.Active,
			&streak.UpdatedAt,
		); err != nil {
			return nil, fmt.Errorf("scan streak: %w", err)
		}
		streaks = append(streaks, streak)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate streaks: %w", err)
	}

	return streaks, nil
}

// UpdateInTx locks the (child, kind) row, applies mutate to the current
// counter, and persists the result when mutate reports a change. A missing row
// starts from the zero-value counter.
func (r *StreakRepository) UpdateInTx(ctx context.Context, childID string, kind domain.StreakKind, mutate func(*domain.StreakCounter) bool) error {
	tx, err := r.pool.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return fmt.Errorf("begin streak tx: %w", err)
	}
	defer tx.Rollback(ctx)

	selectSQL, selectArgs, err := r.builder.
		Select(streakColumns...).
		From("learning.streaks").
		Where(squirrel.Eq{"child_id": childID, "kind": kind}).
		Suffix("FOR UPDATE").
		ToSql()
	if err != nil {
		return fmt.Errorf("build select streak sql: %w", err)
	}

	streak := domain.StreakCounter{ChildID: childID, Kind: kind}
	exists := true
	if err := tx.QueryRow(ctx, selectSQL, selectArgs...).Scan(
		&streak.ChildID,
		&streak.Kind,
		&streak.Current,
		&streak.Longest,
		&streak.LastQualified,
		&streak.Active,
		&streak.UpdatedAt,
	); err != nil {
		if !errors.Is(err, pgx.ErrNoRows) {
			return fmt.Errorf("scan streak for update: %w", err)
		}
		exists = false
	}

	if !mutate(&streak) {
		return tx.Commit(ctx)
	}

	if exists {
		updateSQL, updateArgs, err := r.builder.Update("learning.streaks").
			Set("current", streak.Current).
			Set("longest", streak.Longest).
			Set("last_qualified", streak.LastQualified).
			Set("active", streak.Active).
			Set("updated_at", streak.UpdatedAt).
			Where(squirrel.Eq{"child_id": childID, "kind": kind}).
			ToSql()
		if err != nil {
			return fmt.Errorf("build update streak sql: %w", err)
		}
		if _, err := tx.Exec(ctx, updateSQL, updateArgs...); err != nil {
			return fmt.Errorf("update streak: %w", err)
		}
	} else {
		insertSQL, insertArgs, err := r.builder.Insert("learning.streaks").
			Columns(streakColumns...).
			Values(
				streak.ChildID,
				streak.Kind,
				streak.Current,
				streak.Longest,
				streak.LastQualified,
				streak.Active,
				streak.UpdatedAt,
			).
			ToSql()
		if err != nil {
			return fmt.Errorf("build insert streak sql: %w", err)
		}
		if _, err := tx.Exec(ctx, insertSQL, insertArgs...); err != nil {
			return fmt.Errorf("insert streak: %w", err)
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit streak tx: %w", err)
	}

	return nil
}

var _ port.StreakRepository = (*StreakRepository)(nil)
