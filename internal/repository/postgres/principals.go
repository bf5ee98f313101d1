package postgres

import (
	"context"
	"errors"
	"fmt"
	"strings"

	squirrel "github.com/Masterminds/squirrel"
	"github.com/jackc/pgx/v5"

	"github.com/santhoshmp/learningplanner/internal/core/domain"
	"github.com/santhoshmp/learningplanner/internal/core/port"
	"github.com/santhoshmp/learningplanner/internal/repository"
)

const principalColumns = "id, role, username, email, display_name, secret_hash, guardian_id, is_active, created_at"

// PrincipalRepository implements port.PrincipalRepository backed by PostgreSQL.
type PrincipalRepository struct {
	exec    pgExecutor
	builder squirrel.StatementBuilderType
}

// NewPrincipalRepository constructs a PrincipalRepository.
func NewPrincipalRepository(exec pgExecutor) *PrincipalRepository {
	return &PrincipalRepository{
		exec:    exec,
		builder: squirrel.StatementBuilder.PlaceholderFormat(squirrel.Dollar),
	}
}

func principalColumnList() []string {
	return strings.Split(principalColumns, ", ")
}

func scanPrincipal(row pgx.Row) (*domain.Principal, error) {
	var p domain.Principal
	if err := row.Scan(
		&p.ID,
		&p.Role,
		&p.Username,
		&p.Email,
		&p.DisplayName,
		&p.SecretHash,
		&p.GuardianID,
		&p.IsActive,
		&p.CreatedAt,
	); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, repository.ErrNotFound
		}
		return nil, fmt.Errorf("scan principal: %w", err)
	}
	return &p, nil
}

// GetByID returns a principal by identifier.
func (r *PrincipalRepository) GetByID(ctx context.Context, id string) (*domain.Principal, error) {
	sql, args, err := r.builder.
		Select(principalColumnList()...).
		From("learning.principals").
		Where(squirrel.Eq{"id": id}).
		Limit(1).
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("build select principal by id sql: %w", err)
	}

	return scanPrincipal(r.exec.QueryRow(ctx, sql, args...))
}

// GetByIdentifier resolves a login identifier. Children sign in with a
// username; adults may use username or email.
func (r *PrincipalRepository) GetByIdentifier(ctx context.Context, identifier string) (*domain.Principal, error) {
	identifier = strings.ToLower(strings.TrimSpace(identifier))
	if identifier == "" {
		return nil, repository.ErrNotFound
	}

	sql, args, err := r.builder.
		Select(principalColumnList()...).
		From("learning.principals").
		Where(squirrel.Or{
			squirrel.Eq{"lower(username)": identifier},
			squirrel.Eq{"lower(email)": identifier},
		}).
		Limit(1).
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("build select principal by identifier sql: %w", err)
	}

	return scanPrincipal(r.exec.QueryRow(ctx, sql, args...))
}

// ListByGuardian returns the principals overseen by the given guardian.
func (r *PrincipalRepository) ListByGuardian(ctx context.Context, guardianID string) ([]domain.Principal, error) {
	sql, args, err := r.builder.
		Select(principalColumnList()...).
		From("learning.principals").
		Where(squirrel.Eq{"guardian_id": guardianID}).
		OrderBy("created_at ASC").
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("build list principals sql: %w", err)
	}

	rows, err := r.exec.Query(ctx, sql, args...)
	if err != nil {
		return nil, fmt.Errorf("query principals: %w", err)
	}
	defer rows.Close()

	var principals []domain.Principal
	for rows.Next() {
		p, err := scanPrincipal(rows)
		if err != nil {
			return nil, err
		}
		principals = append(principals, *p)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate principals: %w", err)
	}

	return principals, nil
}

var _ port.PrincipalRepository = (*PrincipalRepository)(nil)
