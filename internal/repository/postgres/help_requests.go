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

var helpRequestColumns = []string{
	"id",
	"child_id",
	"question",
	"response",
	"subject",
	"difficulty",
	"resolved",
	"was_helpful",
	"context",
	"created_at",
	"responded_at",
	"resolved_at",
}

// HelpRequestRepository implements port.HelpRequestRepository backed by
// PostgreSQL.
type HelpRequestRepository struct {
	exec    pgExecutor
	builder squirrel.StatementBuilderType
}

// NewHelpRequestRepository constructs a HelpRequestRepository.
func NewHelpRequestRepository(exec pgExecutor) *HelpRequestRepository {
	return &HelpRequestRepository{
		exec:    exec,
		builder: squirrel.StatementBuilder.PlaceholderFormat(squirrel.Dollar),
	}
}

func marshalHelpContext(context map[string]any) ([]byte, error) {
	if context == nil {
		return nil, nil
	}
	payload, err := json.Marshal(context)
	if err != nil {
		return nil, fmt.Errorf("marshal help request context: %w", err)
	}
	return payload, nil
}

func scanHelpRequest(row pgx.Row) (*domain.HelpRequest, error) {
	var (
		request domain.HelpRequest
		rawCtx  []byte
	)
	if err := row.Scan(
		&request.ID,
		&request.ChildID,
		&request.Question,
		&request.Response,
		&request.Subject,
		&request.Difficulty,
		&request.Resolved,
		&request.WasHelpful,
		&rawCtx,
		&request.CreatedAt,
		&request.RespondedAt,
		&request.ResolvedAt,
	); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, repository.ErrNotFound
		}
		return nil, fmt.Errorf("scan help request: %w", err)
	}

	if len(rawCtx) > 0 {
		if err := json.Unmarshal(rawCtx, &request.Context); err != nil {
			return nil, fmt.Errorf("unmarshal help request context: %w", err)
		}
	}

	return &request, nil
}

// Create inserts a help request record.
func (r *HelpRequestRepository) Create(ctx context.Context, request domain.HelpRequest) error {
	contextPayload, err := marshalHelpContext(request.Context)
	if err != nil {
		return err
	}

	sql, args, err := r.builder.Insert("learning.help_requests").
		Columns(helpRequestColumns...).
		Values(
			request.ID,
			request.ChildID,
			request.Question,
			request.Response,
			request.Subject,
			request.Difficulty,
			request.Resolved,
			request.WasHelpful,
			contextPayload,
			request.CreatedAt,
			request.RespondedAt,
			request.ResolvedAt,
		).
		ToSql()
	if err != nil {
		return fmt.Errorf("build insert help request sql: %w", err)
	}

	if _, err := r.exec.Exec(ctx, sql, args...); err != nil {
		return fmt.Errorf("insert help request: %w", err)
	}

	return nil
}

// GetByID returns a help request by identifier.
func (r *HelpRequestRepository) GetByID(ctx context.Context, id string) (*domain.HelpRequest, error) {
	sql, args, err := r.builder.
		Select(helpRequestColumns...).
		From("learning.help_requests").
		Where(squirrel.Eq{"id": id}).
		Limit(1).
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("build select help request sql: %w", err)
	}

	return scanHelpRequest(r.exec.QueryRow(ctx, sql, args...))
}

// ListByChild returns the child's full help-request history, newest first.
func (r *HelpRequestRepository) ListByChild(ctx context.Context, childID string) ([]domain.HelpRequest, error) {
	query := r.builder.
		Select(helpRequestColumns...).
		From("learning.help_requests").
		Where(squirrel.Eq{"child_id": childID}).
		OrderBy("created_at DESC")

	return r.queryHelpRequests(ctx, query)
}

// ListByChildSince returns help requests created after the cutoff, newest first.
func (r *HelpRequestRepository) ListByChildSince(ctx context.Context, childID string, since time.Time) ([]domain.HelpRequest, error) {
	query := r.builder.
		Select(helpRequestColumns...).
		From("learning.help_requests").
		Where(squirrel.Eq{"child_id": childID}).
		Where(squirrel.GtOrEq{"created_at": since}).
		OrderBy("created_at DESC")

	return r.queryHelpRequests(ctx, query)
}

func (r *HelpRequestRepository) queryHelpRequests(ctx context.Context, query squirrel.SelectBuilder) ([]domain.HelpRequest, error) {
	sql, args, err := query.ToSql()
	if err != nil {
		return nil, fmt.Errorf("build list help requests sql: %w", err)
	}

	rows, err := r.exec.Query(ctx, sql, args...)
	if err != nil {
		return nil, fmt.Errorf("query help requests: %w", err)
	}
	defer rows.Close()

	var requests []domain.HelpRequest
	for rows.Next() {
		request, err := scanHelpRequest(rows)
		if err != nil {
			return nil, err
		}
		requests = append(requests, *request)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate help requests: %w", err)
	}

	return requests, nil
}

// Update persists resolution fields and merged context. Creation fields never
// change.
func (r *HelpRequestRepository) Update(ctx context.Context, request domain.HelpRequest) error {
	contextPayload, err := marshalHelpContext(request.Context)
	if err != nil {
		return err
	}

	sql, args, err := r.builder.Update("learning.help_requests").
		Set("response", request.Response).
		Set("resolved", request.Resolved).
		Set("was_helpful", request.WasHelpful).
		Set("context", contextPayload).
		Set("responded_at", request.RespondedAt).
		Set("resolved_at", request.ResolvedAt).
		Where(squirrel.Eq{"id": request.ID}).
		ToSql()
	if err != nil {
		return fmt.Errorf("build update help request sql: %w", err)
	}

	tag, err := r.exec.Exec(ctx, sql, args...)
	if err != nil {
		return fmt.Errorf("update help request: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return repository.ErrNotFound
	}

	return nil
}

var _ port.HelpRequestRepository = (*HelpRequestRepository)(nil)
