package postgres

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	squirrel "github.com/Masterminds/squirrel"
	"github.com/jackc/pgx/v5"

	"github.com/santhoshmp/learningplanner/internal/core/domain"
	"github.com/santhoshmp/learningplanner/internal/core/port"
)

var activityColumns = []string{
	"id",
	"principal_id",
	"session_id",
	"kind",
	"subject",
	"content_kind",
	"content",
	"occurred_at",
}

// ActivityRepository implements port.ActivityRepository backed by PostgreSQL.
// The activity log is append-only.
type ActivityRepository struct {
	exec    pgExecutor
	builder squirrel.StatementBuilderType
}

// NewActivityRepository constructs an ActivityRepository.
func NewActivityRepository(exec pgExecutor) *ActivityRepository {
	return &ActivityRepository{
		exec:    exec,
		builder: squirrel.StatementBuilder.PlaceholderFormat(squirrel.Dollar),
	}
}

type activityContentRecord struct {
	Quiz        *domain.QuizContent        `json:"quiz,omitempty"`
	Interactive *domain.InteractiveContent `json:"interactive,omitempty"`
	Text        *domain.TextContent        `json:"text,omitempty"`
}

func marshalActivityContent(content domain.ActivityContent) ([]byte, error) {
	payload, err := json.Marshal(activityContentRecord{
		Quiz:        content.Quiz,
		Interactive: content.Interactive,
		Text:        content.Text,
	})
	if err != nil {
		return nil, fmt.Errorf("marshal activity content: %w", err)
	}
	return payload, nil
}

func unmarshalActivityContent(kind domain.ContentKind, raw []byte) (domain.ActivityContent, error) {
	content := domain.ActivityContent{Kind: kind}
	if len(raw) == 0 {
		return content, nil
	}

	var rec activityContentRecord
	if err := json.Unmarshal(raw, &rec); err != nil {
		return content, fmt.Errorf("unmarshal activity content: %w", err)
	}

	content.Quiz = rec.Quiz
	content.Interactive = rec.Interactive
	content.Text = rec.Text
	return content, nil
}

// Append inserts a new activity event. Events are validated by the caller and
// never updated afterwards.
func (r *ActivityRepository) Append(ctx context.Context, event domain.ActivityEvent) error {
	content, err := marshalActivityContent(event.Content)
	if err != nil {
		return err
	}

	sql, args, err := r.builder.Insert("learning.activity_events").
		Columns(activityColumns...).
		Values(
			event.ID,
			event.PrincipalID,
			event.SessionID,
			event.Kind,
			event.Subject,
			event.Content.Kind,
			content,
			event.OccurredAt,
		).
		ToSql()
	if err != nil {
		return fmt.Errorf("build insert activity event sql: %w", err)
	}

	if _, err := r.exec.Exec(ctx, sql, args...); err != nil {
		return fmt.Errorf("insert activity event: %w", err)
	}

	return nil
}

// ListByChildSince returns the child's activity events since the cutoff,
// oldest first.
func (r *ActivityRepository) ListByChildSince(ctx context.Context, childID string, since time.Time) ([]domain.ActivityEvent, error) {
	sql, args, err := r.builder.
		Select(activityColumns...).
		From("learning.activity_events").
		Where(squirrel.Eq{"principal_id": childID}).
		Where(squirrel.GtOrEq{"occurred_at": since}).
		OrderBy("occurred_at ASC").
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("build list activity events sql: %w", err)
	}

	rows, err := r.exec.Query(ctx, sql, args...)
	if err != nil {
		return nil, fmt.Errorf("query activity events: %w", err)
	}
	defer rows.Close()

	var events []domain.ActivityEvent
	for rows.Next() {
		event, err := scanActivityEvent(rows)
		if err != nil {
			return nil, err
		}
		events = append(events, *event)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate activity events: %w", err)
	}

	return events, nil
}

// CountByChild returns the all-time number of activity events for the child.
func (r *ActivityRepository) CountByChild(ctx context.Context, childID string) (int, error) {
	sql, args, err := r.builder.
		Select("COUNT(*)").
		From("learning.activity_events").
		Where(squirrel.Eq{"principal_id": childID}).
		ToSql()
	if err != nil {
		return 0, fmt.Errorf("build count activity events sql: %w", err)
	}

	var count int
	if err := r.exec.QueryRow(ctx, sql, args...).Scan(&count); err != nil {
		return 0, fmt.Errorf("count activity events: %w", err)
	}

	return count, nil
}

func scanActivityEvent(row pgx.Row) (*domain.ActivityEvent, error) {
	var (
		event       domain.ActivityEvent
		contentKind domain.ContentKind
		content     []byte
	)
	if err := row.Scan(
		&event.ID,
		&event.PrincipalID,
		&event.SessionID,
		&event.Kind,
		&event.Subject,
		&contentKind,
		&content,
		&event.OccurredAt,
	); err != nil {
		return nil, fmt.Errorf("scan activity event: %w", err)
	}

	parsed, err := unmarshalActivityContent(contentKind, content)
	if err != nil {
		return nil, err
	}
	event.Content = parsed

	return &event, nil
}

var _ port.ActivityRepository = (*ActivityRepository)(nil)
