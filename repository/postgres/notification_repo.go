package postgres

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/taskpulse/backend/domain"
	"github.com/taskpulse/backend/repository"
)

type notificationRepository struct {
	pool *pgxpool.Pool
}

// NewNotificationRepository returns a Postgres-backed notification repository.
func NewNotificationRepository(pool *pgxpool.Pool) repository.NotificationRepository {
	return &notificationRepository{pool: pool}
}

// Create inserts the notification. The unique index on dedup_key makes the
// insert a no-op when the same logical event was already recorded, which is
// what keeps repeated ticks idempotent even under concurrent schedulers.
func (r *notificationRepository) Create(ctx context.Context, n *domain.Notification) (bool, error) {
	if n == nil || n.UserID == "" || n.Message == "" {
		return false, domain.ErrInvalidPayload
	}
	if n.ID == "" {
		n.ID = uuid.NewString()
	}

	const query = `
	INSERT INTO notifications (id, user_id, task_id, message, category, kind, related_id, dedup_key, created_at)
	VALUES ($1, $2, $3, $4, $5, $6, $7, $8, COALESCE($9, NOW()))
	ON CONFLICT (dedup_key) WHERE dedup_key IS NOT NULL DO NOTHING
	`

	tag, err := r.pool.Exec(ctx, query,
		n.ID,
		n.UserID,
		nullString(n.TaskID),
		n.Message,
		n.Category,
		n.Kind,
		nullString(n.RelatedID),
		nullString(n.DedupKey),
		nullTime(&n.CreatedAt),
	)
	if err != nil {
		return false, err
	}
	return tag.RowsAffected() > 0, nil
}

func (r *notificationRepository) List(ctx context.Context, filter repository.NotificationFilter) ([]domain.Notification, error) {
	const query = `
	SELECT id, user_id, COALESCE(task_id, ''), message, category, kind,
	       COALESCE(related_id, ''), COALESCE(dedup_key, ''), is_read, created_at
	FROM notifications
	WHERE user_id = $1
	  AND (NOT $2 OR is_read = FALSE)
	ORDER BY created_at DESC
	LIMIT $3 OFFSET $4
	`
	rows, err := r.pool.Query(ctx, query, filter.UserID, filter.UnreadOnly, clampLimit(filter.Limit), filter.Offset)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var notifications []domain.Notification
	for rows.Next() {
		n, err := scanNotification(rows)
		if err != nil {
			return nil, err
		}
		notifications = append(notifications, *n)
	}
	return notifications, rows.Err()
}

func (r *notificationRepository) GetByID(ctx context.Context, id string) (*domain.Notification, error) {
	const query = `
	SELECT id, user_id, COALESCE(task_id, ''), message, category, kind,
	       COALESCE(related_id, ''), COALESCE(dedup_key, ''), is_read, created_at
	FROM notifications
	WHERE id = $1
	`
	return scanNotification(r.pool.QueryRow(ctx, query, id))
}

func (r *notificationRepository) MarkRead(ctx context.Context, id string) error {
	const query = `UPDATE notifications SET is_read = TRUE WHERE id = $1`
	tag, err := r.pool.Exec(ctx, query, id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrNotificationNotFound
	}
	return nil
}

func scanNotification(row pgx.Row) (*domain.Notification, error) {
	var n domain.Notification
	if err := row.Scan(
		&n.ID,
		&n.UserID,
		&n.TaskID,
		&n.Message,
		&n.Category,
		&n.Kind,
		&n.RelatedID,
		&n.DedupKey,
		&n.IsRead,
		&n.CreatedAt,
	); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrNotificationNotFound
		}
		return nil, err
	}
	return &n, nil
}
