package postgres

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/taskpulse/backend/domain"
	"github.com/taskpulse/backend/repository"
)

type userRepository struct {
	pool *pgxpool.Pool
}

// NewUserRepository instantiates a Postgres-backed user repository.
func NewUserRepository(pool *pgxpool.Pool) repository.UserRepository {
	return &userRepository{pool: pool}
}

func (r *userRepository) GetByID(ctx context.Context, id string) (*domain.User, error) {
	const query = `
	SELECT id, email, role, status, COALESCE(push_token, ''),
	       email_enabled, push_enabled, due_soon_hours, daily_summary,
	       created_at, updated_at
	FROM users
	WHERE id = $1
	`
	row := r.pool.QueryRow(ctx, query, id)

	var user domain.User
	if err := row.Scan(
		&user.ID,
		&user.Email,
		&user.Role,
		&user.Status,
		&user.PushToken,
		&user.Settings.EmailEnabled,
		&user.Settings.PushEnabled,
		&user.Settings.DueSoonHours,
		&user.Settings.DailySummary,
		&user.CreatedAt,
		&user.UpdatedAt,
	); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrUserNotFound
		}
		return nil, err
	}
	return &user, nil
}

// GetSettings always hits the store; preference reads are deliberately
// uncached so the engine sees the latest value on every evaluation.
func (r *userRepository) GetSettings(ctx context.Context, userID string) (domain.NotificationSettings, error) {
	const query = `
	SELECT email_enabled, push_enabled, due_soon_hours, daily_summary
	FROM users
	WHERE id = $1
	`
	row := r.pool.QueryRow(ctx, query, userID)

	var settings domain.NotificationSettings
	if err := row.Scan(
		&settings.EmailEnabled,
		&settings.PushEnabled,
		&settings.DueSoonHours,
		&settings.DailySummary,
	); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return domain.NotificationSettings{}, domain.ErrUserNotFound
		}
		return domain.NotificationSettings{}, err
	}
	return settings, nil
}

func (r *userRepository) UpdateSettings(ctx context.Context, userID string, settings domain.NotificationSettings) error {
	const query = `
	UPDATE users
	SET email_enabled = $2,
		push_enabled = $3,
		due_soon_hours = $4,
		daily_summary = $5,
		updated_at = NOW()
	WHERE id = $1
	`
	tag, err := r.pool.Exec(ctx, query,
		userID,
		settings.EmailEnabled,
		settings.PushEnabled,
		settings.DueSoonHours,
		settings.DailySummary,
	)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrUserNotFound
	}
	return nil
}
