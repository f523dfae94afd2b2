package repository

import (
	"context"

	"github.com/taskpulse/backend/domain"
)

type UserRepository interface {
	GetByID(ctx context.Context, id string) (*domain.User, error)

	// GetSettings reads the user's notification preferences. Implementations
	// must always return the latest stored value; preferences are never cached.
	GetSettings(ctx context.Context, userID string) (domain.NotificationSettings, error)

	UpdateSettings(ctx context.Context, userID string, settings domain.NotificationSettings) error
}
