// Package settings manages per-user notification preferences. Values are
// validated once here, at the boundary; everything downstream reads them as a
// typed record with trusted fields.
package settings

import (
	"context"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/taskpulse/backend/domain"
	"github.com/taskpulse/backend/repository"
)

type UseCase struct {
	users    repository.UserRepository
	validate *validator.Validate
	logger   *zap.Logger
}

func New(users repository.UserRepository, logger *zap.Logger) *UseCase {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &UseCase{
		users:    users,
		validate: validator.New(),
		logger:   logger,
	}
}

func (uc *UseCase) Get(ctx context.Context, userID string) (domain.NotificationSettings, error) {
	return uc.users.GetSettings(ctx, userID)
}

// Update replaces the user's preferences. Only the owning user or an admin may
// mutate them. A zero due-soon threshold falls back to the default before
// validation so partial payloads stay usable.
func (uc *UseCase) Update(ctx context.Context, actorID, userID string, s domain.NotificationSettings) (domain.NotificationSettings, error) {
	if actorID != userID {
		actor, err := uc.users.GetByID(ctx, actorID)
		if err != nil {
			return domain.NotificationSettings{}, err
		}
		if !actor.IsAdmin() {
			return domain.NotificationSettings{}, domain.ErrForbidden
		}
	}

	if s.DueSoonHours == 0 {
		s.DueSoonHours = domain.DefaultNotificationSettings().DueSoonHours
	}
	if err := uc.validate.Struct(s); err != nil {
		return domain.NotificationSettings{}, domain.WrapError(domain.ErrCodeInvalid, "invalid notification settings", err)
	}

	if err := uc.users.UpdateSettings(ctx, userID, s); err != nil {
		return domain.NotificationSettings{}, err
	}
	uc.logger.Info("notification settings updated", zap.String("user_id", userID))
	return s, nil
}
