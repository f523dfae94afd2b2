package notify

import (
	"context"

	"github.com/taskpulse/backend/domain"
	"github.com/taskpulse/backend/repository"
)

// ListForUser returns a page of the user's notifications, newest first.
func (e *Engine) ListForUser(ctx context.Context, userID string, unreadOnly bool, limit, offset int) ([]domain.Notification, error) {
	return e.notifications.List(ctx, repository.NotificationFilter{
		UserID:     userID,
		UnreadOnly: unreadOnly,
		Limit:      limit,
		Offset:     offset,
	})
}

// MarkRead flips the is_read flag. Only the owning user or an admin may do
// so; everything else about a notification is immutable.
func (e *Engine) MarkRead(ctx context.Context, actorID, notificationID string) error {
	n, err := e.notifications.GetByID(ctx, notificationID)
	if err != nil {
		return err
	}
	if n.UserID != actorID {
		actor, err := e.users.GetByID(ctx, actorID)
		if err != nil {
			return err
		}
		if !actor.IsAdmin() {
			return domain.ErrForbidden
		}
	}
	return e.notifications.MarkRead(ctx, notificationID)
}
