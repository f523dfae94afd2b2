package repository

import (
	"context"

	"github.com/taskpulse/backend/domain"
)

type NotificationFilter struct {
	UserID     string
	UnreadOnly bool
	Limit      int
	Offset     int
}

type NotificationRepository interface {
	// Create persists the notification. When the record carries a dedup key
	// that already exists, Create returns (false, nil) and stores nothing,
	// making at-most-once emission safe under concurrent ticks.
	Create(ctx context.Context, n *domain.Notification) (created bool, err error)

	List(ctx context.Context, filter NotificationFilter) ([]domain.Notification, error)

	GetByID(ctx context.Context, id string) (*domain.Notification, error)

	// MarkRead flips the is_read flag, the only mutable field.
	MarkRead(ctx context.Context, id string) error
}
