package usecase

import (
	"context"

	"github.com/taskpulse/backend/domain"
)

// Buffered operation names shared with the offline buffer.
const (
	OperationCreate = "create"
	OperationUpdate = "update"
	OperationDelete = "delete"
)

// OperationBuffer parks writes that failed against primary storage so they can
// be retried on a later drain tick. Use cases stay storage-agnostic.
type OperationBuffer interface {
	BufferTask(ctx context.Context, operation string, task *domain.Task) error
	BufferNotification(ctx context.Context, n *domain.Notification) error
}
