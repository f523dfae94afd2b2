package services

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/taskpulse/backend/domain"
	"github.com/taskpulse/backend/internal/infrastructure/buffer"
	"github.com/taskpulse/backend/repository"
	"github.com/taskpulse/backend/usecase"
)

// ConnectionHealth abstracts the connection monitor functionality.
type ConnectionHealth interface {
	IsOnline() bool
}

// ProcessorConfig controls how the buffer is drained.
type ProcessorConfig struct {
	BatchSize  int
	MaxRetries int
}

// BufferProcessor replays writes that were parked while Postgres was down.
// Replayed transitions are safe to repeat: notification creates dedup on
// their key and task writes are full-row upserts.
type BufferProcessor struct {
	store         *buffer.Store
	monitor       ConnectionHealth
	tasks         repository.TaskRepository
	notifications repository.NotificationRepository
	logger        *zap.Logger
	cfg           ProcessorConfig
}

func NewBufferProcessor(
	store *buffer.Store,
	monitor ConnectionHealth,
	tasks repository.TaskRepository,
	notifications repository.NotificationRepository,
	logger *zap.Logger,
	cfg ProcessorConfig,
) *BufferProcessor {
	if cfg.BatchSize <= 0 {
		cfg.BatchSize = 50
	}
	if cfg.MaxRetries <= 0 {
		cfg.MaxRetries = 3
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	return &BufferProcessor{
		store:         store,
		monitor:       monitor,
		tasks:         tasks,
		notifications: notifications,
		logger:        logger,
		cfg:           cfg,
	}
}

// Drain processes buffered items synchronously. Failed items are requeued
// until they exhaust their retry budget, then dropped.
func (bp *BufferProcessor) Drain(ctx context.Context) error {
	if bp == nil || bp.store == nil {
		return nil
	}
	if bp.monitor != nil && !bp.monitor.IsOnline() {
		bp.logger.Debug("skipping buffer drain (offline)")
		return nil
	}

	items, err := bp.store.GetBatch(bp.cfg.BatchSize)
	if err != nil {
		return err
	}

	for _, item := range items {
		if err := bp.processItem(ctx, item); err != nil {
			bp.logger.Error("failed to process buffer item",
				zap.String("item_id", item.ID),
				zap.String("entity", item.Entity),
				zap.Error(err))

			item.Retries++
			if item.Retries >= bp.cfg.MaxRetries {
				bp.logger.Warn("dropping buffer item (max retries reached)", zap.String("item_id", item.ID))
				_ = bp.store.Remove(item)
				continue
			}

			if err := bp.store.Remove(item); err != nil {
				bp.logger.Warn("failed to remove buffer item", zap.Error(err))
			}
			if err := bp.store.Requeue(item); err != nil {
				bp.logger.Error("failed to requeue buffer item", zap.Error(err))
			}
			continue
		}

		if err := bp.store.Remove(item); err != nil {
			bp.logger.Warn("failed to purge processed buffer item", zap.Error(err))
		}
	}
	return nil
}

// BufferOperation attempts to run the operation immediately and falls back to persisting it.
func (bp *BufferProcessor) BufferOperation(ctx context.Context, item buffer.Item) error {
	if bp == nil || bp.store == nil {
		return fmt.Errorf("buffer processor not configured")
	}

	if bp.monitor == nil || bp.monitor.IsOnline() {
		if err := bp.processItem(ctx, item); err == nil {
			return nil
		} else {
			bp.logger.Warn("immediate processing failed, buffering", zap.Error(err))
		}
	}
	return bp.store.Enqueue(item)
}

// Cleanup drops buffered items older than the cutoff.
func (bp *BufferProcessor) Cleanup(olderThan time.Time) {
	if bp == nil || bp.store == nil {
		return
	}
	if err := bp.store.Cleanup(olderThan); err != nil {
		bp.logger.Warn("buffer cleanup failed", zap.Error(err))
	}
}

// Size returns the number of buffered items.
func (bp *BufferProcessor) Size() int {
	if bp == nil || bp.store == nil {
		return 0
	}
	size, err := bp.store.Size()
	if err != nil {
		return 0
	}
	return size
}

func (bp *BufferProcessor) processItem(ctx context.Context, item buffer.Item) error {
	if ctx == nil {
		ctx = context.Background()
	}

	switch item.Entity {
	case buffer.EntityNotification:
		var n domain.Notification
		if err := json.Unmarshal(item.Data, &n); err != nil {
			return err
		}
		// created=false means the dedup key already landed through another
		// path; the replay is done either way.
		_, err := bp.notifications.Create(ctx, &n)
		return err

	case buffer.EntityTask:
		var task domain.Task
		if err := json.Unmarshal(item.Data, &task); err != nil {
			return err
		}
		switch item.Operation {
		case usecase.OperationCreate:
			_, err := bp.tasks.Create(ctx, &task)
			return err
		case usecase.OperationUpdate:
			// Replays go through the same guard as live edits: read the
			// current status and commit against it. A row that was completed
			// or deleted while the update sat in the buffer wins over the
			// parked edit; completed is terminal.
			current, err := bp.tasks.GetByID(ctx, task.ID)
			if err != nil {
				if errors.Is(err, domain.ErrTaskNotFound) {
					bp.logger.Debug("discarding buffered update for deleted task", zap.String("task_id", task.ID))
					return nil
				}
				return err
			}
			if current.IsCompleted() && task.Status != domain.StatusCompleted {
				bp.logger.Debug("discarding buffered update, task completed meanwhile", zap.String("task_id", task.ID))
				return nil
			}
			ok, err := bp.tasks.Update(ctx, &task, current.Status)
			if err != nil {
				return err
			}
			if !ok {
				bp.logger.Debug("discarding stale buffered update", zap.String("task_id", task.ID))
			}
			return nil
		case usecase.OperationDelete:
			return bp.tasks.Delete(ctx, task.ID)
		default:
			return fmt.Errorf("unsupported operation %s", item.Operation)
		}
	default:
		return fmt.Errorf("unsupported entity %s", item.Entity)
	}
}
