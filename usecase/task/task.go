package task

import (
	"context"
	"errors"
	"time"

	"go.uber.org/zap"

	"github.com/taskpulse/backend/domain"
	"github.com/taskpulse/backend/repository"
	"github.com/taskpulse/backend/usecase"
	"github.com/taskpulse/backend/usecase/lifecycle"
	"github.com/taskpulse/backend/usecase/notify"
)

// UseCase coordinates direct task mutations. Status never changes here except
// through the state machine, which keeps the sweep and user edits on the same
// conditional-update discipline.
type UseCase struct {
	tasks   repository.TaskRepository
	machine *lifecycle.Service
	engine  *notify.Engine
	buffer  usecase.OperationBuffer
	logger  *zap.Logger
}

func New(
	tasks repository.TaskRepository,
	machine *lifecycle.Service,
	engine *notify.Engine,
	buffer usecase.OperationBuffer,
	logger *zap.Logger,
) *UseCase {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &UseCase{
		tasks:   tasks,
		machine: machine,
		engine:  engine,
		buffer:  buffer,
		logger:  logger,
	}
}

func (uc *UseCase) GetTask(ctx context.Context, id string) (*domain.Task, error) {
	return uc.tasks.GetByID(ctx, id)
}

// CreateTask stores a new task. Its initial status is inferred from the start
// date: pending while the start date lies in the future, active otherwise.
func (uc *UseCase) CreateTask(ctx context.Context, task *domain.Task, actorID string) (*domain.Task, error) {
	if task == nil || task.Title == "" || task.OwnerID == "" {
		return nil, domain.ErrInvalidPayload
	}

	now := time.Now()
	task.Status = lifecycle.InitialStatus(task.StartDate, now)
	if task.Priority == "" {
		task.Priority = domain.PriorityMedium
	}

	created, err := uc.tasks.Create(ctx, task)
	if err != nil {
		if uc.shouldBuffer(ctx, usecase.OperationCreate, task) {
			return task, nil
		}
		return nil, err
	}

	if uc.engine != nil {
		uc.engine.Event(ctx, notify.EventCreated, *created, actorID)
	}
	return created, nil
}

// UpdateTask applies a partial edit through the state machine. A stale status
// request (for example reopening a completed task) is surfaced as "no change":
// the stored task comes back untouched, without an error. The row write is
// guarded on the snapshot status: if a sweep or an explicit completion lands
// between the read and the write, the edit is re-applied against the
// refreshed task instead of clobbering the concurrent transition.
func (uc *UseCase) UpdateTask(ctx context.Context, id string, patch lifecycle.Patch, actorID string) (*domain.Task, error) {
	for attempt := 0; attempt < 2; attempt++ {
		current, err := uc.tasks.GetByID(ctx, id)
		if err != nil {
			return nil, err
		}

		updated, err := uc.machine.ApplyUpdate(current, patch, time.Now())
		if err != nil {
			if errors.Is(err, domain.ErrStaleStatus) {
				uc.logger.Debug("stale status update ignored", zap.String("task_id", id))
				return current, nil
			}
			return nil, err
		}

		ok, err := uc.tasks.Update(ctx, updated, current.Status)
		if err != nil {
			if uc.shouldBuffer(ctx, usecase.OperationUpdate, updated) {
				return updated, nil
			}
			return nil, err
		}
		if !ok {
			uc.logger.Debug("task changed concurrently, retrying update", zap.String("task_id", id))
			continue
		}

		if uc.engine != nil {
			uc.engine.Event(ctx, notify.EventUpdated, *updated, actorID)
		}
		return updated, nil
	}
	return nil, domain.ErrStaleStatus
}

// CompleteTask is the explicit completion action, the only way a task reaches
// completed. The write is guarded: if a sweep activates the task between the
// read and the write, the guard fails once and the completion is retried
// against the refreshed status.
func (uc *UseCase) CompleteTask(ctx context.Context, id string, actorID string) (*domain.Task, error) {
	for attempt := 0; attempt < 2; attempt++ {
		current, err := uc.tasks.GetByID(ctx, id)
		if err != nil {
			return nil, err
		}
		if current.IsCompleted() {
			return current, nil
		}

		ok, err := uc.tasks.ConditionalSetStatus(ctx, id, current.Status, domain.StatusCompleted)
		if err != nil {
			return nil, err
		}
		if ok {
			current.Status = domain.StatusCompleted
			if uc.engine != nil {
				uc.engine.Event(ctx, notify.EventUpdated, *current, actorID)
			}
			return current, nil
		}
	}
	return nil, domain.ErrStaleStatus
}

func (uc *UseCase) DeleteTask(ctx context.Context, id string) error {
	if err := uc.tasks.Delete(ctx, id); err != nil {
		if errors.Is(err, domain.ErrTaskNotFound) {
			return err
		}
		task := &domain.Task{ID: id}
		if uc.shouldBuffer(ctx, usecase.OperationDelete, task) {
			return nil
		}
		return err
	}
	return nil
}

// CommentAdded emits the comment notification for a task. Comment persistence
// belongs to the CRUD services in front of this core; only the notification
// side effect lives here.
func (uc *UseCase) CommentAdded(ctx context.Context, taskID, actorID string) error {
	task, err := uc.tasks.GetByID(ctx, taskID)
	if err != nil {
		return err
	}
	if uc.engine != nil {
		uc.engine.Event(ctx, notify.EventComment, *task, actorID)
	}
	return nil
}

func (uc *UseCase) shouldBuffer(ctx context.Context, operation string, task *domain.Task) bool {
	if uc.buffer == nil {
		return false
	}
	if err := uc.buffer.BufferTask(ctx, operation, task); err != nil {
		uc.logger.Error("failed to buffer task operation", zap.String("operation", operation), zap.Error(err))
		return false
	}
	uc.logger.Warn("task operation buffered", zap.String("operation", operation))
	return true
}
