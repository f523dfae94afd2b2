// Package lifecycle computes task status transitions. It is the only writer
// of task status besides direct user edits, and both go through the same
// conditional-update discipline so concurrent writes never clobber each other.
package lifecycle

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/taskpulse/backend/domain"
	"github.com/taskpulse/backend/repository"
)

// ActivationNotifier receives pending->active transitions committed by a
// sweep. Implemented by the notification engine.
type ActivationNotifier interface {
	TaskActivated(ctx context.Context, task domain.Task)
}

// Patch describes a partial task update. Nil pointers leave the field
// untouched; the Set* flags distinguish "clear this date" from "keep it".
type Patch struct {
	Title        *string
	Description  *string
	Priority     *string
	Status       *string
	DueDate      *time.Time
	SetDueDate   bool
	StartDate    *time.Time
	SetStartDate bool
	Tags         []string
	SetTags      bool
}

// Transition records a single status change committed during a sweep.
type Transition struct {
	Task domain.Task
	From string
	To   string
}

type Service struct {
	tasks    repository.TaskRepository
	notifier ActivationNotifier
	logger   *zap.Logger
}

func New(tasks repository.TaskRepository, notifier ActivationNotifier, logger *zap.Logger) *Service {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Service{
		tasks:    tasks,
		notifier: notifier,
		logger:   logger,
	}
}

// Evaluate computes the status a task should hold at the given instant. It is
// a pure function: completed is terminal, a pending task whose start date has
// arrived (or which has none) becomes active, and everything else keeps its
// current status. Due-date passage alone never completes a task.
func Evaluate(task *domain.Task, now time.Time) string {
	if task == nil {
		return ""
	}
	if task.Status == domain.StatusCompleted {
		return domain.StatusCompleted
	}
	if task.Status == domain.StatusPending {
		if task.StartDate == nil || !task.StartDate.After(now) {
			return domain.StatusActive
		}
	}
	return task.Status
}

// InitialStatus decides the status of a newly created task: pending when its
// start date lies in the future, active otherwise.
func InitialStatus(startDate *time.Time, now time.Time) string {
	if startDate != nil && startDate.After(now) {
		return domain.StatusPending
	}
	return domain.StatusActive
}

// ApplyUpdate merges the patch into a copy of the task and resolves the
// resulting status. An explicit status in the patch wins over the
// pending/active inference; a changed start date re-runs Evaluate against the
// new value. Requests that would move a completed task backward are rejected
// without mutation: the unchanged task is returned along with ErrStaleStatus
// so callers can surface "no change" instead of a failure.
func (s *Service) ApplyUpdate(task *domain.Task, patch Patch, now time.Time) (*domain.Task, error) {
	if task == nil {
		return nil, domain.ErrInvalidPayload
	}

	updated := *task
	updated.Tags = append([]string(nil), task.Tags...)

	if patch.Title != nil {
		updated.Title = *patch.Title
	}
	if patch.Description != nil {
		updated.Description = *patch.Description
	}
	if patch.Priority != nil {
		updated.Priority = *patch.Priority
	}
	if patch.SetDueDate {
		updated.DueDate = patch.DueDate
	}
	if patch.SetStartDate {
		updated.StartDate = patch.StartDate
	}
	if patch.SetTags {
		updated.Tags = append([]string(nil), patch.Tags...)
	}

	switch {
	case patch.Status != nil:
		next := *patch.Status
		if !domain.ValidStatus(next) {
			return nil, domain.ErrInvalidStatus
		}
		if task.IsCompleted() && next != domain.StatusCompleted {
			return task, domain.ErrStaleStatus
		}
		updated.Status = next
	case patch.SetStartDate:
		updated.Status = Evaluate(&updated, now)
	default:
		updated.Status = Evaluate(&updated, now)
	}

	updated.UpdatedAt = now
	return &updated, nil
}

// Sweep promotes pending tasks whose start date has arrived. Each task is
// committed through a guarded conditional update: if a concurrent edit moved
// the task out of pending, the transition is skipped and no activation
// notification fires. A single task's failure never aborts the rest of the
// batch, and a failed read simply means no eligible tasks this tick.
func (s *Service) Sweep(ctx context.Context, now time.Time) []Transition {
	due, err := s.tasks.ListPendingDue(ctx, now)
	if err != nil {
		s.logger.Warn("sweep query failed, skipping tick", zap.Error(err))
		return nil
	}

	var transitions []Transition
	for i := range due {
		task := due[i]
		ok, err := s.tasks.ConditionalSetStatus(ctx, task.ID, domain.StatusPending, domain.StatusActive)
		if err != nil {
			s.logger.Error("sweep transition failed",
				zap.String("task_id", task.ID),
				zap.Error(err))
			continue
		}
		if !ok {
			// Lost the race to a concurrent explicit edit; their write wins.
			s.logger.Debug("sweep transition skipped, status changed concurrently",
				zap.String("task_id", task.ID))
			continue
		}

		task.Status = domain.StatusActive
		transitions = append(transitions, Transition{
			Task: task,
			From: domain.StatusPending,
			To:   domain.StatusActive,
		})

		if s.notifier != nil {
			s.notifier.TaskActivated(ctx, task)
		}
	}

	if len(transitions) > 0 {
		s.logger.Info("activation sweep complete",
			zap.Int("activated", len(transitions)),
			zap.Int("eligible", len(due)))
	}
	return transitions
}
