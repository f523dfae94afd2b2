// Package notify decides which users need a notification on a given tick,
// deduplicates, persists the notification record and hands it to the delivery
// dispatcher. The stored row is the durable fact; delivery is a best-effort
// side effect that never blocks creation.
package notify

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/taskpulse/backend/domain"
	"github.com/taskpulse/backend/repository"
	"github.com/taskpulse/backend/usecase"
)

// EventKind names a user-driven event that may produce a notification.
type EventKind string

const (
	EventCreated EventKind = "created"
	EventUpdated EventKind = "updated"
	EventComment EventKind = "comment"
	EventProject EventKind = "project"
)

const defaultScanWindow = 168 * time.Hour

type Engine struct {
	tasks         repository.TaskRepository
	users         repository.UserRepository
	notifications repository.NotificationRepository
	projects      repository.ProjectRepository
	dispatcher    *Dispatcher
	buffer        usecase.OperationBuffer
	scanWindow    time.Duration
	logger        *zap.Logger
}

// NewEngine wires the notification engine. scanWindow bounds the due-soon
// store query and must cover the largest per-user threshold; zero selects the
// default of one week.
func NewEngine(
	tasks repository.TaskRepository,
	users repository.UserRepository,
	notifications repository.NotificationRepository,
	projects repository.ProjectRepository,
	dispatcher *Dispatcher,
	buffer usecase.OperationBuffer,
	scanWindow time.Duration,
	logger *zap.Logger,
) *Engine {
	if scanWindow <= 0 {
		scanWindow = defaultScanWindow
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Engine{
		tasks:         tasks,
		users:         users,
		notifications: notifications,
		projects:      projects,
		dispatcher:    dispatcher,
		buffer:        buffer,
		scanWindow:    scanWindow,
		logger:        logger,
	}
}

// DueSoonTick emits at most one due-soon notification per task whose due date
// has crossed the owner's configured threshold. Settings are read fresh for
// every task. Re-running the tick is idempotent: the dedup key on the stored
// row suppresses duplicates for the same threshold crossing.
func (e *Engine) DueSoonTick(ctx context.Context, now time.Time) {
	due, err := e.tasks.ListOpenDueWithin(ctx, now, e.scanWindow)
	if err != nil {
		e.logger.Warn("due-soon scan failed, skipping tick", zap.Error(err))
		return
	}

	for i := range due {
		task := due[i]
		settings, err := e.users.GetSettings(ctx, task.OwnerID)
		if err != nil {
			e.logger.Error("skipping task, owner settings unavailable",
				zap.String("task_id", task.ID),
				zap.String("user_id", task.OwnerID),
				zap.Error(err))
			continue
		}
		if !task.DueWithin(now, settings.DueSoonWindow()) {
			continue
		}

		e.createAndDispatch(ctx, &domain.Notification{
			UserID:    task.OwnerID,
			TaskID:    task.ID,
			Category:  domain.CategoryTask,
			Kind:      domain.KindDueSoon,
			RelatedID: task.ID,
			DedupKey:  domain.DedupKeyFor(domain.KindDueSoon, task.ID),
			Message:   fmt.Sprintf("Task %q is due in less than %d hours", task.Title, settings.DueSoonHours),
			CreatedAt: now,
		})
	}
}

// TaskActivated notifies the owner that a pending task went active. Invoked by
// the state machine right after a committed pending->active transition.
func (e *Engine) TaskActivated(ctx context.Context, task domain.Task) {
	e.createAndDispatch(ctx, &domain.Notification{
		UserID:    task.OwnerID,
		TaskID:    task.ID,
		Category:  domain.CategoryTask,
		Kind:      domain.KindActivated,
		RelatedID: task.ID,
		DedupKey:  domain.DedupKeyFor(domain.KindActivated, task.ID),
		Message:   fmt.Sprintf("Task %q is now active", task.Title),
		CreatedAt: time.Now(),
	})
}

// DailySummaryTick composes one aggregate message per opted-in user covering
// all their non-completed tasks due within the next 24 hours. One notification
// per user, never per task; a day-scoped dedup key keeps reruns idempotent.
func (e *Engine) DailySummaryTick(ctx context.Context, now time.Time) {
	due, err := e.tasks.ListOpenDueWithin(ctx, now, 24*time.Hour)
	if err != nil {
		e.logger.Warn("daily summary scan failed, skipping tick", zap.Error(err))
		return
	}

	byOwner := make(map[string][]domain.Task)
	for _, task := range due {
		byOwner[task.OwnerID] = append(byOwner[task.OwnerID], task)
	}

	for ownerID, tasks := range byOwner {
		settings, err := e.users.GetSettings(ctx, ownerID)
		if err != nil {
			e.logger.Error("skipping summary, user settings unavailable",
				zap.String("user_id", ownerID),
				zap.Error(err))
			continue
		}
		if !settings.DailySummary {
			continue
		}

		e.createAndDispatch(ctx, &domain.Notification{
			UserID:    ownerID,
			Category:  domain.CategoryTask,
			Kind:      domain.KindDailySummary,
			DedupKey:  fmt.Sprintf("%s:%s:%s", domain.KindDailySummary, ownerID, now.Format("2006-01-02")),
			Message:   summaryMessage(tasks),
			CreatedAt: now,
		})
	}
}

// Event fans a user-driven event out to its audience: the task owner for task
// and comment events, every project member for project-scoped ones. When the
// actor is the sole audience member nothing is emitted.
func (e *Engine) Event(ctx context.Context, kind EventKind, task domain.Task, actorID string) {
	audience := []string{task.OwnerID}
	category := domain.CategoryTask
	relatedID := task.ID

	switch kind {
	case EventComment:
		category = domain.CategoryComment
	case EventProject:
		category = domain.CategoryProject
		relatedID = task.ProjectID
		members, err := e.projects.GetMembers(ctx, task.ProjectID)
		if err != nil {
			e.logger.Error("project member lookup failed",
				zap.String("project_id", task.ProjectID),
				zap.Error(err))
			return
		}
		audience = members
	}

	if len(audience) == 1 && audience[0] == actorID {
		return
	}

	for _, userID := range audience {
		if userID == "" {
			continue
		}
		e.createAndDispatch(ctx, &domain.Notification{
			UserID:    userID,
			TaskID:    task.ID,
			Category:  category,
			Kind:      string(kind),
			RelatedID: relatedID,
			Message:   eventMessage(kind, task),
			CreatedAt: time.Now(),
		})
	}
}

// createAndDispatch persists the notification and then attempts delivery. A
// store failure parks the record in the offline buffer instead of losing it;
// a dedup conflict is a silent no-op. Delivery problems never surface here.
func (e *Engine) createAndDispatch(ctx context.Context, n *domain.Notification) {
	created, err := e.notifications.Create(ctx, n)
	if err != nil {
		e.logger.Error("notification create failed",
			zap.String("user_id", n.UserID),
			zap.String("kind", n.Kind),
			zap.Error(err))
		if e.buffer != nil {
			if bufErr := e.buffer.BufferNotification(ctx, n); bufErr != nil {
				e.logger.Error("failed to buffer notification", zap.Error(bufErr))
			}
		}
		return
	}
	if !created {
		return
	}

	user, err := e.users.GetByID(ctx, n.UserID)
	if err != nil {
		e.logger.Error("delivery skipped, user unavailable",
			zap.String("notification_id", n.ID),
			zap.String("user_id", n.UserID),
			zap.Error(err))
		return
	}

	if e.dispatcher != nil {
		e.dispatcher.Dispatch(ctx, *n, *user)
	}
}

func summaryMessage(tasks []domain.Task) string {
	if len(tasks) == 1 {
		return fmt.Sprintf("You have 1 task due in the next 24 hours: %q", tasks[0].Title)
	}
	return fmt.Sprintf("You have %d tasks due in the next 24 hours", len(tasks))
}

func eventMessage(kind EventKind, task domain.Task) string {
	switch kind {
	case EventCreated:
		return fmt.Sprintf("New task created: %s", task.Title)
	case EventUpdated:
		return fmt.Sprintf("Task updated: %s", task.Title)
	case EventComment:
		return fmt.Sprintf("New comment on task: %s", task.Title)
	case EventProject:
		return fmt.Sprintf("Project activity on task: %s", task.Title)
	default:
		return fmt.Sprintf("Task %s changed", task.Title)
	}
}
