package repository

import (
	"context"
	"time"

	"github.com/taskpulse/backend/domain"
)

// SearchParams describes a task search query. Logically identical queries must
// map to the same cache key regardless of argument ordering or how absent
// optional fields are represented; see the search use case.
type SearchParams struct {
	Query     string
	Tags      []string
	Status    string
	Priority  string
	DueFrom   *time.Time
	DueTo     *time.Time
	OwnerID   string
	Page      int
	Size      int
	SortBy    string
	SortOrder string
}

// SearchResult is one page of matching tasks plus the unpaged total.
type SearchResult struct {
	Tasks []domain.Task `json:"tasks"`
	Total int           `json:"total"`
}

type TaskRepository interface {
	GetByID(ctx context.Context, id string) (*domain.Task, error)
	Create(ctx context.Context, task *domain.Task) (*domain.Task, error)

	// Update writes the full row only if the stored status still matches
	// expected, the same guard discipline as ConditionalSetStatus. It returns
	// false (and no error) when the guard fails: the caller's snapshot went
	// stale and must be re-read, never written back.
	Update(ctx context.Context, task *domain.Task, expected string) (bool, error)

	Delete(ctx context.Context, id string) error

	// ListPendingDue returns tasks stored as pending whose start date has
	// arrived and which should therefore be swept to active.
	ListPendingDue(ctx context.Context, now time.Time) ([]domain.Task, error)

	// ListOpenDueWithin returns non-completed tasks whose due date falls
	// inside (now, now+window]. Pending tasks are included on purpose: the
	// due-soon check and the daily summary both warn about tasks that have
	// not started yet.
	ListOpenDueWithin(ctx context.Context, now time.Time, window time.Duration) ([]domain.Task, error)

	// ConditionalSetStatus transitions a task only if its stored status still
	// matches expected. It returns false (and no error) when the guard fails,
	// so a concurrent explicit edit is never silently overwritten.
	ConditionalSetStatus(ctx context.Context, id, expected, next string) (bool, error)

	Search(ctx context.Context, params SearchParams) (*SearchResult, error)
}
