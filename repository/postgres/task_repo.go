package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/taskpulse/backend/domain"
	"github.com/taskpulse/backend/repository"
)

const taskColumns = `id, owner_id, COALESCE(project_id, ''), title, description, status, priority, due_date, start_date, tags, created_at, updated_at`

type taskRepository struct {
	pool *pgxpool.Pool
}

// NewTaskRepository returns a Postgres-backed implementation of TaskRepository.
func NewTaskRepository(pool *pgxpool.Pool) repository.TaskRepository {
	return &taskRepository{pool: pool}
}

func (r *taskRepository) GetByID(ctx context.Context, id string) (*domain.Task, error) {
	query := fmt.Sprintf(`SELECT %s FROM tasks WHERE id = $1`, taskColumns)
	row := r.pool.QueryRow(ctx, query, id)
	return scanTask(row)
}

func (r *taskRepository) Create(ctx context.Context, task *domain.Task) (*domain.Task, error) {
	if task == nil {
		return nil, domain.ErrInvalidPayload
	}
	if task.ID == "" {
		task.ID = uuid.NewString()
	}

	const query = `
	INSERT INTO tasks (id, owner_id, project_id, title, description, status, priority, due_date, start_date, tags)
	VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
	RETURNING created_at, updated_at
	`

	if err := r.pool.QueryRow(ctx, query,
		task.ID,
		task.OwnerID,
		nullString(task.ProjectID),
		task.Title,
		task.Description,
		task.Status,
		task.Priority,
		nullTime(task.DueDate),
		nullTime(task.StartDate),
		task.Tags,
	).Scan(&task.CreatedAt, &task.UpdatedAt); err != nil {
		return nil, err
	}

	return task, nil
}

// Update commits the full row under the same status guard as
// ConditionalSetStatus: the write lands only if the stored status still
// matches the caller's snapshot, so a concurrent completion is never
// reverted by a stale edit.
func (r *taskRepository) Update(ctx context.Context, task *domain.Task, expected string) (bool, error) {
	if task == nil {
		return false, domain.ErrInvalidPayload
	}

	const query = `
	UPDATE tasks
	SET title = $2,
		description = $3,
		status = $4,
		priority = $5,
		due_date = $6,
		start_date = $7,
		tags = $8,
		updated_at = NOW()
	WHERE id = $1 AND status = $9
	RETURNING updated_at
	`

	if err := r.pool.QueryRow(ctx, query,
		task.ID,
		task.Title,
		task.Description,
		task.Status,
		task.Priority,
		nullTime(task.DueDate),
		nullTime(task.StartDate),
		task.Tags,
		expected,
	).Scan(&task.UpdatedAt); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			// Missing row and failed guard are indistinguishable here; the
			// caller re-reads and gets ErrTaskNotFound when the row is gone.
			return false, nil
		}
		return false, err
	}

	return true, nil
}

func (r *taskRepository) Delete(ctx context.Context, id string) error {
	const query = `DELETE FROM tasks WHERE id = $1`
	tag, err := r.pool.Exec(ctx, query, id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrTaskNotFound
	}
	return nil
}

func (r *taskRepository) ListPendingDue(ctx context.Context, now time.Time) ([]domain.Task, error) {
	query := fmt.Sprintf(`
	SELECT %s
	FROM tasks
	WHERE status = 'pending'
	  AND (start_date IS NULL OR start_date <= $1)
	`, taskColumns)

	rows, err := r.pool.Query(ctx, query, now)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return collectTasks(rows)
}

func (r *taskRepository) ListOpenDueWithin(ctx context.Context, now time.Time, window time.Duration) ([]domain.Task, error) {
	query := fmt.Sprintf(`
	SELECT %s
	FROM tasks
	WHERE status <> 'completed'
	  AND due_date IS NOT NULL
	  AND due_date > $1
	  AND due_date <= $2
	`, taskColumns)

	rows, err := r.pool.Query(ctx, query, now, now.Add(window))
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return collectTasks(rows)
}

// ConditionalSetStatus only transitions when the stored status still matches
// expected, so a concurrent edit is never overwritten. A failed guard is not
// an error; the caller simply lost the race.
func (r *taskRepository) ConditionalSetStatus(ctx context.Context, id, expected, next string) (bool, error) {
	const query = `
	UPDATE tasks
	SET status = $3, updated_at = NOW()
	WHERE id = $1 AND status = $2
	`
	tag, err := r.pool.Exec(ctx, query, id, expected, next)
	if err != nil {
		return false, err
	}
	return tag.RowsAffected() > 0, nil
}

func (r *taskRepository) Search(ctx context.Context, params repository.SearchParams) (*repository.SearchResult, error) {
	query := fmt.Sprintf(`
	SELECT %s, COUNT(*) OVER() AS total
	FROM tasks
	WHERE ($1 = '' OR to_tsvector('english', title || ' ' || COALESCE(description, '')) @@ plainto_tsquery('english', $1))
	  AND (cardinality($2::text[]) = 0 OR tags && $2::text[])
	  AND ($3 = '' OR status = $3)
	  AND ($4 = '' OR priority = $4)
	  AND ($5::timestamptz IS NULL OR due_date >= $5)
	  AND ($6::timestamptz IS NULL OR due_date <= $6)
	  AND ($7 = '' OR owner_id = $7)
	ORDER BY %s
	LIMIT $8 OFFSET $9
	`, taskColumns, orderClause(params.SortBy, params.SortOrder))

	size := clampLimit(params.Size)
	page := params.Page
	if page <= 0 {
		page = 1
	}

	tags := params.Tags
	if tags == nil {
		tags = []string{}
	}

	rows, err := r.pool.Query(ctx, query,
		params.Query,
		tags,
		params.Status,
		params.Priority,
		nullTime(params.DueFrom),
		nullTime(params.DueTo),
		params.OwnerID,
		size,
		(page-1)*size,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	result := &repository.SearchResult{Tasks: []domain.Task{}}
	for rows.Next() {
		task, total, err := scanTaskWithTotal(rows)
		if err != nil {
			return nil, err
		}
		result.Tasks = append(result.Tasks, *task)
		result.Total = total
	}
	return result, rows.Err()
}

// orderClause whitelists sortable columns; anything unknown falls back to
// creation order so user input never reaches the SQL text.
func orderClause(sortBy, sortOrder string) string {
	column := "created_at"
	switch sortBy {
	case "due_date", "priority", "title", "updated_at", "created_at":
		column = sortBy
	}
	direction := "DESC"
	if sortOrder == "asc" {
		direction = "ASC"
	}
	return fmt.Sprintf("%s %s", column, direction)
}

func scanTask(row pgx.Row) (*domain.Task, error) {
	var task domain.Task
	if err := row.Scan(
		&task.ID,
		&task.OwnerID,
		&task.ProjectID,
		&task.Title,
		&task.Description,
		&task.Status,
		&task.Priority,
		&task.DueDate,
		&task.StartDate,
		&task.Tags,
		&task.CreatedAt,
		&task.UpdatedAt,
	); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrTaskNotFound
		}
		return nil, err
	}
	return &task, nil
}

func scanTaskWithTotal(row pgx.Row) (*domain.Task, int, error) {
	var task domain.Task
	var total int
	if err := row.Scan(
		&task.ID,
		&task.OwnerID,
		&task.ProjectID,
		&task.Title,
		&task.Description,
		&task.Status,
		&task.Priority,
		&task.DueDate,
		&task.StartDate,
		&task.Tags,
		&task.CreatedAt,
		&task.UpdatedAt,
		&total,
	); err != nil {
		return nil, 0, err
	}
	return &task, total, nil
}

func collectTasks(rows pgx.Rows) ([]domain.Task, error) {
	var tasks []domain.Task
	for rows.Next() {
		task, err := scanTask(rows)
		if err != nil {
			return nil, err
		}
		tasks = append(tasks, *task)
	}
	return tasks, rows.Err()
}
