package task

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/taskpulse/backend/domain"
	"github.com/taskpulse/backend/repository"
	"github.com/taskpulse/backend/usecase/lifecycle"
)

type fakeTaskRepo struct {
	tasks     map[string]*domain.Task
	createErr error
	updateErr error
	deleteErr error

	// guardScript holds the outcome of successive ConditionalSetStatus calls;
	// exhausted entries fall through to the real guard semantics.
	guardScript []bool
	guardCalls  int

	// afterGet runs once after the next snapshot read, for staging a write
	// that lands between a caller's read and its guarded commit.
	afterGet func()

	updateStale bool
	updateCalls int
}

func newFakeTaskRepo() *fakeTaskRepo {
	return &fakeTaskRepo{tasks: make(map[string]*domain.Task)}
}

func (f *fakeTaskRepo) GetByID(ctx context.Context, id string) (*domain.Task, error) {
	task, ok := f.tasks[id]
	if !ok {
		return nil, domain.ErrTaskNotFound
	}
	copied := *task
	if f.afterGet != nil {
		fn := f.afterGet
		f.afterGet = nil
		fn()
	}
	return &copied, nil
}

func (f *fakeTaskRepo) Create(ctx context.Context, task *domain.Task) (*domain.Task, error) {
	if f.createErr != nil {
		return nil, f.createErr
	}
	if task.ID == "" {
		task.ID = "generated"
	}
	copied := *task
	f.tasks[task.ID] = &copied
	return task, nil
}

func (f *fakeTaskRepo) Update(ctx context.Context, task *domain.Task, expected string) (bool, error) {
	f.updateCalls++
	if f.updateErr != nil {
		return false, f.updateErr
	}
	if f.updateStale {
		return false, nil
	}
	stored, ok := f.tasks[task.ID]
	if !ok || stored.Status != expected {
		return false, nil
	}
	copied := *task
	f.tasks[task.ID] = &copied
	return true, nil
}

func (f *fakeTaskRepo) Delete(ctx context.Context, id string) error {
	if f.deleteErr != nil {
		return f.deleteErr
	}
	if _, ok := f.tasks[id]; !ok {
		return domain.ErrTaskNotFound
	}
	delete(f.tasks, id)
	return nil
}

func (f *fakeTaskRepo) ListPendingDue(ctx context.Context, now time.Time) ([]domain.Task, error) {
	return nil, nil
}

func (f *fakeTaskRepo) ListOpenDueWithin(ctx context.Context, now time.Time, window time.Duration) ([]domain.Task, error) {
	return nil, nil
}

func (f *fakeTaskRepo) ConditionalSetStatus(ctx context.Context, id, expected, next string) (bool, error) {
	call := f.guardCalls
	f.guardCalls++
	if call < len(f.guardScript) && !f.guardScript[call] {
		return false, nil
	}
	task, ok := f.tasks[id]
	if !ok || task.Status != expected {
		return false, nil
	}
	task.Status = next
	return true, nil
}

func (f *fakeTaskRepo) Search(ctx context.Context, params repository.SearchParams) (*repository.SearchResult, error) {
	return &repository.SearchResult{}, nil
}

type fakeBuffer struct {
	operations []string
	err        error
}

func (f *fakeBuffer) BufferTask(ctx context.Context, operation string, task *domain.Task) error {
	if f.err != nil {
		return f.err
	}
	f.operations = append(f.operations, operation)
	return nil
}

func (f *fakeBuffer) BufferNotification(ctx context.Context, n *domain.Notification) error {
	return nil
}

func newUseCase(repo *fakeTaskRepo, buffer *fakeBuffer) *UseCase {
	machine := lifecycle.New(repo, nil, nil)
	if buffer == nil {
		return New(repo, machine, nil, nil, nil)
	}
	return New(repo, machine, nil, buffer, nil)
}

func ptr[T any](v T) *T { return &v }

func TestCreateTaskInfersStatus(t *testing.T) {
	repo := newFakeTaskRepo()
	uc := newUseCase(repo, nil)

	created, err := uc.CreateTask(context.Background(), &domain.Task{
		Title:   "file taxes",
		OwnerID: "u1",
	}, "u1")
	require.NoError(t, err)
	assert.Equal(t, domain.StatusActive, created.Status)
	assert.Equal(t, domain.PriorityMedium, created.Priority)

	future := time.Now().Add(48 * time.Hour)
	created, err = uc.CreateTask(context.Background(), &domain.Task{
		Title:     "prep talk",
		OwnerID:   "u1",
		StartDate: &future,
		Priority:  domain.PriorityHigh,
	}, "u1")
	require.NoError(t, err)
	assert.Equal(t, domain.StatusPending, created.Status)
	assert.Equal(t, domain.PriorityHigh, created.Priority)
}

func TestCreateTaskRejectsInvalidPayload(t *testing.T) {
	uc := newUseCase(newFakeTaskRepo(), nil)

	_, err := uc.CreateTask(context.Background(), &domain.Task{OwnerID: "u1"}, "u1")
	assert.ErrorIs(t, err, domain.ErrInvalidPayload)

	_, err = uc.CreateTask(context.Background(), &domain.Task{Title: "x"}, "u1")
	assert.ErrorIs(t, err, domain.ErrInvalidPayload)

	_, err = uc.CreateTask(context.Background(), nil, "u1")
	assert.ErrorIs(t, err, domain.ErrInvalidPayload)
}

func TestCreateTaskBuffersOnStoreFailure(t *testing.T) {
	repo := newFakeTaskRepo()
	repo.createErr = errors.New("connection refused")
	buffer := &fakeBuffer{}
	uc := newUseCase(repo, buffer)

	created, err := uc.CreateTask(context.Background(), &domain.Task{Title: "x", OwnerID: "u1"}, "u1")
	require.NoError(t, err)
	require.NotNil(t, created)
	assert.Equal(t, []string{"create"}, buffer.operations)
}

func TestUpdateTaskAppliesPatch(t *testing.T) {
	repo := newFakeTaskRepo()
	repo.tasks["t1"] = &domain.Task{ID: "t1", OwnerID: "u1", Title: "old", Status: domain.StatusActive}
	uc := newUseCase(repo, nil)

	updated, err := uc.UpdateTask(context.Background(), "t1", lifecycle.Patch{Title: ptr("new")}, "u1")
	require.NoError(t, err)
	assert.Equal(t, "new", updated.Title)
	assert.Equal(t, "new", repo.tasks["t1"].Title)
}

func TestUpdateTaskStaleStatusIsNoChange(t *testing.T) {
	repo := newFakeTaskRepo()
	repo.tasks["t1"] = &domain.Task{ID: "t1", Title: "done", Status: domain.StatusCompleted}
	uc := newUseCase(repo, nil)

	got, err := uc.UpdateTask(context.Background(), "t1", lifecycle.Patch{Status: ptr(domain.StatusActive)}, "u1")
	require.NoError(t, err)
	assert.Equal(t, domain.StatusCompleted, got.Status)
	assert.Equal(t, domain.StatusCompleted, repo.tasks["t1"].Status)
}

func TestUpdateTaskPreservesConcurrentCompletion(t *testing.T) {
	// The task is completed by another writer between UpdateTask's snapshot
	// read and its guarded commit. The first write must lose its guard; the
	// retry re-reads the completed task and the edit lands without reverting
	// the status.
	repo := newFakeTaskRepo()
	repo.tasks["t1"] = &domain.Task{ID: "t1", Title: "old", Status: domain.StatusActive}
	repo.afterGet = func() {
		repo.tasks["t1"].Status = domain.StatusCompleted
	}
	uc := newUseCase(repo, nil)

	updated, err := uc.UpdateTask(context.Background(), "t1", lifecycle.Patch{Title: ptr("new")}, "u1")
	require.NoError(t, err)
	assert.Equal(t, domain.StatusCompleted, updated.Status)
	assert.Equal(t, "new", updated.Title)
	assert.Equal(t, domain.StatusCompleted, repo.tasks["t1"].Status)
	assert.Equal(t, 2, repo.updateCalls)
}

func TestUpdateTaskStatusRequestLosesToConcurrentCompletion(t *testing.T) {
	// Same race, but the patch explicitly asks for active. After the retry
	// re-reads the completed task, the stale status request surfaces as
	// "no change" and nothing is written back.
	repo := newFakeTaskRepo()
	repo.tasks["t1"] = &domain.Task{ID: "t1", Title: "old", Status: domain.StatusActive}
	repo.afterGet = func() {
		repo.tasks["t1"].Status = domain.StatusCompleted
	}
	uc := newUseCase(repo, nil)

	got, err := uc.UpdateTask(context.Background(), "t1", lifecycle.Patch{Status: ptr(domain.StatusActive)}, "u1")
	require.NoError(t, err)
	assert.Equal(t, domain.StatusCompleted, got.Status)
	assert.Equal(t, domain.StatusCompleted, repo.tasks["t1"].Status)
	assert.Equal(t, "old", repo.tasks["t1"].Title)
}

func TestUpdateTaskGivesUpAfterRepeatedRaces(t *testing.T) {
	repo := newFakeTaskRepo()
	repo.tasks["t1"] = &domain.Task{ID: "t1", Status: domain.StatusActive}
	repo.updateStale = true
	uc := newUseCase(repo, nil)

	_, err := uc.UpdateTask(context.Background(), "t1", lifecycle.Patch{Title: ptr("new")}, "u1")
	assert.ErrorIs(t, err, domain.ErrStaleStatus)
	assert.Equal(t, 2, repo.updateCalls)
}

func TestUpdateTaskNotFound(t *testing.T) {
	uc := newUseCase(newFakeTaskRepo(), nil)

	_, err := uc.UpdateTask(context.Background(), "missing", lifecycle.Patch{}, "u1")
	assert.ErrorIs(t, err, domain.ErrTaskNotFound)
}

func TestCompleteTask(t *testing.T) {
	repo := newFakeTaskRepo()
	repo.tasks["t1"] = &domain.Task{ID: "t1", Status: domain.StatusActive}
	uc := newUseCase(repo, nil)

	completed, err := uc.CompleteTask(context.Background(), "t1", "u1")
	require.NoError(t, err)
	assert.Equal(t, domain.StatusCompleted, completed.Status)
	assert.Equal(t, domain.StatusCompleted, repo.tasks["t1"].Status)
}

func TestCompleteTaskAlreadyCompletedIsNoOp(t *testing.T) {
	repo := newFakeTaskRepo()
	repo.tasks["t1"] = &domain.Task{ID: "t1", Status: domain.StatusCompleted}
	uc := newUseCase(repo, nil)

	completed, err := uc.CompleteTask(context.Background(), "t1", "u1")
	require.NoError(t, err)
	assert.Equal(t, domain.StatusCompleted, completed.Status)
	assert.Equal(t, 0, repo.guardCalls)
}

func TestCompleteTaskRetriesAfterLostRace(t *testing.T) {
	// The first guarded write loses to a concurrent sweep that activated the
	// task; the retry reads the refreshed status and completes it.
	repo := newFakeTaskRepo()
	repo.tasks["t1"] = &domain.Task{ID: "t1", Status: domain.StatusPending}
	repo.guardScript = []bool{false}
	uc := newUseCase(repo, nil)

	repo.tasks["t1"].Status = domain.StatusActive

	completed, err := uc.CompleteTask(context.Background(), "t1", "u1")
	require.NoError(t, err)
	assert.Equal(t, domain.StatusCompleted, completed.Status)
	assert.Equal(t, 2, repo.guardCalls)
}

func TestCompleteTaskGivesUpAfterRepeatedRaces(t *testing.T) {
	repo := newFakeTaskRepo()
	repo.tasks["t1"] = &domain.Task{ID: "t1", Status: domain.StatusActive}
	repo.guardScript = []bool{false, false}
	uc := newUseCase(repo, nil)

	_, err := uc.CompleteTask(context.Background(), "t1", "u1")
	assert.ErrorIs(t, err, domain.ErrStaleStatus)
}

func TestDeleteTask(t *testing.T) {
	repo := newFakeTaskRepo()
	repo.tasks["t1"] = &domain.Task{ID: "t1"}
	uc := newUseCase(repo, nil)

	require.NoError(t, uc.DeleteTask(context.Background(), "t1"))
	assert.NotContains(t, repo.tasks, "t1")

	err := uc.DeleteTask(context.Background(), "t1")
	assert.ErrorIs(t, err, domain.ErrTaskNotFound)
}

func TestDeleteTaskBuffersOnStoreFailure(t *testing.T) {
	repo := newFakeTaskRepo()
	repo.tasks["t1"] = &domain.Task{ID: "t1"}
	repo.deleteErr = errors.New("connection refused")
	buffer := &fakeBuffer{}
	uc := newUseCase(repo, buffer)

	require.NoError(t, uc.DeleteTask(context.Background(), "t1"))
	assert.Equal(t, []string{"delete"}, buffer.operations)
}

func TestCommentAddedRequiresExistingTask(t *testing.T) {
	uc := newUseCase(newFakeTaskRepo(), nil)

	err := uc.CommentAdded(context.Background(), "missing", "u1")
	assert.ErrorIs(t, err, domain.ErrTaskNotFound)
}
