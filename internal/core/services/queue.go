package services

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/veldt-labs/mediatheque/internal/core/domain"
	"github.com/veldt-labs/mediatheque/internal/core/ports/driven"
	"github.com/veldt-labs/mediatheque/internal/core/ports/driving"
)

var _ driving.TaskQueue = (*TaskQueue)(nil)

const defaultRecentTasks = 50

// TaskQueue produces tasks for the scheduler to consume.
type TaskQueue struct {
	tasks driven.TaskStore
}

// NewTaskQueue creates a task queue over the given store.
func NewTaskQueue(tasks driven.TaskStore) *TaskQueue {
	return &TaskQueue{tasks: tasks}
}

// Enqueue creates a pending task of the given kind. Unknown kinds are
// rejected up front rather than left for the scheduler to fail.
func (q *TaskQueue) Enqueue(ctx context.Context, kind domain.TaskKind, payload string) (*domain.Task, error) {
	if !kind.Valid() {
		return nil, fmt.Errorf("%w: %q", domain.ErrUnknownTaskKind, kind)
	}

	task := &domain.Task{
		ID:        uuid.NewString(),
		Kind:      kind,
		Status:    domain.TaskPending,
		Payload:   payload,
		CreatedAt: time.Now().UTC(),
	}
	if err := q.tasks.Create(ctx, task); err != nil {
		return nil, fmt.Errorf("create task: %w", err)
	}
	return task, nil
}

// Get retrieves a task by id.
func (q *TaskQueue) Get(ctx context.Context, id string) (*domain.Task, error) {
	return q.tasks.Get(ctx, id)
}

// Recent returns recent tasks, newest first.
func (q *TaskQueue) Recent(ctx context.Context, limit int) ([]domain.Task, error) {
	if limit <= 0 {
		limit = defaultRecentTasks
	}
	return q.tasks.List(ctx, limit)
}
