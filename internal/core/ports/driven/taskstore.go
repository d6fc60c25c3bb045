package driven

import (
	"context"

	"github.com/veldt-labs/mediatheque/internal/core/domain"
)

// TaskStore persists the background task queue.
//
// Claiming must be atomic: a pending task transitions to processing in a
// single step so no two claims can observe the same task. The store is
// written by exactly one scheduler instance (single-writer discipline).
type TaskStore interface {
	// Create enqueues a task in pending state.
	Create(ctx context.Context, task *domain.Task) error

	// Get retrieves a task by id. Returns domain.ErrNotFound when absent.
	Get(ctx context.Context, id string) (*domain.Task, error)

	// List returns recent tasks, newest first, capped at limit.
	List(ctx context.Context, limit int) ([]domain.Task, error)

	// ClaimNextPending atomically selects the oldest pending task by
	// creation time and marks it processing. Returns nil and no error
	// when the queue is empty.
	ClaimNextPending(ctx context.Context) (*domain.Task, error)

	// Complete marks a task completed and records the completion time.
	Complete(ctx context.Context, id string) error

	// Fail marks a task failed and records the completion time.
	Fail(ctx context.Context, id string) error
}
