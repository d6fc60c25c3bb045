package driving

import (
	"context"

	"github.com/veldt-labs/mediatheque/internal/core/domain"
)

// TaskQueue lets external actors enqueue and inspect background work.
// Execution stays with the scheduler; this port only produces tasks.
type TaskQueue interface {
	// Enqueue creates a pending task of the given kind.
	Enqueue(ctx context.Context, kind domain.TaskKind, payload string) (*domain.Task, error)

	// Get retrieves a task by id.
	Get(ctx context.Context, id string) (*domain.Task, error)

	// Recent returns recent tasks, newest first.
	Recent(ctx context.Context, limit int) ([]domain.Task, error)
}
