package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/veldt-labs/mediatheque/internal/core/domain"
	"github.com/veldt-labs/mediatheque/internal/core/ports/driven"
)

// taskStore implements driven.TaskStore.
type taskStore struct {
	store *Store
}

var _ driven.TaskStore = (*taskStore)(nil)

// Create enqueues a task in pending state.
func (s *taskStore) Create(ctx context.Context, task *domain.Task) error {
	if task.Status == "" {
		task.Status = domain.TaskPending
	}
	if task.CreatedAt.IsZero() {
		task.CreatedAt = time.Now().UTC()
	}

	_, err := s.store.db.ExecContext(ctx, `
		INSERT INTO tasks (id, kind, status, payload, created_at)
		VALUES (?, ?, ?, ?, ?)
	`, task.ID, task.Kind, task.Status, task.Payload, task.CreatedAt)
	if err != nil {
		return fmt.Errorf("creating task: %w", err)
	}
	return nil
}

// Get retrieves a task by id.
func (s *taskStore) Get(ctx context.Context, id string) (*domain.Task, error) {
	row := s.store.db.QueryRowContext(ctx, `
		SELECT id, kind, status, payload, created_at, completed_at
		FROM tasks WHERE id = ?
	`, id)

	task, err := scanTask(row.Scan)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, domain.ErrNotFound
	}
	return task, err
}

// List returns recent tasks, newest first, capped at limit.
func (s *taskStore) List(ctx context.Context, limit int) ([]domain.Task, error) {
	rows, err := s.store.db.QueryContext(ctx, `
		SELECT id, kind, status, payload, created_at, completed_at
		FROM tasks ORDER BY created_at DESC, id DESC LIMIT ?
	`, limit)
	if err != nil {
		return nil, fmt.Errorf("listing tasks: %w", err)
	}
	defer rows.Close()

	var tasks []domain.Task
	for rows.Next() {
		task, err := scanTask(rows.Scan)
		if err != nil {
			return nil, err
		}
		tasks = append(tasks, *task)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating tasks: %w", err)
	}
	return tasks, nil
}

// ClaimNextPending atomically claims the oldest pending task. The
// pending → processing transition happens in a single UPDATE so a task
// can never be observed pending by two claims.
func (s *taskStore) ClaimNextPending(ctx context.Context) (*domain.Task, error) {
	row := s.store.db.QueryRowContext(ctx, `
		UPDATE tasks SET status = ?
		WHERE id = (
			SELECT id FROM tasks WHERE status = ?
			ORDER BY created_at, id LIMIT 1
		)
		RETURNING id, kind, status, payload, created_at, completed_at
	`, domain.TaskProcessing, domain.TaskPending)

	task, err := scanTask(row.Scan)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("claiming task: %w", err)
	}
	return task, nil
}

// Complete marks a task completed.
func (s *taskStore) Complete(ctx context.Context, id string) error {
	return s.finish(ctx, id, domain.TaskCompleted)
}

// Fail marks a task failed.
func (s *taskStore) Fail(ctx context.Context, id string) error {
	return s.finish(ctx, id, domain.TaskFailed)
}

func (s *taskStore) finish(ctx context.Context, id string, status domain.TaskStatus) error {
	res, err := s.store.db.ExecContext(ctx, `
		UPDATE tasks SET status = ?, completed_at = ? WHERE id = ?
	`, status, time.Now().UTC(), id)
	if err != nil {
		return fmt.Errorf("finishing task: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("counting affected rows: %w", err)
	}
	if n == 0 {
		return domain.ErrNotFound
	}
	return nil
}

func scanTask(scan func(...any) error) (*domain.Task, error) {
	var task domain.Task
	var createdAt, completedAt sql.NullTime
	if err := scan(&task.ID, &task.Kind, &task.Status, &task.Payload, &createdAt, &completedAt); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, err
		}
		return nil, fmt.Errorf("scanning task: %w", err)
	}
	if createdAt.Valid {
		task.CreatedAt = createdAt.Time
	}
	if completedAt.Valid {
		t := completedAt.Time
		task.CompletedAt = &t
	}
	return &task, nil
}
