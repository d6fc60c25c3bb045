package services

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"github.com/veldt-labs/mediatheque/internal/core/domain"
	"github.com/veldt-labs/mediatheque/internal/core/ports/driven"
)

// TaskHandler executes one task. A nil return marks the task completed,
// an error marks it failed. Handlers run one at a time; any parallelism
// lives inside the handler itself.
type TaskHandler func(ctx context.Context, task *domain.Task) error

// Default pause between polls when the queue is empty.
const defaultPollInterval = time.Second

// Scheduler is the single consumer of the task queue. It claims the
// oldest pending task, dispatches it to the registered handler and
// records the terminal state. Tasks of an unregistered kind are failed
// without dispatch.
type Scheduler struct {
	tasks    driven.TaskStore
	handlers map[domain.TaskKind]TaskHandler
	interval time.Duration
	log      zerolog.Logger

	cancel context.CancelFunc
	done   chan struct{}
}

// NewScheduler creates a stopped scheduler polling at the given
// interval. A non-positive interval falls back to one second.
func NewScheduler(tasks driven.TaskStore, interval time.Duration, log zerolog.Logger) *Scheduler {
	if interval <= 0 {
		interval = defaultPollInterval
	}
	return &Scheduler{
		tasks:    tasks,
		handlers: make(map[domain.TaskKind]TaskHandler),
		interval: interval,
		log:      log,
	}
}

// Register binds a handler to a task kind. Must be called before Start;
// the handler map is not guarded after the loop is running.
func (s *Scheduler) Register(kind domain.TaskKind, handler TaskHandler) {
	s.handlers[kind] = handler
}

// Start launches the polling loop. It returns immediately; the loop runs
// until Stop is called or ctx is cancelled.
func (s *Scheduler) Start(ctx context.Context) {
	ctx, s.cancel = context.WithCancel(ctx)
	s.done = make(chan struct{})

	go func() {
		defer close(s.done)
		s.log.Info().Dur("interval", s.interval).Msg("scheduler started")
		for {
			worked := s.runNext(ctx)
			if ctx.Err() != nil {
				return
			}
			if worked {
				// Drain the queue before sleeping again.
				continue
			}
			select {
			case <-ctx.Done():
				return
			case <-time.After(s.interval):
			}
		}
	}()
}

// Stop cancels the loop and waits for the in-flight task, if any, to
// reach a terminal state.
func (s *Scheduler) Stop() {
	if s.cancel == nil {
		return
	}
	s.cancel()
	<-s.done
	s.log.Info().Msg("scheduler stopped")
}

// runNext claims and executes at most one task. It reports whether a
// task was claimed, so the caller knows whether to keep draining.
func (s *Scheduler) runNext(ctx context.Context) bool {
	task, err := s.tasks.ClaimNextPending(ctx)
	if err != nil {
		if ctx.Err() == nil {
			s.log.Error().Err(err).Msg("claim task")
		}
		return false
	}
	if task == nil {
		return false
	}

	log := s.log.With().Str("task", task.ID).Str("kind", string(task.Kind)).Logger()

	handler, ok := s.handlers[task.Kind]
	if !ok {
		log.Warn().Msg("no handler registered, failing task")
		s.finish(ctx, task, fmt.Errorf("%w: %q", domain.ErrUnknownTaskKind, task.Kind), log)
		return true
	}

	started := time.Now()
	err = s.dispatch(ctx, handler, task)
	log = log.With().Dur("elapsed", time.Since(started)).Logger()
	s.finish(ctx, task, err, log)
	return true
}

// dispatch runs the handler with panic containment: a panicking handler
// fails its task instead of taking down the scheduler.
func (s *Scheduler) dispatch(ctx context.Context, handler TaskHandler, task *domain.Task) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("handler panic: %v", r)
		}
	}()
	return handler(ctx, task)
}

func (s *Scheduler) finish(ctx context.Context, task *domain.Task, taskErr error, log zerolog.Logger) {
	// Terminal-state writes survive loop cancellation so a shut-down
	// scheduler never strands a task in processing.
	if ctx.Err() != nil {
		ctx = context.WithoutCancel(ctx)
	}

	if taskErr != nil {
		log.Error().Err(taskErr).Msg("task failed")
		if err := s.tasks.Fail(ctx, task.ID); err != nil {
			log.Error().Err(err).Msg("record task failure")
		}
		return
	}

	log.Info().Msg("task completed")
	if err := s.tasks.Complete(ctx, task.ID); err != nil {
		log.Error().Err(err).Msg("record task completion")
	}
}
