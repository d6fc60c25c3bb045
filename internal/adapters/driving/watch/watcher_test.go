package watch

import (
	"context"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/veldt-labs/mediatheque/internal/core/domain"
)

// --- Mock implementations ---

type mockQueue struct {
	mu       sync.Mutex
	enqueued []domain.TaskKind
}

func (m *mockQueue) Enqueue(_ context.Context, kind domain.TaskKind, _ string) (*domain.Task, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.enqueued = append(m.enqueued, kind)
	return &domain.Task{ID: "t", Kind: kind, Status: domain.TaskPending}, nil
}

func (m *mockQueue) Get(context.Context, string) (*domain.Task, error) {
	return nil, domain.ErrNotFound
}

func (m *mockQueue) Recent(context.Context, int) ([]domain.Task, error) {
	return nil, nil
}

func (m *mockQueue) count() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.enqueued)
}

// --- Tests ---

func TestWatcher_EnqueuesScanAfterChange(t *testing.T) {
	dir := t.TempDir()
	queue := &mockQueue{}

	w := NewWatcher(queue, []string{dir}, 50*time.Millisecond, zerolog.Nop())
	require.NoError(t, w.Start(context.Background()))
	defer w.Stop()

	require.NoError(t, os.WriteFile(filepath.Join(dir, "clip.mp4"), []byte("x"), 0o644))

	require.Eventually(t, func() bool {
		return queue.count() > 0
	}, 2*time.Second, 20*time.Millisecond)
	assert.Equal(t, domain.TaskScan, queue.enqueued[0])
}

func TestWatcher_DebouncesBurst(t *testing.T) {
	dir := t.TempDir()
	queue := &mockQueue{}

	w := NewWatcher(queue, []string{dir}, 100*time.Millisecond, zerolog.Nop())
	require.NoError(t, w.Start(context.Background()))
	defer w.Stop()

	for i := 0; i < 5; i++ {
		name := filepath.Join(dir, "clip"+string(rune('a'+i))+".mp4")
		require.NoError(t, os.WriteFile(name, []byte("x"), 0o644))
		time.Sleep(10 * time.Millisecond)
	}

	require.Eventually(t, func() bool {
		return queue.count() > 0
	}, 2*time.Second, 20*time.Millisecond)

	// Settle, then confirm the burst collapsed into one scan.
	time.Sleep(300 * time.Millisecond)
	assert.Equal(t, 1, queue.count())
}

func TestWatcher_NoFoldersIsNoop(t *testing.T) {
	w := NewWatcher(&mockQueue{}, nil, 0, zerolog.Nop())
	require.NoError(t, w.Start(context.Background()))
	w.Stop() // must not block or panic without a running loop
}

func TestWatcher_StopWithoutStart(t *testing.T) {
	w := NewWatcher(&mockQueue{}, []string{"/nonexistent"}, 0, zerolog.Nop())
	w.Stop()
}

func TestRelevant(t *testing.T) {
	tests := []struct {
		name string
		ev   fsnotify.Event
		want bool
	}{
		{"create", fsnotify.Event{Name: "/media/a.mp4", Op: fsnotify.Create}, true},
		{"write", fsnotify.Event{Name: "/media/a.mp4", Op: fsnotify.Write}, true},
		{"remove", fsnotify.Event{Name: "/media/a.mp4", Op: fsnotify.Remove}, true},
		{"rename", fsnotify.Event{Name: "/media/a.mp4", Op: fsnotify.Rename}, true},
		{"chmod only", fsnotify.Event{Name: "/media/a.mp4", Op: fsnotify.Chmod}, false},
		{"hidden file", fsnotify.Event{Name: "/media/.part.mp4", Op: fsnotify.Create}, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, relevant(tt.ev))
		})
	}
}

func TestResetTimer_DrainsFiredTick(t *testing.T) {
	timer := time.NewTimer(time.Millisecond)
	time.Sleep(20 * time.Millisecond) // let the tick land in timer.C

	resetTimer(timer, 80*time.Millisecond)

	select {
	case <-timer.C:
		t.Fatal("stale tick survived the reset")
	case <-time.After(20 * time.Millisecond):
	}

	// The re-armed timer still fires on its new schedule.
	select {
	case <-timer.C:
	case <-time.After(200 * time.Millisecond):
		t.Fatal("timer did not fire after reset")
	}
}

func TestIsHidden(t *testing.T) {
	assert.True(t, isHidden(".cache"))
	assert.False(t, isHidden("."))
	assert.False(t, isHidden(".."))
	assert.False(t, isHidden("movie.mp4"))
}
