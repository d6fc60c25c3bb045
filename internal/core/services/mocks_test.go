package services

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/veldt-labs/mediatheque/internal/core/domain"
	"github.com/veldt-labs/mediatheque/internal/core/ports/driven"
)

// --- Mock implementations shared by the service tests ---

// mockVideoStore implements driven.VideoStore for testing.
type mockVideoStore struct {
	mu      sync.RWMutex
	videos  map[int64]*domain.Video
	saveErr error
}

func newMockVideoStore() *mockVideoStore {
	return &mockVideoStore{videos: make(map[int64]*domain.Video)}
}

func (m *mockVideoStore) Save(_ context.Context, video *domain.Video) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.saveErr != nil {
		return m.saveErr
	}
	cp := *video
	m.videos[video.ID] = &cp
	return nil
}

func (m *mockVideoStore) Get(_ context.Context, id int64) (*domain.Video, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	v, ok := m.videos[id]
	if !ok {
		return nil, domain.ErrNotFound
	}
	cp := *v
	return &cp, nil
}

func (m *mockVideoStore) GetByIDs(_ context.Context, ids []int64) ([]domain.Video, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var out []domain.Video
	for _, id := range ids {
		if v, ok := m.videos[id]; ok {
			out = append(out, *v)
		}
	}
	return out, nil
}

func (m *mockVideoStore) Exists(_ context.Context, id int64) (bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	_, ok := m.videos[id]
	return ok, nil
}

func (m *mockVideoStore) List(_ context.Context) ([]domain.Video, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.sorted(func(*domain.Video) bool { return true }), nil
}

func (m *mockVideoStore) ListMissingDuration(_ context.Context) ([]domain.Video, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.sorted(func(v *domain.Video) bool { return v.Duration == 0 }), nil
}

func (m *mockVideoStore) ListMissingFilenameMetadata(_ context.Context) ([]domain.Video, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.sorted(func(v *domain.Video) bool { return v.FilenameMetadata == nil }), nil
}

func (m *mockVideoStore) ListUntaggedWithThumbnails(_ context.Context) ([]domain.Video, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.sorted(func(v *domain.Video) bool {
		return len(v.Thumbnails) > 0 && len(v.TagSets) == 0
	}), nil
}

func (m *mockVideoStore) ListEligibleForIndex(_ context.Context) ([]domain.Video, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.sorted(func(v *domain.Video) bool {
		return v.FilenameMetadata != nil && len(v.TagSets) > 0
	}), nil
}

func (m *mockVideoStore) ListMissingTorrentLink(_ context.Context) ([]domain.Video, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.sorted(func(v *domain.Video) bool { return v.TorrentFileID == nil }), nil
}

// sorted returns matching videos in ascending id order so listings are
// stable across calls. Callers must hold the lock.
func (m *mockVideoStore) sorted(keep func(*domain.Video) bool) []domain.Video {
	var out []domain.Video
	for _, v := range m.videos {
		if keep(v) {
			out = append(out, *v)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

func (m *mockVideoStore) SetFilenameMetadata(_ context.Context, id int64, meta *domain.FilenameMetadata) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	v, ok := m.videos[id]
	if !ok {
		return domain.ErrNotFound
	}
	cp := *meta
	v.FilenameMetadata = &cp
	return nil
}

func (m *mockVideoStore) SetTorrentTags(_ context.Context, id int64, tags []string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	v, ok := m.videos[id]
	if !ok {
		return domain.ErrNotFound
	}
	v.TorrentTags = append([]string(nil), tags...)
	return nil
}

func (m *mockVideoStore) SetPreviewPath(_ context.Context, id int64, path string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	v, ok := m.videos[id]
	if !ok {
		return domain.ErrNotFound
	}
	v.PreviewPath = path
	return nil
}

func (m *mockVideoStore) SetProbedMetadata(_ context.Context, id int64, size int64, duration float64, codec string, width, height int) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	v, ok := m.videos[id]
	if !ok {
		return domain.ErrNotFound
	}
	v.Size = size
	v.Duration = duration
	v.Codec = codec
	v.Width = width
	v.Height = height
	return nil
}

func (m *mockVideoStore) LinkTorrentFile(_ context.Context, id, torrentFileID int64) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	v, ok := m.videos[id]
	if !ok {
		return domain.ErrNotFound
	}
	fid := torrentFileID
	v.TorrentFileID = &fid
	return nil
}

func (m *mockVideoStore) AddThumbnail(_ context.Context, thumb *domain.Thumbnail) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	v, ok := m.videos[thumb.VideoID]
	if !ok {
		return domain.ErrNotFound
	}
	v.Thumbnails = append(v.Thumbnails, *thumb)
	return nil
}

func (m *mockVideoStore) AddTagSet(_ context.Context, set *domain.TagSet) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	v, ok := m.videos[set.VideoID]
	if !ok {
		return domain.ErrNotFound
	}
	// Most recent first, matching the real store's hydration order.
	v.TagSets = append([]domain.TagSet{*set}, v.TagSets...)
	return nil
}

// mockTaskStore implements driven.TaskStore for testing. Claim order is
// creation order, ties broken by id.
type mockTaskStore struct {
	mu    sync.Mutex
	tasks map[string]*domain.Task
	order []string
}

func newMockTaskStore() *mockTaskStore {
	return &mockTaskStore{tasks: make(map[string]*domain.Task)}
}

func (m *mockTaskStore) Create(_ context.Context, task *domain.Task) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.tasks[task.ID]; ok {
		return domain.ErrAlreadyExists
	}
	cp := *task
	m.tasks[task.ID] = &cp
	m.order = append(m.order, task.ID)
	return nil
}

func (m *mockTaskStore) Get(_ context.Context, id string) (*domain.Task, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	t, ok := m.tasks[id]
	if !ok {
		return nil, domain.ErrNotFound
	}
	cp := *t
	return &cp, nil
}

func (m *mockTaskStore) List(_ context.Context, limit int) ([]domain.Task, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []domain.Task
	for i := len(m.order) - 1; i >= 0 && len(out) < limit; i-- {
		out = append(out, *m.tasks[m.order[i]])
	}
	return out, nil
}

func (m *mockTaskStore) ClaimNextPending(_ context.Context) (*domain.Task, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, id := range m.order {
		t := m.tasks[id]
		if t.Status != domain.TaskPending {
			continue
		}
		t.Status = domain.TaskProcessing
		cp := *t
		return &cp, nil
	}
	return nil, nil
}

func (m *mockTaskStore) Complete(_ context.Context, id string) error {
	return m.finish(id, domain.TaskCompleted)
}

func (m *mockTaskStore) Fail(_ context.Context, id string) error {
	return m.finish(id, domain.TaskFailed)
}

func (m *mockTaskStore) finish(id string, status domain.TaskStatus) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	t, ok := m.tasks[id]
	if !ok {
		return domain.ErrNotFound
	}
	t.Status = status
	now := time.Now().UTC()
	t.CompletedAt = &now
	return nil
}

func (m *mockTaskStore) byKind(kind domain.TaskKind) []domain.Task {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []domain.Task
	for _, id := range m.order {
		if t := m.tasks[id]; t.Kind == kind {
			out = append(out, *t)
		}
	}
	return out
}

// mockConfigStore implements driven.ConfigStore over a plain map.
type mockConfigStore struct {
	values map[string]any
}

func newMockConfigStore() *mockConfigStore {
	return &mockConfigStore{values: make(map[string]any)}
}

func (m *mockConfigStore) Get(key string) (any, bool) {
	v, ok := m.values[key]
	return v, ok
}

func (m *mockConfigStore) GetString(key string) string {
	if v, ok := m.values[key].(string); ok {
		return v
	}
	return ""
}

func (m *mockConfigStore) GetInt(key string) int {
	if v, ok := m.values[key].(int); ok {
		return v
	}
	return 0
}

func (m *mockConfigStore) GetFloat(key string) float64 {
	if v, ok := m.values[key].(float64); ok {
		return v
	}
	return 0
}

func (m *mockConfigStore) GetBool(key string) bool {
	if v, ok := m.values[key].(bool); ok {
		return v
	}
	return false
}

func (m *mockConfigStore) GetStringSlice(key string) []string {
	if v, ok := m.values[key].([]string); ok {
		return v
	}
	return nil
}

func (m *mockConfigStore) Set(key string, value any) error {
	m.values[key] = value
	return nil
}

func (m *mockConfigStore) Save() error { return nil }
func (m *mockConfigStore) Load() error { return nil }
func (m *mockConfigStore) Path() string {
	return ""
}

// mockEmbedder returns vectors from a caller-supplied function.
type mockEmbedder struct {
	mu    sync.Mutex
	embed func(text string) []float32
	calls [][]string
	err   error
}

func (m *mockEmbedder) EmbedBatch(_ context.Context, texts []string) ([][]float32, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return nil, m.err
	}
	m.calls = append(m.calls, append([]string(nil), texts...))
	out := make([][]float32, len(texts))
	for i, t := range texts {
		out[i] = m.embed(t)
	}
	return out, nil
}

func (m *mockEmbedder) Dimensions() int { return 3 }

// mockReranker scores documents from a caller-supplied map keyed by
// document text.
type mockReranker struct {
	scores map[string]float64
	err    error
	called bool
}

func (m *mockReranker) Score(_ context.Context, _ string, documents []string) ([]float64, error) {
	m.called = true
	if m.err != nil {
		return nil, m.err
	}
	out := make([]float64, len(documents))
	for i, d := range documents {
		out[i] = m.scores[d]
	}
	return out, nil
}

// Ensure mocks implement their ports.
var (
	_ driven.VideoStore       = (*mockVideoStore)(nil)
	_ driven.TaskStore        = (*mockTaskStore)(nil)
	_ driven.ConfigStore      = (*mockConfigStore)(nil)
	_ driven.EmbeddingService = (*mockEmbedder)(nil)
	_ driven.Reranker         = (*mockReranker)(nil)
)
