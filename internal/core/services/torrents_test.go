package services

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"sync"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/veldt-labs/mediatheque/internal/core/domain"
	"github.com/veldt-labs/mediatheque/internal/core/ports/driven"
)

// --- Mock implementations ---

type mockTorrentStore struct {
	mu       sync.Mutex
	torrents map[int64]*domain.Torrent
	files    []domain.TorrentFile
	nextID   int64
}

func newMockTorrentStore() *mockTorrentStore {
	return &mockTorrentStore{torrents: make(map[int64]*domain.Torrent)}
}

func (m *mockTorrentStore) Save(_ context.Context, torrent *domain.Torrent, files []domain.TorrentFile) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.nextID++
	torrent.ID = m.nextID
	cp := *torrent
	m.torrents[torrent.ID] = &cp
	for i := range files {
		m.nextID++
		files[i].ID = m.nextID
		files[i].TorrentID = torrent.ID
		m.files = append(m.files, files[i])
	}
	return nil
}

func (m *mockTorrentStore) GetByName(_ context.Context, name string) (*domain.Torrent, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, t := range m.torrents {
		if t.Name == name {
			cp := *t
			return &cp, nil
		}
	}
	return nil, nil
}

func (m *mockTorrentStore) Get(_ context.Context, id int64) (*domain.Torrent, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	t, ok := m.torrents[id]
	if !ok {
		return nil, domain.ErrNotFound
	}
	cp := *t
	return &cp, nil
}

func (m *mockTorrentStore) FindFileByPath(_ context.Context, path string) (*domain.TorrentFile, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, f := range m.files {
		if f.Path == path {
			cp := f
			return &cp, nil
		}
	}
	return nil, nil
}

type mockTorrentParser struct {
	mu        sync.Mutex
	parsed    []string
	byPath    map[string]*driven.ParsedTorrent
	failPaths map[string]bool
}

func newMockTorrentParser() *mockTorrentParser {
	return &mockTorrentParser{
		byPath:    make(map[string]*driven.ParsedTorrent),
		failPaths: make(map[string]bool),
	}
}

func (m *mockTorrentParser) ParseFile(_ context.Context, path string) (*driven.ParsedTorrent, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.failPaths[path] {
		return nil, errors.New("bencode: invalid input")
	}
	m.parsed = append(m.parsed, path)
	if parsed, ok := m.byPath[path]; ok {
		return parsed, nil
	}
	return &driven.ParsedTorrent{Name: filepath.Base(path)}, nil
}

var (
	_ driven.TorrentStore  = (*mockTorrentStore)(nil)
	_ driven.TorrentParser = (*mockTorrentParser)(nil)
)

// --- Test setup ---

type torrentFixture struct {
	videos   *mockVideoStore
	torrents *mockTorrentStore
	parser   *mockTorrentParser
	cfg      *mockConfigStore
	texts    *DocTextCache
	svc      *TorrentService
}

func newTorrentFixture() *torrentFixture {
	videos := newMockVideoStore()
	torrents := newMockTorrentStore()
	parser := newMockTorrentParser()
	cfg := newMockConfigStore()
	texts := NewDocTextCache(16)
	svc := NewTorrentService(videos, torrents, parser, cfg, texts, zerolog.Nop())
	return &torrentFixture{
		videos:   videos,
		torrents: torrents,
		parser:   parser,
		cfg:      cfg,
		texts:    texts,
		svc:      svc,
	}
}

// writeTorrentDir fills a temp directory with empty .torrent files and
// registers parse results for them.
func (f *torrentFixture) writeTorrentDir(t *testing.T, parsed ...*driven.ParsedTorrent) string {
	t.Helper()
	dir := t.TempDir()
	for _, p := range parsed {
		path := filepath.Join(dir, p.Name+".torrent")
		require.NoError(t, os.WriteFile(path, []byte("d"), 0o644))
		f.parser.byPath[path] = p
	}
	return dir
}

// --- Tests ---

func TestHandleTorrentTags_ImportsAndLinks(t *testing.T) {
	f := newTorrentFixture()
	dir := f.writeTorrentDir(t, &driven.ParsedTorrent{
		Name:        "Ocean Pack",
		Description: "Collected ocean clips",
		Tags:        []string{"ocean", "4k"},
		Files: []driven.ParsedTorrentFile{
			{Path: "Ocean Pack/dive.mp4", Size: 100},
		},
	})
	require.NoError(t, f.videos.Save(context.Background(), &domain.Video{
		ID:         1,
		Path:       "/media/Ocean Pack/dive.mp4",
		SearchPath: "Ocean Pack/dive.mp4",
	}))

	task := &domain.Task{Kind: domain.TaskTorrentTags, Payload: dir}
	require.NoError(t, f.svc.HandleTorrentTags(context.Background(), task))

	stored, err := f.torrents.GetByName(context.Background(), "Ocean Pack")
	require.NoError(t, err)
	require.NotNil(t, stored)
	assert.Equal(t, []string{"ocean", "4k"}, stored.Tags)

	v, err := f.videos.Get(context.Background(), 1)
	require.NoError(t, err)
	assert.Equal(t, []string{"ocean", "4k"}, v.TorrentTags)
	require.NotNil(t, v.TorrentFileID)
}

func TestHandleTorrentTags_UsesConfiguredFolder(t *testing.T) {
	f := newTorrentFixture()
	dir := f.writeTorrentDir(t, &driven.ParsedTorrent{Name: "Pack"})
	require.NoError(t, f.cfg.Set(cfgTorrentFolder, dir))

	task := &domain.Task{Kind: domain.TaskTorrentTags}
	require.NoError(t, f.svc.HandleTorrentTags(context.Background(), task))

	assert.Len(t, f.parser.parsed, 1)
}

func TestHandleTorrentTags_DuplicateImportIsSkipped(t *testing.T) {
	f := newTorrentFixture()
	dir := f.writeTorrentDir(t, &driven.ParsedTorrent{Name: "Pack", Tags: []string{"a"}})

	task := &domain.Task{Payload: dir}
	require.NoError(t, f.svc.HandleTorrentTags(context.Background(), task))
	require.NoError(t, f.svc.HandleTorrentTags(context.Background(), task))

	f.torrents.mu.Lock()
	defer f.torrents.mu.Unlock()
	assert.Len(t, f.torrents.torrents, 1)
}

func TestHandleTorrentTags_ParseFailureIsIsolated(t *testing.T) {
	f := newTorrentFixture()
	dir := f.writeTorrentDir(t, &driven.ParsedTorrent{Name: "Good"})
	broken := filepath.Join(dir, "broken.torrent")
	require.NoError(t, os.WriteFile(broken, []byte("x"), 0o644))
	f.parser.failPaths[broken] = true

	task := &domain.Task{Payload: dir}
	require.NoError(t, f.svc.HandleTorrentTags(context.Background(), task))

	stored, err := f.torrents.GetByName(context.Background(), "Good")
	require.NoError(t, err)
	assert.NotNil(t, stored)
}

func TestHandleTorrentTags_NonTorrentFilesIgnored(t *testing.T) {
	f := newTorrentFixture()
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "notes.txt"), []byte("x"), 0o644))

	task := &domain.Task{Payload: dir}
	require.NoError(t, f.svc.HandleTorrentTags(context.Background(), task))

	assert.Empty(t, f.parser.parsed)
}

func TestHandleTorrentTags_LinksWithoutNewImports(t *testing.T) {
	f := newTorrentFixture()
	torrent := &domain.Torrent{Name: "Pack", Tags: []string{"vintage"}}
	files := []domain.TorrentFile{{Path: "Pack/clip.mp4", Size: 10}}
	require.NoError(t, f.torrents.Save(context.Background(), torrent, files))
	require.NoError(t, f.videos.Save(context.Background(), &domain.Video{
		ID:         3,
		Path:       "/media/Pack/clip.mp4",
		SearchPath: "Pack/clip.mp4",
	}))

	// Empty payload and no configured folder: linking still runs.
	task := &domain.Task{Kind: domain.TaskTorrentTags}
	require.NoError(t, f.svc.HandleTorrentTags(context.Background(), task))

	v, err := f.videos.Get(context.Background(), 3)
	require.NoError(t, err)
	assert.Equal(t, []string{"vintage"}, v.TorrentTags)
}

func TestHandleTorrentTags_UnmatchedVideoStaysUnlinked(t *testing.T) {
	f := newTorrentFixture()
	require.NoError(t, f.videos.Save(context.Background(), &domain.Video{
		ID:         4,
		Path:       "/media/solo.mp4",
		SearchPath: "solo.mp4",
	}))

	require.NoError(t, f.svc.HandleTorrentTags(context.Background(), &domain.Task{}))

	v, err := f.videos.Get(context.Background(), 4)
	require.NoError(t, err)
	assert.Nil(t, v.TorrentFileID)
	assert.Empty(t, v.TorrentTags)
}
