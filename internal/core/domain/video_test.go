package domain

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestIDForPathDeterministic(t *testing.T) {
	a := IDForPath("/media/library/clip.mp4")
	b := IDForPath("/media/library/clip.mp4")
	assert.Equal(t, a, b)

	// Cleaning happens before hashing, so messy spellings collapse.
	c := IDForPath("/media/library/../library/clip.mp4")
	assert.Equal(t, a, c)

	other := IDForPath("/media/library/other.mp4")
	assert.NotEqual(t, a, other)
}

func TestSearchPathFor(t *testing.T) {
	roots := []string{"/media/library"}

	rel := SearchPathFor("/media/library/sub/clip.mp4", roots)
	assert.Equal(t, filepath.Join("sub", "clip.mp4"), rel)

	assert.Empty(t, SearchPathFor("/elsewhere/clip.mp4", roots))
}

func TestNewVideo(t *testing.T) {
	v := NewVideo("/media/library/sub/clip.mp4", []string{"/media/library"})
	require.NotNil(t, v)

	assert.Equal(t, IDForPath("/media/library/sub/clip.mp4"), v.ID)
	assert.Equal(t, "clip.mp4", v.Filename)
	assert.Equal(t, filepath.Join("sub", "clip.mp4"), v.SearchPath)
	assert.False(t, v.CreatedAt.IsZero())
}

func TestHasTorrentTags(t *testing.T) {
	v := &Video{TorrentTags: []string{"a", "b", "c"}}

	assert.True(t, v.HasTorrentTags([]string{"a", "b"}))
	assert.True(t, v.HasTorrentTags(nil))
	assert.False(t, v.HasTorrentTags([]string{"a", "d"}))

	empty := &Video{}
	assert.False(t, empty.HasTorrentTags([]string{"a"}))
}

func TestVisualTags(t *testing.T) {
	v := &Video{}
	assert.Nil(t, v.VisualTags())

	v.TagSets = []TagSet{
		{Tags: []string{"new", "shiny"}},
		{Tags: []string{"old"}},
	}
	assert.Equal(t, []string{"new", "shiny"}, v.VisualTags())
	assert.ElementsMatch(t, []string{"new", "shiny", "old"}, v.AllVisualTags())
}

func TestTaskKindValid(t *testing.T) {
	for _, k := range []TaskKind{
		TaskScan, TaskMetadata, TaskPreview, TaskThumbnail,
		TaskFilenameMetadata, TaskEmbedding, TaskTag, TaskTorrentTags,
	} {
		assert.True(t, k.Valid(), string(k))
	}
	assert.False(t, TaskKind("reindex").Valid())
}
