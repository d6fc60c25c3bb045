package services

import (
	"strings"

	lru "github.com/hashicorp/golang-lru/v2"

	"github.com/veldt-labs/mediatheque/internal/core/domain"
)

// descriptionLimit caps how many characters of a torrent description
// feed the document text.
const descriptionLimit = 512

// BuildDocumentText derives the text blob a video is embedded and
// reranked as. Deterministic given the video's current fields: the
// non-empty sections are concatenated in fixed order, each labelled so
// the models see structured hints. The same text serves as embedding
// input and reranker document.
func BuildDocumentText(v *domain.Video) string {
	var b strings.Builder

	b.WriteString("Filename: " + v.Filename + "\n\n")

	if len(v.TorrentTags) > 0 {
		joined := strings.ReplaceAll(strings.Join(v.TorrentTags, ", "), ".", " ")
		b.WriteString("Tags: " + joined + "\n\n")
	}

	if meta := v.FilenameMetadata; meta != nil {
		if len(meta.Actors) > 0 {
			b.WriteString("Actors: " + strings.Join(meta.Actors, ", ") + "\n\n")
		}
		if meta.Series != "" {
			b.WriteString("Series: " + meta.Series + "\n\n")
		}
		if meta.SceneName != "" {
			b.WriteString("Scene Name: " + meta.SceneName + "\n\n")
		}
		if len(meta.Tags) > 0 {
			b.WriteString("Extra tags: " + strings.Join(meta.Tags, ", ") + "\n\n")
		}
	}

	if visual := v.VisualTags(); len(visual) > 0 {
		b.WriteString("Visual tags: " + strings.Join(visual, ", ") + "\n\n")
	}

	if v.Description != "" {
		b.WriteString("Description: " + truncate(v.Description, descriptionLimit) + "\n\n")
	}

	return b.String()
}

// truncate caps s at limit runes. Cutting at a byte offset could split
// a multibyte rune and hand the models invalid UTF-8.
func truncate(s string, limit int) string {
	if len(s) <= limit {
		return s
	}
	runes := []rune(s)
	if len(runes) <= limit {
		return s
	}
	return string(runes[:limit])
}

// DocTextCache memoises document texts by video id. Derivation walks
// every enrichment field, so both the indexer and the reranker path go
// through the cache.
//
// The cache is invalidated explicitly: any mutation of a field that
// feeds the text (filename metadata, tag sets, torrent tags,
// description) must call Invalidate for that id, otherwise searches can
// rerank against stale text.
type DocTextCache struct {
	cache *lru.Cache[int64, string]
}

// NewDocTextCache creates a cache holding up to size entries.
func NewDocTextCache(size int) *DocTextCache {
	if size <= 0 {
		size = 8192
	}
	cache, err := lru.New[int64, string](size)
	if err != nil {
		// Only reachable with a non-positive size, which is guarded above.
		panic(err)
	}
	return &DocTextCache{cache: cache}
}

// For returns the document text for a video, deriving and caching it on
// first use.
func (c *DocTextCache) For(v *domain.Video) string {
	if text, ok := c.cache.Get(v.ID); ok {
		return text
	}
	text := BuildDocumentText(v)
	c.cache.Add(v.ID, text)
	return text
}

// Invalidate drops the cached text for a video.
func (c *DocTextCache) Invalidate(id int64) {
	c.cache.Remove(id)
}

// Len returns the number of cached entries.
func (c *DocTextCache) Len() int {
	return c.cache.Len()
}
