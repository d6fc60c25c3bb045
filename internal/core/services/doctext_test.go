package services

import (
	"strings"
	"testing"
	"unicode/utf8"

	"github.com/stretchr/testify/assert"

	"github.com/veldt-labs/mediatheque/internal/core/domain"
)

func TestBuildDocumentText_SectionsInOrder(t *testing.T) {
	v := &domain.Video{
		ID:       1,
		Filename: "dive.mp4",
		FilenameMetadata: &domain.FilenameMetadata{
			Actors:    []string{"Ana"},
			SceneName: "Reef Dive",
		},
		TorrentTags: []string{"ocean.life"},
		Description: "A short clip",
	}

	text := BuildDocumentText(v)
	assert.Contains(t, text, "Filename: dive.mp4\n")
	assert.Contains(t, text, "Tags: ocean life\n")
	assert.Contains(t, text, "Actors: Ana\n")
	assert.Contains(t, text, "Scene Name: Reef Dive\n")
	assert.Contains(t, text, "Description: A short clip\n")
	assert.Less(t, strings.Index(text, "Filename:"), strings.Index(text, "Description:"))
}

func TestBuildDocumentText_TruncatesDescriptionOnRuneBoundary(t *testing.T) {
	// Three bytes per rune, so a byte-offset cut at 512 would land
	// mid-rune and produce invalid UTF-8.
	v := &domain.Video{
		ID:          2,
		Filename:    "long.mp4",
		Description: strings.Repeat("日", 600),
	}

	text := BuildDocumentText(v)
	assert.True(t, utf8.ValidString(text))

	desc := strings.TrimSuffix(strings.TrimPrefix(text[strings.Index(text, "Description: "):], "Description: "), "\n\n")
	assert.Equal(t, descriptionLimit, utf8.RuneCountInString(desc))
	assert.Equal(t, strings.Repeat("日", descriptionLimit), desc)
}

func TestBuildDocumentText_ShortDescriptionKeptWhole(t *testing.T) {
	v := &domain.Video{
		ID:          3,
		Filename:    "short.mp4",
		Description: strings.Repeat("é", descriptionLimit), // over 512 bytes, exactly 512 runes
	}

	text := BuildDocumentText(v)
	assert.Contains(t, text, "Description: "+v.Description+"\n")
}
