package domain

import (
	"crypto/sha256"
	"encoding/hex"
	"path/filepath"
	"strconv"
	"strings"
	"time"
)

// Video represents a media asset discovered in the library, together with
// the enrichment state accumulated by the background pipeline.
type Video struct {
	// ID is derived from the normalised absolute path (see IDForPath) and
	// never changes. Duplicate scans and all cross-references (thumbnails,
	// tag sets, id-addressed tasks) key on it.
	ID int64

	// Path is the normalised absolute file path.
	Path string

	// SearchPath is the path relative to the containing library root.
	// Path filters and torrent-file linking match against it.
	SearchPath string

	// Filename is the base name of the file.
	Filename string

	// Size is the file size in bytes.
	Size int64

	// Duration is the playback length in seconds. Zero until the
	// metadata task has probed the file.
	Duration float64

	// Codec, Width and Height come from the metadata probe.
	Codec  string
	Width  int
	Height int

	// PreviewPath is the generated preview clip, if any.
	PreviewPath string

	// FilenameMetadata holds fields extracted from the filename by the
	// language model. Nil until the filename_metadata task has run.
	FilenameMetadata *FilenameMetadata

	// TorrentTags are curated tags copied from the source torrent.
	TorrentTags []string

	// Thumbnails are the extracted still frames.
	Thumbnails []Thumbnail

	// TagSets holds AI-generated visual tag sets, most recent first.
	TagSets []TagSet

	// Description is the (bbcode-stripped) description of the source
	// torrent, when the video has been linked to one.
	Description string

	// TorrentFileID links to the torrent file entry this video came
	// from, when known. Nil otherwise.
	TorrentFileID *int64

	// CreatedAt is when the video was first registered.
	CreatedAt time.Time
}

// FilenameMetadata holds structured fields the language model extracted
// from a video's file path.
type FilenameMetadata struct {
	Actors    []string `json:"actors"`
	Series    string   `json:"series"`
	SceneName string   `json:"scene_name"`
	Tags      []string `json:"tags"`
}

// Thumbnail is a still frame extracted from a video.
type Thumbnail struct {
	ID        int64
	VideoID   int64
	Path      string
	Timestamp float64
}

// TagSet is one AI tagging pass over a video's thumbnail.
type TagSet struct {
	ID        int64
	VideoID   int64
	Tags      []string
	Prompt    string
	CreatedAt time.Time
}

// Torrent is metadata parsed from a .torrent file.
type Torrent struct {
	ID          int64
	Name        string
	Description string
	Tags        []string
	CreatedAt   time.Time
}

// TorrentFile is one file entry inside a torrent.
type TorrentFile struct {
	ID        int64
	TorrentID int64
	Path      string
	Size      int64
}

// NormalizePath returns the cleaned absolute form of path. Identity,
// deduplication and torrent linking all operate on normalised paths.
func NormalizePath(path string) string {
	abs, err := filepath.Abs(path)
	if err != nil {
		return filepath.Clean(path)
	}
	return filepath.Clean(abs)
}

// IDForPath derives the stable video identity from a file path: the first
// eight hex digits of the SHA-256 of the normalised path, read as an
// integer. Deterministic, so rescanning the same file always yields the
// same id.
func IDForPath(path string) int64 {
	sum := sha256.Sum256([]byte(NormalizePath(path)))
	digest := hex.EncodeToString(sum[:])
	id, err := strconv.ParseInt(digest[:8], 16, 64)
	if err != nil {
		// Unreachable: the input is always valid hex.
		return 0
	}
	return id
}

// SearchPathFor strips the first matching library root prefix from the
// normalised path. Returns the empty string when the path is under none
// of the roots.
func SearchPathFor(path string, roots []string) string {
	full := NormalizePath(path)
	for _, root := range roots {
		prefix := NormalizePath(root)
		if !strings.HasPrefix(full, prefix) {
			continue
		}
		rel := strings.TrimPrefix(full, prefix)
		rel = strings.TrimLeft(rel, string(filepath.Separator))
		return rel
	}
	return ""
}

// NewVideo builds a Video for a freshly discovered file.
func NewVideo(path string, roots []string) *Video {
	norm := NormalizePath(path)
	return &Video{
		ID:         IDForPath(norm),
		Path:       norm,
		SearchPath: SearchPathFor(norm, roots),
		Filename:   filepath.Base(norm),
		CreatedAt:  time.Now().UTC(),
	}
}

// VisualTags returns the tags of the most recent tag set, or nil when the
// video has not been tagged yet. This is the sequence the document text
// and searchable projection expose.
func (v *Video) VisualTags() []string {
	if len(v.TagSets) == 0 {
		return nil
	}
	return v.TagSets[0].Tags
}

// AllVisualTags flattens the tags of every tag set. The vision filter
// matches against this wider set since older passes remain informative.
func (v *Video) AllVisualTags() []string {
	var all []string
	for _, set := range v.TagSets {
		all = append(all, set.Tags...)
	}
	return all
}

// HasTorrentTags reports whether every tag in want is present on the
// video (superset semantics; extra tags on the video are fine).
func (v *Video) HasTorrentTags(want []string) bool {
	if len(want) == 0 {
		return true
	}
	have := make(map[string]struct{}, len(v.TorrentTags))
	for _, t := range v.TorrentTags {
		have[t] = struct{}{}
	}
	for _, t := range want {
		if _, ok := have[t]; !ok {
			return false
		}
	}
	return true
}
