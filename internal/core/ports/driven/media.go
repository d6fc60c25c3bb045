package driven

import (
	"context"

	"github.com/veldt-labs/mediatheque/internal/core/domain"
)

// MediaInfo is the result of probing a media file.
type MediaInfo struct {
	// Duration is the playback length in seconds.
	Duration float64

	// Codec is the video stream codec name.
	Codec string

	// Width and Height are the frame dimensions in pixels.
	Width  int
	Height int

	// Size is the file size in bytes.
	Size int64
}

// MediaProber extracts container and stream metadata from a media file.
type MediaProber interface {
	Probe(ctx context.Context, path string) (*MediaInfo, error)
}

// PreviewGenerator produces a short preview clip for a video and returns
// the output path. Transcoding itself is a black-box collaborator.
type PreviewGenerator interface {
	Generate(ctx context.Context, video *domain.Video) (string, error)
}

// ThumbnailGenerator extracts still frames evenly spaced across a
// video's duration.
type ThumbnailGenerator interface {
	Generate(ctx context.Context, video *domain.Video) ([]domain.Thumbnail, error)
}
