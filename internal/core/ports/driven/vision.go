package driven

import (
	"context"

	"github.com/veldt-labs/mediatheque/internal/core/domain"
)

// VisionTagger generates descriptive tags for a video frame using a
// vision-capable model.
type VisionTagger interface {
	// TagImage sends one image and returns the tag list split from the
	// model's comma-delimited response, plus the prompt that was used
	// (recorded alongside the tag set for provenance).
	TagImage(ctx context.Context, imagePath string) (tags []string, prompt string, err error)
}

// FilenameExtractor extracts structured metadata (actors, series, scene
// name, extra tags) from a video file path using a language model.
type FilenameExtractor interface {
	Extract(ctx context.Context, path string) (*domain.FilenameMetadata, error)
}
