package driving

import (
	"context"

	"github.com/veldt-labs/mediatheque/internal/core/domain"
)

// SearchService exposes hybrid search to external actors.
type SearchService interface {
	// Search parses the raw query string and returns at most limit
	// videos. Zero matches yield an empty slice, not an error; a
	// malformed query yields domain.ErrQuerySyntax.
	Search(ctx context.Context, query string, limit int, rerank bool) ([]domain.Video, error)

	// SimilarTo returns videos whose embeddings are nearest to the
	// given video's. The source video is not excluded from its own
	// result set. Unknown ids yield domain.ErrNotFound.
	SimilarTo(ctx context.Context, videoID int64, limit int) ([]domain.Video, error)
}
