package services

import (
	"context"
	"fmt"

	"github.com/rs/zerolog"

	"github.com/veldt-labs/mediatheque/internal/core/domain"
	"github.com/veldt-labs/mediatheque/internal/core/ports/driven"
	"github.com/veldt-labs/mediatheque/internal/vectorindex"
)

// Role preambles for the embedding model. Documents are embedded for
// symmetric similarity, queries for asymmetric retrieval; mixing them up
// measurably degrades ranking.
const (
	documentPreamble = "Represent this sentence for semantic similarity:\n"
	queryPreamble    = "Represent this sentence for searching features: "
)

// embedBatchSize bounds how many document texts go into one embedding
// request.
const embedBatchSize = 32

// IndexService owns the vector index lifecycle. The index is rebuilt
// wholesale by the embedding task; there is no incremental path.
type IndexService struct {
	videos   driven.VideoStore
	embedder driven.EmbeddingService
	index    *vectorindex.Index
	texts    *DocTextCache
	log      zerolog.Logger
}

// NewIndexService creates an index service around the given index.
func NewIndexService(
	videos driven.VideoStore,
	embedder driven.EmbeddingService,
	index *vectorindex.Index,
	texts *DocTextCache,
	log zerolog.Logger,
) *IndexService {
	return &IndexService{
		videos:   videos,
		embedder: embedder,
		index:    index,
		texts:    texts,
		log:      log,
	}
}

// Index returns the underlying vector index.
func (s *IndexService) Index() *vectorindex.Index {
	return s.index
}

// Rebuild reconstructs the vector index from every eligible video:
// filename metadata present and at least one tag set. The previous index
// keeps serving until the replacement is fully built; any embedding
// failure aborts the cycle and leaves it in place.
func (s *IndexService) Rebuild(ctx context.Context) error {
	if s.embedder == nil {
		return domain.ErrEmbeddingUnavailable
	}

	videos, err := s.videos.ListEligibleForIndex(ctx)
	if err != nil {
		return fmt.Errorf("list eligible videos: %w", err)
	}

	if len(videos) == 0 {
		s.log.Warn().Msg("no eligible videos, vector index left empty")
		s.index.Rebuild(nil, nil)
		return nil
	}

	ids := make([]int64, 0, len(videos))
	vectors := make([][]float32, 0, len(videos))

	for start := 0; start < len(videos); start += embedBatchSize {
		end := start + embedBatchSize
		if end > len(videos) {
			end = len(videos)
		}
		batch := videos[start:end]

		texts := make([]string, len(batch))
		for i := range batch {
			texts[i] = documentPreamble + s.texts.For(&batch[i])
		}

		embedded, err := s.embedder.EmbedBatch(ctx, texts)
		if err != nil {
			return fmt.Errorf("embed documents [%d:%d]: %w", start, end, err)
		}
		if len(embedded) != len(batch) {
			return fmt.Errorf("%w: embedding count %d != batch size %d",
				domain.ErrInference, len(embedded), len(batch))
		}

		for i, vec := range embedded {
			ids = append(ids, batch[i].ID)
			vectors = append(vectors, vectorindex.Normalize(vec))
		}
	}

	s.index.Rebuild(ids, vectors)
	s.log.Info().Int("videos", len(ids)).Msg("vector index rebuilt")
	return nil
}

// HandleEmbedding is the task handler for the embedding kind.
func (s *IndexService) HandleEmbedding(ctx context.Context, _ *domain.Task) error {
	return s.Rebuild(ctx)
}
