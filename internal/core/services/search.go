package services

import (
	"context"
	"fmt"
	"path/filepath"
	"sort"
	"strings"

	"github.com/rs/zerolog"

	"github.com/veldt-labs/mediatheque/internal/core/domain"
	"github.com/veldt-labs/mediatheque/internal/core/ports/driven"
	"github.com/veldt-labs/mediatheque/internal/core/ports/driving"
	"github.com/veldt-labs/mediatheque/internal/vectorindex"
)

// Ensure SearchService implements the driving port.
var _ driving.SearchService = (*SearchService)(nil)

// Default result limit when the caller passes none.
const defaultSearchLimit = 20

// minCandidatePool is the floor for the over-fetched candidate set when
// reranking narrows results afterwards.
const minCandidatePool = 50

// SearchService combines vector retrieval, structural filtering and
// reranking into ordered result sets.
type SearchService struct {
	videos   driven.VideoStore
	embedder driven.EmbeddingService
	reranker driven.Reranker
	index    *vectorindex.Index
	texts    *DocTextCache
	log      zerolog.Logger
}

// NewSearchService creates a search service. The reranker is optional;
// when nil, searches fall back to vector-similarity order.
func NewSearchService(
	videos driven.VideoStore,
	embedder driven.EmbeddingService,
	reranker driven.Reranker,
	index *vectorindex.Index,
	texts *DocTextCache,
	log zerolog.Logger,
) *SearchService {
	return &SearchService{
		videos:   videos,
		embedder: embedder,
		reranker: reranker,
		index:    index,
		texts:    texts,
		log:      log,
	}
}

// Search parses the query and returns at most limit videos.
//
// Free terms drive vector retrieval; filters (tag/vision/path) prune the
// candidate set; reranking, when enabled and available, re-scores the
// survivors with the cross-encoder. Zero matches yield an empty slice.
func (s *SearchService) Search(ctx context.Context, query string, limit int, rerank bool) ([]domain.Video, error) {
	parsed, err := domain.ParseQuery(query)
	if err != nil {
		return nil, err
	}
	if limit <= 0 {
		limit = defaultSearchLimit
	}

	useVector := len(parsed.Terms) > 0
	var (
		candidates []domain.Video
		queryText  string
	)

	if useVector {
		subQueries := splitSubQueries(parsed.Terms)
		queryText = strings.Join(subQueries, ", ")

		pool := limit
		if rerank {
			pool = limit * 5
			if pool < minCandidatePool {
				pool = minCandidatePool
			}
		}

		candidates, err = s.vectorCandidates(ctx, subQueries, pool)
		if err != nil {
			return nil, err
		}
	} else {
		// Structural-filter-only search sources candidates from the
		// whole library.
		candidates, err = s.videos.List(ctx)
		if err != nil {
			return nil, fmt.Errorf("list videos: %w", err)
		}
	}

	candidates = applyFilters(candidates, parsed.Filters)
	if len(candidates) == 0 {
		return []domain.Video{}, nil
	}

	if useVector && rerank {
		if s.reranker == nil {
			s.log.Warn().Msg("reranker unavailable, keeping vector order")
		} else {
			candidates, err = s.rerankCandidates(ctx, queryText, candidates)
			if err != nil {
				return nil, err
			}
		}
	}

	if len(candidates) > limit {
		candidates = candidates[:limit]
	}
	return candidates, nil
}

// SimilarTo returns the nearest neighbours of an existing video. The
// source video is not excluded from its own result set; callers wanting
// "other similar videos" filter it out themselves.
func (s *SearchService) SimilarTo(ctx context.Context, videoID int64, limit int) ([]domain.Video, error) {
	if limit <= 0 {
		limit = defaultSearchLimit
	}

	if _, err := s.videos.Get(ctx, videoID); err != nil {
		return nil, err
	}

	hits, ok := s.index.SearchByMember(videoID, limit)
	if !ok {
		// Registered but not yet indexed; nothing similar to report.
		return []domain.Video{}, nil
	}

	ids := make([]int64, len(hits))
	for i, h := range hits {
		ids[i] = h.ID
	}
	return s.hydrateOrdered(ctx, ids)
}

// splitSubQueries joins the free terms and splits the result on commas
// into trimmed sub-queries.
func splitSubQueries(terms []string) []string {
	joined := strings.Join(terms, " ")
	parts := strings.Split(joined, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if trimmed := strings.TrimSpace(p); trimmed != "" {
			out = append(out, trimmed)
		}
	}
	return out
}

// vectorCandidates embeds the sub-queries, averages them into a single
// query vector and retrieves the top candidates in similarity order.
func (s *SearchService) vectorCandidates(ctx context.Context, subQueries []string, pool int) ([]domain.Video, error) {
	if s.embedder == nil {
		return nil, domain.ErrEmbeddingUnavailable
	}
	if len(subQueries) == 0 {
		return nil, nil
	}

	inputs := make([]string, len(subQueries))
	for i, q := range subQueries {
		inputs[i] = queryPreamble + q
	}

	embedded, err := s.embedder.EmbedBatch(ctx, inputs)
	if err != nil {
		return nil, fmt.Errorf("embed query: %w", err)
	}

	// Element-wise mean, not renormalised: inner-product ranking is
	// scale-invariant for a fixed query vector.
	queryVec := vectorindex.Mean(embedded)
	hits := s.index.SearchByVector(queryVec, pool)
	if len(hits) == 0 {
		return nil, nil
	}

	ids := make([]int64, len(hits))
	for i, h := range hits {
		ids[i] = h.ID
	}
	return s.hydrateOrdered(ctx, ids)
}

// hydrateOrdered loads videos for ids and restores the given order,
// skipping ids the repository no longer knows.
func (s *SearchService) hydrateOrdered(ctx context.Context, ids []int64) ([]domain.Video, error) {
	videos, err := s.videos.GetByIDs(ctx, ids)
	if err != nil {
		return nil, fmt.Errorf("hydrate candidates: %w", err)
	}

	byID := make(map[int64]domain.Video, len(videos))
	for _, v := range videos {
		byID[v.ID] = v
	}

	ordered := make([]domain.Video, 0, len(ids))
	for _, id := range ids {
		if v, ok := byID[id]; ok {
			ordered = append(ordered, v)
		}
	}
	return ordered, nil
}

// applyFilters prunes candidates with the structural filters and
// deduplicates by id, preserving candidate order.
//
// Semantics: tag values must all be present (superset, AND); vision
// matches when any AI tag matches any requested value (OR, looser since
// visual tags are model-generated); path keeps videos whose search path
// starts with the normalised first requested value — only the first
// path: filter is honored.
func applyFilters(videos []domain.Video, filters map[string][]string) []domain.Video {
	tags := filters[domain.FilterTag]
	vision := filters[domain.FilterVision]
	paths := filters[domain.FilterPath]

	var pathPrefix string
	if len(paths) > 0 {
		pathPrefix = filepath.Clean(paths[0])
	}

	seen := make(map[int64]struct{}, len(videos))
	out := make([]domain.Video, 0, len(videos))
	for _, v := range videos {
		if _, dup := seen[v.ID]; dup {
			continue
		}
		if !v.HasTorrentTags(tags) {
			continue
		}
		if len(vision) > 0 && !matchesAnyVisionTag(&v, vision) {
			continue
		}
		if pathPrefix != "" && !strings.HasPrefix(v.SearchPath, pathPrefix) {
			continue
		}
		seen[v.ID] = struct{}{}
		out = append(out, v)
	}
	return out
}

func matchesAnyVisionTag(v *domain.Video, want []string) bool {
	for _, have := range v.AllVisualTags() {
		for _, w := range want {
			if have == w {
				return true
			}
		}
	}
	return false
}

// rerankCandidates scores every (query, document-text) pair with the
// cross-encoder and reorders candidates by descending score. Scores are
// keyed back by position, hence by video id, so two videos deriving
// identical text cannot shadow each other.
func (s *SearchService) rerankCandidates(ctx context.Context, queryText string, candidates []domain.Video) ([]domain.Video, error) {
	docs := make([]string, len(candidates))
	for i := range candidates {
		docs[i] = s.texts.For(&candidates[i])
	}

	scores, err := s.reranker.Score(ctx, queryText, docs)
	if err != nil {
		return nil, fmt.Errorf("rerank: %w", err)
	}
	if len(scores) != len(candidates) {
		return nil, fmt.Errorf("%w: score count %d != candidate count %d",
			domain.ErrInference, len(scores), len(candidates))
	}

	order := make([]int, len(candidates))
	for i := range order {
		order[i] = i
	}
	sort.SliceStable(order, func(a, b int) bool {
		return scores[order[a]] > scores[order[b]]
	})

	ranked := make([]domain.Video, len(candidates))
	for i, idx := range order {
		ranked[i] = candidates[idx]
	}
	return ranked, nil
}
