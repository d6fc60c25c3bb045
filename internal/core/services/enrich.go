package services

import (
	"context"
	"fmt"

	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"

	"github.com/veldt-labs/mediatheque/internal/core/domain"
	"github.com/veldt-labs/mediatheque/internal/core/ports/driven"
)

// Concurrency bounds for the model-backed batch handlers. Extraction is
// text-only and cheap; vision requests carry full frames, so fewer in
// flight.
const (
	extractParallelism = 3
	tagParallelism     = 2
)

// EnrichService runs the model-backed enrichment passes: filename
// metadata extraction and visual tagging.
type EnrichService struct {
	videos    driven.VideoStore
	extractor driven.FilenameExtractor
	tagger    driven.VisionTagger
	texts     *DocTextCache
	log       zerolog.Logger
}

// NewEnrichService creates an enrichment service.
func NewEnrichService(
	videos driven.VideoStore,
	extractor driven.FilenameExtractor,
	tagger driven.VisionTagger,
	texts *DocTextCache,
	log zerolog.Logger,
) *EnrichService {
	return &EnrichService{
		videos:    videos,
		extractor: extractor,
		tagger:    tagger,
		texts:     texts,
		log:       log,
	}
}

// HandleFilenameMetadata extracts structured metadata for every video
// still missing it. Model calls fan out with a bounded group; results
// are committed on the handler goroutine after the whole batch returns,
// so a slow store write never holds a semaphore slot. Per-item model
// failures are logged and skipped.
func (s *EnrichService) HandleFilenameMetadata(ctx context.Context, _ *domain.Task) error {
	pending, err := s.videos.ListMissingFilenameMetadata(ctx)
	if err != nil {
		return fmt.Errorf("list unextracted videos: %w", err)
	}
	if len(pending) == 0 {
		return nil
	}

	results := make([]*domain.FilenameMetadata, len(pending))

	g, gctx := errgroup.WithContext(ctx)
	sem := make(chan struct{}, extractParallelism)
	for i := range pending {
		g.Go(func() error {
			select {
			case sem <- struct{}{}:
				defer func() { <-sem }()
			case <-gctx.Done():
				return gctx.Err()
			}

			v := &pending[i]
			meta, err := s.extractor.Extract(gctx, v.Path)
			if err != nil {
				s.log.Error().Err(err).Int64("video", v.ID).Msg("filename extraction failed")
				return nil
			}
			results[i] = meta
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return err
	}

	var saved int
	for i, meta := range results {
		if meta == nil {
			continue
		}
		id := pending[i].ID
		if err := s.videos.SetFilenameMetadata(ctx, id, meta); err != nil {
			s.log.Error().Err(err).Int64("video", id).Msg("store filename metadata")
			continue
		}
		s.texts.Invalidate(id)
		saved++
	}

	s.log.Info().Int("pending", len(pending)).Int("extracted", saved).Msg("filename metadata batch finished")
	return nil
}

// HandleTag runs the vision tagger over every video that has thumbnails
// but no tag set yet. The first thumbnail represents the video. Results
// are committed after the batch, same shape as the extraction handler.
func (s *EnrichService) HandleTag(ctx context.Context, _ *domain.Task) error {
	pending, err := s.videos.ListUntaggedWithThumbnails(ctx)
	if err != nil {
		return fmt.Errorf("list untagged videos: %w", err)
	}
	if len(pending) == 0 {
		return nil
	}

	type tagResult struct {
		tags   []string
		prompt string
	}
	results := make([]*tagResult, len(pending))

	g, gctx := errgroup.WithContext(ctx)
	sem := make(chan struct{}, tagParallelism)
	for i := range pending {
		g.Go(func() error {
			select {
			case sem <- struct{}{}:
				defer func() { <-sem }()
			case <-gctx.Done():
				return gctx.Err()
			}

			v := &pending[i]
			if len(v.Thumbnails) == 0 {
				// The listing guarantees thumbnails; guard anyway.
				return nil
			}
			tags, prompt, err := s.tagger.TagImage(gctx, v.Thumbnails[0].Path)
			if err != nil {
				s.log.Error().Err(err).Int64("video", v.ID).Msg("vision tagging failed")
				return nil
			}
			results[i] = &tagResult{tags: tags, prompt: prompt}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return err
	}

	var saved int
	for i, res := range results {
		if res == nil {
			continue
		}
		id := pending[i].ID
		set := &domain.TagSet{VideoID: id, Tags: res.tags, Prompt: res.prompt}
		if err := s.videos.AddTagSet(ctx, set); err != nil {
			s.log.Error().Err(err).Int64("video", id).Msg("store tag set")
			continue
		}
		s.texts.Invalidate(id)
		saved++
	}

	s.log.Info().Int("pending", len(pending)).Int("tagged", saved).Msg("tagging batch finished")
	return nil
}
