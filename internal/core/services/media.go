package services

import (
	"context"
	"fmt"
	"strconv"

	"github.com/rs/zerolog"

	"github.com/veldt-labs/mediatheque/internal/core/domain"
	"github.com/veldt-labs/mediatheque/internal/core/ports/driven"
	"github.com/veldt-labs/mediatheque/internal/core/ports/driving"
)

// MediaService drives probing and artifact generation for registered
// videos.
type MediaService struct {
	videos   driven.VideoStore
	queue    driving.TaskQueue
	prober   driven.MediaProber
	previews driven.PreviewGenerator
	thumbs   driven.ThumbnailGenerator
	log      zerolog.Logger
}

// NewMediaService creates a media service.
func NewMediaService(
	videos driven.VideoStore,
	queue driving.TaskQueue,
	prober driven.MediaProber,
	previews driven.PreviewGenerator,
	thumbs driven.ThumbnailGenerator,
	log zerolog.Logger,
) *MediaService {
	return &MediaService{
		videos:   videos,
		queue:    queue,
		prober:   prober,
		previews: previews,
		thumbs:   thumbs,
		log:      log,
	}
}

// HandleMetadata probes every video still missing a duration and stores
// the stream metadata. Each probed video gets a preview and a thumbnail
// follow-up task. Per-video failures are logged and skipped so one
// corrupt file cannot stall the batch.
func (s *MediaService) HandleMetadata(ctx context.Context, _ *domain.Task) error {
	pending, err := s.videos.ListMissingDuration(ctx)
	if err != nil {
		return fmt.Errorf("list unprobed videos: %w", err)
	}
	if len(pending) == 0 {
		return nil
	}

	var probed int
	for i := range pending {
		v := &pending[i]
		if ctx.Err() != nil {
			return ctx.Err()
		}

		info, err := s.prober.Probe(ctx, v.Path)
		if err != nil {
			s.log.Error().Err(err).Int64("video", v.ID).Str("path", v.Path).Msg("probe failed")
			continue
		}
		if err := s.videos.SetProbedMetadata(ctx, v.ID, info.Size, info.Duration, info.Codec, info.Width, info.Height); err != nil {
			s.log.Error().Err(err).Int64("video", v.ID).Msg("store probed metadata")
			continue
		}
		probed++

		payload := strconv.FormatInt(v.ID, 10)
		if _, err := s.queue.Enqueue(ctx, domain.TaskPreview, payload); err != nil {
			s.log.Error().Err(err).Int64("video", v.ID).Msg("enqueue preview")
		}
		if _, err := s.queue.Enqueue(ctx, domain.TaskThumbnail, payload); err != nil {
			s.log.Error().Err(err).Int64("video", v.ID).Msg("enqueue thumbnail")
		}
	}

	s.log.Info().Int("pending", len(pending)).Int("probed", probed).Msg("metadata batch finished")
	return nil
}

// HandlePreview generates a preview clip for the video named in the
// task payload.
func (s *MediaService) HandlePreview(ctx context.Context, task *domain.Task) error {
	video, err := s.videoFromPayload(ctx, task)
	if err != nil {
		return err
	}

	path, err := s.previews.Generate(ctx, video)
	if err != nil {
		return fmt.Errorf("generate preview for %d: %w", video.ID, err)
	}
	if err := s.videos.SetPreviewPath(ctx, video.ID, path); err != nil {
		return fmt.Errorf("store preview path: %w", err)
	}
	return nil
}

// HandleThumbnail extracts still frames for the video named in the task
// payload.
func (s *MediaService) HandleThumbnail(ctx context.Context, task *domain.Task) error {
	video, err := s.videoFromPayload(ctx, task)
	if err != nil {
		return err
	}

	frames, err := s.thumbs.Generate(ctx, video)
	if err != nil {
		return fmt.Errorf("generate thumbnails for %d: %w", video.ID, err)
	}
	for i := range frames {
		frames[i].VideoID = video.ID
		if err := s.videos.AddThumbnail(ctx, &frames[i]); err != nil {
			return fmt.Errorf("store thumbnail: %w", err)
		}
	}
	return nil
}

func (s *MediaService) videoFromPayload(ctx context.Context, task *domain.Task) (*domain.Video, error) {
	id, err := strconv.ParseInt(task.Payload, 10, 64)
	if err != nil {
		return nil, fmt.Errorf("%w: payload %q is not a video id", domain.ErrInvalidInput, task.Payload)
	}
	return s.videos.Get(ctx, id)
}
