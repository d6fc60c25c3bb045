package services

import (
	"context"
	"encoding/json"
	"fmt"
	"io/fs"
	"path/filepath"
	"strings"

	"github.com/rs/zerolog"

	"github.com/veldt-labs/mediatheque/internal/core/domain"
	"github.com/veldt-labs/mediatheque/internal/core/ports/driven"
	"github.com/veldt-labs/mediatheque/internal/core/ports/driving"
)

// Configuration keys the scan handler reads.
const (
	cfgMediaFolders    = "media.folders"
	cfgMediaExtensions = "media.extensions"
)

// Extensions considered video files when the config does not override
// them.
var defaultVideoExtensions = []string{
	".mp4", ".mkv", ".avi", ".mov", ".wmv", ".webm", ".m4v", ".mpg", ".mpeg", ".flv", ".ts",
}

// ScanService discovers video files under the library roots and
// registers them.
type ScanService struct {
	videos driven.VideoStore
	queue  driving.TaskQueue
	cfg    driven.ConfigStore
	log    zerolog.Logger
}

// NewScanService creates a scan service.
func NewScanService(videos driven.VideoStore, queue driving.TaskQueue, cfg driven.ConfigStore, log zerolog.Logger) *ScanService {
	return &ScanService{videos: videos, queue: queue, cfg: cfg, log: log}
}

// HandleScan walks the requested folders (task payload, a JSON string
// array) or the configured library roots when the payload is empty, and
// registers every unseen video file. One metadata follow-up task is
// enqueued afterwards so freshly registered files get probed.
func (s *ScanService) HandleScan(ctx context.Context, task *domain.Task) error {
	roots := s.cfg.GetStringSlice(cfgMediaFolders)
	folders := roots
	if strings.TrimSpace(task.Payload) != "" {
		if err := json.Unmarshal([]byte(task.Payload), &folders); err != nil {
			return fmt.Errorf("%w: scan payload: %v", domain.ErrInvalidInput, err)
		}
	}
	if len(folders) == 0 {
		s.log.Warn().Msg("no folders to scan")
		return nil
	}

	exts := extensionSet(s.cfg.GetStringSlice(cfgMediaExtensions))

	var found, added int
	for _, folder := range folders {
		err := filepath.WalkDir(folder, func(path string, d fs.DirEntry, err error) error {
			if err != nil {
				return err
			}
			if ctx.Err() != nil {
				return ctx.Err()
			}
			if d.IsDir() {
				return nil
			}
			if _, ok := exts[strings.ToLower(filepath.Ext(path))]; !ok {
				return nil
			}

			found++
			id := domain.IDForPath(path)
			exists, err := s.videos.Exists(ctx, id)
			if err != nil {
				return fmt.Errorf("check %s: %w", path, err)
			}
			if exists {
				return nil
			}

			video := domain.NewVideo(path, roots)
			if err := s.videos.Save(ctx, video); err != nil {
				return fmt.Errorf("register %s: %w", path, err)
			}
			added++
			s.log.Debug().Int64("video", video.ID).Str("path", video.Path).Msg("video registered")
			return nil
		})
		if err != nil {
			if ctx.Err() != nil {
				return err
			}
			// A missing or unreadable folder should not sink the whole scan.
			s.log.Error().Err(err).Str("folder", folder).Msg("scan folder failed")
		}
	}

	s.log.Info().Int("found", found).Int("added", added).Msg("scan finished")

	if _, err := s.queue.Enqueue(ctx, domain.TaskMetadata, ""); err != nil {
		return fmt.Errorf("enqueue metadata follow-up: %w", err)
	}
	return nil
}

func extensionSet(configured []string) map[string]struct{} {
	exts := configured
	if len(exts) == 0 {
		exts = defaultVideoExtensions
	}
	set := make(map[string]struct{}, len(exts))
	for _, e := range exts {
		e = strings.ToLower(strings.TrimSpace(e))
		if e == "" {
			continue
		}
		if !strings.HasPrefix(e, ".") {
			e = "." + e
		}
		set[e] = struct{}{}
	}
	return set
}
