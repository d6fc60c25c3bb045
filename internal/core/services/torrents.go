package services

import (
	"context"
	"fmt"
	"io/fs"
	"path/filepath"
	"strings"

	"github.com/rs/zerolog"

	"github.com/veldt-labs/mediatheque/internal/core/domain"
	"github.com/veldt-labs/mediatheque/internal/core/ports/driven"
)

// Configuration key for the .torrent source directory.
const cfgTorrentFolder = "torrents.folder"

// TorrentService imports .torrent metadata and links library videos to
// the torrent files they came from.
type TorrentService struct {
	videos   driven.VideoStore
	torrents driven.TorrentStore
	parser   driven.TorrentParser
	cfg      driven.ConfigStore
	texts    *DocTextCache
	log      zerolog.Logger
}

// NewTorrentService creates a torrent service.
func NewTorrentService(
	videos driven.VideoStore,
	torrents driven.TorrentStore,
	parser driven.TorrentParser,
	cfg driven.ConfigStore,
	texts *DocTextCache,
	log zerolog.Logger,
) *TorrentService {
	return &TorrentService{
		videos:   videos,
		torrents: torrents,
		parser:   parser,
		cfg:      cfg,
		texts:    texts,
		log:      log,
	}
}

// HandleTorrentTags imports every .torrent file under the payload
// directory (or the configured one) and then links unlinked videos to
// their torrent file entries by search path, copying the torrent's tag
// list onto each matched video. Already-imported torrents (by name) are
// skipped; per-file parse failures are logged and skipped.
func (s *TorrentService) HandleTorrentTags(ctx context.Context, task *domain.Task) error {
	dir := strings.TrimSpace(task.Payload)
	if dir == "" {
		dir = s.cfg.GetString(cfgTorrentFolder)
	}
	if dir != "" {
		if err := s.importDirectory(ctx, dir); err != nil {
			return err
		}
	}
	return s.linkVideos(ctx)
}

func (s *TorrentService) importDirectory(ctx context.Context, dir string) error {
	var imported int
	err := filepath.WalkDir(dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if ctx.Err() != nil {
			return ctx.Err()
		}
		if d.IsDir() || !strings.EqualFold(filepath.Ext(path), ".torrent") {
			return nil
		}

		parsed, err := s.parser.ParseFile(ctx, path)
		if err != nil {
			s.log.Error().Err(err).Str("path", path).Msg("parse torrent failed")
			return nil
		}

		existing, err := s.torrents.GetByName(ctx, parsed.Name)
		if err != nil {
			return fmt.Errorf("look up torrent %q: %w", parsed.Name, err)
		}
		if existing != nil {
			return nil
		}

		torrent := &domain.Torrent{
			Name:        parsed.Name,
			Description: parsed.Description,
			Tags:        parsed.Tags,
		}
		files := make([]domain.TorrentFile, len(parsed.Files))
		for i, f := range parsed.Files {
			files[i] = domain.TorrentFile{Path: f.Path, Size: f.Size}
		}
		if err := s.torrents.Save(ctx, torrent, files); err != nil {
			return fmt.Errorf("store torrent %q: %w", parsed.Name, err)
		}
		imported++
		return nil
	})
	if err != nil {
		if ctx.Err() != nil {
			return err
		}
		return fmt.Errorf("walk torrent directory %s: %w", dir, err)
	}

	s.log.Info().Int("imported", imported).Str("dir", dir).Msg("torrent import finished")
	return nil
}

// linkVideos matches every unlinked video's search path against the
// stored torrent file entries.
func (s *TorrentService) linkVideos(ctx context.Context) error {
	pending, err := s.videos.ListMissingTorrentLink(ctx)
	if err != nil {
		return fmt.Errorf("list unlinked videos: %w", err)
	}

	var linked int
	for i := range pending {
		v := &pending[i]
		if v.SearchPath == "" {
			continue
		}

		file, err := s.torrents.FindFileByPath(ctx, v.SearchPath)
		if err != nil {
			return fmt.Errorf("match %q: %w", v.SearchPath, err)
		}
		if file == nil {
			continue
		}

		torrent, err := s.torrents.Get(ctx, file.TorrentID)
		if err != nil {
			return fmt.Errorf("load torrent %d: %w", file.TorrentID, err)
		}

		if err := s.videos.LinkTorrentFile(ctx, v.ID, file.ID); err != nil {
			s.log.Error().Err(err).Int64("video", v.ID).Msg("link torrent file")
			continue
		}
		if len(torrent.Tags) > 0 {
			if err := s.videos.SetTorrentTags(ctx, v.ID, torrent.Tags); err != nil {
				s.log.Error().Err(err).Int64("video", v.ID).Msg("copy torrent tags")
				continue
			}
		}
		s.texts.Invalidate(v.ID)
		linked++
	}

	if linked > 0 {
		s.log.Info().Int("linked", linked).Msg("torrent linking finished")
	}
	return nil
}
