package driven

import (
	"context"

	"github.com/veldt-labs/mediatheque/internal/core/domain"
)

// TorrentStore persists torrent metadata parsed from .torrent files.
type TorrentStore interface {
	// Save stores a torrent and its file entries. The torrent and file
	// IDs are assigned on insert.
	Save(ctx context.Context, torrent *domain.Torrent, files []domain.TorrentFile) error

	// GetByName retrieves a torrent by name. Returns nil and no error
	// when absent (used for duplicate detection during directory scans).
	GetByName(ctx context.Context, name string) (*domain.Torrent, error)

	// Get retrieves a torrent by id. Returns domain.ErrNotFound when absent.
	Get(ctx context.Context, id int64) (*domain.Torrent, error)

	// FindFileByPath retrieves the torrent file entry whose in-torrent
	// path matches exactly. Returns nil and no error when absent.
	FindFileByPath(ctx context.Context, path string) (*domain.TorrentFile, error)
}
