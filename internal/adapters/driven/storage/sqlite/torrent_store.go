package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/veldt-labs/mediatheque/internal/core/domain"
	"github.com/veldt-labs/mediatheque/internal/core/ports/driven"
)

// torrentStore implements driven.TorrentStore.
type torrentStore struct {
	store *Store
}

var _ driven.TorrentStore = (*torrentStore)(nil)

// Save stores a torrent and its file entries in one transaction.
func (s *torrentStore) Save(ctx context.Context, torrent *domain.Torrent, files []domain.TorrentFile) error {
	tagsJSON, err := json.Marshal(torrent.Tags)
	if err != nil {
		return fmt.Errorf("marshalling tags: %w", err)
	}
	if torrent.CreatedAt.IsZero() {
		torrent.CreatedAt = time.Now().UTC()
	}

	tx, err := s.store.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("beginning transaction: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck

	res, err := tx.ExecContext(ctx, `
		INSERT INTO torrents (name, description, tags, created_at)
		VALUES (?, ?, ?, ?)
	`, torrent.Name, torrent.Description, string(tagsJSON), torrent.CreatedAt)
	if err != nil {
		return fmt.Errorf("saving torrent: %w", err)
	}
	torrent.ID, err = res.LastInsertId()
	if err != nil {
		return fmt.Errorf("reading torrent id: %w", err)
	}

	for i := range files {
		files[i].TorrentID = torrent.ID
		res, err := tx.ExecContext(ctx, `
			INSERT INTO torrent_files (torrent_id, path, size) VALUES (?, ?, ?)
		`, torrent.ID, files[i].Path, files[i].Size)
		if err != nil {
			return fmt.Errorf("saving torrent file: %w", err)
		}
		files[i].ID, err = res.LastInsertId()
		if err != nil {
			return fmt.Errorf("reading torrent file id: %w", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("committing torrent: %w", err)
	}
	return nil
}

// GetByName retrieves a torrent by name, nil when absent.
func (s *torrentStore) GetByName(ctx context.Context, name string) (*domain.Torrent, error) {
	torrent, err := s.get(ctx, "WHERE name = ?", name)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	return torrent, err
}

// Get retrieves a torrent by id.
func (s *torrentStore) Get(ctx context.Context, id int64) (*domain.Torrent, error) {
	torrent, err := s.get(ctx, "WHERE id = ?", id)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, domain.ErrNotFound
	}
	return torrent, err
}

func (s *torrentStore) get(ctx context.Context, where string, arg any) (*domain.Torrent, error) {
	row := s.store.db.QueryRowContext(ctx,
		"SELECT id, name, description, tags, created_at FROM torrents "+where, arg)

	var torrent domain.Torrent
	var tagsJSON string
	var createdAt sql.NullTime
	if err := row.Scan(&torrent.ID, &torrent.Name, &torrent.Description, &tagsJSON, &createdAt); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, err
		}
		return nil, fmt.Errorf("scanning torrent: %w", err)
	}
	if err := json.Unmarshal([]byte(tagsJSON), &torrent.Tags); err != nil {
		return nil, fmt.Errorf("unmarshalling tags: %w", err)
	}
	if createdAt.Valid {
		torrent.CreatedAt = createdAt.Time
	}
	return &torrent, nil
}

// FindFileByPath retrieves the torrent file entry whose in-torrent path
// matches exactly, nil when absent.
func (s *torrentStore) FindFileByPath(ctx context.Context, path string) (*domain.TorrentFile, error) {
	row := s.store.db.QueryRowContext(ctx, `
		SELECT id, torrent_id, path, size FROM torrent_files WHERE path = ? LIMIT 1
	`, path)

	var file domain.TorrentFile
	if err := row.Scan(&file.ID, &file.TorrentID, &file.Path, &file.Size); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("scanning torrent file: %w", err)
	}
	return &file, nil
}
