package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/veldt-labs/mediatheque/internal/core/domain"
	"github.com/veldt-labs/mediatheque/internal/core/ports/driven"
)

// videoStore implements driven.VideoStore.
type videoStore struct {
	store *Store
}

var _ driven.VideoStore = (*videoStore)(nil)

// videoColumns is the scalar projection shared by every read query.
const videoColumns = `
	v.id, v.path, v.search_path, v.filename, v.size, v.duration,
	v.codec, v.width, v.height, v.preview_path,
	v.filename_metadata, v.torrent_tags, v.torrent_file_id, v.created_at`

// Save inserts a video or updates its scalar fields.
func (s *videoStore) Save(ctx context.Context, video *domain.Video) error {
	metaJSON, err := marshalNullable(video.FilenameMetadata)
	if err != nil {
		return fmt.Errorf("marshalling filename metadata: %w", err)
	}
	tagsJSON, err := marshalNullable(video.TorrentTags)
	if err != nil {
		return fmt.Errorf("marshalling torrent tags: %w", err)
	}

	if video.CreatedAt.IsZero() {
		video.CreatedAt = time.Now().UTC()
	}

	_, err = s.store.db.ExecContext(ctx, `
		INSERT INTO videos (id, path, search_path, filename, size, duration,
			codec, width, height, preview_path, filename_metadata, torrent_tags,
			torrent_file_id, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			path = excluded.path,
			search_path = excluded.search_path,
			filename = excluded.filename,
			size = excluded.size,
			duration = excluded.duration,
			codec = excluded.codec,
			width = excluded.width,
			height = excluded.height,
			preview_path = excluded.preview_path,
			filename_metadata = excluded.filename_metadata,
			torrent_tags = excluded.torrent_tags,
			torrent_file_id = excluded.torrent_file_id
	`, video.ID, video.Path, video.SearchPath, video.Filename, video.Size, video.Duration,
		video.Codec, video.Width, video.Height, video.PreviewPath, metaJSON, tagsJSON,
		video.TorrentFileID, video.CreatedAt)
	if err != nil {
		return fmt.Errorf("saving video: %w", err)
	}
	return nil
}

// Get retrieves a video by ID.
func (s *videoStore) Get(ctx context.Context, id int64) (*domain.Video, error) {
	videos, err := s.queryVideos(ctx, "WHERE v.id = ?", id)
	if err != nil {
		return nil, err
	}
	if len(videos) == 0 {
		return nil, domain.ErrNotFound
	}
	return &videos[0], nil
}

// GetByIDs retrieves the videos for the given ids.
func (s *videoStore) GetByIDs(ctx context.Context, ids []int64) ([]domain.Video, error) {
	if len(ids) == 0 {
		return nil, nil
	}

	placeholders := strings.Repeat("?,", len(ids))
	placeholders = placeholders[:len(placeholders)-1]
	args := make([]any, len(ids))
	for i, id := range ids {
		args[i] = id
	}
	return s.queryVideos(ctx, "WHERE v.id IN ("+placeholders+")", args...)
}

// Exists reports whether a video with the given id is registered.
func (s *videoStore) Exists(ctx context.Context, id int64) (bool, error) {
	var one int
	err := s.store.db.QueryRowContext(ctx, "SELECT 1 FROM videos WHERE id = ?", id).Scan(&one)
	if errors.Is(err, sql.ErrNoRows) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("checking video existence: %w", err)
	}
	return true, nil
}

// List returns all videos.
func (s *videoStore) List(ctx context.Context) ([]domain.Video, error) {
	return s.queryVideos(ctx, "ORDER BY v.id")
}

// ListMissingDuration returns videos the metadata probe has not
// processed yet.
func (s *videoStore) ListMissingDuration(ctx context.Context) ([]domain.Video, error) {
	return s.queryVideos(ctx, "WHERE v.duration = 0 ORDER BY v.id")
}

// ListMissingFilenameMetadata returns videos without extracted filename
// metadata.
func (s *videoStore) ListMissingFilenameMetadata(ctx context.Context) ([]domain.Video, error) {
	return s.queryVideos(ctx, "WHERE v.filename_metadata IS NULL ORDER BY v.id")
}

// ListUntaggedWithThumbnails returns videos that have at least one
// thumbnail but no visual tag set yet.
func (s *videoStore) ListUntaggedWithThumbnails(ctx context.Context) ([]domain.Video, error) {
	return s.queryVideos(ctx, `
		WHERE EXISTS (SELECT 1 FROM thumbnails t WHERE t.video_id = v.id)
		  AND NOT EXISTS (SELECT 1 FROM video_tag_sets ts WHERE ts.video_id = v.id)
		ORDER BY v.id`)
}

// ListEligibleForIndex returns videos complete enough to embed.
func (s *videoStore) ListEligibleForIndex(ctx context.Context) ([]domain.Video, error) {
	return s.queryVideos(ctx, `
		WHERE v.filename_metadata IS NOT NULL
		  AND EXISTS (SELECT 1 FROM video_tag_sets ts WHERE ts.video_id = v.id)
		ORDER BY v.id`)
}

// ListMissingTorrentLink returns videos not yet matched to a torrent
// file entry.
func (s *videoStore) ListMissingTorrentLink(ctx context.Context) ([]domain.Video, error) {
	return s.queryVideos(ctx, "WHERE v.torrent_file_id IS NULL ORDER BY v.id")
}

// SetFilenameMetadata stores the extracted filename metadata.
func (s *videoStore) SetFilenameMetadata(ctx context.Context, id int64, meta *domain.FilenameMetadata) error {
	metaJSON, err := marshalNullable(meta)
	if err != nil {
		return fmt.Errorf("marshalling filename metadata: %w", err)
	}
	return s.updateOne(ctx, "UPDATE videos SET filename_metadata = ? WHERE id = ?", metaJSON, id)
}

// SetTorrentTags stores the torrent tag list.
func (s *videoStore) SetTorrentTags(ctx context.Context, id int64, tags []string) error {
	tagsJSON, err := marshalNullable(tags)
	if err != nil {
		return fmt.Errorf("marshalling torrent tags: %w", err)
	}
	return s.updateOne(ctx, "UPDATE videos SET torrent_tags = ? WHERE id = ?", tagsJSON, id)
}

// SetPreviewPath records the generated preview clip location.
func (s *videoStore) SetPreviewPath(ctx context.Context, id int64, path string) error {
	return s.updateOne(ctx, "UPDATE videos SET preview_path = ? WHERE id = ?", path, id)
}

// SetProbedMetadata stores the results of the media probe.
func (s *videoStore) SetProbedMetadata(ctx context.Context, id int64, size int64, duration float64, codec string, width, height int) error {
	return s.updateOne(ctx, `
		UPDATE videos SET size = ?, duration = ?, codec = ?, width = ?, height = ?
		WHERE id = ?`, size, duration, codec, width, height, id)
}

// LinkTorrentFile associates the video with a torrent file entry.
func (s *videoStore) LinkTorrentFile(ctx context.Context, id, torrentFileID int64) error {
	return s.updateOne(ctx, "UPDATE videos SET torrent_file_id = ? WHERE id = ?", torrentFileID, id)
}

// AddThumbnail stores a generated thumbnail.
func (s *videoStore) AddThumbnail(ctx context.Context, thumb *domain.Thumbnail) error {
	res, err := s.store.db.ExecContext(ctx, `
		INSERT INTO thumbnails (video_id, path, timestamp) VALUES (?, ?, ?)
	`, thumb.VideoID, thumb.Path, thumb.Timestamp)
	if err != nil {
		return fmt.Errorf("saving thumbnail: %w", err)
	}
	thumb.ID, err = res.LastInsertId()
	if err != nil {
		return fmt.Errorf("reading thumbnail id: %w", err)
	}
	return nil
}

// AddTagSet stores a new visual tag set.
func (s *videoStore) AddTagSet(ctx context.Context, set *domain.TagSet) error {
	tagsJSON, err := json.Marshal(set.Tags)
	if err != nil {
		return fmt.Errorf("marshalling tags: %w", err)
	}
	if set.CreatedAt.IsZero() {
		set.CreatedAt = time.Now().UTC()
	}

	res, err := s.store.db.ExecContext(ctx, `
		INSERT INTO video_tag_sets (video_id, tags, prompt, created_at) VALUES (?, ?, ?, ?)
	`, set.VideoID, string(tagsJSON), set.Prompt, set.CreatedAt)
	if err != nil {
		return fmt.Errorf("saving tag set: %w", err)
	}
	set.ID, err = res.LastInsertId()
	if err != nil {
		return fmt.Errorf("reading tag set id: %w", err)
	}
	return nil
}

// updateOne executes an update that must touch exactly one row.
func (s *videoStore) updateOne(ctx context.Context, query string, args ...any) error {
	res, err := s.store.db.ExecContext(ctx, query, args...)
	if err != nil {
		return fmt.Errorf("updating video: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("counting affected rows: %w", err)
	}
	if n == 0 {
		return domain.ErrNotFound
	}
	return nil
}

// queryVideos runs a scalar query with the given suffix (WHERE/ORDER BY)
// and hydrates thumbnails, tag sets and the linked torrent description.
func (s *videoStore) queryVideos(ctx context.Context, suffix string, args ...any) ([]domain.Video, error) {
	rows, err := s.store.db.QueryContext(ctx, "SELECT "+videoColumns+" FROM videos v "+suffix, args...)
	if err != nil {
		return nil, fmt.Errorf("querying videos: %w", err)
	}
	defer rows.Close()

	var videos []domain.Video
	for rows.Next() {
		v, err := scanVideo(rows)
		if err != nil {
			return nil, err
		}
		videos = append(videos, *v)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating videos: %w", err)
	}

	if err := s.hydrate(ctx, videos); err != nil {
		return nil, err
	}
	return videos, nil
}

func scanVideo(rows *sql.Rows) (*domain.Video, error) {
	var v domain.Video
	var metaJSON, tagsJSON sql.NullString
	var torrentFileID sql.NullInt64
	var createdAt sql.NullTime

	if err := rows.Scan(&v.ID, &v.Path, &v.SearchPath, &v.Filename, &v.Size, &v.Duration,
		&v.Codec, &v.Width, &v.Height, &v.PreviewPath,
		&metaJSON, &tagsJSON, &torrentFileID, &createdAt); err != nil {
		return nil, fmt.Errorf("scanning video: %w", err)
	}

	if metaJSON.Valid {
		var meta domain.FilenameMetadata
		if err := json.Unmarshal([]byte(metaJSON.String), &meta); err != nil {
			return nil, fmt.Errorf("unmarshalling filename metadata: %w", err)
		}
		v.FilenameMetadata = &meta
	}
	if tagsJSON.Valid {
		if err := json.Unmarshal([]byte(tagsJSON.String), &v.TorrentTags); err != nil {
			return nil, fmt.Errorf("unmarshalling torrent tags: %w", err)
		}
	}
	if torrentFileID.Valid {
		id := torrentFileID.Int64
		v.TorrentFileID = &id
	}
	if createdAt.Valid {
		v.CreatedAt = createdAt.Time
	}
	return &v, nil
}

// hydrate attaches thumbnails, tag sets and torrent descriptions to the
// scanned videos in one pass per relation.
func (s *videoStore) hydrate(ctx context.Context, videos []domain.Video) error {
	if len(videos) == 0 {
		return nil
	}

	byID := make(map[int64]*domain.Video, len(videos))
	placeholders := make([]string, 0, len(videos))
	args := make([]any, 0, len(videos))
	for i := range videos {
		byID[videos[i].ID] = &videos[i]
		placeholders = append(placeholders, "?")
		args = append(args, videos[i].ID)
	}
	in := "(" + strings.Join(placeholders, ",") + ")"

	rows, err := s.store.db.QueryContext(ctx, `
		SELECT id, video_id, path, timestamp FROM thumbnails
		WHERE video_id IN `+in+` ORDER BY timestamp`, args...)
	if err != nil {
		return fmt.Errorf("querying thumbnails: %w", err)
	}
	defer rows.Close()
	for rows.Next() {
		var t domain.Thumbnail
		if err := rows.Scan(&t.ID, &t.VideoID, &t.Path, &t.Timestamp); err != nil {
			return fmt.Errorf("scanning thumbnail: %w", err)
		}
		if v := byID[t.VideoID]; v != nil {
			v.Thumbnails = append(v.Thumbnails, t)
		}
	}
	if err := rows.Err(); err != nil {
		return fmt.Errorf("iterating thumbnails: %w", err)
	}

	// Most recent first: VisualTags reads index zero.
	setRows, err := s.store.db.QueryContext(ctx, `
		SELECT id, video_id, tags, prompt, created_at FROM video_tag_sets
		WHERE video_id IN `+in+` ORDER BY created_at DESC, id DESC`, args...)
	if err != nil {
		return fmt.Errorf("querying tag sets: %w", err)
	}
	defer setRows.Close()
	for setRows.Next() {
		var set domain.TagSet
		var tagsJSON string
		var createdAt sql.NullTime
		if err := setRows.Scan(&set.ID, &set.VideoID, &tagsJSON, &set.Prompt, &createdAt); err != nil {
			return fmt.Errorf("scanning tag set: %w", err)
		}
		if err := json.Unmarshal([]byte(tagsJSON), &set.Tags); err != nil {
			return fmt.Errorf("unmarshalling tag set: %w", err)
		}
		if createdAt.Valid {
			set.CreatedAt = createdAt.Time
		}
		if v := byID[set.VideoID]; v != nil {
			v.TagSets = append(v.TagSets, set)
		}
	}
	if err := setRows.Err(); err != nil {
		return fmt.Errorf("iterating tag sets: %w", err)
	}

	descRows, err := s.store.db.QueryContext(ctx, `
		SELECT v.id, t.description FROM videos v
		JOIN torrent_files tf ON tf.id = v.torrent_file_id
		JOIN torrents t ON t.id = tf.torrent_id
		WHERE v.id IN `+in, args...)
	if err != nil {
		return fmt.Errorf("querying torrent descriptions: %w", err)
	}
	defer descRows.Close()
	for descRows.Next() {
		var id int64
		var description string
		if err := descRows.Scan(&id, &description); err != nil {
			return fmt.Errorf("scanning torrent description: %w", err)
		}
		if v := byID[id]; v != nil {
			v.Description = description
		}
	}
	if err := descRows.Err(); err != nil {
		return fmt.Errorf("iterating torrent descriptions: %w", err)
	}

	return nil
}

// marshalNullable marshals v to JSON, mapping nil pointers and nil
// slices to SQL NULL so listing predicates can use IS NULL.
func marshalNullable(v any) (any, error) {
	switch val := v.(type) {
	case *domain.FilenameMetadata:
		if val == nil {
			return nil, nil
		}
	case []string:
		if val == nil {
			return nil, nil
		}
	}
	data, err := json.Marshal(v)
	if err != nil {
		return nil, err
	}
	return string(data), nil
}
