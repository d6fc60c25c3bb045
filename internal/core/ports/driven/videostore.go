package driven

import (
	"context"

	"github.com/veldt-labs/mediatheque/internal/core/domain"
)

// VideoStore persists videos and their enrichment state.
// Backed by SQLite. All read methods return hydrated videos: thumbnails,
// tag sets (most recent first) and the linked torrent description are
// loaded alongside the scalar columns.
type VideoStore interface {
	// Save inserts a video or updates its scalar fields.
	Save(ctx context.Context, video *domain.Video) error

	// Get retrieves a video by id. Returns domain.ErrNotFound when absent.
	Get(ctx context.Context, id int64) (*domain.Video, error)

	// GetByIDs retrieves the videos for the given ids. Missing ids are
	// silently skipped; result order is unspecified.
	GetByIDs(ctx context.Context, ids []int64) ([]domain.Video, error)

	// Exists reports whether a video with the given id is registered.
	Exists(ctx context.Context, id int64) (bool, error)

	// List returns all videos.
	List(ctx context.Context) ([]domain.Video, error)

	// ListMissingDuration returns videos the metadata probe has not
	// processed yet.
	ListMissingDuration(ctx context.Context) ([]domain.Video, error)

	// ListMissingFilenameMetadata returns videos without extracted
	// filename metadata.
	ListMissingFilenameMetadata(ctx context.Context) ([]domain.Video, error)

	// ListUntaggedWithThumbnails returns videos that have at least one
	// thumbnail but no visual tag set yet.
	ListUntaggedWithThumbnails(ctx context.Context) ([]domain.Video, error)

	// ListEligibleForIndex returns videos complete enough to embed:
	// filename metadata present and at least one tag set. Order is
	// stable across calls.
	ListEligibleForIndex(ctx context.Context) ([]domain.Video, error)

	// ListMissingTorrentLink returns videos not yet matched to a
	// torrent file entry.
	ListMissingTorrentLink(ctx context.Context) ([]domain.Video, error)

	// SetFilenameMetadata stores the extracted filename metadata.
	SetFilenameMetadata(ctx context.Context, id int64, meta *domain.FilenameMetadata) error

	// SetTorrentTags stores the torrent tag list.
	SetTorrentTags(ctx context.Context, id int64, tags []string) error

	// SetPreviewPath records the generated preview clip location.
	SetPreviewPath(ctx context.Context, id int64, path string) error

	// SetProbedMetadata stores the results of the media probe.
	SetProbedMetadata(ctx context.Context, id int64, size int64, duration float64, codec string, width, height int) error

	// LinkTorrentFile associates the video with a torrent file entry.
	LinkTorrentFile(ctx context.Context, id, torrentFileID int64) error

	// AddThumbnail stores a generated thumbnail.
	AddThumbnail(ctx context.Context, thumb *domain.Thumbnail) error

	// AddTagSet stores a new visual tag set.
	AddTagSet(ctx context.Context, set *domain.TagSet) error
}
