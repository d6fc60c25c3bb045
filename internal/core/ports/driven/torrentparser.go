package driven

import "context"

// ParsedTorrent is the decoded content of one .torrent file.
type ParsedTorrent struct {
	Name        string
	Description string
	Tags        []string
	Files       []ParsedTorrentFile
}

// ParsedTorrentFile is one file entry inside a parsed torrent. Path is
// the in-torrent path, prefixed with the torrent name for multi-file
// layouts.
type ParsedTorrentFile struct {
	Path string
	Size int64
}

// TorrentParser decodes bencode .torrent files. Implementations strip
// bbcode markup from descriptions before returning them.
type TorrentParser interface {
	ParseFile(ctx context.Context, path string) (*ParsedTorrent, error)
}
