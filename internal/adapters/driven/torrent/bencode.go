// Package torrent parses .torrent files into library metadata.
package torrent

import (
	"context"
	"fmt"
	"os"
	"regexp"
	"strings"

	bencode "github.com/jackpal/bencode-go"

	"github.com/veldt-labs/mediatheque/internal/core/ports/driven"
)

// Ensure Parser implements the interface.
var _ driven.TorrentParser = (*Parser)(nil)

// Parser decodes bencode .torrent files, including the tracker's
// metadata dictionary carrying the taglist and description.
type Parser struct{}

// NewParser creates a torrent parser.
func NewParser() *Parser {
	return &Parser{}
}

type torrentDict struct {
	Info     infoDict     `bencode:"info"`
	Metadata metadataDict `bencode:"metadata"`
}

type metadataDict struct {
	TagList     []string `bencode:"taglist"`
	Description string   `bencode:"description"`
}

type infoDict struct {
	Name   string          `bencode:"name"`
	Length int64           `bencode:"length"`
	Files  []fileEntryDict `bencode:"files"`
}

type fileEntryDict struct {
	Length int64    `bencode:"length"`
	Path   []string `bencode:"path"`
}

// ParseFile decodes one .torrent file. Multi-file torrents prefix every
// entry with the torrent name, matching the on-disk layout clients
// produce; single-file torrents get one entry named after the torrent.
func (p *Parser) ParseFile(ctx context.Context, path string) (*driven.ParsedTorrent, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("opening torrent: %w", err)
	}
	defer f.Close()

	var dict torrentDict
	if err := bencode.Unmarshal(f, &dict); err != nil {
		return nil, fmt.Errorf("decoding %s: %w", path, err)
	}
	if dict.Info.Name == "" {
		return nil, fmt.Errorf("decoding %s: missing info name", path)
	}

	parsed := &driven.ParsedTorrent{
		Name:        dict.Info.Name,
		Description: StripBBCode(dict.Metadata.Description),
		Tags:        dict.Metadata.TagList,
	}

	if len(dict.Info.Files) > 0 {
		for _, entry := range dict.Info.Files {
			// In-torrent paths always use forward slashes.
			full := dict.Info.Name + "/" + strings.Join(entry.Path, "/")
			parsed.Files = append(parsed.Files, driven.ParsedTorrentFile{
				Path: full,
				Size: entry.Length,
			})
		}
	} else {
		parsed.Files = []driven.ParsedTorrentFile{{
			Path: dict.Info.Name,
			Size: dict.Info.Length,
		}}
	}

	return parsed, nil
}

var (
	// Paired image tags and everything inside them.
	bbImageRe = regexp.MustCompile(`(?is)\[(?:img|thumb)(?:=[^\]]+)?\].*?\[/(?:img|thumb)\]`)
	// Any remaining [tag] or [/tag], with or without =value.
	bbTagRe = regexp.MustCompile(`\[/?[^\[\]=]+(?:=[^\]]+)?\]`)
	// Runs of blank lines left behind by removed tags.
	blankRunRe = regexp.MustCompile(`\n\s*\n+`)
)

// StripBBCode removes bbcode markup from tracker descriptions, dropping
// image blocks wholesale and unwrapping the rest.
func StripBBCode(text string) string {
	text = bbImageRe.ReplaceAllString(text, "")
	text = bbTagRe.ReplaceAllString(text, "")
	text = blankRunRe.ReplaceAllString(text, "\n\n")
	return strings.TrimSpace(text)
}
