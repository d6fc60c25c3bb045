// Package media provides media-file collaborators: stream probing via
// ffprobe and preview/thumbnail generation via ffmpeg.
package media

import (
	"context"
	"fmt"
	"os"
	"strconv"

	ffprobe "gopkg.in/vansante/go-ffprobe.v2"

	"github.com/veldt-labs/mediatheque/internal/core/ports/driven"
)

// Ensure Prober implements the interface.
var _ driven.MediaProber = (*Prober)(nil)

// Prober extracts container and stream metadata using ffprobe.
type Prober struct{}

// NewProber creates a media prober. Requires ffprobe on PATH.
func NewProber() *Prober {
	return &Prober{}
}

// Probe reads the container duration, the first video stream's codec and
// dimensions, and the file size.
func (p *Prober) Probe(ctx context.Context, path string) (*driven.MediaInfo, error) {
	data, err := ffprobe.ProbeURL(ctx, path)
	if err != nil {
		return nil, fmt.Errorf("probing %s: %w", path, err)
	}

	info := &driven.MediaInfo{
		Duration: data.Format.DurationSeconds,
	}

	if stream := data.FirstVideoStream(); stream != nil {
		info.Codec = stream.CodecName
		info.Width = stream.Width
		info.Height = stream.Height
	}

	if data.Format.Size != "" {
		if size, err := strconv.ParseInt(data.Format.Size, 10, 64); err == nil {
			info.Size = size
		}
	}
	if info.Size == 0 {
		if fi, err := os.Stat(path); err == nil {
			info.Size = fi.Size()
		}
	}

	return info, nil
}
