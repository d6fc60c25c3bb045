package media

import (
	"context"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strconv"

	"github.com/veldt-labs/mediatheque/internal/core/domain"
	"github.com/veldt-labs/mediatheque/internal/core/ports/driven"
)

// Ensure the generators implement their interfaces.
var (
	_ driven.PreviewGenerator   = (*PreviewGenerator)(nil)
	_ driven.ThumbnailGenerator = (*ThumbnailGenerator)(nil)
)

// Default generation parameters.
const (
	DefaultPreviewSegments   = 6
	DefaultSegmentSeconds    = 2.0
	DefaultPreviewHeight     = 360
	DefaultThumbnailCount    = 5
	DefaultThumbnailHeight   = 480
	DefaultFFmpegBinary      = "ffmpeg"
	thumbnailSeekInsetFactor = 0.05 // skip intros and credits
)

// PreviewConfig holds configuration for preview clip generation.
type PreviewConfig struct {
	// OutputDir is where preview clips land (required).
	OutputDir string

	// Segments is how many short segments are sampled across the video
	// (default: 6).
	Segments int

	// SegmentSeconds is the length of each sampled segment (default: 2).
	SegmentSeconds float64

	// Height scales the preview, keeping aspect ratio (default: 360).
	Height int

	// Binary overrides the ffmpeg binary path.
	Binary string
}

// PreviewGenerator samples short segments across a video and
// concatenates them into one preview clip.
type PreviewGenerator struct {
	cfg PreviewConfig
}

// NewPreviewGenerator creates a preview generator. Requires ffmpeg on
// PATH unless cfg.Binary overrides it.
func NewPreviewGenerator(cfg PreviewConfig) *PreviewGenerator {
	if cfg.Segments <= 0 {
		cfg.Segments = DefaultPreviewSegments
	}
	if cfg.SegmentSeconds <= 0 {
		cfg.SegmentSeconds = DefaultSegmentSeconds
	}
	if cfg.Height <= 0 {
		cfg.Height = DefaultPreviewHeight
	}
	if cfg.Binary == "" {
		cfg.Binary = DefaultFFmpegBinary
	}
	return &PreviewGenerator{cfg: cfg}
}

// Generate produces the preview clip and returns its path. Segment
// offsets spread evenly across the probed duration; videos shorter than
// one segment get a single clip from the start.
func (g *PreviewGenerator) Generate(ctx context.Context, video *domain.Video) (string, error) {
	if err := os.MkdirAll(g.cfg.OutputDir, 0o755); err != nil {
		return "", fmt.Errorf("creating preview directory: %w", err)
	}
	outPath := filepath.Join(g.cfg.OutputDir, fmt.Sprintf("%d.mp4", video.ID))

	offsets := sampleOffsets(video.Duration, g.cfg.Segments, g.cfg.SegmentSeconds)
	args := previewArgs(video.Path, outPath, offsets, g.cfg.SegmentSeconds, g.cfg.Height)

	cmd := exec.CommandContext(ctx, g.cfg.Binary, args...)
	if out, err := cmd.CombinedOutput(); err != nil {
		return "", fmt.Errorf("ffmpeg preview for %s: %w: %s", video.Path, err, truncateOutput(out))
	}
	return outPath, nil
}

// ThumbnailConfig holds configuration for thumbnail extraction.
type ThumbnailConfig struct {
	// OutputDir is where thumbnails land (required).
	OutputDir string

	// Count is how many frames to extract (default: 5).
	Count int

	// Height scales the frames, keeping aspect ratio (default: 480).
	Height int

	// Binary overrides the ffmpeg binary path.
	Binary string
}

// ThumbnailGenerator extracts still frames evenly spaced across a
// video's duration.
type ThumbnailGenerator struct {
	cfg ThumbnailConfig
}

// NewThumbnailGenerator creates a thumbnail generator.
func NewThumbnailGenerator(cfg ThumbnailConfig) *ThumbnailGenerator {
	if cfg.Count <= 0 {
		cfg.Count = DefaultThumbnailCount
	}
	if cfg.Height <= 0 {
		cfg.Height = DefaultThumbnailHeight
	}
	if cfg.Binary == "" {
		cfg.Binary = DefaultFFmpegBinary
	}
	return &ThumbnailGenerator{cfg: cfg}
}

// Generate extracts one frame per sample point, skipping a small inset
// at both ends of the video.
func (g *ThumbnailGenerator) Generate(ctx context.Context, video *domain.Video) ([]domain.Thumbnail, error) {
	if err := os.MkdirAll(g.cfg.OutputDir, 0o755); err != nil {
		return nil, fmt.Errorf("creating thumbnail directory: %w", err)
	}

	timestamps := thumbnailTimestamps(video.Duration, g.cfg.Count)
	thumbs := make([]domain.Thumbnail, 0, len(timestamps))
	for i, ts := range timestamps {
		outPath := filepath.Join(g.cfg.OutputDir, fmt.Sprintf("%d_%d.jpg", video.ID, i))

		args := []string{
			"-y",
			"-ss", formatSeconds(ts),
			"-i", video.Path,
			"-frames:v", "1",
			"-vf", fmt.Sprintf("scale=-2:%d", g.cfg.Height),
			outPath,
		}
		cmd := exec.CommandContext(ctx, g.cfg.Binary, args...)
		if out, err := cmd.CombinedOutput(); err != nil {
			return nil, fmt.Errorf("ffmpeg thumbnail %d for %s: %w: %s", i, video.Path, err, truncateOutput(out))
		}

		thumbs = append(thumbs, domain.Thumbnail{
			VideoID:   video.ID,
			Path:      outPath,
			Timestamp: ts,
		})
	}
	return thumbs, nil
}

// sampleOffsets spreads n segment start points across the duration,
// keeping each segment inside the file.
func sampleOffsets(duration float64, n int, segmentSeconds float64) []float64 {
	usable := duration - segmentSeconds
	if usable <= 0 || n <= 1 {
		return []float64{0}
	}
	offsets := make([]float64, n)
	step := usable / float64(n)
	for i := range offsets {
		offsets[i] = float64(i) * step
	}
	return offsets
}

// thumbnailTimestamps spreads n timestamps across the duration, inset
// from both ends.
func thumbnailTimestamps(duration float64, n int) []float64 {
	if duration <= 0 {
		return []float64{0}
	}
	inset := duration * thumbnailSeekInsetFactor
	usable := duration - 2*inset
	if usable <= 0 || n <= 1 {
		return []float64{duration / 2}
	}
	timestamps := make([]float64, n)
	step := usable / float64(n-1)
	for i := range timestamps {
		timestamps[i] = inset + float64(i)*step
	}
	return timestamps
}

// previewArgs builds one ffmpeg invocation that trims every sampled
// segment and concatenates them with the concat filter.
func previewArgs(inPath, outPath string, offsets []float64, segmentSeconds float64, height int) []string {
	args := []string{"-y"}
	for _, off := range offsets {
		args = append(args, "-ss", formatSeconds(off), "-t", formatSeconds(segmentSeconds), "-i", inPath)
	}

	var filter string
	for i := range offsets {
		filter += fmt.Sprintf("[%d:v]scale=-2:%d[v%d];", i, height, i)
	}
	for i := range offsets {
		filter += fmt.Sprintf("[v%d]", i)
	}
	filter += fmt.Sprintf("concat=n=%d:v=1:a=0[out]", len(offsets))

	args = append(args,
		"-filter_complex", filter,
		"-map", "[out]",
		"-an",
		outPath,
	)
	return args
}

func formatSeconds(s float64) string {
	return strconv.FormatFloat(s, 'f', 3, 64)
}

func truncateOutput(out []byte) string {
	const max = 512
	if len(out) > max {
		out = out[len(out)-max:]
	}
	return string(out)
}
