package media

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSampleOffsets(t *testing.T) {
	offsets := sampleOffsets(60, 6, 2)
	require.Len(t, offsets, 6)
	assert.Equal(t, 0.0, offsets[0])
	for i := 1; i < len(offsets); i++ {
		assert.Greater(t, offsets[i], offsets[i-1])
		assert.LessOrEqual(t, offsets[i], 58.0, "segment must fit inside the file")
	}

	// Shorter than one segment: single clip from the start.
	assert.Equal(t, []float64{0}, sampleOffsets(1.5, 6, 2))
}

func TestThumbnailTimestamps(t *testing.T) {
	timestamps := thumbnailTimestamps(100, 5)
	require.Len(t, timestamps, 5)
	assert.InDelta(t, 5.0, timestamps[0], 0.001, "inset from the start")
	assert.InDelta(t, 95.0, timestamps[4], 0.001, "inset from the end")
	for i := 1; i < len(timestamps); i++ {
		assert.Greater(t, timestamps[i], timestamps[i-1])
	}

	assert.Equal(t, []float64{0}, thumbnailTimestamps(0, 5))
	assert.Equal(t, []float64{1}, thumbnailTimestamps(2, 1))
}

func TestPreviewArgs(t *testing.T) {
	args := previewArgs("/media/in.mp4", "/previews/1.mp4", []float64{0, 10, 20}, 2, 360)
	joined := strings.Join(args, " ")

	assert.Equal(t, 3, strings.Count(joined, "-i /media/in.mp4"), "one input per segment")
	assert.Contains(t, joined, "concat=n=3:v=1:a=0[out]")
	assert.Contains(t, joined, "scale=-2:360")
	assert.Contains(t, joined, "-map [out]")
	assert.Equal(t, "/previews/1.mp4", args[len(args)-1])
}

func TestFormatSeconds(t *testing.T) {
	assert.Equal(t, "12.500", formatSeconds(12.5))
	assert.Equal(t, "0.000", formatSeconds(0))
}
