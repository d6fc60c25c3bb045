package torrent

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"testing"

	bencode "github.com/jackpal/bencode-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeTorrent(t *testing.T, dict map[string]any) string {
	t.Helper()

	var buf bytes.Buffer
	require.NoError(t, bencode.Marshal(&buf, dict))

	path := filepath.Join(t.TempDir(), "test.torrent")
	require.NoError(t, os.WriteFile(path, buf.Bytes(), 0o644))
	return path
}

func TestParseFile_MultiFile(t *testing.T) {
	path := writeTorrent(t, map[string]any{
		"info": map[string]any{
			"name": "Ocean Pack",
			"files": []any{
				map[string]any{"length": 100, "path": []any{"dives", "reef.mp4"}},
				map[string]any{"length": 200, "path": []any{"kelp.mp4"}},
			},
		},
		"metadata": map[string]any{
			"taglist":     []any{"ocean", "hd"},
			"description": "A [b]great[/b] pack",
		},
	})

	parsed, err := NewParser().ParseFile(context.Background(), path)
	require.NoError(t, err)

	assert.Equal(t, "Ocean Pack", parsed.Name)
	assert.Equal(t, []string{"ocean", "hd"}, parsed.Tags)
	assert.Equal(t, "A great pack", parsed.Description)

	require.Len(t, parsed.Files, 2)
	assert.Equal(t, "Ocean Pack/dives/reef.mp4", parsed.Files[0].Path)
	assert.Equal(t, int64(100), parsed.Files[0].Size)
	assert.Equal(t, "Ocean Pack/kelp.mp4", parsed.Files[1].Path)
}

func TestParseFile_SingleFile(t *testing.T) {
	path := writeTorrent(t, map[string]any{
		"info": map[string]any{
			"name":   "lonely.mp4",
			"length": 4096,
		},
	})

	parsed, err := NewParser().ParseFile(context.Background(), path)
	require.NoError(t, err)

	assert.Equal(t, "lonely.mp4", parsed.Name)
	assert.Empty(t, parsed.Tags)
	assert.Empty(t, parsed.Description)
	require.Len(t, parsed.Files, 1)
	assert.Equal(t, "lonely.mp4", parsed.Files[0].Path)
	assert.Equal(t, int64(4096), parsed.Files[0].Size)
}

func TestParseFile_Garbage(t *testing.T) {
	path := filepath.Join(t.TempDir(), "bad.torrent")
	require.NoError(t, os.WriteFile(path, []byte("not bencode at all"), 0o644))

	_, err := NewParser().ParseFile(context.Background(), path)
	require.Error(t, err)
}

func TestStripBBCode(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want string
	}{
		{
			name: "image blocks removed wholesale",
			in:   "Before [img]http://x/y.png[/img] after",
			want: "Before  after",
		},
		{
			name: "thumb with attribute",
			in:   "[thumb=300]http://x/y.png[/thumb]text",
			want: "text",
		},
		{
			name: "formatting tags unwrapped",
			in:   "[b]bold[/b] and [url=http://x]link[/url]",
			want: "bold and link",
		},
		{
			name: "blank runs collapse",
			in:   "line one\n\n\n\nline two",
			want: "line one\n\nline two",
		},
		{
			name: "plain text untouched",
			in:   "no markup here",
			want: "no markup here",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, StripBBCode(tt.in))
		})
	}
}
