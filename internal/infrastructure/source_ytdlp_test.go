package infrastructure

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/yourusername/tunegrab-go/internal/domain"
)

func newYTDLPTestSource(t *testing.T, script string) (*YTDLPSource, string) {
	t.Helper()
	tmp := t.TempDir()
	bin := writeFakeBinary(t, tmp, "yt-dlp", script)
	cfg := &domain.SourceConfig{Backend: "ytdlp", YTDLPBinary: bin}
	return NewYTDLPSource(cfg, filepath.Join(tmp, "logs"), nil), tmp
}

func TestYTDLPResolve_Playlist(t *testing.T) {
	script := `#!/bin/sh
echo '{"id":"aaa111","title":"First Song","url":"https://www.youtube.com/watch?v=aaa111"}'
echo 'this line is not json'
echo '{"id":"","title":"entry without id"}'
echo '{"id":"bbb222","title":"Second Song"}'
`
	source, _ := newYTDLPTestSource(t, script)

	ref := domain.PlaylistRef{URL: "https://www.youtube.com/playlist?list=PL1", Kind: domain.KindPlaylist}
	tracks, err := source.Resolve(context.Background(), ref)
	require.NoError(t, err)
	require.Len(t, tracks, 2, "unparseable and incomplete entries are dropped")

	assert.Equal(t, "aaa111", tracks[0].ID)
	assert.Equal(t, "First Song", tracks[0].Title)
	assert.Equal(t, 1, tracks[0].Index)
	assert.Equal(t, "https://www.youtube.com/watch?v=aaa111", tracks[0].URL)

	assert.Equal(t, "bbb222", tracks[1].ID)
	assert.Equal(t, 2, tracks[1].Index)
	assert.Equal(t, domain.WatchURL("bbb222"), tracks[1].URL, "missing url falls back to the watch URL")
}

func TestYTDLPResolve_Single(t *testing.T) {
	script := `#!/bin/sh
echo '{"id":"ccc333","title":"Lone Track","url":"https://internal.example/raw"}'
`
	source, _ := newYTDLPTestSource(t, script)

	ref := domain.PlaylistRef{URL: "https://youtu.be/ccc333", Kind: domain.KindSingle}
	tracks, err := source.Resolve(context.Background(), ref)
	require.NoError(t, err)
	require.Len(t, tracks, 1)

	assert.Equal(t, "ccc333", tracks[0].ID)
	assert.Equal(t, 1, tracks[0].Index)
	assert.Equal(t, ref.URL, tracks[0].URL, "single refs keep the original URL")
}

func TestYTDLPResolve_CommandFailure(t *testing.T) {
	script := `#!/bin/sh
echo "ERROR: This playlist does not exist" >&2
exit 1
`
	source, _ := newYTDLPTestSource(t, script)

	ref := domain.PlaylistRef{URL: "https://www.youtube.com/playlist?list=GONE", Kind: domain.KindPlaylist}
	_, err := source.Resolve(context.Background(), ref)
	require.Error(t, err)

	var resErr *domain.ResolutionError
	require.True(t, errors.As(err, &resErr))
	assert.Equal(t, ref.URL, resErr.Ref)
	assert.Contains(t, err.Error(), "This playlist does not exist")
}

func TestYTDLPResolve_EmptyPlaylist(t *testing.T) {
	source, _ := newYTDLPTestSource(t, "#!/bin/sh\nexit 0\n")

	ref := domain.PlaylistRef{URL: "https://www.youtube.com/playlist?list=EMPTY", Kind: domain.KindPlaylist}
	_, err := source.Resolve(context.Background(), ref)
	require.Error(t, err)
	assert.ErrorIs(t, err, domain.ErrNoTracks)
}

func TestYTDLPResolve_FlagsPerKind(t *testing.T) {
	tmp := t.TempDir()
	argsFile := filepath.Join(tmp, "args.txt")
	t.Setenv("ARGS_FILE", argsFile)

	script := `#!/bin/sh
printf '%s\n' "$@" > "$ARGS_FILE"
echo '{"id":"aaa111","title":"First Song"}'
`
	bin := writeFakeBinary(t, tmp, "yt-dlp", script)
	cfg := &domain.SourceConfig{Backend: "ytdlp", YTDLPBinary: bin}
	source := NewYTDLPSource(cfg, filepath.Join(tmp, "logs"), nil)

	_, err := source.Resolve(context.Background(), domain.PlaylistRef{
		URL: "https://www.youtube.com/playlist?list=PL1", Kind: domain.KindPlaylist,
	})
	require.NoError(t, err)
	raw, err := os.ReadFile(argsFile)
	require.NoError(t, err)
	assert.Contains(t, string(raw), "--flat-playlist", "playlists are enumerated without downloading")

	_, err = source.Resolve(context.Background(), domain.PlaylistRef{
		URL: "https://youtu.be/aaa111", Kind: domain.KindSingle,
	})
	require.NoError(t, err)
	raw, err = os.ReadFile(argsFile)
	require.NoError(t, err)
	assert.Contains(t, string(raw), "--no-playlist", "single refs never expand into a playlist")
}

// fakeYTDLPFetch resolves the -o output template and writes the converted
// file the way yt-dlp would
const fakeYTDLPFetch = `#!/bin/sh
prev=""
out=""
for a in "$@"; do
	if [ "$prev" = "-o" ]; then out="$a"; fi
	prev="$a"
done
target=$(printf '%s' "$out" | sed 's/%(ext)s/mp3/')
printf 'AUDIO' > "$target"
echo "[download] 100% of 3.50MiB"
`

func TestYTDLPFetch_PlacesFileAtDest(t *testing.T) {
	source, tmp := newYTDLPTestSource(t, fakeYTDLPFetch)

	track := domain.Track{ID: "aaa111", Title: "First Song", Index: 1, URL: domain.WatchURL("aaa111")}
	dest := filepath.Join(tmp, "001_First Song.mp3")

	err := source.Fetch(context.Background(), track, dest, testFetchOpts(), nil)
	require.NoError(t, err)

	data, err := os.ReadFile(dest)
	require.NoError(t, err)
	assert.Equal(t, "AUDIO", string(data))

	_, err = os.Stat(filepath.Join(tmp, ".fetch_aaa111"))
	assert.True(t, os.IsNotExist(err), "the per-track temp directory is removed")
}

func TestYTDLPFetch_WritesFetchLog(t *testing.T) {
	source, tmp := newYTDLPTestSource(t, fakeYTDLPFetch)

	track := domain.Track{ID: "aaa111", Title: "First Song", Index: 1, URL: domain.WatchURL("aaa111")}
	dest := filepath.Join(tmp, "001_First Song.mp3")
	require.NoError(t, source.Fetch(context.Background(), track, dest, testFetchOpts(), nil))

	logsDir := filepath.Join(tmp, "logs")
	entries, err := os.ReadDir(logsDir)
	require.NoError(t, err)
	require.Len(t, entries, 1)

	raw, err := os.ReadFile(filepath.Join(logsDir, entries[0].Name()))
	require.NoError(t, err)
	content := string(raw)
	assert.Contains(t, content, "Fetch: aaa111")
	assert.Contains(t, content, "[download] 100%", "raw toolchain output is captured")
	assert.Contains(t, content, "Downloaded: "+dest)
}

func TestYTDLPFetch_CommandFailure(t *testing.T) {
	script := `#!/bin/sh
echo "[youtube] aaa111: Downloading webpage"
echo "ERROR: Video unavailable" >&2
exit 1
`
	source, tmp := newYTDLPTestSource(t, script)

	track := domain.Track{ID: "aaa111", Title: "First Song", Index: 1, URL: domain.WatchURL("aaa111")}
	dest := filepath.Join(tmp, "001_First Song.mp3")

	err := source.Fetch(context.Background(), track, dest, testFetchOpts(), nil)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "yt-dlp failed")
	assert.Contains(t, err.Error(), "Video unavailable", "the stderr tail names the cause")

	_, statErr := os.Stat(dest)
	assert.True(t, os.IsNotExist(statErr))
	_, statErr = os.Stat(filepath.Join(tmp, ".fetch_aaa111"))
	assert.True(t, os.IsNotExist(statErr), "temp directory cleaned up on failure")
}

func TestYTDLPFetch_FindsRenamedOutput(t *testing.T) {
	// Some extractors ignore the template extension; the scan by format
	// still finds the produced file
	script := `#!/bin/sh
prev=""
out=""
for a in "$@"; do
	if [ "$prev" = "-o" ]; then out="$a"; fi
	prev="$a"
done
dir=$(dirname "$out")
printf 'AUDIO' > "$dir/renamed output.mp3"
`
	source, tmp := newYTDLPTestSource(t, script)

	track := domain.Track{ID: "aaa111", Title: "First Song", Index: 1, URL: domain.WatchURL("aaa111")}
	dest := filepath.Join(tmp, "001_First Song.mp3")

	require.NoError(t, source.Fetch(context.Background(), track, dest, testFetchOpts(), nil))

	data, err := os.ReadFile(dest)
	require.NoError(t, err)
	assert.Equal(t, "AUDIO", string(data))
}

func TestYTDLPFetch_NoFileProduced(t *testing.T) {
	source, tmp := newYTDLPTestSource(t, "#!/bin/sh\nexit 0\n")

	track := domain.Track{ID: "aaa111", Title: "First Song", Index: 1, URL: domain.WatchURL("aaa111")}
	dest := filepath.Join(tmp, "001_First Song.mp3")

	err := source.Fetch(context.Background(), track, dest, testFetchOpts(), nil)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "no mp3 file produced")
}

func TestNewSource_BackendSelection(t *testing.T) {
	cfg := domain.DefaultConfig()
	tc := NewFFmpegTranscoder("ffmpeg", t.TempDir())

	cfg.Source.Backend = "ytdlp"
	source, err := NewSource(cfg, tc, nil)
	require.NoError(t, err)
	assert.Equal(t, "ytdlp", source.Name())

	cfg.Source.Backend = "native"
	source, err = NewSource(cfg, tc, nil)
	require.NoError(t, err)
	assert.Equal(t, "native", source.Name())

	cfg.Source.Backend = "wget"
	_, err = NewSource(cfg, tc, nil)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unknown source backend")
}
