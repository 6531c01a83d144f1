package infrastructure

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"strings"

	"github.com/kkdai/youtube/v2"
	"github.com/ytget/ytdlp/v2"
	"go.uber.org/zap"

	"github.com/yourusername/tunegrab-go/internal/domain"
	"github.com/yourusername/tunegrab-go/pkg/logger"
)

// NativeSource implements MediaSource without the yt-dlp binary: playlist
// enumeration and stream download happen in-process, conversion goes through
// the injected Transcoder (ffmpeg).
type NativeSource struct {
	config      *domain.SourceConfig
	transcoder  domain.Transcoder
	client      *youtube.Client
	eventLogger *logger.MultiLogger
}

// NewNativeSource creates a library-backed media source
func NewNativeSource(config *domain.SourceConfig, transcoder domain.Transcoder, eventLogger *logger.MultiLogger) *NativeSource {
	return &NativeSource{
		config:     config,
		transcoder: transcoder,
		client: &youtube.Client{
			HTTPClient: &http.Client{Timeout: config.HTTPTimeout},
		},
		eventLogger: eventLogger,
	}
}

// Name returns the backend identifier used in config and logs
func (s *NativeSource) Name() string {
	return "native"
}

// Resolve enumerates a playlist via the flat-list endpoint, or performs a
// single metadata lookup for one-track refs. Entries without an id or title
// are dropped.
func (s *NativeSource) Resolve(ctx context.Context, ref domain.PlaylistRef) ([]domain.Track, error) {
	if ref.Kind == domain.KindSingle {
		video, err := s.client.GetVideoContext(ctx, ref.URL)
		if err != nil {
			return nil, &domain.ResolutionError{Ref: ref.URL, Err: fmt.Errorf("fetching metadata: %w", err)}
		}
		return []domain.Track{{
			ID:    video.ID,
			Title: video.Title,
			Index: 1,
			URL:   ref.URL,
		}}, nil
	}

	playlistID := domain.ExtractPlaylistID(ref.URL)
	if playlistID == "" {
		return nil, &domain.ResolutionError{Ref: ref.URL, Err: fmt.Errorf("no playlist id in URL")}
	}

	items, err := ytdlp.New().GetPlaylistItemsAll(ctx, playlistID, 0)
	if err != nil {
		return nil, &domain.ResolutionError{Ref: ref.URL, Err: fmt.Errorf("enumerating playlist: %w", err)}
	}

	var tracks []domain.Track
	for _, item := range items {
		if item.VideoID == "" || item.Title == "" {
			continue
		}
		tracks = append(tracks, domain.Track{
			ID:    item.VideoID,
			Title: item.Title,
			Index: len(tracks) + 1,
			URL:   domain.WatchURL(item.VideoID),
		})
	}

	if len(tracks) == 0 {
		return nil, &domain.ResolutionError{Ref: ref.URL, Err: domain.ErrNoTracks}
	}

	return tracks, nil
}

// Fetch downloads the best audio-only stream into a per-track temp
// directory, then hands it to the transcoder which produces destPath. The
// temp directory is removed on every path, so a failed transcode cleans up
// the raw download too.
func (s *NativeSource) Fetch(ctx context.Context, track domain.Track, destPath string, opts domain.FetchOptions, progress domain.ProgressFunc) error {
	if progress == nil {
		progress = func(stage domain.ProgressStage, percent float64) {}
	}

	video, err := s.client.GetVideoContext(ctx, track.URL)
	if err != nil {
		return fmt.Errorf("fetching metadata: %w", err)
	}

	format, err := pickAudioFormat(video)
	if err != nil {
		return err
	}

	tempDir := filepath.Join(filepath.Dir(destPath), ".fetch_"+track.ID)
	if err := os.MkdirAll(tempDir, 0755); err != nil {
		return fmt.Errorf("failed to create temp directory: %w", err)
	}
	defer os.RemoveAll(tempDir)

	rawPath := filepath.Join(tempDir, "raw"+extForMime(format.MimeType))

	progress(domain.StageFetching, -1)
	if err := s.downloadStream(ctx, video, format, rawPath, progress); err != nil {
		return fmt.Errorf("downloading stream: %w", err)
	}

	progress(domain.StageTranscoding, -1)
	if err := s.transcoder.Transcode(ctx, rawPath, destPath, opts); err != nil {
		return fmt.Errorf("transcoding: %w", err)
	}

	if s.eventLogger != nil {
		s.eventLogger.LogRunEvent("track_fetched",
			zap.String("id", track.ID),
			zap.String("file", destPath))
	}

	return nil
}

// downloadStream saves the selected format to rawPath, reporting percent
// when the stream size is known
func (s *NativeSource) downloadStream(ctx context.Context, video *youtube.Video, format *youtube.Format, rawPath string, progress domain.ProgressFunc) error {
	stream, size, err := s.client.GetStreamContext(ctx, video, format)
	if err != nil {
		return fmt.Errorf("starting stream: %w", err)
	}
	defer stream.Close()

	file, err := os.Create(rawPath)
	if err != nil {
		return fmt.Errorf("creating raw file: %w", err)
	}
	defer file.Close()

	buf := make([]byte, 64*1024)
	var written int64
	lastPercent := -1
	for {
		if err := ctx.Err(); err != nil {
			return err
		}
		n, rerr := stream.Read(buf)
		if n > 0 {
			wn, werr := file.Write(buf[:n])
			written += int64(wn)
			if werr != nil {
				return werr
			}
			if wn != n {
				return io.ErrShortWrite
			}
			if size > 0 {
				percent := int(float64(written) / float64(size) * 100)
				if percent != lastPercent {
					lastPercent = percent
					progress(domain.StageFetching, float64(percent))
				}
			}
		}
		if rerr != nil {
			if rerr == io.EOF {
				return nil
			}
			return rerr
		}
	}
}

// pickAudioFormat selects the best audio-only format by bitrate, falling
// back to progressive formats when the catalog offers no audio-only ones
func pickAudioFormat(video *youtube.Video) (*youtube.Format, error) {
	var best *youtube.Format
	for i := range video.Formats {
		f := &video.Formats[i]
		if f.AudioChannels == 0 {
			continue
		}
		if f.Width != 0 || f.Height != 0 {
			continue
		}
		if best == nil || bitrateFor(f) > bitrateFor(best) {
			best = f
		}
	}

	if best == nil {
		// No audio-only stream; take the best progressive one and let
		// ffmpeg strip the video
		for i := range video.Formats {
			f := &video.Formats[i]
			if f.AudioChannels == 0 {
				continue
			}
			if best == nil || bitrateFor(f) > bitrateFor(best) {
				best = f
			}
		}
	}

	if best == nil {
		return nil, fmt.Errorf("no audio formats available")
	}
	return best, nil
}

// bitrateFor returns the usable bitrate of a format
func bitrateFor(f *youtube.Format) int {
	if f.Bitrate > 0 {
		return f.Bitrate
	}
	if f.AverageBitrate > 0 {
		return f.AverageBitrate
	}
	return 0
}

// extForMime maps a stream MIME type to a raw file extension
func extForMime(mimeType string) string {
	switch {
	case strings.Contains(mimeType, "webm"):
		return ".webm"
	case strings.Contains(mimeType, "mp4"):
		return ".m4a"
	case strings.Contains(mimeType, "mpeg"):
		return ".mp3"
	default:
		return ".bin"
	}
}
