//go:build integration
// +build integration

package integration

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/yourusername/tunegrab-go/api"
	"github.com/yourusername/tunegrab-go/internal/app"
	"github.com/yourusername/tunegrab-go/internal/domain"
	"github.com/yourusername/tunegrab-go/internal/infrastructure"
	"github.com/yourusername/tunegrab-go/pkg/logger"
)

// fakeSource is an in-process MediaSource that writes real files, so runs
// executed through the API behave like real ones
type fakeSource struct {
	mu      sync.Mutex
	tracks  []domain.Track
	failAll bool
	fetches int
}

func (f *fakeSource) Name() string { return "fake" }

func (f *fakeSource) Resolve(ctx context.Context, ref domain.PlaylistRef) ([]domain.Track, error) {
	if len(f.tracks) == 0 {
		return nil, &domain.ResolutionError{Ref: ref.URL, Err: domain.ErrNoTracks}
	}
	return f.tracks, nil
}

func (f *fakeSource) Fetch(ctx context.Context, track domain.Track, destPath string, opts domain.FetchOptions, progress domain.ProgressFunc) error {
	f.mu.Lock()
	f.fetches++
	failing := f.failAll
	f.mu.Unlock()

	if failing {
		return fmt.Errorf("synthetic fetch failure")
	}
	return os.WriteFile(destPath, []byte("audio"), 0644)
}

func (f *fakeSource) setFailAll(v bool) {
	f.mu.Lock()
	f.failAll = v
	f.mu.Unlock()
}

func (f *fakeSource) fetchCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.fetches
}

func makeTracks(titles ...string) []domain.Track {
	var tracks []domain.Track
	for i, title := range titles {
		id := fmt.Sprintf("vid%d", i+1)
		tracks = append(tracks, domain.Track{ID: id, Title: title, Index: i + 1, URL: domain.WatchURL(id)})
	}
	return tracks
}

type testServer struct {
	http  *httptest.Server
	repo  *infrastructure.SQLiteRunRepository
	queue *app.QueueManager
	cfg   *domain.Config
}

func setupTestServer(t *testing.T, source domain.MediaSource, startQueue bool) *testServer {
	t.Helper()
	tmpDir := t.TempDir()

	repo, err := infrastructure.NewSQLiteRunRepository(filepath.Join(tmpDir, "runs.db"))
	require.NoError(t, err)

	cfg := domain.DefaultConfig()
	cfg.Output.Directory = filepath.Join(tmpDir, "out")
	cfg.Output.LogsDir = filepath.Join(tmpDir, "logs")
	cfg.Queue.CheckInterval = 10 * time.Millisecond
	cfg.Runner.TrackDelay = 0
	cfg.Runner.MaxRetries = 0
	cfg.Runner.RetryDelay = 10 * time.Millisecond
	cfg.Notification.Enabled = false

	log := zap.NewNop()
	coordinator := app.NewCoordinator(source, app.NewTrackProcessor(source, log), log)
	notifier := infrastructure.NewNotificationService(&cfg.Notification, log)
	runMgr := app.NewRunManager(repo, coordinator, notifier, cfg, log)
	queueMgr := app.NewQueueManager(repo, runMgr, notifier, &cfg.Queue, nil)

	router := api.SetupRouter(queueMgr, runMgr, logger.NewSingleLoggerAdapter(log), cfg.Output.LogsDir)
	server := httptest.NewServer(router)

	if startQueue {
		require.NoError(t, queueMgr.Start(context.Background()))
	}

	t.Cleanup(func() {
		server.Close()
		if queueMgr.IsRunning() {
			queueMgr.Stop()
		}
		repo.Close()
	})

	return &testServer{http: server, repo: repo, queue: queueMgr, cfg: cfg}
}

func postJSON(t *testing.T, url string, payload interface{}) *http.Response {
	t.Helper()
	data, err := json.Marshal(payload)
	require.NoError(t, err)
	resp, err := http.Post(url, "application/json", bytes.NewReader(data))
	require.NoError(t, err)
	return resp
}

func decodeBody(t *testing.T, resp *http.Response, out interface{}) {
	t.Helper()
	defer resp.Body.Close()
	require.NoError(t, json.NewDecoder(resp.Body).Decode(out))
}

func TestAPI_AddRun(t *testing.T) {
	ts := setupTestServer(t, &fakeSource{tracks: makeTracks("Alpha")}, false)

	resp := postJSON(t, ts.http.URL+"/api/v1/runs", map[string]string{
		"url": "https://www.youtube.com/playlist?list=PLabc",
	})
	assert.Equal(t, http.StatusCreated, resp.StatusCode)

	var result map[string]interface{}
	decodeBody(t, resp, &result)

	assert.NotEmpty(t, result["id"])
	assert.Equal(t, "https://www.youtube.com/playlist?list=PLabc", result["url"])
	assert.Equal(t, "playlist", result["kind"], "kind is detected from the URL")
	assert.Equal(t, "queued", result["status"])
}

func TestAPI_AddRun_RequiresURL(t *testing.T) {
	ts := setupTestServer(t, &fakeSource{}, false)

	resp := postJSON(t, ts.http.URL+"/api/v1/runs", map[string]string{"quality": "320"})
	defer resp.Body.Close()
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestAPI_AddRun_RejectsBadKind(t *testing.T) {
	ts := setupTestServer(t, &fakeSource{}, false)

	resp := postJSON(t, ts.http.URL+"/api/v1/runs", map[string]string{
		"url":  "https://youtu.be/abc",
		"kind": "album",
	})
	defer resp.Body.Close()
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestAPI_GetRun(t *testing.T) {
	ts := setupTestServer(t, &fakeSource{}, false)

	run := domain.NewRun("https://youtu.be/abc", domain.KindSingle, "", "", 0)
	require.NoError(t, ts.repo.Create(run))

	resp, err := http.Get(ts.http.URL + "/api/v1/runs/" + run.ID)
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	var result map[string]interface{}
	decodeBody(t, resp, &result)
	assert.Equal(t, run.ID, result["id"])
	assert.Equal(t, run.URL, result["url"])
}

func TestAPI_GetRun_NotFound(t *testing.T) {
	ts := setupTestServer(t, &fakeSource{}, false)

	resp, err := http.Get(ts.http.URL + "/api/v1/runs/no-such-id")
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestAPI_ListRuns_StatusFilter(t *testing.T) {
	ts := setupTestServer(t, &fakeSource{}, false)

	queued := domain.NewRun("https://www.youtube.com/playlist?list=PL1", domain.KindPlaylist, "", "", 0)
	require.NoError(t, ts.repo.Create(queued))

	done := domain.NewRun("https://youtu.be/abc", domain.KindSingle, "", "", 0)
	done.MarkCompleted(domain.RunStats{Total: 1, Successful: 1})
	require.NoError(t, ts.repo.Create(done))

	resp, err := http.Get(ts.http.URL + "/api/v1/runs")
	require.NoError(t, err)
	var all []map[string]interface{}
	decodeBody(t, resp, &all)
	assert.Len(t, all, 2)

	resp, err = http.Get(ts.http.URL + "/api/v1/runs?status=completed")
	require.NoError(t, err)
	var completed []map[string]interface{}
	decodeBody(t, resp, &completed)
	require.Len(t, completed, 1)
	assert.Equal(t, done.ID, completed[0]["id"])
}

func TestAPI_Stats(t *testing.T) {
	ts := setupTestServer(t, &fakeSource{}, false)

	queued := domain.NewRun("https://www.youtube.com/playlist?list=PL1", domain.KindPlaylist, "", "", 0)
	require.NoError(t, ts.repo.Create(queued))

	done := domain.NewRun("https://www.youtube.com/playlist?list=PL2", domain.KindPlaylist, "", "", 0)
	done.MarkCompleted(domain.RunStats{Total: 5, Successful: 4, Skipped: 1})
	require.NoError(t, ts.repo.Create(done))

	resp, err := http.Get(ts.http.URL + "/api/v1/runs/stats")
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	var stats map[string]interface{}
	decodeBody(t, resp, &stats)
	assert.Equal(t, float64(2), stats["total"])
	assert.Equal(t, float64(1), stats["queued"])
	assert.Equal(t, float64(1), stats["completed"])
	assert.Equal(t, float64(4), stats["tracks_fetched"])
	assert.Equal(t, float64(1), stats["tracks_skipped"])
}

func TestAPI_CancelThenDeleteRun(t *testing.T) {
	ts := setupTestServer(t, &fakeSource{}, false)

	run := domain.NewRun("https://youtu.be/abc", domain.KindSingle, "", "", 0)
	require.NoError(t, ts.repo.Create(run))

	// A queued run cannot be deleted outright
	req, err := http.NewRequest(http.MethodDelete, ts.http.URL+"/api/v1/runs/"+run.ID, nil)
	require.NoError(t, err)
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusInternalServerError, resp.StatusCode)

	// Cancel it
	resp = postJSON(t, ts.http.URL+"/api/v1/runs/"+run.ID+"/cancel", nil)
	resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	stored, err := ts.repo.FindByID(run.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.StatusCancelled, stored.Status)

	// Now deletion goes through
	req, err = http.NewRequest(http.MethodDelete, ts.http.URL+"/api/v1/runs/"+run.ID, nil)
	require.NoError(t, err)
	resp, err = http.DefaultClient.Do(req)
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	resp, err = http.Get(ts.http.URL + "/api/v1/runs/" + run.ID)
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestAPI_RetryOnlyFailedRuns(t *testing.T) {
	ts := setupTestServer(t, &fakeSource{}, false)

	queued := domain.NewRun("https://youtu.be/abc", domain.KindSingle, "", "", 0)
	require.NoError(t, ts.repo.Create(queued))

	resp := postJSON(t, ts.http.URL+"/api/v1/runs/"+queued.ID+"/retry", nil)
	resp.Body.Close()
	assert.Equal(t, http.StatusInternalServerError, resp.StatusCode)

	failed := domain.NewRun("https://youtu.be/def", domain.KindSingle, "", "", 0)
	failed.MarkFailed(assert.AnError, domain.RunStats{Total: 1, Failed: 1})
	require.NoError(t, ts.repo.Create(failed))

	resp = postJSON(t, ts.http.URL+"/api/v1/runs/"+failed.ID+"/retry", nil)
	resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	stored, err := ts.repo.FindByID(failed.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.StatusQueued, stored.Status)
}

func TestAPI_HealthAndReady(t *testing.T) {
	ts := setupTestServer(t, &fakeSource{}, false)

	resp, err := http.Get(ts.http.URL + "/health")
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	var health map[string]interface{}
	decodeBody(t, resp, &health)
	assert.Equal(t, "ok", health["status"])

	resp, err = http.Get(ts.http.URL + "/ready")
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusServiceUnavailable, resp.StatusCode, "not ready until the queue runs")

	require.NoError(t, ts.queue.Start(context.Background()))
	resp, err = http.Get(ts.http.URL + "/ready")
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)
}

func TestAPI_LogCategories(t *testing.T) {
	ts := setupTestServer(t, &fakeSource{}, false)

	resp, err := http.Get(ts.http.URL + "/api/v1/logs/categories")
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	var result map[string][]string
	decodeBody(t, resp, &result)
	assert.ElementsMatch(t, []string{"run", "fetch", "error"}, result["categories"])

	resp, err = http.Get(ts.http.URL + "/api/v1/logs/bogus")
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestAPI_LogStreamDeliversSnapshot(t *testing.T) {
	ts := setupTestServer(t, &fakeSource{}, false)

	// Seed today's run log with one entry before connecting
	logsDir := ts.cfg.Output.LogsDir
	require.NoError(t, os.MkdirAll(logsDir, 0755))
	name := fmt.Sprintf("run-%s.log", time.Now().Format("20060102"))
	entry := `{"timestamp":"2026-08-25T10:00:00Z","level":"info","message":"run_queued","category":"run"}` + "\n"
	require.NoError(t, os.WriteFile(filepath.Join(logsDir, name), []byte(entry), 0644))

	wsURL := "ws" + strings.TrimPrefix(ts.http.URL, "http") + "/api/v1/logs/stream?category=run"
	conn, resp, err := websocket.DefaultDialer.Dial(wsURL, nil)
	require.NoError(t, err)
	if resp != nil && resp.Body != nil {
		resp.Body.Close()
	}
	defer conn.Close()

	require.NoError(t, conn.SetReadDeadline(time.Now().Add(3*time.Second)))
	var got logger.LogEntry
	require.NoError(t, conn.ReadJSON(&got))
	assert.Equal(t, "run_queued", got.Message)
	assert.Equal(t, "run", got.Category)
}
