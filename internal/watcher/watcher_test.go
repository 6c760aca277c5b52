package watcher

import (
	"context"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/openscribe/media-engine/pkg/mediaengine"
)

func TestIsMediaFile(t *testing.T) {
	assert.True(t, isMediaFile("/inbox/holiday.mp4"))
	assert.True(t, isMediaFile("/inbox/HOLIDAY.MP4"))
	assert.True(t, isMediaFile("voice.wav"))
	assert.False(t, isMediaFile("/inbox/notes.txt"))
	assert.False(t, isMediaFile("/inbox/partial.mp4.part"))
	assert.False(t, isMediaFile("/inbox/noext"))
}

// stubService records the staged-ingest calls the watcher makes. The embedded
// interface panics on anything else, which is the point.
type stubService struct {
	mediaengine.Service

	mu       sync.Mutex
	staged   []string
	ingested []string
}

func (s *stubService) StageMediaFromPath(ctx context.Context, path string) (*mediaengine.StagedMedia, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.staged = append(s.staged, path)
	return &mediaengine.StagedMedia{
		SpoolPath:        path + ".spool",
		OriginalFilename: filepath.Base(path),
		Digest:           "stub-digest",
	}, nil
}

func (s *stubService) Ingest(ctx context.Context, req mediaengine.IngestRequest) (*mediaengine.Project, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.ingested = append(s.ingested, req.Staged.OriginalFilename)
	return &mediaengine.Project{
		ID:               mediaengine.NewProjectID(),
		OriginalFilename: req.Staged.OriginalFilename,
		Status:           mediaengine.StatusPending,
	}, nil
}

func (s *stubService) ingestedFiles() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]string(nil), s.ingested...)
}

func TestWatcherIngestsDroppedMedia(t *testing.T) {
	inbox := t.TempDir()
	svc := &stubService{}

	w, err := New(inbox, svc, 2, zap.NewNop())
	require.NoError(t, err)
	defer w.Stop()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	done := make(chan struct{})
	go func() {
		defer close(done)
		w.Start(ctx)
	}()

	require.NoError(t, os.WriteFile(filepath.Join(inbox, "holiday.mp4"), []byte("video"), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(inbox, "notes.txt"), []byte("ignore me"), 0o644))

	assert.Eventually(t, func() bool {
		files := svc.ingestedFiles()
		return len(files) == 1 && files[0] == "holiday.mp4"
	}, 5*time.Second, 50*time.Millisecond)

	cancel()
	select {
	case <-done:
	case <-time.After(5 * time.Second):
		t.Fatal("watcher did not stop")
	}
}

func TestWatcherMissingInbox(t *testing.T) {
	_, err := New(filepath.Join(t.TempDir(), "gone"), &stubService{}, 1, zap.NewNop())
	assert.Error(t, err)
}
