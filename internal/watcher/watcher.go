// Package watcher ingests media files dropped into a configured inbox
// directory.
package watcher

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
	"go.uber.org/zap"

	"github.com/openscribe/media-engine/pkg/mediaengine"
)

// mediaExts are the file extensions the inbox accepts.
var mediaExts = map[string]bool{
	".mp4": true, ".mov": true, ".avi": true, ".mkv": true,
	".webm": true, ".m4v": true, ".flv": true,
	".mp3": true, ".m4a": true, ".wav": true, ".flac": true, ".ogg": true,
}

// settleDelay gives a dropped file time to finish writing before ingestion.
const settleDelay = 500 * time.Millisecond

// Watcher monitors an inbox directory and runs each new media file through
// the engine's staged-ingest path.
type Watcher struct {
	inboxDir  string
	engine    mediaengine.Service
	logger    *zap.Logger
	watcher   *fsnotify.Watcher
	semaphore chan struct{}
	wg        sync.WaitGroup
}

// New creates a Watcher over inboxDir with at most maxConcurrent ingestions
// in flight.
func New(inboxDir string, engine mediaengine.Service, maxConcurrent int, logger *zap.Logger) (*Watcher, error) {
	if maxConcurrent < 1 {
		maxConcurrent = 1
	}
	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("creating watcher: %w", err)
	}
	if err := fsw.Add(inboxDir); err != nil {
		fsw.Close()
		return nil, fmt.Errorf("watching %s: %w", inboxDir, err)
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Watcher{
		inboxDir:  inboxDir,
		engine:    engine,
		logger:    logger,
		watcher:   fsw,
		semaphore: make(chan struct{}, maxConcurrent),
	}, nil
}

// Start blocks processing inbox events until the context is cancelled.
func (w *Watcher) Start(ctx context.Context) error {
	w.logger.Info("inbox watcher started", zap.String("dir", w.inboxDir))

	for {
		select {
		case <-ctx.Done():
			w.wg.Wait()
			w.logger.Info("inbox watcher stopped")
			return ctx.Err()

		case event, ok := <-w.watcher.Events:
			if !ok {
				return fmt.Errorf("watcher events channel closed")
			}
			if event.Op&fsnotify.Create != fsnotify.Create {
				continue
			}
			if !isMediaFile(event.Name) {
				w.logger.Debug("ignoring non-media file", zap.String("path", event.Name))
				continue
			}

			w.logger.Info("new media detected", zap.String("path", event.Name))
			time.Sleep(settleDelay)

			select {
			case w.semaphore <- struct{}{}:
				w.wg.Add(1)
				go func(path string) {
					defer w.wg.Done()
					defer func() { <-w.semaphore }()
					if err := w.ingest(ctx, path); err != nil {
						w.logger.Error("inbox ingestion failed",
							zap.String("path", path),
							zap.Error(err))
					}
				}(event.Name)
			case <-ctx.Done():
				return ctx.Err()
			}

		case err, ok := <-w.watcher.Errors:
			if !ok {
				return fmt.Errorf("watcher errors channel closed")
			}
			w.logger.Error("watcher error", zap.Error(err))
		}
	}
}

// Stop closes the underlying filesystem watcher.
func (w *Watcher) Stop() error {
	return w.watcher.Close()
}

// ingest stages the file and completes ingestion. A duplicate hit discards
// the staged copy and leaves the existing project alone.
func (w *Watcher) ingest(ctx context.Context, path string) error {
	staged, err := w.engine.StageMediaFromPath(ctx, path)
	if err != nil {
		return err
	}

	project, err := w.engine.Ingest(ctx, mediaengine.IngestRequest{Staged: staged})
	if err != nil {
		w.engine.DiscardStaged(staged)
		var dup *mediaengine.DuplicateError
		if errors.As(err, &dup) {
			w.logger.Info("inbox file already ingested",
				zap.String("path", path),
				zap.String("project", dup.Match.ProjectID.String()))
			return nil
		}
		return err
	}

	w.logger.Info("inbox file ingested",
		zap.String("path", path),
		zap.String("project", project.ID.String()))
	return nil
}

func isMediaFile(path string) bool {
	return mediaExts[strings.ToLower(filepath.Ext(path))]
}
