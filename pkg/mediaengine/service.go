package mediaengine

import (
	"context"
	"io"
)

// Service is the project processing and storage orchestration engine.
//
// Pipeline stages run asynchronously; callers poll GetProject for the
// committed status snapshot. Per-project transitions are serialized, reads
// never observe a torn update.
type Service interface {
	// Staging and deduplication
	StageMedia(ctx context.Context, r io.Reader, filename string) (*StagedMedia, error)
	StageMediaFromPath(ctx context.Context, path string) (*StagedMedia, error)
	DiscardStaged(staged *StagedMedia) error
	FindDuplicate(ctx context.Context, digest string) (*DuplicateMatch, error)

	// Ingestion and lifecycle
	Ingest(ctx context.Context, req IngestRequest) (*Project, error)
	GetProject(ctx context.Context, id ProjectID) (*Project, error)
	ListProjects(ctx context.Context) ([]*Project, error)
	DeleteProject(ctx context.Context, id ProjectID, force bool) error

	// Pipeline operations
	StartTranscription(ctx context.Context, id ProjectID, scenario Scenario) error
	CancelProject(ctx context.Context, id ProjectID) error
	Translate(ctx context.Context, id ProjectID, targetLanguage string) error
	Summarize(ctx context.Context, id ProjectID, mode string) error

	// Migration
	Migrate(ctx context.Context, req MigrateRequest) (*MigrationReport, error)

	// WaitIdle blocks until all dispatched pipeline stages have finished.
	WaitIdle()
}
