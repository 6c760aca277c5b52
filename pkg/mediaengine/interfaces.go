package mediaengine

import (
	"context"
)

// Repository defines the interface for project and artifact persistence.
// Implementations must provide atomic single-record upsert and read-after-
// write consistency within one process.
type Repository interface {
	// Project operations
	CreateProject(ctx context.Context, project *Project) error
	GetProject(ctx context.Context, id ProjectID) (*Project, error)
	UpdateProject(ctx context.Context, project *Project) error
	DeleteProject(ctx context.Context, id ProjectID) error
	ListProjects(ctx context.Context) ([]*Project, error)

	// FindProjectByDigest returns the most recently created project with the
	// given content digest, or ErrProjectNotFound.
	FindProjectByDigest(ctx context.Context, digest string) (*Project, error)

	// CountProjectsByLocation reports how many projects reference a storage
	// location. Used to refuse deleting a location still in use.
	CountProjectsByLocation(ctx context.Context, locationID string) (int, error)

	// Artifact operations
	SaveTranscription(ctx context.Context, id ProjectID, tr *Transcription) error
	SaveTranslation(ctx context.Context, id ProjectID, tr *Translation) error
	SaveSummary(ctx context.Context, id ProjectID, s *Summary) error
}

// MediaToolchain is the external media-toolchain collaborator.
type MediaToolchain interface {
	// Probe returns the media duration in seconds. Probe errors are
	// advisory: callers record a zero duration and continue.
	Probe(ctx context.Context, path string) (float64, error)

	// Extract produces a normalized mono 16 kHz waveform at targetPath.
	Extract(ctx context.Context, sourcePath, targetPath string) error
}

// Transcriber is the external transcription collaborator.
type Transcriber interface {
	Transcribe(ctx context.Context, audioPath string, scenario Scenario) (*Transcription, error)
}

// Translator is the external translation collaborator.
type Translator interface {
	Translate(ctx context.Context, segments []Segment, targetLanguage string) ([]Segment, error)
}

// Summarizer is the external summarization collaborator.
type Summarizer interface {
	Summarize(ctx context.Context, tr *Transcription, mode string) (string, error)
}
