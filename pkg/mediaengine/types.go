package mediaengine

import (
	"time"
)

// ProjectStatus is the domain type for project lifecycle states.
type ProjectStatus string

// Project status constants (typed).
const (
	StatusPending           ProjectStatus = "pending"
	StatusExtracting        ProjectStatus = "extracting"
	StatusReadyToTranscribe ProjectStatus = "ready_to_transcribe"
	StatusTranscribing      ProjectStatus = "transcribing"
	StatusProcessing        ProjectStatus = "processing"
	StatusCompleted         ProjectStatus = "completed"
	StatusError             ProjectStatus = "error"
	StatusCancelled         ProjectStatus = "cancelled"
)

// Project is the tracked unit of work for one ingested media file.
//
// Identity and Digest never change after ingestion. Path and location fields
// are mutated only by the migration engine; everything else is mutated by the
// pipeline stages.
type Project struct {
	ID               ProjectID `json:"id"`
	Name             string    `json:"name,omitempty"`
	OriginalFilename string    `json:"original_filename"`
	MimeType         string    `json:"mime_type,omitempty"`
	Digest           string    `json:"digest"`
	DurationSeconds  float64   `json:"duration_seconds"`
	SizeBytes        int64     `json:"size_bytes"`

	Status       ProjectStatus `json:"status"`
	ErrorMessage string        `json:"error_message,omitempty"`

	// TranscriptionProgress is an advisory 0-100 estimate populated on reads
	// while the project is transcribing. Never persisted, never authoritative.
	TranscriptionProgress *int `json:"transcription_progress,omitempty"`

	LocationID   string `json:"location_id"`
	OriginalPath string `json:"original_path"`
	// AudioPath is set if and only if extraction has completed successfully
	// at least once. Sources that are already normalized audio skip
	// extraction and leave it empty.
	AudioPath string `json:"audio_path,omitempty"`

	Transcription *Transcription          `json:"transcription,omitempty"`
	Translations  map[string]*Translation `json:"translations,omitempty"`
	Summaries     map[string]*Summary     `json:"summaries,omitempty"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// MediaPath returns the path transcription should read: the extracted audio
// when present, otherwise the original (already-suitable) source.
func (p *Project) MediaPath() string {
	if p.AudioPath != "" {
		return p.AudioPath
	}
	return p.OriginalPath
}

// Segment is one timed span of recognized speech.
type Segment struct {
	Start float64 `json:"start"`
	End   float64 `json:"end"`
	Text  string  `json:"text"`
}

// Transcription is the durable result of a transcription attempt.
type Transcription struct {
	Language            string    `json:"language,omitempty"`
	LanguageProbability float64   `json:"language_probability,omitempty"`
	DurationSeconds     float64   `json:"duration_seconds,omitempty"`
	Text                string    `json:"text"`
	Segments            []Segment `json:"segments"`
	CreatedAt           time.Time `json:"created_at"`
}

// Translation is a transcription translated into one target language.
type Translation struct {
	Language  string    `json:"language"`
	Segments  []Segment `json:"segments"`
	CreatedAt time.Time `json:"created_at"`
}

// Summary is a generated summary of a transcription in one mode.
type Summary struct {
	Mode      string    `json:"mode"`
	Text      string    `json:"text"`
	CreatedAt time.Time `json:"created_at"`
}

// Scenario is a named transcription configuration profile passed through to
// the transcription collaborator.
type Scenario struct {
	Name            string   `json:"name,omitempty"`
	Language        string   `json:"language,omitempty"`
	Task            string   `json:"task,omitempty"`
	InitialPrompt   string   `json:"initial_prompt,omitempty"`
	VocabularyHints []string `json:"vocabulary_hints,omitempty"`
}

// StagedMedia is an upload (or referenced local file) that has been hashed
// and spooled but not yet ingested. It survives a duplicate-detection hit so
// a "proceed anyway" decision can complete without re-uploading.
type StagedMedia struct {
	SpoolPath        string `json:"spool_path"`
	OriginalFilename string `json:"original_filename"`
	MimeType         string `json:"mime_type,omitempty"`
	Digest           string `json:"digest"`
	SizeBytes        int64  `json:"size_bytes"`
}

// DuplicateMatch summarizes an existing project with the same content digest,
// with enough detail for the caller to offer "resume" instead of re-ingesting.
type DuplicateMatch struct {
	ProjectID ProjectID     `json:"project_id"`
	Name      string        `json:"name,omitempty"`
	Filename  string        `json:"filename"`
	Status    ProjectStatus `json:"status"`
	Path      string        `json:"path"`
	CreatedAt time.Time     `json:"created_at"`
}

// MigrationOutcome classifies the result of one migration item.
type MigrationOutcome string

const (
	MigrationMoved  MigrationOutcome = "moved"
	MigrationNoop   MigrationOutcome = "noop"
	MigrationFailed MigrationOutcome = "failed"
)

// MigrationFailureKind is the failure taxonomy for migration items.
type MigrationFailureKind string

const (
	MigrationFailureNone             MigrationFailureKind = ""
	MigrationFailureSourceNotFound   MigrationFailureKind = "source_not_found"
	MigrationFailureTargetUnwritable MigrationFailureKind = "target_unwritable"
	MigrationFailureVerification     MigrationFailureKind = "verification_mismatch"
)

// MigrationItemResult is the independent outcome of one project's relocation.
type MigrationItemResult struct {
	ProjectID   ProjectID            `json:"project_id"`
	Outcome     MigrationOutcome     `json:"outcome"`
	FailureKind MigrationFailureKind `json:"failure_kind,omitempty"`
	Message     string               `json:"message,omitempty"`
	OldPath     string               `json:"old_path,omitempty"`
	NewPath     string               `json:"new_path,omitempty"`
}

// MigrationReport collects per-item results for one migration batch.
type MigrationReport struct {
	TargetLocationID string                `json:"target_location_id"`
	Items            []MigrationItemResult `json:"items"`
}

// Moved reports how many items actually relocated files.
func (r *MigrationReport) Moved() int {
	n := 0
	for _, it := range r.Items {
		if it.Outcome == MigrationMoved {
			n++
		}
	}
	return n
}

// Failed reports how many items failed.
func (r *MigrationReport) Failed() int {
	n := 0
	for _, it := range r.Items {
		if it.Outcome == MigrationFailed {
			n++
		}
	}
	return n
}
