package mediaengine

import (
	"errors"
	"fmt"
)

// Error types
var (
	// ErrProjectNotFound indicates a project was not found
	ErrProjectNotFound = errors.New("project not found")

	// ErrDuplicateContent indicates an identical file has already been ingested
	ErrDuplicateContent = errors.New("duplicate content")

	// ErrDedupCheckFailed indicates the duplicate lookup itself failed;
	// ingestion fails closed in that case
	ErrDedupCheckFailed = errors.New("duplicate check failed")

	// ErrInvalidTransition indicates an illegal status transition was requested
	ErrInvalidTransition = errors.New("invalid status transition")

	// ErrTranscriptionInProgress indicates a transcription is already running
	ErrTranscriptionInProgress = errors.New("transcription already in progress")

	// ErrNotReadyToTranscribe indicates the project has no usable audio yet
	ErrNotReadyToTranscribe = errors.New("project not ready to transcribe")

	// ErrNotCompleted indicates post-processing requires a completed transcription
	ErrNotCompleted = errors.New("project has no completed transcription")

	// ErrProjectBusy indicates a pipeline stage is in flight for the project
	ErrProjectBusy = errors.New("project has a pipeline stage in flight")

	// ErrStagedMediaInvalid indicates a staged upload is missing or unusable
	ErrStagedMediaInvalid = errors.New("staged media invalid")
)

// ProjectError represents an error related to a project operation
type ProjectError struct {
	ProjectID ProjectID
	Op        string
	Err       error
}

func (e *ProjectError) Error() string {
	return fmt.Sprintf("project operation %s failed for project %s: %v", e.Op, e.ProjectID, e.Err)
}

func (e *ProjectError) Unwrap() error {
	return e.Err
}

// DuplicateError carries the matched project alongside ErrDuplicateContent so
// callers can offer "resume to existing project".
type DuplicateError struct {
	Match *DuplicateMatch
}

func (e *DuplicateError) Error() string {
	return fmt.Sprintf("%v: matches project %s (%s)", ErrDuplicateContent, e.Match.ProjectID, e.Match.Filename)
}

func (e *DuplicateError) Unwrap() error {
	return ErrDuplicateContent
}

// ExtractionError distinguishes a toolchain failure (fatal to the project)
// from the advisory probe failure that is absorbed upstream.
type ExtractionError struct {
	SourcePath string
	Err        error
}

func (e *ExtractionError) Error() string {
	return fmt.Sprintf("audio extraction failed for %s: %v", e.SourcePath, e.Err)
}

func (e *ExtractionError) Unwrap() error {
	return e.Err
}
