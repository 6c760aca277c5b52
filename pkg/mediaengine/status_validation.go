package mediaengine

import "fmt"

// validNext enumerates the legal direct transitions of the project state
// machine. cancelled is reachable only from states prior to transcription
// completion; completed can only be followed by a user-initiated
// re-transcription or post-processing.
var validNext = map[ProjectStatus][]ProjectStatus{
	StatusPending:           {StatusExtracting, StatusReadyToTranscribe, StatusError, StatusCancelled},
	StatusExtracting:        {StatusReadyToTranscribe, StatusError, StatusCancelled},
	StatusReadyToTranscribe: {StatusTranscribing, StatusError, StatusCancelled},
	StatusTranscribing:      {StatusCompleted, StatusError, StatusCancelled},
	StatusProcessing:        {StatusCompleted},
	StatusCompleted:         {StatusTranscribing, StatusProcessing},
	StatusError:             {StatusExtracting, StatusTranscribing},
	StatusCancelled:         {},
}

// canTransition validates a direct status transition.
func canTransition(from, to ProjectStatus) error {
	next, ok := validNext[from]
	if !ok {
		return fmt.Errorf("%w: unknown status %s", ErrInvalidTransition, from)
	}
	for _, s := range next {
		if s == to {
			return nil
		}
	}
	return fmt.Errorf("%w: %s -> %s", ErrInvalidTransition, from, to)
}

// canStartTranscription checks whether a user-initiated transcribe request is
// allowed for the current status. Restarting after completed or error is
// explicitly allowed; a second start while transcribing is rejected.
func canStartTranscription(status ProjectStatus) error {
	switch status {
	case StatusReadyToTranscribe, StatusCompleted, StatusError:
		return nil
	case StatusTranscribing:
		return fmt.Errorf("%w (status: %s)", ErrTranscriptionInProgress, status)
	case StatusPending, StatusExtracting:
		return fmt.Errorf("%w: extraction has not finished (status: %s)", ErrNotReadyToTranscribe, status)
	case StatusProcessing:
		return fmt.Errorf("%w: post-processing in progress (status: %s)", ErrNotReadyToTranscribe, status)
	case StatusCancelled:
		return fmt.Errorf("%w: project was cancelled (status: %s)", ErrNotReadyToTranscribe, status)
	default:
		return fmt.Errorf("%w: unknown status %s", ErrInvalidTransition, status)
	}
}

// canCancel checks whether a project can be cancelled in its current status.
func canCancel(status ProjectStatus) error {
	switch status {
	case StatusPending, StatusExtracting, StatusReadyToTranscribe, StatusTranscribing:
		return nil
	case StatusCompleted, StatusProcessing:
		return fmt.Errorf("%w: transcription already completed (status: %s)", ErrInvalidTransition, status)
	case StatusError, StatusCancelled:
		return fmt.Errorf("%w: project already terminal (status: %s)", ErrInvalidTransition, status)
	default:
		return fmt.Errorf("%w: unknown status %s", ErrInvalidTransition, status)
	}
}

// canStartPostProcessing checks whether translation/summarization may run.
func canStartPostProcessing(status ProjectStatus) error {
	switch status {
	case StatusCompleted:
		return nil
	case StatusProcessing:
		return fmt.Errorf("%w: post-processing already in progress (status: %s)", ErrProjectBusy, status)
	default:
		return fmt.Errorf("%w (status: %s)", ErrNotCompleted, status)
	}
}

// canDelete checks whether a project may be deleted. force allows deletion
// while a pipeline stage is in flight; the caller logs a warning.
func canDelete(status ProjectStatus, force bool) error {
	switch status {
	case StatusExtracting, StatusTranscribing, StatusProcessing:
		if !force {
			return fmt.Errorf("%w: use force to delete while a stage is running (status: %s)", ErrProjectBusy, status)
		}
		return nil
	default:
		return nil
	}
}

// isTerminal reports whether no further pipeline work can happen without an
// explicit user action.
func isTerminal(status ProjectStatus) bool {
	return status == StatusCompleted || status == StatusError || status == StatusCancelled
}
