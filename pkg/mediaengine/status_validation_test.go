package mediaengine

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestCanTransition(t *testing.T) {
	tests := []struct {
		name  string
		from  ProjectStatus
		to    ProjectStatus
		valid bool
	}{
		{"pending to extracting", StatusPending, StatusExtracting, true},
		{"pending skips extraction", StatusPending, StatusReadyToTranscribe, true},
		{"pending to cancelled", StatusPending, StatusCancelled, true},
		{"extracting to ready", StatusExtracting, StatusReadyToTranscribe, true},
		{"extracting to error", StatusExtracting, StatusError, true},
		{"ready to transcribing", StatusReadyToTranscribe, StatusTranscribing, true},
		{"transcribing to completed", StatusTranscribing, StatusCompleted, true},
		{"transcribing to cancelled", StatusTranscribing, StatusCancelled, true},
		{"completed to transcribing (restart)", StatusCompleted, StatusTranscribing, true},
		{"completed to processing", StatusCompleted, StatusProcessing, true},
		{"processing to completed", StatusProcessing, StatusCompleted, true},
		{"error to transcribing (retry)", StatusError, StatusTranscribing, true},
		{"error to extracting (retry)", StatusError, StatusExtracting, true},

		{"pending to transcribing", StatusPending, StatusTranscribing, false},
		{"pending to completed", StatusPending, StatusCompleted, false},
		{"completed to extracting", StatusCompleted, StatusExtracting, false},
		{"completed to cancelled", StatusCompleted, StatusCancelled, false},
		{"processing to error", StatusProcessing, StatusError, false},
		{"cancelled is terminal", StatusCancelled, StatusTranscribing, false},
		{"cancelled to error", StatusCancelled, StatusError, false},
		{"unknown status", ProjectStatus("bogus"), StatusPending, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := canTransition(tt.from, tt.to)
			if tt.valid {
				assert.NoError(t, err)
			} else {
				assert.ErrorIs(t, err, ErrInvalidTransition)
			}
		})
	}
}

func TestCanStartTranscription(t *testing.T) {
	assert.NoError(t, canStartTranscription(StatusReadyToTranscribe))
	assert.NoError(t, canStartTranscription(StatusCompleted))
	assert.NoError(t, canStartTranscription(StatusError))

	assert.ErrorIs(t, canStartTranscription(StatusTranscribing), ErrTranscriptionInProgress)
	assert.ErrorIs(t, canStartTranscription(StatusPending), ErrNotReadyToTranscribe)
	assert.ErrorIs(t, canStartTranscription(StatusExtracting), ErrNotReadyToTranscribe)
	assert.ErrorIs(t, canStartTranscription(StatusProcessing), ErrNotReadyToTranscribe)
	assert.ErrorIs(t, canStartTranscription(StatusCancelled), ErrNotReadyToTranscribe)
}

func TestCanCancel(t *testing.T) {
	assert.NoError(t, canCancel(StatusPending))
	assert.NoError(t, canCancel(StatusExtracting))
	assert.NoError(t, canCancel(StatusReadyToTranscribe))
	assert.NoError(t, canCancel(StatusTranscribing))

	assert.ErrorIs(t, canCancel(StatusCompleted), ErrInvalidTransition)
	assert.ErrorIs(t, canCancel(StatusProcessing), ErrInvalidTransition)
	assert.ErrorIs(t, canCancel(StatusError), ErrInvalidTransition)
	assert.ErrorIs(t, canCancel(StatusCancelled), ErrInvalidTransition)
}

func TestCanStartPostProcessing(t *testing.T) {
	assert.NoError(t, canStartPostProcessing(StatusCompleted))
	assert.ErrorIs(t, canStartPostProcessing(StatusProcessing), ErrProjectBusy)
	assert.ErrorIs(t, canStartPostProcessing(StatusReadyToTranscribe), ErrNotCompleted)
	assert.ErrorIs(t, canStartPostProcessing(StatusError), ErrNotCompleted)
}

func TestCanDelete(t *testing.T) {
	// Terminal and idle states delete freely.
	assert.NoError(t, canDelete(StatusPending, false))
	assert.NoError(t, canDelete(StatusCompleted, false))
	assert.NoError(t, canDelete(StatusError, false))
	assert.NoError(t, canDelete(StatusCancelled, false))

	// In-flight stages need force.
	for _, s := range []ProjectStatus{StatusExtracting, StatusTranscribing, StatusProcessing} {
		assert.ErrorIs(t, canDelete(s, false), ErrProjectBusy)
		assert.NoError(t, canDelete(s, true))
	}
}

func TestIsTerminal(t *testing.T) {
	assert.True(t, isTerminal(StatusCompleted))
	assert.True(t, isTerminal(StatusError))
	assert.True(t, isTerminal(StatusCancelled))
	assert.False(t, isTerminal(StatusPending))
	assert.False(t, isTerminal(StatusTranscribing))
}
