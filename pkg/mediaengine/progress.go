package mediaengine

import "time"

// defaultRealtimeFactor assumes transcription takes about half the media's
// wall-clock duration. Rough, but the estimate is advisory only.
const defaultRealtimeFactor = 0.5

// progressEstimator derives an advisory transcription percentage from elapsed
// wall-clock time against an expected duration keyed off the media duration.
// It never feeds back into transition decisions.
type progressEstimator struct {
	startedAt       time.Time
	expectedSeconds float64
}

func newProgressEstimator(mediaDuration float64) *progressEstimator {
	expected := mediaDuration * defaultRealtimeFactor
	if expected < 1 {
		// Unknown or tiny durations still produce a moving estimate.
		expected = 30
	}
	return &progressEstimator{
		startedAt:       time.Now(),
		expectedSeconds: expected,
	}
}

// estimate returns a percentage in [0, 99]. 100 is reserved for the actual
// completion callback.
func (e *progressEstimator) estimate() int {
	elapsed := time.Since(e.startedAt).Seconds()
	pct := int(elapsed / e.expectedSeconds * 100)
	if pct < 0 {
		pct = 0
	}
	if pct > 99 {
		pct = 99
	}
	return pct
}
