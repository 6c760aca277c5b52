package mediaengine

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestProgressEstimatorStartsAtZero(t *testing.T) {
	est := newProgressEstimator(3600)
	assert.Equal(t, 0, est.estimate())
}

func TestProgressEstimatorAdvances(t *testing.T) {
	est := &progressEstimator{
		startedAt:       time.Now().Add(-10 * time.Second),
		expectedSeconds: 40,
	}
	pct := est.estimate()
	assert.GreaterOrEqual(t, pct, 20)
	assert.Less(t, pct, 99)
}

func TestProgressEstimatorNeverReportsDone(t *testing.T) {
	est := &progressEstimator{
		startedAt:       time.Now().Add(-time.Hour),
		expectedSeconds: 10,
	}
	assert.Equal(t, 99, est.estimate())
}

func TestProgressEstimatorUnknownDuration(t *testing.T) {
	// Unknown media duration falls back to a fixed expectation instead of
	// dividing by zero.
	est := newProgressEstimator(0)
	assert.Equal(t, float64(30), est.expectedSeconds)

	tiny := newProgressEstimator(1)
	assert.Equal(t, float64(30), tiny.expectedSeconds)
}
