package mediaengine

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"
)

// StartTranscription fires a user-initiated transcription. Re-entrant from
// ready_to_transcribe, completed, and error; rejected while one is already
// running. A restart resets the progress indicator and clears the stale
// artifact before the new attempt.
func (e *engine) StartTranscription(ctx context.Context, id ProjectID, scenario Scenario) error {
	if e.transcriber == nil {
		return fmt.Errorf("transcriber is not configured")
	}

	lock := e.lockFor(id)
	lock.Lock()
	p, err := e.repo.GetProject(ctx, id)
	if err != nil {
		lock.Unlock()
		return err
	}
	if err := canStartTranscription(p.Status); err != nil {
		lock.Unlock()
		return err
	}

	if _, err := e.commitTransition(ctx, p, StatusTranscribing, func(p *Project) {
		p.Transcription = nil
		p.ErrorMessage = ""
	}); err != nil {
		lock.Unlock()
		return err
	}
	lock.Unlock()

	e.mu.Lock()
	e.estimators[id.String()] = newProgressEstimator(p.DurationSeconds)
	e.mu.Unlock()

	stageCtx, cancel := context.WithCancel(context.Background())
	e.setInflight(id, cancel)

	mediaPath := p.MediaPath()
	e.wg.Add(1)
	go func() {
		defer e.wg.Done()
		defer cancel()
		defer e.clearInflight(id)
		e.runTranscription(stageCtx, id, mediaPath, scenario)
	}()

	e.logger.Info("transcription started",
		zap.String("project", id.String()),
		zap.String("scenario", scenario.Name))
	return nil
}

// runTranscription calls the transcription collaborator without holding the
// project lock, then commits the outcome. Partial output from a failed
// attempt is never persisted as a completed artifact.
func (e *engine) runTranscription(ctx context.Context, id ProjectID, mediaPath string, scenario Scenario) {
	defer func() {
		e.mu.Lock()
		delete(e.estimators, id.String())
		e.mu.Unlock()
	}()

	tr, err := e.transcriber.Transcribe(ctx, mediaPath, scenario)
	if err != nil {
		e.failStage(context.Background(), id, StatusTranscribing, fmt.Errorf("transcription: %w", err))
		return
	}
	tr.CreatedAt = time.Now().UTC()

	lock := e.lockFor(id)
	lock.Lock()
	defer lock.Unlock()

	p, err := e.repo.GetProject(context.Background(), id)
	if err != nil {
		e.logger.Error("transcription: loading project", zap.String("project", id.String()), zap.Error(err))
		return
	}
	if p.Status != StatusTranscribing {
		// Cancelled (or force-deleted) while the external job ran.
		e.logger.Info("discarding transcription result",
			zap.String("project", id.String()),
			zap.String("status", string(p.Status)))
		return
	}

	if _, err := e.commitTransition(context.Background(), p, StatusCompleted, func(p *Project) {
		p.Transcription = tr
		if tr.DurationSeconds > 0 {
			p.DurationSeconds = tr.DurationSeconds
		}
	}); err != nil {
		e.logger.Error("transcription: completion transition", zap.String("project", id.String()), zap.Error(err))
		return
	}
	if err := e.repo.SaveTranscription(context.Background(), id, tr); err != nil {
		e.logger.Error("transcription: persisting artifact", zap.String("project", id.String()), zap.Error(err))
	}

	e.logger.Info("transcription completed",
		zap.String("project", id.String()),
		zap.Int("segments", len(tr.Segments)),
		zap.String("language", tr.Language))
}
