package mediaengine

import (
	"context"
	"errors"
	"os"

	"go.uber.org/zap"
)

// dispatchExtraction runs the extraction stage for a freshly ingested
// project. Sources that are already suitable audio skip straight to
// ready_to_transcribe (after a best-effort probe).
func (e *engine) dispatchExtraction(p *Project, paths ProjectPaths) {
	id := p.ID
	stageCtx, cancel := context.WithCancel(context.Background())
	e.setInflight(id, cancel)

	e.wg.Add(1)
	go func() {
		defer e.wg.Done()
		defer cancel()
		defer e.clearInflight(id)
		e.runExtraction(stageCtx, id, paths)
	}()
}

func (e *engine) runExtraction(ctx context.Context, id ProjectID, paths ProjectPaths) {
	p, err := e.repo.GetProject(ctx, id)
	if err != nil {
		e.logger.Error("extraction: loading project", zap.String("project", id.String()), zap.Error(err))
		return
	}

	if isSuitableAudio(p.OriginalFilename) {
		duration := e.probeDuration(ctx, p.OriginalPath)
		if _, err := e.transitionLocked(ctx, id, StatusReadyToTranscribe, func(p *Project) {
			p.DurationSeconds = duration
		}); err != nil {
			e.logger.Warn("extraction: skip transition", zap.String("project", id.String()), zap.Error(err))
		}
		return
	}

	if _, err := e.transitionLocked(ctx, id, StatusExtracting, nil); err != nil {
		// Cancelled before the stage started.
		e.logger.Warn("extraction not started", zap.String("project", id.String()), zap.Error(err))
		return
	}

	duration, err := e.extractAudio(ctx, p.OriginalPath, paths.Audio)
	if err != nil {
		e.failStage(ctx, id, StatusExtracting, err)
		return
	}

	if _, err := e.transitionLocked(ctx, id, StatusReadyToTranscribe, func(p *Project) {
		p.AudioPath = paths.Audio
		p.DurationSeconds = duration
		p.ErrorMessage = ""
	}); err != nil {
		e.logger.Warn("extraction: completion transition", zap.String("project", id.String()), zap.Error(err))
	}
}

// extractAudio produces the normalized waveform at targetPath. A non-empty
// file already at that path counts as success without re-invoking the
// toolchain. The duration probe is best-effort: on probe error the duration
// is zero and extraction proceeds.
func (e *engine) extractAudio(ctx context.Context, sourcePath, targetPath string) (float64, error) {
	if info, err := os.Stat(targetPath); err == nil && info.Size() > 0 {
		e.logger.Debug("extraction cache hit", zap.String("audio", targetPath))
		return e.probeDuration(ctx, sourcePath), nil
	}

	duration := e.probeDuration(ctx, sourcePath)

	if err := e.toolchain.Extract(ctx, sourcePath, targetPath); err != nil {
		os.Remove(targetPath)
		return 0, &ExtractionError{SourcePath: sourcePath, Err: err}
	}
	return duration, nil
}

// probeDuration returns the media duration, absorbing probe failures as zero.
func (e *engine) probeDuration(ctx context.Context, path string) float64 {
	duration, err := e.toolchain.Probe(ctx, path)
	if err != nil {
		e.logger.Warn("duration probe failed, recording zero",
			zap.String("path", path),
			zap.Error(err))
		return 0
	}
	return duration
}

// failStage records a stage-fatal error. If the project was cancelled while
// the stage ran, the cancelled status wins and the failure is only logged.
func (e *engine) failStage(ctx context.Context, id ProjectID, stage ProjectStatus, stageErr error) {
	lock := e.lockFor(id)
	lock.Lock()
	defer lock.Unlock()

	p, err := e.repo.GetProject(ctx, id)
	if err != nil {
		if !errors.Is(err, ErrProjectNotFound) {
			e.logger.Error("recording stage failure", zap.String("project", id.String()), zap.Error(err))
		}
		return
	}
	if p.Status == StatusCancelled {
		e.logger.Info("stage failed after cancellation",
			zap.String("project", id.String()),
			zap.String("stage", string(stage)),
			zap.Error(stageErr))
		return
	}

	if _, err := e.commitTransition(ctx, p, StatusError, func(p *Project) {
		p.ErrorMessage = stageErr.Error()
	}); err != nil {
		e.logger.Error("recording stage failure", zap.String("project", id.String()), zap.Error(err))
		return
	}
	e.logger.Error("stage failed",
		zap.String("project", id.String()),
		zap.String("stage", string(stage)),
		zap.Error(stageErr))
}
