package mediaengine

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"
)

// Translate runs the translation collaborator for one target language. The
// project shows processing while the call is in flight and returns to
// completed either way; a failure is scoped to the missing artifact and
// never disturbs the transcription result.
func (e *engine) Translate(ctx context.Context, id ProjectID, targetLanguage string) error {
	if e.translator == nil {
		return fmt.Errorf("translator is not configured")
	}
	if targetLanguage == "" {
		return fmt.Errorf("target language is required")
	}

	return e.startPostProcessing(ctx, id, "translate", func(stageCtx context.Context, p *Project) {
		segments, err := e.translator.Translate(stageCtx, p.Transcription.Segments, targetLanguage)
		if err != nil {
			e.logger.Warn("translation failed",
				zap.String("project", id.String()),
				zap.String("language", targetLanguage),
				zap.Error(err))
			return
		}
		tr := &Translation{
			Language:  targetLanguage,
			Segments:  segments,
			CreatedAt: time.Now().UTC(),
		}
		e.storeTranslation(id, tr)
	})
}

// Summarize runs the summarization collaborator for one mode, with the same
// processing/completed envelope as Translate.
func (e *engine) Summarize(ctx context.Context, id ProjectID, mode string) error {
	if e.summarizer == nil {
		return fmt.Errorf("summarizer is not configured")
	}
	if mode == "" {
		return fmt.Errorf("summary mode is required")
	}

	return e.startPostProcessing(ctx, id, "summarize", func(stageCtx context.Context, p *Project) {
		text, err := e.summarizer.Summarize(stageCtx, p.Transcription, mode)
		if err != nil {
			e.logger.Warn("summarization failed",
				zap.String("project", id.String()),
				zap.String("mode", mode),
				zap.Error(err))
			return
		}
		s := &Summary{
			Mode:      mode,
			Text:      text,
			CreatedAt: time.Now().UTC(),
		}
		e.storeSummary(id, s)
	})
}

// startPostProcessing transitions completed -> processing, runs work without
// the project lock, then restores completed.
func (e *engine) startPostProcessing(ctx context.Context, id ProjectID, op string, work func(context.Context, *Project)) error {
	lock := e.lockFor(id)
	lock.Lock()
	p, err := e.repo.GetProject(ctx, id)
	if err != nil {
		lock.Unlock()
		return err
	}
	if err := canStartPostProcessing(p.Status); err != nil {
		lock.Unlock()
		return err
	}
	if p.Transcription == nil {
		lock.Unlock()
		return fmt.Errorf("%w: no transcription artifact", ErrNotCompleted)
	}
	if _, err := e.commitTransition(ctx, p, StatusProcessing, nil); err != nil {
		lock.Unlock()
		return err
	}
	lock.Unlock()

	stageCtx, cancel := context.WithCancel(context.Background())
	e.setInflight(id, cancel)

	e.wg.Add(1)
	go func() {
		defer e.wg.Done()
		defer cancel()
		defer e.clearInflight(id)

		work(stageCtx, p)

		if _, err := e.transitionLocked(context.Background(), id, StatusCompleted, nil); err != nil {
			e.logger.Error("post-processing: restoring completed",
				zap.String("project", id.String()),
				zap.String("op", op),
				zap.Error(err))
		}
	}()
	return nil
}

func (e *engine) storeTranslation(id ProjectID, tr *Translation) {
	lock := e.lockFor(id)
	lock.Lock()
	defer lock.Unlock()

	ctx := context.Background()
	p, err := e.repo.GetProject(ctx, id)
	if err != nil {
		e.logger.Error("storing translation", zap.String("project", id.String()), zap.Error(err))
		return
	}
	if p.Translations == nil {
		p.Translations = make(map[string]*Translation)
	}
	p.Translations[tr.Language] = tr
	p.UpdatedAt = time.Now().UTC()
	if err := e.repo.UpdateProject(ctx, p); err != nil {
		e.logger.Error("storing translation", zap.String("project", id.String()), zap.Error(err))
		return
	}
	if err := e.repo.SaveTranslation(ctx, id, tr); err != nil {
		e.logger.Error("persisting translation artifact", zap.String("project", id.String()), zap.Error(err))
	}
}

func (e *engine) storeSummary(id ProjectID, s *Summary) {
	lock := e.lockFor(id)
	lock.Lock()
	defer lock.Unlock()

	ctx := context.Background()
	p, err := e.repo.GetProject(ctx, id)
	if err != nil {
		e.logger.Error("storing summary", zap.String("project", id.String()), zap.Error(err))
		return
	}
	if p.Summaries == nil {
		p.Summaries = make(map[string]*Summary)
	}
	p.Summaries[s.Mode] = s
	p.UpdatedAt = time.Now().UTC()
	if err := e.repo.UpdateProject(ctx, p); err != nil {
		e.logger.Error("storing summary", zap.String("project", id.String()), zap.Error(err))
		return
	}
	if err := e.repo.SaveSummary(ctx, id, s); err != nil {
		e.logger.Error("persisting summary artifact", zap.String("project", id.String()), zap.Error(err))
	}
}
