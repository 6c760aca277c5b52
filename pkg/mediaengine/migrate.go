package mediaengine

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/openscribe/media-engine/pkg/mediaengine/storage"
)

// migrateConcurrency bounds how many projects move at once within a batch.
const migrateConcurrency = 4

// MigrationFailureBusy reports an item skipped because a pipeline stage was
// in flight for that project.
const MigrationFailureBusy MigrationFailureKind = "project_busy"

// Migrate relocates each requested project's files to the target location,
// converting flat-layout files to canonical per-project layout as needed.
// Items are isolated: one item's failure never aborts or rolls back the
// others, and a failed item always keeps its source files.
func (e *engine) Migrate(ctx context.Context, req MigrateRequest) (*MigrationReport, error) {
	target, err := e.registry.Get(req.TargetLocationID)
	if err != nil {
		return nil, err
	}
	if !target.Enabled {
		return nil, fmt.Errorf("%w: %s is disabled", storage.ErrLocationNotFound, target.ID)
	}

	report := &MigrationReport{
		TargetLocationID: target.ID,
		Items:            make([]MigrationItemResult, len(req.ProjectIDs)),
	}

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(migrateConcurrency)
	for i, id := range req.ProjectIDs {
		i, id := i, id
		g.Go(func() error {
			report.Items[i] = e.migrateOne(gctx, id, target, req.DeleteSource)
			return nil
		})
	}
	g.Wait()

	e.logger.Info("migration batch finished",
		zap.String("target", target.ID),
		zap.Int("moved", report.Moved()),
		zap.Int("failed", report.Failed()))
	return report, nil
}

func (e *engine) migrateOne(ctx context.Context, id ProjectID, target storage.Location, deleteSource bool) MigrationItemResult {
	res := MigrationItemResult{ProjectID: id}
	fail := func(kind MigrationFailureKind, err error) MigrationItemResult {
		res.Outcome = MigrationFailed
		res.FailureKind = kind
		res.Message = err.Error()
		return res
	}

	lock := e.lockFor(id)
	lock.Lock()
	defer lock.Unlock()

	p, err := e.repo.GetProject(ctx, id)
	if err != nil {
		return fail(MigrationFailureSourceNotFound, err)
	}
	res.OldPath = p.OriginalPath

	switch p.Status {
	case StatusExtracting, StatusTranscribing, StatusProcessing:
		return fail(MigrationFailureBusy, fmt.Errorf("pipeline stage in flight (status: %s)", p.Status))
	}

	canonical := e.resolver.IsCanonical(p.OriginalPath, p.ID)
	paths := e.resolver.Resolve(target.Root, p.ID, e.resolver.Ext(p.OriginalPath))
	res.NewPath = paths.Original

	// Same path in canonical layout: nothing to move. Same root with a
	// layout difference still migrates (structure conversion).
	if canonical && paths.Original == p.OriginalPath {
		res.Outcome = MigrationNoop
		res.Message = "already at target in canonical layout"
		return res
	}

	type move struct{ src, dst string }
	moves := []move{{p.OriginalPath, paths.Original}}
	if p.AudioPath != "" {
		moves = append(moves, move{p.AudioPath, paths.Audio})
	}

	var totalSize int64
	for _, m := range moves {
		info, err := os.Stat(m.src)
		if err != nil {
			return fail(MigrationFailureSourceNotFound, fmt.Errorf("source %s: %w", m.src, err))
		}
		totalSize += info.Size()
	}

	if err := e.registry.Fits(target, totalSize); err != nil {
		return fail(MigrationFailureTargetUnwritable, err)
	}
	if err := e.resolver.EnsureDir(paths); err != nil {
		return fail(MigrationFailureTargetUnwritable, err)
	}

	// Copy everything before touching any source file.
	cleanup := func() {
		for _, m := range moves {
			os.Remove(m.dst)
		}
		removeDirIfEmpty(paths.Dir)
	}
	for _, m := range moves {
		if err := copyFile(m.src, m.dst); err != nil {
			cleanup()
			return fail(MigrationFailureTargetUnwritable, fmt.Errorf("copying to %s: %w", m.dst, err))
		}
	}
	for _, m := range moves {
		srcInfo, err := os.Stat(m.src)
		if err != nil {
			cleanup()
			return fail(MigrationFailureSourceNotFound, fmt.Errorf("source %s: %w", m.src, err))
		}
		dstInfo, err := os.Stat(m.dst)
		if err != nil || dstInfo.Size() != srcInfo.Size() {
			cleanup()
			return fail(MigrationFailureVerification,
				fmt.Errorf("copy of %s did not verify against %s", m.src, m.dst))
		}
	}

	oldDir := filepath.Dir(p.OriginalPath)
	oldPaths := []string{p.OriginalPath}
	if p.AudioPath != "" {
		oldPaths = append(oldPaths, p.AudioPath)
		p.AudioPath = paths.Audio
	}
	p.OriginalPath = paths.Original
	p.LocationID = target.ID
	if err := e.repo.UpdateProject(ctx, p); err != nil {
		cleanup()
		return fail(MigrationFailureTargetUnwritable, fmt.Errorf("updating project record: %w", err))
	}

	if deleteSource {
		for _, old := range oldPaths {
			if old == paths.Original || old == paths.Audio {
				continue
			}
			if err := os.Remove(old); err != nil && !os.IsNotExist(err) {
				e.logger.Warn("removing migrated source",
					zap.String("project", id.String()),
					zap.String("path", old),
					zap.Error(err))
			}
		}
		if canonical {
			removeDirIfEmpty(oldDir)
		}
	}

	res.Outcome = MigrationMoved
	e.logger.Info("project migrated",
		zap.String("project", id.String()),
		zap.String("from", res.OldPath),
		zap.String("to", res.NewPath),
		zap.Bool("delete_source", deleteSource))
	return res
}

func removeDirIfEmpty(dir string) {
	if entries, err := os.ReadDir(dir); err == nil && len(entries) == 0 {
		os.Remove(dir)
	}
}
