package mediaengine

import (
	"context"
	"errors"
	"fmt"
	"io"
	"mime"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/openscribe/media-engine/pkg/mediaengine/digest"
	"github.com/openscribe/media-engine/pkg/mediaengine/storage"
)

// suitableAudioExts are source formats transcription can consume directly;
// ingestion skips the extraction stage for them.
var suitableAudioExts = map[string]bool{
	"wav": true,
}

// engine implements the Service interface
type engine struct {
	repo        Repository
	registry    *storage.Registry
	resolver    *PathResolver
	toolchain   MediaToolchain
	transcriber Transcriber
	translator  Translator
	summarizer  Summarizer
	spoolDir    string
	logger      *zap.Logger

	mu         sync.Mutex
	locks      map[string]*sync.Mutex
	inflight   map[string]context.CancelFunc
	estimators map[string]*progressEstimator
	wg         sync.WaitGroup
}

// Option represents a functional option for configuring the engine
type Option func(*engine)

// WithRepository sets the project repository.
func WithRepository(repo Repository) Option {
	return func(e *engine) { e.repo = repo }
}

// WithRegistry sets the storage location registry.
func WithRegistry(reg *storage.Registry) Option {
	return func(e *engine) { e.registry = reg }
}

// WithToolchain sets the media-toolchain collaborator.
func WithToolchain(tc MediaToolchain) Option {
	return func(e *engine) { e.toolchain = tc }
}

// WithTranscriber sets the transcription collaborator.
func WithTranscriber(t Transcriber) Option {
	return func(e *engine) { e.transcriber = t }
}

// WithTranslator sets the translation collaborator.
func WithTranslator(t Translator) Option {
	return func(e *engine) { e.translator = t }
}

// WithSummarizer sets the summarization collaborator.
func WithSummarizer(s Summarizer) Option {
	return func(e *engine) { e.summarizer = s }
}

// WithSpoolDir sets the directory staged uploads are spooled to.
func WithSpoolDir(dir string) Option {
	return func(e *engine) { e.spoolDir = dir }
}

// WithLogger sets the engine logger.
func WithLogger(logger *zap.Logger) Option {
	return func(e *engine) { e.logger = logger }
}

// New creates a new engine instance with the given options.
func New(options ...Option) (Service, error) {
	e := &engine{
		resolver:   NewPathResolver(),
		logger:     zap.NewNop(),
		locks:      make(map[string]*sync.Mutex),
		inflight:   make(map[string]context.CancelFunc),
		estimators: make(map[string]*progressEstimator),
	}

	for _, option := range options {
		option(e)
	}

	if e.repo == nil {
		return nil, fmt.Errorf("repository is required")
	}
	if e.registry == nil {
		return nil, fmt.Errorf("storage registry is required")
	}
	if e.toolchain == nil {
		return nil, fmt.Errorf("media toolchain is required")
	}
	if e.spoolDir == "" {
		e.spoolDir = filepath.Join(os.TempDir(), "media-engine-spool")
	}
	if err := os.MkdirAll(e.spoolDir, 0o755); err != nil {
		return nil, fmt.Errorf("create spool dir: %w", err)
	}

	return e, nil
}

// lockFor returns the per-project mutex, creating it on first use. The lock
// serializes transitions and file moves for one project; it is never held
// across an external collaborator call.
func (e *engine) lockFor(id ProjectID) *sync.Mutex {
	e.mu.Lock()
	defer e.mu.Unlock()
	l, ok := e.locks[id.String()]
	if !ok {
		l = &sync.Mutex{}
		e.locks[id.String()] = l
	}
	return l
}

func (e *engine) setInflight(id ProjectID, cancel context.CancelFunc) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.inflight[id.String()] = cancel
}

func (e *engine) clearInflight(id ProjectID) {
	e.mu.Lock()
	defer e.mu.Unlock()
	delete(e.inflight, id.String())
}

func (e *engine) cancelInflight(id ProjectID) {
	e.mu.Lock()
	cancel := e.inflight[id.String()]
	e.mu.Unlock()
	if cancel != nil {
		cancel()
	}
}

// Staging and deduplication

// StageMedia spools the stream to a temporary file while hashing it in one
// pass. A cancelled context or read error removes the partial spool file and
// creates no project record.
func (e *engine) StageMedia(ctx context.Context, r io.Reader, filename string) (*StagedMedia, error) {
	spoolPath := filepath.Join(e.spoolDir, uuid.NewString()+".spool")
	f, err := os.Create(spoolPath)
	if err != nil {
		return nil, fmt.Errorf("create spool file: %w", err)
	}

	tee, hasher := digest.Tee(&contextReader{ctx: ctx, r: r})
	size, err := io.Copy(f, tee)
	closeErr := f.Close()
	if err == nil {
		err = closeErr
	}
	if err != nil {
		os.Remove(spoolPath)
		return nil, fmt.Errorf("staging upload: %w", err)
	}

	staged := &StagedMedia{
		SpoolPath:        spoolPath,
		OriginalFilename: filepath.Base(filename),
		MimeType:         mime.TypeByExtension(filepath.Ext(filename)),
		Digest:           hasher.Sum(),
		SizeBytes:        size,
	}
	e.logger.Debug("media staged",
		zap.String("filename", staged.OriginalFilename),
		zap.String("digest", staged.Digest),
		zap.Int64("size", size))
	return staged, nil
}

// StageMediaFromPath stages a file already on disk. The file is copied into
// the spool so ingestion can move it without disturbing the source.
func (e *engine) StageMediaFromPath(ctx context.Context, path string) (*StagedMedia, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open source %s: %w", path, err)
	}
	defer f.Close()
	return e.StageMedia(ctx, f, filepath.Base(path))
}

// DiscardStaged removes a spooled file that will not be ingested.
func (e *engine) DiscardStaged(staged *StagedMedia) error {
	if staged == nil || staged.SpoolPath == "" {
		return nil
	}
	if err := os.Remove(staged.SpoolPath); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("discard staged %s: %w", staged.SpoolPath, err)
	}
	return nil
}

// FindDuplicate returns the most recent project with the given digest, or
// nil when the content is new. A lookup failure propagates so ingestion
// fails closed.
func (e *engine) FindDuplicate(ctx context.Context, d string) (*DuplicateMatch, error) {
	p, err := e.repo.FindProjectByDigest(ctx, d)
	if errors.Is(err, ErrProjectNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrDedupCheckFailed, err)
	}
	return &DuplicateMatch{
		ProjectID: p.ID,
		Name:      p.Name,
		Filename:  p.OriginalFilename,
		Status:    p.Status,
		Path:      p.OriginalPath,
		CreatedAt: p.CreatedAt,
	}, nil
}

// Ingest completes ingestion of a staged file: duplicate gate, placement,
// canonical move, record creation, then asynchronous extraction dispatch.
func (e *engine) Ingest(ctx context.Context, req IngestRequest) (*Project, error) {
	staged := req.Staged
	if staged == nil || staged.Digest == "" {
		return nil, ErrStagedMediaInvalid
	}
	if _, err := os.Stat(staged.SpoolPath); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrStagedMediaInvalid, err)
	}

	match, err := e.FindDuplicate(ctx, staged.Digest)
	if err != nil {
		return nil, err
	}
	if match != nil && !req.Force {
		return nil, &DuplicateError{Match: match}
	}

	var loc storage.Location
	if req.LocationID != "" {
		loc, err = e.registry.Get(req.LocationID)
		if err == nil {
			err = e.registry.Fits(loc, staged.SizeBytes)
		}
	} else {
		loc, err = e.registry.SelectForSize(staged.SizeBytes)
	}
	if err != nil {
		return nil, err
	}

	id := NewProjectID()
	ext := e.resolver.Ext(staged.OriginalFilename)
	paths := e.resolver.Resolve(loc.Root, id, ext)
	if err := e.resolver.EnsureDir(paths); err != nil {
		return nil, err
	}
	if err := moveFile(staged.SpoolPath, paths.Original); err != nil {
		os.Remove(paths.Dir)
		return nil, fmt.Errorf("placing original: %w", err)
	}

	now := time.Now().UTC()
	project := &Project{
		ID:               id,
		Name:             req.Name,
		OriginalFilename: staged.OriginalFilename,
		MimeType:         staged.MimeType,
		Digest:           staged.Digest,
		SizeBytes:        staged.SizeBytes,
		Status:           StatusPending,
		LocationID:       loc.ID,
		OriginalPath:     paths.Original,
		CreatedAt:        now,
		UpdatedAt:        now,
	}
	if err := e.repo.CreateProject(ctx, project); err != nil {
		os.Remove(paths.Original)
		os.Remove(paths.Dir)
		return nil, &ProjectError{ProjectID: id, Op: "ingest", Err: err}
	}

	e.logger.Info("project ingested",
		zap.String("project", id.String()),
		zap.String("location", loc.ID),
		zap.String("digest", staged.Digest))

	e.dispatchExtraction(project, paths)

	return e.GetProject(ctx, id)
}

// Project reads

func (e *engine) GetProject(ctx context.Context, id ProjectID) (*Project, error) {
	p, err := e.repo.GetProject(ctx, id)
	if err != nil {
		return nil, err
	}
	e.attachProgress(p)
	return p, nil
}

func (e *engine) ListProjects(ctx context.Context) ([]*Project, error) {
	projects, err := e.repo.ListProjects(ctx)
	if err != nil {
		return nil, err
	}
	sort.Slice(projects, func(i, j int) bool {
		return projects[i].CreatedAt.After(projects[j].CreatedAt)
	})
	for _, p := range projects {
		e.attachProgress(p)
	}
	return projects, nil
}

// attachProgress populates the advisory transcription percentage on a
// snapshot. 100 is only ever reported via the completed status itself.
func (e *engine) attachProgress(p *Project) {
	if p.Status != StatusTranscribing {
		return
	}
	e.mu.Lock()
	est := e.estimators[p.ID.String()]
	e.mu.Unlock()
	if est == nil {
		return
	}
	pct := est.estimate()
	p.TranscriptionProgress = &pct
}

// DeleteProject removes the record and the project's on-disk files. With a
// stage in flight it is refused unless force is set; force cancels the stage
// first.
func (e *engine) DeleteProject(ctx context.Context, id ProjectID, force bool) error {
	lock := e.lockFor(id)
	lock.Lock()
	defer lock.Unlock()

	p, err := e.repo.GetProject(ctx, id)
	if err != nil {
		return err
	}
	if err := canDelete(p.Status, force); err != nil {
		return err
	}
	if force && !isTerminal(p.Status) {
		e.logger.Warn("force deleting project with stage in flight",
			zap.String("project", id.String()),
			zap.String("status", string(p.Status)))
		e.cancelInflight(id)
	}

	if err := e.repo.DeleteProject(ctx, id); err != nil {
		return &ProjectError{ProjectID: id, Op: "delete", Err: err}
	}

	e.removeProjectFiles(p)

	e.mu.Lock()
	delete(e.estimators, id.String())
	e.mu.Unlock()

	e.logger.Info("project deleted", zap.String("project", id.String()))
	return nil
}

// removeProjectFiles deletes a project's files, and its directory when the
// files live in canonical layout.
func (e *engine) removeProjectFiles(p *Project) {
	if p.OriginalPath != "" && e.resolver.IsCanonical(p.OriginalPath, p.ID) {
		if err := os.RemoveAll(filepath.Dir(p.OriginalPath)); err != nil {
			e.logger.Warn("removing project dir", zap.String("project", p.ID.String()), zap.Error(err))
		}
		return
	}
	for _, path := range []string{p.OriginalPath, p.AudioPath} {
		if path == "" {
			continue
		}
		if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
			e.logger.Warn("removing project file", zap.String("path", path), zap.Error(err))
		}
	}
}

// CancelProject marks the project cancelled and signals any in-flight stage.
// An already-dispatched external job is stopped best-effort only.
func (e *engine) CancelProject(ctx context.Context, id ProjectID) error {
	lock := e.lockFor(id)
	lock.Lock()
	defer lock.Unlock()

	p, err := e.repo.GetProject(ctx, id)
	if err != nil {
		return err
	}
	if err := canCancel(p.Status); err != nil {
		return err
	}

	e.cancelInflight(id)

	if _, err := e.commitTransition(ctx, p, StatusCancelled, func(p *Project) {
		p.ErrorMessage = ""
	}); err != nil {
		return err
	}
	e.logger.Info("project cancelled", zap.String("project", id.String()))
	return nil
}

// WaitIdle blocks until all dispatched pipeline stages have finished.
func (e *engine) WaitIdle() {
	e.wg.Wait()
}

// commitTransition validates and persists a status transition. The caller
// must hold the project's lock.
func (e *engine) commitTransition(ctx context.Context, p *Project, to ProjectStatus, mutate func(*Project)) (*Project, error) {
	if err := canTransition(p.Status, to); err != nil {
		return nil, &ProjectError{ProjectID: p.ID, Op: "transition", Err: err}
	}
	from := p.Status
	p.Status = to
	p.UpdatedAt = time.Now().UTC()
	if mutate != nil {
		mutate(p)
	}
	if err := e.repo.UpdateProject(ctx, p); err != nil {
		return nil, &ProjectError{ProjectID: p.ID, Op: "transition", Err: err}
	}
	e.logger.Debug("status transition",
		zap.String("project", p.ID.String()),
		zap.String("from", string(from)),
		zap.String("to", string(to)))
	return p, nil
}

// transitionLocked loads the project under its lock and commits a transition.
func (e *engine) transitionLocked(ctx context.Context, id ProjectID, to ProjectStatus, mutate func(*Project)) (*Project, error) {
	lock := e.lockFor(id)
	lock.Lock()
	defer lock.Unlock()

	p, err := e.repo.GetProject(ctx, id)
	if err != nil {
		return nil, err
	}
	return e.commitTransition(ctx, p, to, mutate)
}

// isSuitableAudio reports whether a source needs no extraction.
func isSuitableAudio(filename string) bool {
	ext := strings.TrimPrefix(strings.ToLower(filepath.Ext(filename)), ".")
	return suitableAudioExts[ext]
}

// moveFile renames src to dst, falling back to copy-and-remove across
// filesystems.
func moveFile(src, dst string) error {
	if err := os.Rename(src, dst); err == nil {
		return nil
	}
	if err := copyFile(src, dst); err != nil {
		return err
	}
	return os.Remove(src)
}

// copyFile streams src to dst and syncs it.
func copyFile(src, dst string) error {
	in, err := os.Open(src)
	if err != nil {
		return err
	}
	defer in.Close()

	out, err := os.Create(dst)
	if err != nil {
		return err
	}
	if _, err := io.Copy(out, in); err != nil {
		out.Close()
		os.Remove(dst)
		return err
	}
	if err := out.Sync(); err != nil {
		out.Close()
		os.Remove(dst)
		return err
	}
	return out.Close()
}

// contextReader aborts reads once the context is cancelled, so a client can
// abandon an in-flight upload.
type contextReader struct {
	ctx context.Context
	r   io.Reader
}

func (c *contextReader) Read(p []byte) (int, error) {
	if err := c.ctx.Err(); err != nil {
		return 0, err
	}
	return c.r.Read(p)
}
