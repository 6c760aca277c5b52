// Package memory provides an in-memory Repository for tests and embedded
// use.
package memory

import (
	"context"
	"sync"
	"time"

	"github.com/openscribe/media-engine/pkg/mediaengine"
)

// Repository implements mediaengine.Repository using in-memory storage.
type Repository struct {
	mu       sync.RWMutex
	projects map[string]*mediaengine.Project
}

// New creates a new in-memory repository.
func New() *Repository {
	return &Repository{
		projects: make(map[string]*mediaengine.Project),
	}
}

// copyProject deep-copies the mutable parts so callers cannot mutate stored
// state through a returned snapshot.
func copyProject(p *mediaengine.Project) *mediaengine.Project {
	cp := *p
	if p.Translations != nil {
		cp.Translations = make(map[string]*mediaengine.Translation, len(p.Translations))
		for k, v := range p.Translations {
			vc := *v
			cp.Translations[k] = &vc
		}
	}
	if p.Summaries != nil {
		cp.Summaries = make(map[string]*mediaengine.Summary, len(p.Summaries))
		for k, v := range p.Summaries {
			vc := *v
			cp.Summaries[k] = &vc
		}
	}
	if p.Transcription != nil {
		tc := *p.Transcription
		cp.Transcription = &tc
	}
	return &cp
}

func (r *Repository) CreateProject(ctx context.Context, project *mediaengine.Project) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.projects[project.ID.String()] = copyProject(project)
	return nil
}

func (r *Repository) GetProject(ctx context.Context, id mediaengine.ProjectID) (*mediaengine.Project, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	p, exists := r.projects[id.String()]
	if !exists {
		return nil, mediaengine.ErrProjectNotFound
	}
	return copyProject(p), nil
}

func (r *Repository) UpdateProject(ctx context.Context, project *mediaengine.Project) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, exists := r.projects[project.ID.String()]; !exists {
		return mediaengine.ErrProjectNotFound
	}
	r.projects[project.ID.String()] = copyProject(project)
	return nil
}

func (r *Repository) DeleteProject(ctx context.Context, id mediaengine.ProjectID) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, exists := r.projects[id.String()]; !exists {
		return mediaengine.ErrProjectNotFound
	}
	delete(r.projects, id.String())
	return nil
}

func (r *Repository) ListProjects(ctx context.Context) ([]*mediaengine.Project, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]*mediaengine.Project, 0, len(r.projects))
	for _, p := range r.projects {
		out = append(out, copyProject(p))
	}
	return out, nil
}

func (r *Repository) FindProjectByDigest(ctx context.Context, digest string) (*mediaengine.Project, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	var newest *mediaengine.Project
	for _, p := range r.projects {
		if p.Digest != digest {
			continue
		}
		if newest == nil || p.CreatedAt.After(newest.CreatedAt) {
			newest = p
		}
	}
	if newest == nil {
		return nil, mediaengine.ErrProjectNotFound
	}
	return copyProject(newest), nil
}

func (r *Repository) CountProjectsByLocation(ctx context.Context, locationID string) (int, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	n := 0
	for _, p := range r.projects {
		if p.LocationID == locationID {
			n++
		}
	}
	return n, nil
}

func (r *Repository) SaveTranscription(ctx context.Context, id mediaengine.ProjectID, tr *mediaengine.Transcription) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	p, exists := r.projects[id.String()]
	if !exists {
		return mediaengine.ErrProjectNotFound
	}
	trCopy := *tr
	p.Transcription = &trCopy
	p.UpdatedAt = time.Now().UTC()
	return nil
}

func (r *Repository) SaveTranslation(ctx context.Context, id mediaengine.ProjectID, tr *mediaengine.Translation) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	p, exists := r.projects[id.String()]
	if !exists {
		return mediaengine.ErrProjectNotFound
	}
	if p.Translations == nil {
		p.Translations = make(map[string]*mediaengine.Translation)
	}
	trCopy := *tr
	p.Translations[tr.Language] = &trCopy
	p.UpdatedAt = time.Now().UTC()
	return nil
}

func (r *Repository) SaveSummary(ctx context.Context, id mediaengine.ProjectID, s *mediaengine.Summary) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	p, exists := r.projects[id.String()]
	if !exists {
		return mediaengine.ErrProjectNotFound
	}
	if p.Summaries == nil {
		p.Summaries = make(map[string]*mediaengine.Summary)
	}
	sCopy := *s
	p.Summaries[s.Mode] = &sCopy
	p.UpdatedAt = time.Now().UTC()
	return nil
}
