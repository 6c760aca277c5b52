// Package postgres provides a PostgreSQL-backed Repository.
package postgres

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/openscribe/media-engine/pkg/mediaengine"
)

// DBTX is an interface that allows us to use either a database connection or
// a transaction.
type DBTX interface {
	Exec(context.Context, string, ...interface{}) (pgconn.CommandTag, error)
	Query(context.Context, string, ...interface{}) (pgx.Rows, error)
	QueryRow(context.Context, string, ...interface{}) pgx.Row
}

// Repository implements mediaengine.Repository using PostgreSQL.
type Repository struct {
	db DBTX
}

// New creates a new PostgreSQL repository.
func New(db DBTX) *Repository {
	return &Repository{db: db}
}

// NewWithPool creates a new PostgreSQL repository with a connection pool.
func NewWithPool(pool *pgxpool.Pool) *Repository {
	return &Repository{db: pool}
}

func (r *Repository) handlePostgresError(operation string, err error) error {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		switch pgErr.Code {
		case "23505": // unique_violation
			return fmt.Errorf("duplicate entry in %s", operation)
		case "23503": // foreign_key_violation
			return fmt.Errorf("referenced record not found in %s", operation)
		case "23502": // not_null_violation
			return fmt.Errorf("required field %s is missing", pgErr.ColumnName)
		case "42P01": // undefined_table
			return fmt.Errorf("table does not exist - database migration required")
		default:
			return fmt.Errorf("database error in %s: %s (code: %s)", operation, pgErr.Message, pgErr.Code)
		}
	}
	if errors.Is(err, sql.ErrNoRows) || errors.Is(err, pgx.ErrNoRows) {
		return mediaengine.ErrProjectNotFound
	}
	return fmt.Errorf("database error in %s: %w", operation, err)
}

// Project operations

const projectColumns = `
	id, name, original_filename, mime_type, digest, duration_seconds,
	size_bytes, status, error_message, location_id, original_path,
	audio_path, created_at, updated_at`

func (r *Repository) CreateProject(ctx context.Context, p *mediaengine.Project) error {
	query := `
		INSERT INTO projects (
			id, name, original_filename, mime_type, digest, duration_seconds,
			size_bytes, status, error_message, location_id, original_path,
			audio_path, created_at, updated_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14)`

	_, err := r.db.Exec(ctx, query,
		p.ID.String(), p.Name, p.OriginalFilename, p.MimeType, p.Digest,
		p.DurationSeconds, p.SizeBytes, string(p.Status), p.ErrorMessage,
		p.LocationID, p.OriginalPath, nullable(p.AudioPath), p.CreatedAt, p.UpdatedAt)
	if err != nil {
		return r.handlePostgresError("create project", err)
	}
	return nil
}

func (r *Repository) GetProject(ctx context.Context, id mediaengine.ProjectID) (*mediaengine.Project, error) {
	query := `SELECT ` + projectColumns + ` FROM projects WHERE id = $1`
	p, err := r.scanProject(r.db.QueryRow(ctx, query, id.String()))
	if err != nil {
		return nil, err
	}
	if err := r.loadArtifacts(ctx, p); err != nil {
		return nil, err
	}
	return p, nil
}

func (r *Repository) scanProject(row pgx.Row) (*mediaengine.Project, error) {
	var p mediaengine.Project
	var idStr, status string
	var audioPath *string
	err := row.Scan(
		&idStr, &p.Name, &p.OriginalFilename, &p.MimeType, &p.Digest,
		&p.DurationSeconds, &p.SizeBytes, &status, &p.ErrorMessage,
		&p.LocationID, &p.OriginalPath, &audioPath, &p.CreatedAt, &p.UpdatedAt)
	if err != nil {
		return nil, r.handlePostgresError("get project", err)
	}

	id, ok := mediaengine.ParseProjectID(idStr)
	if !ok {
		return nil, fmt.Errorf("stored project id %q is not parseable", idStr)
	}
	p.ID = id
	p.Status = mediaengine.ProjectStatus(status)
	if audioPath != nil {
		p.AudioPath = *audioPath
	}
	return &p, nil
}

func (r *Repository) UpdateProject(ctx context.Context, p *mediaengine.Project) error {
	query := `
		UPDATE projects SET
			name = $2, mime_type = $3, duration_seconds = $4, size_bytes = $5,
			status = $6, error_message = $7, location_id = $8,
			original_path = $9, audio_path = $10, updated_at = $11
		WHERE id = $1`

	tag, err := r.db.Exec(ctx, query,
		p.ID.String(), p.Name, p.MimeType, p.DurationSeconds, p.SizeBytes,
		string(p.Status), p.ErrorMessage, p.LocationID, p.OriginalPath,
		nullable(p.AudioPath), p.UpdatedAt)
	if err != nil {
		return r.handlePostgresError("update project", err)
	}
	if tag.RowsAffected() == 0 {
		return mediaengine.ErrProjectNotFound
	}
	return nil
}

func (r *Repository) DeleteProject(ctx context.Context, id mediaengine.ProjectID) error {
	tag, err := r.db.Exec(ctx, `DELETE FROM projects WHERE id = $1`, id.String())
	if err != nil {
		return r.handlePostgresError("delete project", err)
	}
	if tag.RowsAffected() == 0 {
		return mediaengine.ErrProjectNotFound
	}
	return nil
}

func (r *Repository) ListProjects(ctx context.Context) ([]*mediaengine.Project, error) {
	query := `SELECT ` + projectColumns + ` FROM projects ORDER BY created_at DESC`
	rows, err := r.db.Query(ctx, query)
	if err != nil {
		return nil, r.handlePostgresError("list projects", err)
	}
	defer rows.Close()

	var out []*mediaengine.Project
	for rows.Next() {
		p, err := r.scanProject(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, p)
	}
	if err := rows.Err(); err != nil {
		return nil, r.handlePostgresError("list projects", err)
	}
	for _, p := range out {
		if err := r.loadArtifacts(ctx, p); err != nil {
			return nil, err
		}
	}
	return out, nil
}

func (r *Repository) FindProjectByDigest(ctx context.Context, digest string) (*mediaengine.Project, error) {
	query := `SELECT ` + projectColumns + `
		FROM projects WHERE digest = $1
		ORDER BY created_at DESC LIMIT 1`
	p, err := r.scanProject(r.db.QueryRow(ctx, query, digest))
	if err != nil {
		return nil, err
	}
	if err := r.loadArtifacts(ctx, p); err != nil {
		return nil, err
	}
	return p, nil
}

func (r *Repository) CountProjectsByLocation(ctx context.Context, locationID string) (int, error) {
	var n int
	err := r.db.QueryRow(ctx,
		`SELECT COUNT(*) FROM projects WHERE location_id = $1`, locationID).Scan(&n)
	if err != nil {
		return 0, r.handlePostgresError("count projects by location", err)
	}
	return n, nil
}

// Artifact operations

func (r *Repository) SaveTranscription(ctx context.Context, id mediaengine.ProjectID, tr *mediaengine.Transcription) error {
	segments, err := json.Marshal(tr.Segments)
	if err != nil {
		return fmt.Errorf("encoding segments: %w", err)
	}
	query := `
		INSERT INTO transcriptions (
			project_id, language, language_probability, duration_seconds,
			text, segments, created_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7)
		ON CONFLICT (project_id) DO UPDATE SET
			language = EXCLUDED.language,
			language_probability = EXCLUDED.language_probability,
			duration_seconds = EXCLUDED.duration_seconds,
			text = EXCLUDED.text,
			segments = EXCLUDED.segments,
			created_at = EXCLUDED.created_at`

	_, err = r.db.Exec(ctx, query,
		id.String(), tr.Language, tr.LanguageProbability, tr.DurationSeconds,
		tr.Text, segments, tr.CreatedAt)
	if err != nil {
		return r.handlePostgresError("save transcription", err)
	}
	return nil
}

func (r *Repository) SaveTranslation(ctx context.Context, id mediaengine.ProjectID, tr *mediaengine.Translation) error {
	segments, err := json.Marshal(tr.Segments)
	if err != nil {
		return fmt.Errorf("encoding segments: %w", err)
	}
	query := `
		INSERT INTO translations (project_id, language, segments, created_at)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT (project_id, language) DO UPDATE SET
			segments = EXCLUDED.segments,
			created_at = EXCLUDED.created_at`

	_, err = r.db.Exec(ctx, query, id.String(), tr.Language, segments, tr.CreatedAt)
	if err != nil {
		return r.handlePostgresError("save translation", err)
	}
	return nil
}

func (r *Repository) SaveSummary(ctx context.Context, id mediaengine.ProjectID, s *mediaengine.Summary) error {
	query := `
		INSERT INTO summaries (project_id, mode, text, created_at)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT (project_id, mode) DO UPDATE SET
			text = EXCLUDED.text,
			created_at = EXCLUDED.created_at`

	_, err := r.db.Exec(ctx, query, id.String(), s.Mode, s.Text, s.CreatedAt)
	if err != nil {
		return r.handlePostgresError("save summary", err)
	}
	return nil
}

// loadArtifacts attaches transcription, translation, and summary records to
// a project.
func (r *Repository) loadArtifacts(ctx context.Context, p *mediaengine.Project) error {
	var tr mediaengine.Transcription
	var segments []byte
	err := r.db.QueryRow(ctx, `
		SELECT language, language_probability, duration_seconds, text, segments, created_at
		FROM transcriptions WHERE project_id = $1`, p.ID.String()).Scan(
		&tr.Language, &tr.LanguageProbability, &tr.DurationSeconds,
		&tr.Text, &segments, &tr.CreatedAt)
	switch {
	case err == nil:
		if err := json.Unmarshal(segments, &tr.Segments); err != nil {
			return fmt.Errorf("decoding segments: %w", err)
		}
		p.Transcription = &tr
	case errors.Is(err, pgx.ErrNoRows):
		// No transcription yet.
	default:
		return r.handlePostgresError("load transcription", err)
	}

	rows, err := r.db.Query(ctx, `
		SELECT language, segments, created_at
		FROM translations WHERE project_id = $1`, p.ID.String())
	if err != nil {
		return r.handlePostgresError("load translations", err)
	}
	defer rows.Close()
	for rows.Next() {
		var t mediaengine.Translation
		var segs []byte
		if err := rows.Scan(&t.Language, &segs, &t.CreatedAt); err != nil {
			return r.handlePostgresError("load translations", err)
		}
		if err := json.Unmarshal(segs, &t.Segments); err != nil {
			return fmt.Errorf("decoding segments: %w", err)
		}
		if p.Translations == nil {
			p.Translations = make(map[string]*mediaengine.Translation)
		}
		p.Translations[t.Language] = &t
	}
	if err := rows.Err(); err != nil {
		return r.handlePostgresError("load translations", err)
	}

	srows, err := r.db.Query(ctx, `
		SELECT mode, text, created_at
		FROM summaries WHERE project_id = $1`, p.ID.String())
	if err != nil {
		return r.handlePostgresError("load summaries", err)
	}
	defer srows.Close()
	for srows.Next() {
		var s mediaengine.Summary
		if err := srows.Scan(&s.Mode, &s.Text, &s.CreatedAt); err != nil {
			return r.handlePostgresError("load summaries", err)
		}
		if p.Summaries == nil {
			p.Summaries = make(map[string]*mediaengine.Summary)
		}
		p.Summaries[s.Mode] = &s
	}
	if err := srows.Err(); err != nil {
		return r.handlePostgresError("load summaries", err)
	}
	return nil
}

func nullable(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}
