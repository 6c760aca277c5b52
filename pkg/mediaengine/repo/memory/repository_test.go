package memory

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/openscribe/media-engine/pkg/mediaengine"
)

func newProject(digest string, createdAt time.Time) *mediaengine.Project {
	return &mediaengine.Project{
		ID:               mediaengine.NewProjectID(),
		OriginalFilename: "clip.mp4",
		Digest:           digest,
		Status:           mediaengine.StatusPending,
		LocationID:       "primary",
		OriginalPath:     "/data/primary/clip.mp4",
		CreatedAt:        createdAt,
		UpdatedAt:        createdAt,
	}
}

func TestProjectCRUD(t *testing.T) {
	ctx := context.Background()
	repo := New()

	p := newProject("d1", time.Now().UTC())
	require.NoError(t, repo.CreateProject(ctx, p))

	got, err := repo.GetProject(ctx, p.ID)
	require.NoError(t, err)
	assert.Equal(t, p.Digest, got.Digest)
	assert.Equal(t, mediaengine.StatusPending, got.Status)

	got.Status = mediaengine.StatusExtracting
	require.NoError(t, repo.UpdateProject(ctx, got))

	got, err = repo.GetProject(ctx, p.ID)
	require.NoError(t, err)
	assert.Equal(t, mediaengine.StatusExtracting, got.Status)

	require.NoError(t, repo.DeleteProject(ctx, p.ID))
	_, err = repo.GetProject(ctx, p.ID)
	assert.ErrorIs(t, err, mediaengine.ErrProjectNotFound)
}

func TestNotFoundSentinels(t *testing.T) {
	ctx := context.Background()
	repo := New()
	id := mediaengine.NewProjectID()

	_, err := repo.GetProject(ctx, id)
	assert.ErrorIs(t, err, mediaengine.ErrProjectNotFound)

	assert.ErrorIs(t, repo.UpdateProject(ctx, &mediaengine.Project{ID: id}), mediaengine.ErrProjectNotFound)
	assert.ErrorIs(t, repo.DeleteProject(ctx, id), mediaengine.ErrProjectNotFound)
	assert.ErrorIs(t, repo.SaveTranscription(ctx, id, &mediaengine.Transcription{}), mediaengine.ErrProjectNotFound)

	_, err = repo.FindProjectByDigest(ctx, "missing")
	assert.ErrorIs(t, err, mediaengine.ErrProjectNotFound)
}

func TestFindProjectByDigestNewestWins(t *testing.T) {
	ctx := context.Background()
	repo := New()

	old := newProject("same", time.Now().UTC().Add(-time.Hour))
	newer := newProject("same", time.Now().UTC())
	other := newProject("other", time.Now().UTC())
	require.NoError(t, repo.CreateProject(ctx, old))
	require.NoError(t, repo.CreateProject(ctx, newer))
	require.NoError(t, repo.CreateProject(ctx, other))

	got, err := repo.FindProjectByDigest(ctx, "same")
	require.NoError(t, err)
	assert.Equal(t, newer.ID, got.ID)
}

func TestCountProjectsByLocation(t *testing.T) {
	ctx := context.Background()
	repo := New()

	a := newProject("d1", time.Now().UTC())
	b := newProject("d2", time.Now().UTC())
	b.LocationID = "archive"
	c := newProject("d3", time.Now().UTC())
	for _, p := range []*mediaengine.Project{a, b, c} {
		require.NoError(t, repo.CreateProject(ctx, p))
	}

	n, err := repo.CountProjectsByLocation(ctx, "primary")
	require.NoError(t, err)
	assert.Equal(t, 2, n)

	n, err = repo.CountProjectsByLocation(ctx, "archive")
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	n, err = repo.CountProjectsByLocation(ctx, "empty")
	require.NoError(t, err)
	assert.Equal(t, 0, n)
}

func TestSaveArtifacts(t *testing.T) {
	ctx := context.Background()
	repo := New()

	p := newProject("d1", time.Now().UTC())
	require.NoError(t, repo.CreateProject(ctx, p))

	tr := &mediaengine.Transcription{
		Language: "en",
		Text:     "hello there",
		Segments: []mediaengine.Segment{{Start: 0, End: 1.5, Text: "hello there"}},
	}
	require.NoError(t, repo.SaveTranscription(ctx, p.ID, tr))

	require.NoError(t, repo.SaveTranslation(ctx, p.ID, &mediaengine.Translation{
		Language: "de",
		Segments: []mediaengine.Segment{{Start: 0, End: 1.5, Text: "hallo"}},
	}))
	require.NoError(t, repo.SaveSummary(ctx, p.ID, &mediaengine.Summary{
		Mode: "bullets",
		Text: "- hello",
	}))

	got, err := repo.GetProject(ctx, p.ID)
	require.NoError(t, err)
	require.NotNil(t, got.Transcription)
	assert.Equal(t, "hello there", got.Transcription.Text)
	require.Contains(t, got.Translations, "de")
	assert.Equal(t, "hallo", got.Translations["de"].Segments[0].Text)
	require.Contains(t, got.Summaries, "bullets")
	assert.Equal(t, "- hello", got.Summaries["bullets"].Text)
}

func TestSnapshotsAreIsolated(t *testing.T) {
	ctx := context.Background()
	repo := New()

	p := newProject("d1", time.Now().UTC())
	require.NoError(t, repo.CreateProject(ctx, p))
	require.NoError(t, repo.SaveTranscription(ctx, p.ID, &mediaengine.Transcription{Text: "original"}))

	got, err := repo.GetProject(ctx, p.ID)
	require.NoError(t, err)

	// Mutating a returned snapshot must not leak into the store.
	got.Status = mediaengine.StatusError
	got.Transcription.Text = "tampered"

	again, err := repo.GetProject(ctx, p.ID)
	require.NoError(t, err)
	assert.Equal(t, mediaengine.StatusPending, again.Status)
	assert.Equal(t, "original", again.Transcription.Text)
}

func TestListProjects(t *testing.T) {
	ctx := context.Background()
	repo := New()

	for i := 0; i < 3; i++ {
		require.NoError(t, repo.CreateProject(ctx, newProject("d", time.Now().UTC())))
	}

	projects, err := repo.ListProjects(ctx)
	require.NoError(t, err)
	assert.Len(t, projects, 3)
}
