package mediaengine

// IngestRequest completes ingestion of a previously staged file.
type IngestRequest struct {
	Staged *StagedMedia

	// Name is the optional user-assigned display name.
	Name string

	// Force creates a new project even when the digest matches an existing
	// one.
	Force bool

	// LocationID pins placement to one storage location. When empty the
	// registry picks the highest-priority enabled location with room.
	LocationID string
}

// MigrateRequest relocates a batch of projects to one target location.
type MigrateRequest struct {
	ProjectIDs       []ProjectID
	TargetLocationID string

	// DeleteSource removes the original files after the copy has been
	// verified. A failed item always keeps its source.
	DeleteSource bool
}
