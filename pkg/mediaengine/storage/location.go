// Package storage manages the prioritized set of filesystem roots eligible to
// hold project files, with live capacity snapshots.
package storage

import "time"

// Location is a configured storage root.
type Location struct {
	ID      string `json:"id"`
	Label   string `json:"label,omitempty"`
	Root    string `json:"root"`
	Enabled bool   `json:"enabled"`

	// Priority orders default selection; lower is preferred. It is a
	// selection hint, not an allocation algorithm.
	Priority int `json:"priority"`

	// MaxSizeBytes caps the bytes this location may hold under its root.
	// Zero means unlimited.
	MaxSizeBytes int64 `json:"max_size_bytes,omitempty"`
}

// Capacity is a point-in-time filesystem capacity snapshot. It is advisory
// and may be stale the moment it is taken; placement decisions re-check at
// write time.
type Capacity struct {
	TotalBytes  int64     `json:"total_bytes"`
	UsedBytes   int64     `json:"used_bytes"`
	FreeBytes   int64     `json:"free_bytes"`
	UsedPercent float64   `json:"used_percent"`
	MeasuredAt  time.Time `json:"measured_at"`
}

// LocationStatus pairs a location with its capacity snapshot and project
// usage counters for listings.
type LocationStatus struct {
	Location     Location `json:"location"`
	Capacity     Capacity `json:"capacity"`
	CapacityErr  string   `json:"capacity_error,omitempty"`
	ProjectCount int      `json:"project_count"`
}
