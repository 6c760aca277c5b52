package storage

import (
	"context"
	"errors"
	"fmt"
	"os"
	"sort"
	"sync"

	"go.uber.org/zap"
)

// Registry errors
var (
	// ErrLocationNotFound indicates an unknown location identifier
	ErrLocationNotFound = errors.New("storage location not found")

	// ErrLocationExists indicates a duplicate location identifier
	ErrLocationExists = errors.New("storage location already exists")

	// ErrLocationInUse indicates projects still reference the location
	ErrLocationInUse = errors.New("storage location still referenced by projects")

	// ErrInsufficientCapacity indicates no enabled location can hold the file
	ErrInsufficientCapacity = errors.New("no storage location with sufficient capacity")

	// ErrInvalidRoot indicates the root path failed validation
	ErrInvalidRoot = errors.New("invalid storage root")
)

// RefCounter reports how many projects reference a location. The engine
// wires its repository in so the registry can refuse unsafe deletions.
type RefCounter interface {
	CountProjectsByLocation(ctx context.Context, locationID string) (int, error)
}

// Registry is a prioritized, capacity-tracked set of named storage roots.
type Registry struct {
	mu        sync.RWMutex
	locations map[string]Location
	logger    *zap.Logger
}

// RegistryOption configures a Registry.
type RegistryOption func(*Registry)

// WithLogger sets the registry logger.
func WithLogger(logger *zap.Logger) RegistryOption {
	return func(r *Registry) {
		r.logger = logger
	}
}

// NewRegistry builds a registry from the configured locations. Each root is
// validated the same way Add validates it.
func NewRegistry(locations []Location, opts ...RegistryOption) (*Registry, error) {
	r := &Registry{
		locations: make(map[string]Location),
		logger:    zap.NewNop(),
	}
	for _, opt := range opts {
		opt(r)
	}

	for _, loc := range locations {
		if err := r.Add(loc); err != nil {
			return nil, err
		}
	}
	return r, nil
}

// validateRoot requires an absolute, existing, writable directory.
func validateRoot(root string) error {
	if root == "" || !os.IsPathSeparator(root[0]) {
		return fmt.Errorf("%w: %q is not absolute", ErrInvalidRoot, root)
	}
	info, err := os.Stat(root)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidRoot, err)
	}
	if !info.IsDir() {
		return fmt.Errorf("%w: %s is not a directory", ErrInvalidRoot, root)
	}
	probe, err := os.CreateTemp(root, ".writecheck-*")
	if err != nil {
		return fmt.Errorf("%w: %s is not writable: %v", ErrInvalidRoot, root, err)
	}
	probe.Close()
	os.Remove(probe.Name())
	return nil
}

// Add registers a new location after validating its root.
func (r *Registry) Add(loc Location) error {
	if loc.ID == "" {
		return fmt.Errorf("%w: location id is required", ErrInvalidRoot)
	}
	if err := validateRoot(loc.Root); err != nil {
		return err
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	if _, exists := r.locations[loc.ID]; exists {
		return fmt.Errorf("%w: %s", ErrLocationExists, loc.ID)
	}
	r.locations[loc.ID] = loc
	r.logger.Info("storage location registered",
		zap.String("location", loc.ID),
		zap.String("root", loc.Root),
		zap.Int("priority", loc.Priority))
	return nil
}

// Update replaces an existing location's settings after re-validating the
// root.
func (r *Registry) Update(loc Location) error {
	if err := validateRoot(loc.Root); err != nil {
		return err
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	if _, exists := r.locations[loc.ID]; !exists {
		return fmt.Errorf("%w: %s", ErrLocationNotFound, loc.ID)
	}
	r.locations[loc.ID] = loc
	return nil
}

// SetEnabled toggles a location without touching its other settings.
func (r *Registry) SetEnabled(id string, enabled bool) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	loc, exists := r.locations[id]
	if !exists {
		return fmt.Errorf("%w: %s", ErrLocationNotFound, id)
	}
	loc.Enabled = enabled
	r.locations[id] = loc
	return nil
}

// Remove deletes a location. It is refused while any project still
// references the location.
func (r *Registry) Remove(ctx context.Context, id string, refs RefCounter) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, exists := r.locations[id]; !exists {
		return fmt.Errorf("%w: %s", ErrLocationNotFound, id)
	}

	if refs != nil {
		n, err := refs.CountProjectsByLocation(ctx, id)
		if err != nil {
			return fmt.Errorf("checking references for %s: %w", id, err)
		}
		if n > 0 {
			return fmt.Errorf("%w: %s has %d projects", ErrLocationInUse, id, n)
		}
	}

	delete(r.locations, id)
	return nil
}

// Get returns one location by identifier.
func (r *Registry) Get(id string) (Location, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	loc, exists := r.locations[id]
	if !exists {
		return Location{}, fmt.Errorf("%w: %s", ErrLocationNotFound, id)
	}
	return loc, nil
}

// Enabled lists enabled locations ordered by priority (lowest first).
func (r *Registry) Enabled() []Location {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var out []Location
	for _, loc := range r.locations {
		if loc.Enabled {
			out = append(out, loc)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Priority != out[j].Priority {
			return out[i].Priority < out[j].Priority
		}
		return out[i].ID < out[j].ID
	})
	return out
}

// All lists every location, enabled or not, ordered by priority.
func (r *Registry) All() []Location {
	r.mu.RLock()
	locs := make([]Location, 0, len(r.locations))
	for _, loc := range r.locations {
		locs = append(locs, loc)
	}
	r.mu.RUnlock()

	sort.Slice(locs, func(i, j int) bool {
		if locs[i].Priority != locs[j].Priority {
			return locs[i].Priority < locs[j].Priority
		}
		return locs[i].ID < locs[j].ID
	})
	return locs
}

// CapacityOf takes a fresh capacity snapshot for one location.
func (r *Registry) CapacityOf(id string) (Capacity, error) {
	loc, err := r.Get(id)
	if err != nil {
		return Capacity{}, err
	}
	return diskUsage(loc.Root)
}

// Status lists all locations with fresh capacity snapshots and project
// counts. A capacity probe failure is reported per location, not fatal to
// the listing.
func (r *Registry) Status(ctx context.Context, refs RefCounter) []LocationStatus {
	locs := r.All()
	out := make([]LocationStatus, 0, len(locs))
	for _, loc := range locs {
		st := LocationStatus{Location: loc}
		if cap, err := diskUsage(loc.Root); err != nil {
			st.CapacityErr = err.Error()
		} else {
			st.Capacity = cap
		}
		if refs != nil {
			if n, err := refs.CountProjectsByLocation(ctx, loc.ID); err == nil {
				st.ProjectCount = n
			}
		}
		out = append(out, st)
	}
	return out
}

// Fits re-checks, at write time, whether a location can hold size more
// bytes: free disk space must cover it, and the configured quota (if any)
// must not be exceeded.
func (r *Registry) Fits(loc Location, size int64) error {
	cap, err := diskUsage(loc.Root)
	if err != nil {
		return err
	}
	if cap.FreeBytes < size {
		return fmt.Errorf("%w: %s has %d free, need %d", ErrInsufficientCapacity, loc.ID, cap.FreeBytes, size)
	}
	if loc.MaxSizeBytes > 0 {
		used, err := usedUnder(loc.Root)
		if err != nil {
			return err
		}
		if used+size > loc.MaxSizeBytes {
			return fmt.Errorf("%w: %s quota %d, used %d, need %d", ErrInsufficientCapacity, loc.ID, loc.MaxSizeBytes, used, size)
		}
	}
	return nil
}

// SelectForSize picks the highest-priority enabled location that can hold
// size more bytes, re-checking capacity freshly per candidate. It never
// falls back to an unconfigured default.
func (r *Registry) SelectForSize(size int64) (Location, error) {
	for _, loc := range r.Enabled() {
		if err := r.Fits(loc, size); err != nil {
			r.logger.Debug("storage location skipped",
				zap.String("location", loc.ID),
				zap.Error(err))
			continue
		}
		return loc, nil
	}
	return Location{}, fmt.Errorf("%w: need %d bytes", ErrInsufficientCapacity, size)
}
