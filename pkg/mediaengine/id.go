package mediaengine

import (
	"fmt"
	"strconv"

	"github.com/google/uuid"
)

// ProjectID identifies a project. New projects get UUIDs; data migrated from
// older installations keeps its numeric identifier. The two forms are a
// tagged union rather than an overloaded string.
type ProjectID struct {
	uid    uuid.UUID
	legacy int64
}

// NewProjectID returns a fresh UUID-backed identifier.
func NewProjectID() ProjectID {
	return ProjectID{uid: uuid.New()}
}

// UUIDProjectID wraps an existing UUID.
func UUIDProjectID(u uuid.UUID) ProjectID {
	return ProjectID{uid: u}
}

// LegacyProjectID wraps a legacy numeric identifier. n must be positive.
func LegacyProjectID(n int64) ProjectID {
	return ProjectID{legacy: n}
}

// ParseProjectID accepts either a UUID string or a positive decimal integer.
// The second return is false when the input matches neither form.
func ParseProjectID(s string) (ProjectID, bool) {
	if u, err := uuid.Parse(s); err == nil {
		return ProjectID{uid: u}, true
	}
	if n, err := strconv.ParseInt(s, 10, 64); err == nil && n > 0 {
		return ProjectID{legacy: n}, true
	}
	return ProjectID{}, false
}

// IsLegacy reports whether the identifier is a legacy numeric one.
func (id ProjectID) IsLegacy() bool { return id.legacy > 0 }

// IsZero reports whether the identifier is unset.
func (id ProjectID) IsZero() bool { return id.legacy == 0 && id.uid == uuid.Nil }

// UUID returns the UUID form, or uuid.Nil for legacy identifiers.
func (id ProjectID) UUID() uuid.UUID { return id.uid }

// Legacy returns the numeric form, or 0 for UUID identifiers.
func (id ProjectID) Legacy() int64 { return id.legacy }

func (id ProjectID) String() string {
	if id.IsLegacy() {
		return strconv.FormatInt(id.legacy, 10)
	}
	return id.uid.String()
}

// MarshalText implements encoding.TextMarshaler.
func (id ProjectID) MarshalText() ([]byte, error) {
	return []byte(id.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (id *ProjectID) UnmarshalText(b []byte) error {
	parsed, ok := ParseProjectID(string(b))
	if !ok {
		return fmt.Errorf("invalid project id %q", string(b))
	}
	*id = parsed
	return nil
}
