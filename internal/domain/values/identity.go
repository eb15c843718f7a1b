package values

import (
	"time"

	"github.com/google/uuid"
)

// Identity is the id + audit timestamps every aggregate carries.
type Identity struct {
	id        uuid.UUID
	createdAt time.Time
	updatedAt time.Time
}

// NewIdentity uses id when non-nil, otherwise generates one.
func NewIdentity(id uuid.UUID, now time.Time) Identity {
	if id == uuid.Nil {
		id = uuid.New()
	}
	now = now.UTC()
	return Identity{id: id, createdAt: now, updatedAt: now}
}

// RestoreIdentity rebuilds a persisted identity verbatim.
func RestoreIdentity(id uuid.UUID, createdAt, updatedAt time.Time) Identity {
	return Identity{id: id, createdAt: createdAt.UTC(), updatedAt: updatedAt.UTC()}
}

func (i Identity) ID() uuid.UUID        { return i.id }
func (i Identity) CreatedAt() time.Time { return i.createdAt }
func (i Identity) UpdatedAt() time.Time { return i.updatedAt }

// Touched returns a copy with updatedAt moved to now.
func (i Identity) Touched(now time.Time) Identity {
	i.updatedAt = now.UTC()
	return i
}
