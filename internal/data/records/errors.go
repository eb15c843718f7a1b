package records

import (
	"fmt"

	"github.com/google/uuid"
)

type UnknownStatusError struct {
	Table  string
	Status string
}

func (e *UnknownStatusError) Error() string {
	return fmt.Sprintf("%s: unknown status %q", e.Table, e.Status)
}

type CorruptRowError struct {
	Table string
	ID    uuid.UUID
}

func (e *CorruptRowError) Error() string {
	return fmt.Sprintf("%s: corrupt row %s", e.Table, e.ID)
}
