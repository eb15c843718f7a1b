package payment

import (
	"fmt"
	"strings"
)

type Status string

const (
	StatusPending    Status = "pending"
	StatusProcessing Status = "processing"
	StatusCompleted  Status = "completed"
	StatusFailed     Status = "failed"
	StatusRefunded   Status = "refunded"
)

func ParseStatus(s string) (Status, bool) {
	st := Status(strings.ToLower(strings.TrimSpace(s)))
	switch st {
	case StatusPending, StatusProcessing, StatusCompleted, StatusFailed, StatusRefunded:
		return st, true
	}
	return "", false
}

// CanTransitionTo reports whether s -> to is a payment lifecycle edge.
// Refunded is reachable only through Refund.
func (s Status) CanTransitionTo(to Status) bool {
	switch s {
	case StatusPending:
		return to == StatusProcessing || to == StatusFailed
	case StatusProcessing:
		return to == StatusCompleted || to == StatusFailed
	case StatusCompleted, StatusRefunded:
		return to == StatusRefunded
	case StatusFailed:
		return false
	}
	return false
}

// IsSettled is true once money has moved.
func (s Status) IsSettled() bool {
	return s == StatusCompleted || s == StatusRefunded
}

// StateError is returned when an operation is not allowed in the current status.
type StateError struct {
	Action string
	Status Status
	Reason string
}

func (e *StateError) Error() string {
	if e.Reason != "" {
		return fmt.Sprintf("invalid payment state: cannot %s from %s: %s", e.Action, e.Status, e.Reason)
	}
	return fmt.Sprintf("invalid payment state: cannot %s from %s", e.Action, e.Status)
}
