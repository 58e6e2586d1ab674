package domain

import "fmt"

// Status represents the lifecycle state of a task.
type Status string

const (
	StatusActive    Status = "active"    // Workspace live, work in progress
	StatusCompleted Status = "completed" // Work finished, awaiting integration
	StatusFailed    Status = "failed"    // Reserved; never written by current code
	StatusMerged    Status = "merged"    // Integrated into the base branch
)

// AllStatuses returns all valid status values.
func AllStatuses() []Status {
	return []Status{
		StatusActive,
		StatusCompleted,
		StatusFailed,
		StatusMerged,
	}
}

// transitions defines the allowed status transitions.
// Flow: active → completed → merged
//
//	└──────────────────↑
//
// Deletion (kill/nuke) is not a status; the row is removed.
var transitions = map[Status][]Status{
	StatusActive:    {StatusCompleted, StatusMerged},
	StatusCompleted: {StatusMerged},
	StatusFailed:    {},
	StatusMerged:    {},
}

// CanTransitionTo returns true if the status can transition to the target status.
func (s Status) CanTransitionTo(target Status) bool {
	allowed, ok := transitions[s]
	if !ok {
		return false
	}
	for _, t := range allowed {
		if t == target {
			return true
		}
	}
	return false
}

// IsTerminal returns true if no further transition is possible.
func (s Status) IsTerminal() bool {
	return s == StatusMerged || s == StatusFailed
}

// CanMerge returns true if a task in this status may be integrated.
func (s Status) CanMerge() bool {
	return s == StatusActive || s == StatusCompleted
}

// IsValid returns true if the status is a known value.
func (s Status) IsValid() bool {
	switch s {
	case StatusActive, StatusCompleted, StatusFailed, StatusMerged:
		return true
	default:
		return false
	}
}

// Display returns a human-readable representation of the status.
func (s Status) Display() string {
	switch s {
	case StatusActive:
		return "Active"
	case StatusCompleted:
		return "Completed"
	case StatusFailed:
		return "Failed"
	case StatusMerged:
		return "Merged"
	default:
		return string(s)
	}
}

// ParseStatus converts a string into a Status.
func ParseStatus(s string) (Status, error) {
	st := Status(s)
	if !st.IsValid() {
		return "", fmt.Errorf("%q: %w", s, ErrInvalidStatus)
	}
	return st, nil
}

func invalidTransition(from, to Status) error {
	return fmt.Errorf("%s → %s: %w", from, to, ErrInvalidTransition)
}
