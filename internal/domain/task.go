// Package domain contains core business entities and interfaces.
package domain

import (
	"strings"
	"time"
)

// Task represents one unit of work fanned out into its own workspace.
// Fields are ordered to minimize memory padding.
type Task struct {
	CreatedAt     time.Time    // Creation time (also drives branch/workspace naming)
	CompletedAt   *time.Time   // Set when status becomes completed or merged
	MergedAt      *time.Time   // Set when status becomes merged
	Metadata      TaskMetadata // Session side-channel
	ID            string       // Opaque unique identifier (UUID)
	ProjectPath   string       // Owning project root
	ProjectName   string       // Owning project display name
	Name          string       // Short slug
	Description   string       // Free text
	WorkspacePath string       // Absolute path of the task worktree
	Branch        string       // Task branch
	BaseBranch    string       // Branch the task integrates into (fixed at creation)
	Status        Status       // Current status
}

// TaskMetadata is the only mutable side-channel of a task.
// It remembers what a session provider returned on launch.
type TaskMetadata struct {
	SessionHandle string `json:"session_handle,omitempty"` // Multiplexer session name (empty = untracked)
	Agent         string `json:"agent,omitempty"`          // Assistant backend used for the session
	Provider      string `json:"provider,omitempty"`       // Session provider that launched it
}

// shortIDLen is the number of id characters shown to users.
const shortIDLen = 8

// ShortID returns the abbreviated task id used in listings and messages.
func (t *Task) ShortID() string {
	if len(t.ID) <= shortIDLen {
		return t.ID
	}
	return t.ID[:shortIDLen]
}

// HasSession returns true if a revisitable session handle is tracked.
func (t *Task) HasSession() bool {
	return t.Metadata.SessionHandle != ""
}

// Env returns the variables describing the task to scripts run in its workspace.
func (t *Task) Env() []string {
	return []string{
		"SPROUT_TASK_ID=" + t.ID,
		"SPROUT_TASK_NAME=" + t.Name,
		"SPROUT_BRANCH=" + t.Branch,
		"SPROUT_BASE_BRANCH=" + t.BaseBranch,
		"SPROUT_REPO_ROOT=" + t.ProjectPath,
	}
}

// MatchesRef reports whether ref names this task, either by exact task name
// or by a prefix of its id.
func (t *Task) MatchesRef(ref string) bool {
	if ref == "" {
		return false
	}
	return t.Name == ref || strings.HasPrefix(t.ID, ref)
}

// MarkCompleted transitions the task to completed and stamps CompletedAt.
func (t *Task) MarkCompleted(now time.Time) error {
	if !t.Status.CanTransitionTo(StatusCompleted) {
		return invalidTransition(t.Status, StatusCompleted)
	}
	t.Status = StatusCompleted
	t.CompletedAt = &now
	return nil
}

// MarkMerged transitions the task to merged and stamps MergedAt.
// CompletedAt is kept if it was already set.
func (t *Task) MarkMerged(now time.Time) error {
	if !t.Status.CanTransitionTo(StatusMerged) {
		return invalidTransition(t.Status, StatusMerged)
	}
	t.Status = StatusMerged
	if t.CompletedAt == nil {
		t.CompletedAt = &now
	}
	t.MergedAt = &now
	return nil
}
