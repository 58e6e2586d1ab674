package domain

import (
	"path/filepath"
	"time"
)

// Project is the registry record of one repository root.
// Fields are ordered to minimize memory padding.
type Project struct {
	LastUsed      time.Time // Updated on every detection
	Path          string    // Absolute repository root (primary key)
	Name          string    // Display name
	DefaultBranch string    // Default integration branch
	TaskCount     int       // Number of task rows owned by the project
}

// ProjectName derives the display name of a repository root.
func ProjectName(root string) string {
	return filepath.Base(filepath.Clean(root))
}

// RepoInfo describes where a directory sits inside a repository.
// Root is always the main repository root, even when Dir is inside a worktree.
type RepoInfo struct {
	Root      string // Main repository root (parent of the common git dir)
	CommonDir string // Common .git directory shared by every worktree
	Toplevel  string // Toplevel of the working tree containing the directory
}

// IsWorktree returns true if the inspected directory belongs to a linked worktree.
func (r RepoInfo) IsWorktree() bool {
	return filepath.Clean(r.Root) != filepath.Clean(r.Toplevel)
}
