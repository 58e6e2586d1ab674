package domain

import (
	"fmt"
	"path/filepath"
	"regexp"
	"strconv"
	"strings"
	"sync"
	"time"
)

// BranchPrefix is the namespace of every task branch.
const BranchPrefix = "sprout/"

// Context artifacts and completion markers live in this workspace subdirectory.
const (
	TaskContextDir       = ".sprout"
	TaskContextFile      = "task.yaml"
	TaskInstructionsFile = "TASK.md"
	CompletionMarker     = "TASK_COMPLETE"
)

// LegacyCompletionMarker is the completion marker at the workspace top level,
// still honoured for older instructions.
const LegacyCompletionMarker = CompletionMarker

// slugInvalid matches every run of characters not allowed in a slug.
var slugInvalid = regexp.MustCompile(`[^a-z0-9]+`)

// maxSlugLen bounds the slug part of branch and directory names.
const maxSlugLen = 40

// Slugify turns a free-form task name into a branch-safe slug.
// Returns an empty string when nothing usable remains.
func Slugify(name string) string {
	s := slugInvalid.ReplaceAllString(strings.ToLower(name), "-")
	s = strings.Trim(s, "-")
	if len(s) > maxSlugLen {
		s = strings.TrimRight(s[:maxSlugLen], "-")
	}
	return s
}

// TokenSource hands out creation tokens that are unique within the process,
// even when the clock returns the same instant twice.
type TokenSource struct {
	mu   sync.Mutex
	last int64
}

// Next returns a token derived from now. Tokens are strictly increasing.
func (s *TokenSource) Next(now time.Time) string {
	s.mu.Lock()
	defer s.mu.Unlock()

	n := now.UnixNano()
	if n <= s.last {
		n = s.last + 1
	}
	s.last = n
	return strconv.FormatInt(n, 36)
}

// WorkspaceName returns the directory and branch suffix for a task.
// Format: <slug>-<token>
func WorkspaceName(slug, token string) string {
	return slug + "-" + token
}

// BranchName returns the branch name for a task workspace name.
// Format: sprout/<slug>-<token>
func BranchName(workspaceName string) string {
	return BranchPrefix + workspaceName
}

// IsTaskBranch reports whether a branch follows the task naming convention.
func IsTaskBranch(branch string) bool {
	return strings.HasPrefix(branch, BranchPrefix) && len(branch) > len(BranchPrefix)
}

// SessionName returns the multiplexer session name for a task.
// Format: sprout-<short id>
func SessionName(task *Task) string {
	return "sprout-" + task.ShortID()
}

// RepoSproutDir returns the per-repository state directory inside the common git dir.
func RepoSproutDir(commonDir string) string {
	return filepath.Join(commonDir, "sprout")
}

// WorktreeDir returns the default directory holding task worktrees of a repository.
func WorktreeDir(repoRoot string) string {
	return filepath.Join(repoRoot, ".git", "sprout", "worktrees")
}

// IntegrationLockPath returns the lock file serializing integrations of a repository.
func IntegrationLockPath(repoRoot string) string {
	return filepath.Join(repoRoot, ".git", "sprout", "integrate.lock")
}

// StorePath returns the path to the task database.
func StorePath(dataDir string) string {
	return filepath.Join(dataDir, "sprout.db")
}

// GlobalLogPath returns the path to the global log file.
func GlobalLogPath(dataDir string) string {
	return filepath.Join(dataDir, "logs", "sprout.log")
}

// TaskLogPath returns the path to the task log file.
func TaskLogPath(dataDir, taskID string) string {
	return filepath.Join(dataDir, "logs", fmt.Sprintf("task-%s.log", taskID))
}

// TmuxSocketPath returns the path to the tmux socket.
func TmuxSocketPath(dataDir string) string {
	return filepath.Join(dataDir, "tmux.sock")
}

// TmuxConfigPath returns the path to the tmux configuration.
func TmuxConfigPath(dataDir string) string {
	return filepath.Join(dataDir, "tmux.conf")
}

// ScriptPath returns the path to the generated launch script of a task.
func ScriptPath(dataDir, taskID string) string {
	return filepath.Join(dataDir, "scripts", fmt.Sprintf("task-%s.sh", taskID))
}
