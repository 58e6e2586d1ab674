package domain

import (
	"context"
	"time"
)

// TaskRepository manages task persistence.
// It is the only writer of task rows.
type TaskRepository interface {
	// Get retrieves a task by ID. Returns nil if not found.
	Get(ctx context.Context, id string) (*Task, error)

	// List retrieves tasks matching the filter, newest first.
	List(ctx context.Context, filter TaskFilter) ([]*Task, error)

	// Create inserts a task and increments its project's task count.
	Create(ctx context.Context, task *Task) error

	// Update persists status, timestamps and metadata of an existing task.
	Update(ctx context.Context, task *Task) error

	// Delete removes a task and decrements its project's task count.
	Delete(ctx context.Context, id string) error
}

// TaskFilter specifies criteria for listing tasks.
type TaskFilter struct {
	Statuses    []Status // empty = any status
	ProjectPath string   // empty = every project
	Ref         string   // exact task name or id prefix; empty = any
}

// ProjectRepository manages the project registry.
type ProjectRepository interface {
	// SaveProject inserts or updates a project. TaskCount is never overwritten.
	SaveProject(ctx context.Context, project *Project) error

	// GetProject retrieves a project by root path. Returns nil if not found.
	GetProject(ctx context.Context, path string) (*Project, error)

	// FindProjects returns projects whose display name equals name.
	FindProjects(ctx context.Context, name string) ([]*Project, error)

	// ListProjects returns every project, most recently used first.
	ListProjects(ctx context.Context) ([]*Project, error)
}

// Git provides version-control operations.
// Every method takes the directory it operates in explicitly.
type Git interface {
	// RepoInfo resolves the repository containing dir (worktree-aware).
	RepoInfo(dir string) (RepoInfo, error)

	// DefaultBranch returns the branch new tasks are based on by default.
	DefaultBranch(repoRoot string) (string, error)

	// BranchExists checks if a local branch exists.
	BranchExists(repoRoot, branch string) (bool, error)

	// ListBranches returns all local branches.
	ListBranches(repoRoot string) ([]string, error)

	// HasRemote checks if a remote with the given name is configured.
	HasRemote(repoRoot, remote string) (bool, error)

	// RevParse resolves a revision to a commit hash.
	RevParse(dir, rev string) (string, error)

	// IsAncestor reports whether ancestor is reachable from descendant.
	IsAncestor(dir, ancestor, descendant string) (bool, error)

	// ChangedPaths lists paths with uncommitted changes (tracked or untracked).
	ChangedPaths(dir string) ([]string, error)

	// WorktreeStatus lists uncommitted changes split into tracked paths
	// and untracked files.
	WorktreeStatus(dir string) (tracked, untracked []string, err error)

	// DiffNames lists the paths that differ between two commits.
	DiffNames(dir, from, to string) ([]string, error)

	// MergeBase returns the best common ancestor of two commits.
	MergeBase(dir, a, b string) (string, error)

	// RevertPaths commits paths back to their state in source, leaving the
	// working tree copies alone.
	RevertPaths(dir, source, message string, paths []string) error

	// CommitAll stages everything except exclude and commits it.
	CommitAll(dir, message string, exclude []string) error

	// Fetch fetches one branch of a remote into its remote-tracking ref.
	Fetch(ctx context.Context, dir, remote, branch string) error

	// Rebase rebases the branch checked out in dir onto onto.
	// On conflict the rebase is aborted and the conflicting files are returned
	// together with ErrRebaseConflict.
	Rebase(ctx context.Context, dir, onto string) ([]string, error)

	// Merge merges rev into the checkout in dir with a merge commit.
	// On conflict the merge is aborted and the conflicting files are returned
	// together with ErrMergeConflict.
	Merge(ctx context.Context, dir, rev, message string) ([]string, error)

	// CheckoutDetached detaches HEAD in dir at rev.
	CheckoutDetached(dir, rev string) error

	// Checkout switches dir to branch.
	Checkout(dir, branch string) error

	// ResetHard resets the checkout in dir to rev, discarding changes.
	ResetHard(dir, rev string) error

	// UpdateBranch moves branch to newRev if it still points at oldRev.
	UpdateBranch(dir, branch, newRev, oldRev string) error

	// DeleteBranch deletes a local branch.
	DeleteBranch(repoRoot, branch string, force bool) error
}

// Workspace is a created task checkout.
type Workspace struct {
	Path   string // Absolute worktree path
	Branch string // Branch bound to the worktree
}

// WorkspaceManager creates and destroys task worktrees.
type WorkspaceManager interface {
	// Create makes a new branch from baseBranch and a worktree bound to it.
	// Names derive from taskName and createdAt and are unique within the process.
	Create(project *Project, taskName, baseBranch string, createdAt time.Time) (*Workspace, error)

	// Exclude adds repo-relative paths to the repository's info/exclude so
	// they are never staged by `git add -A`.
	Exclude(repoRoot string, paths []string) error

	// Remove removes a worktree. A failed removal falls back to deleting
	// the directory and pruning stale registrations.
	Remove(repoRoot, path string, force bool) error

	// DeleteBranch force-deletes a branch; a missing branch is not an error.
	DeleteBranch(repoRoot, branch string) error

	// List returns all worktrees of the repository, main checkout first.
	List(repoRoot string) ([]WorktreeInfo, error)

	// Prune removes registrations of worktrees whose directory is gone.
	Prune(repoRoot string) error
}

// WorktreeInfo contains information about a worktree.
type WorktreeInfo struct {
	Path   string // Absolute path to worktree
	Branch string // Branch name (empty when detached)
	Head   string // Checked-out commit
}

// SessionProvider starts assistant sessions bound to a task workspace.
type SessionProvider interface {
	// Name identifies the provider ("tmux", "none").
	Name() string

	// Validate checks that the agent (and the provider's own tooling) can be started.
	Validate(agent Agent) error

	// Launch starts the agent in the task workspace without blocking.
	// Returns a session handle when the session can be revisited, or "" when not.
	Launch(ctx context.Context, task *Task, agent Agent) (string, error)
}

// SessionManager manages named multiplexer sessions.
type SessionManager interface {
	// Start creates and starts a new session.
	Start(ctx context.Context, opts StartSessionOptions) error

	// Stop terminates a session.
	Stop(sessionName string) error

	// Attach attaches to a running session.
	Attach(sessionName string) error

	// Peek captures the last N lines from a session.
	Peek(sessionName string, lines int) (string, error)

	// Send types text into a session, followed by Enter when submit is set.
	Send(sessionName, text string, submit bool) error

	// IsRunning checks if a session is running.
	IsRunning(sessionName string) (bool, error)
}

// StartSessionOptions configures session creation.
type StartSessionOptions struct {
	Name    string // Session name
	Dir     string // Working directory
	Command string // Command to run
}

// CompletionDetector inspects a workspace for the completion marker.
type CompletionDetector interface {
	// IsComplete reports whether the workspace carries a completion marker.
	IsComplete(workspacePath string) bool
}

// CompletionWatcher blocks until a workspace gains a completion marker.
type CompletionWatcher interface {
	// WaitForCompletion returns the first of workspaces that is complete.
	// It returns ctx.Err() when ctx is done first.
	WaitForCompletion(ctx context.Context, workspaces []string) (string, error)
}

// TaskContextWriter writes the task-context artifacts read by the assistant.
type TaskContextWriter interface {
	// Write creates the artifacts inside the task workspace.
	Write(task *Task) error
}

// ScriptRunner runs a shell script inside a workspace.
type ScriptRunner interface {
	// Run executes script with sh in dir. env is appended to the current environment.
	Run(ctx context.Context, dir, script string, env []string) error
}

// IntegrationLocker serializes integrations into one repository.
type IntegrationLocker interface {
	// Lock blocks until the repository lock is held or ctx is done.
	// The returned func releases it.
	Lock(ctx context.Context, repoRoot string) (func(), error)
}

// ConfigLoader loads configuration from files.
type ConfigLoader interface {
	// Load returns the merged configuration (default + global + repository).
	// An empty repoRoot loads the global configuration only.
	Load(repoRoot string) (*Config, error)
}

// ConfigManager locates and creates configuration files.
type ConfigManager interface {
	// GlobalPath returns the global config file path ("" if unknown).
	GlobalPath() string

	// RepoPath returns the repository config file path of repoRoot.
	RepoPath(repoRoot string) string

	// Init writes a commented template to path. Fails if the file exists.
	Init(path string) error
}

// Logger records diagnostics, globally and per task.
// An empty taskID logs globally only.
type Logger interface {
	Debug(taskID, category, msg string)
	Info(taskID, category, msg string)
	Warn(taskID, category, msg string)
	Error(taskID, category, msg string)
}

// Clock provides time operations for testability.
type Clock interface {
	// Now returns the current time.
	Now() time.Time
}

// RealClock implements Clock using the system clock.
type RealClock struct{}

// Now returns the current time.
func (RealClock) Now() time.Time {
	return time.Now()
}

// IDGenerator produces task ids.
type IDGenerator interface {
	// NewID returns a fresh globally unique id.
	NewID() string
}
