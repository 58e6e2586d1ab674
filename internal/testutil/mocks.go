// Package testutil provides shared test utilities and mock implementations.
package testutil

import (
	"context"
	"fmt"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/runoshun/git-sprout/internal/domain"
)

// MockClock is a test double for domain.Clock.
type MockClock struct {
	NowTime time.Time
}

// Now returns the configured time.
func (m *MockClock) Now() time.Time {
	return m.NowTime
}

// MockIDGenerator is a test double for domain.IDGenerator.
// It returns IDs in order, then generated ones.
type MockIDGenerator struct {
	IDs []string
	n   int
}

// NewID returns the next configured id.
func (m *MockIDGenerator) NewID() string {
	m.n++
	if m.n <= len(m.IDs) {
		return m.IDs[m.n-1]
	}
	return fmt.Sprintf("%08d-0000-4000-8000-000000000000", m.n)
}

// MockTaskRepository is a test double for domain.TaskRepository.
// Fields are ordered to minimize memory padding.
type MockTaskRepository struct {
	Tasks     map[string]*domain.Task
	GetErr    error
	ListErr   error
	CreateErr error
	UpdateErr error
	DeleteErr error
	Deleted   []string
	Updates   int
}

// NewMockTaskRepository creates a new MockTaskRepository with initialized maps.
func NewMockTaskRepository() *MockTaskRepository {
	return &MockTaskRepository{
		Tasks: make(map[string]*domain.Task),
	}
}

// Ensure MockTaskRepository implements domain.TaskRepository interface.
var _ domain.TaskRepository = (*MockTaskRepository)(nil)

// Add stores tasks directly.
func (m *MockTaskRepository) Add(tasks ...*domain.Task) {
	for _, t := range tasks {
		m.Tasks[t.ID] = t
	}
}

// Get retrieves a task by ID.
func (m *MockTaskRepository) Get(_ context.Context, id string) (*domain.Task, error) {
	if m.GetErr != nil {
		return nil, m.GetErr
	}
	return m.Tasks[id], nil
}

// List applies the filter and returns tasks newest first.
func (m *MockTaskRepository) List(_ context.Context, filter domain.TaskFilter) ([]*domain.Task, error) {
	if m.ListErr != nil {
		return nil, m.ListErr
	}
	var tasks []*domain.Task
	for _, t := range m.Tasks {
		if filter.ProjectPath != "" && t.ProjectPath != filter.ProjectPath {
			continue
		}
		if filter.Ref != "" && !t.MatchesRef(filter.Ref) {
			continue
		}
		if len(filter.Statuses) > 0 && !hasStatus(filter.Statuses, t.Status) {
			continue
		}
		tasks = append(tasks, t)
	}
	sort.Slice(tasks, func(i, j int) bool {
		if tasks[i].CreatedAt.Equal(tasks[j].CreatedAt) {
			return tasks[i].ID > tasks[j].ID
		}
		return tasks[i].CreatedAt.After(tasks[j].CreatedAt)
	})
	return tasks, nil
}

func hasStatus(statuses []domain.Status, s domain.Status) bool {
	for _, st := range statuses {
		if st == s {
			return true
		}
	}
	return false
}

// Create stores a new task.
func (m *MockTaskRepository) Create(_ context.Context, task *domain.Task) error {
	if m.CreateErr != nil {
		return m.CreateErr
	}
	if _, ok := m.Tasks[task.ID]; ok {
		return fmt.Errorf("task %s already exists", task.ID)
	}
	m.Tasks[task.ID] = task
	return nil
}

// Update replaces an existing task.
func (m *MockTaskRepository) Update(_ context.Context, task *domain.Task) error {
	if m.UpdateErr != nil {
		return m.UpdateErr
	}
	if _, ok := m.Tasks[task.ID]; !ok {
		return domain.ErrTaskNotFound
	}
	m.Tasks[task.ID] = task
	m.Updates++
	return nil
}

// Delete removes a task by ID.
func (m *MockTaskRepository) Delete(_ context.Context, id string) error {
	if m.DeleteErr != nil {
		return m.DeleteErr
	}
	if _, ok := m.Tasks[id]; !ok {
		return domain.ErrTaskNotFound
	}
	delete(m.Tasks, id)
	m.Deleted = append(m.Deleted, id)
	return nil
}

// MockProjectRepository is a test double for domain.ProjectRepository.
type MockProjectRepository struct {
	Projects map[string]*domain.Project
	SaveErr  error
	GetErr   error
	Saved    int
}

// NewMockProjectRepository creates a new MockProjectRepository.
func NewMockProjectRepository() *MockProjectRepository {
	return &MockProjectRepository{Projects: make(map[string]*domain.Project)}
}

// Ensure MockProjectRepository implements domain.ProjectRepository interface.
var _ domain.ProjectRepository = (*MockProjectRepository)(nil)

// SaveProject upserts a project, keeping the stored task count.
func (m *MockProjectRepository) SaveProject(_ context.Context, project *domain.Project) error {
	if m.SaveErr != nil {
		return m.SaveErr
	}
	stored := *project
	if old, ok := m.Projects[project.Path]; ok {
		stored.TaskCount = old.TaskCount
	}
	m.Projects[project.Path] = &stored
	m.Saved++
	return nil
}

// GetProject returns a copy of a stored project.
func (m *MockProjectRepository) GetProject(_ context.Context, path string) (*domain.Project, error) {
	if m.GetErr != nil {
		return nil, m.GetErr
	}
	p, ok := m.Projects[path]
	if !ok {
		return nil, nil
	}
	cp := *p
	return &cp, nil
}

// FindProjects returns projects named name, most recently used first.
func (m *MockProjectRepository) FindProjects(ctx context.Context, name string) ([]*domain.Project, error) {
	all, err := m.ListProjects(ctx)
	if err != nil {
		return nil, err
	}
	var out []*domain.Project
	for _, p := range all {
		if p.Name == name {
			out = append(out, p)
		}
	}
	return out, nil
}

// ListProjects returns every project, most recently used first.
func (m *MockProjectRepository) ListProjects(_ context.Context) ([]*domain.Project, error) {
	if m.GetErr != nil {
		return nil, m.GetErr
	}
	out := make([]*domain.Project, 0, len(m.Projects))
	for _, p := range m.Projects {
		cp := *p
		out = append(out, &cp)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].LastUsed.After(out[j].LastUsed) })
	return out, nil
}

// CommitCall records a CommitAll invocation.
type CommitCall struct {
	Dir     string
	Message string
	Exclude []string
}

// MockGit is a test double for domain.Git.
// Revisions resolve through Revs; unknown revisions fail. Ancestry defaults to true.
// Fields are ordered to minimize memory padding.
type MockGit struct {
	Revs             map[string]string   // rev -> hash
	Changed          map[string][]string // dir -> changed paths
	Untracked        map[string][]string // dir -> untracked files, reported by WorktreeStatus only
	Diffs            map[string][]string // "from..to" -> differing paths
	MergeBases       map[string]string   // "a...b" -> merge base
	NotAncestors     map[string]bool     // "ancestor..descendant" pairs that are not ancestors
	OnResetHard      func(dir, rev string)
	RepoInfoErr      error
	DefaultBranchErr error
	ChangedErr       error
	CommitErr        error
	RevertErr        error
	FetchErr         error
	RebaseErr        error
	MergeErr         error
	CheckoutErr      error
	ResetErr         error
	UpdateBranchErr  error
	DeleteBranchErr  error
	RepoInfoVal      domain.RepoInfo
	DefaultBranchVal string
	Branches         []string
	Remotes          []string
	RebaseConflicts  []string
	MergeConflicts   []string
	Commits          []CommitCall
	Calls            []string // Mutating calls in order, e.g. "rebase <dir> <onto>"
	FetchDeadline    bool     // Whether the last Fetch ran under a deadline
}

// NewMockGit creates a MockGit with a "main" branch.
func NewMockGit() *MockGit {
	return &MockGit{
		Revs:             make(map[string]string),
		Changed:          make(map[string][]string),
		Untracked:        make(map[string][]string),
		Diffs:            make(map[string][]string),
		MergeBases:       make(map[string]string),
		NotAncestors:     make(map[string]bool),
		DefaultBranchVal: "main",
		Branches:         []string{"main"},
	}
}

// Ensure MockGit implements domain.Git interface.
var _ domain.Git = (*MockGit)(nil)

func (m *MockGit) record(format string, args ...any) {
	m.Calls = append(m.Calls, fmt.Sprintf(format, args...))
}

// Called reports whether a recorded call starts with prefix.
func (m *MockGit) Called(prefix string) bool {
	for _, c := range m.Calls {
		if strings.HasPrefix(c, prefix) {
			return true
		}
	}
	return false
}

// RepoInfo returns the configured value or error.
func (m *MockGit) RepoInfo(_ string) (domain.RepoInfo, error) {
	if m.RepoInfoErr != nil {
		return domain.RepoInfo{}, m.RepoInfoErr
	}
	return m.RepoInfoVal, nil
}

// DefaultBranch returns the configured value or error.
func (m *MockGit) DefaultBranch(_ string) (string, error) {
	if m.DefaultBranchErr != nil {
		return "", m.DefaultBranchErr
	}
	return m.DefaultBranchVal, nil
}

// BranchExists checks the configured branches.
func (m *MockGit) BranchExists(_ string, branch string) (bool, error) {
	for _, b := range m.Branches {
		if b == branch {
			return true, nil
		}
	}
	return false, nil
}

// ListBranches returns the configured branches.
func (m *MockGit) ListBranches(_ string) ([]string, error) {
	return m.Branches, nil
}

// HasRemote checks the configured remotes.
func (m *MockGit) HasRemote(_ string, remote string) (bool, error) {
	for _, r := range m.Remotes {
		if r == remote {
			return true, nil
		}
	}
	return false, nil
}

// RevParse resolves rev through Revs.
func (m *MockGit) RevParse(_ string, rev string) (string, error) {
	if h, ok := m.Revs[rev]; ok {
		return h, nil
	}
	return "", fmt.Errorf("unknown revision %s", rev)
}

// IsAncestor returns false only for pairs listed in NotAncestors.
func (m *MockGit) IsAncestor(_ string, ancestor, descendant string) (bool, error) {
	return !m.NotAncestors[ancestor+".."+descendant], nil
}

// ChangedPaths returns the configured paths of dir.
func (m *MockGit) ChangedPaths(dir string) ([]string, error) {
	if m.ChangedErr != nil {
		return nil, m.ChangedErr
	}
	return m.Changed[dir], nil
}

// WorktreeStatus returns Changed as tracked and Untracked as untracked paths of dir.
func (m *MockGit) WorktreeStatus(dir string) ([]string, []string, error) {
	if m.ChangedErr != nil {
		return nil, nil, m.ChangedErr
	}
	return m.Changed[dir], m.Untracked[dir], nil
}

// DiffNames returns the configured paths for from..to.
func (m *MockGit) DiffNames(_ string, from, to string) ([]string, error) {
	return m.Diffs[from+".."+to], nil
}

// MergeBase returns the configured merge base, or a when none is set.
func (m *MockGit) MergeBase(_ string, a, b string) (string, error) {
	if mb, ok := m.MergeBases[a+"..."+b]; ok {
		return mb, nil
	}
	return a, nil
}

// RevertPaths records the call and returns configured error.
func (m *MockGit) RevertPaths(dir, source, _ string, paths []string) error {
	m.record("revert %s %s %s", dir, source, strings.Join(paths, ","))
	return m.RevertErr
}

// CommitAll records the call and returns configured error.
func (m *MockGit) CommitAll(dir, message string, exclude []string) error {
	m.record("commit %s", dir)
	m.Commits = append(m.Commits, CommitCall{Dir: dir, Message: message, Exclude: exclude})
	return m.CommitErr
}

// Fetch records the call and returns configured error.
func (m *MockGit) Fetch(ctx context.Context, dir, remote, branch string) error {
	m.record("fetch %s %s %s", dir, remote, branch)
	_, m.FetchDeadline = ctx.Deadline()
	return m.FetchErr
}

// Rebase records the call and returns configured conflicts or error.
func (m *MockGit) Rebase(_ context.Context, dir, onto string) ([]string, error) {
	m.record("rebase %s %s", dir, onto)
	if len(m.RebaseConflicts) > 0 {
		return m.RebaseConflicts, domain.ErrRebaseConflict
	}
	return nil, m.RebaseErr
}

// Merge records the call and returns configured conflicts or error.
func (m *MockGit) Merge(_ context.Context, dir, rev, _ string) ([]string, error) {
	m.record("merge %s %s", dir, rev)
	if len(m.MergeConflicts) > 0 {
		return m.MergeConflicts, domain.ErrMergeConflict
	}
	return nil, m.MergeErr
}

// CheckoutDetached records the call and returns configured error.
func (m *MockGit) CheckoutDetached(dir, rev string) error {
	m.record("detach %s %s", dir, rev)
	return m.CheckoutErr
}

// Checkout records the call and returns configured error.
func (m *MockGit) Checkout(dir, branch string) error {
	m.record("checkout %s %s", dir, branch)
	return m.CheckoutErr
}

// ResetHard records the call, runs OnResetHard and returns configured error.
func (m *MockGit) ResetHard(dir, rev string) error {
	m.record("reset %s %s", dir, rev)
	if m.ResetErr != nil {
		return m.ResetErr
	}
	if m.OnResetHard != nil {
		m.OnResetHard(dir, rev)
	}
	return nil
}

// UpdateBranch records the call and returns configured error.
func (m *MockGit) UpdateBranch(dir, branch, newRev, oldRev string) error {
	m.record("update-ref %s %s %s %s", dir, branch, newRev, oldRev)
	return m.UpdateBranchErr
}

// DeleteBranch records the call and returns configured error.
func (m *MockGit) DeleteBranch(repoRoot, branch string, _ bool) error {
	m.record("delete-branch %s %s", repoRoot, branch)
	return m.DeleteBranchErr
}

// MockWorkspaceManager is a test double for domain.WorkspaceManager.
// Fields are ordered to minimize memory padding.
type MockWorkspaceManager struct {
	CreateErr       error
	ExcludeErr      error
	RemoveErr       error
	DeleteBranchErr error
	ListErr         error
	PruneErr        error
	Root            string // Parent directory of created workspaces
	Worktrees       []domain.WorktreeInfo
	Excluded        []string
	Removed         []string
	DeletedBranches []string
	Pruned          []string
	CreateCalled    bool
	RemoveForced    bool
}

// NewMockWorkspaceManager creates a new MockWorkspaceManager.
func NewMockWorkspaceManager() *MockWorkspaceManager {
	return &MockWorkspaceManager{Root: "/tmp/worktrees"}
}

// Ensure MockWorkspaceManager implements domain.WorkspaceManager interface.
var _ domain.WorkspaceManager = (*MockWorkspaceManager)(nil)

// Create returns a workspace named after the slug and creation time.
func (m *MockWorkspaceManager) Create(_ *domain.Project, taskName, _ string, createdAt time.Time) (*domain.Workspace, error) {
	m.CreateCalled = true
	if m.CreateErr != nil {
		return nil, m.CreateErr
	}
	name := domain.WorkspaceName(domain.Slugify(taskName), fmt.Sprint(createdAt.UnixNano()))
	return &domain.Workspace{
		Path:   filepath.Join(m.Root, name),
		Branch: domain.BranchName(name),
	}, nil
}

// Exclude records the paths and returns configured error.
func (m *MockWorkspaceManager) Exclude(_ string, paths []string) error {
	if m.ExcludeErr != nil {
		return m.ExcludeErr
	}
	m.Excluded = append(m.Excluded, paths...)
	return nil
}

// Remove records the call and returns configured error.
func (m *MockWorkspaceManager) Remove(_, path string, force bool) error {
	m.Removed = append(m.Removed, path)
	m.RemoveForced = force
	return m.RemoveErr
}

// DeleteBranch records the call and returns configured error.
func (m *MockWorkspaceManager) DeleteBranch(_, branch string) error {
	m.DeletedBranches = append(m.DeletedBranches, branch)
	return m.DeleteBranchErr
}

// List returns the configured worktrees or error.
func (m *MockWorkspaceManager) List(_ string) ([]domain.WorktreeInfo, error) {
	if m.ListErr != nil {
		return nil, m.ListErr
	}
	return m.Worktrees, nil
}

// Prune records the call and returns configured error.
func (m *MockWorkspaceManager) Prune(repoRoot string) error {
	m.Pruned = append(m.Pruned, repoRoot)
	return m.PruneErr
}

// MockSessionProvider is a test double for domain.SessionProvider.
// Fields are ordered to minimize memory padding.
type MockSessionProvider struct {
	ValidateErr   error
	LaunchErr     error
	LaunchedTask  *domain.Task
	LaunchedAgent domain.Agent
	NameVal       string
	Handle        string
	LaunchCalled  bool
}

// Ensure MockSessionProvider implements domain.SessionProvider interface.
var _ domain.SessionProvider = (*MockSessionProvider)(nil)

// Name returns the configured name ("mock" when empty).
func (m *MockSessionProvider) Name() string {
	if m.NameVal == "" {
		return "mock"
	}
	return m.NameVal
}

// Validate returns the configured error.
func (m *MockSessionProvider) Validate(_ domain.Agent) error {
	return m.ValidateErr
}

// Launch records the call and returns the configured handle or error.
func (m *MockSessionProvider) Launch(_ context.Context, task *domain.Task, agent domain.Agent) (string, error) {
	m.LaunchCalled = true
	m.LaunchedTask = task
	m.LaunchedAgent = agent
	if m.LaunchErr != nil {
		return "", m.LaunchErr
	}
	return m.Handle, nil
}

// MockSessionManager is a test double for domain.SessionManager.
// Fields are ordered to minimize memory padding.
type MockSessionManager struct {
	IsRunningErr error
	StartErr     error
	StopErr      error
	AttachErr    error
	SendErr      error
	PeekErr      error
	PeekOutput   string
	SentText     string
	StoppedName  string
	AttachedName string
	StartOpts    domain.StartSessionOptions
	PeekLines    int
	IsRunningVal bool
	SentSubmit   bool
	StartCalled  bool
	StopCalled   bool
	AttachCalled bool
	SendCalled   bool
	PeekCalled   bool
}

// NewMockSessionManager creates a new MockSessionManager.
func NewMockSessionManager() *MockSessionManager {
	return &MockSessionManager{}
}

// Ensure MockSessionManager implements domain.SessionManager interface.
var _ domain.SessionManager = (*MockSessionManager)(nil)

// Start records the call and returns configured error.
func (m *MockSessionManager) Start(_ context.Context, opts domain.StartSessionOptions) error {
	m.StartCalled = true
	m.StartOpts = opts
	return m.StartErr
}

// Stop records the call and returns configured error.
func (m *MockSessionManager) Stop(name string) error {
	m.StopCalled = true
	m.StoppedName = name
	return m.StopErr
}

// Attach records the call and returns configured error.
func (m *MockSessionManager) Attach(name string) error {
	m.AttachCalled = true
	m.AttachedName = name
	return m.AttachErr
}

// Peek records the call and returns configured output or error.
func (m *MockSessionManager) Peek(_ string, lines int) (string, error) {
	m.PeekCalled = true
	m.PeekLines = lines
	if m.PeekErr != nil {
		return "", m.PeekErr
	}
	return m.PeekOutput, nil
}

// Send records the call and returns configured error.
func (m *MockSessionManager) Send(_ string, text string, submit bool) error {
	m.SendCalled = true
	m.SentText = text
	m.SentSubmit = submit
	return m.SendErr
}

// IsRunning returns the configured value or error.
func (m *MockSessionManager) IsRunning(_ string) (bool, error) {
	if m.IsRunningErr != nil {
		return false, m.IsRunningErr
	}
	return m.IsRunningVal, nil
}

// MockCommandExecutor is a test double for domain.CommandExecutor.
type MockCommandExecutor struct {
	StartErr error
	StartCmd *domain.ExecCommand
	Pid      int
}

// Ensure MockCommandExecutor implements domain.CommandExecutor interface.
var _ domain.CommandExecutor = (*MockCommandExecutor)(nil)

// Start records the command and returns the configured pid or error.
func (m *MockCommandExecutor) Start(cmd *domain.ExecCommand) (int, error) {
	m.StartCmd = cmd
	if m.StartErr != nil {
		return 0, m.StartErr
	}
	return m.Pid, nil
}

// MockCompletionDetector is a test double for domain.CompletionDetector and domain.CompletionWatcher.
type MockCompletionDetector struct {
	Complete map[string]bool // workspace path -> marker present
	OnWait   func(workspaces []string)
	WaitErr  error
	Waited   [][]string
}

// NewMockCompletionDetector creates a new MockCompletionDetector.
func NewMockCompletionDetector() *MockCompletionDetector {
	return &MockCompletionDetector{Complete: make(map[string]bool)}
}

// Ensure MockCompletionDetector implements the completion ports.
var (
	_ domain.CompletionDetector = (*MockCompletionDetector)(nil)
	_ domain.CompletionWatcher  = (*MockCompletionDetector)(nil)
)

// IsComplete returns the configured value.
func (m *MockCompletionDetector) IsComplete(workspacePath string) bool {
	return m.Complete[workspacePath]
}

// WaitForCompletion records the call, runs OnWait and returns the configured
// error, or the first complete workspace.
func (m *MockCompletionDetector) WaitForCompletion(ctx context.Context, workspaces []string) (string, error) {
	m.Waited = append(m.Waited, workspaces)
	if m.OnWait != nil {
		m.OnWait(workspaces)
	}
	if m.WaitErr != nil {
		return "", m.WaitErr
	}
	for _, ws := range workspaces {
		if m.Complete[ws] {
			return ws, nil
		}
	}
	<-ctx.Done()
	return "", ctx.Err()
}

// MockTaskContextWriter is a test double for domain.TaskContextWriter.
type MockTaskContextWriter struct {
	Err     error
	Written []*domain.Task
}

// Ensure MockTaskContextWriter implements domain.TaskContextWriter interface.
var _ domain.TaskContextWriter = (*MockTaskContextWriter)(nil)

// Write records the task and returns configured error.
func (m *MockTaskContextWriter) Write(task *domain.Task) error {
	m.Written = append(m.Written, task)
	return m.Err
}

// ScriptRun is one recorded MockScriptRunner call.
type ScriptRun struct {
	Dir    string
	Script string
	Env    []string
}

// MockScriptRunner is a test double for domain.ScriptRunner.
type MockScriptRunner struct {
	Err  error
	Runs []ScriptRun
}

// Ensure MockScriptRunner implements domain.ScriptRunner interface.
var _ domain.ScriptRunner = (*MockScriptRunner)(nil)

// Run records the call and returns configured error.
func (m *MockScriptRunner) Run(_ context.Context, dir, script string, env []string) error {
	m.Runs = append(m.Runs, ScriptRun{Dir: dir, Script: script, Env: env})
	return m.Err
}

// MockIntegrationLocker is a test double for domain.IntegrationLocker.
type MockIntegrationLocker struct {
	Err      error
	Locked   []string
	Released int
}

// Ensure MockIntegrationLocker implements domain.IntegrationLocker interface.
var _ domain.IntegrationLocker = (*MockIntegrationLocker)(nil)

// Lock records the call and returns a counting release func.
func (m *MockIntegrationLocker) Lock(_ context.Context, repoRoot string) (func(), error) {
	if m.Err != nil {
		return nil, m.Err
	}
	m.Locked = append(m.Locked, repoRoot)
	return func() { m.Released++ }, nil
}

// MockConfigLoader is a test double for domain.ConfigLoader.
type MockConfigLoader struct {
	Config     *domain.Config
	LoadErr    error
	LoadedRoot string
}

// NewMockConfigLoader creates a new MockConfigLoader with default config.
func NewMockConfigLoader() *MockConfigLoader {
	return &MockConfigLoader{
		Config: domain.NewDefaultConfig(),
	}
}

// Ensure MockConfigLoader implements domain.ConfigLoader interface.
var _ domain.ConfigLoader = (*MockConfigLoader)(nil)

// Load returns the configured config or error.
func (m *MockConfigLoader) Load(repoRoot string) (*domain.Config, error) {
	m.LoadedRoot = repoRoot
	if m.LoadErr != nil {
		return nil, m.LoadErr
	}
	return m.Config, nil
}

// MockConfigManager is a test double for domain.ConfigManager.
type MockConfigManager struct {
	InitErr     error
	Global      string   // Returned by GlobalPath
	Initialized []string // Paths passed to Init
}

// NewMockConfigManager creates a new MockConfigManager.
func NewMockConfigManager() *MockConfigManager {
	return &MockConfigManager{Global: "/home/user/.config/sprout/config.toml"}
}

// Ensure MockConfigManager implements domain.ConfigManager interface.
var _ domain.ConfigManager = (*MockConfigManager)(nil)

// GlobalPath returns the configured global path.
func (m *MockConfigManager) GlobalPath() string {
	return m.Global
}

// RepoPath returns <repoRoot>/.git/sprout/config.toml.
func (m *MockConfigManager) RepoPath(repoRoot string) string {
	return filepath.Join(repoRoot, ".git", "sprout", domain.ConfigFileName)
}

// Init records the call and returns configured error.
func (m *MockConfigManager) Init(path string) error {
	if m.InitErr != nil {
		return m.InitErr
	}
	m.Initialized = append(m.Initialized, path)
	return nil
}

// LogEntry is one recorded log call.
type LogEntry struct {
	Level    string
	TaskID   string
	Category string
	Msg      string
}

// MockLogger is a test double for domain.Logger that records entries.
type MockLogger struct {
	Entries []LogEntry
}

// Ensure MockLogger implements domain.Logger interface.
var _ domain.Logger = (*MockLogger)(nil)

func (m *MockLogger) add(level, taskID, category, msg string) {
	m.Entries = append(m.Entries, LogEntry{Level: level, TaskID: taskID, Category: category, Msg: msg})
}

// Debug records a debug entry.
func (m *MockLogger) Debug(taskID, category, msg string) { m.add("DEBUG", taskID, category, msg) }

// Info records an info entry.
func (m *MockLogger) Info(taskID, category, msg string) { m.add("INFO", taskID, category, msg) }

// Warn records a warning entry.
func (m *MockLogger) Warn(taskID, category, msg string) { m.add("WARN", taskID, category, msg) }

// Error records an error entry.
func (m *MockLogger) Error(taskID, category, msg string) { m.add("ERROR", taskID, category, msg) }

// Count returns the number of entries at level.
func (m *MockLogger) Count(level string) int {
	n := 0
	for _, e := range m.Entries {
		if e.Level == level {
			n++
		}
	}
	return n
}
