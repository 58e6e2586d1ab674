package usecase

import (
	"context"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/runoshun/git-sprout/internal/domain"
	"github.com/runoshun/git-sprout/internal/infra/detector"
	"github.com/runoshun/git-sprout/internal/infra/git"
	"github.com/runoshun/git-sprout/internal/infra/lock"
	"github.com/runoshun/git-sprout/internal/infra/workspace"
	"github.com/runoshun/git-sprout/internal/infra/worktree"
	"github.com/runoshun/git-sprout/internal/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// repoFixture wires the integrator to a real repository on branch main.
type repoFixture struct {
	git       *git.Client
	worktrees *worktree.Client
	tasks     *testutil.MockTaskRepository
	clock     *testutil.MockClock
	logger    *testutil.MockLogger
	project   *domain.Project
	dir       string // Scratch directory holding the repository
	root      string // Main checkout
	cfg       domain.MergeConfig
}

func newRepoFixture(t *testing.T) *repoFixture {
	t.Helper()
	if _, err := exec.LookPath("git"); err != nil {
		t.Skip("git not available")
	}

	dir, err := filepath.EvalSymlinks(t.TempDir())
	require.NoError(t, err)
	root := filepath.Join(dir, "repo")
	require.NoError(t, os.MkdirAll(root, 0o755))

	gitRun(t, root, "init", "-q", "-b", "main")
	gitRun(t, root, "config", "user.email", "test@example.com")
	gitRun(t, root, "config", "user.name", "Test User")
	commitIn(t, root, "README.md", "# app\n", "Initial commit")

	return &repoFixture{
		git:       git.NewClient(),
		worktrees: worktree.NewClient(""),
		tasks:     testutil.NewMockTaskRepository(),
		clock:     &testutil.MockClock{NowTime: testNow},
		logger:    &testutil.MockLogger{},
		project:   &domain.Project{Path: root, Name: "repo", DefaultBranch: "main"},
		dir:       dir,
		root:      root,
		cfg:       domain.NewDefaultConfig().Merge,
	}
}

func (r *repoFixture) integrator() *Integrator {
	return NewIntegrator(r.tasks, r.git, r.worktrees, testutil.NewMockSessionManager(),
		lock.NewFileLocker(), r.clock, r.logger)
}

// newTask creates a workspace from main and records an active task for it.
func (r *repoFixture) newTask(t *testing.T, name string) *domain.Task {
	t.Helper()
	ws, err := r.worktrees.Create(r.project, name, "main", time.Now())
	require.NoError(t, err)
	require.NoError(t, r.worktrees.Exclude(r.root, r.cfg.Quarantine))

	task := &domain.Task{
		ID:            "0b7c6d1e-" + name,
		Name:          name,
		ProjectPath:   r.root,
		ProjectName:   r.project.Name,
		WorkspacePath: ws.Path,
		Branch:        ws.Branch,
		BaseBranch:    "main",
		Status:        domain.StatusActive,
		CreatedAt:     testNow.Add(-time.Hour),
	}
	r.tasks.Add(task)
	return task
}

func gitRun(t *testing.T, dir string, args ...string) string {
	t.Helper()
	cmd := exec.Command("git", args...)
	cmd.Dir = dir
	out, err := cmd.CombinedOutput()
	require.NoError(t, err, "git %v: %s", args, out)
	return strings.TrimSpace(string(out))
}

func commitIn(t *testing.T, dir, name, content, msg string) {
	t.Helper()
	writeTestFile(t, filepath.Join(dir, name), content)
	gitRun(t, dir, "add", name)
	gitRun(t, dir, "commit", "-q", "-m", msg)
}

func TestIntegrator_Repo_QuarantinedFileCommittedByTask(t *testing.T) {
	r := newRepoFixture(t)
	local := filepath.Join(".claude", "settings.local.json")
	writeTestFile(t, filepath.Join(r.root, local), `{"base":"local"}`)

	task := r.newTask(t, "fix-auth")
	ws := task.WorkspacePath
	writeTestFile(t, filepath.Join(ws, local), `{"task":"secret"}`)
	writeTestFile(t, filepath.Join(ws, "b.txt"), "b\n")
	gitRun(t, ws, "add", "-A")
	// The assistant forces the excluded file into its commit
	gitRun(t, ws, "add", "-f", local)
	gitRun(t, ws, "commit", "-q", "-m", "task work")

	require.NoError(t, r.integrator().Integrate(context.Background(), task, r.cfg))

	assert.Equal(t, "b", gitRun(t, r.root, "show", "main:b.txt"))
	assert.Empty(t, gitRun(t, r.root, "ls-tree", "--name-only", "main", ".claude/settings.local.json"))
	content, err := os.ReadFile(filepath.Join(r.root, local))
	require.NoError(t, err)
	assert.Equal(t, `{"base":"local"}`, string(content))
	assert.Empty(t, gitRun(t, r.root, "status", "--porcelain"))
	assert.Equal(t, domain.StatusMerged, task.Status)
	assert.NoDirExists(t, ws)
}

func TestIntegrator_Repo_TrackedQuarantinedFileKeepsBaseVersion(t *testing.T) {
	r := newRepoFixture(t)
	commitIn(t, r.root, ".mcp.json", "base\n", "add shared settings")

	task := r.newTask(t, "fix-ui")
	commitIn(t, task.WorkspacePath, ".mcp.json", "task\n", "change shared settings")
	commitIn(t, task.WorkspacePath, "ui.txt", "ui\n", "fix ui")

	require.NoError(t, r.integrator().Integrate(context.Background(), task, r.cfg))

	assert.Equal(t, "base", gitRun(t, r.root, "show", "main:.mcp.json"))
	assert.Equal(t, "ui", gitRun(t, r.root, "show", "main:ui.txt"))
	assert.Empty(t, gitRun(t, r.root, "status", "--porcelain"))
}

func TestIntegrator_Repo_BaseCheckedOutInSecondaryWorktree(t *testing.T) {
	for _, strategy := range []string{domain.StrategyRebase, domain.StrategyMerge} {
		t.Run(strategy, func(t *testing.T) {
			r := newRepoFixture(t)
			r.cfg.Strategy = strategy
			gitRun(t, r.root, "checkout", "-q", "-b", "other")

			task := r.newTask(t, "fix-ui")
			secondary := filepath.Join(r.dir, "main-checkout")
			gitRun(t, r.root, "worktree", "add", "-q", secondary, "main")
			// main moves on after the task forked
			commitIn(t, secondary, "c.txt", "c\n", "add c")
			commitIn(t, task.WorkspacePath, "b.txt", "b\n", "add b")
			writeTestFile(t, filepath.Join(secondary, "scratch.txt"), "not tracked anywhere")

			require.NoError(t, r.integrator().Integrate(context.Background(), task, r.cfg))

			assert.Equal(t, gitRun(t, r.root, "rev-parse", "main"), gitRun(t, secondary, "rev-parse", "HEAD"))
			assert.FileExists(t, filepath.Join(secondary, "b.txt"))
			assert.FileExists(t, filepath.Join(secondary, "c.txt"))
			assert.Equal(t, "?? scratch.txt", gitRun(t, secondary, "status", "--porcelain"))
			assert.Equal(t, "other", gitRun(t, r.root, "rev-parse", "--abbrev-ref", "HEAD"))

			parents := strings.Fields(gitRun(t, r.root, "rev-list", "--parents", "-n", "1", "main"))
			if strategy == domain.StrategyMerge {
				assert.Len(t, parents, 3)
			} else {
				assert.Len(t, parents, 2)
			}
			assert.Equal(t, domain.StatusMerged, task.Status)
		})
	}
}

func TestIntegrator_Repo_UntrackedFileTrackedByTaskBlocks(t *testing.T) {
	r := newRepoFixture(t)
	task := r.newTask(t, "add-notes")
	commitIn(t, task.WorkspacePath, "notes.txt", "task notes\n", "add notes")
	writeTestFile(t, filepath.Join(r.root, "notes.txt"), "my notes")
	before := gitRun(t, r.root, "rev-parse", "main")

	err := r.integrator().Integrate(context.Background(), task, r.cfg)

	assert.ErrorIs(t, err, domain.ErrBranchInUseElsewhere)
	assert.Equal(t, before, gitRun(t, r.root, "rev-parse", "main"))
	content, readErr := os.ReadFile(filepath.Join(r.root, "notes.txt"))
	require.NoError(t, readErr)
	assert.Equal(t, "my notes", string(content))
	assert.Equal(t, domain.StatusActive, task.Status)
}

func TestIntegrator_Repo_RebaseConflictLeavesEverything(t *testing.T) {
	r := newRepoFixture(t)
	task := r.newTask(t, "fix-readme")
	ws := task.WorkspacePath
	commitIn(t, ws, "README.md", "# task\n", "task edit")
	commitIn(t, r.root, "README.md", "# base\n", "base edit")
	baseBefore := gitRun(t, r.root, "rev-parse", "main")
	taskBefore := gitRun(t, ws, "rev-parse", "HEAD")

	err := r.integrator().Integrate(context.Background(), task, r.cfg)

	assert.ErrorIs(t, err, domain.ErrRebaseConflict)
	var ie *domain.IntegrationError
	require.ErrorAs(t, err, &ie)
	assert.Equal(t, domain.StepRebase, ie.Step)
	assert.Contains(t, ie.Files, "README.md")

	assert.Equal(t, baseBefore, gitRun(t, r.root, "rev-parse", "main"))
	assert.Equal(t, taskBefore, gitRun(t, ws, "rev-parse", "HEAD"))
	assert.Equal(t, task.Branch, gitRun(t, ws, "rev-parse", "--abbrev-ref", "HEAD"))
	assert.Equal(t, domain.StatusActive, r.tasks.Tasks[task.ID].Status)
	assert.Nil(t, task.MergedAt)
	assert.DirExists(t, ws)
}

func TestCheckTasks_Repo_SpawnCompleteAutoMerge(t *testing.T) {
	r := newRepoFixture(t)
	ctx := context.Background()
	configs := testutil.NewMockConfigLoader()
	resolver := NewResolveProject(r.git, testutil.NewMockProjectRepository(), r.clock, r.logger, r.root)
	provider := &testutil.MockSessionProvider{NameVal: "none"}
	providers := func(string) (domain.SessionProvider, error) { return provider, nil }

	spawn := NewSpawnTask(resolver, configs, r.tasks, r.worktrees, workspace.NewWriter(),
		&testutil.MockScriptRunner{}, providers, &testutil.MockIDGenerator{IDs: []string{"fa11c0de-0000"}},
		r.clock, r.logger)
	out, err := spawn.Execute(ctx, SpawnTaskInput{Name: "fix-auth", BaseBranch: "main"})
	require.NoError(t, err)
	task := out.Task
	ws := task.WorkspacePath
	assert.Equal(t, domain.StatusActive, task.Status)
	assert.DirExists(t, ws)
	assert.Equal(t, task.Branch, gitRun(t, ws, "rev-parse", "--abbrev-ref", "HEAD"))

	commitIn(t, ws, "auth.go", "package auth\n", "fix token refresh")

	on := true
	check := NewCheckTasks(resolver, configs, r.tasks, detector.New(), r.integrator(), r.clock, r.logger)
	res, err := check.Execute(ctx, CheckTasksInput{AutoMerge: &on})
	require.NoError(t, err)
	assert.Equal(t, 1, res.Checked)
	assert.Empty(t, res.Completed)

	writeTestFile(t, filepath.Join(ws, domain.TaskContextDir, domain.CompletionMarker), "done")

	res, err = check.Execute(ctx, CheckTasksInput{AutoMerge: &on})
	require.NoError(t, err)
	assert.Len(t, res.Completed, 1)
	assert.Len(t, res.Merged, 1)
	assert.Empty(t, res.Failures)

	assert.Equal(t, domain.StatusMerged, r.tasks.Tasks[task.ID].Status)
	assert.NoDirExists(t, ws)
	assert.Equal(t, "package auth", gitRun(t, r.root, "show", "main:auth.go"))
	assert.Empty(t, gitRun(t, r.root, "ls-tree", "-r", "--name-only", "main", domain.TaskContextDir))
	assert.Empty(t, gitRun(t, r.root, "status", "--porcelain"))

	// Merged tasks are not revisited
	res, err = check.Execute(ctx, CheckTasksInput{AutoMerge: &on})
	require.NoError(t, err)
	assert.Zero(t, res.Checked)
	assert.Empty(t, res.Merged)
}
