package usecase

import (
	"context"
	"errors"
	"testing"

	"github.com/runoshun/git-sprout/internal/domain"
	"github.com/runoshun/git-sprout/internal/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type spawnFixture struct {
	git        *testutil.MockGit
	projects   *testutil.MockProjectRepository
	configs    *testutil.MockConfigLoader
	tasks      *testutil.MockTaskRepository
	workspaces *testutil.MockWorkspaceManager
	contexts   *testutil.MockTaskContextWriter
	scripts    *testutil.MockScriptRunner
	provider   *testutil.MockSessionProvider
	logger     *testutil.MockLogger
	factoryErr error
	multiplex  string
}

func newSpawnFixture() *spawnFixture {
	git := testutil.NewMockGit()
	git.RepoInfoVal = domain.RepoInfo{Root: "/work/app", CommonDir: "/work/app/.git", Toplevel: "/work/app"}
	return &spawnFixture{
		git:        git,
		projects:   testutil.NewMockProjectRepository(),
		configs:    testutil.NewMockConfigLoader(),
		tasks:      testutil.NewMockTaskRepository(),
		workspaces: testutil.NewMockWorkspaceManager(),
		contexts:   &testutil.MockTaskContextWriter{},
		scripts:    &testutil.MockScriptRunner{},
		provider:   &testutil.MockSessionProvider{NameVal: "tmux", Handle: "sprout-task0001"},
		logger:     &testutil.MockLogger{},
	}
}

func (f *spawnFixture) usecase() *SpawnTask {
	clock := &testutil.MockClock{NowTime: testNow}
	resolver := NewResolveProject(f.git, f.projects, clock, f.logger, "/work/app")
	factory := func(multiplexer string) (domain.SessionProvider, error) {
		f.multiplex = multiplexer
		if f.factoryErr != nil {
			return nil, f.factoryErr
		}
		return f.provider, nil
	}
	return NewSpawnTask(resolver, f.configs, f.tasks, f.workspaces, f.contexts, f.scripts, factory,
		&testutil.MockIDGenerator{IDs: []string{"task0001-aaaa-bbbb"}}, clock, f.logger)
}

func TestSpawnTask_Execute_Success(t *testing.T) {
	f := newSpawnFixture()

	out, err := f.usecase().Execute(context.Background(), SpawnTaskInput{
		Name:        "fix-auth",
		Description: "Token refresh is broken",
	})
	require.NoError(t, err)

	task := out.Task
	assert.Equal(t, "task0001-aaaa-bbbb", task.ID)
	assert.Equal(t, "/work/app", task.ProjectPath)
	assert.Equal(t, "app", task.ProjectName)
	assert.Equal(t, "fix-auth", task.Name)
	assert.Equal(t, "main", task.BaseBranch)
	assert.Equal(t, domain.StatusActive, task.Status)
	assert.Equal(t, testNow, task.CreatedAt)
	assert.Contains(t, task.Branch, "sprout/fix-auth-")
	assert.Contains(t, task.WorkspacePath, "fix-auth-")
	assert.Equal(t, "claude", out.Agent)
	assert.Equal(t, domain.TaskMetadata{SessionHandle: "sprout-task0001", Agent: "claude", Provider: "tmux"}, task.Metadata)

	assert.Same(t, task, f.tasks.Tasks[task.ID])
	require.Len(t, f.contexts.Written, 1)
	assert.Same(t, task, f.provider.LaunchedTask)
	assert.Equal(t, "claude", f.provider.LaunchedAgent.Command)
	assert.Equal(t, "tmux", f.multiplex)
	assert.Equal(t, "/work/app", f.configs.LoadedRoot)
	assert.Contains(t, f.projects.Projects, "/work/app")
}

func TestSpawnTask_Execute_BaseBranchOverride(t *testing.T) {
	f := newSpawnFixture()

	out, err := f.usecase().Execute(context.Background(), SpawnTaskInput{Name: "x", BaseBranch: "release/1.2", Agent: "codex"})
	require.NoError(t, err)

	assert.Equal(t, "release/1.2", out.Task.BaseBranch)
	assert.Equal(t, "codex", out.Agent)
	assert.Equal(t, "codex", out.Task.Metadata.Agent)
}

func TestSpawnTask_Execute_EmptyName(t *testing.T) {
	f := newSpawnFixture()

	_, err := f.usecase().Execute(context.Background(), SpawnTaskInput{Name: "   "})

	assert.ErrorIs(t, err, domain.ErrEmptyTaskName)
	assert.False(t, f.workspaces.CreateCalled)
}

func TestSpawnTask_Execute_NotARepository(t *testing.T) {
	f := newSpawnFixture()
	f.git.RepoInfoErr = domain.ErrNotGitRepository

	_, err := f.usecase().Execute(context.Background(), SpawnTaskInput{Name: "x"})

	assert.ErrorIs(t, err, domain.ErrNotGitRepository)
	assert.False(t, f.workspaces.CreateCalled)
}

func TestSpawnTask_Execute_UnknownAgent(t *testing.T) {
	f := newSpawnFixture()

	_, err := f.usecase().Execute(context.Background(), SpawnTaskInput{Name: "x", Agent: "nope"})

	assert.ErrorIs(t, err, domain.ErrAgentNotFound)
	assert.Contains(t, err.Error(), "claude, codex, opencode")
	assert.False(t, f.workspaces.CreateCalled)
}

func TestSpawnTask_Execute_ValidateFails(t *testing.T) {
	f := newSpawnFixture()
	f.provider.ValidateErr = domain.ErrAgentNotFound

	_, err := f.usecase().Execute(context.Background(), SpawnTaskInput{Name: "x"})

	assert.ErrorIs(t, err, domain.ErrAgentNotFound)
	assert.False(t, f.workspaces.CreateCalled)
}

func TestSpawnTask_Execute_UnknownMultiplexer(t *testing.T) {
	f := newSpawnFixture()
	f.factoryErr = errors.New("unknown session multiplexer")

	_, err := f.usecase().Execute(context.Background(), SpawnTaskInput{Name: "x"})

	assert.ErrorContains(t, err, "unknown session multiplexer")
	assert.False(t, f.workspaces.CreateCalled)
}

func TestSpawnTask_Execute_WorkspaceCreationFails(t *testing.T) {
	f := newSpawnFixture()
	f.workspaces.CreateErr = domain.ErrWorkspaceCreation

	_, err := f.usecase().Execute(context.Background(), SpawnTaskInput{Name: "x"})

	assert.ErrorIs(t, err, domain.ErrWorkspaceCreation)
	assert.Empty(t, f.tasks.Tasks)
	assert.False(t, f.provider.LaunchCalled)
}

func TestSpawnTask_Execute_ContextWriteFailsRollsBack(t *testing.T) {
	f := newSpawnFixture()
	f.contexts.Err = errors.New("disk full")

	_, err := f.usecase().Execute(context.Background(), SpawnTaskInput{Name: "fix-auth"})

	assert.ErrorContains(t, err, "disk full")
	assert.Empty(t, f.tasks.Tasks)
	require.Len(t, f.workspaces.Removed, 1)
	assert.Contains(t, f.workspaces.Removed[0], "fix-auth-")
	require.Len(t, f.workspaces.DeletedBranches, 1)
	assert.Contains(t, f.workspaces.DeletedBranches[0], "sprout/fix-auth-")
	assert.False(t, f.provider.LaunchCalled)
}

func TestSpawnTask_Execute_CreateFailsRollsBack(t *testing.T) {
	f := newSpawnFixture()
	f.tasks.CreateErr = errors.New("constraint failed")

	_, err := f.usecase().Execute(context.Background(), SpawnTaskInput{Name: "x"})

	assert.ErrorContains(t, err, "constraint failed")
	assert.Len(t, f.workspaces.Removed, 1)
	assert.Len(t, f.workspaces.DeletedBranches, 1)
	assert.False(t, f.provider.LaunchCalled)
}

func TestSpawnTask_Execute_LaunchFailsKeepsTask(t *testing.T) {
	f := newSpawnFixture()
	f.provider.LaunchErr = domain.ErrSessionLaunchFailed

	out, err := f.usecase().Execute(context.Background(), SpawnTaskInput{Name: "x"})

	assert.ErrorIs(t, err, domain.ErrSessionLaunchFailed)
	require.NotNil(t, out)
	stored := f.tasks.Tasks[out.Task.ID]
	require.NotNil(t, stored)
	assert.Equal(t, domain.StatusActive, stored.Status)
	assert.Empty(t, stored.Metadata.SessionHandle)
	assert.Empty(t, f.workspaces.Removed)
	assert.Equal(t, 1, f.logger.Count("ERROR"))
}

func TestSpawnTask_Execute_UntrackedSession(t *testing.T) {
	f := newSpawnFixture()
	f.provider.NameVal = "none"
	f.provider.Handle = ""

	out, err := f.usecase().Execute(context.Background(), SpawnTaskInput{Name: "x"})

	require.NoError(t, err)
	assert.False(t, out.Task.HasSession())
	assert.Equal(t, "none", out.Task.Metadata.Provider)
	assert.Equal(t, 0, f.tasks.Updates)
}

func TestSpawnTask_Execute_SameSlugTwice(t *testing.T) {
	f := newSpawnFixture()
	uc := f.usecase()

	first, err := uc.Execute(context.Background(), SpawnTaskInput{Name: "fix-ui"})
	require.NoError(t, err)
	second, err := uc.Execute(context.Background(), SpawnTaskInput{Name: "fix-ui"})
	require.NoError(t, err)

	assert.NotEqual(t, first.Task.ID, second.Task.ID)
	assert.Len(t, f.tasks.Tasks, 2)
}

func TestSpawnTask_Execute_RunsSetupScript(t *testing.T) {
	f := newSpawnFixture()
	f.configs.Config.Worktree.Setup = "npm ci"

	out, err := f.usecase().Execute(context.Background(), SpawnTaskInput{Name: "fix-auth"})
	require.NoError(t, err)

	require.Len(t, f.scripts.Runs, 1)
	run := f.scripts.Runs[0]
	assert.Equal(t, out.Task.WorkspacePath, run.Dir)
	assert.Equal(t, "npm ci", run.Script)
	assert.Contains(t, run.Env, "SPROUT_TASK_ID=task0001-aaaa-bbbb")
	assert.Contains(t, run.Env, "SPROUT_BASE_BRANCH=main")
}

func TestSpawnTask_Execute_SetupScriptFailureRollsBack(t *testing.T) {
	f := newSpawnFixture()
	f.configs.Config.Worktree.Setup = "exit 1"
	f.scripts.Err = errors.New("execute script: exit status 1")

	out, err := f.usecase().Execute(context.Background(), SpawnTaskInput{Name: "fix-auth"})

	assert.Nil(t, out)
	assert.ErrorIs(t, err, domain.ErrWorkspaceCreation)
	assert.Empty(t, f.tasks.Tasks)
	assert.Len(t, f.workspaces.Removed, 1)
	assert.Len(t, f.workspaces.DeletedBranches, 1)
	assert.Empty(t, f.contexts.Written)
	assert.Nil(t, f.provider.LaunchedTask)
}

func TestSpawnTask_Execute_NoSetupScript(t *testing.T) {
	f := newSpawnFixture()

	_, err := f.usecase().Execute(context.Background(), SpawnTaskInput{Name: "fix-auth"})
	require.NoError(t, err)

	assert.Empty(t, f.scripts.Runs)
}

func TestSpawnTask_Execute_ExcludesQuarantinedPaths(t *testing.T) {
	f := newSpawnFixture()
	f.configs.Config.Merge.Quarantine = []string{".claude/settings.local.json", ".env.local"}

	_, err := f.usecase().Execute(context.Background(), SpawnTaskInput{Name: "fix-auth"})
	require.NoError(t, err)

	assert.Equal(t, []string{".claude/settings.local.json", ".env.local"}, f.workspaces.Excluded)
}

func TestSpawnTask_Execute_ExcludeFailureRollsBack(t *testing.T) {
	f := newSpawnFixture()
	f.workspaces.ExcludeErr = errors.New("read-only git dir")

	out, err := f.usecase().Execute(context.Background(), SpawnTaskInput{Name: "fix-auth"})

	assert.Nil(t, out)
	assert.ErrorIs(t, err, domain.ErrWorkspaceCreation)
	assert.Empty(t, f.tasks.Tasks)
	assert.Len(t, f.workspaces.Removed, 1)
	assert.Len(t, f.workspaces.DeletedBranches, 1)
	assert.Nil(t, f.provider.LaunchedTask)
}
