package usecase

import (
	"context"
	"errors"
	"testing"

	"github.com/runoshun/git-sprout/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func (f *lifecycleFixture) killTask() *KillTask {
	return NewKillTask(f.resolver(), f.tasks, f.sessions, f.workspaces, f.logger)
}

func TestKillTask_Execute_Success(t *testing.T) {
	f := newLifecycleFixture()
	task := f.add("4f1d2c3b-0000", "fix-auth", domain.StatusActive)
	task.WorkspacePath = t.TempDir()
	task.Metadata.SessionHandle = "sprout-4f1d2c3b"
	f.sessions.IsRunningVal = true

	out, err := f.killTask().Execute(context.Background(), KillTaskInput{Ref: "fix-auth"})

	require.NoError(t, err)
	assert.Equal(t, "sprout-4f1d2c3b", out.StoppedSession)
	assert.Equal(t, []string{task.WorkspacePath}, f.workspaces.Removed)
	assert.True(t, f.workspaces.RemoveForced)
	assert.Equal(t, []string{"sprout/fix-auth"}, f.workspaces.DeletedBranches)
	assert.Equal(t, []string{task.ID}, f.tasks.Deleted)
	assert.NotContains(t, f.tasks.Tasks, task.ID)
}

func TestKillTask_Execute_WorkspaceAlreadyGone(t *testing.T) {
	f := newLifecycleFixture()
	task := f.add("4f1d2c3b-0000", "fix-auth", domain.StatusActive)
	task.WorkspacePath = t.TempDir() + "/deleted-by-hand"

	_, err := f.killTask().Execute(context.Background(), KillTaskInput{Ref: "4f1d2c3b"})

	require.NoError(t, err)
	assert.Empty(t, f.workspaces.Removed)
	assert.Equal(t, []string{"/repo"}, f.workspaces.Pruned)
	assert.Equal(t, []string{"sprout/fix-auth"}, f.workspaces.DeletedBranches)
	assert.Equal(t, []string{task.ID}, f.tasks.Deleted)
}

func TestKillTask_Execute_CleanupFailuresOnlyWarn(t *testing.T) {
	f := newLifecycleFixture()
	task := f.add("4f1d2c3b-0000", "fix-auth", domain.StatusCompleted)
	task.WorkspacePath = t.TempDir()
	task.Metadata.SessionHandle = "sprout-4f1d2c3b"
	f.sessions.IsRunningErr = errors.New("no server")
	f.workspaces.RemoveErr = errors.New("locked")
	f.workspaces.DeleteBranchErr = errors.New("branch busy")

	_, err := f.killTask().Execute(context.Background(), KillTaskInput{Ref: "fix-auth"})

	require.NoError(t, err)
	assert.Equal(t, 3, f.logger.Count("WARN"))
	assert.Equal(t, []string{task.ID}, f.tasks.Deleted)
}

func TestKillTask_Execute_DeleteError(t *testing.T) {
	f := newLifecycleFixture()
	f.add("4f1d2c3b-0000", "fix-auth", domain.StatusActive)
	f.tasks.DeleteErr = errors.New("database is locked")

	_, err := f.killTask().Execute(context.Background(), KillTaskInput{Ref: "fix-auth"})

	assert.ErrorContains(t, err, "delete task 4f1d2c3b")
}

func TestKillTask_Execute_NotFound(t *testing.T) {
	f := newLifecycleFixture()
	f.add("4f1d2c3b-0000", "fix-auth", domain.StatusMerged)

	_, err := f.killTask().Execute(context.Background(), KillTaskInput{Ref: "fix-auth"})

	assert.ErrorIs(t, err, domain.ErrTaskNotFound)
	assert.Empty(t, f.workspaces.DeletedBranches)
}
