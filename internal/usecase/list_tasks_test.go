package usecase

import (
	"context"
	"errors"
	"testing"

	"github.com/runoshun/git-sprout/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func (f *lifecycleFixture) listTasks() *ListTasks {
	return NewListTasks(f.resolver(), f.tasks, f.sessions)
}

func TestListTasks_Execute_CurrentProject(t *testing.T) {
	f := newLifecycleFixture()
	f.add("4f1d2c3b-0000", "fix-auth", domain.StatusActive)
	f.add("5a2e3d4c-0000", "fix-ui", domain.StatusMerged)
	other := f.add("7c4a5f6e-0000", "elsewhere", domain.StatusActive)
	other.ProjectPath = "/other"

	out, err := f.listTasks().Execute(context.Background(), ListTasksInput{})

	require.NoError(t, err)
	require.NotNil(t, out.Project)
	assert.Equal(t, "/repo", out.Project.Path)
	assert.Len(t, out.Tasks, 2)
}

func TestListTasks_Execute_AllProjects(t *testing.T) {
	f := newLifecycleFixture()
	f.add("4f1d2c3b-0000", "fix-auth", domain.StatusActive)
	other := f.add("7c4a5f6e-0000", "elsewhere", domain.StatusActive)
	other.ProjectPath = "/other"

	out, err := f.listTasks().Execute(context.Background(), ListTasksInput{All: true})

	require.NoError(t, err)
	assert.Nil(t, out.Project)
	assert.Len(t, out.Tasks, 2)
}

func TestListTasks_Execute_StatusFilter(t *testing.T) {
	f := newLifecycleFixture()
	f.add("4f1d2c3b-0000", "fix-auth", domain.StatusActive)
	f.add("5a2e3d4c-0000", "fix-ui", domain.StatusMerged)

	out, err := f.listTasks().Execute(context.Background(), ListTasksInput{Statuses: []domain.Status{domain.StatusMerged}})

	require.NoError(t, err)
	require.Len(t, out.Tasks, 1)
	assert.Equal(t, "fix-ui", out.Tasks[0].Task.Name)
}

func TestListTasks_Execute_InvalidStatus(t *testing.T) {
	f := newLifecycleFixture()

	_, err := f.listTasks().Execute(context.Background(), ListTasksInput{Statuses: []domain.Status{"open"}})

	assert.ErrorIs(t, err, domain.ErrInvalidStatus)
}

func TestListTasks_Execute_SessionState(t *testing.T) {
	f := newLifecycleFixture()
	task := f.add("4f1d2c3b-0000", "fix-auth", domain.StatusActive)
	task.Metadata.SessionHandle = "sprout-4f1d2c3b"
	f.add("5a2e3d4c-0000", "fix-ui", domain.StatusActive)
	f.sessions.IsRunningVal = true

	out, err := f.listTasks().Execute(context.Background(), ListTasksInput{})

	require.NoError(t, err)
	running := map[string]bool{}
	for _, info := range out.Tasks {
		running[info.Task.Name] = info.IsRunning
	}
	assert.Equal(t, map[string]bool{"fix-auth": true, "fix-ui": false}, running)
}

func TestListTasks_Execute_SessionErrorShowsStopped(t *testing.T) {
	f := newLifecycleFixture()
	task := f.add("4f1d2c3b-0000", "fix-auth", domain.StatusActive)
	task.Metadata.SessionHandle = "sprout-4f1d2c3b"
	f.sessions.IsRunningErr = errors.New("no server running")

	out, err := f.listTasks().Execute(context.Background(), ListTasksInput{})

	require.NoError(t, err)
	require.Len(t, out.Tasks, 1)
	assert.False(t, out.Tasks[0].IsRunning)
}
