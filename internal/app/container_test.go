package app

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/runoshun/git-sprout/internal/domain"
	"github.com/runoshun/git-sprout/internal/testutil"
	"github.com/runoshun/git-sprout/internal/usecase"
)

func TestDefaultDataDir(t *testing.T) {
	t.Setenv("XDG_DATA_HOME", "/xdg/data")
	dir, err := DefaultDataDir()
	require.NoError(t, err)
	assert.Equal(t, "/xdg/data/sprout", dir)

	t.Setenv("XDG_DATA_HOME", "")
	t.Setenv("HOME", "/home/dev")
	dir, err = DefaultDataDir()
	require.NoError(t, err)
	assert.Equal(t, "/home/dev/.local/share/sprout", dir)
}

func TestNewConfig(t *testing.T) {
	t.Setenv("HOME", "/home/dev")
	settings := domain.NewDefaultConfig()
	settings.Worktree.Dir = "~/sprout-worktrees"

	cfg := NewConfig("/work/app", "/data", settings)

	assert.Equal(t, "/work/app", cfg.Cwd)
	assert.Equal(t, "/data/sprout.db", cfg.StorePath)
	assert.Equal(t, "/home/dev/sprout-worktrees", cfg.WorktreeDir)
	assert.Empty(t, NewConfig("/work/app", "/data", nil).WorktreeDir)
}

func TestExpandHome(t *testing.T) {
	t.Setenv("HOME", "/home/dev")
	assert.Equal(t, "/home/dev", expandHome("~"))
	assert.Equal(t, "/home/dev/wt", expandHome("~/wt"))
	assert.Equal(t, "/abs/wt", expandHome("/abs/wt"))
	assert.Equal(t, "~other/wt", expandHome("~other/wt"))
}

func TestUUIDGenerator(t *testing.T) {
	a := UUIDGenerator{}.NewID()
	b := UUIDGenerator{}.NewID()
	assert.NotEqual(t, a, b)
	_, err := uuid.Parse(a)
	assert.NoError(t, err)
}

func TestNewWithDataDir(t *testing.T) {
	t.Setenv("XDG_CONFIG_HOME", t.TempDir())
	dataDir := t.TempDir()
	var stderr bytes.Buffer

	c, err := NewWithDataDir(t.TempDir(), dataDir, &stderr)
	require.NoError(t, err)

	assert.FileExists(t, filepath.Join(dataDir, "sprout.db"))
	assert.Equal(t, domain.NewDefaultConfig(), c.Settings)

	// The store is usable through both repository ports
	require.NoError(t, c.Projects.SaveProject(context.Background(), &domain.Project{Path: "/work/app", Name: "app"}))
	projects, err := c.ListProjectsUseCase().Execute(context.Background(), usecase.ListProjectsInput{})
	require.NoError(t, err)
	assert.Len(t, projects.Projects, 1)

	// Every factory wires its dependencies
	assert.NotNil(t, c.SpawnTaskUseCase())
	assert.NotNil(t, c.CheckTasksUseCase())
	assert.NotNil(t, c.WatchTasksUseCase())
	assert.NotNil(t, c.CloseTaskUseCase())
	assert.NotNil(t, c.MergeTaskUseCase())
	assert.NotNil(t, c.KillTaskUseCase())
	assert.NotNil(t, c.NukeTasksUseCase())
	assert.NotNil(t, c.ListTasksUseCase())
	assert.NotNil(t, c.ShowTaskUseCase())
	assert.NotNil(t, c.ShowLogsUseCase())
	assert.NotNil(t, c.CleanTasksUseCase())
	assert.NotNil(t, c.AttachSessionUseCase())
	assert.NotNil(t, c.PeekSessionUseCase())
	assert.NotNil(t, c.SendKeysUseCase())
	assert.NotNil(t, c.ShowConfigUseCase())
	assert.NotNil(t, c.InitConfigUseCase())

	require.NoError(t, c.Close())
	assert.NoError(t, c.Close())
}

func TestNewWithDataDir_BadConfigFallsBack(t *testing.T) {
	configHome := t.TempDir()
	t.Setenv("XDG_CONFIG_HOME", configHome)
	path := filepath.Join(configHome, "sprout", domain.ConfigFileName)
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o750))
	require.NoError(t, os.WriteFile(path, []byte("[merge]\nstrategy = \"squash\"\n"), 0o600))
	var stderr bytes.Buffer

	c, err := NewWithDataDir(t.TempDir(), t.TempDir(), &stderr)
	require.NoError(t, err)
	defer c.Close()

	assert.Equal(t, domain.StrategyRebase, c.Settings.Merge.Strategy)
	assert.Contains(t, stderr.String(), "using default configuration")
}

func TestProviderFactory(t *testing.T) {
	c := NewWithDeps(Config{DataDir: t.TempDir()}, testutil.NewMockTaskRepository(),
		testutil.NewMockProjectRepository(), &testutil.MockClock{}, nil)
	c.Sessions = testutil.NewMockSessionManager()
	c.Executor = &testutil.MockCommandExecutor{}
	factory := c.ProviderFactory()

	p, err := factory(domain.MultiplexerTmux)
	require.NoError(t, err)
	assert.Equal(t, domain.MultiplexerTmux, p.Name())

	p, err = factory(domain.MultiplexerNone)
	require.NoError(t, err)
	assert.Equal(t, domain.MultiplexerNone, p.Name())

	_, err = factory("screen")
	assert.Error(t, err)
}
