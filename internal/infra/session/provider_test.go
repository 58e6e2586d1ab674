package session

import (
	"context"
	"errors"
	"os"
	"strings"
	"testing"

	"github.com/runoshun/git-sprout/internal/domain"
	"github.com/runoshun/git-sprout/internal/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testTask() *domain.Task {
	return &domain.Task{
		ID:            "0123456789ab",
		Name:          "fix-auth",
		Description:   "It's broken",
		WorkspacePath: "/ws/it's here",
		Branch:        "sprout/fix-auth-x",
		BaseBranch:    "main",
	}
}

func TestAgentCommand(t *testing.T) {
	tests := []struct {
		name  string
		agent domain.Agent
		want  string
	}{
		{"positional", domain.Agent{Command: "codex"}, `codex "$PROMPT"`},
		{"with args", domain.Agent{Command: "claude", Args: "--permission-mode acceptEdits"}, `claude --permission-mode acceptEdits "$PROMPT"`},
		{"prompt flag", domain.Agent{Command: "opencode", PromptFlag: "--prompt"}, `opencode --prompt "$PROMPT"`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, AgentCommand(tt.agent))
		})
	}
}

func TestBuildScript(t *testing.T) {
	script, err := BuildScript(testTask(), domain.Agent{Command: "claude", Prompt: "Keep commits small."})
	require.NoError(t, err)

	assert.True(t, strings.HasPrefix(script, "#!/bin/bash"))
	assert.Contains(t, script, `task "fix-auth" (id 0123456789ab)`)
	assert.Contains(t, script, "Keep commits small.")
	// Single quotes in paths are escaped for the shell
	assert.Contains(t, script, `cd '/ws/it'\''s here' || exit 1`)
	assert.Contains(t, script, `claude "$PROMPT"`)
}

func TestTmuxProvider_Launch(t *testing.T) {
	dataDir := t.TempDir()
	sessions := testutil.NewMockSessionManager()
	provider := NewTmuxProvider(sessions, dataDir)
	task := testTask()

	handle, err := provider.Launch(context.Background(), task, domain.Agent{Command: "claude"})
	require.NoError(t, err)

	assert.Equal(t, "sprout-01234567", handle)
	assert.True(t, sessions.StartCalled)
	assert.Equal(t, "sprout-01234567", sessions.StartOpts.Name)
	assert.Equal(t, task.WorkspacePath, sessions.StartOpts.Dir)
	assert.Contains(t, sessions.StartOpts.Command, domain.ScriptPath(dataDir, task.ID))
	assert.FileExists(t, domain.ScriptPath(dataDir, task.ID))
}

func TestTmuxProvider_Launch_StartFails(t *testing.T) {
	sessions := testutil.NewMockSessionManager()
	sessions.StartErr = errors.New("tmux exploded")
	provider := NewTmuxProvider(sessions, t.TempDir())

	handle, err := provider.Launch(context.Background(), testTask(), domain.Agent{Command: "claude"})
	assert.ErrorIs(t, err, domain.ErrSessionLaunchFailed)
	assert.Empty(t, handle)
}

func TestDetachedProvider_Launch(t *testing.T) {
	dataDir := t.TempDir()
	executor := &testutil.MockCommandExecutor{Pid: 42}
	provider := NewDetachedProvider(executor, dataDir)
	task := testTask()

	handle, err := provider.Launch(context.Background(), task, domain.Agent{Command: "codex"})
	require.NoError(t, err)

	// Fire and forget: no handle
	assert.Empty(t, handle)
	require.NotNil(t, executor.StartCmd)
	assert.Equal(t, "bash", executor.StartCmd.Program)
	assert.Equal(t, []string{domain.ScriptPath(dataDir, task.ID)}, executor.StartCmd.Args)
	assert.Equal(t, task.WorkspacePath, executor.StartCmd.Dir)
	assert.Equal(t, OutputPath(dataDir, task.ID), executor.StartCmd.Output)
}

func TestValidateAgent(t *testing.T) {
	assert.NoError(t, validateAgent(domain.Agent{Command: "sh"}))
	assert.ErrorIs(t, validateAgent(domain.Agent{Command: "definitely-not-installed-xyz"}), domain.ErrAgentNotFound)
	assert.ErrorIs(t, validateAgent(domain.Agent{}), domain.ErrAgentNotFound)
}

func TestNewProvider(t *testing.T) {
	p, err := NewProvider("", testutil.NewMockSessionManager(), &testutil.MockCommandExecutor{}, os.TempDir())
	require.NoError(t, err)
	assert.Equal(t, "tmux", p.Name())

	p, err = NewProvider("none", testutil.NewMockSessionManager(), &testutil.MockCommandExecutor{}, os.TempDir())
	require.NoError(t, err)
	assert.Equal(t, "none", p.Name())

	_, err = NewProvider("screen", nil, nil, os.TempDir())
	assert.Error(t, err)
}
