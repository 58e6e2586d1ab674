package session

import (
	"context"
	"fmt"
	"os/exec"
	"path/filepath"

	"github.com/runoshun/git-sprout/internal/domain"
)

// TmuxProvider launches agents inside named tmux sessions that can be revisited.
type TmuxProvider struct {
	sessions domain.SessionManager
	dataDir  string
}

// NewTmuxProvider creates a provider backed by a tmux session manager.
func NewTmuxProvider(sessions domain.SessionManager, dataDir string) *TmuxProvider {
	return &TmuxProvider{sessions: sessions, dataDir: dataDir}
}

// Ensure TmuxProvider implements domain.SessionProvider interface.
var _ domain.SessionProvider = (*TmuxProvider)(nil)

// Name returns "tmux".
func (p *TmuxProvider) Name() string {
	return domain.MultiplexerTmux
}

// Validate checks that tmux and the agent executable are available.
func (p *TmuxProvider) Validate(agent domain.Agent) error {
	if _, err := exec.LookPath("tmux"); err != nil {
		return fmt.Errorf("%w: tmux is not in PATH", domain.ErrSessionLaunchFailed)
	}
	return validateAgent(agent)
}

// Launch starts the agent in a detached tmux session named after the task.
func (p *TmuxProvider) Launch(ctx context.Context, task *domain.Task, agent domain.Agent) (string, error) {
	script, err := writeScript(p.dataDir, task, agent)
	if err != nil {
		return "", fmt.Errorf("%w: %v", domain.ErrSessionLaunchFailed, err)
	}

	name := domain.SessionName(task)
	err = p.sessions.Start(ctx, domain.StartSessionOptions{
		Name:    name,
		Dir:     task.WorkspacePath,
		Command: "bash " + shellQuote(script),
	})
	if err != nil {
		return "", fmt.Errorf("%w: %v", domain.ErrSessionLaunchFailed, err)
	}
	return name, nil
}

// DetachedProvider starts agents as background processes.
// There is no handle to come back to; output goes to a per-task file.
type DetachedProvider struct {
	executor domain.CommandExecutor
	dataDir  string
}

// NewDetachedProvider creates a provider that starts detached processes.
func NewDetachedProvider(executor domain.CommandExecutor, dataDir string) *DetachedProvider {
	return &DetachedProvider{executor: executor, dataDir: dataDir}
}

// Ensure DetachedProvider implements domain.SessionProvider interface.
var _ domain.SessionProvider = (*DetachedProvider)(nil)

// Name returns "none".
func (p *DetachedProvider) Name() string {
	return domain.MultiplexerNone
}

// Validate checks that the agent executable is available.
func (p *DetachedProvider) Validate(agent domain.Agent) error {
	return validateAgent(agent)
}

// Launch starts the agent and returns an empty handle.
func (p *DetachedProvider) Launch(_ context.Context, task *domain.Task, agent domain.Agent) (string, error) {
	script, err := writeScript(p.dataDir, task, agent)
	if err != nil {
		return "", fmt.Errorf("%w: %v", domain.ErrSessionLaunchFailed, err)
	}

	_, err = p.executor.Start(&domain.ExecCommand{
		Program: "bash",
		Args:    []string{script},
		Dir:     task.WorkspacePath,
		Output:  OutputPath(p.dataDir, task.ID),
	})
	if err != nil {
		return "", fmt.Errorf("%w: %v", domain.ErrSessionLaunchFailed, err)
	}
	return "", nil
}

// OutputPath returns where a detached session writes its output.
func OutputPath(dataDir, taskID string) string {
	return filepath.Join(dataDir, "logs", "session-"+taskID+".log")
}

// NewProvider selects the provider for a multiplexer setting.
func NewProvider(multiplexer string, sessions domain.SessionManager, executor domain.CommandExecutor, dataDir string) (domain.SessionProvider, error) {
	switch multiplexer {
	case "", domain.MultiplexerTmux:
		return NewTmuxProvider(sessions, dataDir), nil
	case domain.MultiplexerNone:
		return NewDetachedProvider(executor, dataDir), nil
	default:
		return nil, fmt.Errorf("unknown session multiplexer %q (want %q or %q)", multiplexer, domain.MultiplexerTmux, domain.MultiplexerNone)
	}
}
