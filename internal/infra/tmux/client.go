// Package tmux provides tmux session management.
package tmux

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"syscall"

	"github.com/runoshun/git-sprout/internal/domain"
)

// ExecFunc is the function signature for syscall.Exec.
// It is used to allow testing of the Attach method.
type ExecFunc func(argv0 string, argv []string, envv []string) error

// defaultConfig is written to the config path when no config exists yet.
const defaultConfig = `# tmux configuration for sprout sessions
set -g history-limit 50000
set -g escape-time 0
set -g mouse on
set -g status-left "[sprout] #S "
set -g status-left-length 40
set -g status-right "C-b d: detach"
`

// Client manages tmux sessions on a private socket.
type Client struct {
	execFunc   ExecFunc // Function to use for exec (default: syscall.Exec)
	socketPath string
	configPath string
}

// NewClient creates a new tmux client.
// socketPath and configPath normally live in the data directory.
func NewClient(socketPath, configPath string) *Client {
	return &Client{
		socketPath: socketPath,
		configPath: configPath,
		execFunc:   syscall.Exec,
	}
}

// SetExecFunc sets the exec function for testing purposes.
func (c *Client) SetExecFunc(fn ExecFunc) {
	c.execFunc = fn
}

// Ensure Client implements domain.SessionManager interface.
var _ domain.SessionManager = (*Client)(nil)

// command builds a tmux invocation bound to the private socket.
func (c *Client) command(ctx context.Context, args ...string) *exec.Cmd {
	//nolint:gosec // session names follow the sprout-<id> naming convention
	return exec.CommandContext(ctx, "tmux", append([]string{"-S", c.socketPath}, args...)...)
}

// ensureConfig writes the default configuration if none exists.
func (c *Client) ensureConfig() error {
	if _, err := os.Stat(c.configPath); err == nil {
		return nil
	}
	if err := os.MkdirAll(filepath.Dir(c.configPath), 0o750); err != nil {
		return fmt.Errorf("create config dir: %w", err)
	}
	if err := os.MkdirAll(filepath.Dir(c.socketPath), 0o750); err != nil {
		return fmt.Errorf("create socket dir: %w", err)
	}
	return os.WriteFile(c.configPath, []byte(defaultConfig), 0o600)
}

// Start creates a detached session running opts.Command in opts.Dir.
func (c *Client) Start(ctx context.Context, opts domain.StartSessionOptions) error {
	running, err := c.IsRunning(opts.Name)
	if err != nil {
		return fmt.Errorf("check session: %w", err)
	}
	if running {
		return domain.ErrSessionRunning
	}

	if err := c.ensureConfig(); err != nil {
		return fmt.Errorf("write tmux config: %w", err)
	}

	// tmux -S <socket> -f <config> new-session -d -s <name> -c <dir> [command]
	args := []string{"-f", c.configPath, "new-session", "-d", "-s", opts.Name, "-c", opts.Dir}
	if opts.Command != "" {
		args = append(args, opts.Command)
	}

	cmd := c.command(ctx, args...)
	cmd.Dir = opts.Dir
	if out, err := cmd.CombinedOutput(); err != nil {
		return fmt.Errorf("start session: %w: %s", err, strings.TrimSpace(string(out)))
	}
	return nil
}

// Stop terminates a session and the processes running in its panes.
// A session that is already gone is not an error.
func (c *Client) Stop(sessionName string) error {
	running, err := c.IsRunning(sessionName)
	if err != nil {
		return fmt.Errorf("check session: %w", err)
	}
	if !running {
		return nil
	}

	// Agents run as children of the pane shell; SIGTERM them first so they don't get orphaned
	out, err := c.command(context.Background(), "list-panes", "-t", sessionName, "-F", "#{pane_pid}").Output()
	if err == nil {
		for _, pid := range strings.Fields(string(out)) {
			// Process may have exited already, or have no children
			_ = exec.Command("pkill", "-TERM", "-P", pid).Run()
		}
	}

	if out, err := c.command(context.Background(), "kill-session", "-t", sessionName).CombinedOutput(); err != nil {
		// Killing the children may have ended the session on its own
		stillRunning, checkErr := c.IsRunning(sessionName)
		if checkErr != nil || stillRunning {
			return fmt.Errorf("stop session: %w: %s", err, strings.TrimSpace(string(out)))
		}
	}
	return nil
}

// Attach attaches to a running session, replacing the current process.
func (c *Client) Attach(sessionName string) error {
	running, err := c.IsRunning(sessionName)
	if err != nil {
		return fmt.Errorf("check session: %w", err)
	}
	if !running {
		return domain.ErrNoSession
	}

	tmuxPath, err := exec.LookPath("tmux")
	if err != nil {
		return fmt.Errorf("find tmux: %w", err)
	}

	argv := []string{"tmux", "-S", c.socketPath, "-f", c.configPath, "attach", "-t", sessionName}
	if err := c.execFunc(tmuxPath, argv, os.Environ()); err != nil {
		return fmt.Errorf("attach session: %w", err)
	}

	// Only reached when execFunc returns without replacing the process
	return nil
}

// Peek captures the last lines of a session's pane.
func (c *Client) Peek(sessionName string, lines int) (string, error) {
	running, err := c.IsRunning(sessionName)
	if err != nil {
		return "", fmt.Errorf("check session: %w", err)
	}
	if !running {
		return "", domain.ErrNoSession
	}

	// -p: print to stdout, -S -N: start N lines back
	out, err := c.command(context.Background(), "capture-pane", "-t", sessionName, "-p", "-S", fmt.Sprintf("-%d", lines)).Output()
	if err != nil {
		return "", fmt.Errorf("peek session: %w", err)
	}

	return trimTail(string(out), lines), nil
}

// trimTail drops trailing blank lines and keeps at most n lines.
func trimTail(s string, n int) string {
	all := strings.Split(strings.TrimRight(s, "\n "), "\n")
	if n > 0 && len(all) > n {
		all = all[len(all)-n:]
	}
	return strings.Join(all, "\n")
}

// Send types text into a session. With submit, Enter is pressed afterwards.
func (c *Client) Send(sessionName, text string, submit bool) error {
	running, err := c.IsRunning(sessionName)
	if err != nil {
		return fmt.Errorf("check session: %w", err)
	}
	if !running {
		return domain.ErrNoSession
	}

	// -l sends the text literally instead of interpreting key names
	if text != "" {
		if out, err := c.command(context.Background(), "send-keys", "-t", sessionName, "-l", text).CombinedOutput(); err != nil {
			return fmt.Errorf("send keys: %w: %s", err, strings.TrimSpace(string(out)))
		}
	}
	if submit {
		if out, err := c.command(context.Background(), "send-keys", "-t", sessionName, "Enter").CombinedOutput(); err != nil {
			return fmt.Errorf("send enter: %w: %s", err, strings.TrimSpace(string(out)))
		}
	}
	return nil
}

// IsRunning checks if a session is running.
// A missing tmux server or socket means no session is running.
func (c *Client) IsRunning(sessionName string) (bool, error) {
	if _, err := exec.LookPath("tmux"); err != nil {
		return false, fmt.Errorf("%w: tmux not found", domain.ErrSessionUnavailable)
	}

	err := c.command(context.Background(), "has-session", "-t", sessionName).Run()
	if err == nil {
		return true, nil
	}
	var exitErr *exec.ExitError
	if errors.As(err, &exitErr) {
		return false, nil
	}
	return false, fmt.Errorf("has-session: %w", err)
}
