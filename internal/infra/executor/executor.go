// Package executor starts detached external processes.
package executor

import (
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"syscall"

	"github.com/runoshun/git-sprout/internal/domain"
)

// Client implements domain.CommandExecutor interface.
type Client struct{}

// NewClient creates a new command executor client.
func NewClient() *Client {
	return &Client{}
}

// Ensure Client implements domain.CommandExecutor interface.
var _ domain.CommandExecutor = (*Client)(nil)

// Start launches the command in its own session so it outlives the caller.
func (c *Client) Start(cmd *domain.ExecCommand) (int, error) {
	// #nosec G204 - cmd.Program and cmd.Args come from trusted UseCase code
	execCmd := exec.Command(cmd.Program, cmd.Args...)
	execCmd.Dir = cmd.Dir
	execCmd.Env = append(os.Environ(), cmd.Env...)
	execCmd.SysProcAttr = &syscall.SysProcAttr{Setsid: true}

	if cmd.Output != "" {
		if err := os.MkdirAll(filepath.Dir(cmd.Output), 0o750); err != nil {
			return 0, fmt.Errorf("create output dir: %w", err)
		}
		out, err := os.OpenFile(cmd.Output, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o600)
		if err != nil {
			return 0, fmt.Errorf("open output file: %w", err)
		}
		// The child keeps its own descriptor
		defer out.Close()
		execCmd.Stdout = out
		execCmd.Stderr = out
	}

	if err := execCmd.Start(); err != nil {
		return 0, fmt.Errorf("start %s: %w", cmd.Program, err)
	}
	pid := execCmd.Process.Pid

	// Nobody waits for the child; release it
	if err := execCmd.Process.Release(); err != nil {
		return pid, fmt.Errorf("release %s: %w", cmd.Program, err)
	}
	return pid, nil
}
