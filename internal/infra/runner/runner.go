// Package runner provides worktree setup script execution.
package runner

import (
	"context"
	"fmt"
	"os"
	"os/exec"
	"strings"
	"time"

	"github.com/runoshun/git-sprout/internal/domain"
)

// waitDelay bounds how long Run waits for output after the script is killed.
const waitDelay = 2 * time.Second

// Client implements domain.ScriptRunner interface.
type Client struct{}

// NewClient creates a new script runner client.
func NewClient() *Client {
	return &Client{}
}

// Ensure Client implements domain.ScriptRunner interface.
var _ domain.ScriptRunner = (*Client)(nil)

// Run executes a script with sh in dir.
// The combined output is included in the error when the script fails.
func (c *Client) Run(ctx context.Context, dir, script string, env []string) error {
	cmd := exec.CommandContext(ctx, "sh", "-c", script)
	cmd.Dir = dir
	cmd.Env = append(os.Environ(), env...)
	// Children of sh may keep the output pipe open after a cancel
	cmd.WaitDelay = waitDelay

	if out, err := cmd.CombinedOutput(); err != nil {
		return fmt.Errorf("execute script: %w: %s", err, strings.TrimSpace(string(out)))
	}

	return nil
}
