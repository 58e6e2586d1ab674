package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
)

// Template is the commented configuration written by Init.
const Template = `# sprout configuration
# Global: $XDG_CONFIG_HOME/sprout/config.toml
# Repository: <git-common-dir>/sprout/config.toml (overrides global)

# Assistant backend used when spawn does not name one.
# default_agent = "claude"

# [agents.claude]
# command = "claude"
# args = "--permission-mode acceptEdits"
# prompt = "Keep commits small."

# [agents.mine]
# command = "my-agent"
# prompt_flag = "--prompt"

[session]
# "tmux" keeps a revisitable session per task; "none" starts a detached process.
# multiplexer = "tmux"

[merge]
# "rebase" rebases onto the base branch and fast-forwards it; "merge" creates a merge commit.
# strategy = "rebase"
# remote = "origin"
# fetch_timeout = "60s"
# auto_merge = false
# quarantine = [".claude/settings.local.json", ".claude/settings.json", ".mcp.json"]

[worktree]
# dir = "~/sprout-worktrees"
# Runs with sh in each new worktree; SPROUT_TASK_ID, SPROUT_TASK_NAME,
# SPROUT_BRANCH, SPROUT_BASE_BRANCH and SPROUT_REPO_ROOT are set.
# setup = "npm ci"

[log]
# level = "info"
`

// ErrConfigExists is returned by Init when the file is already present.
var ErrConfigExists = errors.New("config file already exists")

// Init writes Template to path unless a file exists there.
func Init(path string) error {
	if _, err := os.Stat(path); err == nil {
		return fmt.Errorf("%w: %s", ErrConfigExists, path)
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o750); err != nil {
		return fmt.Errorf("create config dir: %w", err)
	}
	if err := os.WriteFile(path, []byte(Template), 0o600); err != nil {
		return fmt.Errorf("write config: %w", err)
	}
	return nil
}
