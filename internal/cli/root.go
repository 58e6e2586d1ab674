// Package cli provides the command-line interface for git-sprout.
package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/runoshun/git-sprout/internal/app"
)

// Command group IDs.
const (
	groupSetup   = "setup"
	groupTask    = "task"
	groupSession = "session"
)

// NewRootCommand creates the root command for sprout.
// It receives the container for dependency injection and version for display.
func NewRootCommand(c *app.Container, version string) *cobra.Command {
	var project string

	root := &cobra.Command{
		Use:   "sprout",
		Short: "Fan out tasks into worktrees and merge them back",
		Long: `git-sprout runs each task in its own git worktree and branch with an
AI coding assistant session, then integrates finished work back into
the base branch with a rebase (or merge) and a fast-forward.

1 task = 1 branch = 1 worktree = 1 assistant session.

A task is finished when its assistant writes .sprout/TASK_COMPLETE in the
worktree, or when you close it by hand. 'sprout check' picks finished
tasks up; with auto-merge enabled it also integrates them.`,
		Version: version,
		// SilenceUsage prevents usage from being printed on errors
		SilenceUsage: true,
		// SilenceErrors prevents Cobra from printing errors (we handle it in main)
		SilenceErrors: true,
		PersistentPreRun: func(cmd *cobra.Command, _ []string) {
			// Skip if container is nil (e.g. in tests)
			if c == nil || c.Settings == nil {
				return
			}
			for _, w := range c.Settings.Warnings {
				_, _ = fmt.Fprintf(cmd.ErrOrStderr(), "Warning: %s\n", w)
			}
		},
	}

	root.PersistentFlags().StringVarP(&project, "project", "p", "",
		"Project name or path (default: repository of the current directory)")

	// Define command groups
	root.AddGroup(
		&cobra.Group{ID: groupSetup, Title: "Setup Commands:"},
		&cobra.Group{ID: groupTask, Title: "Task Management:"},
		&cobra.Group{ID: groupSession, Title: "Session Management:"},
	)

	// Setup commands
	configCmd := newConfigCommand(c, &project)
	configCmd.GroupID = groupSetup

	projectsCmd := newProjectsCommand(c)
	projectsCmd.GroupID = groupSetup

	// Task management commands
	spawnCmd := newSpawnCommand(c, &project)
	spawnCmd.GroupID = groupTask

	listCmd := newListCommand(c, &project)
	listCmd.GroupID = groupTask

	showCmd := newShowCommand(c, &project)
	showCmd.GroupID = groupTask

	logsCmd := newLogsCommand(c, &project)
	logsCmd.GroupID = groupTask

	checkCmd := newCheckCommand(c, &project)
	checkCmd.GroupID = groupTask

	closeCmd := newCloseCommand(c, &project)
	closeCmd.GroupID = groupTask

	mergeCmd := newMergeCommand(c, &project)
	mergeCmd.GroupID = groupTask

	killCmd := newKillCommand(c, &project)
	killCmd.GroupID = groupTask

	nukeCmd := newNukeCommand(c, &project)
	nukeCmd.GroupID = groupTask

	cleanCmd := newCleanCommand(c, &project)
	cleanCmd.GroupID = groupTask

	// Session management commands
	attachCmd := newAttachCommand(c, &project)
	attachCmd.GroupID = groupSession

	peekCmd := newPeekCommand(c, &project)
	peekCmd.GroupID = groupSession

	sendCmd := newSendCommand(c, &project)
	sendCmd.GroupID = groupSession

	// Add subcommands
	root.AddCommand(
		configCmd,
		projectsCmd,
		spawnCmd,
		listCmd,
		showCmd,
		logsCmd,
		checkCmd,
		closeCmd,
		mergeCmd,
		killCmd,
		nukeCmd,
		cleanCmd,
		attachCmd,
		peekCmd,
		sendCmd,
	)

	return root
}
