package cli

import (
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/runoshun/git-sprout/internal/app"
	"github.com/runoshun/git-sprout/internal/domain"
	"github.com/runoshun/git-sprout/internal/usecase"
)

// newSpawnCommand creates the spawn command for starting a task.
func newSpawnCommand(c *app.Container, project *string) *cobra.Command {
	var opts struct {
		Base  string
		Agent string
	}

	cmd := &cobra.Command{
		Use:   "spawn <name> [description...]",
		Short: "Start a task in its own worktree and session",
		Long: `Start a task: create a branch and worktree from the base branch,
write the task context into .sprout/, and launch an assistant session.

The name is turned into a slug for the branch (sprout/<name>) and the
worktree directory. If the session cannot be launched, the task is still
recorded with its worktree; use 'sprout kill' to discard it.

Examples:
  # Spawn a task from the default branch
  sprout spawn fix-login "The login form rejects valid emails"

  # Spawn from another base branch with another assistant
  sprout spawn api-docs --base develop --agent codex "Document the REST API"`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			uc := c.SpawnTaskUseCase()
			out, err := uc.Execute(cmd.Context(), usecase.SpawnTaskInput{
				Name:        args[0],
				Description: strings.Join(args[1:], " "),
				BaseBranch:  opts.Base,
				Project:     *project,
				Agent:       opts.Agent,
			})
			if out != nil && out.Task != nil {
				printSpawned(cmd.OutOrStdout(), out)
			}
			return err
		},
	}

	cmd.Flags().StringVar(&opts.Base, "base", "", "Base branch to start from and merge into (default: project default branch)")
	cmd.Flags().StringVar(&opts.Agent, "agent", "", "Assistant backend (default: default_agent)")

	return cmd
}

func printSpawned(w io.Writer, out *usecase.SpawnTaskOutput) {
	t := out.Task
	_, _ = fmt.Fprintf(w, "Spawned task %s (%s)\n", t.Name, t.ShortID())
	_, _ = fmt.Fprintf(w, "  branch:    %s (base %s)\n", t.Branch, t.BaseBranch)
	_, _ = fmt.Fprintf(w, "  workspace: %s\n", t.WorkspacePath)
	if t.HasSession() {
		_, _ = fmt.Fprintf(w, "  session:   %s (%s)\n", t.Metadata.SessionHandle, out.Agent)
	}
}

// newListCommand creates the list command for listing tasks.
func newListCommand(c *app.Container, project *string) *cobra.Command {
	var opts struct {
		Statuses []string
		All      bool
	}

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List tasks",
		Long: `List the tasks of the current project, newest first.

Examples:
  # Tasks of the current repository
  sprout list

  # Only finished tasks waiting for a merge
  sprout list --status completed

  # Tasks of every project
  sprout list --all`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			statuses := make([]domain.Status, 0, len(opts.Statuses))
			for _, s := range opts.Statuses {
				statuses = append(statuses, domain.Status(s))
			}

			uc := c.ListTasksUseCase()
			out, err := uc.Execute(cmd.Context(), usecase.ListTasksInput{
				Project:  *project,
				Statuses: statuses,
				All:      opts.All,
			})
			if err != nil {
				return err
			}

			printTaskList(cmd.OutOrStdout(), out, c.Clock.Now())
			return nil
		},
	}

	cmd.Flags().StringSliceVarP(&opts.Statuses, "status", "s", nil, "Filter by status (active, completed, failed, merged)")
	cmd.Flags().BoolVarP(&opts.All, "all", "a", false, "List tasks of every project")

	return cmd
}

// printTaskList prints tasks as a table.
func printTaskList(w io.Writer, out *usecase.ListTasksOutput, now time.Time) {
	st := newStyles(w)
	if len(out.Tasks) == 0 {
		_, _ = fmt.Fprintln(w, st.Muted.Render("No tasks found."))
		return
	}

	header := []string{"ID", "NAME", "STATUS", "BRANCH", "BASE", "AGE", "SESSION"}
	if out.Project == nil {
		header = append([]string{"PROJECT"}, header...)
	}

	rows := make([][]string, 0, len(out.Tasks))
	for _, tw := range out.Tasks {
		t := tw.Task
		session := "-"
		switch {
		case tw.IsRunning:
			session = st.Success.Render("running")
		case t.HasSession() && !t.Status.IsTerminal():
			session = st.Muted.Render("stopped")
		}
		row := []string{
			t.ShortID(),
			t.Name,
			st.Status(t.Status),
			t.Branch,
			t.BaseBranch,
			formatAge(now.Sub(t.CreatedAt)),
			session,
		}
		if out.Project == nil {
			row = append([]string{t.ProjectName}, row...)
		}
		rows = append(rows, row)
	}

	_, _ = fmt.Fprint(w, renderTable(header, rows, st))
}

// formatAge renders a duration in its largest whole unit.
func formatAge(d time.Duration) string {
	switch {
	case d < time.Minute:
		return "just now"
	case d < time.Hour:
		return fmt.Sprintf("%dm", int(d.Minutes()))
	case d < 24*time.Hour:
		return fmt.Sprintf("%dh", int(d.Hours()))
	default:
		return fmt.Sprintf("%dd", int(d.Hours()/24))
	}
}

// newShowCommand creates the show command for displaying task details.
func newShowCommand(c *app.Container, project *string) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "show <task>",
		Short: "Show task details",
		Long: `Show the details of a task given by name or id prefix.

Examples:
  sprout show fix-login
  sprout show 3f2a`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			uc := c.ShowTaskUseCase()
			out, err := uc.Execute(cmd.Context(), usecase.ShowTaskInput{
				Ref:     args[0],
				Project: *project,
			})
			if err != nil {
				return err
			}
			printTaskDetails(cmd.OutOrStdout(), out)
			return nil
		},
	}

	return cmd
}

func printTaskDetails(w io.Writer, out *usecase.ShowTaskOutput) {
	st := newStyles(w)
	t := out.Task
	yesNo := func(b bool) string {
		if b {
			return "yes"
		}
		return "no"
	}

	_, _ = fmt.Fprintf(w, "%s %s\n\n", st.Header.Render(t.Name), st.Muted.Render(t.ID))
	_, _ = fmt.Fprintf(w, "Project:   %s (%s)\n", t.ProjectName, t.ProjectPath)
	_, _ = fmt.Fprintf(w, "Status:    %s\n", st.Status(t.Status))
	_, _ = fmt.Fprintf(w, "Branch:    %s\n", t.Branch)
	_, _ = fmt.Fprintf(w, "Base:      %s\n", t.BaseBranch)
	_, _ = fmt.Fprintf(w, "Workspace: %s (exists: %s)\n", t.WorkspacePath, yesNo(out.WorkspaceExists))
	_, _ = fmt.Fprintf(w, "Created:   %s\n", t.CreatedAt.Format(time.RFC3339))
	if t.CompletedAt != nil {
		_, _ = fmt.Fprintf(w, "Completed: %s\n", t.CompletedAt.Format(time.RFC3339))
	}
	if t.MergedAt != nil {
		_, _ = fmt.Fprintf(w, "Merged:    %s\n", t.MergedAt.Format(time.RFC3339))
	}
	if t.HasSession() {
		_, _ = fmt.Fprintf(w, "Session:   %s via %s (running: %s)\n",
			t.Metadata.SessionHandle, t.Metadata.Provider, yesNo(out.SessionRunning))
	}
	if t.Metadata.Agent != "" {
		_, _ = fmt.Fprintf(w, "Agent:     %s\n", t.Metadata.Agent)
	}
	_, _ = fmt.Fprintf(w, "Marker:    %s\n", yesNo(out.MarkerPresent))

	if t.Description != "" {
		_, _ = fmt.Fprintf(w, "\n%s\n", t.Description)
	}
}

// newLogsCommand creates the logs command for viewing a task log.
func newLogsCommand(c *app.Container, project *string) *cobra.Command {
	var lines int

	cmd := &cobra.Command{
		Use:   "logs <task>",
		Short: "Show the log of a task",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			uc := c.ShowLogsUseCase()
			out, err := uc.Execute(cmd.Context(), usecase.ShowLogsInput{
				Ref:     args[0],
				Project: *project,
				Lines:   lines,
			})
			if err != nil {
				return err
			}
			if out.Content == "" {
				_, _ = fmt.Fprintf(cmd.ErrOrStderr(), "No log entries (%s)\n", out.LogPath)
				return nil
			}
			_, _ = fmt.Fprintln(cmd.OutOrStdout(), out.Content)
			return nil
		},
	}

	cmd.Flags().IntVarP(&lines, "lines", "n", 0, "Number of lines from the end (0 = all)")

	return cmd
}

// newCloseCommand creates the close command for finishing a task by hand.
func newCloseCommand(c *app.Container, project *string) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "close <task>",
		Short: "Mark a task completed by hand",
		Long: `Mark an active task completed and stop its session.

The worktree and branch stay; the next 'sprout check --auto-merge'
(or 'sprout merge') integrates the task.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			uc := c.CloseTaskUseCase()
			out, err := uc.Execute(cmd.Context(), usecase.CloseTaskInput{
				Ref:     args[0],
				Project: *project,
			})
			if err != nil {
				return err
			}
			_, _ = fmt.Fprintf(cmd.OutOrStdout(), "Closed task %s (%s)\n", out.Task.Name, out.Task.ShortID())
			if out.StoppedSession != "" {
				_, _ = fmt.Fprintf(cmd.OutOrStdout(), "Stopped session %s\n", out.StoppedSession)
			}
			return nil
		},
	}

	return cmd
}

// newMergeCommand creates the merge command for integrating a task.
func newMergeCommand(c *app.Container, project *string) *cobra.Command {
	var strategy string

	cmd := &cobra.Command{
		Use:   "merge <task>",
		Short: "Integrate a task into its base branch",
		Long: `Commit pending work, bring the task branch up to date with its base
branch and fast-forward the base branch onto it. The worktree, branch
and session of the task are removed afterwards.

If the base branch is checked out in another worktree, that checkout
is moved along. Files on the quarantine list keep their base version.

On failure the task stays active and the steps to recover are printed.

Examples:
  sprout merge fix-login
  sprout merge fix-login --strategy merge`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			uc := c.MergeTaskUseCase()
			out, err := uc.Execute(cmd.Context(), usecase.MergeTaskInput{
				Ref:      args[0],
				Project:  *project,
				Strategy: strategy,
			})
			if err != nil {
				return err
			}
			_, _ = fmt.Fprintf(cmd.OutOrStdout(), "Merged task %s into %s\n", out.Task.Name, out.Task.BaseBranch)
			return nil
		},
	}

	cmd.Flags().StringVar(&strategy, "strategy", "", "Integration strategy: rebase or merge (default: [merge] strategy)")

	return cmd
}

// newKillCommand creates the kill command for discarding a task.
func newKillCommand(c *app.Container, project *string) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "kill <task>",
		Short: "Discard a task with its worktree and branch",
		Long: `Stop the session, remove the worktree, delete the branch and forget
the task. Unmerged work is lost.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			uc := c.KillTaskUseCase()
			out, err := uc.Execute(cmd.Context(), usecase.KillTaskInput{
				Ref:     args[0],
				Project: *project,
			})
			if err != nil {
				return err
			}
			_, _ = fmt.Fprintf(cmd.OutOrStdout(), "Killed task %s (%s)\n", out.Task.Name, out.Task.ShortID())
			return nil
		},
	}

	return cmd
}

// newNukeCommand creates the nuke command for discarding every task of a project.
func newNukeCommand(c *app.Container, project *string) *cobra.Command {
	var yes bool

	cmd := &cobra.Command{
		Use:   "nuke",
		Short: "Discard every task of a project",
		Long: `Kill every task of the project, whatever its status.

Asks for confirmation on a terminal; pass --yes otherwise.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			confirmed := yes
			if !confirmed {
				name := *project
				if name == "" {
					name = "the current project"
				}
				ok, err := confirm(cmd, fmt.Sprintf("Kill every task of %s?", name))
				if err != nil {
					return err
				}
				if !ok {
					_, _ = fmt.Fprintln(cmd.ErrOrStderr(), "Aborted")
					return nil
				}
				confirmed = true
			}

			uc := c.NukeTasksUseCase()
			out, err := uc.Execute(cmd.Context(), usecase.NukeTasksInput{
				Project: *project,
				Confirm: confirmed,
			})
			if err != nil {
				return err
			}

			w := cmd.OutOrStdout()
			_, _ = fmt.Fprintf(w, "Killed %d task(s) of %s\n", out.Killed, out.Project.Name)
			if out.Failed > 0 {
				st := newStyles(cmd.ErrOrStderr())
				for _, e := range out.Errors {
					_, _ = fmt.Fprintf(cmd.ErrOrStderr(), "%s %v\n", st.Error.Render("error:"), e)
				}
				return fmt.Errorf("%d task(s) could not be killed", out.Failed)
			}
			return nil
		},
	}

	cmd.Flags().BoolVarP(&yes, "yes", "y", false, "Do not ask for confirmation")

	return cmd
}

// newCleanCommand creates the clean command for removing merged leftovers.
func newCleanCommand(c *app.Container, project *string) *cobra.Command {
	var opts struct {
		All    bool
		DryRun bool
	}

	cmd := &cobra.Command{
		Use:   "clean",
		Short: "Remove merged tasks and stale task branches",
		Long: `Delete merged task records with any worktree they left on disk,
delete task branches no task refers to any more, and prune stale
worktree registrations.

Examples:
  sprout clean --dry-run
  sprout clean --all`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			uc := c.CleanTasksUseCase()
			out, err := uc.Execute(cmd.Context(), usecase.CleanTasksInput{
				Project: *project,
				All:     opts.All,
				DryRun:  opts.DryRun,
			})
			if err != nil {
				return err
			}
			printCleanResult(cmd.OutOrStdout(), out, opts.DryRun)
			return nil
		},
	}

	cmd.Flags().BoolVarP(&opts.All, "all", "a", false, "Clean every registered project")
	cmd.Flags().BoolVar(&opts.DryRun, "dry-run", false, "Only show what would be removed")

	return cmd
}

func printCleanResult(w io.Writer, out *usecase.CleanTasksOutput, dryRun bool) {
	prefix := "Deleted"
	removed := "Removed"
	if dryRun {
		prefix = "Would delete"
		removed = "Would remove"
	}

	if len(out.DeletedTasks) == 0 && len(out.DeletedBranches) == 0 && len(out.RemovedWorkspaces) == 0 {
		_, _ = fmt.Fprintln(w, "Nothing to clean")
	}
	for _, t := range out.DeletedTasks {
		_, _ = fmt.Fprintf(w, "%s task %s (%s)\n", prefix, t.Name, t.ShortID())
	}
	for _, b := range out.DeletedBranches {
		_, _ = fmt.Fprintf(w, "%s branch %s\n", prefix, b)
	}
	for _, ws := range out.RemovedWorkspaces {
		_, _ = fmt.Fprintf(w, "%s workspace %s\n", removed, ws)
	}
	if !dryRun {
		for _, root := range out.Pruned {
			_, _ = fmt.Fprintf(w, "Pruned worktrees of %s\n", root)
		}
	}
}

// newProjectsCommand creates the projects command for listing the registry.
func newProjectsCommand(c *app.Container) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "projects",
		Short: "List known projects",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			uc := c.ListProjectsUseCase()
			out, err := uc.Execute(cmd.Context(), usecase.ListProjectsInput{})
			if err != nil {
				return err
			}

			w := cmd.OutOrStdout()
			st := newStyles(w)
			if len(out.Projects) == 0 {
				_, _ = fmt.Fprintln(w, st.Muted.Render("No projects yet. Spawn a task inside a repository first."))
				return nil
			}
			rows := make([][]string, 0, len(out.Projects))
			for _, p := range out.Projects {
				rows = append(rows, []string{
					p.Name,
					fmt.Sprintf("%d", p.TaskCount),
					p.DefaultBranch,
					p.Path,
				})
			}
			_, _ = fmt.Fprint(w, renderTable([]string{"NAME", "TASKS", "DEFAULT", "PATH"}, rows, st))
			return nil
		},
	}

	return cmd
}

// printIntegrationFailure prints a failed integration with its remedy.
func printIntegrationFailure(w io.Writer, task *domain.Task, err error) {
	st := newStyles(w)
	_, _ = fmt.Fprintf(w, "%s %s (%s): %v\n", st.Error.Render("merge failed:"), task.Name, task.ShortID(), err)
}
