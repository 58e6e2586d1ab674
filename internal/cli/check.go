package cli

import (
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/runoshun/git-sprout/internal/app"
	"github.com/runoshun/git-sprout/internal/usecase"
)

// newCheckCommand creates the check command for picking up finished tasks.
func newCheckCommand(c *app.Container, project *string) *cobra.Command {
	var opts struct {
		Watch       bool
		AutoMerge   bool
		NoAutoMerge bool
	}

	cmd := &cobra.Command{
		Use:   "check",
		Short: "Detect finished tasks and optionally merge them",
		Long: `Mark active tasks whose completion marker is present as completed.
With auto-merge (flag or [merge] auto_merge) completed tasks are also
integrated into their base branches. A failed integration is reported
and the task stays as it was, so the next check retries it.

Outside a repository every project is checked.

With --watch, check runs again whenever a completion marker appears
and exits once no active task is left.

Examples:
  sprout check
  sprout check --auto-merge
  sprout check --watch --auto-merge`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if opts.AutoMerge && opts.NoAutoMerge {
				return fmt.Errorf("--auto-merge and --no-auto-merge cannot be used together")
			}
			var autoMerge *bool
			switch {
			case opts.AutoMerge:
				autoMerge = &opts.AutoMerge
			case opts.NoAutoMerge:
				off := false
				autoMerge = &off
			}

			w := cmd.OutOrStdout()
			if opts.Watch {
				uc := c.WatchTasksUseCase()
				return uc.Execute(cmd.Context(), usecase.WatchTasksInput{
					OnCheck: func(out *usecase.CheckTasksOutput) {
						printCheckResult(w, cmd.ErrOrStderr(), out, true)
					},
					AutoMerge: autoMerge,
					Project:   *project,
				})
			}

			uc := c.CheckTasksUseCase()
			out, err := uc.Execute(cmd.Context(), usecase.CheckTasksInput{
				AutoMerge: autoMerge,
				Project:   *project,
			})
			if err != nil {
				return err
			}
			printCheckResult(w, cmd.ErrOrStderr(), out, false)
			if len(out.Failures) > 0 {
				return fmt.Errorf("%d integration(s) failed", len(out.Failures))
			}
			return nil
		},
	}

	cmd.Flags().BoolVarP(&opts.Watch, "watch", "w", false, "Keep checking until no active task is left")
	cmd.Flags().BoolVar(&opts.AutoMerge, "auto-merge", false, "Integrate completed tasks")
	cmd.Flags().BoolVar(&opts.NoAutoMerge, "no-auto-merge", false, "Only detect; ignore [merge] auto_merge")

	return cmd
}

// printCheckResult reports one check. Quiet skips the summary line when nothing changed.
func printCheckResult(w, errW io.Writer, out *usecase.CheckTasksOutput, quiet bool) {
	st := newStyles(w)
	merged := make(map[string]bool, len(out.Merged))
	for _, t := range out.Merged {
		merged[t.ID] = true
		_, _ = fmt.Fprintf(w, "%s %s into %s\n", st.Success.Render("merged"), t.Name, t.BaseBranch)
	}
	for _, t := range out.Completed {
		if merged[t.ID] {
			continue
		}
		_, _ = fmt.Fprintf(w, "%s %s (%s)\n", st.Status(t.Status), t.Name, t.ShortID())
	}
	for _, f := range out.Failures {
		printIntegrationFailure(errW, f.Task, f.Err)
	}

	if quiet && len(out.Completed) == 0 && len(out.Merged) == 0 && len(out.Failures) == 0 {
		return
	}
	_, _ = fmt.Fprintln(w, st.Muted.Render(fmt.Sprintf("checked %d task(s): %d completed, %d merged, %d failed",
		out.Checked, len(out.Completed), len(out.Merged), len(out.Failures))))
}
