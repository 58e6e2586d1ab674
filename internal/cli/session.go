package cli

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/runoshun/git-sprout/internal/app"
	"github.com/runoshun/git-sprout/internal/usecase"
)

// newAttachCommand creates the attach command for attaching to a session.
func newAttachCommand(c *app.Container, project *string) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "attach <task>",
		Short: "Attach to the session of a task",
		Long: `Attach to the tmux session of a task.

This replaces the current process with the tmux client.
Press C-b d to detach from the session.

Preconditions:
  - The task is active or completed
  - Its session is tracked and still running`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			uc := c.AttachSessionUseCase()
			_, err := uc.Execute(cmd.Context(), usecase.AttachSessionInput{
				Ref:     args[0],
				Project: *project,
			})
			return err
		},
	}

	return cmd
}

// newPeekCommand creates the peek command for viewing session output.
func newPeekCommand(c *app.Container, project *string) *cobra.Command {
	var lines int

	cmd := &cobra.Command{
		Use:   "peek <task>",
		Short: "Show the latest output of a session",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			uc := c.PeekSessionUseCase()
			out, err := uc.Execute(cmd.Context(), usecase.PeekSessionInput{
				Ref:     args[0],
				Project: *project,
				Lines:   lines,
			})
			if err != nil {
				return err
			}
			_, _ = fmt.Fprint(cmd.OutOrStdout(), out.Output)
			if !strings.HasSuffix(out.Output, "\n") {
				_, _ = fmt.Fprintln(cmd.OutOrStdout())
			}
			return nil
		},
	}

	cmd.Flags().IntVarP(&lines, "lines", "n", usecase.DefaultPeekLines, "Number of lines to display")

	return cmd
}

// newSendCommand creates the send command for typing into a session.
func newSendCommand(c *app.Container, project *string) *cobra.Command {
	var enter bool

	cmd := &cobra.Command{
		Use:   "send <task> [text...]",
		Short: "Type text into the session of a task",
		Long: `Type text into the session of a task, optionally pressing Enter.

Examples:
  # Answer a question and submit it
  sprout send fix-login --enter "yes, go ahead"

  # Only press Enter
  sprout send fix-login --enter`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			uc := c.SendKeysUseCase()
			out, err := uc.Execute(cmd.Context(), usecase.SendKeysInput{
				Ref:     args[0],
				Project: *project,
				Text:    strings.Join(args[1:], " "),
				Submit:  enter,
			})
			if err != nil {
				return err
			}
			_, _ = fmt.Fprintf(cmd.OutOrStdout(), "Sent to %s\n", out.Session)
			return nil
		},
	}

	cmd.Flags().BoolVarP(&enter, "enter", "e", false, "Press Enter after the text")

	return cmd
}
