package cli

import (
	"fmt"
	"io"
	"sort"

	"github.com/pelletier/go-toml/v2"
	"github.com/spf13/cobra"

	"github.com/runoshun/git-sprout/internal/app"
	"github.com/runoshun/git-sprout/internal/domain"
	"github.com/runoshun/git-sprout/internal/usecase"
)

// newConfigCommand creates the config command group.
func newConfigCommand(c *app.Container, project *string) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "config",
		Short: "Manage configuration",
		Long: `Manage git-sprout configuration.

Configuration is merged in this order (later wins):
  1. Built-in defaults
  2. Global:     $XDG_CONFIG_HOME/sprout/config.toml
  3. Repository: .git/sprout/config.toml`,
	}

	cmd.AddCommand(
		newConfigShowCommand(c, project),
		newConfigInitCommand(c, project),
	)

	return cmd
}

// newConfigShowCommand creates the config show subcommand.
func newConfigShowCommand(c *app.Container, project *string) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "show",
		Short: "Show the effective configuration",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			uc := c.ShowConfigUseCase()
			out, err := uc.Execute(cmd.Context(), usecase.ShowConfigInput{Project: *project})
			if err != nil {
				return err
			}

			w := cmd.OutOrStdout()
			st := newStyles(w)
			_, _ = fmt.Fprintln(w, st.Muted.Render("# global: "+out.GlobalPath))
			if out.RepoPath != "" {
				_, _ = fmt.Fprintln(w, st.Muted.Render("# repository: "+out.RepoPath))
			}
			_, _ = fmt.Fprintln(w)
			return formatEffectiveConfig(w, out.Config)
		},
	}

	return cmd
}

// formatEffectiveConfig formats the effective config in TOML format.
func formatEffectiveConfig(w io.Writer, cfg *domain.Config) error {
	agents := make(map[string]any, len(cfg.Agents))
	names := make([]string, 0, len(cfg.Agents))
	for name := range cfg.Agents {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		a := cfg.Agents[name]
		def := map[string]any{"command": a.Command}
		if a.Args != "" {
			def["args"] = a.Args
		}
		if a.PromptFlag != "" {
			def["prompt_flag"] = a.PromptFlag
		}
		if a.Prompt != "" {
			def["prompt"] = a.Prompt
		}
		if a.Description != "" {
			def["description"] = a.Description
		}
		agents[name] = def
	}

	output := map[string]any{
		"default_agent": cfg.DefaultAgent,
		"agents":        agents,
		"session": map[string]any{
			"multiplexer": cfg.Session.Multiplexer,
		},
		"merge": map[string]any{
			"strategy":      cfg.Merge.Strategy,
			"remote":        cfg.Merge.Remote,
			"auto_merge":    cfg.Merge.AutoMerge,
			"fetch_timeout": cfg.Merge.FetchTimeout.String(),
			"quarantine":    cfg.Merge.Quarantine,
		},
		"log": map[string]any{
			"level": cfg.Log.Level,
		},
	}
	worktree := map[string]any{}
	if cfg.Worktree.Dir != "" {
		worktree["dir"] = cfg.Worktree.Dir
	}
	if cfg.Worktree.Setup != "" {
		worktree["setup"] = cfg.Worktree.Setup
	}
	if len(worktree) > 0 {
		output["worktree"] = worktree
	}

	if err := toml.NewEncoder(w).Encode(output); err != nil {
		return fmt.Errorf("failed to encode config: %w", err)
	}
	return nil
}

// newConfigInitCommand creates the config init subcommand.
func newConfigInitCommand(c *app.Container, project *string) *cobra.Command {
	var global bool

	cmd := &cobra.Command{
		Use:   "init",
		Short: "Write a commented configuration template",
		Long: `Write a commented configuration template.

Without --global the template goes to .git/sprout/config.toml of the
current repository. An existing file is never overwritten.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			uc := c.InitConfigUseCase()
			out, err := uc.Execute(cmd.Context(), usecase.InitConfigInput{
				Project: *project,
				Global:  global,
			})
			if err != nil {
				return err
			}
			_, _ = fmt.Fprintf(cmd.OutOrStdout(), "Created config: %s\n", out.Path)
			return nil
		},
	}

	cmd.Flags().BoolVarP(&global, "global", "g", false, "Initialize the global configuration")

	return cmd
}
