// Package session provides the session providers that start assistant
// backends inside task workspaces.
package session

import (
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"text/template"

	"github.com/runoshun/git-sprout/internal/domain"
)

// scriptTemplate is the launch script run inside a session.
// The instruction is embedded with a quoted heredoc so it needs no escaping.
const scriptTemplate = `#!/bin/bash
set -o pipefail

# Initial instruction
read -r -d '' PROMPT << 'END_OF_PROMPT'
{{.Prompt}}
END_OF_PROMPT

export SPROUT_TASK_ID={{.TaskID}}
export SPROUT_WORKSPACE={{.Workspace}}

trap 'exit 130' INT
trap 'exit 143' TERM
trap 'exit 129' HUP

cd {{.Workspace}} || exit 1
{{.Command}}
`

var scriptTmpl = template.Must(template.New("script").Parse(scriptTemplate))

type scriptData struct {
	Prompt    string
	TaskID    string
	Workspace string
	Command   string
}

// shellQuote quotes s for safe use as a single bash word.
func shellQuote(s string) string {
	return "'" + strings.ReplaceAll(s, "'", `'\''`) + "'"
}

// AgentCommand renders the command line starting agent with the instruction
// held in the PROMPT shell variable.
func AgentCommand(agent domain.Agent) string {
	parts := []string{agent.Command}
	if agent.Args != "" {
		parts = append(parts, agent.Args)
	}
	if agent.PromptFlag != "" {
		parts = append(parts, agent.PromptFlag)
	}
	parts = append(parts, `"$PROMPT"`)
	return strings.Join(parts, " ")
}

// BuildScript renders the launch script of a task.
func BuildScript(task *domain.Task, agent domain.Agent) (string, error) {
	var sb strings.Builder
	err := scriptTmpl.Execute(&sb, scriptData{
		Prompt:    domain.BuildInstruction(task, agent.Prompt),
		TaskID:    shellQuote(task.ID),
		Workspace: shellQuote(task.WorkspacePath),
		Command:   AgentCommand(agent),
	})
	if err != nil {
		return "", fmt.Errorf("render launch script: %w", err)
	}
	return sb.String(), nil
}

// writeScript renders and writes the launch script, returning its path.
func writeScript(dataDir string, task *domain.Task, agent domain.Agent) (string, error) {
	script, err := BuildScript(task, agent)
	if err != nil {
		return "", err
	}
	path := domain.ScriptPath(dataDir, task.ID)
	if err := os.MkdirAll(filepath.Dir(path), 0o750); err != nil {
		return "", fmt.Errorf("create script dir: %w", err)
	}
	// #nosec G306 - the script must be executable
	if err := os.WriteFile(path, []byte(script), 0o700); err != nil {
		return "", fmt.Errorf("write launch script: %w", err)
	}
	return path, nil
}

// validateAgent checks that the agent executable can be found.
func validateAgent(agent domain.Agent) error {
	program := strings.Fields(agent.Command)
	if len(program) == 0 {
		return fmt.Errorf("%w: agent has no command", domain.ErrAgentNotFound)
	}
	if _, err := exec.LookPath(program[0]); err != nil {
		return fmt.Errorf("%w: %s is not in PATH", domain.ErrAgentNotFound, program[0])
	}
	return nil
}
