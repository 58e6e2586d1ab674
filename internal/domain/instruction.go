package domain

import (
	"path/filepath"
	"strings"
	"text/template"
)

// instructionTemplate is the initial instruction injected into every session.
const instructionTemplate = `You are working on task "{{.Name}}" (id {{.ID}}).
Your workspace is {{.WorkspacePath}} on branch {{.Branch}}, based on {{.BaseBranch}}.
{{if .Description}}
Task:
{{.Description}}
{{end}}
Work only inside the workspace and commit your changes on the task branch.
The task context is in {{.ContextDir}}/{{.ContextFile}}.
When the task is finished, create the file {{.ContextDir}}/{{.Marker}} to signal completion.
{{- if .Extra}}

{{.Extra}}
{{- end}}
`

var instructionTmpl = template.Must(template.New("instruction").Parse(instructionTemplate))

// instructionData is the template input for BuildInstruction.
type instructionData struct {
	*Task
	ContextDir  string
	ContextFile string
	Marker      string
	Extra       string
}

// BuildInstruction renders the initial instruction for a task session.
// extra is appended verbatim (agent-level prompt from config).
func BuildInstruction(task *Task, extra string) string {
	var sb strings.Builder
	_ = instructionTmpl.Execute(&sb, instructionData{
		Task:        task,
		ContextDir:  filepath.ToSlash(TaskContextDir),
		ContextFile: TaskContextFile,
		Marker:      CompletionMarker,
		Extra:       strings.TrimSpace(extra),
	})
	return sb.String()
}
