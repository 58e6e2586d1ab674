package domain

// ExecCommand represents an external command to be executed.
// This type is used to pass command information between layers
// without exposing implementation details.
type ExecCommand struct {
	Program string
	Dir     string
	Output  string // File receiving stdout and stderr (appended); empty discards output
	Args    []string
	Env     []string // Extra environment entries (KEY=VALUE) appended to the current environment
}

// NewShellCommand creates an ExecCommand that runs script with sh -c.
func NewShellCommand(script, dir string) *ExecCommand {
	return &ExecCommand{
		Program: "sh",
		Args:    []string{"-c", script},
		Dir:     dir,
	}
}

// CommandExecutor starts external processes.
type CommandExecutor interface {
	// Start launches the command detached from the caller and returns its pid.
	// The process keeps running after the caller exits.
	Start(cmd *ExecCommand) (int, error)
}
