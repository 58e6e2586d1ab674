// Package workspace writes the task-context artifacts an assistant reads
// inside its task workspace.
package workspace

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/runoshun/git-sprout/internal/domain"
)

// TaskContext is the content of .sprout/task.yaml.
type TaskContext struct {
	CreatedAt   time.Time `yaml:"created_at"`
	ID          string    `yaml:"id"`
	Name        string    `yaml:"name"`
	Description string    `yaml:"description,omitempty"`
	Project     string    `yaml:"project"`
	Workspace   string    `yaml:"workspace"`
	Branch      string    `yaml:"branch"`
	BaseBranch  string    `yaml:"base_branch"`
	Completion  string    `yaml:"completion"`
}

// Writer implements domain.TaskContextWriter.
type Writer struct{}

// NewWriter creates a new context writer.
func NewWriter() *Writer {
	return &Writer{}
}

// Ensure Writer implements domain.TaskContextWriter interface.
var _ domain.TaskContextWriter = (*Writer)(nil)

// ContextDir returns the artifact directory of a workspace.
func ContextDir(workspacePath string) string {
	return filepath.Join(workspacePath, domain.TaskContextDir)
}

// Write creates .sprout/task.yaml and .sprout/TASK.md in the task workspace.
func (w *Writer) Write(task *domain.Task) error {
	dir := ContextDir(task.WorkspacePath)
	if err := os.MkdirAll(dir, 0o750); err != nil {
		return fmt.Errorf("create context dir: %w", err)
	}

	data, err := yaml.Marshal(TaskContext{
		ID:          task.ID,
		Name:        task.Name,
		Description: task.Description,
		Project:     task.ProjectName,
		Workspace:   task.WorkspacePath,
		Branch:      task.Branch,
		BaseBranch:  task.BaseBranch,
		CreatedAt:   task.CreatedAt,
		Completion:  fmt.Sprintf("create %s/%s when the task is done", domain.TaskContextDir, domain.CompletionMarker),
	})
	if err != nil {
		return fmt.Errorf("encode task context: %w", err)
	}
	if err := os.WriteFile(filepath.Join(dir, domain.TaskContextFile), data, 0o600); err != nil {
		return fmt.Errorf("write task context: %w", err)
	}

	instructions := domain.BuildInstruction(task, "")
	if err := os.WriteFile(filepath.Join(dir, domain.TaskInstructionsFile), []byte(instructions), 0o600); err != nil {
		return fmt.Errorf("write task instructions: %w", err)
	}
	return nil
}

// Read loads .sprout/task.yaml from a workspace.
func Read(workspacePath string) (*TaskContext, error) {
	data, err := os.ReadFile(filepath.Join(ContextDir(workspacePath), domain.TaskContextFile))
	if err != nil {
		return nil, err
	}
	var tc TaskContext
	if err := yaml.Unmarshal(data, &tc); err != nil {
		return nil, fmt.Errorf("decode task context: %w", err)
	}
	return &tc, nil
}
