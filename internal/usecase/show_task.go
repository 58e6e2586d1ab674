package usecase

import (
	"context"
	"os"

	"github.com/runoshun/git-sprout/internal/domain"
	"github.com/runoshun/git-sprout/internal/usecase/shared"
)

// ShowTaskInput contains the parameters for showing a task.
type ShowTaskInput struct {
	Ref     string // Task name or id prefix
	Project string // Project name or path (empty = current repository)
}

// ShowTaskOutput contains the details of a task.
// Fields are ordered to minimize memory padding.
type ShowTaskOutput struct {
	Task            *domain.Task
	SessionRunning  bool // Tracked session is alive
	WorkspaceExists bool // Workspace directory is on disk
	MarkerPresent   bool // Completion marker found
}

// ShowTask is the use case for inspecting one task.
type ShowTask struct {
	resolver *ResolveProject
	tasks    domain.TaskRepository
	sessions domain.SessionManager
	detector domain.CompletionDetector
}

// NewShowTask creates a new ShowTask use case.
func NewShowTask(
	resolver *ResolveProject,
	tasks domain.TaskRepository,
	sessions domain.SessionManager,
	detector domain.CompletionDetector,
) *ShowTask {
	return &ShowTask{
		resolver: resolver,
		tasks:    tasks,
		sessions: sessions,
		detector: detector,
	}
}

// Execute returns a task in any status with its live state.
func (uc *ShowTask) Execute(ctx context.Context, in ShowTaskInput) (*ShowTaskOutput, error) {
	project, err := uc.resolver.Scope(ctx, in.Project)
	if err != nil {
		return nil, err
	}
	task, err := shared.FindTask(ctx, uc.tasks, project, in.Ref)
	if err != nil {
		return nil, err
	}

	out := &ShowTaskOutput{Task: task}
	if info, err := os.Stat(task.WorkspacePath); err == nil && info.IsDir() {
		out.WorkspaceExists = true
		out.MarkerPresent = uc.detector.IsComplete(task.WorkspacePath)
	}
	if task.HasSession() {
		out.SessionRunning, _ = uc.sessions.IsRunning(task.Metadata.SessionHandle)
	}
	return out, nil
}
