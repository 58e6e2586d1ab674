package usecase

import (
	"context"
	"errors"
	"fmt"
	"os"

	"github.com/runoshun/git-sprout/internal/domain"
	"github.com/runoshun/git-sprout/internal/usecase/shared"
)

// KillTaskInput contains the parameters for killing a task.
type KillTaskInput struct {
	Ref     string // Task name or id prefix
	Project string // Project name or path (empty = current repository)
}

// KillTaskOutput contains the result of killing a task.
type KillTaskOutput struct {
	Task           *domain.Task // The deleted task
	StoppedSession string       // Session that was terminated (empty if none)
}

// KillTask is the use case for discarding a task with its workspace and branch.
type KillTask struct {
	resolver *ResolveProject
	tasks    domain.TaskRepository
	discard  *discarder
}

// NewKillTask creates a new KillTask use case.
func NewKillTask(
	resolver *ResolveProject,
	tasks domain.TaskRepository,
	sessions domain.SessionManager,
	workspaces domain.WorkspaceManager,
	logger domain.Logger,
) *KillTask {
	return &KillTask{
		resolver: resolver,
		tasks:    tasks,
		discard:  &discarder{tasks: tasks, sessions: sessions, workspaces: workspaces, logger: logger},
	}
}

// Execute terminates the session, removes the workspace, deletes the branch
// and deletes the task row. Irreversible.
// A workspace that is already gone is skipped.
func (uc *KillTask) Execute(ctx context.Context, in KillTaskInput) (*KillTaskOutput, error) {
	project, err := uc.resolver.Scope(ctx, in.Project)
	if err != nil {
		return nil, err
	}
	task, err := shared.FindTask(ctx, uc.tasks, project, in.Ref, domain.StatusActive, domain.StatusCompleted)
	if err != nil {
		return nil, err
	}

	stopped, err := uc.discard.run(ctx, task, "kill")
	if err != nil {
		return nil, err
	}
	return &KillTaskOutput{Task: task, StoppedSession: stopped}, nil
}

// discarder tears a task down completely. Only the row deletion can fail;
// every cleanup step before it is best-effort and logged at WARN.
type discarder struct {
	tasks      domain.TaskRepository
	sessions   domain.SessionManager
	workspaces domain.WorkspaceManager
	logger     domain.Logger
}

func (d *discarder) run(ctx context.Context, task *domain.Task, category string) (string, error) {
	stopped, err := shared.StopSession(d.sessions, task)
	if err != nil {
		d.logger.Warn(task.ID, category, err.Error())
	}

	if _, statErr := os.Stat(task.WorkspacePath); errors.Is(statErr, os.ErrNotExist) {
		d.logger.Info(task.ID, category, "workspace already gone: "+task.WorkspacePath)
		if err := d.workspaces.Prune(task.ProjectPath); err != nil {
			d.logger.Warn(task.ID, category, fmt.Sprintf("prune worktrees: %v", err))
		}
	} else if err := d.workspaces.Remove(task.ProjectPath, task.WorkspacePath, true); err != nil {
		d.logger.Warn(task.ID, category, fmt.Sprintf("remove workspace %s: %v", task.WorkspacePath, err))
	}

	if err := d.workspaces.DeleteBranch(task.ProjectPath, task.Branch); err != nil {
		d.logger.Warn(task.ID, category, fmt.Sprintf("delete branch %s: %v", task.Branch, err))
	}

	if err := d.tasks.Delete(ctx, task.ID); err != nil {
		return stopped, fmt.Errorf("delete task %s: %w", task.ShortID(), err)
	}
	d.logger.Info(task.ID, category, "task deleted")
	return stopped, nil
}
