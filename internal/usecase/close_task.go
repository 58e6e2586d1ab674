package usecase

import (
	"context"
	"fmt"

	"github.com/runoshun/git-sprout/internal/domain"
	"github.com/runoshun/git-sprout/internal/usecase/shared"
)

// CloseTaskInput contains the parameters for closing a task.
type CloseTaskInput struct {
	Ref     string // Task name or id prefix
	Project string // Project name or path (empty = current repository)
}

// CloseTaskOutput contains the result of closing a task.
type CloseTaskOutput struct {
	Task           *domain.Task // The closed task
	StoppedSession string       // Session that was terminated (empty if none)
}

// CloseTask is the use case for marking a task finished by hand.
type CloseTask struct {
	resolver *ResolveProject
	tasks    domain.TaskRepository
	sessions domain.SessionManager
	clock    domain.Clock
	logger   domain.Logger
}

// NewCloseTask creates a new CloseTask use case.
func NewCloseTask(
	resolver *ResolveProject,
	tasks domain.TaskRepository,
	sessions domain.SessionManager,
	clock domain.Clock,
	logger domain.Logger,
) *CloseTask {
	return &CloseTask{
		resolver: resolver,
		tasks:    tasks,
		sessions: sessions,
		clock:    clock,
		logger:   logger,
	}
}

// Execute transitions an active task to completed.
// The workspace and branch are left untouched; a tracked session is terminated.
func (uc *CloseTask) Execute(ctx context.Context, in CloseTaskInput) (*CloseTaskOutput, error) {
	project, err := uc.resolver.Scope(ctx, in.Project)
	if err != nil {
		return nil, err
	}
	task, err := shared.FindTask(ctx, uc.tasks, project, in.Ref, domain.StatusActive)
	if err != nil {
		return nil, err
	}

	if err := task.MarkCompleted(uc.clock.Now()); err != nil {
		return nil, err
	}

	// A session that cannot be stopped does not block closing
	stopped, err := shared.StopSession(uc.sessions, task)
	if err != nil {
		uc.logger.Warn(task.ID, "close", err.Error())
	}

	if err := uc.tasks.Update(ctx, task); err != nil {
		return nil, fmt.Errorf("update task: %w", err)
	}
	uc.logger.Info(task.ID, "close", "task closed")

	return &CloseTaskOutput{Task: task, StoppedSession: stopped}, nil
}
