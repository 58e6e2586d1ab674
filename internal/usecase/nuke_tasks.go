package usecase

import (
	"context"
	"fmt"

	"github.com/runoshun/git-sprout/internal/domain"
)

// NukeTasksInput contains the parameters for erasing every task of a project.
type NukeTasksInput struct {
	Project string // Project name or path (empty = current repository)
	Confirm bool   // Must be set; nothing happens otherwise
}

// NukeTasksOutput contains the result of a nuke.
type NukeTasksOutput struct {
	Project *domain.Project
	Errors  []error // One per task that could not be deleted
	Killed  int
	Failed  int
}

// NukeTasks is the use case for killing every task of a project.
type NukeTasks struct {
	resolver *ResolveProject
	tasks    domain.TaskRepository
	discard  *discarder
	logger   domain.Logger
}

// NewNukeTasks creates a new NukeTasks use case.
func NewNukeTasks(
	resolver *ResolveProject,
	tasks domain.TaskRepository,
	sessions domain.SessionManager,
	workspaces domain.WorkspaceManager,
	logger domain.Logger,
) *NukeTasks {
	return &NukeTasks{
		resolver: resolver,
		tasks:    tasks,
		discard:  &discarder{tasks: tasks, sessions: sessions, workspaces: workspaces, logger: logger},
		logger:   logger,
	}
}

// Execute kills every task of the project, whatever its status.
// A task that fails is counted and reported; the batch continues.
func (uc *NukeTasks) Execute(ctx context.Context, in NukeTasksInput) (*NukeTasksOutput, error) {
	if !in.Confirm {
		return nil, domain.ErrNukeNotConfirmed
	}
	resolved, err := uc.resolver.Execute(ctx, ResolveProjectInput{Ref: in.Project})
	if err != nil {
		return nil, err
	}
	project := resolved.Project

	tasks, err := uc.tasks.List(ctx, domain.TaskFilter{ProjectPath: project.Path})
	if err != nil {
		return nil, fmt.Errorf("list tasks: %w", err)
	}

	out := &NukeTasksOutput{Project: project}
	for _, task := range tasks {
		if _, err := uc.discard.run(ctx, task, "nuke"); err != nil {
			out.Failed++
			out.Errors = append(out.Errors, err)
			continue
		}
		out.Killed++
	}
	uc.logger.Info("", "nuke", fmt.Sprintf("%s: %d killed, %d failed", project.Name, out.Killed, out.Failed))
	return out, nil
}
