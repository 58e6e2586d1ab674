package usecase

import (
	"context"
	"errors"
	"fmt"

	"github.com/runoshun/git-sprout/internal/domain"
)

// WatchTasksInput contains the parameters for watching tasks.
type WatchTasksInput struct {
	OnCheck   func(*CheckTasksOutput) // Called after every check
	AutoMerge *bool                   // Passed through to each check
	Project   string                  // Project name or path (empty = current repository)
}

// WatchTasks is the use case for re-running check whenever a completion marker appears.
type WatchTasks struct {
	resolver *ResolveProject
	check    *CheckTasks
	tasks    domain.TaskRepository
	detector domain.CompletionDetector
	watcher  domain.CompletionWatcher
	logger   domain.Logger
}

// NewWatchTasks creates a new WatchTasks use case.
func NewWatchTasks(
	resolver *ResolveProject,
	check *CheckTasks,
	tasks domain.TaskRepository,
	detector domain.CompletionDetector,
	watcher domain.CompletionWatcher,
	logger domain.Logger,
) *WatchTasks {
	return &WatchTasks{
		resolver: resolver,
		check:    check,
		tasks:    tasks,
		detector: detector,
		watcher:  watcher,
		logger:   logger,
	}
}

// Execute checks, then blocks until an active task gains a completion marker,
// and repeats. It returns nil when no active task is left to wait for or
// when ctx is done.
func (uc *WatchTasks) Execute(ctx context.Context, in WatchTasksInput) error {
	project, err := uc.resolver.Scope(ctx, in.Project)
	if err != nil {
		return err
	}

	for {
		out, err := uc.check.Execute(ctx, CheckTasksInput{Project: in.Project, AutoMerge: in.AutoMerge})
		if err != nil {
			return err
		}
		if in.OnCheck != nil {
			in.OnCheck(out)
		}

		workspaces, recheck, err := uc.pending(ctx, project, out)
		if err != nil {
			return err
		}
		if recheck {
			continue
		}
		if len(workspaces) == 0 {
			return nil
		}

		ws, err := uc.watcher.WaitForCompletion(ctx, workspaces)
		if err != nil {
			if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
				return nil
			}
			return err
		}
		uc.logger.Debug("", "watch", "completion marker appeared in "+ws)
	}
}

// pending returns the workspaces of active tasks without a completion marker.
// Tasks whose integration failed in last are not watched again. recheck is
// true when an active task gained its marker after last ran.
func (uc *WatchTasks) pending(ctx context.Context, project *domain.Project, last *CheckTasksOutput) (workspaces []string, recheck bool, err error) {
	filter := domain.TaskFilter{Statuses: []domain.Status{domain.StatusActive}}
	if project != nil {
		filter.ProjectPath = project.Path
	}
	tasks, err := uc.tasks.List(ctx, filter)
	if err != nil {
		return nil, false, fmt.Errorf("list tasks: %w", err)
	}

	failed := make(map[string]bool, len(last.Failures))
	for _, f := range last.Failures {
		failed[f.Task.ID] = true
	}
	for _, task := range tasks {
		if failed[task.ID] {
			continue
		}
		if uc.detector.IsComplete(task.WorkspacePath) {
			recheck = true
			continue
		}
		workspaces = append(workspaces, task.WorkspacePath)
	}
	return workspaces, recheck, nil
}
