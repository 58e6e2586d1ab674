package usecase

import (
	"context"
	"fmt"

	"github.com/runoshun/git-sprout/internal/domain"
)

// CheckTasksInput contains the parameters for checking tasks.
type CheckTasksInput struct {
	AutoMerge *bool  // Integrate completed tasks (nil = [merge] auto_merge)
	Project   string // Project name or path (empty = current repository, or all projects outside one)
}

// CheckFailure is a completed task whose integration failed.
type CheckFailure struct {
	Task *domain.Task
	Err  error
}

// CheckTasksOutput contains the result of a check.
type CheckTasksOutput struct {
	Completed []*domain.Task // Tasks found complete (marker present or closed by hand)
	Merged    []*domain.Task // Tasks integrated by this check
	Failures  []CheckFailure // Integrations that failed; their tasks stay as they were
	Checked   int            // Active and completed tasks inspected
}

// CheckTasks is the use case for detecting finished tasks and optionally integrating them.
type CheckTasks struct {
	resolver   *ResolveProject
	configs    domain.ConfigLoader
	tasks      domain.TaskRepository
	detector   domain.CompletionDetector
	integrator *Integrator
	clock      domain.Clock
	logger     domain.Logger
}

// NewCheckTasks creates a new CheckTasks use case.
func NewCheckTasks(
	resolver *ResolveProject,
	configs domain.ConfigLoader,
	tasks domain.TaskRepository,
	detector domain.CompletionDetector,
	integrator *Integrator,
	clock domain.Clock,
	logger domain.Logger,
) *CheckTasks {
	return &CheckTasks{
		resolver:   resolver,
		configs:    configs,
		tasks:      tasks,
		detector:   detector,
		integrator: integrator,
		clock:      clock,
		logger:     logger,
	}
}

// Execute inspects the active and completed tasks in scope.
// An active task whose workspace carries the completion marker is complete;
// so is a task already marked completed. Each complete task is either
// integrated (auto-merge) or marked completed. Merged tasks are never revisited,
// so repeated checks report the same completions and never merge twice.
func (uc *CheckTasks) Execute(ctx context.Context, in CheckTasksInput) (*CheckTasksOutput, error) {
	project, err := uc.resolver.Scope(ctx, in.Project)
	if err != nil {
		return nil, err
	}
	filter := domain.TaskFilter{Statuses: []domain.Status{domain.StatusActive, domain.StatusCompleted}}
	if project != nil {
		filter.ProjectPath = project.Path
	}
	tasks, err := uc.tasks.List(ctx, filter)
	if err != nil {
		return nil, fmt.Errorf("list tasks: %w", err)
	}

	out := &CheckTasksOutput{}
	configs := make(map[string]*domain.Config)
	for _, task := range tasks {
		out.Checked++
		if task.Status == domain.StatusActive && !uc.detector.IsComplete(task.WorkspacePath) {
			continue
		}
		out.Completed = append(out.Completed, task)

		cfg, ok := configs[task.ProjectPath]
		if !ok {
			if cfg, err = uc.configs.Load(task.ProjectPath); err != nil {
				return nil, fmt.Errorf("load config: %w", err)
			}
			configs[task.ProjectPath] = cfg
		}
		autoMerge := cfg.Merge.AutoMerge
		if in.AutoMerge != nil {
			autoMerge = *in.AutoMerge
		}

		if autoMerge {
			if err := uc.integrator.Integrate(ctx, task, cfg.Merge); err != nil {
				out.Failures = append(out.Failures, CheckFailure{Task: task, Err: err})
				continue
			}
			out.Merged = append(out.Merged, task)
			continue
		}

		if task.Status == domain.StatusActive {
			if err := task.MarkCompleted(uc.clock.Now()); err != nil {
				return nil, err
			}
			if err := uc.tasks.Update(ctx, task); err != nil {
				return nil, fmt.Errorf("update task: %w", err)
			}
			uc.logger.Info(task.ID, "check", "completion marker found")
		}
	}
	return out, nil
}
