package usecase

import (
	"context"
	"fmt"

	"github.com/runoshun/git-sprout/internal/domain"
	"github.com/runoshun/git-sprout/internal/usecase/shared"
)

// MergeTaskInput contains the parameters for merging a task.
type MergeTaskInput struct {
	Ref      string // Task name or id prefix
	Project  string // Project name or path (empty = current repository)
	Strategy string // Overrides [merge] strategy when set
}

// MergeTaskOutput contains the result of merging a task.
type MergeTaskOutput struct {
	Task *domain.Task // The merged task
}

// MergeTask is the use case for integrating one task explicitly.
type MergeTask struct {
	resolver   *ResolveProject
	configs    domain.ConfigLoader
	tasks      domain.TaskRepository
	integrator *Integrator
}

// NewMergeTask creates a new MergeTask use case.
func NewMergeTask(
	resolver *ResolveProject,
	configs domain.ConfigLoader,
	tasks domain.TaskRepository,
	integrator *Integrator,
) *MergeTask {
	return &MergeTask{
		resolver:   resolver,
		configs:    configs,
		tasks:      tasks,
		integrator: integrator,
	}
}

// Execute integrates an active or completed task into its base branch.
// On failure the task is left as it was and the returned error carries
// the remediation steps.
func (uc *MergeTask) Execute(ctx context.Context, in MergeTaskInput) (*MergeTaskOutput, error) {
	project, err := uc.resolver.Scope(ctx, in.Project)
	if err != nil {
		return nil, err
	}
	task, err := shared.FindTask(ctx, uc.tasks, project, in.Ref, domain.StatusActive, domain.StatusCompleted)
	if err != nil {
		return nil, err
	}

	cfg, err := uc.configs.Load(task.ProjectPath)
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}
	merge := cfg.Merge
	if in.Strategy != "" {
		if in.Strategy != domain.StrategyRebase && in.Strategy != domain.StrategyMerge {
			return nil, fmt.Errorf("unknown merge strategy %q", in.Strategy)
		}
		merge.Strategy = in.Strategy
	}

	if err := uc.integrator.Integrate(ctx, task, merge); err != nil {
		return nil, err
	}
	return &MergeTaskOutput{Task: task}, nil
}
