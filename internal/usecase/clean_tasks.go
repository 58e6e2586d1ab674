package usecase

import (
	"context"
	"errors"
	"fmt"
	"os"

	"github.com/runoshun/git-sprout/internal/domain"
)

// CleanTasksInput contains the parameters for cleaning up after merged tasks.
type CleanTasksInput struct {
	Project string // Project name or path (empty = current repository)
	All     bool   // Clean every registered project
	DryRun  bool   // Only report what would be removed
}

// CleanTasksOutput contains the result of a clean.
type CleanTasksOutput struct {
	DeletedTasks      []*domain.Task // Merged task rows that were (or would be) deleted
	DeletedBranches   []string       // Task branches that were (or would be) deleted
	RemovedWorkspaces []string       // Leftover workspaces of merged tasks
	Pruned            []string       // Repositories whose stale worktree registrations were pruned
}

// CleanTasks is the use case for removing what merged tasks leave behind.
type CleanTasks struct {
	resolver   *ResolveProject
	projects   domain.ProjectRepository
	tasks      domain.TaskRepository
	git        domain.Git
	workspaces domain.WorkspaceManager
	logger     domain.Logger
}

// NewCleanTasks creates a new CleanTasks use case.
func NewCleanTasks(
	resolver *ResolveProject,
	projects domain.ProjectRepository,
	tasks domain.TaskRepository,
	git domain.Git,
	workspaces domain.WorkspaceManager,
	logger domain.Logger,
) *CleanTasks {
	return &CleanTasks{
		resolver:   resolver,
		projects:   projects,
		tasks:      tasks,
		git:        git,
		workspaces: workspaces,
		logger:     logger,
	}
}

// Execute cleans the projects in scope.
//
// Per project:
// 1. Merged tasks: remove a leftover workspace, delete the branch, delete the row
// 2. Task branches no recorded task refers to are deleted
// 3. Worktree registrations whose directory is gone are pruned
func (uc *CleanTasks) Execute(ctx context.Context, in CleanTasksInput) (*CleanTasksOutput, error) {
	var roots []string
	if in.All {
		projects, err := uc.projects.ListProjects(ctx)
		if err != nil {
			return nil, fmt.Errorf("list projects: %w", err)
		}
		for _, p := range projects {
			roots = append(roots, p.Path)
		}
	} else {
		out, err := uc.resolver.Execute(ctx, ResolveProjectInput{Ref: in.Project})
		if err != nil {
			return nil, err
		}
		roots = append(roots, out.Project.Path)
	}

	out := &CleanTasksOutput{}
	for _, root := range roots {
		if err := uc.clean(ctx, root, in.DryRun, out); err != nil {
			return nil, err
		}
	}
	return out, nil
}

func (uc *CleanTasks) clean(ctx context.Context, root string, dryRun bool, out *CleanTasksOutput) error {
	tasks, err := uc.tasks.List(ctx, domain.TaskFilter{ProjectPath: root})
	if err != nil {
		return fmt.Errorf("list tasks: %w", err)
	}

	kept := make(map[string]bool)
	var merged []*domain.Task
	for _, task := range tasks {
		if task.Status == domain.StatusMerged {
			merged = append(merged, task)
		} else {
			kept[task.Branch] = true
		}
	}

	// 1. Merged tasks
	for _, task := range merged {
		if _, err := os.Stat(task.WorkspacePath); err == nil {
			out.RemovedWorkspaces = append(out.RemovedWorkspaces, task.WorkspacePath)
			if !dryRun {
				if err := uc.workspaces.Remove(root, task.WorkspacePath, true); err != nil {
					uc.logger.Warn(task.ID, "clean", fmt.Sprintf("remove workspace %s: %v", task.WorkspacePath, err))
				}
			}
		}
		out.DeletedTasks = append(out.DeletedTasks, task)
		if dryRun {
			continue
		}
		if err := uc.tasks.Delete(ctx, task.ID); err != nil {
			return fmt.Errorf("delete task %s: %w", task.ShortID(), err)
		}
	}

	// 2. Orphan task branches (merged tasks' branches included)
	if _, err := os.Stat(root); errors.Is(err, os.ErrNotExist) {
		uc.logger.Warn("", "clean", "repository is gone, skipping branches of "+root)
		return nil
	}
	branches, err := uc.git.ListBranches(root)
	if err != nil {
		return fmt.Errorf("list branches: %w", err)
	}
	for _, b := range branches {
		if !domain.IsTaskBranch(b) || kept[b] {
			continue
		}
		out.DeletedBranches = append(out.DeletedBranches, b)
		if dryRun {
			continue
		}
		if err := uc.workspaces.DeleteBranch(root, b); err != nil {
			uc.logger.Warn("", "clean", fmt.Sprintf("delete branch %s: %v", b, err))
		}
	}

	// 3. Stale registrations
	if dryRun {
		return nil
	}
	if err := uc.workspaces.Prune(root); err != nil {
		uc.logger.Warn("", "clean", fmt.Sprintf("prune worktrees of %s: %v", root, err))
		return nil
	}
	out.Pruned = append(out.Pruned, root)
	return nil
}
