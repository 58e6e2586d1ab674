package usecase

import (
	"context"
	"fmt"

	"github.com/runoshun/git-sprout/internal/domain"
)

// ListTasksInput contains the parameters for listing tasks.
type ListTasksInput struct {
	Project  string          // Project name or path (empty = current repository)
	Statuses []domain.Status // Filter by status (empty = every status)
	All      bool            // List tasks of every project
}

// TaskWithSession contains a task with its session state.
type TaskWithSession struct {
	Task      *domain.Task
	IsRunning bool // Tracked session is alive
}

// ListTasksOutput contains the result of listing tasks.
type ListTasksOutput struct {
	Project *domain.Project   // Scope of the listing (nil = every project)
	Tasks   []TaskWithSession // Newest first
}

// ListTasks is the use case for listing tasks.
type ListTasks struct {
	resolver *ResolveProject
	tasks    domain.TaskRepository
	sessions domain.SessionManager
}

// NewListTasks creates a new ListTasks use case.
func NewListTasks(resolver *ResolveProject, tasks domain.TaskRepository, sessions domain.SessionManager) *ListTasks {
	return &ListTasks{
		resolver: resolver,
		tasks:    tasks,
		sessions: sessions,
	}
}

// Execute lists the tasks in scope.
// Without All the scope is the given or current project; outside a
// repository every project is listed.
func (uc *ListTasks) Execute(ctx context.Context, in ListTasksInput) (*ListTasksOutput, error) {
	for _, s := range in.Statuses {
		if !s.IsValid() {
			return nil, fmt.Errorf("%w: %q", domain.ErrInvalidStatus, s)
		}
	}

	var project *domain.Project
	if !in.All {
		var err error
		if project, err = uc.resolver.Scope(ctx, in.Project); err != nil {
			return nil, err
		}
	}

	filter := domain.TaskFilter{Statuses: in.Statuses}
	if project != nil {
		filter.ProjectPath = project.Path
	}
	tasks, err := uc.tasks.List(ctx, filter)
	if err != nil {
		return nil, fmt.Errorf("list tasks: %w", err)
	}

	out := &ListTasksOutput{Project: project, Tasks: make([]TaskWithSession, 0, len(tasks))}
	for _, task := range tasks {
		info := TaskWithSession{Task: task}
		if task.HasSession() && !task.Status.IsTerminal() {
			// An unreachable multiplexer just shows the session as stopped
			info.IsRunning, _ = uc.sessions.IsRunning(task.Metadata.SessionHandle)
		}
		out.Tasks = append(out.Tasks, info)
	}
	return out, nil
}
