package usecase

import (
	"context"
	"fmt"

	"github.com/runoshun/git-sprout/internal/domain"
	"github.com/runoshun/git-sprout/internal/usecase/shared"
)

// AttachSessionInput contains the parameters for attaching to a session.
type AttachSessionInput struct {
	Ref     string // Task name or id prefix
	Project string // Project name or path (empty = current repository)
}

// AttachSessionOutput is empty; Attach takes over the terminal until detach.
type AttachSessionOutput struct{}

// AttachSession is the use case for attaching to a task's session.
type AttachSession struct {
	resolver *ResolveProject
	tasks    domain.TaskRepository
	sessions domain.SessionManager
}

// NewAttachSession creates a new AttachSession use case.
func NewAttachSession(resolver *ResolveProject, tasks domain.TaskRepository, sessions domain.SessionManager) *AttachSession {
	return &AttachSession{
		resolver: resolver,
		tasks:    tasks,
		sessions: sessions,
	}
}

// Execute attaches to the tracked session of the task.
func (uc *AttachSession) Execute(ctx context.Context, in AttachSessionInput) (*AttachSessionOutput, error) {
	name, err := findSession(ctx, uc.resolver, uc.tasks, uc.sessions, in.Project, in.Ref)
	if err != nil {
		return nil, err
	}
	if err := uc.sessions.Attach(name); err != nil {
		return nil, fmt.Errorf("attach session: %w", err)
	}
	return &AttachSessionOutput{}, nil
}

// findSession resolves a task that may still have a live session and returns
// the session name.
func findSession(ctx context.Context, resolver *ResolveProject, tasks domain.TaskRepository,
	sessions domain.SessionManager, projectRef, ref string) (string, error) {
	project, err := resolver.Scope(ctx, projectRef)
	if err != nil {
		return "", err
	}
	task, err := shared.FindTask(ctx, tasks, project, ref, domain.StatusActive, domain.StatusCompleted)
	if err != nil {
		return "", err
	}
	return shared.RequireSession(sessions, task)
}
