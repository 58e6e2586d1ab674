package usecase

import (
	"context"
	"fmt"

	"github.com/runoshun/git-sprout/internal/domain"
)

// DefaultPeekLines is the default number of lines to display.
const DefaultPeekLines = 30

// PeekSessionInput contains the parameters for peeking at a session.
type PeekSessionInput struct {
	Ref     string // Task name or id prefix
	Project string // Project name or path (empty = current repository)
	Lines   int    // Number of lines to display (0 uses default)
}

// PeekSessionOutput contains the result of peeking at a session.
type PeekSessionOutput struct {
	Output string // Captured session output
}

// PeekSession is the use case for viewing session output non-interactively.
type PeekSession struct {
	resolver *ResolveProject
	tasks    domain.TaskRepository
	sessions domain.SessionManager
}

// NewPeekSession creates a new PeekSession use case.
func NewPeekSession(resolver *ResolveProject, tasks domain.TaskRepository, sessions domain.SessionManager) *PeekSession {
	return &PeekSession{
		resolver: resolver,
		tasks:    tasks,
		sessions: sessions,
	}
}

// Execute captures and returns the last N lines from a running session.
func (uc *PeekSession) Execute(ctx context.Context, in PeekSessionInput) (*PeekSessionOutput, error) {
	name, err := findSession(ctx, uc.resolver, uc.tasks, uc.sessions, in.Project, in.Ref)
	if err != nil {
		return nil, err
	}

	lines := in.Lines
	if lines <= 0 {
		lines = DefaultPeekLines
	}

	output, err := uc.sessions.Peek(name, lines)
	if err != nil {
		return nil, fmt.Errorf("peek session: %w", err)
	}
	return &PeekSessionOutput{Output: output}, nil
}
