package usecase

import (
	"context"
	"errors"
	"fmt"

	"github.com/runoshun/git-sprout/internal/domain"
)

// SendKeysInput contains the parameters for sending input to a session.
type SendKeysInput struct {
	Ref     string // Task name or id prefix
	Project string // Project name or path (empty = current repository)
	Text    string // Text to type
	Submit  bool   // Press Enter after the text
}

// SendKeysOutput contains the result of sending input.
type SendKeysOutput struct {
	Session string // Session the text was sent to
}

// SendKeys is the use case for typing into a task's session.
type SendKeys struct {
	resolver *ResolveProject
	tasks    domain.TaskRepository
	sessions domain.SessionManager
}

// NewSendKeys creates a new SendKeys use case.
func NewSendKeys(resolver *ResolveProject, tasks domain.TaskRepository, sessions domain.SessionManager) *SendKeys {
	return &SendKeys{
		resolver: resolver,
		tasks:    tasks,
		sessions: sessions,
	}
}

// Execute sends text to the tracked session of the task.
func (uc *SendKeys) Execute(ctx context.Context, in SendKeysInput) (*SendKeysOutput, error) {
	if in.Text == "" && !in.Submit {
		return nil, errors.New("nothing to send")
	}
	name, err := findSession(ctx, uc.resolver, uc.tasks, uc.sessions, in.Project, in.Ref)
	if err != nil {
		return nil, err
	}
	if err := uc.sessions.Send(name, in.Text, in.Submit); err != nil {
		return nil, fmt.Errorf("send keys: %w", err)
	}
	return &SendKeysOutput{Session: name}, nil
}
