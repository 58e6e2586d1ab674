package shared

import (
	"fmt"

	"github.com/runoshun/git-sprout/internal/domain"
)

// RequireSession returns the handle of the task's tracked session.
// It fails with ErrSessionUnavailable when no handle is tracked or the session is gone.
// This is used by usecases that talk to a live session (attach, peek, send).
func RequireSession(sessions domain.SessionManager, task *domain.Task) (string, error) {
	if !task.HasSession() {
		return "", fmt.Errorf("task %s has no tracked session: %w", task.ShortID(), domain.ErrSessionUnavailable)
	}
	name := task.Metadata.SessionHandle
	running, err := sessions.IsRunning(name)
	if err != nil {
		return "", fmt.Errorf("check session: %w", err)
	}
	if !running {
		return "", fmt.Errorf("session %s is not running: %w", name, domain.ErrSessionUnavailable)
	}
	return name, nil
}

// StopSession stops the task's tracked session if it is running.
// Returns the stopped session name (empty if nothing was stopped).
func StopSession(sessions domain.SessionManager, task *domain.Task) (string, error) {
	if !task.HasSession() {
		return "", nil
	}
	name := task.Metadata.SessionHandle
	running, err := sessions.IsRunning(name)
	if err != nil {
		return "", fmt.Errorf("check session running: %w", err)
	}
	if !running {
		return "", nil
	}
	if err := sessions.Stop(name); err != nil {
		return "", fmt.Errorf("stop session: %w", err)
	}
	return name, nil
}

// NotifySession types message into the task's session and submits it.
// If no session is tracked or running, it does nothing (no error).
func NotifySession(sessions domain.SessionManager, task *domain.Task, message string) error {
	if !task.HasSession() {
		return nil
	}
	name := task.Metadata.SessionHandle
	if running, _ := sessions.IsRunning(name); !running {
		return nil
	}
	if err := sessions.Send(name, message, true); err != nil {
		return fmt.Errorf("send notification: %w", err)
	}
	return nil
}
