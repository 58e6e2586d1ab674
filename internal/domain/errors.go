package domain

import (
	"errors"
	"fmt"
	"strings"
)

// Domain errors.
var (
	ErrNotGitRepository     = errors.New("not a git repository (or any of the parent directories)")
	ErrProjectNotFound      = errors.New("project not found")
	ErrTaskNotFound         = errors.New("task not found")
	ErrAmbiguousTask        = fmt.Errorf("ambiguous task reference: %w", ErrTaskNotFound)
	ErrWorkspaceCreation    = errors.New("workspace creation failed")
	ErrWorkspaceMissing     = errors.New("workspace missing")
	ErrSessionLaunchFailed  = errors.New("session launch failed")
	ErrSessionUnavailable   = errors.New("no tracked session for task")
	ErrCommitFailed         = errors.New("commit failed")
	ErrRebaseConflict       = errors.New("rebase conflict")
	ErrMergeConflict        = errors.New("merge conflict")
	ErrFastForwardFailed    = errors.New("fast-forward failed")
	ErrBranchInUseElsewhere = errors.New("base branch checkout is in use")
	ErrInvalidTransition    = errors.New("invalid status transition")
	ErrInvalidStatus        = errors.New("invalid status")
	ErrEmptyTaskName        = errors.New("task name cannot be empty")
	ErrAgentNotFound        = errors.New("agent not found")
	ErrNukeNotConfirmed     = errors.New("nuke requires confirmation")
	ErrSessionRunning       = errors.New("session already running")
	ErrNoSession            = errors.New("no running session")
	ErrWorktreeNotFound     = errors.New("worktree not found")
)

// IntegrationStep names the point of the integration sequence that failed.
type IntegrationStep string

// Integration steps, in execution order.
const (
	StepPreflight  IntegrationStep = "preflight"
	StepQuarantine IntegrationStep = "quarantine"
	StepCommit     IntegrationStep = "commit"
	StepFetch      IntegrationStep = "fetch"
	StepRebase     IntegrationStep = "rebase"
	StepMerge      IntegrationStep = "merge"
	StepLocate     IntegrationStep = "locate"
	StepIntegrate  IntegrationStep = "integrate"
	StepRestore    IntegrationStep = "restore"
	StepTeardown   IntegrationStep = "teardown"
	StepRecord     IntegrationStep = "record"
)

// IntegrationError is a failed integration attempt.
// The task it refers to is left active; Remedy tells the user what to run next.
// Fields are ordered to minimize memory padding.
type IntegrationError struct {
	Err       error           // Underlying sentinel (ErrRebaseConflict, ...)
	Files     []string        // Conflicting files, when known
	Step      IntegrationStep // Step that failed
	TaskID    string          // Task id
	Workspace string          // Task workspace path
	Remedy    string          // Remediation command sequence
}

// Error renders the failure followed by the remediation steps.
func (e *IntegrationError) Error() string {
	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("integration failed at %s: %v", e.Step, e.Err))
	if e.Workspace != "" {
		sb.WriteString("\nworkspace: ")
		sb.WriteString(e.Workspace)
	}
	if len(e.Files) > 0 {
		sb.WriteString("\nconflicting files:")
		for _, f := range e.Files {
			sb.WriteString("\n  - ")
			sb.WriteString(f)
		}
	}
	if e.Remedy != "" {
		sb.WriteString("\n\n")
		sb.WriteString(e.Remedy)
	}
	return sb.String()
}

// Unwrap exposes the underlying sentinel for errors.Is.
func (e *IntegrationError) Unwrap() error {
	return e.Err
}
