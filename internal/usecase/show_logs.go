package usecase

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/runoshun/git-sprout/internal/domain"
	"github.com/runoshun/git-sprout/internal/usecase/shared"
)

// ShowLogsInput contains the parameters for showing a task log.
type ShowLogsInput struct {
	Ref     string // Task name or id prefix
	Project string // Project name or path (empty = current repository)
	Lines   int    // Number of lines to display from the end (0 = all)
}

// ShowLogsOutput contains the result of showing a task log.
type ShowLogsOutput struct {
	LogPath string // Path to the log file
	Content string // Log file content
}

// ShowLogs is the use case for viewing the log of one task.
type ShowLogs struct {
	resolver *ResolveProject
	tasks    domain.TaskRepository
	dataDir  string
}

// NewShowLogs creates a new ShowLogs use case.
func NewShowLogs(resolver *ResolveProject, tasks domain.TaskRepository, dataDir string) *ShowLogs {
	return &ShowLogs{
		resolver: resolver,
		tasks:    tasks,
		dataDir:  dataDir,
	}
}

// Execute reads the task log. Tasks in any status are found.
func (uc *ShowLogs) Execute(ctx context.Context, in ShowLogsInput) (*ShowLogsOutput, error) {
	project, err := uc.resolver.Scope(ctx, in.Project)
	if err != nil {
		return nil, err
	}
	task, err := shared.FindTask(ctx, uc.tasks, project, in.Ref)
	if err != nil {
		return nil, err
	}

	logPath := domain.TaskLogPath(uc.dataDir, task.ID)
	content, err := os.ReadFile(logPath)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return &ShowLogsOutput{LogPath: logPath}, nil
		}
		return nil, fmt.Errorf("read log file: %w", err)
	}

	// If lines is specified, get only the last N lines
	result := strings.TrimSuffix(string(content), "\n")
	if in.Lines > 0 {
		lines := strings.Split(result, "\n")
		if len(lines) > in.Lines {
			lines = lines[len(lines)-in.Lines:]
		}
		result = strings.Join(lines, "\n")
	}

	return &ShowLogsOutput{LogPath: logPath, Content: result}, nil
}
