package usecase

import (
	"context"
	"fmt"
	"strings"

	"github.com/runoshun/git-sprout/internal/domain"
)

// ProviderFactory returns the session provider for a multiplexer setting.
type ProviderFactory func(multiplexer string) (domain.SessionProvider, error)

// SpawnTaskInput contains the parameters for spawning a task.
// Fields are ordered to minimize memory padding.
type SpawnTaskInput struct {
	Name        string // Task name (slugified for branch and directory names)
	Description string // Free text handed to the assistant
	BaseBranch  string // Branch to start from and integrate into (empty = project default)
	Project     string // Project name or path (empty = current repository)
	Agent       string // Assistant backend (empty = default_agent)
}

// SpawnTaskOutput contains the result of spawning a task.
type SpawnTaskOutput struct {
	Task  *domain.Task
	Agent string // Resolved agent name
}

// SpawnTask is the use case for fanning a task out into its own workspace
// with a running assistant session.
type SpawnTask struct {
	resolver   *ResolveProject
	configs    domain.ConfigLoader
	tasks      domain.TaskRepository
	workspaces domain.WorkspaceManager
	contexts   domain.TaskContextWriter
	scripts    domain.ScriptRunner
	providers  ProviderFactory
	ids        domain.IDGenerator
	clock      domain.Clock
	logger     domain.Logger
}

// NewSpawnTask creates a new SpawnTask use case.
func NewSpawnTask(
	resolver *ResolveProject,
	configs domain.ConfigLoader,
	tasks domain.TaskRepository,
	workspaces domain.WorkspaceManager,
	contexts domain.TaskContextWriter,
	scripts domain.ScriptRunner,
	providers ProviderFactory,
	ids domain.IDGenerator,
	clock domain.Clock,
	logger domain.Logger,
) *SpawnTask {
	return &SpawnTask{
		resolver:   resolver,
		configs:    configs,
		tasks:      tasks,
		workspaces: workspaces,
		contexts:   contexts,
		scripts:    scripts,
		providers:  providers,
		ids:        ids,
		clock:      clock,
		logger:     logger,
	}
}

// Execute spawns a task.
//
// Processing:
// 1. Resolve the project, its configuration, the base branch and the agent
// 2. Create the branch and workspace, then run the [worktree] setup script
// 3. Write the task-context artifacts and record the task (status active)
// 4. Launch the session and record its handle
//
// Failures before the task is recorded remove the workspace and branch again.
// A launch failure is returned together with the output: the task stays
// recorded as active without a session, and its workspace is kept.
func (uc *SpawnTask) Execute(ctx context.Context, in SpawnTaskInput) (*SpawnTaskOutput, error) {
	name := strings.TrimSpace(in.Name)
	if name == "" {
		return nil, domain.ErrEmptyTaskName
	}

	resolved, err := uc.resolver.Execute(ctx, ResolveProjectInput{Ref: in.Project})
	if err != nil {
		return nil, err
	}
	project := resolved.Project

	cfg, err := uc.configs.Load(project.Path)
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}

	base := in.BaseBranch
	if base == "" {
		base = project.DefaultBranch
	}

	agentName, agent, ok := cfg.ResolveAgent(in.Agent)
	if !ok {
		return nil, fmt.Errorf("%w: %q (available: %s)", domain.ErrAgentNotFound, agentName, strings.Join(cfg.AgentNames(), ", "))
	}
	provider, err := uc.providers(cfg.Session.Multiplexer)
	if err != nil {
		return nil, err
	}
	if err := provider.Validate(agent); err != nil {
		return nil, err
	}

	now := uc.clock.Now()
	ws, err := uc.workspaces.Create(project, name, base, now)
	if err != nil {
		return nil, err
	}

	if err := uc.workspaces.Exclude(project.Path, cfg.Merge.Quarantine); err != nil {
		uc.rollback(project, ws)
		return nil, fmt.Errorf("%w: exclude local-only files: %w", domain.ErrWorkspaceCreation, err)
	}

	task := &domain.Task{
		ID:            uc.ids.NewID(),
		ProjectPath:   project.Path,
		ProjectName:   project.Name,
		Name:          name,
		Description:   in.Description,
		WorkspacePath: ws.Path,
		Branch:        ws.Branch,
		BaseBranch:    base,
		Status:        domain.StatusActive,
		CreatedAt:     now,
		Metadata: domain.TaskMetadata{
			Agent:    agentName,
			Provider: provider.Name(),
		},
	}

	if setup := cfg.Worktree.Setup; setup != "" {
		if err := uc.scripts.Run(ctx, ws.Path, setup, task.Env()); err != nil {
			uc.rollback(project, ws)
			return nil, fmt.Errorf("%w: setup script: %w", domain.ErrWorkspaceCreation, err)
		}
		uc.logger.Debug(task.ID, "spawn", "setup script finished")
	}

	if err := uc.contexts.Write(task); err != nil {
		uc.rollback(project, ws)
		return nil, fmt.Errorf("write task context: %w", err)
	}
	if err := uc.tasks.Create(ctx, task); err != nil {
		uc.rollback(project, ws)
		return nil, fmt.Errorf("create task: %w", err)
	}
	uc.logger.Info(task.ID, "spawn", fmt.Sprintf("workspace %s on %s from %s", ws.Path, ws.Branch, base))

	out := &SpawnTaskOutput{Task: task, Agent: agentName}

	handle, err := provider.Launch(ctx, task, agent)
	if err != nil {
		uc.logger.Error(task.ID, "spawn", fmt.Sprintf("launch %s session: %v", agentName, err))
		return out, err
	}
	if handle == "" {
		uc.logger.Info(task.ID, "spawn", fmt.Sprintf("%s started without a tracked session", agentName))
		return out, nil
	}

	task.Metadata.SessionHandle = handle
	if err := uc.tasks.Update(ctx, task); err != nil {
		return out, fmt.Errorf("record session handle: %w", err)
	}
	uc.logger.Info(task.ID, "spawn", fmt.Sprintf("%s running in session %s", agentName, handle))
	return out, nil
}

// rollback removes a workspace created for a task that was never recorded.
func (uc *SpawnTask) rollback(project *domain.Project, ws *domain.Workspace) {
	if err := uc.workspaces.Remove(project.Path, ws.Path, true); err != nil {
		uc.logger.Warn("", "spawn", fmt.Sprintf("rollback: remove workspace %s: %v", ws.Path, err))
	}
	if err := uc.workspaces.DeleteBranch(project.Path, ws.Branch); err != nil {
		uc.logger.Warn("", "spawn", fmt.Sprintf("rollback: delete branch %s: %v", ws.Branch, err))
	}
}
