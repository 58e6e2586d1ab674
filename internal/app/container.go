// Package app provides the dependency injection container for the application.
package app

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/google/uuid"

	"github.com/runoshun/git-sprout/internal/domain"
	"github.com/runoshun/git-sprout/internal/infra/config"
	"github.com/runoshun/git-sprout/internal/infra/detector"
	"github.com/runoshun/git-sprout/internal/infra/executor"
	"github.com/runoshun/git-sprout/internal/infra/git"
	"github.com/runoshun/git-sprout/internal/infra/lock"
	"github.com/runoshun/git-sprout/internal/infra/logging"
	"github.com/runoshun/git-sprout/internal/infra/runner"
	"github.com/runoshun/git-sprout/internal/infra/session"
	"github.com/runoshun/git-sprout/internal/infra/sqlstore"
	"github.com/runoshun/git-sprout/internal/infra/tmux"
	"github.com/runoshun/git-sprout/internal/infra/workspace"
	"github.com/runoshun/git-sprout/internal/infra/worktree"
	"github.com/runoshun/git-sprout/internal/usecase"
)

// Config holds the application paths.
type Config struct {
	Cwd         string // Directory the command runs in
	DataDir     string // Store, logs, tmux socket and launch scripts
	StorePath   string // Path to sprout.db
	WorktreeDir string // Override root for worktrees (empty = inside each repository)
}

// NewConfig creates a Config for cwd and dataDir.
// The [worktree] dir setting of the configuration at cwd is applied.
func NewConfig(cwd, dataDir string, settings *domain.Config) Config {
	cfg := Config{
		Cwd:       cwd,
		DataDir:   dataDir,
		StorePath: domain.StorePath(dataDir),
	}
	if settings != nil {
		cfg.WorktreeDir = expandHome(settings.Worktree.Dir)
	}
	return cfg
}

// DefaultDataDir returns $XDG_DATA_HOME/sprout, falling back to ~/.local/share/sprout.
func DefaultDataDir() (string, error) {
	if dir := os.Getenv("XDG_DATA_HOME"); dir != "" {
		return filepath.Join(dir, "sprout"), nil
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("locate data directory: %w", err)
	}
	return filepath.Join(home, ".local", "share", "sprout"), nil
}

func expandHome(path string) string {
	if path != "~" && !strings.HasPrefix(path, "~/") {
		return path
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return path
	}
	return filepath.Join(home, strings.TrimPrefix(path, "~"))
}

// UUIDGenerator implements domain.IDGenerator with random UUIDs.
type UUIDGenerator struct{}

// NewID returns a new random UUID.
func (UUIDGenerator) NewID() string {
	return uuid.NewString()
}

// Container provides dependency injection for the application.
// It holds all port implementations and provides factory methods for use cases.
type Container struct {
	// Ports (interfaces bound to implementations)
	Tasks         domain.TaskRepository
	Projects      domain.ProjectRepository
	Clock         domain.Clock
	IDs           domain.IDGenerator
	Git           domain.Git
	Workspaces    domain.WorkspaceManager
	Sessions      domain.SessionManager
	Executor      domain.CommandExecutor
	Contexts      domain.TaskContextWriter
	Scripts       domain.ScriptRunner
	Detector      domain.CompletionDetector
	Watcher       domain.CompletionWatcher
	Locker        domain.IntegrationLocker
	ConfigLoader  domain.ConfigLoader
	ConfigManager domain.ConfigManager
	Log           domain.Logger

	// Pointer fields
	Logger   *slog.Logger   // Front-end diagnostics on stderr
	Settings *domain.Config // Configuration of the repository at Cwd
	closers  []func() error

	// Configuration
	Config Config
}

// New creates a Container for the repository (if any) containing cwd.
// Diagnostics and warnings go to stderr.
func New(cwd string, stderr io.Writer) (*Container, error) {
	dataDir, err := DefaultDataDir()
	if err != nil {
		return nil, err
	}
	return NewWithDataDir(cwd, dataDir, stderr)
}

// NewWithDataDir creates a Container that keeps its state in dataDir.
func NewWithDataDir(cwd, dataDir string, stderr io.Writer) (*Container, error) {
	logger := slog.New(slog.NewTextHandler(stderr, &slog.HandlerOptions{
		Level: slog.LevelInfo,
	}))

	gitClient := git.NewClient()
	configLoader := config.NewLoader()

	// Settings of the current repository; outside one the global file applies
	root := ""
	if info, err := gitClient.RepoInfo(cwd); err == nil {
		root = info.Root
	} else if !errors.Is(err, domain.ErrNotGitRepository) {
		logger.Debug("repository detection failed", "dir", cwd, "error", err)
	}
	settings, err := configLoader.Load(root)
	if err != nil {
		logger.Warn("using default configuration", "error", err)
		settings = domain.NewDefaultConfig()
	}

	cfg := NewConfig(cwd, dataDir, settings)

	store, err := sqlstore.Open(cfg.StorePath)
	if err != nil {
		return nil, fmt.Errorf("open task store: %w", err)
	}

	fileLog := logging.New(dataDir, logging.ParseLevel(settings.Log.Level)).WithConsole(stderr)
	det := detector.New()

	return &Container{
		Tasks:         store,
		Projects:      store,
		Clock:         domain.RealClock{},
		IDs:           UUIDGenerator{},
		Git:           gitClient,
		Workspaces:    worktree.NewClient(cfg.WorktreeDir),
		Sessions:      tmux.NewClient(domain.TmuxSocketPath(dataDir), domain.TmuxConfigPath(dataDir)),
		Executor:      executor.NewClient(),
		Contexts:      workspace.NewWriter(),
		Scripts:       runner.NewClient(),
		Detector:      det,
		Watcher:       det,
		Locker:        lock.NewFileLocker(),
		ConfigLoader:  configLoader,
		ConfigManager: configLoader,
		Log:           fileLog,
		Logger:        logger,
		Settings:      settings,
		closers:       []func() error{fileLog.Close, store.Close},
		Config:        cfg,
	}, nil
}

// NewWithDeps creates a new Container with custom dependencies for testing.
// Ports left nil by the caller are not usable.
func NewWithDeps(cfg Config, tasks domain.TaskRepository, projects domain.ProjectRepository, clock domain.Clock, logger *slog.Logger) *Container {
	return &Container{
		Tasks:    tasks,
		Projects: projects,
		Clock:    clock,
		IDs:      UUIDGenerator{},
		Logger:   logger,
		Settings: domain.NewDefaultConfig(),
		Config:   cfg,
	}
}

// Close releases the store and log files.
func (c *Container) Close() error {
	var errs []error
	for _, closeFn := range c.closers {
		if err := closeFn(); err != nil {
			errs = append(errs, err)
		}
	}
	c.closers = nil
	return errors.Join(errs...)
}

// ProviderFactory returns the session provider factory bound to this container.
func (c *Container) ProviderFactory() usecase.ProviderFactory {
	return func(multiplexer string) (domain.SessionProvider, error) {
		return session.NewProvider(multiplexer, c.Sessions, c.Executor, c.Config.DataDir)
	}
}

// UseCase factory methods

// ResolveProjectUseCase returns a new ResolveProject use case.
func (c *Container) ResolveProjectUseCase() *usecase.ResolveProject {
	return usecase.NewResolveProject(c.Git, c.Projects, c.Clock, c.Log, c.Config.Cwd)
}

// Integrator returns a new Integrator.
func (c *Container) Integrator() *usecase.Integrator {
	return usecase.NewIntegrator(c.Tasks, c.Git, c.Workspaces, c.Sessions, c.Locker, c.Clock, c.Log)
}

// SpawnTaskUseCase returns a new SpawnTask use case.
func (c *Container) SpawnTaskUseCase() *usecase.SpawnTask {
	return usecase.NewSpawnTask(c.ResolveProjectUseCase(), c.ConfigLoader, c.Tasks, c.Workspaces,
		c.Contexts, c.Scripts, c.ProviderFactory(), c.IDs, c.Clock, c.Log)
}

// CheckTasksUseCase returns a new CheckTasks use case.
func (c *Container) CheckTasksUseCase() *usecase.CheckTasks {
	return usecase.NewCheckTasks(c.ResolveProjectUseCase(), c.ConfigLoader, c.Tasks, c.Detector,
		c.Integrator(), c.Clock, c.Log)
}

// WatchTasksUseCase returns a new WatchTasks use case.
func (c *Container) WatchTasksUseCase() *usecase.WatchTasks {
	return usecase.NewWatchTasks(c.ResolveProjectUseCase(), c.CheckTasksUseCase(), c.Tasks,
		c.Detector, c.Watcher, c.Log)
}

// CloseTaskUseCase returns a new CloseTask use case.
func (c *Container) CloseTaskUseCase() *usecase.CloseTask {
	return usecase.NewCloseTask(c.ResolveProjectUseCase(), c.Tasks, c.Sessions, c.Clock, c.Log)
}

// MergeTaskUseCase returns a new MergeTask use case.
func (c *Container) MergeTaskUseCase() *usecase.MergeTask {
	return usecase.NewMergeTask(c.ResolveProjectUseCase(), c.ConfigLoader, c.Tasks, c.Integrator())
}

// KillTaskUseCase returns a new KillTask use case.
func (c *Container) KillTaskUseCase() *usecase.KillTask {
	return usecase.NewKillTask(c.ResolveProjectUseCase(), c.Tasks, c.Sessions, c.Workspaces, c.Log)
}

// NukeTasksUseCase returns a new NukeTasks use case.
func (c *Container) NukeTasksUseCase() *usecase.NukeTasks {
	return usecase.NewNukeTasks(c.ResolveProjectUseCase(), c.Tasks, c.Sessions, c.Workspaces, c.Log)
}

// ListTasksUseCase returns a new ListTasks use case.
func (c *Container) ListTasksUseCase() *usecase.ListTasks {
	return usecase.NewListTasks(c.ResolveProjectUseCase(), c.Tasks, c.Sessions)
}

// ShowTaskUseCase returns a new ShowTask use case.
func (c *Container) ShowTaskUseCase() *usecase.ShowTask {
	return usecase.NewShowTask(c.ResolveProjectUseCase(), c.Tasks, c.Sessions, c.Detector)
}

// ShowLogsUseCase returns a new ShowLogs use case.
func (c *Container) ShowLogsUseCase() *usecase.ShowLogs {
	return usecase.NewShowLogs(c.ResolveProjectUseCase(), c.Tasks, c.Config.DataDir)
}

// CleanTasksUseCase returns a new CleanTasks use case.
func (c *Container) CleanTasksUseCase() *usecase.CleanTasks {
	return usecase.NewCleanTasks(c.ResolveProjectUseCase(), c.Projects, c.Tasks, c.Git, c.Workspaces, c.Log)
}

// ListProjectsUseCase returns a new ListProjects use case.
func (c *Container) ListProjectsUseCase() *usecase.ListProjects {
	return usecase.NewListProjects(c.Projects)
}

// AttachSessionUseCase returns a new AttachSession use case.
func (c *Container) AttachSessionUseCase() *usecase.AttachSession {
	return usecase.NewAttachSession(c.ResolveProjectUseCase(), c.Tasks, c.Sessions)
}

// PeekSessionUseCase returns a new PeekSession use case.
func (c *Container) PeekSessionUseCase() *usecase.PeekSession {
	return usecase.NewPeekSession(c.ResolveProjectUseCase(), c.Tasks, c.Sessions)
}

// SendKeysUseCase returns a new SendKeys use case.
func (c *Container) SendKeysUseCase() *usecase.SendKeys {
	return usecase.NewSendKeys(c.ResolveProjectUseCase(), c.Tasks, c.Sessions)
}

// ShowConfigUseCase returns a new ShowConfig use case.
func (c *Container) ShowConfigUseCase() *usecase.ShowConfig {
	return usecase.NewShowConfig(c.ResolveProjectUseCase(), c.ConfigManager, c.ConfigLoader)
}

// InitConfigUseCase returns a new InitConfig use case.
func (c *Container) InitConfigUseCase() *usecase.InitConfig {
	return usecase.NewInitConfig(c.ResolveProjectUseCase(), c.ConfigManager)
}
