package usecase

import (
	"context"
	"fmt"

	"github.com/runoshun/git-sprout/internal/domain"
)

// ShowConfigInput contains the input for the ShowConfig use case.
type ShowConfigInput struct {
	Project string // Project name or path (empty = current repository)
}

// ShowConfigOutput contains the output of the ShowConfig use case.
type ShowConfigOutput struct {
	Config     *domain.Config  // Effective configuration
	Project    *domain.Project // nil outside a repository
	GlobalPath string          // Global config file path
	RepoPath   string          // Repository config file path (empty outside a repository)
}

// ShowConfig reports the effective configuration and where it comes from.
type ShowConfig struct {
	resolver *ResolveProject
	manager  domain.ConfigManager
	loader   domain.ConfigLoader
}

// NewShowConfig creates a new ShowConfig use case.
func NewShowConfig(resolver *ResolveProject, manager domain.ConfigManager, loader domain.ConfigLoader) *ShowConfig {
	return &ShowConfig{
		resolver: resolver,
		manager:  manager,
		loader:   loader,
	}
}

// Execute loads the configuration of the project in scope.
func (uc *ShowConfig) Execute(ctx context.Context, in ShowConfigInput) (*ShowConfigOutput, error) {
	project, err := uc.resolver.Scope(ctx, in.Project)
	if err != nil {
		return nil, err
	}

	out := &ShowConfigOutput{Project: project, GlobalPath: uc.manager.GlobalPath()}
	root := ""
	if project != nil {
		root = project.Path
		out.RepoPath = uc.manager.RepoPath(root)
	}
	if out.Config, err = uc.loader.Load(root); err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}
	return out, nil
}
