package usecase

import (
	"context"
	"errors"

	"github.com/runoshun/git-sprout/internal/domain"
)

// InitConfigInput contains the input for the InitConfig use case.
type InitConfigInput struct {
	Project string // Project name or path (empty = current repository)
	Global  bool   // Initialize the global config instead of the repository one
}

// InitConfigOutput contains the output of the InitConfig use case.
type InitConfigOutput struct {
	Path string // Path to the created config file
}

// InitConfig generates a configuration file template.
type InitConfig struct {
	resolver *ResolveProject
	manager  domain.ConfigManager
}

// NewInitConfig creates a new InitConfig use case.
func NewInitConfig(resolver *ResolveProject, manager domain.ConfigManager) *InitConfig {
	return &InitConfig{
		resolver: resolver,
		manager:  manager,
	}
}

// Execute creates a configuration file with the default template.
func (uc *InitConfig) Execute(ctx context.Context, in InitConfigInput) (*InitConfigOutput, error) {
	var path string
	if in.Global {
		path = uc.manager.GlobalPath()
		if path == "" {
			return nil, errors.New("cannot determine the global config directory")
		}
	} else {
		out, err := uc.resolver.Execute(ctx, ResolveProjectInput{Ref: in.Project})
		if err != nil {
			return nil, err
		}
		path = uc.manager.RepoPath(out.Project.Path)
	}

	if err := uc.manager.Init(path); err != nil {
		return nil, err
	}
	return &InitConfigOutput{Path: path}, nil
}
