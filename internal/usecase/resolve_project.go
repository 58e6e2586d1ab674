// Package usecase contains the application use cases.
package usecase

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/runoshun/git-sprout/internal/domain"
)

// ResolveProjectInput contains the parameters for resolving a project.
type ResolveProjectInput struct {
	Ref string // Project name or path; empty = repository containing the working directory
}

// ResolveProjectOutput contains the resolved project.
type ResolveProjectOutput struct {
	Project *domain.Project
}

// ResolveProject is the project registry: it answers "which repository am I in"
// and keeps the project record current.
type ResolveProject struct {
	git      domain.Git
	projects domain.ProjectRepository
	clock    domain.Clock
	logger   domain.Logger
	cwd      string
}

// NewResolveProject creates a new ResolveProject use case.
func NewResolveProject(
	git domain.Git,
	projects domain.ProjectRepository,
	clock domain.Clock,
	logger domain.Logger,
	cwd string,
) *ResolveProject {
	return &ResolveProject{
		git:      git,
		projects: projects,
		clock:    clock,
		logger:   logger,
		cwd:      cwd,
	}
}

// Execute resolves Ref to a project.
//
// A path (or an empty Ref) is detected as a repository and its record is
// created or refreshed (lastUsed, defaultBranch). Any other Ref is looked up
// by display name; with several projects of that name the most recently used wins.
func (uc *ResolveProject) Execute(ctx context.Context, in ResolveProjectInput) (*ResolveProjectOutput, error) {
	if in.Ref == "" {
		return uc.detect(ctx, uc.cwd)
	}
	if isPathRef(uc.cwd, in.Ref) {
		dir := in.Ref
		if !filepath.IsAbs(dir) {
			dir = filepath.Join(uc.cwd, dir)
		}
		return uc.detect(ctx, dir)
	}

	found, err := uc.projects.FindProjects(ctx, in.Ref)
	if err != nil {
		return nil, fmt.Errorf("find project: %w", err)
	}
	if len(found) == 0 {
		return nil, fmt.Errorf("%q: %w", in.Ref, domain.ErrProjectNotFound)
	}
	return &ResolveProjectOutput{Project: found[0]}, nil
}

// Scope resolves an optional project reference for lookups that may span
// every project: an empty Ref outside any repository yields a nil project.
func (uc *ResolveProject) Scope(ctx context.Context, ref string) (*domain.Project, error) {
	out, err := uc.Execute(ctx, ResolveProjectInput{Ref: ref})
	if err != nil {
		if ref == "" && errors.Is(err, domain.ErrNotGitRepository) {
			return nil, nil
		}
		return nil, err
	}
	return out.Project, nil
}

// isPathRef reports whether ref names a directory rather than a project name.
func isPathRef(cwd, ref string) bool {
	if filepath.IsAbs(ref) || ref == "." || ref == ".." || filepath.Base(ref) != ref {
		return true
	}
	info, err := os.Stat(filepath.Join(cwd, ref))
	return err == nil && info.IsDir()
}

// detect registers the repository containing dir.
func (uc *ResolveProject) detect(ctx context.Context, dir string) (*ResolveProjectOutput, error) {
	info, err := uc.git.RepoInfo(dir)
	if err != nil {
		return nil, err
	}

	existing, err := uc.projects.GetProject(ctx, info.Root)
	if err != nil {
		return nil, fmt.Errorf("get project: %w", err)
	}

	project := &domain.Project{
		Path:     info.Root,
		Name:     domain.ProjectName(info.Root),
		LastUsed: uc.clock.Now(),
	}
	if existing != nil {
		project.Name = existing.Name
		project.DefaultBranch = existing.DefaultBranch
		project.TaskCount = existing.TaskCount
	}

	branch, err := uc.git.DefaultBranch(info.Root)
	switch {
	case err == nil:
		project.DefaultBranch = branch
	case project.DefaultBranch == "":
		uc.logger.Warn("", "project", fmt.Sprintf("default branch of %s unknown, using main: %v", info.Root, err))
		project.DefaultBranch = "main"
	default:
		uc.logger.Warn("", "project", fmt.Sprintf("default branch of %s unknown, keeping %s: %v", info.Root, project.DefaultBranch, err))
	}

	if err := uc.projects.SaveProject(ctx, project); err != nil {
		return nil, fmt.Errorf("save project: %w", err)
	}
	return &ResolveProjectOutput{Project: project}, nil
}
