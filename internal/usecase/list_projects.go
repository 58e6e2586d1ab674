package usecase

import (
	"context"
	"fmt"

	"github.com/runoshun/git-sprout/internal/domain"
)

// ListProjectsInput contains the parameters for listing projects.
type ListProjectsInput struct{}

// ListProjectsOutput contains the registered projects.
type ListProjectsOutput struct {
	Projects []*domain.Project // Most recently used first
}

// ListProjects is the use case for listing the project registry.
type ListProjects struct {
	projects domain.ProjectRepository
}

// NewListProjects creates a new ListProjects use case.
func NewListProjects(projects domain.ProjectRepository) *ListProjects {
	return &ListProjects{projects: projects}
}

// Execute returns every registered project.
func (uc *ListProjects) Execute(ctx context.Context, _ ListProjectsInput) (*ListProjectsOutput, error) {
	projects, err := uc.projects.ListProjects(ctx)
	if err != nil {
		return nil, fmt.Errorf("list projects: %w", err)
	}
	return &ListProjectsOutput{Projects: projects}, nil
}
