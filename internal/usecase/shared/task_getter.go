// Package shared provides shared utilities for use cases.
package shared

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/runoshun/git-sprout/internal/domain"
)

// FindTask resolves a task reference (exact name or id prefix) among tasks
// in one of statuses.
//
// With a project, that project is searched first; when nothing matches there
// (or project is nil) every project is searched. Within one search an exact id
// wins, then the newest task with that exact name, then an id prefix that
// matches exactly one task.
func FindTask(ctx context.Context, repo domain.TaskRepository, project *domain.Project, ref string, statuses ...domain.Status) (*domain.Task, error) {
	ref = strings.TrimSpace(ref)
	if ref == "" {
		return nil, fmt.Errorf("empty task reference: %w", domain.ErrTaskNotFound)
	}

	if project != nil {
		task, err := pick(ctx, repo, domain.TaskFilter{Statuses: statuses, ProjectPath: project.Path, Ref: ref}, ref)
		if err == nil || errors.Is(err, domain.ErrAmbiguousTask) || !errors.Is(err, domain.ErrTaskNotFound) {
			return task, err
		}
	}
	return pick(ctx, repo, domain.TaskFilter{Statuses: statuses, Ref: ref}, ref)
}

func pick(ctx context.Context, repo domain.TaskRepository, filter domain.TaskFilter, ref string) (*domain.Task, error) {
	candidates, err := repo.List(ctx, filter)
	if err != nil {
		return nil, fmt.Errorf("list tasks: %w", err)
	}
	if len(candidates) == 0 {
		return nil, fmt.Errorf("%q: %w", ref, domain.ErrTaskNotFound)
	}

	for _, t := range candidates {
		if t.ID == ref {
			return t, nil
		}
	}
	// Candidates are newest first
	for _, t := range candidates {
		if t.Name == ref {
			return t, nil
		}
	}

	if len(candidates) > 1 {
		ids := make([]string, len(candidates))
		for i, t := range candidates {
			ids[i] = t.ShortID()
		}
		return nil, fmt.Errorf("%q matches %s: %w", ref, strings.Join(ids, ", "), domain.ErrAmbiguousTask)
	}
	return candidates[0], nil
}
