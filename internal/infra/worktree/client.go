// Package worktree provides git worktree operations.
package worktree

import (
	"bufio"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"time"

	"github.com/runoshun/git-sprout/internal/domain"
)

// excludeEntry keeps task-context artifacts out of every task branch.
const excludeEntry = "/" + domain.TaskContextDir + "/"

// Client manages git worktrees of task workspaces.
type Client struct {
	tokens      domain.TokenSource
	worktreeDir string // Override root for worktrees; empty = inside the repository's git dir
}

// NewClient creates a new worktree client.
// worktreeDir overrides where worktrees are created; when empty they go to
// <repo>/.git/sprout/worktrees.
func NewClient(worktreeDir string) *Client {
	return &Client{worktreeDir: worktreeDir}
}

// Ensure Client implements domain.WorkspaceManager interface.
var _ domain.WorkspaceManager = (*Client)(nil)

// rootFor returns the directory holding worktrees of project.
func (c *Client) rootFor(project *domain.Project) string {
	if c.worktreeDir == "" {
		return domain.WorktreeDir(project.Path)
	}
	return filepath.Join(c.worktreeDir, project.Name)
}

// Create creates a new branch from baseBranch and a worktree bound to it.
// The directory and branch are named <slug>-<token>, where token is unique
// within the process even for tasks created at the same instant.
func (c *Client) Create(project *domain.Project, taskName, baseBranch string, createdAt time.Time) (*domain.Workspace, error) {
	slug := domain.Slugify(taskName)
	if slug == "" {
		slug = "task"
	}
	name := domain.WorkspaceName(slug, c.tokens.Next(createdAt))
	branch := domain.BranchName(name)
	path := filepath.Join(c.rootFor(project), name)

	if err := os.MkdirAll(filepath.Dir(path), 0o750); err != nil {
		return nil, fmt.Errorf("%w: create worktree dir: %v", domain.ErrWorkspaceCreation, err)
	}

	args := []string{"worktree", "add", "-b", branch, path, baseBranch}
	out, err := c.git(project.Path, args...)
	if err != nil {
		// Worktree is registered but directory is missing: prune stale entries and retry
		if !strings.Contains(string(out), "already registered") {
			return nil, fmt.Errorf("%w: %v: %s", domain.ErrWorkspaceCreation, err, strings.TrimSpace(string(out)))
		}
		if pruneErr := c.Prune(project.Path); pruneErr != nil {
			return nil, fmt.Errorf("%w: %v", domain.ErrWorkspaceCreation, pruneErr)
		}
		if out, err = c.git(project.Path, args...); err != nil {
			return nil, fmt.Errorf("%w: after prune: %v: %s", domain.ErrWorkspaceCreation, err, strings.TrimSpace(string(out)))
		}
	}

	if err := ensureExcluded(project.Path, []string{excludeEntry}); err != nil {
		// The workspace exists; undo it so the caller sees a clean failure
		return nil, fmt.Errorf("%w: %w", domain.ErrWorkspaceCreation, c.undoCreate(project.Path, path, branch, err))
	}

	return &domain.Workspace{Path: path, Branch: branch}, nil
}

// undoCreate removes a half-created workspace and its branch.
// Failures of the cleanup are joined to cause.
func (c *Client) undoCreate(repoRoot, path, branch string, cause error) error {
	errs := []error{cause}
	if err := c.Remove(repoRoot, path, true); err != nil {
		errs = append(errs, fmt.Errorf("rollback: %w", err))
	}
	if err := c.DeleteBranch(repoRoot, branch); err != nil {
		errs = append(errs, fmt.Errorf("rollback: %w", err))
	}
	return errors.Join(errs...)
}

// Exclude adds repo-relative paths to the repository's info/exclude, anchored
// at the repository root, so `git add -A` in any worktree skips them.
// Tracked files are not affected.
func (c *Client) Exclude(repoRoot string, paths []string) error {
	entries := make([]string, 0, len(paths))
	for _, p := range paths {
		p = strings.Trim(filepath.ToSlash(filepath.Clean(p)), "/")
		if p == "" || p == "." {
			continue
		}
		entries = append(entries, "/"+p)
	}
	return ensureExcluded(repoRoot, entries)
}

// ensureExcluded appends the entries missing from the repository's info/exclude.
func ensureExcluded(repoRoot string, entries []string) error {
	if len(entries) == 0 {
		return nil
	}
	out, err := exec.Command("git", "-C", repoRoot, "rev-parse", "--git-common-dir").Output()
	if err != nil {
		return fmt.Errorf("resolve git dir: %w", err)
	}
	commonDir := strings.TrimSpace(string(out))
	if !filepath.IsAbs(commonDir) {
		commonDir = filepath.Join(repoRoot, commonDir)
	}
	path := filepath.Join(commonDir, "info", "exclude")

	content, err := os.ReadFile(path)
	if err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("read %s: %w", path, err)
	}
	present := make(map[string]bool)
	for _, line := range strings.Split(string(content), "\n") {
		present[strings.TrimSpace(line)] = true
	}

	var sb strings.Builder
	for _, e := range entries {
		if present[e] {
			continue
		}
		present[e] = true
		sb.WriteString(e + "\n")
	}
	if sb.Len() == 0 {
		return nil
	}

	if err := os.MkdirAll(filepath.Dir(path), 0o750); err != nil {
		return fmt.Errorf("create info dir: %w", err)
	}
	f, err := os.OpenFile(path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
	if err != nil {
		return fmt.Errorf("open %s: %w", path, err)
	}
	defer f.Close()

	add := sb.String()
	if len(content) > 0 && !strings.HasSuffix(string(content), "\n") {
		add = "\n" + add
	}
	if _, err := f.WriteString(add); err != nil {
		return fmt.Errorf("write %s: %w", path, err)
	}
	return nil
}

// Remove removes a worktree.
// If git refuses, the directory is deleted and stale registrations are pruned.
// A workspace that is already gone is not an error.
func (c *Client) Remove(repoRoot, path string, force bool) error {
	args := []string{"worktree", "remove"}
	if force {
		args = append(args, "--force")
	}
	args = append(args, path)

	out, err := c.git(repoRoot, args...)
	if err == nil {
		return nil
	}

	if _, statErr := os.Stat(path); errors.Is(statErr, os.ErrNotExist) {
		return c.Prune(repoRoot)
	}
	if !force {
		return fmt.Errorf("remove worktree: %w: %s", err, strings.TrimSpace(string(out)))
	}

	if rmErr := os.RemoveAll(path); rmErr != nil {
		return fmt.Errorf("remove worktree directory: %w (git: %s)", rmErr, strings.TrimSpace(string(out)))
	}
	return c.Prune(repoRoot)
}

// DeleteBranch force-deletes a branch. A missing branch is not an error.
func (c *Client) DeleteBranch(repoRoot, branch string) error {
	exists, err := branchExists(repoRoot, branch)
	if err != nil {
		return err
	}
	if !exists {
		return nil
	}
	if out, err := c.git(repoRoot, "branch", "-D", branch); err != nil {
		return fmt.Errorf("delete branch %s: %w: %s", branch, err, strings.TrimSpace(string(out)))
	}
	return nil
}

// List returns all worktrees, main checkout first.
func (c *Client) List(repoRoot string) ([]domain.WorktreeInfo, error) {
	cmd := exec.Command("git", "worktree", "list", "--porcelain")
	cmd.Dir = repoRoot

	out, err := cmd.Output()
	if err != nil {
		return nil, fmt.Errorf("list worktrees: %w", err)
	}

	return parseWorktreeList(string(out))
}

// parseWorktreeList parses the porcelain output of git worktree list.
// Format:
//
//	worktree /path/to/worktree
//	HEAD abc123
//	branch refs/heads/branch-name
//	<blank line>
func parseWorktreeList(output string) ([]domain.WorktreeInfo, error) {
	var worktrees []domain.WorktreeInfo
	var current domain.WorktreeInfo

	scanner := bufio.NewScanner(strings.NewReader(output))
	for scanner.Scan() {
		line := scanner.Text()

		switch {
		case strings.HasPrefix(line, "worktree "):
			current.Path = strings.TrimPrefix(line, "worktree ")
		case strings.HasPrefix(line, "HEAD "):
			current.Head = strings.TrimPrefix(line, "HEAD ")
		case strings.HasPrefix(line, "branch "):
			ref := strings.TrimPrefix(line, "branch ")
			current.Branch = strings.TrimPrefix(ref, "refs/heads/")
		case line == "":
			if current.Path != "" {
				worktrees = append(worktrees, current)
			}
			current = domain.WorktreeInfo{}
		}
	}

	// Handle last entry if no trailing newline
	if current.Path != "" {
		worktrees = append(worktrees, current)
	}

	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("parse worktree list: %w", err)
	}

	return worktrees, nil
}

// Prune removes registrations of worktrees whose directory no longer exists.
func (c *Client) Prune(repoRoot string) error {
	if out, err := c.git(repoRoot, "worktree", "prune"); err != nil {
		return fmt.Errorf("prune worktrees: %w: %s", err, strings.TrimSpace(string(out)))
	}
	return nil
}

func (c *Client) git(dir string, args ...string) ([]byte, error) {
	cmd := exec.Command("git", args...)
	cmd.Dir = dir
	return cmd.CombinedOutput()
}

// branchExists checks if a branch exists in the repository.
func branchExists(repoRoot, branch string) (bool, error) {
	cmd := exec.Command("git", "show-ref", "--verify", "--quiet", "refs/heads/"+branch)
	cmd.Dir = repoRoot

	err := cmd.Run()
	if err == nil {
		return true, nil
	}
	// Exit code 1 means branch doesn't exist
	var exitErr *exec.ExitError
	if errors.As(err, &exitErr) && exitErr.ExitCode() == 1 {
		return false, nil
	}
	return false, fmt.Errorf("check branch exists: %w", err)
}
