// Package git provides git operations.
//
// Mutating operations shell out to the git CLI, always with an explicit
// working directory. Read-only ref inspection goes through go-git, with a CLI
// fallback when the repository cannot be opened by go-git.
package git

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"sort"
	"strings"

	gogit "github.com/go-git/go-git/v5"
	"github.com/go-git/go-git/v5/plumbing"

	"github.com/runoshun/git-sprout/internal/domain"
)

// Client provides git operations.
type Client struct{}

// NewClient creates a new git client.
func NewClient() *Client {
	return &Client{}
}

// Ensure Client implements domain.Git interface.
var _ domain.Git = (*Client)(nil)

// run executes git in dir and returns its combined output.
func run(ctx context.Context, dir string, args ...string) ([]byte, error) {
	cmd := exec.CommandContext(ctx, "git", args...)
	cmd.Dir = dir
	// Never open an editor (rebase, merge)
	cmd.Env = append(os.Environ(), "GIT_EDITOR=true", "GIT_TERMINAL_PROMPT=0")
	out, err := cmd.CombinedOutput()
	if err != nil {
		return out, fmt.Errorf("git %s: %w: %s", args[0], err, strings.TrimSpace(string(out)))
	}
	return out, nil
}

// exitCode returns the exit code of err, or -1 if it did not come from a finished process.
func exitCode(err error) int {
	var exitErr *exec.ExitError
	if errors.As(err, &exitErr) {
		return exitErr.ExitCode()
	}
	return -1
}

// open opens the repository with go-git.
func open(repoRoot string) (*gogit.Repository, error) {
	return gogit.PlainOpenWithOptions(repoRoot, &gogit.PlainOpenOptions{
		DetectDotGit:          true,
		EnableDotGitCommonDir: true,
	})
}

// RepoInfo resolves the repository containing dir.
// This works correctly both in the main repository and inside worktrees:
// Root is always the main repository root.
func (c *Client) RepoInfo(dir string) (domain.RepoInfo, error) {
	// First check if we're in a git repository at all
	cmd := exec.Command("git", "rev-parse", "--git-common-dir")
	cmd.Dir = dir
	out, err := cmd.Output()
	if err != nil {
		return domain.RepoInfo{}, domain.ErrNotGitRepository
	}
	commonDir := strings.TrimSpace(string(out))

	// Get the toplevel (this returns the worktree root if in a worktree)
	cmd = exec.Command("git", "rev-parse", "--show-toplevel")
	cmd.Dir = dir
	toplevel, err := cmd.Output()
	if err != nil {
		return domain.RepoInfo{}, fmt.Errorf("failed to find toplevel: %w", err)
	}

	// Make commonDir absolute if it's relative
	if !filepath.IsAbs(commonDir) {
		commonDir = filepath.Join(dir, commonDir)
	}
	commonDir = filepath.Clean(commonDir)

	return domain.RepoInfo{
		Root:      filepath.Dir(commonDir),
		CommonDir: commonDir,
		Toplevel:  filepath.Clean(strings.TrimSpace(string(toplevel))),
	}, nil
}

// DefaultBranch returns the branch new tasks are based on by default.
// Order: origin/HEAD target, the branch checked out in the main repository,
// then "main" or "master" if present.
func (c *Client) DefaultBranch(repoRoot string) (string, error) {
	repo, err := open(repoRoot)
	if err != nil {
		return c.defaultBranchCLI(repoRoot)
	}

	if ref, err := repo.Reference(plumbing.NewRemoteHEADReferenceName("origin"), false); err == nil &&
		ref.Type() == plumbing.SymbolicReference {
		return strings.TrimPrefix(ref.Target().Short(), "origin/"), nil
	}

	if head, err := repo.Reference(plumbing.HEAD, false); err == nil &&
		head.Type() == plumbing.SymbolicReference && head.Target().IsBranch() {
		return head.Target().Short(), nil
	}

	for _, name := range []string{"main", "master"} {
		if _, err := repo.Reference(plumbing.NewBranchReferenceName(name), false); err == nil {
			return name, nil
		}
	}

	return "", fmt.Errorf("cannot determine default branch of %s", repoRoot)
}

// defaultBranchCLI is the CLI fallback of DefaultBranch.
func (c *Client) defaultBranchCLI(repoRoot string) (string, error) {
	out, err := run(context.Background(), repoRoot, "symbolic-ref", "--quiet", "--short", "refs/remotes/origin/HEAD")
	if err == nil {
		return strings.TrimPrefix(strings.TrimSpace(string(out)), "origin/"), nil
	}
	out, err = run(context.Background(), repoRoot, "symbolic-ref", "--quiet", "--short", "HEAD")
	if err == nil {
		return strings.TrimSpace(string(out)), nil
	}
	return "", fmt.Errorf("cannot determine default branch of %s", repoRoot)
}

// BranchExists checks if a branch exists.
func (c *Client) BranchExists(repoRoot, branch string) (bool, error) {
	repo, err := open(repoRoot)
	if err != nil {
		return c.branchExistsCLI(repoRoot, branch)
	}

	_, err = repo.Reference(plumbing.NewBranchReferenceName(branch), false)
	if err == nil {
		return true, nil
	}
	if errors.Is(err, plumbing.ErrReferenceNotFound) {
		return false, nil
	}
	return false, fmt.Errorf("failed to check branch existence: %w", err)
}

// branchExistsCLI is the CLI fallback of BranchExists.
func (c *Client) branchExistsCLI(repoRoot, branch string) (bool, error) {
	//nolint:gosec // branch name is used as argument, not shell command
	cmd := exec.Command("git", "show-ref", "--verify", "--quiet", "refs/heads/"+branch)
	cmd.Dir = repoRoot
	err := cmd.Run()
	if err == nil {
		return true, nil
	}
	// Exit code 1 means ref not found
	if exitCode(err) == 1 {
		return false, nil
	}
	return false, fmt.Errorf("failed to check branch existence: %w", err)
}

// ListBranches returns a sorted list of all local branches.
func (c *Client) ListBranches(repoRoot string) ([]string, error) {
	repo, err := open(repoRoot)
	if err != nil {
		return c.listBranchesCLI(repoRoot)
	}

	iter, err := repo.Branches()
	if err != nil {
		return nil, fmt.Errorf("failed to list branches: %w", err)
	}
	defer iter.Close()

	var branches []string
	if err := iter.ForEach(func(ref *plumbing.Reference) error {
		branches = append(branches, ref.Name().Short())
		return nil
	}); err != nil {
		return nil, fmt.Errorf("failed to list branches: %w", err)
	}
	sort.Strings(branches)
	return branches, nil
}

// listBranchesCLI is the CLI fallback of ListBranches.
func (c *Client) listBranchesCLI(repoRoot string) ([]string, error) {
	out, err := run(context.Background(), repoRoot, "branch", "--format=%(refname:short)")
	if err != nil {
		return nil, fmt.Errorf("failed to list branches: %w", err)
	}

	var branches []string
	for _, line := range strings.Split(strings.TrimSpace(string(out)), "\n") {
		if line != "" {
			branches = append(branches, strings.TrimSpace(line))
		}
	}
	sort.Strings(branches)
	return branches, nil
}

// HasRemote checks if a remote with the given name is configured.
func (c *Client) HasRemote(repoRoot, remote string) (bool, error) {
	repo, err := open(repoRoot)
	if err != nil {
		out, cliErr := run(context.Background(), repoRoot, "remote")
		if cliErr != nil {
			return false, cliErr
		}
		for _, line := range strings.Split(string(out), "\n") {
			if strings.TrimSpace(line) == remote {
				return true, nil
			}
		}
		return false, nil
	}

	_, err = repo.Remote(remote)
	if err == nil {
		return true, nil
	}
	if errors.Is(err, gogit.ErrRemoteNotFound) {
		return false, nil
	}
	return false, fmt.Errorf("failed to look up remote %s: %w", remote, err)
}

// RevParse resolves a revision to a commit hash.
func (c *Client) RevParse(dir, rev string) (string, error) {
	out, err := run(context.Background(), dir, "rev-parse", "--verify", "--quiet", rev+"^{commit}")
	if err != nil {
		return "", fmt.Errorf("resolve %s: %w", rev, err)
	}
	return strings.TrimSpace(string(out)), nil
}

// IsAncestor reports whether ancestor is reachable from descendant.
func (c *Client) IsAncestor(dir, ancestor, descendant string) (bool, error) {
	cmd := exec.Command("git", "merge-base", "--is-ancestor", ancestor, descendant)
	cmd.Dir = dir
	err := cmd.Run()
	if err == nil {
		return true, nil
	}
	if exitCode(err) == 1 {
		return false, nil
	}
	return false, fmt.Errorf("merge-base %s %s: %w", ancestor, descendant, err)
}

// ChangedPaths lists paths with uncommitted changes, untracked files included.
func (c *Client) ChangedPaths(dir string) ([]string, error) {
	tracked, untracked, err := c.WorktreeStatus(dir)
	if err != nil {
		return nil, err
	}
	return append(tracked, untracked...), nil
}

// WorktreeStatus lists uncommitted changes of dir, split into changes to
// tracked paths and untracked files.
func (c *Client) WorktreeStatus(dir string) (tracked, untracked []string, err error) {
	out, err := run(context.Background(), dir, "status", "--porcelain", "-z", "--untracked-files=all")
	if err != nil {
		return nil, nil, fmt.Errorf("failed to check uncommitted changes: %w", err)
	}
	tracked, untracked = parseStatusZ(out)
	return tracked, untracked, nil
}

// parseStatusZ parses `git status --porcelain -z` output.
// Entries are "XY path"; renames and copies are followed by the original path.
func parseStatusZ(out []byte) (tracked, untracked []string) {
	entries := bytes.Split(out, []byte{0})
	for i := 0; i < len(entries); i++ {
		entry := string(entries[i])
		if len(entry) < 4 {
			continue
		}
		if entry[:2] == "??" {
			untracked = append(untracked, entry[3:])
			continue
		}
		tracked = append(tracked, entry[3:])
		if entry[0] == 'R' || entry[0] == 'C' {
			i++ // skip original path
		}
	}
	return tracked, untracked
}

// DiffNames lists the paths that differ between the commits from and to.
func (c *Client) DiffNames(dir, from, to string) ([]string, error) {
	out, err := run(context.Background(), dir, "diff", "--name-only", "--no-renames", "-z", from, to, "--")
	if err != nil {
		return nil, fmt.Errorf("diff %s %s: %w", from, to, err)
	}
	var paths []string
	for _, p := range bytes.Split(out, []byte{0}) {
		if len(p) > 0 {
			paths = append(paths, string(p))
		}
	}
	return paths, nil
}

// MergeBase returns the best common ancestor of a and b.
func (c *Client) MergeBase(dir, a, b string) (string, error) {
	out, err := run(context.Background(), dir, "merge-base", a, b)
	if err != nil {
		return "", fmt.Errorf("merge-base %s %s: %w", a, b, err)
	}
	return strings.TrimSpace(string(out)), nil
}

// RevertPaths commits paths back to their state in source on top of HEAD.
// Paths missing from source are removed from the index. The working tree
// is left alone, so local copies of the files survive.
func (c *Client) RevertPaths(dir, source, message string, paths []string) error {
	ctx := context.Background()
	args := append([]string{"reset", "-q", source, "--"}, paths...)
	if _, err := run(ctx, dir, args...); err != nil {
		return fmt.Errorf("reset paths to %s: %w", source, err)
	}
	if _, err := run(ctx, dir, "commit", "--no-verify", "-q", "-m", message); err != nil {
		return fmt.Errorf("commit: %w", err)
	}
	return nil
}

// CommitAll stages everything except exclude and commits it.
// Nothing is committed when only excluded paths changed.
func (c *Client) CommitAll(dir, message string, exclude []string) error {
	ctx := context.Background()
	if _, err := run(ctx, dir, "add", "-A"); err != nil {
		return fmt.Errorf("stage changes: %w", err)
	}

	if len(exclude) > 0 {
		args := append([]string{"reset", "-q", "--"}, exclude...)
		if _, err := run(ctx, dir, args...); err != nil {
			return fmt.Errorf("unstage excluded paths: %w", err)
		}
	}

	// Exit code 1 means there is something staged
	cmd := exec.Command("git", "diff", "--cached", "--quiet")
	cmd.Dir = dir
	err := cmd.Run()
	if err == nil {
		return nil
	}
	if exitCode(err) != 1 {
		return fmt.Errorf("check staged changes: %w", err)
	}

	if _, err := run(ctx, dir, "commit", "--no-verify", "-m", message); err != nil {
		return fmt.Errorf("commit: %w", err)
	}
	return nil
}

// Fetch fetches one branch of a remote into its remote-tracking ref.
func (c *Client) Fetch(ctx context.Context, dir, remote, branch string) error {
	if _, err := run(ctx, dir, "fetch", "--no-tags", remote, branch); err != nil {
		return fmt.Errorf("fetch %s/%s: %w", remote, branch, err)
	}
	return nil
}

// conflictFiles lists unmerged paths in dir.
func conflictFiles(dir string) []string {
	out, err := run(context.Background(), dir, "diff", "--name-only", "--diff-filter=U")
	if err != nil {
		return nil
	}
	var files []string
	for _, line := range strings.Split(strings.TrimSpace(string(out)), "\n") {
		if line != "" {
			files = append(files, line)
		}
	}
	return files
}

// Rebase rebases the branch checked out in dir onto onto.
// On conflict the rebase is aborted so the branch is left as it was.
func (c *Client) Rebase(ctx context.Context, dir, onto string) ([]string, error) {
	// --autostash carries uncommitted quarantined files across the rebase
	out, err := run(ctx, dir, "rebase", "--autostash", onto)
	if err == nil {
		return nil, nil
	}

	files := conflictFiles(dir)
	// Abort the rebase so we don't leave things in a bad state
	_, _ = run(context.Background(), dir, "rebase", "--abort")

	if len(files) > 0 || strings.Contains(string(out), "CONFLICT") || strings.Contains(string(out), "could not apply") {
		return files, fmt.Errorf("rebase onto %s: %w", onto, domain.ErrRebaseConflict)
	}
	return nil, fmt.Errorf("rebase onto %s: %w", onto, err)
}

// Merge merges rev into the checkout in dir with a merge commit.
// On conflict the merge is aborted so the checkout is left as it was.
func (c *Client) Merge(ctx context.Context, dir, rev, message string) ([]string, error) {
	out, err := run(ctx, dir, "merge", "--no-ff", "--no-verify", "-m", message, rev)
	if err == nil {
		return nil, nil
	}

	files := conflictFiles(dir)
	_, _ = run(context.Background(), dir, "merge", "--abort")

	if len(files) > 0 || strings.Contains(string(out), "CONFLICT") {
		return files, fmt.Errorf("merge %s: %w", rev, domain.ErrMergeConflict)
	}
	return nil, fmt.Errorf("merge %s: %w", rev, err)
}

// CheckoutDetached detaches HEAD in dir at rev.
func (c *Client) CheckoutDetached(dir, rev string) error {
	if _, err := run(context.Background(), dir, "checkout", "--quiet", "--detach", rev); err != nil {
		return fmt.Errorf("checkout %s: %w", rev, err)
	}
	return nil
}

// Checkout switches dir to branch.
func (c *Client) Checkout(dir, branch string) error {
	if _, err := run(context.Background(), dir, "checkout", "--quiet", branch); err != nil {
		return fmt.Errorf("checkout %s: %w", branch, err)
	}
	return nil
}

// ResetHard resets the checkout in dir to rev, discarding changes.
func (c *Client) ResetHard(dir, rev string) error {
	if _, err := run(context.Background(), dir, "reset", "--quiet", "--hard", rev); err != nil {
		return fmt.Errorf("reset to %s: %w", rev, err)
	}
	return nil
}

// UpdateBranch moves branch to newRev if it still points at oldRev.
func (c *Client) UpdateBranch(dir, branch, newRev, oldRev string) error {
	args := []string{"update-ref", "-m", "sprout: fast-forward " + branch, "refs/heads/" + branch, newRev}
	if oldRev != "" {
		args = append(args, oldRev)
	}
	if _, err := run(context.Background(), dir, args...); err != nil {
		return fmt.Errorf("update %s: %w", branch, err)
	}
	return nil
}

// DeleteBranch deletes a branch.
// If force is true, it uses -D (force delete), otherwise -d.
func (c *Client) DeleteBranch(repoRoot, branch string, force bool) error {
	flag := "-d"
	if force {
		flag = "-D"
	}
	if _, err := run(context.Background(), repoRoot, "branch", flag, branch); err != nil {
		return fmt.Errorf("failed to delete branch %s: %w", branch, err)
	}
	return nil
}
