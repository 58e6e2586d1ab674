package usecase

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/runoshun/git-sprout/internal/domain"
	"github.com/runoshun/git-sprout/internal/usecase/shared"
)

// Integrator is the merge orchestrator. It brings a task branch into the
// task's base branch and records the task as merged.
type Integrator struct {
	tasks      domain.TaskRepository
	git        domain.Git
	workspaces domain.WorkspaceManager
	sessions   domain.SessionManager
	locker     domain.IntegrationLocker
	clock      domain.Clock
	logger     domain.Logger
}

// NewIntegrator creates a new Integrator.
func NewIntegrator(
	tasks domain.TaskRepository,
	git domain.Git,
	workspaces domain.WorkspaceManager,
	sessions domain.SessionManager,
	locker domain.IntegrationLocker,
	clock domain.Clock,
	logger domain.Logger,
) *Integrator {
	return &Integrator{
		tasks:      tasks,
		git:        git,
		workspaces: workspaces,
		sessions:   sessions,
		locker:     locker,
		clock:      clock,
		logger:     logger,
	}
}

// Integrate runs the integration sequence for task:
//
//  1. Preflight: the workspace must exist
//  2. Quarantine: local-only files are kept out of the commit
//  3. Commit stray changes in the workspace
//  4. Reconcile with the remote copy of the base branch (bounded, non-fatal)
//  5. Rebase the task branch (or merge it in a detached checkout); quarantined
//     paths the task committed are reverted so they never reach the base branch
//  6. Locate the checkout that has the base branch, if any
//  7. Fast-forward the base branch to the result
//  8. Restore quarantined files at that checkout
//  9. Tear down the session and the workspace (warnings only)
//  10. Record the task as merged
//
// Any failure up to step 8 returns a *domain.IntegrationError and leaves the
// task unchanged, so the call can be retried. The base branch only moves in step 7.
// Integrations into one repository are serialized by the integration lock.
func (in *Integrator) Integrate(ctx context.Context, task *domain.Task, cfg domain.MergeConfig) error {
	if !task.Status.CanMerge() {
		return in.fail(task, domain.StepPreflight,
			fmt.Errorf("%w: %s task cannot be merged", domain.ErrInvalidTransition, task.Status), nil, "")
	}

	release, err := in.locker.Lock(ctx, task.ProjectPath)
	if err != nil {
		return in.fail(task, domain.StepPreflight, fmt.Errorf("acquire integration lock: %w", err), nil,
			shared.RetryRemedy(task, "Wait for the other integration to finish"))
	}
	defer release()

	ws := task.WorkspacePath
	if info, statErr := os.Stat(ws); statErr != nil || !info.IsDir() {
		return in.fail(task, domain.StepPreflight, fmt.Errorf("%w: %s", domain.ErrWorkspaceMissing, ws), nil,
			fmt.Sprintf("The workspace is gone and cannot be integrated. Discard the task with: sprout kill %s", task.ShortID()))
	}

	if err := moveLegacyMarker(ws); err != nil {
		return in.fail(task, domain.StepQuarantine, err, nil, "")
	}
	changed, err := in.git.ChangedPaths(ws)
	if err != nil {
		return in.fail(task, domain.StepCommit, fmt.Errorf("%w: %v", domain.ErrCommitFailed, err), nil, "")
	}
	stray, held := splitQuarantined(changed, cfg)
	if len(held) > 0 {
		in.logger.Info(task.ID, "merge", "keeping local-only files out of the branch: "+strings.Join(held, ", "))
	}

	if len(stray) > 0 {
		msg := fmt.Sprintf("sprout: commit remaining changes of %s", task.Name)
		if err := in.git.CommitAll(ws, msg, held); err != nil {
			return in.fail(task, domain.StepCommit, fmt.Errorf("%w: %v", domain.ErrCommitFailed, err), nil,
				shared.RetryRemedy(task, "Commit the changes in "+ws+" by hand"))
		}
		in.logger.Info(task.ID, "merge", fmt.Sprintf("committed %d stray change(s)", len(stray)))
	}

	onto := in.upstreamTarget(ctx, task, cfg)

	var tip string
	if cfg.Strategy == domain.StrategyMerge {
		tip, err = in.mergeInto(ctx, task, onto, cfg)
	} else {
		tip, err = in.rebaseOnto(ctx, task, onto, cfg)
	}
	if err != nil {
		return err
	}

	loc, err := in.locateBase(task)
	if err != nil {
		return in.fail(task, domain.StepLocate, err, nil, "")
	}

	var snap *quarantineSnapshot
	if loc != "" {
		others, err := in.blockingChanges(loc, tip, cfg)
		if err != nil {
			return in.fail(task, domain.StepLocate, err, nil, "")
		}
		if len(others) > 0 {
			return in.fail(task, domain.StepLocate,
				fmt.Errorf("%w: %s is checked out at %s with uncommitted changes", domain.ErrBranchInUseElsewhere, task.BaseBranch, loc),
				others, shared.RetryRemedy(task, "Commit or stash the changes in "+loc))
		}
		if snap, err = snapshotQuarantine(loc, cfg.Quarantine); err != nil {
			return in.fail(task, domain.StepQuarantine, err, nil, "")
		}
	}

	if err := in.fastForward(task, loc, tip); err != nil {
		return err
	}

	if snap != nil {
		if err := snap.restore(); err != nil {
			return in.fail(task, domain.StepRestore, err, nil,
				fmt.Sprintf("%s now contains the task; restore the local-only files in %s by hand, then run: sprout merge %s",
					task.BaseBranch, loc, task.ShortID()))
		}
	}

	in.teardown(task)

	if err := task.MarkMerged(in.clock.Now()); err != nil {
		return in.fail(task, domain.StepRecord, err, nil, "")
	}
	if err := in.tasks.Update(ctx, task); err != nil {
		return in.fail(task, domain.StepRecord, fmt.Errorf("update task: %w", err), nil, "")
	}
	in.logger.Info(task.ID, "merge", fmt.Sprintf("merged into %s at %s", task.BaseBranch, shortHash(tip)))
	return nil
}

// upstreamTarget fetches the base branch from the configured remote and returns
// what to integrate onto: the remote-tracking ref when it is ahead of the local
// base branch, otherwise the local base branch. Fetch failures only warn.
func (in *Integrator) upstreamTarget(ctx context.Context, task *domain.Task, cfg domain.MergeConfig) string {
	base := task.BaseBranch
	if cfg.Remote == "" {
		return base
	}
	has, err := in.git.HasRemote(task.ProjectPath, cfg.Remote)
	if err != nil || !has {
		return base
	}

	timeout := cfg.FetchTimeout
	if timeout <= 0 {
		timeout = domain.DefaultFetchTimeout
	}
	fetchCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()
	if err := in.git.Fetch(fetchCtx, task.WorkspacePath, cfg.Remote, base); err != nil {
		in.logger.Warn(task.ID, "merge", fmt.Sprintf("fetch %s/%s failed, using local %s: %v", cfg.Remote, base, base, err))
	}

	remoteRef := "refs/remotes/" + cfg.Remote + "/" + base
	if _, err := in.git.RevParse(task.ProjectPath, remoteRef); err != nil {
		return base
	}
	ahead, err := in.git.IsAncestor(task.ProjectPath, "refs/heads/"+base, remoteRef)
	if err != nil || !ahead {
		in.logger.Info(task.ID, "merge", fmt.Sprintf("local %s is not behind %s, using it as is", base, remoteRef))
		return base
	}
	return remoteRef
}

// rebaseOnto replays the task branch onto onto inside the task workspace
// and returns the new tip.
func (in *Integrator) rebaseOnto(ctx context.Context, task *domain.Task, onto string, cfg domain.MergeConfig) (string, error) {
	files, err := in.git.Rebase(ctx, task.WorkspacePath, onto)
	if err != nil {
		in.notify(task, "rebase")
		return "", in.fail(task, domain.StepRebase, err, files, shared.RebaseRemedy(task, onto))
	}
	if err := in.dropQuarantined(task, onto, cfg); err != nil {
		return "", err
	}
	tip, err := in.git.RevParse(task.WorkspacePath, "HEAD")
	if err != nil {
		return "", in.fail(task, domain.StepRebase, err, nil, "")
	}
	return tip, nil
}

// mergeInto creates a merge commit of the task branch on top of onto in a
// detached checkout of the task workspace, then switches the workspace back
// to the task branch. Returns the merge commit.
func (in *Integrator) mergeInto(ctx context.Context, task *domain.Task, onto string, cfg domain.MergeConfig) (string, error) {
	ws := task.WorkspacePath
	fork, err := in.git.MergeBase(ws, onto, "HEAD")
	if err != nil {
		return "", in.fail(task, domain.StepMerge, err, nil, "")
	}
	if err := in.dropQuarantined(task, fork, cfg); err != nil {
		return "", err
	}

	if err := in.git.CheckoutDetached(ws, onto); err != nil {
		return "", in.fail(task, domain.StepMerge, err, nil, "")
	}
	defer func() {
		if err := in.git.Checkout(ws, task.Branch); err != nil {
			in.logger.Warn(task.ID, "merge", fmt.Sprintf("switch workspace back to %s: %v", task.Branch, err))
		}
	}()

	msg := fmt.Sprintf("Merge task %s (%s) into %s", task.Name, task.ShortID(), task.BaseBranch)
	files, err := in.git.Merge(ctx, ws, task.Branch, msg)
	if err != nil {
		in.notify(task, "merge")
		return "", in.fail(task, domain.StepMerge, err, files, shared.MergeRemedy(task, onto))
	}
	tip, err := in.git.RevParse(ws, "HEAD")
	if err != nil {
		return "", in.fail(task, domain.StepMerge, err, nil, "")
	}
	return tip, nil
}

// dropQuarantined commits quarantined paths that the task branch changed
// since against back to their state at against.
func (in *Integrator) dropQuarantined(task *domain.Task, against string, cfg domain.MergeConfig) error {
	ws := task.WorkspacePath
	changed, err := in.git.DiffNames(ws, against, "HEAD")
	if err != nil {
		return in.fail(task, domain.StepQuarantine, err, nil, "")
	}
	_, held := splitQuarantined(changed, cfg)
	if len(held) == 0 {
		return nil
	}

	msg := fmt.Sprintf("sprout: keep local-only files of %s out of %s", task.Name, task.BaseBranch)
	if err := in.git.RevertPaths(ws, against, msg, held); err != nil {
		return in.fail(task, domain.StepQuarantine, err, held,
			shared.RetryRemedy(task, "Remove "+strings.Join(held, ", ")+" from the task branch by hand"))
	}
	in.logger.Info(task.ID, "merge", "reverted local-only files committed on the branch: "+strings.Join(held, ", "))
	return nil
}

// blockingChanges returns the uncommitted changes at the base checkout loc
// that a reset to tip would destroy: modified tracked paths, and untracked
// files that tip tracks. Quarantined paths are not reported.
func (in *Integrator) blockingChanges(loc, tip string, cfg domain.MergeConfig) ([]string, error) {
	tracked, untracked, err := in.git.WorktreeStatus(loc)
	if err != nil {
		return nil, err
	}
	blocking, _ := splitQuarantined(tracked, cfg)
	if len(untracked) == 0 {
		return blocking, nil
	}

	incoming, err := in.git.DiffNames(loc, "HEAD", tip)
	if err != nil {
		return nil, err
	}
	incomingSet := make(map[string]bool, len(incoming))
	for _, p := range incoming {
		incomingSet[p] = true
	}
	for _, p := range untracked {
		if incomingSet[p] && !cfg.IsQuarantined(p) {
			blocking = append(blocking, p)
		}
	}
	return blocking, nil
}

// locateBase returns the worktree that has the base branch checked out,
// or "" when no checkout has it.
func (in *Integrator) locateBase(task *domain.Task) (string, error) {
	worktrees, err := in.workspaces.List(task.ProjectPath)
	if err != nil {
		return "", fmt.Errorf("list worktrees: %w", err)
	}
	for _, wt := range worktrees {
		if wt.Branch == task.BaseBranch {
			return filepath.Clean(wt.Path), nil
		}
	}
	return "", nil
}

// fastForward moves the base branch to tip: by hard reset of the checkout
// at loc, or by a guarded ref update when nothing has it checked out.
func (in *Integrator) fastForward(task *domain.Task, loc, tip string) error {
	base := task.BaseBranch
	old, err := in.git.RevParse(task.ProjectPath, "refs/heads/"+base)
	if err != nil {
		return in.fail(task, domain.StepIntegrate, fmt.Errorf("%w: resolve %s: %v", domain.ErrFastForwardFailed, base, err), nil, "")
	}
	ok, err := in.git.IsAncestor(task.ProjectPath, old, tip)
	if err != nil {
		return in.fail(task, domain.StepIntegrate, fmt.Errorf("%w: %v", domain.ErrFastForwardFailed, err), nil, "")
	}
	if !ok {
		return in.fail(task, domain.StepIntegrate,
			fmt.Errorf("%w: %s moved during integration", domain.ErrFastForwardFailed, base), nil,
			shared.RetryRemedy(task, base+" was left unchanged; nothing to undo"))
	}

	if loc != "" {
		err = in.git.ResetHard(loc, tip)
	} else {
		err = in.git.UpdateBranch(task.ProjectPath, base, tip, old)
	}
	if err != nil {
		return in.fail(task, domain.StepIntegrate, fmt.Errorf("%w: %v", domain.ErrFastForwardFailed, err), nil,
			shared.RetryRemedy(task, "Check the state of "+base))
	}
	in.logger.Debug(task.ID, "merge", fmt.Sprintf("%s: %s -> %s", base, shortHash(old), shortHash(tip)))
	return nil
}

// teardown stops the session and removes the workspace. The task branch is kept.
func (in *Integrator) teardown(task *domain.Task) {
	if _, err := shared.StopSession(in.sessions, task); err != nil {
		in.logger.Warn(task.ID, "merge", fmt.Sprintf("stop session: %v", err))
	}
	if err := in.workspaces.Remove(task.ProjectPath, task.WorkspacePath, true); err != nil {
		in.logger.Warn(task.ID, "merge", fmt.Sprintf("remove workspace %s: %v", task.WorkspacePath, err))
	}
}

// notify tells a running session about a conflict.
func (in *Integrator) notify(task *domain.Task, kind string) {
	if err := shared.NotifySession(in.sessions, task, shared.ConflictNotification(task, kind)); err != nil {
		in.logger.Warn(task.ID, "merge", err.Error())
	}
}

func (in *Integrator) fail(task *domain.Task, step domain.IntegrationStep, err error, files []string, remedy string) error {
	in.logger.Error(task.ID, "merge", fmt.Sprintf("%s: %v", step, err))
	return &domain.IntegrationError{
		Err:       err,
		Files:     files,
		Step:      step,
		TaskID:    task.ID,
		Workspace: task.WorkspacePath,
		Remedy:    remedy,
	}
}

func shortHash(h string) string {
	if len(h) > 7 {
		return h[:7]
	}
	return h
}
