// Package detector finds completion markers in task workspaces.
package detector

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/runoshun/git-sprout/internal/domain"
)

// debounce coalesces bursts of file events.
const debounce = 50 * time.Millisecond

// Detector inspects workspaces for completion markers.
type Detector struct{}

// New creates a detector.
func New() *Detector {
	return &Detector{}
}

// Ensure Detector implements the completion ports.
var (
	_ domain.CompletionDetector = (*Detector)(nil)
	_ domain.CompletionWatcher  = (*Detector)(nil)
)

// IsComplete reports whether the workspace carries a completion marker:
// any TASK_COMPLETE* file in .sprout/, or a TASK_COMPLETE file at the top level.
// Only the two directories are listed; nothing is walked.
func (d *Detector) IsComplete(workspacePath string) bool {
	entries, err := os.ReadDir(filepath.Join(workspacePath, domain.TaskContextDir))
	if err == nil {
		for _, e := range entries {
			if !e.IsDir() && isMarker(e.Name()) {
				return true
			}
		}
	}

	info, err := os.Stat(filepath.Join(workspacePath, domain.LegacyCompletionMarker))
	return err == nil && info.Mode().IsRegular()
}

func isMarker(name string) bool {
	return strings.HasPrefix(name, domain.CompletionMarker)
}

// WaitForCompletion blocks until one of workspaces becomes complete and returns it.
// Workspaces that are already complete are returned immediately.
func (d *Detector) WaitForCompletion(ctx context.Context, workspaces []string) (string, error) {
	if len(workspaces) == 0 {
		return "", errors.New("no workspaces to watch")
	}

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return "", fmt.Errorf("create watcher: %w", err)
	}
	defer watcher.Close()

	// dir -> owning workspace
	owners := make(map[string]string)
	watch := func(dir, ws string) {
		if _, ok := owners[dir]; ok {
			return
		}
		if err := watcher.Add(dir); err == nil {
			owners[dir] = ws
		}
	}
	for _, ws := range workspaces {
		watch(ws, ws)
		watch(filepath.Join(ws, domain.TaskContextDir), ws)
	}

	// Checked after the watches are in place so nothing slips in between
	for _, ws := range workspaces {
		if d.IsComplete(ws) {
			return ws, nil
		}
	}

	timer := time.NewTimer(debounce)
	if !timer.Stop() {
		<-timer.C
	}
	pending := make(map[string]bool)

	for {
		select {
		case <-ctx.Done():
			return "", ctx.Err()

		case event, ok := <-watcher.Events:
			if !ok {
				return "", errors.New("watcher closed")
			}
			if event.Op&(fsnotify.Create|fsnotify.Write|fsnotify.Rename) == 0 {
				continue
			}
			ws, ok := owners[filepath.Dir(event.Name)]
			if !ok {
				continue
			}
			// .sprout/ created after the watch started
			if filepath.Base(event.Name) == domain.TaskContextDir {
				watch(event.Name, ws)
			}
			pending[ws] = true
			timer.Reset(debounce)

		case <-timer.C:
			for ws := range pending {
				if d.IsComplete(ws) {
					return ws, nil
				}
			}
			pending = make(map[string]bool)

		case err, ok := <-watcher.Errors:
			if !ok {
				return "", errors.New("watcher closed")
			}
			return "", fmt.Errorf("watch workspaces: %w", err)
		}
	}
}
