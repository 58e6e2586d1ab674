// Package lock serializes integrations into a repository across processes.
package lock

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/gofrs/flock"

	"github.com/runoshun/git-sprout/internal/domain"
)

// retryDelay is how often a held lock is polled.
const retryDelay = 100 * time.Millisecond

// FileLocker implements domain.IntegrationLocker with an advisory file lock
// inside the repository's git directory.
type FileLocker struct{}

// NewFileLocker creates a new file locker.
func NewFileLocker() *FileLocker {
	return &FileLocker{}
}

// Ensure FileLocker implements domain.IntegrationLocker interface.
var _ domain.IntegrationLocker = (*FileLocker)(nil)

// Lock blocks until the integration lock of repoRoot is held or ctx is done.
func (l *FileLocker) Lock(ctx context.Context, repoRoot string) (func(), error) {
	path := domain.IntegrationLockPath(repoRoot)
	if err := os.MkdirAll(filepath.Dir(path), 0o750); err != nil {
		return nil, fmt.Errorf("create lock dir: %w", err)
	}

	fileLock := flock.New(path)
	locked, err := fileLock.TryLockContext(ctx, retryDelay)
	if err != nil {
		return nil, fmt.Errorf("acquire integration lock: %w", err)
	}
	if !locked {
		return nil, fmt.Errorf("acquire integration lock: %s is held", path)
	}
	return func() { _ = fileLock.Unlock() }, nil
}
