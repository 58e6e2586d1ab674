package usecase

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/runoshun/git-sprout/internal/domain"
)

// splitQuarantined separates local-only paths from the rest of a change list.
func splitQuarantined(paths []string, cfg domain.MergeConfig) (stray, held []string) {
	for _, p := range paths {
		if cfg.IsQuarantined(p) {
			held = append(held, p)
		} else {
			stray = append(stray, p)
		}
	}
	return stray, held
}

// moveLegacyMarker moves a top-level completion marker into the context
// directory, which is excluded from version control, so it is never committed.
func moveLegacyMarker(workspace string) error {
	src := filepath.Join(workspace, domain.LegacyCompletionMarker)
	info, err := os.Lstat(src)
	if errors.Is(err, os.ErrNotExist) {
		return nil
	}
	if err != nil {
		return err
	}
	if info.IsDir() {
		return nil
	}

	dir := filepath.Join(workspace, domain.TaskContextDir)
	if err := os.MkdirAll(dir, 0o750); err != nil {
		return fmt.Errorf("create context dir: %w", err)
	}
	if err := os.Rename(src, filepath.Join(dir, domain.CompletionMarker)); err != nil {
		return fmt.Errorf("move completion marker: %w", err)
	}
	return nil
}

// savedFile is the pre-integration state of one quarantined path.
type savedFile struct {
	data    []byte
	mode    os.FileMode
	present bool
}

// quarantineSnapshot holds quarantined files of a checkout so they can be put
// back after the checkout is reset.
type quarantineSnapshot struct {
	files map[string]savedFile
	dir   string
}

// snapshotQuarantine records the quarantined files of the checkout at dir.
// Paths that are not regular files (directories, symlinks) are left alone.
func snapshotQuarantine(dir string, paths []string) (*quarantineSnapshot, error) {
	s := &quarantineSnapshot{dir: dir, files: make(map[string]savedFile)}
	for _, p := range paths {
		full := filepath.Join(dir, filepath.FromSlash(p))
		info, err := os.Lstat(full)
		if errors.Is(err, os.ErrNotExist) {
			s.files[p] = savedFile{}
			continue
		}
		if err != nil {
			return nil, fmt.Errorf("inspect %s: %w", p, err)
		}
		if !info.Mode().IsRegular() {
			continue
		}
		data, err := os.ReadFile(full)
		if err != nil {
			return nil, fmt.Errorf("read %s: %w", p, err)
		}
		s.files[p] = savedFile{data: data, mode: info.Mode().Perm(), present: true}
	}
	return s, nil
}

// restore writes every recorded file back and deletes the ones that did not exist.
func (s *quarantineSnapshot) restore() error {
	for p, f := range s.files {
		full := filepath.Join(s.dir, filepath.FromSlash(p))
		if !f.present {
			if err := os.Remove(full); err != nil && !errors.Is(err, os.ErrNotExist) {
				return fmt.Errorf("remove %s: %w", p, err)
			}
			continue
		}
		if err := os.MkdirAll(filepath.Dir(full), 0o750); err != nil {
			return fmt.Errorf("restore %s: %w", p, err)
		}
		if err := os.WriteFile(full, f.data, f.mode); err != nil {
			return fmt.Errorf("restore %s: %w", p, err)
		}
		if err := os.Chmod(full, f.mode); err != nil {
			return fmt.Errorf("restore %s: %w", p, err)
		}
	}
	return nil
}
