// SPDX-License-Identifier: MPL-2.0

package scratch

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/spf13/afero"
)

const (
	// dirPrefix starts every workspace directory name.
	dirPrefix = "pylayer-"

	downloadDirName = "download"
	cacheDirName    = "cache"

	dirMode os.FileMode = 0o755
)

// ErrInvalidModule is returned when a workspace is requested for an empty
// module identifier.
var ErrInvalidModule = errors.New("module identifier must not be empty")

// Workspace is one invocation's scratch namespace.
type Workspace struct {
	fs afero.Fs

	// ID is the unique suffix of this workspace.
	ID string
	// Root is the workspace directory.
	Root string
	// DownloadDir receives the distribution archive and the relocated layer.
	DownloadDir string
	// CacheDir is handed to the package resolver as its cache.
	CacheDir string
}

// New creates a fresh workspace for module under base.
func New(fs afero.Fs, base, module string) (*Workspace, error) {
	if strings.TrimSpace(module) == "" {
		return nil, ErrInvalidModule
	}

	id := uuid.NewString()
	root := filepath.Join(base, namespacePrefix(module)+id)
	w := &Workspace{
		fs:          fs,
		ID:          id,
		Root:        root,
		DownloadDir: filepath.Join(root, downloadDirName),
		CacheDir:    filepath.Join(root, cacheDirName),
	}

	for _, dir := range []string{w.DownloadDir, w.CacheDir} {
		if err := Prepare(fs, dir); err != nil {
			_ = fs.RemoveAll(root) // Best-effort cleanup
			return nil, err
		}
	}
	return w, nil
}

// Fs returns the filesystem the workspace lives on.
func (w *Workspace) Fs() afero.Fs { return w.fs }

// DropCache removes the resolver cache directory.
func (w *Workspace) DropCache() error {
	if err := w.fs.RemoveAll(w.CacheDir); err != nil {
		return fmt.Errorf("remove cache dir %s: %w", w.CacheDir, err)
	}
	return nil
}

// Close removes the workspace and everything in it. It is safe to call
// more than once.
func (w *Workspace) Close() error {
	if err := w.fs.RemoveAll(w.Root); err != nil {
		return fmt.Errorf("remove workspace %s: %w", w.Root, err)
	}
	return nil
}

// Prepare makes dir an empty directory. An existing directory is cleared
// rather than treated as an error.
func Prepare(fs afero.Fs, dir string) error {
	info, err := fs.Stat(dir)
	switch {
	case err == nil && info.IsDir():
		return clearDir(fs, dir)
	case err == nil:
		return fmt.Errorf("scratch path %s exists and is not a directory", dir)
	case !os.IsNotExist(err):
		return fmt.Errorf("stat scratch dir %s: %w", dir, err)
	}
	if err := fs.MkdirAll(dir, dirMode); err != nil {
		return fmt.Errorf("create scratch dir %s: %w", dir, err)
	}
	return nil
}

// Sweep removes workspaces for module under base whose modification time is
// older than maxAge relative to now. It returns the removed directories.
// Errors on individual directories are collected; the sweep continues.
func Sweep(fs afero.Fs, base, module string, maxAge time.Duration, now time.Time) ([]string, error) {
	entries, err := afero.ReadDir(fs, base)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("read scratch base %s: %w", base, err)
	}

	prefix := namespacePrefix(module)
	var removed []string
	var errs []error
	for _, entry := range entries {
		if !entry.IsDir() || !strings.HasPrefix(entry.Name(), prefix) {
			continue
		}
		if now.Sub(entry.ModTime()) < maxAge {
			continue
		}
		dir := filepath.Join(base, entry.Name())
		if err := fs.RemoveAll(dir); err != nil {
			errs = append(errs, fmt.Errorf("remove stale workspace %s: %w", dir, err))
			continue
		}
		removed = append(removed, dir)
	}
	return removed, errors.Join(errs...)
}

// clearDir removes the contents of dir, keeping dir itself.
func clearDir(fs afero.Fs, dir string) error {
	entries, err := afero.ReadDir(fs, dir)
	if err != nil {
		return fmt.Errorf("read scratch dir %s: %w", dir, err)
	}
	for _, entry := range entries {
		if err := fs.RemoveAll(filepath.Join(dir, entry.Name())); err != nil {
			return fmt.Errorf("clear scratch dir %s: %w", dir, err)
		}
	}
	return nil
}

// namespacePrefix is the directory name prefix shared by all workspaces of
// one module.
func namespacePrefix(module string) string {
	return dirPrefix + sanitize(module) + "-"
}

// sanitize maps a module identifier (which may carry version specifiers
// such as "numpy==1.19") onto a safe directory name component.
func sanitize(module string) string {
	var sb strings.Builder
	for _, r := range strings.TrimSpace(module) {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9', r == '.', r == '_':
			sb.WriteRune(r)
		default:
			sb.WriteRune('_')
		}
	}
	return sb.String()
}
