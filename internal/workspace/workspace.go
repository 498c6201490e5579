// Package workspace manages disposable per-job scratch directories.
//
// A Workspace is a uniquely-named directory created under a configured root.
// Release removes it recursively and is safe to call any number of times;
// every acquisition must be paired with exactly one logical release on all
// exit paths, including failures.
package workspace

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"sync/atomic"
)

// Janitor creates and destroys workspaces under a single root directory.
type Janitor struct {
	root string
}

// NewJanitor prepares the root directory and returns a Janitor for it.
func NewJanitor(root string) (*Janitor, error) {
	root = strings.TrimSpace(root)
	if root == "" {
		return nil, errors.New("workspace: root directory required")
	}
	if err := os.MkdirAll(root, 0o755); err != nil {
		return nil, fmt.Errorf("workspace: create root: %w", err)
	}
	return &Janitor{root: root}, nil
}

// Root returns the directory workspaces are created under.
func (j *Janitor) Root() string {
	return j.root
}

// Acquire creates a fresh uniquely-named workspace directory. Concurrent
// acquisitions never collide.
func (j *Janitor) Acquire(prefix string) (*Workspace, error) {
	prefix = strings.TrimSpace(prefix)
	if prefix == "" {
		prefix = "job"
	}
	dir, err := os.MkdirTemp(j.root, prefix+"-")
	if err != nil {
		return nil, fmt.Errorf("workspace: acquire: %w", err)
	}
	return &Workspace{dir: dir}, nil
}

// Workspace is a handle to one scratch directory.
type Workspace struct {
	dir      string
	released atomic.Bool
}

// Dir returns the workspace directory path.
func (w *Workspace) Dir() string {
	if w == nil {
		return ""
	}
	return w.dir
}

// Path joins path elements onto the workspace directory.
func (w *Workspace) Path(elem ...string) string {
	return filepath.Join(append([]string{w.dir}, elem...)...)
}

// Release removes the workspace directory recursively. It is idempotent:
// releasing an already-removed or partially-removed workspace returns nil.
func (w *Workspace) Release() error {
	if w == nil || w.dir == "" {
		return nil
	}
	if w.released.Swap(true) {
		return nil
	}
	if err := os.RemoveAll(w.dir); err != nil && !errors.Is(err, os.ErrNotExist) {
		// Allow a retry on transient removal failures.
		w.released.Store(false)
		return fmt.Errorf("workspace: release %s: %w", w.dir, err)
	}
	return nil
}

// Released reports whether Release has completed.
func (w *Workspace) Released() bool {
	return w != nil && w.released.Load()
}

// SaveUpload streams r into a file inside the workspace and returns its path.
// The name is reduced to its base component so callers can pass user-supplied
// filenames directly.
func (w *Workspace) SaveUpload(name string, r io.Reader) (string, error) {
	base := filepath.Base(strings.TrimSpace(name))
	if base == "" || base == "." || base == string(filepath.Separator) {
		base = "input"
	}
	dest := w.Path(base)
	out, err := os.Create(dest)
	if err != nil {
		return "", fmt.Errorf("workspace: create upload file: %w", err)
	}
	defer out.Close()
	if _, err := io.Copy(out, r); err != nil {
		_ = os.Remove(dest)
		return "", fmt.Errorf("workspace: write upload: %w", err)
	}
	if err := out.Close(); err != nil {
		return "", fmt.Errorf("workspace: flush upload: %w", err)
	}
	return dest, nil
}

// Mkdir creates a subdirectory inside the workspace and returns its path.
func (w *Workspace) Mkdir(name string) (string, error) {
	dir := w.Path(name)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("workspace: mkdir %s: %w", name, err)
	}
	return dir, nil
}
