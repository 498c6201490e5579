package testsupport

import (
	"testing"

	"mixdown/internal/config"
	"mixdown/internal/transcache"
	"mixdown/internal/workspace"
)

// MustOpenCache opens a transcript cache for tests and registers cleanup.
func MustOpenCache(t testing.TB, cfg *config.Config) *transcache.Store {
	t.Helper()

	if err := cfg.EnsureDirectories(); err != nil {
		t.Fatalf("config.EnsureDirectories: %v", err)
	}
	store, err := transcache.Open(cfg.TranscriptCache.Path)
	if err != nil {
		t.Fatalf("transcache.Open: %v", err)
	}
	t.Cleanup(func() {
		store.Close()
	})
	return store
}

// MustJanitor creates a workspace janitor rooted in the test work directory.
func MustJanitor(t testing.TB, cfg *config.Config) *workspace.Janitor {
	t.Helper()

	janitor, err := workspace.NewJanitor(cfg.Paths.WorkDir)
	if err != nil {
		t.Fatalf("workspace.NewJanitor: %v", err)
	}
	return janitor
}

// MustWorkspace acquires a workspace and registers its release.
func MustWorkspace(t testing.TB, janitor *workspace.Janitor) *workspace.Workspace {
	t.Helper()

	ws, err := janitor.Acquire("test")
	if err != nil {
		t.Fatalf("janitor.Acquire: %v", err)
	}
	t.Cleanup(func() {
		_ = ws.Release()
	})
	return ws
}
