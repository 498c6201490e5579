package transcache_test

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"mixdown/internal/align"
	"mixdown/internal/testsupport"
	"mixdown/internal/transcache"
)

func openTestStore(t *testing.T) *transcache.Store {
	t.Helper()
	store, err := transcache.Open(filepath.Join(t.TempDir(), "cache.db"))
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	t.Cleanup(func() { store.Close() })
	return store
}

func TestLookupMiss(t *testing.T) {
	store := openTestStore(t)
	_, err := store.Lookup(context.Background(), "deadbeef", "small", "ko")
	if !errors.Is(err, transcache.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestSaveAndLookup(t *testing.T) {
	store := openTestStore(t)
	ctx := context.Background()
	want := transcache.Transcript{
		Tokens: []align.Token{
			{Time: 0.5, Text: "hello"},
			{Time: 1.2, Text: "world"},
		},
		TrackEnd: 180.5,
	}
	if err := store.Save(ctx, "deadbeef", "small", "ko", want); err != nil {
		t.Fatalf("save: %v", err)
	}

	got, err := store.Lookup(ctx, "deadbeef", "small", "ko")
	if err != nil {
		t.Fatalf("lookup: %v", err)
	}
	if got.TrackEnd != want.TrackEnd {
		t.Fatalf("track end %v, want %v", got.TrackEnd, want.TrackEnd)
	}
	if len(got.Tokens) != 2 || got.Tokens[1].Text != "world" {
		t.Fatalf("unexpected tokens %+v", got.Tokens)
	}

	// Different model is a different key.
	if _, err := store.Lookup(ctx, "deadbeef", "large", "ko"); !errors.Is(err, transcache.ErrNotFound) {
		t.Fatalf("expected miss for other model, got %v", err)
	}
}

func TestSaveReplacesExistingEntry(t *testing.T) {
	store := openTestStore(t)
	ctx := context.Background()
	first := transcache.Transcript{Tokens: []align.Token{{Time: 0, Text: "old"}}}
	second := transcache.Transcript{Tokens: []align.Token{{Time: 0, Text: "new"}}}
	if err := store.Save(ctx, "hash", "small", "auto", first); err != nil {
		t.Fatalf("save: %v", err)
	}
	if err := store.Save(ctx, "hash", "small", "auto", second); err != nil {
		t.Fatalf("save replace: %v", err)
	}
	got, err := store.Lookup(ctx, "hash", "small", "auto")
	if err != nil {
		t.Fatalf("lookup: %v", err)
	}
	if got.Tokens[0].Text != "new" {
		t.Fatalf("expected replacement, got %+v", got.Tokens)
	}
}

func TestPruneRemovesOldEntries(t *testing.T) {
	store := openTestStore(t)
	ctx := context.Background()
	if err := store.Save(ctx, "hash", "small", "auto", transcache.Transcript{}); err != nil {
		t.Fatalf("save: %v", err)
	}
	time.Sleep(1100 * time.Millisecond)
	removed, err := store.Prune(ctx, 0)
	if err != nil {
		t.Fatalf("prune: %v", err)
	}
	if removed != 1 {
		t.Fatalf("expected 1 pruned entry, got %d", removed)
	}
	if _, err := store.Lookup(ctx, "hash", "small", "auto"); !errors.Is(err, transcache.ErrNotFound) {
		t.Fatalf("expected miss after prune, got %v", err)
	}
}

func TestHashFileStableAndContentSensitive(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "a.wav")
	testsupport.WriteFile(t, path, 4096)
	first, err := transcache.HashFile(path)
	if err != nil {
		t.Fatalf("hash: %v", err)
	}
	again, err := transcache.HashFile(path)
	if err != nil {
		t.Fatalf("hash: %v", err)
	}
	if first != again {
		t.Fatal("hash must be stable for identical content")
	}
	other := filepath.Join(dir, "b.wav")
	testsupport.WriteFile(t, other, 4096)
	second, err := transcache.HashFile(other)
	if err != nil {
		t.Fatalf("hash: %v", err)
	}
	if first == second {
		t.Fatal("different content must hash differently")
	}
}
