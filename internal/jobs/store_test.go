package jobs_test

import (
	"fmt"
	"sync"
	"testing"
	"time"

	"mixdown/internal/jobs"
)

func TestStoreCreateAndGet(t *testing.T) {
	store := jobs.NewStore(0)
	if !store.Create(jobs.Record{ID: "a", Kind: "render"}) {
		t.Fatal("create should succeed")
	}
	if store.Create(jobs.Record{ID: "a"}) {
		t.Fatal("duplicate create should fail")
	}
	record, ok := store.Get("a")
	if !ok {
		t.Fatal("expected record")
	}
	if record.Status != jobs.StatusQueued {
		t.Fatalf("expected queued default, got %q", record.Status)
	}
	if record.Kind != "render" {
		t.Fatalf("unexpected kind %q", record.Kind)
	}
}

func TestStoreGetUnknownID(t *testing.T) {
	store := jobs.NewStore(0)
	if _, ok := store.Get("missing"); ok {
		t.Fatal("expected not found")
	}
}

func TestMergeUpdateMissingIDIsNoOp(t *testing.T) {
	store := jobs.NewStore(0)
	store.MergeUpdate("ghost", jobs.StatusUpdate(jobs.StatusRunning))
	if store.Len() != 0 {
		t.Fatal("merge on a missing id must not create a record")
	}
}

func TestMergeUpdateAfterRemoveDoesNotResurrect(t *testing.T) {
	store := jobs.NewStore(0)
	store.Create(jobs.Record{ID: "a"})
	if _, ok := store.Remove("a"); !ok {
		t.Fatal("remove should return the record")
	}
	store.MergeUpdate("a", jobs.StatusUpdate(jobs.StatusCompleted))
	if _, ok := store.Get("a"); ok {
		t.Fatal("record resurrected after remove")
	}
}

func TestMergeUpdateClampsProgress(t *testing.T) {
	store := jobs.NewStore(0)
	store.Create(jobs.Record{ID: "a"})
	for input, want := range map[float64]float64{-0.5: 0, 0.25: 0.25, 7: 1} {
		store.MergeUpdate("a", jobs.Update{Progress: &input})
		record, _ := store.Get("a")
		if record.Progress != want {
			t.Fatalf("progress %v stored as %v, want %v", input, record.Progress, want)
		}
	}
}

func TestTerminalRecordsIgnoreFurtherTransitions(t *testing.T) {
	store := jobs.NewStore(0)
	store.Create(jobs.Record{ID: "a"})
	store.MergeUpdate("a", jobs.StatusUpdate(jobs.StatusFailed))
	store.MergeUpdate("a", jobs.StatusUpdate(jobs.StatusRunning))
	record, _ := store.Get("a")
	if record.Status != jobs.StatusFailed {
		t.Fatalf("terminal status moved to %q", record.Status)
	}
}

func TestLogsAreBoundedAndCopied(t *testing.T) {
	store := jobs.NewStore(5)
	store.Create(jobs.Record{ID: "a"})
	for i := 0; i < 20; i++ {
		store.MergeUpdate("a", jobs.Update{AppendLogs: []string{fmt.Sprintf("line %d", i)}})
	}
	record, _ := store.Get("a")
	if len(record.Logs) != 5 {
		t.Fatalf("expected 5 retained lines, got %d", len(record.Logs))
	}
	if record.Logs[4] != "line 19" {
		t.Fatalf("expected newest line retained, got %q", record.Logs[4])
	}
	record.Logs[0] = "mutated"
	fresh, _ := store.Get("a")
	if fresh.Logs[0] == "mutated" {
		t.Fatal("Get must return a copy of the log slice")
	}
}

func TestConcurrentMergeAndGet(t *testing.T) {
	store := jobs.NewStore(0)
	store.Create(jobs.Record{ID: "a"})
	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(2)
		go func(n int) {
			defer wg.Done()
			for j := 0; j < 100; j++ {
				progress := float64(j) / 100
				store.MergeUpdate("a", jobs.Update{Progress: &progress, AppendLogs: []string{"tick"}})
			}
		}(i)
		go func() {
			defer wg.Done()
			for j := 0; j < 100; j++ {
				if record, ok := store.Get("a"); ok {
					if record.Progress < 0 || record.Progress > 1 {
						t.Errorf("torn progress read: %v", record.Progress)
						return
					}
				}
			}
		}()
	}
	wg.Wait()
}

func TestSweepTerminalRemovesOnlyOldTerminalRecords(t *testing.T) {
	store := jobs.NewStore(0)
	store.Create(jobs.Record{ID: "done"})
	store.MergeUpdate("done", jobs.StatusUpdate(jobs.StatusCompleted))
	store.Create(jobs.Record{ID: "live"})
	store.MergeUpdate("live", jobs.StatusUpdate(jobs.StatusRunning))

	time.Sleep(10 * time.Millisecond)
	removed := store.SweepTerminal(time.Nanosecond)
	if len(removed) != 1 || removed[0] != "done" {
		t.Fatalf("unexpected sweep result %v", removed)
	}
	if _, ok := store.Get("live"); !ok {
		t.Fatal("running record must survive the sweep")
	}
}
