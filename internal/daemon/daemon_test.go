package daemon_test

import (
	"context"
	"net/http"
	"testing"

	"mixdown/internal/daemon"
	"mixdown/internal/testsupport"
)

func TestDaemonStartServesAPIAndEnforcesSingleInstance(t *testing.T) {
	cfg := testsupport.NewConfig(t, testsupport.WithStubbedBinaries())

	d, err := daemon.New(cfg, nil)
	if err != nil {
		t.Fatalf("new daemon: %v", err)
	}
	defer d.Close()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	if err := d.Start(ctx); err != nil {
		t.Fatalf("start: %v", err)
	}
	if !d.Running() {
		t.Fatal("daemon should report running")
	}

	resp, err := http.Get("http://" + d.Addr() + "/api/status")
	if err != nil {
		t.Fatalf("status request: %v", err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status returned %d", resp.StatusCode)
	}

	second, err := daemon.New(cfg, nil)
	if err != nil {
		t.Fatalf("new second daemon: %v", err)
	}
	defer second.Close()
	if err := second.Start(ctx); err == nil {
		t.Fatal("second instance must fail to acquire the lock")
	}

	d.Stop()
	if d.Running() {
		t.Fatal("daemon should report stopped")
	}
}

func TestDaemonStartTwiceFails(t *testing.T) {
	cfg := testsupport.NewConfig(t, testsupport.WithStubbedBinaries())
	d, err := daemon.New(cfg, nil)
	if err != nil {
		t.Fatalf("new daemon: %v", err)
	}
	defer d.Close()

	ctx := context.Background()
	if err := d.Start(ctx); err != nil {
		t.Fatalf("start: %v", err)
	}
	if err := d.Start(ctx); err == nil {
		t.Fatal("starting a running daemon must fail")
	}
}
