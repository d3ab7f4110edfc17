package store_test

import (
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/hwuu/pftp/internal/store"
	"github.com/hwuu/pftp/internal/transfer"
)

func openStore(t *testing.T) *store.BoltStore {
	t.Helper()
	s, err := store.NewBoltStore(filepath.Join(t.TempDir(), "history.db"))
	if err != nil {
		t.Fatalf("Failed to create BoltStore: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

func TestBoltStore_Empty(t *testing.T) {
	s := openStore(t)

	if _, err := s.LatestRun(); !errors.Is(err, store.ErrNoRuns) {
		t.Errorf("Expected ErrNoRuns, got %v", err)
	}
	runs, err := s.ListRuns(0)
	if err != nil {
		t.Fatalf("ListRuns failed: %v", err)
	}
	if len(runs) != 0 {
		t.Errorf("Expected no runs, got %d", len(runs))
	}
}

func TestBoltStore_SaveAndLatest(t *testing.T) {
	s := openStore(t)

	outcomes := []transfer.HostOutcome{
		{
			Host: "web-1", Address: "10.0.0.1:22", State: transfer.StateCompleted,
			Connected: true, Attempted: 2, Failed: 1, Bytes: 42,
			Failures: []transfer.FileFailure{{LocalPath: "/in/a", RemotePath: "/out/a", Err: errors.New("boom")}},
		},
		{
			Host: "web-2", Address: "10.0.0.2:22", State: transfer.StateConnectFailed,
			Err: errors.New("connection refused"),
		},
	}

	for _, group := range []string{"first", "second", "third"} {
		run := store.NewRunRecord(group, "/in", time.Now(), outcomes)
		if err := s.SaveRun(run); err != nil {
			t.Fatalf("SaveRun failed: %v", err)
		}
		if run.ID == 0 {
			t.Errorf("Expected run ID to be assigned")
		}
	}

	latest, err := s.LatestRun()
	if err != nil {
		t.Fatalf("LatestRun failed: %v", err)
	}
	if latest.Group != "third" {
		t.Errorf("Expected latest group third, got %s", latest.Group)
	}
	if len(latest.Hosts) != 2 {
		t.Fatalf("Expected 2 hosts, got %d", len(latest.Hosts))
	}
	if h := latest.Hosts[0]; h.Attempted != 2 || h.Failed != 1 || h.Bytes != 42 || len(h.Failures) != 1 {
		t.Errorf("Unexpected host record: %+v", h)
	}
	if h := latest.Hosts[1]; h.State != "ConnectFailed" || h.Error != "connection refused" {
		t.Errorf("Unexpected host record: %+v", h)
	}

	runs, err := s.ListRuns(2)
	if err != nil {
		t.Fatalf("ListRuns failed: %v", err)
	}
	if len(runs) != 2 || runs[0].Group != "third" || runs[1].Group != "second" {
		t.Errorf("Expected newest-first [third second], got %d runs", len(runs))
	}
}

func TestBoltStore_Reopen(t *testing.T) {
	path := filepath.Join(t.TempDir(), "history.db")

	s, err := store.NewBoltStore(path)
	if err != nil {
		t.Fatalf("Failed to create BoltStore: %v", err)
	}
	if err := s.SaveRun(store.NewRunRecord("web", "/in", time.Now(), nil)); err != nil {
		t.Fatalf("SaveRun failed: %v", err)
	}
	s.Close()

	s, err = store.NewBoltStore(path)
	if err != nil {
		t.Fatalf("Failed to reopen BoltStore: %v", err)
	}
	defer s.Close()

	latest, err := s.LatestRun()
	if err != nil {
		t.Fatalf("LatestRun failed: %v", err)
	}
	if latest.Group != "web" {
		t.Errorf("Expected group web, got %s", latest.Group)
	}
}
