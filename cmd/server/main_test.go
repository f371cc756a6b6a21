package main

import (
	"context"
	"net"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/collecokzn-creator/colleco-mvp-sub008/internal/escalation"
	"github.com/collecokzn-creator/colleco-mvp-sub008/internal/escalation/memstore"
)

func TestNotifySystemd_NoSocket(t *testing.T) {
	t.Setenv("NOTIFY_SOCKET", "")

	err := notifySystemd()
	if err == nil {
		t.Fatal("expected error when NOTIFY_SOCKET is empty")
	}
	if !strings.Contains(err.Error(), "NOTIFY_SOCKET not set") {
		t.Errorf("error = %q, want substring %q", err, "NOTIFY_SOCKET not set")
	}
}

func TestNotifySystemd_InvalidPath(t *testing.T) {
	t.Setenv("NOTIFY_SOCKET", filepath.Join(t.TempDir(), "nonexistent.sock"))

	err := notifySystemd()
	if err == nil {
		t.Fatal("expected error for nonexistent socket")
	}
	if !strings.Contains(err.Error(), "dial failed") {
		t.Errorf("error = %q, want substring %q", err, "dial failed")
	}
}

func TestNotifySystemd_Success(t *testing.T) {
	sockPath := filepath.Join(t.TempDir(), "notify.sock")

	// Create a real unixgram listener.
	var lc net.ListenConfig
	conn, err := lc.ListenPacket(context.Background(), "unixgram", sockPath)
	if err != nil {
		t.Fatalf("listen unixgram: %v", err)
	}
	defer func() { _ = conn.Close() }()

	t.Setenv("NOTIFY_SOCKET", sockPath)

	if err := notifySystemd(); err != nil {
		t.Fatalf("notifySystemd() = %v, want nil", err)
	}

	buf := make([]byte, 256)
	n, _, err := conn.ReadFrom(buf)
	if err != nil {
		t.Fatalf("read from socket: %v", err)
	}

	got := string(buf[:n])
	if got != "READY=1" {
		t.Errorf("payload = %q, want %q", got, "READY=1")
	}
}

func TestSnapshot_RoundTripThroughFile(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "escalations.json")
	ctx := context.Background()

	src := memstore.New()
	_ = src.Put(ctx, &escalation.Escalation{
		ID:          "esc-1",
		UserID:      "u-1",
		Type:        "urgent",
		Status:      escalation.StatusQueued,
		Team:        escalation.TeamEmergency,
		CreatedAt:   time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC),
		SLADeadline: time.Date(2026, 3, 1, 9, 15, 0, 0, time.UTC),
	})

	if err := writeSnapshot(src, path); err != nil {
		t.Fatalf("writeSnapshot: %v", err)
	}

	dst := memstore.New()
	if err := loadSnapshot(dst, path); err != nil {
		t.Fatalf("loadSnapshot: %v", err)
	}

	got, ok, err := dst.Get(ctx, "esc-1")
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if !ok {
		t.Fatal("expected record after snapshot round trip")
	}
	if got.Team != escalation.TeamEmergency {
		t.Errorf("Team = %q, want emergency_team", got.Team)
	}
}

func TestLoadSnapshot_MissingFileIsFine(t *testing.T) {
	t.Parallel()

	s := memstore.New()
	if err := loadSnapshot(s, filepath.Join(t.TempDir(), "absent.json")); err != nil {
		t.Fatalf("loadSnapshot on missing file = %v, want nil", err)
	}

	all, _ := s.List(context.Background())
	if len(all) != 0 {
		t.Errorf("records = %d, want 0 after missing snapshot", len(all))
	}
}

func TestWriteSnapshot_Overwrites(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "escalations.json")
	ctx := context.Background()

	first := memstore.New()
	_ = first.Put(ctx, &escalation.Escalation{ID: "stale"})
	if err := writeSnapshot(first, path); err != nil {
		t.Fatalf("writeSnapshot first: %v", err)
	}

	second := memstore.New()
	_ = second.Put(ctx, &escalation.Escalation{ID: "fresh"})
	if err := writeSnapshot(second, path); err != nil {
		t.Fatalf("writeSnapshot second: %v", err)
	}

	restored := memstore.New()
	if err := loadSnapshot(restored, path); err != nil {
		t.Fatalf("loadSnapshot: %v", err)
	}
	if _, ok, _ := restored.Get(ctx, "stale"); ok {
		t.Error("old snapshot contents survived the rewrite")
	}
	if _, ok, _ := restored.Get(ctx, "fresh"); !ok {
		t.Error("expected contents of the latest snapshot")
	}
}
