package peersource

import (
	"context"
	"os"
	"path/filepath"
	"slices"
	"testing"
	"time"
)

func writeMembers(t *testing.T, path, content string) {
	t.Helper()
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write membership file: %v", err)
	}
}

func TestFileSubscribeInitialSnapshot(t *testing.T) {
	path := filepath.Join(t.TempDir(), "members")
	writeMembers(t, path, "10.0.0.2\n# standby site\n10.0.0.1\n\n10.0.0.3\n")

	src := &File{Path: path, PollInterval: 10 * time.Millisecond}
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	snap, _, err := src.Subscribe(ctx)
	if err != nil {
		t.Fatalf("subscribe: %v", err)
	}
	if snap.Version != 1 {
		t.Errorf("version = %d, want 1", snap.Version)
	}
	want := []string{"10.0.0.1", "10.0.0.2", "10.0.0.3"}
	if !slices.Equal(snap.Peers, want) {
		t.Errorf("peers = %v, want %v", snap.Peers, want)
	}
}

func TestFileSubscribeMissingFile(t *testing.T) {
	src := &File{Path: filepath.Join(t.TempDir(), "absent")}
	if _, _, err := src.Subscribe(context.Background()); err == nil {
		t.Fatal("expected error for missing membership file")
	}
}

func TestFilePublishesOnChange(t *testing.T) {
	path := filepath.Join(t.TempDir(), "members")
	writeMembers(t, path, "10.0.0.1\n10.0.0.2\n")

	src := &File{Path: path, PollInterval: 10 * time.Millisecond}
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	snap, changes, err := src.Subscribe(ctx)
	if err != nil {
		t.Fatalf("subscribe: %v", err)
	}

	writeMembers(t, path, "10.0.0.1\n10.0.0.2\n10.0.0.3\n")

	select {
	case next := <-changes:
		if next.Version <= snap.Version {
			t.Errorf("version did not advance: %d -> %d", snap.Version, next.Version)
		}
		if !slices.Contains(next.Peers, "10.0.0.3") {
			t.Errorf("new member missing: %v", next.Peers)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("no snapshot published after membership change")
	}
}

func TestFileIgnoresCosmeticRewrites(t *testing.T) {
	path := filepath.Join(t.TempDir(), "members")
	writeMembers(t, path, "10.0.0.1\n10.0.0.2\n")

	src := &File{Path: path, PollInterval: 10 * time.Millisecond}
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	_, changes, err := src.Subscribe(ctx)
	if err != nil {
		t.Fatalf("subscribe: %v", err)
	}

	// Same membership, different order and extra noise.
	writeMembers(t, path, "# rewritten\n10.0.0.2\n\n  10.0.0.1  \n")

	select {
	case snap := <-changes:
		t.Errorf("cosmetic rewrite published snapshot %+v", snap)
	case <-time.After(200 * time.Millisecond):
	}
}

func TestFileClosesFeedWhenFileDisappears(t *testing.T) {
	path := filepath.Join(t.TempDir(), "members")
	writeMembers(t, path, "10.0.0.1\n")

	src := &File{Path: path, PollInterval: 10 * time.Millisecond}
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	_, changes, err := src.Subscribe(ctx)
	if err != nil {
		t.Fatalf("subscribe: %v", err)
	}

	if err := os.Remove(path); err != nil {
		t.Fatalf("remove: %v", err)
	}

	select {
	case _, ok := <-changes:
		if ok {
			t.Error("expected feed to close, got a snapshot")
		}
	case <-time.After(5 * time.Second):
		t.Fatal("feed did not close after persistent read failures")
	}
}

func TestStaticSubscribe(t *testing.T) {
	src := &Static{Peers: []string{"10.0.0.1", "10.0.0.2"}}
	ctx, cancel := context.WithCancel(context.Background())

	snap, changes, err := src.Subscribe(ctx)
	if err != nil {
		t.Fatalf("subscribe: %v", err)
	}
	if snap.Version != 1 || len(snap.Peers) != 2 {
		t.Errorf("snapshot = %+v", snap)
	}

	cancel()
	select {
	case _, ok := <-changes:
		if ok {
			t.Error("static source published a change")
		}
	case <-time.After(time.Second):
		t.Fatal("static feed did not close on cancellation")
	}
}
