package player

import (
	"context"
	"errors"
	"testing"
	"time"

	"mediaplayer/internal/domain"
	"mediaplayer/internal/storage/memory"
)

func newTestManager(t *testing.T, items ...domain.MediaItem) (*Manager, *fakeFactory) {
	t.Helper()
	store := memory.NewStore()
	if err := store.ReplaceAll(context.Background(), items); err != nil {
		t.Fatalf("seed store: %v", err)
	}
	factory := &fakeFactory{}
	mgr := NewManager(store, factory, DefaultTunables(), 0, discardLogger())
	t.Cleanup(func() {
		ctx, cancel := context.WithTimeout(context.Background(), time.Second)
		defer cancel()
		_ = mgr.Close(ctx)
	})
	return mgr, factory
}

func TestManagerOpenUnknownItem(t *testing.T) {
	mgr, _ := newTestManager(t, testMedia(0))
	if _, err := mgr.Open(context.Background(), "missing"); !errors.Is(err, domain.ErrNotFound) {
		t.Fatalf("Open(missing) = %v, want ErrNotFound", err)
	}
}

func TestManagerOpenReturnsSnapshot(t *testing.T) {
	mgr, factory := newTestManager(t, testMedia(45000))
	sn, err := mgr.Open(context.Background(), "m1")
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	if sn.SessionID == "" {
		t.Fatal("missing session id")
	}
	if sn.MediaID != "m1" {
		t.Fatalf("mediaId = %s", sn.MediaID)
	}
	if sn.Backend != domain.BackendPrimary {
		t.Fatalf("backend = %s", sn.Backend)
	}
	waitFor(t, func() bool { return factory.count() == 1 }, "backend construction")
}

func TestManagerReplacesSessionReleaseFirst(t *testing.T) {
	second := testMedia(0)
	second.ID = "m2"
	second.SourceLocator = "/media/other.mkv"
	mgr, factory := newTestManager(t, testMedia(0), second)

	if _, err := mgr.Open(context.Background(), "m1"); err != nil {
		t.Fatalf("first Open: %v", err)
	}
	waitFor(t, func() bool { return factory.count() == 1 }, "first backend")

	sn, err := mgr.Open(context.Background(), "m2")
	if err != nil {
		t.Fatalf("second Open: %v", err)
	}
	if sn.MediaID != "m2" {
		t.Fatalf("mediaId = %s", sn.MediaID)
	}

	// The old backend must be gone before the replacement exists.
	if !factory.backend(0).isReleased() {
		t.Fatal("first backend still holds the decode surface")
	}
	waitFor(t, func() bool { return factory.count() == 2 }, "second backend")
}

func TestManagerNoSession(t *testing.T) {
	mgr, _ := newTestManager(t, testMedia(0))

	if err := mgr.Close(context.Background()); !errors.Is(err, domain.ErrNoSession) {
		t.Fatalf("Close = %v, want ErrNoSession", err)
	}
	if _, err := mgr.Snapshot(); !errors.Is(err, domain.ErrNoSession) {
		t.Fatalf("Snapshot = %v, want ErrNoSession", err)
	}
	if err := mgr.Seek(1000); !errors.Is(err, domain.ErrNoSession) {
		t.Fatalf("Seek = %v, want ErrNoSession", err)
	}
}

func TestManagerCloseTearsDown(t *testing.T) {
	mgr, factory := newTestManager(t, testMedia(0))
	if _, err := mgr.Open(context.Background(), "m1"); err != nil {
		t.Fatalf("Open: %v", err)
	}
	waitFor(t, func() bool { return factory.count() == 1 }, "backend construction")

	if err := mgr.Close(context.Background()); err != nil {
		t.Fatalf("Close: %v", err)
	}
	if !factory.backend(0).isReleased() {
		t.Fatal("backend not released")
	}
	if err := mgr.Close(context.Background()); !errors.Is(err, domain.ErrNoSession) {
		t.Fatalf("second Close = %v, want ErrNoSession", err)
	}
}

func TestManagerForwardsCommands(t *testing.T) {
	mgr, factory := newTestManager(t, testMedia(0))
	if _, err := mgr.Open(context.Background(), "m1"); err != nil {
		t.Fatalf("Open: %v", err)
	}
	waitFor(t, func() bool { return factory.count() == 1 }, "backend construction")
	primary := factory.backend(0)
	primary.emit(domain.BackendEvent{Kind: domain.EventReady, DurationMs: 3600000})

	if err := mgr.Seek(500); err != nil {
		t.Fatalf("Seek: %v", err)
	}
	waitFor(t, func() bool { return primary.seekCount() == 1 }, "seek forwarded")

	if err := mgr.Pause(); err != nil {
		t.Fatalf("Pause: %v", err)
	}
	waitFor(t, func() bool {
		sn, err := mgr.Snapshot()
		return err == nil && sn.Paused
	}, "pause forwarded")
}
