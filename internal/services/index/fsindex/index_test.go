package fsindex

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
)

type fakeProber struct {
	durations map[string]int64
	err       error
}

func (f *fakeProber) DurationMs(ctx context.Context, filePath string) (int64, error) {
	if f.err != nil {
		return 0, f.err
	}
	return f.durations[filepath.Base(filePath)], nil
}

func writeFile(t *testing.T, path string) {
	t.Helper()
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		t.Fatalf("mkdir: %v", err)
	}
	if err := os.WriteFile(path, []byte("x"), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}
}

func TestEnumerateFindsVideosOnly(t *testing.T) {
	root := t.TempDir()
	writeFile(t, filepath.Join(root, "movies", "film.mkv"))
	writeFile(t, filepath.Join(root, "movies", "notes.txt"))
	writeFile(t, filepath.Join(root, "clips", "short.MP4"))

	idx := New([]string{root}, &fakeProber{durations: map[string]int64{
		"film.mkv":  7200000,
		"short.MP4": 15000,
	}}, nil)

	items, err := idx.Enumerate(context.Background())
	if err != nil {
		t.Fatalf("Enumerate: %v", err)
	}
	if len(items) != 2 {
		t.Fatalf("expected 2 items, got %d: %+v", len(items), items)
	}

	byTitle := map[string]int64{}
	for _, item := range items {
		byTitle[item.Title] = item.DurationMs
		if item.ID == "" || item.SourceLocator == "" || item.FolderPath == "" {
			t.Errorf("incomplete item: %+v", item)
		}
		if item.Resume.PositionMs != 0 || item.Resume.PlayedAtUnixMs != 0 {
			t.Errorf("fresh item carries resume state: %+v", item.Resume)
		}
	}
	if byTitle["film"] != 7200000 {
		t.Errorf("film duration = %d", byTitle["film"])
	}
	if byTitle["short"] != 15000 {
		t.Errorf("short duration = %d", byTitle["short"])
	}
}

func TestEnumerateStableIDs(t *testing.T) {
	root := t.TempDir()
	writeFile(t, filepath.Join(root, "a.mp4"))

	idx := New([]string{root}, nil, nil)
	first, err := idx.Enumerate(context.Background())
	if err != nil {
		t.Fatalf("Enumerate: %v", err)
	}
	second, err := idx.Enumerate(context.Background())
	if err != nil {
		t.Fatalf("Enumerate: %v", err)
	}
	if first[0].ID != second[0].ID {
		t.Fatalf("id not stable across rescans: %q vs %q", first[0].ID, second[0].ID)
	}
}

func TestEnumerateProbeFailureLeavesDurationUnknown(t *testing.T) {
	root := t.TempDir()
	writeFile(t, filepath.Join(root, "broken.avi"))

	idx := New([]string{root}, &fakeProber{err: errors.New("corrupt header")}, nil)
	items, err := idx.Enumerate(context.Background())
	if err != nil {
		t.Fatalf("Enumerate: %v", err)
	}
	if len(items) != 1 || items[0].DurationMs != 0 {
		t.Fatalf("expected duration 0 on probe failure, got %+v", items)
	}
}

func TestEnumerateMissingRootFails(t *testing.T) {
	idx := New([]string{"/nonexistent/media/root"}, nil, nil)
	if _, err := idx.Enumerate(context.Background()); err == nil {
		t.Fatal("expected error for missing root")
	}
}

func TestEnumerateNoRootsFails(t *testing.T) {
	idx := New(nil, nil, nil)
	if _, err := idx.Enumerate(context.Background()); err == nil {
		t.Fatal("expected error for empty root list")
	}
}

func TestEnumerateCancelled(t *testing.T) {
	root := t.TempDir()
	writeFile(t, filepath.Join(root, "a.mp4"))

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	idx := New([]string{root}, nil, nil)
	if _, err := idx.Enumerate(ctx); !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context.Canceled, got %v", err)
	}
}
