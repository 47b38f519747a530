package mpv

import (
	"slices"
	"testing"

	"mediaplayer/internal/domain"
)

func TestProfileFor(t *testing.T) {
	fast := profileFor(domain.BackendPrimary)
	if fast.exactSeeks {
		t.Fatal("primary profile must use keyframe seeks")
	}
	precise := profileFor(domain.BackendSecondary)
	if !precise.exactSeeks {
		t.Fatal("secondary profile must use exact seeks")
	}
	if precise.hwdec != "no" {
		t.Fatalf("secondary hwdec = %q, want software decode", precise.hwdec)
	}
}

func TestBuildArgs(t *testing.T) {
	args := buildArgs(profileFor(domain.BackendPrimary), "/tmp/mpv.sock", "/media/film.mkv", 0)

	if !slices.Contains(args, "--hr-seek=no") {
		t.Fatalf("fast profile args missing keyframe seek mode: %v", args)
	}
	if !slices.Contains(args, "--input-ipc-server=/tmp/mpv.sock") {
		t.Fatalf("args missing ipc socket: %v", args)
	}
	if args[len(args)-1] != "/media/film.mkv" || args[len(args)-2] != "--" {
		t.Fatalf("source must follow the option terminator: %v", args)
	}
	for _, a := range args {
		if a == "--start=0.000" {
			t.Fatal("zero offset must not produce a --start flag")
		}
	}
}

func TestBuildArgsStartOffset(t *testing.T) {
	args := buildArgs(profileFor(domain.BackendSecondary), "/tmp/mpv.sock", "/media/film.mkv", 61500)

	if !slices.Contains(args, "--start=61.500") {
		t.Fatalf("args missing start offset: %v", args)
	}
	if !slices.Contains(args, "--hr-seek=yes") {
		t.Fatalf("precise profile args missing exact seek mode: %v", args)
	}
}

func TestFormatSeconds(t *testing.T) {
	tests := []struct {
		ms   int64
		want string
	}{
		{0, "0.000"},
		{500, "0.500"},
		{61500, "61.500"},
		{3600000, "3600.000"},
	}
	for _, tt := range tests {
		if got := formatSeconds(tt.ms); got != tt.want {
			t.Fatalf("formatSeconds(%d) = %q, want %q", tt.ms, got, tt.want)
		}
	}
}

func TestFactoryRejectsUnknownID(t *testing.T) {
	f := NewFactory("mpv", t.TempDir(), nil)
	if _, err := f.New(domain.BackendID("tertiary")); err == nil {
		t.Fatal("expected error for unknown backend id")
	}
}

func TestReleaseWithoutPrepareClosesEvents(t *testing.T) {
	b := newBackend(domain.BackendPrimary, "mpv", t.TempDir(), discardLogger())
	if err := b.Release(); err != nil {
		t.Fatalf("Release: %v", err)
	}
	if _, ok := <-b.Events(); ok {
		t.Fatal("events channel must be closed after release")
	}
	// Idempotent.
	if err := b.Release(); err != nil {
		t.Fatalf("second Release: %v", err)
	}
}
