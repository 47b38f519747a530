package mpv

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strconv"
	"sync"
	"time"

	"github.com/google/uuid"

	"mediaplayer/internal/domain"
	"mediaplayer/internal/domain/ports"
)

const (
	socketDialTimeout = 10 * time.Second
	commandTimeout    = 5 * time.Second

	observeIDPausedForCache = 1
)

// profile selects the seek strategy of an mpv instance.
type profile struct {
	// keyframe seeks go through the container index and are fast but can
	// misfire on broken indices; exact seeks decode from the previous
	// keyframe and always land.
	exactSeeks bool
	hwdec      string
}

func profileFor(id domain.BackendID) profile {
	if id == domain.BackendSecondary {
		return profile{exactSeeks: true, hwdec: "no"}
	}
	return profile{exactSeeks: false, hwdec: "auto-safe"}
}

// buildArgs constructs the mpv command line. Pure function.
func buildArgs(p profile, socketPath, source string, startOffsetMs int64) []string {
	args := []string{
		"--no-terminal",
		"--really-quiet",
		"--idle=no",
		"--keep-open=no",
		"--pause=no",
		"--input-ipc-server=" + socketPath,
		"--hwdec=" + p.hwdec,
	}
	if p.exactSeeks {
		args = append(args, "--hr-seek=yes")
	} else {
		args = append(args, "--hr-seek=no")
	}
	if startOffsetMs > 0 {
		args = append(args, "--start="+formatSeconds(startOffsetMs))
	}
	return append(args, "--", source)
}

func formatSeconds(ms int64) string {
	return strconv.FormatFloat(float64(ms)/1000, 'f', 3, 64)
}

// Backend runs one mpv instance and translates its IPC events into the
// backend event vocabulary.
type Backend struct {
	id        domain.BackendID
	binary    string
	socketDir string
	logger    *slog.Logger

	mu     sync.Mutex
	proc   *process
	client *ipcClient

	events      chan domain.BackendEvent
	eventsOnce  sync.Once
	releaseOnce sync.Once
}

func newBackend(id domain.BackendID, binary, socketDir string, logger *slog.Logger) *Backend {
	return &Backend{
		id:        id,
		binary:    binary,
		socketDir: socketDir,
		logger:    logger,
		events:    make(chan domain.BackendEvent, 16),
	}
}

func (b *Backend) Prepare(ctx context.Context, sourceLocator string, startOffsetMs int64) error {
	socketPath := filepath.Join(b.socketDir, fmt.Sprintf("mpv-%s-%s.sock", b.id, uuid.NewString()[:8]))
	args := buildArgs(profileFor(b.id), socketPath, sourceLocator, startOffsetMs)

	proc := newProcess(context.Background(), b.binary, args)
	if err := proc.start(); err != nil {
		return fmt.Errorf("start mpv: %w", err)
	}

	client, err := dialIPC(ctx, socketPath, socketDialTimeout)
	if err != nil {
		proc.stop()
		if stderr := proc.stderrText(); stderr != "" {
			return fmt.Errorf("mpv startup: %s: %w", stderr, err)
		}
		return err
	}

	if err := client.observeProperty(ctx, observeIDPausedForCache, "paused-for-cache"); err != nil {
		b.logger.Debug("mpv: observe_property failed", slog.String("error", err.Error()))
	}

	b.mu.Lock()
	b.proc = proc
	b.client = client
	b.mu.Unlock()

	go b.translateEvents(client)
	go b.watchExit(proc, socketPath)
	return nil
}

// translateEvents turns raw IPC events into backend events. Readiness is
// reported with the position mpv actually settled on, which is where a
// broken index shows up.
func (b *Backend) translateEvents(client *ipcClient) {
	for msg := range client.events {
		switch msg.Event {
		case "file-loaded":
			b.emitReady(client)
			b.emit(domain.BackendEvent{Kind: domain.EventFirstFrame})
		case "playback-restart":
			b.emitReady(client)
		case "end-file":
			switch msg.Reason {
			case "eof":
				b.emit(domain.BackendEvent{Kind: domain.EventEnded})
			case "error":
				b.emit(domain.BackendEvent{Kind: domain.EventError, Message: "mpv: playback aborted"})
			}
		case "property-change":
			if msg.Name == "paused-for-cache" {
				buffering := string(msg.Data) == "true"
				b.emit(domain.BackendEvent{Kind: domain.EventBuffering, Buffering: buffering})
			}
		}
	}
	b.closeEvents()
}

func (b *Backend) emitReady(client *ipcClient) {
	ctx, cancel := context.WithTimeout(context.Background(), commandTimeout)
	defer cancel()

	ev := domain.BackendEvent{Kind: domain.EventReady}
	if pos, err := client.getFloat(ctx, "time-pos"); err == nil {
		ev.PositionMs = int64(pos * 1000)
	}
	if dur, err := client.getFloat(ctx, "duration"); err == nil {
		ev.DurationMs = int64(dur * 1000)
	}
	b.emit(ev)
}

func (b *Backend) watchExit(proc *process, socketPath string) {
	<-proc.Done()
	_ = os.Remove(socketPath)
	if stderr := proc.stderrText(); stderr != "" {
		b.logger.Debug("mpv exited",
			slog.String("backend", string(b.id)),
			slog.String("stderr", stderr),
		)
	}
}

func (b *Backend) emit(ev domain.BackendEvent) {
	select {
	case b.events <- ev:
	default:
		b.logger.Warn("mpv: event dropped, consumer stalled",
			slog.String("backend", string(b.id)),
			slog.String("kind", string(ev.Kind)),
		)
	}
}

func (b *Backend) closeEvents() {
	b.eventsOnce.Do(func() { close(b.events) })
}

func (b *Backend) ipc() (*ipcClient, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.client == nil {
		return nil, fmt.Errorf("mpv backend not prepared")
	}
	return b.client, nil
}

func (b *Backend) Seek(ctx context.Context, targetMs int64) error {
	client, err := b.ipc()
	if err != nil {
		return err
	}
	mode := "absolute+keyframes"
	if profileFor(b.id).exactSeeks {
		mode = "absolute+exact"
	}
	_, err = client.command(ctx, "seek", float64(targetMs)/1000, mode)
	return err
}

func (b *Backend) Play(ctx context.Context) error {
	client, err := b.ipc()
	if err != nil {
		return err
	}
	return client.setProperty(ctx, "pause", false)
}

func (b *Backend) Pause(ctx context.Context) error {
	client, err := b.ipc()
	if err != nil {
		return err
	}
	return client.setProperty(ctx, "pause", true)
}

func (b *Backend) SetSpeed(ctx context.Context, factor float64) error {
	client, err := b.ipc()
	if err != nil {
		return err
	}
	return client.setProperty(ctx, "speed", factor)
}

func (b *Backend) SetLoop(ctx context.Context, enabled bool) error {
	client, err := b.ipc()
	if err != nil {
		return err
	}
	value := "no"
	if enabled {
		value = "inf"
	}
	return client.setProperty(ctx, "loop-file", value)
}

func (b *Backend) PositionMs(ctx context.Context) (int64, error) {
	client, err := b.ipc()
	if err != nil {
		return 0, err
	}
	pos, err := client.getFloat(ctx, "time-pos")
	if err != nil {
		return 0, err
	}
	return int64(pos * 1000), nil
}

func (b *Backend) Events() <-chan domain.BackendEvent {
	return b.events
}

// Release asks mpv to quit, then force-kills it. Idempotent.
func (b *Backend) Release() error {
	b.releaseOnce.Do(func() {
		b.mu.Lock()
		client := b.client
		proc := b.proc
		b.client = nil
		b.mu.Unlock()

		if client != nil {
			ctx, cancel := context.WithTimeout(context.Background(), time.Second)
			_, _ = client.command(ctx, "quit")
			cancel()
			client.shutdown()
		}
		if proc != nil {
			select {
			case <-proc.Done():
			case <-time.After(2 * time.Second):
				proc.stop()
				<-proc.Done()
			}
		}
		if client == nil {
			// Never prepared; nothing will close the channel for us.
			b.closeEvents()
		}
	})
	return nil
}

// Factory builds mpv backends. The secondary profile is only requested
// after the primary has proven unable to seek the current file.
type Factory struct {
	binary    string
	socketDir string
	logger    *slog.Logger
}

func NewFactory(binary, socketDir string, logger *slog.Logger) *Factory {
	if binary == "" {
		binary = "mpv"
	}
	if socketDir == "" {
		socketDir = os.TempDir()
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Factory{binary: binary, socketDir: socketDir, logger: logger}
}

func (f *Factory) New(id domain.BackendID) (ports.DecodeBackend, error) {
	if id != domain.BackendPrimary && id != domain.BackendSecondary {
		return nil, fmt.Errorf("unknown backend id %q", id)
	}
	return newBackend(id, f.binary, f.socketDir, f.logger), nil
}
