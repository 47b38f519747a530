package ports

import (
	"context"

	"mediaplayer/internal/domain"
)

// DecodeBackend is an opaque player for one source. Lifecycle events are
// delivered on the Events channel; the channel is closed on Release.
// Implementations must tolerate Seek/Play/Pause before the first ready event
// by ignoring or queueing internally.
type DecodeBackend interface {
	// Prepare loads the source and begins building any internal seek index.
	// startOffsetMs positions the first frame without counting as a seek.
	Prepare(ctx context.Context, sourceLocator string, startOffsetMs int64) error
	Seek(ctx context.Context, targetMs int64) error
	Play(ctx context.Context) error
	Pause(ctx context.Context) error
	SetSpeed(ctx context.Context, factor float64) error
	SetLoop(ctx context.Context, enabled bool) error
	// PositionMs reports the current playback position as last observed.
	PositionMs(ctx context.Context) (int64, error)
	Events() <-chan domain.BackendEvent
	Release() error
}

// BackendFactory constructs decode backends by identity. The session state
// machine instantiates the secondary backend only on failover.
type BackendFactory interface {
	New(id domain.BackendID) (DecodeBackend, error)
}
