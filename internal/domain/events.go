package domain

// BackendEventKind enumerates the lifecycle events a decode backend emits.
type BackendEventKind string

const (
	EventReady      BackendEventKind = "ready"
	EventBuffering  BackendEventKind = "buffering"
	EventEnded      BackendEventKind = "ended"
	EventError      BackendEventKind = "error"
	EventFirstFrame BackendEventKind = "first_frame"
)

// BackendEvent is one asynchronous notification from a decode backend.
// Events are delivered over a channel and applied by the session's single
// owning goroutine, never by free-floating callbacks.
type BackendEvent struct {
	Kind       BackendEventKind
	DurationMs int64  // set on ready
	PositionMs int64  // set on ready
	Buffering  bool   // set on buffering
	Message    string // set on error
}
