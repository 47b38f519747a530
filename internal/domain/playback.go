package domain

import (
	"errors"
	"time"
)

// BackendID identifies which decode backend currently owns playback.
type BackendID string

const (
	BackendPrimary   BackendID = "primary"
	BackendSecondary BackendID = "secondary"
)

// PlaybackPhase represents the seek-commit lifecycle of a playback session.
// It is ephemeral runtime state, distinct from the persisted ResumeState.
type PlaybackPhase string

const (
	PhaseIdle               PlaybackPhase = "idle"                 // No commit is being tracked.
	PhasePendingInitialSeek PlaybackPhase = "pending_initial_seek" // Resume seek queued until backend readiness.
	PhaseAwaitingCommit     PlaybackPhase = "awaiting_commit"      // Seek issued, waiting to observe the landing.
	PhaseRetrying           PlaybackPhase = "retrying"             // Failed landing detected, reissuing the seek.
	PhaseFailedOver         PlaybackPhase = "failed_over"          // Secondary backend active; plain seek path.
	PhaseClosed             PlaybackPhase = "closed"               // Session torn down.
)

var ErrInvalidTransition = errors.New("invalid phase transition")

// validPhaseTransitions defines the adjacency list of allowed phase transitions.
// FailedOver is entered only from commit tracking and is never left for any
// phase that re-enables the primary backend.
var validPhaseTransitions = map[PlaybackPhase][]PlaybackPhase{
	PhaseIdle:               {PhasePendingInitialSeek, PhaseAwaitingCommit, PhaseClosed},
	PhasePendingInitialSeek: {PhaseAwaitingCommit, PhaseIdle, PhaseClosed},
	PhaseAwaitingCommit:     {PhaseIdle, PhaseRetrying, PhaseAwaitingCommit, PhaseFailedOver, PhaseClosed},
	PhaseRetrying:           {PhaseAwaitingCommit, PhaseFailedOver, PhaseIdle, PhaseClosed},
	PhaseFailedOver:         {PhaseIdle, PhaseClosed},
	PhaseClosed:             {},
}

// CanTransitionPhase reports whether a transition between phases is valid.
func CanTransitionPhase(from, to PlaybackPhase) bool {
	for _, t := range validPhaseTransitions[from] {
		if t == to {
			return true
		}
	}
	return false
}

// ABLoop holds the A-B repeat markers. The loop is active only when both
// markers are set and B exceeds A.
type ABLoop struct {
	AMs int64 `json:"aMs"`
	BMs int64 `json:"bMs"`
}

// Active reports whether the loop markers form a usable interval.
func (l ABLoop) Active() bool {
	return l.BMs > l.AMs && l.BMs > 0
}

// SessionSnapshot is the externally visible state of a playback session.
type SessionSnapshot struct {
	SessionID   string        `json:"sessionId"`
	MediaID     MediaID       `json:"mediaId"`
	Phase       PlaybackPhase `json:"phase"`
	Backend     BackendID     `json:"backend"`
	PositionMs  int64         `json:"positionMs"`
	DurationMs  int64         `json:"durationMs"`
	Speed       float64       `json:"speed"`
	Paused      bool          `json:"paused"`
	Buffering   bool          `json:"buffering"`
	Looping     bool          `json:"looping"`
	ABLoop      *ABLoop       `json:"abLoop,omitempty"`
	RetryCount  int           `json:"retryCount"`
	Error       string        `json:"error,omitempty"`
	UpdatedAt   time.Time     `json:"updatedAt"`
}
