package player

import "time"

// Tunables holds the seek-recovery heuristics. The thresholds encode
// observed behaviour of streaming containers with sparse or broken seek
// indices, so they stay configurable rather than baked in.
type Tunables struct {
	// SmallTargetMs exempts short seeks from failure detection: any drift
	// near the start of the file is plausible and harmless.
	SmallTargetMs int64
	// FailedLandingMs is the landing position below which a large-target
	// seek counts as snapped to zero.
	FailedLandingMs int64
	// MaxRetries bounds same-backend reissues before failing over.
	MaxRetries int
	// ScrubMinGap throttles scrub seeks after failover, where the
	// secondary backend's seek call is comparatively expensive.
	ScrubMinGap time.Duration
	// ScrubMinDeltaMs drops scrub seeks that barely move the target.
	ScrubMinDeltaMs int64
	// SuppressWindow is how long after a large-target commit the position
	// display ignores near-zero readings, so a stale poll during the
	// detection window does not snap the UI to zero before recovery.
	SuppressWindow time.Duration
}

func DefaultTunables() Tunables {
	return Tunables{
		SmallTargetMs:   3000,
		FailedLandingMs: 1000,
		MaxRetries:      2,
		ScrubMinGap:     120 * time.Millisecond,
		ScrubMinDeltaMs: 500,
		SuppressWindow:  3 * time.Second,
	}
}

// landingAccepted classifies where a committed seek actually landed.
// Small targets always pass. A large target landing implausibly close to
// zero is the snap-to-zero signature and fails.
func landingAccepted(tun Tunables, targetMs, actualMs int64) bool {
	if targetMs <= tun.SmallTargetMs {
		return true
	}
	return actualMs >= tun.FailedLandingMs
}

// displayGuard suppresses near-zero polled positions for a bounded window
// after a large-target commit, while retry and failover are still pending.
type displayGuard struct {
	until time.Time
}

func (g *displayGuard) arm(tun Tunables, targetMs int64, committedAt time.Time) {
	if targetMs > tun.SmallTargetMs {
		g.until = committedAt.Add(tun.SuppressWindow)
	}
}

func (g *displayGuard) clear() {
	g.until = time.Time{}
}

// allows reports whether a polled position may overwrite the display.
func (g *displayGuard) allows(tun Tunables, positionMs int64, now time.Time) bool {
	if g.until.IsZero() || now.After(g.until) {
		return true
	}
	return positionMs >= tun.FailedLandingMs
}
