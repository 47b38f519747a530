package player

import (
	"sync"
	"time"

	"mediaplayer/internal/domain"
)

// snapshotHolder is the read side of a session: the run() goroutine writes
// through update, HTTP handlers and the event hub read through get.
type snapshotHolder struct {
	mu   sync.RWMutex
	snap domain.SessionSnapshot
}

func newSnapshotHolder(id string, media domain.MediaItem) *snapshotHolder {
	return &snapshotHolder{
		snap: domain.SessionSnapshot{
			SessionID:  id,
			MediaID:    media.ID,
			Phase:      domain.PhaseIdle,
			Backend:    domain.BackendPrimary,
			PositionMs: media.Resume.PositionMs,
			DurationMs: media.DurationMs,
			Speed:      1.0,
			UpdatedAt:  time.Now(),
		},
	}
}

func (h *snapshotHolder) get() domain.SessionSnapshot {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return h.snap
}

func (h *snapshotHolder) update(fn func(*domain.SessionSnapshot)) {
	h.mu.Lock()
	fn(&h.snap)
	h.snap.UpdatedAt = time.Now()
	h.mu.Unlock()
}
