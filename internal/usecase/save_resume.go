package usecase

import (
	"context"
	"errors"
	"time"

	"mediaplayer/internal/domain"
	"mediaplayer/internal/domain/ports"
)

// SaveResume writes one item's resume state. Writes are keyed by media id
// and are last-write-wins; only one session is expected to own a given id's
// state at a time.
type SaveResume struct {
	Store ports.LibraryStore
	Now   func() time.Time
}

func (s SaveResume) Execute(ctx context.Context, id domain.MediaID, positionMs int64) error {
	now := time.Now
	if s.Now != nil {
		now = s.Now
	}
	resume := domain.ResumeState{
		PositionMs:     positionMs,
		PlayedAtUnixMs: now().UnixMilli(),
	}
	if err := s.Store.UpdateResume(ctx, id, resume); err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return err
		}
		return wrapStore(err)
	}
	return nil
}
