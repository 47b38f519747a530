package ports

import (
	"context"

	"mediaplayer/internal/domain"
)

// LibraryStore is the durable store for the canonical media set and the
// per-item resume state keyed by media id.
type LibraryStore interface {
	// ReadAllResume returns the persisted resume state for every known item.
	ReadAllResume(ctx context.Context) (map[domain.MediaID]domain.ResumeState, error)
	// ReplaceAll atomically swaps the canonical set for items. A concurrent
	// reader observes either the old set or the new one, never an empty
	// intermediate state. On error the old set is left untouched.
	ReplaceAll(ctx context.Context, items []domain.MediaItem) error
	// UpdateResume writes one item's resume state, last write wins.
	UpdateResume(ctx context.Context, id domain.MediaID, resume domain.ResumeState) error
	Get(ctx context.Context, id domain.MediaID) (domain.MediaItem, error)
	List(ctx context.Context, filter domain.LibraryFilter) ([]domain.MediaItem, error)
	// ListRecent returns items ordered by PlayedAt descending, excluding
	// items that have never been played.
	ListRecent(ctx context.Context, limit int) ([]domain.MediaItem, error)
}
