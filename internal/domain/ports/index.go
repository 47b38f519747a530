package ports

import (
	"context"

	"mediaplayer/internal/domain"
)

// MediaIndex enumerates discoverable video files. Enumeration may fail or
// return partial results; no ordering is guaranteed beyond stability within
// one call. Records carry no resume state.
type MediaIndex interface {
	Enumerate(ctx context.Context) ([]domain.MediaItem, error)
}
