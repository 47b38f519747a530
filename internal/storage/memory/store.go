// Package memory provides an in-process LibraryStore. It backs the service
// when STORE_MODE=memory and the reconciler and session tests.
package memory

import (
	"context"
	"sort"
	"strings"
	"sync"

	"mediaplayer/internal/domain"
)

// Store keeps the canonical set in memory. ReplaceAll swaps the backing
// slice under a write lock, so readers observe either the old set or the
// new one, never a partially built set.
type Store struct {
	mu    sync.RWMutex
	items []domain.MediaItem
	index map[domain.MediaID]int
}

func NewStore() *Store {
	return &Store{index: make(map[domain.MediaID]int)}
}

func (s *Store) ReadAllResume(ctx context.Context) (map[domain.MediaID]domain.ResumeState, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make(map[domain.MediaID]domain.ResumeState, len(s.items))
	for _, item := range s.items {
		out[item.ID] = item.Resume
	}
	return out, nil
}

func (s *Store) ReplaceAll(ctx context.Context, items []domain.MediaItem) error {
	next := make([]domain.MediaItem, len(items))
	copy(next, items)
	index := make(map[domain.MediaID]int, len(next))
	for i, item := range next {
		index[item.ID] = i
	}

	s.mu.Lock()
	s.items = next
	s.index = index
	s.mu.Unlock()
	return nil
}

func (s *Store) UpdateResume(ctx context.Context, id domain.MediaID, resume domain.ResumeState) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	i, ok := s.index[id]
	if !ok {
		return domain.ErrNotFound
	}
	s.items[i].Resume = resume
	return nil
}

func (s *Store) Get(ctx context.Context, id domain.MediaID) (domain.MediaItem, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	i, ok := s.index[id]
	if !ok {
		return domain.MediaItem{}, domain.ErrNotFound
	}
	return s.items[i], nil
}

func (s *Store) List(ctx context.Context, filter domain.LibraryFilter) ([]domain.MediaItem, error) {
	s.mu.RLock()
	matched := make([]domain.MediaItem, 0, len(s.items))
	for _, item := range s.items {
		if filter.FolderPath != "" && item.FolderPath != filter.FolderPath {
			continue
		}
		if filter.Search != "" && !strings.Contains(strings.ToLower(item.Title), strings.ToLower(filter.Search)) {
			continue
		}
		matched = append(matched, item)
	}
	s.mu.RUnlock()

	sortItems(matched, filter.SortBy, filter.SortOrder)

	if filter.Offset > 0 {
		if filter.Offset >= len(matched) {
			return []domain.MediaItem{}, nil
		}
		matched = matched[filter.Offset:]
	}
	if filter.Limit > 0 && filter.Limit < len(matched) {
		matched = matched[:filter.Limit]
	}
	return matched, nil
}

func (s *Store) ListRecent(ctx context.Context, limit int) ([]domain.MediaItem, error) {
	s.mu.RLock()
	played := make([]domain.MediaItem, 0, len(s.items))
	for _, item := range s.items {
		if item.Resume.PlayedAtUnixMs > 0 {
			played = append(played, item)
		}
	}
	s.mu.RUnlock()

	sort.SliceStable(played, func(i, j int) bool {
		return played[i].Resume.PlayedAtUnixMs > played[j].Resume.PlayedAtUnixMs
	})
	if limit > 0 && limit < len(played) {
		played = played[:limit]
	}
	return played, nil
}

// Len reports the current canonical set size.
func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.items)
}

func sortItems(items []domain.MediaItem, sortBy string, order domain.SortOrder) {
	var less func(a, b domain.MediaItem) bool
	switch sortBy {
	case "title":
		less = func(a, b domain.MediaItem) bool { return a.Title < b.Title }
	case "sizeBytes":
		less = func(a, b domain.MediaItem) bool { return a.SizeBytes < b.SizeBytes }
	case "durationMs":
		less = func(a, b domain.MediaItem) bool { return a.DurationMs < b.DurationMs }
	case "folderPath":
		less = func(a, b domain.MediaItem) bool { return a.FolderPath < b.FolderPath }
	default:
		less = func(a, b domain.MediaItem) bool { return a.DateAddedUnix < b.DateAddedUnix }
	}
	reverse := order == domain.SortDesc
	sort.SliceStable(items, func(i, j int) bool {
		if reverse {
			return less(items[j], items[i])
		}
		return less(items[i], items[j])
	})
}
