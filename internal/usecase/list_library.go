package usecase

import (
	"context"

	"mediaplayer/internal/domain"
	"mediaplayer/internal/domain/ports"
)

type ListFolders struct {
	Store ports.LibraryStore
}

func (l ListFolders) Execute(ctx context.Context) ([]domain.Folder, error) {
	items, err := l.Store.List(ctx, domain.LibraryFilter{SortBy: "folderPath", SortOrder: domain.SortAsc})
	if err != nil {
		return nil, wrapStore(err)
	}
	return domain.GroupFolders(items), nil
}

type ListItems struct {
	Store ports.LibraryStore
}

func (l ListItems) Execute(ctx context.Context, filter domain.LibraryFilter) ([]domain.MediaItem, error) {
	items, err := l.Store.List(ctx, filter)
	if err != nil {
		return nil, wrapStore(err)
	}
	return items, nil
}

type GetItem struct {
	Store ports.LibraryStore
}

func (g GetItem) Execute(ctx context.Context, id domain.MediaID) (domain.MediaItem, error) {
	item, err := g.Store.Get(ctx, id)
	if err != nil {
		return domain.MediaItem{}, err
	}
	return item, nil
}

type ListRecent struct {
	Store ports.LibraryStore
}

func (l ListRecent) Execute(ctx context.Context, limit int) ([]domain.MediaItem, error) {
	if limit <= 0 {
		limit = 20
	}
	items, err := l.Store.ListRecent(ctx, limit)
	if err != nil {
		return nil, wrapStore(err)
	}
	return items, nil
}
