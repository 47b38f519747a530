package domain

import "errors"

// MediaID is the identifier assigned by the media index. It is stable across
// rescans of an unchanged file on one device, but must not be assumed stable
// across devices or reinstalls.
type MediaID string

// ResumeState is the only part of a MediaItem that mutates after discovery.
type ResumeState struct {
	PositionMs     int64 `json:"positionMs"`
	PlayedAtUnixMs int64 `json:"playedAtUnixMs"` // 0 = never played
}

// MediaItem is one discovered video file in the canonical set.
// Everything except Resume is refreshed wholesale on each scan.
type MediaItem struct {
	ID            MediaID     `json:"id"`
	Title         string      `json:"title"`
	SourceLocator string      `json:"sourceLocator"`
	DurationMs    int64       `json:"durationMs"`
	SizeBytes     int64       `json:"sizeBytes"`
	FolderName    string      `json:"folderName"`
	FolderPath    string      `json:"folderPath"`
	DateAddedUnix int64       `json:"dateAddedUnix"`
	Resume        ResumeState `json:"resume"`
}

// Validate checks domain invariants for MediaItem.
func (m MediaItem) Validate() error {
	if m.ID == "" {
		return errors.New("media id is required")
	}
	if m.SourceLocator == "" {
		return errors.New("source locator is required")
	}
	if m.DurationMs < 0 {
		return errors.New("durationMs must not be negative")
	}
	if m.SizeBytes < 0 {
		return errors.New("sizeBytes must not be negative")
	}
	if m.Resume.PositionMs < 0 {
		return errors.New("resume position must not be negative")
	}
	return nil
}

// Folder is an aggregation of canonical items sharing a FolderPath.
// It is derived on read and never persisted independently.
type Folder struct {
	Name      string `json:"name"`
	Path      string `json:"path"`
	ItemCount int    `json:"itemCount"`
	SizeBytes int64  `json:"sizeBytes"`
}

// GroupFolders aggregates items into folders, preserving first-seen order.
func GroupFolders(items []MediaItem) []Folder {
	index := make(map[string]int)
	folders := make([]Folder, 0)
	for _, item := range items {
		i, ok := index[item.FolderPath]
		if !ok {
			index[item.FolderPath] = len(folders)
			folders = append(folders, Folder{Name: item.FolderName, Path: item.FolderPath})
			i = len(folders) - 1
		}
		folders[i].ItemCount++
		folders[i].SizeBytes += item.SizeBytes
	}
	return folders
}
