// Package fsindex enumerates video files under configured roots. It is the
// media index collaborator: read-only, unordered, and allowed to fail or
// return partial results when a root disappears mid-scan.
package fsindex

import (
	"context"
	"fmt"
	"hash/fnv"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"mediaplayer/internal/domain"
)

// DurationProber is the metadata-extraction fallback for containers whose
// duration the walker cannot know from the filesystem alone.
type DurationProber interface {
	DurationMs(ctx context.Context, filePath string) (int64, error)
}

type Index struct {
	roots  []string
	prober DurationProber
	logger *slog.Logger
}

var videoExtensions = map[string]struct{}{
	".mp4": {}, ".mkv": {}, ".avi": {}, ".mov": {}, ".webm": {},
	".m4v": {}, ".ts": {}, ".3gp": {}, ".wmv": {}, ".flv": {},
}

func New(roots []string, prober DurationProber, logger *slog.Logger) *Index {
	if logger == nil {
		logger = slog.Default()
	}
	return &Index{roots: roots, prober: prober, logger: logger}
}

// Enumerate walks every configured root and returns the discovered items.
// Items carry default resume state. A missing root fails the enumeration:
// a vanished mount must not be mistaken for an emptied library.
func (x *Index) Enumerate(ctx context.Context) ([]domain.MediaItem, error) {
	if len(x.roots) == 0 {
		return nil, fmt.Errorf("no media roots configured")
	}

	items := make([]domain.MediaItem, 0, 64)
	for _, root := range x.roots {
		abs, err := filepath.Abs(root)
		if err != nil {
			return nil, fmt.Errorf("resolve root %q: %w", root, err)
		}
		if _, err := os.Stat(abs); err != nil {
			return nil, fmt.Errorf("media root unavailable: %w", err)
		}

		err = filepath.WalkDir(abs, func(path string, d fs.DirEntry, walkErr error) error {
			if walkErr != nil {
				// Unreadable subtrees are skipped, not fatal.
				x.logger.Warn("scan: skipping entry",
					slog.String("path", path),
					slog.String("error", walkErr.Error()),
				)
				if d != nil && d.IsDir() {
					return fs.SkipDir
				}
				return nil
			}
			if err := ctx.Err(); err != nil {
				return err
			}
			if d.IsDir() || !isVideo(path) {
				return nil
			}

			info, err := d.Info()
			if err != nil {
				x.logger.Warn("scan: stat failed",
					slog.String("path", path),
					slog.String("error", err.Error()),
				)
				return nil
			}

			items = append(items, x.toItem(ctx, path, info))
			return nil
		})
		if err != nil {
			return nil, fmt.Errorf("walk %q: %w", abs, err)
		}
	}
	return items, nil
}

func (x *Index) toItem(ctx context.Context, path string, info fs.FileInfo) domain.MediaItem {
	dir := filepath.Dir(path)
	item := domain.MediaItem{
		ID:            pathID(path),
		Title:         strings.TrimSuffix(filepath.Base(path), filepath.Ext(path)),
		SourceLocator: path,
		SizeBytes:     info.Size(),
		FolderName:    filepath.Base(dir),
		FolderPath:    dir,
		DateAddedUnix: info.ModTime().Unix(),
	}

	if x.prober != nil {
		durationMs, err := x.prober.DurationMs(ctx, path)
		if err != nil {
			// Duration stays unknown; playback still works.
			x.logger.Debug("scan: duration probe failed",
				slog.String("path", path),
				slog.String("error", err.Error()),
			)
		} else {
			item.DurationMs = durationMs
		}
	}
	return item
}

func isVideo(path string) bool {
	_, ok := videoExtensions[strings.ToLower(filepath.Ext(path))]
	return ok
}

// pathID derives the index-assigned id from the absolute path. It is stable
// across rescans on one device but, like any local index id, meaningless on
// another device.
func pathID(path string) domain.MediaID {
	h := fnv.New64a()
	_, _ = h.Write([]byte(path))
	return domain.MediaID(fmt.Sprintf("%016x", h.Sum64()))
}
