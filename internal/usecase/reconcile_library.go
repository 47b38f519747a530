package usecase

import (
	"context"
	"log/slog"
	"sync/atomic"
	"time"

	"mediaplayer/internal/domain"
	"mediaplayer/internal/domain/ports"
	"mediaplayer/internal/metrics"
)

// ReconcileLibrary merges a fresh enumeration of the media index with the
// persisted resume state and atomically replaces the canonical set.
//
// The merge copies resume state onto matching fresh items and lets fresh
// metadata win everywhere else. Ids missing from the fresh list are dropped
// together with their resume state. On any failure the old canonical set is
// left untouched. Re-running with unchanged inputs yields an identical set.
type ReconcileLibrary struct {
	Index  ports.MediaIndex
	Store  ports.LibraryStore
	Logger *slog.Logger
	Now    func() time.Time

	inFlight atomic.Bool
}

// Execute runs one reconcile pass and returns the size of the new canonical
// set. A second call while one is in flight is rejected with
// domain.ErrScanInFlight; retry policy belongs to the caller.
func (r *ReconcileLibrary) Execute(ctx context.Context) (int, error) {
	if !r.inFlight.CompareAndSwap(false, true) {
		return 0, domain.ErrScanInFlight
	}
	defer r.inFlight.Store(false)

	start := r.now()

	fresh, err := r.Index.Enumerate(ctx)
	if err != nil {
		metrics.ScansTotal.WithLabelValues("enumeration_failed").Inc()
		return 0, wrapIndex(err)
	}

	existing, err := r.Store.ReadAllResume(ctx)
	if err != nil {
		metrics.ScansTotal.WithLabelValues("persistence_failed").Inc()
		return 0, wrapStore(err)
	}

	merged := mergeResumeState(fresh, existing)

	if err := r.Store.ReplaceAll(ctx, merged); err != nil {
		metrics.ScansTotal.WithLabelValues("persistence_failed").Inc()
		return 0, wrapStore(err)
	}

	elapsed := r.now().Sub(start)
	metrics.ScansTotal.WithLabelValues("ok").Inc()
	metrics.ScanDuration.Observe(elapsed.Seconds())
	metrics.LibraryItems.Set(float64(len(merged)))

	if r.Logger != nil {
		r.Logger.Info("library reconciled",
			slog.Int("fresh", len(fresh)),
			slog.Int("known", len(existing)),
			slog.Int("canonical", len(merged)),
			slog.Int64("durationMs", elapsed.Milliseconds()),
		)
	}
	return len(merged), nil
}

func (r *ReconcileLibrary) now() time.Time {
	if r.Now != nil {
		return r.Now()
	}
	return time.Now()
}

// mergeResumeState deduplicates fresh items by id (last enumeration entry
// wins, replace-on-conflict semantics) and copies persisted resume state
// onto survivors. Fresh metadata always wins over stored metadata since the
// underlying file may have changed.
func mergeResumeState(fresh []domain.MediaItem, existing map[domain.MediaID]domain.ResumeState) []domain.MediaItem {
	index := make(map[domain.MediaID]int, len(fresh))
	merged := make([]domain.MediaItem, 0, len(fresh))

	for _, item := range fresh {
		item.Resume = domain.ResumeState{}
		if resume, ok := existing[item.ID]; ok {
			item.Resume = resume
		}
		if at, seen := index[item.ID]; seen {
			merged[at] = item
			continue
		}
		index[item.ID] = len(merged)
		merged = append(merged, item)
	}
	return merged
}
