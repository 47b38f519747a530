package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

var (
	HTTPRequestsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "player",
		Name:      "http_requests_total",
		Help:      "Total HTTP requests by method, path and status code.",
	}, []string{"method", "path", "status"})

	HTTPRequestDuration = prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: "player",
		Name:      "http_request_duration_seconds",
		Help:      "HTTP request duration in seconds.",
		Buckets:   []float64{0.05, 0.1, 0.3, 0.5, 1, 2, 5, 10, 30},
	}, []string{"method", "path"})

	ScansTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "player",
		Name:      "library_scans_total",
		Help:      "Total library scans by outcome.",
	}, []string{"outcome"})

	ScanDuration = prometheus.NewHistogram(prometheus.HistogramOpts{
		Namespace: "player",
		Name:      "library_scan_duration_seconds",
		Help:      "Duration of library reconcile runs in seconds.",
		Buckets:   []float64{0.1, 0.5, 1, 2, 5, 10, 30, 60},
	})

	LibraryItems = prometheus.NewGauge(prometheus.GaugeOpts{
		Namespace: "player",
		Name:      "library_items",
		Help:      "Number of items in the canonical media set after the last scan.",
	})

	SeekCommitsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "player",
		Name:      "seek_commits_total",
		Help:      "Total seek commits by result (accepted, failed_over).",
	}, []string{"result"})

	SeekRetriesTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: "player",
		Name:      "seek_retries_total",
		Help:      "Total seek retries after a snap-to-zero landing.",
	})

	FailoversTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: "player",
		Name:      "backend_failovers_total",
		Help:      "Total one-way failovers to the secondary decode backend.",
	})

	ScrubSeeksSuppressed = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "player",
		Name:      "scrub_seeks_suppressed_total",
		Help:      "Scrub seeks dropped after failover, by reason (throttled, small_delta).",
	}, []string{"reason"})

	PhaseTransitionsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "player",
		Name:      "session_phase_transitions_total",
		Help:      "Playback session phase transitions by from and to phase.",
	}, []string{"from", "to"})

	ActiveSessions = prometheus.NewGauge(prometheus.GaugeOpts{
		Namespace: "player",
		Name:      "active_sessions",
		Help:      "Number of currently open playback sessions.",
	})

	ResumeSavesTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "player",
		Name:      "resume_saves_total",
		Help:      "Resume position writes by trigger (periodic, teardown, completion).",
	}, []string{"trigger"})
)

func Register(reg prometheus.Registerer) {
	reg.MustRegister(
		HTTPRequestsTotal,
		HTTPRequestDuration,
		ScansTotal,
		ScanDuration,
		LibraryItems,
		SeekCommitsTotal,
		SeekRetriesTotal,
		FailoversTotal,
		ScrubSeeksSuppressed,
		PhaseTransitionsTotal,
		ActiveSessions,
		ResumeSavesTotal,
	)
}
