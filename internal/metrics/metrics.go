package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	// EpisodesCompleted counts episodes that reached the library.
	EpisodesCompleted = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "spool",
		Name:      "episodes_completed_total",
		Help:      "Episodes organized into the library.",
	})

	// EpisodesFailed counts episodes that exhausted every mirror or hit a
	// definitive failure, labelled by terminal queue status.
	EpisodesFailed = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "spool",
		Name:      "episodes_failed_total",
		Help:      "Episodes that ended in a terminal failure state.",
	}, []string{"status"})

	// MirrorAttempts counts individual mirror transfer attempts by outcome
	// (accepted, rejected, failed).
	MirrorAttempts = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "spool",
		Name:      "mirror_attempts_total",
		Help:      "Mirror transfer attempts by outcome.",
	}, []string{"outcome"})

	// Verifications counts language verification verdicts by reason family
	// (tag-match, content-match, subs-only, mismatch, ...).
	Verifications = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "spool",
		Name:      "verifications_total",
		Help:      "Language verification verdicts by reason.",
	}, []string{"reason"})

	// UnrestrictResolutions counts unrestrict service calls by outcome
	// (resolved, unavailable, error).
	UnrestrictResolutions = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "spool",
		Name:      "unrestrict_resolutions_total",
		Help:      "Unrestrict link resolutions by outcome.",
	}, []string{"outcome"})

	// StageDuration observes wall-clock stage execution time.
	StageDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: "spool",
		Name:      "stage_duration_seconds",
		Help:      "Stage execution time by stage name.",
		Buckets:   prometheus.ExponentialBuckets(1, 2, 12),
	}, []string{"stage"})

	// QueueDepth tracks the live number of items per queue status.
	QueueDepth = promauto.NewGaugeVec(prometheus.GaugeOpts{
		Namespace: "spool",
		Name:      "queue_depth",
		Help:      "Queue items by status.",
	}, []string{"status"})

	// BatchActive is 1 while a download batch owns the status record.
	BatchActive = promauto.NewGauge(prometheus.GaugeOpts{
		Namespace: "spool",
		Name:      "batch_active",
		Help:      "Whether a download batch is currently active.",
	})
)

// ReasonFamily collapses a verifier reason string to its label family so
// detailed mismatch codes do not explode cardinality.
func ReasonFamily(reason string) string {
	for i := 0; i < len(reason); i++ {
		if reason[i] == ':' {
			return reason[:i]
		}
	}
	if reason == "" {
		return "none"
	}
	return reason
}

// Handler serves the default registry for the daemon's /metrics endpoint.
func Handler() http.Handler {
	return promhttp.Handler()
}
