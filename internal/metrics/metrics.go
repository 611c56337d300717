package metrics

import (
	"strings"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// HTTP metrics
var (
	HTTPRequestsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "vigil_http_requests_total",
		Help: "Total number of HTTP requests",
	}, []string{"method", "path", "status"})

	HTTPRequestDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "vigil_http_request_duration_seconds",
		Help:    "HTTP request duration in seconds",
		Buckets: []float64{0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5},
	}, []string{"method", "path"})
)

// Moderation metrics
var (
	ModerationActionsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "vigil_moderation_actions_total",
		Help: "Total number of moderation actions by outcome",
	}, []string{"action", "status"})

	AuditWriteFailuresTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "vigil_audit_write_failures_total",
		Help: "Total number of swallowed audit log write failures",
	})
)

// Profile aggregation metrics
var (
	SnapshotCacheHitsTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "vigil_snapshot_cache_hits_total",
		Help: "Total number of profile snapshot cache hits",
	})

	SnapshotCacheMissesTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "vigil_snapshot_cache_misses_total",
		Help: "Total number of profile snapshot cache misses",
	})

	FacetFetchFailuresTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "vigil_facet_fetch_failures_total",
		Help: "Total number of degraded profile facets by facet name",
	}, []string{"facet"})
)

// Business gauges (updated periodically by the collector)
var (
	ReputationRecordsTotal = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "vigil_reputation_records_total",
		Help: "Total number of user reputation records",
	})

	SuspiciousAccountsTotal = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "vigil_suspicious_accounts_total",
		Help: "Total number of tracked suspicious accounts",
	})

	AdminActionsLogged = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "vigil_admin_actions_logged",
		Help: "Total number of audit log entries",
	})

	AdminNotesTotal = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "vigil_admin_notes_total",
		Help: "Total number of admin notes",
	})
)

// NormalizePath collapses dynamic path segments so metric label cardinality
// stays bounded.
func NormalizePath(path string) string {
	segments := splitPath(path)
	if len(segments) < 2 {
		return path
	}

	switch segments[0] {
	case "api":
		if len(segments) == 3 && segments[1] == "profile" {
			return "/api/profile/:user"
		}
	case "mod":
		// /mod routes carry no path parameters
	}
	return path
}

// splitPath splits a URL path into non-empty segments.
func splitPath(path string) []string {
	parts := strings.Split(path, "/")
	segments := make([]string, 0, len(parts))
	for _, p := range parts {
		if p != "" {
			segments = append(segments, p)
		}
	}
	return segments
}
