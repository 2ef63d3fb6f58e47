// Package metrics exposes Prometheus collectors for the clerking service.
package metrics

import (
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	clerkRunsTotal             *prometheus.CounterVec
	clerkSectionsArchivedTotal *prometheus.CounterVec
	clerkSectionsModifiedTotal *prometheus.CounterVec
	clerkRunDurationSeconds    *prometheus.HistogramVec
	clerkEditsTotal            *prometheus.CounterVec
	httpRequestsTotal          *prometheus.CounterVec
	httpRequestDurationSeconds *prometheus.HistogramVec

	once sync.Once
)

// Init initializes the Prometheus metrics collectors.
// It is safe to call this function multiple times.
func Init() {
	once.Do(func() {
		clerkRunsTotal = promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "clerk_runs_total",
				Help: "Total number of clerking runs, labeled by page and outcome.",
			},
			[]string{"page", "outcome"},
		)

		clerkSectionsArchivedTotal = promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "clerk_sections_archived_total",
				Help: "Total number of sections moved to an archive, labeled by page.",
			},
			[]string{"page"},
		)

		clerkSectionsModifiedTotal = promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "clerk_sections_modified_total",
				Help: "Total number of sections rewritten in place, labeled by page.",
			},
			[]string{"page"},
		)

		clerkRunDurationSeconds = promauto.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "clerk_run_duration_seconds",
				Help:    "Histogram of clerking run durations, labeled by page.",
				Buckets: []float64{0.1, 0.25, 0.5, 1, 2, 5, 10, 30},
			},
			[]string{"page"},
		)

		clerkEditsTotal = promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "clerk_edits_total",
				Help: "Total number of page saves, labeled by result.",
			},
			[]string{"result"},
		)

		httpRequestsTotal = promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "http_requests_total",
				Help: "Total number of HTTP requests, labeled by method and code.",
			},
			[]string{"method", "code"},
		)

		httpRequestDurationSeconds = promauto.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "http_request_duration_seconds",
				Help:    "Histogram of HTTP request latencies, labeled by method and route.",
				Buckets: []float64{0.05, 0.1, 0.25, 0.5, 1, 2, 5},
			},
			[]string{"method", "route"},
		)
	})
}

// Handler returns an http.Handler for exposing Prometheus metrics.
func Handler() http.Handler {
	return promhttp.Handler()
}

// ObserveRun records the outcome of a clerking run for a page.
func ObserveRun(page, outcome string, archived, modified int, duration time.Duration) {
	clerkRunsTotal.WithLabelValues(page, outcome).Inc()
	if archived > 0 {
		clerkSectionsArchivedTotal.WithLabelValues(page).Add(float64(archived))
	}
	if modified > 0 {
		clerkSectionsModifiedTotal.WithLabelValues(page).Add(float64(modified))
	}
	clerkRunDurationSeconds.WithLabelValues(page).Observe(duration.Seconds())
}

// ObserveEdit increments the page save counter for the given result.
func ObserveEdit(result string) {
	clerkEditsTotal.WithLabelValues(result).Inc()
}

// ObserveHTTPRequest increments the HTTP request metrics.
func ObserveHTTPRequest(method, route string, code int, duration time.Duration) {
	httpRequestsTotal.WithLabelValues(method, strconv.Itoa(code)).Inc()
	httpRequestDurationSeconds.WithLabelValues(method, route).Observe(duration.Seconds())
}
