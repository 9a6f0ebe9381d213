// Package metrics exposes Prometheus collectors for archive runs.
package metrics

import (
	"net/http"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	archivesTotal        *prometheus.CounterVec
	imagesTotal          *prometheus.CounterVec
	fetchDurationSeconds *prometheus.HistogramVec

	once sync.Once
)

// Init registers the collectors. It is safe to call more than once, and the
// Observe functions call it themselves.
func Init() {
	once.Do(func() {
		archivesTotal = promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "webkeep_archives_total",
				Help: "Archive runs, labeled by outcome (ok or the error code).",
			},
			[]string{"status"},
		)

		imagesTotal = promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "webkeep_images_total",
				Help: "Discovered images, labeled by saved or skipped.",
			},
			[]string{"status"},
		)

		fetchDurationSeconds = promauto.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "webkeep_fetch_duration_seconds",
				Help:    "Duration of page and image downloads.",
				Buckets: []float64{0.05, 0.1, 0.25, 0.5, 1, 2, 5, 10, 20},
			},
			[]string{"kind"},
		)
	})
}

// Handler returns an http.Handler for exposing Prometheus metrics.
func Handler() http.Handler {
	Init()
	return promhttp.Handler()
}

// ObserveArchive counts one finished archive run.
func ObserveArchive(status string) {
	Init()
	archivesTotal.WithLabelValues(status).Inc()
}

// ObserveImage counts one discovered image by outcome.
func ObserveImage(status string) {
	Init()
	imagesTotal.WithLabelValues(status).Inc()
}

// ObserveFetch records how long a page or image GET took.
func ObserveFetch(kind string, d time.Duration) {
	Init()
	fetchDurationSeconds.WithLabelValues(kind).Observe(d.Seconds())
}
