// Package metrics provides Prometheus metrics for the polymatch jobs.
package metrics

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/rewired-gh/polymatch/internal/logger"
)

// Registry holds every polymatch collector plus the Go and process collectors.
var Registry = prometheus.NewRegistry()

var factory = promauto.With(Registry)

var (
	// MatchDecisionsTotal tracks stored decisions by match method
	MatchDecisionsTotal = factory.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "polymatch",
			Subsystem: "matching",
			Name:      "decisions_total",
			Help:      "Total number of match decisions stored, by method",
		},
		[]string{"method"},
	)

	// MatchErrorsTotal tracks per-market failures inside a batch
	MatchErrorsTotal = factory.NewCounter(
		prometheus.CounterOpts{
			Namespace: "polymatch",
			Subsystem: "matching",
			Name:      "errors_total",
			Help:      "Total number of source markets that failed to match or store",
		},
	)

	// ClassifierCallsTotal tracks classifier invocations by status
	ClassifierCallsTotal = factory.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "polymatch",
			Subsystem: "classifier",
			Name:      "calls_total",
			Help:      "Total number of classifier calls, by outcome status",
		},
		[]string{"status"},
	)

	// BatchDuration tracks match batch wall time
	BatchDuration = factory.NewHistogram(
		prometheus.HistogramOpts{
			Namespace: "polymatch",
			Subsystem: "matching",
			Name:      "batch_duration_seconds",
			Help:      "Duration of match batches in seconds",
			Buckets:   []float64{1, 5, 15, 30, 60, 120, 300, 600, 1800},
		},
	)

	// EnrichmentsTotal tracks summary and geotag generations by result
	EnrichmentsTotal = factory.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "polymatch",
			Subsystem: "enrich",
			Name:      "generations_total",
			Help:      "Total number of enrichment generations, by kind and status",
		},
		[]string{"kind", "status"},
	)

	// VenueItemsFetched tracks items pulled from each venue
	VenueItemsFetched = factory.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "polymatch",
			Subsystem: "sync",
			Name:      "items_fetched_total",
			Help:      "Total number of markets or events fetched, by venue",
		},
		[]string{"venue"},
	)
)

func init() {
	Registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
}

// RecordDecision records one stored match decision
func RecordDecision(method string) {
	MatchDecisionsTotal.WithLabelValues(method).Inc()
}

// RecordMatchError records one failed source market
func RecordMatchError() {
	MatchErrorsTotal.Inc()
}

// RecordClassifierCall records one classifier invocation
func RecordClassifierCall(status string) {
	ClassifierCallsTotal.WithLabelValues(status).Inc()
}

// RecordBatch records the duration of a match batch
func RecordBatch(d time.Duration) {
	BatchDuration.Observe(d.Seconds())
}

// RecordEnrichment records one enrichment attempt
func RecordEnrichment(kind, status string) {
	EnrichmentsTotal.WithLabelValues(kind, status).Inc()
}

// RecordFetched records how many items a venue sync returned
func RecordFetched(venue string, n int) {
	VenueItemsFetched.WithLabelValues(venue).Add(float64(n))
}

// Handler serves the registry in the Prometheus exposition format.
func Handler() http.Handler {
	return promhttp.HandlerFor(Registry, promhttp.HandlerOpts{})
}

// Serve exposes /metrics on addr until ctx is cancelled.
func Serve(ctx context.Context, addr string) error {
	mux := http.NewServeMux()
	mux.Handle("/metrics", Handler())
	srv := &http.Server{Addr: addr, Handler: mux, ReadHeaderTimeout: 5 * time.Second}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		srv.Shutdown(shutdownCtx)
	}()

	logger.Info("Serving metrics on %s/metrics", addr)
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}
