// internal/monitoring/metrics.go
package monitoring

import (
	"context"
	"net/http"
	"time"

	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/valpere/TenderScrapexter/internal/utils"
)

// Options configures the metrics surface.
type Options struct {
	Namespace     string
	ListenAddress string
	Path          string
}

// Metrics holds the crawl-level Prometheus collectors. Each Metrics owns its
// registry, so independent crawls (and tests) never collide on registration.
type Metrics struct {
	registry *prometheus.Registry
	options  Options
	logger   utils.Logger
	server   *http.Server

	authAttempts  *prometheus.CounterVec
	pagesScanned  prometheus.Counter
	recordsTotal  *prometheus.CounterVec
	crawlDuration prometheus.Histogram
}

// NewMetrics creates the collectors on a fresh registry.
func NewMetrics(options Options, logger utils.Logger) *Metrics {
	if logger == nil {
		logger = utils.NewLogger()
	}
	if options.Namespace == "" {
		options.Namespace = "tenderscrapexter"
	}
	if options.Path == "" {
		options.Path = "/metrics"
	}

	registry := prometheus.NewRegistry()
	factory := promauto.With(registry)

	return &Metrics{
		registry: registry,
		options:  options,
		logger:   logger.WithField("component", "metrics"),

		authAttempts: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: options.Namespace,
			Name:      "auth_attempts_total",
			Help:      "Login attempts by result",
		}, []string{"result"}),

		pagesScanned: factory.NewCounter(prometheus.CounterOpts{
			Namespace: options.Namespace,
			Name:      "listing_pages_scanned_total",
			Help:      "Listing pages fetched and scanned for tender links",
		}),

		recordsTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: options.Namespace,
			Name:      "records_total",
			Help:      "Processed tender references by outcome",
		}, []string{"outcome"}),

		crawlDuration: factory.NewHistogram(prometheus.HistogramOpts{
			Namespace: options.Namespace,
			Name:      "crawl_duration_seconds",
			Help:      "Wall-clock duration of complete crawls",
			Buckets:   prometheus.ExponentialBuckets(1, 4, 8),
		}),
	}
}

// RecordAuth counts a login attempt by result.
func (m *Metrics) RecordAuth(result string) {
	m.authAttempts.WithLabelValues(result).Inc()
}

// RecordPage counts one scanned listing page.
func (m *Metrics) RecordPage() {
	m.pagesScanned.Inc()
}

// RecordOutcome counts one processed reference by outcome.
func (m *Metrics) RecordOutcome(outcome string) {
	m.recordsTotal.WithLabelValues(outcome).Inc()
}

// ObserveCrawlDuration records a finished crawl's duration in seconds.
func (m *Metrics) ObserveCrawlDuration(seconds float64) {
	m.crawlDuration.Observe(seconds)
}

// Gather exposes the registry for tests and embedding.
func (m *Metrics) Gather() prometheus.Gatherer {
	return m.registry
}

// Handler returns the HTTP routes: the metrics path and a /healthz probe.
func (m *Metrics) Handler() http.Handler {
	router := mux.NewRouter()
	router.Handle(m.options.Path, promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})).Methods(http.MethodGet)
	router.HandleFunc("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	}).Methods(http.MethodGet)
	return router
}

// Serve runs the metrics endpoint until ctx is cancelled.
func (m *Metrics) Serve(ctx context.Context) error {
	m.server = &http.Server{
		Addr:              m.options.ListenAddress,
		Handler:           m.Handler(),
		ReadHeaderTimeout: 5 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		m.logger.Infof("metrics listening on %s%s", m.options.ListenAddress, m.options.Path)
		errCh <- m.server.ListenAndServe()
	}()

	select {
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return m.server.Shutdown(shutdownCtx)
	case err := <-errCh:
		if err == http.ErrServerClosed {
			return nil
		}
		return err
	}
}
