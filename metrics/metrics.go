// Package metrics exposes Prometheus collectors for the poller.
package metrics

import (
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Cycle outcomes used as the "result" label.
const (
	ResultOK          = "ok"
	ResultFetchFailed = "fetch_failed"
	ResultParseFailed = "parse_failed"
	ResultStoreFailed = "store_failed"
)

type Metrics struct {
	Cycles         *prometheus.CounterVec
	SamplesWritten *prometheus.CounterVec
	SamplesSkipped prometheus.Counter
	StoreFailures  prometheus.Counter
	CycleDuration  prometheus.Histogram
	NextInterval   prometheus.Gauge
}

// New registers the collectors on reg.
func New(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		Cycles: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "garagescraper_poll_cycles_total",
			Help: "Poll cycles run, by outcome.",
		}, []string{"result"}),
		SamplesWritten: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "garagescraper_samples_written_total",
			Help: "Samples appended to stream files, by garage.",
		}, []string{"garage"}),
		SamplesSkipped: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "garagescraper_samples_skipped_total",
			Help: "Count cells dropped by the normalizer.",
		}),
		StoreFailures: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "garagescraper_store_failures_total",
			Help: "Stream appends that failed.",
		}),
		CycleDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "garagescraper_cycle_duration_seconds",
			Help:    "Duration of one fetch-extract-normalize-append pass.",
			Buckets: []float64{0.1, 0.5, 1.0, 2.5, 5.0, 10.0, 30.0},
		}),
		NextInterval: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "garagescraper_poll_interval_seconds",
			Help: "Sleep chosen after the most recent cycle.",
		}),
	}

	reg.MustRegister(m.Cycles, m.SamplesWritten, m.SamplesSkipped, m.StoreFailures, m.CycleDuration, m.NextInterval)
	return m
}

func (m *Metrics) ObserveCycle(result string, took time.Duration) {
	m.Cycles.WithLabelValues(result).Inc()
	m.CycleDuration.Observe(took.Seconds())
}

func (m *Metrics) AddWritten(garage, n int) {
	m.SamplesWritten.WithLabelValues(strconv.Itoa(garage)).Add(float64(n))
}

// NewServer builds the /metrics and /health listener.
func NewServer(addr string, gatherer prometheus.Gatherer) *http.Server {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{}))
	mux.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})

	return &http.Server{
		Addr:              addr,
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}
}

// Serve runs srv until it is shut down.
func Serve(srv *http.Server) error {
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}
