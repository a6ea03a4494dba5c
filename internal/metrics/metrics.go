// Package metrics collects client-side Prometheus metrics: API request
// outcomes and latency, and catalog responses discarded as stale.
package metrics

import (
	"context"
	"errors"
	"net"
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Recorder is the metrics surface used by the API client and the catalog
// controller. A nil Recorder is never passed around; use Nop instead.
type Recorder interface {
	RecordRequest(method string, statusCode int, duration time.Duration)
	RecordNetworkFailure(method string)
	RecordStaleResponse()
}

// Collector is the Prometheus implementation of Recorder.
type Collector struct {
	requests        *prometheus.CounterVec
	networkFailures *prometheus.CounterVec
	latency         *prometheus.HistogramVec
	staleResponses  prometheus.Counter
}

// NewCollector creates a Collector and registers its metrics in reg.
func NewCollector(reg prometheus.Registerer) *Collector {
	c := &Collector{
		requests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "dabooks_api_requests_total",
			Help: "API requests that received a response, by method and status code.",
		}, []string{"method", "status_code"}),
		networkFailures: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "dabooks_api_network_failures_total",
			Help: "API requests that never reached the server, by method.",
		}, []string{"method"}),
		latency: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "dabooks_api_request_duration_seconds",
			Help:    "API request latency in seconds.",
			Buckets: prometheus.DefBuckets,
		}, []string{"method"}),
		staleResponses: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "dabooks_catalog_stale_responses_total",
			Help: "Catalog responses discarded because a newer query was issued.",
		}),
	}

	reg.MustRegister(c.requests, c.networkFailures, c.latency, c.staleResponses)

	return c
}

// RecordRequest records a completed round trip.
func (c *Collector) RecordRequest(method string, statusCode int, duration time.Duration) {
	c.requests.WithLabelValues(method, strconv.Itoa(statusCode)).Inc()
	c.latency.WithLabelValues(method).Observe(duration.Seconds())
}

// RecordNetworkFailure records a request that failed before any response.
func (c *Collector) RecordNetworkFailure(method string) {
	c.networkFailures.WithLabelValues(method).Inc()
}

// RecordStaleResponse records a discarded out-of-order catalog response.
func (c *Collector) RecordStaleResponse() {
	c.staleResponses.Inc()
}

type nop struct{}

func (nop) RecordRequest(string, int, time.Duration) {}
func (nop) RecordNetworkFailure(string)              {}
func (nop) RecordStaleResponse()                     {}

// Nop returns a Recorder that records nothing.
func Nop() Recorder { return nop{} }

// Handler returns the HTTP handler serving metrics from gatherer.
func Handler(gatherer prometheus.Gatherer) http.Handler {
	return promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{})
}

// Serve exposes /metrics on addr until ctx is done.
func Serve(ctx context.Context, addr string, gatherer prometheus.Gatherer) error {
	mux := http.NewServeMux()
	mux.Handle("/metrics", Handler(gatherer))

	srv := &http.Server{
		Addr:              addr,
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
		BaseContext:       func(net.Listener) context.Context { return ctx },
	}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
		defer cancel()
		_ = srv.Shutdown(shutdownCtx)
	}()

	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}
