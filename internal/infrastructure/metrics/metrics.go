// Package metrics collects and exposes Prometheus metrics for the session guard.
package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Recorder is the metrics surface used by the middleware and platform adapters
type Recorder interface {
	RecordGuardOutcome(outcome string)
	RecordPlatformCall(operation string, status int, duration time.Duration)
	RecordBillingCache(hit bool)
}

// Collector records metrics into Prometheus collectors
type Collector struct {
	guardOutcomes    *prometheus.CounterVec
	platformCalls    *prometheus.CounterVec
	platformLatency  *prometheus.HistogramVec
	billingCacheHits *prometheus.CounterVec
}

// NewCollector creates a Collector and registers it with reg
func NewCollector(reg prometheus.Registerer) *Collector {
	c := &Collector{
		guardOutcomes: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "shopify_app_guard_outcomes_total",
			Help: "Guarded requests by resolution outcome",
		}, []string{"outcome"}),
		platformCalls: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "shopify_app_platform_calls_total",
			Help: "Calls to the Shopify platform by operation and status code",
		}, []string{"operation", "status_code"}),
		platformLatency: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "shopify_app_platform_call_duration_seconds",
			Help:    "Latency of calls to the Shopify platform",
			Buckets: prometheus.DefBuckets,
		}, []string{"operation"}),
		billingCacheHits: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "shopify_app_billing_cache_lookups_total",
			Help: "Billing cache lookups by result",
		}, []string{"result"}),
	}

	reg.MustRegister(
		c.guardOutcomes,
		c.platformCalls,
		c.platformLatency,
		c.billingCacheHits,
	)

	return c
}

// RecordGuardOutcome counts one resolved guarded request
func (c *Collector) RecordGuardOutcome(outcome string) {
	c.guardOutcomes.WithLabelValues(outcome).Inc()
}

// RecordPlatformCall records a platform call. Status 0 means a transport failure.
func (c *Collector) RecordPlatformCall(operation string, status int, duration time.Duration) {
	c.platformCalls.WithLabelValues(operation, strconv.Itoa(status)).Inc()
	c.platformLatency.WithLabelValues(operation).Observe(duration.Seconds())
}

// RecordBillingCache counts a billing cache lookup
func (c *Collector) RecordBillingCache(hit bool) {
	result := "miss"
	if hit {
		result = "hit"
	}
	c.billingCacheHits.WithLabelValues(result).Inc()
}

// Handler returns the Prometheus scrape handler
func Handler(gatherer prometheus.Gatherer) http.Handler {
	return promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{})
}

// Nop discards every metric
type Nop struct{}

func (Nop) RecordGuardOutcome(string)                     {}
func (Nop) RecordPlatformCall(string, int, time.Duration) {}
func (Nop) RecordBillingCache(bool)                       {}

var (
	_ Recorder = (*Collector)(nil)
	_ Recorder = Nop{}
)
