// Package metrics exposes the portal's Prometheus collectors.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	// BackendFallbacks counts read paths that degraded to the fallback cache.
	BackendFallbacks = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "portal_backend_fallbacks_total",
		Help: "Backend reads that failed and were served from the fallback cache.",
	}, []string{"operation"})

	// CacheReads counts fallback cache reads by key and result (hit or miss).
	CacheReads = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "portal_cache_reads_total",
		Help: "Fallback cache reads by key and result.",
	}, []string{"key", "result"})

	// CacheSyncErrors counts failed writes from the session store to the cache.
	CacheSyncErrors = promauto.NewCounter(prometheus.CounterOpts{
		Name: "portal_cache_sync_errors_total",
		Help: "Session state writes to the fallback cache that failed.",
	})

	// Reconciliations counts registration reconciliation runs.
	Reconciliations = promauto.NewCounter(prometheus.CounterOpts{
		Name: "portal_reconciliations_total",
		Help: "Registration merge-and-reconcile runs.",
	})

	// Notifications counts published live notifications by event.
	Notifications = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "portal_notifications_total",
		Help: "Live notifications published by event name.",
	}, []string{"event"})

	// LivePollers is the number of running per-client pollers.
	LivePollers = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "portal_live_pollers",
		Help: "Running per-client refresh pollers.",
	})
)

// Handler serves the default registry.
func Handler() http.Handler {
	return promhttp.Handler()
}
