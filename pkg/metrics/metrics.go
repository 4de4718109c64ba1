// Package metrics wires the buffer pool and lock manager to Prometheus,
// using promauto counters/gauges directly rather than the full
// OpenTelemetry SDK — the core has no request-scoped tracing surface, so
// a lighter direct-client approach is a better fit (see DESIGN.md).
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// BufferPool counts the events a caller would want dashboards for: cache
// hits/misses, evictions, flushes, and how many frames are pinned right
// now.
type BufferPool struct {
	Hits        prometheus.Counter
	Misses      prometheus.Counter
	Evictions   prometheus.Counter
	Flushes     prometheus.Counter
	PoolExhaust prometheus.Counter
	PinnedGauge prometheus.Gauge
}

// NewBufferPool registers buffer-pool metrics against reg. Pass
// prometheus.NewRegistry() in tests to avoid collisions with the default
// global registry.
func NewBufferPool(reg prometheus.Registerer) *BufferPool {
	factory := promauto.With(reg)
	return &BufferPool{
		Hits: factory.NewCounter(prometheus.CounterOpts{
			Name: "storagecore_bufferpool_hits_total",
			Help: "Page fetches served from an already-resident frame.",
		}),
		Misses: factory.NewCounter(prometheus.CounterOpts{
			Name: "storagecore_bufferpool_misses_total",
			Help: "Page fetches that required reading from disk.",
		}),
		Evictions: factory.NewCounter(prometheus.CounterOpts{
			Name: "storagecore_bufferpool_evictions_total",
			Help: "Frames reclaimed from the victim set.",
		}),
		Flushes: factory.NewCounter(prometheus.CounterOpts{
			Name: "storagecore_bufferpool_flushes_total",
			Help: "Pages written back to the disk collaborator.",
		}),
		PoolExhaust: factory.NewCounter(prometheus.CounterOpts{
			Name: "storagecore_bufferpool_exhausted_total",
			Help: "FetchPage/NewPage calls that found no free or evictable frame.",
		}),
		PinnedGauge: factory.NewGauge(prometheus.GaugeOpts{
			Name: "storagecore_bufferpool_pinned_frames",
			Help: "Frames currently pinned (pin count > 0).",
		}),
	}
}

// Lock counts lock-manager events useful for spotting contention and
// wound-wait churn.
type Lock struct {
	Grants       prometheus.Counter
	Upgrades     prometheus.Counter
	WoundAborts  prometheus.Counter
	WaitersGauge prometheus.Gauge
}

// NewLock registers lock-manager metrics against reg.
func NewLock(reg prometheus.Registerer) *Lock {
	factory := promauto.With(reg)
	return &Lock{
		Grants: factory.NewCounter(prometheus.CounterOpts{
			Name: "storagecore_lock_grants_total",
			Help: "Shared and exclusive lock requests granted (upgrades are counted separately).",
		}),
		Upgrades: factory.NewCounter(prometheus.CounterOpts{
			Name: "storagecore_lock_upgrades_total",
			Help: "Shared-to-exclusive lock upgrades completed.",
		}),
		WoundAborts: factory.NewCounter(prometheus.CounterOpts{
			Name: "storagecore_lock_wound_aborts_total",
			Help: "Transactions aborted by the wound-wait policy.",
		}),
		WaitersGauge: factory.NewGauge(prometheus.GaugeOpts{
			Name: "storagecore_lock_waiters",
			Help: "Lock requests currently queued and ungranted.",
		}),
	}
}
