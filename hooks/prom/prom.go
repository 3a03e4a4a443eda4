// Package prom counts stowage cache and backend events as Prometheus metrics.
package prom

import (
	"github.com/prometheus/client_golang/prometheus"

	"github.com/unkn0wn-root/stowage"
)

// Hooks holds the counters. Labels are bounded: target namespaces, operations
// and skip reasons come from small fixed sets; keys are never labels.
type Hooks struct {
	hits          *prometheus.CounterVec
	misses        *prometheus.CounterVec
	admitSkipped  *prometheus.CounterVec
	backendErrors *prometheus.CounterVec
}

var _ stowage.Hooks = (*Hooks)(nil)

// New registers the counters with reg under the given metric namespace
// ("" => "stowage"). A nil reg skips registration.
func New(reg prometheus.Registerer, namespace string) (*Hooks, error) {
	if namespace == "" {
		namespace = "stowage"
	}
	h := &Hooks{
		hits: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "cache",
			Name:      "hits_total",
			Help:      "Retrieves served from the memory cache",
		}, []string{"target"}),
		misses: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "cache",
			Name:      "misses_total",
			Help:      "Retrieves that went to a backend",
		}, []string{"target"}),
		admitSkipped: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "cache",
			Name:      "admit_skipped_total",
			Help:      "Payloads not admitted to the memory cache, by reason",
		}, []string{"target", "reason"}),
		backendErrors: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "backend",
			Name:      "errors_total",
			Help:      "Failed backend operations",
		}, []string{"target", "op"}),
	}
	if reg != nil {
		for _, c := range []prometheus.Collector{h.hits, h.misses, h.admitSkipped, h.backendErrors} {
			if err := reg.Register(c); err != nil {
				return nil, err
			}
		}
	}
	return h, nil
}

func (h *Hooks) CacheHit(ns, _ string)  { h.hits.WithLabelValues(ns).Inc() }
func (h *Hooks) CacheMiss(ns, _ string) { h.misses.WithLabelValues(ns).Inc() }

func (h *Hooks) CacheAdmitSkipped(ns, _ string, _ int, reason string) {
	h.admitSkipped.WithLabelValues(ns, reason).Inc()
}

func (h *Hooks) BackendError(op, ns, _ string, _ error) {
	h.backendErrors.WithLabelValues(ns, op).Inc()
}
