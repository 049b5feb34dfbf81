// Package metrics exposes Prometheus counters for merges, bed transitions
// and push delivery.
package metrics

import (
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics groups the collectors registered by the service.
type Metrics struct {
	registry        *prometheus.Registry
	Merges          *prometheus.CounterVec
	BedTransitions  *prometheus.CounterVec
	Notifications   *prometheus.CounterVec
	RemindersIssued prometheus.Counter
}

// New registers every collector on a fresh registry.
func New() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		Merges: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "casework",
			Name:      "case_merges_total",
			Help:      "Case merge attempts by outcome.",
		}, []string{"outcome"}),
		BedTransitions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "casework",
			Name:      "bed_transitions_total",
			Help:      "Bed actions by action and outcome.",
		}, []string{"action", "outcome"}),
		Notifications: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "casework",
			Name:      "push_notifications_total",
			Help:      "Web push deliveries by event kind and outcome.",
		}, []string{"kind", "outcome"}),
		RemindersIssued: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "casework",
			Name:      "checkout_reminders_total",
			Help:      "Scheduled checkout reminders dispatched.",
		}),
	}
	m.registry.MustRegister(m.Merges, m.BedTransitions, m.Notifications, m.RemindersIssued)
	return m
}

// Outcome labels a result as "ok" or "failed".
func Outcome(err error) string {
	if err != nil {
		return "failed"
	}
	return "ok"
}

// Handler serves the registry in the Prometheus text format.
func (m *Metrics) Handler() gin.HandlerFunc {
	h := promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
	return gin.WrapH(h)
}
