// Package prometheus exposes delivery lifecycle and routing metrics.
package prometheus

import (
	"context"
	"net/http"
	"strconv"

	"lastmile/internal/core/ports"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "lastmile"

// Metrics counts committed transitions and observes route optimisation.
// It is both a transition hook and a route observer.
type Metrics struct {
	registry     *prometheus.Registry
	transitions  *prometheus.CounterVec
	routeStops   prometheus.Histogram
	routeKm      prometheus.Histogram
	routeLookups *prometheus.CounterVec
}

var (
	_ ports.TransitionHook = (*Metrics)(nil)
	_ ports.RouteObserver  = (*Metrics)(nil)
)

// NewMetrics registers the collectors on a private registry together with
// the Go runtime and process collectors.
func NewMetrics() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		transitions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "delivery_transitions_total",
			Help:      "Committed delivery status transitions.",
		}, []string{"from", "to", "automatic"}),
		routeStops: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "route_stops",
			Help:      "Stops per optimised route.",
			Buckets:   []float64{1, 2, 5, 10, 20, 50, 100},
		}),
		routeKm: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "route_distance_km",
			Help:      "Total travel distance of optimised routes.",
			Buckets:   prometheus.ExponentialBuckets(1, 2, 10),
		}),
		routeLookups: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "route_lookups_total",
			Help:      "Route optimisation requests by cache outcome.",
		}, []string{"cache"}),
	}

	m.registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		m.transitions,
		m.routeStops,
		m.routeKm,
		m.routeLookups,
	)
	return m
}

func (m *Metrics) AfterTransition(_ context.Context, event ports.TransitionEvent) error {
	automatic := false
	if event.Entry != nil {
		automatic = event.Entry.Automatic()
	}
	m.transitions.WithLabelValues(
		event.Transition.From.String(),
		event.Transition.To.String(),
		strconv.FormatBool(automatic),
	).Inc()
	return nil
}

func (m *Metrics) ObserveOptimization(stops int, distanceKm float64, cacheHit bool) {
	outcome := "miss"
	if cacheHit {
		outcome = "hit"
	}
	m.routeLookups.WithLabelValues(outcome).Inc()
	m.routeStops.Observe(float64(stops))
	m.routeKm.Observe(distanceKm)
}

// Handler serves the registry in the Prometheus text format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{Registry: m.registry})
}

// Registry is exposed for tests and for registering further collectors.
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}
