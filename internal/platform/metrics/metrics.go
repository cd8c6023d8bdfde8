package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	HTTPRequestsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "dispatch",
		Subsystem: "http",
		Name:      "requests_total",
		Help:      "Total HTTP requests processed",
	}, []string{"method", "route", "status"})

	HTTPRequestDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: "dispatch",
		Subsystem: "http",
		Name:      "request_duration_seconds",
		Help:      "HTTP request latency in seconds",
		Buckets:   []float64{0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30},
	}, []string{"method", "route"})

	// outcome: resolved, not_found, transient, invalid, cache_hit
	GeocodeResolutions = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "dispatch",
		Subsystem: "geocode",
		Name:      "resolutions_total",
		Help:      "Geocoding attempts by outcome",
	}, []string{"outcome"})

	RoutePlans = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "dispatch",
		Subsystem: "routing",
		Name:      "plans_total",
		Help:      "Route planning requests by outcome",
	}, []string{"outcome"})

	RouteStops = promauto.NewHistogram(prometheus.HistogramOpts{
		Namespace: "dispatch",
		Subsystem: "routing",
		Name:      "route_steps",
		Help:      "Number of delivery steps per planned route",
		Buckets:   []float64{1, 2, 5, 10, 20, 50, 100},
	})

	StatusTransitions = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "dispatch",
		Subsystem: "parcels",
		Name:      "status_transitions_total",
		Help:      "Parcel status change requests by requested status and outcome",
	}, []string{"to", "outcome"})
)

// Handler serves the Prometheus exposition endpoint.
func Handler() http.Handler {
	return promhttp.Handler()
}
