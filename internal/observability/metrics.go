package observability

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	RideTransitions = promauto.NewCounterVec(
		prometheus.CounterOpts{Namespace: "driver_rides", Name: "ride_transitions_total", Help: "Ride lifecycle operations by operation and outcome"},
		[]string{"op", "outcome"},
	)
	ActiveRides    = promauto.NewGauge(prometheus.GaugeOpts{Namespace: "driver_rides", Name: "active_rides", Help: "Ride requests in the active collection"})
	CompletedRides = promauto.NewGauge(prometheus.GaugeOpts{Namespace: "driver_rides", Name: "completed_rides", Help: "Rides in the completed collection"})

	LocationAcquisitions = promauto.NewCounterVec(
		prometheus.CounterOpts{Namespace: "driver_rides", Name: "location_acquisitions_total", Help: "Device location requests by outcome"},
		[]string{"outcome"},
	)
	GeocodeLookups = promauto.NewCounterVec(
		prometheus.CounterOpts{Namespace: "driver_rides", Name: "geocode_lookups_total", Help: "Reverse geocode lookups by outcome"},
		[]string{"outcome"},
	)
	GeocodeLatency = promauto.NewHistogram(prometheus.HistogramOpts{Namespace: "driver_rides", Name: "geocode_latency_seconds", Help: "Reverse geocode latency seconds"})

	RouteComputations = promauto.NewCounterVec(
		prometheus.CounterOpts{Namespace: "driver_rides", Name: "route_computations_total", Help: "Route computations by source"},
		[]string{"source"},
	)
	NotificationsSent = promauto.NewCounterVec(
		prometheus.CounterOpts{Namespace: "driver_rides", Name: "notifications_total", Help: "Notifications emitted by kind"},
		[]string{"kind"},
	)

	HTTPRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{Namespace: "driver_rides", Name: "http_requests_total", Help: "Total HTTP requests handled"},
		[]string{"method", "path", "status"},
	)
	HTTPRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "driver_rides",
			Name:      "http_request_duration_seconds",
			Help:      "HTTP request latency distribution",
			Buckets:   prometheus.DefBuckets,
		},
		[]string{"method", "path", "status"},
	)
)
