package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	UpstreamCallsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "co2twin_upstream_calls_total",
			Help: "Total calls to upstream air quality and weather APIs",
		},
		[]string{"source", "status"},
	)

	UpstreamLatency = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "co2twin_upstream_latency_seconds",
			Help:    "Upstream API call latency in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"source"},
	)

	InterventionsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "co2twin_interventions_total",
			Help: "Intervention attempts by method and outcome",
		},
		[]string{"method", "outcome"},
	)

	InterventionReduction = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "co2twin_intervention_reduction_ppm",
			Help:    "Applied CO2 reduction in ppm",
			Buckets: []float64{1, 5, 10, 25, 50, 100, 200, 400},
		},
	)

	ScenariosBuilt = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "co2twin_scenarios_built_total",
			Help: "Seasonal scenarios built by stagnation risk",
		},
		[]string{"risk"},
	)

	SuggestionsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "co2twin_suggestions_total",
			Help: "Efficiency suggestions served by method",
		},
		[]string{"method"},
	)

	ReportEntries = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "co2twin_report_entries_total",
			Help: "Report log entries recorded",
		},
	)

	StationsLoaded = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "co2twin_stations_loaded",
			Help: "Stations in the current session",
		},
	)

	WeatherRefreshes = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "co2twin_weather_refreshes_total",
			Help: "Weather cache refreshes by city and result",
		},
		[]string{"city", "result"},
	)
)
