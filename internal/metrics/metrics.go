package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// ============================================
	// Database connection metrics
	// ============================================
	DBConnectionActive = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "sweep_db_connection_active",
		Help: "Number of active database connections",
	})

	DBConnectionIdle = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "sweep_db_connection_idle",
		Help: "Number of idle database connections",
	})

	DBConnectionStatus = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "sweep_db_connection_status",
		Help: "Database connection status (1=healthy, 0=unhealthy)",
	})

	// ============================================
	// NATS connection metrics
	// ============================================
	NATSConnectionStatus = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "sweep_nats_connection_status",
		Help: "NATS connection status (1=connected, 0=disconnected)",
	})

	NATSMessagesPublished = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "sweep_nats_messages_published_total",
			Help: "Total number of NATS messages published",
		},
		[]string{"subject_type"},
	)

	// ============================================
	// Plan lifecycle metrics
	// ============================================
	PlansCalculated = promauto.NewCounter(prometheus.CounterOpts{
		Name: "sweep_plans_calculated_total",
		Help: "Total number of sweep plans calculated",
	})

	PlansExecuted = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "sweep_plans_executed_total",
			Help: "Total number of sweep plan executions by outcome",
		},
		[]string{"outcome"}, // success, partial, failed
	)

	PlanCalculationDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "sweep_plan_calculation_duration_seconds",
		Help:    "Sweep plan calculation duration in seconds",
		Buckets: prometheus.DefBuckets,
	})

	PlanChainsDropped = promauto.NewCounter(prometheus.CounterOpts{
		Name: "sweep_plan_chains_dropped_total",
		Help: "Total number of source chains dropped as uneconomical",
	})

	// ============================================
	// Bridge leg metrics
	// ============================================
	BridgesSubmitted = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "sweep_bridges_submitted_total",
			Help: "Total number of bridge legs submitted",
		},
		[]string{"provider", "source_chain"},
	)

	BridgesCompleted = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "sweep_bridges_completed_total",
			Help: "Total number of bridge legs reaching a terminal status",
		},
		[]string{"provider", "status"},
	)

	BridgeStatusChecks = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "sweep_bridge_status_checks_total",
			Help: "Total number of bridge status checks by result",
		},
		[]string{"provider", "result"}, // terminal, inflight, error
	)

	BridgeTrackingDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "sweep_bridge_tracking_duration_seconds",
			Help:    "Time from submission to terminal status in seconds",
			Buckets: []float64{30, 60, 120, 300, 600, 1200, 1800, 3600},
		},
		[]string{"provider"},
	)

	// ============================================
	// Quote metrics
	// ============================================
	QuoteRequests = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "sweep_quote_requests_total",
			Help: "Total number of provider quote requests",
		},
		[]string{"provider", "result"}, // ok, error
	)

	QuotesExpired = promauto.NewCounter(prometheus.CounterOpts{
		Name: "sweep_quotes_expired_total",
		Help: "Total number of legs failed on an expired quote",
	})
)
