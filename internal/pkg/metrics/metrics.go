package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// CodesIssued counts invite codes created, by kind (region|branch).
	CodesIssued = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "soa_invite_codes_issued_total",
			Help: "Total number of invite codes issued",
		},
		[]string{"kind"},
	)

	// CodeVerifications counts verification outcomes (standard|legacy|invalid|expired|exhausted|error).
	CodeVerifications = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "soa_invite_code_verifications_total",
			Help: "Total number of invite code verifications by result",
		},
		[]string{"result"},
	)

	// Redemptions counts redemption outcomes (created|existing|failed).
	Redemptions = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "soa_redemptions_total",
			Help: "Total number of invite code redemptions by result",
		},
		[]string{"result"},
	)

	// RegistrationAttempts records how many registrar attempts a redemption needed.
	RegistrationAttempts = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "soa_registration_attempts",
			Help:    "Registrar attempts per redemption",
			Buckets: []float64{1, 2, 3, 4, 5},
		},
	)

	// UsageQueueDepth is the size of the usage reconciliation queue after each drain.
	UsageQueueDepth = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "soa_usage_retry_queue_depth",
			Help: "Pending invite code usage increments awaiting reconciliation",
		},
	)

	// CircuitBreakerState tracks upstream breakers (0 closed, 1 half-open, 2 open).
	CircuitBreakerState = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "soa_circuit_breaker_state",
			Help: "Circuit breaker state per upstream",
		},
		[]string{"name"},
	)

	// APILatency measures HTTP request latencies.
	APILatency = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "soa_api_latency_seconds",
			Help:    "API endpoint latency",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "path", "status"},
	)
)
