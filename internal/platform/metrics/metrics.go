package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Gate outcomes recorded by the authentication middleware.
const (
	OutcomePublic      = "public"
	OutcomeMissing     = "missing_token"
	OutcomeInvalid     = "invalid_token"
	OutcomeUnavailable = "store_unavailable"
	OutcomeAccepted    = "accepted"
)

type Metrics struct {
	// Per-request result of the authentication gate.
	GateOutcomes *prometheus.CounterVec

	// Time spent verifying a token, including the credential store lookup.
	VerifyDuration prometheus.Histogram

	TokensIssued  prometheus.Counter
	TokensRevoked prometheus.Counter

	HTTPRequests *prometheus.CounterVec

	// 0 closed, 1 half-open, 2 open.
	CredentialBreakerState prometheus.Gauge

	SubscriptionsRolled *prometheus.CounterVec
}

func New(reg prometheus.Registerer) *Metrics {
	// Unregistered sink when the caller does not expose metrics.
	if reg == nil {
		reg = prometheus.NewRegistry()
	}

	return &Metrics{
		GateOutcomes: promauto.With(reg).NewCounterVec(prometheus.CounterOpts{
			Name: "rodo_auth_gate_total",
			Help: "Requests seen by the authentication gate, by outcome.",
		}, []string{"outcome"}),

		VerifyDuration: promauto.With(reg).NewHistogram(prometheus.HistogramOpts{
			Name:    "rodo_token_verify_duration_seconds",
			Help:    "Histogram of token verification latencies.",
			Buckets: []float64{.001, .0025, .005, .01, .025, .05, .1, .25, .5, 1},
		}),

		TokensIssued: promauto.With(reg).NewCounter(prometheus.CounterOpts{
			Name: "rodo_tokens_issued_total",
			Help: "Total number of access tokens issued.",
		}),

		TokensRevoked: promauto.With(reg).NewCounter(prometheus.CounterOpts{
			Name: "rodo_tokens_revoked_total",
			Help: "Total number of access tokens put on the denylist.",
		}),

		HTTPRequests: promauto.With(reg).NewCounterVec(prometheus.CounterOpts{
			Name: "rodo_http_requests_total",
			Help: "Total number of HTTP requests by method and status.",
		}, []string{"method", "status"}),

		CredentialBreakerState: promauto.With(reg).NewGauge(prometheus.GaugeOpts{
			Name: "rodo_credential_store_breaker_state",
			Help: "Circuit breaker state in front of the credential store.",
		}),

		SubscriptionsRolled: promauto.With(reg).NewCounterVec(prometheus.CounterOpts{
			Name: "rodo_subscriptions_rolled_total",
			Help: "Subscriptions processed by the billing sweep, by resulting status.",
		}, []string{"status"}),
	}
}
