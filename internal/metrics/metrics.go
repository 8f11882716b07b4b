package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// Webhook ingestion
	WebhookEntries = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "ghst_webhook_entries_total",
			Help: "Webhook entries processed, by platform and outcome",
		},
		[]string{"platform", "status"}, // status: "ok", "skipped", "error"
	)

	WebhookSignatureRejections = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "ghst_webhook_signature_rejections_total",
			Help: "Webhook deliveries rejected because the signature did not verify",
		},
		[]string{"platform"},
	)

	// Publisher
	PublishAttempts = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "ghst_publish_attempts_total",
			Help: "Publish attempts against a platform, by outcome",
		},
		[]string{"platform", "outcome"}, // outcome: "success", "retryable", "terminal"
	)

	RetryEntriesAbandoned = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "ghst_retry_entries_abandoned_total",
			Help: "Retry queue entries that ran out of attempts or hit a terminal error",
		},
		[]string{"platform"},
	)

	// Share gate
	ShareAccess = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "ghst_share_access_total",
			Help: "Shared report and campaign requests, by outcome",
		},
		[]string{"kind", "outcome"},
	)

	// Circuit breakers around platform clients
	CircuitBreakerState = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "ghst_circuit_breaker_state",
			Help: "Circuit breaker state (0=closed, 1=half-open, 2=open)",
		},
		[]string{"name"},
	)

	CircuitBreakerRequests = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "ghst_circuit_breaker_requests_total",
			Help: "Requests through a circuit breaker",
		},
		[]string{"name", "result"}, // result: "success", "failure", "rejected"
	)
)
