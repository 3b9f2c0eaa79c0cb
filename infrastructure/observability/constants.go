package observability

// Metric name prefixes
const (
	MetricPrefix = "giftrank"
)

// Metric names
const (
	// Sync metrics
	PaymentsSyncedTotal  = MetricPrefix + ".sync.payments_synced_total"
	PaymentsSkippedTotal = MetricPrefix + ".sync.payments_skipped_total"
	SyncRunsTotal        = MetricPrefix + ".sync.runs_total"
	SyncRunDuration      = MetricPrefix + ".sync.run_duration"
	RankingUpsertsTotal  = MetricPrefix + ".ranking.upserts_total"

	// Gateway metrics
	GatewayErrorsTotal = MetricPrefix + ".gateway.errors_total"

	// Checkout metrics
	CheckoutResolutionsTotal = MetricPrefix + ".checkout.resolutions_total"

	// NATS metrics
	NATSMessagesPublishedTotal = MetricPrefix + ".nats.messages_published_total"
)

// Label keys
const (
	LabelReason    = "reason"
	LabelOperation = "operation"
	LabelOutcome   = "outcome"
	LabelEventType = "event_type"
)

// Outcomes
const (
	OutcomeSuccess = "success"
	OutcomeFailure = "failure"
	OutcomeCached  = "cached"
	OutcomeMinted  = "minted"
)
