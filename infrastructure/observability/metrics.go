package observability

import (
	"context"
	"fmt"
	"sync"
	"time"

	"giftrank/config"

	log "github.com/sirupsen/logrus"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/exporters/otlp/otlpmetric/otlpmetricgrpc"
	"go.opentelemetry.io/otel/exporters/stdout/stdoutmetric"
	"go.opentelemetry.io/otel/metric"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/resource"
	semconv "go.opentelemetry.io/otel/semconv/v1.24.0"
)

// MetricsProvider manages OpenTelemetry metrics for the service.
// Every Record method is a no-op on a nil or disabled provider.
type MetricsProvider struct {
	config        *config.Config
	meterProvider *sdkmetric.MeterProvider
	meter         metric.Meter
	enabled       bool
	mu            sync.RWMutex

	paymentsSyncedCounter  metric.Int64Counter
	paymentsSkippedCounter metric.Int64Counter
	syncRunsCounter        metric.Int64Counter
	syncRunDurationHist    metric.Float64Histogram
	rankingUpsertsCounter  metric.Int64Counter
	gatewayErrorsCounter   metric.Int64Counter
	checkoutCounter        metric.Int64Counter
	natsPublishedCounter   metric.Int64Counter
}

// NewMetricsProvider creates a new metrics provider
func NewMetricsProvider(cfg *config.Config) *MetricsProvider {
	return &MetricsProvider{
		config: cfg,
	}
}

// Initialize sets up the meter provider for the configured exporter
func (mp *MetricsProvider) Initialize(ctx context.Context) error {
	mp.mu.Lock()
	defer mp.mu.Unlock()

	if mp.enabled {
		return nil
	}

	var exporter sdkmetric.Exporter
	var err error
	switch mp.config.OTelExporterType {
	case "console":
		exporter, err = stdoutmetric.New()
		if err != nil {
			return fmt.Errorf("failed to create console exporter: %w", err)
		}
		log.Info("Using console metric exporter")

	case "otlp":
		dialCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
		defer cancel()

		exporter, err = otlpmetricgrpc.New(dialCtx,
			otlpmetricgrpc.WithEndpoint(mp.config.OTelOTLPEndpoint),
			otlpmetricgrpc.WithInsecure(),
		)
		if err != nil {
			return fmt.Errorf("failed to create OTLP exporter: %w", err)
		}
		log.WithField("endpoint", mp.config.OTelOTLPEndpoint).Info("Using OTLP metric exporter")

	case "none", "":
		log.Debug("Metrics export disabled")
		return nil

	default:
		return fmt.Errorf("unknown exporter type: %s", mp.config.OTelExporterType)
	}

	res, err := resource.Merge(
		resource.Default(),
		resource.NewWithAttributes(
			semconv.SchemaURL,
			semconv.ServiceName(mp.config.OTelServiceName),
			attribute.String("environment", mp.config.Environment),
		),
	)
	if err != nil {
		return fmt.Errorf("failed to create resource: %w", err)
	}

	interval := time.Duration(mp.config.OTelExportIntervalMillis) * time.Millisecond
	if interval <= 0 {
		interval = time.Minute
	}

	mp.meterProvider = sdkmetric.NewMeterProvider(
		sdkmetric.WithResource(res),
		sdkmetric.WithReader(sdkmetric.NewPeriodicReader(exporter, sdkmetric.WithInterval(interval))),
	)
	otel.SetMeterProvider(mp.meterProvider)

	if err := mp.createInstruments(mp.meterProvider.Meter(MetricPrefix)); err != nil {
		return fmt.Errorf("failed to create instruments: %w", err)
	}

	mp.enabled = true
	log.Info("Metrics provider initialized")
	return nil
}

// createInstruments creates all metric instruments on meter
func (mp *MetricsProvider) createInstruments(meter metric.Meter) error {
	var err error
	mp.meter = meter

	counters := []struct {
		target      *metric.Int64Counter
		name        string
		description string
	}{
		{&mp.paymentsSyncedCounter, PaymentsSyncedTotal, "Payments appended to the ledger"},
		{&mp.paymentsSkippedCounter, PaymentsSkippedTotal, "Fetched payments that were not appended"},
		{&mp.syncRunsCounter, SyncRunsTotal, "Sync runs by outcome"},
		{&mp.rankingUpsertsCounter, RankingUpsertsTotal, "Monthly total upserts by outcome"},
		{&mp.gatewayErrorsCounter, GatewayErrorsTotal, "Payment gateway failures by operation"},
		{&mp.checkoutCounter, CheckoutResolutionsTotal, "Checkout link resolutions by outcome"},
		{&mp.natsPublishedCounter, NATSMessagesPublishedTotal, "Events published to NATS"},
	}
	for _, c := range counters {
		*c.target, err = meter.Int64Counter(c.name, metric.WithDescription(c.description), metric.WithUnit("1"))
		if err != nil {
			return fmt.Errorf("failed to create counter %s: %w", c.name, err)
		}
	}

	mp.syncRunDurationHist, err = meter.Float64Histogram(
		SyncRunDuration,
		metric.WithDescription("Duration of sync runs in seconds"),
		metric.WithUnit("s"),
		metric.WithExplicitBucketBoundaries(0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30, 60),
	)
	if err != nil {
		return fmt.Errorf("failed to create sync duration histogram: %w", err)
	}

	return nil
}

// Shutdown flushes and stops the meter provider
func (mp *MetricsProvider) Shutdown(ctx context.Context) error {
	if mp == nil {
		return nil
	}
	mp.mu.Lock()
	defer mp.mu.Unlock()

	if mp.meterProvider != nil {
		return mp.meterProvider.Shutdown(ctx)
	}
	return nil
}

// RecordPaymentSynced counts one payment appended to the ledger
func (mp *MetricsProvider) RecordPaymentSynced() {
	if !mp.isEnabled() {
		return
	}
	mp.paymentsSyncedCounter.Add(context.Background(), 1)
}

// RecordPaymentSkipped counts one fetched payment that was skipped
func (mp *MetricsProvider) RecordPaymentSkipped(reason string) {
	if !mp.isEnabled() {
		return
	}
	mp.paymentsSkippedCounter.Add(context.Background(), 1,
		metric.WithAttributes(attribute.String(LabelReason, reason)),
	)
}

// RecordSyncRun records the outcome and duration of one sync run
func (mp *MetricsProvider) RecordSyncRun(duration time.Duration, err error) {
	if !mp.isEnabled() {
		return
	}
	attrs := metric.WithAttributes(attribute.String(LabelOutcome, outcome(err)))
	mp.syncRunsCounter.Add(context.Background(), 1, attrs)
	mp.syncRunDurationHist.Record(context.Background(), duration.Seconds(), attrs)
}

// RecordRankingUpsert counts one monthly total upsert
func (mp *MetricsProvider) RecordRankingUpsert(err error) {
	if !mp.isEnabled() {
		return
	}
	mp.rankingUpsertsCounter.Add(context.Background(), 1,
		metric.WithAttributes(attribute.String(LabelOutcome, outcome(err))),
	)
}

// RecordGatewayError counts one failed gateway operation
func (mp *MetricsProvider) RecordGatewayError(operation string) {
	if !mp.isEnabled() {
		return
	}
	mp.gatewayErrorsCounter.Add(context.Background(), 1,
		metric.WithAttributes(attribute.String(LabelOperation, operation)),
	)
}

// RecordCheckoutResolution counts one checkout resolution by outcome
func (mp *MetricsProvider) RecordCheckoutResolution(result string) {
	if !mp.isEnabled() {
		return
	}
	mp.checkoutCounter.Add(context.Background(), 1,
		metric.WithAttributes(attribute.String(LabelOutcome, result)),
	)
}

// RecordNATSMessagePublished counts one event forwarded to NATS
func (mp *MetricsProvider) RecordNATSMessagePublished(eventType string) {
	if !mp.isEnabled() {
		return
	}
	mp.natsPublishedCounter.Add(context.Background(), 1,
		metric.WithAttributes(attribute.String(LabelEventType, eventType)),
	)
}

func (mp *MetricsProvider) isEnabled() bool {
	if mp == nil {
		return false
	}
	mp.mu.RLock()
	defer mp.mu.RUnlock()
	return mp.enabled
}

func outcome(err error) string {
	if err != nil {
		return OutcomeFailure
	}
	return OutcomeSuccess
}

// Global metrics provider instance
var (
	globalMetrics *MetricsProvider
	globalMu      sync.RWMutex
)

// InitializeGlobalMetrics initializes the global metrics provider
func InitializeGlobalMetrics(ctx context.Context, cfg *config.Config) error {
	mp := NewMetricsProvider(cfg)
	if err := mp.Initialize(ctx); err != nil {
		return err
	}

	globalMu.Lock()
	globalMetrics = mp
	globalMu.Unlock()
	return nil
}

// GetMetrics returns the global metrics provider, nil before initialization
func GetMetrics() *MetricsProvider {
	globalMu.RLock()
	defer globalMu.RUnlock()
	return globalMetrics
}

// ShutdownGlobalMetrics shuts down the global metrics provider
func ShutdownGlobalMetrics(ctx context.Context) error {
	return GetMetrics().Shutdown(ctx)
}
