package telemetry

import (
	"context"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

const _instrumentationName = "github.com/andreyxaxa/order-saga"

// Metrics groups the counters shared by the saga components. Built from
// the global meter provider, so it is a no-op until Setup installs one.
type Metrics struct {
	deadLettered     metric.Int64Counter
	duplicates       metric.Int64Counter
	versionConflicts metric.Int64Counter
	published        metric.Int64Counter
}

// NewMetrics -.
func NewMetrics() *Metrics {
	meter := otel.Meter(_instrumentationName)

	m := &Metrics{}
	// instrument creation only fails on invalid names; the fallback is a no-op counter
	m.deadLettered, _ = meter.Int64Counter("consumer.dead_lettered",
		metric.WithDescription("Events routed to the dead-letter topic"))
	m.duplicates, _ = meter.Int64Counter("consumer.duplicates",
		metric.WithDescription("Redelivered events skipped as already processed"))
	m.versionConflicts, _ = meter.Int64Counter("inventory.version_conflicts",
		metric.WithDescription("Optimistic lock conflicts on product stock"))
	m.published, _ = meter.Int64Counter("outbox.published",
		metric.WithDescription("Outbox records published to the bus"))

	return m
}

// DeadLettered -.
func (m *Metrics) DeadLettered(ctx context.Context, topic string) {
	m.deadLettered.Add(ctx, 1, metric.WithAttributes(attribute.String("topic", topic)))
}

// Duplicate -.
func (m *Metrics) Duplicate(ctx context.Context, topic string) {
	m.duplicates.Add(ctx, 1, metric.WithAttributes(attribute.String("topic", topic)))
}

// VersionConflict -.
func (m *Metrics) VersionConflict(ctx context.Context, productID string) {
	m.versionConflicts.Add(ctx, 1, metric.WithAttributes(attribute.String("product_id", productID)))
}

// Published -.
func (m *Metrics) Published(ctx context.Context, n int) {
	m.published.Add(ctx, int64(n))
}
