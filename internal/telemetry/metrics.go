package telemetry

import (
	"context"
	"net/http"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/exporters/prometheus"
	"go.opentelemetry.io/otel/metric"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/resource"
	semconv "go.opentelemetry.io/otel/semconv/v1.26.0"

	"github.com/joao-fontenele/kitchenpos/internal/domain"
)

// InitMeterProvider initializes the Prometheus exporter and MeterProvider.
// It returns an http.Handler for the /metrics endpoint and a shutdown function.
func InitMeterProvider(serviceName, serviceVersion string) (http.Handler, func(context.Context) error, error) {
	exporter, err := prometheus.New()
	if err != nil {
		return nil, nil, err
	}

	res := resource.NewWithAttributes(
		semconv.SchemaURL,
		semconv.ServiceName(serviceName),
		semconv.ServiceVersion(serviceVersion),
	)

	mp := sdkmetric.NewMeterProvider(
		sdkmetric.WithReader(exporter),
		sdkmetric.WithResource(res),
	)

	otel.SetMeterProvider(mp)

	return promhttp.Handler(), mp.Shutdown, nil
}

// POSMetrics records the business outcomes of the order/table engine. Without a configured
// MeterProvider every instrument is a no-op.
type POSMetrics struct {
	ordersCreated   metric.Int64Counter
	orderAmount     metric.Int64Histogram
	statusChanges   metric.Int64Counter
	groupsFormed    metric.Int64Counter
	groupedTables   metric.Int64Histogram
	groupsDissolved metric.Int64Counter
	ruleViolations  metric.Int64Counter
}

func NewPOSMetrics(meter metric.Meter) (*POSMetrics, error) {
	m := &POSMetrics{}
	var err error

	if m.ordersCreated, err = meter.Int64Counter("pos.orders.created",
		metric.WithDescription("Orders accepted by the kitchen")); err != nil {
		return nil, err
	}
	if m.orderAmount, err = meter.Int64Histogram("pos.orders.amount",
		metric.WithDescription("Order total computed from price snapshots")); err != nil {
		return nil, err
	}
	if m.statusChanges, err = meter.Int64Counter("pos.orders.status_changes",
		metric.WithDescription("Order status transitions")); err != nil {
		return nil, err
	}
	if m.groupsFormed, err = meter.Int64Counter("pos.table_groups.formed",
		metric.WithDescription("Table groups created")); err != nil {
		return nil, err
	}
	if m.groupedTables, err = meter.Int64Histogram("pos.table_groups.size",
		metric.WithDescription("Order tables per created table group")); err != nil {
		return nil, err
	}
	if m.groupsDissolved, err = meter.Int64Counter("pos.table_groups.dissolved",
		metric.WithDescription("Table groups ungrouped")); err != nil {
		return nil, err
	}
	if m.ruleViolations, err = meter.Int64Counter("pos.rule_violations",
		metric.WithDescription("Requests rejected by a consistency rule")); err != nil {
		return nil, err
	}

	return m, nil
}

func (m *POSMetrics) OrderCreated(ctx context.Context, total int64) {
	m.ordersCreated.Add(ctx, 1)
	m.orderAmount.Record(ctx, total)
}

func (m *POSMetrics) OrderStatusChanged(ctx context.Context, from, to domain.OrderStatus) {
	m.statusChanges.Add(ctx, 1, metric.WithAttributes(
		attribute.String("from", string(from)),
		attribute.String("to", string(to)),
	))
}

func (m *POSMetrics) TableGroupFormed(ctx context.Context, tables int) {
	m.groupsFormed.Add(ctx, 1)
	m.groupedTables.Record(ctx, int64(tables))
}

func (m *POSMetrics) TableGroupDissolved(ctx context.Context) {
	m.groupsDissolved.Add(ctx, 1)
}

func (m *POSMetrics) RuleViolated(ctx context.Context, operation, rule string) {
	m.ruleViolations.Add(ctx, 1, metric.WithAttributes(
		attribute.String("operation", operation),
		attribute.String("rule", rule),
	))
}
