package telemetry

import (
	"context"
	"net/http"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.opentelemetry.io/contrib/instrumentation/runtime"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/exporters/prometheus"
	otelmetric "go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/resource"
	semconv "go.opentelemetry.io/otel/semconv/v1.26.0"
)

// InitMeterProvider initializes the Prometheus exporter and MeterProvider and
// starts Go runtime metrics collection.
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

	mp := metric.NewMeterProvider(
		metric.WithReader(exporter),
		metric.WithResource(res),
	)

	otel.SetMeterProvider(mp)

	if err := runtime.Start(runtime.WithMeterProvider(mp)); err != nil {
		return nil, nil, err
	}

	return promhttp.Handler(), mp.Shutdown, nil
}

// CheckoutMetrics holds the business counters of the checkout service.
// A nil *CheckoutMetrics records nothing.
type CheckoutMetrics struct {
	ordersCreated    otelmetric.Int64Counter
	paymentsVerified otelmetric.Int64Counter
	codConfirmed     otelmetric.Int64Counter
}

// NewCheckoutMetrics registers the counters on the global MeterProvider.
func NewCheckoutMetrics() (*CheckoutMetrics, error) {
	meter := otel.Meter("checkout")

	ordersCreated, err := meter.Int64Counter("checkout.orders.created",
		otelmetric.WithDescription("Orders opened, by payment method"))
	if err != nil {
		return nil, err
	}

	paymentsVerified, err := meter.Int64Counter("checkout.payments.verified",
		otelmetric.WithDescription("Payment verification attempts, by outcome"))
	if err != nil {
		return nil, err
	}

	codConfirmed, err := meter.Int64Counter("checkout.cod.confirmed",
		otelmetric.WithDescription("Cash-on-delivery orders confirmed"))
	if err != nil {
		return nil, err
	}

	return &CheckoutMetrics{
		ordersCreated:    ordersCreated,
		paymentsVerified: paymentsVerified,
		codConfirmed:     codConfirmed,
	}, nil
}

func (m *CheckoutMetrics) OrderCreated(ctx context.Context, paymentMethod string) {
	if m == nil {
		return
	}
	m.ordersCreated.Add(ctx, 1, otelmetric.WithAttributes(attribute.String("payment_method", paymentMethod)))
}

func (m *CheckoutMetrics) PaymentVerified(ctx context.Context, outcome string) {
	if m == nil {
		return
	}
	m.paymentsVerified.Add(ctx, 1, otelmetric.WithAttributes(attribute.String("outcome", outcome)))
}

func (m *CheckoutMetrics) CODConfirmed(ctx context.Context) {
	if m == nil {
		return
	}
	m.codConfirmed.Add(ctx, 1)
}
