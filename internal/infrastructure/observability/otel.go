package observability

import (
	"context"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracegrpc"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/propagation"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	semconv "go.opentelemetry.io/otel/semconv/v1.21.0"
	"go.opentelemetry.io/otel/trace"
)

const instrumentationName = "github.com/zatekoja/clinicflow"

// Metrics holds all application metrics
type Metrics struct {
	RequestCount     metric.Int64Counter
	RequestDuration  metric.Float64Histogram
	TokensIssued     metric.Int64Counter
	TokenRetries     metric.Int64Counter
	DispenseOutcomes metric.Int64Counter
	BillsFinalized   metric.Int64Counter
	BilledAmount     metric.Int64Counter
	BedTransitions   metric.Int64Counter
	CacheHitCount    metric.Int64Counter
	CacheMissCount   metric.Int64Counter
}

// Setup initializes OpenTelemetry tracing
func Setup(ctx context.Context, serviceName, serviceVersion, endpoint string) (func(context.Context) error, error) {
	res, err := resource.New(ctx,
		resource.WithAttributes(
			semconv.ServiceName(serviceName),
			semconv.ServiceVersion(serviceVersion),
		),
	)
	if err != nil {
		return nil, err
	}

	traceExporter, err := otlptracegrpc.New(ctx,
		otlptracegrpc.WithEndpoint(endpoint),
		otlptracegrpc.WithInsecure(),
	)
	if err != nil {
		return nil, err
	}

	tracerProvider := sdktrace.NewTracerProvider(
		sdktrace.WithBatcher(traceExporter),
		sdktrace.WithResource(res),
	)
	otel.SetTracerProvider(tracerProvider)
	otel.SetTextMapPropagator(propagation.NewCompositeTextMapPropagator(
		propagation.TraceContext{},
		propagation.Baggage{},
	))

	return tracerProvider.Shutdown, nil
}

// InitMetrics initializes application metrics on the global meter provider
func InitMetrics() (*Metrics, error) {
	meter := otel.Meter(instrumentationName)
	m := &Metrics{}

	counters := []struct {
		dst  *metric.Int64Counter
		name string
		desc string
	}{
		{&m.RequestCount, "http.server.request.count", "Number of HTTP requests"},
		{&m.TokensIssued, "clinic.tokens.issued", "Queue tokens reserved"},
		{&m.TokenRetries, "clinic.tokens.retries", "Token reservations retried after contention"},
		{&m.DispenseOutcomes, "clinic.dispense.outcomes", "Prescription lines processed by the allocator"},
		{&m.BillsFinalized, "clinic.bills.finalized", "Bills finalized"},
		{&m.BilledAmount, "clinic.bills.amount", "Billed amount in minor currency units"},
		{&m.BedTransitions, "clinic.beds.transitions", "Bed occupancy transitions"},
		{&m.CacheHitCount, "cache.hit.count", "Number of cache hits"},
		{&m.CacheMissCount, "cache.miss.count", "Number of cache misses"},
	}
	for _, c := range counters {
		counter, err := meter.Int64Counter(c.name, metric.WithDescription(c.desc))
		if err != nil {
			return nil, err
		}
		*c.dst = counter
	}

	requestDuration, err := meter.Float64Histogram(
		"http.server.request.duration",
		metric.WithDescription("HTTP request duration in milliseconds"),
		metric.WithUnit("ms"),
	)
	if err != nil {
		return nil, err
	}
	m.RequestDuration = requestDuration

	return m, nil
}

// StartSpan starts a new trace span
func StartSpan(ctx context.Context, spanName string, attrs ...attribute.KeyValue) (context.Context, trace.Span) {
	tracer := otel.Tracer(instrumentationName)
	return tracer.Start(ctx, spanName, trace.WithAttributes(attrs...))
}

// SetSpanAttributes sets attributes on a span
func SetSpanAttributes(span trace.Span, attrs ...attribute.KeyValue) {
	span.SetAttributes(attrs...)
}

// RecordError records an error in the current span
func RecordError(span trace.Span, err error) {
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	}
}

// RecordRequestMetric records an HTTP request
func RecordRequestMetric(ctx context.Context, metrics *Metrics, method, path string, statusCode int, duration time.Duration) {
	if metrics == nil {
		return
	}
	attrs := []attribute.KeyValue{
		attribute.String("http.method", method),
		attribute.String("http.route", path),
		attribute.Int("http.status_code", statusCode),
	}

	metrics.RequestCount.Add(ctx, 1, metric.WithAttributes(attrs...))
	metrics.RequestDuration.Record(ctx, float64(duration.Milliseconds()), metric.WithAttributes(attrs...))
}

// RecordTokenIssued counts a reserved token and the retries it needed
func RecordTokenIssued(ctx context.Context, metrics *Metrics, retries int) {
	if metrics == nil {
		return
	}
	metrics.TokensIssued.Add(ctx, 1)
	if retries > 0 {
		metrics.TokenRetries.Add(ctx, int64(retries))
	}
}

// RecordDispenseOutcome counts one allocator outcome by kind
func RecordDispenseOutcome(ctx context.Context, metrics *Metrics, kind string) {
	if metrics == nil {
		return
	}
	metrics.DispenseOutcomes.Add(ctx, 1, metric.WithAttributes(attribute.String("outcome", kind)))
}

// RecordBillFinalized counts a bill and its total
func RecordBillFinalized(ctx context.Context, metrics *Metrics, mode string, total int64) {
	if metrics == nil {
		return
	}
	attrs := metric.WithAttributes(attribute.String("payment_mode", mode))
	metrics.BillsFinalized.Add(ctx, 1, attrs)
	metrics.BilledAmount.Add(ctx, total, attrs)
}

// RecordBedTransition counts a bed state change
func RecordBedTransition(ctx context.Context, metrics *Metrics, from, to string) {
	if metrics == nil {
		return
	}
	metrics.BedTransitions.Add(ctx, 1, metric.WithAttributes(
		attribute.String("from", from),
		attribute.String("to", to),
	))
}

// RecordCacheHit records a cache hit
func RecordCacheHit(ctx context.Context, metrics *Metrics, key string) {
	if metrics == nil {
		return
	}
	metrics.CacheHitCount.Add(ctx, 1, metric.WithAttributes(attribute.String("cache.key", key)))
}

// RecordCacheMiss records a cache miss
func RecordCacheMiss(ctx context.Context, metrics *Metrics, key string) {
	if metrics == nil {
		return
	}
	metrics.CacheMissCount.Add(ctx, 1, metric.WithAttributes(attribute.String("cache.key", key)))
}
