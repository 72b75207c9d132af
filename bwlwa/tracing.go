package bwlwa

import (
	"context"
	"net/http"
	"os"
	"slices"

	"github.com/aws-observability/aws-otel-go/exporters/xrayudp"
	"github.com/cockroachdb/errors"
	"go.opentelemetry.io/contrib/detectors/aws/lambda"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
	"go.opentelemetry.io/contrib/propagators/aws/xray"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/exporters/stdout/stdouttrace"
	"go.opentelemetry.io/otel/propagation"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/trace"
	"go.opentelemetry.io/otel/trace/noop"
	"go.uber.org/fx"
)

func newExporter(ctx context.Context, typ string) (sdktrace.SpanExporter, error) {
	switch typ {
	case "stdout", "":
		return stdouttrace.New(stdouttrace.WithPrettyPrint())
	case "xrayudp":
		return xrayudp.NewSpanExporter(ctx)
	default:
		return nil, errors.Newf("unsupported OTEL_EXPORTER: %q (supported: stdout, xrayudp)", typ)
	}
}

func newResource(ctx context.Context, typ, serviceName string) (*resource.Resource, error) {
	res := resource.NewSchemaless(attribute.String("service.name", serviceName))
	if typ != "xrayudp" {
		return res, nil
	}

	detected, err := lambda.NewResourceDetector().Detect(ctx)
	if err != nil {
		// not running on Lambda
		return res, nil //nolint:nilerr
	}
	return resource.Merge(detected, res)
}

// NewTracerProvider builds the tracer provider for the configured exporter. Spans
// are exported synchronously: Lambda may freeze the process between invocations.
func NewTracerProvider(lc fx.Lifecycle, env Environment) (trace.TracerProvider, error) {
	if os.Getenv("OTEL_SDK_DISABLED") == "true" {
		return noop.NewTracerProvider(), nil
	}

	ctx := context.Background()
	exp, err := newExporter(ctx, env.otelExporter())
	if err != nil {
		return nil, err
	}
	res, err := newResource(ctx, env.otelExporter(), env.serviceName())
	if err != nil {
		return nil, errors.Wrap(err, "failed to build trace resource")
	}

	tp := sdktrace.NewTracerProvider(
		sdktrace.WithSpanProcessor(sdktrace.NewSimpleSpanProcessor(exp)),
		sdktrace.WithResource(res),
		sdktrace.WithIDGenerator(xray.NewIDGenerator()),
	)
	lc.Append(fx.Hook{OnStop: tp.Shutdown})

	return tp, nil
}

// NewPropagator returns the propagator matching the exporter. X-Ray headers are
// always understood since Lambda Web Adapter forwards X-Amzn-Trace-Id.
func NewPropagator(env Environment) propagation.TextMapPropagator {
	if env.otelExporter() == "xrayudp" {
		return propagation.NewCompositeTextMapPropagator(xray.Propagator{}, propagation.TraceContext{})
	}
	return propagation.NewCompositeTextMapPropagator(
		propagation.TraceContext{}, propagation.Baggage{}, xray.Propagator{})
}

// withTracing wraps handlers in a server span, except for requests to excluded paths.
func withTracing(
	tp trace.TracerProvider, prop propagation.TextMapPropagator, serviceName string, excluded ...string,
) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return otelhttp.NewHandler(next, serviceName,
			otelhttp.WithTracerProvider(tp),
			otelhttp.WithPropagators(prop),
			otelhttp.WithFilter(func(r *http.Request) bool {
				return !slices.Contains(excluded, r.URL.Path)
			}),
		)
	}
}
