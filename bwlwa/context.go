package bwlwa

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/advdv/bhttp"
	"github.com/cockroachdb/errors"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
)

type ctxKey int

const (
	ctxKeyLogger ctxKey = iota
	ctxKeyInvocation
)

// InvocationHeader carries the Lambda context of the invocation that the web
// adapter turned into the current request.
const InvocationHeader = "x-amzn-lambda-context"

// DeadlineMargin is how long before the Lambda deadline the request context is
// cancelled, so that handlers still get to write a response.
const DeadlineMargin = time.Second

// Invocation identifies the Lambda invocation serving a request.
type Invocation struct {
	RequestID   string
	FunctionARN string
	// Deadline is zero when the adapter did not report one.
	Deadline time.Time
}

// ParseInvocation decodes the value of the InvocationHeader.
func ParseInvocation(header string) (*Invocation, error) {
	var raw struct {
		RequestID          string `json:"request_id"`
		Deadline           int64  `json:"deadline"`
		InvokedFunctionARN string `json:"invoked_function_arn"`
	}
	if err := json.Unmarshal([]byte(header), &raw); err != nil {
		return nil, errors.Wrap(err, "failed to decode lambda context")
	}

	inv := &Invocation{RequestID: raw.RequestID, FunctionARN: raw.InvokedFunctionARN}
	if raw.Deadline > 0 {
		inv.Deadline = time.UnixMilli(raw.Deadline)
	}
	return inv, nil
}

// InvocationFrom returns the invocation serving ctx, or nil when the request did
// not come through the web adapter.
func InvocationFrom(ctx context.Context) *Invocation {
	inv, _ := ctx.Value(ctxKeyInvocation).(*Invocation)
	return inv
}

func withLogger(logger *zap.Logger) bhttp.Middleware {
	return func(next bhttp.BareHandler) bhttp.BareHandler {
		return bhttp.BareHandlerFunc(func(w bhttp.ResponseWriter, r *http.Request) error {
			ctx := context.WithValue(r.Context(), ctxKeyLogger, logger)
			return next.ServeBareBHTTP(w, r.WithContext(ctx))
		})
	}
}

// withInvocation stores the invocation in the request context and bounds the
// context by its deadline minus DeadlineMargin. Requests with an unreadable
// header are served without one.
func withInvocation() bhttp.Middleware {
	return func(next bhttp.BareHandler) bhttp.BareHandler {
		return bhttp.BareHandlerFunc(func(w bhttp.ResponseWriter, r *http.Request) error {
			header := r.Header.Get(InvocationHeader)
			if header == "" {
				return next.ServeBareBHTTP(w, r)
			}
			inv, err := ParseInvocation(header)
			if err != nil {
				return next.ServeBareBHTTP(w, r)
			}

			ctx := context.WithValue(r.Context(), ctxKeyInvocation, inv)
			if !inv.Deadline.IsZero() {
				var cancel context.CancelFunc
				ctx, cancel = context.WithDeadline(ctx, inv.Deadline.Add(-DeadlineMargin))
				defer cancel()
			}
			return next.ServeBareBHTTP(w, r.WithContext(ctx))
		})
	}
}

// Log returns the app logger annotated with the request id of the invocation and
// the current trace. Outside of an App it returns a no-op logger.
func Log(ctx context.Context) *zap.Logger {
	logger, ok := ctx.Value(ctxKeyLogger).(*zap.Logger)
	if !ok {
		return zap.NewNop()
	}

	fields := traceFields(ctx)
	if inv := InvocationFrom(ctx); inv != nil && inv.RequestID != "" {
		fields = append(fields, zap.String("request_id", inv.RequestID))
	}
	return logger.With(fields...)
}

// Span returns the current trace span from the context.
func Span(ctx context.Context) trace.Span {
	return trace.SpanFromContext(ctx)
}

func traceFields(ctx context.Context) []zap.Field {
	sc := trace.SpanFromContext(ctx).SpanContext()
	if !sc.IsValid() {
		return nil
	}
	return []zap.Field{
		zap.String("trace_id", sc.TraceID().String()),
		zap.String("span_id", sc.SpanID().String()),
	}
}
