// Package bwlwa is the runtime of the Go functions deployed by this module: HTTP
// services that run on AWS Lambda behind the Lambda Web Adapter (LWA).
//
// # Overview
//
// An App wires environment parsing, structured logging, OpenTelemetry tracing and
// AWS SDK clients with go.uber.org/fx:
//
//	bwlwa.NewApp[Env](func(m *bwlwa.Mux, h *Handlers) {
//	    m.HandleFunc("POST /items", h.CreateItem)
//	    m.HandleFunc("GET /items/{id}", h.GetItem, "get-item")
//	},
//	    bwlwa.WithAWSClient(func(cfg aws.Config) *dynamodb.Client {
//	        return dynamodb.NewFromConfig(cfg)
//	    }),
//	    bwlwa.WithFx(fx.Provide(NewHandlers)),
//	).Run()
//
// # Environment Configuration
//
// Define your environment by embedding [BaseEnvironment]:
//
//	type Env struct {
//	    bwlwa.BaseEnvironment
//	    TableName string `env:"DDB_TABLE_NAME,required"`
//	}
//
// BaseEnvironment reads:
//
//	| Variable                      | Required | Default | Description                                      |
//	|-------------------------------|----------|---------|--------------------------------------------------|
//	| AWS_LWA_PORT                  | Yes      | -       | Port the HTTP server listens on                  |
//	| AWS_LWA_READINESS_CHECK_PATH  | Yes      | -       | Health check endpoint path for LWA readiness     |
//	| AWS_REGION                    | Yes      | -       | AWS region (set automatically by Lambda runtime) |
//	| BW_SERVICE_NAME               | Yes      | -       | Service name for logging and tracing             |
//	| BW_PRIMARY_REGION             | Yes      | -       | Primary deployment region (injected by CDK)      |
//	| BW_LOG_LEVEL                  | No       | info    | Log level (debug, info, warn, error)             |
//	| BW_OTEL_EXPORTER              | No       | stdout  | Trace exporter: "stdout" or "xrayudp"            |
//
// The BW_* variables are set by bwcdklambda.New.
//
// # Context Functions
//
//   - [Log] returns a trace-correlated zap logger
//   - [Span] returns the current OpenTelemetry span
//   - [InvocationFrom] returns the Lambda invocation serving the request
//
// The request context expires [DeadlineMargin] before the Lambda deadline. App
// scoped values (environment, logger, route reversal) come from [Runtime].
//
// # AWS Clients
//
// Clients registered with [WithAWSClient] are injected into constructors. They
// target the local region unless [ForPrimaryRegion] or [ForRegion] is given, in
// which case the factory should return a [Primary] or [InRegion] wrapper so the
// region is visible in the injected type.
//
// # Non-HTTP Events
//
// LWA posts events that are not HTTP requests (SQS batches, custom resource
// events) to AWS_LWA_PASS_THROUGH_PATH. [CustomResource] adapts a function to
// the custom resource Provider framework protocol.
package bwlwa
