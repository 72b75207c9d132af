package bwlwa

import (
	"context"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/cockroachdb/errors"
	"go.opentelemetry.io/contrib/instrumentation/github.com/aws/aws-sdk-go-v2/otelaws"
	"go.opentelemetry.io/otel/propagation"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/fx"
)

// Primary wraps an AWS client for the primary deployment region.
//
//	bwlwa.WithAWSClient(func(cfg aws.Config) *bwlwa.Primary[s3.Client] {
//	    return bwlwa.NewPrimary(s3.NewFromConfig(cfg))
//	}, bwlwa.ForPrimaryRegion())
type Primary[T any] struct {
	Client *T
}

// NewPrimary wraps a client that was configured for the primary region.
func NewPrimary[T any](client *T) *Primary[T] {
	return &Primary[T]{Client: client}
}

// InRegion wraps an AWS client configured for a fixed region.
type InRegion[T any] struct {
	Client *T
	Region string
}

// NewInRegion wraps a client that was configured for region.
func NewInRegion[T any](client *T, region string) *InRegion[T] {
	return &InRegion[T]{Client: client, Region: region}
}

// ClientOption configures AWS client registration.
type ClientOption func(*ClientFactory)

// ForPrimaryRegion configures the client for BW_PRIMARY_REGION.
func ForPrimaryRegion() ClientOption {
	return func(f *ClientFactory) { f.Region = PrimaryRegion() }
}

// ForRegion configures the client for a fixed region.
func ForRegion(region string) ClientOption {
	return func(f *ClientFactory) { f.Region = FixedRegion(region) }
}

// ClientFactory describes how one AWS client is constructed.
type ClientFactory struct {
	// Region the client targets, LocalRegion unless an option changed it.
	Region Region
	provide func(factory *ClientFactory) fx.Option
}

// RegisterAWSClient describes an AWS client without registering it with an app.
// WithAWSClient is the app option built on top of it.
func RegisterAWSClient[T any](factory func(aws.Config) T, opts ...ClientOption) *ClientFactory {
	f := &ClientFactory{Region: LocalRegion()}
	for _, opt := range opts {
		opt(f)
	}
	f.provide = func(f *ClientFactory) fx.Option {
		return fx.Provide(func(cfg aws.Config, env Environment) T {
			awsCfg := cfg.Copy()
			if r := f.Region.resolve(env); r != "" {
				awsCfg.Region = r
			}
			return factory(awsCfg)
		})
	}
	return f
}

// Option returns the fx option that provides the client.
func (f *ClientFactory) Option() fx.Option {
	return f.provide(f)
}

const awsConfigTimeout = 10 * time.Second

// NewAWSConfig loads the default AWS SDK v2 configuration.
func NewAWSConfig(ctx context.Context) (aws.Config, error) {
	cfg, err := awsconfig.LoadDefaultConfig(ctx)
	if err != nil {
		return cfg, errors.Wrap(err, "failed to load AWS config")
	}
	return cfg, nil
}

// provideAWSConfig loads the AWS config and instruments every client built from it.
func provideAWSConfig(tp trace.TracerProvider, prop propagation.TextMapPropagator) (aws.Config, error) {
	ctx, cancel := context.WithTimeout(context.Background(), awsConfigTimeout)
	defer cancel()

	cfg, err := NewAWSConfig(ctx)
	if err != nil {
		return cfg, err
	}
	otelaws.AppendMiddlewares(&cfg.APIOptions,
		otelaws.WithTracerProvider(tp),
		otelaws.WithTextMapPropagator(prop),
	)
	return cfg, nil
}
