package bwlwa

import (
	"context"
	"fmt"
	"net"
	"net/http"
	"time"

	"github.com/advdv/bhttp"
	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/cockroachdb/errors"
	"go.opentelemetry.io/otel/propagation"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/fx"
	"go.uber.org/fx/fxevent"
	"go.uber.org/zap"
)

const shutdownTimeout = 10 * time.Second

type appOptions struct {
	fx     []fx.Option
	health bhttp.HandlerFunc[context.Context]
}

// Option configures an App.
type Option func(*appOptions)

// WithAWSClient registers an AWS SDK client for injection.
// See RegisterAWSClient for the region options.
func WithAWSClient[T any](factory func(aws.Config) T, opts ...ClientOption) Option {
	return func(o *appOptions) {
		o.fx = append(o.fx, RegisterAWSClient(factory, opts...).Option())
	}
}

// WithFx adds fx options, typically providers for handler structs.
func WithFx(opts ...fx.Option) Option {
	return func(o *appOptions) {
		o.fx = append(o.fx, opts...)
	}
}

// WithHealthHandler replaces the handler of the readiness check path.
func WithHealthHandler(h bhttp.HandlerFunc[context.Context]) Option {
	return func(o *appOptions) {
		o.health = h
	}
}

// App is an HTTP service running behind the Lambda Web Adapter.
type App struct {
	fx *fx.App
}

// NewApp assembles an App. routing is an fx invoke target whose first argument is
// the *Mux, further arguments are injected:
//
//	bwlwa.NewApp[Env](func(m *bwlwa.Mux, h *Handlers) {
//	    m.HandleFunc("GET /items", h.ListItems)
//	}, bwlwa.WithFx(fx.Provide(NewHandlers))).Run()
func NewApp[E Environment](routing any, opts ...Option) *App {
	options := &appOptions{health: defaultHealth}
	for _, opt := range opts {
		opt(options)
	}

	fxOpts := []fx.Option{
		fx.WithLogger(func(logger *zap.Logger) fxevent.Logger {
			return &fxevent.ZapLogger{Logger: logger.Named("fx")}
		}),
		fx.Provide(
			ParseEnv[E](),
			func(env E) Environment { return env },
			NewLogger,
			NewTracerProvider,
			NewPropagator,
			provideAWSConfig,
			newAppMux,
			NewRuntime[E],
		),
	}
	fxOpts = append(fxOpts, options.fx...)
	fxOpts = append(fxOpts,
		fx.Invoke(routing),
		fx.Invoke(func(lc fx.Lifecycle, env Environment, mux *Mux, logger *zap.Logger,
			tp trace.TracerProvider, prop propagation.TextMapPropagator,
		) {
			mux.HandleFunc("GET "+env.readinessCheckPath(), options.health)
			registerServer(lc, env, mux, logger, tp, prop)
		}),
	)

	return &App{fx: fx.New(fxOpts...)}
}

// Run starts the app and blocks until it receives a termination signal.
func (a *App) Run() {
	a.fx.Run()
}

// Start starts the app and blocks until ctx is done, then stops it.
func (a *App) Start(ctx context.Context) error {
	if err := a.fx.Start(ctx); err != nil {
		return errors.Wrap(err, "failed to start app")
	}
	<-ctx.Done()

	stopCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	return a.fx.Stop(stopCtx)
}

// NewLogger builds the production JSON logger at the configured level.
func NewLogger(env Environment) (*zap.Logger, error) {
	cfg := zap.NewProductionConfig()
	cfg.Level = zap.NewAtomicLevelAt(env.logLevel())
	logger, err := cfg.Build()
	if err != nil {
		return nil, errors.Wrap(err, "failed to build logger")
	}
	return logger.With(zap.String("service", env.serviceName())), nil
}

func registerServer(
	lc fx.Lifecycle, env Environment, mux *Mux, logger *zap.Logger,
	tp trace.TracerProvider, prop propagation.TextMapPropagator,
) {
	srv := &http.Server{
		Addr:              fmt.Sprintf(":%d", env.port()),
		Handler:           withTracing(tp, prop, env.serviceName(), env.readinessCheckPath())(mux),
		ReadHeaderTimeout: 10 * time.Second,
	}

	lc.Append(fx.Hook{
		OnStart: func(context.Context) error {
			ln, err := net.Listen("tcp", srv.Addr)
			if err != nil {
				return errors.Wrapf(err, "failed to listen on %s", srv.Addr)
			}
			logger.Info("listening", zap.String("addr", srv.Addr))
			go func() {
				if err := srv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
					logger.Error("server stopped", zap.Error(err))
				}
			}()
			return nil
		},
		OnStop: func(ctx context.Context) error {
			return srv.Shutdown(ctx)
		},
	})
}

func defaultHealth(_ context.Context, w bhttp.ResponseWriter, _ *http.Request) error {
	w.WriteHeader(http.StatusOK)
	return nil
}
