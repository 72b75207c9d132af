package bwlwa

import "go.uber.org/zap"

// Runtime hands the parsed environment and the app logger to handler
// constructors, see lambdas/cmd/ingest.
type Runtime[E Environment] struct {
	env    E
	mux    *Mux
	logger *zap.Logger
}

// NewRuntime is provided to fx by NewApp.
func NewRuntime[E Environment](env E, mux *Mux, logger *zap.Logger) *Runtime[E] {
	return &Runtime[E]{env: env, mux: mux, logger: logger}
}

func (r *Runtime[E]) Env() E { return r.env }

// Logger is for work outside of a request, use Log inside handlers.
func (r *Runtime[E]) Logger() *zap.Logger { return r.logger }

// URL reverses a route registered with a name.
func (r *Runtime[E]) URL(name string, params ...string) (string, error) {
	return r.mux.Reverse(name, params...)
}
