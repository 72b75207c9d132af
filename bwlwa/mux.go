package bwlwa

import (
	"context"
	"net/http"

	"github.com/advdv/bhttp"
	"go.uber.org/zap"
)

// Mux is an alias for bhttp.ServeMux with standard context.
type Mux = bhttp.ServeMux[context.Context]

// NewMux creates a Mux whose handlers see the Lambda invocation, see InvocationFrom.
func NewMux() *Mux {
	return newMux(withInvocation())
}

// newAppMux additionally makes the app logger available through Log.
func newAppMux(logger *zap.Logger) *Mux {
	return newMux(withLogger(logger), withInvocation())
}

func newMux(middleware ...bhttp.Middleware) *Mux {
	mux := bhttp.NewCustomServeMux(
		bhttp.StdContextInit,
		-1, // unlimited buffer
		bhttp.NewStdLogger(nil),
		http.NewServeMux(),
		bhttp.NewReverser(),
	)
	mux.Use(middleware...)
	return mux
}
